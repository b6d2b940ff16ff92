// Package autoload registers all built-in LLM providers.
// Importing this package for side effects makes every provider factory
// available through the llm registry.
package autoload

import (
	_ "medagent/pkg/llm/gemini"
	_ "medagent/pkg/llm/ollama"
	_ "medagent/pkg/llm/openaichat"
)
