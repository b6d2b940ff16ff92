package api

import (
	"context"

	"medagent/pkg/llm"
)

// Tool is a capability the LLM can invoke during a task.
type Tool interface {
	// Name returns the function name exposed to the model.
	Name() string
	// Definition returns the function schema advertised to the model.
	Definition() llm.ToolDefinition
	// Execute runs the tool with the model-supplied arguments. Data-layer
	// failures are reported inside ToolResult.Content rather than as Go
	// errors, so the model can react to them.
	Execute(ctx context.Context, args map[string]any) (*ToolResult, error)
}

// ToolResult is the outcome of one tool invocation.
type ToolResult struct {
	// Content is the text handed back to the model.
	Content string
	// Details carries structured metadata for logs and monitors.
	Details map[string]any
}

// ToolRegistry exposes a set of tools by name.
type ToolRegistry interface {
	Get(name string) (Tool, bool)
	Definitions() []llm.ToolDefinition
}
