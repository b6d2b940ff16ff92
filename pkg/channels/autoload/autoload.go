// Package autoload registers all built-in channels.
// Importing this package for side effects makes every channel factory
// available through the channels registry.
package autoload

import (
	_ "medagent/pkg/channels/a2a"
	_ "medagent/pkg/channels/telegram"
	_ "medagent/pkg/channels/web"
)
