package channels

import (
	"log/slog"

	"medagent/pkg/api"
	"medagent/pkg/config"

	jsoniter "github.com/json-iterator/go"
)

// LoadFromConfig acts as the central orchestration point for dynamic
// channel initialization. It iterates through the provided configuration
// map, resolves factories, and returns the constructed channels.
func LoadFromConfig(configs map[string]jsoniter.RawMessage, chCtx api.ChannelContext, system *config.SystemConfig) []api.Channel {
	var loaded []api.Channel

	for name, rawConfig := range configs {
		factory, ok := GetChannelFactory(name)
		if !ok {
			slog.Warn("Unknown channel type", "name", name)
			continue
		}

		channel, err := factory.Create(rawConfig, chCtx, system)
		if err != nil {
			slog.Error("Failed to create channel", "name", name, "error", err)
			continue
		}

		// If Create returns nil (e.g., certain conditions not met but not an error), skip
		if channel == nil {
			continue
		}

		loaded = append(loaded, channel)
		slog.Info("Channel registered", "name", name)
	}

	return loaded
}
