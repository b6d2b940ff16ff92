package telegram

import (
	"log/slog"

	"medagent/pkg/api"
	"medagent/pkg/channels"
	"medagent/pkg/config"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Factory creates Telegram channels from config
type Factory struct{}

// Create implements channels.ChannelFactory
func (f *Factory) Create(rawConfig jsoniter.RawMessage, chCtx api.ChannelContext, system *config.SystemConfig) (api.Channel, error) {
	var cfg TelegramConfig
	if err := json.Unmarshal(rawConfig, &cfg); err != nil {
		return nil, err
	}

	if cfg.Token == "" {
		slog.Warn("Telegram channel configured without a token, skipping")
		return nil, nil
	}

	if cfg.MessageLimit == 0 && system != nil {
		cfg.MessageLimit = system.TelegramMessageLimit
	}

	return NewTelegramChannel(cfg, chCtx)
}

func init() {
	channels.RegisterChannel("telegram", &Factory{})
}
