package a2a

import (
	"medagent/pkg/api"
	"medagent/pkg/channels"
	"medagent/pkg/config"

	jsoniter "github.com/json-iterator/go"
)

type channelConfig struct {
	Port int `json:"port"`
}

// Factory creates A2A channels from config
type Factory struct{}

// Create implements channels.ChannelFactory
func (f *Factory) Create(rawConfig jsoniter.RawMessage, chCtx api.ChannelContext, system *config.SystemConfig) (api.Channel, error) {
	var cfg channelConfig
	if err := json.Unmarshal(rawConfig, &cfg); err != nil {
		return nil, err
	}
	return NewA2AChannel(cfg.Port, chCtx), nil
}

func init() {
	channels.RegisterChannel("a2a", &Factory{})
}
