package web

import (
	"medagent/pkg/api"
	"medagent/pkg/channels"
	"medagent/pkg/config"

	jsoniter "github.com/json-iterator/go"
)

// Factory creates Web channels from config
type Factory struct{}

// Create implements channels.ChannelFactory
func (f *Factory) Create(rawConfig jsoniter.RawMessage, chCtx api.ChannelContext, system *config.SystemConfig) (api.Channel, error) {
	var cfg WebConfig
	if err := json.Unmarshal(rawConfig, &cfg); err != nil {
		return nil, err
	}
	return NewWebChannel(cfg, chCtx), nil
}

func init() {
	channels.RegisterChannel("web", &Factory{})
}
