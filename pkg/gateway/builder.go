package gateway

import (
	"fmt"

	"medagent/pkg/api"
	"medagent/pkg/monitor"
)

// GatewayBuilder provides a fluent builder pattern interface for
// constructing and initializing a GatewayManager with all its
// necessary dependencies.
//
// All components (channels, engine, monitor) are pre-built and injected
// as instances; the Builder simply assembles and starts them.
type GatewayBuilder struct {
	gw            *GatewayManager
	monitor       monitor.Monitor
	channels      []api.Channel
	channelLoader func(api.TaskHandler) ([]api.Channel, error)
	engine        api.TaskEngine
}

// NewGatewayBuilder creates a fresh GatewayBuilder instance and
// allocates an internal GatewayManager to be configured.
func NewGatewayBuilder() *GatewayBuilder {
	return &GatewayBuilder{
		gw: NewGatewayManager(),
	}
}

// WithMonitor injects a monitoring implementation into the builder.
// This monitor will be started automatically during the Build() process.
func (b *GatewayBuilder) WithMonitor(m monitor.Monitor) *GatewayBuilder {
	b.monitor = m
	return b
}

// WithChannel adds pre-built channel instances to the gateway.
func (b *GatewayBuilder) WithChannel(channels ...api.Channel) *GatewayBuilder {
	b.channels = append(b.channels, channels...)
	return b
}

// WithChannelLoader defers channel construction until Build(), when the
// gateway's inbound handler exists to hand to the channel factories.
func (b *GatewayBuilder) WithChannelLoader(loader func(api.TaskHandler) ([]api.Channel, error)) *GatewayBuilder {
	b.channelLoader = loader
	return b
}

// WithEngine injects the task engine. The engine's updater is wired to
// the gateway during Build() so results route back to their channel.
func (b *GatewayBuilder) WithEngine(engine api.TaskEngine) *GatewayBuilder {
	b.engine = engine
	return b
}

// Build finalizes the configuration, injects all dependencies into the
// GatewayManager, registers all channels, and starts everything.
// Returns the fully operational GatewayManager or an error if any stage fails.
func (b *GatewayBuilder) Build() (*GatewayManager, error) {
	// 1. Initialize and start the monitoring service
	if b.monitor != nil {
		b.gw.SetMonitor(b.monitor)
		if err := b.monitor.Start(); err != nil {
			return nil, fmt.Errorf("failed to start monitor: %w", err)
		}
	}

	// 2. Register all pre-built channels
	for _, c := range b.channels {
		b.gw.Register(c)
	}

	// 2b. Construct and register config-driven channels
	if b.channelLoader != nil {
		loaded, err := b.channelLoader(b.gw.OnTask)
		if err != nil {
			return nil, fmt.Errorf("failed to load channels: %w", err)
		}
		for _, c := range loaded {
			b.gw.Register(c)
		}
	}

	// 3. Wire the engine both ways
	if b.engine == nil {
		return nil, fmt.Errorf("no task engine provided")
	}
	b.engine.SetUpdater(b.gw)
	b.gw.SetEngine(b.engine)

	// 4. Start all registered channels
	if err := b.gw.StartAll(); err != nil {
		return nil, fmt.Errorf("failed to start channels: %w", err)
	}

	return b.gw, nil
}
