// Package gateway routes tasks between transport channels and the task
// engine, and fans observable events out to the monitor.
package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"medagent/pkg/api"
	"medagent/pkg/monitor"
)

// GatewayManager owns all registered channels and routes task traffic
// in both directions: inbound tasks to the engine, status updates and
// artifacts back to the originating channel.
type GatewayManager struct {
	channels map[string]api.Channel
	engine   api.TaskEngine
	monitor  monitor.Monitor
	mu       sync.RWMutex

	runCtx context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewGatewayManager creates an empty manager.
func NewGatewayManager() *GatewayManager {
	ctx, cancel := context.WithCancel(context.Background())
	return &GatewayManager{
		channels: make(map[string]api.Channel),
		runCtx:   ctx,
		cancel:   cancel,
	}
}

// SetEngine wires the core task processor.
func (g *GatewayManager) SetEngine(engine api.TaskEngine) {
	g.engine = engine
}

// SetMonitor wires the traffic monitor.
func (g *GatewayManager) SetMonitor(m monitor.Monitor) {
	g.monitor = m
}

// Register adds a channel.
func (g *GatewayManager) Register(c api.Channel) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.channels[c.ID()] = c
}

// GetChannel returns a registered channel by ID.
func (g *GatewayManager) GetChannel(id string) (api.Channel, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	c, ok := g.channels[id]
	return c, ok
}

// StartAll starts every registered channel in its own goroutine.
func (g *GatewayManager) StartAll() error {
	g.mu.RLock()
	defer g.mu.RUnlock()

	for id, c := range g.channels {
		slog.Info("Starting channel", "channel", id)
		ch := c
		g.wg.Add(1)
		go func() {
			defer g.wg.Done()
			if err := ch.Start(g.runCtx); err != nil && g.runCtx.Err() == nil {
				slog.Error("Channel stopped unexpectedly", "channel", ch.ID(), "error", err)
			}
		}()
	}
	return nil
}

// StopAll stops all channels and waits for their listeners to exit.
func (g *GatewayManager) StopAll() {
	g.cancel()

	g.mu.RLock()
	for id, c := range g.channels {
		slog.Info("Stopping channel", "channel", id)
		if err := c.Stop(); err != nil {
			slog.Error("Error stopping channel", "channel", id, "error", err)
		}
	}
	g.mu.RUnlock()

	g.wg.Wait()
}

// OnTask implements the inbound side: channels hand every task here.
func (g *GatewayManager) OnTask(ctx context.Context, msg api.TaskMessage) error {
	slog.Info("Task inbound",
		"channel", msg.Session.ChannelID,
		"task", msg.Session.TaskID,
		"user", msg.Session.Username)

	g.broadcast("USER", msg.Session, msg.Content)

	if g.engine == nil {
		return fmt.Errorf("no task engine configured")
	}
	return g.engine.HandleTask(ctx, msg)
}

// UpdateStatus implements api.TaskUpdater.
func (g *GatewayManager) UpdateStatus(session api.SessionContext, state api.TaskState, message string) error {
	g.broadcast("STATUS", session, fmt.Sprintf("%s: %s", state, message))

	c, ok := g.GetChannel(session.ChannelID)
	if !ok {
		return fmt.Errorf("channel %s not found", session.ChannelID)
	}
	return c.UpdateStatus(session, state, message)
}

// AddArtifact implements api.TaskUpdater.
func (g *GatewayManager) AddArtifact(session api.SessionContext, name string, content string) error {
	g.broadcast("AGENT", session, content)

	c, ok := g.GetChannel(session.ChannelID)
	if !ok {
		return fmt.Errorf("channel %s not found", session.ChannelID)
	}
	return c.AddArtifact(session, name, content)
}

func (g *GatewayManager) broadcast(messageType string, session api.SessionContext, content string) {
	if g.monitor == nil {
		return
	}
	g.monitor.OnMessage(monitor.MonitorMessage{
		Timestamp:   time.Now(),
		MessageType: messageType,
		ChannelID:   session.ChannelID,
		Username:    session.Username,
		Content:     content,
	})
}
