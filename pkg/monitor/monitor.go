package monitor

import "time"

// MonitorMessage is one observable event flowing through the gateway.
type MonitorMessage struct {
	Timestamp   time.Time
	MessageType string // "USER", "AGENT" or "STATUS"
	ChannelID   string
	Username    string
	Content     string
}

// Monitor observes traffic across all channels.
type Monitor interface {
	// Start starts the monitor
	Start() error

	// Stop stops the monitor
	Stop() error

	// OnMessage receives and displays a monitoring message
	OnMessage(msg MonitorMessage)
}
