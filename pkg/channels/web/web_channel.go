// Package web serves tasks over a WebSocket for a browser console:
// one connection per task stream, status and artifact events pushed as
// they happen.
package web

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"medagent/pkg/api"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for decoupled UI
	},
}

type WebConfig struct {
	Port int `json:"port"` // Default: 9453
}

type incomingMessage struct {
	Text string `json:"text"`
}

type outgoingEvent struct {
	Type    string `json:"type"` // "status" or "artifact"
	State   string `json:"state,omitempty"`
	Name    string `json:"name,omitempty"`
	Content string `json:"content"`
}

// SafeConn serializes concurrent writes to one websocket connection.
type SafeConn struct {
	*websocket.Conn
	mu sync.Mutex
}

func (sc *SafeConn) WriteJSON(v any) error {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return sc.Conn.WriteMessage(websocket.TextMessage, data)
}

type WebChannel struct {
	config      WebConfig
	chCtx       api.ChannelContext
	server      *http.Server
	connections map[string]*SafeConn // Map TaskID -> WS Connection
	mu          sync.RWMutex
}

func NewWebChannel(cfg WebConfig, chCtx api.ChannelContext) *WebChannel {
	if cfg.Port == 0 {
		cfg.Port = 9453
	}
	return &WebChannel{
		config:      cfg,
		chCtx:       chCtx,
		connections: make(map[string]*SafeConn),
	}
}

func (c *WebChannel) ID() string {
	return "web"
}

func (c *WebChannel) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		c.handleWebSocket(ctx, w, r)
	})

	c.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", c.config.Port),
		Handler: mux,
	}

	slog.Info("Web API listening", "port", c.config.Port)

	err := c.server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (c *WebChannel) Stop() error {
	if c.server != nil {
		return c.server.Close()
	}
	return nil
}

// UpdateStatus pushes a status event to the task's connection.
func (c *WebChannel) UpdateStatus(session api.SessionContext, state api.TaskState, message string) error {
	conn, ok := c.connection(session.TaskID)
	if !ok {
		return fmt.Errorf("web task %s not connected", session.TaskID)
	}
	return conn.WriteJSON(outgoingEvent{
		Type:    "status",
		State:   string(state),
		Content: message,
	})
}

// AddArtifact pushes an artifact event to the task's connection.
func (c *WebChannel) AddArtifact(session api.SessionContext, name string, content string) error {
	conn, ok := c.connection(session.TaskID)
	if !ok {
		return fmt.Errorf("web task %s not connected", session.TaskID)
	}
	return conn.WriteJSON(outgoingEvent{
		Type:    "artifact",
		Name:    name,
		Content: content,
	})
}

func (c *WebChannel) connection(taskID string) (*SafeConn, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	conn, ok := c.connections[taskID]
	return conn, ok
}

func (c *WebChannel) handleWebSocket(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	rawConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("WebSocket upgrade failed", "error", err)
		return
	}
	conn := &SafeConn{Conn: rawConn}
	defer rawConn.Close()

	for {
		_, data, err := rawConn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("WebSocket read error", "error", err)
			}
			return
		}

		var incoming incomingMessage
		if err := json.Unmarshal(data, &incoming); err != nil {
			// Non-JSON frames are treated as bare instructions.
			incoming.Text = string(data)
		}
		if incoming.Text == "" {
			continue
		}

		taskID := uuid.NewString()
		c.mu.Lock()
		c.connections[taskID] = conn
		c.mu.Unlock()

		session := api.SessionContext{
			ChannelID: c.ID(),
			TaskID:    taskID,
			Username:  r.RemoteAddr,
		}

		if err := c.chCtx.Handler(ctx, api.TaskMessage{Session: session, Content: incoming.Text}); err != nil {
			slog.Error("Task failed", "task", taskID, "error", err)
			_ = conn.WriteJSON(outgoingEvent{
				Type:    "status",
				State:   string(api.TaskStateFailed),
				Content: err.Error(),
			})
		}

		c.mu.Lock()
		delete(c.connections, taskID)
		c.mu.Unlock()
	}
}
