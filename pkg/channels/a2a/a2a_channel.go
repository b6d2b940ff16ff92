// Package a2a exposes the agent over the A2A JSON-RPC surface:
// message/send for tasks and the agent card for discovery.
package a2a

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"medagent/pkg/api"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const DefaultPort = 9009

//----------------------------------------------------------------
// Wire types
//----------------------------------------------------------------

type rpcRequest struct {
	JSONRPC string              `json:"jsonrpc"`
	ID      jsoniter.RawMessage `json:"id"`
	Method  string              `json:"method"`
	Params  struct {
		Message inboundMessage `json:"message"`
	} `json:"params"`
}

type inboundMessage struct {
	MessageID string `json:"messageId"`
	TaskID    string `json:"taskId"`
	ContextID string `json:"contextId"`
	Role      string `json:"role"`
	Parts     []part `json:"parts"`
}

type part struct {
	Kind string `json:"kind"`
	Text string `json:"text,omitempty"`
}

type rpcResponse struct {
	JSONRPC string              `json:"jsonrpc"`
	ID      jsoniter.RawMessage `json:"id"`
	Result  any                 `json:"result,omitempty"`
	Error   *rpcError           `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type taskStatus struct {
	State     string `json:"state"`
	Message   string `json:"message,omitempty"`
	Timestamp string `json:"timestamp"`
}

type artifact struct {
	ArtifactID string `json:"artifactId"`
	Name       string `json:"name"`
	Parts      []part `json:"parts"`
}

type taskResult struct {
	ID        string       `json:"id"`
	ContextID string       `json:"contextId,omitempty"`
	Kind      string       `json:"kind"`
	Status    taskStatus   `json:"status"`
	History   []taskStatus `json:"history,omitempty"`
	Artifacts []artifact   `json:"artifacts,omitempty"`
}

// taskRecord accumulates what the engine reports while a task runs.
type taskRecord struct {
	mu        sync.Mutex
	history   []taskStatus
	artifacts []artifact
}

//----------------------------------------------------------------
// Channel
//----------------------------------------------------------------

// A2AChannel serves tasks synchronously: message/send blocks until the
// engine finishes and returns the full task with its artifacts.
type A2AChannel struct {
	port    int
	chCtx   api.ChannelContext
	server  *http.Server
	mu      sync.RWMutex
	records map[string]*taskRecord
}

// NewA2AChannel creates the channel. Port zero falls back to DefaultPort.
func NewA2AChannel(port int, chCtx api.ChannelContext) *A2AChannel {
	if port == 0 {
		port = DefaultPort
	}
	return &A2AChannel{
		port:    port,
		chCtx:   chCtx,
		records: make(map[string]*taskRecord),
	}
}

func (c *A2AChannel) ID() string {
	return "a2a"
}

// Start begins serving. Blocks until the server fails or Stop is called.
func (c *A2AChannel) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/", c.handleRPC)
	mux.HandleFunc("/.well-known/agent.json", c.handleAgentCard)

	c.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", c.port),
		Handler: mux,
	}

	slog.Info("A2A channel listening", "port", c.port)

	err := c.server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (c *A2AChannel) Stop() error {
	if c.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return c.server.Shutdown(ctx)
}

// UpdateStatus implements api.Channel. Statuses accumulate on the task
// record and ship with the final response.
func (c *A2AChannel) UpdateStatus(session api.SessionContext, state api.TaskState, message string) error {
	rec := c.record(session.TaskID)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	rec.history = append(rec.history, taskStatus{
		State:     string(state),
		Message:   message,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	return nil
}

// AddArtifact implements api.Channel.
func (c *A2AChannel) AddArtifact(session api.SessionContext, name string, content string) error {
	rec := c.record(session.TaskID)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	rec.artifacts = append(rec.artifacts, artifact{
		ArtifactID: uuid.NewString(),
		Name:       name,
		Parts:      []part{{Kind: "text", Text: content}},
	})
	return nil
}

func (c *A2AChannel) record(taskID string) *taskRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec, ok := c.records[taskID]
	if !ok {
		rec = &taskRecord{}
		c.records[taskID] = rec
	}
	return rec
}

func (c *A2AChannel) dropRecord(taskID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.records, taskID)
}

//----------------------------------------------------------------
// HTTP handlers
//----------------------------------------------------------------

func (c *A2AChannel) handleRPC(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req rpcRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeRPC(w, rpcResponse{
			JSONRPC: "2.0",
			Error:   &rpcError{Code: -32700, Message: "parse error"},
		})
		return
	}

	if req.Method != "message/send" {
		writeRPC(w, rpcResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error:   &rpcError{Code: -32601, Message: fmt.Sprintf("method %q not found", req.Method)},
		})
		return
	}

	taskID := req.Params.Message.TaskID
	if taskID == "" {
		taskID = uuid.NewString()
	}

	session := api.SessionContext{
		ChannelID: c.ID(),
		TaskID:    taskID,
		ContextID: req.Params.Message.ContextID,
		Username:  "a2a-client",
	}

	c.record(taskID) // pre-create so submitted shows in history
	_ = c.UpdateStatus(session, api.TaskStateSubmitted, "Task received")

	msg := api.TaskMessage{
		Session: session,
		Content: collectText(req.Params.Message.Parts),
	}

	finalState := api.TaskStateCompleted
	if err := c.chCtx.Handler(r.Context(), msg); err != nil {
		slog.Error("Task failed", "task", taskID, "error", err)
		_ = c.UpdateStatus(session, api.TaskStateFailed, err.Error())
		finalState = api.TaskStateFailed
	}

	rec := c.record(taskID)
	rec.mu.Lock()
	result := taskResult{
		ID:        taskID,
		ContextID: session.ContextID,
		Kind:      "task",
		History:   append([]taskStatus(nil), rec.history...),
		Artifacts: append([]artifact(nil), rec.artifacts...),
	}
	rec.mu.Unlock()
	c.dropRecord(taskID)

	if n := len(result.History); n > 0 {
		result.Status = result.History[n-1]
	} else {
		result.Status = taskStatus{
			State:     string(finalState),
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		}
	}

	writeRPC(w, rpcResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result:  result,
	})
}

func (c *A2AChannel) handleAgentCard(w http.ResponseWriter, r *http.Request) {
	card := map[string]any{
		"name":        c.chCtx.AgentName,
		"description": c.chCtx.AgentDescription,
		"url":         fmt.Sprintf("http://localhost:%d/", c.port),
		"version":     "1.0.0",
		"capabilities": map[string]any{
			"streaming": false,
		},
		"defaultInputModes":  []string{"text"},
		"defaultOutputModes": []string{"text"},
		"skills": []map[string]any{
			{
				"id":          "medical-records",
				"name":        "Medical records Q&A",
				"description": "Answers questions about patients using FHIR data.",
				"tags":        []string{"fhir", "medical"},
			},
		},
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(card); err != nil {
		slog.Error("Failed to write agent card", "error", err)
	}
}

func writeRPC(w http.ResponseWriter, resp rpcResponse) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("Failed to write RPC response", "error", err)
	}
}

// collectText joins the text parts of an inbound message.
func collectText(parts []part) string {
	var texts []string
	for _, p := range parts {
		if p.Kind == "text" && p.Text != "" {
			texts = append(texts, p.Text)
		}
	}
	return strings.Join(texts, "\n")
}
