package llm

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"time"
)

// ErrNoCredentials is returned when no provider credentials are configured at all.
var ErrNoCredentials = errors.New("no LLM API credentials configured")

// Client is the common interface implemented by every LLM backend.
// Chat issues one completion request over the full message sequence and
// returns the assistant's reply, including any tool-call requests.
type Client interface {
	Chat(ctx context.Context, messages []Message, tools []ToolDefinition) (Message, error)

	// Provider returns the backend identifier, e.g. "openai", "gemini", "ollama".
	Provider() string

	// IsTransientError reports whether an error is worth retrying (503, rate limit).
	IsTransientError(err error) bool

	// SetDebug toggles raw request/response dumping for this client.
	SetDebug(enabled bool)
}

// LogUsage prints a normalized one-line usage summary for a completed request.
func LogUsage(model string, usage *Usage) {
	if usage == nil {
		return
	}
	log.Printf("📊 Usage (%s): prompt=%d completion=%d total=%d stop=%s",
		model, usage.PromptTokens, usage.CompletionTokens, usage.TotalTokens, usage.StopReason)
}

// FallbackClient tries multiple clients in order, retrying transient failures.
type FallbackClient struct {
	Clients    []Client
	MaxRetries int
	RetryDelay time.Duration
}

func (f *FallbackClient) Chat(ctx context.Context, messages []Message, tools []ToolDefinition) (Message, error) {
	var lastErr error
	for i, client := range f.Clients {
		if i > 0 {
			slog.Warn("Previous provider failed, trying fallback", "provider", client.Provider(), "index", i+1)
		}

		maxRetries := f.MaxRetries
		if maxRetries <= 0 {
			maxRetries = 1
		}

		for retry := 1; retry <= maxRetries; retry++ {
			if retry > 1 {
				slog.Info("Retrying provider", "provider", client.Provider(), "attempt", fmt.Sprintf("%d/%d", retry, maxRetries))
				select {
				case <-ctx.Done():
					return Message{}, ctx.Err()
				case <-time.After(time.Duration(retry-1) * f.RetryDelay):
				}
			}

			reply, err := client.Chat(ctx, messages, tools)
			if err == nil {
				return reply, nil
			}

			lastErr = err

			if client.IsTransientError(err) && retry < maxRetries {
				slog.Warn("Provider failed with transient error", "provider", client.Provider(), "error", err)
				continue
			}

			slog.Error("Provider failed", "provider", client.Provider(), "error", err)
			break
		}
	}
	return Message{}, fmt.Errorf("all fallback providers failed, last error: %w", lastErr)
}

// Provider identifies the composite client by its primary backend.
func (f *FallbackClient) Provider() string {
	if len(f.Clients) > 0 {
		return f.Clients[0].Provider()
	}
	return "fallback"
}

// IsTransientError implements Client. A FallbackClient error means every
// child already exhausted its retries, so it is treated as permanent.
func (f *FallbackClient) IsTransientError(err error) bool {
	return false
}

// SetDebug propagates the debug switch to every child client.
func (f *FallbackClient) SetDebug(enabled bool) {
	for _, c := range f.Clients {
		c.SetDebug(enabled)
	}
}
