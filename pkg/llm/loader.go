package llm

import (
	"fmt"
	"log/slog"
	"time"

	"medagent/pkg/config"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// NewFromConfig builds an LLM client from the raw "llm" section of config.json.
// The section is an array of provider groups; each group is dispatched to its
// registered factory.
func NewFromConfig(rawLLM jsoniter.RawMessage, system *config.SystemConfig) (Client, error) {
	if rawLLM == nil {
		return nil, fmt.Errorf("missing 'llm' config")
	}

	var groups []ProviderGroupConfig
	if err := json.Unmarshal(rawLLM, &groups); err != nil {
		return nil, fmt.Errorf("failed to parse 'llm' config: %w", err)
	}

	return buildFromGroups(groups, system)
}

// NewFromEnv builds an LLM client from environment credentials, preferring
// Nebius and falling back to OpenAI. Returns ErrNoCredentials when neither
// key is set; callers are expected to degrade gracefully rather than crash.
func NewFromEnv(creds Credentials, system *config.SystemConfig) (Client, error) {
	groups := creds.Groups()
	if len(groups) == 0 {
		return nil, ErrNoCredentials
	}
	return buildFromGroups(groups, system)
}

func buildFromGroups(groups []ProviderGroupConfig, system *config.SystemConfig) (Client, error) {
	var allAtomicClients []Client

	for _, group := range groups {
		slog.Info("Loading LLM group", "type", group.Type, "models", len(group.Models))

		factory, ok := GetProviderFactory(group.Type)
		if !ok {
			slog.Warn("Unknown provider type", "type", group.Type)
			continue
		}

		clients, err := factory.Create(group, system)
		if err != nil {
			slog.Warn("Failed to create clients", "type", group.Type, "error", err)
			continue
		}

		allAtomicClients = append(allAtomicClients, clients...)
	}

	if len(allAtomicClients) == 0 {
		return nil, fmt.Errorf("no LLM clients could be initialized")
	}

	slog.Info("LLM clients initialized", "count", len(allAtomicClients))

	if len(allAtomicClients) == 1 {
		return allAtomicClients[0], nil
	}

	return &FallbackClient{
		Clients:    allAtomicClients,
		MaxRetries: system.MaxRetries,
		RetryDelay: time.Duration(system.RetryDelayMs) * time.Millisecond,
	}, nil
}
