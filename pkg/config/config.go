package config

import (
	"fmt"
	"os"

	jsoniter "github.com/json-iterator/go"
)

// Config defines the global application configuration structure.
// This structure maps directly to the config.json file and holds
// business-level settings like channel configs and LLM provider choices.
type Config struct {
	// Channels contains a map of channel identifiers (e.g., "a2a", "web")
	// to their specific configuration payloads in raw JSON format.
	Channels map[string]jsoniter.RawMessage `json:"channels"`
	// LLM optionally holds provider group configuration in raw JSON.
	// When absent, clients are built from environment credentials instead.
	LLM jsoniter.RawMessage `json:"llm"`
	// AgentName is the display name advertised on the agent card.
	AgentName string `json:"agent_name"`
	// AgentDescription is the capability summary advertised on the agent card.
	AgentDescription string `json:"agent_description"`
	// CachePath points at the pre-fetched FHIR snapshot consulted when the
	// live data server is unreachable.
	CachePath string `json:"cache_path"`
	// FHIRBaseURL is the default data-server endpoint used when an inbound
	// task does not carry its own fhir_base_url.
	FHIRBaseURL string `json:"fhir_base_url"`
}

// SystemConfig defines engine-level technical parameters.
// These settings are stored in system.json and control the performance,
// reliability, and technical behavior of the agent runtime.
type SystemConfig struct {
	// MaxRetries is the number of times the system will attempt to
	// recover from a transient LLM or network error before giving up.
	MaxRetries int `json:"max_retries"`
	// RetryDelayMs is the duration to wait (in milliseconds) between
	// consecutive retry attempts.
	RetryDelayMs int `json:"retry_delay_ms"`
	// LLMTimeoutMs is the hard cutoff time (in milliseconds) for an
	// LLM request. The context will be cancelled if exceeded.
	LLMTimeoutMs int `json:"llm_timeout_ms"`
	// FHIRTimeoutMs bounds a single data-server query. A failure within
	// this window triggers the cache fallback; there is no retry.
	FHIRTimeoutMs int `json:"fhir_timeout_ms"`
	// TelegramMessageLimit is the maximum character count for a single
	// Telegram message. Longer responses are split into multiple chunks.
	TelegramMessageLimit int `json:"telegram_message_limit"`
	// DebugChunks enables saving every raw LLM request/response payload
	// to the /debug folder for inspection and troubleshooting.
	DebugChunks bool `json:"debug_chunks"`
	// LogLevel sets the minimum severity for log output.
	// Accepted values: "debug", "info", "warn", "error". Default: "info".
	LogLevel string `json:"log_level"`
}

// Validate ensures the configuration structure is usable.
func (c *Config) Validate() error {
	for name, raw := range c.Channels {
		if len(raw) == 0 {
			return fmt.Errorf("channel '%s' has an empty configuration block", name)
		}
	}
	return nil
}

// DefaultConfig returns a Config with the defaults for a benchmark run:
// the A2A channel on its standard port and the standard cache location.
func DefaultConfig() *Config {
	return &Config{
		Channels: map[string]jsoniter.RawMessage{
			"a2a": jsoniter.RawMessage(`{"port": 9009}`),
		},
		AgentName:        "medagent",
		AgentDescription: "Medical-records benchmark agent answering FHIR-backed instructions.",
		CachePath:        "med_data/prefetched-fhir-task1.json",
	}
}

// DefaultSystemConfig returns a SystemConfig pointer initialized with
// hardcoded safe default values. This is used as a fallback when the
// system.json file is missing or corrupt, ensuring the agent can always start.
func DefaultSystemConfig() *SystemConfig {
	return &SystemConfig{
		MaxRetries:           3,
		RetryDelayMs:         500,
		LLMTimeoutMs:         600000,
		FHIRTimeoutMs:        10000,
		TelegramMessageLimit: 4000,
		LogLevel:             "info",
	}
}

// Load reads and parses the JSON configuration files from the current
// working directory. A missing config.json is not fatal; the defaults
// cover a standard benchmark deployment.
func Load(appPath string) (*Config, *SystemConfig, error) {
	cfg := DefaultConfig()

	if appFile, err := os.ReadFile(appPath); err == nil {
		if err := jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(appFile, cfg); err != nil {
			return nil, nil, fmt.Errorf("failed to parse config file: %w", err)
		}
		if err := cfg.Validate(); err != nil {
			return nil, nil, err
		}
	} else if !os.IsNotExist(err) {
		return nil, nil, fmt.Errorf("failed to read config file: %w", err)
	}

	sysCfg := LoadSystemConfig("system.json")

	return cfg, sysCfg, nil
}

// LoadSystemConfig attempts to load system settings, returns defaults if it fails.
func LoadSystemConfig(path string) *SystemConfig {
	cfg := DefaultSystemConfig()

	file, err := os.ReadFile(path)
	if err != nil {
		return cfg // File not found, use defaults
	}

	if err := jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(file, cfg); err != nil {
		return cfg // Parse failed, use defaults
	}

	return cfg
}
