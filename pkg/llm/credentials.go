package llm

import (
	"github.com/kelseyhightower/envconfig"
)

// Credentials holds the environment-driven provider credentials.
// Nebius (an OpenAI-compatible endpoint) is checked first, then stock
// OpenAI as the fallback backend. The selection happens once at startup
// and is immutable for the agent's lifetime.
type Credentials struct {
	NebiusAPIKey  string `envconfig:"NEBIUS_API_KEY"`
	NebiusModel   string `envconfig:"NEBIUS_MODEL_NAME" default:"meta-llama/Meta-Llama-3.1-70B-Instruct"`
	NebiusBaseURL string `envconfig:"NEBIUS_BASE_URL" default:"https://api.studio.nebius.com/v1/"`

	OpenAIAPIKey string `envconfig:"OPENAI_API_KEY"`
	OpenAIModel  string `envconfig:"OPENAI_MODEL_NAME" default:"gpt-4o-mini"`
}

// LoadCredentials reads provider credentials from the process environment.
func LoadCredentials() (Credentials, error) {
	var c Credentials
	if err := envconfig.Process("", &c); err != nil {
		return Credentials{}, err
	}
	return c, nil
}

// Configured reports whether at least one backend has an API key.
func (c Credentials) Configured() bool {
	return c.NebiusAPIKey != "" || c.OpenAIAPIKey != ""
}

// Groups translates the credentials into provider group configs, in
// selection order. An empty result means no backend is usable.
func (c Credentials) Groups() []ProviderGroupConfig {
	var groups []ProviderGroupConfig
	if c.NebiusAPIKey != "" {
		groups = append(groups, ProviderGroupConfig{
			Type:    "openai",
			APIKeys: []string{c.NebiusAPIKey},
			Models:  []string{c.NebiusModel},
			BaseURL: c.NebiusBaseURL,
		})
	}
	if c.OpenAIAPIKey != "" {
		groups = append(groups, ProviderGroupConfig{
			Type:    "openai",
			APIKeys: []string{c.OpenAIAPIKey},
			Models:  []string{c.OpenAIModel},
		})
	}
	return groups
}
