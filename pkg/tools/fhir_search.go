package tools

import (
	"context"
	"fmt"
	"log/slog"

	"medagent/pkg/api"
	"medagent/pkg/fhir"
	"medagent/pkg/llm"
)

// SearchToolName is the function name the model calls to query the
// FHIR data server.
const SearchToolName = "search_fhir"

// FHIRSearchTool lets the model run ad-hoc searches against the task's
// data server. One instance is built per task because the server URL
// arrives with the task payload.
type FHIRSearchTool struct {
	client  *fhir.Client
	baseURL string
}

// NewFHIRSearchTool creates a search tool bound to one data server.
func NewFHIRSearchTool(client *fhir.Client, baseURL string) *FHIRSearchTool {
	return &FHIRSearchTool{
		client:  client,
		baseURL: baseURL,
	}
}

func (t *FHIRSearchTool) Name() string {
	return SearchToolName
}

func (t *FHIRSearchTool) Definition() llm.ToolDefinition {
	return llm.ToolDefinition{
		Name:        SearchToolName,
		Description: "Search the FHIR data server. Returns the raw FHIR bundle JSON for the given resource type and search parameters.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"resource_type": map[string]any{
					"type":        "string",
					"description": "FHIR resource type to search, e.g. Patient or Observation.",
				},
				"params": map[string]any{
					"type":        "object",
					"description": "FHIR search parameters as key/value pairs, e.g. {\"_id\": \"S6530532\"}.",
				},
			},
			"required": []string{"resource_type"},
		},
	}
}

// Execute runs the search. Data-server failures are reported as text in
// the result so the model can reason about them.
func (t *FHIRSearchTool) Execute(ctx context.Context, args map[string]any) (*api.ToolResult, error) {
	resourceType, _ := args["resource_type"].(string)
	if resourceType == "" {
		return &api.ToolResult{Content: "Error: resource_type is required"}, nil
	}

	params, _ := args["params"].(map[string]any)

	slog.Info("Tool call", "tool", SearchToolName, "resource", resourceType, "params", params)

	bundle, err := t.client.Search(ctx, t.baseURL, resourceType, params)
	if err != nil {
		return &api.ToolResult{
			Content: fmt.Sprintf("Error: %v", err),
			Details: map[string]any{"resource_type": resourceType},
		}, nil
	}

	return &api.ToolResult{
		Content: bundle,
		Details: map[string]any{"resource_type": resourceType},
	}, nil
}
