package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"medagent/pkg/api"
	"medagent/pkg/llm"
)

// resolve runs the bounded completion loop: one model call, at most one
// round of tool execution, then one follow-up call with tools withheld.
// The model cannot chain searches indefinitely; whatever it has after
// the second call is the answer.
func resolve(ctx context.Context, client llm.Client, registry api.ToolRegistry, system string, user string, exposeTool bool) string {
	conv := llm.NewConversation()
	conv.Add(llm.NewSystemMessage(system))
	conv.Add(llm.NewUserMessage(user))

	var defs []llm.ToolDefinition
	if exposeTool && registry != nil {
		defs = registry.Definitions()
	}

	reply, err := client.Chat(ctx, conv.Messages(), defs)
	if err != nil {
		slog.Error("LLM request failed", "provider", client.Provider(), "error", err)
		return fmt.Sprintf("Error: LLM request failed: %v", err)
	}

	if !reply.HasToolCalls() {
		return reply.Content
	}

	conv.Add(reply)
	for _, tc := range reply.ToolCalls {
		result := executeToolCall(ctx, registry, tc)
		conv.Add(llm.NewToolResultMessage(tc.ID, tc.Function.Name, result))
	}

	// Follow-up call with tools withheld closes the loop after one round.
	final, err := client.Chat(ctx, conv.Messages(), nil)
	if err != nil {
		slog.Error("LLM follow-up failed", "provider", client.Provider(), "error", err)
		return fmt.Sprintf("Error: LLM request failed: %v", err)
	}

	if final.HasToolCalls() {
		slog.Warn("Model requested tools past the allowed round", "count", len(final.ToolCalls))
	}

	return final.Content
}

// executeToolCall dispatches one tool call and returns its text result.
// Failures come back as "Error: ..." text so the model sees them in the
// tool role rather than the task aborting.
func executeToolCall(ctx context.Context, registry api.ToolRegistry, tc llm.ToolCall) string {
	// Some OpenAI-compatible backends prefix function names.
	name := strings.TrimPrefix(tc.Function.Name, "functions.")

	if registry == nil {
		return fmt.Sprintf("Error: unknown tool %q", name)
	}
	tool, ok := registry.Get(name)
	if !ok {
		return fmt.Sprintf("Error: unknown tool %q", name)
	}

	var args map[string]any
	if tc.Function.Arguments != "" {
		if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
			return fmt.Sprintf("Error: invalid tool arguments: %v", err)
		}
	}

	result, err := tool.Execute(ctx, args)
	if err != nil {
		return fmt.Sprintf("Error: %v", err)
	}
	return result.Content
}
