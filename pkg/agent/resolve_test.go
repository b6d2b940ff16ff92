package agent

import (
	"context"
	"errors"
	"testing"

	"medagent/pkg/api"
	"medagent/pkg/llm"
	"medagent/pkg/tools"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedClient replays a fixed sequence of replies and records every
// request it saw.
type scriptedClient struct {
	replies  []llm.Message
	errs     []error
	calls    [][]llm.Message
	toolDefs [][]llm.ToolDefinition
}

func (c *scriptedClient) Chat(ctx context.Context, messages []llm.Message, defs []llm.ToolDefinition) (llm.Message, error) {
	idx := len(c.calls)
	c.calls = append(c.calls, messages)
	c.toolDefs = append(c.toolDefs, defs)
	if idx < len(c.errs) && c.errs[idx] != nil {
		return llm.Message{}, c.errs[idx]
	}
	if idx >= len(c.replies) {
		return llm.Message{}, errors.New("unexpected extra chat call")
	}
	return c.replies[idx], nil
}

func (c *scriptedClient) Provider() string            { return "scripted" }
func (c *scriptedClient) IsTransientError(error) bool { return false }
func (c *scriptedClient) SetDebug(bool)               {}

// echoTool records the args it was called with and returns a canned result.
type echoTool struct {
	name    string
	result  string
	execErr error
	gotArgs map[string]any
}

func (t *echoTool) Name() string { return t.name }

func (t *echoTool) Definition() llm.ToolDefinition {
	return llm.ToolDefinition{Name: t.name, Parameters: map[string]any{"type": "object"}}
}

func (t *echoTool) Execute(ctx context.Context, args map[string]any) (*api.ToolResult, error) {
	t.gotArgs = args
	if t.execErr != nil {
		return nil, t.execErr
	}
	return &api.ToolResult{Content: t.result}, nil
}

func registryWith(t api.Tool) *tools.Registry {
	reg := tools.NewRegistry()
	reg.Register(t)
	return reg
}

func TestResolveDirectAnswer(t *testing.T) {
	client := &scriptedClient{replies: []llm.Message{llm.NewAssistantMessage("The patient is 70 years old.")}}

	answer := resolve(context.Background(), client, nil, "system", "user", false)

	assert.Equal(t, "The patient is 70 years old.", answer)
	require.Len(t, client.calls, 1)
	assert.Nil(t, client.toolDefs[0])
}

func TestResolveOneToolRound(t *testing.T) {
	first := llm.NewAssistantMessage("")
	first.ToolCalls = []llm.ToolCall{{
		ID:   "call-1",
		Name: "search_fhir",
		Function: llm.FunctionCall{
			Name:      "search_fhir",
			Arguments: `{"resource_type":"Patient","params":{"_id":"S6530532"}}`,
		},
	}}
	client := &scriptedClient{replies: []llm.Message{
		first,
		llm.NewAssistantMessage("Recorded."),
	}}
	tool := &echoTool{name: "search_fhir", result: `{"resourceType":"Bundle"}`}

	answer := resolve(context.Background(), client, registryWith(tool), "system", "user", true)

	assert.Equal(t, "Recorded.", answer)
	require.Len(t, client.calls, 2)

	// First call advertises the tool, follow-up withholds it.
	assert.NotEmpty(t, client.toolDefs[0])
	assert.Nil(t, client.toolDefs[1])

	// Tool got the parsed arguments.
	assert.Equal(t, "Patient", tool.gotArgs["resource_type"])

	// Follow-up conversation carries the assistant tool call and its result.
	followUp := client.calls[1]
	require.Len(t, followUp, 4)
	assert.Equal(t, llm.RoleAssistant, followUp[2].Role)
	assert.Equal(t, llm.RoleTool, followUp[3].Role)
	assert.Equal(t, "call-1", followUp[3].ToolCallID)
	assert.Equal(t, `{"resourceType":"Bundle"}`, followUp[3].Content)
}

func TestResolveSecondRoundToolCallsUnserviced(t *testing.T) {
	withCall := func(content string) llm.Message {
		m := llm.NewAssistantMessage(content)
		m.ToolCalls = []llm.ToolCall{{
			ID:       "c",
			Name:     "search_fhir",
			Function: llm.FunctionCall{Name: "search_fhir", Arguments: `{}`},
		}}
		return m
	}
	client := &scriptedClient{replies: []llm.Message{
		withCall(""),
		withCall("Partial answer."),
	}}
	tool := &echoTool{name: "search_fhir", result: "{}"}

	answer := resolve(context.Background(), client, registryWith(tool), "s", "u", true)

	// No third call happens; the second reply's text is the answer.
	assert.Equal(t, "Partial answer.", answer)
	assert.Len(t, client.calls, 2)
}

func TestResolveUnknownTool(t *testing.T) {
	first := llm.NewAssistantMessage("")
	first.ToolCalls = []llm.ToolCall{{
		ID:       "c1",
		Name:     "delete_everything",
		Function: llm.FunctionCall{Name: "delete_everything", Arguments: `{}`},
	}}
	client := &scriptedClient{replies: []llm.Message{
		first,
		llm.NewAssistantMessage("Cannot do that."),
	}}

	answer := resolve(context.Background(), client, tools.NewRegistry(), "s", "u", true)

	assert.Equal(t, "Cannot do that.", answer)
	assert.Contains(t, client.calls[1][3].Content, `Error: unknown tool "delete_everything"`)
}

func TestResolveStripsFunctionsPrefix(t *testing.T) {
	first := llm.NewAssistantMessage("")
	first.ToolCalls = []llm.ToolCall{{
		ID:       "c1",
		Name:     "functions.search_fhir",
		Function: llm.FunctionCall{Name: "functions.search_fhir", Arguments: `{}`},
	}}
	client := &scriptedClient{replies: []llm.Message{
		first,
		llm.NewAssistantMessage("ok"),
	}}
	tool := &echoTool{name: "search_fhir", result: "found"}

	resolve(context.Background(), client, registryWith(tool), "s", "u", true)

	assert.Equal(t, "found", client.calls[1][3].Content)
}

func TestResolveBadToolArguments(t *testing.T) {
	first := llm.NewAssistantMessage("")
	first.ToolCalls = []llm.ToolCall{{
		ID:       "c1",
		Name:     "search_fhir",
		Function: llm.FunctionCall{Name: "search_fhir", Arguments: `{not json`},
	}}
	client := &scriptedClient{replies: []llm.Message{
		first,
		llm.NewAssistantMessage("done"),
	}}
	tool := &echoTool{name: "search_fhir", result: "unused"}

	resolve(context.Background(), client, registryWith(tool), "s", "u", true)

	assert.Contains(t, client.calls[1][3].Content, "Error: invalid tool arguments")
}

func TestResolveChatErrorBecomesText(t *testing.T) {
	client := &scriptedClient{errs: []error{errors.New("backend down")}}

	answer := resolve(context.Background(), client, nil, "s", "u", false)

	assert.Equal(t, "Error: LLM request failed: backend down", answer)
}
