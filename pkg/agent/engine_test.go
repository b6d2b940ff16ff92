package agent

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"medagent/pkg/api"
	"medagent/pkg/classify"
	"medagent/pkg/config"
	"medagent/pkg/fhir"
	"medagent/pkg/llm"
	"medagent/pkg/monitor"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type statusUpdate struct {
	state   api.TaskState
	message string
}

type artifactUpdate struct {
	name    string
	content string
}

// recordingUpdater captures everything the engine reports.
type recordingUpdater struct {
	statuses  []statusUpdate
	artifacts []artifactUpdate
}

func (u *recordingUpdater) UpdateStatus(_ api.SessionContext, state api.TaskState, message string) error {
	u.statuses = append(u.statuses, statusUpdate{state, message})
	return nil
}

func (u *recordingUpdater) AddArtifact(_ api.SessionContext, name string, content string) error {
	u.artifacts = append(u.artifacts, artifactUpdate{name, content})
	return nil
}

func testSystemConfig() *config.SystemConfig {
	sys := config.DefaultSystemConfig()
	sys.FHIRTimeoutMs = 500
	sys.LLMTimeoutMs = 5000
	return sys
}

func newTestEngine(client llm.Client, cfg *config.Config) (*Engine, *recordingUpdater) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	engine := NewEngine(client, fhir.NewClient(time.Second), cfg, testSystemConfig())
	updater := &recordingUpdater{}
	engine.SetUpdater(updater)
	return engine, updater
}

func taskMessage(content string) api.TaskMessage {
	return api.TaskMessage{
		Session: api.SessionContext{ChannelID: "test", TaskID: "task-1"},
		Content: content,
	}
}

func TestHandleTaskAgeLookupLiveFetch(t *testing.T) {
	var gotQuery map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		w.Write([]byte(`{"resourceType":"Bundle","entry":[{"resource":{"resourceType":"Patient","id":"S6530532","birthDate":"1954-08-10"}}]}`))
	}))
	defer srv.Close()

	client := &scriptedClient{replies: []llm.Message{llm.NewAssistantMessage("The patient is 70 years old.")}}
	engine, updater := newTestEngine(client, nil)

	payload := fmt.Sprintf(`{"instruction":"What is the age of the patient with MRN of S6530532?","fhir_base_url":%q}`, srv.URL)
	require.NoError(t, engine.HandleTask(context.Background(), taskMessage(payload)))

	// Heuristic query used the MRN.
	assert.Equal(t, []string{"S6530532"}, gotQuery["_id"])

	// The model saw the injected bundle under the instruction, and no tools.
	require.Len(t, client.calls, 1)
	userMsg := client.calls[0][1]
	assert.Equal(t, llm.RoleUser, userMsg.Role)
	assert.Contains(t, userMsg.Content, "What is the age of the patient with MRN of S6530532?")
	assert.Contains(t, userMsg.Content, "CONTEXT FROM FHIR (Pre-fetched)")
	assert.Contains(t, userMsg.Content, `"id":"S6530532"`)
	assert.Nil(t, client.toolDefs[0])

	require.Len(t, updater.artifacts, 1)
	assert.Equal(t, "Response", updater.artifacts[0].name)
	assert.Equal(t, "The patient is 70 years old.", updater.artifacts[0].content)

	require.Len(t, updater.statuses, 2)
	assert.Equal(t, api.TaskStateWorking, updater.statuses[0].state)
	assert.Equal(t, api.TaskStateCompleted, updater.statuses[1].state)
}

func TestHandleTaskCacheFallback(t *testing.T) {
	cachePath := filepath.Join(t.TempDir(), "snapshot.json")
	require.NoError(t, os.WriteFile(cachePath, []byte(`{
		"task-001": {
			"resourceType": "Bundle",
			"entry": [{"resource": {"resourceType": "Patient", "id": "S6530532", "birthDate": "1954-08-10",
				"name": [{"family": "Buchanan", "given": ["Brian"]}]}}]
		}
	}`), 0644))

	cfg := config.DefaultConfig()
	cfg.CachePath = cachePath

	client := &scriptedClient{replies: []llm.Message{llm.NewAssistantMessage("MRN is S6530532.")}}
	engine, updater := newTestEngine(client, cfg)

	// Unreachable data server forces the snapshot path.
	payload := `{"instruction":"Find MRN for Brian Buchanan (DOB: 1954-08-10)","fhir_base_url":"http://127.0.0.1:1"}`
	require.NoError(t, engine.HandleTask(context.Background(), taskMessage(payload)))

	require.Len(t, client.calls, 1)
	assert.Contains(t, client.calls[0][1].Content, "CONTEXT FROM CACHE (Fallback)")
	assert.Nil(t, client.toolDefs[0])

	require.Len(t, updater.artifacts, 1)
	assert.Equal(t, "MRN is S6530532.", updater.artifacts[0].content)
}

func TestHandleTaskSystemContextCarried(t *testing.T) {
	client := &scriptedClient{replies: []llm.Message{llm.NewAssistantMessage("Noted.")}}
	engine, _ := newTestEngine(client, nil)

	payload := `{"instruction":"Summarize the ward report","system_context":"Night shift handover, two admissions pending."}`
	require.NoError(t, engine.HandleTask(context.Background(), taskMessage(payload)))

	require.Len(t, client.calls, 1)
	systemMsg := client.calls[0][0]
	assert.Equal(t, llm.RoleSystem, systemMsg.Role)
	assert.Contains(t, systemMsg.Content, "--- ADDITIONAL CONTEXT ---")
	assert.Contains(t, systemMsg.Content, "Night shift handover, two admissions pending.")
	assert.Equal(t, "Summarize the ward report", client.calls[0][1].Content)
}

func TestHandleTaskNoServerSkipsCache(t *testing.T) {
	// A matching snapshot exists, but with no data server configured the
	// fallback must not fire: the cache only covers live-fetch failures.
	cachePath := filepath.Join(t.TempDir(), "snapshot.json")
	require.NoError(t, os.WriteFile(cachePath, []byte(`{
		"task-001": {
			"resourceType": "Bundle",
			"entry": [{"resource": {"resourceType": "Patient", "id": "S6530532", "birthDate": "1954-08-10",
				"name": [{"family": "Buchanan", "given": ["Brian"]}]}}]
		}
	}`), 0644))

	cfg := config.DefaultConfig()
	cfg.CachePath = cachePath
	cfg.FHIRBaseURL = ""

	client := &scriptedClient{replies: []llm.Message{llm.NewAssistantMessage("Cannot look that up.")}}
	engine, _ := newTestEngine(client, cfg)

	payload := `{"instruction":"Find MRN for Brian Buchanan (DOB: 1954-08-10)"}`
	require.NoError(t, engine.HandleTask(context.Background(), taskMessage(payload)))

	require.Len(t, client.calls, 1)
	assert.NotContains(t, client.calls[0][1].Content, "CONTEXT FROM CACHE (Fallback)")
	assert.Equal(t, "Find MRN for Brian Buchanan (DOB: 1954-08-10)", client.calls[0][1].Content)
}

func TestHandleTaskLogsInteractionLimit(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(monitor.NewCustomHandler(&buf, slog.HandlerOptions{Level: slog.LevelInfo})))
	defer slog.SetDefault(prev)

	client := &scriptedClient{replies: []llm.Message{llm.NewAssistantMessage("ok")}}
	engine, _ := newTestEngine(client, nil)

	payload := `{"instruction":"Summarize the ward report","interaction_limit":2}`
	require.NoError(t, engine.HandleTask(context.Background(), taskMessage(payload)))

	assert.Contains(t, buf.String(), "interaction_limit=2")
}

func TestHandleTaskVitalsExposesTool(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"resourceType":"Bundle","entry":[{"resource":{"resourceType":"Patient","id":"S6530532"}}]}`))
	}))
	defer srv.Close()

	client := &scriptedClient{replies: []llm.Message{llm.NewAssistantMessage("Recorded.")}}
	engine, updater := newTestEngine(client, nil)

	payload := fmt.Sprintf(`{"instruction":"The nurse measured the blood pressure for patient with MRN of S6530532 and the reading is \"128/85 mmHg\".","fhir_base_url":%q}`, srv.URL)
	require.NoError(t, engine.HandleTask(context.Background(), taskMessage(payload)))

	require.Len(t, client.calls, 1)
	require.Len(t, client.toolDefs[0], 1)
	assert.Equal(t, "search_fhir", client.toolDefs[0][0].Name)

	assert.Equal(t, "Recorded.", updater.artifacts[0].content)
}

func TestHandleTaskNoCredentials(t *testing.T) {
	engine, updater := newTestEngine(nil, nil)

	require.NoError(t, engine.HandleTask(context.Background(), taskMessage("anything")))

	require.Len(t, updater.artifacts, 1)
	assert.Equal(t, "Response", updater.artifacts[0].name)
	assert.Contains(t, updater.artifacts[0].content, "NEBIUS_API_KEY")
	assert.Contains(t, updater.artifacts[0].content, "OPENAI_API_KEY")
	assert.Equal(t, api.TaskStateCompleted, updater.statuses[len(updater.statuses)-1].state)
}

func TestHandleTaskPlainTextPayload(t *testing.T) {
	client := &scriptedClient{replies: []llm.Message{llm.NewAssistantMessage("Hello.")}}
	engine, updater := newTestEngine(client, nil)

	require.NoError(t, engine.HandleTask(context.Background(), taskMessage("Summarize the ward report")))

	// Raw text becomes the instruction, with no data server attached.
	require.Len(t, client.calls, 1)
	assert.Equal(t, "Summarize the ward report", client.calls[0][1].Content)
	assert.Nil(t, client.toolDefs[0])
	assert.Equal(t, "Hello.", updater.artifacts[0].content)
}

func TestParsePayload(t *testing.T) {
	p := parsePayload(`{"task_id":"t1","instruction":"do it","system_context":"ctx","fhir_base_url":"http://x","interaction_limit":3}`)
	assert.Equal(t, "t1", p.TaskID)
	assert.Equal(t, "do it", p.Instruction)
	assert.Equal(t, "ctx", p.SystemContext)
	assert.Equal(t, "http://x", p.FHIRBaseURL)
	assert.Equal(t, 3, p.InteractionLimit)

	p = parsePayload("just text")
	assert.Equal(t, "just text", p.Instruction)
	assert.Empty(t, p.FHIRBaseURL)

	// JSON without an instruction falls back to raw content.
	p = parsePayload(`{"fhir_base_url":"http://x"}`)
	assert.Equal(t, `{"fhir_base_url":"http://x"}`, p.Instruction)
}

func TestProgressText(t *testing.T) {
	task, ok := classify.Classify("What is the age of the patient with MRN of S6530532?")
	require.True(t, ok)
	assert.Contains(t, progressText(task), "S6530532")

	generic, _ := classify.Classify("anything else")
	assert.Equal(t, "Processing instruction...", progressText(generic))
}
