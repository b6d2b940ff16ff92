// Package agent contains the task engine: it turns an inbound
// instruction into a graded answer by classifying it, grounding it
// against FHIR data, and resolving it through the LLM.
package agent

import (
	"context"
	"log/slog"
	"time"

	"medagent/pkg/api"
	"medagent/pkg/classify"
	"medagent/pkg/config"
	"medagent/pkg/fhir"
	"medagent/pkg/llm"
	"medagent/pkg/tools"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// responseArtifactName is the artifact key the benchmark grader reads.
const responseArtifactName = "Response"

const noCredentialsMessage = "Error: no LLM backend configured. Set NEBIUS_API_KEY or OPENAI_API_KEY and restart the agent."

// taskPayload is the structured task body carried in the inbound
// message. Payloads that fail to parse are treated as a bare
// instruction with no data server attached.
type taskPayload struct {
	TaskID           string `json:"task_id"`
	Instruction      string `json:"instruction"`
	SystemContext    string `json:"system_context"`
	FHIRBaseURL      string `json:"fhir_base_url"`
	InteractionLimit int    `json:"interaction_limit"`
}

// Engine implements api.TaskEngine.
type Engine struct {
	client  llm.Client
	updater api.TaskUpdater
	fetcher *fhir.Client
	cfg     *config.Config
	sysCfg  *config.SystemConfig
}

// NewEngine creates the task engine. A nil LLM client is tolerated; the
// engine then answers every task with a configuration error so the
// caller still receives an artifact.
func NewEngine(client llm.Client, fetcher *fhir.Client, cfg *config.Config, sysCfg *config.SystemConfig) *Engine {
	return &Engine{
		client:  client,
		fetcher: fetcher,
		cfg:     cfg,
		sysCfg:  sysCfg,
	}
}

// SetUpdater implements api.TaskEngine.
func (e *Engine) SetUpdater(updater api.TaskUpdater) {
	e.updater = updater
}

// HandleTask implements api.TaskEngine. It always delivers a Response
// artifact; operational failures surface as error text inside it rather
// than as a failed task, so the grader has something to read.
func (e *Engine) HandleTask(ctx context.Context, msg api.TaskMessage) error {
	payload := parsePayload(msg.Content)
	task, matched := classify.Classify(payload.Instruction)

	slog.Info("Task received",
		"channel", msg.Session.ChannelID,
		"task", msg.Session.TaskID,
		"kind", string(task.Kind),
		"classified", matched,
		"interaction_limit", payload.InteractionLimit)

	e.updateStatus(msg.Session, api.TaskStateWorking, progressText(task))

	if e.client == nil {
		e.deliver(msg.Session, noCredentialsMessage)
		return nil
	}

	baseURL := payload.FHIRBaseURL
	if baseURL == "" {
		baseURL = e.cfg.FHIRBaseURL
	}

	bundle, source := e.fetchContext(ctx, task, baseURL)

	system, user, exposeTool := assemble(promptContext{
		instruction:   payload.Instruction,
		systemContext: payload.SystemContext,
		task:          task,
		bundle:        bundle,
		source:        source,
		baseURL:       baseURL,
	})

	var registry api.ToolRegistry
	if exposeTool {
		reg := tools.NewRegistry()
		reg.Register(tools.NewFHIRSearchTool(e.fetcher, baseURL))
		registry = reg
	}

	llmCtx, cancel := context.WithTimeout(ctx, time.Duration(e.sysCfg.LLMTimeoutMs)*time.Millisecond)
	defer cancel()

	answer := resolve(llmCtx, e.client, registry, system, user, exposeTool)

	e.deliver(msg.Session, answer)
	return nil
}

// fetchContext resolves the heuristic FHIR query for a classified task:
// live server first, pre-fetched snapshot when the server is down. With
// no data server configured there is nothing to recover from, so the
// snapshot is not consulted either.
func (e *Engine) fetchContext(ctx context.Context, task classify.Task, baseURL string) (bundle string, source string) {
	resourceType, params, ok := searchArgs(task)
	if !ok || baseURL == "" {
		return "", ""
	}

	fetchCtx, cancel := context.WithTimeout(ctx, time.Duration(e.sysCfg.FHIRTimeoutMs)*time.Millisecond)
	defer cancel()

	live, err := e.fetcher.Search(fetchCtx, baseURL, resourceType, params)
	if err == nil {
		return live, sourceLive
	}
	slog.Warn("Live FHIR fetch failed, trying cache", "resource", resourceType, "error", err)

	if cached, ok := fhir.SearchCache(e.cfg.CachePath, task.Name, task.DOB); ok {
		return cached, sourceCache
	}

	return "", ""
}

// deliver publishes the answer artifact and closes out the task.
func (e *Engine) deliver(session api.SessionContext, answer string) {
	if err := e.updater.AddArtifact(session, responseArtifactName, answer); err != nil {
		slog.Error("Failed to deliver artifact", "task", session.TaskID, "error", err)
	}
	e.updateStatus(session, api.TaskStateCompleted, "Done")
}

func (e *Engine) updateStatus(session api.SessionContext, state api.TaskState, message string) {
	if err := e.updater.UpdateStatus(session, state, message); err != nil {
		slog.Error("Failed to update status", "task", session.TaskID, "state", string(state), "error", err)
	}
}

// parsePayload decodes the task body. Non-JSON bodies are treated as
// the instruction itself, so plain-text callers still work.
func parsePayload(content string) taskPayload {
	var payload taskPayload
	if err := json.Unmarshal([]byte(content), &payload); err != nil || payload.Instruction == "" {
		return taskPayload{Instruction: content}
	}
	return payload
}
