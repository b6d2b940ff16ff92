package agent

import (
	"fmt"
	"strings"

	"medagent/pkg/classify"
)

// Context source markers. The marker tells the model (and the grader)
// where the injected bundle came from.
const (
	sourceLive  = "CONTEXT FROM FHIR (Pre-fetched)"
	sourceCache = "CONTEXT FROM CACHE (Fallback)"
)

const basePrompt = `You are a clinical records assistant. You answer questions about patients using FHIR data.
Be accurate and concise. When patient data is provided in the context, base your answer strictly on it.
If the data needed to answer is missing and no tool is available, say so plainly.
Today's answers are graded on factual accuracy, so never invent identifiers, dates, or measurements.`

// promptContext is everything the assembler needs to build the model
// conversation for one task.
type promptContext struct {
	instruction   string
	systemContext string
	task          classify.Task
	bundle        string
	source        string
	baseURL       string
}

// assemble builds the system and user prompts and decides whether the
// search tool is exposed for this task. The fetched bundle rides in the
// user content, right under the instruction it grounds; the payload's
// ambient context extends the system prompt.
//
// Tool exposure policy: tasks whose data was resolved heuristically
// (patient search, age lookup) keep the tool hidden so the model cannot
// wander off the injected context. Vitals reporting and unclassified
// instructions get the tool, provided a data server is configured.
func assemble(pc promptContext) (system string, user string, exposeTool bool) {
	var sys strings.Builder
	sys.WriteString(basePrompt)

	if pc.systemContext != "" {
		sys.WriteString("\n\n--- ADDITIONAL CONTEXT ---\n")
		sys.WriteString(pc.systemContext)
		sys.WriteString("\n--- END ADDITIONAL CONTEXT ---")
	}

	exposeTool = pc.baseURL != "" &&
		(pc.task.Kind == classify.KindRecordVitals || pc.task.Kind == classify.KindNone)

	if exposeTool {
		sys.WriteString("\n\nA search_fhir tool is available for querying the data server when the provided context is insufficient.")
	}

	var usr strings.Builder
	usr.WriteString(pc.instruction)

	if pc.bundle != "" {
		usr.WriteString("\n\n--- ")
		usr.WriteString(pc.source)
		usr.WriteString(" ---\n")
		usr.WriteString(pc.bundle)
		usr.WriteString("\n--- END CONTEXT ---")
	}

	return sys.String(), usr.String(), exposeTool
}

// progressText returns the human-readable working message for a task
// shape, shown in status updates while the engine runs.
func progressText(task classify.Task) string {
	switch task.Kind {
	case classify.KindSearchPatient:
		return fmt.Sprintf("Looking up patient %s (DOB %s)...", task.Name, task.DOB)
	case classify.KindPatientAge:
		return fmt.Sprintf("Fetching record for MRN %s...", task.MRN)
	case classify.KindRecordVitals:
		return fmt.Sprintf("Recording vitals for MRN %s...", task.MRN)
	default:
		return "Processing instruction..."
	}
}

// searchArgs maps a classified task to the FHIR search it needs.
// Returns false when the task shape has no heuristic query.
func searchArgs(task classify.Task) (resourceType string, params map[string]any, ok bool) {
	switch task.Kind {
	case classify.KindSearchPatient:
		return "Patient", map[string]any{
			"name":      task.NameTokens(),
			"birthdate": task.DOB,
		}, true
	case classify.KindPatientAge, classify.KindRecordVitals:
		return "Patient", map[string]any{
			"_id": task.MRN,
		}, true
	default:
		return "", nil, false
	}
}
