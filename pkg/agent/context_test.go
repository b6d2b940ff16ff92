package agent

import (
	"strings"
	"testing"

	"medagent/pkg/classify"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssembleInjectsLiveContext(t *testing.T) {
	system, user, expose := assemble(promptContext{
		instruction: "Find MRN for Brian Buchanan (DOB: 1954-08-10)",
		task:        classify.Task{Kind: classify.KindSearchPatient, Name: "Brian Buchanan", DOB: "1954-08-10"},
		bundle:      `{"resourceType":"Bundle"}`,
		source:      sourceLive,
		baseURL:     "http://fhir.example.com",
	})

	// The fetched bundle rides with the instruction, not the system prompt.
	assert.True(t, strings.HasPrefix(user, "Find MRN for Brian Buchanan (DOB: 1954-08-10)"))
	assert.Contains(t, user, "CONTEXT FROM FHIR (Pre-fetched)")
	assert.Contains(t, user, `{"resourceType":"Bundle"}`)
	assert.NotContains(t, system, "CONTEXT FROM FHIR (Pre-fetched)")
	assert.False(t, expose, "heuristic search tasks must not see the tool")
}

func TestAssembleCacheMarker(t *testing.T) {
	_, user, _ := assemble(promptContext{
		instruction: "instruction",
		task:        classify.Task{Kind: classify.KindSearchPatient},
		bundle:      `{}`,
		source:      sourceCache,
	})
	assert.Contains(t, user, "CONTEXT FROM CACHE (Fallback)")
	assert.NotContains(t, user, "CONTEXT FROM FHIR (Pre-fetched)")
}

func TestAssembleSystemContextBlock(t *testing.T) {
	system, user, _ := assemble(promptContext{
		instruction:   "instruction",
		systemContext: "Ward 7 is on restricted access today.",
		task:          classify.Task{Kind: classify.KindNone},
	})
	assert.Contains(t, system, "--- ADDITIONAL CONTEXT ---")
	assert.Contains(t, system, "Ward 7 is on restricted access today.")
	assert.NotContains(t, user, "Ward 7 is on restricted access today.")

	system, _, _ = assemble(promptContext{instruction: "x", task: classify.Task{Kind: classify.KindNone}})
	assert.NotContains(t, system, "ADDITIONAL CONTEXT")
}

func TestAssembleToolExposure(t *testing.T) {
	cases := []struct {
		name    string
		kind    classify.Kind
		baseURL string
		want    bool
	}{
		{"vitals with server", classify.KindRecordVitals, "http://fhir", true},
		{"unclassified with server", classify.KindNone, "http://fhir", true},
		{"vitals without server", classify.KindRecordVitals, "", false},
		{"age lookup", classify.KindPatientAge, "http://fhir", false},
		{"patient search", classify.KindSearchPatient, "http://fhir", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, expose := assemble(promptContext{
				instruction: "x",
				task:        classify.Task{Kind: tc.kind},
				baseURL:     tc.baseURL,
			})
			assert.Equal(t, tc.want, expose)
		})
	}
}

func TestAssembleNoBundleNoMarker(t *testing.T) {
	system, user, _ := assemble(promptContext{
		instruction: "hello",
		task:        classify.Task{Kind: classify.KindNone},
	})
	assert.Equal(t, "hello", user)
	assert.NotContains(t, system, "END CONTEXT")
}

func TestSearchArgsPatientSearch(t *testing.T) {
	resourceType, params, ok := searchArgs(classify.Task{
		Kind: classify.KindSearchPatient,
		Name: "Brian Buchanan",
		DOB:  "1954-08-10",
	})
	require.True(t, ok)
	assert.Equal(t, "Patient", resourceType)

	want := map[string]any{
		"name":      []string{"Brian", "Buchanan"},
		"birthdate": "1954-08-10",
	}
	if diff := cmp.Diff(want, params); diff != "" {
		t.Errorf("params mismatch (-want +got):\n%s", diff)
	}
}

func TestSearchArgsMRNTasks(t *testing.T) {
	for _, kind := range []classify.Kind{classify.KindPatientAge, classify.KindRecordVitals} {
		resourceType, params, ok := searchArgs(classify.Task{Kind: kind, MRN: "S6530532"})
		require.True(t, ok)
		assert.Equal(t, "Patient", resourceType)
		assert.Equal(t, map[string]any{"_id": "S6530532"}, params)
	}
}

func TestSearchArgsUnclassified(t *testing.T) {
	_, _, ok := searchArgs(classify.Task{Kind: classify.KindNone})
	assert.False(t, ok)
}
