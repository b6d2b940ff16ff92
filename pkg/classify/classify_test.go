package classify

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifySearchPatient(t *testing.T) {
	task, ok := Classify("Register a new patient with name Brian Buchanan and DOB of 1954-08-10.")
	require.True(t, ok)
	assert.Equal(t, KindSearchPatient, task.Kind)
	assert.Equal(t, "Brian Buchanan", task.Name)
	assert.Equal(t, "1954-08-10", task.DOB)

	if diff := cmp.Diff([]string{"Brian", "Buchanan"}, task.NameTokens()); diff != "" {
		t.Errorf("name tokens mismatch (-want +got):\n%s", diff)
	}
}

func TestClassifyFindMRNVariant(t *testing.T) {
	task, ok := Classify("Find MRN for Brian Buchanan (DOB: 1954-08-10)")
	require.True(t, ok)
	assert.Equal(t, KindSearchPatient, task.Kind)
	assert.Equal(t, "Brian Buchanan", task.Name)
	assert.Equal(t, "1954-08-10", task.DOB)
}

func TestClassifyPatientAge(t *testing.T) {
	task, ok := Classify("What is the age of the patient with MRN of S6530532?")
	require.True(t, ok)
	assert.Equal(t, KindPatientAge, task.Kind)
	assert.Equal(t, "S6530532", task.MRN)
	assert.Empty(t, task.Name)
}

func TestClassifyRecordVitals(t *testing.T) {
	task, ok := Classify(`The nurse measured the blood pressure for patient with MRN of S6530532 and the reading is "128/85 mmHg".`)
	require.True(t, ok)
	assert.Equal(t, KindRecordVitals, task.Kind)
	assert.Equal(t, "S6530532", task.MRN)
	assert.Equal(t, "128/85 mmHg", task.BloodPressure)
}

func TestClassifyNameAndDOBWinsOverFindMRN(t *testing.T) {
	// Both rules could fire here; the name-and-DOB pattern takes priority.
	task, ok := Classify("Find MRN for the patient with name Brian Buchanan and DOB of 1954-08-10")
	require.True(t, ok)
	assert.Equal(t, KindSearchPatient, task.Kind)
	assert.Equal(t, "Brian Buchanan", task.Name)
}

func TestClassifyAgeWinsOverVitals(t *testing.T) {
	// Both rules could fire here; the age rule is checked first.
	task, ok := Classify(`What is the age of the patient with MRN of S6530532? Earlier today a nurse measured the blood pressure for patient with MRN of S6530532 and the reading is "120/80".`)
	require.True(t, ok)
	assert.Equal(t, KindPatientAge, task.Kind)
	assert.Equal(t, "S6530532", task.MRN)
	assert.Empty(t, task.BloodPressure)
}

func TestClassifyCaseInsensitive(t *testing.T) {
	task, ok := Classify("what is the AGE of the patient with mrn of s6530532")
	require.True(t, ok)
	assert.Equal(t, KindPatientAge, task.Kind)
	assert.Equal(t, "s6530532", task.MRN)
}

func TestClassifyNormalizesWhitespaceInNames(t *testing.T) {
	task, ok := Classify("patient with name Brian  \n Buchanan and DOB of 1954-08-10")
	require.True(t, ok)
	assert.Equal(t, "Brian Buchanan", task.Name)
}

func TestClassifyNoMatch(t *testing.T) {
	for _, text := range []string{
		"",
		"Summarize the latest discharge notes.",
		"What is the age of the patient named Brian?",
		"name Brian Buchanan and DOB of tomorrow",
	} {
		task, ok := Classify(text)
		assert.False(t, ok, "text %q should not classify", text)
		assert.Equal(t, KindNone, task.Kind)
	}
}

func TestNameTokensEmpty(t *testing.T) {
	assert.Nil(t, Task{}.NameTokens())
}
