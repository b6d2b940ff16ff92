// Package classify maps free-text clinical instructions onto the small
// set of task shapes the agent knows how to ground against the FHIR
// data server. Classification is heuristic: the first matching rule
// wins, and anything unmatched falls through to the generic path.
package classify

import (
	"regexp"
	"strings"
)

// Kind identifies the recognized instruction shape.
type Kind string

const (
	// KindNone marks an instruction no rule matched.
	KindNone Kind = ""
	// KindSearchPatient asks for a patient lookup by name and birth date.
	KindSearchPatient Kind = "search_patient"
	// KindPatientAge asks for the age of a patient identified by MRN.
	KindPatientAge Kind = "get_patient_age"
	// KindRecordVitals reports a measured vital sign for a patient
	// identified by MRN.
	KindRecordVitals Kind = "record_vitals"
)

// Task is the structured reading of one instruction.
type Task struct {
	Kind          Kind
	Name          string
	DOB           string
	MRN           string
	BloodPressure string
}

var (
	// "... name John Smith and DOB of 1954-08-10 ..."
	nameDOBRe = regexp.MustCompile(`(?i)name\s+([\w\s]+?)\s+and\s+DOB\s+of\s+(\d{4}-\d{2}-\d{2})`)
	// "Find MRN for John Smith (DOB: 1954-08-10)"
	findMRNRe = regexp.MustCompile(`(?i)find\s+MRN\s+for\s+([\w\s]+?)\s*\(DOB:\s*(\d{4}-\d{2}-\d{2})\)`)
	// "... age of the patient with MRN of S6530532 ..."
	ageRe = regexp.MustCompile(`(?i)age\s+of\s+the\s+patient\s+with\s+MRN\s+of\s+([A-Za-z]\d+)`)
	// `... measured the blood pressure for patient with MRN of S6530532 ... is "120/80"`
	vitalsRe = regexp.MustCompile(`(?i)measured\s+the\s+blood\s+pressure\s+for\s+patient\s+with\s+MRN\s+of\s+([A-Za-z]\d+).*?is\s+"([^"]+)"`)
)

// Classify reads an instruction and returns its structured task. The
// second return value is false when no rule matched; the Task is then
// KindNone with no fields set.
func Classify(text string) (Task, bool) {
	if m := nameDOBRe.FindStringSubmatch(text); m != nil {
		return Task{
			Kind: KindSearchPatient,
			Name: normalizeName(m[1]),
			DOB:  m[2],
		}, true
	}

	if m := findMRNRe.FindStringSubmatch(text); m != nil {
		return Task{
			Kind: KindSearchPatient,
			Name: normalizeName(m[1]),
			DOB:  m[2],
		}, true
	}

	if m := ageRe.FindStringSubmatch(text); m != nil {
		return Task{
			Kind: KindPatientAge,
			MRN:  m[1],
		}, true
	}

	if m := vitalsRe.FindStringSubmatch(text); m != nil {
		return Task{
			Kind:          KindRecordVitals,
			MRN:           m[1],
			BloodPressure: m[2],
		}, true
	}

	return Task{Kind: KindNone}, false
}

// NameTokens splits the extracted name into its whitespace-separated
// parts, the granularity FHIR name search expects.
func (t Task) NameTokens() []string {
	if t.Name == "" {
		return nil
	}
	return strings.Fields(t.Name)
}

// normalizeName collapses internal whitespace so that regex captures
// spanning line breaks produce a clean value.
func normalizeName(raw string) string {
	return strings.Join(strings.Fields(raw), " ")
}
