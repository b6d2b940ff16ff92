package fhir

import (
	"log/slog"
	"os"
	"strings"

	"github.com/tidwall/gjson"
)

// SearchCache scans a pre-fetched snapshot file for a patient bundle
// matching the given name and birth date. The snapshot maps task
// identifiers to FHIR search bundles; the first bundle containing a
// matching Patient resource is returned verbatim.
//
// Name matching is token-based and case-insensitive: every word of the
// query name must appear among the patient's recorded given and family
// names. An empty name never matches.
func SearchCache(path string, name string, dob string) (string, bool) {
	queryTokens := nameTokenSet(name)
	if len(queryTokens) == 0 {
		return "", false
	}

	data, err := os.ReadFile(path)
	if err != nil {
		slog.Warn("Cache snapshot unavailable", "path", path, "error", err)
		return "", false
	}

	var matched string
	gjson.ParseBytes(data).ForEach(func(taskID, bundle gjson.Result) bool {
		found := false
		bundle.Get("entry").ForEach(func(_, entry gjson.Result) bool {
			resource := entry.Get("resource")
			if resource.Get("resourceType").String() != "Patient" {
				return true
			}
			if dob != "" && resource.Get("birthDate").String() != dob {
				return true
			}
			if patientMatchesName(resource, queryTokens) {
				found = true
				return false
			}
			return true
		})
		if found {
			matched = bundle.Raw
			slog.Info("Cache hit", "task", taskID.String())
			return false
		}
		return true
	})

	return matched, matched != ""
}

// patientMatchesName checks whether every query token appears among the
// patient's given and family names.
func patientMatchesName(resource gjson.Result, queryTokens map[string]bool) bool {
	recorded := make(map[string]bool)
	resource.Get("name").ForEach(func(_, n gjson.Result) bool {
		if family := n.Get("family").String(); family != "" {
			recorded[strings.ToLower(family)] = true
		}
		n.Get("given").ForEach(func(_, g gjson.Result) bool {
			recorded[strings.ToLower(g.String())] = true
			return true
		})
		return true
	})

	for token := range queryTokens {
		if !recorded[token] {
			return false
		}
	}
	return true
}

func nameTokenSet(name string) map[string]bool {
	tokens := make(map[string]bool)
	for _, t := range strings.Fields(name) {
		tokens[strings.ToLower(t)] = true
	}
	return tokens
}
