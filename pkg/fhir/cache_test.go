package fhir

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const snapshotJSON = `{
  "task-001": {
    "resourceType": "Bundle",
    "type": "searchset",
    "total": 1,
    "entry": [
      {
        "resource": {
          "resourceType": "Patient",
          "id": "S6530532",
          "birthDate": "1954-08-10",
          "name": [
            {"family": "Buchanan", "given": ["Brian"]}
          ]
        }
      }
    ]
  },
  "task-002": {
    "resourceType": "Bundle",
    "type": "searchset",
    "total": 1,
    "entry": [
      {
        "resource": {
          "resourceType": "Patient",
          "id": "P1111111",
          "birthDate": "1980-01-01",
          "name": [
            {"family": "Nguyen", "given": ["Alice", "May"]}
          ]
        }
      }
    ]
  }
}`

func writeSnapshot(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "prefetched.json")
	require.NoError(t, os.WriteFile(path, []byte(snapshotJSON), 0644))
	return path
}

func TestSearchCacheMatch(t *testing.T) {
	path := writeSnapshot(t)

	bundle, ok := SearchCache(path, "Brian Buchanan", "1954-08-10")
	require.True(t, ok)
	assert.Contains(t, bundle, `"id": "S6530532"`)
}

func TestSearchCacheNameOrderInsensitive(t *testing.T) {
	path := writeSnapshot(t)

	_, ok := SearchCache(path, "buchanan BRIAN", "1954-08-10")
	assert.True(t, ok)
}

func TestSearchCacheMultipleGivenNames(t *testing.T) {
	path := writeSnapshot(t)

	bundle, ok := SearchCache(path, "Alice Nguyen", "1980-01-01")
	require.True(t, ok)
	assert.Contains(t, bundle, `"id": "P1111111"`)
}

func TestSearchCacheDOBMismatch(t *testing.T) {
	path := writeSnapshot(t)

	_, ok := SearchCache(path, "Brian Buchanan", "1999-01-01")
	assert.False(t, ok)
}

func TestSearchCacheUnknownName(t *testing.T) {
	path := writeSnapshot(t)

	_, ok := SearchCache(path, "John Doe", "1954-08-10")
	assert.False(t, ok)
}

func TestSearchCacheEmptyName(t *testing.T) {
	path := writeSnapshot(t)

	_, ok := SearchCache(path, "", "1954-08-10")
	assert.False(t, ok)
}

func TestSearchCacheMissingFile(t *testing.T) {
	_, ok := SearchCache(filepath.Join(t.TempDir(), "nope.json"), "Brian Buchanan", "1954-08-10")
	assert.False(t, ok)
}
