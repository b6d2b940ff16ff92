package fhir

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchBuildsQueryParams(t *testing.T) {
	var gotPath string
	var gotQuery map[string][]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query()
		w.Header().Set("Content-Type", "application/fhir+json")
		w.Write([]byte(`{"resourceType":"Bundle","total":1}`))
	}))
	defer srv.Close()

	client := NewClient(time.Second)
	body, err := client.Search(context.Background(), srv.URL, "Patient", map[string]any{
		"name":      []string{"Brian", "Buchanan"},
		"birthdate": "1954-08-10",
	})
	require.NoError(t, err)
	assert.Contains(t, body, `"resourceType":"Bundle"`)
	assert.Equal(t, "/Patient", gotPath)

	want := map[string][]string{
		"name":      {"Brian", "Buchanan"},
		"birthdate": {"1954-08-10"},
	}
	if diff := cmp.Diff(want, gotQuery); diff != "" {
		t.Errorf("query mismatch (-want +got):\n%s", diff)
	}
}

func TestSearchScalarAndListAnyParams(t *testing.T) {
	var gotQuery map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := NewClient(time.Second)
	_, err := client.Search(context.Background(), srv.URL, "Patient", map[string]any{
		"_id":   "S6530532",
		"count": 5,
		"tags":  []any{"a", "b"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"S6530532"}, gotQuery["_id"])
	assert.Equal(t, []string{"5"}, gotQuery["count"])
	assert.Equal(t, []string{"a", "b"}, gotQuery["tags"])
}

func TestSearchServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(time.Second)
	_, err := client.Search(context.Background(), srv.URL, "Patient", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

func TestSearchNoBaseURL(t *testing.T) {
	client := NewClient(0)
	_, err := client.Search(context.Background(), "", "Patient", nil)
	assert.ErrorIs(t, err, ErrNoBaseURL)
}

func TestSearchUnreachableServer(t *testing.T) {
	client := NewClient(200 * time.Millisecond)
	_, err := client.Search(context.Background(), "http://127.0.0.1:1", "Patient", nil)
	require.Error(t, err)
}
