package reflection

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nestmesh/nest/internal/llm"
	"github.com/stretchr/testify/require"
)

func respondingWith(t *testing.T, text string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(llm.Response{
			Content: []llm.ContentBlock{{Type: "text", Text: text}},
		})
	}))
}

func TestMaybeRememberSkipsWhenNothingWorthKeeping(t *testing.T) {
	srv := respondingWith(t, "NOTHING")
	defer srv.Close()

	dir := t.TempDir()
	memory := NewStore(dir)
	client := llm.NewClient(llm.Config{APIKey: "k", Model: "haiku", Endpoint: srv.URL})
	r := NewReflector(client, memory)

	r.MaybeRemember(context.Background(), "hi", "hello")

	content, err := memory.Read("MEMORY.md")
	require.NoError(t, err)
	require.Empty(t, content)
}

func TestMaybeRememberAppendsWhenSomethingWorthKeeping(t *testing.T) {
	srv := respondingWith(t, "- prefers terse PR descriptions")
	defer srv.Close()

	dir := t.TempDir()
	memory := NewStore(dir)
	client := llm.NewClient(llm.Config{APIKey: "k", Model: "haiku", Endpoint: srv.URL})
	r := NewReflector(client, memory)

	r.MaybeRemember(context.Background(), "keep PRs short", "got it")

	content, err := memory.Read("MEMORY.md")
	require.NoError(t, err)
	require.Contains(t, content, "prefers terse PR descriptions")
}

func TestMaybeRememberSwallowsAPIErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	memory := NewStore(t.TempDir())
	client := llm.NewClient(llm.Config{APIKey: "k", Model: "haiku", Endpoint: srv.URL})
	r := NewReflector(client, memory)

	require.NotPanics(t, func() {
		r.MaybeRemember(context.Background(), "hi", "hello")
	})
}
