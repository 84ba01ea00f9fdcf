package llm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func sseServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(body))
	}))
}

func TestChatStreamAccumulatesTextAndToolUse(t *testing.T) {
	body := strings.Join([]string{
		`event: message_start`,
		`data: {"type":"message_start"}`,
		``,
		`event: content_block_start`,
		`data: {"type":"content_block_start","index":0,"content_block":{"type":"text"}}`,
		``,
		`event: content_block_delta`,
		`data: {"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"hel"}}`,
		``,
		`data: {"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"lo"}}`,
		``,
		`event: content_block_start`,
		`data: {"type":"content_block_start","index":1,"content_block":{"type":"tool_use","id":"t1","name":"fs_read"}}`,
		``,
		`data: {"type":"content_block_delta","index":1,"delta":{"type":"input_json_delta","partial_json":"{\"path\":"}}`,
		``,
		`data: {"type":"content_block_delta","index":1,"delta":{"type":"input_json_delta","partial_json":"\"a.txt\"}"}}`,
		``,
		`event: message_delta`,
		`data: {"type":"message_delta","delta":{"stop_reason":"tool_use"},"usage":{"output_tokens":12}}`,
		``,
		`event: message_stop`,
		`data: {"type":"message_stop","usage":{"input_tokens":5,"output_tokens":12}}`,
		``,
		`data: [DONE]`,
		``,
	}, "\n")

	srv := sseServer(t, body)
	defer srv.Close()

	c := NewClient(Config{APIKey: "k", Model: "m", Endpoint: srv.URL})

	var streamed strings.Builder
	resp, err := c.ChatStream(context.Background(), "", nil, nil, func(text string) { streamed.WriteString(text) })
	require.NoError(t, err)

	require.Equal(t, "hello", streamed.String())
	require.Equal(t, "tool_use", resp.StopReason)
	require.Equal(t, 5, resp.Usage.InputTokens)
	require.Len(t, resp.Content, 2)
	require.Equal(t, "text", resp.Content[0].Type)
	require.Equal(t, "hello", resp.Content[0].Text)
	require.Equal(t, "tool_use", resp.Content[1].Type)
	require.Equal(t, "fs_read", resp.Content[1].Name)
	require.JSONEq(t, `{"path":"a.txt"}`, string(resp.Content[1].Input))
}
