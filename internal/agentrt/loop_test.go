package agentrt

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/nestmesh/nest/internal/agentrt/tools"
	"github.com/nestmesh/nest/internal/ipc"
	"github.com/nestmesh/nest/internal/llm"
	"github.com/stretchr/testify/require"
)

// discardConn lets the loop write wire messages without a real socket; the
// test only cares what gets Sent, which a real Conn writes as NDJSON to w.
func newDiscardConn() (*ipc.Conn, *bytes.Buffer) {
	var buf bytes.Buffer
	return ipc.NewConn(&rwc{Reader: bytes.NewReader(nil), Writer: &buf}), &buf
}

type rwc struct {
	io.Reader
	io.Writer
}

func (rwc) Close() error { return nil }

type echoTool struct {
	calls int32
	fail  bool
}

func (e *echoTool) Name() string               { return "fs_read" }
func (e *echoTool) Description() string        { return "reads a file" }
func (e *echoTool) InputSchema() json.RawMessage { return json.RawMessage(`{"type":"object"}`) }
func (e *echoTool) Execute(ctx context.Context, input json.RawMessage) (string, bool, error) {
	atomic.AddInt32(&e.calls, 1)
	if e.fail {
		return "boom: file not found", true, nil
	}
	return "file contents", false, nil
}

// fakeAnthropic serves one streaming response with a tool_use block, then a
// non-streaming end_turn response for every call after, mirroring a turn
// that calls one tool and then finishes.
func fakeAnthropic(t *testing.T) *httptest.Server {
	t.Helper()
	var calls int32
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n == 1 {
			w.Header().Set("Content-Type", "text/event-stream")
			w.WriteHeader(http.StatusOK)
			body := strings.Join([]string{
				`event: content_block_start`,
				`data: {"type":"content_block_start","index":0,"content_block":{"type":"tool_use","id":"t1","name":"fs_read"}}`,
				``,
				`data: {"type":"content_block_delta","index":0,"delta":{"type":"input_json_delta","partial_json":"{}"}}`,
				``,
				`event: message_delta`,
				`data: {"type":"message_delta","delta":{"stop_reason":"tool_use"},"usage":{"output_tokens":3}}`,
				``,
				`event: message_stop`,
				`data: {"type":"message_stop","usage":{"input_tokens":10,"output_tokens":3}}`,
				``,
			}, "\n")
			_, _ = w.Write([]byte(body))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(llm.Response{
			Content:    []llm.ContentBlock{{Type: "text", Text: "done"}},
			StopReason: "end_turn",
			Usage:      llm.Usage{InputTokens: 4, OutputTokens: 2},
		})
	}))
}

func TestLoopRunsOneToolCallThenCompletes(t *testing.T) {
	srv := fakeAnthropic(t)
	defer srv.Close()

	registry := tools.NewRegistry()
	tool := &echoTool{}
	registry.Register(tool)

	conn, buf := newDiscardConn()
	client := llm.NewClient(llm.Config{APIKey: "k", Model: "m", Endpoint: srv.URL})

	loop := &Loop{Client: client, Registry: registry, Conn: conn, Breaker: NewBreaker(3)}
	result, err := loop.Run(context.Background(), "be helpful", nil, "read the file")
	require.NoError(t, err)

	require.Equal(t, "done", result.ResponseText)
	require.Len(t, result.ToolCalls, 1)
	require.Equal(t, "fs_read", result.ToolCalls[0].Name)
	require.False(t, result.ToolResults[0].IsError)
	require.EqualValues(t, 1, tool.calls)
	require.Equal(t, 14, result.InputTokens)
	require.Equal(t, 5, result.OutputTokens)

	require.Contains(t, buf.String(), ipc.TypeToolCallStart)
	require.Contains(t, buf.String(), ipc.TypeToolCallResult)
}

func TestLoopTripsBreakerAndInjectsHint(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n == 1 {
			w.Header().Set("Content-Type", "text/event-stream")
			w.WriteHeader(http.StatusOK)
			body := strings.Join([]string{
				`data: {"type":"content_block_start","index":0,"content_block":{"type":"tool_use","id":"t1","name":"fs_read"}}`,
				``,
				`data: {"type":"content_block_delta","index":0,"delta":{"type":"input_json_delta","partial_json":"{}"}}`,
				``,
				`data: {"type":"message_delta","delta":{"stop_reason":"tool_use"},"usage":{"output_tokens":1}}`,
				``,
			}, "\n")
			_, _ = w.Write([]byte(body))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if n >= 3 {
			_ = json.NewEncoder(w).Encode(llm.Response{
				Content:    []llm.ContentBlock{{Type: "text", Text: "giving up"}},
				StopReason: "end_turn",
			})
			return
		}
		_ = json.NewEncoder(w).Encode(llm.Response{
			Content:    []llm.ContentBlock{{Type: "tool_use", ID: "t1", Name: "fs_read", Input: json.RawMessage(`{}`)}},
			StopReason: "tool_use",
		})
	}))
	defer srv.Close()

	registry := tools.NewRegistry()
	tool := &echoTool{fail: true}
	registry.Register(tool)

	conn, _ := newDiscardConn()
	client := llm.NewClient(llm.Config{APIKey: "k", Model: "m", Endpoint: srv.URL})

	loop := &Loop{Client: client, Registry: registry, Conn: conn, Breaker: NewBreaker(2)}
	result, err := loop.Run(context.Background(), "be helpful", nil, "read the file")
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(result.ToolResults), 2)
	require.Contains(t, result.ToolResults[1].Content, "encountered this exact error 2 times")
}
