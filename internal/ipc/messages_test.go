package ipc

import (
	"bytes"
	"encoding/json"
	"io"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

// loopback implements io.ReadWriteCloser over an in-memory pipe so Conn can
// be exercised without a real socket.
type loopback struct {
	r io.Reader
	w io.Writer
}

func (l *loopback) Read(p []byte) (int, error)  { return l.r.Read(p) }
func (l *loopback) Write(p []byte) (int, error) { return l.w.Write(p) }
func (l *loopback) Close() error                { return nil }

func TestWireMessageRoundTrip(t *testing.T) {
	original := Init{
		SessionID:    "abc-123",
		Model:        "claude-sonnet-4-5",
		SystemPrompt: "be helpful",
		PathPolicies: []WirePathPolicy{{Path: "/tmp", Access: "read-write", Recursive: true}},
	}
	msg, err := Encode(TypeInit, original)
	require.NoError(t, err)

	raw, err := json.Marshal(msg)
	require.NoError(t, err)

	var decoded WireMessage
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.Equal(t, TypeInit, decoded.Type)

	var got Init
	require.NoError(t, json.Unmarshal(decoded.Payload, &got))
	if diff := cmp.Diff(original, got); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestConnSendRecv(t *testing.T) {
	var buf bytes.Buffer
	conn := NewConn(&loopback{r: &buf, w: &buf})

	require.NoError(t, conn.Send(TypeTextDelta, TextDelta{Content: "hello"}))

	msg, err := conn.Recv()
	require.NoError(t, err)
	require.Equal(t, TypeTextDelta, msg.Type)

	var delta TextDelta
	require.NoError(t, json.Unmarshal(msg.Payload, &delta))
	require.Equal(t, "hello", delta.Content)
}

func TestConnRecvEOFOnClose(t *testing.T) {
	conn := NewConn(&loopback{r: bytes.NewReader(nil), w: io.Discard})
	_, err := conn.Recv()
	require.ErrorIs(t, err, io.EOF)
}
