package ipc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"sync"
)

// Conn is a bidirectional NDJSON channel, regardless of whether the
// underlying transport is a Unix socket or a Windows named pipe. Framing
// follows pkg/mcp/transport/stdio.go's idiom: bufio.Reader.ReadBytes('\n')
// rather than bufio.Scanner, since tool output lines can exceed Scanner's
// default token limit.
type Conn struct {
	rw     io.ReadWriteCloser
	reader *bufio.Reader
	wmu    sync.Mutex
}

// NewConn wraps an already-connected stream in NDJSON framing.
func NewConn(rw io.ReadWriteCloser) *Conn {
	return &Conn{rw: rw, reader: bufio.NewReaderSize(rw, 64*1024)}
}

// Send serializes msg as one line of JSON terminated by '\n'.
func (c *Conn) Send(msgType string, payload any) error {
	msg, err := Encode(msgType, payload)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", msgType, err)
	}
	line, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", msgType, err)
	}

	c.wmu.Lock()
	defer c.wmu.Unlock()
	if _, err := c.rw.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("writing %s: %w", msgType, err)
	}
	return nil
}

// Recv reads the next line and returns its tagged envelope, or io.EOF if
// the peer closed the connection cleanly.
func (c *Conn) Recv() (WireMessage, error) {
	line, err := c.reader.ReadBytes('\n')
	if err != nil {
		if err == io.EOF && len(line) == 0 {
			return WireMessage{}, io.EOF
		}
		if err != io.EOF {
			return WireMessage{}, fmt.Errorf("reading frame: %w", err)
		}
	}
	trimmed := trimNewline(line)
	if len(trimmed) == 0 {
		return WireMessage{}, io.EOF
	}
	var msg WireMessage
	if err := json.Unmarshal(trimmed, &msg); err != nil {
		return WireMessage{}, fmt.Errorf("parsing frame %q: %w", trimmed, err)
	}
	return msg, nil
}

// Close shuts down the underlying stream.
func (c *Conn) Close() error {
	return c.rw.Close()
}

func trimNewline(b []byte) []byte {
	n := len(b)
	for n > 0 && (b[n-1] == '\n' || b[n-1] == '\r') {
		n--
	}
	return b[:n]
}
