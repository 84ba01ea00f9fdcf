//go:build windows

package ipc

import (
	"context"
	"fmt"
	"net"

	"github.com/Microsoft/go-winio"
	"github.com/google/uuid"
)

// Address derives the deterministic named pipe address for a session.
func Address(sessionID uuid.UUID) string {
	return fmt.Sprintf(`\\.\pipe\nest-agent-%s`, sessionID)
}

// Server listens for exactly one agent connection per turn.
type Server struct {
	pipe net.Listener
	addr string
}

// Listen creates the server-side endpoint for sessionID.
func Listen(sessionID uuid.UUID) (*Server, string, error) {
	addr := Address(sessionID)
	l, err := winio.ListenPipe(addr, &winio.PipeConfig{
		InputBufferSize:  65536,
		OutputBufferSize: 65536,
	})
	if err != nil {
		return nil, "", fmt.Errorf("creating named pipe %s: %w", addr, err)
	}
	return &Server{pipe: l, addr: addr}, addr, nil
}

// Accept blocks until the spawned agent connects, or ctx is cancelled.
func (s *Server) Accept(ctx context.Context) (*Conn, error) {
	type result struct {
		conn net.Conn
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		conn, err := s.pipe.Accept()
		ch <- result{conn, err}
	}()

	select {
	case <-ctx.Done():
		_ = s.pipe.Close()
		return nil, ctx.Err()
	case r := <-ch:
		if r.err != nil {
			return nil, fmt.Errorf("accepting agent connection: %w", r.err)
		}
		return NewConn(r.conn), nil
	}
}

// Close releases the pipe listener.
func (s *Server) Close() error {
	return s.pipe.Close()
}

// Dial connects to the supervisor's named pipe at addr, the agent-side
// counterpart to Server.Accept. Used by cmd/nest-agent on startup with
// the --pipe address its parent process passed it.
func Dial(ctx context.Context, addr string) (*Conn, error) {
	conn, err := winio.DialPipeContext(ctx, addr)
	if err != nil {
		return nil, fmt.Errorf("dialing supervisor pipe %s: %w", addr, err)
	}
	return NewConn(conn), nil
}
