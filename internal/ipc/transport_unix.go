//go:build !windows

package ipc

import (
	"context"
	"fmt"
	"net"
	"os"

	"github.com/google/uuid"
)

// Address derives the deterministic Unix domain socket path for a session.
func Address(sessionID uuid.UUID) string {
	return fmt.Sprintf("/tmp/nest-agent-%s.sock", sessionID)
}

// Server listens for exactly one agent connection per turn.
type Server struct {
	listener net.Listener
	addr     string
}

// Listen creates the server-side endpoint for sessionID, removing any
// stale socket file left behind by a crashed previous turn.
func Listen(sessionID uuid.UUID) (*Server, string, error) {
	addr := Address(sessionID)
	_ = os.Remove(addr)
	l, err := net.Listen("unix", addr)
	if err != nil {
		return nil, "", fmt.Errorf("creating unix socket %s: %w", addr, err)
	}
	return &Server{listener: l, addr: addr}, addr, nil
}

// Accept blocks until the spawned agent connects, or ctx is cancelled.
func (s *Server) Accept(ctx context.Context) (*Conn, error) {
	type result struct {
		conn net.Conn
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		conn, err := s.listener.Accept()
		ch <- result{conn, err}
	}()

	select {
	case <-ctx.Done():
		_ = s.listener.Close()
		return nil, ctx.Err()
	case r := <-ch:
		if r.err != nil {
			return nil, fmt.Errorf("accepting agent connection: %w", r.err)
		}
		return NewConn(r.conn), nil
	}
}

// Close releases the listener and removes the socket file.
func (s *Server) Close() error {
	err := s.listener.Close()
	_ = os.Remove(s.addr)
	return err
}

// Dial connects to the supervisor's listening socket at addr, the
// agent-side counterpart to Server.Accept. Used by cmd/nest-agent on
// startup with the --pipe address its parent process passed it.
func Dial(ctx context.Context, addr string) (*Conn, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", addr)
	if err != nil {
		return nil, fmt.Errorf("dialing supervisor socket %s: %w", addr, err)
	}
	return NewConn(conn), nil
}
