package ipc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"
)

// DefaultReadTimeout bounds how long a client may take to send its request.
const DefaultReadTimeout = 2 * time.Second

// Handler processes one IPC command request.
type Handler interface {
	Handle(context.Context, Request) Response
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(context.Context, Request) Response

func (f HandlerFunc) Handle(ctx context.Context, req Request) Response {
	return f(ctx, req)
}

// Server answers control requests for one running timer.
type Server struct {
	Handler     Handler
	Logger      *slog.Logger
	ReadTimeout time.Duration
}

// Serve runs a Server with default settings.
func Serve(ctx context.Context, listener net.Listener, handler Handler) error {
	return (&Server{Handler: handler}).Serve(ctx, listener)
}

// Serve accepts clients until ctx is cancelled or the listener closes.
// In-flight requests finish before Serve returns.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	var wg sync.WaitGroup
	defer wg.Wait()

	stop := context.AfterFunc(ctx, func() { _ = listener.Close() })
	defer stop()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("accept IPC connection: %w", err)
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer conn.Close()
			s.serveConn(ctx, conn)
		}()
	}
}

func (s *Server) serveConn(ctx context.Context, conn net.Conn) {
	timeout := s.ReadTimeout
	if timeout <= 0 {
		timeout = DefaultReadTimeout
	}
	_ = conn.SetReadDeadline(time.Now().Add(timeout))

	var req Request
	if err := json.NewDecoder(conn).Decode(&req); err != nil {
		if isMalformed(err) {
			s.reply(conn, "", Response{Error: fmt.Sprintf("decode request: %v", err)})
		} else {
			s.reply(conn, "", Response{Error: fmt.Sprintf("read request: %v", err)})
		}
		return
	}
	if err := req.Validate(); err != nil {
		s.reply(conn, req.Command, Response{Error: err.Error()})
		return
	}
	s.reply(conn, req.Command, s.Handler.Handle(ctx, req))
}

func (s *Server) reply(conn net.Conn, command string, resp Response) {
	if !resp.OK && s.Logger != nil {
		s.Logger.Debug("control request refused", "command", command, "error", resp.Error)
	}
	if err := json.NewEncoder(conn).Encode(resp); err != nil && s.Logger != nil {
		s.Logger.Debug("write control response", "command", command, "error", err.Error())
	}
}
