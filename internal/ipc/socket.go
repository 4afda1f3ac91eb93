package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"
)

// SocketEnv overrides the control socket location.
const SocketEnv = "DEBATEBELL_SOCKET"

const staleBackoff = 25 * time.Millisecond

// ErrAlreadyRunning reports a live timer already owning the socket.
var ErrAlreadyRunning = errors.New("debatebell timer already running")

// RuntimeSocketPath returns $DEBATEBELL_SOCKET, or debatebell.sock under
// XDG_RUNTIME_DIR.
func RuntimeSocketPath() (string, error) {
	if override := strings.TrimSpace(os.Getenv(SocketEnv)); override != "" {
		return override, nil
	}
	runtimeDir := strings.TrimSpace(os.Getenv("XDG_RUNTIME_DIR"))
	if runtimeDir == "" {
		return "", fmt.Errorf("XDG_RUNTIME_DIR is not set (or set %s)", SocketEnv)
	}
	return filepath.Join(runtimeDir, "debatebell.sock"), nil
}

// AcquireOptions bounds the attempts Acquire makes on an occupied path.
type AcquireOptions struct {
	ProbeTimeout time.Duration
	Retries      int
	// OnStale runs after a dead timer's socket has been unlinked.
	OnStale func(path string)
}

// Acquire claims path for a new timer. A socket answered by a live timer
// yields ErrAlreadyRunning; one nobody answers is unlinked and retried. A
// probe that neither answers nor refuses leaves the socket alone.
func Acquire(ctx context.Context, path string, opts AcquireOptions) (net.Listener, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("ensure runtime socket dir: %w", err)
	}

	for attempt := 0; ; attempt++ {
		listener, err := listen(path)
		if err == nil || !errors.Is(err, syscall.EADDRINUSE) {
			return listener, err
		}

		alive, probeErr := Probe(ctx, path, opts.ProbeTimeout)
		switch {
		case alive:
			return nil, ErrAlreadyRunning
		case probeErr != nil:
			return nil, fmt.Errorf("probe existing socket %s: %w", path, probeErr)
		}

		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("remove stale socket %s: %w", path, err)
		}
		if opts.OnStale != nil {
			opts.OnStale(path)
		}
		if attempt >= opts.Retries {
			return nil, fmt.Errorf("socket %s still busy after %d retries", path, opts.Retries)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(attempt+1) * staleBackoff):
		}
	}
}

func listen(path string) (net.Listener, error) {
	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen unix %s: %w", path, err)
	}
	_ = os.Chmod(path, 0o600)
	return listener, nil
}
