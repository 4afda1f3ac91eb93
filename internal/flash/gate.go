// Package flash shares one screen between every alert source that wants to flash it.
package flash

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/rbright/debatebell/internal/bell"
	"github.com/rbright/debatebell/internal/metrics"
)

// DefaultBeginTimeout bounds how long a flash waits for the screen.
const DefaultBeginTimeout = 2 * time.Second

// Renderer draws the flash itself.
type Renderer interface {
	FlashOn(colour bell.Colour)
	FlashOff()
}

// Gate admits one flash sequence at a time to a Renderer. Gate satisfies
// alert.FlashScreenListener.
type Gate struct {
	renderer Renderer
	timeout  time.Duration
	logger   *slog.Logger
	sem      *semaphore.Weighted
}

// NewGate wraps renderer. A non-positive timeout uses DefaultBeginTimeout.
func NewGate(renderer Renderer, timeout time.Duration, logger *slog.Logger) *Gate {
	if timeout <= 0 {
		timeout = DefaultBeginTimeout
	}
	return &Gate{
		renderer: renderer,
		timeout:  timeout,
		logger:   logger,
		sem:      semaphore.NewWeighted(1),
	}
}

// Begin waits up to the gate timeout for the screen.
func (g *Gate) Begin() bool {
	ctx, cancel := context.WithTimeout(context.Background(), g.timeout)
	defer cancel()
	if err := g.sem.Acquire(ctx, 1); err != nil {
		metrics.LockTimeouts.WithLabelValues("flash").Inc()
		if g.logger != nil {
			g.logger.Debug("flash gate busy", "timeout", g.timeout.String())
		}
		return false
	}
	return true
}

func (g *Gate) FlashOn(colour bell.Colour) {
	g.renderer.FlashOn(colour)
}

func (g *Gate) FlashOff() {
	g.renderer.FlashOff()
}

// Done hands the screen to the next sequence.
func (g *Gate) Done() {
	g.sem.Release(1)
}
