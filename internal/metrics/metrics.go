// Package metrics provides Prometheus counters for bell alerts.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Labels stay low-cardinality: no bell times, no session ids.

var (
	// BellsRung counts bells handed to the alert layer, by trigger source.
	BellsRung = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "debatebell_bells_rung_total",
		Help: "Total number of bells played, by source (bell/single/poi).",
	}, []string{"source"})

	// ChannelFailures counts alert channels that degraded instead of firing.
	ChannelFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "debatebell_channel_failures_total",
		Help: "Total number of alert channel failures, by channel.",
	}, []string{"channel"})

	// LockTimeouts counts bounded lock waits that gave up.
	LockTimeouts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "debatebell_lock_timeouts_total",
		Help: "Total number of skipped operations due to lock contention, by lock.",
	}, []string{"lock"})

	// PlaybackTransitions counts playback state machine transitions, by resulting state.
	PlaybackTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "debatebell_playback_transitions_total",
		Help: "Total number of bell playback transitions, by target state.",
	}, []string{"state"})

	// FlashSequences counts flash sequences, by outcome (completed/cancelled/refused).
	FlashSequences = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "debatebell_flash_sequences_total",
		Help: "Total number of screen flash sequences, by outcome.",
	}, []string{"outcome"})
)

// Serve exposes /metrics on addr until ctx is done. An empty addr disables it.
func Serve(ctx context.Context, addr string, logger *slog.Logger) error {
	if addr == "" {
		return nil
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) && logger != nil {
			logger.Warn("metrics server stopped", "addr", addr, "error", err.Error())
		}
	}()
	return nil
}
