package metrics

import (
	"context"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestCountersIncrement(t *testing.T) {
	before := testutil.ToFloat64(BellsRung.WithLabelValues("bell"))
	BellsRung.WithLabelValues("bell").Inc()
	require.Equal(t, before+1, testutil.ToFloat64(BellsRung.WithLabelValues("bell")))

	before = testutil.ToFloat64(LockTimeouts.WithLabelValues("playback"))
	LockTimeouts.WithLabelValues("playback").Inc()
	require.Equal(t, before+1, testutil.ToFloat64(LockTimeouts.WithLabelValues("playback")))
}

func TestServeDisabledWithEmptyAddr(t *testing.T) {
	require.NoError(t, Serve(context.Background(), "", nil))
}

func TestServeExposesMetrics(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, Serve(ctx, addr, nil))

	FlashSequences.WithLabelValues("completed").Inc()

	var body []byte
	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/metrics")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		body, err = io.ReadAll(resp.Body)
		return err == nil && resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)
	require.Contains(t, string(body), "debatebell_flash_sequences_total")
}
