package metrics

import (
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServerServesRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: "server_test_total", Help: "test"})
	reg.MustRegister(c)
	c.Add(3)

	srv := NewServerFor("127.0.0.1:0", "", reg)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()

	var addr string
	select {
	case a := <-srv.Ready():
		addr = a.String()
	case err := <-done:
		t.Fatalf("server exited early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not start")
	}

	resp, err := http.Get("http://" + addr + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "server_test_total 3")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestServerListenError(t *testing.T) {
	srv := NewServer("256.0.0.1:bad", "/metrics")
	err := srv.Serve(context.Background())
	assert.Error(t, err)
}

func TestCollectorsRegistered(t *testing.T) {
	WorkerRunsTotal.WithLabelValues("collector_test", "ok").Inc()
	WorkerProperty.WithLabelValues("collector_test", "bytes_read").Set(1)

	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)
	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["timedemux_worker_runs_total"])
	assert.True(t, names["timedemux_worker_property"])
}
