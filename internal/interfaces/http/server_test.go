package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fluux-agent/gateway/internal/infrastructure/monitoring"
	"github.com/fluux-agent/gateway/internal/telemetry"
	"go.uber.org/zap"
)

type fakeStatus struct {
	uptime  time.Duration
	monitor *monitoring.Monitor
}

func (f *fakeStatus) Uptime() time.Duration           { return f.uptime }
func (f *fakeStatus) Monitor() *monitoring.Monitor { return f.monitor }

func newTestServer() (*Server, *httptest.Server) {
	status := &fakeStatus{uptime: 5 * time.Second, monitor: monitoring.NewMonitor(zap.NewNop())}
	broadcaster := telemetry.NewBroadcaster(4)
	srv := NewServer("127.0.0.1:0", status, broadcaster, zap.NewNop())
	ts := httptest.NewServer(srv.server.Handler)
	return srv, ts
}

func TestHealthzReturnsOK(t *testing.T) {
	_, ts := newTestServer()
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
}

func TestStatusReturnsUptimeAndSubscribers(t *testing.T) {
	_, ts := newTestServer()
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/status")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var body map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["uptime_seconds"] != float64(5) {
		t.Fatalf("uptime_seconds = %v, want 5", body["uptime_seconds"])
	}
	if body["ws_admin_subscribers"] != float64(0) {
		t.Fatalf("ws_admin_subscribers = %v, want 0", body["ws_admin_subscribers"])
	}
}

func TestMetricsServesPrometheusText(t *testing.T) {
	_, ts := newTestServer()
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	ct := resp.Header.Get("Content-Type")
	if ct == "" {
		t.Fatal("expected a Content-Type header on /metrics")
	}
}
