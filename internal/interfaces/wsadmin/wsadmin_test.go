package wsadmin

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fluux-agent/gateway/internal/telemetry"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

func TestServeEventsStreamsPublishedEvent(t *testing.T) {
	broadcaster := telemetry.NewBroadcaster(4)
	s := &Server{broadcaster: broadcaster, logger: zap.NewNop()}

	ts := httptest.NewServer(http.HandlerFunc(s.serveEvents))
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Give the server a moment to register its subscription.
	time.Sleep(50 * time.Millisecond)

	broadcaster.Publish(telemetry.Event{Kind: telemetry.KindConnected, Jid: "agent@example.com"})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read message: %v", err)
	}

	var ev telemetry.Event
	if err := json.Unmarshal(data, &ev); err != nil {
		t.Fatalf("unmarshal event: %v", err)
	}
	if ev.Kind != telemetry.KindConnected || ev.Jid != "agent@example.com" {
		t.Fatalf("event = %+v", ev)
	}
}
