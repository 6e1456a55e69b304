// Package wsadmin serves the optional admin WebSocket feed: a read-only
// stream of telemetry events for an operator dashboard. It never accepts
// inbound commands from the browser side — this is an observation
// surface, not a control plane.
package wsadmin

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/fluux-agent/gateway/internal/telemetry"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Server upgrades /ws/events connections and fans Broadcaster events out
// to each one as JSON text frames.
type Server struct {
	broadcaster *telemetry.Broadcaster
	logger      *zap.Logger
	httpServer  *http.Server
}

func NewServer(addr string, broadcaster *telemetry.Broadcaster, logger *zap.Logger) *Server {
	s := &Server{broadcaster: broadcaster, logger: logger}
	mux := http.NewServeMux()
	mux.HandleFunc("/ws/events", s.serveEvents)
	s.httpServer = &http.Server{Addr: addr, Handler: mux}
	return s
}

func (s *Server) Start() {
	s.logger.Info("starting admin websocket feed", zap.String("addr", s.httpServer.Addr))
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("admin websocket feed error", zap.Error(err))
		}
	}()
}

func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) serveEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	events, unsubscribe := s.broadcaster.Subscribe()
	defer unsubscribe()

	// Drain (and discard) anything the client sends, since this is a
	// read-only feed; this also lets us notice the client disconnecting.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	pingTicker := time.NewTicker(30 * time.Second)
	defer pingTicker.Stop()

	for {
		select {
		case <-closed:
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-pingTicker.C:
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
