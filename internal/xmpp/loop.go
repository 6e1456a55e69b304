package xmpp

import (
	"encoding/xml"
	"fmt"
	"net"
	"time"

	"github.com/fluux-agent/gateway/internal/domain/entity"
	"github.com/fluux-agent/gateway/internal/xmpp/stanza"
	"go.uber.org/zap"
)

// RunEventLoop drives the steady-state reader/writer pair for an
// established connection. stampFrom is the component's own domain when
// running in component mode (outbound stanzas are stamped with an
// explicit from attribute); it is empty in client mode, where the server
// infers from from the bound resource.
//
// It blocks until the stream ends (error, stream-error, or conflict) and
// returns the reason. The writer goroutine it spawns exits once commands
// is closed or a write fails.
func RunEventLoop(conn net.Conn, events chan<- Event, commands <-chan Command, readTimeout time.Duration, stampFrom string, logger *zap.Logger) entity.DisconnectResult {
	go writerLoop(conn, commands, stampFrom, logger)
	return readerLoop(conn, events, readTimeout, logger)
}

func writerLoop(conn net.Conn, commands <-chan Command, stampFrom string, logger *zap.Logger) {
	for cmd := range commands {
		var raw string
		switch c := cmd.(type) {
		case PingCmd:
			if _, err := conn.Write([]byte{' '}); err != nil {
				logger.Warn("keepalive write failed", zap.Error(err))
				return
			}
			continue
		case SendMessageCmd:
			raw = stanza.BuildMessage(stampFrom, c.To, c.Body, c.ID)
		case SendChatStateCmd:
			if c.State == ChatStateComposing {
				raw = stanza.BuildChatStateComposing(stampFrom, c.To, c.MsgType)
			} else {
				raw = stanza.BuildChatStatePaused(stampFrom, c.To, c.MsgType)
			}
		case SendMucMessageCmd:
			raw = stanza.BuildMucMessage(stampFrom, c.To, c.Body)
		case JoinMucCmd:
			raw = stanza.BuildMucJoin(c.Room, c.Nick, stampFrom)
		case SendRawCmd:
			raw = c.Raw
		default:
			continue
		}
		if _, err := conn.Write([]byte(raw)); err != nil {
			logger.Warn("stanza write failed", zap.Error(err))
			return
		}
	}
}

func readerLoop(conn net.Conn, events chan<- Event, readTimeout time.Duration, logger *zap.Logger) entity.DisconnectResult {
	dec := xml.NewDecoder(conn)
	p := stanza.NewParser()

	for {
		if readTimeout > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
		}
		tok, err := dec.Token()
		if err != nil {
			events <- ErrorEvent{Err: fmt.Errorf("Read timeout or stream closed: %w", err)}
			return entity.DisconnectResult{Reason: entity.DisconnectConnectionLost}
		}

		s, ok := p.Feed(tok)
		if !ok {
			continue
		}

		switch {
		case s.StreamLevel:
			continue
		case s.Ignored:
			continue
		case s.Message != nil:
			events <- MessageEvent{Message: *s.Message}
		case s.Presence != nil:
			events <- PresenceEvent{Presence: *s.Presence}
		case s.Reaction != nil:
			events <- ReactionEvent{Reaction: *s.Reaction}
		case s.StreamError != nil:
			if s.StreamError.Condition == "conflict" {
				return entity.DisconnectResult{Reason: entity.DisconnectConflict}
			}
			return entity.DisconnectResult{Reason: entity.DisconnectStreamError, Condition: s.StreamError.Condition}
		}
	}
}
