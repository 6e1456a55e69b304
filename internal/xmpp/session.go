package xmpp

import (
	"context"
	"time"

	"github.com/fluux-agent/gateway/internal/domain/entity"
)

// Connector is satisfied by Client and Component: both negotiate a stream
// and hand back the event/command channels plus a blocking run function.
type Connector interface {
	Connect(readTimeout time.Duration) (events chan Event, commands chan Command, runLoop func() entity.DisconnectResult, err error)
}

// Session adapts a Connector to supervisor.Session, exposing the
// negotiated Events()/Commands() channels to the agent runtime once
// Connect succeeds.
type Session struct {
	connector   Connector
	readTimeout time.Duration

	events   chan Event
	commands chan Command
	runLoop  func() entity.DisconnectResult
}

func NewSession(connector Connector, readTimeout time.Duration) *Session {
	return &Session{connector: connector, readTimeout: readTimeout}
}

func (s *Session) Connect(ctx context.Context) error {
	events, commands, runLoop, err := s.connector.Connect(s.readTimeout)
	if err != nil {
		return err
	}
	s.events, s.commands, s.runLoop = events, commands, runLoop
	return nil
}

// Events returns the channel the agent runtime reads inbound stanzas
// from. Only valid after a successful Connect.
func (s *Session) Events() <-chan Event { return s.events }

// Commands returns the channel the agent runtime writes outbound
// commands to. Only valid after a successful Connect.
func (s *Session) Commands() chan<- Command { return s.commands }

func (s *Session) Run(ctx context.Context) entity.DisconnectResult {
	return s.runLoop()
}

func (s *Session) Close() error {
	if s.commands != nil {
		close(s.commands)
	}
	return nil
}
