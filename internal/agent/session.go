package agent

import (
	"context"
	"time"

	"github.com/fluux-agent/gateway/internal/supervisor"
	"github.com/fluux-agent/gateway/internal/xmpp"
)

// boundSession adapts an *xmpp.Session into supervisor.Session while also
// starting (and tearing down) the runtime's own event-dispatch goroutine
// for exactly that session's lifetime, so a reconnect never leaves a
// goroutine reading from a stale, closed channel.
type boundSession struct {
	*xmpp.Session
	rt     *Runtime
	cancel context.CancelFunc
}

func newBoundSession(session *xmpp.Session, rt *Runtime) *boundSession {
	return &boundSession{Session: session, rt: rt}
}

func (b *boundSession) Connect(ctx context.Context) error {
	if err := b.Session.Connect(ctx); err != nil {
		return err
	}
	sessionCtx, cancel := context.WithCancel(ctx)
	b.cancel = cancel
	go b.rt.Attach(sessionCtx, b.Session.Events(), b.Session.Commands())
	return nil
}

func (b *boundSession) Close() error {
	if b.cancel != nil {
		b.cancel()
	}
	return b.Session.Close()
}

// NewSupervisorSession builds the supervisor.Session the reconnect loop
// drives: it wraps connector's handshake with this runtime's dispatch
// loop so every successful (re)connect resumes conversation handling.
func (r *Runtime) NewSupervisorSession(connector xmpp.Connector, readTimeout time.Duration) supervisor.Session {
	return newBoundSession(xmpp.NewSession(connector, readTimeout), r)
}
