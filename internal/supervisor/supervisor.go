// Package supervisor drives the reconnect loop: it repeatedly asks a
// connector to establish a session, runs the session until it ends, and
// decides whether to retry based on the resulting error's classification
// and a backoff schedule. A connection that stays up past the stability
// window resets the backoff.
package supervisor

import (
	"context"
	"time"

	"github.com/fluux-agent/gateway/internal/backoff"
	"github.com/fluux-agent/gateway/internal/domain/entity"
	"go.uber.org/zap"
)

// Session is one connect-and-run cycle. Connect establishes the stream;
// Run drives the steady-state event loop until disconnect and returns why.
type Session interface {
	Connect(ctx context.Context) error
	Run(ctx context.Context) entity.DisconnectResult
	Close() error
}

// Config tunes the supervisor's backoff and stability window.
type Config struct {
	InitialDelay    time.Duration
	MaxDelay        time.Duration
	Multiplier      float64
	MaxAttempts     int // 0 = unlimited
	StabilityWindow time.Duration
}

// Supervisor owns the reconnect loop for a single connector.
type Supervisor struct {
	cfg     Config
	backoff *backoff.Backoff
	logger  *zap.Logger
}

func New(cfg Config, logger *zap.Logger) *Supervisor {
	if cfg.StabilityWindow == 0 {
		cfg.StabilityWindow = 60 * time.Second
	}
	return &Supervisor{
		cfg:     cfg,
		backoff: backoff.New(cfg.InitialDelay, cfg.MaxDelay, cfg.Multiplier),
		logger:  logger,
	}
}

// Run drives sessions produced by newSession until ctx is cancelled or a
// fatal (non-retriable) error occurs, which it returns.
func (s *Supervisor) Run(ctx context.Context, newSession func() Session) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		session := newSession()
		connectedAt := time.Now()

		if err := session.Connect(ctx); err != nil {
			_ = session.Close()
			if !isRetriable(err) {
				return err
			}
			if s.cfg.MaxAttempts > 0 && s.backoff.ExceededMaxAttempts(s.cfg.MaxAttempts) {
				return err
			}
			delay := s.backoff.NextDelay()
			s.logger.Warn("connect failed, retrying", zap.Error(err), zap.Duration("delay", delay))
			if !sleep(ctx, delay) {
				return ctx.Err()
			}
			continue
		}

		result := session.Run(ctx)
		_ = session.Close()

		if time.Since(connectedAt) >= s.cfg.StabilityWindow {
			s.backoff.Reset()
		}

		switch result.Reason {
		case entity.DisconnectConflict:
			return entity.NewConflictError("another resource took over the stream")
		case entity.DisconnectConnectionLost, entity.DisconnectStreamError:
			if s.cfg.MaxAttempts > 0 && s.backoff.ExceededMaxAttempts(s.cfg.MaxAttempts) {
				return entity.NewTransientError("max reconnect attempts exceeded", nil)
			}
			delay := s.backoff.NextDelay()
			if result.Reason == entity.DisconnectStreamError {
				s.logger.Warn("stream error, reconnecting", zap.String("condition", result.Condition), zap.Duration("delay", delay))
			} else {
				s.logger.Info("connection lost, reconnecting", zap.Duration("delay", delay))
			}
			if !sleep(ctx, delay) {
				return ctx.Err()
			}
		}
	}
}

func isRetriable(err error) bool {
	var xerr *entity.XmppError
	if e, ok := err.(*entity.XmppError); ok {
		xerr = e
		return xerr.IsRetriable()
	}
	return false
}

func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
