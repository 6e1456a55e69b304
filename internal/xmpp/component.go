package xmpp

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"net"
	"time"

	"github.com/fluux-agent/gateway/internal/domain/entity"
	"github.com/fluux-agent/gateway/internal/xmpp/stanza"
	"go.uber.org/zap"
)

// ComponentConfig configures a XEP-0114 external component connection.
type ComponentConfig struct {
	Host            string
	Port            int
	ComponentDomain string
	ComponentSecret string
}

// Component negotiates a XEP-0114 external-component connection: TCP →
// stream open → SHA-1(streamID + secret) handshake.
type Component struct {
	cfg    ComponentConfig
	logger *zap.Logger
}

func NewComponent(cfg ComponentConfig, logger *zap.Logger) *Component {
	return &Component{cfg: cfg, logger: logger}
}

func (c *Component) Connect(readTimeout time.Duration) (events chan Event, commands chan Command, runLoop func() entity.DisconnectResult, err error) {
	conn, err := c.establish()
	if err != nil {
		return nil, nil, nil, err
	}
	c.logger.Info("xmpp component connected", zap.String("domain", c.cfg.ComponentDomain))

	events = make(chan Event, 100)
	commands = make(chan Command, 100)
	events <- ConnectedEvent{}

	runLoop = func() entity.DisconnectResult {
		return RunEventLoop(conn, events, commands, readTimeout, c.cfg.ComponentDomain, c.logger)
	}
	return events, commands, runLoop, nil
}

func (c *Component) establish() (net.Conn, error) {
	addr := fmt.Sprintf("%s:%d", c.cfg.Host, c.cfg.Port)
	conn, err := net.DialTimeout("tcp", addr, 10*time.Second)
	if err != nil {
		return nil, entity.NewTransientError("tcp connect failed", err)
	}

	if _, err := conn.Write([]byte(stanza.BuildStreamOpen(c.cfg.ComponentDomain))); err != nil {
		return nil, entity.NewTransientError("write component stream open", err)
	}
	resp, err := readUntil(conn, "id=", 15*time.Second)
	if err != nil {
		return nil, entity.NewTransientError("read component stream header", err)
	}
	streamID := stanza.ExtractStreamId(resp)
	if streamID == "" {
		return nil, entity.NewTransientError("no stream id in component header", nil)
	}

	sum := sha1.Sum([]byte(streamID + c.cfg.ComponentSecret))
	hash := hex.EncodeToString(sum[:])

	if _, err := conn.Write([]byte(stanza.BuildHandshake(hash))); err != nil {
		return nil, entity.NewTransientError("write component handshake", err)
	}
	handshakeResp, err := readUntil(conn, ">", 15*time.Second)
	if err != nil {
		return nil, entity.NewTransientError("read component handshake response", err)
	}
	if !stanza.IsHandshakeSuccess(handshakeResp) {
		return nil, entity.NewAuthError("component handshake rejected", nil)
	}

	return conn, nil
}
