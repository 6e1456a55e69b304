package xmpp

import (
	"crypto/tls"
	"fmt"
	"net"
	"time"

	"github.com/fluux-agent/gateway/internal/domain/entity"
	"github.com/fluux-agent/gateway/internal/xmpp/sasl"
	"github.com/fluux-agent/gateway/internal/xmpp/stanza"
	"go.uber.org/zap"
)

// ClientConfig configures a client-mode (RFC 6120 + RFC 6121) connection.
type ClientConfig struct {
	Host       string
	Port       int
	Domain     string
	JID        string
	Password   string
	Resource   string
	TLSVerify  bool
	AllowedJids []string
}

// Client negotiates a direct client-to-server connection: TCP → STARTTLS →
// SASL → resource bind → roster fetch → initial presence → subscribe to
// any allowed JIDs not already on the roster.
type Client struct {
	cfg    ClientConfig
	logger *zap.Logger
}

func NewClient(cfg ClientConfig, logger *zap.Logger) *Client {
	if cfg.Resource == "" {
		cfg.Resource = "fluux-agent"
	}
	return &Client{cfg: cfg, logger: logger}
}

// Connect performs the full handshake and returns the live connection plus
// the channels the agent runtime should use to exchange events/commands.
// The caller must run the returned loop function (normally in its own
// goroutine) to drive the steady-state event loop; Connect itself only
// negotiates the stream.
func (c *Client) Connect(readTimeout time.Duration) (events chan Event, commands chan Command, runLoop func() entity.DisconnectResult, err error) {
	conn, boundJid, err := c.establish()
	if err != nil {
		return nil, nil, nil, err
	}
	c.logger.Info("xmpp client connected", zap.String("jid", boundJid))

	events = make(chan Event, 100)
	commands = make(chan Command, 100)

	events <- ConnectedEvent{}

	runLoop = func() entity.DisconnectResult {
		return RunEventLoop(conn, events, commands, readTimeout, "", c.logger)
	}
	return events, commands, runLoop, nil
}

func (c *Client) establish() (net.Conn, string, error) {
	addr := fmt.Sprintf("%s:%d", c.cfg.Host, c.cfg.Port)
	tcpConn, err := net.DialTimeout("tcp", addr, 10*time.Second)
	if err != nil {
		return nil, "", entity.NewTransientError("tcp connect failed", err)
	}

	// Phase 1: plaintext stream open, read until features.
	if _, err := tcpConn.Write([]byte(stanza.BuildClientStreamOpen(c.cfg.Domain))); err != nil {
		return nil, "", entity.NewTransientError("write stream open", err)
	}
	features, err := readUntil(tcpConn, "</stream:features>", 15*time.Second)
	if err != nil {
		return nil, "", entity.NewTransientError("read stream features", err)
	}

	// Phase 2: STARTTLS, or fail if the server doesn't offer it.
	if !stanza.HasStartTLS(features) {
		return nil, "", entity.NewConfigError("server does not advertise STARTTLS", nil)
	}
	if _, err := tcpConn.Write([]byte(stanza.BuildStartTLS())); err != nil {
		return nil, "", entity.NewTransientError("write starttls", err)
	}
	proceedResp, err := readUntil(tcpConn, ">", 15*time.Second)
	if err != nil {
		return nil, "", entity.NewTransientError("read starttls response", err)
	}
	if !stanza.IsStartTLSProceed(proceedResp) {
		return nil, "", entity.NewAuthError("starttls proceed not received", nil)
	}

	tlsConn := tls.Client(tcpConn, &tls.Config{
		ServerName:         c.cfg.Domain,
		InsecureSkipVerify: !c.cfg.TLSVerify,
	})
	if err := tlsConn.Handshake(); err != nil {
		return nil, "", entity.NewAuthError("tls handshake failed", err)
	}
	var conn net.Conn = tlsConn

	// Phase 3: re-open stream over TLS, read features (SASL mechanisms).
	if _, err := conn.Write([]byte(stanza.BuildClientStreamOpen(c.cfg.Domain))); err != nil {
		return nil, "", entity.NewTransientError("write tls stream open", err)
	}
	features, err = readUntil(conn, "</stream:features>", 15*time.Second)
	if err != nil {
		return nil, "", entity.NewTransientError("read tls stream features", err)
	}

	// Phase 4: SASL, preferring SCRAM-SHA-1, falling back to PLAIN.
	mechanisms := stanza.ExtractSaslMechanisms(features)
	username := string(entity.Bare(c.cfg.JID))
	if idx := indexByte(username, '@'); idx >= 0 {
		username = username[:idx]
	}

	if contains(mechanisms, "SCRAM-SHA-1") {
		if err := c.authenticateScram(conn, username); err != nil {
			return nil, "", err
		}
	} else if contains(mechanisms, "PLAIN") {
		if err := c.authenticatePlain(conn, username); err != nil {
			return nil, "", err
		}
	} else {
		return nil, "", entity.NewConfigError("no supported SASL mechanism offered", nil)
	}

	// Phase 5: re-open stream after SASL, read features.
	if _, err := conn.Write([]byte(stanza.BuildClientStreamOpen(c.cfg.Domain))); err != nil {
		return nil, "", entity.NewTransientError("write post-sasl stream open", err)
	}
	if _, err := readUntil(conn, "</stream:features>", 15*time.Second); err != nil {
		return nil, "", entity.NewTransientError("read post-sasl stream features", err)
	}

	// Phase 6: resource bind.
	if _, err := conn.Write([]byte(stanza.BuildBindRequest(c.cfg.Resource))); err != nil {
		return nil, "", entity.NewTransientError("write bind request", err)
	}
	bindResp, err := readUntil(conn, "</iq>", 15*time.Second)
	if err != nil {
		return nil, "", entity.NewTransientError("read bind response", err)
	}
	boundJid := stanza.ExtractBoundJid(bindResp)
	if boundJid == "" {
		return nil, "", entity.NewAuthError("resource bind did not return a jid", nil)
	}

	// Phase 7: roster fetch.
	if _, err := conn.Write([]byte(stanza.BuildRosterGet())); err != nil {
		return nil, "", entity.NewTransientError("write roster get", err)
	}
	rosterResp, err := readUntil(conn, "</iq>", 15*time.Second)
	if err != nil {
		return nil, "", entity.NewTransientError("read roster response", err)
	}
	rosterJids := stanza.ExtractRosterJids(rosterResp)

	// Phase 8: initial presence.
	if _, err := conn.Write([]byte(stanza.BuildInitialPresence())); err != nil {
		return nil, "", entity.NewTransientError("write initial presence", err)
	}

	// Phase 9: subscribe to configured JIDs not already in the roster.
	rosterSet := make(map[string]bool, len(rosterJids))
	for _, j := range rosterJids {
		rosterSet[string(entity.Bare(j))] = true
	}
	for _, allowed := range c.cfg.AllowedJids {
		if allowed == "*" {
			continue
		}
		if !rosterSet[allowed] {
			if _, err := conn.Write([]byte(stanza.BuildSubscribe(allowed))); err != nil {
				c.logger.Warn("failed to send subscribe request", zap.String("jid", allowed), zap.Error(err))
			}
		}
	}

	return conn, boundJid, nil
}

func (c *Client) authenticatePlain(conn net.Conn, username string) error {
	initial := sasl.PlainInitialMessage(username, c.cfg.Password)
	if _, err := conn.Write([]byte(stanza.BuildSaslAuthPlain(initial))); err != nil {
		return entity.NewTransientError("write sasl plain auth", err)
	}
	resp, err := readUntil(conn, ">", 15*time.Second)
	if err != nil {
		return entity.NewTransientError("read sasl plain response", err)
	}
	if !stanza.IsSaslSuccess(resp) {
		return entity.NewAuthError("sasl PLAIN authentication failed", nil)
	}
	return nil
}

func (c *Client) authenticateScram(conn net.Conn, username string) error {
	client, err := sasl.NewScramClient(username, c.cfg.Password)
	if err != nil {
		return entity.NewAuthError("scram client init failed", err)
	}
	if _, err := conn.Write([]byte(stanza.BuildSaslAuthScramSha1(client.InitialMessage()))); err != nil {
		return entity.NewTransientError("write sasl scram auth", err)
	}
	challengeResp, err := readUntil(conn, ">", 15*time.Second)
	if err != nil {
		return entity.NewTransientError("read sasl scram challenge", err)
	}
	if !stanza.IsSaslChallenge(challengeResp) {
		return entity.NewAuthError("sasl SCRAM-SHA-1 challenge not received", nil)
	}
	challenge := stanza.ExtractSaslChallenge(challengeResp)
	finalMsg, err := client.HandleChallenge(challenge)
	if err != nil {
		return entity.NewAuthError("scram challenge handling failed", err)
	}
	if _, err := conn.Write([]byte(stanza.BuildSaslResponse(finalMsg))); err != nil {
		return entity.NewTransientError("write sasl scram response", err)
	}
	finalResp, err := readUntil(conn, ">", 15*time.Second)
	if err != nil {
		return entity.NewTransientError("read sasl scram final response", err)
	}
	if !stanza.IsSaslSuccess(finalResp) {
		return entity.NewAuthError("sasl SCRAM-SHA-1 authentication failed", nil)
	}
	return nil
}

func indexByte(s string, b byte) int {
	for i := 0; i < len(s); i++ {
		if s[i] == b {
			return i
		}
	}
	return -1
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
