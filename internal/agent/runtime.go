// Package agent implements the runtime event loop that bridges XMPP
// stanzas to the LLM-backed agentic loop: per-message allowlisting, slash
// commands, room mention detection, attachment handling, and replying.
package agent

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fluux-agent/gateway/internal/config"
	"github.com/fluux-agent/gateway/internal/domain/entity"
	"github.com/fluux-agent/gateway/internal/files"
	"github.com/fluux-agent/gateway/internal/infrastructure/monitoring"
	"github.com/fluux-agent/gateway/internal/llm"
	"github.com/fluux-agent/gateway/internal/memory"
	"github.com/fluux-agent/gateway/internal/skill"
	"github.com/fluux-agent/gateway/internal/telemetry"
	"github.com/fluux-agent/gateway/internal/xmpp"
	"github.com/fluux-agent/gateway/internal/xmpp/stanza"
	"github.com/fluux-agent/gateway/pkg/safego"
	"go.uber.org/zap"
)

// MaxToolRounds bounds the agentic tool-use loop; once reached, the
// runtime forces one final call with tools disabled to get a text answer.
const MaxToolRounds = 10

// HistoryTailLength is how many prior messages are sent alongside a new
// inbound message when running the agentic loop.
const HistoryTailLength = 20

// Runtime owns one live connection's worth of conversational state. A new
// Runtime is not required per reconnect — Attach rebinds it to the fresh
// event/command channels the supervisor's session adapter produces.
type Runtime struct {
	cfg      *config.Config
	logger   *zap.Logger
	provider llm.Provider
	skills   *skill.Registry
	memory   *memory.Store
	files    *files.Downloader
	telemetry *telemetry.Broadcaster // nil unless the operator WebSocket feed is enabled
	monitor  *monitoring.Monitor

	rooms map[string]string // bare room JID -> configured nick

	startedAt time.Time

	mu       sync.Mutex
	commands chan<- xmpp.Command
}

type Deps struct {
	Config   *config.Config
	Logger   *zap.Logger
	Provider llm.Provider
	Skills   *skill.Registry
	Memory   *memory.Store
	Files    *files.Downloader
	Telemetry *telemetry.Broadcaster // optional; nil disables admin event publishing
	Monitor  *monitoring.Monitor
}

func New(d Deps) *Runtime {
	rooms := make(map[string]string, len(d.Config.Rooms))
	for _, r := range d.Config.Rooms {
		rooms[string(entity.Bare(r.Jid))] = r.Nick
	}
	mon := d.Monitor
	if mon == nil {
		mon = monitoring.NewMonitor(d.Logger)
	}
	return &Runtime{
		cfg:       d.Config,
		logger:    d.Logger,
		provider:  d.Provider,
		skills:    d.Skills,
		memory:    d.Memory,
		files:     d.Files,
		telemetry: d.Telemetry,
		monitor:   mon,
		rooms:     rooms,
		startedAt: time.Now(),
	}
}

// Monitor exposes the runtime's metrics collector for the operator HTTP
// surface's /status and /metrics endpoints.
func (r *Runtime) Monitor() *monitoring.Monitor { return r.monitor }

// emit publishes a telemetry event if an admin broadcaster is attached;
// it is a no-op otherwise so the hot path never allocates for a disabled
// operator surface.
func (r *Runtime) emit(kind telemetry.Kind, jid, tool, detail string) {
	if r.telemetry == nil {
		return
	}
	r.telemetry.Publish(telemetry.Event{
		Kind:     kind,
		Jid:      jid,
		Tool:     tool,
		Detail:   detail,
		AtUnixMs: time.Now().UnixMilli(),
	})
}

// Attach binds the runtime to a freshly connected session's channels and
// drives its event loop until the session ends (ctx cancellation,
// channel closure, or a stream-level disconnect observed by the caller).
// The agent keepalive ticker lives here so it restarts cleanly on every
// reconnect, matching the per-connection-lifetime task described by the
// connection layer.
func (r *Runtime) Attach(ctx context.Context, events <-chan xmpp.Event, commands chan<- xmpp.Command) {
	r.mu.Lock()
	r.commands = commands
	r.mu.Unlock()

	var pingTicker *time.Ticker
	var pingCh <-chan time.Time
	if r.cfg.Keepalive.Enabled {
		pingTicker = time.NewTicker(r.cfg.Keepalive.PingInterval())
		defer pingTicker.Stop()
		pingCh = pingTicker.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			r.handleEvent(ctx, ev)
		case <-pingCh:
			commands <- xmpp.PingCmd{}
		}
	}
}

func (r *Runtime) send(cmd xmpp.Command) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.commands == nil {
		return
	}
	r.commands <- cmd
}

func (r *Runtime) handleEvent(ctx context.Context, ev xmpp.Event) {
	switch e := ev.(type) {
	case xmpp.ConnectedEvent:
		r.logger.Info("xmpp session established")
		r.emit(telemetry.KindConnected, "", "", "")
		r.joinConfiguredRooms()
	case xmpp.MessageEvent:
		r.emit(telemetry.KindMessageIn, e.Message.From, "", "")
		r.handleMessage(ctx, e.Message)
	case xmpp.PresenceEvent:
		r.handlePresence(e.Presence)
	case xmpp.ReactionEvent:
		r.handleReaction(ctx, e.Reaction)
	case xmpp.StreamErrorEvent:
		r.logger.Warn("stream error", zap.String("condition", e.Condition))
	case xmpp.ErrorEvent:
		r.logger.Warn("connection error", zap.Error(e.Err))
	}
}

// joinConfiguredRooms sends a JoinMucCmd for every room in cfg.Rooms once
// the stream is established, so MUC membership is re-established after
// every reconnect.
func (r *Runtime) joinConfiguredRooms() {
	for _, room := range r.cfg.Rooms {
		r.logger.Info("joining room", zap.String("room", room.Jid), zap.String("nick", room.Nick))
		r.send(xmpp.JoinMucCmd{Room: room.Jid, Nick: room.Nick})
		r.monitor.IncRoomsJoined()
	}
}

// handlePresence auto-approves subscription requests from allow-listed
// JIDs/domains by replying with a <presence type='subscribed'/>; presence
// from anyone else, and every other presence kind, is observed only.
func (r *Runtime) handlePresence(p entity.InboundPresence) {
	if p.Kind != entity.PresenceSubscribe {
		return
	}
	if !r.isAllowed(p.From) {
		r.logger.Info("ignoring subscription request from non-allowed JID", zap.String("from", p.From))
		return
	}
	r.logger.Info("auto-approving subscription request", zap.String("from", p.From))
	r.send(xmpp.SendRawCmd{Raw: stanza.BuildSubscribed(p.From)})
}

func (r *Runtime) isAllowed(jid string) bool {
	bare := string(entity.Bare(jid))
	domain := entity.Domain(jid)
	for _, a := range r.cfg.Agent.AllowedJids {
		if a == "*" || a == bare {
			return true
		}
	}
	for _, d := range r.cfg.Agent.AllowedDomains {
		if d == "*" || d == domain {
			return true
		}
	}
	return false
}

func (r *Runtime) handleMessage(ctx context.Context, msg entity.InboundMessage) {
	if msg.MessageType == entity.MessageTypeGroupChat {
		r.handleGroupchatMessage(ctx, msg)
		return
	}

	if !r.isAllowed(msg.From) {
		return
	}

	body := strings.TrimSpace(msg.Body)
	if strings.HasPrefix(body, "/") {
		reply := r.runSlashCommand(string(entity.Bare(msg.From)), body)
		r.send(xmpp.SendMessageCmd{To: msg.From, Body: reply})
		return
	}

	if len(msg.Oob) > 0 {
		r.send(xmpp.SendChatStateCmd{To: msg.From, State: xmpp.ChatStateComposing, MsgType: "chat"})
		safego.Go(r.logger, "attachment-task", func() {
			r.runAttachmentTask(context.Background(), msg)
		})
		return
	}

	r.monitor.IncRequestTotal()
	start := time.Now()
	r.send(xmpp.SendChatStateCmd{To: msg.From, State: xmpp.ChatStateComposing, MsgType: "chat"})
	bare := string(entity.Bare(msg.From))
	r.monitor.IncJidMessage(bare)
	reply, err := r.converse(ctx, bare, body, nil, true)
	if err != nil {
		r.monitor.IncRequestFailed()
		r.monitor.IncError()
		r.logger.Warn("agentic loop failed", zap.Error(err))
		r.send(xmpp.SendChatStateCmd{To: msg.From, State: xmpp.ChatStatePaused, MsgType: "chat"})
		r.send(xmpp.SendMessageCmd{To: msg.From, Body: fmt.Sprintf("Sorry, something went wrong: %v", err)})
		return
	}
	r.monitor.IncRequestSuccess()
	r.monitor.RecordRequestLatency(time.Since(start))
	r.emit(telemetry.KindMessageOut, msg.From, "", "")
	r.send(xmpp.SendMessageCmd{To: msg.From, Body: reply})
}

func (r *Runtime) handleGroupchatMessage(ctx context.Context, msg entity.InboundMessage) {
	roomBare := string(entity.Bare(msg.From))
	nick, ok := r.rooms[roomBare]
	if !ok {
		return
	}

	senderNick := entity.Resource(msg.From)
	if strings.EqualFold(senderNick, nick) {
		return
	}

	_ = r.memory.StoreMessage(roomBare, "user", msg.Body, msg.ID, senderNick+"@muc", nil, "")
	r.monitor.IncJidMessage(roomBare)

	mentioned, stripped := detectMention(msg.Body, nick)
	if !mentioned {
		return
	}

	r.send(xmpp.SendChatStateCmd{To: roomBare, State: xmpp.ChatStateComposing, MsgType: "groupchat"})
	reply, err := r.converse(ctx, roomBare, stripped, nil, false)
	if err != nil {
		r.logger.Warn("agentic loop failed for room", zap.String("room", roomBare), zap.Error(err))
		return
	}
	r.send(xmpp.SendMucMessageCmd{To: roomBare, Body: reply})
}

// detectMention reports whether nick is mentioned in body per the
// case-insensitive "@nick", "nick:", or "nick " rules, and returns body
// with the mention prefix stripped.
func detectMention(body, nick string) (bool, string) {
	lowerBody := strings.ToLower(body)
	lowerNick := strings.ToLower(nick)

	if strings.Contains(lowerBody, "@"+lowerNick) {
		if strings.HasPrefix(lowerBody, "@"+lowerNick) {
			rest := body[len(nick)+1:]
			if strings.HasPrefix(rest, ":") || strings.HasPrefix(rest, ",") {
				rest = rest[1:]
			}
			return true, strings.TrimSpace(rest)
		}
		return true, body
	}
	if strings.HasPrefix(lowerBody, lowerNick+":") {
		return true, strings.TrimSpace(body[len(nick)+1:])
	}
	if strings.HasPrefix(lowerBody, lowerNick+" ") {
		return true, strings.TrimSpace(body[len(nick):])
	}
	return false, body
}

func (r *Runtime) handleReaction(ctx context.Context, reaction entity.InboundReaction) {
	jid := reaction.From // the actual send target: room JID for MUC, full JID otherwise
	memJid := string(entity.Bare(reaction.From))
	if reaction.IsMuc {
		jid = memJid
		if _, ok := r.rooms[jid]; !ok {
			return
		}
	} else if !r.isAllowed(memJid) {
		return
	}

	emojiList := strings.Join(reaction.Emojis, "")
	_ = r.memory.StoreMessage(memJid, "user", "", reaction.MessageID, "", nil, emojiList)

	reply, err := r.converse(ctx, memJid, "", nil, false)
	if err != nil {
		r.logger.Warn("agentic loop failed for reaction", zap.Error(err))
		return
	}
	if reply == "" {
		return
	}
	if reaction.IsMuc {
		r.send(xmpp.SendMucMessageCmd{To: jid, Body: reply})
	} else {
		r.send(xmpp.SendMessageCmd{To: jid, Body: reply})
	}
}

// Uptime is exposed for /status.
func (r *Runtime) Uptime() time.Duration { return time.Since(r.startedAt) }
