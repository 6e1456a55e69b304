// Package xmpp provides the two connection variants (component and
// client) that negotiate a stream, authenticate, and run the
// reader/writer event loop described by the agent's connection layer.
package xmpp

import "github.com/fluux-agent/gateway/internal/domain/entity"

// Event is a tagged value delivered from the connection's reader goroutine
// to the agent runtime.
type Event interface {
	xmppEvent()
}

type ConnectedEvent struct{}

func (ConnectedEvent) xmppEvent() {}

type MessageEvent struct {
	Message entity.InboundMessage
}

func (MessageEvent) xmppEvent() {}

type PresenceEvent struct {
	Presence entity.InboundPresence
}

func (PresenceEvent) xmppEvent() {}

type ReactionEvent struct {
	Reaction entity.InboundReaction
}

func (ReactionEvent) xmppEvent() {}

type StreamErrorEvent struct {
	Condition string
}

func (StreamErrorEvent) xmppEvent() {}

type ErrorEvent struct {
	Err error
}

func (ErrorEvent) xmppEvent() {}

// Command is a tagged value sent from the agent runtime to the
// connection's writer goroutine.
type Command interface {
	xmppCommand()
}

type SendMessageCmd struct {
	To   string
	Body string
	ID   string
}

func (SendMessageCmd) xmppCommand() {}

// ChatState names the two chat-state notifications this agent sends;
// "active"/"inactive"/"gone" are received but never originated here.
type ChatState int

const (
	ChatStateComposing ChatState = iota
	ChatStatePaused
)

type SendChatStateCmd struct {
	To      string
	State   ChatState
	MsgType string // "chat" | "groupchat"
}

func (SendChatStateCmd) xmppCommand() {}

type SendMucMessageCmd struct {
	To   string
	Body string
	ID   string
}

func (SendMucMessageCmd) xmppCommand() {}

type JoinMucCmd struct {
	Room string
	Nick string
}

func (JoinMucCmd) xmppCommand() {}

type SendRawCmd struct {
	Raw string
}

func (SendRawCmd) xmppCommand() {}

// PingCmd requests the single whitespace keepalive byte (0x20) be written
// directly to the socket, bypassing the XML encoder entirely.
type PingCmd struct{}

func (PingCmd) xmppCommand() {}
