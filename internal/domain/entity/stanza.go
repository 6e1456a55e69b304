package entity

// MessageType distinguishes 1:1 chat messages from MUC groupchat messages.
type MessageType int

const (
	MessageTypeChat MessageType = iota
	MessageTypeGroupChat
)

func (t MessageType) String() string {
	if t == MessageTypeGroupChat {
		return "groupchat"
	}
	return "chat"
}

// ParseMessageType maps a stanza 'type' attribute onto MessageType. Any
// value other than "groupchat" is treated as chat, matching the XMPP
// convention that an absent/unknown type defaults to one-to-one chat.
func ParseMessageType(attr string) MessageType {
	if attr == "groupchat" {
		return MessageTypeGroupChat
	}
	return MessageTypeChat
}

// OobData is a XEP-0066 out-of-band data element attached to a message,
// typically a file URL shared via HTTP Upload.
type OobData struct {
	URL  string
	Desc string
}

// InboundMessage is a parsed incoming <message/> stanza.
type InboundMessage struct {
	From        string
	To          string
	Body        string
	ID          string
	MessageType MessageType
	Oob         []OobData
}

// PresenceKind enumerates the XMPP presence subtypes this agent cares about.
type PresenceKind int

const (
	PresenceAvailable PresenceKind = iota
	PresenceSubscribe
	PresenceSubscribed
	PresenceUnsubscribe
	PresenceUnsubscribed
	PresenceUnavailable
)

// ParsePresenceKind maps a presence stanza's 'type' attribute onto PresenceKind.
func ParsePresenceKind(attr string) PresenceKind {
	switch attr {
	case "subscribe":
		return PresenceSubscribe
	case "subscribed":
		return PresenceSubscribed
	case "unsubscribe":
		return PresenceUnsubscribe
	case "unsubscribed":
		return PresenceUnsubscribed
	case "unavailable":
		return PresenceUnavailable
	default:
		return PresenceAvailable
	}
}

// InboundPresence is a parsed incoming <presence/> stanza.
type InboundPresence struct {
	From string
	Kind PresenceKind
}

// InboundReaction is a parsed urn:xmpp:reactions:0 reaction attached to a message.
type InboundReaction struct {
	From      string
	To        string
	MessageID string
	Emojis    []string
	IsMuc     bool
	SenderNick string
}

// StreamError carries the <stream:error/> condition name (e.g. "conflict",
// "system-shutdown"); see RFC 6120 §4.9.3 for the full condition set.
type StreamError struct {
	Condition string
}
