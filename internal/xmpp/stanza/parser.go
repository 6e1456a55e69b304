package stanza

import (
	"encoding/xml"
	"strings"

	"github.com/fluux-agent/gateway/internal/domain/entity"
)

// parserState tracks whether the parser is between top-level stanzas or
// inside one being assembled.
type parserState int

const (
	stateIdle parserState = iota
	stateInStanza
)

// childElement is one XML element nested inside a stanza under assembly.
type childElement struct {
	name     string
	xmlns    string
	text     string
	attrs    map[string]string
	children []*childElement
}

func (c *childElement) findChild(name string) *childElement {
	for _, ch := range c.children {
		if ch.name == name {
			return ch
		}
	}
	return nil
}

func (c *childElement) findChildrenNS(name, ns string) []*childElement {
	var out []*childElement
	for _, ch := range c.children {
		if ch.name == name && ch.xmlns == ns {
			out = append(out, ch)
		}
	}
	return out
}

func (c *childElement) hasChildWithName(names ...string) bool {
	for _, ch := range c.children {
		for _, n := range names {
			if ch.name == n {
				return true
			}
		}
	}
	return false
}

// Stanza is one fully-assembled top-level event from the XML stream:
// a parsed Message/Presence stanza, a stream-error condition, a
// stream-level open/close marker, or an unhandled/ignored element.
type Stanza struct {
	Message     *entity.InboundMessage
	Presence    *entity.InboundPresence
	Reaction    *entity.InboundReaction
	StreamError *entity.StreamError
	StreamLevel bool
	Ignored     bool
}

// Parser is an incremental stanza assembler fed one xml.Token at a time.
// It is not safe for concurrent use.
type Parser struct {
	depth       int
	streamDepth int
	state       parserState

	rootName  string
	rootAttrs map[string]string
	rootText  strings.Builder

	children   []*childElement
	childStack []*childElement
}

// NewParser constructs a Parser with no stream yet observed.
func NewParser() *Parser {
	return &Parser{streamDepth: -1}
}

// Feed advances the state machine by one token. It returns ok=true when a
// token produced a completed Stanza (a finalized top-level stanza or a
// stream-level open/close marker); ok=false means the token was consumed
// with no stanza yet to report (e.g. mid-stanza child element).
func (p *Parser) Feed(tok xml.Token) (Stanza, bool) {
	switch t := tok.(type) {
	case xml.StartElement:
		return p.feedStart(t)
	case xml.EndElement:
		return p.feedEnd(t)
	case xml.CharData:
		p.feedText(string(t))
		return Stanza{}, false
	default:
		// Comments, ProcInst, Directive: ignored.
		return Stanza{}, false
	}
}

func (p *Parser) feedStart(t xml.StartElement) (Stanza, bool) {
	local := t.Name.Local

	if p.state == stateIdle && p.depth == 0 && isStreamElement(t) {
		p.streamDepth = p.depth
		return Stanza{StreamLevel: true}, true
	}

	p.depth++

	if p.state == stateIdle && p.depth == p.streamDepth+1 {
		p.state = stateInStanza
		p.rootName = local
		p.rootAttrs = attrMap(t.Attr)
		p.rootText.Reset()
		p.children = nil
		p.childStack = nil
		return Stanza{}, false
	}

	if p.state == stateInStanza {
		child := &childElement{name: local, xmlns: attrValue(t.Attr, "xmlns"), attrs: attrMap(t.Attr)}
		p.childStack = append(p.childStack, child)
		return Stanza{}, false
	}

	return Stanza{}, false
}

func (p *Parser) feedEnd(t xml.EndElement) (Stanza, bool) {
	if t.Name.Local == "stream" {
		p.depth = 0
		p.streamDepth = 0
		p.state = stateIdle
		return Stanza{StreamLevel: true}, true
	}

	p.depth--

	if p.state != stateInStanza {
		return Stanza{}, false
	}

	if p.depth == p.streamDepth {
		p.state = stateIdle
		return p.finalizeStanza(), true
	}

	if len(p.childStack) > 0 {
		top := p.childStack[len(p.childStack)-1]
		p.childStack = p.childStack[:len(p.childStack)-1]
		p.attach(top)
	}
	return Stanza{}, false
}

func (p *Parser) feedText(text string) {
	if p.state != stateInStanza {
		return
	}
	if len(p.childStack) > 0 {
		top := p.childStack[len(p.childStack)-1]
		top.text += text
	} else {
		p.rootText.WriteString(text)
	}
}

func (p *Parser) attach(child *childElement) {
	if len(p.childStack) > 0 {
		parent := p.childStack[len(p.childStack)-1]
		parent.children = append(parent.children, child)
	} else {
		p.children = append(p.children, child)
	}
}

func (p *Parser) root() *childElement {
	return &childElement{name: p.rootName, children: p.children, text: p.rootText.String()}
}

func (p *Parser) finalizeStanza() Stanza {
	switch p.rootName {
	case "message":
		return p.finalizeMessage()
	case "presence":
		return p.finalizePresence()
	case "error":
		return p.finalizeStreamError()
	default:
		return Stanza{Ignored: true}
	}
}

func (p *Parser) finalizeMessage() Stanza {
	from := p.rootAttrs["from"]
	if from == "" {
		return Stanza{Ignored: true}
	}
	to := p.rootAttrs["to"]
	id := p.rootAttrs["id"]
	msgType := entity.ParseMessageType(p.rootAttrs["type"])

	root := p.root()

	if root.hasChildWithName("composing", "paused", "active", "inactive", "gone") {
		if b := root.findChild("body"); b == nil || strings.TrimSpace(b.text) == "" {
			return Stanza{Ignored: true}
		}
	}

	body := ""
	if b := root.findChild("body"); b != nil {
		body = strings.TrimSpace(b.text)
	}

	var oob []entity.OobData
	for _, x := range root.findChildrenNS("x", "jabber:x:oob") {
		url := ""
		if u := x.findChild("url"); u != nil {
			url = strings.TrimSpace(u.text)
		}
		if url == "" {
			continue
		}
		desc := ""
		if d := x.findChild("desc"); d != nil {
			desc = strings.TrimSpace(d.text)
		}
		oob = append(oob, entity.OobData{URL: url, Desc: desc})
	}

	for _, o := range oob {
		if body == o.URL {
			body = ""
			break
		}
	}

	if rs := root.findChildrenNS("reactions", "urn:xmpp:reactions:0"); len(rs) > 0 {
		r := rs[0]
		var emojis []string
		for _, e := range r.children {
			if e.name == "reaction" {
				emojis = append(emojis, strings.TrimSpace(e.text))
			}
		}
		return Stanza{Reaction: &entity.InboundReaction{
			From: from, To: to, MessageID: r.attrs["id"],
			Emojis: emojis, IsMuc: msgType == entity.MessageTypeGroupChat,
		}}
	}

	if body == "" && len(oob) == 0 {
		return Stanza{Ignored: true}
	}

	return Stanza{Message: &entity.InboundMessage{
		From: from, To: to, Body: body, ID: id, MessageType: msgType, Oob: oob,
	}}
}

func (p *Parser) finalizePresence() Stanza {
	from := p.rootAttrs["from"]
	if from == "" {
		return Stanza{Ignored: true}
	}
	kind := entity.ParsePresenceKind(p.rootAttrs["type"])
	return Stanza{Presence: &entity.InboundPresence{From: from, Kind: kind}}
}

// streamErrorConditions is the RFC 6120 §4.9.3 stream-error condition set.
var streamErrorConditions = []string{
	"bad-format", "bad-namespace-prefix", "conflict", "connection-timeout",
	"host-gone", "host-unknown", "improper-addressing", "internal-server-error",
	"invalid-from", "invalid-namespace", "invalid-xml", "not-authorized",
	"not-well-formed", "policy-violation", "remote-connection-failed",
	"reset", "resource-constraint", "restricted-xml", "see-other-host",
	"system-shutdown", "undefined-condition", "unsupported-encoding",
	"unsupported-feature", "unsupported-stanza-type", "unsupported-version",
}

func (p *Parser) finalizeStreamError() Stanza {
	root := p.root()
	for _, cond := range streamErrorConditions {
		if root.findChild(cond) != nil {
			return Stanza{StreamError: &entity.StreamError{Condition: cond}}
		}
	}
	return Stanza{StreamError: &entity.StreamError{Condition: "unknown"}}
}

func isStreamElement(t xml.StartElement) bool {
	return t.Name.Local == "stream"
}

func attrMap(attrs []xml.Attr) map[string]string {
	m := make(map[string]string, len(attrs))
	for _, a := range attrs {
		m[a.Name.Local] = a.Value
	}
	return m
}

func attrValue(attrs []xml.Attr, name string) string {
	for _, a := range attrs {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}
