// Package stanza builds and parses the XMPP stanzas this agent needs:
// stream negotiation, SASL, resource binding, roster, presence, chat
// messages, MUC, and chat states. Builders are pure functions returning the
// raw XML string to write to the socket; Parser turns a token stream back
// into typed events.
package stanza

import "strings"

// escape narrows Go's XML escaping to exactly the 5 entities XMPP stanzas
// require; stdlib has no single function that escapes only these without
// also escaping the higher-level HTML set, so this is a small hand-ported
// table matching quick_xml's escape() used by the original implementation.
func escape(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '&':
			b.WriteString("&amp;")
		case '<':
			b.WriteString("&lt;")
		case '>':
			b.WriteString("&gt;")
		case '\'':
			b.WriteString("&apos;")
		case '"':
			b.WriteString("&quot;")
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func attr(name, value string) string {
	if value == "" {
		return ""
	}
	return " " + name + "='" + escape(value) + "'"
}

// BuildMessage builds a 1:1 chat <message/> with an active chat-state hint.
func BuildMessage(from, to, body, id string) string {
	return "<message" + attr("from", from) + " to='" + escape(to) + "' type='chat'" + attr("id", id) +
		"><body>" + escape(body) + "</body><active xmlns='http://jabber.org/protocol/chatstates'/></message>"
}

// BuildMucMessage builds a MUC groupchat <message/>. Unlike BuildMessage it
// carries no id attribute, matching the MUC reflection semantics where the
// server assigns delivery IDs.
func BuildMucMessage(from, to, body string) string {
	return "<message" + attr("from", from) + " to='" + escape(to) + "' type='groupchat'>" +
		"<body>" + escape(body) + "</body><active xmlns='http://jabber.org/protocol/chatstates'/></message>"
}

// BuildChatStateComposing builds a standalone chat-state notification.
func BuildChatStateComposing(from, to, msgType string) string {
	return chatState(from, to, msgType, "composing")
}

// BuildChatStatePaused builds a standalone chat-state notification.
func BuildChatStatePaused(from, to, msgType string) string {
	return chatState(from, to, msgType, "paused")
}

func chatState(from, to, msgType, state string) string {
	return "<message" + attr("from", from) + " to='" + escape(to) + "' type='" + escape(msgType) + "'>" +
		"<" + state + " xmlns='http://jabber.org/protocol/chatstates'/></message>"
}

// BuildStreamOpen builds the XEP-0114 component stream header.
func BuildStreamOpen(domain string) string {
	return "<?xml version='1.0'?><stream:stream xmlns='jabber:component:accept' " +
		"xmlns:stream='http://etherx.jabber.org/streams' to='" + escape(domain) + "'>"
}

// BuildClientStreamOpen builds the RFC 6120 client stream header.
func BuildClientStreamOpen(domain string) string {
	return "<?xml version='1.0'?><stream:stream xmlns='jabber:client' " +
		"xmlns:stream='http://etherx.jabber.org/streams' to='" + escape(domain) + "' version='1.0'>"
}

// BuildHandshake builds the XEP-0114 component handshake.
func BuildHandshake(hash string) string {
	return "<handshake>" + hash + "</handshake>"
}

// IsHandshakeSuccess reports whether data contains the server's empty
// <handshake/> acknowledgement.
func IsHandshakeSuccess(data string) bool {
	return strings.Contains(data, "<handshake/>") || strings.Contains(data, "<handshake></handshake>")
}

// BuildStartTLS builds the STARTTLS request.
func BuildStartTLS() string {
	return "<starttls xmlns='urn:ietf:params:xml:ns:xmpp-tls'/>"
}

// IsStartTLSProceed reports whether data is the server's <proceed/>.
func IsStartTLSProceed(data string) bool {
	return strings.Contains(data, "<proceed")
}

// HasStartTLS reports whether a <stream:features/> blob advertises STARTTLS.
func HasStartTLS(features string) bool {
	return strings.Contains(features, "starttls")
}

// BuildSaslAuthPlain builds a SASL PLAIN <auth/> element.
func BuildSaslAuthPlain(initialMessageB64 string) string {
	return "<auth xmlns='urn:ietf:params:xml:ns:xmpp-sasl' mechanism='PLAIN'>" + initialMessageB64 + "</auth>"
}

// BuildSaslAuthScramSha1 builds a SASL SCRAM-SHA-1 <auth/> element.
func BuildSaslAuthScramSha1(initialMessageB64 string) string {
	return "<auth xmlns='urn:ietf:params:xml:ns:xmpp-sasl' mechanism='SCRAM-SHA-1'>" + initialMessageB64 + "</auth>"
}

// BuildSaslResponse builds a SASL <response/> element carrying payload.
func BuildSaslResponse(payloadB64 string) string {
	return "<response xmlns='urn:ietf:params:xml:ns:xmpp-sasl'>" + payloadB64 + "</response>"
}

// IsSaslSuccess reports whether data contains a SASL <success/> element.
func IsSaslSuccess(data string) bool {
	return strings.Contains(data, "<success")
}

// IsSaslChallenge reports whether data contains a SASL <challenge/> element.
func IsSaslChallenge(data string) bool {
	return strings.Contains(data, "<challenge")
}

// ExtractSaslChallenge extracts the base64 payload of a <challenge/> element.
func ExtractSaslChallenge(data string) string {
	return extractElementText(data, "challenge")
}

// ExtractSaslMechanisms scans stream features for advertised SASL mechanisms.
func ExtractSaslMechanisms(data string) []string {
	var mechs []string
	rest := data
	for {
		start := strings.Index(rest, "<mechanism>")
		if start < 0 {
			break
		}
		rest = rest[start+len("<mechanism>"):]
		end := strings.Index(rest, "</mechanism>")
		if end < 0 {
			break
		}
		mechs = append(mechs, rest[:end])
		rest = rest[end+len("</mechanism>"):]
	}
	return mechs
}

// BuildBindRequest builds the resource-binding <iq/>.
func BuildBindRequest(resource string) string {
	return "<iq type='set' id='bind1'><bind xmlns='urn:ietf:params:xml:ns:xmpp-bind'>" +
		"<resource>" + escape(resource) + "</resource></bind></iq>"
}

// ExtractBoundJid extracts the full JID from a bind-response <iq/>.
func ExtractBoundJid(data string) string {
	return extractElementText(data, "jid")
}

// BuildInitialPresence builds a bare <presence/>.
func BuildInitialPresence() string {
	return "<presence/>"
}

// BuildSubscribe builds a subscription request.
func BuildSubscribe(to string) string {
	return "<presence to='" + escape(to) + "' type='subscribe'/>"
}

// BuildSubscribed builds a subscription acceptance.
func BuildSubscribed(to string) string {
	return "<presence to='" + escape(to) + "' type='subscribed'/>"
}

// BuildMucJoin builds a MUC join presence with no history replay.
func BuildMucJoin(roomJid, nick, from string) string {
	return "<presence" + attr("from", from) + " to='" + escape(roomJid) + "/" + escape(nick) + "'>" +
		"<x xmlns='http://jabber.org/protocol/muc'><history maxstanzas='0'/></x></presence>"
}

// BuildRosterGet builds a roster-fetch <iq/>.
func BuildRosterGet() string {
	return "<iq type='get' id='roster1'><query xmlns='jabber:iq:roster'/></iq>"
}

// ExtractRosterJids scans a roster <query/> result for non-removed item JIDs.
func ExtractRosterJids(data string) []string {
	var jids []string
	rest := data
	for {
		start := strings.Index(rest, "<item ")
		if start < 0 {
			break
		}
		end := strings.IndexByte(rest[start:], '>')
		if end < 0 {
			break
		}
		tag := rest[start : start+end]
		rest = rest[start+end+1:]
		if strings.Contains(tag, "subscription='remove'") || strings.Contains(tag, "subscription=\"remove\"") {
			continue
		}
		if jid := extractAttrFromTag(tag, "jid"); jid != "" {
			jids = append(jids, jid)
		}
	}
	return jids
}

// ExtractStreamId extracts the 'id' attribute from the opening <stream:stream/>.
func ExtractStreamId(data string) string {
	return extractAttr(data, "id")
}

// BareJid strips the resource part off a JID.
func BareJid(jid string) string {
	if idx := strings.IndexByte(jid, '/'); idx >= 0 {
		return jid[:idx]
	}
	return jid
}

// extractAttr scans the first start tag in xml for the named attribute.
func extractAttr(xml, name string) string {
	end := strings.IndexByte(xml, '>')
	if end < 0 {
		return ""
	}
	return extractAttrFromTag(xml[:end], name)
}

func extractAttrFromTag(tag, name string) string {
	needleSingle := name + "='"
	needleDouble := name + "=\""
	if idx := strings.Index(tag, needleSingle); idx >= 0 {
		rest := tag[idx+len(needleSingle):]
		if end := strings.IndexByte(rest, '\''); end >= 0 {
			return rest[:end]
		}
	}
	if idx := strings.Index(tag, needleDouble); idx >= 0 {
		rest := tag[idx+len(needleDouble):]
		if end := strings.IndexByte(rest, '"'); end >= 0 {
			return rest[:end]
		}
	}
	return ""
}

// extractElementText scans xml for the first <tag>...</tag> (or local-name
// match on a namespaced tag) and returns its text content.
func extractElementText(xml, tag string) string {
	openers := []string{"<" + tag + ">", "<" + tag + " "}
	for _, open := range openers {
		idx := strings.Index(xml, open)
		if idx < 0 {
			continue
		}
		rest := xml[idx:]
		gt := strings.IndexByte(rest, '>')
		if gt < 0 {
			continue
		}
		rest = rest[gt+1:]
		end := strings.Index(rest, "</"+tag+">")
		if end < 0 {
			continue
		}
		return rest[:end]
	}
	return ""
}
