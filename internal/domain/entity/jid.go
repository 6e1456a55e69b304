package entity

import "strings"

// BareJID is a JID with no resource part (user@domain).
type BareJID string

// FullJID is a JID including its resource part (user@domain/resource).
type FullJID string

// Bare strips the resource part off a full JID, returning the bare JID.
// "alice@example.com/phone" -> "alice@example.com". A JID with no
// resource part is returned unchanged.
func Bare(jid string) BareJID {
	if idx := strings.IndexByte(jid, '/'); idx >= 0 {
		return BareJID(jid[:idx])
	}
	return BareJID(jid)
}

// Domain returns the domain part of a bare or full JID.
func Domain(jid string) string {
	bare := string(Bare(jid))
	if idx := strings.IndexByte(bare, '@'); idx >= 0 {
		return bare[idx+1:]
	}
	return bare
}

// Resource returns the resource part of a full JID, or "" if there is none.
func Resource(jid string) string {
	if idx := strings.IndexByte(jid, '/'); idx >= 0 {
		return jid[idx+1:]
	}
	return ""
}
