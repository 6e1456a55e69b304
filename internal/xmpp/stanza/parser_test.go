package stanza

import (
	"bytes"
	"encoding/xml"
	"testing"
)

func parseAll(t *testing.T, data string) []Stanza {
	t.Helper()
	dec := xml.NewDecoder(bytes.NewReader([]byte(data)))
	p := NewParser()
	var out []Stanza
	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		if s, ok := p.Feed(tok); ok {
			out = append(out, s)
		}
	}
	return out
}

func TestParserMessage(t *testing.T) {
	data := "<stream:stream xmlns:stream='http://etherx.jabber.org/streams'>" +
		"<message from='alice@example.com/phone' to='bob@example.com' id='1'><body>hi</body></message>" +
		"</stream:stream>"
	stanzas := parseAll(t, data)
	var found bool
	for _, s := range stanzas {
		if s.Message != nil {
			found = true
			if s.Message.Body != "hi" {
				t.Fatalf("body = %q, want hi", s.Message.Body)
			}
			if s.Message.From != "alice@example.com/phone" {
				t.Fatalf("from = %q", s.Message.From)
			}
		}
	}
	if !found {
		t.Fatalf("no message stanza parsed: %+v", stanzas)
	}
}

func TestParserChatStateOnlyIgnored(t *testing.T) {
	data := "<stream:stream xmlns:stream='http://etherx.jabber.org/streams'>" +
		"<message from='a@b.com' to='c@d.com'><composing xmlns='http://jabber.org/protocol/chatstates'/></message>" +
		"</stream:stream>"
	stanzas := parseAll(t, data)
	for _, s := range stanzas {
		if s.Message != nil {
			t.Fatalf("expected chat-state-only message to be ignored, got %+v", s.Message)
		}
	}
}

func TestParserOobMessage(t *testing.T) {
	data := "<stream:stream xmlns:stream='http://etherx.jabber.org/streams'>" +
		"<message from='a@b.com'><body>http://x/file.png</body>" +
		"<x xmlns='jabber:x:oob'><url>http://x/file.png</url></x></message>" +
		"</stream:stream>"
	stanzas := parseAll(t, data)
	var msg = false
	for _, s := range stanzas {
		if s.Message != nil {
			msg = true
			if s.Message.Body != "" {
				t.Fatalf("body should be cleared when it equals the oob url, got %q", s.Message.Body)
			}
			if len(s.Message.Oob) != 1 || s.Message.Oob[0].URL != "http://x/file.png" {
				t.Fatalf("oob = %+v", s.Message.Oob)
			}
		}
	}
	if !msg {
		t.Fatalf("no message parsed")
	}
}

func TestParserPresenceSubscribe(t *testing.T) {
	data := "<stream:stream xmlns:stream='http://etherx.jabber.org/streams'>" +
		"<presence from='a@b.com' type='subscribe'/>" +
		"</stream:stream>"
	stanzas := parseAll(t, data)
	var found bool
	for _, s := range stanzas {
		if s.Presence != nil {
			found = true
		}
	}
	if !found {
		t.Fatalf("no presence parsed")
	}
}

func TestParserStreamErrorConflict(t *testing.T) {
	data := "<stream:stream xmlns:stream='http://etherx.jabber.org/streams'>" +
		"<stream:error><conflict xmlns='urn:ietf:params:xml:ns:xmpp-streams'/></stream:error>" +
		"</stream:stream>"
	stanzas := parseAll(t, data)
	var found bool
	for _, s := range stanzas {
		if s.StreamError != nil {
			found = true
			if s.StreamError.Condition != "conflict" {
				t.Fatalf("condition = %q, want conflict", s.StreamError.Condition)
			}
		}
	}
	if !found {
		t.Fatalf("no stream error parsed")
	}
}

func TestBuildMessageEscapesBody(t *testing.T) {
	out := BuildMessage("", "to@x.com", "<tag>&\"'", "")
	if !bytes.Contains([]byte(out), []byte("&lt;tag&gt;&amp;&quot;&apos;")) {
		t.Fatalf("body not escaped: %s", out)
	}
}

func TestBuildMucMessageNoID(t *testing.T) {
	out := BuildMucMessage("room@conf/nick", "room@conf", "hi")
	if bytes.Contains([]byte(out), []byte("id=")) {
		t.Fatalf("muc message should carry no id attribute: %s", out)
	}
}

func TestExtractRosterJidsSkipsRemove(t *testing.T) {
	data := "<iq><query xmlns='jabber:iq:roster'>" +
		"<item jid='a@b.com'/><item jid='c@d.com' subscription='remove'/>" +
		"</query></iq>"
	jids := ExtractRosterJids(data)
	if len(jids) != 1 || jids[0] != "a@b.com" {
		t.Fatalf("jids = %v", jids)
	}
}

func TestExtractBoundJid(t *testing.T) {
	data := "<iq type='result' id='bind1'><bind xmlns='urn:ietf:params:xml:ns:xmpp-bind'>" +
		"<jid>user@example.com/fluux-agent</jid></bind></iq>"
	jid := ExtractBoundJid(data)
	if jid != "user@example.com/fluux-agent" {
		t.Fatalf("jid = %q", jid)
	}
}
