package rpc

import "testing"

func TestJSONCodecRoundTrip(t *testing.T) {
	c := jsonCodec{}
	req := &SkillRequest{Name: "url_fetch", Input: []byte(`{"url":"https://example.com"}`), Jid: "user@example.com", BasePath: "/data"}

	data, err := c.Marshal(req)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var got SkillRequest
	if err := c.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Name != req.Name || got.Jid != req.Jid || got.BasePath != req.BasePath {
		t.Fatalf("got = %+v, want %+v", got, req)
	}
}

func TestJSONCodecName(t *testing.T) {
	c := jsonCodec{}
	if c.Name() != "json" {
		t.Fatalf("name = %q, want json", c.Name())
	}
}

func TestJSONCodecUnmarshalError(t *testing.T) {
	c := jsonCodec{}
	var got SkillRequest
	if err := c.Unmarshal([]byte("not json"), &got); err == nil {
		t.Fatal("expected error for invalid json")
	}
}
