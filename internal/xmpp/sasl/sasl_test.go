package sasl

import (
	"encoding/base64"
	"strings"
	"testing"
)

// TestScramClientProofRFC5802Vector reproduces the RFC 5802 style test
// vector used by the original implementation: username "user", password
// "pencil", salt "QSXCR+Q6sek8bf92", i=4096, client nonce
// "fyko+d2lbbFgONRv9qkxdawL". The expected ClientProof is
// "v0X8v3Bz2T0CJGbJQyF0X+HI4Ts=".
func TestScramClientProofRFC5802Vector(t *testing.T) {
	c := &ScramClient{
		username:    "user",
		password:    "pencil",
		clientNonce: "fyko+d2lbbFgONRv9qkxdawL",
	}
	c.clientFirstBare = "n=" + c.username + ",r=" + c.clientNonce

	serverNonce := "fyko+d2lbbFgONRv9qkxdawL3rfcNHYJY1ZVvWVs7j"
	serverFirst := "r=" + serverNonce + ",s=QSXCR+Q6sek8bf92,i=4096"

	challengeB64 := base64.StdEncoding.EncodeToString([]byte(serverFirst))
	finalB64, err := c.HandleChallenge(challengeB64)
	if err != nil {
		t.Fatalf("HandleChallenge: %v", err)
	}

	finalDecoded, err := base64.StdEncoding.DecodeString(finalB64)
	if err != nil {
		t.Fatalf("decode final: %v", err)
	}

	idx := strings.Index(string(finalDecoded), "p=")
	if idx < 0 {
		t.Fatalf("no proof field in %q", finalDecoded)
	}
	proof := string(finalDecoded)[idx+2:]
	want := "v0X8v3Bz2T0CJGbJQyF0X+HI4Ts="
	if proof != want {
		t.Fatalf("ClientProof = %q, want %q", proof, want)
	}
}

func TestPlainInitialMessageRoundTrips(t *testing.T) {
	msg := PlainInitialMessage("alice", "s3cr3t")
	decoded, err := base64.StdEncoding.DecodeString(msg)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := "\x00alice\x00s3cr3t"
	if string(decoded) != want {
		t.Fatalf("decoded = %q, want %q", decoded, want)
	}
}

func TestHandleChallengeRejectsBadNoncePrefix(t *testing.T) {
	c := &ScramClient{username: "user", password: "pencil", clientNonce: "abc"}
	c.clientFirstBare = "n=user,r=abc"
	serverFirst := "r=doesnotmatch,s=QSXCR+Q6sek8bf92,i=4096"
	challengeB64 := base64.StdEncoding.EncodeToString([]byte(serverFirst))
	if _, err := c.HandleChallenge(challengeB64); err == nil {
		t.Fatalf("expected error for mismatched server nonce prefix")
	}
}
