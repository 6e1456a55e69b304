// Package sasl implements the two SASL mechanisms this agent speaks over
// an XMPP stream: PLAIN and SCRAM-SHA-1 (RFC 5802).
package sasl

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

// PlainInitialMessage builds the base64 SASL PLAIN initial response:
// \0username\0password.
func PlainInitialMessage(username, password string) string {
	raw := "\x00" + username + "\x00" + password
	return base64.StdEncoding.EncodeToString([]byte(raw))
}

// generateNonce returns a base64-encoded 24-byte client nonce.
func generateNonce() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf), nil
}

// ScramClient drives the 4-message SCRAM-SHA-1 exchange.
type ScramClient struct {
	username     string
	password     string
	clientNonce  string
	serverNonce  string
	salt         []byte
	iterCount    int
	clientFirstBare string
	serverFirst  string
}

// NewScramClient starts a new SCRAM-SHA-1 session, generating a fresh
// client nonce.
func NewScramClient(username, password string) (*ScramClient, error) {
	nonce, err := generateNonce()
	if err != nil {
		return nil, err
	}
	return &ScramClient{username: username, password: password, clientNonce: nonce}, nil
}

// InitialMessage builds the base64 GS2 client-first-message.
func (c *ScramClient) InitialMessage() string {
	c.clientFirstBare = "n=" + c.username + ",r=" + c.clientNonce
	gs2Header := "n,,"
	return base64.StdEncoding.EncodeToString([]byte(gs2Header + c.clientFirstBare))
}

// HandleChallenge parses the base64 server-first-message, verifies the
// nonce prefix, and returns the base64 client-final-message to send next.
func (c *ScramClient) HandleChallenge(challengeB64 string) (string, error) {
	decoded, err := base64.StdEncoding.DecodeString(challengeB64)
	if err != nil {
		return "", fmt.Errorf("decode scram challenge: %w", err)
	}
	c.serverFirst = string(decoded)

	r, s, i, err := parseServerFirst(c.serverFirst)
	if err != nil {
		return "", err
	}
	if !strings.HasPrefix(r, c.clientNonce) {
		return "", fmt.Errorf("scram server nonce does not extend client nonce")
	}
	c.serverNonce = r
	c.salt = s
	c.iterCount = i

	saltedPassword := pbkdf2.Key([]byte(c.password), c.salt, c.iterCount, sha1.Size, sha1.New)
	clientKey := hmacSha1(saltedPassword, []byte("Client Key"))
	storedKeyArr := sha1.Sum(clientKey)
	storedKey := storedKeyArr[:]

	gs2Header := "n,,"
	channelBinding := base64.StdEncoding.EncodeToString([]byte(gs2Header))
	clientFinalWithoutProof := "c=" + channelBinding + ",r=" + c.serverNonce

	authMessage := c.clientFirstBare + "," + c.serverFirst + "," + clientFinalWithoutProof
	clientSignature := hmacSha1(storedKey, []byte(authMessage))

	clientProof := make([]byte, len(clientKey))
	for idx := range clientKey {
		clientProof[idx] = clientKey[idx] ^ clientSignature[idx]
	}

	final := clientFinalWithoutProof + ",p=" + base64.StdEncoding.EncodeToString(clientProof)
	return base64.StdEncoding.EncodeToString([]byte(final)), nil
}

func hmacSha1(key, data []byte) []byte {
	h := hmac.New(sha1.New, key)
	h.Write(data)
	return h.Sum(nil)
}

// parseServerFirst parses "r=...,s=...,i=..." into its three fields.
func parseServerFirst(msg string) (nonce string, salt []byte, iterCount int, err error) {
	for _, part := range strings.Split(msg, ",") {
		if len(part) < 2 || part[1] != '=' {
			continue
		}
		switch part[0] {
		case 'r':
			nonce = part[2:]
		case 's':
			salt, err = base64.StdEncoding.DecodeString(part[2:])
			if err != nil {
				return "", nil, 0, fmt.Errorf("decode scram salt: %w", err)
			}
		case 'i':
			if _, scanErr := fmt.Sscanf(part[2:], "%d", &iterCount); scanErr != nil {
				return "", nil, 0, fmt.Errorf("parse scram iteration count: %w", scanErr)
			}
		}
	}
	if nonce == "" || salt == nil || iterCount == 0 {
		return "", nil, 0, fmt.Errorf("malformed scram server-first-message: %q", msg)
	}
	return nonce, salt, iterCount, nil
}
