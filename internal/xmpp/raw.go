package xmpp

import (
	"fmt"
	"net"
	"strings"
	"time"
)

// readUntil accumulates raw bytes from conn until the buffer contains
// marker, or readTimeout elapses per read call. Used during stream
// negotiation before the token-level parser takes over.
func readUntil(conn net.Conn, marker string, readTimeout time.Duration) (string, error) {
	var buf strings.Builder
	chunk := make([]byte, 4096)
	for {
		if readTimeout > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
		}
		n, err := conn.Read(chunk)
		if n > 0 {
			buf.Write(chunk[:n])
			if strings.Contains(buf.String(), marker) {
				return buf.String(), nil
			}
		}
		if err != nil {
			return buf.String(), fmt.Errorf("read until %q: %w", marker, err)
		}
	}
}
