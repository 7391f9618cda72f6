// Package server defines the frame types passed between client pumps and the
// hub, and utility helpers shared by both.
package server

import "strings"

// inboundFrame is one raw frame read from a client, queued for the hub loop.
type inboundFrame struct {
	client *Client
	data   []byte
}

// isExpectedCloseError checks if an error is expected during connection closure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "websocket: close sent") ||
		strings.Contains(errStr, "broken pipe")
}
