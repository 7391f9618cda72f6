// Package server implements the HTTP and WebSocket transport of the fan-out
// chat server.
//
// The Hub owns every client connection and runs the chat routing engine on
// a single goroutine. Client read pumps only enqueue frames; write pumps only
// drain their own send buffer. Configuration, origin checks, rate limiting,
// routing, and HTTP helpers live in their own files.
package server
