// Package chat implements the routing and presence engine of the fan-out
// server: the connection registry, room membership, recipient resolution for
// global, room, private and file messages, reactions, read receipts, typing
// indicators and presence snapshots.
//
// Nothing in this package is safe for concurrent use. An Engine and the
// components it owns must be driven by a single goroutine, which processes
// every inbound event to completion before starting the next one. The
// server's hub loop provides that guarantee.
package chat
