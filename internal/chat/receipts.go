package chat

import "time"

// ReadReceiptNotifier routes read acknowledgements back to the original sender.
type ReadReceiptNotifier struct {
	registry *Registry
	tracker  *Tracker
}

// NewReadReceiptNotifier returns a notifier over registry and tracker.
func NewReadReceiptNotifier(registry *Registry, tracker *Tracker) *ReadReceiptNotifier {
	return &ReadReceiptNotifier{registry: registry, tracker: tracker}
}

// Notify resolves the connection that must receive the receipt. The sender
// recorded for a tracked message wins over the name the reader supplies.
// It reports false when the sender is offline; the receipt is then dropped.
func (n *ReadReceiptNotifier) Notify(reader ConnID, req ReadRequest, at time.Time) (ConnID, ReadReceipt, bool) {
	sender, room := req.FromUsername, req.Room
	if tracked, ok := n.tracker.Lookup(req.MessageID); ok {
		sender = tracked.Sender
		if tracked.Address.Room != "" {
			room = tracked.Address.Room
		}
	}

	receipt := ReadReceipt{
		MessageID: req.MessageID,
		Reader:    n.registry.NameOrAnonymous(reader),
		Room:      room,
		Timestamp: at,
	}

	conn, ok := n.registry.LookupByName(sender)
	return conn, receipt, ok
}
