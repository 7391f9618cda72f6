package chat

// TypingNotifier relays typing indicators to every connection.
type TypingNotifier struct {
	registry *Registry
}

// NewTypingNotifier returns a notifier over registry.
func NewTypingNotifier(registry *Registry) *TypingNotifier {
	return &TypingNotifier{registry: registry}
}

// Relay returns the audience and event for a typing indicator from sender.
func (n *TypingNotifier) Relay(sender ConnID, isTyping bool) ([]ConnID, TypingEvent) {
	return n.registry.Connected(), TypingEvent{
		Username: n.registry.NameOrAnonymous(sender),
		IsTyping: isTyping,
	}
}
