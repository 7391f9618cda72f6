package chat

// PresenceBroadcaster announces the full online-name list to everyone.
type PresenceBroadcaster struct {
	registry *Registry
	out      Emitter
}

// NewPresenceBroadcaster returns a broadcaster emitting through out.
func NewPresenceBroadcaster(registry *Registry, out Emitter) *PresenceBroadcaster {
	return &PresenceBroadcaster{registry: registry, out: out}
}

// Broadcast sends the current name snapshot to every live connection,
// including the one whose change triggered it.
func (p *PresenceBroadcaster) Broadcast() {
	fanOut(p.out, p.registry.Connected(), EventOnlineUsers, p.registry.Names())
}
