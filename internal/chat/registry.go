package chat

import "slices"

// ConnID identifies one live transport session. The transport layer owns the
// connection; the engine only refers to it.
type ConnID string

// Registry tracks live connections and the display name each one registered.
// Connections are kept in connect order and entries in registration order so
// fan-out and name lookups are deterministic.
type Registry struct {
	conns   []ConnID
	live    map[ConnID]struct{}
	entries []ConnID
	names   map[ConnID]string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		live:  make(map[ConnID]struct{}),
		names: make(map[ConnID]string),
	}
}

// Connect records a new live connection. Connecting twice is a no-op.
func (r *Registry) Connect(conn ConnID) {
	if _, ok := r.live[conn]; ok {
		return
	}
	r.live[conn] = struct{}{}
	r.conns = append(r.conns, conn)
}

// IsConnected reports whether conn is live.
func (r *Registry) IsConnected(conn ConnID) bool {
	_, ok := r.live[conn]
	return ok
}

// Connected returns a snapshot of every live connection in connect order.
func (r *Registry) Connected() []ConnID {
	return slices.Clone(r.conns)
}

// Register inserts or overwrites the display name of conn. A re-registering
// connection keeps its original position in lookup order.
func (r *Registry) Register(conn ConnID, name string) {
	r.Connect(conn)
	if _, ok := r.names[conn]; !ok {
		r.entries = append(r.entries, conn)
	}
	r.names[conn] = name
}

// Name returns the display name registered by conn.
func (r *Registry) Name(conn ConnID) (string, bool) {
	name, ok := r.names[conn]
	return name, ok
}

// NameOrAnonymous returns the display name of conn, or AnonymousName.
func (r *Registry) NameOrAnonymous(conn ConnID) string {
	if name, ok := r.names[conn]; ok {
		return name
	}
	return AnonymousName
}

// LookupByName returns the first connection, in registration order, that
// registered name. Display names are not unique.
func (r *Registry) LookupByName(name string) (ConnID, bool) {
	for _, conn := range r.entries {
		if r.names[conn] == name {
			return conn, true
		}
	}
	return "", false
}

// Remove forgets conn. It reports whether a registry entry was deleted,
// which is the only case that requires a presence broadcast.
func (r *Registry) Remove(conn ConnID) bool {
	if _, ok := r.live[conn]; ok {
		delete(r.live, conn)
		r.conns = slices.DeleteFunc(r.conns, func(c ConnID) bool { return c == conn })
	}

	if _, ok := r.names[conn]; !ok {
		return false
	}
	delete(r.names, conn)
	r.entries = slices.DeleteFunc(r.entries, func(c ConnID) bool { return c == conn })
	return true
}

// Names returns the registered display names in registration order.
// Duplicates are preserved.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.entries))
	for _, conn := range r.entries {
		names = append(names, r.names[conn])
	}
	return names
}

// Len returns the number of registered entries.
func (r *Registry) Len() int {
	return len(r.entries)
}

// Reset drops every connection and entry.
func (r *Registry) Reset() {
	r.conns = nil
	r.entries = nil
	clear(r.live)
	clear(r.names)
}
