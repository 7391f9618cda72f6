package chat

import (
	"fmt"
	"slices"
)

// Scope is the addressing mode of a message.
type Scope int

const (
	ScopeGlobal Scope = iota
	ScopeRoom
	ScopePrivate
)

func (s Scope) String() string {
	switch s {
	case ScopeRoom:
		return "room"
	case ScopePrivate:
		return "private"
	default:
		return "global"
	}
}

// Address is the addressing descriptor carried by inbound payloads. A room
// takes precedence over a target name; neither means global.
type Address struct {
	Room string
	To   string
}

// Scope classifies the address.
func (a Address) Scope() Scope {
	switch {
	case a.Room != "":
		return ScopeRoom
	case a.To != "":
		return ScopePrivate
	default:
		return ScopeGlobal
	}
}

// Router resolves the recipient set of an addressed message.
type Router struct {
	registry *Registry
	rooms    *Rooms
}

// NewRouter returns a router that resolves against registry and rooms.
func NewRouter(registry *Registry, rooms *Rooms) *Router {
	return &Router{registry: registry, rooms: rooms}
}

// Resolve returns the connections that must receive a message sent by sender
// to addr. Global messages reach every live connection, room messages every
// member of the room, and private messages the resolved target plus the
// sender. An unresolved private target yields ErrRecipientNotFound and no
// recipients.
func (r *Router) Resolve(sender ConnID, addr Address) ([]ConnID, error) {
	switch addr.Scope() {
	case ScopeRoom:
		return r.rooms.MembersOf(addr.Room), nil
	case ScopePrivate:
		target, ok := r.registry.LookupByName(addr.To)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrRecipientNotFound, addr.To)
		}
		return uniqueConns(target, sender), nil
	default:
		return r.registry.Connected(), nil
	}
}

func uniqueConns(conns ...ConnID) []ConnID {
	out := make([]ConnID, 0, len(conns))
	for _, c := range conns {
		if c == "" || slices.Contains(out, c) {
			continue
		}
		out = append(out, c)
	}
	return out
}
