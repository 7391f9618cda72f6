package chat

import (
	"slices"
	"sort"
)

// Rooms is the many-to-many relation between connections and room names.
// Empty rooms are dropped, so an unknown room and an empty one look the same.
type Rooms struct {
	members map[string][]ConnID
}

// NewRooms returns an empty membership table.
func NewRooms() *Rooms {
	return &Rooms{members: make(map[string][]ConnID)}
}

// Join adds conn to room and reports whether membership changed.
func (r *Rooms) Join(conn ConnID, room string) bool {
	members := r.members[room]
	if slices.Contains(members, conn) {
		return false
	}
	r.members[room] = append(members, conn)
	return true
}

// Leave removes conn from room and reports whether membership changed.
func (r *Rooms) Leave(conn ConnID, room string) bool {
	members, ok := r.members[room]
	if !ok {
		return false
	}
	idx := slices.Index(members, conn)
	if idx < 0 {
		return false
	}
	members = slices.Delete(members, idx, idx+1)
	if len(members) == 0 {
		delete(r.members, room)
	} else {
		r.members[room] = members
	}
	return true
}

// MembersOf returns the members of room in join order.
func (r *Rooms) MembersOf(room string) []ConnID {
	return slices.Clone(r.members[room])
}

// IsMember reports whether conn belongs to room.
func (r *Rooms) IsMember(conn ConnID, room string) bool {
	return slices.Contains(r.members[room], conn)
}

// RoomsOf returns the sorted names of every room conn belongs to.
func (r *Rooms) RoomsOf(conn ConnID) []string {
	var rooms []string
	for room, members := range r.members {
		if slices.Contains(members, conn) {
			rooms = append(rooms, room)
		}
	}
	sort.Strings(rooms)
	return rooms
}

// RemoveAll removes conn from every room and returns the sorted names of the
// rooms it left.
func (r *Rooms) RemoveAll(conn ConnID) []string {
	rooms := r.RoomsOf(conn)
	for _, room := range rooms {
		r.Leave(conn, room)
	}
	return rooms
}

// Count returns the number of non-empty rooms.
func (r *Rooms) Count() int {
	return len(r.members)
}

// Reset drops every membership.
func (r *Rooms) Reset() {
	clear(r.members)
}
