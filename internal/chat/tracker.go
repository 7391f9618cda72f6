package chat

import "slices"

// DefaultTrackingCapacity bounds how many message ids the tracker remembers.
const DefaultTrackingCapacity = 10000

// TrackedMessage is what the engine remembers about a message it emitted:
// enough to route later reactions and read receipts without trusting the
// client's restated scope.
type TrackedMessage struct {
	ID        string
	Sender    string
	Address   Address
	Reactions []Reaction
}

// Tracker is a bounded, insertion-ordered index of emitted messages. When it
// is full the oldest message is forgotten. A capacity of zero disables it.
type Tracker struct {
	capacity int
	byID     map[string]*TrackedMessage
	order    []string
}

// NewTracker returns a tracker holding at most capacity messages.
func NewTracker(capacity int) *Tracker {
	if capacity < 0 {
		capacity = 0
	}
	return &Tracker{
		capacity: capacity,
		byID:     make(map[string]*TrackedMessage),
	}
}

// Track remembers a message. Ids are generated by the engine and never reused.
func (t *Tracker) Track(id, sender string, addr Address) {
	if t.capacity == 0 || id == "" {
		return
	}
	if _, ok := t.byID[id]; ok {
		return
	}
	for len(t.order) >= t.capacity {
		delete(t.byID, t.order[0])
		t.order = t.order[1:]
	}
	t.byID[id] = &TrackedMessage{ID: id, Sender: sender, Address: addr}
	t.order = append(t.order, id)
}

// Lookup returns a copy of the tracked message with the given id.
func (t *Tracker) Lookup(id string) (TrackedMessage, bool) {
	m, ok := t.byID[id]
	if !ok {
		return TrackedMessage{}, false
	}
	cp := *m
	cp.Reactions = slices.Clone(m.Reactions)
	return cp, true
}

// AddReaction appends a reaction to a tracked message and returns every
// reaction recorded for it. It reports false if the id is not tracked.
func (t *Tracker) AddReaction(id string, reaction Reaction) ([]Reaction, bool) {
	m, ok := t.byID[id]
	if !ok {
		return nil, false
	}
	m.Reactions = append(m.Reactions, reaction)
	return slices.Clone(m.Reactions), true
}

// Len returns the number of tracked messages.
func (t *Tracker) Len() int {
	return len(t.order)
}

// Reset forgets every message.
func (t *Tracker) Reset() {
	clear(t.byID)
	t.order = nil
}
