package chat

import (
	"fmt"
	"time"
)

// ReactionCorrelator attaches reactions to messages and works out who must
// see them. Tracked messages are routed by the scope stored when they were
// sent; unknown ids fall back to the scope the reacting client declares.
type ReactionCorrelator struct {
	registry *Registry
	router   *Router
	tracker  *Tracker
}

// NewReactionCorrelator returns a correlator over the given components.
func NewReactionCorrelator(registry *Registry, router *Router, tracker *Tracker) *ReactionCorrelator {
	return &ReactionCorrelator{registry: registry, router: router, tracker: tracker}
}

// Correlate records the reaction of sender and returns the audience together
// with the event to emit. Reactions are appended, never replaced. A reaction
// to a private message whose peer is offline yields ErrRecipientNotFound and
// is not recorded.
func (c *ReactionCorrelator) Correlate(sender ConnID, req ReactionRequest, at time.Time) ([]ConnID, ReactionEvent, error) {
	from := c.registry.NameOrAnonymous(sender)
	ev := ReactionEvent{
		MessageID: req.MessageID,
		Reaction:  req.Reaction,
		From:      from,
		Timestamp: at,
	}

	tracked, ok := c.tracker.Lookup(req.MessageID)
	if !ok {
		addr := Address{Room: req.Room, To: req.ToUsername}
		ev.Room, ev.To = addr.Room, addr.To
		recipients, err := c.router.Resolve(sender, addr)
		return recipients, ev, err
	}

	addr := tracked.Address
	ev.Room, ev.To = addr.Room, addr.To

	var recipients []ConnID
	if addr.Scope() == ScopePrivate {
		if from != tracked.Sender && from != addr.To {
			return nil, ev, fmt.Errorf("%w: message %s", ErrNotParticipant, req.MessageID)
		}
		// To names the other side of the conversation as seen by the reactor.
		peer := addr.To
		if from == addr.To {
			peer = tracked.Sender
		}
		ev.To = peer

		var err error
		recipients, err = c.router.Resolve(sender, Address{To: peer})
		if err != nil {
			return nil, ev, err
		}
	} else {
		recipients, _ = c.router.Resolve(sender, addr)
	}

	ev.Reactions, _ = c.tracker.AddReaction(req.MessageID, Reaction{
		MessageID: req.MessageID,
		From:      from,
		Reaction:  req.Reaction,
		Timestamp: at,
	})
	return recipients, ev, nil
}
