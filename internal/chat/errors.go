package chat

import "errors"

var (
	// ErrRecipientNotFound is returned when a display name has no live connection.
	ErrRecipientNotFound = errors.New("recipient not found or offline")
	// ErrMalformedPayload is returned for frames that cannot be decoded or miss required fields.
	ErrMalformedPayload = errors.New("malformed payload")
	// ErrUnknownEvent is returned for event names the engine does not handle.
	ErrUnknownEvent = errors.New("unknown event")
	// ErrNotParticipant is returned when a connection reacts to a private
	// conversation it is not part of.
	ErrNotParticipant = errors.New("not a participant of the conversation")
)
