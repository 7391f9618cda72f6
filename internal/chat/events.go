package chat

import (
	"encoding/json"
	"time"
)

// Inbound event names.
const (
	EventRegister        = "register"
	EventChatMessage     = "chat message"
	EventTyping          = "typing"
	EventJoinRoom        = "join room"
	EventLeaveRoom       = "leave room"
	EventRoomMessage     = "room message"
	EventPrivateMessage  = "private message"
	EventFileMessage     = "file message"
	EventMessageReaction = "message reaction"
	EventMessageRead     = "message read"
)

// Outbound-only event names.
const (
	EventOnlineUsers         = "online users"
	EventJoinedRoom          = "joined room"
	EventLeftRoom            = "left room"
	EventRoomNotification    = "room notification"
	EventPrivateMessageError = "private message error"
	EventFileMessageError    = "file message error"
	EventReactionError       = "message reaction error"
	EventError               = "error"
)

// Message kind tags.
const (
	KindText = "text"
	KindFile = "file"
)

// AnonymousName is the sender name used for connections that never registered.
const AnonymousName = "Anonymous"

// Envelope is the frame exchanged in both directions over the channel.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Encode wraps payload in an envelope and marshals it.
func Encode(event string, payload any) ([]byte, error) {
	return json.Marshal(struct {
		Event string `json:"event"`
		Data  any    `json:"data,omitempty"`
	}{Event: event, Data: payload})
}

// RoomMessageRequest is the payload of an inbound room message.
type RoomMessageRequest struct {
	Room    string `json:"room"`
	Message string `json:"message"`
}

// PrivateMessageRequest is the payload of an inbound private message.
type PrivateMessageRequest struct {
	ToUsername string `json:"toUsername"`
	Message    string `json:"message"`
}

// FileMessageRequest is the payload of an inbound file message. File is
// relayed as sent: a data URL, a plain URL or bare base64.
type FileMessageRequest struct {
	Room       string `json:"room,omitempty"`
	ToUsername string `json:"toUsername,omitempty"`
	File       string `json:"file"`
	FileType   string `json:"fileType"`
	Caption    string `json:"caption,omitempty"`
}

// ReactionRequest is the payload of an inbound message reaction.
type ReactionRequest struct {
	MessageID  string `json:"messageId"`
	Reaction   string `json:"reaction"`
	Room       string `json:"room,omitempty"`
	ToUsername string `json:"toUsername,omitempty"`
}

// ReadRequest is the payload of an inbound read acknowledgement.
type ReadRequest struct {
	MessageID    string `json:"messageId"`
	FromUsername string `json:"fromUsername"`
	Room         string `json:"room,omitempty"`
}

// ChatMessage is a global text message as seen by clients.
type ChatMessage struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Type      string    `json:"type"`
}

// RoomMessage is a room-scoped text message as seen by clients.
type RoomMessage struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Room      string    `json:"room"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Type      string    `json:"type"`
}

// PrivateMessage is a direct text message as seen by both participants.
type PrivateMessage struct {
	ID        string    `json:"id"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Type      string    `json:"type"`
}

// FileMessage carries an attachment to any of the three audiences.
type FileMessage struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Room      string    `json:"room,omitempty"`
	To        string    `json:"to,omitempty"`
	File      string    `json:"file"`
	FileType  string    `json:"fileType"`
	Caption   string    `json:"caption"`
	Timestamp time.Time `json:"timestamp"`
	Type      string    `json:"type"`
}

// Reaction is one emoji annotation on a message.
type Reaction struct {
	MessageID string    `json:"messageId"`
	From      string    `json:"from"`
	Reaction  string    `json:"reaction"`
	Timestamp time.Time `json:"timestamp"`
}

// ReactionEvent announces a reaction to the message's audience. Reactions
// holds every reaction recorded so far when the message is tracked.
type ReactionEvent struct {
	MessageID string     `json:"messageId"`
	Reaction  string     `json:"reaction"`
	From      string     `json:"from"`
	Room      string     `json:"room,omitempty"`
	To        string     `json:"to,omitempty"`
	Reactions []Reaction `json:"reactions,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}

// ReadReceipt tells a sender that a message was read.
type ReadReceipt struct {
	MessageID string    `json:"messageId"`
	Reader    string    `json:"reader"`
	Room      string    `json:"room,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// TypingEvent relays a typing indicator.
type TypingEvent struct {
	Username string `json:"username"`
	IsTyping bool   `json:"isTyping"`
}

// RecipientError reports a private or file message whose target is offline.
type RecipientError struct {
	To      string `json:"to"`
	Message string `json:"message"`
}

// ErrorEvent reports a frame that could not be processed.
type ErrorEvent struct {
	Event   string `json:"event,omitempty"`
	Message string `json:"message"`
}
