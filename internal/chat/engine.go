package chat

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Tyrowin/fanout/internal/logging"
)

// ErrNotConnected is returned for events from a connection the engine does
// not know, for example a frame that raced with its own disconnect.
var ErrNotConnected = errors.New("connection is not live")

// Emitter delivers one outbound event to a set of connections. It must not
// block: delivery is fire-and-forget and carries no backpressure.
type Emitter interface {
	Emit(recipients []ConnID, event string, payload any)
}

// EmitterFunc adapts a function to the Emitter interface.
type EmitterFunc func(recipients []ConnID, event string, payload any)

// Emit calls f.
func (f EmitterFunc) Emit(recipients []ConnID, event string, payload any) {
	f(recipients, event, payload)
}

func fanOut(out Emitter, recipients []ConnID, event string, payload any) {
	if len(recipients) == 0 {
		return
	}
	out.Emit(recipients, event, payload)
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithIDGenerator overrides how message ids are assigned.
func WithIDGenerator(newID func() string) Option {
	return func(e *Engine) { e.newID = newID }
}

// WithTrackingCapacity sets how many message ids are remembered for
// reaction and read receipt routing. Zero disables tracking.
func WithTrackingCapacity(n int) Option {
	return func(e *Engine) { e.trackingCapacity = n }
}

// WithLogger sets the engine logger.
func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// Engine decodes inbound events and drives the routing components. All
// methods must be called from the same goroutine.
type Engine struct {
	out       Emitter
	registry  *Registry
	rooms     *Rooms
	router    *Router
	tracker   *Tracker
	reactions *ReactionCorrelator
	receipts  *ReadReceiptNotifier
	presence  *PresenceBroadcaster
	typing    *TypingNotifier

	now              func() time.Time
	newID            func() string
	trackingCapacity int
	log              zerolog.Logger
}

// NewEngine returns an engine emitting through out.
func NewEngine(out Emitter, opts ...Option) *Engine {
	e := &Engine{
		out:              out,
		now:              func() time.Time { return time.Now().UTC() },
		newID:            uuid.NewString,
		trackingCapacity: DefaultTrackingCapacity,
		log:              zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}

	e.registry = NewRegistry()
	e.rooms = NewRooms()
	e.router = NewRouter(e.registry, e.rooms)
	e.tracker = NewTracker(e.trackingCapacity)
	e.reactions = NewReactionCorrelator(e.registry, e.router, e.tracker)
	e.receipts = NewReadReceiptNotifier(e.registry, e.tracker)
	e.presence = NewPresenceBroadcaster(e.registry, out)
	e.typing = NewTypingNotifier(e.registry)
	return e
}

// Registry exposes the connection registry for inspection.
func (e *Engine) Registry() *Registry { return e.registry }

// Rooms exposes the room membership table for inspection.
func (e *Engine) Rooms() *Rooms { return e.rooms }

// Tracker exposes the message tracker for inspection.
func (e *Engine) Tracker() *Tracker { return e.tracker }

// Connect records a new live connection. No event is emitted until the
// connection registers a display name.
func (e *Engine) Connect(conn ConnID) {
	e.registry.Connect(conn)
}

// Disconnect removes conn from the registry and from every room, then
// re-announces presence if a registry entry was removed. The whole cleanup
// finishes before any further event is processed.
func (e *Engine) Disconnect(conn ConnID) {
	name, _ := e.registry.Name(conn)
	removed := e.registry.Remove(conn)
	rooms := e.rooms.RemoveAll(conn)

	e.log.Debug().
		Str(logging.FieldConnID, string(conn)).
		Str(logging.FieldUsername, name).
		Strs(logging.FieldRooms, rooms).
		Msg("connection cleaned up")

	if removed {
		e.presence.Broadcast()
	}
}

// Reset clears every piece of state. Used on shutdown.
func (e *Engine) Reset() {
	e.registry.Reset()
	e.rooms.Reset()
	e.tracker.Reset()
}

// Handle decodes one frame from conn and processes it to completion.
// Conditions the client should know about are reported to conn as events;
// the returned error is for the caller's logs only.
func (e *Engine) Handle(conn ConnID, frame []byte) error {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		err = fmt.Errorf("%w: %v", ErrMalformedPayload, err)
		e.reportError(conn, "", err)
		return err
	}
	return e.Dispatch(conn, env)
}

// Dispatch processes an already decoded envelope from conn.
func (e *Engine) Dispatch(conn ConnID, env Envelope) error {
	if !e.registry.IsConnected(conn) {
		return fmt.Errorf("%w: %s", ErrNotConnected, conn)
	}

	var err error
	switch env.Event {
	case EventRegister:
		err = e.handleRegister(conn, env.Data)
	case EventChatMessage:
		err = e.handleChatMessage(conn, env.Data)
	case EventTyping:
		err = e.handleTyping(conn, env.Data)
	case EventJoinRoom:
		err = e.handleJoinRoom(conn, env.Data)
	case EventLeaveRoom:
		err = e.handleLeaveRoom(conn, env.Data)
	case EventRoomMessage:
		err = e.handleRoomMessage(conn, env.Data)
	case EventPrivateMessage:
		err = e.handlePrivateMessage(conn, env.Data)
	case EventFileMessage:
		err = e.handleFileMessage(conn, env.Data)
	case EventMessageReaction:
		err = e.handleReaction(conn, env.Data)
	case EventMessageRead:
		err = e.handleRead(conn, env.Data)
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownEvent, env.Event)
	}

	if errors.Is(err, ErrMalformedPayload) || errors.Is(err, ErrUnknownEvent) {
		e.reportError(conn, env.Event, err)
	}
	return err
}

func (e *Engine) handleRegister(conn ConnID, data json.RawMessage) error {
	name, err := decodeString(data)
	if err != nil {
		return err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: display name is required", ErrMalformedPayload)
	}

	e.registry.Register(conn, name)
	e.log.Info().Str(logging.FieldConnID, string(conn)).Str(logging.FieldUsername, name).Msg("user registered")
	e.presence.Broadcast()
	return nil
}

func (e *Engine) handleChatMessage(conn ConnID, data json.RawMessage) error {
	text, err := decodeString(data)
	if err != nil {
		return err
	}

	msg := ChatMessage{
		ID:        e.newID(),
		Username:  e.registry.NameOrAnonymous(conn),
		Message:   text,
		Timestamp: e.now(),
		Type:      KindText,
	}
	recipients, _ := e.router.Resolve(conn, Address{})
	e.tracker.Track(msg.ID, msg.Username, Address{})
	fanOut(e.out, recipients, EventChatMessage, msg)
	return nil
}

func (e *Engine) handleTyping(conn ConnID, data json.RawMessage) error {
	var isTyping bool
	if !isEmpty(data) {
		if err := json.Unmarshal(data, &isTyping); err != nil {
			return fmt.Errorf("%w: expected a boolean: %v", ErrMalformedPayload, err)
		}
	}
	recipients, ev := e.typing.Relay(conn, isTyping)
	fanOut(e.out, recipients, EventTyping, ev)
	return nil
}

func (e *Engine) handleJoinRoom(conn ConnID, data json.RawMessage) error {
	room, err := decodeRoom(data)
	if err != nil {
		return err
	}

	joined := e.rooms.Join(conn, room)
	fanOut(e.out, []ConnID{conn}, EventJoinedRoom, room)
	if joined {
		name := e.registry.NameOrAnonymous(conn)
		fanOut(e.out, e.othersIn(room, conn), EventRoomNotification, fmt.Sprintf("%s joined %s", name, room))
		e.log.Debug().Str(logging.FieldConnID, string(conn)).Str(logging.FieldRoom, room).Msg("joined room")
	}
	return nil
}

func (e *Engine) handleLeaveRoom(conn ConnID, data json.RawMessage) error {
	room, err := decodeRoom(data)
	if err != nil {
		return err
	}

	left := e.rooms.Leave(conn, room)
	fanOut(e.out, []ConnID{conn}, EventLeftRoom, room)
	if left {
		name := e.registry.NameOrAnonymous(conn)
		fanOut(e.out, e.rooms.MembersOf(room), EventRoomNotification, fmt.Sprintf("%s left %s", name, room))
		e.log.Debug().Str(logging.FieldConnID, string(conn)).Str(logging.FieldRoom, room).Msg("left room")
	}
	return nil
}

func (e *Engine) handleRoomMessage(conn ConnID, data json.RawMessage) error {
	var req RoomMessageRequest
	if err := decodeInto(data, &req); err != nil {
		return err
	}
	if req.Room == "" {
		return fmt.Errorf("%w: room is required", ErrMalformedPayload)
	}

	msg := RoomMessage{
		ID:        e.newID(),
		Username:  e.registry.NameOrAnonymous(conn),
		Room:      req.Room,
		Message:   req.Message,
		Timestamp: e.now(),
		Type:      KindText,
	}
	addr := Address{Room: req.Room}
	recipients, _ := e.router.Resolve(conn, addr)
	e.tracker.Track(msg.ID, msg.Username, addr)
	fanOut(e.out, recipients, EventRoomMessage, msg)
	return nil
}

func (e *Engine) handlePrivateMessage(conn ConnID, data json.RawMessage) error {
	var req PrivateMessageRequest
	if err := decodeInto(data, &req); err != nil {
		return err
	}
	if req.ToUsername == "" {
		return fmt.Errorf("%w: toUsername is required", ErrMalformedPayload)
	}

	addr := Address{To: req.ToUsername}
	recipients, err := e.router.Resolve(conn, addr)
	if err != nil {
		e.reportUnresolved(conn, EventPrivateMessageError, req.ToUsername)
		return err
	}

	msg := PrivateMessage{
		ID:        e.newID(),
		From:      e.registry.NameOrAnonymous(conn),
		To:        req.ToUsername,
		Message:   req.Message,
		Timestamp: e.now(),
		Type:      KindText,
	}
	e.tracker.Track(msg.ID, msg.From, addr)
	fanOut(e.out, recipients, EventPrivateMessage, msg)
	return nil
}

func (e *Engine) handleFileMessage(conn ConnID, data json.RawMessage) error {
	var req FileMessageRequest
	if err := decodeInto(data, &req); err != nil {
		return err
	}

	addr := Address{Room: req.Room, To: req.ToUsername}
	recipients, err := e.router.Resolve(conn, addr)
	if err != nil {
		e.reportUnresolved(conn, EventFileMessageError, req.ToUsername)
		return err
	}

	msg := FileMessage{
		ID:        e.newID(),
		Username:  e.registry.NameOrAnonymous(conn),
		Room:      addr.Room,
		File:      req.File,
		FileType:  req.FileType,
		Caption:   req.Caption,
		Timestamp: e.now(),
		Type:      KindFile,
	}
	if addr.Scope() == ScopePrivate {
		msg.To = addr.To
	}
	e.tracker.Track(msg.ID, msg.Username, addr)
	fanOut(e.out, recipients, EventFileMessage, msg)
	return nil
}

func (e *Engine) handleReaction(conn ConnID, data json.RawMessage) error {
	var req ReactionRequest
	if err := decodeInto(data, &req); err != nil {
		return err
	}
	if req.MessageID == "" || req.Reaction == "" {
		return fmt.Errorf("%w: messageId and reaction are required", ErrMalformedPayload)
	}

	recipients, ev, err := e.reactions.Correlate(conn, req, e.now())
	switch {
	case errors.Is(err, ErrNotParticipant):
		fanOut(e.out, []ConnID{conn}, EventReactionError, ErrorEvent{
			Event:   EventMessageReaction,
			Message: err.Error(),
		})
		return err
	case errors.Is(err, ErrRecipientNotFound):
		// The peer went offline; reactions are never reported back as errors.
		e.log.Debug().Err(err).Str(logging.FieldConnID, string(conn)).Msg("reaction dropped")
		return nil
	case err != nil:
		return err
	}

	fanOut(e.out, recipients, EventMessageReaction, ev)
	return nil
}

func (e *Engine) handleRead(conn ConnID, data json.RawMessage) error {
	var req ReadRequest
	if err := decodeInto(data, &req); err != nil {
		return err
	}
	if req.MessageID == "" {
		return fmt.Errorf("%w: messageId is required", ErrMalformedPayload)
	}

	target, receipt, ok := e.receipts.Notify(conn, req, e.now())
	if !ok {
		e.log.Debug().Str(logging.FieldMessageID, req.MessageID).Msg("read receipt dropped, sender offline")
		return nil
	}
	fanOut(e.out, []ConnID{target}, EventMessageRead, receipt)
	return nil
}

func (e *Engine) othersIn(room string, conn ConnID) []ConnID {
	members := e.rooms.MembersOf(room)
	others := members[:0]
	for _, m := range members {
		if m != conn {
			others = append(others, m)
		}
	}
	return others
}

func (e *Engine) reportUnresolved(conn ConnID, event, name string) {
	fanOut(e.out, []ConnID{conn}, event, RecipientError{
		To:      name,
		Message: fmt.Sprintf("User %s not found or offline.", name),
	})
}

func (e *Engine) reportError(conn ConnID, event string, err error) {
	fanOut(e.out, []ConnID{conn}, EventError, ErrorEvent{Event: event, Message: err.Error()})
}

func isEmpty(data json.RawMessage) bool {
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func decodeString(data json.RawMessage) (string, error) {
	if isEmpty(data) {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return "", fmt.Errorf("%w: expected a string: %v", ErrMalformedPayload, err)
	}
	return s, nil
}

func decodeRoom(data json.RawMessage) (string, error) {
	room, err := decodeString(data)
	if err != nil {
		return "", err
	}
	room = strings.TrimSpace(room)
	if room == "" {
		return "", fmt.Errorf("%w: room name is required", ErrMalformedPayload)
	}
	return room, nil
}

func decodeInto(data json.RawMessage, v any) error {
	if isEmpty(data) {
		return fmt.Errorf("%w: missing data", ErrMalformedPayload)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return nil
}
