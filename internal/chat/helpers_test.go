package chat

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// emitted is one recorded Emit call.
type emitted struct {
	Recipients []ConnID
	Event      string
	Payload    any
}

// recorder is an Emitter that keeps every call in order.
type recorder struct {
	calls []emitted
}

func (r *recorder) Emit(recipients []ConnID, event string, payload any) {
	r.calls = append(r.calls, emitted{
		Recipients: append([]ConnID(nil), recipients...),
		Event:      event,
		Payload:    payload,
	})
}

func (r *recorder) reset() { r.calls = nil }

// byEvent returns the calls carrying event, in order.
func (r *recorder) byEvent(event string) []emitted {
	var out []emitted
	for _, c := range r.calls {
		if c.Event == event {
			out = append(out, c)
		}
	}
	return out
}

// received returns the payloads of event delivered to conn.
func (r *recorder) received(conn ConnID, event string) []any {
	var out []any
	for _, c := range r.byEvent(event) {
		for _, id := range c.Recipients {
			if id == conn {
				out = append(out, c.Payload)
				break
			}
		}
	}
	return out
}

var fixedTime = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

// newTestEngine returns an engine with a fixed clock and sequential ids.
func newTestEngine(opts ...Option) (*Engine, *recorder) {
	rec := &recorder{}
	seq := 0
	base := []Option{
		WithClock(func() time.Time { return fixedTime }),
		WithIDGenerator(func() string {
			seq++
			return fmt.Sprintf("msg-%d", seq)
		}),
	}
	return NewEngine(rec, append(base, opts...)...), rec
}

// send dispatches a frame built from event and data and fails on encode errors.
func send(t *testing.T, e *Engine, conn ConnID, event string, data any) error {
	t.Helper()
	frame, err := Encode(event, data)
	require.NoError(t, err)
	return e.Handle(conn, frame)
}

// connectAs connects conn and registers name.
func connectAs(t *testing.T, e *Engine, conn ConnID, name string) {
	t.Helper()
	e.Connect(conn)
	require.NoError(t, send(t, e, conn, EventRegister, name))
}
