package chat

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// recorder is an in-memory Transport that keeps every frame per connection.
type recorder struct {
	mu     sync.Mutex
	frames map[ConnID][]Envelope
	dead   map[ConnID]bool
}

func newRecorder() *recorder {
	return &recorder{
		frames: make(map[ConnID][]Envelope),
		dead:   make(map[ConnID]bool),
	}
}

func (r *recorder) Send(conn ConnID, frame []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.dead[conn] {
		return ErrStaleConnection
	}
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return err
	}
	r.frames[conn] = append(r.frames[conn], env)
	return nil
}

func (r *recorder) kill(conn ConnID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dead[conn] = true
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = make(map[ConnID][]Envelope)
}

func (r *recorder) events(conn ConnID) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, 0, len(r.frames[conn]))
	for _, env := range r.frames[conn] {
		out = append(out, env.Event)
	}
	return out
}

func (r *recorder) last(conn ConnID, event EventType) (Envelope, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	frames := r.frames[conn]
	for i := len(frames) - 1; i >= 0; i-- {
		if frames[i].Event == string(event) {
			return frames[i], true
		}
	}
	return Envelope{}, false
}

func (r *recorder) count(conn ConnID, event EventType) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, env := range r.frames[conn] {
		if env.Event == string(event) {
			n++
		}
	}
	return n
}

func decode[T any](t *testing.T, env Envelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v
}

func newTestEngine(t *testing.T) (*Engine, *recorder) {
	t.Helper()
	rec := newRecorder()
	engine, err := NewEngine(rec, Options{})
	require.NoError(t, err)
	return engine, rec
}

func mustJoin(t *testing.T, e *Engine, conn ConnID, username string) User {
	t.Helper()
	user, err := e.Join(conn, username)
	require.NoError(t, err)
	return user
}
