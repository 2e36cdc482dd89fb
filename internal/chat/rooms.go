package chat

import (
	"fmt"
	"strings"
	"sync"
)

// DefaultHistoryCapacity is the number of messages a room keeps.
const DefaultHistoryCapacity = 200

// roomLog is a fixed-size FIFO ring of messages.
type roomLog struct {
	mu   sync.RWMutex
	buf  []Message
	head int
	size int
}

func newRoomLog(capacity int) *roomLog {
	return &roomLog{buf: make([]Message, capacity)}
}

func (l *roomLog) append(msg Message) {
	l.mu.Lock()
	defer l.mu.Unlock()

	tail := (l.head + l.size) % len(l.buf)
	l.buf[tail] = msg
	if l.size < len(l.buf) {
		l.size++
		return
	}
	// full: the slot just written was the oldest entry
	l.head = (l.head + 1) % len(l.buf)
}

func (l *roomLog) snapshot() []Message {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Message, l.size)
	for i := 0; i < l.size; i++ {
		out[i] = l.buf[(l.head+i)%len(l.buf)]
	}
	return out
}

func (l *roomLog) len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.size
}

// RoomStore holds the fixed room catalog and the bounded history of each room.
// The catalog never changes after construction, so only the logs are locked.
type RoomStore struct {
	names    []string
	logs     map[string]*roomLog
	capacity int
}

// NewRoomStore creates a store for the given catalog. Names are trimmed;
// blank or duplicate names are rejected.
func NewRoomStore(names []string, capacity int) (*RoomStore, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("room catalog is empty")
	}
	if capacity <= 0 {
		capacity = DefaultHistoryCapacity
	}

	s := &RoomStore{
		names:    make([]string, 0, len(names)),
		logs:     make(map[string]*roomLog, len(names)),
		capacity: capacity,
	}
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("room catalog contains a blank name")
		}
		if _, dup := s.logs[name]; dup {
			return nil, fmt.Errorf("room %q is listed twice", name)
		}
		s.names = append(s.names, name)
		s.logs[name] = newRoomLog(capacity)
	}
	return s, nil
}

// Append stores msg at the end of the room's log, evicting the oldest entry
// once the log is at capacity.
func (s *RoomStore) Append(room string, msg Message) error {
	l, ok := s.logs[room]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownRoom, room)
	}
	l.append(msg)
	return nil
}

// Snapshot returns a copy of the room's history, oldest first.
func (s *RoomStore) Snapshot(room string) ([]Message, error) {
	l, ok := s.logs[room]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRoom, room)
	}
	return l.snapshot(), nil
}

// Len returns the number of messages held for room, or 0 for unknown rooms.
func (s *RoomStore) Len(room string) int {
	if l, ok := s.logs[room]; ok {
		return l.len()
	}
	return 0
}

// Names returns the room catalog in configuration order.
func (s *RoomStore) Names() []string {
	return append([]string(nil), s.names...)
}

// Has reports whether room is part of the catalog.
func (s *RoomStore) Has(room string) bool {
	_, ok := s.logs[room]
	return ok
}

// Capacity returns the per-room history bound.
func (s *RoomStore) Capacity() int { return s.capacity }
