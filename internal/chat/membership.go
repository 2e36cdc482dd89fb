package chat

import (
	"fmt"
	"sync"

	"github.com/samber/lo"
)

// Membership tracks the single room each connection is subscribed to.
// Both indexes change under one lock, so a room move is never observed
// half done.
type Membership struct {
	mu     sync.RWMutex
	rooms  *RoomStore
	byRoom map[string]map[ConnID]struct{}
	byConn map[ConnID]string
}

// NewMembership creates an empty membership index over the rooms of store.
func NewMembership(store *RoomStore) *Membership {
	m := &Membership{
		rooms:  store,
		byRoom: make(map[string]map[ConnID]struct{}),
		byConn: make(map[ConnID]string),
	}
	for _, name := range store.Names() {
		m.byRoom[name] = make(map[ConnID]struct{})
	}
	return m
}

// Join moves conn into room, leaving its previous room in the same step.
// It reports whether anything changed; joining the current room is a no-op.
func (m *Membership) Join(conn ConnID, room string) (bool, error) {
	if !m.rooms.Has(room) {
		return false, fmt.Errorf("%w: %q", ErrUnknownRoom, room)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	prev, ok := m.byConn[conn]
	if ok && prev == room {
		return false, nil
	}
	if ok {
		delete(m.byRoom[prev], conn)
	}
	m.byRoom[room][conn] = struct{}{}
	m.byConn[conn] = room
	return true, nil
}

// LeaveAll removes conn from whatever room it occupies and returns that room.
func (m *Membership) LeaveAll(conn ConnID) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	room, ok := m.byConn[conn]
	if !ok {
		return "", false
	}
	delete(m.byRoom[room], conn)
	delete(m.byConn, conn)
	return room, true
}

// RoomOf returns the room conn is subscribed to.
func (m *Membership) RoomOf(conn ConnID) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	room, ok := m.byConn[conn]
	return room, ok
}

// SubscribersOf returns a copy of the subscriber set of room.
func (m *Membership) SubscribersOf(room string) []ConnID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return lo.Keys(m.byRoom[room])
}

// Count returns the number of subscribers of room.
func (m *Membership) Count(room string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byRoom[room])
}
