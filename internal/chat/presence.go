package chat

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

type presenceEntry struct {
	user User
	seq  uint64
}

// Registry maps live connections to their user records and keeps usernames
// unique under case-insensitive comparison.
type Registry struct {
	mu     sync.RWMutex
	byConn map[ConnID]presenceEntry
	byName map[string]ConnID // lower-cased username -> owner
	seq    uint64
	newID  func() string
	now    func() time.Time
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byConn: make(map[ConnID]presenceEntry),
		byName: make(map[string]ConnID),
		newID:  uuid.NewString,
		now:    time.Now,
	}
}

func nameKey(username string) string {
	return strings.ToLower(username)
}

// Register creates the user record for conn. The username is trimmed before
// it is validated and stored.
func (r *Registry) Register(conn ConnID, requested string) (User, error) {
	username := strings.TrimSpace(requested)
	if username == "" {
		return User{}, ErrEmptyUsername
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.byConn[conn]; ok {
		return User{}, fmt.Errorf("%w as %q", ErrAlreadyJoined, existing.user.Username)
	}
	key := nameKey(username)
	if _, taken := r.byName[key]; taken {
		return User{}, fmt.Errorf("%w: %q", ErrUsernameTaken, username)
	}

	r.seq++
	user := User{
		ID:       r.newID(),
		Username: username,
		ConnID:   conn,
		Status:   StatusOnline,
		JoinedAt: r.now().UTC(),
	}
	r.byConn[conn] = presenceEntry{user: user, seq: r.seq}
	r.byName[key] = conn
	return user, nil
}

// Unregister removes the record of conn. It returns false when there was
// nothing to remove, which makes duplicate disconnects harmless.
func (r *Registry) Unregister(conn ConnID) (User, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.byConn[conn]
	if !ok {
		return User{}, false
	}
	delete(r.byConn, conn)
	delete(r.byName, nameKey(entry.user.Username))
	return entry.user, true
}

// Lookup returns the record of conn, if any.
func (r *Registry) Lookup(conn ConnID) (User, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.byConn[conn]
	return entry.user, ok
}

// ListActive returns every live user in registration order.
func (r *Registry) ListActive() []User {
	r.mu.RLock()
	entries := lo.Values(r.byConn)
	r.mu.RUnlock()

	slices.SortFunc(entries, func(a, b presenceEntry) int { return cmp.Compare(a.seq, b.seq) })
	return lo.Map(entries, func(e presenceEntry, _ int) User { return e.user })
}

// Conns returns the handles of every registered connection.
func (r *Registry) Conns() []ConnID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return lo.Keys(r.byConn)
}

// Count returns the number of live users.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byConn)
}
