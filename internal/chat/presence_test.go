package chat

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Register(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()

	user, err := registry.Register("c1", "  alice ")
	req.NoError(err)
	req.Equal("alice", user.Username)
	req.Equal(ConnID("c1"), user.ConnID)
	req.Equal(StatusOnline, user.Status)
	req.NotEmpty(user.ID)
	req.False(user.JoinedAt.IsZero())

	found, ok := registry.Lookup("c1")
	req.True(ok)
	req.Equal(user, found)
}

func TestRegistry_RegisterRejections(t *testing.T) {
	registry := NewRegistry()
	_, err := registry.Register("c1", "alice")
	require.NoError(t, err)

	tests := []struct {
		name     string
		conn     ConnID
		username string
		want     error
	}{
		{name: "blank username", conn: "c2", username: "   ", want: ErrEmptyUsername},
		{name: "empty username", conn: "c2", username: "", want: ErrEmptyUsername},
		{name: "same name", conn: "c2", username: "alice", want: ErrUsernameTaken},
		{name: "different case", conn: "c2", username: "Alice", want: ErrUsernameTaken},
		{name: "padded different case", conn: "c2", username: " ALICE ", want: ErrUsernameTaken},
		{name: "second join on same connection", conn: "c1", username: "bob", want: ErrAlreadyJoined},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := registry.Register(tt.conn, tt.username)
			require.ErrorIs(t, err, tt.want)
			require.Equal(t, 1, registry.Count())
		})
	}
}

func TestRegistry_IDsAreUnique(t *testing.T) {
	registry := NewRegistry()
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		user, err := registry.Register(ConnID(fmt.Sprint(i)), fmt.Sprintf("user%d", i))
		require.NoError(t, err)
		require.False(t, seen[user.ID], "duplicate id %s", user.ID)
		seen[user.ID] = true
	}
}

func TestRegistry_UnregisterIsIdempotent(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	_, err := registry.Register("c1", "alice")
	req.NoError(err)

	user, ok := registry.Unregister("c1")
	req.True(ok)
	req.Equal("alice", user.Username)

	_, ok = registry.Unregister("c1")
	req.False(ok)
	req.Zero(registry.Count())

	// the name is free again
	_, err = registry.Register("c2", "ALICE")
	req.NoError(err)
}

func TestRegistry_ListActiveInRegistrationOrder(t *testing.T) {
	registry := NewRegistry()
	for i, name := range []string{"carol", "alice", "bob", "dave"} {
		_, err := registry.Register(ConnID(fmt.Sprint(i)), name)
		require.NoError(t, err)
	}
	_, _ = registry.Unregister("2")

	names := make([]string, 0)
	for _, u := range registry.ListActive() {
		names = append(names, u.Username)
	}
	require.Equal(t, []string{"carol", "alice", "dave"}, names)
}

func TestRegistry_ConcurrentRegistrationsKeepNamesUnique(t *testing.T) {
	registry := NewRegistry()
	variants := []string{"alice", "Alice", "ALICE", "aLiCe"}

	var wg sync.WaitGroup
	var successes atomic.Int32
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := registry.Register(ConnID(fmt.Sprint(i)), variants[i%len(variants)]); err == nil {
				successes.Add(1)
			} else {
				assert.ErrorIs(t, err, ErrUsernameTaken)
			}
		}(i)
	}
	wg.Wait()

	require.Equal(t, int32(1), successes.Load())
	require.Len(t, registry.ListActive(), 1)
}
