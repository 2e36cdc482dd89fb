package chat

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMembership(t *testing.T) *Membership {
	t.Helper()
	store, err := NewRoomStore(DefaultRooms(), 0)
	require.NoError(t, err)
	return NewMembership(store)
}

func TestMembership_JoinMovesBetweenRooms(t *testing.T) {
	req := require.New(t)
	m := newTestMembership(t)

	changed, err := m.Join("c1", "general")
	req.NoError(err)
	req.True(changed)

	changed, err = m.Join("c1", "tech")
	req.NoError(err)
	req.True(changed)

	room, ok := m.RoomOf("c1")
	req.True(ok)
	req.Equal("tech", room)
	req.Empty(m.SubscribersOf("general"))
	req.Equal([]ConnID{"c1"}, m.SubscribersOf("tech"))
}

func TestMembership_JoinSameRoomIsNoop(t *testing.T) {
	m := newTestMembership(t)
	_, err := m.Join("c1", "tech")
	require.NoError(t, err)

	changed, err := m.Join("c1", "tech")
	require.NoError(t, err)
	require.False(t, changed)
	require.Equal(t, 1, m.Count("tech"))
}

func TestMembership_UnknownRoomKeepsCurrentRoom(t *testing.T) {
	m := newTestMembership(t)
	_, err := m.Join("c1", "tech")
	require.NoError(t, err)

	_, err = m.Join("c1", "nope")
	require.ErrorIs(t, err, ErrUnknownRoom)

	room, ok := m.RoomOf("c1")
	require.True(t, ok)
	require.Equal(t, "tech", room)
}

func TestMembership_LeaveAllIsIdempotent(t *testing.T) {
	m := newTestMembership(t)
	_, err := m.Join("c1", "random")
	require.NoError(t, err)

	room, ok := m.LeaveAll("c1")
	require.True(t, ok)
	require.Equal(t, "random", room)

	_, ok = m.LeaveAll("c1")
	require.False(t, ok)
	_, ok = m.RoomOf("c1")
	require.False(t, ok)
	require.Zero(t, m.Count("random"))
}

func TestMembership_ConcurrentMovesKeepExactlyOneRoom(t *testing.T) {
	m := newTestMembership(t)
	rooms := DefaultRooms()
	const conns = 32

	var wg sync.WaitGroup
	for c := 0; c < conns; c++ {
		wg.Add(1)
		go func(c int) {
			defer wg.Done()
			conn := ConnID(fmt.Sprint(c))
			for i := 0; i < 200; i++ {
				_, err := m.Join(conn, rooms[(c+i)%len(rooms)])
				assert.NoError(t, err)
			}
		}(c)
	}

	wg.Wait()

	total := 0
	for _, room := range rooms {
		total += m.Count(room)
	}
	require.Equal(t, conns, total)
	for c := 0; c < conns; c++ {
		_, ok := m.RoomOf(ConnID(fmt.Sprint(c)))
		require.True(t, ok)
	}
}
