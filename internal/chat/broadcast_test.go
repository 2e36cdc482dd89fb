package chat

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newTestBroadcaster(t *testing.T) (*Broadcaster, *recorder, *Registry, *Membership) {
	t.Helper()
	store, err := NewRoomStore(DefaultRooms(), 0)
	require.NoError(t, err)
	rec := newRecorder()
	presence := NewRegistry()
	members := NewMembership(store)
	return NewBroadcaster(rec, presence, members, zerolog.Nop()), rec, presence, members
}

func TestBroadcaster_ToRoomExceptSkipsOnlyExcluded(t *testing.T) {
	b, rec, _, members := newTestBroadcaster(t)
	for _, conn := range []ConnID{"a", "b", "c"} {
		_, err := members.Join(conn, "general")
		require.NoError(t, err)
	}
	_, err := members.Join("d", "tech")
	require.NoError(t, err)

	delivered := b.ToRoomExcept("general", "a", EventTypingStarted, TypingNotice{Username: "alice", Room: "general"})

	require.Equal(t, 2, delivered)
	require.Empty(t, rec.events("a"))
	require.Equal(t, []string{"user_typing"}, rec.events("b"))
	require.Equal(t, []string{"user_typing"}, rec.events("c"))
	require.Empty(t, rec.events("d"))
}

func TestBroadcaster_ToAllReachesRegisteredConnectionsOnly(t *testing.T) {
	b, rec, presence, _ := newTestBroadcaster(t)
	_, err := presence.Register("a", "alice")
	require.NoError(t, err)
	_, err = presence.Register("b", "bob")
	require.NoError(t, err)

	delivered := b.ToAll(EventPresenceList, presence.ListActive())

	require.Equal(t, 2, delivered)
	require.Equal(t, 1, rec.count("a", EventPresenceList))
	require.Equal(t, 1, rec.count("b", EventPresenceList))
	require.Empty(t, rec.events("anonymous"))
}

func TestBroadcaster_StaleConnectionsFailSilently(t *testing.T) {
	b, rec, _, members := newTestBroadcaster(t)
	for _, conn := range []ConnID{"a", "b"} {
		_, err := members.Join(conn, "general")
		require.NoError(t, err)
	}
	rec.kill("a")

	var delivered int
	require.NotPanics(t, func() {
		delivered = b.ToRoom("general", EventMessageDelivered, Message{ID: "1", Content: "hi"})
	})
	require.Equal(t, 1, delivered)
	require.Equal(t, []string{"receive_message"}, rec.events("b"))
}

func TestBroadcaster_EmptyAudience(t *testing.T) {
	b, _, _, _ := newTestBroadcaster(t)
	require.Zero(t, b.ToRoom("gaming", EventMessageDelivered, Message{}))
	require.Zero(t, b.ToRoom("nope", EventMessageDelivered, Message{}))
}
