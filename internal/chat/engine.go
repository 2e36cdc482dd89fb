package chat

import (
	"fmt"
	"strings"
	"time"

	"github.com/Tyrowin/roomchat/internal/metrics"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DefaultRoom is the room every connection lands in after joining.
const DefaultRoom = "general"

// DefaultRooms returns the stock room catalog.
func DefaultRooms() []string {
	return []string{"general", "random", "tech", "gaming"}
}

// DefaultInboxSize bounds the per-session queue of pending client events.
const DefaultInboxSize = 64

// Options configures an Engine. Zero values select the defaults.
type Options struct {
	Rooms           []string
	DefaultRoom     string
	HistoryCapacity int
	InboxSize       int
	Logger          *zerolog.Logger
}

// Engine drives connections through the join, room change, messaging and
// disconnect transitions, and exposes a read-only view of its state.
type Engine struct {
	rooms       *RoomStore
	presence    *Registry
	members     *Membership
	broadcast   *Broadcaster
	defaultRoom string
	inboxSize   int
	log         zerolog.Logger
	newID       func() string
	now         func() time.Time
}

// NewEngine wires the room store, registry, membership index and broadcaster
// together on top of t.
func NewEngine(t Transport, opts Options) (*Engine, error) {
	if t == nil {
		return nil, fmt.Errorf("chat: nil transport")
	}
	names := opts.Rooms
	if len(names) == 0 {
		names = DefaultRooms()
	}
	store, err := NewRoomStore(names, opts.HistoryCapacity)
	if err != nil {
		return nil, fmt.Errorf("chat: %w", err)
	}

	defaultRoom := strings.TrimSpace(opts.DefaultRoom)
	if defaultRoom == "" {
		defaultRoom = store.Names()[0]
		if store.Has(DefaultRoom) {
			defaultRoom = DefaultRoom
		}
	}
	if !store.Has(defaultRoom) {
		return nil, fmt.Errorf("chat: default room %q is not in the catalog", defaultRoom)
	}

	log := zerolog.Nop()
	if opts.Logger != nil {
		log = *opts.Logger
	}
	inbox := opts.InboxSize
	if inbox <= 0 {
		inbox = DefaultInboxSize
	}

	presence := NewRegistry()
	members := NewMembership(store)
	return &Engine{
		rooms:       store,
		presence:    presence,
		members:     members,
		broadcast:   NewBroadcaster(t, presence, members, log),
		defaultRoom: defaultRoom,
		inboxSize:   inbox,
		log:         log,
		newID:       uuid.NewString,
		now:         time.Now,
	}, nil
}

// Join registers conn under username and subscribes it to the default room.
// On failure only the requester is told, and it may retry.
func (e *Engine) Join(conn ConnID, username string) (User, error) {
	user, err := e.presence.Register(conn, username)
	if err != nil {
		e.reject(conn, EventJoinRejected, err)
		return User{}, err
	}
	if _, err := e.members.Join(conn, e.defaultRoom); err != nil {
		panic(fmt.Sprintf("chat: default room %q rejected by membership: %v", e.defaultRoom, err))
	}
	if _, ok := e.presence.Lookup(conn); !ok {
		// disconnected while joining
		e.members.LeaveAll(conn)
		return User{}, ErrStaleConnection
	}
	metrics.ActiveUsers.Set(float64(e.presence.Count()))

	e.broadcast.ToConn(conn, EventJoinAccepted, user)
	e.broadcast.ToConn(conn, EventRoomCatalog, e.rooms.Names())
	e.broadcast.ToConn(conn, EventRoomSnapshot, RoomSnapshot{Room: e.defaultRoom, Messages: e.snapshot(e.defaultRoom)})

	e.broadcast.ToAll(EventPresenceList, e.presence.ListActive())
	e.broadcast.ToAll(EventPresenceJoined, PresenceNotice{
		Username:  user.Username,
		ID:        user.ID,
		Timestamp: e.now().UTC(),
	})

	e.log.Info().Str("conn", string(conn)).Str("username", user.Username).Msg("user joined the chat")
	return user, nil
}

// ChangeRoom moves an active connection to room and sends it the room's
// history. The room's other occupants get an entry notice, also when the
// connection was already subscribed to it.
func (e *Engine) ChangeRoom(conn ConnID, room string) error {
	user, ok := e.presence.Lookup(conn)
	if !ok {
		return ErrStaleConnection
	}
	room = strings.TrimSpace(room)
	changed, err := e.members.Join(conn, room)
	if err != nil {
		e.reject(conn, EventRoomChangeRejected, err)
		return err
	}

	e.broadcast.ToConn(conn, EventRoomChanged, RoomChanged{Room: room})
	e.broadcast.ToConn(conn, EventRoomSnapshot, RoomSnapshot{Room: room, Messages: e.snapshot(room)})
	e.broadcast.ToRoomExcept(room, conn, EventRoomEntered, RoomEntryNotice{
		Username:  user.Username,
		Room:      room,
		Timestamp: e.now().UTC(),
	})
	e.log.Debug().Str("conn", string(conn)).Str("username", user.Username).Str("room", room).
		Bool("changed", changed).Msg("room selected")
	return nil
}

// SendMessage stores content in the sender's current room and fans it out to
// that room. The room named by the client is advisory; membership decides.
func (e *Engine) SendMessage(conn ConnID, content, room string) (Message, error) {
	user, ok := e.presence.Lookup(conn)
	if !ok {
		return Message{}, ErrStaleConnection
	}
	if strings.TrimSpace(content) == "" {
		return Message{}, ErrEmptyMessage
	}
	current, ok := e.members.RoomOf(conn)
	if !ok {
		return Message{}, ErrStaleConnection
	}
	if room != "" && room != current {
		e.log.Debug().Str("conn", string(conn)).Str("requested", room).Str("room", current).
			Msg("message addressed to another room; using current room")
	}

	msg := Message{
		ID:        e.newID(),
		Content:   content,
		Sender:    user.Username,
		SenderID:  user.ID,
		Room:      current,
		Timestamp: e.now().UTC(),
	}
	if err := e.rooms.Append(current, msg); err != nil {
		panic(fmt.Sprintf("chat: membership room %q rejected by room store: %v", current, err))
	}
	metrics.MessagesTotal.WithLabelValues(current).Inc()

	e.broadcast.ToRoom(current, EventMessageDelivered, msg)
	return msg, nil
}

// Typing relays a typing indicator to the other occupants of the sender's
// room. Like SendMessage, the room named by the client is advisory.
func (e *Engine) Typing(conn ConnID, started bool, room string) error {
	user, ok := e.presence.Lookup(conn)
	if !ok {
		return ErrStaleConnection
	}
	current, ok := e.members.RoomOf(conn)
	if !ok {
		return ErrStaleConnection
	}
	if room != "" && room != current {
		e.log.Debug().Str("conn", string(conn)).Str("requested", room).Str("room", current).
			Msg("typing indicator addressed to another room; using current room")
	}
	event := EventTypingStopped
	if started {
		event = EventTypingStarted
	}
	e.broadcast.ToRoomExcept(current, conn, event, TypingNotice{Username: user.Username, Room: current})
	return nil
}

// Disconnect releases everything held for conn. Presence is re-broadcast only
// when a record was actually removed, so duplicate disconnects are silent.
func (e *Engine) Disconnect(conn ConnID) (User, bool) {
	user, ok := e.presence.Unregister(conn)
	e.members.LeaveAll(conn)
	if !ok {
		return User{}, false
	}
	metrics.ActiveUsers.Set(float64(e.presence.Count()))

	e.broadcast.ToAll(EventPresenceLeft, PresenceNotice{
		Username:  user.Username,
		ID:        user.ID,
		Timestamp: e.now().UTC(),
	})
	e.broadcast.ToAll(EventPresenceList, e.presence.ListActive())

	e.log.Info().Str("conn", string(conn)).Str("username", user.Username).Msg("user disconnected")
	return user, true
}

func (e *Engine) reject(conn ConnID, event EventType, err error) {
	code := ErrorCode(err)
	metrics.RequestRejections.WithLabelValues(string(event), code).Inc()
	e.log.Info().Err(err).Str("conn", string(conn)).Str("event", string(event)).Msg("request rejected")
	e.broadcast.ToConn(conn, event, newRejection(err))
}

func (e *Engine) snapshot(room string) []Message {
	msgs, err := e.rooms.Snapshot(room)
	if err != nil {
		panic(fmt.Sprintf("chat: snapshot of catalog room %q failed: %v", room, err))
	}
	return msgs
}

// Rooms returns the room catalog.
func (e *Engine) Rooms() []string { return e.rooms.Names() }

// DefaultRoom returns the room new users are placed in.
func (e *Engine) DefaultRoom() string { return e.defaultRoom }

// Presence returns the live users in registration order.
func (e *Engine) Presence() []User { return e.presence.ListActive() }

// History returns the stored messages of room, oldest first.
func (e *Engine) History(room string) ([]Message, error) {
	return e.rooms.Snapshot(room)
}

// RoomOf returns the room conn is subscribed to.
func (e *Engine) RoomOf(conn ConnID) (string, bool) { return e.members.RoomOf(conn) }

// Health summarises the engine state.
func (e *Engine) Health() Health {
	return Health{
		Status:    "OK",
		Timestamp: e.now().UTC(),
		Users:     e.presence.Count(),
		Rooms:     len(e.rooms.Names()),
	}
}
