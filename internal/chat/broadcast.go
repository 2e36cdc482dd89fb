package chat

import (
	"errors"

	"github.com/Tyrowin/roomchat/internal/metrics"
	"github.com/rs/zerolog"
)

// Transport delivers encoded frames to a single connection. Implementations
// return ErrStaleConnection for handles that are no longer open.
type Transport interface {
	Send(conn ConnID, frame []byte) error
}

// Broadcaster computes fanout audiences and hands frames to the transport.
// It has no state of its own; audiences are read from the registry and the
// membership index at call time.
type Broadcaster struct {
	transport Transport
	presence  *Registry
	members   *Membership
	log       zerolog.Logger
}

// NewBroadcaster creates a broadcaster over the given state.
func NewBroadcaster(t Transport, presence *Registry, members *Membership, log zerolog.Logger) *Broadcaster {
	return &Broadcaster{transport: t, presence: presence, members: members, log: log}
}

// ToConn delivers an event to one connection.
func (b *Broadcaster) ToConn(conn ConnID, event EventType, payload any) int {
	return b.deliver([]ConnID{conn}, "", event, payload)
}

// ToAll delivers an event to every registered connection.
func (b *Broadcaster) ToAll(event EventType, payload any) int {
	return b.deliver(b.presence.Conns(), "", event, payload)
}

// ToRoom delivers an event to the subscribers of room.
func (b *Broadcaster) ToRoom(room string, event EventType, payload any) int {
	return b.deliver(b.members.SubscribersOf(room), "", event, payload)
}

// ToRoomExcept delivers an event to the subscribers of room other than exclude.
func (b *Broadcaster) ToRoomExcept(room string, exclude ConnID, event EventType, payload any) int {
	return b.deliver(b.members.SubscribersOf(room), exclude, event, payload)
}

func (b *Broadcaster) deliver(audience []ConnID, exclude ConnID, event EventType, payload any) int {
	if len(audience) == 0 {
		return 0
	}
	frame, err := Encode(event, payload)
	if err != nil {
		b.log.Error().Err(err).Str("event", string(event)).Msg("dropping undeliverable event")
		return 0
	}

	delivered := 0
	for _, conn := range audience {
		if exclude != "" && conn == exclude {
			continue
		}
		if err := b.transport.Send(conn, frame); err != nil {
			b.sendFailed(conn, event, err)
			continue
		}
		delivered++
	}
	return delivered
}

func (b *Broadcaster) sendFailed(conn ConnID, event EventType, err error) {
	if errors.Is(err, ErrStaleConnection) {
		b.log.Debug().Str("conn", string(conn)).Str("event", string(event)).Msg("skipping closed connection")
		return
	}
	metrics.DeliveryFailures.WithLabelValues(ErrorCode(err)).Inc()
	b.log.Warn().Err(err).Str("conn", string(conn)).Str("event", string(event)).Msg("delivery failed")
}
