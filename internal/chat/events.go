package chat

import (
	"encoding/json"
	"fmt"
)

// EventType names an outbound event on the wire.
type EventType string

const (
	EventJoinAccepted       EventType = "user_authenticated"
	EventJoinRejected       EventType = "join_error"
	EventRoomCatalog        EventType = "available_rooms"
	EventRoomSnapshot       EventType = "room_messages"
	EventRoomChanged        EventType = "room_joined"
	EventRoomChangeRejected EventType = "room_error"
	EventRoomEntered        EventType = "user_joined_room"
	EventMessageDelivered   EventType = "receive_message"
	EventPresenceList       EventType = "user_list"
	EventPresenceJoined     EventType = "user_joined"
	EventPresenceLeft       EventType = "user_left"
	EventTypingStarted      EventType = "user_typing"
	EventTypingStopped      EventType = "user_stop_typing"
)

// InboundKind names an inbound client event on the wire.
type InboundKind string

const (
	InboundJoin        InboundKind = "user_join"
	InboundSendMessage InboundKind = "send_message"
	InboundChangeRoom  InboundKind = "join_room"
	InboundStartTyping InboundKind = "typing"
	InboundStopTyping  InboundKind = "stop_typing"
)

// Valid reports whether k is an event clients may send.
func (k InboundKind) Valid() bool {
	switch k {
	case InboundJoin, InboundSendMessage, InboundChangeRoom, InboundStartTyping, InboundStopTyping:
		return true
	}
	return false
}

// Inbound is one decoded client request. Only the fields relevant to Kind are set.
type Inbound struct {
	Kind     InboundKind
	Username string
	Content  string
	Room     string
}

// Envelope is the JSON frame exchanged with clients.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Encode renders an outbound event as a wire frame.
func Encode(event EventType, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", event, err)
	}
	return json.Marshal(Envelope{Event: string(event), Data: data})
}
