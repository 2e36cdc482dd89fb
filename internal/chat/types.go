package chat

import "time"

// ConnID is the opaque handle of one transport session. The transport owns
// it; the engine only references it.
type ConnID string

// Status is the presence status of a registered user.
type Status string

const StatusOnline Status = "online"

// User is the presence record of a connection that completed a join.
type User struct {
	ID       string    `json:"id"`
	Username string    `json:"username"`
	ConnID   ConnID    `json:"connectionId"`
	Status   Status    `json:"status"`
	JoinedAt time.Time `json:"joinedAt"`
}

// Message is an immutable chat message as stored in a room log.
type Message struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Sender    string    `json:"sender"`
	SenderID  string    `json:"senderId"`
	Room      string    `json:"room"`
	Timestamp time.Time `json:"timestamp"`
}

// PresenceNotice announces a user joining or leaving the chat.
type PresenceNotice struct {
	Username  string    `json:"username"`
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}

// RoomEntryNotice tells the occupants of a room that someone moved in.
type RoomEntryNotice struct {
	Username  string    `json:"username"`
	Room      string    `json:"room"`
	Timestamp time.Time `json:"timestamp"`
}

// TypingNotice is a transient typing indicator.
type TypingNotice struct {
	Username string `json:"username"`
	Room     string `json:"room"`
}

// RoomSnapshot carries the history of one room.
type RoomSnapshot struct {
	Room     string    `json:"room"`
	Messages []Message `json:"messages"`
}

// RoomChanged confirms a room selection to its requester.
type RoomChanged struct {
	Room string `json:"room"`
}

// Rejection is returned to a requester whose join or room change failed.
type Rejection struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func newRejection(err error) Rejection {
	return Rejection{Code: ErrorCode(err), Message: sentinel(err).Error()}
}

// Health is a point-in-time summary of the engine.
type Health struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Users     int       `json:"users"`
	Rooms     int       `json:"rooms"`
}
