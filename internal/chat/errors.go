package chat

import "errors"

var (
	ErrEmptyUsername   = errors.New("username is required")
	ErrUsernameTaken   = errors.New("username is already taken")
	ErrAlreadyJoined   = errors.New("connection has already joined")
	ErrUnknownRoom     = errors.New("room does not exist")
	ErrEmptyMessage    = errors.New("message content is empty")
	ErrStaleConnection = errors.New("connection is no longer active")
	ErrSlowConsumer    = errors.New("connection send buffer is full")
)

// ErrorCode maps an engine error to the stable code sent to clients.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrEmptyUsername):
		return "empty_username"
	case errors.Is(err, ErrUsernameTaken):
		return "username_taken"
	case errors.Is(err, ErrAlreadyJoined):
		return "already_joined"
	case errors.Is(err, ErrUnknownRoom):
		return "unknown_room"
	case errors.Is(err, ErrEmptyMessage):
		return "empty_message"
	case errors.Is(err, ErrStaleConnection):
		return "stale_connection"
	case errors.Is(err, ErrSlowConsumer):
		return "slow_consumer"
	default:
		return "internal"
	}
}

// sentinel returns the exported sentinel wrapped by err, so clients see the
// plain message and not the wrapping context.
func sentinel(err error) error {
	for _, s := range []error{ErrEmptyUsername, ErrUsernameTaken, ErrAlreadyJoined, ErrUnknownRoom, ErrEmptyMessage, ErrStaleConnection} {
		if errors.Is(err, s) {
			return s
		}
	}
	return err
}
