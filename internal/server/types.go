// Package server decodes inbound wire frames and holds small helpers shared
// by client and hub logic.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/Tyrowin/roomchat/internal/chat"
)

var errUnknownEvent = errors.New("unknown event")

// inboundPayload is the union of all inbound data objects.
type inboundPayload struct {
	Username string `json:"username"`
	Content  string `json:"content"`
	Room     string `json:"room"`
}

// decodeInbound parses one client frame. user_join and join_room also accept
// a bare JSON string as their data.
func decodeInbound(raw []byte) (chat.Inbound, error) {
	var env chat.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return chat.Inbound{}, fmt.Errorf("decode envelope: %w", err)
	}

	kind := chat.InboundKind(env.Event)
	if !kind.Valid() {
		return chat.Inbound{}, fmt.Errorf("%w %q", errUnknownEvent, env.Event)
	}

	in := chat.Inbound{Kind: kind}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return in, nil
	}

	var bare string
	if err := json.Unmarshal(env.Data, &bare); err == nil {
		switch kind {
		case chat.InboundJoin:
			in.Username = bare
		case chat.InboundChangeRoom:
			in.Room = bare
		case chat.InboundSendMessage:
			in.Content = bare
		}
		return in, nil
	}

	var payload inboundPayload
	if err := json.Unmarshal(env.Data, &payload); err != nil {
		return chat.Inbound{}, fmt.Errorf("decode %s data: %w", kind, err)
	}
	in.Username = payload.Username
	in.Content = payload.Content
	in.Room = payload.Room
	return in, nil
}

// isExpectedCloseError checks if an error is expected during connection closure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "websocket: close sent") ||
		strings.Contains(errStr, "broken pipe")
}
