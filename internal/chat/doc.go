// Package chat implements the presence and room-broadcast engine behind the
// chat server.
//
// The engine is transport agnostic. A transport hands it opaque connection
// handles (ConnID) and inbound events, and receives encoded frames through the
// Transport interface. Shared state is split across three independently locked
// structures: the Registry (who is online), the RoomStore (bounded per-room
// history) and the Membership index (which single room each connection is
// subscribed to). The Engine orchestrates them, and a Session serialises the
// events of one connection.
package chat
