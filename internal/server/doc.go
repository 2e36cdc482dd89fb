// Package server implements the WebSocket transport and HTTP surface of the
// chat service.
//
// The implementation is organized into specialized files for configuration, hub
// management, clients, routing, and HTTP handlers. Chat semantics live in the
// chat package; this package only moves frames between sockets and the engine.
package server
