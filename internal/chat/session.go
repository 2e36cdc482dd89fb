package chat

import (
	"errors"
	"sync"
	"sync/atomic"
)

// SessionState is the lifecycle state of one connection.
type SessionState int32

const (
	StateAnonymous SessionState = iota
	StateActive
	StateTerminated
)

func (s SessionState) String() string {
	switch s {
	case StateAnonymous:
		return "anonymous"
	case StateActive:
		return "active"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Session processes the events of one connection in receipt order.
// Close may be called at any time: queued events are dropped, the event in
// flight is allowed to finish, and the disconnect transition runs once.
type Session struct {
	conn   ConnID
	engine *Engine
	inbox  chan Inbound
	done   chan struct{}
	once   sync.Once
	mu     sync.Mutex // held while an event is processed
	state  atomic.Int32
}

// Open starts tracking a new transport connection.
func (e *Engine) Open(conn ConnID) *Session {
	return &Session{
		conn:   conn,
		engine: e,
		inbox:  make(chan Inbound, e.inboxSize),
		done:   make(chan struct{}),
	}
}

// Conn returns the connection handle of the session.
func (s *Session) Conn() ConnID { return s.conn }

// State returns the current lifecycle state.
func (s *Session) State() SessionState { return SessionState(s.state.Load()) }

// Done is closed when the session is closed.
func (s *Session) Done() <-chan struct{} { return s.done }

func (s *Session) closed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// Enqueue queues an event for Run. It blocks while the queue is full and
// returns false once the session is closed.
func (s *Session) Enqueue(in Inbound) bool {
	if s.closed() {
		return false
	}
	select {
	case s.inbox <- in:
		return true
	case <-s.done:
		return false
	}
}

// Run processes queued events until the session is closed.
func (s *Session) Run() {
	for {
		select {
		case <-s.done:
			return
		case in := <-s.inbox:
			s.Handle(in)
		}
	}
}

// Handle processes one event synchronously.
func (s *Session) Handle(in Inbound) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed() {
		return
	}

	if in.Kind == InboundJoin {
		if _, err := s.engine.Join(s.conn, in.Username); err == nil {
			s.state.Store(int32(StateActive))
		}
		return
	}

	if s.State() != StateActive {
		s.engine.log.Debug().Str("conn", string(s.conn)).Str("event", string(in.Kind)).
			Msg("dropping event from connection that has not joined")
		return
	}

	var err error
	switch in.Kind {
	case InboundSendMessage:
		_, err = s.engine.SendMessage(s.conn, in.Content, in.Room)
	case InboundChangeRoom:
		err = s.engine.ChangeRoom(s.conn, in.Room)
	case InboundStartTyping:
		err = s.engine.Typing(s.conn, true, in.Room)
	case InboundStopTyping:
		err = s.engine.Typing(s.conn, false, in.Room)
	default:
		s.engine.log.Warn().Str("conn", string(s.conn)).Str("event", string(in.Kind)).Msg("unknown event")
		return
	}
	if err != nil && !errors.Is(err, ErrUnknownRoom) {
		s.engine.log.Debug().Err(err).Str("conn", string(s.conn)).Str("event", string(in.Kind)).Msg("event dropped")
	}
}

// Close terminates the session and performs the disconnect transition.
// Calling it more than once has no further effect.
func (s *Session) Close() {
	s.once.Do(func() {
		close(s.done)

		s.mu.Lock()
		defer s.mu.Unlock()
		s.state.Store(int32(StateTerminated))
		s.engine.Disconnect(s.conn)
	})
}
