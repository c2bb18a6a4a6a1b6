package ws

import (
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/sasha-s/go-deadlock"
	"go.uber.org/zap"

	"realmcore/internal/protocol"
)

// Session is the world-facing half of one websocket connection. Send and
// Disconnect are called from the world goroutine and never block.
type Session struct {
	id    string
	codec protocol.Codec
	out   chan []byte
	log   *zap.Logger

	mu     deadlock.Mutex
	closed bool
	done   chan struct{}

	drops *atomic.Uint64
}

func newSession(codec protocol.Codec, queue int, logger *zap.Logger, drops *atomic.Uint64) *Session {
	id := uuid.New().String()
	return &Session{
		id:    id,
		codec: codec,
		out:   make(chan []byte, queue),
		log:   logger.With(zap.String("session", id)),
		done:  make(chan struct{}),
		drops: drops,
	}
}

func (s *Session) ID() string            { return s.id }
func (s *Session) Codec() protocol.Codec { return s.codec }

func (s *Session) Send(event string, payload any) {
	b, err := s.codec.Encode(event, payload)
	if err != nil {
		s.log.Warn("encode failed", zap.String("event", event), zap.Error(err))
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if !sendLatest(s.out, b) && s.drops != nil {
		s.drops.Add(1)
	}
}

// Disconnect asks the connection to close. Safe to call more than once.
func (s *Session) Disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.done)
	}
}

// Done is closed once the session has been disconnected.
func (s *Session) Done() <-chan struct{} { return s.done }

// sendLatest enqueues b, dropping the oldest queued frame when full. It
// reports whether b was queued without a drop.
func sendLatest(ch chan []byte, b []byte) bool {
	select {
	case ch <- b:
		return true
	default:
	}
	// Drop one.
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- b:
	default:
	}
	return false
}
