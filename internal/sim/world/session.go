package world

import "errors"

// Session is the outbound half of a client connection. Send must not block;
// implementations queue and drop rather than stall the world goroutine.
type Session interface {
	Send(event string, payload any)
	Disconnect()
}

type nullSession struct{}

func (nullSession) Send(string, any) {}
func (nullSession) Disconnect()      {}

// NullSession drives mobiles and players whose connection has gone away.
var NullSession Session = nullSession{}

func isNullSession(s Session) bool {
	if s == nil {
		return true
	}
	_, ok := s.(nullSession)
	return ok
}

// ErrSessionClosed is returned for a join whose connection went away while
// the request was queued.
var ErrSessionClosed = errors.New("world: session closed before join")

// sessionClosed reports whether s exposes a Done channel that is closed.
func sessionClosed(s Session) bool {
	d, ok := s.(interface{ Done() <-chan struct{} })
	if !ok {
		return false
	}
	select {
	case <-d.Done():
		return true
	default:
		return false
	}
}
