package world

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"realmcore/internal/protocol"
)

func TestScheduler_MeasuresAndClamps(t *testing.T) {
	c := &fakeClock{now: time.Unix(0, 0)}
	s := NewScheduler(c, 0, 0.25)
	if s.MinDelay() != time.Millisecond {
		t.Fatalf("min delay=%v", s.MinDelay())
	}

	c.Advance(16 * time.Millisecond)
	if dt := s.Elapsed(); dt != 0.016 {
		t.Fatalf("dt=%v", dt)
	}
	if dt := s.Elapsed(); dt != 0 {
		t.Fatalf("no time passed, dt=%v", dt)
	}
	c.Advance(2 * time.Second)
	if dt := s.Elapsed(); dt != 0.25 {
		t.Fatalf("clamped dt=%v", dt)
	}

	u := NewScheduler(c, 5*time.Millisecond, 0)
	c.Advance(3 * time.Second)
	if dt := u.Elapsed(); dt != 3 {
		t.Fatalf("unclamped dt=%v", dt)
	}
}

func TestRun_JoinDispatchStop(t *testing.T) {
	w := newTestWorld(t, nil)
	w.clock = SystemClock{}

	done := make(chan error, 1)
	go func() { done <- w.Run(context.Background()) }()

	s := &fakeSession{}
	resp := make(chan JoinResponse, 1)
	w.Join() <- JoinRequest{Name: "bob", Session: s, Resp: resp}

	var jr JoinResponse
	select {
	case jr = <-resp:
	case <-time.After(2 * time.Second):
		t.Fatalf("join timed out")
	}
	if jr.Err != nil || jr.EntityID == 0 {
		t.Fatalf("join=%+v", jr)
	}

	w.Inbox() <- Inbound{EntityID: jr.EntityID, Event: protocol.EventWorldUpdate, Data: json.RawMessage(`["walk",[1,2,3],[0,0,0,1]]`)}

	deadline := time.Now().Add(2 * time.Second)
	for {
		if len(s.all(protocol.EventWorldUpdate)) > 0 && w.Metrics().Players == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("no sync observed, metrics=%+v", w.Metrics())
		}
		time.Sleep(10 * time.Millisecond)
	}

	w.Stop()
	w.Stop()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not stop")
	}
	if !s.isDisconnected() {
		t.Fatalf("sessions should be disconnected on shutdown")
	}
	if m := w.Metrics(); m.Ticks == 0 || m.Sessions != 1 {
		t.Fatalf("metrics=%+v", m)
	}
}

func TestRun_ContextCancel(t *testing.T) {
	w := newTestWorld(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("err=%v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not return on cancel")
	}
}

type closingSession struct {
	fakeSession
	done chan struct{}
}

func (s *closingSession) Done() <-chan struct{} { return s.done }

func TestHandleJoin_SkipsClosedSession(t *testing.T) {
	w := newTestWorld(t, nil)
	before := len(w.byID)

	s := &closingSession{done: make(chan struct{})}
	close(s.done)
	resp := make(chan JoinResponse, 1)
	w.handleJoin(JoinRequest{Name: "ghost", Session: s, Resp: resp})

	jr := <-resp
	if !errors.Is(jr.Err, ErrSessionClosed) || jr.EntityID != 0 {
		t.Fatalf("join=%+v", jr)
	}
	if len(w.byID) != before {
		t.Fatalf("entities=%d want %d", len(w.byID), before)
	}

	open := &closingSession{done: make(chan struct{})}
	w.handleJoin(JoinRequest{Name: "live", Session: open, Resp: resp})
	if jr := <-resp; jr.Err != nil || w.byID[jr.EntityID] == nil {
		t.Fatalf("open session join=%+v", jr)
	}
}
