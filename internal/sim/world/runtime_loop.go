package world

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"
)

type JoinRequest struct {
	Name    string
	Session Session
	Resp    chan JoinResponse
}

type JoinResponse struct {
	EntityID uint64
	Class    string
	Err      error
}

// Inbound is a validated client message addressed to an entity.
type Inbound struct {
	EntityID uint64
	Event    string
	Data     json.RawMessage
}

func (w *World) Join() chan<- JoinRequest { return w.join }
func (w *World) Leave() chan<- uint64     { return w.leave }
func (w *World) Inbox() chan<- Inbound    { return w.inbox }

// Run owns the world until ctx is cancelled or Stop is called. Joins, leaves
// and inbound messages are handled to completion between ticks.
func (w *World) Run(ctx context.Context) error {
	sched := NewScheduler(w.clock, time.Duration(w.tun.TickMinDelayMs)*time.Millisecond, w.tun.MaxTickDelta)
	timer := time.NewTimer(sched.MinDelay())
	defer timer.Stop()

	w.log.Info("world loop started",
		zap.Int("entities", len(w.entities)),
		zap.Int("spawners", len(w.spawners)),
		zap.Duration("min_delay", sched.MinDelay()),
	)

	for {
		select {
		case <-ctx.Done():
			w.shutdown()
			return ctx.Err()
		case <-w.stop:
			w.shutdown()
			return nil
		case req := <-w.join:
			w.handleJoin(req)
		case id := <-w.leave:
			w.Detach(id)
		case msg := <-w.inbox:
			w.Dispatch(msg.EntityID, msg.Event, msg.Data)
		case <-timer.C:
			start := time.Now()
			w.Update(sched.Elapsed())
			w.publishMetrics(time.Since(start))
			timer.Reset(sched.MinDelay())
		}
	}
}

func (w *World) Stop() { w.stopOnce.Do(func() { close(w.stop) }) }

func (w *World) handleJoin(req JoinRequest) {
	var resp JoinResponse
	if sessionClosed(req.Session) {
		w.log.Info("join skipped, session closed", zap.String("name", req.Name))
		resp.Err = ErrSessionClosed
	} else if e, err := w.Login(req.Name, req.Session); err != nil {
		resp.Err = err
	} else {
		resp.EntityID = e.id
		resp.Class = e.class
	}
	if req.Resp != nil {
		select {
		case req.Resp <- resp:
		default:
			w.log.Warn("join response dropped", zap.String("name", req.Name))
		}
	}
}

func (w *World) shutdown() {
	n := 0
	for _, e := range w.entities {
		if e.SessionBound() {
			e.session.Disconnect()
			e.session = NullSession
			n++
		}
	}
	w.log.Info("world loop stopped", zap.Uint64("ticks", w.ticks), zap.Int("disconnected", n))
}
