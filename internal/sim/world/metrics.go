package world

import "time"

// WorldMetrics is a read-only view of world runtime signals. It is published
// from the world goroutine and read from HTTP handlers and tests.
type WorldMetrics struct {
	Ticks uint64 `json:"ticks"`
	Syncs uint64 `json:"syncs"`

	Entities int `json:"entities"`
	Players  int `json:"players"`
	Sessions int `json:"sessions"`
	Mobiles  int `json:"mobiles"`
	Spawners int `json:"spawners"`

	Kills     uint64 `json:"kills"`
	Respawns  uint64 `json:"respawns"`
	Unhandled uint64 `json:"unhandled"`

	StepMS    float64 `json:"step_ms"`
	LastDelta float64 `json:"last_delta"`

	QueueDepths QueueDepths `json:"queue_depths"`
}

type QueueDepths struct {
	Inbox int `json:"inbox"`
	Join  int `json:"join"`
	Leave int `json:"leave"`
}

func (w *World) Metrics() WorldMetrics {
	if w == nil {
		return WorldMetrics{}
	}
	m, _ := w.metrics.Load().(WorldMetrics)
	return m
}

func (w *World) publishMetrics(step time.Duration) {
	m := WorldMetrics{
		Ticks:     w.ticks,
		Syncs:     w.syncs,
		Entities:  len(w.entities),
		Spawners:  len(w.spawners),
		Kills:     w.kills,
		Respawns:  w.respawns,
		Unhandled: w.unhandled,
		StepMS:    float64(step.Microseconds()) / 1000,
		LastDelta: w.lastDelta,
		QueueDepths: QueueDepths{
			Inbox: len(w.inbox),
			Join:  len(w.join),
			Leave: len(w.leave),
		},
	}
	for _, e := range w.entities {
		if e.IsPlayer() {
			m.Players++
			if e.SessionBound() {
				m.Sessions++
			}
		} else {
			m.Mobiles++
		}
	}
	w.metrics.Store(m)
}
