package world

import (
	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"

	"realmcore/internal/sim/ai"
)

// Spawner keeps one mobile of a class alive at a fixed position. When the
// mobile is swept the reference clears and the next tick spawns a new one.
type Spawner struct {
	class  string
	pos    mgl64.Vec3
	entity *Entity
	spawns uint64
}

func (s *Spawner) Class() string        { return s.class }
func (s *Spawner) Position() mgl64.Vec3 { return s.pos }
func (s *Spawner) Entity() *Entity      { return s.entity }
func (s *Spawner) Spawns() uint64       { return s.spawns }

// AddSpawner registers a spawner. The position's y is snapped to the terrain.
func (w *World) AddSpawner(class string, pos mgl64.Vec3) *Spawner {
	pos[1] = w.terrain.HeightAt(pos[0], pos[2])
	s := &Spawner{class: class, pos: pos}
	w.spawners = append(w.spawners, s)
	return s
}

// PopulateSpawners lays spawners out on the configured grid and returns how
// many were placed. Placement is deterministic for a given spawn seed.
func (w *World) PopulateSpawners() int {
	cfg := w.tun.Spawns
	r := newRand(cfg.Seed)
	n := 0
	for x := -cfg.GridExtent; x <= cfg.GridExtent; x++ {
		for z := -cfg.GridExtent; z <= cfg.GridExtent; z++ {
			if r.Float64() >= cfg.Probability {
				continue
			}
			class := cfg.Classes[r.IntN(len(cfg.Classes))]
			w.AddSpawner(class, mgl64.Vec3{float64(x) * cfg.GridSpacing, 0, float64(z) * cfg.GridSpacing})
			n++
		}
	}
	w.log.Info("spawners placed", zap.Int("count", n))
	return n
}

func (w *World) updateSpawners() {
	for _, s := range w.spawners {
		if s.entity == nil {
			w.spawn(s)
		}
	}
}

func (w *World) spawn(s *Spawner) {
	e := w.newMobile(s.class, s.pos, func(dead *Entity) {
		w.log.Info("mobile respawning soon", zap.String("name", dead.name), zap.Uint64("id", dead.id))
		s.entity = nil
	})
	w.addEntity(e)
	s.entity = e
	s.spawns++
	w.respawns++
	w.rec.Record(e.record(RecordSpawn))
}

func (w *World) newMobile(class string, pos mgl64.Vec3, onDeath func(*Entity)) *Entity {
	e := newEntity(w, entityParams{
		class:   class,
		pos:     pos,
		session: NullSession,
		timeout: w.tun.MobileTimeout,
		onDeath: onDeath,
	})
	m := &mobile{deathTime: w.tun.MobileDeathTime}
	e.v = m
	m.fsm = ai.New(e, w.terrain, ai.Params{
		ScanInterval:   w.tun.AI.ScanInterval,
		ScanRadius:     w.tun.AI.ScanRadius,
		MoveSpeed:      w.tun.AI.MoveSpeed,
		AttackDistance: w.tun.AI.AttackDistance,
		GiveUpDistance: w.tun.AI.GiveUpDistance,
	})
	if w.log.Core().Enabled(zap.DebugLevel) {
		id := e.id
		m.fsm.Trace = func(prev, next ai.State, exited bool) {
			from := "none"
			if prev != nil {
				from = prev.Kind().String()
			}
			w.log.Debug("ai transition",
				zap.Uint64("id", id),
				zap.String("from", from),
				zap.String("to", next.Kind().String()),
				zap.Bool("exited", exited),
			)
		}
	}
	return e
}
