package world

import (
	"fmt"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"

	"realmcore/internal/protocol"
	"realmcore/internal/sim/catalogs"
	"realmcore/internal/sim/spatial"
	"realmcore/internal/sim/terrain"
	"realmcore/internal/sim/tuning"
)

type Terrain interface {
	HeightAt(x, z float64) float64
}

type Config struct {
	Tuning   tuning.Tuning
	Catalogs *catalogs.Catalogs

	// Optional. Defaults: height field from Tuning.Terrain, no-op recorder,
	// nop logger, wall clock, time-seeded login placement.
	Terrain  Terrain
	Recorder Recorder
	Logger   *zap.Logger
	Clock    Clock
	Seed     int64
}

type World struct {
	tun     tuning.Tuning
	cats    *catalogs.Catalogs
	terrain Terrain
	grid    *spatial.Grid[*Entity]
	log     *zap.Logger
	rec     Recorder
	clock   Clock
	rng     *rand.Rand

	entities []*Entity
	byID     map[uint64]*Entity
	spawners []*Spawner
	nextID   uint64

	syncAccum float64

	ticks     uint64
	syncs     uint64
	kills     uint64
	respawns  uint64
	unhandled uint64
	lastDelta float64

	join  chan JoinRequest
	leave chan uint64
	inbox chan Inbound
	stop  chan struct{}

	stopOnce sync.Once
	metrics  atomic.Value // WorldMetrics
}

func New(cfg Config) (*World, error) {
	cfg.Tuning.ApplyDefaults()
	if cfg.Catalogs == nil {
		cfg.Catalogs = catalogs.Defaults()
	}
	for _, class := range append(append([]string{}, cfg.Tuning.Login.Classes...), cfg.Tuning.Spawns.Classes...) {
		if _, ok := cfg.Catalogs.Model(class); !ok {
			return nil, fmt.Errorf("world: class %q has no character model", class)
		}
	}
	if cfg.Terrain == nil {
		t := cfg.Tuning.Terrain
		cfg.Terrain = terrain.NewHeightGenerator(terrain.Params{
			Seed:        t.Seed,
			Octaves:     t.Octaves,
			Persistence: t.Persistence,
			Lacunarity:  t.Lacunarity,
			Scale:       t.Scale,
			Height:      t.Height,
			Exponent:    t.Exponent,
		})
	}
	if cfg.Recorder == nil {
		cfg.Recorder = nopRecorder{}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Clock == nil {
		cfg.Clock = SystemClock{}
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}

	g := cfg.Tuning.Grid
	w := &World{
		tun:     cfg.Tuning,
		cats:    cfg.Catalogs,
		terrain: cfg.Terrain,
		grid:    spatial.NewGrid[*Entity](mgl64.Vec2{g.Min[0], g.Min[1]}, mgl64.Vec2{g.Max[0], g.Max[1]}, g.Dims),
		log:     cfg.Logger,
		rec:     cfg.Recorder,
		clock:   cfg.Clock,
		rng:     newRand(cfg.Seed),
		byID:    map[uint64]*Entity{},
		join:    make(chan JoinRequest, 256),
		leave:   make(chan uint64, 1024),
		inbox:   make(chan Inbound, 4096),
		stop:    make(chan struct{}),
	}
	return w, nil
}

func newRand(seed int64) *rand.Rand {
	return rand.New(rand.NewPCG(uint64(seed), uint64(seed)^0x9e3779b97f4a7c15))
}

// Update runs one tick: AOI sync (gated), entity updates with the death
// sweep, then spawners. The order is part of the contract.
func (w *World) Update(dt float64) {
	w.lastDelta = dt
	w.updateClientState(dt)
	w.updateEntities(dt)
	w.updateSpawners()
	w.ticks++
}

func (w *World) updateClientState(dt float64) {
	w.syncAccum += dt
	if w.syncAccum < w.tun.SyncInterval {
		return
	}
	w.syncAccum = 0
	w.syncs++

	for _, e := range w.entities {
		e.v.syncClientState(e)
	}
	for _, e := range w.entities {
		e.events = e.events[:0]
	}
}

func (w *World) updateEntities(dt float64) {
	var dead []*Entity
	alive := make([]*Entity, 0, len(w.entities))
	for _, e := range w.entities {
		e.Update(dt)
		if e.IsDead() {
			dead = append(dead, e)
		} else {
			alive = append(alive, e)
		}
	}
	w.entities = alive

	for _, d := range dead {
		delete(w.byID, d.id)
		d.destroy()
		if d.onDeath != nil {
			d.onDeath(d)
		}
	}
}

func (w *World) addEntity(e *Entity) {
	w.entities = append(w.entities, e)
	w.byID[e.id] = e
}

// SpawnPlayer adds a session-driven entity and announces it to nearby entities.
func (w *World) SpawnPlayer(name, class string, pos mgl64.Vec3, s Session) (*Entity, error) {
	if _, ok := w.cats.Model(class); !ok {
		return nil, fmt.Errorf("spawn player: unknown class %q", class)
	}
	e := newEntity(w, entityParams{
		name:    name,
		class:   class,
		pos:     pos,
		session: s,
		timeout: w.tun.PlayerTimeout,
		onDeath: w.onPlayerGone,
	})
	e.v = &player{nearbyCache: map[uint64]struct{}{}}
	w.addEntity(e)
	w.rec.Record(e.record(RecordLogin))

	e.broadcastChat(protocol.ChatMessage{
		Name:   "",
		Server: true,
		Text:   "[" + name + " has entered the game]",
	})
	return e, nil
}

// Login places a new player near the login center with a random starting
// class, snapped to the terrain.
func (w *World) Login(name string, s Session) (*Entity, error) {
	lc := w.tun.Login
	class := lc.Classes[w.rng.IntN(len(lc.Classes))]
	x := lc.Center[0] + (w.rng.Float64()*2-1)*lc.Spread
	z := lc.Center[1] + (w.rng.Float64()*2-1)*lc.Spread
	pos := mgl64.Vec3{x, w.terrain.HeightAt(x, z), z}

	e, err := w.SpawnPlayer(name, class, pos, s)
	if err != nil {
		return nil, err
	}
	w.log.Info("player login", zap.String("name", name), zap.String("class", class), zap.Uint64("id", e.id))
	return e, nil
}

func (w *World) onPlayerGone(e *Entity) {
	w.log.Info("player despawned", zap.String("name", e.name), zap.Uint64("id", e.id))
	w.rec.Record(e.record(RecordDespawn))
}

// Detach drops an entity's session after its connection closed. The entity
// stays in the world until its inactivity timeout runs out.
func (w *World) Detach(id uint64) {
	e := w.byID[id]
	if e == nil || !e.SessionBound() {
		return
	}
	e.session = NullSession
	w.rec.Record(e.record(RecordDisconnect))
	w.log.Info("session detached", zap.String("name", e.name), zap.Uint64("id", id))
}

// Dispatch routes one inbound message to its entity.
func (w *World) Dispatch(id uint64, event string, data []byte) bool {
	e := w.byID[id]
	if e == nil {
		w.log.Debug("message for unknown entity", zap.Uint64("id", id), zap.String("event", event))
		return false
	}
	if !e.OnMessage(event, data) {
		w.unhandled++
		w.log.Warn("unknown message", zap.Uint64("id", id), zap.String("event", event))
		return false
	}
	return true
}

// Entity returns the live entity with id, or nil.
func (w *World) Entity(id uint64) *Entity { return w.byID[id] }

// Entities returns the registry in insertion order. The slice must not be
// modified.
func (w *World) Entities() []*Entity { return w.entities }

func (w *World) Spawners() []*Spawner { return w.spawners }

func (w *World) Terrain() Terrain { return w.terrain }

func (w *World) Catalogs() *catalogs.Catalogs { return w.cats }
