package world

import (
	"maps"

	"github.com/go-gl/mathgl/mgl64"

	"realmcore/internal/protocol"
	"realmcore/internal/sim/action"
	"realmcore/internal/sim/ai"
	"realmcore/internal/sim/catalogs"
	"realmcore/internal/sim/spatial"
)

// variant is the behavior that differs between player and mobile entities.
type variant interface {
	update(e *Entity, dt float64)
	syncClientState(e *Entity)
	isDead(e *Entity) bool
}

// Entity is a player or mobile in the world. It is owned by the world
// goroutine; nothing here is safe for concurrent use.
type Entity struct {
	w *World

	id    uint64
	name  string
	class string
	model catalogs.CharacterModel

	pos   mgl64.Vec3
	rot   mgl64.Quat
	state protocol.EntityState

	stats     catalogs.Stats
	inventory map[string]string

	handle  *spatial.Handle[*Entity]
	session Session

	action      *action.Action
	events      []protocol.EntityEvent
	timeout     float64
	idleTimeout float64

	onDeath func(e *Entity)
	v       variant
}

type entityParams struct {
	name    string
	class   string
	pos     mgl64.Vec3
	session Session
	timeout float64
	onDeath func(e *Entity)
}

func newEntity(w *World, p entityParams) *Entity {
	model, _ := w.cats.Model(p.class)
	w.nextID++
	e := &Entity{
		w:           w,
		id:          w.nextID,
		name:        p.name,
		class:       p.class,
		model:       model,
		pos:         p.pos,
		rot:         mgl64.QuatIdent(),
		state:       protocol.StateIdle,
		stats:       model.Stats,
		inventory:   maps.Clone(model.Inventory),
		session:     p.session,
		timeout:     p.timeout,
		idleTimeout: p.timeout,
		onDeath:     p.onDeath,
		events:      []protocol.EntityEvent{},
	}
	if e.name == "" {
		e.name = model.Name
	}
	if e.inventory == nil {
		e.inventory = map[string]string{}
	}
	if e.session == nil {
		e.session = NullSession
	}
	size := w.tun.ClientSize
	e.handle = w.grid.Insert(xz(e.pos), mgl64.Vec2{size, size}, e)

	e.session.Send(protocol.EventWorldPlayer, e.playerPacket())
	e.session.Send(protocol.EventWorldStats, e.statsPacket())
	return e
}

func xz(p mgl64.Vec3) mgl64.Vec2 { return mgl64.Vec2{p[0], p[2]} }

func (e *Entity) ID() uint64                  { return e.id }
func (e *Entity) Name() string                { return e.name }
func (e *Entity) Class() string               { return e.class }
func (e *Entity) Position() mgl64.Vec3        { return e.pos }
func (e *Entity) Rotation() mgl64.Quat        { return e.rot }
func (e *Entity) State() protocol.EntityState { return e.state }
func (e *Entity) Stats() catalogs.Stats       { return e.stats }
func (e *Entity) Health() float64             { return e.stats.Health }
func (e *Entity) Inventory() map[string]string {
	return maps.Clone(e.inventory)
}
func (e *Entity) Events() []protocol.EntityEvent { return e.events }
func (e *Entity) ActionActive() bool             { return e.action != nil }

// Tracked reports whether the entity still holds its spatial handle.
func (e *Entity) Tracked() bool { return e.handle.Indexed() }

// SessionBound reports whether a live client drives the entity.
func (e *Entity) SessionBound() bool { return !isNullSession(e.session) }

func (e *Entity) IsPlayer() bool {
	_, ok := e.v.(*player)
	return ok
}

func (e *Entity) IsDead() bool { return e.v.isDead(e) }

// SetState changes the state tag unless the entity is dead. Death is terminal.
func (e *Entity) SetState(s protocol.EntityState) {
	if e.state != protocol.StateDeath {
		e.state = s
	}
}

func (e *Entity) SetPosition(p mgl64.Vec3) {
	e.pos = p
	e.updateHandle()
}

func (e *Entity) SetRotation(q mgl64.Quat) { e.rot = q }

func (e *Entity) updateHandle() {
	if e.handle.Indexed() {
		e.w.grid.Update(e.handle, xz(e.pos))
	}
}

// nearby returns entities whose handles lie within radius on the xz plane,
// in registration order.
func (e *Entity) nearby(radius float64, includeSelf bool) []*Entity {
	hs := e.w.grid.QueryNear(xz(e.pos), radius)
	out := make([]*Entity, 0, len(hs))
	for _, h := range hs {
		if !includeSelf && h.Owner == e {
			continue
		}
		out = append(out, h.Owner)
	}
	return out
}

// Nearby satisfies ai.Actor.
func (e *Entity) Nearby(radius float64) []ai.Target {
	ns := e.nearby(radius, false)
	out := make([]ai.Target, len(ns))
	for i, n := range ns {
		out[i] = n
	}
	return out
}

// Update advances the entity by dt seconds.
func (e *Entity) Update(dt float64) {
	e.timeout -= dt
	e.updateActions(dt)
	e.v.update(e, dt)
}

// destroy releases the spatial handle and disconnects the session.
func (e *Entity) destroy() {
	if !isNullSession(e.session) {
		e.session.Disconnect()
		e.session = NullSession
	}
	if e.handle.Indexed() {
		e.w.grid.Remove(e.handle)
	}
}

func (e *Entity) description() protocol.Description {
	return protocol.Description{
		Account: protocol.Account{Name: e.name},
		Character: protocol.Character{
			Class:     e.class,
			Inventory: maps.Clone(e.inventory),
		},
	}
}

func (e *Entity) transformPacket() protocol.Transform {
	return protocol.Transform{
		State:    e.state,
		Position: [3]float64{e.pos[0], e.pos[1], e.pos[2]},
		Rotation: [4]float64{e.rot.V[0], e.rot.V[1], e.rot.V[2], e.rot.W},
	}
}

func (e *Entity) playerPacket() protocol.PlayerPacket {
	return protocol.PlayerPacket{ID: e.id, Desc: e.description(), Transform: e.transformPacket()}
}

func (e *Entity) statsPacket() protocol.StatsPacket {
	return protocol.StatsPacket{ID: e.id, Stats: protocol.Stats(e.stats)}
}

func (e *Entity) eventsPacket() []protocol.EntityEvent {
	return append([]protocol.EntityEvent{}, e.events...)
}

func (e *Entity) record(kind RecordKind) Record {
	return Record{
		Kind:     kind,
		Time:     e.w.clock.Now(),
		EntityID: e.id,
		Name:     e.name,
		Class:    e.class,
		Pos:      [3]float64{e.pos[0], e.pos[1], e.pos[2]},
	}
}
