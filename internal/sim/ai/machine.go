// Package ai drives non-player entities with a small closed set of behavior
// states. All methods run on the world goroutine.
package ai

import (
	"github.com/go-gl/mathgl/mgl64"

	"realmcore/internal/protocol"
)

type Kind uint8

const (
	KindIdle Kind = iota + 1
	KindFollowToAttack
	KindIdleAttackDone
)

func (k Kind) String() string {
	switch k {
	case KindIdle:
		return "idle"
	case KindFollowToAttack:
		return "follow_to_attack"
	case KindIdleAttackDone:
		return "idle_attack_done"
	}
	return "unknown"
}

// State is implemented only by the states in this package.
type State interface {
	Kind() Kind
	enter(m *Machine, prev State)
	exit(m *Machine)
	update(m *Machine, dt float64)
}

// Target is a non-owning view of another entity. It is revalidated on every
// update because the entity may die or despawn between ticks.
type Target interface {
	ID() uint64
	Position() mgl64.Vec3
	Health() float64
	// Tracked reports whether the entity still holds its spatial handle.
	Tracked() bool
	// SessionBound reports whether a live client session drives the entity.
	SessionBound() bool
}

// Actor is the entity a machine drives.
type Actor interface {
	Position() mgl64.Vec3
	SetPosition(p mgl64.Vec3)
	SetRotation(q mgl64.Quat)
	SetState(s protocol.EntityState)
	Nearby(radius float64) []Target
	StartAttack()
	ActionActive() bool
}

type Terrain interface {
	HeightAt(x, z float64) float64
}

type Params struct {
	ScanInterval   float64
	ScanRadius     float64
	MoveSpeed      float64
	AttackDistance float64
	GiveUpDistance float64
}

func DefaultParams() Params {
	return Params{
		ScanInterval:   5,
		ScanRadius:     50,
		MoveSpeed:      10,
		AttackDistance: 10,
		GiveUpDistance: 100,
	}
}

type Machine struct {
	actor   Actor
	terrain Terrain
	params  Params
	state   State

	// Trace, if set, observes every transition. exited is false when the
	// previous state had the same kind and was replaced without exit.
	Trace func(prev, next State, exited bool)
}

// New returns a machine in the Idle state.
func New(actor Actor, terrain Terrain, p Params) *Machine {
	m := &Machine{actor: actor, terrain: terrain, params: p}
	m.SetState(NewIdle())
	return m
}

func (m *Machine) State() State { return m.state }

// SetState replaces the current state. The previous state's exit hook only
// runs when its kind differs from next's.
func (m *Machine) SetState(next State) {
	prev := m.state
	exited := false
	if prev != nil && prev.Kind() != next.Kind() {
		prev.exit(m)
		exited = true
	}
	m.state = next
	next.enter(m, prev)
	if m.Trace != nil {
		m.Trace(prev, next, exited)
	}
}

func (m *Machine) Update(dt float64) {
	if m.state != nil {
		m.state.update(m, dt)
	}
}
