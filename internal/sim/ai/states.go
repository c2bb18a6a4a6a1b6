package ai

import (
	"github.com/go-gl/mathgl/mgl64"

	"realmcore/internal/protocol"
)

var forward = mgl64.Vec3{0, 0, 1}

// Idle waits and periodically scans for something to attack.
type Idle struct {
	timer float64
}

func NewIdle() *Idle { return &Idle{} }

func (s *Idle) Kind() Kind            { return KindIdle }
func (s *Idle) Timer() float64        { return s.timer }
func (s *Idle) enter(*Machine, State) { s.timer = 0 }
func (s *Idle) exit(*Machine)         {}

func (s *Idle) update(m *Machine, dt float64) {
	s.timer += dt
	m.actor.SetState(protocol.StateIdle)
	if s.timer <= m.params.ScanInterval {
		return
	}
	s.timer = 0
	for _, t := range m.actor.Nearby(m.params.ScanRadius) {
		if t.Health() > 0 && t.SessionBound() {
			m.SetState(NewFollowToAttack(t))
			return
		}
	}
}

// FollowToAttack walks toward a target until it is in reach.
type FollowToAttack struct {
	target Target
}

func NewFollowToAttack(t Target) *FollowToAttack { return &FollowToAttack{target: t} }

func (s *FollowToAttack) Kind() Kind            { return KindFollowToAttack }
func (s *FollowToAttack) Target() Target        { return s.target }
func (s *FollowToAttack) enter(*Machine, State) {}
func (s *FollowToAttack) exit(*Machine)         {}

func (s *FollowToAttack) update(m *Machine, dt float64) {
	if !s.target.Tracked() || s.target.Health() == 0 {
		m.SetState(NewIdle())
		return
	}
	m.actor.SetState(protocol.StateWalk)

	pos := m.actor.Position()
	dir := s.target.Position().Sub(pos)
	dir[1] = 0
	if l := dir.Len(); l > 0 {
		dir = dir.Mul(1 / l)
		m.actor.SetRotation(mgl64.QuatBetweenVectors(forward, dir))
		pos = pos.Add(dir.Mul(dt * m.params.MoveSpeed))
	}
	pos[1] = m.terrain.HeightAt(pos[0], pos[2])
	m.actor.SetPosition(pos)

	dist := pos.Sub(s.target.Position()).Len()
	switch {
	case dist < m.params.AttackDistance:
		m.actor.StartAttack()
		m.SetState(NewIdleAttackDone(s.target))
	case dist > m.params.GiveUpDistance:
		m.SetState(NewIdle())
	}
}

// IdleAttackDone holds the attack pose until the action slot frees up.
type IdleAttackDone struct {
	target Target
}

func NewIdleAttackDone(t Target) *IdleAttackDone { return &IdleAttackDone{target: t} }

func (s *IdleAttackDone) Kind() Kind            { return KindIdleAttackDone }
func (s *IdleAttackDone) Target() Target        { return s.target }
func (s *IdleAttackDone) enter(*Machine, State) {}
func (s *IdleAttackDone) exit(*Machine)         {}

func (s *IdleAttackDone) update(m *Machine, _ float64) {
	m.actor.SetState(protocol.StateAttack)
	if !m.actor.ActionActive() {
		m.SetState(NewFollowToAttack(s.target))
	}
}
