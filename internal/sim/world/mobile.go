package world

import "realmcore/internal/sim/ai"

// mobile is the AI-driven variant. Once its health reaches zero the behavior
// machine stops and a death-grace timer runs until the entity is swept.
type mobile struct {
	fsm        *ai.Machine
	deathTimer float64
	deathTime  float64
}

func (m *mobile) update(e *Entity, dt float64) {
	if e.stats.Health > 0 {
		m.fsm.Update(dt)
		return
	}
	m.deathTimer += dt
}

func (m *mobile) isDead(*Entity) bool { return m.deathTimer >= m.deathTime }

func (m *mobile) syncClientState(*Entity) {}
