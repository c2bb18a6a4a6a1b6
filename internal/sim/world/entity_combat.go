package world

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"

	"realmcore/internal/protocol"
	"realmcore/internal/sim/action"
	"realmcore/internal/sim/catalogs"
)

// Facing cone bounds on dot(forward, dirToTarget). Unit vectors never exceed
// 1, so the effective rule is dot >= coneMinDot.
const (
	coneMinDot = 0.9
	coneMaxDot = 1.1
)

var forwardAxis = mgl64.Vec3{0, 0, 1}

// StartAttack begins an attack action. It is a no-op while one is active.
func (e *Entity) StartAttack() {
	if e.action != nil {
		return
	}
	atk := e.model.Attack
	e.action = action.New(atk.Timing, atk.Cooldown, e.fireAttack)
}

func (e *Entity) updateActions(dt float64) {
	if e.action == nil {
		if e.state == protocol.StateAttack {
			e.SetState(protocol.StateIdle)
		}
		return
	}
	e.action.Update(dt)
	if e.action.Finished() {
		e.action = nil
		e.SetState(protocol.StateIdle)
	}
}

func (e *Entity) fireAttack() {
	atk := e.model.Attack
	for _, t := range e.nearby(e.w.tun.AttackQueryRadius, false) {
		if t.stats.Health == 0 {
			continue
		}
		if t.pos.Sub(e.pos).Len() > atk.Range {
			continue
		}
		if !e.facing(t.pos) {
			continue
		}
		dmg := e.damage()
		e.w.log.Debug("attack hit",
			zap.String("attacker", e.name),
			zap.String("target", t.name),
			zap.Float64("damage", dmg),
		)
		t.OnDamage(e, dmg)
	}
}

// facing reports whether p lies inside the attacker's forward cone.
func (e *Entity) facing(p mgl64.Vec3) bool {
	dir := p.Sub(e.pos)
	l := dir.Len()
	if l == 0 {
		return false
	}
	dir = dir.Mul(1 / l)
	fwd := e.rot.Rotate(forwardAxis)
	if fl := fwd.Len(); fl > 0 {
		fwd = fwd.Mul(1 / fl)
	}
	dot := fwd.Dot(dir)
	return !(dot < coneMinDot || dot > coneMaxDot)
}

// damage is the amount a single hit from e deals.
func (e *Entity) damage() float64 {
	if e.model.Attack.Type != catalogs.AttackMelee {
		return e.stats.Wisdomness / 10.0
	}
	dmg := e.stats.Strength / 5.0
	if id := e.inventory[catalogs.PrimaryEquipSlot]; id != "" {
		if w, ok := e.w.cats.Weapons[id]; ok {
			dmg *= w.Damage * 10
		}
	}
	return dmg
}

// OnDamage applies dmg from attacker. Health clamps at zero and reaching it
// forces the death state.
func (e *Entity) OnDamage(attacker *Entity, dmg float64) {
	e.stats.Health = math.Max(0, e.stats.Health-dmg)
	e.events = append(e.events, protocol.EntityEvent{
		Type:     protocol.EntityEventAttack,
		Target:   e.id,
		Attacker: attacker.id,
		Amount:   dmg,
	})

	r := e.record(RecordDamage)
	r.OtherID, r.OtherName, r.Amount = attacker.id, attacker.name, dmg
	e.w.rec.Record(r)

	if e.stats.Health <= 0 && e.state != protocol.StateDeath {
		e.SetState(protocol.StateDeath)
		e.w.kills++
		e.w.log.Info("entity died", zap.Uint64("id", e.id), zap.String("name", e.name), zap.String("killer", attacker.name))
		r := e.record(RecordDeath)
		r.OtherID, r.OtherName = attacker.id, attacker.name
		e.w.rec.Record(r)
	}
}
