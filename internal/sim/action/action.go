// Package action implements timed, single-fire cooldowns used by combat.
package action

// Action occupies its owner for Cooldown seconds and invokes its fire
// callback exactly once, on the update where elapsed time first passes FireAt.
type Action struct {
	fireAt   float64
	cooldown float64
	elapsed  float64
	onFire   func()
}

// New returns an action that fires at fireAt seconds and finishes after
// cooldown seconds. A nil onFire is allowed.
func New(fireAt, cooldown float64, onFire func()) *Action {
	return &Action{fireAt: fireAt, cooldown: cooldown, onFire: onFire}
}

func (a *Action) FireAt() float64   { return a.fireAt }
func (a *Action) Cooldown() float64 { return a.cooldown }
func (a *Action) Elapsed() float64  { return a.elapsed }

// Finished reports whether the full cooldown has passed.
func (a *Action) Finished() bool {
	return a.elapsed > a.cooldown
}

// Update advances the action by dt seconds.
func (a *Action) Update(dt float64) {
	prev := a.elapsed
	a.elapsed += dt

	if a.elapsed > a.fireAt && prev <= a.fireAt && a.onFire != nil {
		a.onFire()
	}
}
