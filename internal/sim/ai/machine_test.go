package ai

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"realmcore/internal/protocol"
)

type fakeTarget struct {
	id      uint64
	pos     mgl64.Vec3
	health  float64
	tracked bool
	bound   bool
}

func (t *fakeTarget) ID() uint64           { return t.id }
func (t *fakeTarget) Position() mgl64.Vec3 { return t.pos }
func (t *fakeTarget) Health() float64      { return t.health }
func (t *fakeTarget) Tracked() bool        { return t.tracked }
func (t *fakeTarget) SessionBound() bool   { return t.bound }

type fakeActor struct {
	pos     mgl64.Vec3
	rot     mgl64.Quat
	state   protocol.EntityState
	nearby  []Target
	attacks int
	active  bool
}

func (a *fakeActor) Position() mgl64.Vec3            { return a.pos }
func (a *fakeActor) SetPosition(p mgl64.Vec3)        { a.pos = p }
func (a *fakeActor) SetRotation(q mgl64.Quat)        { a.rot = q }
func (a *fakeActor) SetState(s protocol.EntityState) { a.state = s }
func (a *fakeActor) Nearby(float64) []Target         { return a.nearby }
func (a *fakeActor) ActionActive() bool              { return a.active }
func (a *fakeActor) StartAttack() {
	a.attacks++
	a.active = true
}

type flat float64

func (f flat) HeightAt(float64, float64) float64 { return float64(f) }

func live(id uint64, pos mgl64.Vec3) *fakeTarget {
	return &fakeTarget{id: id, pos: pos, health: 100, tracked: true, bound: true}
}

func TestIdle_ScansOnlyAfterInterval(t *testing.T) {
	a := &fakeActor{nearby: []Target{live(2, mgl64.Vec3{0, 0, 30})}}
	m := New(a, flat(0), DefaultParams())

	m.Update(5.0)
	if m.State().Kind() != KindIdle {
		t.Fatalf("scan must wait until the timer exceeds the interval")
	}
	if a.state != protocol.StateIdle {
		t.Fatalf("state=%s want idle", a.state)
	}
	m.Update(0.01)
	f, ok := m.State().(*FollowToAttack)
	if !ok {
		t.Fatalf("expected FollowToAttack, got %s", m.State().Kind())
	}
	if f.Target().ID() != 2 {
		t.Fatalf("target=%d", f.Target().ID())
	}
}

func TestIdle_IgnoresDeadAndUnboundCandidates(t *testing.T) {
	dead := live(2, mgl64.Vec3{})
	dead.health = 0
	mob := live(3, mgl64.Vec3{})
	mob.bound = false
	a := &fakeActor{nearby: []Target{dead, mob}}
	m := New(a, flat(0), DefaultParams())

	m.Update(6)
	idle, ok := m.State().(*Idle)
	if !ok {
		t.Fatalf("expected Idle, got %s", m.State().Kind())
	}
	if idle.Timer() != 0 {
		t.Fatalf("timer should reset after a scan, got %v", idle.Timer())
	}

	player := live(4, mgl64.Vec3{})
	a.nearby = append(a.nearby, player)
	m.Update(6)
	if f, ok := m.State().(*FollowToAttack); !ok || f.Target().ID() != 4 {
		t.Fatalf("expected to follow first living session-bound entity")
	}
}

func TestFollow_AttackBoundaryIsStrict(t *testing.T) {
	target := live(2, mgl64.Vec3{0, 0, 20})
	a := &fakeActor{}
	m := New(a, flat(0), DefaultParams())
	m.SetState(NewFollowToAttack(target))

	m.Update(1) // moves to z=10, distance exactly 10
	if m.State().Kind() != KindFollowToAttack {
		t.Fatalf("distance == 10 must not trigger attack, got %s", m.State().Kind())
	}
	if a.state != protocol.StateWalk {
		t.Fatalf("state=%s want walk", a.state)
	}
	if math.Abs(a.pos[2]-10) > 1e-9 {
		t.Fatalf("pos=%v", a.pos)
	}

	m.Update(0.5)
	if m.State().Kind() != KindIdleAttackDone {
		t.Fatalf("expected IdleAttackDone, got %s", m.State().Kind())
	}
	if a.attacks != 1 {
		t.Fatalf("attacks=%d", a.attacks)
	}
}

func TestFollow_GiveUpBoundaryIsStrict(t *testing.T) {
	target := live(2, mgl64.Vec3{0, 0, 110})
	a := &fakeActor{}
	m := New(a, flat(0), DefaultParams())
	m.SetState(NewFollowToAttack(target))

	m.Update(1) // distance exactly 100
	if m.State().Kind() != KindFollowToAttack {
		t.Fatalf("distance == 100 must not give up, got %s", m.State().Kind())
	}

	target.pos = mgl64.Vec3{0, 0, 111}
	m.Update(0)
	if m.State().Kind() != KindIdle {
		t.Fatalf("expected Idle past give-up distance, got %s", m.State().Kind())
	}
}

func TestFollow_TargetGoneOrDead(t *testing.T) {
	for _, mut := range []func(*fakeTarget){
		func(t *fakeTarget) { t.tracked = false },
		func(t *fakeTarget) { t.health = 0 },
	} {
		target := live(2, mgl64.Vec3{0, 0, 50})
		a := &fakeActor{}
		m := New(a, flat(0), DefaultParams())
		m.SetState(NewFollowToAttack(target))
		mut(target)
		m.Update(0.1)
		if m.State().Kind() != KindIdle {
			t.Fatalf("expected Idle, got %s", m.State().Kind())
		}
		if a.pos != (mgl64.Vec3{}) {
			t.Fatalf("must not move toward an invalid target: %v", a.pos)
		}
	}
}

func TestFollow_FacesTargetAndSnapsToTerrain(t *testing.T) {
	target := live(2, mgl64.Vec3{50, 30, 0})
	a := &fakeActor{}
	m := New(a, flat(7), DefaultParams())
	m.SetState(NewFollowToAttack(target))
	m.Update(0.5)

	if math.Abs(a.pos[0]-5) > 1e-9 || a.pos[2] != 0 {
		t.Fatalf("moved horizontally wrong: %v", a.pos)
	}
	if a.pos[1] != 7 {
		t.Fatalf("y=%v want terrain height 7", a.pos[1])
	}
	got := a.rot.Rotate(mgl64.Vec3{0, 0, 1})
	want := mgl64.Vec3{1, 0, 0}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-9 {
			t.Fatalf("rotation maps forward to %v", got)
		}
	}
}

func TestIdleAttackDone_WaitsForActionSlot(t *testing.T) {
	target := live(2, mgl64.Vec3{0, 0, 5})
	a := &fakeActor{active: true}
	m := New(a, flat(0), DefaultParams())
	m.SetState(NewIdleAttackDone(target))

	m.Update(0.1)
	if m.State().Kind() != KindIdleAttackDone || a.state != protocol.StateAttack {
		t.Fatalf("kind=%s state=%s", m.State().Kind(), a.state)
	}
	a.active = false
	m.Update(0.1)
	f, ok := m.State().(*FollowToAttack)
	if !ok || f.Target() != Target(target) {
		t.Fatalf("expected FollowToAttack on same target")
	}
}

func TestSetState_ExitOnlyOnKindChange(t *testing.T) {
	a := &fakeActor{}
	m := New(a, flat(0), DefaultParams())
	var exits []bool
	m.Trace = func(_, _ State, exited bool) { exits = append(exits, exited) }

	m.SetState(NewIdle())
	m.SetState(NewFollowToAttack(live(2, mgl64.Vec3{})))
	m.SetState(NewFollowToAttack(live(3, mgl64.Vec3{})))
	m.SetState(NewIdleAttackDone(live(3, mgl64.Vec3{})))

	want := []bool{false, true, false, true}
	if len(exits) != len(want) {
		t.Fatalf("exits=%v", exits)
	}
	for i := range want {
		if exits[i] != want[i] {
			t.Fatalf("exits=%v want %v", exits, want)
		}
	}
}
