package action

import "testing"

func TestAction_FiresOnceWhenCrossingFireTime(t *testing.T) {
	fired := 0
	a := New(0.5, 1.0, func() { fired++ })

	a.Update(0.25)
	if fired != 0 {
		t.Fatalf("fired before fire time: %d", fired)
	}
	a.Update(0.25) // elapsed == fireAt, not past it yet
	if fired != 0 {
		t.Fatalf("fired at exactly fire time: %d", fired)
	}
	a.Update(0.01)
	if fired != 1 {
		t.Fatalf("fired=%d want 1", fired)
	}
	for i := 0; i < 10; i++ {
		a.Update(0.1)
	}
	if fired != 1 {
		t.Fatalf("fired again after crossing: %d", fired)
	}
}

func TestAction_SingleLargeStepFires(t *testing.T) {
	fired := 0
	a := New(0.3, 1.0, func() { fired++ })
	a.Update(5.0)
	if fired != 1 {
		t.Fatalf("fired=%d want 1", fired)
	}
	if !a.Finished() {
		t.Fatalf("expected finished after a step past the cooldown")
	}
}

func TestAction_FinishedOnlyAfterCooldown(t *testing.T) {
	a := New(0.1, 1.0, nil)
	a.Update(0.5)
	if a.Finished() {
		t.Fatalf("finished too early at %.2f", a.Elapsed())
	}
	a.Update(0.5)
	if a.Finished() {
		t.Fatalf("finished at exactly the cooldown (%.2f)", a.Elapsed())
	}
	a.Update(0.001)
	if !a.Finished() {
		t.Fatalf("expected finished at %.3f", a.Elapsed())
	}
}

func TestAction_ZeroFireTimeFiresOnFirstPositiveStep(t *testing.T) {
	fired := 0
	a := New(0, 0.5, func() { fired++ })
	a.Update(0)
	if fired != 0 {
		t.Fatalf("zero step should not fire")
	}
	a.Update(0.016)
	if fired != 1 {
		t.Fatalf("fired=%d want 1", fired)
	}
}
