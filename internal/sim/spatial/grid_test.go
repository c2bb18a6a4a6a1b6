package spatial

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func newTestGrid() *Grid[string] {
	return NewGrid[string](mgl64.Vec2{-4000, -4000}, mgl64.Vec2{4000, 4000}, [2]int{1000, 1000})
}

func owners(hs []*Handle[string]) []string {
	out := make([]string, 0, len(hs))
	for _, h := range hs {
		out = append(out, h.Owner)
	}
	return out
}

func TestGrid_QueryNearFiltersByDistance(t *testing.T) {
	g := newTestGrid()
	size := mgl64.Vec2{10, 10}
	g.Insert(mgl64.Vec2{0, 0}, size, "a")
	g.Insert(mgl64.Vec2{30, 40}, size, "b") // distance 50
	g.Insert(mgl64.Vec2{31, 40}, size, "c") // just outside 50
	g.Insert(mgl64.Vec2{-2000, 0}, size, "far")

	got := owners(g.QueryNear(mgl64.Vec2{0, 0}, 50))
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("QueryNear: got %v want [a b]", got)
	}
}

func TestGrid_QueryOrderIsRegistrationOrder(t *testing.T) {
	g := newTestGrid()
	size := mgl64.Vec2{10, 10}
	g.Insert(mgl64.Vec2{20, 0}, size, "first")
	g.Insert(mgl64.Vec2{-20, 0}, size, "second")
	g.Insert(mgl64.Vec2{0, 5}, size, "third")

	got := owners(g.QueryNear(mgl64.Vec2{0, 0}, 100))
	want := []string{"first", "second", "third"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order: got %v want %v", got, want)
		}
	}
}

func TestGrid_UpdateAndRemove(t *testing.T) {
	g := newTestGrid()
	h := g.Insert(mgl64.Vec2{0, 0}, mgl64.Vec2{10, 10}, "a")

	g.Update(h, mgl64.Vec2{1000, 1000})
	if n := len(g.QueryNear(mgl64.Vec2{0, 0}, 50)); n != 0 {
		t.Fatalf("expected moved handle to leave origin, got %d", n)
	}
	if n := len(g.QueryNear(mgl64.Vec2{1000, 1000}, 1)); n != 1 {
		t.Fatalf("expected moved handle at new position, got %d", n)
	}

	g.Remove(h)
	if h.Indexed() {
		t.Fatalf("handle still indexed after Remove")
	}
	if g.Len() != 0 {
		t.Fatalf("Len=%d want 0", g.Len())
	}
	if n := len(g.QueryNear(mgl64.Vec2{1000, 1000}, 10)); n != 0 {
		t.Fatalf("removed handle still returned")
	}
	// Second remove and update on a removed handle are no-ops.
	g.Remove(h)
	g.Update(h, mgl64.Vec2{0, 0})
	if g.Len() != 0 {
		t.Fatalf("Len=%d after no-op calls", g.Len())
	}
}

func TestGrid_NoDuplicatesAcrossCells(t *testing.T) {
	g := newTestGrid()
	// A wide footprint spans many cells.
	g.Insert(mgl64.Vec2{0, 0}, mgl64.Vec2{100, 100}, "wide")
	got := g.QueryNear(mgl64.Vec2{0, 0}, 200)
	if len(got) != 1 {
		t.Fatalf("got %d handles, want 1", len(got))
	}
}

func TestGrid_OutOfBoundsClamped(t *testing.T) {
	g := newTestGrid()
	g.Insert(mgl64.Vec2{9000, 9000}, mgl64.Vec2{10, 10}, "edge")
	if n := len(g.QueryNear(mgl64.Vec2{9000, 9000}, 1)); n != 1 {
		t.Fatalf("expected clamped handle to be queryable, got %d", n)
	}
}

func TestGrid_QueryNearMatchesScanAtAnyRadius(t *testing.T) {
	g := newTestGrid()
	type entry struct {
		name string
		pos  mgl64.Vec2
	}
	var all []entry
	for i := 0; i < 60; i++ {
		p := mgl64.Vec2{float64((i*37)%97) - 48, float64((i*53)%89) - 44}
		name := string(rune('A'+i%26)) + string(rune('a'+i/26))
		g.Insert(p, mgl64.Vec2{1, 1}, name)
		all = append(all, entry{name, p})
	}

	for _, center := range []mgl64.Vec2{{0, 0}, {-30, 12}, {45, -40}} {
		for _, r := range []float64{3, 12, 40, 500} {
			var want []string
			for _, e := range all {
				d := e.pos.Sub(center)
				if d.Dot(d) <= r*r {
					want = append(want, e.name)
				}
			}
			got := owners(g.QueryNear(center, r))
			if len(got) != len(want) {
				t.Fatalf("center=%v r=%v: got %v want %v", center, r, got, want)
			}
			for i := range want {
				if got[i] != want[i] {
					t.Fatalf("center=%v r=%v: got %v want %v", center, r, got, want)
				}
			}
		}
	}
}
