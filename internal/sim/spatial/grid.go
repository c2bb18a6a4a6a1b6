// Package spatial provides a uniform hash grid over the world's xz-plane.
//
// The grid is not safe for concurrent use; it is owned by the world loop.
package spatial

import (
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl64"
)

// Handle is an entry in the grid. Owner is the back-reference to whatever
// registered the handle.
type Handle[T any] struct {
	Owner T

	pos  mgl64.Vec2
	size mgl64.Vec2
	seq  uint64

	// Inclusive cell span currently occupied; valid while indexed.
	min, max   [2]int
	indexed    bool
	queryStamp uint64
}

// Position returns the handle's (x, z) coordinate.
func (h *Handle[T]) Position() mgl64.Vec2 { return h.pos }

// Size returns the footprint the handle was registered with.
func (h *Handle[T]) Size() mgl64.Vec2 { return h.size }

// Indexed reports whether the handle is still registered.
func (h *Handle[T]) Indexed() bool { return h != nil && h.indexed }

type Grid[T any] struct {
	boundsMin mgl64.Vec2
	boundsMax mgl64.Vec2
	dims      [2]int
	cells     map[[2]int][]*Handle[T]

	nextSeq   uint64
	queryTick uint64
	count     int
}

// NewGrid builds a grid covering [min, max] split into dims cells. Positions
// outside the bounds are clamped into the edge cells.
func NewGrid[T any](min, max mgl64.Vec2, dims [2]int) *Grid[T] {
	if dims[0] <= 0 {
		dims[0] = 1
	}
	if dims[1] <= 0 {
		dims[1] = 1
	}
	return &Grid[T]{
		boundsMin: min,
		boundsMax: max,
		dims:      dims,
		cells:     map[[2]int][]*Handle[T]{},
	}
}

// Len returns the number of registered handles.
func (g *Grid[T]) Len() int { return g.count }

// Insert registers owner at pos with the given footprint.
func (g *Grid[T]) Insert(pos, size mgl64.Vec2, owner T) *Handle[T] {
	g.nextSeq++
	h := &Handle[T]{Owner: owner, pos: pos, size: size, seq: g.nextSeq}
	g.index(h)
	return h
}

// Remove unregisters h. Removing an unindexed handle is a no-op.
func (g *Grid[T]) Remove(h *Handle[T]) {
	if !h.Indexed() {
		return
	}
	g.unindex(h)
}

// Update moves h to pos. Cells are only rewritten when the span changes.
func (g *Grid[T]) Update(h *Handle[T], pos mgl64.Vec2) {
	if !h.Indexed() {
		return
	}
	h.pos = pos
	lo, hi := g.span(pos, h.size)
	if lo == h.min && hi == h.max {
		return
	}
	g.unindex(h)
	g.index(h)
}

// QueryNear returns every handle whose position lies within radius of pos,
// in registration order. When the query covers more cells than are
// occupied, only the occupied cells are visited.
func (g *Grid[T]) QueryNear(pos mgl64.Vec2, radius float64) []*Handle[T] {
	g.queryTick++
	stamp := g.queryTick

	lo, hi := g.span(pos, mgl64.Vec2{radius * 2, radius * 2})
	r2 := radius * radius

	var out []*Handle[T]
	collect := func(cell []*Handle[T]) {
		for _, h := range cell {
			if h.queryStamp == stamp {
				continue
			}
			h.queryStamp = stamp
			d := h.pos.Sub(pos)
			if d.Dot(d) <= r2 {
				out = append(out, h)
			}
		}
	}
	if (hi[0]-lo[0]+1)*(hi[1]-lo[1]+1) > len(g.cells) {
		for k, cell := range g.cells {
			if k[0] >= lo[0] && k[0] <= hi[0] && k[1] >= lo[1] && k[1] <= hi[1] {
				collect(cell)
			}
		}
	} else {
		for x := lo[0]; x <= hi[0]; x++ {
			for z := lo[1]; z <= hi[1]; z++ {
				collect(g.cells[[2]int{x, z}])
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].seq < out[j].seq })
	return out
}

func (g *Grid[T]) index(h *Handle[T]) {
	h.min, h.max = g.span(h.pos, h.size)
	for x := h.min[0]; x <= h.max[0]; x++ {
		for z := h.min[1]; z <= h.max[1]; z++ {
			k := [2]int{x, z}
			g.cells[k] = append(g.cells[k], h)
		}
	}
	h.indexed = true
	g.count++
}

func (g *Grid[T]) unindex(h *Handle[T]) {
	for x := h.min[0]; x <= h.max[0]; x++ {
		for z := h.min[1]; z <= h.max[1]; z++ {
			k := [2]int{x, z}
			cell := g.cells[k]
			for i, c := range cell {
				if c == h {
					cell = append(cell[:i], cell[i+1:]...)
					break
				}
			}
			if len(cell) == 0 {
				delete(g.cells, k)
			} else {
				g.cells[k] = cell
			}
		}
	}
	h.indexed = false
	g.count--
}

func (g *Grid[T]) span(pos, size mgl64.Vec2) (lo, hi [2]int) {
	lo = g.cellIndex(mgl64.Vec2{pos[0] - size[0]/2, pos[1] - size[1]/2})
	hi = g.cellIndex(mgl64.Vec2{pos[0] + size[0]/2, pos[1] + size[1]/2})
	return lo, hi
}

func (g *Grid[T]) cellIndex(p mgl64.Vec2) [2]int {
	var out [2]int
	for i := 0; i < 2; i++ {
		extent := g.boundsMax[i] - g.boundsMin[i]
		if extent <= 0 {
			continue
		}
		t := (p[i] - g.boundsMin[i]) / extent
		c := int(math.Floor(t * float64(g.dims[i])))
		if c < 0 {
			c = 0
		}
		if c > g.dims[i]-1 {
			c = g.dims[i] - 1
		}
		out[i] = c
	}
	return out
}
