// Package terrain generates the deterministic ground height field.
package terrain

import "math"

type Params struct {
	Seed        int64
	Octaves     int
	Persistence float64
	Lacunarity  float64
	Scale       float64 // world units per base noise cell
	Height      float64 // peak height
	Exponent    float64
}

func (p *Params) applyDefaults() {
	if p.Octaves <= 0 {
		p.Octaves = 6
	}
	if p.Persistence <= 0 {
		p.Persistence = 0.5
	}
	if p.Lacunarity <= 0 {
		p.Lacunarity = 2.0
	}
	if p.Scale <= 0 {
		p.Scale = 1024
	}
	if p.Height == 0 {
		p.Height = 64
	}
	if p.Exponent <= 0 {
		p.Exponent = 1
	}
}

// HeightGenerator maps (x, z) to a ground height using fractal value noise.
// It is immutable after construction and safe for concurrent reads.
type HeightGenerator struct {
	p Params
}

func NewHeightGenerator(p Params) *HeightGenerator {
	p.applyDefaults()
	return &HeightGenerator{p: p}
}

// Flat is a terrain with constant height.
type Flat float64

func (f Flat) HeightAt(x, z float64) float64 { return float64(f) }

func (g *HeightGenerator) HeightAt(x, z float64) float64 {
	amp := 1.0
	freq := 1.0
	total := 0.0
	norm := 0.0
	for o := 0; o < g.p.Octaves; o++ {
		nx := x / g.p.Scale * freq
		nz := z / g.p.Scale * freq
		total += valueNoise(g.p.Seed+int64(o)*7919, nx, nz) * amp
		norm += amp
		amp *= g.p.Persistence
		freq *= g.p.Lacunarity
	}
	if norm == 0 {
		return 0
	}
	v := total / norm // 0..1
	return math.Pow(v, g.p.Exponent) * g.p.Height
}

func valueNoise(seed int64, x, z float64) float64 {
	x0 := math.Floor(x)
	z0 := math.Floor(z)
	fx := smooth(x - x0)
	fz := smooth(z - z0)
	ix, iz := int(x0), int(z0)

	v00 := lattice(seed, ix, iz)
	v10 := lattice(seed, ix+1, iz)
	v01 := lattice(seed, ix, iz+1)
	v11 := lattice(seed, ix+1, iz+1)

	a := lerp(v00, v10, fx)
	b := lerp(v01, v11, fx)
	return lerp(a, b, fz)
}

func lattice(seed int64, x, z int) float64 {
	return float64(hash2(seed, x, z)>>11) / float64(1<<53)
}

func smooth(t float64) float64 { return t * t * (3 - 2*t) }

func lerp(a, b, t float64) float64 { return a + (b-a)*t }

func mix64(z uint64) uint64 {
	z += 0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

func hash2(seed int64, x, z int) uint64 {
	ux := uint64(uint32(int32(x)))
	uz := uint64(uint32(int32(z)))
	v := uint64(seed) ^ (ux * 0x9e3779b97f4a7c15) ^ (uz * 0xbf58476d1ce4e5b9)
	return mix64(v)
}
