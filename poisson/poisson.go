// Package poisson generates blue-noise point sets in 3-D boxes with
// Bridson's dart throwing on a background acceleration grid.
package poisson

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/spatial/r3"
)

// DefaultAttempts is the number of candidates tried around each active
// sample before it retires.
const DefaultAttempts = 30

// Sampler fills the box [0, Size) with points no closer than 2·Radius.
type Sampler struct {
	Size     r3.Vec
	Radius   float64
	Attempts int

	rng *rand.Rand
}

// New creates a sampler with a deterministic seed.
func New(size r3.Vec, radius float64, seed uint64) *Sampler {
	return &Sampler{
		Size:     size,
		Radius:   radius,
		Attempts: DefaultAttempts,
		rng:      rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// MinDistance returns the guaranteed separation between samples.
func (s *Sampler) MinDistance() float64 { return 2 * s.Radius }

type background struct {
	cell  float64
	dims  [3]int
	slots []int32
}

func (b *background) coords(p r3.Vec) [3]int {
	return [3]int{
		min(int(p.X/b.cell), b.dims[0]-1),
		min(int(p.Y/b.cell), b.dims[1]-1),
		min(int(p.Z/b.cell), b.dims[2]-1),
	}
}

func (b *background) index(c [3]int) int {
	return c[0] + b.dims[0]*(c[1]+b.dims[1]*c[2])
}

// Generate returns the samples. A degenerate box or radius yields none.
func (s *Sampler) Generate() []r3.Vec {
	d := s.MinDistance()
	if !(d > 0) || !(s.Size.X > 0) || !(s.Size.Y > 0) || !(s.Size.Z > 0) {
		return nil
	}
	attempts := s.Attempts
	if attempts <= 0 {
		attempts = DefaultAttempts
	}

	// A cell diagonal of d holds at most one sample.
	bg := &background{cell: d / math.Sqrt(3)}
	bg.dims = [3]int{
		max(int(math.Ceil(s.Size.X/bg.cell)), 1),
		max(int(math.Ceil(s.Size.Y/bg.cell)), 1),
		max(int(math.Ceil(s.Size.Z/bg.cell)), 1),
	}
	bg.slots = make([]int32, bg.dims[0]*bg.dims[1]*bg.dims[2])
	for i := range bg.slots {
		bg.slots[i] = -1
	}

	var samples []r3.Vec
	var active []int32
	add := func(p r3.Vec) {
		idx := int32(len(samples))
		samples = append(samples, p)
		active = append(active, idx)
		bg.slots[bg.index(bg.coords(p))] = idx
	}

	add(r3.Vec{
		X: s.rng.Float64() * s.Size.X,
		Y: s.rng.Float64() * s.Size.Y,
		Z: s.rng.Float64() * s.Size.Z,
	})

	for len(active) > 0 {
		ai := s.rng.IntN(len(active))
		center := samples[active[ai]]

		found := false
		for k := 0; k < attempts; k++ {
			cand := r3.Add(center, r3.Scale(d*(1+s.rng.Float64()), s.direction()))
			if !s.inside(cand) || !s.free(bg, samples, cand, d) {
				continue
			}
			add(cand)
			found = true
			break
		}
		if !found {
			active[ai] = active[len(active)-1]
			active = active[:len(active)-1]
		}
	}
	return samples
}

// direction returns a uniformly distributed unit vector.
func (s *Sampler) direction() r3.Vec {
	for {
		v := r3.Vec{X: s.rng.NormFloat64(), Y: s.rng.NormFloat64(), Z: s.rng.NormFloat64()}
		if n := r3.Norm(v); n > 1e-9 {
			return r3.Scale(1/n, v)
		}
	}
}

func (s *Sampler) inside(p r3.Vec) bool {
	return p.X >= 0 && p.Y >= 0 && p.Z >= 0 &&
		p.X < s.Size.X && p.Y < s.Size.Y && p.Z < s.Size.Z
}

// free reports whether no existing sample lies within d of p. Samples
// within d are at most two cells away on each axis.
func (s *Sampler) free(bg *background, samples []r3.Vec, p r3.Vec, d float64) bool {
	c := bg.coords(p)
	d2 := d * d
	for z := max(c[2]-2, 0); z <= min(c[2]+2, bg.dims[2]-1); z++ {
		for y := max(c[1]-2, 0); y <= min(c[1]+2, bg.dims[1]-1); y++ {
			for x := max(c[0]-2, 0); x <= min(c[0]+2, bg.dims[0]-1); x++ {
				slot := bg.slots[bg.index([3]int{x, y, z})]
				if slot >= 0 && r3.Norm2(r3.Sub(samples[slot], p)) < d2 {
					return false
				}
			}
		}
	}
	return true
}
