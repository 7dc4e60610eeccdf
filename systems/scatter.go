package systems

import (
	"slices"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/mpm/grid"
)

// BlockSize is the edge length, in cells, of a scatter block.
const BlockSize = 4

const (
	numColors   = 8
	blockBits   = 20
	blockOffset = 1 << (blockBits - 1)
	blockMask   = 1<<blockBits - 1
)

// span is a contiguous run of particles in ScatterPlan.order.
type span struct {
	start, end int
}

// ScatterPlan orders particles so that particle-to-grid writes can run in
// parallel without locks.
//
// Particles are bucketed by the block containing their stencil base node.
// A stencil reaches at most base+2, so blocks whose coordinates share
// parity on every axis are at least BlockSize cells apart and never write
// the same node. Blocks of one color run in parallel, colors run in turn.
type ScatterPlan struct {
	keys  []uint64
	order []int
	spans [numColors][]span
}

// Build buckets the particles at the given positions.
func (sp *ScatterPlan) Build(g *grid.Grid, pos []r3.Vec) {
	n := len(pos)
	sp.keys = slices.Grow(sp.keys[:0], n)[:n]
	sp.order = slices.Grow(sp.order[:0], n)[:n]
	for c := range sp.spans {
		sp.spans[c] = sp.spans[c][:0]
	}

	for i, p := range pos {
		sp.keys[i] = blockKey(g.BaseNode(p))
		sp.order[i] = i
	}
	slices.SortFunc(sp.order, func(a, b int) int {
		ka, kb := sp.keys[a], sp.keys[b]
		switch {
		case ka < kb:
			return -1
		case ka > kb:
			return 1
		}
		return a - b
	})

	for start := 0; start < n; {
		key := sp.keys[sp.order[start]]
		end := start + 1
		for end < n && sp.keys[sp.order[end]] == key {
			end++
		}
		color := key >> (3 * blockBits)
		sp.spans[color] = append(sp.spans[color], span{start: start, end: end})
		start = end
	}
}

// Blocks returns the number of occupied blocks.
func (sp *ScatterPlan) Blocks() int {
	var total int
	for _, s := range sp.spans {
		total += len(s)
	}
	return total
}

// Scatter calls fn once per particle. Particles of blocks with the same
// color are processed concurrently.
func (sp *ScatterPlan) Scatter(pool *Pool, fn func(particle int)) {
	for c := range sp.spans {
		spans := sp.spans[c]
		pool.RunThreshold(len(spans), 2, func(start, end int) {
			for _, s := range spans[start:end] {
				for _, i := range sp.order[s.start:s.end] {
					fn(i)
				}
			}
		})
	}
}

// blockKey packs the color in the top bits and the block coordinates below
// it, so sorting groups particles by color and then by block.
func blockKey(base grid.Index) uint64 {
	bx := floorDiv(base.X, BlockSize)
	by := floorDiv(base.Y, BlockSize)
	bz := floorDiv(base.Z, BlockSize)
	color := uint64(bx&1) | uint64(by&1)<<1 | uint64(bz&1)<<2
	return color<<(3*blockBits) |
		uint64((bx+blockOffset)&blockMask) |
		uint64((by+blockOffset)&blockMask)<<blockBits |
		uint64((bz+blockOffset)&blockMask)<<(2*blockBits)
}

// floorDiv divides rounding toward negative infinity.
func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
