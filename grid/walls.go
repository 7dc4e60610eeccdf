package grid

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Wall identifies one face of the grid box.
type Wall uint8

const (
	WallLeft   Wall = iota // -x
	WallRight              // +x
	WallBottom             // -y
	WallUp                 // +y
	WallBack               // -z
	WallFront              // +z
)

var wallNames = [...]string{"left", "right", "bottom", "up", "back", "front"}

func (w Wall) String() string { return wallNames[w] }

// Normal returns the unit normal pointing into the domain.
func (w Wall) Normal() r3.Vec {
	switch w {
	case WallLeft:
		return r3.Vec{X: 1}
	case WallRight:
		return r3.Vec{X: -1}
	case WallBottom:
		return r3.Vec{Y: 1}
	case WallUp:
		return r3.Vec{Y: -1}
	case WallBack:
		return r3.Vec{Z: 1}
	default:
		return r3.Vec{Z: -1}
	}
}

// WallLayers converts a wall thickness in world units to a node count.
func (g *Grid) WallLayers(thickness float64) int {
	return int(math.Floor(thickness / g.H))
}

// WallOf classifies node i against walls n layers thick. Walls are tested
// in the order left, right, bottom, up, back, front and the first match wins.
func (g *Grid) WallOf(i Index, n int) (Wall, bool) {
	switch {
	case i.X < n:
		return WallLeft, true
	case i.X > g.Dim.X-n:
		return WallRight, true
	case i.Y < n:
		return WallBottom, true
	case i.Y > g.Dim.Y-n:
		return WallUp, true
	case i.Z < n:
		return WallBack, true
	case i.Z > g.Dim.Z-n:
		return WallFront, true
	}
	return 0, false
}
