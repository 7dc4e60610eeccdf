package grid

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

// BoundaryKind classifies how a node constrains velocity.
type BoundaryKind uint8

const (
	None             BoundaryKind = iota // free
	Sticky                               // zero velocity
	Sliding                              // no normal velocity
	VelocityDiminish                     // no normal velocity, tangential scaled by Factor
	Friction                             // no normal velocity, Coulomb friction with Mu
)

var kindNames = [...]string{"none", "sticky", "sliding", "diminish", "friction"}

func (k BoundaryKind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("BoundaryKind(%d)", k)
}

// ParseBoundaryKind maps a config name to a kind.
func ParseBoundaryKind(s string) (BoundaryKind, error) {
	for i, name := range kindNames {
		if name == s {
			return BoundaryKind(i), nil
		}
	}
	return None, fmt.Errorf("unknown boundary kind %q", s)
}

// Boundary is the persistent classification of a node. Normal points into
// the domain and is unit length for the kinds that use it.
type Boundary struct {
	Kind   BoundaryKind
	Normal r3.Vec
	Factor float64
	Mu     float64
}

func StickyBoundary() Boundary { return Boundary{Kind: Sticky} }

func SlidingBoundary(normal r3.Vec) Boundary {
	return Boundary{Kind: Sliding, Normal: r3.Unit(normal)}
}

func DiminishBoundary(normal r3.Vec, factor float64) Boundary {
	return Boundary{Kind: VelocityDiminish, Normal: r3.Unit(normal), Factor: factor}
}

func FrictionBoundary(normal r3.Vec, mu float64) Boundary {
	return Boundary{Kind: Friction, Normal: r3.Unit(normal), Mu: mu}
}

// Apply returns v constrained by the boundary.
func (b Boundary) Apply(v r3.Vec) r3.Vec {
	switch b.Kind {
	case Sticky:
		return r3.Vec{}
	case Sliding, Friction:
		return removeNormal(v, b.Normal)
	case VelocityDiminish:
		return r3.Scale(b.Factor, removeNormal(v, b.Normal))
	}
	return v
}

func removeNormal(v, n r3.Vec) r3.Vec {
	return r3.Sub(v, r3.Scale(r3.Dot(v, n), n))
}
