package grid

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// FrictionEpsilon is the tangential speed below which friction is skipped.
const FrictionEpsilon = 1e-7

// Node is one lattice cell. Everything but Boundary is transient and reset
// once per step by Reset.
type Node struct {
	Mass         float64
	Velocity     r3.Vec // final velocity after forces and boundary
	VelocityTemp r3.Vec // momentum-derived velocity before forces
	Momentum     r3.Vec
	Force        r3.Vec

	Boundary Boundary
}

// Reset clears the transient fields and keeps the boundary.
func (n *Node) Reset() {
	b := n.Boundary
	*n = Node{Boundary: b}
}

// ComputeVelocity derives both velocities from momentum. Empty nodes get
// zero velocity.
func (n *Node) ComputeVelocity() {
	if n.Mass == 0 {
		n.Velocity = r3.Vec{}
		n.VelocityTemp = r3.Vec{}
		return
	}
	n.Velocity = r3.Scale(1/n.Mass, n.Momentum)
	n.VelocityTemp = n.Velocity
}

// ApplyForce integrates the accumulated force over dt on top of the
// momentum-derived velocity.
func (n *Node) ApplyForce(dt float64) {
	if n.Mass == 0 {
		return
	}
	n.Velocity = r3.Add(n.VelocityTemp, r3.Scale(dt/n.Mass, n.Force))
}

// ApplyFriction adds Coulomb friction opposing the tangential velocity on
// Friction boundary nodes. The magnitude is capped so friction can stop
// but never reverse the tangential motion within one step.
func (n *Node) ApplyFriction(dt float64) {
	if n.Boundary.Kind != Friction || n.Mass == 0 {
		return
	}
	normal := n.Boundary.Normal
	vn := r3.Scale(r3.Dot(normal, n.VelocityTemp), normal)
	vt := r3.Sub(n.VelocityTemp, vn)
	speed := r3.Norm(vt)
	if speed < FrictionEpsilon {
		return
	}

	normalForce := math.Max(-r3.Dot(normal, n.Force), 0)
	mag := math.Min(n.Boundary.Mu*normalForce, n.Mass*speed/dt)
	n.Force = r3.Sub(n.Force, r3.Scale(mag/speed, vt))
}

// SetBoundaryVelocity projects Velocity according to the boundary kind.
func (n *Node) SetBoundaryVelocity() {
	n.Velocity = n.Boundary.Apply(n.Velocity)
}
