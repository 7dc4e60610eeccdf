package systems

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/mpm/components"
	"github.com/pthm-cable/mpm/grid"
	"github.com/pthm-cable/mpm/linalg"
)

// EvolveDeformation advances the deformation gradients with the final
// node velocities.
func EvolveDeformation(s *State) {
	ps := s.Particles
	g := s.Grid
	dt := s.DT

	s.forParticles(func(i int, st *grid.Stencil) {
		if !ps.HasDef[i] {
			return
		}
		g.Stencil(ps.Pos[i], st)
		d := &ps.Def[i]
		evolve(d, trialGradient(st, g.Nodes, dt, false).Mul(d.FElastic))
	})
}

// evolve replaces the elastic gradient with fhat. For plastic materials
// the singular values are clamped to [1-θc, 1+θs] and the remainder moves
// into FPlastic, keeping FElastic·FPlastic = fhat·FPlastic_old.
func evolve(d *components.Deformation, fhat linalg.Mat3) {
	if !d.Plastic {
		d.FElastic = fhat
	} else {
		svd, ok := linalg.Decompose(fhat)
		if !ok {
			linalg.Fail(StageEvolveDeformation, "SVD did not converge for %v", fhat)
		}
		lo, hi := 1-d.ThetaC, 1+d.ThetaS
		sigma := r3.Vec{
			X: clamp(svd.Sigma.X, lo, hi),
			Y: clamp(svd.Sigma.Y, lo, hi),
			Z: clamp(svd.Sigma.Z, lo, hi),
		}
		inv := r3.Vec{X: 1 / sigma.X, Y: 1 / sigma.Y, Z: 1 / sigma.Z}

		fp := svd.V.Mul(linalg.Diag(inv)).Mul(svd.U.Transpose()).Mul(fhat.Mul(d.FPlastic))
		d.FElastic = svd.Compose(sigma)
		d.FPlastic = fp
	}

	if je := d.FElastic.Det(); !(je > 0) {
		linalg.Fail(StageEvolveDeformation, "non-positive det(FElastic) %g", je)
	}
	if jp := d.FPlastic.Det(); !(jp > 0) {
		linalg.Fail(StageEvolveDeformation, "non-positive det(FPlastic) %g", jp)
	}
}

func clamp(x, lo, hi float64) float64 {
	return math.Min(math.Max(x, lo), hi)
}
