package systems

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/mpm/grid"
	"github.com/pthm-cable/mpm/linalg"
)

// FixedCorotatedStress returns the first Piola-Kirchhoff stress
// P = 2μ(F - R) + λ(J - 1)·cof(F) of the fixed-corotated model, where R is
// the rotation of the polar decomposition of F.
func FixedCorotatedStress(f linalg.Mat3, mu, lambda float64) linalg.Mat3 {
	r, ok := linalg.Rotation(f)
	if !ok {
		linalg.Fail(StageApplyElasticity, "SVD did not converge for %v", f)
	}
	j := f.Det()
	return f.Sub(r).Scale(2 * mu).Add(f.Cofactor().Scale(lambda * (j - 1)))
}

// ApplyElasticity adds the internal elastic forces of every particle that
// carries a deformation state and a volume.
//
// The stress is evaluated at the trial gradient F̂ = (I + dt·∇v)·FE built
// from the pre-force node velocities, and scattered through the old FE.
func ApplyElasticity(s *State) {
	ps := s.Particles
	g := s.Grid
	dt := s.DT

	s.forParticles(func(i int, st *grid.Stencil) {
		if !ps.HasDef[i] || ps.Volume[i] == 0 {
			return
		}
		d := &ps.Def[i]
		if jp := d.FPlastic.Det(); jp <= 0 {
			linalg.Fail(StageApplyElasticity, "non-positive det(FPlastic) %g at particle %d", jp, i)
		}

		g.Stencil(ps.Pos[i], st)
		fhat := trialGradient(st, g.Nodes, dt, true).Mul(d.FElastic)
		mu, lambda := d.LameParameters(s.ApplyHardening)
		p := FixedCorotatedStress(fhat, mu, lambda)
		ps.stress[i] = p.Mul(d.FElastic.Transpose()).Scale(ps.Volume[i])
	})

	s.Plan.Scatter(s.Pool, func(i int) {
		if !ps.HasDef[i] || ps.Volume[i] == 0 {
			return
		}
		var st grid.Stencil
		g.Stencil(ps.Pos[i], &st)
		vp := ps.stress[i]
		for _, e := range st.Weights() {
			node := &g.Nodes[e.Raw]
			node.Force = r3.Sub(node.Force, vp.MulVec(e.Grad))
		}
	})
}

// trialGradient returns I + dt·Σ v_i ⊗ ∇w_i over the stencil, using the
// pre-force velocity when temp is set and the final velocity otherwise.
func trialGradient(st *grid.Stencil, nodes []grid.Node, dt float64, temp bool) linalg.Mat3 {
	var grad linalg.Mat3
	for _, e := range st.Weights() {
		v := nodes[e.Raw].Velocity
		if temp {
			v = nodes[e.Raw].VelocityTemp
		}
		grad = grad.Add(linalg.Outer(v, e.Grad))
	}
	return linalg.Identity().Add(grad.Scale(dt))
}
