package systems

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/mpm/grid"
)

// G2P blends PIC and FLIP velocities back onto the particles and moves
// them with the PIC velocity. Results go to NewVel and NewPos.
func G2P(s *State) {
	ps := s.Particles
	g := s.Grid
	dt := s.DT
	alpha := s.PICRatio

	s.forParticles(func(i int, st *grid.Stencil) {
		g.Stencil(ps.Pos[i], st)

		var vpic r3.Vec
		vflip := ps.Vel[i]
		for _, e := range st.Weights() {
			n := &g.Nodes[e.Raw]
			vpic = r3.Add(vpic, r3.Scale(e.Weight, n.Velocity))
			vflip = r3.Add(vflip, r3.Scale(e.Weight, r3.Sub(n.Velocity, n.VelocityTemp)))
		}

		ps.NewVel[i] = r3.Add(r3.Scale(alpha, vpic), r3.Scale(1-alpha, vflip))
		ps.NewPos[i] = r3.Add(ps.Pos[i], r3.Scale(dt, vpic))
	})
}
