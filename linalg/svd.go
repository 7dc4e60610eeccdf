package linalg

import (
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// SVD is the full singular value decomposition m = U·diag(Sigma)·Vᵀ.
// Sigma is sorted in descending order.
type SVD struct {
	U     Mat3
	Sigma r3.Vec
	V     Mat3
}

// Decompose factorizes m. ok is false when the factorization did not converge.
func Decompose(m Mat3) (d SVD, ok bool) {
	var svd mat.SVD
	if !svd.Factorize(m, mat.SVDFull) {
		return SVD{}, false
	}
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	s := svd.Values(nil)

	d.U = FromMatrix(&u)
	d.V = FromMatrix(&v)
	d.Sigma = r3.Vec{X: s[0], Y: s[1], Z: s[2]}
	return d, true
}

// Compose rebuilds U·diag(sigma)·Vᵀ.
func (d SVD) Compose(sigma r3.Vec) Mat3 {
	return d.U.Mul(Diag(sigma)).Mul(d.V.Transpose())
}

// Rotation returns the rotation part R = U·Vᵀ of the polar decomposition of m.
// U and V are sign-corrected to proper rotations (det ≥ 0) by flipping their
// third column, so R is a rotation even for inverted inputs.
func Rotation(m Mat3) (Mat3, bool) {
	d, ok := Decompose(m)
	if !ok {
		return Mat3{}, false
	}
	u, v := d.U, d.V
	if u.Det() < 0 {
		flipCol(&u, 2)
	}
	if v.Det() < 0 {
		flipCol(&v, 2)
	}
	return u.Mul(v.Transpose()), true
}

func flipCol(m *Mat3, j int) {
	for i := 0; i < 3; i++ {
		m[i][j] = -m[i][j]
	}
}
