package geom

import "math"

// Mat3 is a row-major 3x3 matrix used for surface orientation. The core
// never tilts or decenters a surface (toric/freeform work is out of scope),
// so in practice every realized surface carries the identity, but the type
// and its Euler constructor are kept so that capability is a drop-in
// extension rather than a re-architecture.
type Mat3 struct {
	M [3][3]float64
}

// Identity3 returns the 3x3 identity matrix.
func Identity3() Mat3 {
	return Mat3{M: [3][3]float64{
		{1, 0, 0},
		{0, 1, 0},
		{0, 0, 1},
	}}
}

// NewEulerMat3 builds a rotation matrix from intrinsic z-y'-x'' Euler angles
// (radians), counterclockwise positive, active rotation convention.
func NewEulerMat3(z, y, x float64) Mat3 {
	cz, sz := math.Cos(z), math.Sin(z)
	cy, sy := math.Cos(y), math.Sin(y)
	cx, sx := math.Cos(x), math.Sin(x)

	rz := Mat3{M: [3][3]float64{
		{cz, -sz, 0},
		{sz, cz, 0},
		{0, 0, 1},
	}}
	ry := Mat3{M: [3][3]float64{
		{cy, 0, sy},
		{0, 1, 0},
		{-sy, 0, cy},
	}}
	rx := Mat3{M: [3][3]float64{
		{1, 0, 0},
		{0, cx, -sx},
		{0, sx, cx},
	}}

	return rz.Mul(ry).Mul(rx)
}

// Mul returns the matrix product m * o.
func (m Mat3) Mul(o Mat3) Mat3 {
	var r Mat3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			var sum float64
			for k := 0; k < 3; k++ {
				sum += m.M[i][k] * o.M[k][j]
			}
			r.M[i][j] = sum
		}
	}
	return r
}

// Transpose returns the transpose of the matrix.
func (m Mat3) Transpose() Mat3 {
	var r Mat3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			r.M[j][i] = m.M[i][j]
		}
	}
	return r
}

// Apply returns m * v.
func (m Mat3) Apply(v Vec3) Vec3 {
	return Vec3{
		X: m.M[0][0]*v.X + m.M[0][1]*v.Y + m.M[0][2]*v.Z,
		Y: m.M[1][0]*v.X + m.M[1][1]*v.Y + m.M[1][2]*v.Z,
		Z: m.M[2][0]*v.X + m.M[2][1]*v.Y + m.M[2][2]*v.Z,
	}
}
