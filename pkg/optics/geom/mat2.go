package geom

// Mat2 is a row-major 2x2 ray-transfer matrix operating on paraxial ray
// states (height, angle).
type Mat2 struct {
	A, B, C, D float64
}

// Identity2 returns the 2x2 identity matrix.
func Identity2() Mat2 {
	return Mat2{A: 1, D: 1}
}

// Apply returns the paraxial ray state produced by propagating (height,
// angle) through the matrix.
func (m Mat2) Apply(height, angle float64) (float64, float64) {
	return m.A*height + m.B*angle, m.C*height + m.D*angle
}

// Mul returns the matrix product m * o, i.e. applying o first then m.
func (m Mat2) Mul(o Mat2) Mat2 {
	return Mat2{
		A: m.A*o.A + m.B*o.C,
		B: m.A*o.B + m.B*o.D,
		C: m.C*o.A + m.D*o.C,
		D: m.C*o.B + m.D*o.D,
	}
}

// Transpose returns the transpose of the matrix.
func (m Mat2) Transpose() Mat2 {
	return Mat2{A: m.A, B: m.C, C: m.B, D: m.D}
}
