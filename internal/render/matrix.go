package render

import "math"

// Matrix2D is an affine transform in Canvas2D setTransform order
// [a, b, c, d, e, f]:
//
//	| a  c  e |
//	| b  d  f |
//	| 0  0  1 |
type Matrix2D [6]float64

func Identity() Matrix2D {
	return Matrix2D{1, 0, 0, 1, 0, 0}
}

// Radians converts degrees, the unit elements store rotation in.
func Radians(degrees float64) float64 {
	return degrees * math.Pi / 180
}

// Then returns m composed with o, with o applied to points first. This is
// how the canvas context accumulates translate/rotate/scale calls.
func (m Matrix2D) Then(o Matrix2D) Matrix2D {
	return Matrix2D{
		m[0]*o[0] + m[2]*o[1],
		m[1]*o[0] + m[3]*o[1],
		m[0]*o[2] + m[2]*o[3],
		m[1]*o[2] + m[3]*o[3],
		m[0]*o[4] + m[2]*o[5] + m[4],
		m[1]*o[4] + m[3]*o[5] + m[5],
	}
}

func (m Matrix2D) Translate(tx, ty float64) Matrix2D {
	return m.Then(Matrix2D{1, 0, 0, 1, tx, ty})
}

func (m Matrix2D) Rotate(radians float64) Matrix2D {
	sin, cos := math.Sincos(radians)
	return m.Then(Matrix2D{cos, sin, -sin, cos, 0, 0})
}

func (m Matrix2D) Scale(sx, sy float64) Matrix2D {
	return m.Then(Matrix2D{sx, 0, 0, sy, 0, 0})
}

func (m Matrix2D) TransformPoint(x, y float64) (float64, float64) {
	return m[0]*x + m[2]*y + m[4], m[1]*x + m[3]*y + m[5]
}

// ToSlice is the JSON form sent to the browser.
func (m Matrix2D) ToSlice() []float64 {
	return m[:]
}

// IsIdentity reports whether m is the identity within float error, in
// which case recorded commands omit their transform.
func (m Matrix2D) IsIdentity() bool {
	const eps = 1e-10
	id := Identity()
	for i := range m {
		if math.Abs(m[i]-id[i]) > eps {
			return false
		}
	}
	return true
}
