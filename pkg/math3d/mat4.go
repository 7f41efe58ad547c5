package math3d

import "math"

// Mat4 is a 4x4 matrix stored in column-major order.
//
// Memory layout (indices):
// | 0  4  8  12 |
// | 1  5  9  13 |
// | 2  6  10 14 |
// | 3  7  11 15 |
type Mat4 [16]float64

// Identity returns the identity matrix.
func Identity() Mat4 {
	return Mat4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// Translate creates a translation matrix.
func Translate(v Vec3) Mat4 {
	m := Identity()
	m[12], m[13], m[14] = v.X, v.Y, v.Z
	return m
}

// Scale creates a scaling matrix.
func Scale(v Vec3) Mat4 {
	m := Identity()
	m[0], m[5], m[10] = v.X, v.Y, v.Z
	return m
}

// RotateX creates a right-handed rotation around the X axis.
func RotateX(angle float64) Mat4 {
	c, s := math.Cos(angle), math.Sin(angle)
	m := Identity()
	m[5], m[6] = c, s
	m[9], m[10] = -s, c
	return m
}

// RotateY creates a right-handed rotation around the Y axis.
func RotateY(angle float64) Mat4 {
	c, s := math.Cos(angle), math.Sin(angle)
	m := Identity()
	m[0], m[2] = c, -s
	m[8], m[10] = s, c
	return m
}

// RotateZ creates a right-handed rotation around the Z axis.
func RotateZ(angle float64) Mat4 {
	c, s := math.Cos(angle), math.Sin(angle)
	m := Identity()
	m[0], m[1] = c, s
	m[4], m[5] = -s, c
	return m
}

// LookAt creates a view matrix looking from eye towards center.
// A degenerate up vector falls back to +Z so the basis stays finite.
func LookAt(eye, center, up Vec3) Mat4 {
	f := center.Sub(eye).NormalizeOr(Vec3{0, 0, -1})
	s := f.Cross(up).NormalizeOr(f.Cross(Vec3{0, 0, 1}).NormalizeOr(Vec3{1, 0, 0}))
	u := s.Cross(f)

	return Mat4{
		s.X, u.X, -f.X, 0,
		s.Y, u.Y, -f.Y, 0,
		s.Z, u.Z, -f.Z, 0,
		-s.Dot(eye), -u.Dot(eye), f.Dot(eye), 1,
	}
}

// Perspective creates an OpenGL perspective projection.
// fovy is the vertical field of view in radians and aspect is width/height.
// Points between near and far map to NDC z in [-1, 1].
func Perspective(fovy, aspect, near, far float64) Mat4 {
	f := 1.0 / math.Tan(fovy/2)
	nf := 1.0 / (near - far)

	return Mat4{
		f / aspect, 0, 0, 0,
		0, f, 0, 0,
		0, 0, (far + near) * nf, -1,
		0, 0, 2 * far * near * nf, 0,
	}
}

// PerspectiveDeg is Perspective with the field of view in degrees.
func PerspectiveDeg(fovyDeg, aspect, near, far float64) Mat4 {
	return Perspective(Radians(fovyDeg), aspect, near, far)
}

// Radians converts degrees to radians.
func Radians(deg float64) float64 {
	return deg * math.Pi / 180
}

// Mul multiplies two matrices: a * b.
//
//nolint:st1016 // a*b naming convention is clearer for matrix multiplication
func (a Mat4) Mul(b Mat4) Mat4 {
	var m Mat4
	for col := range 4 {
		for row := range 4 {
			var sum float64
			for k := range 4 {
				sum += a[row+k*4] * b[k+col*4]
			}
			m[row+col*4] = sum
		}
	}
	return m
}

// MulVec4 transforms a homogeneous vector.
func (m Mat4) MulVec4(v Vec4) Vec4 {
	return Vec4{
		m[0]*v.X + m[4]*v.Y + m[8]*v.Z + m[12]*v.W,
		m[1]*v.X + m[5]*v.Y + m[9]*v.Z + m[13]*v.W,
		m[2]*v.X + m[6]*v.Y + m[10]*v.Z + m[14]*v.W,
		m[3]*v.X + m[7]*v.Y + m[11]*v.Z + m[15]*v.W,
	}
}

// MulPoint transforms a position (w=1) and drops the resulting W.
// Use it only with affine matrices.
func (m Mat4) MulPoint(v Vec3) Vec3 {
	return m.MulVec4(Point(v)).Vec3()
}

// MulVec3Dir transforms a direction (w=0, no translation).
func (m Mat4) MulVec3Dir(v Vec3) Vec3 {
	return Vec3{
		m[0]*v.X + m[4]*v.Y + m[8]*v.Z,
		m[1]*v.X + m[5]*v.Y + m[9]*v.Z,
		m[2]*v.X + m[6]*v.Y + m[10]*v.Z,
	}
}

// Transpose returns the transposed matrix.
func (m Mat4) Transpose() Mat4 {
	var t Mat4
	for col := range 4 {
		for row := range 4 {
			t[col+row*4] = m[row+col*4]
		}
	}
	return t
}

// Inverse returns the inverse of the matrix, or identity when it is singular.
func (m Mat4) Inverse() Mat4 {
	inv, ok := m.Invert()
	if !ok {
		return Identity()
	}
	return inv
}

// Invert returns the inverse and whether the matrix was invertible.
// It expands along 2x2 sub-determinants of the upper and lower halves.
func (m Mat4) Invert() (Mat4, bool) {
	a00, a01, a02, a03 := m[0], m[1], m[2], m[3]
	a10, a11, a12, a13 := m[4], m[5], m[6], m[7]
	a20, a21, a22, a23 := m[8], m[9], m[10], m[11]
	a30, a31, a32, a33 := m[12], m[13], m[14], m[15]

	b00 := a00*a11 - a01*a10
	b01 := a00*a12 - a02*a10
	b02 := a00*a13 - a03*a10
	b03 := a01*a12 - a02*a11
	b04 := a01*a13 - a03*a11
	b05 := a02*a13 - a03*a12
	b06 := a20*a31 - a21*a30
	b07 := a20*a32 - a22*a30
	b08 := a20*a33 - a23*a30
	b09 := a21*a32 - a22*a31
	b10 := a21*a33 - a23*a31
	b11 := a22*a33 - a23*a32

	det := b00*b11 - b01*b10 + b02*b09 + b03*b08 - b04*b07 + b05*b06
	if det == 0 || math.IsNaN(det) {
		return Mat4{}, false
	}
	d := 1 / det

	return Mat4{
		(a11*b11 - a12*b10 + a13*b09) * d,
		(a02*b10 - a01*b11 - a03*b09) * d,
		(a31*b05 - a32*b04 + a33*b03) * d,
		(a22*b04 - a21*b05 - a23*b03) * d,
		(a12*b08 - a10*b11 - a13*b07) * d,
		(a00*b11 - a02*b08 + a03*b07) * d,
		(a32*b02 - a30*b05 - a33*b01) * d,
		(a20*b05 - a22*b02 + a23*b01) * d,
		(a10*b10 - a11*b08 + a13*b06) * d,
		(a01*b08 - a00*b10 - a03*b06) * d,
		(a30*b04 - a31*b02 + a33*b00) * d,
		(a21*b02 - a20*b04 - a23*b00) * d,
		(a11*b07 - a10*b09 - a12*b06) * d,
		(a00*b09 - a01*b07 + a02*b06) * d,
		(a31*b01 - a30*b03 - a32*b00) * d,
		(a20*b03 - a21*b01 + a22*b00) * d,
	}, true
}

// NormalMatrix returns the inverse-transpose of the upper 3x3 block,
// for transforming surface normals with MulVec3Dir.
func (m Mat4) NormalMatrix() Mat4 {
	linear := m
	linear[12], linear[13], linear[14] = 0, 0, 0
	linear[3], linear[7], linear[11], linear[15] = 0, 0, 0, 1
	return linear.Inverse().Transpose()
}

// Get returns the element at (row, col).
func (m Mat4) Get(row, col int) float64 {
	return m[row+col*4]
}

// Translation extracts the translation component.
func (m Mat4) Translation() Vec3 {
	return Vec3{m[12], m[13], m[14]}
}
