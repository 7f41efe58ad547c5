package math3d

import (
	"testing"
)

func BenchmarkMat4Mul(b *testing.B) {
	m1 := Translate(V3(1, 2, 3))
	m2 := RotateY(0.5)

	for b.Loop() {
		_ = m1.Mul(m2)
	}
}

func BenchmarkMat4MulVec4(b *testing.B) {
	m := Translate(V3(1, 2, 3)).Mul(RotateY(0.5))
	v := V4(1, 2, 3, 1)

	for b.Loop() {
		_ = m.MulVec4(v)
	}
}

func BenchmarkMat4Inverse(b *testing.B) {
	m := Translate(V3(1, 2, 3)).Mul(RotateY(0.5)).Mul(Scale(V3(2, 2, 2)))

	for b.Loop() {
		_ = m.Inverse()
	}
}

func BenchmarkNormalizeOr(b *testing.B) {
	v := V3(1, 2, 3)
	fallback := V3(0, 0, 1)

	for b.Loop() {
		_ = v.NormalizeOr(fallback)
	}
}

func BenchmarkBarycentric(b *testing.B) {
	p := V2(3.5, 2.5)
	a, c, d := V2(0, 0), V2(10, 0), V2(0, 10)

	for b.Loop() {
		_, _, _ = Barycentric(p, a, c, d)
	}
}

func BenchmarkModelTransform(b *testing.B) {
	tr := ModelTransform{
		Scale:    Splat(2.5),
		Rotation: V3(0.1, 0.2, 0.3),
		Pivot:    V3(0, 1, 0),
	}

	for b.Loop() {
		_ = tr.Matrix()
	}
}

func BenchmarkViewProjection(b *testing.B) {
	view := LookAt(V3(0, 0, 10), V3(0, 0, 0), V3(0, 1, 0))
	proj := PerspectiveDeg(45, 1.333, 0.1, 50)

	for b.Loop() {
		_ = proj.Mul(view)
	}
}
