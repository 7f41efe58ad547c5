package math3d

import (
	"fmt"
	"strings"
)

// RotationOrder names the sequence in which per-axis rotations are applied.
// ZYX means R = Rz·Ry·Rx, so X is applied to the point first.
type RotationOrder string

// Supported rotation orders.
const (
	OrderZYX RotationOrder = "zyx"
	OrderZXY RotationOrder = "zxy"
	OrderYXZ RotationOrder = "yxz"
	OrderYZX RotationOrder = "yzx"
	OrderXYZ RotationOrder = "xyz"
	OrderXZY RotationOrder = "xzy"
)

// ParseRotationOrder parses a rotation order such as "zyx". An empty string
// yields OrderZYX.
func ParseRotationOrder(s string) (RotationOrder, error) {
	if s == "" {
		return OrderZYX, nil
	}
	o := RotationOrder(strings.ToLower(s))
	switch o {
	case OrderZYX, OrderZXY, OrderYXZ, OrderYZX, OrderXYZ, OrderXZY:
		return o, nil
	}
	return "", fmt.Errorf("math3d: unknown rotation order %q", s)
}

// Matrix composes the rotation for the given per-axis angles (radians).
func (o RotationOrder) Matrix(angles Vec3) Mat4 {
	if o == "" {
		o = OrderZYX
	}
	m := Identity()
	for _, axis := range string(o) {
		var r Mat4
		switch axis {
		case 'x':
			r = RotateX(angles.X)
		case 'y':
			r = RotateY(angles.Y)
		case 'z':
			r = RotateZ(angles.Z)
		default:
			continue
		}
		m = m.Mul(r)
	}
	return m
}

// ModelTransform describes how an object is placed in the world:
// scale, then rotation about Pivot, then translation.
type ModelTransform struct {
	Scale       Vec3
	Rotation    Vec3 // radians per axis
	Pivot       Vec3
	Translation Vec3
	Order       RotationOrder
}

// DefaultTransform returns a unit-scale transform with no rotation.
func DefaultTransform() ModelTransform {
	return ModelTransform{Scale: Splat(1), Order: OrderZYX}
}

// Matrix returns T · Translate(pivot) · R · Translate(-pivot) · S.
func (t ModelTransform) Matrix() Mat4 {
	scale := t.Scale
	if scale == (Vec3{}) {
		scale = Splat(1)
	}
	r := t.Order.Matrix(t.Rotation)
	return Translate(t.Translation).
		Mul(Translate(t.Pivot)).
		Mul(r).
		Mul(Translate(t.Pivot.Negate())).
		Mul(Scale(scale))
}
