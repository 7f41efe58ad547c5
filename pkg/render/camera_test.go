package render

import (
	"math"
	"testing"

	"github.com/taigrr/glint/pkg/math3d"
)

func TestCameraProjectsTargetToCentre(t *testing.T) {
	cam := NewCamera()
	vp := cam.ProjectionMatrix().Mul(cam.ViewMatrix())

	ndc := vp.MulVec4(math3d.Point(cam.Target)).PerspectiveDivide()
	if math.Abs(ndc.X) > 1e-9 || math.Abs(ndc.Y) > 1e-9 {
		t.Errorf("target at ndc (%v, %v), want the centre", ndc.X, ndc.Y)
	}
	if ndc.Z <= -1 || ndc.Z >= 1 {
		t.Errorf("target depth %v outside the clip range", ndc.Z)
	}

	above := vp.MulVec4(math3d.Point(math3d.V3(0, 1, 0))).PerspectiveDivide()
	if above.Y <= 0 {
		t.Errorf("world +Y maps to ndc y %v, want it above the centre", above.Y)
	}
}

func TestCameraOrbit(t *testing.T) {
	cam := NewCamera()
	before := cam.ViewMatrix()

	cam.Orbit(math.Pi / 2)
	if d := cam.Position.Distance(cam.Target); math.Abs(d-10) > 1e-9 {
		t.Errorf("orbit changed distance to %v", d)
	}
	if cam.Position.Distance(math3d.V3(10, 0, 0)) > 1e-9 {
		t.Errorf("position after quarter orbit = %v, want (10, 0, 0)", cam.Position)
	}
	if cam.ViewMatrix() == before {
		t.Error("view matrix not rebuilt after Orbit")
	}

	cam.Orbit(3 * math.Pi / 2)
	if cam.Position.Distance(math3d.V3(0, 0, 10)) > 1e-9 {
		t.Errorf("full orbit ended at %v", cam.Position)
	}
}

func TestCameraMatrixCaching(t *testing.T) {
	cam := NewCamera()
	proj := cam.ProjectionMatrix()

	cam.SetFOV(math3d.Radians(90))
	if cam.ProjectionMatrix() == proj {
		t.Error("projection not rebuilt after SetFOV")
	}

	cam.SetPosition(math3d.V3(3, 4, 5))
	if got := cam.ViewMatrix().Inverse().Translation(); got.Distance(math3d.V3(3, 4, 5)) > 1e-9 {
		t.Errorf("camera position from inverse view = %v", got)
	}
}
