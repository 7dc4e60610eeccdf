package camera

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

func near(a, b r3.Vec) bool {
	return r3.Norm(r3.Sub(a, b)) < 1e-9
}

func TestNew(t *testing.T) {
	cam := New(r3.Vec{X: 2, Y: 1, Z: 1})

	if !near(cam.Target, r3.Vec{X: 1, Y: 0.5, Z: 0.5}) {
		t.Errorf("expected target at box center, got %v", cam.Target)
	}
	if cam.Distance <= r3.Norm(r3.Vec{X: 2, Y: 1, Z: 1}) {
		t.Errorf("expected distance beyond the box diagonal, got %f", cam.Distance)
	}
}

func TestPositionDistance(t *testing.T) {
	cam := New(r3.Vec{X: 1, Y: 1, Z: 1})

	testCases := []struct{ yaw, pitch float64 }{
		{0, 0},
		{1, 0.5},
		{-2, -1.2},
		{3, 1.5},
	}

	for _, tc := range testCases {
		cam.Yaw, cam.Pitch = tc.yaw, tc.pitch
		d := r3.Norm(r3.Sub(cam.Position(), cam.Target))
		if math.Abs(d-cam.Distance) > 1e-9 {
			t.Errorf("yaw %f pitch %f: eye at distance %f, want %f", tc.yaw, tc.pitch, d, cam.Distance)
		}
	}
}

func TestForwardPointsAtTarget(t *testing.T) {
	cam := New(r3.Vec{X: 1, Y: 1, Z: 1})
	cam.Yaw, cam.Pitch = 0.7, 0.3

	dir := r3.Unit(r3.Sub(cam.Target, cam.Position()))
	if !near(dir, cam.Forward()) {
		t.Errorf("forward %v does not point at target (%v)", cam.Forward(), dir)
	}
}

func TestBasisOrthonormal(t *testing.T) {
	cam := New(r3.Vec{X: 1, Y: 1, Z: 1})
	cam.Orbit(150, -80)

	right, up := cam.Basis()
	f := cam.Forward()
	for name, v := range map[string]float64{
		"right·up":  r3.Dot(right, up),
		"right·fwd": r3.Dot(right, f),
		"up·fwd":    r3.Dot(up, f),
	} {
		if math.Abs(v) > 1e-9 {
			t.Errorf("%s = %f, want 0", name, v)
		}
	}
	if math.Abs(r3.Norm(up)-1) > 1e-9 || math.Abs(r3.Norm(right)-1) > 1e-9 {
		t.Errorf("basis not unit length: |right|=%f |up|=%f", r3.Norm(right), r3.Norm(up))
	}
	if up.Y <= 0 {
		t.Errorf("expected up to point upward, got %v", up)
	}
}

func TestOrbitClampsPitch(t *testing.T) {
	cam := New(r3.Vec{X: 1, Y: 1, Z: 1})

	cam.Orbit(0, 1e6)
	if cam.Pitch != maxPitch {
		t.Errorf("expected pitch clamped to %f, got %f", maxPitch, cam.Pitch)
	}
	cam.Orbit(0, -1e6)
	if cam.Pitch != -maxPitch {
		t.Errorf("expected pitch clamped to %f, got %f", -maxPitch, cam.Pitch)
	}
}

func TestZoomConstraints(t *testing.T) {
	cam := New(r3.Vec{X: 1, Y: 1, Z: 1})

	cam.ZoomBy(1e6)
	if cam.Distance != cam.MinDistance {
		t.Errorf("expected distance clamped to %f, got %f", cam.MinDistance, cam.Distance)
	}
	cam.ZoomBy(1e-6)
	if cam.Distance != cam.MaxDistance {
		t.Errorf("expected distance clamped to %f, got %f", cam.MaxDistance, cam.Distance)
	}

	before := cam.Distance
	cam.ZoomBy(0)
	if cam.Distance != before {
		t.Errorf("zero factor changed distance to %f", cam.Distance)
	}
}

func TestPanKeepsViewDirection(t *testing.T) {
	cam := New(r3.Vec{X: 1, Y: 1, Z: 1})
	f := cam.Forward()
	start := cam.Target

	cam.Pan(40, -25)
	if near(cam.Target, start) {
		t.Fatal("pan did not move the target")
	}
	if !near(f, cam.Forward()) {
		t.Errorf("pan changed the view direction")
	}
	if math.Abs(r3.Dot(r3.Sub(cam.Target, start), f)) > 1e-9 {
		t.Errorf("pan moved the target along the view axis")
	}
}

func TestReset(t *testing.T) {
	cam := New(r3.Vec{X: 1, Y: 1, Z: 1})
	home := *cam

	cam.Orbit(300, 100)
	cam.Pan(10, 10)
	cam.ZoomBy(3)
	cam.Reset()

	if !near(cam.Target, home.Target) || cam.Yaw != home.Yaw || cam.Pitch != home.Pitch || cam.Distance != home.Distance {
		t.Errorf("reset did not restore the framed view: %+v", cam)
	}

	// Reset stays repeatable.
	cam.Orbit(50, 0)
	cam.Reset()
	if cam.Yaw != home.Yaw {
		t.Errorf("second reset gave yaw %f, want %f", cam.Yaw, home.Yaw)
	}
}
