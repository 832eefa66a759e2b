package physics

import (
	"errors"
	"rigid3d/internal/shape"
	"testing"

	"github.com/chewxy/math32"
	rl "github.com/gen2brain/raylib-go/raylib"
)

func TestNewBody(t *testing.T) {
	b := NewBody(shape.NewSphere(1), 2)
	if b.IsStatic() || b.Mass() != 2 || b.InverseMass() != 0.5 {
		t.Errorf("Expected dynamic body of mass 2, got static=%v mass=%f", b.IsStatic(), b.Mass())
	}
	if !b.IsActive() || !b.AffectedByGravity || !b.AllowDeactivation {
		t.Error("Expected a new body awake, under gravity and allowed to sleep")
	}

	s := NewBody(shape.NewSphere(1), 0)
	if !s.IsStatic() {
		t.Error("Expected zero mass to make the body static")
	}
	if s.ID() == b.ID() {
		t.Error("Expected unique ids")
	}
}

func TestSetMass(t *testing.T) {
	b := NewBody(shape.NewBox(rl.Vector3{X: 1, Y: 1, Z: 1}), 1)

	for _, m := range []float32{0, -1, math32.Inf(1), math32.NaN()} {
		if err := b.SetMass(m); !errors.Is(err, ErrMassRange) {
			t.Errorf("SetMass(%v): Expected ErrMassRange, got %v", m, err)
		}
	}
	if b.Mass() != 1 {
		t.Errorf("Expected mass unchanged, got %f", b.Mass())
	}

	if err := b.SetMass(6); err != nil {
		t.Fatalf("SetMass failed: %v", err)
	}
	// A unit cube of mass 6 has inertia 1 about every axis
	inv := b.InverseInertiaWorld()
	if !near(inv.M0, 1, 1e-5) || !near(inv.M5, 1, 1e-5) || !near(inv.M10, 1, 1e-5) {
		t.Errorf("Expected unit inverse inertia, got %v %v %v", inv.M0, inv.M5, inv.M10)
	}
}

func TestBoundingBoxFollowsTransform(t *testing.T) {
	b := NewBody(shape.NewBox(rl.Vector3{X: 2, Y: 1, Z: 1}), 1)
	b.SetPosition(rl.Vector3{X: 5})

	box := b.BoundingBox()
	if box.Min.X != 4 || box.Max.X != 6 {
		t.Errorf("Expected X range [4, 6], got [%f, %f]", box.Min.X, box.Max.X)
	}

	b.SetOrientation(rl.QuaternionFromAxisAngle(rl.Vector3{Y: 1}, math32.Pi/2))
	box = b.BoundingBox()
	if !near(box.Max.X-box.Min.X, 1, 1e-4) || !near(box.Max.Z-box.Min.Z, 2, 1e-4) {
		t.Errorf("Expected a rotated box 1 wide and 2 deep, got %v", box.Size())
	}
	if got := rl.QuaternionMultiply(b.Orientation(), b.InvOrientation()); !near(got.W, 1, 1e-5) {
		t.Errorf("Expected InvOrientation to undo Orientation, got %v", got)
	}
}

func TestStaticIgnoresVelocity(t *testing.T) {
	s := NewBody(shape.NewSphere(1), 0)
	s.SetLinearVelocity(rl.Vector3{X: 1})
	s.ApplyImpulse(rl.Vector3{Y: 1})
	if s.LinearVelocity() != (rl.Vector3{}) {
		t.Errorf("Expected a static body to stay still, got %v", s.LinearVelocity())
	}

	b := NewBody(shape.NewSphere(1), 1)
	b.SetLinearVelocity(rl.Vector3{X: 3})
	b.SetStatic(true)
	if b.LinearVelocity() != (rl.Vector3{}) {
		t.Error("Expected SetStatic to clear the velocity")
	}
}

func TestSetActive(t *testing.T) {
	b := NewBody(shape.NewSphere(1), 1)
	b.SetLinearVelocity(rl.Vector3{X: 1})
	b.SetAngularVelocity(rl.Vector3{Y: 1})

	b.SetActive(false)
	if b.IsActive() || b.LinearVelocity() != (rl.Vector3{}) || b.AngularVelocity() != (rl.Vector3{}) {
		t.Error("Expected sleeping to zero both velocities")
	}
	if !math32.IsInf(b.InactiveTime(), 1) {
		t.Errorf("Expected infinite inactive time, got %f", b.InactiveTime())
	}

	b.SetActive(true)
	if !b.IsActive() || b.InactiveTime() != 0 {
		t.Errorf("Expected waking to reset the timer, got %f", b.InactiveTime())
	}
}

func TestForceAtProducesTorque(t *testing.T) {
	b := NewBody(shape.NewSphere(1), 1)
	b.AddForceAt(rl.Vector3{Y: 1}, rl.Vector3{X: 1})

	if b.Force() != (rl.Vector3{Y: 1}) {
		t.Errorf("Expected force (0,1,0), got %v", b.Force())
	}
	if b.Torque() != (rl.Vector3{Z: 1}) {
		t.Errorf("Expected torque (0,0,1), got %v", b.Torque())
	}
}

func TestApplyImpulseAt(t *testing.T) {
	b := NewBody(shape.NewSphere(1), 2)
	b.ApplyImpulseAt(rl.Vector3{Y: 2}, rl.Vector3{X: 1})

	if b.LinearVelocity() != (rl.Vector3{Y: 1}) {
		t.Errorf("Expected velocity (0,1,0), got %v", b.LinearVelocity())
	}
	// Sphere inertia 0.4*m*r² = 0.8, torque impulse 2 about Z
	if w := b.AngularVelocity(); !near(w.Z, 2.5, 1e-4) || w.X != 0 || w.Y != 0 {
		t.Errorf("Expected angular velocity (0,0,2.5), got %v", w)
	}

	b.IsParticle = true
	b.SetAngularVelocity(rl.Vector3{})
	b.ApplyImpulseAt(rl.Vector3{Y: 2}, rl.Vector3{X: 1})
	if b.AngularVelocity() != (rl.Vector3{}) {
		t.Errorf("Expected a particle not to spin, got %v", b.AngularVelocity())
	}
}

func TestSpinningBodyRotates(t *testing.T) {
	w := newTestWorld(t, func(c *Config) { c.AllowDeactivation = false })
	w.Gravity = rl.Vector3{}
	b := sphereBody("spin", 0.5, 1, rl.Vector3{})
	b.Damping = DampNone
	b.SetAngularVelocity(rl.Vector3{Y: math32.Pi})
	mustAdd(t, w, b)

	mustStep(t, w, 0.01, 50)

	// Half a second at pi rad/s is a quarter turn
	x := rl.Vector3RotateByQuaternion(rl.Vector3{X: 1}, b.Orientation())
	if !near(x.X, 0, 1e-3) || !near(x.Z, -1, 1e-3) {
		t.Errorf("Expected the X axis rotated to -Z, got %v", x)
	}
	if l := rl.QuaternionLength(b.Orientation()); !near(l, 1, 1e-4) {
		t.Errorf("Expected a unit quaternion, got length %f", l)
	}
}

func TestDampingSlowsBody(t *testing.T) {
	w := newTestWorld(t, func(c *Config) {
		c.AllowDeactivation = false
		c.LinearDamping = 0.5
	})
	w.Gravity = rl.Vector3{}
	b := sphereBody("a", 0.5, 1, rl.Vector3{})
	b.SetLinearVelocity(rl.Vector3{X: 1})
	mustAdd(t, w, b)

	mustStep(t, w, 0.1, 10)

	// Ten steps of 0.1s damp by 0.5 per second
	if v := b.LinearVelocity().X; !near(v, 0.5, 1e-3) {
		t.Errorf("Expected velocity 0.5 after one second, got %f", v)
	}
}
