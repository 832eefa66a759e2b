package physics

import (
	"fmt"
	"rigid3d/internal/shape"
	"sync/atomic"

	"github.com/chewxy/math32"
	rl "github.com/gen2brain/raylib-go/raylib"
)

var bodyIDs atomic.Uint64

// DampingType selects which velocities a body damps each step.
type DampingType int

const (
	DampNone    DampingType = 0
	DampLinear  DampingType = 1
	DampAngular DampingType = 2
	DampBoth                = DampLinear | DampAngular
)

// Body is a rigid body simulated by a World.
type Body struct {
	id    uint64
	shape shape.Shape

	position        rl.Vector3
	orientation     rl.Quaternion
	invOrientation  rl.Quaternion
	linearVelocity  rl.Vector3
	angularVelocity rl.Vector3
	force           rl.Vector3
	torque          rl.Vector3

	mass            float32
	inverseMass     float32
	invInertiaLocal rl.Vector3
	invInertiaWorld rl.Matrix

	boundingBox    shape.AABB
	sweptDirection rl.Vector3

	static       bool
	active       bool
	inactiveTime float32
	speculative  bool
	material     Material

	arbiters    []*Arbiter
	constraints []Constraint
	island      *Island
	visit       uint32

	world    *World
	softBody *SoftBody

	// IsParticle bodies carry no angular state and skip rotation.
	IsParticle        bool
	AffectedByGravity bool
	AllowDeactivation bool
	Damping           DampingType

	// PreStepHook and PostStepHook run at the start and end of every step
	// the body takes part in.
	PreStepHook  func(b *Body, dt float32)
	PostStepHook func(b *Body, dt float32)

	// Tag holds host data.
	Tag any
}

// NewBody creates a body with the given shape. A mass of zero or less makes
// the body static.
func NewBody(s shape.Shape, mass float32) *Body {
	b := &Body{
		id:                bodyIDs.Add(1),
		shape:             s,
		orientation:       rl.QuaternionIdentity(),
		invOrientation:    rl.QuaternionIdentity(),
		active:            true,
		material:          DefaultMaterial(),
		AffectedByGravity: true,
		AllowDeactivation: true,
		Damping:           DampBoth,
	}
	if mass <= 0 {
		b.static = true
		mass = 1
	}
	b.setMassProperties(mass)
	b.update()
	return b
}

func (b *Body) ID() uint64                    { return b.id }
func (b *Body) Shape() shape.Shape            { return b.shape }
func (b *Body) Position() rl.Vector3          { return b.position }
func (b *Body) Orientation() rl.Quaternion    { return b.orientation }
func (b *Body) InvOrientation() rl.Quaternion { return b.invOrientation }
func (b *Body) LinearVelocity() rl.Vector3    { return b.linearVelocity }
func (b *Body) AngularVelocity() rl.Vector3   { return b.angularVelocity }
func (b *Body) Force() rl.Vector3             { return b.force }
func (b *Body) Torque() rl.Vector3            { return b.torque }
func (b *Body) Mass() float32                 { return b.mass }
func (b *Body) InverseMass() float32          { return b.inverseMass }
func (b *Body) BoundingBox() shape.AABB       { return b.boundingBox }
func (b *Body) SweptDirection() rl.Vector3    { return b.sweptDirection }
func (b *Body) IsStatic() bool                { return b.static }
func (b *Body) IsActive() bool                { return b.active }
func (b *Body) InactiveTime() float32         { return b.inactiveTime }
func (b *Body) Material() Material            { return b.material }
func (b *Body) SpeculativeContacts() bool     { return b.speculative }
func (b *Body) World() *World                 { return b.world }
func (b *Body) SoftBody() *SoftBody           { return b.softBody }
func (b *Body) Island() *Island               { return b.island }

// IsStaticOrInactive reports whether the body can be skipped as the only
// moving partner of a pair.
func (b *Body) IsStaticOrInactive() bool { return b.static || !b.active }

// Arbiters returns the arbiters touching the body. The slice is owned by the body.
func (b *Body) Arbiters() []*Arbiter { return b.arbiters }

// Constraints returns the constraints attached to the body. The slice is owned by the body.
func (b *Body) Constraints() []Constraint { return b.constraints }

// InverseInertiaWorld returns the world space inverse inertia tensor.
func (b *Body) InverseInertiaWorld() rl.Matrix { return b.invInertiaWorld }

func (b *Body) String() string {
	return fmt.Sprintf("Body#%d", b.id)
}

func (b *Body) SetPosition(p rl.Vector3) {
	b.position = p
	b.update()
}

func (b *Body) SetOrientation(q rl.Quaternion) {
	b.orientation = rl.QuaternionNormalize(q)
	b.update()
}

func (b *Body) SetLinearVelocity(v rl.Vector3) {
	if b.static {
		return
	}
	b.linearVelocity = v
}

func (b *Body) SetAngularVelocity(v rl.Vector3) {
	if b.static {
		return
	}
	b.angularVelocity = v
}

func (b *Body) SetMaterial(m Material) { b.material = m }

func (b *Body) SetSpeculativeContacts(enabled bool) { b.speculative = enabled }

// SetMass sets the mass and rescales the inertia from the shape.
func (b *Body) SetMass(mass float32) error {
	if mass <= 0 || math32.IsInf(mass, 0) || math32.IsNaN(mass) {
		return fmt.Errorf("mass %v: %w", mass, ErrMassRange)
	}
	b.setMassProperties(mass)
	b.update()
	return nil
}

func (b *Body) setMassProperties(mass float32) {
	b.mass = mass
	b.inverseMass = 1 / mass
	inertia := b.shape.Inertia(mass)
	b.invInertiaLocal = rl.Vector3{
		X: invertOrZero(inertia.X),
		Y: invertOrZero(inertia.Y),
		Z: invertOrZero(inertia.Z),
	}
}

// SetStatic changes whether the body is simulated. A body turning static
// loses its velocities and leaves its island.
func (b *Body) SetStatic(static bool) {
	if b.static == static {
		return
	}
	if static {
		b.linearVelocity = rl.Vector3{}
		b.angularVelocity = rl.Vector3{}
	}
	b.static = static
	if b.world != nil {
		b.world.islands.staticChanged(b)
	}
}

// SetActive wakes or sleeps the body. Waking restarts the inactivity timer;
// sleeping zeroes both velocities.
func (b *Body) SetActive(active bool) {
	switch {
	case !b.active && active:
		b.inactiveTime = 0
	case b.active && !active:
		b.inactiveTime = math32.Inf(1)
		b.linearVelocity = rl.Vector3{}
		b.angularVelocity = rl.Vector3{}
	}
	b.active = active
}

func (b *Body) AddForce(f rl.Vector3) {
	b.force = rl.Vector3Add(b.force, f)
}

// AddForceAt adds a force acting at a world position, which also produces torque.
func (b *Body) AddForceAt(f, pos rl.Vector3) {
	b.force = rl.Vector3Add(b.force, f)
	r := rl.Vector3Subtract(pos, b.position)
	b.torque = rl.Vector3Add(b.torque, rl.Vector3CrossProduct(r, f))
}

func (b *Body) AddTorque(t rl.Vector3) {
	b.torque = rl.Vector3Add(b.torque, t)
}

// ApplyImpulse changes the linear velocity immediately.
func (b *Body) ApplyImpulse(impulse rl.Vector3) {
	if b.static {
		return
	}
	b.linearVelocity = rl.Vector3Add(b.linearVelocity, rl.Vector3Scale(impulse, b.inverseMass))
}

// ApplyImpulseAt applies an impulse at relPos, relative to the body position.
func (b *Body) ApplyImpulseAt(impulse, relPos rl.Vector3) {
	if b.static {
		return
	}
	b.linearVelocity = rl.Vector3Add(b.linearVelocity, rl.Vector3Scale(impulse, b.inverseMass))
	if !b.IsParticle {
		dw := mulInertia(b.invInertiaWorld, rl.Vector3CrossProduct(relPos, impulse))
		b.angularVelocity = rl.Vector3Add(b.angularVelocity, dw)
	}
}

// update recomputes the state derived from the transform.
func (b *Body) update() {
	b.invOrientation = rl.QuaternionInvert(b.orientation)
	if b.IsParticle {
		b.invInertiaWorld = rl.Matrix{}
	} else {
		b.invInertiaWorld = worldInertia(b.orientation, b.invInertiaLocal)
	}
	b.boundingBox = b.shape.BoundingBox(b.orientation, b.position)
}

// sweptExpand grows the bounding box by this step's motion.
func (b *Body) sweptExpand(dt float32) {
	b.sweptDirection = rl.Vector3Scale(b.linearVelocity, dt)
	b.boundingBox = b.boundingBox.Sweep(b.sweptDirection)
}

// velocityAt returns the velocity of the body point at world offset r.
func (b *Body) velocityAt(r rl.Vector3) rl.Vector3 {
	if b.static {
		return rl.Vector3{}
	}
	v := b.linearVelocity
	if !b.IsParticle {
		v = rl.Vector3Add(v, rl.Vector3CrossProduct(b.angularVelocity, r))
	}
	return v
}

func (b *Body) effectiveInverseMass() float32 {
	if b.static {
		return 0
	}
	return b.inverseMass
}

func (b *Body) rotates() bool {
	return !b.static && !b.IsParticle
}
