package physics

import rl "github.com/gen2brain/raylib-go/raylib"

// Constraint relates one or two bodies and corrects their velocities during
// the solver passes. Body2 may be nil for constraints on a single body.
type Constraint interface {
	Body1() *Body
	Body2() *Body
	// PrepareForIteration runs once per step before the first Iterate.
	PrepareForIteration(dt float32)
	Iterate()
}

// DistanceBehavior limits which direction a distance constraint enforces.
type DistanceBehavior int

const (
	LimitDistance DistanceBehavior = iota
	LimitMaximumDistance
	LimitMinimumDistance
)

// skip reports whether the constraint is slack for the current error.
func (d DistanceBehavior) skip(deltaLength float32) bool {
	switch d {
	case LimitMaximumDistance:
		return deltaLength <= 0
	case LimitMinimumDistance:
		return deltaLength >= 0
	}
	return false
}

// clampLambda keeps the accumulated impulse on the side the behavior allows.
func (d DistanceBehavior) clampLambda(accumulated, lambda float32) float32 {
	switch d {
	case LimitMinimumDistance:
		if accumulated+lambda < 0 {
			return -accumulated
		}
	case LimitMaximumDistance:
		if accumulated+lambda > 0 {
			return -accumulated
		}
	}
	return lambda
}

// Spring keeps the centres of two bodies at a fixed distance. It is soft:
// Softness lets the constraint stretch under load.
type Spring struct {
	body1, body2 *Body

	Distance   float32
	Softness   float32
	BiasFactor float32
	Behavior   DistanceBehavior

	normal             rl.Vector3
	effectiveMass      float32
	accumulatedImpulse float32
	bias               float32
	softnessOverDt     float32
	skip               bool
}

// NewSpring connects two bodies at their current distance.
func NewSpring(b1, b2 *Body) *Spring {
	return &Spring{
		body1:      b1,
		body2:      b2,
		Distance:   rl.Vector3Distance(b1.position, b2.position),
		Softness:   0.01,
		BiasFactor: 0.1,
	}
}

func (s *Spring) Body1() *Body { return s.body1 }
func (s *Spring) Body2() *Body { return s.body2 }

func (s *Spring) AccumulatedImpulse() float32 { return s.accumulatedImpulse }

func (s *Spring) PrepareForIteration(dt float32) {
	dp := rl.Vector3Subtract(s.body2.position, s.body1.position)
	deltaLength := rl.Vector3Length(dp) - s.Distance

	s.skip = s.Behavior.skip(deltaLength)
	if s.skip {
		return
	}

	s.normal = dp
	if rl.Vector3DotProduct(dp, dp) > epsilon*epsilon {
		s.normal = rl.Vector3Normalize(dp)
	}

	s.softnessOverDt = s.Softness / dt
	s.effectiveMass = invertOrZero(s.body1.effectiveInverseMass() + s.body2.effectiveInverseMass() + s.softnessOverDt)
	s.bias = deltaLength * s.BiasFactor / dt

	s.apply(s.accumulatedImpulse)
}

func (s *Spring) Iterate() {
	if s.skip {
		return
	}
	jv := rl.Vector3DotProduct(rl.Vector3Subtract(s.body2.linearVelocity, s.body1.linearVelocity), s.normal)
	lambda := -s.effectiveMass * (jv + s.bias + s.accumulatedImpulse*s.softnessOverDt)
	lambda = s.Behavior.clampLambda(s.accumulatedImpulse, lambda)

	s.accumulatedImpulse += lambda
	s.apply(lambda)
}

func (s *Spring) apply(lambda float32) {
	impulse := rl.Vector3Scale(s.normal, lambda)
	if b := s.body1; !b.static {
		b.linearVelocity = rl.Vector3Subtract(b.linearVelocity, rl.Vector3Scale(impulse, b.inverseMass))
	}
	if b := s.body2; !b.static {
		b.linearVelocity = rl.Vector3Add(b.linearVelocity, rl.Vector3Scale(impulse, b.inverseMass))
	}
}

// PointPointDistance keeps two body-local anchors at a fixed distance. With
// a distance of zero it acts as a ball joint.
type PointPointDistance struct {
	body1, body2 *Body
	localAnchor1 rl.Vector3
	localAnchor2 rl.Vector3

	Distance   float32
	Softness   float32
	BiasFactor float32
	Behavior   DistanceBehavior

	r1, r2             rl.Vector3
	jacobian           [4]rl.Vector3
	effectiveMass      float32
	accumulatedImpulse float32
	bias               float32
	softnessOverDt     float32
	skip               bool
}

// NewPointPointDistance anchors the constraint at two world points and keeps
// their current distance.
func NewPointPointDistance(b1, b2 *Body, anchor1, anchor2 rl.Vector3) *PointPointDistance {
	return &PointPointDistance{
		body1:        b1,
		body2:        b2,
		localAnchor1: rl.Vector3RotateByQuaternion(rl.Vector3Subtract(anchor1, b1.position), b1.invOrientation),
		localAnchor2: rl.Vector3RotateByQuaternion(rl.Vector3Subtract(anchor2, b2.position), b2.invOrientation),
		Distance:     rl.Vector3Distance(anchor1, anchor2),
		Softness:     0.01,
		BiasFactor:   0.1,
	}
}

func (p *PointPointDistance) Body1() *Body { return p.body1 }
func (p *PointPointDistance) Body2() *Body { return p.body2 }

// Anchors returns the current world positions of both anchors.
func (p *PointPointDistance) Anchors() (rl.Vector3, rl.Vector3) {
	a1 := rl.Vector3Add(p.body1.position, rl.Vector3RotateByQuaternion(p.localAnchor1, p.body1.orientation))
	a2 := rl.Vector3Add(p.body2.position, rl.Vector3RotateByQuaternion(p.localAnchor2, p.body2.orientation))
	return a1, a2
}

func (p *PointPointDistance) PrepareForIteration(dt float32) {
	p.r1 = rl.Vector3RotateByQuaternion(p.localAnchor1, p.body1.orientation)
	p.r2 = rl.Vector3RotateByQuaternion(p.localAnchor2, p.body2.orientation)

	dp := rl.Vector3Subtract(
		rl.Vector3Add(p.body2.position, p.r2),
		rl.Vector3Add(p.body1.position, p.r1))
	deltaLength := rl.Vector3Length(dp) - p.Distance

	p.skip = p.Behavior.skip(deltaLength)
	if p.skip {
		return
	}

	n := dp
	if rl.Vector3DotProduct(dp, dp) > epsilon*epsilon {
		n = rl.Vector3Normalize(dp)
	}

	p.jacobian[0] = rl.Vector3Negate(n)
	p.jacobian[1] = rl.Vector3Negate(rl.Vector3CrossProduct(p.r1, n))
	p.jacobian[2] = n
	p.jacobian[3] = rl.Vector3CrossProduct(p.r2, n)

	k := p.body1.effectiveInverseMass() + p.body2.effectiveInverseMass()
	if p.body1.rotates() {
		k += rl.Vector3DotProduct(mulInertia(p.body1.invInertiaWorld, p.jacobian[1]), p.jacobian[1])
	}
	if p.body2.rotates() {
		k += rl.Vector3DotProduct(mulInertia(p.body2.invInertiaWorld, p.jacobian[3]), p.jacobian[3])
	}

	p.softnessOverDt = p.Softness / dt
	p.effectiveMass = invertOrZero(k + p.softnessOverDt)
	p.bias = deltaLength * p.BiasFactor / dt

	p.apply(p.accumulatedImpulse)
}

func (p *PointPointDistance) Iterate() {
	if p.skip {
		return
	}
	b1, b2 := p.body1, p.body2
	jv := rl.Vector3DotProduct(b1.linearVelocity, p.jacobian[0]) +
		rl.Vector3DotProduct(b1.angularVelocity, p.jacobian[1]) +
		rl.Vector3DotProduct(b2.linearVelocity, p.jacobian[2]) +
		rl.Vector3DotProduct(b2.angularVelocity, p.jacobian[3])

	lambda := -p.effectiveMass * (jv + p.bias + p.accumulatedImpulse*p.softnessOverDt)
	lambda = p.Behavior.clampLambda(p.accumulatedImpulse, lambda)

	p.accumulatedImpulse += lambda
	p.apply(lambda)
}

func (p *PointPointDistance) apply(lambda float32) {
	if b := p.body1; !b.static {
		b.linearVelocity = rl.Vector3Add(b.linearVelocity, rl.Vector3Scale(p.jacobian[0], lambda*b.inverseMass))
		if b.rotates() {
			dw := mulInertia(b.invInertiaWorld, rl.Vector3Scale(p.jacobian[1], lambda))
			b.angularVelocity = rl.Vector3Add(b.angularVelocity, dw)
		}
	}
	if b := p.body2; !b.static {
		b.linearVelocity = rl.Vector3Add(b.linearVelocity, rl.Vector3Scale(p.jacobian[2], lambda*b.inverseMass))
		if b.rotates() {
			dw := mulInertia(b.invInertiaWorld, rl.Vector3Scale(p.jacobian[3], lambda))
			b.angularVelocity = rl.Vector3Add(b.angularVelocity, dw)
		}
	}
}
