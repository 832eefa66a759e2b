package physics

import (
	"github.com/chewxy/math32"
	rl "github.com/gen2brain/raylib-go/raylib"
)

// Contact is one persistent contact point between the bodies of an arbiter.
// Normal points from Body1 to Body2 and penetration is positive when the
// bodies overlap.
type Contact struct {
	body1, body2 *Body
	settings     *ContactSettings

	// Anchors in body space, and their world offsets from each body
	localPos1, localPos2 rl.Vector3
	relPos1, relPos2     rl.Vector3

	p1, p2      rl.Vector3
	normal      rl.Vector3
	tangent     rl.Vector3
	penetration float32
	initialPen  float32

	accumulatedNormalImpulse  float32
	accumulatedTangentImpulse float32

	massNormal, massTangent float32
	restitutionBias         float32
	speculativeVelocity     float32
	lostSpeculativeBounce   float32
	lastTimeStep            float32

	staticFriction, kineticFriction float32
	friction, restitution           float32

	newContact bool
}

func resetContact(c *Contact) { *c = Contact{} }

func (c *Contact) Body1() *Body                       { return c.body1 }
func (c *Contact) Body2() *Body                       { return c.body2 }
func (c *Contact) Position1() rl.Vector3              { return c.p1 }
func (c *Contact) Position2() rl.Vector3              { return c.p2 }
func (c *Contact) Normal() rl.Vector3                 { return c.normal }
func (c *Contact) Tangent() rl.Vector3                { return c.tangent }
func (c *Contact) Penetration() float32               { return c.penetration }
func (c *Contact) AccumulatedNormalImpulse() float32  { return c.accumulatedNormalImpulse }
func (c *Contact) AccumulatedTangentImpulse() float32 { return c.accumulatedTangentImpulse }
func (c *Contact) Friction() float32                  { return c.friction }
func (c *Contact) Restitution() float32               { return c.restitution }

// initialize sets the geometry of the contact. A new contact also resets its
// impulses and mixes the body materials; a replaced one keeps both.
func (c *Contact) initialize(b1, b2 *Body, p1, p2, normal rl.Vector3, penetration float32, newContact bool, settings *ContactSettings) {
	c.body1, c.body2 = b1, b2
	c.settings = settings
	c.normal = rl.Vector3Normalize(normal)
	c.p1, c.p2 = p1, p2
	c.newContact = newContact

	c.relPos1 = rl.Vector3Subtract(p1, b1.position)
	c.relPos2 = rl.Vector3Subtract(p2, b2.position)
	c.localPos1 = rl.Vector3RotateByQuaternion(c.relPos1, b1.invOrientation)
	c.localPos2 = rl.Vector3RotateByQuaternion(c.relPos2, b2.invOrientation)

	c.initialPen = penetration
	c.penetration = penetration

	if !newContact {
		return
	}
	c.accumulatedNormalImpulse = 0
	c.accumulatedTangentImpulse = 0
	c.lostSpeculativeBounce = 0
	c.lastTimeStep = 0

	m1, m2 := b1.material, b2.material
	c.staticFriction = settings.MaterialMixing.mix(m1.StaticFriction, m2.StaticFriction)
	c.kineticFriction = settings.MaterialMixing.mix(m1.KineticFriction, m2.KineticFriction)
	c.restitution = settings.MaterialMixing.mix(m1.Restitution, m2.Restitution)
}

// updatePosition moves the contact points with their bodies and recomputes
// the penetration along the stored normal.
func (c *Contact) updatePosition() {
	if c.body1.IsParticle {
		c.p1 = rl.Vector3Add(c.relPos1, c.body1.position)
	} else {
		c.relPos1 = rl.Vector3RotateByQuaternion(c.localPos1, c.body1.orientation)
		c.p1 = rl.Vector3Add(c.relPos1, c.body1.position)
	}
	if c.body2.IsParticle {
		c.p2 = rl.Vector3Add(c.relPos2, c.body2.position)
	} else {
		c.relPos2 = rl.Vector3RotateByQuaternion(c.localPos2, c.body2.orientation)
		c.p2 = rl.Vector3Add(c.relPos2, c.body2.position)
	}
	c.penetration = rl.Vector3DotProduct(rl.Vector3Subtract(c.p1, c.p2), c.normal)
}

// drift returns the squared tangential distance between the two contact points.
func (c *Contact) drift() float32 {
	diff := rl.Vector3Subtract(c.p1, c.p2)
	along := rl.Vector3DotProduct(diff, c.normal)
	diff = rl.Vector3Subtract(diff, rl.Vector3Scale(c.normal, along))
	return rl.Vector3DotProduct(diff, diff)
}

func (c *Contact) relativeVelocity() rl.Vector3 {
	return rl.Vector3Subtract(c.body2.velocityAt(c.relPos2), c.body1.velocityAt(c.relPos1))
}

// effectiveMass returns 1 / (J M⁻¹ Jᵀ) for a direction through both anchors.
func (c *Contact) effectiveMass(dir rl.Vector3) float32 {
	var k float32
	for i, b := range [2]*Body{c.body1, c.body2} {
		if b.static {
			continue
		}
		k += b.inverseMass
		if b.IsParticle {
			continue
		}
		r := c.relPos1
		if i == 1 {
			r = c.relPos2
		}
		rn := mulInertia(b.invInertiaWorld, rl.Vector3CrossProduct(r, dir))
		k += rl.Vector3DotProduct(rl.Vector3CrossProduct(rn, r), dir)
	}
	return invertOrZero(k)
}

func (c *Contact) prepareForIteration(dt float32) {
	dv := c.relativeVelocity()
	relNormalVel := rl.Vector3DotProduct(c.normal, dv)

	c.massNormal = c.effectiveMass(c.normal)

	c.tangent = rl.Vector3Subtract(dv, rl.Vector3Scale(c.normal, relNormalVel))
	if l2 := rl.Vector3DotProduct(c.tangent, c.tangent); l2 > epsilon*epsilon {
		c.tangent = rl.Vector3Scale(c.tangent, 1/math32.Sqrt(l2))
	}
	c.massTangent = c.effectiveMass(c.tangent)

	s := c.settings
	c.restitutionBias = c.lostSpeculativeBounce
	c.speculativeVelocity = 0

	if c.penetration > s.AllowedPenetration {
		c.restitutionBias = s.BiasFactor / dt * max(0, c.penetration-s.AllowedPenetration)
		c.restitutionBias = clamp(c.restitutionBias, 0, s.MaximumBias)
	}

	// Warm start impulses were computed for the previous step's length
	if c.lastTimeStep > 0 {
		ratio := dt / c.lastTimeStep
		c.accumulatedNormalImpulse *= ratio
		c.accumulatedTangentImpulse *= ratio
	}

	relTangentVel := -rl.Vector3DotProduct(c.tangent, dv)
	tangentImpulse := c.massTangent * relTangentVel
	maxTangentImpulse := -c.staticFriction * c.accumulatedNormalImpulse
	if tangentImpulse < maxTangentImpulse {
		c.friction = c.kineticFriction
	} else {
		c.friction = c.staticFriction
	}

	// Restitution applies only on first impact
	if relNormalVel < -1 && c.newContact {
		c.restitutionBias = max(-c.restitution*relNormalVel, c.restitutionBias)
	}

	if c.penetration < -s.AllowedPenetration {
		c.speculativeVelocity = c.penetration / dt
		c.lostSpeculativeBounce = c.restitutionBias
		c.restitutionBias = 0
	} else {
		c.lostSpeculativeBounce = 0
	}

	impulse := rl.Vector3Add(
		rl.Vector3Scale(c.normal, c.accumulatedNormalImpulse),
		rl.Vector3Scale(c.tangent, c.accumulatedTangentImpulse))
	c.applyImpulse(impulse)

	c.lastTimeStep = dt
	c.newContact = false
}

func (c *Contact) iterate() {
	if c.body1.static && c.body2.static {
		return
	}

	dv := c.relativeVelocity()
	minV := c.settings.MinVelocity
	if rl.Vector3DotProduct(dv, dv) < minV*minV*0.001 {
		return
	}

	vn := rl.Vector3DotProduct(c.normal, dv)
	normalImpulse := c.massNormal * (-vn + c.restitutionBias + c.speculativeVelocity)

	old := c.accumulatedNormalImpulse
	c.accumulatedNormalImpulse = max(0, old+normalImpulse)
	normalImpulse = c.accumulatedNormalImpulse - old

	vt := rl.Vector3DotProduct(dv, c.tangent)
	maxTangentImpulse := c.friction * c.accumulatedNormalImpulse
	tangentImpulse := c.massTangent * -vt

	old = c.accumulatedTangentImpulse
	c.accumulatedTangentImpulse = clamp(old+tangentImpulse, -maxTangentImpulse, maxTangentImpulse)
	tangentImpulse = c.accumulatedTangentImpulse - old

	c.applyImpulse(rl.Vector3Add(
		rl.Vector3Scale(c.normal, normalImpulse),
		rl.Vector3Scale(c.tangent, tangentImpulse)))
}

// applyImpulse pushes body2 along impulse and body1 against it.
func (c *Contact) applyImpulse(impulse rl.Vector3) {
	if b := c.body1; !b.static {
		b.linearVelocity = rl.Vector3Subtract(b.linearVelocity, rl.Vector3Scale(impulse, b.inverseMass))
		if !b.IsParticle {
			dw := mulInertia(b.invInertiaWorld, rl.Vector3CrossProduct(c.relPos1, impulse))
			b.angularVelocity = rl.Vector3Subtract(b.angularVelocity, dw)
		}
	}
	if b := c.body2; !b.static {
		b.linearVelocity = rl.Vector3Add(b.linearVelocity, rl.Vector3Scale(impulse, b.inverseMass))
		if !b.IsParticle {
			dw := mulInertia(b.invInertiaWorld, rl.Vector3CrossProduct(c.relPos2, impulse))
			b.angularVelocity = rl.Vector3Add(b.angularVelocity, dw)
		}
	}
}
