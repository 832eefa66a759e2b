package physics

import (
	"rigid3d/internal/collision"
	"rigid3d/internal/shape"

	rl "github.com/gen2brain/raylib-go/raylib"
)

func (w *World) collisionDetected(a, b collision.Collidable, c shape.Contact) {
	w.bodiesCollided(a.(*Body), b.(*Body), c)
}

// bodiesCollided merges a narrow-phase hit into the arbiter of the pair,
// creating the arbiter on first contact. New arbiters are queued for the
// island manager.
func (w *World) bodiesCollided(b1, b2 *Body, c shape.Contact) {
	arb, ok := w.arbiterMap.Lookup(b1, b2)
	if !ok {
		arb = w.arbiterPool.Acquire()
		arb.body1, arb.body2 = b1, b2
		w.arbiterMap.add(arb)
		w.addedArbiters = append(w.addedArbiters, arb)
		w.Events.BodiesBeginCollide.Invoke(b1, b2)
	}

	// Contacts are stored in the arbiter's body order
	var created *Contact
	if arb.body1 == b1 {
		created = arb.addContact(c.PointA, c.PointB, c.Normal, c.Penetration, &w.contactSettings, w.contactPool)
	} else {
		created = arb.addContact(c.PointB, c.PointA, rl.Vector3Negate(c.Normal), c.Penetration, &w.contactSettings, w.contactPool)
	}
	if created != nil {
		w.Events.ContactCreated.Invoke(created)
	}
}
