package physics

import "rigid3d/internal/event"

// Events are raised synchronously on the goroutine calling Step or the
// mutating World method.
type Events struct {
	PreStep  event.Event[float32]
	PostStep event.Event[float32]

	BodyAdded          event.Event[*Body]
	BodyRemoved        event.Event[*Body]
	ConstraintAdded    event.Event[Constraint]
	ConstraintRemoved  event.Event[Constraint]
	SoftBodyAdded      event.Event[*SoftBody]
	SoftBodyRemoved    event.Event[*SoftBody]
	BodiesBeginCollide event.Event2[*Body, *Body]
	BodiesEndCollide   event.Event2[*Body, *Body]
	ContactCreated     event.Event[*Contact]
	BodyActivated      event.Event[*Body]
	BodyDeactivated    event.Event[*Body]
}
