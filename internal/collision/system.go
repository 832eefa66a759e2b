// Package collision implements the broadphase: it tracks entities by their
// bounding boxes, finds candidate pairs, refines them with a narrow phase and
// answers ray queries. Brute, SAP, PersistentSAP and GPU share one contract.
package collision

import (
	"errors"
	"fmt"
	"rigid3d/internal/shape"
	"rigid3d/internal/tasks"

	rl "github.com/gen2brain/raylib-go/raylib"
)

var (
	ErrNilEntity       = errors.New("collision: nil entity")
	ErrDuplicateEntity = errors.New("collision: entity already tracked")
)

// Entity is anything tracked by a broadphase.
type Entity interface {
	BoundingBox() shape.AABB
	IsStaticOrInactive() bool
}

// Collidable is a single rigid entity with one shape.
type Collidable interface {
	Entity
	Shape() shape.Shape
	Position() rl.Vector3
	Orientation() rl.Quaternion
	InvOrientation() rl.Quaternion
	// SweptDirection is the displacement of the last step.
	SweptDirection() rl.Vector3
	SpeculativeContacts() bool
}

// Aggregate is an entity made of many collidables, such as a soft body.
type Aggregate interface {
	Entity
	MemberCount() int
	Member(i int) Collidable
}

// DetectHandler receives every narrow-phase hit. The contact normal points
// from a towards b.
type DetectHandler func(a, b Collidable, c shape.Contact)

// BroadphaseFilter may veto a candidate pair before the narrow phase runs.
type BroadphaseFilter func(a, b Entity) bool

// RaycastFilter may reject a candidate hit.
type RaycastFilter func(body Collidable, normal rl.Vector3, fraction float32) bool

type RayHit struct {
	Body     Collidable
	Normal   rl.Vector3
	Fraction float32
}

// System is a broadphase strategy.
type System interface {
	// Add starts tracking e. Adding a tracked entity fails with ErrDuplicateEntity.
	Add(e Entity) error
	// Remove stops tracking e and reports whether it was tracked.
	Remove(e Entity) bool
	// Detect reports every overlapping pair to the detect handler. With
	// parallel set, narrow-phase work runs on the scheduler and hits are
	// delivered on the calling goroutine after the batch completes.
	Detect(parallel bool)
	// Raycast returns the closest hit across all tracked entities.
	Raycast(origin, dir rl.Vector3, filter RaycastFilter) (RayHit, bool)
	// RaycastEntity intersects a ray with a single entity.
	RaycastEntity(e Entity, origin, dir rl.Vector3) (RayHit, bool)
	Len() int
	Clear()

	SetDetectHandler(h DetectHandler)
	SetPassedBroadphase(f BroadphaseFilter)
	SetSpeculativeContacts(enabled bool)
}

// Options configures a strategy.
type Options struct {
	Narrowphase shape.Narrowphase
	Scheduler   *tasks.Scheduler
	Speculative bool
}

func (o Options) withDefaults() Options {
	if o.Narrowphase == nil {
		o.Narrowphase = shape.Default{}
	}
	return o
}

// tracker holds the registration shared by every strategy. Ids are handed out
// in insertion order and give entities a stable total order.
type tracker struct {
	ids    map[Entity]uint64
	nextID uint64
}

func newTracker() tracker {
	return tracker{ids: make(map[Entity]uint64)}
}

func (t *tracker) register(e Entity) error {
	if e == nil {
		return ErrNilEntity
	}
	if _, ok := t.ids[e]; ok {
		return fmt.Errorf("add %T: %w", e, ErrDuplicateEntity)
	}
	t.nextID++
	t.ids[e] = t.nextID
	return nil
}

func (t *tracker) unregister(e Entity) bool {
	if _, ok := t.ids[e]; !ok {
		return false
	}
	delete(t.ids, e)
	return true
}

func (t *tracker) reset() {
	clear(t.ids)
}

func removeEntity(list []Entity, e Entity) []Entity {
	for i, x := range list {
		if x == e {
			copy(list[i:], list[i+1:])
			list[len(list)-1] = nil
			return list[:len(list)-1]
		}
	}
	return list
}
