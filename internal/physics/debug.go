package physics

import (
	"rigid3d/internal/shape"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"
)

// DebugType names a stage of the step pipeline.
type DebugType int

const (
	DebugPreStep DebugType = iota
	DebugUpdateContacts
	DebugUpdateSoftBodies
	DebugCollisionDetect
	DebugBuildIslands
	DebugDeactivationCheck
	DebugIntegrateForces
	DebugHandleArbiter
	DebugIntegrate
	DebugPostStep
	DebugTypeCount
)

var debugNames = [DebugTypeCount]string{
	"PreStep",
	"UpdateContacts",
	"UpdateSoftBodies",
	"CollisionDetect",
	"BuildIslands",
	"DeactivationCheck",
	"IntegrateForces",
	"HandleArbiter",
	"Integrate",
	"PostStep",
}

func (d DebugType) String() string {
	if d < 0 || d >= DebugTypeCount {
		return "Unknown"
	}
	return debugNames[d]
}

// DebugTimes returns how long each stage of the last step took.
func (w *World) DebugTimes() [DebugTypeCount]time.Duration {
	return w.debugTimes
}

// Stats counts the objects owned by a world.
type Stats struct {
	Bodies        int
	ActiveBodies  int
	Constraints   int
	SoftBodies    int
	Arbiters      int
	Contacts      int
	Islands       int
	ActiveIslands int

	// Pool sizes: objects allocated and objects currently idle
	ArbitersCreated int
	ArbitersFree    int
	ContactsCreated int
	ContactsFree    int
}

func (w *World) Stats() Stats {
	s := Stats{
		Bodies:          w.bodies.len(),
		Constraints:     w.constraints.len(),
		SoftBodies:      w.softBodies.len(),
		Arbiters:        w.arbiterMap.Len(),
		Islands:         w.islands.Len(),
		ArbitersCreated: w.arbiterPool.Created(),
		ArbitersFree:    w.arbiterPool.Free(),
		ContactsCreated: w.contactPool.Created(),
		ContactsFree:    w.contactPool.Free(),
	}
	for _, b := range w.bodies.items {
		if b.active && !b.static {
			s.ActiveBodies++
		}
	}
	for _, a := range w.arbiterMap.list {
		s.Contacts += len(a.contacts)
	}
	for _, isl := range w.islands.Islands() {
		if isl.IsActive() {
			s.ActiveIslands++
		}
	}
	return s
}

// DebugDrawer receives debug geometry in world space.
type DebugDrawer interface {
	DrawLine(a, b rl.Vector3)
	DrawPoint(p rl.Vector3)
	DrawTriangle(a, b, c rl.Vector3)
}

// DebugDraw draws the bounding box of every body, every contact with its
// normal, and the springs and triangles of soft bodies.
func (w *World) DebugDraw(d DebugDrawer) {
	for _, b := range w.bodies.items {
		if b.softBody == nil {
			drawBox(d, b.boundingBox)
		}
	}

	for _, a := range w.arbiterMap.list {
		for _, c := range a.contacts {
			d.DrawPoint(c.p1)
			d.DrawLine(c.p1, rl.Vector3Add(c.p1, rl.Vector3Scale(c.normal, 0.5)))
		}
	}

	for _, sb := range w.softBodies.items {
		for _, s := range sb.springs {
			d.DrawLine(s.body1.position, s.body2.position)
		}
		for _, t := range sb.Triangles {
			d.DrawTriangle(sb.points[t[0]].position, sb.points[t[1]].position, sb.points[t[2]].position)
		}
	}
}

func drawBox(d DebugDrawer, box shape.AABB) {
	lo, hi := box.Min, box.Max
	corners := [8]rl.Vector3{
		{X: lo.X, Y: lo.Y, Z: lo.Z}, {X: hi.X, Y: lo.Y, Z: lo.Z},
		{X: hi.X, Y: lo.Y, Z: hi.Z}, {X: lo.X, Y: lo.Y, Z: hi.Z},
		{X: lo.X, Y: hi.Y, Z: lo.Z}, {X: hi.X, Y: hi.Y, Z: lo.Z},
		{X: hi.X, Y: hi.Y, Z: hi.Z}, {X: lo.X, Y: hi.Y, Z: hi.Z},
	}
	for i := 0; i < 4; i++ {
		d.DrawLine(corners[i], corners[(i+1)%4])
		d.DrawLine(corners[i+4], corners[(i+1)%4+4])
		d.DrawLine(corners[i], corners[i+4])
	}
}
