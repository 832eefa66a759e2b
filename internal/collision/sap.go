package collision

import (
	"cmp"
	"slices"

	rl "github.com/gen2brain/raylib-go/raylib"
)

// SAP sorts entities along X every step and sweeps an active list, so only
// entities overlapping on X are tested on Y and Z.
type SAP struct {
	detector
	tracker
	bodies []Entity
	active []Entity
}

func NewSAP(opts Options) *SAP {
	return &SAP{detector: newDetector(opts), tracker: newTracker()}
}

func (s *SAP) Add(e Entity) error {
	if err := s.register(e); err != nil {
		return err
	}
	s.bodies = append(s.bodies, e)
	return nil
}

func (s *SAP) Remove(e Entity) bool {
	if !s.unregister(e) {
		return false
	}
	s.bodies = removeEntity(s.bodies, e)
	return true
}

func (s *SAP) Len() int { return len(s.bodies) }

func (s *SAP) Clear() {
	clear(s.bodies)
	s.bodies = s.bodies[:0]
	clear(s.active)
	s.active = s.active[:0]
	s.reset()
}

func (s *SAP) Detect(parallel bool) {
	// Stable sort keeps last step's order for ties, which is nearly sorted already
	slices.SortStableFunc(s.bodies, func(a, b Entity) int {
		return cmp.Compare(a.BoundingBox().Min.X, b.BoundingBox().Min.X)
	})

	s.active = s.active[:0]
	for _, body := range s.bodies {
		box := body.BoundingBox()

		n := 0
		for _, other := range s.active {
			otherBox := other.BoundingBox()
			if otherBox.Max.X < box.Min.X {
				continue
			}
			s.active[n] = other
			n++

			if box.IntersectsYZ(otherBox) {
				s.candidate(body, other, parallel)
			}
		}
		clear(s.active[n:])
		s.active = append(s.active[:n], body)
	}
	clear(s.active)
	s.active = s.active[:0]

	if parallel {
		s.flush()
	}
}

func (s *SAP) Raycast(origin, dir rl.Vector3, filter RaycastFilter) (RayHit, bool) {
	return s.raycastAll(s.bodies, origin, dir, filter)
}

func (s *SAP) RaycastEntity(e Entity, origin, dir rl.Vector3) (RayHit, bool) {
	return s.raycastEntity(e, origin, dir)
}
