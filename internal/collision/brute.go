package collision

import rl "github.com/gen2brain/raylib-go/raylib"

// Brute tests every pair of tracked entities.
type Brute struct {
	detector
	tracker
	bodies []Entity
}

func NewBrute(opts Options) *Brute {
	return &Brute{detector: newDetector(opts), tracker: newTracker()}
}

func (b *Brute) Add(e Entity) error {
	if err := b.register(e); err != nil {
		return err
	}
	b.bodies = append(b.bodies, e)
	return nil
}

func (b *Brute) Remove(e Entity) bool {
	if !b.unregister(e) {
		return false
	}
	b.bodies = removeEntity(b.bodies, e)
	return true
}

func (b *Brute) Len() int { return len(b.bodies) }

func (b *Brute) Clear() {
	clear(b.bodies)
	b.bodies = b.bodies[:0]
	b.reset()
}

func (b *Brute) Detect(parallel bool) {
	for i := 0; i < len(b.bodies); i++ {
		boxA := b.bodies[i].BoundingBox()
		for j := i + 1; j < len(b.bodies); j++ {
			if boxA.Intersects(b.bodies[j].BoundingBox()) {
				b.candidate(b.bodies[i], b.bodies[j], parallel)
			}
		}
	}
	if parallel {
		b.flush()
	}
}

func (b *Brute) Raycast(origin, dir rl.Vector3, filter RaycastFilter) (RayHit, bool) {
	return b.raycastAll(b.bodies, origin, dir, filter)
}

func (b *Brute) RaycastEntity(e Entity, origin, dir rl.Vector3) (RayHit, bool) {
	return b.raycastEntity(e, origin, dir)
}
