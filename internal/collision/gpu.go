package collision

import (
	"cmp"
	"log"
	"rigid3d/internal/compute"
	"slices"

	rl "github.com/gen2brain/raylib-go/raylib"
)

// GPU finds candidate pairs with a compute shader over all bounding boxes and
// refines them on the CPU like the other strategies. When the GPU reports an
// error the step falls back to an exhaustive CPU scan.
type GPU struct {
	detector
	tracker
	bodies []Entity
	boxes  []compute.Box
	bp     *compute.BroadPhase

	fallback bool
}

// NewGPU initializes the compute device and allocates room for maxObjects entities.
func NewGPU(opts Options, maxObjects int) (*GPU, error) {
	if _, err := compute.Initialize(); err != nil {
		return nil, err
	}
	bp, err := compute.NewBroadPhase(uint32(maxObjects), uint32(maxObjects*20))
	if err != nil {
		return nil, err
	}
	return &GPU{detector: newDetector(opts), tracker: newTracker(), bp: bp}, nil
}

func (g *GPU) Add(e Entity) error {
	if err := g.register(e); err != nil {
		return err
	}
	g.bodies = append(g.bodies, e)
	return nil
}

func (g *GPU) Remove(e Entity) bool {
	if !g.unregister(e) {
		return false
	}
	g.bodies = removeEntity(g.bodies, e)
	return true
}

func (g *GPU) Len() int { return len(g.bodies) }

func (g *GPU) Clear() {
	clear(g.bodies)
	g.bodies = g.bodies[:0]
	g.reset()
}

// Release frees the GPU buffers.
func (g *GPU) Release() {
	if g.bp != nil {
		g.bp.Release()
		g.bp = nil
	}
}

func (g *GPU) Detect(parallel bool) {
	g.boxes = g.boxes[:0]
	for _, e := range g.bodies {
		box := e.BoundingBox()
		var flags uint32
		if e.IsStaticOrInactive() {
			flags = compute.FlagSleeping
		}
		g.boxes = append(g.boxes, compute.Box{
			MinX: box.Min.X, MinY: box.Min.Y, MinZ: box.Min.Z,
			Flags: flags,
			MaxX: box.Max.X, MaxY: box.Max.Y, MaxZ: box.Max.Z,
		})
	}

	pairs, err := g.bp.DetectPairs(g.boxes)
	if err != nil {
		if !g.fallback {
			log.Printf("Physics: GPU broad-phase OFF (%v)", err)
			g.fallback = true
		}
		g.detectCPU(parallel)
		return
	}
	if g.fallback {
		log.Printf("Physics: GPU broad-phase ON (%d objects)", len(g.bodies))
		g.fallback = false
	}

	// Shader output order depends on thread timing
	slices.SortFunc(pairs, func(a, b compute.Pair) int {
		if c := cmp.Compare(a.A, b.A); c != 0 {
			return c
		}
		return cmp.Compare(a.B, b.B)
	})

	for _, p := range pairs {
		g.candidate(g.bodies[p.A], g.bodies[p.B], parallel)
	}
	if parallel {
		g.flush()
	}
}

func (g *GPU) detectCPU(parallel bool) {
	for i := 0; i < len(g.bodies); i++ {
		boxA := g.bodies[i].BoundingBox()
		for j := i + 1; j < len(g.bodies); j++ {
			if boxA.Intersects(g.bodies[j].BoundingBox()) {
				g.candidate(g.bodies[i], g.bodies[j], parallel)
			}
		}
	}
	if parallel {
		g.flush()
	}
}

func (g *GPU) Raycast(origin, dir rl.Vector3, filter RaycastFilter) (RayHit, bool) {
	return g.raycastAll(g.bodies, origin, dir, filter)
}

func (g *GPU) RaycastEntity(e Entity, origin, dir rl.Vector3) (RayHit, bool) {
	return g.raycastEntity(e, origin, dir)
}
