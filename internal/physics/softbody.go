package physics

import (
	"cmp"
	"fmt"
	"rigid3d/internal/collision"
	"rigid3d/internal/shape"
	"slices"

	rl "github.com/gen2brain/raylib-go/raylib"
)

// SoftBody is a set of point masses held together by springs. Its points
// are ordinary bodies in the world graph; the broadphase sees the soft body
// as one aggregate entity.
type SoftBody struct {
	points  []*Body
	springs []*Spring
	edges   [][2]int
	// Triangles index points for drawing cloth surfaces.
	Triangles [][3]int

	// SpringSoftness and SpringBias are copied to every edge spring on Update.
	SpringSoftness float32
	SpringBias     float32
	SelfCollision  bool

	adjacent    map[[2]int]struct{}
	boundingBox shape.AABB
	order       []int
	world       *World
}

// NewSoftBody creates one particle body per point and one spring per edge.
func NewSoftBody(points []rl.Vector3, edges [][2]int, pointRadius, pointMass float32) (*SoftBody, error) {
	for _, e := range edges {
		if e[0] < 0 || e[1] < 0 || e[0] >= len(points) || e[1] >= len(points) || e[0] == e[1] {
			return nil, fmt.Errorf("edge %v with %d points: %w", e, len(points), ErrInvalidEdge)
		}
	}

	sb := &SoftBody{
		edges:          slices.Clone(edges),
		SpringSoftness: 0.01,
		SpringBias:     0.1,
		SelfCollision:  true,
		adjacent:       make(map[[2]int]struct{}, len(edges)),
	}

	sphere := shape.NewSphere(pointRadius)
	for _, p := range points {
		b := NewBody(sphere, pointMass)
		b.IsParticle = true
		b.softBody = sb
		b.SetPosition(p)
		sb.points = append(sb.points, b)
	}

	for _, e := range edges {
		s := NewSpring(sb.points[e[0]], sb.points[e[1]])
		s.Softness = sb.SpringSoftness
		s.BiasFactor = sb.SpringBias
		sb.springs = append(sb.springs, s)
		sb.adjacent[edgeKey(e[0], e[1])] = struct{}{}
	}

	sb.updateBoundingBox()
	return sb, nil
}

// NewCloth builds a sizeX by sizeY grid of points in the XZ plane, spaced by
// scale, with structural and shear springs.
func NewCloth(sizeX, sizeY int, scale, pointMass float32) (*SoftBody, error) {
	var points []rl.Vector3
	for y := 0; y < sizeY; y++ {
		for x := 0; x < sizeX; x++ {
			points = append(points, rl.Vector3{X: float32(x) * scale, Z: float32(y) * scale})
		}
	}

	idx := func(x, y int) int { return y*sizeX + x }
	var edges [][2]int
	var tris [][3]int
	for y := 0; y < sizeY; y++ {
		for x := 0; x < sizeX; x++ {
			if x+1 < sizeX {
				edges = append(edges, [2]int{idx(x, y), idx(x+1, y)})
			}
			if y+1 < sizeY {
				edges = append(edges, [2]int{idx(x, y), idx(x, y+1)})
			}
			if x+1 < sizeX && y+1 < sizeY {
				edges = append(edges,
					[2]int{idx(x, y), idx(x+1, y+1)},
					[2]int{idx(x+1, y), idx(x, y+1)})
				tris = append(tris,
					[3]int{idx(x, y), idx(x+1, y), idx(x, y+1)},
					[3]int{idx(x+1, y), idx(x+1, y+1), idx(x, y+1)})
			}
		}
	}

	sb, err := NewSoftBody(points, edges, scale*0.25, pointMass)
	if err != nil {
		return nil, err
	}
	sb.Triangles = tris
	return sb, nil
}

func edgeKey(a, b int) [2]int {
	if a > b {
		a, b = b, a
	}
	return [2]int{a, b}
}

// Points returns the vertex bodies. The slice is owned by the soft body.
func (sb *SoftBody) Points() []*Body { return sb.points }

func (sb *SoftBody) Springs() []*Spring { return sb.springs }

func (sb *SoftBody) Edges() [][2]int { return sb.edges }

func (sb *SoftBody) World() *World { return sb.world }

// Translate moves every point by offset.
func (sb *SoftBody) Translate(offset rl.Vector3) {
	for _, p := range sb.points {
		p.SetPosition(rl.Vector3Add(p.position, offset))
	}
	sb.updateBoundingBox()
}

func (sb *SoftBody) BoundingBox() shape.AABB { return sb.boundingBox }

func (sb *SoftBody) IsStaticOrInactive() bool {
	for _, p := range sb.points {
		if !p.IsStaticOrInactive() {
			return false
		}
	}
	return true
}

func (sb *SoftBody) MemberCount() int                  { return len(sb.points) }
func (sb *SoftBody) Member(i int) collision.Collidable { return sb.points[i] }

// Update copies the spring settings and refreshes the aggregate bounds.
func (sb *SoftBody) Update(dt float32) {
	for _, s := range sb.springs {
		s.Softness = sb.SpringSoftness
		s.BiasFactor = sb.SpringBias
	}
	sb.updateBoundingBox()
}

func (sb *SoftBody) updateBoundingBox() {
	box := shape.EmptyAABB()
	for _, p := range sb.points {
		box = box.Merge(p.boundingBox)
	}
	sb.boundingBox = box
}

// selfCollide reports touching points that do not share an edge. Points are
// swept along X like the sweep and prune broadphase.
func (sb *SoftBody) selfCollide(narrow shape.Narrowphase, handler func(a, b *Body, c shape.Contact)) {
	if !sb.SelfCollision {
		return
	}

	sb.order = sb.order[:0]
	for i := range sb.points {
		sb.order = append(sb.order, i)
	}
	slices.SortStableFunc(sb.order, func(a, b int) int {
		return cmp.Compare(sb.points[a].boundingBox.Min.X, sb.points[b].boundingBox.Min.X)
	})

	for n, i := range sb.order {
		a := sb.points[i]
		for _, j := range sb.order[n+1:] {
			b := sb.points[j]
			if b.boundingBox.Min.X > a.boundingBox.Max.X {
				break
			}
			if a.IsStaticOrInactive() && b.IsStaticOrInactive() {
				continue
			}
			if _, ok := sb.adjacent[edgeKey(i, j)]; ok {
				continue
			}
			if !a.boundingBox.IntersectsYZ(b.boundingBox) {
				continue
			}
			if c, ok := narrow.Detect(a.shape, b.shape, a.orientation, b.orientation, a.position, b.position); ok {
				handler(a, b, c)
			}
		}
	}
}
