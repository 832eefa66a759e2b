package camera

import (
	"rigid3d/internal/shape"

	"github.com/chewxy/math32"
	rl "github.com/gen2brain/raylib-go/raylib"
)

const (
	nearPlane = 0.1
	farPlane  = 1000.0
)

// Plane is the set of points p with dot(Normal, p) + Distance = 0. Normal
// points into the frustum.
type Plane struct {
	Normal   rl.Vector3
	Distance float32
}

func (p Plane) distanceTo(point rl.Vector3) float32 {
	return rl.Vector3DotProduct(p.Normal, point) + p.Distance
}

// Frustum represents the 6 planes of a view frustum for culling
type Frustum struct {
	planes [6]Plane // left, right, bottom, top, near, far
}

// Frustum builds the view frustum of the camera for a viewport aspect ratio
// (width / height).
func (c *FlyCamera) Frustum(aspect float32) Frustum {
	forward, right := c.Directions()
	up := rl.Vector3CrossProduct(right, forward)

	halfV := c.Fovy * rl.Deg2rad / 2
	halfH := math32.Atan(math32.Tan(halfV) * aspect)

	side := func(axis rl.Vector3, angle float32) Plane {
		n := rl.Vector3Add(rl.Vector3Scale(axis, math32.Cos(angle)), rl.Vector3Scale(forward, math32.Sin(angle)))
		return Plane{Normal: n, Distance: -rl.Vector3DotProduct(n, c.Position)}
	}

	var f Frustum
	f.planes[0] = side(right, halfH)
	f.planes[1] = side(rl.Vector3Negate(right), halfH)
	f.planes[2] = side(up, halfV)
	f.planes[3] = side(rl.Vector3Negate(up), halfV)

	along := rl.Vector3DotProduct(forward, c.Position)
	f.planes[4] = Plane{Normal: forward, Distance: -along - nearPlane}
	f.planes[5] = Plane{Normal: rl.Vector3Negate(forward), Distance: along + farPlane}
	return f
}

// ContainsSphere tests if a sphere is inside or intersects the frustum
func (f *Frustum) ContainsSphere(center rl.Vector3, radius float32) bool {
	for i := range f.planes {
		// If sphere is completely behind any plane, it's outside
		if f.planes[i].distanceTo(center) < -radius {
			return false
		}
	}
	return true
}

// ContainsBox reports whether a box may be visible. It tests the corner
// furthest along each plane normal, so boxes near frustum corners can pass.
func (f *Frustum) ContainsBox(box shape.AABB) bool {
	for i := range f.planes {
		n := f.planes[i].Normal
		corner := box.Min
		if n.X > 0 {
			corner.X = box.Max.X
		}
		if n.Y > 0 {
			corner.Y = box.Max.Y
		}
		if n.Z > 0 {
			corner.Z = box.Max.Z
		}
		if f.planes[i].distanceTo(corner) < 0 {
			return false
		}
	}
	return true
}
