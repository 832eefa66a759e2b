package physics

import (
	"rigid3d/internal/collision"

	rl "github.com/gen2brain/raylib-go/raylib"
)

type RaycastHit struct {
	Body     *Body
	Point    rl.Vector3
	Normal   rl.Vector3
	Fraction float32
}

// RaycastFilter may reject a hit, for example to ignore triggers.
type RaycastFilter func(body *Body, normal rl.Vector3, fraction float32) bool

// Raycast returns the closest body hit by origin + dir*t with t >= 0.
// Fraction is measured in multiples of dir.
func (w *World) Raycast(origin, dir rl.Vector3, filter RaycastFilter) (RaycastHit, bool) {
	var f collision.RaycastFilter
	if filter != nil {
		f = func(c collision.Collidable, normal rl.Vector3, fraction float32) bool {
			return filter(c.(*Body), normal, fraction)
		}
	}
	hit, ok := w.collision.Raycast(origin, dir, f)
	if !ok {
		return RaycastHit{}, false
	}
	return newRaycastHit(hit, origin, dir), true
}

// RaycastBody tests the ray against a single body.
func (w *World) RaycastBody(b *Body, origin, dir rl.Vector3) (RaycastHit, bool) {
	hit, ok := w.collision.RaycastEntity(b, origin, dir)
	if !ok {
		return RaycastHit{}, false
	}
	return newRaycastHit(hit, origin, dir), true
}

func newRaycastHit(hit collision.RayHit, origin, dir rl.Vector3) RaycastHit {
	return RaycastHit{
		Body:     hit.Body.(*Body),
		Point:    rl.Vector3Add(origin, rl.Vector3Scale(dir, hit.Fraction)),
		Normal:   hit.Normal,
		Fraction: hit.Fraction,
	}
}
