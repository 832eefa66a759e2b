package collision

import (
	"rigid3d/internal/shape"

	"github.com/chewxy/math32"
	rl "github.com/gen2brain/raylib-go/raylib"
)

// raycastAll returns the closest accepted hit among entities.
func (d *detector) raycastAll(entities []Entity, origin, dir rl.Vector3, filter RaycastFilter) (RayHit, bool) {
	best := RayHit{Fraction: math32.MaxFloat32}
	found := false

	for _, e := range entities {
		if _, ok := e.BoundingBox().RayIntersect(origin, dir); !ok {
			continue
		}

		if agg, ok := e.(Aggregate); ok {
			for i := 0; i < agg.MemberCount(); i++ {
				if h, ok := d.raycastBody(agg.Member(i), origin, dir, filter); ok && h.Fraction < best.Fraction {
					best, found = h, true
				}
			}
			continue
		}

		if c, ok := e.(Collidable); ok {
			if h, ok := d.raycastBody(c, origin, dir, filter); ok && h.Fraction < best.Fraction {
				best, found = h, true
			}
		}
	}
	return best, found
}

func (d *detector) raycastEntity(e Entity, origin, dir rl.Vector3) (RayHit, bool) {
	switch v := e.(type) {
	case Collidable:
		return d.raycastBody(v, origin, dir, nil)
	case Aggregate:
		best := RayHit{Fraction: math32.MaxFloat32}
		found := false
		for i := 0; i < v.MemberCount(); i++ {
			if h, ok := d.raycastBody(v.Member(i), origin, dir, nil); ok && h.Fraction < best.Fraction {
				best, found = h, true
			}
		}
		return best, found
	}
	return RayHit{}, false
}

// raycastBody returns the closest hit on c accepted by filter. Each sub-shape
// of a multishape is filtered on its own.
func (d *detector) raycastBody(c Collidable, origin, dir rl.Vector3, filter RaycastFilter) (RayHit, bool) {
	ori, invOri, pos := c.Orientation(), c.InvOrientation(), c.Position()

	ms, ok := c.Shape().(shape.Multishape)
	if !ok {
		f, n, hit := d.narrow.Raycast(c.Shape(), ori, invOri, pos, origin, dir)
		if !hit || (filter != nil && !filter(c, n, f)) {
			return RayHit{}, false
		}
		return RayHit{Body: c, Normal: n, Fraction: f}, true
	}

	clone := ms.RequestWorkingClone()
	defer clone.ReturnWorkingClone()

	localOrigin := rl.Vector3RotateByQuaternion(rl.Vector3Subtract(origin, pos), invOri)
	localDir := rl.Vector3RotateByQuaternion(dir, invOri)

	best := RayHit{Fraction: math32.MaxFloat32}
	found := false

	n := clone.Prepare(localOrigin, localDir)
	for i := 0; i < n; i++ {
		clone.SetCurrentShape(i)
		sub, subOri, subPos := clone.CurrentShape()
		worldOri := rl.QuaternionMultiply(ori, subOri)
		worldPos := rl.Vector3Add(pos, rl.Vector3RotateByQuaternion(subPos, ori))

		f, normal, hit := d.narrow.Raycast(sub, worldOri, rl.QuaternionInvert(worldOri), worldPos, origin, dir)
		if hit && f < best.Fraction && (filter == nil || filter(c, normal, f)) {
			best = RayHit{Body: c, Normal: normal, Fraction: f}
			found = true
		}
	}
	return best, found
}
