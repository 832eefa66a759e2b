package shape

import (
	"github.com/chewxy/math32"
	rl "github.com/gen2brain/raylib-go/raylib"
)

// Contact is the outcome of a narrow-phase test between shapes A and B.
// Normal points from A towards B and Penetration equals
// dot(PointA-PointB, Normal); it is negative while the shapes are apart.
type Contact struct {
	PointA      rl.Vector3
	PointB      rl.Vector3
	Normal      rl.Vector3
	Penetration float32
}

// Flip swaps the roles of A and B.
func (c Contact) Flip() Contact {
	return Contact{
		PointA:      c.PointB,
		PointB:      c.PointA,
		Normal:      rl.Vector3Negate(c.Normal),
		Penetration: c.Penetration,
	}
}

// Narrowphase tests convex shapes placed in world space.
type Narrowphase interface {
	// Detect reports whether a and b interpenetrate and where.
	Detect(a, b Shape, oriA, oriB rl.Quaternion, posA, posB rl.Vector3) (Contact, bool)
	// Raycast intersects origin + dir*fraction with the shape.
	Raycast(s Shape, ori, invOri rl.Quaternion, pos, origin, dir rl.Vector3) (float32, rl.Vector3, bool)
}

// ClosestPointer is implemented by narrow phases that can also report the
// closest features of separated shapes, which speculative contacts need.
type ClosestPointer interface {
	ClosestPoints(a, b Shape, oriA, oriB rl.Quaternion, posA, posB rl.Vector3) (Contact, bool)
}

// Default handles spheres and boxes.
type Default struct{}

func (d Default) Detect(a, b Shape, oriA, oriB rl.Quaternion, posA, posB rl.Vector3) (Contact, bool) {
	c, ok := d.ClosestPoints(a, b, oriA, oriB, posA, posB)
	if !ok || c.Penetration < 0 {
		return Contact{}, false
	}
	return c, true
}

func (Default) ClosestPoints(a, b Shape, oriA, oriB rl.Quaternion, posA, posB rl.Vector3) (Contact, bool) {
	switch sa := a.(type) {
	case *Sphere:
		switch sb := b.(type) {
		case *Sphere:
			return sphereSphere(sa, sb, posA, posB), true
		case *Box:
			return sphereBox(sa, posA, NewOBB(posB, sb.HalfSize(), oriB)), true
		}
	case *Box:
		obbA := NewOBB(posA, sa.HalfSize(), oriA)
		switch sb := b.(type) {
		case *Sphere:
			return sphereBox(sb, posB, obbA).Flip(), true
		case *Box:
			return boxBox(obbA, NewOBB(posB, sb.HalfSize(), oriB)), true
		}
	}
	return Contact{}, false
}

func sphereSphere(a, b *Sphere, posA, posB rl.Vector3) Contact {
	delta := rl.Vector3Subtract(posB, posA)
	dist := rl.Vector3Length(delta)

	normal := rl.Vector3{Y: 1}
	if dist > epsilon {
		normal = rl.Vector3Scale(delta, 1/dist)
	}

	return Contact{
		PointA:      rl.Vector3Add(posA, rl.Vector3Scale(normal, a.Radius)),
		PointB:      rl.Vector3Subtract(posB, rl.Vector3Scale(normal, b.Radius)),
		Normal:      normal,
		Penetration: a.Radius + b.Radius - dist,
	}
}

func sphereBox(s *Sphere, center rl.Vector3, box OBB) Contact {
	closest := box.ClosestPoint(center)
	delta := rl.Vector3Subtract(closest, center)
	dist := rl.Vector3Length(delta)

	if dist > epsilon {
		normal := rl.Vector3Scale(delta, 1/dist)
		return Contact{
			PointA:      rl.Vector3Add(center, rl.Vector3Scale(normal, s.Radius)),
			PointB:      closest,
			Normal:      normal,
			Penetration: s.Radius - dist,
		}
	}

	// Centre inside the box: leave through the nearest face
	face, depth := box.nearestFace(center)
	normal := rl.Vector3Negate(face)
	return Contact{
		PointA:      rl.Vector3Add(center, rl.Vector3Scale(normal, s.Radius)),
		PointB:      rl.Vector3Add(center, rl.Vector3Scale(face, depth)),
		Normal:      normal,
		Penetration: s.Radius + depth,
	}
}

func boxBox(a, b OBB) Contact {
	normal, overlap, kind := a.SeparatingAxis(b)

	var pa, pb rl.Vector3
	switch kind {
	case FaceA:
		pb = b.Support(rl.Vector3Negate(normal))
		pa = rl.Vector3Add(pb, rl.Vector3Scale(normal, overlap))
	case FaceB:
		pa = a.Support(normal)
		pb = rl.Vector3Subtract(pa, rl.Vector3Scale(normal, overlap))
	default:
		mid := rl.Vector3Scale(rl.Vector3Add(a.Support(normal), b.Support(rl.Vector3Negate(normal))), 0.5)
		pa = rl.Vector3Add(mid, rl.Vector3Scale(normal, overlap*0.5))
		pb = rl.Vector3Subtract(mid, rl.Vector3Scale(normal, overlap*0.5))
	}

	return Contact{PointA: pa, PointB: pb, Normal: normal, Penetration: overlap}
}

func (Default) Raycast(s Shape, ori, invOri rl.Quaternion, pos, origin, dir rl.Vector3) (float32, rl.Vector3, bool) {
	switch sh := s.(type) {
	case *Sphere:
		return raycastSphere(sh, pos, origin, dir)
	case *Box:
		return raycastBox(sh, ori, invOri, pos, origin, dir)
	}
	return 0, rl.Vector3{}, false
}

func raycastSphere(s *Sphere, center, origin, dir rl.Vector3) (float32, rl.Vector3, bool) {
	oc := rl.Vector3Subtract(origin, center)
	a := rl.Vector3DotProduct(dir, dir)
	if a < epsilon {
		return 0, rl.Vector3{}, false
	}
	b := 2.0 * rl.Vector3DotProduct(oc, dir)
	c := rl.Vector3DotProduct(oc, oc) - s.Radius*s.Radius

	discriminant := b*b - 4*a*c
	if discriminant < 0 {
		return 0, rl.Vector3{}, false
	}

	root := math32.Sqrt(discriminant)
	t := (-b - root) / (2 * a)
	if t < 0 {
		t = (-b + root) / (2 * a)
	}
	if t < 0 {
		return 0, rl.Vector3{}, false
	}

	point := rl.Vector3Add(origin, rl.Vector3Scale(dir, t))
	return t, normalizeOr(rl.Vector3Subtract(point, center), rl.Vector3{Y: 1}), true
}

func raycastBox(b *Box, ori, invOri rl.Quaternion, pos, origin, dir rl.Vector3) (float32, rl.Vector3, bool) {
	localOrigin := rl.Vector3RotateByQuaternion(rl.Vector3Subtract(origin, pos), invOri)
	localDir := rl.Vector3RotateByQuaternion(dir, invOri)

	half := b.HalfSize()
	box := AABB{Min: rl.Vector3Negate(half), Max: half}
	t, ok := box.RayIntersect(localOrigin, localDir)
	if !ok {
		return 0, rl.Vector3{}, false
	}

	point := rl.Vector3Add(localOrigin, rl.Vector3Scale(localDir, t))

	// Pick the face whose plane the hit point lies closest to
	normal := rl.Vector3{X: 1}
	best := math32.Abs(point.X - half.X)
	faces := []struct {
		d float32
		n rl.Vector3
	}{
		{math32.Abs(point.X + half.X), rl.Vector3{X: -1}},
		{math32.Abs(point.Y - half.Y), rl.Vector3{Y: 1}},
		{math32.Abs(point.Y + half.Y), rl.Vector3{Y: -1}},
		{math32.Abs(point.Z - half.Z), rl.Vector3{Z: 1}},
		{math32.Abs(point.Z + half.Z), rl.Vector3{Z: -1}},
	}
	for _, f := range faces {
		if f.d < best {
			best = f.d
			normal = f.n
		}
	}

	return t, rl.Vector3RotateByQuaternion(normal, ori), true
}

func normalizeOr(v, fallback rl.Vector3) rl.Vector3 {
	l := rl.Vector3Length(v)
	if l < epsilon {
		return fallback
	}
	return rl.Vector3Scale(v, 1/l)
}
