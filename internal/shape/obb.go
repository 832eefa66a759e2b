package shape

import (
	"github.com/chewxy/math32"
	rl "github.com/gen2brain/raylib-go/raylib"
)

// OBB is a box placed in world space.
type OBB struct {
	Center   rl.Vector3    // World-space center
	HalfSize rl.Vector3    // Half-extents along local axes
	Axes     [3]rl.Vector3 // Local X, Y, Z axes (rotated)
}

func NewOBB(center, halfSize rl.Vector3, orientation rl.Quaternion) OBB {
	return OBB{
		Center:   center,
		HalfSize: halfSize,
		Axes: [3]rl.Vector3{
			rl.Vector3RotateByQuaternion(rl.Vector3{X: 1}, orientation),
			rl.Vector3RotateByQuaternion(rl.Vector3{Y: 1}, orientation),
			rl.Vector3RotateByQuaternion(rl.Vector3{Z: 1}, orientation),
		},
	}
}

func (o OBB) half(i int) float32 {
	switch i {
	case 0:
		return o.HalfSize.X
	case 1:
		return o.HalfSize.Y
	}
	return o.HalfSize.Z
}

// project returns the radius of the box projected onto axis.
func (o OBB) project(axis rl.Vector3) float32 {
	return o.HalfSize.X*math32.Abs(rl.Vector3DotProduct(o.Axes[0], axis)) +
		o.HalfSize.Y*math32.Abs(rl.Vector3DotProduct(o.Axes[1], axis)) +
		o.HalfSize.Z*math32.Abs(rl.Vector3DotProduct(o.Axes[2], axis))
}

// Support returns the point furthest along dir. When a face or edge is
// perpendicular to dir the centre of that feature is returned.
func (o OBB) Support(dir rl.Vector3) rl.Vector3 {
	p := o.Center
	for i := 0; i < 3; i++ {
		d := rl.Vector3DotProduct(o.Axes[i], dir)
		if math32.Abs(d) < 1e-3 {
			continue
		}
		h := o.half(i)
		if d < 0 {
			h = -h
		}
		p = rl.Vector3Add(p, rl.Vector3Scale(o.Axes[i], h))
	}
	return p
}

// Axis kinds returned by SeparatingAxis.
const (
	FaceA = iota
	FaceB
	Edge
)

// SeparatingAxis runs the 15-axis separating axis test and returns the axis of
// least overlap, oriented from a towards b, with the signed overlap along it
// and the kind of feature that produced it. A negative overlap means the boxes
// are apart by that distance on the axis.
func (a OBB) SeparatingAxis(b OBB) (rl.Vector3, float32, int) {
	t := rl.Vector3Subtract(b.Center, a.Center)
	best := float32(math32.MaxFloat32)
	var axis rl.Vector3
	kind := FaceA

	test := func(n rl.Vector3, k int, bias float32) {
		l := rl.Vector3Length(n)
		if l < 1e-4 {
			return
		}
		n = rl.Vector3Scale(n, 1/l)

		dist := rl.Vector3DotProduct(t, n)
		overlap := a.project(n) + b.project(n) - math32.Abs(dist)
		// Face axes win ties against edge axes so resting contacts stay on faces
		if overlap+bias < best {
			best = overlap + bias
			if dist < 0 {
				n = rl.Vector3Negate(n)
			}
			axis = n
			kind = k
		}
	}

	for i := 0; i < 3; i++ {
		test(a.Axes[i], FaceA, 0)
	}
	for i := 0; i < 3; i++ {
		test(b.Axes[i], FaceB, 0)
	}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			test(rl.Vector3CrossProduct(a.Axes[i], b.Axes[j]), Edge, 1e-3)
		}
	}

	if best == math32.MaxFloat32 {
		return rl.Vector3{Y: 1}, 0, FaceA
	}
	return axis, a.project(axis) + b.project(axis) - math32.Abs(rl.Vector3DotProduct(t, axis)), kind
}

// ClosestPoint returns the point of the box closest to p. Points inside map to themselves.
func (o OBB) ClosestPoint(p rl.Vector3) rl.Vector3 {
	local := rl.Vector3Subtract(p, o.Center)
	result := o.Center
	for i := 0; i < 3; i++ {
		h := o.half(i)
		d := clampf(rl.Vector3DotProduct(local, o.Axes[i]), -h, h)
		result = rl.Vector3Add(result, rl.Vector3Scale(o.Axes[i], d))
	}
	return result
}

// nearestFace returns the outward normal of the face nearest to an interior
// point and the distance from the point to that face.
func (o OBB) nearestFace(p rl.Vector3) (rl.Vector3, float32) {
	local := rl.Vector3Subtract(p, o.Center)
	best := float32(math32.MaxFloat32)
	var normal rl.Vector3
	for i := 0; i < 3; i++ {
		d := rl.Vector3DotProduct(local, o.Axes[i])
		h := o.half(i)
		if h-d < best {
			best = h - d
			normal = o.Axes[i]
		}
		if h+d < best {
			best = h + d
			normal = rl.Vector3Negate(o.Axes[i])
		}
	}
	return normal, best
}

func clampf(v, min, max float32) float32 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
