package shape

import (
	"github.com/chewxy/math32"
	rl "github.com/gen2brain/raylib-go/raylib"
)

type AABB struct {
	Min rl.Vector3
	Max rl.Vector3
}

// EmptyAABB returns an inverted box that any Merge replaces.
func EmptyAABB() AABB {
	inf := float32(math32.MaxFloat32)
	return AABB{
		Min: rl.Vector3{X: inf, Y: inf, Z: inf},
		Max: rl.Vector3{X: -inf, Y: -inf, Z: -inf},
	}
}

// NewAABBFromCenter creates an AABB from a center point and full size dimensions.
func NewAABBFromCenter(center, size rl.Vector3) AABB {
	half := rl.Vector3{X: size.X / 2, Y: size.Y / 2, Z: size.Z / 2}
	return AABB{
		Min: rl.Vector3Subtract(center, half),
		Max: rl.Vector3Add(center, half),
	}
}

// Intersects reports overlap. Touching faces count as overlapping.
func (a AABB) Intersects(b AABB) bool {
	return a.Min.X <= b.Max.X && a.Max.X >= b.Min.X &&
		a.Min.Y <= b.Max.Y && a.Max.Y >= b.Min.Y &&
		a.Min.Z <= b.Max.Z && a.Max.Z >= b.Min.Z
}

// IntersectsYZ ignores the X axis. Sweep-and-prune already guarantees X overlap.
func (a AABB) IntersectsYZ(b AABB) bool {
	return a.Min.Y <= b.Max.Y && a.Max.Y >= b.Min.Y &&
		a.Min.Z <= b.Max.Z && a.Max.Z >= b.Min.Z
}

func (a AABB) Contains(p rl.Vector3) bool {
	return p.X >= a.Min.X && p.X <= a.Max.X &&
		p.Y >= a.Min.Y && p.Y <= a.Max.Y &&
		p.Z >= a.Min.Z && p.Z <= a.Max.Z
}

func (a AABB) Merge(b AABB) AABB {
	return AABB{Min: vmin(a.Min, b.Min), Max: vmax(a.Max, b.Max)}
}

func (a AABB) Center() rl.Vector3 {
	return rl.Vector3Scale(rl.Vector3Add(a.Min, a.Max), 0.5)
}

func (a AABB) Size() rl.Vector3 {
	return rl.Vector3Subtract(a.Max, a.Min)
}

// Sweep grows the box along a motion vector so it covers every position
// between the start and end of the motion.
func (a AABB) Sweep(motion rl.Vector3) AABB {
	out := a
	if motion.X < 0 {
		out.Min.X += motion.X
	} else {
		out.Max.X += motion.X
	}
	if motion.Y < 0 {
		out.Min.Y += motion.Y
	} else {
		out.Max.Y += motion.Y
	}
	if motion.Z < 0 {
		out.Min.Z += motion.Z
	} else {
		out.Max.Z += motion.Z
	}
	return out
}

// Transform returns the world box enclosing this local box after rotation and translation.
func (a AABB) Transform(orientation rl.Quaternion, position rl.Vector3) AABB {
	center := rl.Vector3RotateByQuaternion(a.Center(), orientation)
	half := rotatedExtent(rl.Vector3Scale(a.Size(), 0.5), orientation)
	center = rl.Vector3Add(center, position)
	return AABB{Min: rl.Vector3Subtract(center, half), Max: rl.Vector3Add(center, half)}
}

// RayIntersect tests origin + dir*t against the box using slabs.
// It returns the entry fraction, or the exit fraction when the origin is inside.
func (a AABB) RayIntersect(origin, dir rl.Vector3) (float32, bool) {
	tmin := float32(-math32.MaxFloat32)
	tmax := float32(math32.MaxFloat32)

	o := [3]float32{origin.X, origin.Y, origin.Z}
	d := [3]float32{dir.X, dir.Y, dir.Z}
	lo := [3]float32{a.Min.X, a.Min.Y, a.Min.Z}
	hi := [3]float32{a.Max.X, a.Max.Y, a.Max.Z}

	for i := 0; i < 3; i++ {
		if math32.Abs(d[i]) < epsilon {
			if o[i] < lo[i] || o[i] > hi[i] {
				return 0, false
			}
			continue
		}
		t1 := (lo[i] - o[i]) / d[i]
		t2 := (hi[i] - o[i]) / d[i]
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		if t1 > tmin {
			tmin = t1
		}
		if t2 < tmax {
			tmax = t2
		}
		if tmin > tmax {
			return 0, false
		}
	}

	if tmax < 0 {
		return 0, false
	}
	if tmin < 0 {
		return tmax, true
	}
	return tmin, true
}

// rotatedExtent projects half extents through the absolute rotation matrix.
func rotatedExtent(half rl.Vector3, q rl.Quaternion) rl.Vector3 {
	ax := rl.Vector3RotateByQuaternion(rl.Vector3{X: 1}, q)
	ay := rl.Vector3RotateByQuaternion(rl.Vector3{Y: 1}, q)
	az := rl.Vector3RotateByQuaternion(rl.Vector3{Z: 1}, q)
	return rl.Vector3{
		X: math32.Abs(ax.X)*half.X + math32.Abs(ay.X)*half.Y + math32.Abs(az.X)*half.Z,
		Y: math32.Abs(ax.Y)*half.X + math32.Abs(ay.Y)*half.Y + math32.Abs(az.Y)*half.Z,
		Z: math32.Abs(ax.Z)*half.X + math32.Abs(ay.Z)*half.Y + math32.Abs(az.Z)*half.Z,
	}
}

func vmin(a, b rl.Vector3) rl.Vector3 {
	return rl.Vector3{X: math32.Min(a.X, b.X), Y: math32.Min(a.Y, b.Y), Z: math32.Min(a.Z, b.Z)}
}

func vmax(a, b rl.Vector3) rl.Vector3 {
	return rl.Vector3{X: math32.Max(a.X, b.X), Y: math32.Max(a.Y, b.Y), Z: math32.Max(a.Z, b.Z)}
}
