package shape

import (
	"testing"

	"github.com/chewxy/math32"
	rl "github.com/gen2brain/raylib-go/raylib"
)

func near(a, b float32) bool {
	return math32.Abs(a-b) < 1e-4
}

func nearVec(a, b rl.Vector3) bool {
	return near(a.X, b.X) && near(a.Y, b.Y) && near(a.Z, b.Z)
}

func TestAABBIntersects(t *testing.T) {
	tests := []struct {
		name string
		a, b AABB
		want bool
	}{
		{"overlap", NewAABBFromCenter(rl.Vector3{}, rl.Vector3{X: 2, Y: 2, Z: 2}), NewAABBFromCenter(rl.Vector3{X: 1}, rl.Vector3{X: 2, Y: 2, Z: 2}), true},
		{"touching", NewAABBFromCenter(rl.Vector3{}, rl.Vector3{X: 2, Y: 2, Z: 2}), NewAABBFromCenter(rl.Vector3{X: 2}, rl.Vector3{X: 2, Y: 2, Z: 2}), true},
		{"apart on x", NewAABBFromCenter(rl.Vector3{}, rl.Vector3{X: 2, Y: 2, Z: 2}), NewAABBFromCenter(rl.Vector3{X: 3}, rl.Vector3{X: 2, Y: 2, Z: 2}), false},
		{"apart on z", NewAABBFromCenter(rl.Vector3{}, rl.Vector3{X: 2, Y: 2, Z: 2}), NewAABBFromCenter(rl.Vector3{Z: -5}, rl.Vector3{X: 2, Y: 2, Z: 2}), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Intersects(tt.b); got != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
			if got := tt.b.Intersects(tt.a); got != tt.want {
				t.Errorf("Expected symmetric result %v, got %v", tt.want, got)
			}
		})
	}
}

func TestAABBMergeAndSweep(t *testing.T) {
	a := AABB{Min: rl.Vector3{}, Max: rl.Vector3{X: 1, Y: 1, Z: 1}}
	b := AABB{Min: rl.Vector3{X: -1, Y: 2}, Max: rl.Vector3{X: 0, Y: 3, Z: 0.5}}

	m := EmptyAABB().Merge(a).Merge(b)
	if !nearVec(m.Min, rl.Vector3{X: -1}) || !nearVec(m.Max, rl.Vector3{X: 1, Y: 3, Z: 1}) {
		t.Errorf("Unexpected merge result %+v", m)
	}

	s := a.Sweep(rl.Vector3{X: 2, Y: -1})
	if !nearVec(s.Min, rl.Vector3{Y: -1}) || !nearVec(s.Max, rl.Vector3{X: 3, Y: 1, Z: 1}) {
		t.Errorf("Unexpected sweep result %+v", s)
	}
}

func TestAABBRayIntersect(t *testing.T) {
	box := AABB{Min: rl.Vector3{X: -1, Y: -1, Z: -1}, Max: rl.Vector3{X: 1, Y: 1, Z: 1}}

	f, ok := box.RayIntersect(rl.Vector3{X: -5}, rl.Vector3{X: 2})
	if !ok || !near(f, 2) {
		t.Errorf("Expected hit at fraction 2, got %v %v", f, ok)
	}

	if _, ok := box.RayIntersect(rl.Vector3{X: -5, Y: 3}, rl.Vector3{X: 1}); ok {
		t.Error("Expected miss for parallel ray outside slab")
	}

	if _, ok := box.RayIntersect(rl.Vector3{X: 5}, rl.Vector3{X: 1}); ok {
		t.Error("Expected miss for ray pointing away")
	}

	f, ok = box.RayIntersect(rl.Vector3{}, rl.Vector3{Y: 1})
	if !ok || !near(f, 1) {
		t.Errorf("Expected exit fraction 1 from inside, got %v %v", f, ok)
	}
}

func TestRotatedBoxBoundingBox(t *testing.T) {
	b := NewBox(rl.Vector3{X: 2, Y: 2, Z: 2})
	q := rl.QuaternionFromAxisAngle(rl.Vector3{Y: 1}, math32.Pi/4)
	bb := b.BoundingBox(q, rl.Vector3{})

	want := math32.Sqrt(2)
	if !near(bb.Max.X, want) || !near(bb.Max.Z, want) || !near(bb.Max.Y, 1) {
		t.Errorf("Expected extent (%v,1,%v), got %+v", want, want, bb.Max)
	}
}

func TestEmptyAABB(t *testing.T) {
	e := EmptyAABB()
	if e.Min.X != math32.MaxFloat32 || e.Max.Y != -math32.MaxFloat32 {
		t.Errorf("Expected inverted infinite box, got %+v", e)
	}
	if e.Contains(rl.Vector3{}) {
		t.Error("Expected empty box to contain nothing")
	}
	if e.Intersects(AABB{Min: rl.Vector3{X: -1, Y: -1, Z: -1}, Max: rl.Vector3{X: 1, Y: 1, Z: 1}}) {
		t.Error("Expected empty box to intersect nothing")
	}
}

func TestOBBSeparatingAxis(t *testing.T) {
	half := rl.Vector3{X: 1, Y: 1, Z: 1}
	a := NewOBB(rl.Vector3{}, half, rl.QuaternionIdentity())

	tests := []struct {
		name    string
		center  rl.Vector3
		overlap float32
	}{
		{"overlapping", rl.Vector3{X: 1.5}, 0.5},
		{"separated", rl.Vector3{X: 3}, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewOBB(tt.center, half, rl.QuaternionIdentity())
			axis, overlap, kind := a.SeparatingAxis(b)
			if !nearVec(axis, rl.Vector3{X: 1}) {
				t.Errorf("Expected axis +X, got %+v", axis)
			}
			if !near(overlap, tt.overlap) {
				t.Errorf("Expected overlap %v, got %v", tt.overlap, overlap)
			}
			if kind != FaceA {
				t.Errorf("Expected FaceA, got %d", kind)
			}
		})
	}
}

func TestOBBNearestFace(t *testing.T) {
	o := NewOBB(rl.Vector3{}, rl.Vector3{X: 1, Y: 1, Z: 1}, rl.QuaternionIdentity())
	normal, depth := o.nearestFace(rl.Vector3{X: 0.2, Y: 0.9})
	if !nearVec(normal, rl.Vector3{Y: 1}) || !near(depth, 0.1) {
		t.Errorf("Expected +Y face at depth 0.1, got %+v %v", normal, depth)
	}
}

func TestSphereSphereContact(t *testing.T) {
	a, b := NewSphere(1), NewSphere(1)
	id := rl.QuaternionIdentity()

	c, ok := Default{}.Detect(a, b, id, id, rl.Vector3{}, rl.Vector3{X: 1.5})
	if !ok {
		t.Fatal("Expected overlap")
	}
	if !near(c.Penetration, 0.5) {
		t.Errorf("Expected penetration 0.5, got %v", c.Penetration)
	}
	if !nearVec(c.Normal, rl.Vector3{X: 1}) {
		t.Errorf("Expected normal +X, got %+v", c.Normal)
	}
	if !nearVec(c.PointA, rl.Vector3{X: 1}) || !nearVec(c.PointB, rl.Vector3{X: 0.5}) {
		t.Errorf("Unexpected points %+v %+v", c.PointA, c.PointB)
	}
	pen := rl.Vector3DotProduct(rl.Vector3Subtract(c.PointA, c.PointB), c.Normal)
	if !near(pen, c.Penetration) {
		t.Errorf("Penetration %v does not match points %v", c.Penetration, pen)
	}

	if _, ok := (Default{}).Detect(a, b, id, id, rl.Vector3{}, rl.Vector3{X: 3}); ok {
		t.Error("Expected separated spheres to miss")
	}

	sep, ok := Default{}.ClosestPoints(a, b, id, id, rl.Vector3{}, rl.Vector3{X: 3})
	if !ok || !near(sep.Penetration, -1) {
		t.Errorf("Expected separation -1, got %v", sep.Penetration)
	}
}

func TestSphereBoxContact(t *testing.T) {
	s := NewSphere(0.5)
	b := NewBox(rl.Vector3{X: 10, Y: 1, Z: 10})
	id := rl.QuaternionIdentity()

	c, ok := Default{}.Detect(s, b, id, id, rl.Vector3{Y: 0.9}, rl.Vector3{})
	if !ok {
		t.Fatal("Expected sphere resting in box top to overlap")
	}
	if !nearVec(c.Normal, rl.Vector3{Y: -1}) {
		t.Errorf("Expected normal pointing down into the box, got %+v", c.Normal)
	}
	if !near(c.Penetration, 0.1) {
		t.Errorf("Expected penetration 0.1, got %v", c.Penetration)
	}

	flipped, ok := Default{}.Detect(b, s, id, id, rl.Vector3{}, rl.Vector3{Y: 0.9})
	if !ok || !nearVec(flipped.Normal, rl.Vector3{Y: 1}) {
		t.Errorf("Expected flipped normal +Y, got %+v", flipped.Normal)
	}

	deep, ok := Default{}.Detect(s, b, id, id, rl.Vector3{Y: 0.4}, rl.Vector3{})
	if !ok || !near(deep.Penetration, 0.6) {
		t.Errorf("Expected centre-inside penetration 0.6, got %v", deep.Penetration)
	}
}

func TestBoxBoxRestingContact(t *testing.T) {
	ground := NewBox(rl.Vector3{X: 20, Y: 1, Z: 20})
	crate := NewBox(rl.Vector3{X: 1, Y: 1, Z: 1})
	id := rl.QuaternionIdentity()

	c, ok := Default{}.Detect(ground, crate, id, id, rl.Vector3{}, rl.Vector3{Y: 0.95})
	if !ok {
		t.Fatal("Expected overlap")
	}
	if !nearVec(c.Normal, rl.Vector3{Y: 1}) {
		t.Errorf("Expected +Y normal, got %+v", c.Normal)
	}
	if !near(c.Penetration, 0.05) {
		t.Errorf("Expected penetration 0.05, got %v", c.Penetration)
	}
	if !near(c.PointB.Y, 0.45) || !near(c.PointA.Y, 0.5) {
		t.Errorf("Unexpected contact heights A=%v B=%v", c.PointA.Y, c.PointB.Y)
	}
}

func TestRaycastShapes(t *testing.T) {
	id := rl.QuaternionIdentity()

	f, n, ok := Default{}.Raycast(NewSphere(1), id, id, rl.Vector3{X: 5}, rl.Vector3{}, rl.Vector3{X: 1})
	if !ok || !near(f, 4) || !nearVec(n, rl.Vector3{X: -1}) {
		t.Errorf("Sphere raycast: got fraction %v normal %+v hit %v", f, n, ok)
	}

	q := rl.QuaternionFromAxisAngle(rl.Vector3{Y: 1}, math32.Pi/2)
	f, n, ok = Default{}.Raycast(NewBox(rl.Vector3{X: 2, Y: 2, Z: 2}), q, rl.QuaternionInvert(q), rl.Vector3{Y: 5}, rl.Vector3{}, rl.Vector3{Y: 1})
	if !ok || !near(f, 4) || !nearVec(n, rl.Vector3{Y: -1}) {
		t.Errorf("Box raycast: got fraction %v normal %+v hit %v", f, n, ok)
	}

	if _, _, ok := (Default{}).Raycast(NewSphere(1), id, id, rl.Vector3{X: 5}, rl.Vector3{}, rl.Vector3{Y: 1}); ok {
		t.Error("Expected sphere raycast miss")
	}
}

func TestCompoundWorkingClone(t *testing.T) {
	c := NewCompound(
		Child{Shape: NewSphere(0.5), Position: rl.Vector3{X: -1}},
		Child{Shape: NewSphere(0.5), Position: rl.Vector3{X: 1}},
	)

	clone := c.RequestWorkingClone()
	if clone == Multishape(c) {
		t.Fatal("Expected a distinct working clone")
	}

	if n := clone.Prepare(rl.Vector3{X: 1, Y: 5}, rl.Vector3{Y: -1}); n != 1 {
		t.Fatalf("Expected 1 child on ray, got %d", n)
	}
	clone.SetCurrentShape(0)
	_, _, pos := clone.CurrentShape()
	if !nearVec(pos, rl.Vector3{X: 1}) {
		t.Errorf("Expected right-hand child, got %+v", pos)
	}

	if n := clone.PrepareBox(AABB{Min: rl.Vector3{X: -3, Y: -3, Z: -3}, Max: rl.Vector3{X: 3, Y: 3, Z: 3}}); n != 2 {
		t.Errorf("Expected both children in box, got %d", n)
	}

	clone.ReturnWorkingClone()
	again := c.RequestWorkingClone()
	if again != clone {
		t.Error("Expected returned clone to be reused")
	}
}

func TestCompoundInertiaParallelAxis(t *testing.T) {
	c := NewCompound(
		Child{Shape: NewSphere(1), Position: rl.Vector3{X: -2}},
		Child{Shape: NewSphere(1), Position: rl.Vector3{X: 2}},
	)
	i := c.Inertia(2)

	// each child: 0.4*1*1 about its centre, plus 1*4 shifted along Y and Z
	if !near(i.X, 0.8) || !near(i.Y, 8.8) || !near(i.Z, 8.8) {
		t.Errorf("Unexpected compound inertia %+v", i)
	}

	bb := c.BoundingBox(rl.QuaternionIdentity(), rl.Vector3{Y: 1})
	if !nearVec(bb.Min, rl.Vector3{X: -3, Y: 0, Z: -1}) || !nearVec(bb.Max, rl.Vector3{X: 3, Y: 2, Z: 1}) {
		t.Errorf("Unexpected compound bounds %+v", bb)
	}
}
