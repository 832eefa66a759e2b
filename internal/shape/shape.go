// Package shape holds collision geometry for rigid bodies and the default
// narrow phase that turns a pair of shapes into a contact.
package shape

import (
	"sync"

	"github.com/chewxy/math32"
	rl "github.com/gen2brain/raylib-go/raylib"
)

const epsilon = 1e-6

// Shape is the geometry attached to a body, expressed in the body's local frame
// with the body origin as centre of mass.
type Shape interface {
	// BoundingBox returns the world box of the shape placed at position with orientation.
	BoundingBox(orientation rl.Quaternion, position rl.Vector3) AABB
	// Inertia returns the principal moments of inertia for the given mass.
	Inertia(mass float32) rl.Vector3
	Volume() float32
}

// Multishape is a shape made of convex sub-shapes. Callers select the
// sub-shapes relevant to a query with Prepare or PrepareBox and then walk them
// with SetCurrentShape. Prepared state lives on the receiver, so concurrent
// queries each take their own working clone.
type Multishape interface {
	Shape
	RequestWorkingClone() Multishape
	ReturnWorkingClone()
	// Prepare selects sub-shapes whose bounds are hit by a local-space ray.
	Prepare(origin, dir rl.Vector3) int
	// PrepareBox selects sub-shapes whose bounds overlap a local-space box.
	PrepareBox(box AABB) int
	SetCurrentShape(index int)
	// CurrentShape returns the selected sub-shape and its local transform.
	CurrentShape() (Shape, rl.Quaternion, rl.Vector3)
}

type Sphere struct {
	Radius float32
}

func NewSphere(radius float32) *Sphere {
	return &Sphere{Radius: radius}
}

func (s *Sphere) BoundingBox(_ rl.Quaternion, position rl.Vector3) AABB {
	r := rl.Vector3{X: s.Radius, Y: s.Radius, Z: s.Radius}
	return AABB{Min: rl.Vector3Subtract(position, r), Max: rl.Vector3Add(position, r)}
}

func (s *Sphere) Inertia(mass float32) rl.Vector3 {
	i := 0.4 * mass * s.Radius * s.Radius
	return rl.Vector3{X: i, Y: i, Z: i}
}

func (s *Sphere) Volume() float32 {
	return 4.0 / 3.0 * math32.Pi * s.Radius * s.Radius * s.Radius
}

// Box is centred on the body origin. Size holds full edge lengths.
type Box struct {
	Size rl.Vector3
}

func NewBox(size rl.Vector3) *Box {
	return &Box{Size: size}
}

func (b *Box) HalfSize() rl.Vector3 {
	return rl.Vector3Scale(b.Size, 0.5)
}

func (b *Box) BoundingBox(orientation rl.Quaternion, position rl.Vector3) AABB {
	half := rotatedExtent(b.HalfSize(), orientation)
	return AABB{Min: rl.Vector3Subtract(position, half), Max: rl.Vector3Add(position, half)}
}

func (b *Box) Inertia(mass float32) rl.Vector3 {
	x2, y2, z2 := b.Size.X*b.Size.X, b.Size.Y*b.Size.Y, b.Size.Z*b.Size.Z
	return rl.Vector3{
		X: mass / 12 * (y2 + z2),
		Y: mass / 12 * (x2 + z2),
		Z: mass / 12 * (x2 + y2),
	}
}

func (b *Box) Volume() float32 {
	return b.Size.X * b.Size.Y * b.Size.Z
}

// Child is a sub-shape of a Compound placed in the compound's frame.
type Child struct {
	Shape       Shape
	Position    rl.Vector3
	Orientation rl.Quaternion
}

// Compound groups convex children into one body shape.
type Compound struct {
	Children []Child

	selected []int
	current  int

	owner *Compound
	mu    sync.Mutex
	free  []*Compound
}

func NewCompound(children ...Child) *Compound {
	for i := range children {
		if children[i].Orientation == (rl.Quaternion{}) {
			children[i].Orientation = rl.QuaternionIdentity()
		}
	}
	return &Compound{Children: children}
}

func (c *Compound) BoundingBox(orientation rl.Quaternion, position rl.Vector3) AABB {
	box := EmptyAABB()
	for _, ch := range c.Children {
		ori := rl.QuaternionMultiply(orientation, ch.Orientation)
		pos := rl.Vector3Add(position, rl.Vector3RotateByQuaternion(ch.Position, orientation))
		box = box.Merge(ch.Shape.BoundingBox(ori, pos))
	}
	return box
}

// Inertia splits mass between children by volume and shifts each child's
// moments to the compound origin.
func (c *Compound) Inertia(mass float32) rl.Vector3 {
	total := c.Volume()
	var out rl.Vector3
	if total < epsilon {
		return out
	}
	for _, ch := range c.Children {
		m := mass * ch.Shape.Volume() / total
		i := ch.Shape.Inertia(m)
		d := ch.Position
		d2 := rl.Vector3DotProduct(d, d)
		out.X += i.X + m*(d2-d.X*d.X)
		out.Y += i.Y + m*(d2-d.Y*d.Y)
		out.Z += i.Z + m*(d2-d.Z*d.Z)
	}
	return out
}

func (c *Compound) Volume() float32 {
	var v float32
	for _, ch := range c.Children {
		v += ch.Shape.Volume()
	}
	return v
}

// RequestWorkingClone hands out a clone with private selection state.
// Children are shared and must not be modified while clones are in use.
func (c *Compound) RequestWorkingClone() Multishape {
	root := c
	if c.owner != nil {
		root = c.owner
	}

	root.mu.Lock()
	defer root.mu.Unlock()

	if n := len(root.free); n > 0 {
		clone := root.free[n-1]
		root.free = root.free[:n-1]
		clone.Children = root.Children
		return clone
	}
	return &Compound{Children: root.Children, owner: root}
}

// ReturnWorkingClone puts a clone back. Calling it on the original is a no-op.
func (c *Compound) ReturnWorkingClone() {
	if c.owner == nil {
		return
	}
	c.selected = c.selected[:0]
	c.current = 0

	c.owner.mu.Lock()
	c.owner.free = append(c.owner.free, c)
	c.owner.mu.Unlock()
}

func (c *Compound) Prepare(origin, dir rl.Vector3) int {
	c.selected = c.selected[:0]
	for i, ch := range c.Children {
		if _, ok := ch.Shape.BoundingBox(ch.Orientation, ch.Position).RayIntersect(origin, dir); ok {
			c.selected = append(c.selected, i)
		}
	}
	return len(c.selected)
}

func (c *Compound) PrepareBox(box AABB) int {
	c.selected = c.selected[:0]
	for i, ch := range c.Children {
		if ch.Shape.BoundingBox(ch.Orientation, ch.Position).Intersects(box) {
			c.selected = append(c.selected, i)
		}
	}
	return len(c.selected)
}

func (c *Compound) SetCurrentShape(index int) {
	c.current = c.selected[index]
}

func (c *Compound) CurrentShape() (Shape, rl.Quaternion, rl.Vector3) {
	ch := c.Children[c.current]
	return ch.Shape, ch.Orientation, ch.Position
}
