package camera

import (
	"github.com/chewxy/math32"
	rl "github.com/gen2brain/raylib-go/raylib"
)

// Input is one frame of camera controls. Move axes range over [-1, 1].
type Input struct {
	Look    rl.Vector2 // Mouse delta in pixels
	Forward float32
	Right   float32
	Up      float32
	Boost   bool
}

// FlyCamera is a free-flying camera for inspecting a scene.
type FlyCamera struct {
	Position    rl.Vector3
	Yaw         float32 // Degrees, 0 looks along +X
	Pitch       float32 // Degrees
	MoveSpeed   float32
	LookSpeed   float32
	BoostFactor float32
	Fovy        float32
}

func New(pos rl.Vector3) *FlyCamera {
	return &FlyCamera{
		Position:    pos,
		Yaw:         -135.0,
		Pitch:       -30.0,
		MoveSpeed:   8.0, // Units per second
		LookSpeed:   0.1,
		BoostFactor: 4.0,
		Fovy:        45,
	}
}

// ReadInput samples raylib's keyboard and mouse. Looking requires the right
// mouse button so the cursor stays free for the UI.
func ReadInput() Input {
	var in Input
	if rl.IsMouseButtonDown(rl.MouseRightButton) {
		in.Look = rl.GetMouseDelta()
	}
	in.Forward = axis(rl.KeyW, rl.KeyS)
	in.Right = axis(rl.KeyD, rl.KeyA)
	in.Up = axis(rl.KeyE, rl.KeyQ)
	in.Boost = rl.IsKeyDown(rl.KeyLeftShift)
	return in
}

func axis(pos, neg int32) float32 {
	var v float32
	if rl.IsKeyDown(pos) {
		v++
	}
	if rl.IsKeyDown(neg) {
		v--
	}
	return v
}

func (c *FlyCamera) Update(deltaTime float32, in Input) {
	c.Yaw += in.Look.X * c.LookSpeed
	c.Pitch -= in.Look.Y * c.LookSpeed

	// Clamp pitch
	if c.Pitch > 89 {
		c.Pitch = 89
	}
	if c.Pitch < -89 {
		c.Pitch = -89
	}

	forward, right := c.Directions()
	move := rl.Vector3Scale(forward, in.Forward)
	move = rl.Vector3Add(move, rl.Vector3Scale(right, in.Right))
	move.Y += in.Up

	// Normalize diagonal movement so you don't go faster diagonally
	if l := rl.Vector3Length(move); l > 1 {
		move = rl.Vector3Scale(move, 1/l)
	}

	speed := c.MoveSpeed
	if in.Boost {
		speed *= c.BoostFactor
	}
	c.Position = rl.Vector3Add(c.Position, rl.Vector3Scale(move, speed*deltaTime))
}

// Directions returns the unit view direction and the horizontal right vector.
func (c *FlyCamera) Directions() (forward, right rl.Vector3) {
	yaw := c.Yaw * rl.Deg2rad
	pitch := c.Pitch * rl.Deg2rad
	forward = rl.Vector3{
		X: math32.Cos(yaw) * math32.Cos(pitch),
		Y: math32.Sin(pitch),
		Z: math32.Sin(yaw) * math32.Cos(pitch),
	}
	right = rl.Vector3{
		X: -math32.Sin(yaw),
		Y: 0,
		Z: math32.Cos(yaw),
	}
	return
}

// Ray returns a ray from the camera along the view direction.
func (c *FlyCamera) Ray() (origin, dir rl.Vector3) {
	forward, _ := c.Directions()
	return c.Position, forward
}

func (c *FlyCamera) Camera3D() rl.Camera3D {
	forward, _ := c.Directions()
	return rl.Camera3D{
		Position:   c.Position,
		Target:     rl.Vector3Add(c.Position, forward),
		Up:         rl.Vector3{X: 0, Y: 1, Z: 0},
		Fovy:       c.Fovy,
		Projection: rl.CameraPerspective,
	}
}
