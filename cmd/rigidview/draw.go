package main

import (
	"fmt"
	"rigid3d/internal/physics"
	"rigid3d/internal/shape"
	"time"

	"github.com/chewxy/math32"
	rl "github.com/gen2brain/raylib-go/raylib"
)

// debugDrawer renders physics debug geometry. Call inside BeginMode3D/EndMode3D.
type debugDrawer struct {
	color rl.Color
}

func (d debugDrawer) DrawLine(a, b rl.Vector3) {
	rl.DrawLine3D(a, b, d.color)
}

func (d debugDrawer) DrawPoint(p rl.Vector3) {
	rl.DrawCubeV(p, rl.Vector3{X: 0.08, Y: 0.08, Z: 0.08}, rl.Red)
}

func (d debugDrawer) DrawTriangle(a, b, c rl.Vector3) {
	rl.DrawLine3D(a, b, d.color)
	rl.DrawLine3D(b, c, d.color)
	rl.DrawLine3D(c, a, d.color)
}

func (v *viewer) draw() {
	cam := v.camera.Camera3D()

	rl.BeginDrawing()
	rl.ClearBackground(rl.NewColor(20, 20, 30, 255))

	drawStart := time.Now()
	rl.BeginMode3D(cam)
	rl.DrawGrid(40, 1)
	aspect := float32(rl.GetScreenWidth()) / float32(rl.GetScreenHeight())
	frustum := v.camera.Frustum(aspect)
	v.culled = 0
	for _, b := range v.world.Bodies() {
		if b.SoftBody() != nil {
			continue
		}
		if !frustum.ContainsBox(b.BoundingBox()) {
			v.culled++
			continue
		}
		v.drawBody(b)
	}
	for _, sb := range v.world.SoftBodies() {
		v.drawSoftBody(sb)
	}
	if v.debugView {
		v.world.DebugDraw(debugDrawer{color: rl.Lime})
	}
	rl.EndMode3D()
	v.drawMs = float64(time.Since(drawStart).Microseconds()) / 1000.0

	v.drawHUD()
	v.drawPanel()
	rl.EndDrawing()
}

func (v *viewer) drawBody(b *physics.Body) {
	color, ok := v.colors[b]
	if !ok {
		color = rl.LightGray
	}
	if !b.IsStatic() && !b.IsActive() {
		color = rl.ColorBrightness(color, -0.4)
	}

	rl.PushMatrix()
	translate(b.Position(), b.Orientation())
	drawShape(b.Shape(), color)
	rl.PopMatrix()

	if b == v.selected {
		box := b.BoundingBox()
		rl.DrawCubeWiresV(box.Center(), box.Size(), rl.Yellow)
	}
}

// translate applies a position and orientation to the current matrix.
func translate(pos rl.Vector3, q rl.Quaternion) {
	rl.Translatef(pos.X, pos.Y, pos.Z)
	axis, angle := axisAngle(q)
	if angle != 0 {
		rl.Rotatef(angle*rl.Rad2deg, axis.X, axis.Y, axis.Z)
	}
}

func axisAngle(q rl.Quaternion) (rl.Vector3, float32) {
	q = rl.QuaternionNormalize(q)
	if q.W < 0 {
		q = rl.Quaternion{X: -q.X, Y: -q.Y, Z: -q.Z, W: -q.W}
	}
	s := math32.Sqrt(1 - q.W*q.W)
	if s < 1e-6 {
		return rl.Vector3{Y: 1}, 0
	}
	return rl.Vector3{X: q.X / s, Y: q.Y / s, Z: q.Z / s}, 2 * math32.Acos(q.W)
}

// drawShape draws s at the origin of the current matrix.
func drawShape(s shape.Shape, color rl.Color) {
	switch sh := s.(type) {
	case *shape.Sphere:
		rl.DrawSphere(rl.Vector3{}, sh.Radius, color)
		rl.DrawSphereWires(rl.Vector3{}, sh.Radius, 8, 8, rl.ColorBrightness(color, -0.3))
	case *shape.Box:
		rl.DrawCubeV(rl.Vector3{}, sh.Size, color)
		rl.DrawCubeWiresV(rl.Vector3{}, sh.Size, rl.ColorBrightness(color, -0.3))
	case *shape.Compound:
		for _, ch := range sh.Children {
			rl.PushMatrix()
			translate(ch.Position, ch.Orientation)
			drawShape(ch.Shape, color)
			rl.PopMatrix()
		}
	}
}

func (v *viewer) drawSoftBody(sb *physics.SoftBody) {
	color, ok := v.softColors[sb]
	if !ok {
		color = rl.SkyBlue
	}
	points := sb.Points()
	if len(sb.Triangles) == 0 {
		for _, p := range points {
			r := float32(0.05)
			if sphere, ok := p.Shape().(*shape.Sphere); ok {
				r = sphere.Radius
			}
			rl.DrawSphere(p.Position(), r, color)
		}
		for _, s := range sb.Springs() {
			rl.DrawLine3D(s.Body1().Position(), s.Body2().Position(), color)
		}
		return
	}

	// Both windings so the cloth shows from either side
	for _, t := range sb.Triangles {
		a, b, c := points[t[0]].Position(), points[t[1]].Position(), points[t[2]].Position()
		rl.DrawTriangle3D(a, b, c, color)
		rl.DrawTriangle3D(a, c, b, rl.ColorBrightness(color, -0.25))
	}
}

func (v *viewer) drawHUD() {
	rl.DrawText("WASD/QE to fly, RMB to look, LMB to pick, F to shoot", 10, 10, 18, rl.Gray)
	rl.DrawText("P pause, N step, R reload, Ctrl+S save, Tab panel, F1 debug", 10, 32, 18, rl.Gray)
	rl.DrawFPS(10, 50)

	screenW := int32(rl.GetScreenWidth())
	x := screenW - 260
	y := int32(10)
	line := func(text string, color rl.Color) {
		rl.DrawText(text, x, y, 16, color)
		y += 20
	}

	s := v.world.Stats()
	line(fmt.Sprintf("Bodies:   %d (%d awake, %d culled)", s.Bodies, s.ActiveBodies, v.culled), rl.RayWhite)
	line(fmt.Sprintf("Arbiters: %d (%d contacts)", s.Arbiters, s.Contacts), rl.RayWhite)
	line(fmt.Sprintf("Islands:  %d (%d awake)", s.Islands, s.ActiveIslands), rl.RayWhite)
	line(fmt.Sprintf("Step:     %.2f ms", v.stepMs), rl.Green)
	line(fmt.Sprintf("Draw:     %.2f ms", v.drawMs), rl.Green)

	if v.debugView {
		times := v.world.DebugTimes()
		for i, d := range times {
			line(fmt.Sprintf("%-17s %.3f", physics.DebugType(i), float64(d.Microseconds())/1000.0), rl.Lime)
		}
	}

	if v.selected != nil {
		p := v.selected.Position()
		vel := v.selected.LinearVelocity()
		line(fmt.Sprintf("Selected: %v", v.selected.Tag), rl.Yellow)
		line(fmt.Sprintf("  pos (%.2f, %.2f, %.2f)", p.X, p.Y, p.Z), rl.Yellow)
		line(fmt.Sprintf("  vel (%.2f, %.2f, %.2f)", vel.X, vel.Y, vel.Z), rl.Yellow)
	}

	if v.status != "" {
		rl.DrawText(v.status, 10, int32(rl.GetScreenHeight())-26, 16, rl.Gold)
	}
}
