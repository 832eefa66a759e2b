package main

import (
	"fmt"
	"log"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"
)

const (
	panelX     = 10
	panelY     = 70
	panelW     = 300
	panelH     = 330
	labelW     = 120
	fieldH     = 20
	rowSpacing = 28
)

var (
	colorBgDark    = rl.NewColor(24, 24, 32, 235)
	colorBgElement = rl.NewColor(40, 40, 52, 255)
	colorBgHover   = rl.NewColor(55, 55, 72, 255)
	colorAccent    = rl.NewColor(99, 102, 241, 255)
	colorTextMuted = rl.NewColor(150, 150, 170, 255)
	colorTextMain  = rl.NewColor(230, 230, 240, 255)
)

func setupStyle() {
	gui.SetStyle(gui.DEFAULT, gui.BACKGROUND_COLOR, gui.NewColorPropertyValue(colorBgDark))
	gui.SetStyle(gui.DEFAULT, gui.BASE_COLOR_NORMAL, gui.NewColorPropertyValue(colorBgElement))
	gui.SetStyle(gui.DEFAULT, gui.BASE_COLOR_FOCUSED, gui.NewColorPropertyValue(colorBgHover))
	gui.SetStyle(gui.DEFAULT, gui.BASE_COLOR_PRESSED, gui.NewColorPropertyValue(colorAccent))
	gui.SetStyle(gui.DEFAULT, gui.TEXT_COLOR_NORMAL, gui.NewColorPropertyValue(colorTextMuted))
	gui.SetStyle(gui.DEFAULT, gui.TEXT_COLOR_FOCUSED, gui.NewColorPropertyValue(colorTextMain))
	gui.SetStyle(gui.DEFAULT, gui.TEXT_COLOR_PRESSED, gui.NewColorPropertyValue(colorTextMain))
	gui.SetStyle(gui.DEFAULT, gui.BORDER_COLOR_FOCUSED, gui.NewColorPropertyValue(colorAccent))
	gui.SetStyle(gui.DEFAULT, gui.TEXT_SIZE, 14)
}

func (v *viewer) panelHovered() bool {
	if !v.showPanel {
		return false
	}
	return rl.CheckCollisionPointRec(rl.GetMousePosition(), rl.Rectangle{X: panelX, Y: panelY, Width: panelW, Height: panelH})
}

// drawPanel draws the tuning panel and pushes changed values into the world.
func (v *viewer) drawPanel() {
	if !v.showPanel {
		return
	}

	rl.DrawRectangle(panelX, panelY, panelW, panelH, colorBgDark)
	rl.DrawText("World", panelX+10, panelY+8, 16, colorTextMain)

	x := float32(panelX + 10)
	y := float32(panelY + 34)
	s := &v.settings

	slider := func(label string, value, min, max float32) float32 {
		rl.DrawText(label, int32(x), int32(y)+4, 14, colorTextMuted)
		bounds := rl.Rectangle{X: x + labelW, Y: y, Width: panelW - labelW - 60, Height: fieldH}
		out := gui.Slider(bounds, "", fmt.Sprintf("%.2f", value), value, min, max)
		y += rowSpacing
		return out
	}
	check := func(label string, value bool) bool {
		bounds := rl.Rectangle{X: x, Y: y, Width: fieldH, Height: fieldH}
		out := gui.CheckBox(bounds, label, value)
		y += rowSpacing
		return out
	}

	// Gravity
	if g := slider("Gravity Y", s.Motion.Gravity[1], -30, 0); g != s.Motion.Gravity[1] {
		s.Motion.Gravity[1] = g
		v.world.Gravity.Y = g
	}

	// Damping
	linear := slider("Linear damp", s.Motion.LinearDamping, 0, 1)
	angular := slider("Angular damp", s.Motion.AngularDamping, 0, 1)
	if linear != s.Motion.LinearDamping || angular != s.Motion.AngularDamping {
		if err := v.world.SetDampingFactors(angular, linear); err != nil {
			log.Printf("Damping rejected: %v", err)
		} else {
			s.Motion.LinearDamping, s.Motion.AngularDamping = linear, angular
		}
	}

	// Solver iterations
	iterations := int(slider("Iterations", float32(s.Solver.ContactIterations), 1, 30) + 0.5)
	small := int(slider("Small iter.", float32(s.Solver.SmallIterations), 1, 30) + 0.5)
	if small > iterations {
		small = iterations
	}
	if iterations != s.Solver.ContactIterations || small != s.Solver.SmallIterations {
		if err := v.world.SetIterations(iterations, small); err != nil {
			log.Printf("Iterations rejected: %v", err)
		} else {
			s.Solver.ContactIterations, s.Solver.SmallIterations = iterations, small
		}
	}

	// Toggles
	s.Threads.Multithread = check("Multithread", s.Threads.Multithread)

	if allow := check("Deactivation", s.Sleep.AllowDeactivation); allow != s.Sleep.AllowDeactivation {
		s.Sleep.AllowDeactivation = allow
		v.world.SetAllowDeactivation(allow)
	}
	if spec := check("Speculative contacts", s.Collision.SpeculativeContacts); spec != s.Collision.SpeculativeContacts {
		s.Collision.SpeculativeContacts = spec
		v.world.SetSpeculativeContacts(spec)
	}
	v.debugView = check("Debug draw", v.debugView)
	v.paused = check("Paused", v.paused)
}
