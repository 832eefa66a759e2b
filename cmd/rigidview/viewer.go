package main

import (
	"fmt"
	"log"
	"rigid3d/internal/camera"
	"rigid3d/internal/config"
	"rigid3d/internal/physics"
	"rigid3d/internal/scene"
	"rigid3d/internal/shape"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"
)

type viewer struct {
	settings   config.Settings
	configPath string
	scenePath  string

	world  *physics.World
	camera *camera.FlyCamera

	colors     map[*physics.Body]rl.Color
	softColors map[*physics.SoftBody]rl.Color

	selected  *physics.Body
	paused    bool
	stepOnce  bool
	debugView bool
	showPanel bool
	status    string

	stepMs  float64
	drawMs  float64
	culled  int
	shotNum int
}

func newViewer(settings config.Settings, configPath, scenePath string) (*viewer, error) {
	v := &viewer{
		settings:   settings,
		configPath: configPath,
		scenePath:  scenePath,
		camera:     camera.New(rl.Vector3{X: 12, Y: 10, Z: 12}),
		showPanel:  true,
	}
	if err := v.load(); err != nil {
		return nil, err
	}
	return v, nil
}

// load rebuilds the world from settings and the scene file.
func (v *viewer) load() error {
	file, err := scene.Load(v.scenePath)
	if err != nil {
		return err
	}

	w, err := physics.NewWorld(v.settings.WorldConfig())
	if err != nil {
		return err
	}
	bodies, err := file.Build(w)
	if err != nil {
		w.Close()
		return err
	}

	if v.world != nil {
		v.world.Close()
	}
	v.world = w
	v.selected = nil

	v.colors = make(map[*physics.Body]rl.Color, len(file.Objects))
	for _, def := range file.Objects {
		v.colors[bodies[def.Name]] = scene.LookupColor(def.Color)
	}
	// Build adds soft bodies in file order
	v.softColors = make(map[*physics.SoftBody]rl.Color, len(file.SoftBodies))
	for i, sb := range w.SoftBodies() {
		v.softColors[sb] = scene.LookupColor(file.SoftBodies[i].Color)
	}
	return nil
}

func (v *viewer) close() {
	if v.world != nil {
		v.world.Close()
	}
}

func (v *viewer) update(dt float32) {
	v.handleKeys()

	if !v.panelHovered() {
		v.camera.Update(dt, camera.ReadInput())
		if rl.IsMouseButtonPressed(rl.MouseLeftButton) {
			v.pick()
		}
	}

	if v.paused && !v.stepOnce {
		return
	}

	start := time.Now()
	var err error
	if v.stepOnce {
		err = v.world.Step(v.settings.Timestep.Fixed, v.settings.Threads.Multithread)
		v.stepOnce = false
	} else {
		_, err = v.world.StepFixed(dt, v.settings.Threads.Multithread, v.settings.Timestep.Fixed, v.settings.Timestep.MaxSteps)
	}
	if err != nil {
		log.Printf("Step failed: %v", err)
		v.paused = true
	}
	v.stepMs = float64(time.Since(start).Microseconds()) / 1000.0
}

func (v *viewer) handleKeys() {
	switch {
	case rl.IsKeyPressed(rl.KeyP):
		v.paused = !v.paused
	case rl.IsKeyPressed(rl.KeyN):
		v.stepOnce = true
	case rl.IsKeyPressed(rl.KeyF1):
		v.debugView = !v.debugView
	case rl.IsKeyPressed(rl.KeyTab):
		v.showPanel = !v.showPanel
	case rl.IsKeyPressed(rl.KeyF):
		v.shoot()
	case rl.IsKeyPressed(rl.KeyR):
		if err := v.load(); err != nil {
			v.status = fmt.Sprintf("Reload failed: %v", err)
		} else {
			v.status = "Reloaded " + v.scenePath
		}
	case rl.IsKeyDown(rl.KeyLeftControl) && rl.IsKeyPressed(rl.KeyS):
		v.save()
	}
}

// pick selects the body under the mouse cursor and wakes it.
func (v *viewer) pick() {
	ray := rl.GetScreenToWorldRay(rl.GetMousePosition(), v.camera.Camera3D())
	hit, ok := v.world.Raycast(ray.Position, ray.Direction, func(b *physics.Body, _ rl.Vector3, _ float32) bool {
		return !b.IsStatic()
	})
	if !ok {
		v.selected = nil
		return
	}
	v.selected = hit.Body
	hit.Body.SetActive(true)
}

// shoot fires a sphere from the camera along the view direction.
func (v *viewer) shoot() {
	v.shotNum++
	origin, dir := v.camera.Ray()

	b := physics.NewBody(shape.NewSphere(0.4), 2)
	b.Tag = fmt.Sprintf("Shot%d", v.shotNum)
	b.SetPosition(rl.Vector3Add(origin, rl.Vector3Scale(dir, 2)))
	b.SetLinearVelocity(rl.Vector3Scale(dir, 25))
	b.SetSpeculativeContacts(true)
	if err := v.world.AddBody(b); err != nil {
		log.Printf("Shoot failed: %v", err)
		return
	}
	v.colors[b] = rl.Orange
}

// save writes the current world next to the scene and the tuned settings to
// the settings file.
func (v *viewer) save() {
	file, err := scene.Capture(v.world)
	if err != nil {
		v.status = fmt.Sprintf("Capture failed: %v", err)
		return
	}
	path := v.scenePath + ".snapshot.json"
	if err := scene.Save(path, file); err != nil {
		v.status = fmt.Sprintf("Save failed: %v", err)
		return
	}
	if err := config.Save(v.configPath, v.settings); err != nil {
		v.status = fmt.Sprintf("Settings save failed: %v", err)
		return
	}
	v.status = "Saved " + path + " and " + v.configPath
}
