// Interactive viewer: renders a scene with raylib and exposes the world
// tunables through a raygui panel.
package main

import (
	"flag"
	"log"
	"rigid3d/internal/config"

	rl "github.com/gen2brain/raylib-go/raylib"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "settings file (YAML)")
	scenePath := flag.String("scene", "assets/scenes/stack.json", "scene file (JSON)")
	flag.Parse()

	settings, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load settings: %v", err)
	}

	v, err := newViewer(settings, *configPath, *scenePath)
	if err != nil {
		log.Fatalf("Failed to load scene: %v", err)
	}
	defer v.close()

	rl.SetConfigFlags(rl.FlagWindowHighdpi | rl.FlagMsaa4xHint)
	rl.InitWindow(1280, 720, "rigid3d viewer")
	defer rl.CloseWindow()

	rl.SetTargetFPS(120)
	setupStyle()

	for !rl.WindowShouldClose() {
		v.update(rl.GetFrameTime())
		v.draw()
	}
}
