// Terminal monitor: steps a scene in real time and shows live per-stage
// timings, with an optional tick on every new collision.
package main

import (
	"flag"
	"log"
	"rigid3d/internal/config"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "settings file (YAML)")
	scenePath := flag.String("scene", "assets/scenes/stack.json", "scene file (JSON)")
	mute := flag.Bool("mute", false, "start with the collision tick muted")
	flag.Parse()

	settings, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load settings: %v", err)
	}

	m, err := newMonitor(settings, *scenePath)
	if err != nil {
		log.Fatalf("Failed to start monitor: %v", err)
	}
	defer m.cleanup()

	m.audio.muted = *mute
	m.run()
}
