// Headless runner: loads settings and a scene, steps the world and reports
// per-stage timings and collision counts.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"rigid3d/internal/config"
	"rigid3d/internal/physics"
	"rigid3d/internal/scene"
	"runtime/pprof"
	"time"
)

type options struct {
	ConfigPath string
	ScenePath  string
	SavePath   string
	Steps      int
	Parallel   bool
	Fixed      bool
	Every      int
	ProfileCPU string
}

func main() {
	var opts options
	flag.StringVar(&opts.ConfigPath, "config", config.DefaultPath, "settings file (YAML)")
	flag.StringVar(&opts.ScenePath, "scene", "assets/scenes/stack.json", "scene file (JSON)")
	flag.StringVar(&opts.SavePath, "save", "", "write the final world state to this scene file")
	flag.IntVar(&opts.Steps, "steps", 500, "number of steps")
	flag.BoolVar(&opts.Parallel, "parallel", true, "run steps on the task scheduler")
	flag.BoolVar(&opts.Fixed, "fixed", false, "advance with StepFixed instead of Step")
	flag.IntVar(&opts.Every, "every", 100, "print a progress line every N steps (0 = never)")
	flag.StringVar(&opts.ProfileCPU, "profile-cpu", "", "CPU profile output file")
	flag.Parse()

	settings, err := config.Load(opts.ConfigPath)
	if err != nil {
		log.Fatalf("Failed to load settings: %v", err)
	}

	w, err := physics.NewWorld(settings.WorldConfig())
	if err != nil {
		log.Fatalf("Failed to create world: %v", err)
	}
	defer w.Close()

	file, err := scene.Load(opts.ScenePath)
	if err != nil {
		log.Fatalf("Failed to load scene: %v", err)
	}
	if _, err := file.Build(w); err != nil {
		log.Fatalf("Failed to build scene: %v", err)
	}

	if opts.ProfileCPU != "" {
		f, err := os.Create(opts.ProfileCPU)
		if err != nil {
			log.Fatalf("Failed to create profile: %v", err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			log.Fatalf("Failed to start profile: %v", err)
		}
		defer pprof.StopCPUProfile()
	}

	r := newRun(w)
	stats := w.Stats()
	fmt.Printf("Scene %s: %d bodies, %d constraints, %d soft bodies (%s, %d threads)\n",
		opts.ScenePath, stats.Bodies, stats.Constraints, stats.SoftBodies,
		settings.Collision.System, threads(w, opts.Parallel))

	start := time.Now()
	for i := 1; i <= opts.Steps; i++ {
		if opts.Fixed {
			_, err = w.StepFixed(settings.Timestep.Fixed, opts.Parallel, settings.Timestep.Fixed, settings.Timestep.MaxSteps)
		} else {
			err = w.Step(settings.Timestep.Fixed, opts.Parallel)
		}
		if err != nil {
			log.Fatalf("Step %d failed: %v", i, err)
		}
		r.accumulate()

		if opts.Every > 0 && i%opts.Every == 0 {
			s := w.Stats()
			fmt.Printf("step %5d: %4d active, %5d arbiters, %5d contacts, %3d/%3d islands awake\n",
				i, s.ActiveBodies, s.Arbiters, s.Contacts, s.ActiveIslands, s.Islands)
		}
	}
	elapsed := time.Since(start)

	r.report(opts.Steps, elapsed)

	if opts.SavePath != "" {
		out, err := scene.Capture(w)
		if err != nil {
			log.Fatalf("Failed to capture scene: %v", err)
		}
		if err := scene.Save(opts.SavePath, out); err != nil {
			log.Fatalf("Failed to save scene: %v", err)
		}
		fmt.Printf("Saved world to %s\n", opts.SavePath)
	}
}

func threads(w *physics.World, parallel bool) int {
	if !parallel || w.Scheduler() == nil {
		return 1
	}
	return w.Scheduler().Threads()
}

// run accumulates stage timings and collision events over the whole run.
type run struct {
	world    *physics.World
	total    [physics.DebugTypeCount]time.Duration
	begins   int
	ends     int
	contacts int
	sleeps   int
	wakes    int
}

func newRun(w *physics.World) *run {
	r := &run{world: w}
	w.Events.BodiesBeginCollide.AddListener(func(_, _ *physics.Body) { r.begins++ })
	w.Events.BodiesEndCollide.AddListener(func(_, _ *physics.Body) { r.ends++ })
	w.Events.ContactCreated.AddListener(func(*physics.Contact) { r.contacts++ })
	w.Events.BodyDeactivated.AddListener(func(*physics.Body) { r.sleeps++ })
	w.Events.BodyActivated.AddListener(func(*physics.Body) { r.wakes++ })
	return r
}

func (r *run) accumulate() {
	times := r.world.DebugTimes()
	for i, d := range times {
		r.total[i] += d
	}
}

func (r *run) report(steps int, elapsed time.Duration) {
	if steps == 0 {
		return
	}

	var sum time.Duration
	for _, d := range r.total {
		sum += d
	}

	fmt.Printf("\n%d steps in %v (%v per step)\n\n", steps, elapsed.Round(time.Millisecond),
		(elapsed / time.Duration(steps)).Round(time.Microsecond))
	fmt.Printf("%-18s %12s %8s\n", "stage", "avg", "share")
	for i, d := range r.total {
		share := 0.0
		if sum > 0 {
			share = 100 * float64(d) / float64(sum)
		}
		fmt.Printf("%-18s %12v %7.1f%%\n", physics.DebugType(i), (d / time.Duration(steps)).Round(time.Microsecond/10), share)
	}

	s := r.world.Stats()
	fmt.Printf("\ncollisions: %d begin, %d end, %d new contacts\n", r.begins, r.ends, r.contacts)
	fmt.Printf("activity:   %d deactivated, %d activated, %d/%d bodies awake\n", r.sleeps, r.wakes, s.ActiveBodies, s.Bodies)
	fmt.Printf("pools:      arbiters %d created/%d free, contacts %d created/%d free\n",
		s.ArbitersCreated, s.ArbitersFree, s.ContactsCreated, s.ContactsFree)
}
