// Stress test comparing broadphase strategies, single and multi-threaded,
// plus the raw GPU overlap prepass against a CPU loop.
package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"rigid3d/internal/compute"
	"rigid3d/internal/physics"
	"rigid3d/internal/shape"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"
)

const steps = 20

// Brute force is quadratic; past this count it only wastes time
const bruteLimit = 2000

var systems = []physics.CollisionSystem{
	physics.CollisionBrute,
	physics.CollisionSAP,
	physics.CollisionPersistentSAP,
	physics.CollisionGPU,
}

func main() {
	skipGPU := flag.Bool("no-gpu", false, "skip GPU measurements")
	flag.Parse()

	gpu := !*skipGPU
	if gpu {
		info, err := compute.Initialize()
		if err != nil {
			log.Printf("GPU unavailable: %v", err)
			gpu = false
		} else {
			fmt.Printf("GPU: %s | %s | %s\n", info.Backend, info.Vendor, info.Name)
		}
	}
	fmt.Println()

	// Test various object counts
	testCounts := []int{100, 500, 1000, 2000, 5000, 10000}

	fmt.Printf("%6s  %-15s %12s %12s %12s %8s\n", "bodies", "system", "detect(1)", "detect(N)", "step(N)", "arbiters")
	for _, count := range testCounts {
		for _, cs := range systems {
			if cs == physics.CollisionBrute && count > bruteLimit {
				continue
			}
			if cs == physics.CollisionGPU && !gpu {
				continue
			}
			testSystem(cs, count)
		}
	}

	if gpu {
		fmt.Println()
		for _, count := range testCounts {
			testPrepass(count)
		}
	}
}

// spawn fills w with count bodies inside a cube whose size scales with count
// to keep the density reasonable.
func spawn(w *physics.World, count int) error {
	rng := rand.New(rand.NewSource(42)) // Consistent results
	spawnSize := float32(20.0) + float32(count)/50.0

	ground := physics.NewBody(shape.NewBox(rl.Vector3{X: spawnSize * 2, Y: 1, Z: spawnSize * 2}), 0)
	ground.SetStatic(true)
	ground.SetPosition(rl.Vector3{Y: -0.5})
	if err := w.AddBody(ground); err != nil {
		return err
	}

	for i := 0; i < count; i++ {
		var s shape.Shape
		if i%2 == 0 {
			s = shape.NewSphere(0.5 + rng.Float32()*0.5) // 0.5 to 1.0 radius
		} else {
			size := 0.5 + rng.Float32()
			s = shape.NewBox(rl.Vector3{X: size, Y: size, Z: size})
		}
		b := physics.NewBody(s, 1)
		b.SetPosition(rl.Vector3{
			X: rng.Float32()*spawnSize - spawnSize/2,
			Y: 1 + rng.Float32()*spawnSize,
			Z: rng.Float32()*spawnSize - spawnSize/2,
		})
		if err := w.AddBody(b); err != nil {
			return err
		}
	}
	return nil
}

// measure steps a fresh world and returns the average detection and step times.
func measure(cs physics.CollisionSystem, count int, parallel bool) (detect, step time.Duration, arbiters int, err error) {
	cfg := physics.DefaultConfig()
	cfg.CollisionSystem = cs
	cfg.GPUMaxObjects = count + 1
	cfg.AllowDeactivation = false
	if !parallel {
		cfg.ThreadMultiplier = 0
	}

	w, err := physics.NewWorld(cfg)
	if err != nil {
		return 0, 0, 0, err
	}
	defer w.Close()

	if err := spawn(w, count); err != nil {
		return 0, 0, 0, err
	}

	// Warm up
	if err := w.Step(0.01, parallel); err != nil {
		return 0, 0, 0, err
	}

	start := time.Now()
	for i := 0; i < steps; i++ {
		if err := w.Step(0.01, parallel); err != nil {
			return 0, 0, 0, err
		}
		detect += w.DebugTimes()[physics.DebugCollisionDetect]
	}
	step = time.Since(start) / steps
	return detect / steps, step, w.Stats().Arbiters, nil
}

func testSystem(cs physics.CollisionSystem, count int) {
	single, _, _, err := measure(cs, count, false)
	if err != nil {
		fmt.Printf("%6d  %-15s ERROR: %v\n", count, cs, err)
		return
	}
	multi, step, arbiters, err := measure(cs, count, true)
	if err != nil {
		fmt.Printf("%6d  %-15s ERROR: %v\n", count, cs, err)
		return
	}

	fmt.Printf("%6d  %-15s %12v %12v %12v %8d\n", count, cs,
		single.Round(time.Microsecond), multi.Round(time.Microsecond), step.Round(time.Microsecond), arbiters)
}

func testPrepass(count int) {
	rng := rand.New(rand.NewSource(42))
	spawnSize := float32(50.0) + float32(count)/100.0

	boxes := make([]compute.Box, count)
	for i := range boxes {
		x := rng.Float32()*spawnSize - spawnSize/2
		y := rng.Float32()*spawnSize - spawnSize/2
		z := rng.Float32()*spawnSize - spawnSize/2
		r := 0.5 + rng.Float32()*0.5
		boxes[i] = compute.Box{
			MinX: x - r, MinY: y - r, MinZ: z - r,
			MaxX: x + r, MaxY: y + r, MaxZ: z + r,
		}
	}

	maxPairs := uint32(count * 20) // Generous pair buffer
	bp, err := compute.NewBroadPhase(uint32(count), maxPairs)
	if err != nil {
		fmt.Printf("%5d boxes: GPU ERROR: %v\n", count, err)
		return
	}
	defer bp.Release()

	// Warm up
	if _, err := bp.DetectPairs(boxes); err != nil {
		fmt.Printf("%5d boxes: GPU ERROR: %v\n", count, err)
		return
	}

	const iterations = 10
	gpuStart := time.Now()
	var gpuPairs []compute.Pair
	for i := 0; i < iterations; i++ {
		gpuPairs, _ = bp.DetectPairs(boxes)
	}
	gpuTime := time.Since(gpuStart) / iterations

	// Time CPU (naive O(n²))
	cpuStart := time.Now()
	var cpuPairCount int
	for iter := 0; iter < iterations; iter++ {
		cpuPairCount = 0
		for i := 0; i < len(boxes); i++ {
			a := boxes[i]
			for j := i + 1; j < len(boxes); j++ {
				b := boxes[j]
				if a.MinX <= b.MaxX && a.MaxX >= b.MinX &&
					a.MinY <= b.MaxY && a.MaxY >= b.MinY &&
					a.MinZ <= b.MaxZ && a.MaxZ >= b.MinZ {
					cpuPairCount++
				}
			}
		}
	}
	cpuTime := time.Since(cpuStart) / iterations

	speedup := float64(cpuTime) / float64(gpuTime)

	fmt.Printf("%5d boxes: GPU %8v (%4d pairs) | CPU %10v (%4d pairs) | %.1fx speedup\n",
		count, gpuTime.Round(time.Microsecond), len(gpuPairs),
		cpuTime.Round(time.Microsecond), cpuPairCount, speedup)
}
