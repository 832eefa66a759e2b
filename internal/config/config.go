// Package config reads and writes the YAML settings documents that tune a
// physics world.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"rigid3d/internal/physics"

	rl "github.com/gen2brain/raylib-go/raylib"
	"gopkg.in/yaml.v3"
)

// DefaultPath is where the tools look for settings when no path is given.
const DefaultPath = "config/physics.yaml"

var ErrInvalid = errors.New("config: invalid settings")

type Settings struct {
	Collision Collision `yaml:"collision"`
	Solver    Solver    `yaml:"solver"`
	Motion    Motion    `yaml:"motion"`
	Sleep     Sleep     `yaml:"sleep"`
	Threads   Threads   `yaml:"threads"`
	Timestep  Timestep  `yaml:"timestep"`
}

type Collision struct {
	System              string `yaml:"system"`
	SpeculativeContacts bool   `yaml:"speculative_contacts"`
	GPUMaxObjects       int    `yaml:"gpu_max_objects"`
}

type Solver struct {
	ContactIterations  int     `yaml:"contact_iterations"`
	SmallIterations    int     `yaml:"small_iterations"`
	AllowedPenetration float32 `yaml:"allowed_penetration"`
	BiasFactor         float32 `yaml:"bias_factor"`
	MaximumBias        float32 `yaml:"maximum_bias"`
	BreakThreshold     float32 `yaml:"break_threshold"`
	MinVelocity        float32 `yaml:"min_velocity"`
	MaterialMixing     string  `yaml:"material_mixing"`
}

type Motion struct {
	Gravity        [3]float32 `yaml:"gravity,flow"`
	LinearDamping  float32    `yaml:"linear_damping"`
	AngularDamping float32    `yaml:"angular_damping"`
}

type Sleep struct {
	AllowDeactivation  bool    `yaml:"allow_deactivation"`
	MinLinearVelocity  float32 `yaml:"min_linear_velocity"`
	MinAngularVelocity float32 `yaml:"min_angular_velocity"`
	MinSleepingTime    float32 `yaml:"min_sleeping_time"`
}

type Threads struct {
	Multithread         bool `yaml:"multithread"`
	ThreadsPerProcessor int  `yaml:"threads_per_processor"`
}

// Timestep drives World.StepFixed.
type Timestep struct {
	Fixed    float32 `yaml:"fixed"`
	MaxSteps int     `yaml:"max_steps"`
}

var collisionSystems = map[string]physics.CollisionSystem{
	physics.CollisionSAP.String():           physics.CollisionSAP,
	physics.CollisionPersistentSAP.String(): physics.CollisionPersistentSAP,
	physics.CollisionBrute.String():         physics.CollisionBrute,
	physics.CollisionGPU.String():           physics.CollisionGPU,
}

var materialMixings = map[string]physics.MaterialMixing{
	physics.MixAverage.String(): physics.MixAverage,
	physics.MixMin.String():     physics.MixMin,
	physics.MixMax.String():     physics.MixMax,
}

// Default mirrors physics.DefaultConfig.
func Default() Settings {
	cfg := physics.DefaultConfig()
	return Settings{
		Collision: Collision{
			System:              cfg.CollisionSystem.String(),
			SpeculativeContacts: cfg.SpeculativeContacts,
			GPUMaxObjects:       cfg.GPUMaxObjects,
		},
		Solver: Solver{
			ContactIterations:  cfg.ContactIterations,
			SmallIterations:    cfg.SmallIterations,
			AllowedPenetration: cfg.Contact.AllowedPenetration,
			BiasFactor:         cfg.Contact.BiasFactor,
			MaximumBias:        cfg.Contact.MaximumBias,
			BreakThreshold:     cfg.Contact.BreakThreshold,
			MinVelocity:        cfg.Contact.MinVelocity,
			MaterialMixing:     cfg.Contact.MaterialMixing.String(),
		},
		Motion: Motion{
			Gravity:        [3]float32{cfg.Gravity.X, cfg.Gravity.Y, cfg.Gravity.Z},
			LinearDamping:  cfg.LinearDamping,
			AngularDamping: cfg.AngularDamping,
		},
		Sleep: Sleep{
			AllowDeactivation:  cfg.AllowDeactivation,
			MinLinearVelocity:  cfg.InactiveLinearVelocity,
			MinAngularVelocity: cfg.InactiveAngularVelocity,
			MinSleepingTime:    cfg.DeactivationTime,
		},
		Threads: Threads{
			Multithread:         true,
			ThreadsPerProcessor: cfg.ThreadMultiplier,
		},
		Timestep: Timestep{
			Fixed:    0.02,
			MaxSteps: 4,
		},
	}
}

// Load reads settings from path on top of Default. A missing file yields
// the defaults.
func Load(path string) (Settings, error) {
	s := Default()
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return s, err
	}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Default(), fmt.Errorf("parse %s: %w", path, err)
	}
	if err := s.Validate(); err != nil {
		return Default(), fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Save writes s to path, creating the directory if needed.
func Save(path string, s Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := yaml.Marshal(&s)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (s Settings) Validate() error {
	if _, ok := collisionSystems[s.Collision.System]; !ok {
		return fmt.Errorf("unknown collision system %q: %w", s.Collision.System, ErrInvalid)
	}
	if _, ok := materialMixings[s.Solver.MaterialMixing]; !ok {
		return fmt.Errorf("unknown material mixing %q: %w", s.Solver.MaterialMixing, ErrInvalid)
	}
	if s.Collision.GPUMaxObjects < 1 {
		return fmt.Errorf("gpu_max_objects %d: %w", s.Collision.GPUMaxObjects, ErrInvalid)
	}
	if s.Threads.ThreadsPerProcessor < 1 {
		return fmt.Errorf("threads_per_processor %d: %w", s.Threads.ThreadsPerProcessor, ErrInvalid)
	}
	if s.Timestep.Fixed <= 0 || s.Timestep.MaxSteps < 1 {
		return fmt.Errorf("timestep %+v: %w", s.Timestep, ErrInvalid)
	}
	if err := s.WorldConfig().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return nil
}

// WorldConfig converts the settings for physics.NewWorld. Unknown names fall
// back to the defaults; call Validate to reject them.
func (s Settings) WorldConfig() physics.Config {
	cfg := physics.DefaultConfig()

	if cs, ok := collisionSystems[s.Collision.System]; ok {
		cfg.CollisionSystem = cs
	}
	cfg.SpeculativeContacts = s.Collision.SpeculativeContacts
	cfg.GPUMaxObjects = s.Collision.GPUMaxObjects

	cfg.ContactIterations = s.Solver.ContactIterations
	cfg.SmallIterations = s.Solver.SmallIterations
	cfg.Contact.AllowedPenetration = s.Solver.AllowedPenetration
	cfg.Contact.BiasFactor = s.Solver.BiasFactor
	cfg.Contact.MaximumBias = s.Solver.MaximumBias
	cfg.Contact.BreakThreshold = s.Solver.BreakThreshold
	cfg.Contact.MinVelocity = s.Solver.MinVelocity
	if m, ok := materialMixings[s.Solver.MaterialMixing]; ok {
		cfg.Contact.MaterialMixing = m
	}

	g := s.Motion.Gravity
	cfg.Gravity = rl.Vector3{X: g[0], Y: g[1], Z: g[2]}
	cfg.LinearDamping = s.Motion.LinearDamping
	cfg.AngularDamping = s.Motion.AngularDamping

	cfg.AllowDeactivation = s.Sleep.AllowDeactivation
	cfg.InactiveLinearVelocity = s.Sleep.MinLinearVelocity
	cfg.InactiveAngularVelocity = s.Sleep.MinAngularVelocity
	cfg.DeactivationTime = s.Sleep.MinSleepingTime

	cfg.ThreadMultiplier = 0
	if s.Threads.Multithread {
		cfg.ThreadMultiplier = s.Threads.ThreadsPerProcessor
	}
	return cfg
}
