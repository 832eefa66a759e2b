package physics

import (
	"errors"
	"fmt"

	"github.com/chewxy/math32"
	rl "github.com/gen2brain/raylib-go/raylib"
)

var (
	ErrNilBody             = errors.New("physics: nil body")
	ErrDuplicateBody       = errors.New("physics: body already added")
	ErrBodyNotFound        = errors.New("physics: body not in world")
	ErrParticleBody        = errors.New("physics: body belongs to a soft body")
	ErrNilConstraint       = errors.New("physics: nil constraint")
	ErrDuplicateConstraint = errors.New("physics: constraint already added")
	ErrConstraintNotFound  = errors.New("physics: constraint not in world")
	ErrNilSoftBody         = errors.New("physics: nil soft body")
	ErrDuplicateSoftBody   = errors.New("physics: soft body already added")
	ErrInvalidEdge         = errors.New("physics: invalid soft body edge")
	ErrNegativeTimestep    = errors.New("physics: negative timestep")
	ErrDampingRange        = errors.New("physics: damping factor out of range")
	ErrThresholdRange      = errors.New("physics: inactivity threshold out of range")
	ErrIterationRange      = errors.New("physics: iteration count out of range")
	ErrMassRange           = errors.New("physics: mass out of range")
	ErrStepping            = errors.New("physics: world is stepping")
)

// CollisionSystem selects the broadphase strategy of a world.
type CollisionSystem int

const (
	CollisionSAP CollisionSystem = iota
	CollisionPersistentSAP
	CollisionBrute
	CollisionGPU
)

func (c CollisionSystem) String() string {
	switch c {
	case CollisionPersistentSAP:
		return "persistent_sap"
	case CollisionBrute:
		return "brute"
	case CollisionGPU:
		return "gpu"
	}
	return "sap"
}

// Config holds the tunables of a World.
type Config struct {
	CollisionSystem CollisionSystem
	// GPUMaxObjects sizes the GPU buffers when CollisionSystem is CollisionGPU.
	GPUMaxObjects int

	Gravity        rl.Vector3
	LinearDamping  float32
	AngularDamping float32

	// Bodies slower than both thresholds for DeactivationTime seconds may sleep.
	InactiveLinearVelocity  float32
	InactiveAngularVelocity float32
	DeactivationTime        float32
	AllowDeactivation       bool

	ContactIterations int
	SmallIterations   int

	SpeculativeContacts bool

	// ThreadMultiplier scales the worker count by the number of CPUs. Zero
	// disables the scheduler and every step runs on the caller.
	ThreadMultiplier int

	Contact ContactSettings
}

func DefaultConfig() Config {
	return Config{
		CollisionSystem:         CollisionSAP,
		GPUMaxObjects:           50000,
		Gravity:                 rl.Vector3{Y: -9.81},
		LinearDamping:           0.85,
		AngularDamping:          0.85,
		InactiveLinearVelocity:  0.1,
		InactiveAngularVelocity: 0.1,
		DeactivationTime:        2,
		AllowDeactivation:       true,
		ContactIterations:       10,
		SmallIterations:         4,
		SpeculativeContacts:     true,
		ThreadMultiplier:        1,
		Contact:                 DefaultContactSettings(),
	}
}

// Validate checks every range the World setters enforce.
func (c Config) Validate() error {
	if err := checkDamping(c.AngularDamping, c.LinearDamping); err != nil {
		return err
	}
	if err := checkThresholds(c.InactiveAngularVelocity, c.InactiveLinearVelocity, c.DeactivationTime); err != nil {
		return err
	}
	if err := checkIterations(c.ContactIterations, c.SmallIterations); err != nil {
		return err
	}
	if c.ThreadMultiplier < 0 {
		return fmt.Errorf("thread multiplier %d: %w", c.ThreadMultiplier, ErrIterationRange)
	}
	s := c.Contact
	if s.BreakThreshold <= 0 || s.AllowedPenetration < 0 || s.BiasFactor < 0 || s.MaximumBias < 0 || s.MinVelocity < 0 {
		return fmt.Errorf("contact settings %+v: %w", s, ErrThresholdRange)
	}
	return nil
}

func checkDamping(angular, linear float32) error {
	if angular < 0 || angular > 1 || linear < 0 || linear > 1 {
		return fmt.Errorf("angular %v, linear %v: %w", angular, linear, ErrDampingRange)
	}
	return nil
}

func checkThresholds(angular, linear, time float32) error {
	if angular < 0 || linear < 0 || time < 0 || math32.IsNaN(angular+linear+time) {
		return fmt.Errorf("angular %v, linear %v, time %v: %w", angular, linear, time, ErrThresholdRange)
	}
	return nil
}

func checkIterations(iterations, small int) error {
	if iterations < 1 || small < 1 {
		return fmt.Errorf("iterations %d, small %d: %w", iterations, small, ErrIterationRange)
	}
	return nil
}
