package physics

import (
	"errors"
	"fmt"
	"log"
	"rigid3d/internal/collision"
	"rigid3d/internal/shape"
	"rigid3d/internal/tasks"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"
)

// World owns bodies, constraints and soft bodies and advances them in time.
// A World is not safe for concurrent use; Step fans work out to its own
// scheduler and returns once everything has finished.
type World struct {
	Gravity rl.Vector3
	Events  Events

	linearDamping     float32
	angularDamping    float32
	inactiveLinearSq  float32
	inactiveAngularSq float32
	deactivationTime  float32
	allowDeactivation bool
	contactIterations int
	smallIterations   int
	speculative       bool
	contactSettings   ContactSettings

	collision collision.System
	gpu       *collision.GPU
	narrow    shape.Narrowphase
	scheduler *tasks.Scheduler

	bodies      orderedSet[*Body]
	constraints orderedSet[Constraint]
	softBodies  orderedSet[*SoftBody]
	arbiterMap  *ArbiterMap
	islands     *IslandManager

	arbiterPool *Pool[Arbiter]
	contactPool *Pool[Contact]

	// Arbiters wait here between detection and island bookkeeping
	addedArbiters   []*Arbiter
	removedArbiters []*Arbiter

	timestep          float32
	linearDampFactor  float32
	angularDampFactor float32
	accumulatedTime   float32
	stepping          bool

	debugTimes    [DebugTypeCount]time.Duration
	solveTask     tasks.Func
	integrateTask tasks.Func
}

// NewWorld validates cfg and builds a world with the selected broadphase.
// A GPU broadphase that cannot start falls back to sweep and prune.
func NewWorld(cfg Config) (*World, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	w := &World{
		Gravity:           cfg.Gravity,
		linearDamping:     cfg.LinearDamping,
		angularDamping:    cfg.AngularDamping,
		inactiveLinearSq:  cfg.InactiveLinearVelocity * cfg.InactiveLinearVelocity,
		inactiveAngularSq: cfg.InactiveAngularVelocity * cfg.InactiveAngularVelocity,
		deactivationTime:  cfg.DeactivationTime,
		allowDeactivation: cfg.AllowDeactivation,
		contactIterations: cfg.ContactIterations,
		smallIterations:   cfg.SmallIterations,
		speculative:       cfg.SpeculativeContacts,
		contactSettings:   cfg.Contact,
		narrow:            shape.Default{},
		arbiterMap:        NewArbiterMap(),
		islands:           NewIslandManager(),
		arbiterPool:       NewPool(resetArbiter),
		contactPool:       NewPool(resetContact),
	}

	if cfg.ThreadMultiplier > 0 {
		w.scheduler = tasks.New(cfg.ThreadMultiplier)
		log.Printf("Physics: scheduler started with %d threads", w.scheduler.Threads())
	}
	w.solveTask = func(arg any) { w.solveIsland(arg.(*Island)) }
	w.integrateTask = func(arg any) { w.integrateBody(arg.(*Body)) }

	opts := collision.Options{
		Narrowphase: w.narrow,
		Scheduler:   w.scheduler,
		Speculative: cfg.SpeculativeContacts,
	}
	switch cfg.CollisionSystem {
	case CollisionBrute:
		w.collision = collision.NewBrute(opts)
	case CollisionPersistentSAP:
		w.collision = collision.NewPersistentSAP(opts)
	case CollisionGPU:
		g, err := collision.NewGPU(opts, cfg.GPUMaxObjects)
		if err != nil {
			log.Printf("Physics: GPU broad-phase unavailable (%v), using SAP", err)
			w.collision = collision.NewSAP(opts)
			break
		}
		log.Printf("Physics: GPU broad-phase ready (%d objects max)", cfg.GPUMaxObjects)
		w.gpu = g
		w.collision = g
	default:
		w.collision = collision.NewSAP(opts)
	}
	w.collision.SetDetectHandler(w.collisionDetected)

	return w, nil
}

// Close stops the scheduler and frees GPU resources.
func (w *World) Close() {
	if w.scheduler != nil {
		w.scheduler.Close()
		w.scheduler = nil
	}
	if w.gpu != nil {
		w.gpu.Release()
		w.gpu = nil
	}
}

// Bodies returns every body, including soft body points. The slice is owned
// by the world.
func (w *World) Bodies() []*Body { return w.bodies.items }

func (w *World) Constraints() []Constraint { return w.constraints.items }

func (w *World) SoftBodies() []*SoftBody { return w.softBodies.items }

func (w *World) Arbiters() *ArbiterMap { return w.arbiterMap }

func (w *World) Islands() *IslandManager { return w.islands }

func (w *World) CollisionSystem() collision.System { return w.collision }

// Scheduler returns nil when the world runs single threaded.
func (w *World) Scheduler() *tasks.Scheduler { return w.scheduler }

// ContactSettings may be edited between steps.
func (w *World) ContactSettings() *ContactSettings { return &w.contactSettings }

// SetDampingFactors sets the fraction of velocity kept per second.
func (w *World) SetDampingFactors(angular, linear float32) error {
	if err := checkDamping(angular, linear); err != nil {
		return err
	}
	w.angularDamping, w.linearDamping = angular, linear
	return nil
}

func (w *World) DampingFactors() (angular, linear float32) {
	return w.angularDamping, w.linearDamping
}

// SetInactivityThreshold sets the velocities below which a body counts as
// resting, and how long it must rest before it may sleep.
func (w *World) SetInactivityThreshold(angularVelocity, linearVelocity, time float32) error {
	if err := checkThresholds(angularVelocity, linearVelocity, time); err != nil {
		return err
	}
	w.inactiveAngularSq = angularVelocity * angularVelocity
	w.inactiveLinearSq = linearVelocity * linearVelocity
	w.deactivationTime = time
	return nil
}

// SetIterations sets the solver passes for islands with more than three
// members and for smaller ones.
func (w *World) SetIterations(iterations, smallIterations int) error {
	if err := checkIterations(iterations, smallIterations); err != nil {
		return err
	}
	w.contactIterations, w.smallIterations = iterations, smallIterations
	return nil
}

func (w *World) Iterations() (iterations, smallIterations int) {
	return w.contactIterations, w.smallIterations
}

func (w *World) SetAllowDeactivation(allow bool) { w.allowDeactivation = allow }

func (w *World) AllowDeactivation() bool { return w.allowDeactivation }

func (w *World) SetSpeculativeContacts(enabled bool) {
	w.speculative = enabled
	w.collision.SetSpeculativeContacts(enabled)
}

func (w *World) SpeculativeContacts() bool { return w.speculative }

// AddBody adds a rigid body. Soft body points are added with their soft body.
func (w *World) AddBody(b *Body) error {
	if b == nil {
		return ErrNilBody
	}
	if w.stepping {
		return ErrStepping
	}
	if b.softBody != nil {
		return fmt.Errorf("add %v: %w", b, ErrParticleBody)
	}
	if b.world != nil {
		return fmt.Errorf("add %v: %w", b, ErrDuplicateBody)
	}
	if err := w.collision.Add(b); err != nil {
		return fmt.Errorf("add %v: %w", b, err)
	}

	w.addBody(b)
	w.Events.BodyAdded.Invoke(b)
	return nil
}

func (w *World) addBody(b *Body) {
	b.world = w
	b.update()
	w.bodies.add(b)
	w.islands.AddBody(b)
}

// RemoveBody detaches the body's arbiters and constraints, then removes it
// from its island and the broadphase.
func (w *World) RemoveBody(b *Body) error {
	if b == nil {
		return ErrNilBody
	}
	if w.stepping {
		return ErrStepping
	}
	if b.softBody != nil {
		return fmt.Errorf("remove %v: %w", b, ErrParticleBody)
	}
	if b.world != w {
		return fmt.Errorf("remove %v: %w", b, ErrBodyNotFound)
	}

	w.collision.Remove(b)
	w.removeBody(b)
	w.Events.BodyRemoved.Invoke(b)
	return nil
}

func (w *World) removeBody(b *Body) {
	for len(b.arbiters) > 0 {
		w.destroyArbiter(b.arbiters[len(b.arbiters)-1])
	}
	for len(b.constraints) > 0 {
		w.removeConstraint(b.constraints[len(b.constraints)-1], true)
	}
	w.islands.RemoveBody(b)
	w.bodies.remove(b)
	b.world = nil
}

// destroyArbiter ends a collision outside of a step.
func (w *World) destroyArbiter(a *Arbiter) {
	w.arbiterMap.remove(a)
	w.islands.ArbiterRemoved(a)
	w.Events.BodiesEndCollide.Invoke(a.body1, a.body2)
	a.releaseContacts(w.contactPool)
	w.arbiterPool.Release(a)
}

func (w *World) AddConstraint(c Constraint) error {
	if c == nil {
		return ErrNilConstraint
	}
	if w.stepping {
		return ErrStepping
	}
	if w.constraints.contains(c) {
		return fmt.Errorf("add %T: %w", c, ErrDuplicateConstraint)
	}
	b1, b2 := c.Body1(), c.Body2()
	if b1 == nil {
		return fmt.Errorf("add %T: %w", c, ErrNilBody)
	}
	if b1.world != w || (b2 != nil && b2.world != w) {
		return fmt.Errorf("add %T: %w", c, ErrBodyNotFound)
	}

	w.addConstraint(c)
	w.Events.ConstraintAdded.Invoke(c)
	return nil
}

func (w *World) addConstraint(c Constraint) {
	w.constraints.add(c)
	w.islands.ConstraintCreated(c)
}

func (w *World) RemoveConstraint(c Constraint) error {
	if c == nil {
		return ErrNilConstraint
	}
	if w.stepping {
		return ErrStepping
	}
	if !w.constraints.contains(c) {
		return fmt.Errorf("remove %T: %w", c, ErrConstraintNotFound)
	}
	w.removeConstraint(c, true)
	return nil
}

func (w *World) removeConstraint(c Constraint, notify bool) {
	w.constraints.remove(c)
	w.islands.ConstraintRemoved(c)
	if notify {
		w.Events.ConstraintRemoved.Invoke(c)
	}
}

// AddSoftBody adds the soft body, its points and its springs.
func (w *World) AddSoftBody(sb *SoftBody) error {
	if sb == nil {
		return ErrNilSoftBody
	}
	if w.stepping {
		return ErrStepping
	}
	if sb.world != nil {
		return fmt.Errorf("add soft body: %w", ErrDuplicateSoftBody)
	}
	if err := w.collision.Add(sb); err != nil {
		return fmt.Errorf("add soft body: %w", err)
	}

	sb.world = w
	for _, p := range sb.points {
		w.addBody(p)
	}
	for _, s := range sb.springs {
		w.addConstraint(s)
	}
	sb.updateBoundingBox()
	w.softBodies.add(sb)
	w.Events.SoftBodyAdded.Invoke(sb)
	return nil
}

func (w *World) RemoveSoftBody(sb *SoftBody) error {
	if sb == nil {
		return ErrNilSoftBody
	}
	if w.stepping {
		return ErrStepping
	}
	if sb.world != w {
		return fmt.Errorf("remove soft body: %w", ErrBodyNotFound)
	}

	for _, s := range sb.springs {
		w.removeConstraint(s, false)
	}
	for _, p := range sb.points {
		w.removeBody(p)
	}
	w.collision.Remove(sb)
	w.softBodies.remove(sb)
	sb.world = nil
	w.Events.SoftBodyRemoved.Invoke(sb)
	return nil
}

// Clear removes everything, raising the usual removal events, and drops
// pooled objects.
func (w *World) Clear() error {
	if w.stepping {
		return ErrStepping
	}

	// A failed removal stops its loop; the rest are still attempted.
	var errs []error
	for w.softBodies.len() > 0 {
		if err := w.RemoveSoftBody(w.softBodies.items[w.softBodies.len()-1]); err != nil {
			errs = append(errs, err)
			break
		}
	}
	for w.bodies.len() > 0 {
		if err := w.RemoveBody(w.bodies.items[w.bodies.len()-1]); err != nil {
			errs = append(errs, err)
			break
		}
	}
	for w.constraints.len() > 0 {
		if err := w.RemoveConstraint(w.constraints.items[w.constraints.len()-1]); err != nil {
			errs = append(errs, err)
			break
		}
	}

	w.arbiterMap.clear()
	w.islands.RemoveAll()
	w.collision.Clear()
	w.arbiterPool.Reset()
	w.contactPool.Reset()
	clear(w.addedArbiters)
	w.addedArbiters = w.addedArbiters[:0]
	clear(w.removedArbiters)
	w.removedArbiters = w.removedArbiters[:0]
	w.accumulatedTime = 0

	if err := errors.Join(errs...); err != nil {
		log.Printf("Physics: clear: %v", err)
		return err
	}
	log.Printf("Physics: world cleared")
	return nil
}
