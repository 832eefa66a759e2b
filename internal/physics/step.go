package physics

import (
	"fmt"
	"time"

	"github.com/chewxy/math32"
	rl "github.com/gen2brain/raylib-go/raylib"
)

// Step advances the world by dt seconds. With parallel set and a scheduler
// available, detection, solving and integration run on the worker pool.
// A zero dt does nothing.
func (w *World) Step(dt float32, parallel bool) error {
	if dt < 0 || math32.IsNaN(dt) {
		return fmt.Errorf("step %v: %w", dt, ErrNegativeTimestep)
	}
	if dt == 0 {
		return nil
	}
	if w.stepping {
		return ErrStepping
	}
	w.stepping = true
	defer func() { w.stepping = false }()

	parallel = parallel && w.scheduler != nil
	w.timestep = dt
	w.angularDampFactor = math32.Pow(w.angularDamping, dt)
	w.linearDampFactor = math32.Pow(w.linearDamping, dt)

	start := time.Now()

	w.preStep(dt)
	w.lap(DebugPreStep, &start)

	w.updateContacts()
	w.lap(DebugUpdateContacts, &start)

	w.updateSoftBodies(dt)
	w.lap(DebugUpdateSoftBodies, &start)

	w.collision.Detect(parallel)
	w.lap(DebugCollisionDetect, &start)

	w.applyIslandChanges()
	w.lap(DebugBuildIslands, &start)

	w.checkDeactivation()
	w.lap(DebugDeactivationCheck, &start)

	w.integrateForces()
	w.lap(DebugIntegrateForces, &start)

	w.handleArbiters(parallel)
	w.lap(DebugHandleArbiter, &start)

	w.integrate(parallel)
	w.lap(DebugIntegrate, &start)

	w.postStep(dt)
	w.lap(DebugPostStep, &start)

	return nil
}

// StepFixed adds total to the time accumulator and runs fixed steps of
// fixedDt while a full step is pending, at most maxSteps times. Time beyond
// the cap is dropped. It returns the number of steps taken.
func (w *World) StepFixed(total float32, parallel bool, fixedDt float32, maxSteps int) (int, error) {
	if total < 0 || fixedDt <= 0 {
		return 0, fmt.Errorf("step %v by %v: %w", total, fixedDt, ErrNegativeTimestep)
	}
	if maxSteps < 1 {
		return 0, fmt.Errorf("max steps %d: %w", maxSteps, ErrIterationRange)
	}

	w.accumulatedTime += total
	steps := 0
	for w.accumulatedTime > fixedDt {
		if err := w.Step(fixedDt, parallel); err != nil {
			return steps, err
		}
		w.accumulatedTime -= fixedDt
		steps++

		if steps == maxSteps {
			if w.accumulatedTime > fixedDt {
				w.accumulatedTime = 0
			}
			break
		}
	}
	return steps, nil
}

func (w *World) lap(stage DebugType, start *time.Time) {
	now := time.Now()
	w.debugTimes[stage] = now.Sub(*start)
	*start = now
}

func (w *World) preStep(dt float32) {
	for _, b := range w.bodies.items {
		if b.PreStepHook != nil {
			b.PreStepHook(b, dt)
		}
	}
	w.Events.PreStep.Invoke(dt)
}

func (w *World) postStep(dt float32) {
	for _, b := range w.bodies.items {
		if b.PostStepHook != nil {
			b.PostStepHook(b, dt)
		}
	}
	w.Events.PostStep.Invoke(dt)
}

// updateContacts refreshes every manifold. Arbiters that were already empty
// are taken out of the map; islands learn about them later.
func (w *World) updateContacts() {
	for _, a := range w.arbiterMap.list {
		if len(a.contacts) == 0 {
			w.removedArbiters = append(w.removedArbiters, a)
			continue
		}
		a.update(&w.contactSettings, w.contactPool)
	}

	for _, a := range w.removedArbiters {
		w.arbiterMap.remove(a)
		w.Events.BodiesEndCollide.Invoke(a.body1, a.body2)
	}
}

func (w *World) updateSoftBodies(dt float32) {
	for _, sb := range w.softBodies.items {
		sb.Update(dt)
		sb.selfCollide(w.narrow, w.bodiesCollided)
	}
}

// applyIslandChanges hands queued arbiters to the island manager, removals
// first, and splits islands that lost connections.
func (w *World) applyIslandChanges() {
	for i, a := range w.removedArbiters {
		w.islands.ArbiterRemoved(a)
		a.releaseContacts(w.contactPool)
		w.arbiterPool.Release(a)
		w.removedArbiters[i] = nil
	}
	w.removedArbiters = w.removedArbiters[:0]

	for i, a := range w.addedArbiters {
		w.islands.ArbiterCreated(a)
		w.addedArbiters[i] = nil
	}
	w.addedArbiters = w.addedArbiters[:0]

	w.islands.Rebuild()
}

// checkDeactivation puts an island to sleep when every member has rested
// long enough, and wakes all of it otherwise.
func (w *World) checkDeactivation() {
	for _, isl := range w.islands.Islands() {
		deactivate := w.allowDeactivation
		if deactivate {
			for _, b := range isl.bodies.items {
				lin := rl.Vector3DotProduct(b.linearVelocity, b.linearVelocity)
				ang := rl.Vector3DotProduct(b.angularVelocity, b.angularVelocity)
				if b.AllowDeactivation && lin < w.inactiveLinearSq && ang < w.inactiveAngularSq {
					b.inactiveTime += w.timestep
					if b.inactiveTime < w.deactivationTime {
						deactivate = false
					}
				} else {
					b.inactiveTime = 0
					deactivate = false
				}
			}
		}

		for _, b := range isl.bodies.items {
			switch {
			case deactivate && b.active:
				b.SetActive(false)
				w.Events.BodyDeactivated.Invoke(b)
			case !deactivate && !b.active:
				b.SetActive(true)
				w.Events.BodyActivated.Invoke(b)
			}
		}
	}
}

func (w *World) integrateForces() {
	dt := w.timestep
	for _, b := range w.bodies.items {
		if !b.static && b.active {
			b.linearVelocity = rl.Vector3Add(b.linearVelocity, rl.Vector3Scale(b.force, b.inverseMass*dt))
			if !b.IsParticle {
				dw := mulInertia(b.invInertiaWorld, rl.Vector3Scale(b.torque, dt))
				b.angularVelocity = rl.Vector3Add(b.angularVelocity, dw)
			}
			if b.AffectedByGravity {
				b.linearVelocity = rl.Vector3Add(b.linearVelocity, rl.Vector3Scale(w.Gravity, dt))
			}
		}
		b.force = rl.Vector3{}
		b.torque = rl.Vector3{}
	}
}

// handleArbiters solves each awake island. Islands share no dynamic bodies,
// so they can be solved on different workers.
func (w *World) handleArbiters(parallel bool) {
	for _, isl := range w.islands.Islands() {
		if !isl.IsActive() {
			continue
		}
		if parallel {
			w.scheduler.Submit(w.solveTask, isl)
		} else {
			w.solveIsland(isl)
		}
	}
	if parallel {
		w.scheduler.RunAll()
	}
}

// solveIsland runs one prepare pass and then the iterate passes.
func (w *World) solveIsland(isl *Island) {
	iterations := w.smallIterations
	if isl.Size() > 3 {
		iterations = w.contactIterations
	}
	dt := w.timestep

	for i := -1; i < iterations; i++ {
		for _, a := range isl.arbiters.items {
			for _, c := range a.contacts {
				if i == -1 {
					c.prepareForIteration(dt)
				} else {
					c.iterate()
				}
			}
		}

		for _, c := range isl.constraints.items {
			b1, b2 := c.Body1(), c.Body2()
			if !b1.active && (b2 == nil || !b2.active) {
				continue
			}
			if i == -1 {
				c.PrepareForIteration(dt)
			} else {
				c.Iterate()
			}
		}
	}
}

func (w *World) integrate(parallel bool) {
	for _, b := range w.bodies.items {
		if b.static || !b.active {
			continue
		}
		if parallel {
			w.scheduler.Submit(w.integrateTask, b)
		} else {
			w.integrateBody(b)
		}
	}
	if parallel {
		w.scheduler.RunAll()
	}
	for _, sb := range w.softBodies.items {
		sb.updateBoundingBox()
	}
}

func (w *World) integrateBody(b *Body) {
	dt := w.timestep
	b.position = rl.Vector3Add(b.position, rl.Vector3Scale(b.linearVelocity, dt))

	if !b.IsParticle {
		// Exponential map; the Taylor series avoids dividing by a tiny angle
		angle := rl.Vector3Length(b.angularVelocity)
		var axis rl.Vector3
		if angle < 0.001 {
			axis = rl.Vector3Scale(b.angularVelocity, 0.5*dt-dt*dt*dt*0.020833333333*angle*angle)
		} else {
			axis = rl.Vector3Scale(b.angularVelocity, math32.Sin(0.5*angle*dt)/angle)
		}
		dq := rl.Quaternion{X: axis.X, Y: axis.Y, Z: axis.Z, W: math32.Cos(angle * dt * 0.5)}
		b.orientation = rl.QuaternionNormalize(rl.QuaternionMultiply(dq, b.orientation))
	}

	if b.Damping&DampLinear != 0 {
		b.linearVelocity = rl.Vector3Scale(b.linearVelocity, w.linearDampFactor)
	}
	if b.Damping&DampAngular != 0 {
		b.angularVelocity = rl.Vector3Scale(b.angularVelocity, w.angularDampFactor)
	}

	b.update()
	if w.speculative || b.speculative {
		b.sweptExpand(dt)
	}
}
