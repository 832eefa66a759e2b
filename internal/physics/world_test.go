package physics

import (
	"errors"
	"fmt"
	"rigid3d/internal/shape"
	"slices"
	"testing"

	rl "github.com/gen2brain/raylib-go/raylib"
)

func newTestWorld(t *testing.T, mutate func(*Config)) *World {
	t.Helper()
	cfg := DefaultConfig()
	cfg.ThreadMultiplier = 0
	cfg.SpeculativeContacts = false
	if mutate != nil {
		mutate(&cfg)
	}
	w, err := NewWorld(cfg)
	if err != nil {
		t.Fatalf("NewWorld failed: %v", err)
	}
	t.Cleanup(w.Close)
	return w
}

func sphereBody(name string, radius, mass float32, pos rl.Vector3) *Body {
	b := NewBody(shape.NewSphere(radius), mass)
	b.SetPosition(pos)
	b.Tag = name
	return b
}

func groundBody() *Body {
	b := NewBody(shape.NewBox(rl.Vector3{X: 20, Y: 1, Z: 20}), 0)
	b.SetPosition(rl.Vector3{Y: -0.5})
	b.Tag = "ground"
	return b
}

func mustAdd(t *testing.T, w *World, bodies ...*Body) {
	t.Helper()
	for _, b := range bodies {
		if err := w.AddBody(b); err != nil {
			t.Fatalf("AddBody failed: %v", err)
		}
	}
}

func mustStep(t *testing.T, w *World, dt float32, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		if err := w.Step(dt, false); err != nil {
			t.Fatalf("Step failed: %v", err)
		}
	}
}

func near(a, b, tol float32) bool {
	d := a - b
	return d <= tol && d >= -tol
}

func TestNewWorldRejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LinearDamping = 2
	if _, err := NewWorld(cfg); !errors.Is(err, ErrDampingRange) {
		t.Errorf("Expected ErrDampingRange, got %v", err)
	}
}

func TestAddBodyErrors(t *testing.T) {
	w := newTestWorld(t, nil)
	b := sphereBody("a", 0.5, 1, rl.Vector3{})
	mustAdd(t, w, b)

	if err := w.AddBody(b); !errors.Is(err, ErrDuplicateBody) {
		t.Errorf("Expected ErrDuplicateBody, got %v", err)
	}
	if err := w.AddBody(nil); !errors.Is(err, ErrNilBody) {
		t.Errorf("Expected ErrNilBody, got %v", err)
	}
	if len(w.Bodies()) != 1 || w.Bodies()[0] != b {
		t.Errorf("Expected the body exactly once, got %v", w.Bodies())
	}
	if w.CollisionSystem().Len() != 1 {
		t.Errorf("Expected 1 broadphase entity, got %d", w.CollisionSystem().Len())
	}

	other := newTestWorld(t, nil)
	if err := other.AddBody(b); !errors.Is(err, ErrDuplicateBody) {
		t.Errorf("Expected ErrDuplicateBody from a second world, got %v", err)
	}
	if err := other.RemoveBody(b); !errors.Is(err, ErrBodyNotFound) {
		t.Errorf("Expected ErrBodyNotFound, got %v", err)
	}
}

func TestStepZeroAndNegative(t *testing.T) {
	w := newTestWorld(t, nil)
	b := sphereBody("a", 0.5, 1, rl.Vector3{Y: 3})
	b.SetLinearVelocity(rl.Vector3{X: 1, Y: 2, Z: 3})
	b.SetAngularVelocity(rl.Vector3{X: 0.5})
	mustAdd(t, w, b)

	pos, ori := b.Position(), b.Orientation()
	lin, ang := b.LinearVelocity(), b.AngularVelocity()

	if err := w.Step(0, false); err != nil {
		t.Fatalf("Step(0) failed: %v", err)
	}
	if b.Position() != pos || b.Orientation() != ori || b.LinearVelocity() != lin || b.AngularVelocity() != ang {
		t.Error("Expected Step(0) to leave the body unchanged")
	}

	if err := w.Step(-0.01, false); !errors.Is(err, ErrNegativeTimestep) {
		t.Errorf("Expected ErrNegativeTimestep, got %v", err)
	}
	if b.Position() != pos {
		t.Error("Expected a rejected step to leave the body unchanged")
	}
}

func TestFreeFall(t *testing.T) {
	w := newTestWorld(t, func(c *Config) { c.AllowDeactivation = false })
	b := sphereBody("a", 0.5, 1, rl.Vector3{Y: 100})
	b.Damping = DampNone
	mustAdd(t, w, b)

	const n = 50
	const dt = float32(0.01)
	gravity := rl.Vector3{Y: -9.81}

	var v rl.Vector3
	p := b.Position()
	for i := 0; i < n; i++ {
		v = rl.Vector3Add(v, rl.Vector3Scale(gravity, dt))
		p = rl.Vector3Add(p, rl.Vector3Scale(v, dt))
	}

	mustStep(t, w, dt, n)

	want := float32(n) * dt * gravity.Y
	if got := b.LinearVelocity().Y; !near(got, want, 1e-3) {
		t.Errorf("Expected velocity %f, got %f", want, got)
	}
	if got := b.Position().Y; !near(got, p.Y, 1e-3) {
		t.Errorf("Expected position %f, got %f", p.Y, got)
	}
	if b.LinearVelocity().X != 0 || b.LinearVelocity().Z != 0 {
		t.Errorf("Expected no horizontal velocity, got %v", b.LinearVelocity())
	}
}

func TestForcesConsumedOnce(t *testing.T) {
	w := newTestWorld(t, nil)
	w.Gravity = rl.Vector3{}
	b := sphereBody("a", 0.5, 2, rl.Vector3{})
	b.Damping = DampNone
	mustAdd(t, w, b)

	b.AddForce(rl.Vector3{X: 10})
	mustStep(t, w, 0.1, 1)
	if got := b.LinearVelocity().X; !near(got, 0.5, 1e-5) {
		t.Errorf("Expected velocity 0.5 after one step, got %f", got)
	}
	if b.Force() != (rl.Vector3{}) {
		t.Errorf("Expected force cleared, got %v", b.Force())
	}

	mustStep(t, w, 0.1, 1)
	if got := b.LinearVelocity().X; !near(got, 0.5, 1e-5) {
		t.Errorf("Expected velocity to stay 0.5, got %f", got)
	}
}

type collisionLog struct {
	events []string
}

func (l *collisionLog) watch(w *World) {
	w.Events.BodiesBeginCollide.AddListener(func(a, b *Body) {
		l.events = append(l.events, "begin "+pairName(a, b))
	})
	w.Events.BodiesEndCollide.AddListener(func(a, b *Body) {
		l.events = append(l.events, "end "+pairName(a, b))
	})
}

func pairName(a, b *Body) string {
	na, nb := fmt.Sprint(a.Tag), fmt.Sprint(b.Tag)
	if na > nb {
		na, nb = nb, na
	}
	return na + "|" + nb
}

func TestSeparatedBodiesNeverCollide(t *testing.T) {
	w := newTestWorld(t, nil)
	w.Gravity = rl.Vector3{}
	var log collisionLog
	log.watch(w)

	a := sphereBody("a", 0.5, 1, rl.Vector3{})
	b := sphereBody("b", 0.5, 1, rl.Vector3{X: 3})
	a.SetLinearVelocity(rl.Vector3{Z: 1})
	mustAdd(t, w, a, b)
	mustStep(t, w, 0.01, 50)

	if len(log.events) != 0 {
		t.Errorf("Expected no collision events, got %v", log.events)
	}
	if w.Arbiters().Len() != 0 {
		t.Errorf("Expected no arbiters, got %d", w.Arbiters().Len())
	}
}

func TestBeginThenEndCollide(t *testing.T) {
	w := newTestWorld(t, nil)
	w.Gravity = rl.Vector3{}
	var log collisionLog
	log.watch(w)
	contacts := 0
	w.Events.ContactCreated.AddListener(func(*Contact) { contacts++ })

	a := sphereBody("a", 0.5, 0, rl.Vector3{})
	b := sphereBody("b", 0.5, 1, rl.Vector3{X: 0.9})
	b.Damping = DampNone
	b.SetLinearVelocity(rl.Vector3{X: 5})
	mustAdd(t, w, a, b)
	mustStep(t, w, 0.01, 20)

	want := []string{"begin a|b", "end a|b"}
	if !slices.Equal(log.events, want) {
		t.Errorf("Expected %v, got %v", want, log.events)
	}
	if contacts == 0 {
		t.Error("Expected at least one contact created")
	}
	if w.Arbiters().Len() != 0 {
		t.Errorf("Expected arbiter removed after separation, got %d", w.Arbiters().Len())
	}
}

func TestRestingOnGround(t *testing.T) {
	w := newTestWorld(t, nil)
	ball := sphereBody("ball", 0.5, 1, rl.Vector3{Y: 0.6})
	mustAdd(t, w, groundBody(), ball)
	mustStep(t, w, 0.01, 200)

	if y := ball.Position().Y; y < 0.4 || y > 0.62 {
		t.Errorf("Expected ball to rest near y=0.5, got %f", y)
	}
	if w.Arbiters().Len() != 1 {
		t.Errorf("Expected 1 arbiter, got %d", w.Arbiters().Len())
	}
}

func TestRemoveBodyDetaches(t *testing.T) {
	w := newTestWorld(t, nil)
	var log collisionLog
	log.watch(w)
	removed := 0
	w.Events.BodyRemoved.AddListener(func(*Body) { removed++ })

	ground := groundBody()
	a := sphereBody("a", 0.5, 1, rl.Vector3{Y: 0.45})
	b := sphereBody("b", 0.5, 1, rl.Vector3{X: 0.9, Y: 0.45})
	mustAdd(t, w, ground, a, b)
	mustStep(t, w, 0.01, 2)

	isl := a.Island()
	if isl == nil || isl != b.Island() {
		t.Fatal("Expected touching bodies to share an island")
	}
	if len(a.Arbiters()) == 0 {
		t.Fatal("Expected arbiters before removal")
	}

	log.events = nil
	if err := w.RemoveBody(a); err != nil {
		t.Fatalf("RemoveBody failed: %v", err)
	}

	if len(a.Arbiters()) != 0 {
		t.Errorf("Expected no arbiters on removed body, got %d", len(a.Arbiters()))
	}
	if a.Island() != nil || slices.Contains(b.Island().Bodies(), a) {
		t.Error("Expected removed body to leave its island")
	}
	for _, arb := range w.Arbiters().Arbiters() {
		if arb.Body1() == a || arb.Body2() == a {
			t.Error("Expected no arbiter referencing the removed body")
		}
	}
	if !slices.Contains(log.events, "end a|ground") || !slices.Contains(log.events, "end a|b") {
		t.Errorf("Expected end events for a, got %v", log.events)
	}
	if removed != 1 {
		t.Errorf("Expected 1 BodyRemoved event, got %d", removed)
	}
	if err := w.RemoveBody(a); !errors.Is(err, ErrBodyNotFound) {
		t.Errorf("Expected ErrBodyNotFound, got %v", err)
	}

	// A fresh body in the same place starts from scratch
	log.events = nil
	fresh := sphereBody("a", 0.5, 1, rl.Vector3{Y: 0.45})
	created := 0
	w.Events.ContactCreated.AddListener(func(c *Contact) {
		if c.Body1() == fresh || c.Body2() == fresh {
			created++
			if c.AccumulatedNormalImpulse() != 0 {
				t.Errorf("Expected a fresh contact, got impulse %f", c.AccumulatedNormalImpulse())
			}
		}
	})
	mustAdd(t, w, fresh)
	mustStep(t, w, 0.01, 1)

	for _, e := range log.events {
		if e[:3] == "end" {
			t.Errorf("Expected no end events after re-adding, got %v", log.events)
		}
	}
	if created == 0 {
		t.Error("Expected new contacts for the fresh body")
	}
}

func TestIslandSleepsTogether(t *testing.T) {
	w := newTestWorld(t, func(c *Config) { c.DeactivationTime = 0.5 })
	w.Gravity = rl.Vector3{}

	a := sphereBody("a", 0.5, 1, rl.Vector3{})
	b := sphereBody("b", 0.5, 1, rl.Vector3{X: 3})
	mustAdd(t, w, a, b)
	if err := w.AddConstraint(NewSpring(a, b)); err != nil {
		t.Fatalf("AddConstraint failed: %v", err)
	}

	deactivated := map[*Body]int{}
	var stepOf []int
	step := 0
	w.Events.BodyDeactivated.AddListener(func(b *Body) {
		deactivated[b]++
		stepOf = append(stepOf, step)
	})

	for step = 0; step < 20; step++ {
		if err := w.Step(0.1, false); err != nil {
			t.Fatal(err)
		}
	}

	if deactivated[a] != 1 || deactivated[b] != 1 {
		t.Errorf("Expected one deactivation per member, got %v", deactivated)
	}
	if len(stepOf) == 2 && stepOf[0] != stepOf[1] {
		t.Errorf("Expected both members to sleep in the same step, got %v", stepOf)
	}
	if a.IsActive() || b.IsActive() {
		t.Error("Expected both bodies asleep")
	}

	activated := 0
	w.Events.BodyActivated.AddListener(func(*Body) { activated++ })
	a.SetActive(true)
	mustStep(t, w, 0.1, 1)
	if !b.IsActive() || activated != 1 {
		t.Errorf("Expected waking a to wake b once, active=%v events=%d", b.IsActive(), activated)
	}
}

func TestMovingMemberKeepsIslandAwake(t *testing.T) {
	w := newTestWorld(t, func(c *Config) { c.DeactivationTime = 0.5 })
	w.Gravity = rl.Vector3{}

	a := sphereBody("a", 0.5, 1, rl.Vector3{})
	b := sphereBody("b", 0.5, 1, rl.Vector3{X: 3})
	b.Damping = DampNone
	b.SetLinearVelocity(rl.Vector3{X: 1})
	mustAdd(t, w, a, b)

	spring := NewSpring(a, b)
	spring.Behavior = LimitMinimumDistance
	if err := w.AddConstraint(spring); err != nil {
		t.Fatalf("AddConstraint failed: %v", err)
	}

	events := 0
	w.Events.BodyDeactivated.AddListener(func(*Body) { events++ })
	mustStep(t, w, 0.1, 20)

	if events != 0 || !a.IsActive() {
		t.Errorf("Expected the island to stay awake, got %d deactivations", events)
	}
}

func TestDeactivationDisabled(t *testing.T) {
	w := newTestWorld(t, func(c *Config) {
		c.DeactivationTime = 0.1
		c.AllowDeactivation = false
	})
	w.Gravity = rl.Vector3{}
	a := sphereBody("a", 0.5, 1, rl.Vector3{})
	mustAdd(t, w, a)
	mustStep(t, w, 0.1, 10)

	if !a.IsActive() {
		t.Error("Expected body to stay awake with deactivation disabled")
	}
}

func stackScene(t *testing.T, w *World) {
	t.Helper()
	mustAdd(t, w, groundBody())
	for x := 0; x < 3; x++ {
		for z := 0; z < 3; z++ {
			for y := 0; y < 2; y++ {
				pos := rl.Vector3{X: float32(x) * 0.9, Y: 0.5 + float32(y)*1.05, Z: float32(z) * 1.5}
				mustAdd(t, w, sphereBody(fmt.Sprintf("s%d%d%d", x, y, z), 0.5, 1, pos))
			}
		}
	}
}

func TestParallelMatchesSingleThreaded(t *testing.T) {
	seq := newTestWorld(t, nil)
	par := newTestWorld(t, func(c *Config) { c.ThreadMultiplier = 1 })
	stackScene(t, seq)
	stackScene(t, par)

	record := func(w *World) *[]string {
		var pairs []string
		w.Events.BodiesBeginCollide.AddListener(func(a, b *Body) { pairs = append(pairs, "begin "+pairName(a, b)) })
		w.Events.BodiesEndCollide.AddListener(func(a, b *Body) { pairs = append(pairs, "end "+pairName(a, b)) })
		return &pairs
	}
	seqPairs, parPairs := record(seq), record(par)

	for i := 0; i < 60; i++ {
		*seqPairs, *parPairs = (*seqPairs)[:0], (*parPairs)[:0]
		if err := seq.Step(0.01, false); err != nil {
			t.Fatal(err)
		}
		if err := par.Step(0.01, true); err != nil {
			t.Fatal(err)
		}
		slices.Sort(*seqPairs)
		slices.Sort(*parPairs)
		if !slices.Equal(*seqPairs, *parPairs) {
			t.Fatalf("step %d: Expected %v, got %v", i, *seqPairs, *parPairs)
		}
	}
}

func TestStepFixed(t *testing.T) {
	w := newTestWorld(t, nil)
	steps := 0
	w.Events.PostStep.AddListener(func(float32) { steps++ })

	n, err := w.StepFixed(0.05, false, 0.02, 10)
	if err != nil || n != 2 || steps != 2 {
		t.Errorf("Expected 2 steps, got %d (%d events, err %v)", n, steps, err)
	}

	n, err = w.StepFixed(1, false, 0.02, 3)
	if err != nil || n != 3 {
		t.Errorf("Expected the cap of 3 steps, got %d (err %v)", n, err)
	}

	// The backlog beyond the cap was dropped
	n, _ = w.StepFixed(0, false, 0.02, 3)
	if n != 0 {
		t.Errorf("Expected no steps from a dropped backlog, got %d", n)
	}

	if _, err := w.StepFixed(-1, false, 0.02, 3); !errors.Is(err, ErrNegativeTimestep) {
		t.Errorf("Expected ErrNegativeTimestep, got %v", err)
	}
	if _, err := w.StepFixed(1, false, 0.02, 0); !errors.Is(err, ErrIterationRange) {
		t.Errorf("Expected ErrIterationRange, got %v", err)
	}
}

func TestSetterValidation(t *testing.T) {
	w := newTestWorld(t, nil)

	tests := []struct {
		name string
		call func() error
		want error
	}{
		{"damping negative", func() error { return w.SetDampingFactors(-0.1, 0.5) }, ErrDampingRange},
		{"damping above one", func() error { return w.SetDampingFactors(0.5, 1.1) }, ErrDampingRange},
		{"damping ok", func() error { return w.SetDampingFactors(0.9, 0.8) }, nil},
		{"threshold negative", func() error { return w.SetInactivityThreshold(-1, 0.1, 1) }, ErrThresholdRange},
		{"threshold time negative", func() error { return w.SetInactivityThreshold(0.1, 0.1, -1) }, ErrThresholdRange},
		{"threshold ok", func() error { return w.SetInactivityThreshold(0.2, 0.3, 1) }, nil},
		{"iterations zero", func() error { return w.SetIterations(0, 1) }, ErrIterationRange},
		{"small zero", func() error { return w.SetIterations(5, 0) }, ErrIterationRange},
		{"small above iterations", func() error { return w.SetIterations(5, 6) }, nil},
		{"iterations ok", func() error { return w.SetIterations(12, 3) }, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			if tt.want == nil && err != nil {
				t.Errorf("Expected no error, got %v", err)
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
		})
	}

	if a, l := w.DampingFactors(); a != 0.9 || l != 0.8 {
		t.Errorf("Expected damping (0.9, 0.8), got (%f, %f)", a, l)
	}
	if i, s := w.Iterations(); i != 12 || s != 3 {
		t.Errorf("Expected iterations (12, 3), got (%d, %d)", i, s)
	}
}

func TestConstraintErrors(t *testing.T) {
	w := newTestWorld(t, nil)
	a := sphereBody("a", 0.5, 1, rl.Vector3{})
	b := sphereBody("b", 0.5, 1, rl.Vector3{X: 2})
	mustAdd(t, w, a)

	s := NewSpring(a, b)
	if err := w.AddConstraint(s); !errors.Is(err, ErrBodyNotFound) {
		t.Errorf("Expected ErrBodyNotFound, got %v", err)
	}
	if err := w.AddConstraint(nil); !errors.Is(err, ErrNilConstraint) {
		t.Errorf("Expected ErrNilConstraint, got %v", err)
	}

	mustAdd(t, w, b)
	if err := w.AddConstraint(s); err != nil {
		t.Fatalf("AddConstraint failed: %v", err)
	}
	if err := w.AddConstraint(s); !errors.Is(err, ErrDuplicateConstraint) {
		t.Errorf("Expected ErrDuplicateConstraint, got %v", err)
	}
	if a.Island() != b.Island() {
		t.Error("Expected the constraint to join islands")
	}

	if err := w.RemoveConstraint(s); err != nil {
		t.Fatalf("RemoveConstraint failed: %v", err)
	}
	if err := w.RemoveConstraint(s); !errors.Is(err, ErrConstraintNotFound) {
		t.Errorf("Expected ErrConstraintNotFound, got %v", err)
	}
}

func TestRemoveBodyRemovesConstraints(t *testing.T) {
	w := newTestWorld(t, nil)
	a := sphereBody("a", 0.5, 1, rl.Vector3{})
	b := sphereBody("b", 0.5, 1, rl.Vector3{X: 2})
	mustAdd(t, w, a, b)
	s := NewSpring(a, b)
	w.AddConstraint(s)

	var removed []Constraint
	w.Events.ConstraintRemoved.AddListener(func(c Constraint) { removed = append(removed, c) })
	w.RemoveBody(a)

	if len(w.Constraints()) != 0 || len(b.Constraints()) != 0 {
		t.Error("Expected the spring to be removed with its body")
	}
	if len(removed) != 1 || removed[0] != Constraint(s) {
		t.Errorf("Expected one ConstraintRemoved event, got %v", removed)
	}
}

func TestClear(t *testing.T) {
	w := newTestWorld(t, nil)
	stackScene(t, w)
	mustStep(t, w, 0.01, 20)

	if err := w.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	s := w.Stats()
	if s.Bodies != 0 || s.Arbiters != 0 || s.Islands != 0 || s.Constraints != 0 {
		t.Errorf("Expected an empty world, got %+v", s)
	}
	if w.CollisionSystem().Len() != 0 {
		t.Errorf("Expected an empty broadphase, got %d", w.CollisionSystem().Len())
	}

	mustAdd(t, w, groundBody())
	mustStep(t, w, 0.01, 1)
}

func TestClearWithListenerRemovals(t *testing.T) {
	w := newTestWorld(t, nil)
	a := sphereBody("a", 0.5, 1, rl.Vector3{})
	b := sphereBody("b", 0.5, 1, rl.Vector3{X: 2})
	mustAdd(t, w, a, b)
	w.AddConstraint(NewSpring(a, b))
	sb, _ := NewCloth(3, 3, 1, 1)
	w.AddSoftBody(sb)

	removed := 0
	w.Events.BodyRemoved.AddListener(func(body *Body) {
		removed++
		if body == b {
			w.RemoveBody(a)
		}
	})

	if err := w.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if removed != 2 {
		t.Errorf("Expected 2 BodyRemoved events, got %d", removed)
	}
	if len(w.Bodies()) != 0 || len(w.Constraints()) != 0 || len(w.SoftBodies()) != 0 {
		t.Errorf("Expected an empty world, got %d bodies %d constraints", len(w.Bodies()), len(w.Constraints()))
	}
}

func TestClearReportsRemovalErrors(t *testing.T) {
	w := newTestWorld(t, nil)
	sb, _ := NewCloth(2, 2, 1, 1)
	w.AddSoftBody(sb)
	// Orphan the points so RemoveBody refuses them
	w.softBodies.remove(sb)

	err := w.Clear()
	if !errors.Is(err, ErrParticleBody) {
		t.Errorf("Expected ErrParticleBody, got %v", err)
	}
	if len(w.Constraints()) != 0 {
		t.Errorf("Expected constraints cleared after the failed body, got %d", len(w.Constraints()))
	}
}

func TestWorldRaycast(t *testing.T) {
	w := newTestWorld(t, nil)
	target := sphereBody("target", 0.5, 1, rl.Vector3{Z: 5})
	behind := sphereBody("behind", 0.5, 1, rl.Vector3{Z: 8})
	mustAdd(t, w, target, behind)

	hit, ok := w.Raycast(rl.Vector3{}, rl.Vector3{Z: 1}, nil)
	if !ok || hit.Body != target {
		t.Fatalf("Expected to hit target, got %+v", hit)
	}
	if !near(hit.Fraction, 4.5, 1e-3) || !near(hit.Point.Z, 4.5, 1e-3) {
		t.Errorf("Expected hit at 4.5, got fraction %f point %v", hit.Fraction, hit.Point)
	}

	hit, ok = w.Raycast(rl.Vector3{}, rl.Vector3{Z: 1}, func(b *Body, n rl.Vector3, f float32) bool {
		return b != target
	})
	if !ok || hit.Body != behind {
		t.Errorf("Expected filter to skip to behind, got %+v", hit)
	}

	if _, ok := w.RaycastBody(behind, rl.Vector3{X: 5}, rl.Vector3{Z: 1}); ok {
		t.Error("Expected RaycastBody to miss")
	}
}

func TestHooksAndStepEvents(t *testing.T) {
	w := newTestWorld(t, nil)
	var order []string
	b := sphereBody("a", 0.5, 1, rl.Vector3{})
	b.PreStepHook = func(*Body, float32) { order = append(order, "body pre") }
	b.PostStepHook = func(*Body, float32) { order = append(order, "body post") }
	mustAdd(t, w, b)
	w.Events.PreStep.AddListener(func(float32) { order = append(order, "world pre") })
	w.Events.PostStep.AddListener(func(float32) { order = append(order, "world post") })

	mustStep(t, w, 0.01, 1)

	want := []string{"body pre", "world pre", "body post", "world post"}
	if !slices.Equal(order, want) {
		t.Errorf("Expected %v, got %v", want, order)
	}
}

func TestMutationDuringStepRejected(t *testing.T) {
	w := newTestWorld(t, nil)
	mustAdd(t, w, sphereBody("a", 0.5, 1, rl.Vector3{}))

	var err error
	w.Events.PreStep.AddListener(func(float32) {
		err = w.AddBody(sphereBody("b", 0.5, 1, rl.Vector3{}))
	})
	mustStep(t, w, 0.01, 1)

	if !errors.Is(err, ErrStepping) {
		t.Errorf("Expected ErrStepping, got %v", err)
	}
}

func TestDebugTimesAndStats(t *testing.T) {
	w := newTestWorld(t, nil)
	stackScene(t, w)
	mustStep(t, w, 0.01, 5)

	times := w.DebugTimes()
	var total int64
	for _, d := range times {
		total += int64(d)
	}
	if total <= 0 {
		t.Error("Expected stage timings to be recorded")
	}
	if DebugCollisionDetect.String() != "CollisionDetect" {
		t.Errorf("Expected CollisionDetect, got %s", DebugCollisionDetect)
	}

	s := w.Stats()
	if s.Bodies != 19 || s.Arbiters == 0 || s.Contacts < s.Arbiters {
		t.Errorf("Unexpected stats %+v", s)
	}
}

type countingDrawer struct {
	lines, points, tris int
}

func (d *countingDrawer) DrawLine(a, b rl.Vector3)        { d.lines++ }
func (d *countingDrawer) DrawPoint(p rl.Vector3)          { d.points++ }
func (d *countingDrawer) DrawTriangle(a, b, c rl.Vector3) { d.tris++ }

func TestDebugDraw(t *testing.T) {
	w := newTestWorld(t, nil)
	ball := sphereBody("ball", 0.5, 1, rl.Vector3{Y: 0.45})
	mustAdd(t, w, groundBody(), ball)
	mustStep(t, w, 0.01, 1)

	var d countingDrawer
	w.DebugDraw(&d)
	if d.lines < 24 || d.points == 0 {
		t.Errorf("Expected box edges and contact points, got %+v", d)
	}
}
