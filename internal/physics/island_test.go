package physics

import (
	"rigid3d/internal/shape"
	"slices"
	"testing"
)

func islandBodies() (a, b, c, s *Body) {
	a = NewBody(shape.NewSphere(0.5), 1)
	b = NewBody(shape.NewSphere(0.5), 1)
	c = NewBody(shape.NewSphere(0.5), 1)
	s = NewBody(shape.NewSphere(0.5), 0)
	return
}

func TestIslandJoinAndSplit(t *testing.T) {
	m := NewIslandManager()
	a, b, c, s := islandBodies()
	for _, body := range []*Body{a, b, c, s} {
		m.AddBody(body)
	}

	if m.Len() != 3 {
		t.Fatalf("Expected 3 islands, got %d", m.Len())
	}
	if s.Island() != nil {
		t.Error("Expected the static body to have no island")
	}

	ab := &Arbiter{body1: a, body2: b}
	m.ArbiterCreated(ab)
	if m.Len() != 2 || a.Island() != b.Island() {
		t.Fatalf("Expected a and b joined, got %d islands", m.Len())
	}

	// Touching the same static body does not connect islands
	m.ArbiterCreated(&Arbiter{body1: b, body2: s})
	cs := &Arbiter{body1: s, body2: c}
	m.ArbiterCreated(cs)
	if m.Len() != 2 || c.Island() == b.Island() {
		t.Errorf("Expected the static body to keep islands apart, got %d", m.Len())
	}
	if !slices.Contains(c.Island().Arbiters(), cs) {
		t.Error("Expected the static contact in c's island")
	}

	ac := &Arbiter{body1: a, body2: c}
	m.ArbiterCreated(ac)
	if m.Len() != 1 {
		t.Fatalf("Expected 1 island, got %d", m.Len())
	}
	if n := len(a.Island().Arbiters()); n != 4 {
		t.Errorf("Expected 4 arbiters in the merged island, got %d", n)
	}

	m.ArbiterRemoved(ab)
	if m.Len() != 1 {
		t.Errorf("Expected splitting to wait for Rebuild, got %d", m.Len())
	}
	m.Rebuild()

	if m.Len() != 2 {
		t.Fatalf("Expected 2 islands after Rebuild, got %d", m.Len())
	}
	if a.Island() != c.Island() || a.Island() == b.Island() {
		t.Error("Expected {a, c} and {b}")
	}
	if len(b.Island().Bodies()) != 1 || len(b.Island().Arbiters()) != 1 {
		t.Errorf("Expected b alone with its static contact, got %d bodies %d arbiters",
			len(b.Island().Bodies()), len(b.Island().Arbiters()))
	}
	if slices.Contains(a.Island().Arbiters(), ab) || slices.Contains(b.Island().Arbiters(), ab) {
		t.Error("Expected the removed arbiter in no island")
	}
}

func TestIslandConstraints(t *testing.T) {
	m := NewIslandManager()
	a, b, _, _ := islandBodies()
	m.AddBody(a)
	m.AddBody(b)

	s := NewSpring(a, b)
	m.ConstraintCreated(s)
	if m.Len() != 1 || !slices.Contains(a.Island().Constraints(), Constraint(s)) {
		t.Fatal("Expected the spring to join a and b")
	}
	if a.Island().Size() != 3 {
		t.Errorf("Expected island size 3, got %d", a.Island().Size())
	}

	m.ConstraintRemoved(s)
	m.Rebuild()
	if m.Len() != 2 {
		t.Errorf("Expected 2 islands after removing the spring, got %d", m.Len())
	}
	if len(a.Constraints()) != 0 || len(b.Constraints()) != 0 {
		t.Error("Expected constraint lists emptied")
	}
}

func TestIslandRemoveBody(t *testing.T) {
	m := NewIslandManager()
	a, b, c, _ := islandBodies()
	for _, body := range []*Body{a, b, c} {
		m.AddBody(body)
	}
	ab := &Arbiter{body1: a, body2: b}
	bc := &Arbiter{body1: b, body2: c}
	m.ArbiterCreated(ab)
	m.ArbiterCreated(bc)

	// Detach b the way a world does before removing it
	m.ArbiterRemoved(ab)
	m.ArbiterRemoved(bc)
	m.RemoveBody(b)
	m.Rebuild()

	if b.Island() != nil {
		t.Error("Expected b to have no island")
	}
	if m.Len() != 2 || a.Island() == c.Island() {
		t.Errorf("Expected a and c apart, got %d islands", m.Len())
	}
}

func TestIslandStaticChange(t *testing.T) {
	w := newTestWorld(t, nil)
	a, b, c, _ := islandBodies()
	mustAdd(t, w, a, b, c)
	w.AddConstraint(NewSpring(a, b))
	w.AddConstraint(NewSpring(b, c))

	if w.Islands().Len() != 1 {
		t.Fatalf("Expected 1 island, got %d", w.Islands().Len())
	}

	b.SetStatic(true)
	w.Islands().Rebuild()
	if b.Island() != nil || w.Islands().Len() != 2 || a.Island() == c.Island() {
		t.Errorf("Expected a static b to split the island, got %d", w.Islands().Len())
	}

	b.SetStatic(false)
	if w.Islands().Len() != 1 || a.Island() != c.Island() || b.Island() != a.Island() {
		t.Errorf("Expected a dynamic b to rejoin, got %d", w.Islands().Len())
	}
}

func TestIslandActivity(t *testing.T) {
	m := NewIslandManager()
	a, b, _, _ := islandBodies()
	m.AddBody(a)
	m.AddBody(b)
	m.ArbiterCreated(&Arbiter{body1: a, body2: b})

	isl := a.Island()
	a.SetActive(false)
	if !isl.IsActive() {
		t.Error("Expected the island active while b is awake")
	}
	b.SetActive(false)
	if isl.IsActive() {
		t.Error("Expected the island inactive")
	}
}
