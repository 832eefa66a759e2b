package physics

import (
	"errors"
	"testing"

	rl "github.com/gen2brain/raylib-go/raylib"
)

func TestNewSoftBodyRejectsBadEdges(t *testing.T) {
	points := []rl.Vector3{{}, {X: 1}}
	for _, e := range [][2]int{{0, 2}, {-1, 0}, {1, 1}} {
		if _, err := NewSoftBody(points, [][2]int{e}, 0.1, 1); !errors.Is(err, ErrInvalidEdge) {
			t.Errorf("edge %v: Expected ErrInvalidEdge, got %v", e, err)
		}
	}
}

func TestNewCloth(t *testing.T) {
	sb, err := NewCloth(3, 3, 1, 1)
	if err != nil {
		t.Fatalf("NewCloth failed: %v", err)
	}
	if len(sb.Points()) != 9 {
		t.Errorf("Expected 9 points, got %d", len(sb.Points()))
	}
	// 6 horizontal, 6 vertical and 8 shear springs
	if len(sb.Springs()) != 20 {
		t.Errorf("Expected 20 springs, got %d", len(sb.Springs()))
	}
	if len(sb.Triangles) != 8 {
		t.Errorf("Expected 8 triangles, got %d", len(sb.Triangles))
	}
	for _, p := range sb.Points() {
		if !p.IsParticle || p.SoftBody() != sb {
			t.Fatal("Expected every point to be a particle of the cloth")
		}
	}
	box := sb.BoundingBox()
	if !near(box.Min.X, -0.25, 1e-5) || !near(box.Max.Z, 2.25, 1e-5) {
		t.Errorf("Expected bounds covering the grid, got %+v", box)
	}
}

func TestSoftBodyAddRemove(t *testing.T) {
	w := newTestWorld(t, nil)
	sb, _ := NewCloth(3, 3, 1, 1)

	if err := w.AddSoftBody(sb); err != nil {
		t.Fatalf("AddSoftBody failed: %v", err)
	}
	if len(w.Bodies()) != 9 || len(w.Constraints()) != 20 || len(w.SoftBodies()) != 1 {
		t.Errorf("Expected 9 bodies and 20 constraints, got %d and %d", len(w.Bodies()), len(w.Constraints()))
	}
	if w.Islands().Len() != 1 {
		t.Errorf("Expected the cloth to form 1 island, got %d", w.Islands().Len())
	}
	if w.CollisionSystem().Len() != 1 {
		t.Errorf("Expected the cloth as 1 broadphase entity, got %d", w.CollisionSystem().Len())
	}

	if err := w.AddSoftBody(sb); !errors.Is(err, ErrDuplicateSoftBody) {
		t.Errorf("Expected ErrDuplicateSoftBody, got %v", err)
	}
	if err := w.AddBody(sb.Points()[0]); !errors.Is(err, ErrParticleBody) {
		t.Errorf("Expected ErrParticleBody, got %v", err)
	}
	if err := w.RemoveBody(sb.Points()[0]); !errors.Is(err, ErrParticleBody) {
		t.Errorf("Expected ErrParticleBody, got %v", err)
	}

	mustStep(t, w, 0.01, 5)

	if err := w.RemoveSoftBody(sb); err != nil {
		t.Fatalf("RemoveSoftBody failed: %v", err)
	}
	if len(w.Bodies()) != 0 || len(w.Constraints()) != 0 || w.Islands().Len() != 0 {
		t.Errorf("Expected an empty world, got %+v", w.Stats())
	}
	if w.CollisionSystem().Len() != 0 {
		t.Errorf("Expected an empty broadphase, got %d", w.CollisionSystem().Len())
	}
	if sb.World() != nil {
		t.Error("Expected the soft body detached")
	}
}

func TestClothLandsOnGround(t *testing.T) {
	w := newTestWorld(t, nil)
	ground := groundBody()
	mustAdd(t, w, ground)

	sb, _ := NewCloth(4, 4, 0.5, 1)
	sb.Translate(rl.Vector3{X: -0.75, Y: 1, Z: -0.75})
	if err := w.AddSoftBody(sb); err != nil {
		t.Fatal(err)
	}

	touched := 0
	w.Events.BodiesBeginCollide.AddListener(func(a, b *Body) {
		if a == ground || b == ground {
			touched++
		}
	})

	mustStep(t, w, 0.01, 150)

	if touched == 0 {
		t.Error("Expected cloth points to hit the ground")
	}
	for i, p := range sb.Points() {
		if y := p.Position().Y; y < -0.2 {
			t.Errorf("point %d: Expected to rest on the ground, got y=%f", i, y)
		}
	}
}

func TestSoftBodySelfCollision(t *testing.T) {
	points := []rl.Vector3{{}, {X: 0.1}, {X: 2}}

	tests := []struct {
		name  string
		edges [][2]int
		self  bool
		want  bool
	}{
		{"unconnected points collide", [][2]int{{0, 2}, {1, 2}}, true, true},
		{"adjacent points skipped", [][2]int{{0, 1}, {1, 2}}, true, false},
		{"self collision off", [][2]int{{0, 2}, {1, 2}}, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := newTestWorld(t, nil)
			w.Gravity = rl.Vector3{}
			sb, err := NewSoftBody(points, tt.edges, 0.25, 1)
			if err != nil {
				t.Fatal(err)
			}
			sb.SelfCollision = tt.self
			w.AddSoftBody(sb)

			mustStep(t, w, 0.01, 1)

			_, ok := w.Arbiters().Lookup(sb.Points()[0], sb.Points()[1])
			if ok != tt.want {
				t.Errorf("Expected arbiter=%v, got %v", tt.want, ok)
			}
		})
	}
}
