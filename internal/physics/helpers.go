package physics

import (
	"github.com/chewxy/math32"
	rl "github.com/gen2brain/raylib-go/raylib"
)

const epsilon = 1e-6

// clamp restricts a value to a range
func clamp(v, min, max float32) float32 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// worldInertia builds R * diag(local) * Rᵀ. The result is symmetric, so its
// layout inside rl.Matrix does not depend on row or column order.
func worldInertia(q rl.Quaternion, local rl.Vector3) rl.Matrix {
	cols := [3]rl.Vector3{
		rl.Vector3RotateByQuaternion(rl.Vector3{X: 1}, q),
		rl.Vector3RotateByQuaternion(rl.Vector3{Y: 1}, q),
		rl.Vector3RotateByQuaternion(rl.Vector3{Z: 1}, q),
	}
	d := [3]float32{local.X, local.Y, local.Z}

	var w [3][3]float32
	for i := 0; i < 3; i++ {
		for k := i; k < 3; k++ {
			var sum float32
			for j := 0; j < 3; j++ {
				sum += component(cols[j], i) * d[j] * component(cols[j], k)
			}
			w[i][k] = sum
			w[k][i] = sum
		}
	}

	return rl.Matrix{
		M0: w[0][0], M4: w[0][1], M8: w[0][2],
		M1: w[1][0], M5: w[1][1], M9: w[1][2],
		M2: w[2][0], M6: w[2][1], M10: w[2][2],
		M15: 1,
	}
}

func component(v rl.Vector3, i int) float32 {
	switch i {
	case 0:
		return v.X
	case 1:
		return v.Y
	}
	return v.Z
}

// mulInertia applies a world inverse inertia to v.
func mulInertia(m rl.Matrix, v rl.Vector3) rl.Vector3 {
	return rl.Vector3{
		X: m.M0*v.X + m.M4*v.Y + m.M8*v.Z,
		Y: m.M1*v.X + m.M5*v.Y + m.M9*v.Z,
		Z: m.M2*v.X + m.M6*v.Y + m.M10*v.Z,
	}
}

func invertOrZero(v float32) float32 {
	if math32.Abs(v) < epsilon {
		return 0
	}
	return 1 / v
}

// orderedSet keeps insertion order for iteration while allowing O(1)
// membership tests. Removal swaps the last element into the hole, so the
// order stays deterministic for a given sequence of operations.
type orderedSet[T comparable] struct {
	items []T
	index map[T]int
}

func (s *orderedSet[T]) add(v T) bool {
	if s.index == nil {
		s.index = make(map[T]int)
	}
	if _, ok := s.index[v]; ok {
		return false
	}
	s.index[v] = len(s.items)
	s.items = append(s.items, v)
	return true
}

func (s *orderedSet[T]) remove(v T) bool {
	i, ok := s.index[v]
	if !ok {
		return false
	}
	last := len(s.items) - 1
	if i != last {
		s.items[i] = s.items[last]
		s.index[s.items[i]] = i
	}
	var zero T
	s.items[last] = zero
	s.items = s.items[:last]
	delete(s.index, v)
	return true
}

func (s *orderedSet[T]) contains(v T) bool {
	_, ok := s.index[v]
	return ok
}

func (s *orderedSet[T]) len() int { return len(s.items) }

func (s *orderedSet[T]) clear() {
	clear(s.items)
	s.items = s.items[:0]
	clear(s.index)
}

// removeItem deletes the first occurrence of v, keeping order.
func removeItem[T comparable](list []T, v T) []T {
	for i, x := range list {
		if x == v {
			copy(list[i:], list[i+1:])
			var zero T
			list[len(list)-1] = zero
			return list[:len(list)-1]
		}
	}
	return list
}
