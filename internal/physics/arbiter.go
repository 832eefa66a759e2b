package physics

import rl "github.com/gen2brain/raylib-go/raylib"

// MaxContacts is the manifold size of an arbiter.
const MaxContacts = 4

// ArbiterKey identifies an unordered body pair.
type ArbiterKey struct {
	lo, hi uint64
}

// NewArbiterKey builds the same key for (a, b) and (b, a).
func NewArbiterKey(a, b *Body) ArbiterKey {
	if a.id > b.id {
		a, b = b, a
	}
	return ArbiterKey{lo: a.id, hi: b.id}
}

// Arbiter holds the contact manifold of one colliding body pair.
type Arbiter struct {
	body1, body2 *Body
	contacts     []*Contact
}

func resetArbiter(a *Arbiter) {
	a.body1, a.body2 = nil, nil
	clear(a.contacts)
	a.contacts = a.contacts[:0]
}

func (a *Arbiter) Body1() *Body { return a.body1 }
func (a *Arbiter) Body2() *Body { return a.body2 }

// Contacts returns the manifold. The slice is owned by the arbiter.
func (a *Arbiter) Contacts() []*Contact { return a.contacts }

// addContact merges a contact point into the manifold. It returns the
// contact when a new one was created and nil when an existing one was replaced.
func (a *Arbiter) addContact(p1, p2, normal rl.Vector3, penetration float32, settings *ContactSettings, pool *Pool[Contact]) *Contact {
	rel := rl.Vector3Subtract(p1, a.body1.position)

	if len(a.contacts) == MaxContacts {
		i := a.replacementIndex(rel, penetration)
		a.contacts[i].initialize(a.body1, a.body2, p1, p2, normal, penetration, false, settings)
		return nil
	}

	if i := a.nearestContact(rel, settings.BreakThreshold); i >= 0 {
		a.contacts[i].initialize(a.body1, a.body2, p1, p2, normal, penetration, false, settings)
		return nil
	}

	c := pool.Acquire()
	c.initialize(a.body1, a.body2, p1, p2, normal, penetration, true, settings)
	a.contacts = append(a.contacts, c)
	return c
}

// nearestContact returns the contact closest to rel within threshold, or -1.
func (a *Arbiter) nearestContact(rel rl.Vector3, threshold float32) int {
	best := threshold * threshold
	index := -1
	for i, c := range a.contacts {
		d := rl.Vector3Subtract(c.relPos1, rel)
		if dist := rl.Vector3DotProduct(d, d); dist < best {
			best = dist
			index = i
		}
	}
	return index
}

// replacementIndex picks the contact to drop for a new point on a full
// manifold: the one whose removal leaves the largest area, never the deepest.
func (a *Arbiter) replacementIndex(rel rl.Vector3, penetration float32) int {
	deepest := -1
	maxPen := penetration
	for i, c := range a.contacts {
		if c.penetration > maxPen {
			deepest = i
			maxPen = c.penetration
		}
	}

	r := func(i int) rl.Vector3 { return a.contacts[i].relPos1 }
	area := func(a0, b0 rl.Vector3) float32 {
		c := rl.Vector3CrossProduct(a0, b0)
		return rl.Vector3DotProduct(c, c)
	}

	var res [MaxContacts]float32
	if deepest != 0 {
		res[0] = area(rl.Vector3Subtract(rel, r(1)), rl.Vector3Subtract(r(3), r(2)))
	}
	if deepest != 1 {
		res[1] = area(rl.Vector3Subtract(rel, r(0)), rl.Vector3Subtract(r(3), r(2)))
	}
	if deepest != 2 {
		res[2] = area(rl.Vector3Subtract(rel, r(0)), rl.Vector3Subtract(r(3), r(1)))
	}
	if deepest != 3 {
		res[3] = area(rl.Vector3Subtract(rel, r(0)), rl.Vector3Subtract(r(2), r(1)))
	}

	best := 0
	if deepest == 0 {
		best = 1
	}
	for i := range res {
		if i != deepest && res[i] > res[best] {
			best = i
		}
	}
	return best
}

// update refreshes contact positions and drops separated or drifted contacts.
func (a *Arbiter) update(settings *ContactSettings, pool *Pool[Contact]) {
	limit := settings.BreakThreshold * settings.BreakThreshold * 100
	for i := len(a.contacts) - 1; i >= 0; i-- {
		c := a.contacts[i]
		c.updatePosition()

		if c.penetration < -settings.BreakThreshold || c.drift() > limit {
			a.contacts = removeAt(a.contacts, i)
			pool.Release(c)
		}
	}
}

func (a *Arbiter) releaseContacts(pool *Pool[Contact]) {
	for _, c := range a.contacts {
		pool.Release(c)
	}
	clear(a.contacts)
	a.contacts = a.contacts[:0]
}

func (a *Arbiter) other(b *Body) *Body {
	if a.body1 == b {
		return a.body2
	}
	return a.body1
}

func removeAt[T any](list []T, i int) []T {
	copy(list[i:], list[i+1:])
	var zero T
	list[len(list)-1] = zero
	return list[:len(list)-1]
}

// ArbiterMap finds the arbiter of a body pair. Iteration follows insertion
// order with swap removal, so it is deterministic.
type ArbiterMap struct {
	index map[ArbiterKey]int
	list  []*Arbiter
}

func NewArbiterMap() *ArbiterMap {
	return &ArbiterMap{index: make(map[ArbiterKey]int)}
}

func (m *ArbiterMap) Lookup(a, b *Body) (*Arbiter, bool) {
	i, ok := m.index[NewArbiterKey(a, b)]
	if !ok {
		return nil, false
	}
	return m.list[i], true
}

// add registers arb under its body pair. It reports false when the pair
// already has an arbiter.
func (m *ArbiterMap) add(arb *Arbiter) bool {
	key := NewArbiterKey(arb.body1, arb.body2)
	if _, ok := m.index[key]; ok {
		return false
	}
	m.index[key] = len(m.list)
	m.list = append(m.list, arb)
	return true
}

func (m *ArbiterMap) remove(arb *Arbiter) bool {
	key := NewArbiterKey(arb.body1, arb.body2)
	i, ok := m.index[key]
	if !ok || m.list[i] != arb {
		return false
	}
	last := len(m.list) - 1
	if i != last {
		m.list[i] = m.list[last]
		m.index[NewArbiterKey(m.list[i].body1, m.list[i].body2)] = i
	}
	m.list[last] = nil
	m.list = m.list[:last]
	delete(m.index, key)
	return true
}

func (m *ArbiterMap) Len() int { return len(m.list) }

// Arbiters returns all arbiters. The slice is owned by the map.
func (m *ArbiterMap) Arbiters() []*Arbiter { return m.list }

func (m *ArbiterMap) clear() {
	clear(m.index)
	clear(m.list)
	m.list = m.list[:0]
}
