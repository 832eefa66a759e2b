package physics

// Island is a group of bodies connected through arbiters or constraints.
// Static bodies never belong to an island and never connect two islands.
type Island struct {
	bodies      orderedSet[*Body]
	arbiters    orderedSet[*Arbiter]
	constraints orderedSet[Constraint]
	dirty       bool
}

func resetIsland(i *Island) {
	i.bodies.clear()
	i.arbiters.clear()
	i.constraints.clear()
	i.dirty = false
}

// Bodies returns the members. The slice is owned by the island.
func (i *Island) Bodies() []*Body { return i.bodies.items }

func (i *Island) Arbiters() []*Arbiter { return i.arbiters.items }

func (i *Island) Constraints() []Constraint { return i.constraints.items }

// IsActive reports whether the island is empty or has an awake member.
func (i *Island) IsActive() bool {
	if i.bodies.len() == 0 {
		return true
	}
	for _, b := range i.bodies.items {
		if b.active {
			return true
		}
	}
	return false
}

// Size is the solver workload of the island.
func (i *Island) Size() int {
	return i.bodies.len() + i.constraints.len()
}

// IslandManager keeps islands up to date as arbiters and constraints come
// and go. Joining is immediate; splitting is deferred: an island that lost a
// connection is marked dirty and rebuilt by Rebuild.
type IslandManager struct {
	islands orderedSet[*Island]
	pool    *Pool[Island]
	visit   uint32
	queue   []*Body
}

func NewIslandManager() *IslandManager {
	return &IslandManager{pool: NewPool(resetIsland)}
}

// Islands returns all islands. The slice is owned by the manager.
func (m *IslandManager) Islands() []*Island { return m.islands.items }

func (m *IslandManager) Len() int { return m.islands.len() }

func (m *IslandManager) newIsland() *Island {
	isl := m.pool.Acquire()
	m.islands.add(isl)
	return isl
}

func (m *IslandManager) releaseIsland(isl *Island) {
	m.islands.remove(isl)
	m.pool.Release(isl)
}

// AddBody gives a non-static body its own island.
func (m *IslandManager) AddBody(b *Body) {
	if b.static || b.island != nil {
		return
	}
	isl := m.newIsland()
	isl.bodies.add(b)
	b.island = isl
}

// RemoveBody takes b out of its island. Incident arbiters and constraints
// must have been removed first.
func (m *IslandManager) RemoveBody(b *Body) {
	isl := b.island
	if isl == nil {
		return
	}
	isl.bodies.remove(b)
	b.island = nil
	if isl.bodies.len() == 0 {
		m.releaseIsland(isl)
		return
	}
	isl.dirty = true
}

func (m *IslandManager) ArbiterCreated(a *Arbiter) {
	a.body1.arbiters = append(a.body1.arbiters, a)
	a.body2.arbiters = append(a.body2.arbiters, a)
	if isl := m.join(a.body1, a.body2); isl != nil {
		isl.arbiters.add(a)
	}
}

func (m *IslandManager) ArbiterRemoved(a *Arbiter) {
	a.body1.arbiters = removeItem(a.body1.arbiters, a)
	a.body2.arbiters = removeItem(a.body2.arbiters, a)
	m.split(a.body1, a.body2, func(isl *Island) { isl.arbiters.remove(a) })
}

func (m *IslandManager) ConstraintCreated(c Constraint) {
	b1, b2 := c.Body1(), c.Body2()
	b1.constraints = append(b1.constraints, c)
	if b2 == nil {
		if b1.island != nil {
			b1.island.constraints.add(c)
		}
		return
	}
	b2.constraints = append(b2.constraints, c)
	if isl := m.join(b1, b2); isl != nil {
		isl.constraints.add(c)
	}
}

func (m *IslandManager) ConstraintRemoved(c Constraint) {
	b1, b2 := c.Body1(), c.Body2()
	b1.constraints = removeItem(b1.constraints, c)
	if b2 == nil {
		if b1.island != nil {
			b1.island.constraints.remove(c)
		}
		return
	}
	b2.constraints = removeItem(b2.constraints, c)
	m.split(b1, b2, func(isl *Island) { isl.constraints.remove(c) })
}

// join merges the islands of two bodies and returns the island owning the
// connection, or nil when both bodies are static.
func (m *IslandManager) join(b1, b2 *Body) *Island {
	switch {
	case b1.static && b2.static:
		return nil
	case b1.static:
		return b2.island
	case b2.static:
		return b1.island
	}

	i1, i2 := b1.island, b2.island
	if i1 == i2 {
		return i1
	}

	// Merge the smaller island into the larger one
	if i1.Size() < i2.Size() {
		i1, i2 = i2, i1
	}
	for _, b := range i2.bodies.items {
		b.island = i1
		i1.bodies.add(b)
	}
	for _, a := range i2.arbiters.items {
		i1.arbiters.add(a)
	}
	for _, c := range i2.constraints.items {
		i1.constraints.add(c)
	}
	i1.dirty = i1.dirty || i2.dirty
	m.releaseIsland(i2)
	return i1
}

// split removes a connection between two bodies. detach drops the
// connection from the island that held it.
func (m *IslandManager) split(b1, b2 *Body, detach func(*Island)) {
	owner := b1.island
	if owner == nil {
		owner = b2.island
	}
	if owner == nil {
		return
	}
	detach(owner)
	if !b1.static && !b2.static {
		owner.dirty = true
	}
}

// staticChanged moves a body in or out of the island graph after its static
// flag flipped.
func (m *IslandManager) staticChanged(b *Body) {
	if b.static {
		if isl := b.island; isl != nil {
			isl.bodies.remove(b)
			b.island = nil
			if isl.bodies.len() == 0 {
				m.releaseIsland(isl)
			} else {
				isl.dirty = true
			}
		}
		return
	}

	m.AddBody(b)
	for _, a := range b.arbiters {
		if isl := m.join(a.body1, a.body2); isl != nil {
			isl.arbiters.add(a)
		}
	}
	for _, c := range b.constraints {
		b1, b2 := c.Body1(), c.Body2()
		var isl *Island
		if b2 == nil {
			isl = b1.island
		} else {
			isl = m.join(b1, b2)
		}
		if isl != nil {
			isl.constraints.add(c)
		}
	}
}

// Rebuild splits every dirty island into its connected components.
func (m *IslandManager) Rebuild() {
	// Snapshot, since splitting appends islands
	n := m.islands.len()
	for i := 0; i < n; i++ {
		isl := m.islands.items[i]
		if isl.dirty {
			m.rebuild(isl)
		}
	}
}

func (m *IslandManager) rebuild(isl *Island) {
	m.visit++
	members := append([]*Body(nil), isl.bodies.items...)
	isl.bodies.clear()
	isl.arbiters.clear()
	isl.constraints.clear()
	isl.dirty = false

	target := isl
	for _, seed := range members {
		if seed.visit == m.visit {
			continue
		}
		if target == nil {
			target = m.newIsland()
		}
		m.flood(seed, target)
		target = nil
	}
}

// flood assigns every body reachable from seed to target.
func (m *IslandManager) flood(seed *Body, target *Island) {
	seed.visit = m.visit
	m.queue = append(m.queue[:0], seed)

	for len(m.queue) > 0 {
		b := m.queue[0]
		m.queue = m.queue[1:]

		target.bodies.add(b)
		b.island = target

		for _, a := range b.arbiters {
			target.arbiters.add(a)
			m.enqueue(a.other(b))
		}
		for _, c := range b.constraints {
			target.constraints.add(c)
			if o := c.Body1(); o != b {
				m.enqueue(o)
			}
			if o := c.Body2(); o != nil && o != b {
				m.enqueue(o)
			}
		}
	}
}

func (m *IslandManager) enqueue(b *Body) {
	if b.static || b.visit == m.visit {
		return
	}
	b.visit = m.visit
	m.queue = append(m.queue, b)
}

// RemoveAll drops every island.
func (m *IslandManager) RemoveAll() {
	for _, isl := range m.islands.items {
		for _, b := range isl.bodies.items {
			b.island = nil
		}
		m.pool.Release(isl)
	}
	m.islands.clear()
	m.pool.Reset()
}
