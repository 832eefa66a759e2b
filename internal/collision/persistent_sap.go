package collision

import (
	"cmp"
	"slices"

	rl "github.com/gen2brain/raylib-go/raylib"
)

// rebuildThreshold is the number of entities added since the last Detect above
// which the axes are fully re-sorted instead of insertion sorted.
const rebuildThreshold = 250

type sweepPoint struct {
	entity Entity
	begin  bool
	axis   int
}

func (p *sweepPoint) value() float32 {
	box := p.entity.BoundingBox()
	v := box.Max
	if p.begin {
		v = box.Min
	}
	switch p.axis {
	case 0:
		return v.X
	case 1:
		return v.Y
	}
	return v.Z
}

type pairKey struct{ lo, hi uint64 }

type overlap struct {
	key  pairKey
	a, b Entity
}

// overlapSet is an insertion-ordered set of entity pairs.
type overlapSet struct {
	index map[pairKey]int
	pairs []overlap
}

func (s *overlapSet) add(key pairKey, a, b Entity) {
	if _, ok := s.index[key]; ok {
		return
	}
	s.index[key] = len(s.pairs)
	s.pairs = append(s.pairs, overlap{key: key, a: a, b: b})
}

func (s *overlapSet) remove(key pairKey) {
	i, ok := s.index[key]
	if !ok {
		return
	}
	last := len(s.pairs) - 1
	if i != last {
		s.pairs[i] = s.pairs[last]
		s.index[s.pairs[i].key] = i
	}
	s.pairs[last] = overlap{}
	s.pairs = s.pairs[:last]
	delete(s.index, key)
}

func (s *overlapSet) reset() {
	clear(s.index)
	clear(s.pairs)
	s.pairs = s.pairs[:0]
}

// overlapEvent is a change recorded while sorting one axis.
type overlapEvent struct {
	add  bool
	a, b Entity
}

// PersistentSAP keeps begin/end points of every entity sorted on all three
// axes across steps. Because motion per step is small, insertion sort touches
// few points, and each swap updates the set of fully overlapping pairs.
type PersistentSAP struct {
	detector
	tracker
	bodies   []Entity
	axes     [3][]*sweepPoint
	events   [3][]overlapEvent
	overlaps overlapSet
	added    int
	sortTask func(any)
}

func NewPersistentSAP(opts Options) *PersistentSAP {
	return &PersistentSAP{
		detector: newDetector(opts),
		tracker:  newTracker(),
		overlaps: overlapSet{index: make(map[pairKey]int)},
	}
}

func (p *PersistentSAP) Add(e Entity) error {
	if err := p.register(e); err != nil {
		return err
	}
	p.bodies = append(p.bodies, e)
	for axis := range p.axes {
		p.axes[axis] = append(p.axes[axis],
			&sweepPoint{entity: e, begin: true, axis: axis},
			&sweepPoint{entity: e, begin: false, axis: axis})
	}
	p.added++
	return nil
}

func (p *PersistentSAP) Remove(e Entity) bool {
	id, ok := p.ids[e]
	if !ok {
		return false
	}

	for axis := range p.axes {
		p.axes[axis] = slices.DeleteFunc(p.axes[axis], func(sp *sweepPoint) bool {
			return sp.entity == e
		})
	}

	var stale []pairKey
	for _, o := range p.overlaps.pairs {
		if o.key.lo == id || o.key.hi == id {
			stale = append(stale, o.key)
		}
	}
	for _, k := range stale {
		p.overlaps.remove(k)
	}

	p.bodies = removeEntity(p.bodies, e)
	p.unregister(e)
	return true
}

func (p *PersistentSAP) Len() int { return len(p.bodies) }

func (p *PersistentSAP) Clear() {
	clear(p.bodies)
	p.bodies = p.bodies[:0]
	for axis := range p.axes {
		clear(p.axes[axis])
		p.axes[axis] = p.axes[axis][:0]
	}
	p.overlaps.reset()
	p.added = 0
	p.reset()
}

func (p *PersistentSAP) key(a, b Entity) pairKey {
	ia, ib := p.ids[a], p.ids[b]
	if ia > ib {
		ia, ib = ib, ia
	}
	return pairKey{lo: ia, hi: ib}
}

func (p *PersistentSAP) Detect(parallel bool) {
	if p.added > rebuildThreshold {
		p.overlaps.reset()
		for axis := range p.axes {
			p.rebuildAxis(axis)
		}
	} else if parallel && p.scheduler != nil {
		// Axes sort independently; overlap changes are applied afterwards in
		// axis order so the result matches the sequential path
		if p.sortTask == nil {
			p.sortTask = func(arg any) { p.sortAxis(arg.(int)) }
		}
		for axis := range p.axes {
			p.scheduler.Submit(p.sortTask, axis)
		}
		p.scheduler.RunAll()
		for axis := range p.axes {
			p.applyEvents(axis)
		}
	} else {
		for axis := range p.axes {
			p.sortAxis(axis)
			p.applyEvents(axis)
		}
	}
	p.added = 0

	for _, o := range p.overlaps.pairs {
		p.candidate(o.a, o.b, parallel)
	}
	if parallel {
		p.flush()
	}
}

// sortAxis insertion sorts one axis. A begin point moving left past an end
// point may start an overlap; an end point moving left past a begin point ends one.
func (p *PersistentSAP) sortAxis(axis int) {
	points := p.axes[axis]
	events := p.events[axis][:0]

	for j := 1; j < len(points); j++ {
		key := points[j]
		keyValue := key.value()

		i := j - 1
		for i >= 0 && points[i].value() > keyValue {
			swapper := points[i]
			if key.begin && !swapper.begin {
				if key.entity.BoundingBox().Intersects(swapper.entity.BoundingBox()) {
					events = append(events, overlapEvent{add: true, a: swapper.entity, b: key.entity})
				}
			}
			if !key.begin && swapper.begin {
				events = append(events, overlapEvent{add: false, a: swapper.entity, b: key.entity})
			}
			points[i+1] = swapper
			i--
		}
		points[i+1] = key
	}
	p.events[axis] = events
}

func (p *PersistentSAP) applyEvents(axis int) {
	for i, ev := range p.events[axis] {
		if ev.add {
			p.overlaps.add(p.key(ev.a, ev.b), ev.a, ev.b)
		} else {
			p.overlaps.remove(p.key(ev.a, ev.b))
		}
		p.events[axis][i] = overlapEvent{}
	}
	p.events[axis] = p.events[axis][:0]
}

// rebuildAxis fully sorts an axis and sweeps it, recording every pair that
// overlaps on all three axes.
func (p *PersistentSAP) rebuildAxis(axis int) {
	points := p.axes[axis]
	slices.SortStableFunc(points, func(a, b *sweepPoint) int {
		if c := cmp.Compare(a.value(), b.value()); c != 0 {
			return c
		}
		// Touching intervals count as overlapping, so begins go first on ties
		switch {
		case a.begin && !b.begin:
			return -1
		case !a.begin && b.begin:
			return 1
		}
		return 0
	})

	var active []Entity
	for _, sp := range points {
		if !sp.begin {
			active = removeEntity(active, sp.entity)
			continue
		}
		box := sp.entity.BoundingBox()
		for _, other := range active {
			if box.Intersects(other.BoundingBox()) {
				p.overlaps.add(p.key(other, sp.entity), other, sp.entity)
			}
		}
		active = append(active, sp.entity)
	}
}

func (p *PersistentSAP) Raycast(origin, dir rl.Vector3, filter RaycastFilter) (RayHit, bool) {
	return p.raycastAll(p.bodies, origin, dir, filter)
}

func (p *PersistentSAP) RaycastEntity(e Entity, origin, dir rl.Vector3) (RayHit, bool) {
	return p.raycastEntity(e, origin, dir)
}
