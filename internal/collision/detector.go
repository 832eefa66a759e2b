package collision

import (
	"rigid3d/internal/shape"
	"rigid3d/internal/tasks"
	"sync"

	rl "github.com/gen2brain/raylib-go/raylib"
)

type hit struct {
	a, b Collidable
	c    shape.Contact
}

// pair is a candidate handed to a narrow-phase task. Hits are buffered on the
// pair and replayed by the orchestrator so handlers never run on a worker.
type pair struct {
	a, b Entity
	hits []hit
}

// pairPool recycles pair objects. It has its own lock so it may be shared
// with scheduler tasks.
type pairPool struct {
	mu   sync.Mutex
	free []*pair
}

func (p *pairPool) acquire() *pair {
	p.mu.Lock()
	defer p.mu.Unlock()

	if n := len(p.free); n > 0 {
		pr := p.free[n-1]
		p.free = p.free[:n-1]
		return pr
	}
	return &pair{}
}

func (p *pairPool) release(pr *pair) {
	pr.a, pr.b = nil, nil
	clear(pr.hits)
	pr.hits = pr.hits[:0]

	p.mu.Lock()
	p.free = append(p.free, pr)
	p.mu.Unlock()
}

// detector is the candidate-to-contact path shared by all strategies.
type detector struct {
	narrow      shape.Narrowphase
	scheduler   *tasks.Scheduler
	speculative bool

	handler DetectHandler
	passed  BroadphaseFilter

	swap   bool
	pool   pairPool
	queued []*pair
	task   tasks.Func
}

func newDetector(opts Options) detector {
	opts = opts.withDefaults()
	return detector{
		narrow:      opts.Narrowphase,
		scheduler:   opts.Scheduler,
		speculative: opts.Speculative,
	}
}

func (d *detector) SetDetectHandler(h DetectHandler)       { d.handler = h }
func (d *detector) SetPassedBroadphase(f BroadphaseFilter) { d.passed = f }
func (d *detector) SetSpeculativeContacts(enabled bool)    { d.speculative = enabled }

// candidate handles a pair whose bounding boxes overlap.
func (d *detector) candidate(a, b Entity, parallel bool) {
	if a.IsStaticOrInactive() && b.IsStaticOrInactive() {
		return
	}
	if d.passed != nil && !d.passed(a, b) {
		return
	}

	if d.swap {
		a, b = b, a
	}
	d.swap = !d.swap

	if parallel && d.scheduler != nil {
		if d.task == nil {
			d.task = d.runPair
		}
		pr := d.pool.acquire()
		pr.a, pr.b = a, b
		d.queued = append(d.queued, pr)
		d.scheduler.Submit(d.task, pr)
		return
	}

	d.narrowphase(a, b, d.emit)
}

func (d *detector) runPair(arg any) {
	pr := arg.(*pair)
	d.narrowphase(pr.a, pr.b, func(a, b Collidable, c shape.Contact) {
		pr.hits = append(pr.hits, hit{a: a, b: b, c: c})
	})
}

// flush runs queued narrow-phase tasks and replays their hits in submission order.
func (d *detector) flush() {
	if len(d.queued) == 0 {
		return
	}
	d.scheduler.RunAll()

	for i, pr := range d.queued {
		for _, h := range pr.hits {
			d.emit(h.a, h.b, h.c)
		}
		d.pool.release(pr)
		d.queued[i] = nil
	}
	d.queued = d.queued[:0]
}

func (d *detector) emit(a, b Collidable, c shape.Contact) {
	if d.handler != nil {
		d.handler(a, b, c)
	}
}

func (d *detector) narrowphase(a, b Entity, emit DetectHandler) {
	ca, aRigid := a.(Collidable)
	cb, bRigid := b.(Collidable)

	switch {
	case aRigid && bRigid:
		d.rigidRigid(ca, cb, emit)
	case aRigid:
		d.rigidAggregate(ca, b.(Aggregate), false, emit)
	case bRigid:
		d.rigidAggregate(cb, a.(Aggregate), true, emit)
	default:
		ga, gb := a.(Aggregate), b.(Aggregate)
		for i := 0; i < ga.MemberCount(); i++ {
			ma := ga.Member(i)
			boxA := ma.BoundingBox()
			for j := 0; j < gb.MemberCount(); j++ {
				mb := gb.Member(j)
				if ma.IsStaticOrInactive() && mb.IsStaticOrInactive() {
					continue
				}
				if boxA.Intersects(mb.BoundingBox()) {
					d.rigidRigid(ma, mb, emit)
				}
			}
		}
	}
}

// rigidAggregate refines a rigid body against the members of an aggregate
// whose boxes it overlaps. flip keeps the aggregate on the side it was reported.
func (d *detector) rigidAggregate(body Collidable, agg Aggregate, flip bool, emit DetectHandler) {
	box := body.BoundingBox()
	for i := 0; i < agg.MemberCount(); i++ {
		m := agg.Member(i)
		if m.IsStaticOrInactive() && body.IsStaticOrInactive() {
			continue
		}
		if !box.Intersects(m.BoundingBox()) {
			continue
		}
		if flip {
			d.rigidRigid(m, body, emit)
		} else {
			d.rigidRigid(body, m, emit)
		}
	}
}

func (d *detector) rigidRigid(a, b Collidable, emit DetectHandler) {
	msA, multiA := a.Shape().(shape.Multishape)
	msB, multiB := b.Shape().(shape.Multishape)

	switch {
	case multiA && multiB:
		d.multiMulti(a, b, msA, msB, emit)
	case multiA:
		d.multiConvex(a, b, msA, a.Orientation(), b.Shape(), b.Orientation(), b.Position(), false, emit)
	case multiB:
		d.multiConvex(b, a, msB, b.Orientation(), a.Shape(), a.Orientation(), a.Position(), true, emit)
	default:
		d.convex(a, b, a.Shape(), b.Shape(), a.Orientation(), b.Orientation(), a.Position(), b.Position(), emit)
	}
}

// multiConvex tests each sub-shape of multi near other. With flip set the
// multishape body is reported second.
func (d *detector) multiConvex(multiBody, otherBody Collidable, ms shape.Multishape, ori rl.Quaternion,
	other shape.Shape, otherOri rl.Quaternion, otherPos rl.Vector3, flip bool, emit DetectHandler) {

	clone := ms.RequestWorkingClone()
	defer clone.ReturnWorkingClone()

	pos := multiBody.Position()
	local := otherBody.BoundingBox().Transform(multiBody.InvOrientation(), rl.Vector3{})
	offset := rl.Vector3RotateByQuaternion(rl.Vector3Negate(pos), multiBody.InvOrientation())
	local = shape.AABB{Min: rl.Vector3Add(local.Min, offset), Max: rl.Vector3Add(local.Max, offset)}

	n := clone.PrepareBox(local)
	for i := 0; i < n; i++ {
		clone.SetCurrentShape(i)
		sub, subOri, subPos := clone.CurrentShape()
		worldOri := rl.QuaternionMultiply(ori, subOri)
		worldPos := rl.Vector3Add(pos, rl.Vector3RotateByQuaternion(subPos, ori))

		if flip {
			d.convex(otherBody, multiBody, other, sub, otherOri, worldOri, otherPos, worldPos, emit)
		} else {
			d.convex(multiBody, otherBody, sub, other, worldOri, otherOri, worldPos, otherPos, emit)
		}
	}
}

func (d *detector) multiMulti(a, b Collidable, msA, msB shape.Multishape, emit DetectHandler) {
	cloneA := msA.RequestWorkingClone()
	defer cloneA.ReturnWorkingClone()

	posA, oriA := a.Position(), a.Orientation()
	boxB := b.BoundingBox().Transform(a.InvOrientation(), rl.Vector3{})
	offset := rl.Vector3RotateByQuaternion(rl.Vector3Negate(posA), a.InvOrientation())
	boxB = shape.AABB{Min: rl.Vector3Add(boxB.Min, offset), Max: rl.Vector3Add(boxB.Max, offset)}

	n := cloneA.PrepareBox(boxB)
	for i := 0; i < n; i++ {
		cloneA.SetCurrentShape(i)
		sub, subOri, subPos := cloneA.CurrentShape()
		worldOri := rl.QuaternionMultiply(oriA, subOri)
		worldPos := rl.Vector3Add(posA, rl.Vector3RotateByQuaternion(subPos, oriA))
		d.multiConvex(b, a, msB, b.Orientation(), sub, worldOri, worldPos, true, emit)
	}
}

func (d *detector) convex(a, b Collidable, sa, sb shape.Shape, oriA, oriB rl.Quaternion, posA, posB rl.Vector3, emit DetectHandler) {
	if c, ok := d.narrow.Detect(sa, sb, oriA, oriB, posA, posB); ok {
		emit(a, b, c)
		return
	}

	if !d.speculative && !a.SpeculativeContacts() && !b.SpeculativeContacts() {
		return
	}
	cp, ok := d.narrow.(shape.ClosestPointer)
	if !ok {
		return
	}
	c, ok := cp.ClosestPoints(sa, sb, oriA, oriB, posA, posB)
	if !ok || c.Penetration >= 0 {
		return
	}

	// Only shapes that could meet within one step's relative motion get a
	// speculative contact
	gap := rl.Vector3Subtract(c.PointB, c.PointA)
	swept := rl.Vector3Subtract(a.SweptDirection(), b.SweptDirection())
	if rl.Vector3DotProduct(gap, gap) < rl.Vector3DotProduct(swept, swept) {
		emit(a, b, c)
	}
}
