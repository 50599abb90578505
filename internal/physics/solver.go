package physics

import (
	"math"
	"sort"

	"crash-ball/internal/geom"
)

const (
	// MaxSubsteps caps continuous-collision substepping per Step
	MaxSubsteps = 8

	// ccdTravelFraction is the share of a CCD body's radius it may travel per substep
	ccdTravelFraction = 0.5
)

// pairKey identifies an unordered body pair
type pairKey struct {
	lo, hi BodyID
}

func keyOf(a, b BodyID) pairKey {
	if a > b {
		a, b = b, a
	}
	return pairKey{lo: a, hi: b}
}

// contact is a narrow-phase result. Normal points from A to B.
type contact struct {
	normal geom.Vec2
	depth  float64
}

// Solver is a deterministic impulse-based engine for circles and oriented
// boxes. Runs with the same seed replay bit for bit, which makes it the
// engine of choice for tests and offline replays. Rotation is not simulated: every body in this game is either fixed
// or rotation-locked.
//
// Solver keeps the previous step's touching pairs to emit start/stop events
// and the previous position of kinematic bodies to derive their velocity.
type Solver struct {
	Gravity geom.Vec2

	broad      *SweepAndPrune
	bounds     []Bounds
	touching   map[pairKey]bool
	kinematics map[BodyID]geom.Vec2
	stepCount  uint64
}

// NewSolver creates a solver with zero gravity
func NewSolver() *Solver {
	return &Solver{
		broad:      NewSweepAndPrune(32),
		bounds:     make([]Bounds, 0, 32),
		touching:   make(map[pairKey]bool),
		kinematics: make(map[BodyID]geom.Vec2),
	}
}

// Steps returns how many times Step has run
func (s *Solver) Steps() uint64 {
	return s.stepCount
}

// Step implements Engine
func (s *Solver) Step(dt float64, bodies []*Body) []CollisionEvent {
	s.stepCount++
	if dt <= 0 {
		return nil
	}

	present := make(map[BodyID]*Body, len(bodies))
	for _, b := range bodies {
		present[b.ID] = b
	}

	s.updateKinematics(dt, bodies, present)

	for _, b := range bodies {
		if b.Kind == Dynamic && b.GravityScale != 0 {
			b.Velocity = b.Velocity.Add(s.Gravity.Scale(b.GravityScale * dt))
		}
	}

	substeps := substepCount(dt, bodies)
	h := dt / float64(substeps)
	touchingNow := make(map[pairKey]bool)

	for i := 0; i < substeps; i++ {
		for _, b := range bodies {
			if b.Kind == Dynamic {
				b.Position = b.Position.Add(b.Velocity.Scale(h))
			}
		}
		s.collide(bodies, touchingNow)
	}

	events := s.diffContacts(touchingNow, present)
	s.touching = touchingNow
	return events
}

// updateKinematics derives the velocity of position-based bodies from how far
// the caller moved them since the previous step.
func (s *Solver) updateKinematics(dt float64, bodies []*Body, present map[BodyID]*Body) {
	for _, b := range bodies {
		if b.Kind != KinematicPositionBased {
			continue
		}
		if prev, ok := s.kinematics[b.ID]; ok {
			b.Velocity = b.Position.Sub(prev).Scale(1 / dt)
		} else {
			b.Velocity = geom.Vec2{}
		}
		s.kinematics[b.ID] = b.Position
	}
	for id := range s.kinematics {
		if _, ok := present[id]; !ok {
			delete(s.kinematics, id)
		}
	}
}

// substepCount splits the step so no CCD body travels more than a fraction of
// its own radius per substep.
func substepCount(dt float64, bodies []*Body) int {
	n := 1
	for _, b := range bodies {
		if b.Kind != Dynamic || !b.CCD {
			continue
		}
		r := b.Shape.boundingRadius()
		if r <= 0 {
			continue
		}
		travel := b.Velocity.Length() * dt
		need := int(math.Ceil(travel / (r * ccdTravelFraction)))
		if need > n {
			n = need
		}
	}
	if n > MaxSubsteps {
		n = MaxSubsteps
	}
	return n
}

func (s *Solver) collide(bodies []*Body, touching map[pairKey]bool) {
	s.bounds = s.bounds[:0]
	for _, b := range bodies {
		s.bounds = append(s.bounds, bodyBounds(b))
	}

	for _, p := range s.broad.Update(s.bounds) {
		a, b := bodies[p.A], bodies[p.B]
		if a.Kind != Dynamic && b.Kind != Dynamic {
			continue
		}
		c, ok := narrowPhase(a, b)
		if !ok {
			continue
		}
		if a.Events || b.Events {
			touching[keyOf(a.ID, b.ID)] = true
		}
		resolve(a, b, c)
	}
}

// diffContacts turns the change in touching pairs into events. Pairs whose
// bodies were removed since the last step are dropped silently.
func (s *Solver) diffContacts(now map[pairKey]bool, present map[BodyID]*Body) []CollisionEvent {
	var events []CollisionEvent

	for k := range now {
		if !s.touching[k] {
			events = append(events, CollisionEvent{Kind: CollisionStarted, A: k.lo, B: k.hi})
		}
	}
	for k := range s.touching {
		if now[k] {
			continue
		}
		if present[k.lo] == nil || present[k.hi] == nil {
			continue
		}
		events = append(events, CollisionEvent{Kind: CollisionStopped, A: k.lo, B: k.hi})
	}

	sortEvents(events)
	return events
}

// sortEvents orders events by kind, then by body pair, so engines report
// them independently of internal iteration order
func sortEvents(events []CollisionEvent) {
	sort.Slice(events, func(i, j int) bool {
		if events[i].Kind != events[j].Kind {
			return events[i].Kind < events[j].Kind
		}
		if events[i].A != events[j].A {
			return events[i].A < events[j].A
		}
		return events[i].B < events[j].B
	})
}

func bodyBounds(b *Body) Bounds {
	var ex, ey float64
	switch b.Shape.Kind {
	case ShapeBox:
		sin, cos := math.Sincos(b.Rotation)
		hx, hy := b.Shape.HalfExtents.X, b.Shape.HalfExtents.Y
		ex = math.Abs(cos)*hx + math.Abs(sin)*hy
		ey = math.Abs(sin)*hx + math.Abs(cos)*hy
	default:
		ex, ey = b.Shape.Radius, b.Shape.Radius
	}
	return Bounds{
		MinX: b.Position.X - ex, MaxX: b.Position.X + ex,
		MinY: b.Position.Y - ey, MaxY: b.Position.Y + ey,
	}
}

func narrowPhase(a, b *Body) (contact, bool) {
	switch {
	case a.Shape.Kind == ShapeCircle && b.Shape.Kind == ShapeCircle:
		return circleCircle(a.Position, a.Shape.Radius, b.Position, b.Shape.Radius)
	case a.Shape.Kind == ShapeCircle && b.Shape.Kind == ShapeBox:
		c, ok := circleBox(a.Position, a.Shape.Radius, b)
		c.normal = c.normal.Scale(-1)
		return c, ok
	case a.Shape.Kind == ShapeBox && b.Shape.Kind == ShapeCircle:
		return circleBox(b.Position, b.Shape.Radius, a)
	default:
		// box-box never involves a dynamic body in this game
		return contact{}, false
	}
}

func circleCircle(pa geom.Vec2, ra float64, pb geom.Vec2, rb float64) (contact, bool) {
	d := pb.Sub(pa)
	dist := d.Length()
	if dist >= ra+rb {
		return contact{}, false
	}
	n, ok := d.Normalize()
	if !ok {
		n = geom.V(0, 1)
	}
	return contact{normal: n, depth: ra + rb - dist}, true
}

// circleBox returns the contact with the normal pointing from the box to the circle.
func circleBox(center geom.Vec2, radius float64, box *Body) (contact, bool) {
	local := center.Sub(box.Position).Rotate(-box.Rotation)
	hx, hy := box.Shape.HalfExtents.X, box.Shape.HalfExtents.Y

	inside := math.Abs(local.X) <= hx && math.Abs(local.Y) <= hy
	if !inside {
		closest := geom.V(geom.Clamp(local.X, -hx, hx), geom.Clamp(local.Y, -hy, hy))
		d := local.Sub(closest)
		dist := d.Length()
		if dist >= radius {
			return contact{}, false
		}
		n, _ := d.Normalize()
		return contact{normal: n.Rotate(box.Rotation), depth: radius - dist}, true
	}

	// Center inside the box: push out along the shallowest face
	dx := hx - math.Abs(local.X)
	dy := hy - math.Abs(local.Y)
	var n geom.Vec2
	var depth float64
	if dx < dy {
		n = geom.V(math.Copysign(1, local.X), 0)
		depth = dx + radius
	} else {
		n = geom.V(0, math.Copysign(1, local.Y))
		depth = dy + radius
	}
	return contact{normal: n.Rotate(box.Rotation), depth: depth}, true
}

func inverseMass(b *Body) float64 {
	if b.Kind != Dynamic {
		return 0
	}
	area := b.Shape.Area()
	if area <= 0 {
		return 0
	}
	return 1 / area
}

// resolve separates the pair and applies restitution and friction impulses.
func resolve(a, b *Body, c contact) {
	invA, invB := inverseMass(a), inverseMass(b)
	invSum := invA + invB
	if invSum == 0 {
		return
	}

	corr := c.normal.Scale(c.depth / invSum)
	a.Position = a.Position.Sub(corr.Scale(invA))
	b.Position = b.Position.Add(corr.Scale(invB))

	rel := b.Velocity.Sub(a.Velocity)
	vn := rel.Dot(c.normal)
	if vn >= 0 {
		return
	}

	e := Combine(a.Restitution, b.Restitution)
	j := -(1 + e) * vn / invSum
	impulse := c.normal.Scale(j)
	a.Velocity = a.Velocity.Sub(impulse.Scale(invA))
	b.Velocity = b.Velocity.Add(impulse.Scale(invB))

	mu := Combine(a.Friction, b.Friction)
	if mu <= 0 {
		return
	}
	rel = b.Velocity.Sub(a.Velocity)
	tangent, ok := rel.Sub(c.normal.Scale(rel.Dot(c.normal))).Normalize()
	if !ok {
		return
	}
	jt := geom.Clamp(-rel.Dot(tangent)/invSum, -mu*j, mu*j)
	friction := tangent.Scale(jt)
	a.Velocity = a.Velocity.Sub(friction.Scale(invA))
	b.Velocity = b.Velocity.Add(friction.Scale(invB))
}
