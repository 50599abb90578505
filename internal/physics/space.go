package physics

import (
	"math"
	"sort"

	"crash-ball/internal/geom"

	"github.com/jakecoffman/cp"
)

// bodyCollisionType tags every shape so a single handler sees all pairs
const bodyCollisionType cp.CollisionType = 1

// spaceBody ties a caller body to its Chipmunk counterpart
type spaceBody struct {
	id       BodyID
	kind     BodyKind
	collider Shape
	body     *cp.Body
	shape    *cp.Shape

	restitution Coefficient
	friction    Coefficient
	events      bool

	// State last pushed to or read back from Chipmunk
	position geom.Vec2
	rotation float64
}

// Space is an Engine backed by a Chipmunk2D space.
//
// Bodies are mirrored into the space on every Step: new ids are added, ids
// missing from the slice are removed and caller edits to position or
// velocity are pushed before stepping. Material combine rules are applied per
// contact in the pre-solve callback, overriding Chipmunk's multiplication.
// CCD bodies are handled by substepping the space.
//
// Gravity is always zero and GravityScale is ignored.
type Space struct {
	space    *cp.Space
	bodies   map[BodyID]*spaceBody
	present  map[BodyID]bool
	events   []CollisionEvent
	stepping bool

	stepCount uint64
}

// NewSpace creates an empty Chipmunk-backed engine
func NewSpace() *Space {
	s := &Space{
		space:   cp.NewSpace(),
		bodies:  make(map[BodyID]*spaceBody),
		present: make(map[BodyID]bool),
	}
	s.space.SetGravity(cp.Vector{})

	handler := s.space.NewCollisionHandler(bodyCollisionType, bodyCollisionType)
	handler.BeginFunc = s.begin
	handler.PreSolveFunc = s.preSolve
	handler.SeparateFunc = s.separate

	return s
}

// Steps returns how many times Step has run
func (s *Space) Steps() uint64 {
	return s.stepCount
}

// Len returns the number of bodies mirrored in the space
func (s *Space) Len() int {
	return len(s.bodies)
}

// Step implements Engine
func (s *Space) Step(dt float64, bodies []*Body) []CollisionEvent {
	s.stepCount++
	if dt <= 0 {
		return nil
	}

	s.sync(dt, bodies)

	substeps := substepCount(dt, bodies)
	h := dt / float64(substeps)

	s.events = nil
	s.stepping = true
	for i := 0; i < substeps; i++ {
		s.space.Step(h)
	}
	s.stepping = false

	for _, b := range bodies {
		s.readBack(b)
	}

	events := s.events
	s.events = nil
	sortEvents(events)
	return events
}

// sync mirrors the caller's bodies into the space
func (s *Space) sync(dt float64, bodies []*Body) {
	for id := range s.present {
		delete(s.present, id)
	}

	for _, b := range bodies {
		s.present[b.ID] = true

		sb, ok := s.bodies[b.ID]
		if ok && (sb.kind != b.Kind || sb.collider != b.Shape) {
			s.remove(sb)
			ok = false
		}
		if !ok {
			sb = s.add(b)
		}
		s.push(sb, b, dt)
	}

	var gone []BodyID
	for id := range s.bodies {
		if !s.present[id] {
			gone = append(gone, id)
		}
	}
	sort.Slice(gone, func(i, j int) bool { return gone[i] < gone[j] })
	for _, id := range gone {
		s.remove(s.bodies[id])
	}
}

func (s *Space) add(b *Body) *spaceBody {
	var body *cp.Body
	switch b.Kind {
	case Fixed:
		body = cp.NewStaticBody()
	case KinematicPositionBased:
		body = cp.NewKinematicBody()
	default:
		mass := b.Shape.Area()
		if mass <= 0 {
			mass = 1
		}
		moment := math.Inf(1)
		if !b.LockRotation {
			moment = momentFor(mass, b.Shape)
		}
		body = cp.NewBody(mass, moment)
	}
	body.SetPosition(toCP(b.Position))
	body.SetAngle(b.Rotation)
	body.UserData = b.ID
	s.space.AddBody(body)

	var shape *cp.Shape
	if b.Shape.Kind == ShapeBox {
		shape = cp.NewBox(body, 2*b.Shape.HalfExtents.X, 2*b.Shape.HalfExtents.Y, 0)
	} else {
		shape = cp.NewCircle(body, b.Shape.Radius, cp.Vector{})
	}
	shape.SetElasticity(b.Restitution.Value)
	shape.SetFriction(b.Friction.Value)
	shape.SetCollisionType(bodyCollisionType)

	sb := &spaceBody{
		id:       b.ID,
		kind:     b.Kind,
		collider: b.Shape,
		body:     body,
		shape:    shape,
		position: b.Position,
		rotation: b.Rotation,
	}
	shape.UserData = sb
	s.space.AddShape(shape)

	s.bodies[b.ID] = sb
	return sb
}

// remove drops a body outside of Step; its pending separations are not reported
func (s *Space) remove(sb *spaceBody) {
	s.space.RemoveShape(sb.shape)
	s.space.RemoveBody(sb.body)
	delete(s.bodies, sb.id)
}

// push copies caller state into Chipmunk before a step
func (s *Space) push(sb *spaceBody, b *Body, dt float64) {
	sb.restitution = b.Restitution
	sb.friction = b.Friction
	sb.events = b.Events

	switch b.Kind {
	case Fixed:
		if b.Position != sb.position || b.Rotation != sb.rotation {
			sb.body.SetPosition(toCP(b.Position))
			sb.body.SetAngle(b.Rotation)
			s.space.ReindexShapesForBody(sb.body)
		}
	case KinematicPositionBased:
		// Chipmunk moves kinematic bodies by velocity, so the displacement
		// the caller asked for becomes this step's velocity
		v := b.Position.Sub(fromCP(sb.body.Position())).Scale(1 / dt)
		sb.body.SetVelocity(v.X, v.Y)
		b.Velocity = v
	default:
		if b.Position != sb.position {
			sb.body.SetPosition(toCP(b.Position))
		}
		if b.Rotation != sb.rotation {
			sb.body.SetAngle(b.Rotation)
		}
		sb.body.SetVelocity(b.Velocity.X, b.Velocity.Y)
	}

	sb.position = b.Position
	sb.rotation = b.Rotation
}

// readBack copies the integrated state out of Chipmunk after a step
func (s *Space) readBack(b *Body) {
	sb, ok := s.bodies[b.ID]
	if !ok {
		return
	}

	switch b.Kind {
	case Dynamic:
		b.Position = fromCP(sb.body.Position())
		b.Velocity = fromCP(sb.body.Velocity())
		if !b.LockRotation {
			b.Rotation = sb.body.Angle()
		}
	case KinematicPositionBased:
		// Snap onto the requested position so substeps never accumulate drift
		sb.body.SetPosition(toCP(b.Position))
	}

	sb.position = b.Position
	sb.rotation = b.Rotation
}

func (s *Space) begin(arb *cp.Arbiter, _ *cp.Space, _ interface{}) bool {
	s.record(arb, CollisionStarted)
	return true
}

// preSolve applies the combine rules of both materials to the contact
func (s *Space) preSolve(arb *cp.Arbiter, _ *cp.Space, _ interface{}) bool {
	a, b := arbiterBodies(arb)
	if a == nil || b == nil {
		return true
	}
	arb.SetRestitution(Combine(a.restitution, b.restitution))
	arb.SetFriction(Combine(a.friction, b.friction))
	return true
}

func (s *Space) separate(arb *cp.Arbiter, _ *cp.Space, _ interface{}) {
	s.record(arb, CollisionStopped)
}

func (s *Space) record(arb *cp.Arbiter, kind EventKind) {
	if !s.stepping {
		return
	}
	a, b := arbiterBodies(arb)
	if a == nil || b == nil || !(a.events || b.events) {
		return
	}
	lo, hi := a.id, b.id
	if lo > hi {
		lo, hi = hi, lo
	}
	s.events = append(s.events, CollisionEvent{Kind: kind, A: lo, B: hi})
}

func arbiterBodies(arb *cp.Arbiter) (*spaceBody, *spaceBody) {
	sa, sb := arb.Shapes()
	a, _ := sa.UserData.(*spaceBody)
	b, _ := sb.UserData.(*spaceBody)
	return a, b
}

func momentFor(mass float64, shape Shape) float64 {
	if shape.Kind == ShapeBox {
		return cp.MomentForBox(mass, 2*shape.HalfExtents.X, 2*shape.HalfExtents.Y)
	}
	return cp.MomentForCircle(mass, 0, shape.Radius, cp.Vector{})
}

func toCP(v geom.Vec2) cp.Vector {
	return cp.Vector{X: v.X, Y: v.Y}
}

func fromCP(v cp.Vector) geom.Vec2 {
	return geom.V(v.X, v.Y)
}
