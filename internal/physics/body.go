// Package physics defines the contract between the simulation and a rigid-body
// engine. Space implements it on Chipmunk2D; Solver is a small pure-Go
// reference engine with bit-exact replays.
//
// The simulation never integrates motion itself. It describes bodies (kind,
// collider, material, velocity) and reads back positions, velocities and the
// collision events of each step.
package physics

import (
	"errors"
	"fmt"
	"math"

	"crash-ball/internal/geom"
)

// BodyID identifies a body; the simulation uses its entity id.
type BodyID uint32

// BodyKind selects how the engine treats a body
type BodyKind uint8

const (
	// Dynamic bodies are integrated and respond to contacts.
	Dynamic BodyKind = iota
	// Fixed bodies never move.
	Fixed
	// KinematicPositionBased bodies are moved by the caller setting Position;
	// the engine derives their velocity from the displacement.
	KinematicPositionBased
)

func (k BodyKind) String() string {
	switch k {
	case Dynamic:
		return "dynamic"
	case Fixed:
		return "fixed"
	case KinematicPositionBased:
		return "kinematic_position_based"
	default:
		return "unknown"
	}
}

// ShapeKind selects the collider geometry
type ShapeKind uint8

const (
	ShapeCircle ShapeKind = iota
	ShapeBox
)

// Shape is a collider. Boxes are centered on the body and rotated with it.
type Shape struct {
	Kind        ShapeKind
	Radius      float64   // ShapeCircle
	HalfExtents geom.Vec2 // ShapeBox
}

// Circle returns a circular collider
func Circle(radius float64) Shape {
	return Shape{Kind: ShapeCircle, Radius: radius}
}

// Box returns a box collider from its half extents
func Box(halfW, halfH float64) Shape {
	return Shape{Kind: ShapeBox, HalfExtents: geom.V(halfW, halfH)}
}

// Area is used as the mass of dynamic bodies (unit density)
func (s Shape) Area() float64 {
	if s.Kind == ShapeBox {
		return 4 * s.HalfExtents.X * s.HalfExtents.Y
	}
	return math.Pi * s.Radius * s.Radius
}

// boundingRadius is the radius of a circle enclosing the shape
func (s Shape) boundingRadius() float64 {
	if s.Kind == ShapeBox {
		return s.HalfExtents.Length()
	}
	return s.Radius
}

// CombineRule decides how two materials' coefficients merge on contact.
// When the two bodies disagree, the rule with the higher value wins
// (Max > Multiply > Min > Average).
type CombineRule uint8

const (
	CombineAverage CombineRule = iota
	CombineMin
	CombineMultiply
	CombineMax
)

// Coefficient is a material coefficient together with its combine rule
type Coefficient struct {
	Value float64
	Rule  CombineRule
}

// Combine merges the coefficients of two touching bodies
func Combine(a, b Coefficient) float64 {
	rule := a.Rule
	if b.Rule > rule {
		rule = b.Rule
	}
	switch rule {
	case CombineMin:
		return math.Min(a.Value, b.Value)
	case CombineMultiply:
		return a.Value * b.Value
	case CombineMax:
		return math.Max(a.Value, b.Value)
	default:
		return (a.Value + b.Value) / 2
	}
}

// Body is one rigid body as seen by the engine. The simulation owns the
// value; the engine mutates Position, Velocity and Rotation in place.
type Body struct {
	ID       BodyID
	Kind     BodyKind
	Shape    Shape
	Position geom.Vec2
	Rotation float64 // radians
	Velocity geom.Vec2

	Restitution Coefficient
	Friction    Coefficient

	GravityScale float64
	LockRotation bool
	CCD          bool // continuous collision detection
	Events       bool // report collision start/stop for this body
}

// EventKind distinguishes the two collision events
type EventKind uint8

const (
	CollisionStarted EventKind = iota
	CollisionStopped
)

func (k EventKind) String() string {
	if k == CollisionStarted {
		return "started"
	}
	return "stopped"
}

// CollisionEvent reports that two bodies began or ceased touching during a step
type CollisionEvent struct {
	Kind EventKind
	A, B BodyID
}

// Involves reports whether id is one of the two bodies
func (e CollisionEvent) Involves(id BodyID) bool {
	return e.A == id || e.B == id
}

// Engine is the rigid-body engine port. Step advances every body by dt
// seconds and returns the collision events produced during the step.
type Engine interface {
	Step(dt float64, bodies []*Body) []CollisionEvent
}

// Engine names accepted by New
const (
	EngineChipmunk  = "chipmunk"
	EngineReference = "reference"
)

// ErrUnknownEngine is returned by New for an unrecognised engine name
var ErrUnknownEngine = errors.New("unknown physics engine")

// New builds an engine by name. An empty name selects Chipmunk.
func New(name string) (Engine, error) {
	switch name {
	case "", EngineChipmunk:
		return NewSpace(), nil
	case EngineReference:
		return NewSolver(), nil
	default:
		return nil, fmt.Errorf("physics: %q: %w", name, ErrUnknownEngine)
	}
}
