package game

import (
	"crash-ball/internal/geom"
	"crash-ball/internal/physics"
)

// ObstacleKind distinguishes the static colliders
type ObstacleKind uint8

const (
	ObstacleCorner ObstacleKind = iota
	ObstacleBarrier
)

func (k ObstacleKind) String() string {
	if k == ObstacleBarrier {
		return "barrier"
	}
	return "corner"
}

// Obstacle tags a static collider with where it was placed
type Obstacle struct {
	Kind   ObstacleKind
	Anchor geom.Anchor
}

// Perfectly elastic and frictionless; Min combine lets the softer side win
var (
	obstacleRestitution = physics.Coefficient{Value: 1, Rule: physics.CombineMin}
	obstacleFriction    = physics.Coefficient{Value: 0, Rule: physics.CombineMin}
)

var cornerAnchors = [...]geom.Anchor{
	geom.AnchorTopLeft,
	geom.AnchorTopRight,
	geom.AnchorBottomLeft,
	geom.AnchorBottomRight,
}

// barrierPlacements covers the left, top and right edges; the bottom stays
// open for the player. Rotation turns the long axis onto the edge.
var barrierPlacements = [...]struct {
	anchor geom.Anchor
	degree float64
}{
	{geom.AnchorLeftMiddle, -90},
	{geom.AnchorTopMiddle, 180},
	{geom.AnchorRightMiddle, 90},
}

// SpawnCorners places a fixed circle at each arena corner
func (w *World) SpawnCorners() {
	for _, a := range cornerAnchors {
		id := w.newEntity()
		w.Bodies.Set(id, &physics.Body{
			ID:          physics.BodyID(id),
			Kind:        physics.Fixed,
			Shape:       physics.Circle(CornerRadius),
			Position:    w.Arena.Anchor(a),
			Restitution: obstacleRestitution,
			Friction:    obstacleFriction,
		})
		w.Obstacles.Set(id, Obstacle{Kind: ObstacleCorner, Anchor: a})
	}
}

// SpawnBarriers places a thin fixed box along each closed edge
func (w *World) SpawnBarriers() {
	for _, p := range barrierPlacements {
		id := w.newEntity()
		w.Bodies.Set(id, &physics.Body{
			ID:          physics.BodyID(id),
			Kind:        physics.Fixed,
			Shape:       physics.Box(w.Arena.W/2, BarrierThickness/2),
			Position:    w.Arena.Anchor(p.anchor),
			Rotation:    geom.Deg(p.degree),
			Restitution: obstacleRestitution,
			Friction:    obstacleFriction,
		})
		w.Obstacles.Set(id, Obstacle{Kind: ObstacleBarrier, Anchor: p.anchor})
	}
}
