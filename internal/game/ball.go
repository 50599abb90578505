package game

import (
	"crash-ball/internal/geom"
	"crash-ball/internal/physics"
)

// Ball is the per-ball state the physics engine does not own
type Ball struct {
	Energized bool      // One-way: set by an energy wave, cleared only by despawn
	Heading   geom.Vec2 // Last non-zero unit direction, the zero-velocity fallback
}

// Speed returns the speed the ball must travel at
func (b Ball) Speed() float64 {
	if b.Energized {
		return BallEnergizedSpeed
	}
	return BallSpeed
}

var ballMaterial = struct {
	restitution, friction physics.Coefficient
}{
	restitution: physics.Coefficient{Value: 1, Rule: physics.CombineMin},
	friction:    physics.Coefficient{Value: 0, Rule: physics.CombineMin},
}

// spawnPoints pairs each corner with its base launch angle in degrees
var spawnPoints = [...]struct {
	corner geom.Anchor
	angle  float64
}{
	{geom.AnchorTopLeft, -45},
	{geom.AnchorTopRight, -135},
	{geom.AnchorBottomLeft, 45},
	{geom.AnchorBottomRight, 135},
}

// BallLaunch returns the spawn position and velocity for a ball leaving corner
// spawn point idx at its base angle plus offsetDeg. The ball starts touching
// the outside of the corner obstacle.
func BallLaunch(arena geom.Rectangle, idx int, offsetDeg float64) (pos, vel geom.Vec2, corner geom.Anchor) {
	sp := spawnPoints[idx%len(spawnPoints)]
	dir := geom.FromAngle(geom.Deg(sp.angle + offsetDeg))
	pos = arena.Anchor(sp.corner).Add(dir.Scale(CornerRadius + BallRadius))
	vel = dir.Scale(BallSpeed)
	return pos, vel, sp.corner
}

// SpawnBall adds one ball from a random corner unless the cap is reached.
// Returns the new entity, or zero when nothing was spawned.
func (w *World) SpawnBall() EntityID {
	if w.BallCount >= w.Config.MaxBalls {
		return 0
	}

	idx := w.rng.Intn(len(spawnPoints))
	offset := w.rng.Float64()*2*BallSpawnSpread - BallSpawnSpread
	pos, vel, corner := BallLaunch(w.Arena, idx, offset)
	return w.AddBall(pos, vel, corner)
}

// AddBall creates a ball body at pos moving at vel and bumps the counter
func (w *World) AddBall(pos, vel geom.Vec2, corner geom.Anchor) EntityID {
	id := w.newEntity()
	heading, _ := vel.Normalize()

	w.Bodies.Set(id, &physics.Body{
		ID:           physics.BodyID(id),
		Kind:         physics.Dynamic,
		Shape:        physics.Circle(BallRadius),
		Position:     pos,
		Velocity:     vel,
		Restitution:  ballMaterial.restitution,
		Friction:     ballMaterial.friction,
		LockRotation: true,
		CCD:          true,
		Events:       true,
	})
	w.Balls.Set(id, Ball{Heading: heading})
	w.BallCount++
	w.stats.Spawned++

	if w.Hooks.OnBallSpawn != nil {
		w.Hooks.OnBallSpawn(id, pos, vel, corner)
	}
	return id
}

// ProjectSpeed rescales v to speed. A zero or non-finite v takes the direction
// of fallback, and +Y when that is unusable too.
func ProjectSpeed(v geom.Vec2, speed float64, fallback geom.Vec2) geom.Vec2 {
	dir, ok := v.Normalize()
	if !ok {
		if dir, ok = fallback.Normalize(); !ok {
			dir = geom.V(0, 1)
		}
	}
	return dir.Scale(speed)
}

// setBallVelocity points ball id along dir at its required speed
func (w *World) setBallVelocity(id EntityID, body *physics.Body, ball Ball, dir geom.Vec2) {
	v := ProjectSpeed(dir, ball.Speed(), ball.Heading)
	body.Velocity = v
	ball.Heading = v.Scale(1 / ball.Speed())
	w.Balls.Set(id, ball)
}

// ControlBallSpeed pins every ball to its constant speed while keeping the
// direction the engine produced.
func (w *World) ControlBallSpeed() {
	for _, id := range w.Balls.Entities() {
		w.renormalize(id)
	}
}

func (w *World) renormalize(id EntityID) {
	ball, ok := w.Balls.Get(id)
	if !ok {
		return
	}
	body, ok := w.Bodies.Get(id)
	if !ok {
		return
	}
	w.setBallVelocity(id, body, ball, body.Velocity)
}

// DespawnBalls removes balls that left the arena expanded by the corner radius
func (w *World) DespawnBalls() {
	for _, id := range w.Balls.Entities() {
		body, ok := w.Bodies.Get(id)
		if !ok {
			continue
		}
		if !IsOutOfBounds(w.Arena, body.Position) {
			continue
		}
		w.removeBall(id, body.Position)
	}
}

func (w *World) removeBall(id EntityID, pos geom.Vec2) {
	w.Bodies.Remove(id)
	w.Balls.Remove(id)
	if w.BallCount > 0 {
		w.BallCount--
	}
	w.stats.Despawned++

	if w.Hooks.OnBallDespawn != nil {
		w.Hooks.OnBallDespawn(id, pos)
	}
}
