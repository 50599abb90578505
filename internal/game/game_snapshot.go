package game

import (
	"sync/atomic"
	"time"

	"crash-ball/internal/geom"
)

// ResourceLimits caps what a snapshot carries
type ResourceLimits struct {
	MaxBalls     int // Rendered balls per snapshot
	MaxWaves     int // Rendered energy waves per snapshot
	MaxObstacles int // Corners plus barriers
}

// DefaultLimits leaves headroom over the live-ball cap
var DefaultLimits = ResourceLimits{
	MaxBalls:     32,
	MaxWaves:     32,
	MaxObstacles: 8,
}

// BallSnapshot is an immutable copy of ball state for rendering
type BallSnapshot struct {
	ID        EntityID  `json:"id" msgpack:"id"`
	Position  geom.Vec2 `json:"position" msgpack:"position"`
	Velocity  geom.Vec2 `json:"velocity" msgpack:"velocity"`
	Radius    float64   `json:"radius" msgpack:"radius"`
	Energized bool      `json:"energized" msgpack:"energized"`
}

// ObstacleSnapshot is a static collider for rendering
type ObstacleSnapshot struct {
	ID       EntityID  `json:"id" msgpack:"id"`
	Kind     string    `json:"kind" msgpack:"kind"`
	Anchor   string    `json:"anchor" msgpack:"anchor"`
	Position geom.Vec2 `json:"position" msgpack:"position"`
	Rotation float64   `json:"rotation" msgpack:"rotation"`
	Radius   float64   `json:"radius,omitempty" msgpack:"radius,omitempty"`
	HalfW    float64   `json:"halfW,omitempty" msgpack:"halfW,omitempty"`
	HalfH    float64   `json:"halfH,omitempty" msgpack:"halfH,omitempty"`
}

// PlayerSnapshot is the paddle state
type PlayerSnapshot struct {
	ID       EntityID  `json:"id" msgpack:"id"`
	Position geom.Vec2 `json:"position" msgpack:"position"`
	Velocity geom.Vec2 `json:"velocity" msgpack:"velocity"`
	Radius   float64   `json:"radius" msgpack:"radius"`
}

// WaveSnapshot is an energy wave ring
type WaveSnapshot struct {
	ID     EntityID  `json:"id" msgpack:"id"`
	Center geom.Vec2 `json:"center" msgpack:"center"`
	Radius float64   `json:"radius" msgpack:"radius"`
}

// GameSnapshot is a complete immutable game state for rendering.
// All slices are pre-allocated and capped.
type GameSnapshot struct {
	Sequence   uint64    `json:"sequence" msgpack:"sequence"`
	Timestamp  time.Time `json:"timestamp" msgpack:"timestamp"`
	TickNumber uint64    `json:"tick" msgpack:"tick"`
	Seed       int64     `json:"seed" msgpack:"seed"`

	Arena     geom.Rectangle     `json:"arena" msgpack:"arena"`
	Balls     []BallSnapshot     `json:"balls" msgpack:"balls"`
	Obstacles []ObstacleSnapshot `json:"obstacles" msgpack:"obstacles"`
	Waves     []WaveSnapshot     `json:"waves" msgpack:"waves"`
	Player    *PlayerSnapshot    `json:"player,omitempty" msgpack:"player,omitempty"`

	Stats Stats `json:"stats" msgpack:"stats"`

	player PlayerSnapshot
}

// SnapshotPool pre-allocates snapshots to avoid GC pressure.
// Uses triple buffering for lock-free producer/consumer.
type SnapshotPool struct {
	snapshots [3]GameSnapshot
	limits    ResourceLimits
	writeIdx  uint32 // atomic - producer index
	readIdx   uint32 // atomic - consumer index
	sequence  uint64 // atomic - monotonic sequence
}

// NewSnapshotPool creates a pool with pre-allocated slices
func NewSnapshotPool(limits ResourceLimits) *SnapshotPool {
	pool := &SnapshotPool{limits: limits}

	for i := 0; i < 3; i++ {
		pool.snapshots[i] = GameSnapshot{
			Balls:     make([]BallSnapshot, 0, limits.MaxBalls),
			Obstacles: make([]ObstacleSnapshot, 0, limits.MaxObstacles),
			Waves:     make([]WaveSnapshot, 0, limits.MaxWaves),
		}
	}

	return pool
}

// AcquireWrite gets the next write slot (producer only, called from the tick).
// Returns a snapshot with reset slices but preserved capacity.
func (p *SnapshotPool) AcquireWrite() *GameSnapshot {
	idx := (atomic.LoadUint32(&p.readIdx) + 1) % 3
	atomic.StoreUint32(&p.writeIdx, idx)
	snap := &p.snapshots[idx]

	snap.Balls = snap.Balls[:0]
	snap.Obstacles = snap.Obstacles[:0]
	snap.Waves = snap.Waves[:0]
	snap.Player = nil
	snap.Stats = Stats{}

	snap.Sequence = atomic.AddUint64(&p.sequence, 1)
	snap.Timestamp = time.Now()

	return snap
}

// PublishWrite marks write complete and advances the read pointer
func (p *SnapshotPool) PublishWrite() {
	atomic.StoreUint32(&p.readIdx, atomic.LoadUint32(&p.writeIdx))
}

// AcquireRead gets the latest complete snapshot (consumer only)
func (p *SnapshotPool) AcquireRead() *GameSnapshot {
	idx := atomic.LoadUint32(&p.readIdx) % 3
	return &p.snapshots[idx]
}

// GetLimits returns the resource limits
func (p *SnapshotPool) GetLimits() ResourceLimits {
	return p.limits
}

// FillSnapshot copies the world into snap, respecting the pool limits
func (w *World) FillSnapshot(snap *GameSnapshot, limits ResourceLimits) {
	snap.TickNumber = w.tick
	snap.Seed = w.Config.Seed
	snap.Arena = w.Arena
	snap.Stats = w.Stats()

	for _, id := range w.Obstacles.Entities() {
		if len(snap.Obstacles) >= limits.MaxObstacles {
			break
		}
		ob, _ := w.Obstacles.Get(id)
		body, ok := w.Bodies.Get(id)
		if !ok {
			continue
		}
		entry := ObstacleSnapshot{
			ID:       id,
			Kind:     ob.Kind.String(),
			Anchor:   ob.Anchor.String(),
			Position: body.Position,
			Rotation: body.Rotation,
		}
		if ob.Kind == ObstacleCorner {
			entry.Radius = body.Shape.Radius
		} else {
			entry.HalfW, entry.HalfH = body.Shape.HalfExtents.X, body.Shape.HalfExtents.Y
		}
		snap.Obstacles = append(snap.Obstacles, entry)
	}

	for _, id := range w.Balls.Entities() {
		if len(snap.Balls) >= limits.MaxBalls {
			break
		}
		ball, _ := w.Balls.Get(id)
		body, ok := w.Bodies.Get(id)
		if !ok {
			continue
		}
		snap.Balls = append(snap.Balls, BallSnapshot{
			ID:        id,
			Position:  body.Position,
			Velocity:  body.Velocity,
			Radius:    body.Shape.Radius,
			Energized: ball.Energized,
		})
	}

	if id, body, ok := w.Player(); ok {
		snap.player = PlayerSnapshot{
			ID:       id,
			Position: body.Position,
			Velocity: body.Velocity,
			Radius:   body.Shape.Radius,
		}
		snap.Player = &snap.player

		for _, wid := range w.Waves.Entities() {
			if len(snap.Waves) >= limits.MaxWaves {
				break
			}
			wave, _ := w.Waves.Get(wid)
			snap.Waves = append(snap.Waves, WaveSnapshot{
				ID:     wid,
				Center: body.Position,
				Radius: wave.Radius(),
			})
		}
	}
}
