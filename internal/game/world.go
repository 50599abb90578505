package game

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"crash-ball/internal/geom"
	"crash-ball/internal/physics"
)

// SimConfig tunes the simulation. Zero values fall back to the defaults.
type SimConfig struct {
	TickRate      int           // Fast ticks per simulated second
	SpawnInterval time.Duration // Ball spawn cadence in simulated time
	MaxBalls      int           // Live ball cap
	Seed          int64         // RNG seed for spawn corners and angles

	// EnergyGrowthRate is the wave scale gained per simulated second
	EnergyGrowthRate float64

	// RenormalizeOnCollisionStop reapplies the speed rule to a ball when one of
	// its contacts ends, in addition to the per-tick pass.
	RenormalizeOnCollisionStop bool
}

// DefaultSimConfig returns the stock game tuning
func DefaultSimConfig() SimConfig {
	return SimConfig{
		TickRate:         DefaultTickRate,
		SpawnInterval:    DefaultSpawnInterval,
		MaxBalls:         MaxBallCount,
		Seed:             1,
		EnergyGrowthRate: DefaultEnergyGrowthRate,
	}
}

func (c SimConfig) withDefaults() SimConfig {
	d := DefaultSimConfig()
	if c.TickRate <= 0 {
		c.TickRate = d.TickRate
	}
	if c.SpawnInterval <= 0 {
		c.SpawnInterval = d.SpawnInterval
	}
	if c.MaxBalls <= 0 {
		c.MaxBalls = d.MaxBalls
	}
	if c.EnergyGrowthRate <= 0 || math.IsNaN(c.EnergyGrowthRate) || math.IsInf(c.EnergyGrowthRate, 0) {
		c.EnergyGrowthRate = d.EnergyGrowthRate
	}
	return c
}

// Hooks are optional callbacks fired synchronously from inside Step
type Hooks struct {
	OnBallSpawn   func(id EntityID, pos, vel geom.Vec2, corner geom.Anchor)
	OnBallDespawn func(id EntityID, pos geom.Vec2)
	OnEnergize    func(ball, wave EntityID)
	OnWaveFire    func(wave EntityID, center geom.Vec2)
	OnWaveExpire  func(wave EntityID)
	OnCollision   func(c Collision)
}

// Collision is a physics contact event translated to entity ids
type Collision struct {
	Started bool
	A, B    EntityID
}

// Stats are running counters since the world was created
type Stats struct {
	Tick         uint64 `json:"tick" msgpack:"tick"`
	Balls        int    `json:"balls" msgpack:"balls"`
	Waves        int    `json:"waves" msgpack:"waves"`
	Spawned      uint64 `json:"spawned" msgpack:"spawned"`
	Despawned    uint64 `json:"despawned" msgpack:"despawned"`
	Energized    uint64 `json:"energized" msgpack:"energized"`
	WavesFired   uint64 `json:"wavesFired" msgpack:"wavesFired"`
	WavesExpired uint64 `json:"wavesExpired" msgpack:"wavesExpired"`
	Collisions   uint64 `json:"collisions" msgpack:"collisions"`
}

// World owns every entity and the shared resources of one simulation.
// It is not safe for concurrent use.
type World struct {
	Config SimConfig
	Arena  geom.Rectangle
	Input  *ActionState
	Hooks  Hooks

	Bodies    *Store[*physics.Body]
	Balls     *Store[Ball]
	Obstacles *Store[Obstacle]
	Waves     *Store[EnergyWave]

	// BallCount is the live ball counter, kept equal to Balls.Len()
	BallCount int

	player     EntityID
	engine     physics.Engine
	rng        *rand.Rand
	nextID     EntityID
	tick       uint64
	dt         float64
	spawnTicks uint64
	collisions []Collision
	stats      Stats

	bodyScratch []*physics.Body
}

// NewWorld creates an empty world over arena. A nil engine uses physics.NewSpace.
func NewWorld(arena geom.Rectangle, cfg SimConfig, engine physics.Engine) (*World, error) {
	if arena.W <= 0 || arena.H <= 0 {
		return nil, fmt.Errorf("world: arena %vx%v: %w", arena.W, arena.H, ErrViewportTooSmall)
	}
	cfg = cfg.withDefaults()
	if engine == nil {
		engine = physics.NewSpace()
	}

	dt := 1.0 / float64(cfg.TickRate)
	spawnTicks := uint64(math.Round(cfg.SpawnInterval.Seconds() / dt))
	if spawnTicks == 0 {
		spawnTicks = 1
	}

	return &World{
		Config:     cfg,
		Arena:      arena,
		Input:      NewActionState(),
		Bodies:     NewStore[*physics.Body](),
		Balls:      NewStore[Ball](),
		Obstacles:  NewStore[Obstacle](),
		Waves:      NewStore[EnergyWave](),
		engine:     engine,
		rng:        rand.New(rand.NewSource(cfg.Seed)),
		dt:         dt,
		spawnTicks: spawnTicks,
	}, nil
}

// Setup runs the startup systems: obstacles then the player
func (w *World) Setup() {
	w.SpawnCorners()
	w.SpawnBarriers()
	w.SpawnPlayer()
}

// DT returns the fixed timestep in seconds
func (w *World) DT() float64 {
	return w.dt
}

// Tick returns the number of completed steps
func (w *World) Tick() uint64 {
	return w.tick
}

// SpawnTicks returns how many fast ticks separate two spawn attempts
func (w *World) SpawnTicks() uint64 {
	return w.spawnTicks
}

// Stats returns a copy of the counters
func (w *World) Stats() Stats {
	s := w.stats
	s.Tick = w.tick
	s.Balls = w.BallCount
	s.Waves = w.Waves.Len()
	return s
}

// Collisions returns the events drained during the last Step
func (w *World) Collisions() []Collision {
	return w.collisions
}

func (w *World) newEntity() EntityID {
	w.nextID++
	return w.nextID
}

// Step advances the simulation by one fixed timestep
func (w *World) Step() {
	w.tick++
	w.collisions = w.collisions[:0]

	// Slow cadence: spawning only ever adds entities
	if w.tick%w.spawnTicks == 0 {
		w.SpawnBall()
	}

	w.MovePlayer()
	w.UpdateEnergy()
	w.FireEnergy()
	w.EnergyHitBalls()

	w.stepPhysics()

	w.ControlBallSpeed()
	w.DespawnBalls()

	w.Input.Tick()
}

// stepPhysics hands every body to the engine in id order and drains its events
func (w *World) stepPhysics() {
	w.bodyScratch = w.bodyScratch[:0]
	for _, id := range w.Bodies.SortedEntities() {
		b, _ := w.Bodies.Get(id)
		w.bodyScratch = append(w.bodyScratch, b)
	}

	events := w.engine.Step(w.dt, w.bodyScratch)
	for _, ev := range events {
		c := Collision{
			Started: ev.Kind == physics.CollisionStarted,
			A:       EntityID(ev.A),
			B:       EntityID(ev.B),
		}
		w.collisions = append(w.collisions, c)
		w.stats.Collisions++

		if !c.Started && w.Config.RenormalizeOnCollisionStop {
			w.renormalize(c.A)
			w.renormalize(c.B)
		}
		if w.Hooks.OnCollision != nil {
			w.Hooks.OnCollision(c)
		}
	}
}
