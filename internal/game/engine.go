package game

import (
	"log"
	"sync"
	"time"

	"crash-ball/internal/geom"
	"crash-ball/internal/physics"
)

// EngineConfig configures the real-time wrapper around a World
type EngineConfig struct {
	ViewportWidth  float64
	ViewportHeight float64
	Margin         float64
	Sim            SimConfig
	Limits         ResourceLimits

	// Physics overrides the collision engine; nil uses the Chipmunk-backed physics.Space
	Physics physics.Engine
}

// DefaultEngineConfig returns an 850x850 viewport with the stock tuning
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		ViewportWidth:  850,
		ViewportHeight: 850,
		Margin:         ArenaMargin,
		Sim:            DefaultSimConfig(),
		Limits:         DefaultLimits,
	}
}

// EngineCallbacks receive simulation facts on the tick goroutine. All but
// OnTick run with the engine lock held and must not call back into the Engine.
type EngineCallbacks struct {
	OnTick        func(duration time.Duration, stats Stats)
	OnBallSpawn   func()
	OnBallDespawn func()
	OnEnergize    func()
	OnWaveFire    func()
}

// Engine runs a World on a wall-clock ticker and publishes snapshots
type Engine struct {
	mu    sync.RWMutex
	world *World

	inputMap *InputMap
	held     RawInput
	latched  RawInput // presses seen since the last tick, so taps between ticks still register

	tickRate int
	running  bool
	ticker   *time.Ticker
	stopChan chan struct{}

	callbacks EngineCallbacks

	limits       ResourceLimits
	snapshotPool *SnapshotPool
	eventLog     *EventLog
}

// NewEngine builds the arena, the world and its startup entities
func NewEngine(cfg EngineConfig) (*Engine, error) {
	arena, err := NewArena(cfg.ViewportWidth, cfg.ViewportHeight, cfg.Margin)
	if err != nil {
		return nil, err
	}
	world, err := NewWorld(arena, cfg.Sim, cfg.Physics)
	if err != nil {
		return nil, err
	}
	world.Setup()

	limits := cfg.Limits
	if limits.MaxBalls <= 0 || limits.MaxWaves <= 0 || limits.MaxObstacles <= 0 {
		limits = DefaultLimits
	}
	// Snapshots must hold every live ball
	if world.Config.MaxBalls > limits.MaxBalls {
		limits.MaxBalls = world.Config.MaxBalls
	}

	e := &Engine{
		world:        world,
		inputMap:     DefaultInputMap(),
		tickRate:     world.Config.TickRate,
		stopChan:     make(chan struct{}),
		limits:       limits,
		snapshotPool: NewSnapshotPool(limits),
		eventLog:     NewEventLog(),
	}
	e.installHooks()
	e.ProduceSnapshot()
	return e, nil
}

// installHooks routes world hooks to the event log and the callbacks
func (e *Engine) installHooks() {
	w := e.world
	w.Hooks = Hooks{
		OnBallSpawn: func(id EntityID, pos, vel geom.Vec2, corner geom.Anchor) {
			e.eventLog.EmitSimple(EventTypeBallSpawn, w.Tick(), id, BallSpawnPayload{
				Corner: corner.String(), Position: pos, Velocity: vel,
			})
			if e.callbacks.OnBallSpawn != nil {
				e.callbacks.OnBallSpawn()
			}
		},
		OnBallDespawn: func(id EntityID, pos geom.Vec2) {
			e.eventLog.EmitSimple(EventTypeBallDespawn, w.Tick(), id, BallDespawnPayload{Position: pos})
			if e.callbacks.OnBallDespawn != nil {
				e.callbacks.OnBallDespawn()
			}
		},
		OnEnergize: func(ball, wave EntityID) {
			e.eventLog.EmitSimple(EventTypeEnergize, w.Tick(), ball, EnergizePayload{WaveID: wave})
			if e.callbacks.OnEnergize != nil {
				e.callbacks.OnEnergize()
			}
		},
		OnWaveFire: func(wave EntityID, center geom.Vec2) {
			e.eventLog.EmitSimple(EventTypeWaveFire, w.Tick(), wave, WaveFirePayload{Center: center})
			if e.callbacks.OnWaveFire != nil {
				e.callbacks.OnWaveFire()
			}
		},
		OnWaveExpire: func(wave EntityID) {
			e.eventLog.EmitSimple(EventTypeWaveExpire, w.Tick(), wave, nil)
		},
		OnCollision: func(c Collision) {
			t := EventTypeCollisionStop
			if c.Started {
				t = EventTypeCollisionStart
			}
			e.eventLog.EmitSimple(t, w.Tick(), c.A, CollisionPayload{A: c.A, B: c.B})
		},
	}
}

// SetCallbacks sets event callbacks
func (e *Engine) SetCallbacks(cb EngineCallbacks) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.callbacks = cb
}

// Start begins the game loop
func (e *Engine) Start() {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return
	}
	e.running = true
	e.ticker = time.NewTicker(time.Second / time.Duration(e.tickRate))
	ticker := e.ticker
	e.mu.Unlock()

	go func() {
		for {
			select {
			case <-ticker.C:
				e.tick()
			case <-e.stopChan:
				return
			}
		}
	}()

	log.Printf("🎮 Simulation started at %d TPS (seed %d)", e.tickRate, e.world.Config.Seed)
}

// Stop stops the game loop. Safe to call more than once.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.running {
		return
	}

	e.running = false
	if e.ticker != nil {
		e.ticker.Stop()
	}
	close(e.stopChan)
	log.Println("🛑 Simulation stopped")
}

// Running reports whether the ticker goroutine is active
func (e *Engine) Running() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.running
}

func (e *Engine) tick() {
	start := time.Now()
	stats := e.Step()

	e.mu.RLock()
	onTick := e.callbacks.OnTick
	e.mu.RUnlock()
	if onTick != nil {
		onTick(time.Since(start), stats)
	}
}

// Step advances the world one fixed timestep and publishes a snapshot.
// It is what the ticker calls, and what tests call to step manually.
func (e *Engine) Step() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()

	w := e.world
	w.Input.Update(e.inputMap, e.held.Merge(e.latched))
	e.latched = RawInput{}

	w.Step()

	stats := w.Stats()
	e.eventLog.EmitSimple(EventTypeTick, stats.Tick, 0, TickPayload{
		Seed:        w.Config.Seed,
		Balls:       stats.Balls,
		Waves:       stats.Waves,
		DeltaTimeNs: int64(w.DT() * 1e9),
	})

	e.produceSnapshotLocked()
	return stats
}

// SetInput replaces the held device state. Buttons in raw also latch until
// the next tick consumes them.
func (e *Engine) SetInput(raw RawInput) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.held = raw
	e.latched = e.latched.Merge(RawInput{Buttons: raw.Buttons})
}

// InputMap returns the active bindings
func (e *Engine) InputMap() *InputMap {
	return e.inputMap
}

// Arena returns the arena rectangle
func (e *Engine) Arena() geom.Rectangle {
	return e.world.Arena
}

// Stats returns the world counters
func (e *Engine) Stats() Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.world.Stats()
}

// WithWorld runs fn with exclusive access to the world
func (e *Engine) WithWorld(fn func(w *World)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(e.world)
}

// GetSnapshot returns the latest immutable snapshot for lock-free rendering
func (e *Engine) GetSnapshot() *GameSnapshot {
	return e.snapshotPool.AcquireRead()
}

// ProduceSnapshot creates an immutable snapshot of the current world
func (e *Engine) ProduceSnapshot() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.produceSnapshotLocked()
}

func (e *Engine) produceSnapshotLocked() {
	snap := e.snapshotPool.AcquireWrite()
	e.world.FillSnapshot(snap, e.limits)
	e.snapshotPool.PublishWrite()
}

// StartEventLog initializes the event logging system
func (e *Engine) StartEventLog(filePath string) error {
	return e.eventLog.Start(filePath)
}

// StopEventLog gracefully stops the event logging system
func (e *Engine) StopEventLog() {
	e.eventLog.Stop()
}

// GetEventLogStats returns event log statistics for monitoring
func (e *Engine) GetEventLogStats() map[string]interface{} {
	return e.eventLog.GetStats()
}

// GetLimits returns the current resource limits
func (e *Engine) GetLimits() ResourceLimits {
	return e.limits
}
