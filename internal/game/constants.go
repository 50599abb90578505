package game

import "time"

// Arena constants
const (
	ArenaMargin      = 50.0 // Gap between viewport edge and arena
	CornerRadius     = 70.0 // Corner obstacle radius
	BarrierThickness = 10.0 // Wall obstacle thickness
)

// Ball constants
const (
	MaxBallCount       = 5     // Live ball cap
	BallSpeed          = 400.0 // Units per second
	BallEnergizedSpeed = BallSpeed * 2
	BallRadius         = 20.0
	BallSpawnSpread    = 30.0 // Degrees either side of a corner's base angle
)

// Player constants
const (
	PlayerBaseSpeed       = 350.0
	PlayerAccelerateSpeed = 550.0
	PlayerRadius          = 70.0
	PlayerEnergyRadius    = 80.0 // On top of PlayerRadius
	PlayerFriction        = 0.65
	GamepadAxisThreshold  = 0.3
	AxisDeadzone          = 0.1
)

// Timing constants
const (
	DefaultTickRate      = 60
	FixedTimestep        = 1.0 / DefaultTickRate
	DefaultSpawnInterval = time.Second
)

// EnergyScaleThreshold is the wave scale at which it expires (radius 150)
const EnergyScaleThreshold = 1.0 + PlayerEnergyRadius/PlayerRadius

// DefaultEnergyGrowthRate is the wave scale gained per simulated second
const DefaultEnergyGrowthRate = EnergyScaleThreshold * 2.0

// waveExpiryEpsilon absorbs float drift so a wave that lands exactly on the
// threshold survives that tick.
const waveExpiryEpsilon = 1e-9
