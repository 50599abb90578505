// Package config provides centralized configuration management.
// This is the SINGLE SOURCE OF TRUTH for arena, simulation and server settings.
//
// Every section has a Default* constructor and a *FromEnv variant where
// environment variables take precedence over the defaults.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// =============================================================================
// ARENA CONFIGURATION
// =============================================================================

// ArenaConfig holds the viewport the arena is derived from.
type ArenaConfig struct {
	ViewportWidth  float64 // Visible area width in world units
	ViewportHeight float64 // Visible area height in world units
	Margin         float64 // Inset on every side
}

// DefaultArena returns the default arena configuration.
func DefaultArena() ArenaConfig {
	return ArenaConfig{
		ViewportWidth:  850,
		ViewportHeight: 850,
		Margin:         50,
	}
}

// ArenaFromEnv returns arena configuration with environment variable overrides.
func ArenaFromEnv() ArenaConfig {
	cfg := DefaultArena()

	if w := getEnvFloat("VIEWPORT_WIDTH", 0); w > 0 {
		cfg.ViewportWidth = w
	}
	if h := getEnvFloat("VIEWPORT_HEIGHT", 0); h > 0 {
		cfg.ViewportHeight = h
	}
	if m := getEnvFloat("ARENA_MARGIN", -1); m >= 0 {
		cfg.Margin = m
	}

	return cfg
}

// =============================================================================
// SIMULATION CONFIGURATION
// =============================================================================

// SimConfig holds the simulation cadence and tuning.
type SimConfig struct {
	TickRate                   int           // Fast ticks per second
	SpawnInterval              time.Duration // Ball spawn cadence
	MaxBalls                   int           // Live ball cap
	Seed                       int64         // RNG seed, 0 picks one from the clock
	RenormalizeOnCollisionStop bool          // Extra speed pass when a contact ends
	PhysicsEngine              string        // "chipmunk" or "reference"
}

// MaxBallsCeiling bounds MAX_BALLS; snapshots pre-allocate room for every ball
const MaxBallsCeiling = 256

// DefaultSim returns the default simulation configuration.
func DefaultSim() SimConfig {
	return SimConfig{
		TickRate:      60,
		SpawnInterval: time.Second,
		MaxBalls:      5,
		PhysicsEngine: "chipmunk",
	}
}

// SimFromEnv returns simulation configuration with environment variable overrides.
func SimFromEnv() SimConfig {
	cfg := DefaultSim()

	if tr := getEnvInt("TICK_RATE", 0); tr > 0 {
		cfg.TickRate = tr
	}
	if ms := getEnvInt("SPAWN_INTERVAL_MS", 0); ms > 0 {
		cfg.SpawnInterval = time.Duration(ms) * time.Millisecond
	}
	if mb := getEnvInt("MAX_BALLS", 0); mb > 0 {
		cfg.MaxBalls = min(mb, MaxBallsCeiling)
	}
	if s := getEnvInt64("RNG_SEED", 0); s != 0 {
		cfg.Seed = s
	}
	cfg.RenormalizeOnCollisionStop = getEnvBool("RENORMALIZE_ON_COLLISION_STOP", cfg.RenormalizeOnCollisionStop)
	if engine := strings.ToLower(strings.TrimSpace(os.Getenv("PHYSICS_ENGINE"))); engine != "" {
		cfg.PhysicsEngine = engine
	}

	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}

	return cfg
}

// =============================================================================
// SERVER CONFIGURATION
// =============================================================================

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port              int
	BroadcastInterval time.Duration // WebSocket snapshot push period
	MaxWSConnections  int
	InputToken        string   // Bearer token for input, empty leaves it open
	CORSOrigins       []string // nil keeps the loopback defaults
}

// DefaultServer returns the default server configuration.
func DefaultServer() ServerConfig {
	return ServerConfig{
		Port:              3000,
		BroadcastInterval: 50 * time.Millisecond, // 20 Hz
		MaxWSConnections:  100,
	}
}

// ServerFromEnv returns server configuration with environment variable overrides.
func ServerFromEnv() ServerConfig {
	cfg := DefaultServer()

	if p := getEnvInt("PORT", 0); p > 0 {
		cfg.Port = p
	}
	if ms := getEnvInt("BROADCAST_INTERVAL_MS", 0); ms > 0 {
		cfg.BroadcastInterval = time.Duration(ms) * time.Millisecond
	}
	if mc := getEnvInt("MAX_WS_CONNECTIONS", 0); mc > 0 {
		cfg.MaxWSConnections = mc
	}
	cfg.InputToken = os.Getenv("INPUT_TOKEN")
	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.CORSOrigins = append(cfg.CORSOrigins, o)
			}
		}
	}

	return cfg
}

// =============================================================================
// DEBUG & EVENT LOG CONFIGURATION
// =============================================================================

// DebugConfig holds the observability server settings.
type DebugConfig struct {
	Enabled       bool
	ListenAddr    string // Localhost only unless ALLOW_DEBUG_EXTERNAL=true
	BasicAuthUser string
	BasicAuthPass string
}

// DefaultDebug returns the default debug configuration.
func DefaultDebug() DebugConfig {
	return DebugConfig{
		Enabled:    true,
		ListenAddr: "127.0.0.1:6060",
	}
}

// DebugFromEnv returns debug configuration with environment variable overrides.
func DebugFromEnv() DebugConfig {
	cfg := DefaultDebug()

	if os.Getenv("DISABLE_DEBUG_SERVER") == "true" {
		cfg.Enabled = false
	}
	if addr := os.Getenv("DEBUG_ADDR"); addr != "" {
		cfg.ListenAddr = addr
	}
	cfg.BasicAuthUser = os.Getenv("DEBUG_USER")
	cfg.BasicAuthPass = os.Getenv("DEBUG_PASS")

	return cfg
}

// EventLogConfig holds the JSONL event log settings.
type EventLogConfig struct {
	Path string // Empty disables file output
}

// EventLogFromEnv returns the event log configuration.
func EventLogFromEnv() EventLogConfig {
	path, ok := os.LookupEnv("EVENT_LOG_PATH")
	if !ok {
		path = "events.jsonl"
	}
	return EventLogConfig{Path: path}
}

// =============================================================================
// IPC & RECORDER CONFIGURATION
// =============================================================================

// IPCConfig holds the snapshot publisher settings.
type IPCConfig struct {
	Enabled    bool
	SocketPath string
}

// DefaultIPC returns the default IPC configuration.
func DefaultIPC() IPCConfig {
	return IPCConfig{
		Enabled:    false,
		SocketPath: "/tmp/crash-ball.sock",
	}
}

// IPCFromEnv returns IPC configuration with environment variable overrides.
func IPCFromEnv() IPCConfig {
	cfg := DefaultIPC()

	cfg.Enabled = getEnvBool("IPC_ENABLED", cfg.Enabled)
	if path := os.Getenv("IPC_SOCKET"); path != "" {
		cfg.SocketPath = path
	}

	return cfg
}

// RecorderConfig holds the frame recorder settings.
type RecorderConfig struct {
	Dir       string        // Output directory for PNG frames
	Interval  time.Duration // Time between captured frames
	MaxFrames int           // 0 records until stopped
}

// DefaultRecorder returns the default recorder configuration.
func DefaultRecorder() RecorderConfig {
	return RecorderConfig{
		Dir:      "frames",
		Interval: 100 * time.Millisecond, // 10 FPS
	}
}

// RecorderFromEnv returns recorder configuration with environment variable overrides.
func RecorderFromEnv() RecorderConfig {
	cfg := DefaultRecorder()

	if dir := os.Getenv("RECORD_DIR"); dir != "" {
		cfg.Dir = dir
	}
	if ms := getEnvInt("RECORD_INTERVAL_MS", 0); ms > 0 {
		cfg.Interval = time.Duration(ms) * time.Millisecond
	}
	if n := getEnvInt("RECORD_MAX_FRAMES", -1); n >= 0 {
		cfg.MaxFrames = n
	}

	return cfg
}

// =============================================================================
// COMPLETE APP CONFIGURATION
// =============================================================================

// AppConfig holds the complete application configuration.
type AppConfig struct {
	Arena    ArenaConfig
	Sim      SimConfig
	Server   ServerConfig
	Debug    DebugConfig
	EventLog EventLogConfig
	IPC      IPCConfig
	Recorder RecorderConfig
}

// Load returns the complete configuration with environment overrides.
func Load() AppConfig {
	return AppConfig{
		Arena:    ArenaFromEnv(),
		Sim:      SimFromEnv(),
		Server:   ServerFromEnv(),
		Debug:    DebugFromEnv(),
		EventLog: EventLogFromEnv(),
		IPC:      IPCFromEnv(),
		Recorder: RecorderFromEnv(),
	}
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvInt64(key string, defaultVal int64) int64 {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultVal
}
