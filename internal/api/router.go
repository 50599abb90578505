package api

import (
	"crash-ball/internal/game"
	"crash-ball/internal/geom"
	"crash-ball/internal/render"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// EngineInterface defines the engine methods used by the API.
// Keep this minimal - only include methods the API layer actually calls.
type EngineInterface interface {
	// GetSnapshot returns the latest lock-free immutable snapshot
	GetSnapshot() *game.GameSnapshot
	// Stats returns the world counters
	Stats() game.Stats
	// Arena returns the playable rectangle
	Arena() geom.Rectangle
	// InputMap returns the active device bindings
	InputMap() *game.InputMap
	// SetInput replaces the held device state
	SetInput(raw game.RawInput)
	// GetEventLogStats returns event log counters
	GetEventLogStats() map[string]interface{}
}

// RouterConfig contains all dependencies needed to construct the HTTP router.
//
// Example usage in tests:
//
//	router := api.NewRouter(api.RouterConfig{
//	    Engine:          engine,
//	    RateLimitConfig: &api.RateLimitConfig{RequestsPerSecond: 1000, Burst: 1000},
//	    DisableLogging:  true,
//	})
//	ts := httptest.NewServer(router)
type RouterConfig struct {
	// Engine is the simulation engine (required)
	Engine EngineInterface

	// Renderer draws /api/frame.png. If nil, one is built from DefaultOptions.
	Renderer *render.Renderer

	// Auth guards POST /api/input. If nil, input is open.
	Auth *InputAuth

	// RateLimiter is an optional pre-configured rate limiter.
	// If nil, a new one will be created using RateLimitConfig.
	RateLimiter *IPRateLimiter

	// RateLimitConfig is only used if RateLimiter is nil.
	// If both are nil, uses DefaultRateLimitConfig.
	RateLimitConfig *RateLimitConfig

	// CORSOrigins is an optional list of allowed CORS origins.
	// If nil, loopback origins are allowed.
	CORSOrigins []string

	// DisableLogging disables the request logger middleware (useful for benchmarks).
	DisableLogging bool
}

// routerHandlers holds the handler dependencies
type routerHandlers struct {
	engine   EngineInterface
	renderer *render.Renderer
}

// NewRouter constructs the HTTP router with all middleware and routes.
//
// Apart from the rate limiter's cleanup goroutine it has no side effects:
// no listeners are opened and the engine is not started, so it is safe to
// use in tests with httptest.NewServer.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Middleware - Order matters!
	if !cfg.DisableLogging {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)
	r.Use(metricsMiddleware)

	// Rate limiting (BEFORE CORS to reject early and save CPU)
	rateLimiter := cfg.RateLimiter
	if rateLimiter == nil {
		rateLimitCfg := DefaultRateLimitConfig
		if cfg.RateLimitConfig != nil {
			rateLimitCfg = *cfg.RateLimitConfig
		}
		rateLimiter = NewIPRateLimiter(rateLimitCfg)
	}
	r.Use(rateLimiter.Middleware)

	corsOrigins := cfg.CORSOrigins
	if corsOrigins == nil {
		corsOrigins = []string{
			"http://localhost:*",
			"http://127.0.0.1:*",
		}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	renderer := cfg.Renderer
	if renderer == nil {
		renderer = render.New(render.DefaultOptions())
	}

	h := &routerHandlers{
		engine:   cfg.Engine,
		renderer: renderer,
	}

	r.Get("/health", h.handleHealth)

	r.Route("/api", func(r chi.Router) {
		// Simulation state
		r.Get("/state", h.handleGetState)
		r.Get("/stats", h.handleGetStats)
		r.Get("/arena", h.handleGetArena)
		r.Get("/frame.png", h.handleGetFrame)

		// Input
		r.Get("/input", h.handleGetBindings)
		r.With(cfg.Auth.Middleware).Post("/input", h.handlePostInput)
	})

	return r
}
