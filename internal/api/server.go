package api

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"crash-ball/internal/game"
	"crash-ball/internal/render"

	"github.com/go-chi/chi/v5"
)

// ServerConfig configures the public API server
type ServerConfig struct {
	Addr              string
	BroadcastInterval time.Duration
	MaxWSConnections  int
	InputToken        string // Empty leaves input open
	CORSOrigins       []string
	Frame             render.Options
}

// Server is the HTTP API server with WebSocket support.
// It combines the HTTP router with the WebSocket hub for real-time updates.
type Server struct {
	engine      *game.Engine
	router      *chi.Mux
	wsHub       *WebSocketHub
	rateLimiter *IPRateLimiter
	httpServer  *http.Server
}

// NewServer creates a new API server.
//
// IMPORTANT: Background workers do NOT start until Start() is called.
// For testing HTTP endpoints without WebSocket support, use NewRouter() directly.
func NewServer(engine *game.Engine, cfg ServerConfig) *Server {
	auth := NewInputAuth(cfg.InputToken)
	if auth.Open() {
		log.Println("⚠️ INPUT_TOKEN not set, anyone who can reach the API can steer the player")
	}

	s := &Server{
		engine:      engine,
		rateLimiter: NewIPRateLimiter(DefaultRateLimitConfig),
		wsHub: NewWebSocketHub(engine, auth, HubConfig{
			MaxConnections:    cfg.MaxWSConnections,
			BroadcastInterval: cfg.BroadcastInterval,
		}),
	}

	s.router = NewRouter(RouterConfig{
		Engine:      engine,
		Renderer:    render.New(cfg.Frame),
		Auth:        auth,
		RateLimiter: s.rateLimiter,
		CORSOrigins: cfg.CORSOrigins,
	})

	// The WebSocket route needs the hub instance, so it lives outside NewRouter
	s.router.Get("/ws", s.handleWS)

	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return s
}

// Start launches the hub and serves HTTP until Stop is called.
// It returns nil after a graceful shutdown.
func (s *Server) Start() error {
	go s.wsHub.Run()
	s.wsHub.StartBroadcastLoop()

	log.Printf("🌐 API server starting on %s", s.httpServer.Addr)
	log.Printf("🖼️  Frame: http://localhost%s/api/frame.png", s.httpServer.Addr)

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Router returns the HTTP handler for use with httptest
func (s *Server) Router() http.Handler {
	return s.router
}

// Hub exposes the WebSocket hub
func (s *Server) Hub() *WebSocketHub {
	return s.wsHub
}

// Stop shuts the listener down and stops background workers
func (s *Server) Stop(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	s.wsHub.Stop()
	s.rateLimiter.Stop()
	return err
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	s.wsHub.HandleWebSocket(w, r)
}
