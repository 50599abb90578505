package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"crash-ball/internal/api"
	"crash-ball/internal/config"
	"crash-ball/internal/game"
	"crash-ball/internal/geom"
	"crash-ball/internal/ipc"
	"crash-ball/internal/physics"
	"crash-ball/internal/render"

	"github.com/joho/godotenv"
)

func main() {
	// Load .env file from parent directory
	if err := godotenv.Load("../.env"); err != nil {
		// Try current directory as fallback
		if err := godotenv.Load(".env"); err != nil {
			log.Println("💡 No .env file found, using environment variables only")
		}
	} else {
		log.Println("✅ Loaded environment from ../.env")
	}

	log.Println("🎮 ================================")
	log.Println("🎮  CRASH BALL - GO ENGINE")
	log.Println("🎮 ================================")

	// Load centralized configuration (SSOT - Single Source of Truth)
	appConfig := config.Load()
	arenaCfg := appConfig.Arena
	simCfg := appConfig.Sim
	serverCfg := appConfig.Server

	log.Printf("🎮 Config: %d TPS, spawn every %v, max %d balls, viewport %.0fx%.0f (margin %.0f)",
		simCfg.TickRate, simCfg.SpawnInterval, simCfg.MaxBalls,
		arenaCfg.ViewportWidth, arenaCfg.ViewportHeight, arenaCfg.Margin)

	physicsEngine, err := physics.New(simCfg.PhysicsEngine)
	if err != nil {
		log.Fatalf("❌ Physics: %v", err)
	}
	log.Printf("⚙️ Physics engine: %s", simCfg.PhysicsEngine)

	engine, err := game.NewEngine(game.EngineConfig{
		ViewportWidth:  arenaCfg.ViewportWidth,
		ViewportHeight: arenaCfg.ViewportHeight,
		Margin:         arenaCfg.Margin,
		Sim: game.SimConfig{
			TickRate:                   simCfg.TickRate,
			SpawnInterval:              simCfg.SpawnInterval,
			MaxBalls:                   simCfg.MaxBalls,
			Seed:                       simCfg.Seed,
			RenormalizeOnCollisionStop: simCfg.RenormalizeOnCollisionStop,
		},
		Limits:  game.DefaultLimits,
		Physics: physicsEngine,
	})
	if err != nil {
		log.Fatalf("❌ Cannot build arena: %v", err)
	}
	arena := engine.Arena()
	log.Printf("🏟️ Arena: %.0fx%.0f at (%.0f, %.0f)", arena.W, arena.H, arena.X, arena.Y)

	// Start event log
	if path := appConfig.EventLog.Path; path != "" {
		if err := engine.StartEventLog(path); err != nil {
			log.Printf("⚠️ Event log disabled: %v", err)
		} else {
			log.Printf("📝 Event log: %s", path)
		}
	} else {
		log.Println("📝 Event log: file output disabled")
	}

	// Start debug server
	if err := api.StartDebugServer(api.ObservabilityConfig{
		Enabled:       appConfig.Debug.Enabled,
		ListenAddr:    appConfig.Debug.ListenAddr,
		BasicAuthUser: appConfig.Debug.BasicAuthUser,
		BasicAuthPass: appConfig.Debug.BasicAuthPass,
	}); err != nil {
		log.Printf("⚠️ Debug server disabled: %v", err)
	}

	api.InstrumentEngine(engine, simCfg.TickRate)

	frame := render.DefaultOptions()
	frame.Width = int(arenaCfg.ViewportWidth)
	frame.Height = int(arenaCfg.ViewportHeight)
	frame.Padding = arenaCfg.Margin

	server := api.NewServer(engine, api.ServerConfig{
		Addr:              ":" + strconv.Itoa(serverCfg.Port),
		BroadcastInterval: serverCfg.BroadcastInterval,
		MaxWSConnections:  serverCfg.MaxWSConnections,
		InputToken:        serverCfg.InputToken,
		CORSOrigins:       serverCfg.CORSOrigins,
		Frame:             frame,
	})

	// Snapshot publisher for companion processes (frame recorder)
	var publisher *ipc.Publisher
	if appConfig.IPC.Enabled {
		publisher = ipc.NewPublisher(appConfig.IPC.SocketPath, engine, time.Second/time.Duration(simCfg.TickRate))
		publisher.SetConfig(ipc.ConfigMessage{
			TickRate: simCfg.TickRate,
			Seed:     simCfg.Seed,
			Arena:    arena,
			Viewport: geom.V(arenaCfg.ViewportWidth, arenaCfg.ViewportHeight),
		})
		if err := publisher.Start(); err != nil {
			log.Printf("⚠️ IPC publisher disabled: %v", err)
			publisher = nil
		}
	} else {
		log.Println("📡 IPC publisher disabled (set IPC_ENABLED=true for the recorder)")
	}

	// Start simulation
	engine.Start()
	log.Println("✅ Simulation started")

	// Start API server in goroutine
	go func() {
		if err := server.Start(); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	log.Println("")
	log.Println("📋 Controls:")
	log.Println("   POST /api/input {\"buttons\":[\"ArrowLeft\",\"Space\"]}")
	log.Printf("   ws://localhost:%d/ws?format=msgpack", serverCfg.Port)
	log.Println("")

	// Wait for shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	log.Println("✅ Server ready! Press Ctrl+C to stop.")
	<-quit

	log.Println("🛑 Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Stop(ctx); err != nil {
		log.Printf("⚠️ API shutdown: %v", err)
	}
	if publisher != nil {
		publisher.Stop()
	}
	engine.Stop()
	engine.StopEventLog()

	stats := engine.Stats()
	log.Printf("📊 Final: %d ticks, %d spawned, %d despawned, %d energized",
		stats.Tick, stats.Spawned, stats.Despawned, stats.Energized)
	log.Println("👋 Goodbye!")
}
