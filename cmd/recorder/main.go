// =============================================================================
// CRASH BALL - RECORDER
// =============================================================================
// Standalone companion process that captures the simulation to PNG frames:
// - Receives snapshots via IPC from the simulation server
// - Renders each new state and writes it to RECORD_DIR
//
// USAGE:
//  1. Start the server with IPC enabled: IPC_ENABLED=true go run ./cmd/server
//  2. Then start the recorder: go run ./cmd/recorder
//  3. Optionally assemble a video: ffmpeg -i frames/frame_%06d.png out.mp4
//
// =============================================================================
package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"crash-ball/internal/config"
	"crash-ball/internal/ipc"
	"crash-ball/internal/recorder"
	"crash-ball/internal/render"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load("../.env"); err != nil {
		if err := godotenv.Load(".env"); err != nil {
			log.Println("💡 No .env file found, using environment variables only")
		}
	}

	log.Println("🎞️ ================================")
	log.Println("🎞️  CRASH BALL - RECORDER")
	log.Println("🎞️ ================================")

	appConfig := config.Load()
	recCfg := appConfig.Recorder
	arenaCfg := appConfig.Arena

	log.Printf("📡 IPC socket: %s", appConfig.IPC.SocketPath)
	log.Printf("🎞️ Output: %s, every %v, max frames %d (0 = unlimited)",
		recCfg.Dir, recCfg.Interval, recCfg.MaxFrames)

	subscriber := ipc.NewSubscriber(appConfig.IPC.SocketPath)

	subscriber.OnConnect(func() {
		log.Println("🔗 Connected to simulation server")
	})
	subscriber.OnDisconnect(func() {
		log.Println("🔌 Lost the simulation server, retrying...")
	})

	if err := subscriber.Start(); err != nil {
		log.Fatalf("❌ Failed to start IPC subscriber: %v", err)
	}

	// Frame size follows the server's viewport once the handshake arrives
	frame := render.DefaultOptions()
	frame.Width = int(arenaCfg.ViewportWidth)
	frame.Height = int(arenaCfg.ViewportHeight)
	frame.Padding = arenaCfg.Margin

	log.Println("⏳ Waiting for simulation server...")
	if cfg := subscriber.WaitForConfig(30 * time.Second); cfg != nil {
		if cfg.Viewport.X > 0 && cfg.Viewport.Y > 0 {
			frame.Width = int(cfg.Viewport.X)
			frame.Height = int(cfg.Viewport.Y)
		}
	} else {
		log.Println("⚠️ No handshake yet; make sure the server runs with IPC_ENABLED=true")
		log.Println("⚠️ Continuing with local viewport settings (will keep retrying)")
	}

	rec := recorder.New(subscriber, render.New(frame), recorder.Config{
		Dir:       recCfg.Dir,
		Interval:  recCfg.Interval,
		MaxFrames: recCfg.MaxFrames,
	})
	if err := rec.Start(); err != nil {
		subscriber.Stop()
		log.Fatalf("❌ Failed to start recorder: %v", err)
	}

	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-rec.Done():
				return
			case <-ticker.C:
			}
			received, reconnects, errors := subscriber.GetStats()
			log.Printf("📊 IPC: snapshots=%d, reconnects=%d, errors=%d, connected=%v",
				received, reconnects, errors, subscriber.IsConnected())

			stats := rec.GetStats()
			log.Printf("📊 Recorder: written=%v, dropped=%v, lastTick=%v, uptime=%v",
				stats["written"], stats["dropped"], stats["lastTick"], stats["uptime"])
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	log.Println("✅ Recorder ready! Press Ctrl+C to stop.")
	select {
	case <-quit:
		log.Println("🛑 Shutting down recorder...")
	case <-rec.Done():
	}

	rec.Stop()
	subscriber.Stop()
	log.Println("👋 Goodbye!")
}
