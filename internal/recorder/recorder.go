// Package recorder captures rendered frames of a running simulation to disk.
//
// Capture and encoding run on separate goroutines joined by a small bounded
// queue: the capture loop renders as soon as a new snapshot appears, and the
// writer encodes PNG files at whatever pace the disk allows. When the queue
// is full the frame is dropped rather than stalling capture.
package recorder

import (
	"fmt"
	"image"
	"image/png"
	"log"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"crash-ball/internal/game"
	"crash-ball/internal/render"
)

// QueueSize is the number of rendered frames waiting for the writer
const QueueSize = 8

// SnapshotSource is anything that hands out the latest published snapshot
type SnapshotSource interface {
	GetSnapshot() *game.GameSnapshot
}

// Config controls where and how often frames are captured
type Config struct {
	Dir       string
	Interval  time.Duration
	MaxFrames int // 0 records until Stop
}

type frame struct {
	index int
	tick  uint64
	img   image.Image
}

// Recorder polls a snapshot source and writes each new state as a PNG
type Recorder struct {
	source   SnapshotSource
	renderer *render.Renderer
	cfg      Config

	queue  chan frame
	stopCh chan struct{}
	done   chan struct{}
	wg     sync.WaitGroup

	running  atomic.Bool
	started  time.Time
	captured atomic.Int64
	written  atomic.Int64
	dropped  atomic.Int64
	errors   atomic.Int64
	lastTick atomic.Uint64
}

// New creates a recorder. The output directory is created on Start.
func New(source SnapshotSource, renderer *render.Renderer, cfg Config) *Recorder {
	if cfg.Interval <= 0 {
		cfg.Interval = 100 * time.Millisecond
	}
	if cfg.Dir == "" {
		cfg.Dir = "frames"
	}
	if renderer == nil {
		renderer = render.New(render.DefaultOptions())
	}

	return &Recorder{
		source:   source,
		renderer: renderer,
		cfg:      cfg,
		queue:    make(chan frame, QueueSize),
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// FramePath returns the file name used for the n-th frame
func (r *Recorder) FramePath(n int) string {
	return filepath.Join(r.cfg.Dir, fmt.Sprintf("frame_%06d.png", n))
}

// Start creates the output directory and launches capture and writer loops
func (r *Recorder) Start() error {
	if !r.running.CompareAndSwap(false, true) {
		return nil // Already running
	}

	if err := os.MkdirAll(r.cfg.Dir, 0o755); err != nil {
		r.running.Store(false)
		return fmt.Errorf("create output dir: %w", err)
	}

	r.started = time.Now()
	r.wg.Add(2)
	go r.captureLoop()
	go r.writeLoop()

	go func() {
		r.wg.Wait()
		close(r.done)
	}()

	log.Printf("🎞️ Recording to %s every %v", r.cfg.Dir, r.cfg.Interval)
	return nil
}

// Stop halts capture and waits for queued frames to be written
func (r *Recorder) Stop() {
	if !r.running.CompareAndSwap(true, false) {
		return
	}
	close(r.stopCh)
	<-r.done
	log.Printf("🎞️ Recording stopped: %d frames written", r.written.Load())
}

// Done is closed once both loops have exited, either through Stop or
// because MaxFrames was reached
func (r *Recorder) Done() <-chan struct{} {
	return r.done
}

func (r *Recorder) captureLoop() {
	defer r.wg.Done()
	defer close(r.queue)

	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	var lastSeq uint64
	index := 0
	for {
		select {
		case <-r.stopCh:
			return
		case <-ticker.C:
		}

		snap := r.source.GetSnapshot()
		if snap == nil || snap.Sequence == lastSeq {
			continue
		}
		lastSeq = snap.Sequence

		// Render now; a pooled snapshot is overwritten a few ticks later
		f := frame{index: index, tick: snap.TickNumber, img: r.renderer.Frame(snap)}
		r.captured.Add(1)
		r.lastTick.Store(snap.TickNumber)

		select {
		case r.queue <- f:
			index++
		default:
			r.dropped.Add(1)
		}

		if r.cfg.MaxFrames > 0 && index >= r.cfg.MaxFrames {
			log.Printf("🎞️ Reached %d frames", r.cfg.MaxFrames)
			return
		}
	}
}

func (r *Recorder) writeLoop() {
	defer r.wg.Done()

	for f := range r.queue {
		if err := r.writeFrame(f); err != nil {
			r.errors.Add(1)
			log.Printf("⚠️ Frame %d (tick %d): %v", f.index, f.tick, err)
			continue
		}
		r.written.Add(1)
	}
}

func (r *Recorder) writeFrame(f frame) error {
	file, err := os.Create(r.FramePath(f.index))
	if err != nil {
		return err
	}
	if err := png.Encode(file, f.img); err != nil {
		file.Close()
		return fmt.Errorf("encode png: %w", err)
	}
	return file.Close()
}

// GetStats returns recorder statistics
func (r *Recorder) GetStats() map[string]interface{} {
	uptime := time.Duration(0)
	if !r.started.IsZero() {
		uptime = time.Since(r.started).Round(time.Second)
	}
	return map[string]interface{}{
		"recording": r.running.Load(),
		"captured":  r.captured.Load(),
		"written":   r.written.Load(),
		"dropped":   r.dropped.Load(),
		"errors":    r.errors.Load(),
		"lastTick":  r.lastTick.Load(),
		"uptime":    uptime.String(),
	}
}
