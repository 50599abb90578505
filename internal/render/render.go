// Package render draws game snapshots into images with gg.
//
// World space is centered on the origin with +Y up; the renderer flips it
// into screen space and scales the arena (plus its margin) to fit the frame.
package render

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"

	"crash-ball/internal/game"
	"crash-ball/internal/geom"

	"github.com/fogleman/gg"
	"golang.org/x/image/font/basicfont"
)

// Options configures frame size and framing
type Options struct {
	Width   int
	Height  int
	Padding float64 // World units kept visible around the arena
	HUD     bool    // Draw the tick/ball/wave counters
}

// DefaultOptions returns an 850x850 frame that matches the default viewport
func DefaultOptions() Options {
	return Options{
		Width:   850,
		Height:  850,
		Padding: game.ArenaMargin,
		HUD:     true,
	}
}

var (
	colorBackground = color.RGBA{12, 12, 28, 255}
	colorGrid       = color.RGBA{30, 30, 45, 255}
	colorArena      = color.RGBA{60, 60, 90, 255}
	colorObstacle   = color.RGBA{90, 96, 130, 255}
	colorBall       = color.RGBA{235, 235, 245, 255}
	colorEnergized  = color.RGBA{255, 140, 0, 255}
	colorPlayer     = color.RGBA{0, 212, 255, 255}
	colorWave       = color.RGBA{0, 212, 255, 110}
	colorHUD        = color.RGBA{255, 255, 255, 220}
)

// Renderer turns snapshots into frames. It holds no per-frame state and is
// safe for concurrent use.
type Renderer struct {
	opts Options
}

// New creates a renderer, falling back to the defaults for a zero-sized frame
func New(opts Options) *Renderer {
	if opts.Width <= 0 || opts.Height <= 0 {
		def := DefaultOptions()
		opts.Width, opts.Height = def.Width, def.Height
	}
	if opts.Padding < 0 {
		opts.Padding = 0
	}
	return &Renderer{opts: opts}
}

// Options returns the renderer configuration
func (r *Renderer) Options() Options {
	return r.opts
}

// view maps world coordinates onto the frame
type view struct {
	scale  float64
	cx, cy float64
}

func (v view) point(p geom.Vec2) (float64, float64) {
	return v.cx + p.X*v.scale, v.cy - p.Y*v.scale
}

func (r *Renderer) viewFor(arena geom.Rectangle) view {
	w := arena.W + 2*r.opts.Padding
	h := arena.H + 2*r.opts.Padding
	scale := 1.0
	if w > 0 && h > 0 {
		scale = math.Min(float64(r.opts.Width)/w, float64(r.opts.Height)/h)
	}
	return view{
		scale: scale,
		cx:    float64(r.opts.Width) / 2,
		cy:    float64(r.opts.Height) / 2,
	}
}

// Frame draws snap into a new image
func (r *Renderer) Frame(snap *game.GameSnapshot) image.Image {
	dc := gg.NewContext(r.opts.Width, r.opts.Height)
	r.draw(dc, snap)
	return dc.Image()
}

// WritePNG draws snap and encodes it as PNG
func (r *Renderer) WritePNG(w io.Writer, snap *game.GameSnapshot) error {
	if err := png.Encode(w, r.Frame(snap)); err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	return nil
}

func (r *Renderer) draw(dc *gg.Context, snap *game.GameSnapshot) {
	r.drawBackground(dc)
	if snap == nil {
		return
	}

	v := r.viewFor(snap.Arena)
	r.drawArena(dc, v, snap.Arena)
	r.drawObstacles(dc, v, snap.Obstacles)
	r.drawWaves(dc, v, snap.Waves)
	r.drawBalls(dc, v, snap.Balls)
	if snap.Player != nil {
		r.drawPlayer(dc, v, *snap.Player)
	}
	if r.opts.HUD {
		r.drawHUD(dc, snap)
	}
}

func (r *Renderer) drawBackground(dc *gg.Context) {
	dc.SetColor(colorBackground)
	dc.DrawRectangle(0, 0, float64(r.opts.Width), float64(r.opts.Height))
	dc.Fill()

	dc.SetColor(colorGrid)
	dc.SetLineWidth(1)
	gridSize := 100.0
	for x := 0.0; x < float64(r.opts.Width); x += gridSize {
		dc.DrawLine(x, 0, x, float64(r.opts.Height))
		dc.Stroke()
	}
	for y := 0.0; y < float64(r.opts.Height); y += gridSize {
		dc.DrawLine(0, y, float64(r.opts.Width), y)
		dc.Stroke()
	}
}

func (r *Renderer) drawArena(dc *gg.Context, v view, arena geom.Rectangle) {
	x, y := v.point(arena.TopLeft())
	dc.SetColor(colorArena)
	dc.SetLineWidth(2)
	dc.DrawRectangle(x, y, arena.W*v.scale, arena.H*v.scale)
	dc.Stroke()
}

func (r *Renderer) drawObstacles(dc *gg.Context, v view, obstacles []game.ObstacleSnapshot) {
	dc.SetColor(colorObstacle)
	for _, ob := range obstacles {
		x, y := v.point(ob.Position)
		if ob.Radius > 0 {
			dc.DrawCircle(x, y, ob.Radius*v.scale)
			dc.Fill()
			continue
		}
		// Screen Y is flipped, so world rotations run the other way
		dc.Push()
		dc.Translate(x, y)
		dc.Rotate(-ob.Rotation)
		dc.DrawRectangle(-ob.HalfW*v.scale, -ob.HalfH*v.scale, 2*ob.HalfW*v.scale, 2*ob.HalfH*v.scale)
		dc.Fill()
		dc.Pop()
	}
}

func (r *Renderer) drawWaves(dc *gg.Context, v view, waves []game.WaveSnapshot) {
	dc.SetColor(colorWave)
	dc.SetLineWidth(3)
	for _, wave := range waves {
		x, y := v.point(wave.Center)
		dc.DrawCircle(x, y, wave.Radius*v.scale)
		dc.Stroke()
	}
}

func (r *Renderer) drawBalls(dc *gg.Context, v view, balls []game.BallSnapshot) {
	for _, b := range balls {
		x, y := v.point(b.Position)
		if b.Energized {
			dc.SetColor(colorEnergized)
		} else {
			dc.SetColor(colorBall)
		}
		dc.DrawCircle(x, y, b.Radius*v.scale)
		dc.Fill()
	}
}

func (r *Renderer) drawPlayer(dc *gg.Context, v view, p game.PlayerSnapshot) {
	x, y := v.point(p.Position)
	dc.SetColor(colorPlayer)
	dc.DrawCircle(x, y, p.Radius*v.scale)
	dc.Fill()
}

func (r *Renderer) drawHUD(dc *gg.Context, snap *game.GameSnapshot) {
	dc.SetFontFace(basicfont.Face7x13)
	dc.SetColor(colorHUD)
	line := fmt.Sprintf("TICK %d  BALLS %d  WAVES %d  ENERGIZED %d",
		snap.TickNumber, len(snap.Balls), len(snap.Waves), snap.Stats.Energized)
	dc.DrawString(line, 12, 20)
}
