package game

import (
	"errors"
	"fmt"
	"math"

	"crash-ball/internal/geom"
)

// ErrViewportTooSmall is returned when the viewport cannot fit the arena margin
var ErrViewportTooSmall = errors.New("viewport smaller than twice the arena margin")

// NewArena derives the arena rectangle from the viewport: the visible area
// minus margin on every side, centered on the origin.
func NewArena(viewportW, viewportH, margin float64) (geom.Rectangle, error) {
	for _, v := range []float64{viewportW, viewportH, margin} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return geom.Rectangle{}, fmt.Errorf("arena: non-finite dimension %v: %w", v, ErrViewportTooSmall)
		}
	}
	if margin < 0 {
		return geom.Rectangle{}, fmt.Errorf("arena: negative margin %v", margin)
	}
	if viewportW <= 2*margin || viewportH <= 2*margin {
		return geom.Rectangle{}, fmt.Errorf("arena: viewport %vx%v with margin %v: %w",
			viewportW, viewportH, margin, ErrViewportTooSmall)
	}

	return geom.Rectangle{
		X: -viewportW/2 + margin,
		Y: -viewportH/2 + margin,
		W: viewportW - 2*margin,
		H: viewportH - 2*margin,
	}, nil
}

// IsOutOfBounds reports whether pos lies outside the arena expanded by the
// corner radius. Points exactly on the expanded edge are still in bounds.
func IsOutOfBounds(arena geom.Rectangle, pos geom.Vec2) bool {
	return pos.X < arena.Left()-CornerRadius ||
		pos.X > arena.Right()+CornerRadius ||
		pos.Y < arena.Bottom()-CornerRadius ||
		pos.Y > arena.Top()+CornerRadius
}
