package game

import (
	"math"
	"testing"

	"crash-ball/internal/geom"
	"crash-ball/internal/physics"
)

func nearVec(a, b geom.Vec2) bool {
	return math.Abs(a.X-b.X) < eps && math.Abs(a.Y-b.Y) < eps
}

// TestBallLaunch checks the launch table against hand-computed values
func TestBallLaunch(t *testing.T) {
	arena := geom.Rectangle{X: -375, Y: -375, W: 750, H: 750}
	d := math.Sqrt2 / 2

	tests := []struct {
		name    string
		idx     int
		offset  float64
		corner  geom.Anchor
		wantVel geom.Vec2
	}{
		{"bottom left straight", 2, 0, geom.AnchorBottomLeft, geom.V(400*d, 400*d)},
		{"top left straight", 0, 0, geom.AnchorTopLeft, geom.V(400*d, -400*d)},
		{"top right straight", 1, 0, geom.AnchorTopRight, geom.V(-400*d, -400*d)},
		{"bottom right straight", 3, 0, geom.AnchorBottomRight, geom.V(-400*d, 400*d)},
		{"bottom left plus 45", 2, 45, geom.AnchorBottomLeft, geom.V(0, 400)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pos, vel, corner := BallLaunch(arena, tt.idx, tt.offset)
			if corner != tt.corner {
				t.Errorf("corner = %v, want %v", corner, tt.corner)
			}
			if !nearVec(vel, tt.wantVel) {
				t.Errorf("velocity = %+v, want %+v", vel, tt.wantVel)
			}
			wantPos := arena.Anchor(tt.corner).Add(tt.wantVel.Scale(90.0 / 400))
			if !nearVec(pos, wantPos) {
				t.Errorf("position = %+v, want %+v", pos, wantPos)
			}
		})
	}
}

// TestBallLaunchBottomLeft pins the bottom-left launch numerically
func TestBallLaunchBottomLeft(t *testing.T) {
	arena := geom.Rectangle{X: -375, Y: -375, W: 750, H: 750}
	pos, vel, _ := BallLaunch(arena, 2, 0)

	if math.Abs(vel.X-282.842712) > 1e-5 || math.Abs(vel.Y-282.842712) > 1e-5 {
		t.Errorf("velocity = %+v, want (282.84, 282.84)", vel)
	}
	if math.Abs(pos.X-(-375+63.639610)) > 1e-5 || math.Abs(pos.Y-(-375+63.639610)) > 1e-5 {
		t.Errorf("position = %+v", pos)
	}
}

// TestSpawnedBallsLeaveACorner verifies random spawns stay inside the launch cone
func TestSpawnedBallsLeaveACorner(t *testing.T) {
	cfg := DefaultSimConfig()
	cfg.MaxBalls = 1000
	cfg.Seed = 99
	w := newTestWorld(t, cfg, &stubEngine{})

	for i := 0; i < 200; i++ {
		id := w.SpawnBall()
		body, _ := w.Bodies.Get(id)

		if math.Abs(body.Velocity.Length()-BallSpeed) > eps {
			t.Fatalf("spawn speed = %v", body.Velocity.Length())
		}
		if body.Kind != physics.Dynamic || !body.CCD || !body.LockRotation || body.GravityScale != 0 {
			t.Fatalf("unexpected body setup: %+v", body)
		}

		matched := false
		for _, sp := range spawnPoints {
			anchor := w.Arena.Anchor(sp.corner)
			if math.Abs(body.Position.Sub(anchor).Length()-(CornerRadius+BallRadius)) > eps {
				continue
			}
			base := geom.FromAngle(geom.Deg(sp.angle))
			dir, _ := body.Velocity.Normalize()
			if math.Acos(geom.Clamp(dir.Dot(base), -1, 1)) <= geom.Deg(BallSpawnSpread)+eps {
				matched = true
			}
		}
		if !matched {
			t.Fatalf("ball %d at %+v with %+v matches no corner cone", id, body.Position, body.Velocity)
		}
	}
}

// TestSpawnAtCapacityIsNoop verifies the cap is silent
func TestSpawnAtCapacityIsNoop(t *testing.T) {
	w := newTestWorld(t, DefaultSimConfig(), &stubEngine{})
	for i := 0; i < MaxBallCount; i++ {
		if w.SpawnBall() == 0 {
			t.Fatalf("spawn %d refused below the cap", i)
		}
	}
	if id := w.SpawnBall(); id != 0 {
		t.Errorf("spawned past the cap: %d", id)
	}
	if w.BallCount != MaxBallCount {
		t.Errorf("count = %d", w.BallCount)
	}
}

// TestProjectSpeed covers scaling, idempotence and the zero-vector fallback
func TestProjectSpeed(t *testing.T) {
	tests := []struct {
		name     string
		v        geom.Vec2
		speed    float64
		fallback geom.Vec2
		want     geom.Vec2
	}{
		{"scales up", geom.V(3, 4), 400, geom.Vec2{}, geom.V(240, 320)},
		{"scales down", geom.V(0, -1000), 800, geom.Vec2{}, geom.V(0, -800)},
		{"zero uses heading", geom.Vec2{}, 400, geom.V(-1, 0), geom.V(-400, 0)},
		{"zero without heading goes up", geom.Vec2{}, 400, geom.Vec2{}, geom.V(0, 400)},
		{"nan uses heading", geom.V(math.NaN(), 1), 400, geom.V(0, -1), geom.V(0, -400)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ProjectSpeed(tt.v, tt.speed, tt.fallback)
			if !nearVec(got, tt.want) {
				t.Errorf("ProjectSpeed = %+v, want %+v", got, tt.want)
			}
			again := ProjectSpeed(got, tt.speed, tt.fallback)
			if !nearVec(again, got) {
				t.Errorf("not idempotent: %+v then %+v", got, again)
			}
		})
	}
}

// TestControlBallSpeed checks both speed tiers and the heading memory
func TestControlBallSpeed(t *testing.T) {
	w := newTestWorld(t, DefaultSimConfig(), &stubEngine{})
	plain := w.AddBall(geom.V(0, 0), geom.V(400, 0), geom.AnchorBottomLeft)
	charged := w.AddBall(geom.V(50, 0), geom.V(0, 400), geom.AnchorBottomLeft)

	ball, _ := w.Balls.Get(charged)
	ball.Energized = true
	w.Balls.Set(charged, ball)

	pb, _ := w.Bodies.Get(plain)
	cb, _ := w.Bodies.Get(charged)
	pb.Velocity = geom.V(10, 10)
	cb.Velocity = geom.Vec2{}

	w.ControlBallSpeed()

	if math.Abs(pb.Velocity.Length()-400) > eps || math.Abs(pb.Velocity.X-pb.Velocity.Y) > eps {
		t.Errorf("plain ball velocity = %+v", pb.Velocity)
	}
	if !nearVec(cb.Velocity, geom.V(0, 800)) {
		t.Errorf("zero-velocity energized ball should keep heading at 800, got %+v", cb.Velocity)
	}
}

// TestDespawnBoundary checks the strict out-of-bounds test at the edge
func TestDespawnBoundary(t *testing.T) {
	arena := geom.Rectangle{X: -375, Y: -375, W: 750, H: 750}
	tests := []struct {
		name string
		pos  geom.Vec2
		out  bool
	}{
		{"center", geom.V(0, 0), false},
		{"right edge", geom.V(445, 0), false},
		{"past right", geom.V(446, 0), true},
		{"left edge", geom.V(-445, 0), false},
		{"past left", geom.V(-446, 0), true},
		{"top edge", geom.V(0, 445), false},
		{"past top", geom.V(0, 446), true},
		{"bottom edge", geom.V(0, -445), false},
		{"past bottom", geom.V(0, -446), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsOutOfBounds(arena, tt.pos); got != tt.out {
				t.Errorf("IsOutOfBounds(%+v) = %v, want %v", tt.pos, got, tt.out)
			}
		})
	}
}

// TestDespawnBalls verifies removal and counter upkeep
func TestDespawnBalls(t *testing.T) {
	w := newTestWorld(t, DefaultSimConfig(), &stubEngine{})
	edge := w.AddBall(geom.V(0, -445), geom.V(0, -400), geom.AnchorBottomLeft)
	gone := w.AddBall(geom.V(0, -446), geom.V(0, -400), geom.AnchorBottomLeft)

	var despawned []EntityID
	w.Hooks.OnBallDespawn = func(id EntityID, pos geom.Vec2) { despawned = append(despawned, id) }

	w.DespawnBalls()

	if !w.Balls.Has(edge) || !w.Bodies.Has(edge) {
		t.Error("ball on the boundary was removed")
	}
	if w.Balls.Has(gone) || w.Bodies.Has(gone) {
		t.Error("ball past the boundary survived")
	}
	if w.BallCount != 1 || w.Balls.Len() != 1 {
		t.Errorf("count = %d, store = %d, want 1", w.BallCount, w.Balls.Len())
	}
	if len(despawned) != 1 || despawned[0] != gone {
		t.Errorf("despawn hook saw %v", despawned)
	}
}
