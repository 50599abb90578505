package physics

import (
	"math"
	"testing"

	"crash-ball/internal/geom"
)

var (
	elastic  = Coefficient{Value: 1, Rule: CombineMin}
	slippery = Coefficient{Value: 0, Rule: CombineMin}
)

func ball(id BodyID, pos, vel geom.Vec2) *Body {
	return &Body{
		ID:           id,
		Kind:         Dynamic,
		Shape:        Circle(20),
		Position:     pos,
		Velocity:     vel,
		Restitution:  elastic,
		Friction:     slippery,
		LockRotation: true,
		CCD:          true,
		Events:       true,
	}
}

// TestCombine verifies the combine-rule priority
func TestCombine(t *testing.T) {
	tests := []struct {
		name string
		a, b Coefficient
		want float64
	}{
		{"min both", Coefficient{1, CombineMin}, Coefficient{0.5, CombineMin}, 0.5},
		{"max beats min", Coefficient{0.65, CombineMax}, Coefficient{0, CombineMin}, 0.65},
		{"average", Coefficient{1, CombineAverage}, Coefficient{0, CombineAverage}, 0.5},
		{"multiply beats min", Coefficient{0.5, CombineMultiply}, Coefficient{0.5, CombineMin}, 0.25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Combine(tt.a, tt.b); math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("Combine = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestFreeFlight verifies integration without contacts
func TestFreeFlight(t *testing.T) {
	s := NewSolver()
	b := ball(1, geom.V(0, 0), geom.V(60, 0))

	events := s.Step(1.0/60, []*Body{b})
	if len(events) != 0 {
		t.Errorf("expected no events, got %v", events)
	}
	if math.Abs(b.Position.X-1) > 1e-9 || b.Position.Y != 0 {
		t.Errorf("position = %+v, want (1, 0)", b.Position)
	}
	if b.Velocity != geom.V(60, 0) {
		t.Errorf("velocity changed in free flight: %+v", b.Velocity)
	}
}

// TestElasticBounceOffFixedCircle checks a head-on bounce keeps speed
func TestElasticBounceOffFixedCircle(t *testing.T) {
	s := NewSolver()
	corner := &Body{ID: 2, Kind: Fixed, Shape: Circle(70), Restitution: elastic, Friction: slippery}
	b := ball(1, geom.V(-91, 0), geom.V(400, 0))

	events := s.Step(1.0/60, []*Body{b, corner})

	if b.Velocity.X >= 0 {
		t.Fatalf("ball should bounce back, velocity = %+v", b.Velocity)
	}
	if math.Abs(b.Velocity.Length()-400) > 1e-6 {
		t.Errorf("speed after elastic bounce = %v, want 400", b.Velocity.Length())
	}
	if corner.Position != (geom.Vec2{}) {
		t.Errorf("fixed body moved to %+v", corner.Position)
	}
	if len(events) != 1 || events[0].Kind != CollisionStarted || !events[0].Involves(1) || !events[0].Involves(2) {
		t.Errorf("expected one started event, got %+v", events)
	}

	// Next step the ball is moving away: the contact stops
	events = s.Step(1.0/60, []*Body{b, corner})
	if len(events) != 1 || events[0].Kind != CollisionStopped {
		t.Errorf("expected one stopped event, got %+v", events)
	}
}

// TestBounceOffRotatedBox reflects a ball off a wall rotated by 90°
func TestBounceOffRotatedBox(t *testing.T) {
	s := NewSolver()
	// Long axis along Y after rotation, thickness along X
	wall := &Body{ID: 2, Kind: Fixed, Shape: Box(300, 5), Rotation: geom.Deg(90), Restitution: elastic, Friction: slippery}
	b := ball(1, geom.V(-26, 0), geom.V(300, 300))

	s.Step(1.0/60, []*Body{b, wall})

	if b.Velocity.X >= 0 {
		t.Errorf("X velocity should flip, got %+v", b.Velocity)
	}
	if math.Abs(b.Velocity.Y-300) > 1e-6 {
		t.Errorf("tangential velocity should be preserved without friction, got %+v", b.Velocity)
	}
}

// TestCCDPreventsTunneling fires a fast ball at a thin wall
func TestCCDPreventsTunneling(t *testing.T) {
	s := NewSolver()
	wall := &Body{ID: 2, Kind: Fixed, Shape: Box(5, 300), Restitution: elastic, Friction: slippery}
	b := ball(1, geom.V(-40, 0), geom.V(3000, 0))

	s.Step(1.0/60, []*Body{b, wall})

	if b.Position.X > 0 {
		t.Errorf("ball tunneled through the wall: %+v", b.Position)
	}
}

// TestKinematicVelocityFromDisplacement checks kinematic velocity derivation
func TestKinematicVelocityFromDisplacement(t *testing.T) {
	s := NewSolver()
	paddle := &Body{ID: 3, Kind: KinematicPositionBased, Shape: Circle(70)}

	s.Step(1.0/60, []*Body{paddle})
	if !paddle.Velocity.IsZero() {
		t.Errorf("first step velocity should be zero, got %+v", paddle.Velocity)
	}

	paddle.Position = geom.V(5, 0)
	s.Step(1.0/60, []*Body{paddle})
	if math.Abs(paddle.Velocity.X-300) > 1e-9 {
		t.Errorf("kinematic velocity = %+v, want (300, 0)", paddle.Velocity)
	}
	if paddle.Position != geom.V(5, 0) {
		t.Errorf("engine must not move kinematic bodies, got %+v", paddle.Position)
	}
}

// TestRemovedBodyDropsContact verifies no stop event for removed bodies
func TestRemovedBodyDropsContact(t *testing.T) {
	s := NewSolver()
	corner := &Body{ID: 2, Kind: Fixed, Shape: Circle(70), Restitution: elastic}
	b := ball(1, geom.V(-89, 0), geom.V(1, 0))

	if ev := s.Step(1.0/60, []*Body{b, corner}); len(ev) != 1 {
		t.Fatalf("expected a started event, got %+v", ev)
	}
	if ev := s.Step(1.0/60, []*Body{corner}); len(ev) != 0 {
		t.Errorf("expected no events after removal, got %+v", ev)
	}
}

// TestSweepAndPrunePairs checks broad-phase overlap on both axes
func TestSweepAndPrunePairs(t *testing.T) {
	sap := NewSweepAndPrune(4)
	pairs := sap.Update([]Bounds{
		{MinX: 0, MaxX: 10, MinY: 0, MaxY: 10},
		{MinX: 5, MaxX: 15, MinY: 5, MaxY: 15},
		{MinX: 5, MaxX: 15, MinY: 50, MaxY: 60}, // X overlap only
		{MinX: 10, MaxX: 20, MinY: 0, MaxY: 10}, // touches #0 at x=10
	})

	want := map[Pair]bool{{0, 1}: true, {1, 3}: true, {0, 3}: true}
	if len(pairs) != len(want) {
		t.Fatalf("got pairs %v, want %v", pairs, want)
	}
	for _, p := range pairs {
		if !want[p] {
			t.Errorf("unexpected pair %v", p)
		}
	}
}
