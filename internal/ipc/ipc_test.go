package ipc

import (
	"bytes"
	"os"
	"path/filepath"
	"runtime"
	"sync/atomic"
	"testing"
	"time"

	"crash-ball/internal/game"
	"crash-ball/internal/geom"
)

// fakeSource hands out a fixed snapshot whose sequence tests can bump
type fakeSource struct {
	snap atomic.Pointer[game.GameSnapshot]
}

func (f *fakeSource) GetSnapshot() *game.GameSnapshot { return f.snap.Load() }

func (f *fakeSource) publish(seq uint64) {
	f.snap.Store(&game.GameSnapshot{
		Sequence:   seq,
		TickNumber: seq * 10,
		Arena:      geom.Rectangle{X: -375, Y: -375, W: 750, H: 750},
		Balls: []game.BallSnapshot{
			{ID: 9, Position: geom.V(1, 2), Velocity: geom.V(0, 400), Radius: 20, Energized: true},
		},
		Player: &game.PlayerSnapshot{ID: 8, Position: geom.V(0, -375), Radius: 70},
	})
}

// socketPath keeps the path short; Unix socket paths are limited to ~100 bytes
func socketPath(t *testing.T) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("unix sockets only")
	}
	dir, err := os.MkdirTemp("", "cb")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })
	return filepath.Join(dir, "s.sock")
}

func TestFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	cfg := ConfigMessage{TickRate: 60, Seed: 7, Arena: geom.Rectangle{W: 10, H: 20}}
	if err := WriteMessage(&buf, MsgTypeConfig, cfg); err != nil {
		t.Fatal(err)
	}
	if err := WriteMessage(&buf, MsgTypePing, nil); err != nil {
		t.Fatal(err)
	}

	msgType, body, err := ReadMessage(&buf)
	if err != nil || msgType != MsgTypeConfig {
		t.Fatalf("first frame: type %d err %v", msgType, err)
	}
	got, err := DecodeConfig(body)
	if err != nil || *got != cfg {
		t.Errorf("config = %+v, %v", got, err)
	}

	msgType, body, err = ReadMessage(&buf)
	if err != nil || msgType != MsgTypePing || len(body) != 0 {
		t.Errorf("ping frame: type %d body %d err %v", msgType, len(body), err)
	}
}

func TestReadMessageRejectsBadHeaders(t *testing.T) {
	tests := []struct {
		name   string
		header []byte
	}{
		{"wrong version", []byte{9, 0, MsgTypePing, 0, 0, 0, 0, 0}},
		{"too large", []byte{byte(ProtocolVersion), 0, MsgTypeSnapshot, 0, 0xff, 0xff, 0xff, 0x7f}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := ReadMessage(bytes.NewReader(tt.header)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestPublisherToSubscriber(t *testing.T) {
	path := socketPath(t)
	src := &fakeSource{}
	src.publish(1)

	pub := NewPublisher(path, src, 5*time.Millisecond)
	pub.SetConfig(ConfigMessage{TickRate: 60, Seed: 42})
	if err := pub.Start(); err != nil {
		t.Fatalf("publisher start: %v", err)
	}
	defer pub.Stop()

	got := make(chan *game.GameSnapshot, 16)
	sub := NewSubscriber(path)
	sub.OnSnapshot(func(s *game.GameSnapshot) {
		select {
		case got <- s:
		default:
		}
	})
	if err := sub.Start(); err != nil {
		t.Fatalf("subscriber start: %v", err)
	}
	defer sub.Stop()

	cfg := sub.WaitForConfig(2 * time.Second)
	if cfg == nil || cfg.Seed != 42 {
		t.Fatalf("config = %+v", cfg)
	}

	select {
	case snap := <-got:
		if snap.Sequence != 1 || len(snap.Balls) != 1 || !snap.Balls[0].Energized {
			t.Errorf("snapshot = %+v", snap)
		}
		if snap.Player == nil || snap.Player.Position != geom.V(0, -375) {
			t.Errorf("player = %+v", snap.Player)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no snapshot received")
	}

	// Unchanged sequences are not resent
	src.publish(2)
	select {
	case snap := <-got:
		if snap.Sequence != 2 {
			t.Errorf("sequence = %d, want 2", snap.Sequence)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("second snapshot not received")
	}

	if sub.GetSnapshot().Sequence != 2 {
		t.Errorf("latest = %d", sub.GetSnapshot().Sequence)
	}
	if clients, sent, _ := pub.GetStats(); clients != 1 || sent < 1 {
		t.Errorf("publisher stats: clients %d sent %d", clients, sent)
	}
}

func TestPublisherWithEngine(t *testing.T) {
	path := socketPath(t)
	engine, err := game.NewEngine(game.DefaultEngineConfig())
	if err != nil {
		t.Fatal(err)
	}

	pub := NewPublisher(path, engine, 5*time.Millisecond)
	if err := pub.Start(); err != nil {
		t.Fatal(err)
	}
	defer pub.Stop()

	sub := NewSubscriber(path)
	if err := sub.Start(); err != nil {
		t.Fatal(err)
	}
	defer sub.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		engine.Step()
		if snap := sub.GetSnapshot(); snap != nil && len(snap.Obstacles) == 7 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("engine snapshot never arrived")
}
