package game

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"crash-ball/internal/geom"
)

func TestEventLogNotRunningDrops(t *testing.T) {
	el := NewEventLog()
	if el.EmitSimple(EventTypeTick, 1, 0, nil) {
		t.Error("emit before Start should fail")
	}
	el.Stop()
}

func TestEventLogWritesJSONL(t *testing.T) {
	var buf bytes.Buffer
	el := NewEventLog()
	if err := el.StartWriter(&buf); err != nil {
		t.Fatal(err)
	}

	el.EmitSimple(EventTypeBallSpawn, 60, 8, BallSpawnPayload{Corner: "bottom_left", Position: geom.V(1, 2)})
	el.EmitSimple(EventTypeEnergize, 61, 8, EnergizePayload{WaveID: 9})
	el.EmitSimple(EventTypeTick, 61, 0, TickPayload{Balls: 1})
	el.Stop()

	var lines []map[string]interface{}
	sc := bufio.NewScanner(&buf)
	for sc.Scan() {
		var m map[string]interface{}
		if err := json.Unmarshal(sc.Bytes(), &m); err != nil {
			t.Fatalf("bad line %q: %v", sc.Text(), err)
		}
		lines = append(lines, m)
	}

	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3", len(lines))
	}
	wantTypes := []string{"ball_spawn", "energize", "tick"}
	for i, want := range wantTypes {
		if lines[i]["type"] != want {
			t.Errorf("line %d type = %v, want %s", i, lines[i]["type"], want)
		}
		if seq := lines[i]["sequence"].(float64); int(seq) != i+1 {
			t.Errorf("line %d sequence = %v", i, seq)
		}
	}
}

func TestEventLogPerEntityLimit(t *testing.T) {
	el := NewEventLog()
	if err := el.StartWriter(nil); err != nil {
		t.Fatal(err)
	}
	defer el.Stop()

	accepted := 0
	for i := 0; i < 200; i++ {
		if el.EmitSimple(EventTypeCollisionStart, uint64(i), 5, CollisionPayload{A: 1, B: 5}) {
			accepted++
		}
	}

	if accepted >= 50 {
		t.Errorf("accepted %d events from one entity, limiter not applied", accepted)
	}
	if el.GetDroppedCount() == 0 {
		t.Error("expected dropped events")
	}

	// A different entity still gets through
	if !el.EmitSimple(EventTypeBallSpawn, 1, 6, nil) {
		t.Error("other entity should not be limited")
	}
}

func TestEventLogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	el := NewEventLog()
	if err := el.Start(path); err != nil {
		t.Fatal(err)
	}
	el.EmitSimple(EventTypeWaveFire, 1, 3, WaveFirePayload{Center: geom.V(0, -375)})
	el.Stop()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(data, []byte(`"wave_fire"`)) {
		t.Errorf("file content = %s", data)
	}
}

// TestEngineEventLogRecordsSpawn runs the engine long enough to log a spawn
func TestEngineEventLogRecordsSpawn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	e := newTestEngine(t)
	if err := e.StartEventLog(path); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 60; i++ {
		e.Step()
	}
	e.StopEventLog()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(data, []byte(`"ball_spawn"`)) {
		t.Error("spawn not logged")
	}
	if got := bytes.Count(data, []byte(`"type":"tick"`)); got != 60 {
		t.Errorf("tick events = %d, want 60", got)
	}
}
