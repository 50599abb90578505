package api_test

import (
	"bytes"
	"encoding/json"
	"image/png"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"crash-ball/internal/api"
	"crash-ball/internal/game"
	"crash-ball/internal/geom"
)

// ============================================================================
// Mock Implementations
// ============================================================================

// MockEngine implements api.EngineInterface for testing
type MockEngine struct {
	mu     sync.Mutex
	inputs []game.RawInput
	snap   game.GameSnapshot
}

func NewMockEngine() *MockEngine {
	return &MockEngine{
		snap: game.GameSnapshot{
			Sequence:   7,
			TickNumber: 42,
			Arena:      geom.Rectangle{X: -375, Y: -375, W: 750, H: 750},
			Balls: []game.BallSnapshot{
				{ID: 9, Position: geom.V(10, 20), Radius: game.BallRadius},
			},
		},
	}
}

func (m *MockEngine) GetSnapshot() *game.GameSnapshot { return &m.snap }
func (m *MockEngine) Stats() game.Stats               { return game.Stats{Tick: 42, Balls: 1} }
func (m *MockEngine) Arena() geom.Rectangle           { return m.snap.Arena }
func (m *MockEngine) InputMap() *game.InputMap        { return game.DefaultInputMap() }

func (m *MockEngine) SetInput(raw game.RawInput) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inputs = append(m.inputs, raw)
}

func (m *MockEngine) GetEventLogStats() map[string]interface{} {
	return map[string]interface{}{"total": uint64(3), "dropped": uint64(0)}
}

func (m *MockEngine) Inputs() []game.RawInput {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]game.RawInput(nil), m.inputs...)
}

func newTestServer(t *testing.T, cfg api.RouterConfig) *httptest.Server {
	t.Helper()
	cfg.DisableLogging = true
	if cfg.RateLimitConfig == nil && cfg.RateLimiter == nil {
		cfg.RateLimitConfig = &api.RateLimitConfig{
			RequestsPerSecond: 1000,
			Burst:             1000,
			CleanupInterval:   time.Hour,
		}
	}
	ts := httptest.NewServer(api.NewRouter(cfg))
	t.Cleanup(ts.Close)
	return ts
}

// ============================================================================
// API Endpoint Tests
// ============================================================================

// TestAPIGetState tests the snapshot endpoint
func TestAPIGetState(t *testing.T) {
	ts := newTestServer(t, api.RouterConfig{Engine: NewMockEngine()})

	resp, err := http.Get(ts.URL + "/api/state")
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}

	var snap game.GameSnapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if snap.TickNumber != 42 || len(snap.Balls) != 1 || snap.Balls[0].ID != 9 {
		t.Errorf("snapshot = %+v", snap)
	}
}

// TestAPIGetStats tests the counters endpoint
func TestAPIGetStats(t *testing.T) {
	ts := newTestServer(t, api.RouterConfig{Engine: NewMockEngine()})

	resp, err := http.Get(ts.URL + "/api/stats")
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	var result struct {
		Stats    game.Stats             `json:"stats"`
		EventLog map[string]interface{} `json:"eventLog"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if result.Stats.Tick != 42 || result.EventLog["total"] != float64(3) {
		t.Errorf("stats = %+v", result)
	}
}

// TestAPIGetArena verifies the rectangle and every named anchor
func TestAPIGetArena(t *testing.T) {
	ts := newTestServer(t, api.RouterConfig{Engine: NewMockEngine()})

	resp, err := http.Get(ts.URL + "/api/arena")
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	var result struct {
		Arena   geom.Rectangle       `json:"arena"`
		Anchors map[string]geom.Vec2 `json:"anchors"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if len(result.Anchors) != len(geom.Anchors) {
		t.Errorf("anchors = %d, want %d", len(result.Anchors), len(geom.Anchors))
	}
	tests := map[string]geom.Vec2{
		"bottom_middle": geom.V(0, -375),
		"top_right":     geom.V(375, 375),
		"left_middle":   geom.V(-375, 0),
	}
	for name, want := range tests {
		if got := result.Anchors[name]; got != want {
			t.Errorf("anchor %s = %v, want %v", name, got, want)
		}
	}
}

// TestAPIPostInput tests input validation
func TestAPIPostInput(t *testing.T) {
	engine := NewMockEngine()
	ts := newTestServer(t, api.RouterConfig{Engine: engine})

	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{"buttons", `{"buttons":["Space","ArrowLeft"]}`, http.StatusOK},
		{"axes", `{"axes":{"LeftStickX":-0.8}}`, http.StatusOK},
		{"empty", `{}`, http.StatusOK},
		{"invalid json", `{invalid}`, http.StatusBadRequest},
		{"too many buttons", `{"buttons":["a","b","c","d","e","f","g","h","i","j","k","l","m","n","o","p","q","r","s","t","u","v","w","x","y","z","1","2","3","4","5","6","7"]}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Post(ts.URL+"/api/input", "application/json", bytes.NewReader([]byte(tt.body)))
			if err != nil {
				t.Fatalf("Request failed: %v", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != tt.wantStatus {
				t.Errorf("Expected %d, got %d", tt.wantStatus, resp.StatusCode)
			}
		})
	}

	inputs := engine.Inputs()
	if len(inputs) != 3 {
		t.Fatalf("engine received %d inputs, want 3", len(inputs))
	}
	if !inputs[0].Held(game.ButtonSpace) || !inputs[0].Held(game.ButtonArrowLeft) {
		t.Errorf("first input = %+v", inputs[0])
	}
	if inputs[1].Axes[game.AxisLeftStickX] != -0.8 {
		t.Errorf("second input = %+v", inputs[1])
	}
}

// TestAPIInputAuth verifies the bearer token guard
func TestAPIInputAuth(t *testing.T) {
	engine := NewMockEngine()
	ts := newTestServer(t, api.RouterConfig{
		Engine: engine,
		Auth:   api.NewInputAuth("s3cret"),
	})

	post := func(header string) int {
		req, _ := http.NewRequest(http.MethodPost, ts.URL+"/api/input", bytes.NewReader([]byte(`{"buttons":["Space"]}`)))
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("Request failed: %v", err)
		}
		resp.Body.Close()
		return resp.StatusCode
	}

	if got := post(""); got != http.StatusUnauthorized {
		t.Errorf("no token: got %d", got)
	}
	if got := post("Bearer wrong"); got != http.StatusUnauthorized {
		t.Errorf("wrong token: got %d", got)
	}
	if got := post("Bearer s3cret"); got != http.StatusOK {
		t.Errorf("right token: got %d", got)
	}
	if len(engine.Inputs()) != 1 {
		t.Errorf("engine received %d inputs, want 1", len(engine.Inputs()))
	}

	// Reads stay open
	resp, err := http.Get(ts.URL + "/api/state")
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("state with auth configured: got %d", resp.StatusCode)
	}
}

// TestAPIFramePNG verifies the rendered frame decodes
func TestAPIFramePNG(t *testing.T) {
	ts := newTestServer(t, api.RouterConfig{Engine: NewMockEngine()})

	resp, err := http.Get(ts.URL + "/api/frame.png")
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "image/png" {
		t.Errorf("content type = %q", ct)
	}
	img, err := png.Decode(resp.Body)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 850 || b.Dy() != 850 {
		t.Errorf("bounds = %v", b)
	}
}

// TestAPIRateLimit verifies requests beyond the burst are rejected
func TestAPIRateLimit(t *testing.T) {
	ts := newTestServer(t, api.RouterConfig{
		Engine: NewMockEngine(),
		RateLimitConfig: &api.RateLimitConfig{
			RequestsPerSecond: 0.001,
			Burst:             2,
			CleanupInterval:   time.Hour,
		},
	})

	var codes []int
	for i := 0; i < 3; i++ {
		resp, err := http.Get(ts.URL + "/health")
		if err != nil {
			t.Fatalf("Request failed: %v", err)
		}
		resp.Body.Close()
		codes = append(codes, resp.StatusCode)
	}

	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Errorf("status codes = %v", codes)
	}
}

// TestAPIInputDrivesEngine posts a tap to a real engine and steps it
func TestAPIInputDrivesEngine(t *testing.T) {
	engine, err := game.NewEngine(game.DefaultEngineConfig())
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	ts := newTestServer(t, api.RouterConfig{Engine: engine})

	for _, body := range []string{`{"buttons":["Space"]}`, `{}`} {
		resp, err := http.Post(ts.URL+"/api/input", "application/json", bytes.NewReader([]byte(body)))
		if err != nil {
			t.Fatalf("Request failed: %v", err)
		}
		resp.Body.Close()
	}

	stats := engine.Step()
	if stats.WavesFired != 1 || stats.Waves != 1 {
		t.Errorf("stats after tap = %+v", stats)
	}
}
