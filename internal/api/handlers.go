package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"net/http"
	"time"

	"crash-ball/internal/game"
	"crash-ball/internal/geom"
)

const (
	// maxInputBody bounds POST /api/input payloads
	maxInputBody = 4 << 10

	// maxInputButtons bounds the buttons one poll may report
	maxInputButtons = 32
)

var errInvalidInput = errors.New("invalid input")

func (h *routerHandlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]interface{}{
		"status": "ok",
		"tick":   h.engine.Stats().Tick,
	})
}

func (h *routerHandlers) handleGetState(w http.ResponseWriter, r *http.Request) {
	// Lock-free snapshot, no contention with the tick goroutine
	writeJSON(w, h.engine.GetSnapshot())
}

func (h *routerHandlers) handleGetStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]interface{}{
		"stats":    h.engine.Stats(),
		"eventLog": h.engine.GetEventLogStats(),
	})
}

// arenaResponse describes the playable rectangle and its named anchors
type arenaResponse struct {
	Arena   geom.Rectangle       `json:"arena"`
	Anchors map[string]geom.Vec2 `json:"anchors"`
}

func (h *routerHandlers) handleGetArena(w http.ResponseWriter, r *http.Request) {
	arena := h.engine.Arena()
	resp := arenaResponse{
		Arena:   arena,
		Anchors: make(map[string]geom.Vec2, len(geom.Anchors)),
	}
	for _, a := range geom.Anchors {
		resp.Anchors[a.String()] = arena.Anchor(a)
	}
	writeJSON(w, resp)
}

func (h *routerHandlers) handleGetFrame(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	if err := h.renderer.WritePNG(w, h.engine.GetSnapshot()); err != nil {
		log.Printf("❌ Frame render failed: %v", err)
		return
	}
	RecordRender(time.Since(start))
}

func (h *routerHandlers) handleGetBindings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]interface{}{
		"buttons": h.engine.InputMap().Buttons(),
	})
}

func (h *routerHandlers) handlePostInput(w http.ResponseWriter, r *http.Request) {
	var raw game.RawInput
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxInputBody)).Decode(&raw); err != nil {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if err := validateInput(raw); err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.engine.SetInput(raw)
	writeJSON(w, map[string]bool{"success": true})
}

// validateInput rejects oversized or non-finite device reports
func validateInput(raw game.RawInput) error {
	if len(raw.Buttons) > maxInputButtons {
		return fmt.Errorf("%w: %d buttons exceeds %d", errInvalidInput, len(raw.Buttons), maxInputButtons)
	}
	if len(raw.Axes) > maxInputButtons {
		return fmt.Errorf("%w: %d axes exceeds %d", errInvalidInput, len(raw.Axes), maxInputButtons)
	}
	for name, v := range raw.Axes {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: axis %q is not finite", errInvalidInput, name)
		}
	}
	return nil
}

// Helper functions (package-level for reuse)

func writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
