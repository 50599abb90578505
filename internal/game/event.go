package game

import (
	"encoding/json"
	"time"

	"crash-ball/internal/geom"
)

// EventType enum for event classification
type EventType uint8

const (
	EventTypeUnknown EventType = iota
	EventTypeTick              // Tick boundary with counters
	EventTypeBallSpawn
	EventTypeBallDespawn
	EventTypeEnergize
	EventTypeWaveFire
	EventTypeWaveExpire
	EventTypeCollisionStart
	EventTypeCollisionStop
)

// EventVersion for backwards compatibility in replay
const EventVersion uint8 = 1

// Event is the core event structure for the event log
type Event struct {
	Version   uint8     `json:"version"`   // Schema version
	Type      EventType `json:"type"`      // Event type
	Timestamp int64     `json:"timestamp"` // Unix nano
	Sequence  uint64    `json:"sequence"`  // Monotonic sequence
	TickNum   uint64    `json:"tickNum"`   // Simulation tick this occurred in
	EntityID  EntityID  `json:"entityId"`  // Source entity (for rate limiting), 0 for world events
	Payload   []byte    `json:"payload"`   // JSON-encoded payload
}

// String returns human-readable event type
func (t EventType) String() string {
	switch t {
	case EventTypeTick:
		return "tick"
	case EventTypeBallSpawn:
		return "ball_spawn"
	case EventTypeBallDespawn:
		return "ball_despawn"
	case EventTypeEnergize:
		return "energize"
	case EventTypeWaveFire:
		return "wave_fire"
	case EventTypeWaveExpire:
		return "wave_expire"
	case EventTypeCollisionStart:
		return "collision_start"
	case EventTypeCollisionStop:
		return "collision_stop"
	default:
		return "unknown"
	}
}

// MarshalText lets event types appear by name in JSON
func (t EventType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// Typed payloads for different event types

// TickPayload contains tick boundary information for replay
type TickPayload struct {
	Seed        int64 `json:"seed"`
	Balls       int   `json:"balls"`
	Waves       int   `json:"waves"`
	DeltaTimeNs int64 `json:"deltaTimeNs"`
}

// BallSpawnPayload contains where and how a ball entered
type BallSpawnPayload struct {
	Corner   string    `json:"corner"`
	Position geom.Vec2 `json:"position"`
	Velocity geom.Vec2 `json:"velocity"`
}

// BallDespawnPayload contains where a ball left the arena
type BallDespawnPayload struct {
	Position geom.Vec2 `json:"position"`
}

// EnergizePayload names the wave that energized a ball
type EnergizePayload struct {
	WaveID EntityID `json:"waveId"`
}

// WaveFirePayload contains the wave center at fire time
type WaveFirePayload struct {
	Center geom.Vec2 `json:"center"`
}

// CollisionPayload contains the pair of a contact event
type CollisionPayload struct {
	A EntityID `json:"a"`
	B EntityID `json:"b"`
}

// EncodePayload marshals a payload to JSON bytes
func EncodePayload(payload interface{}) []byte {
	if payload == nil {
		return nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil
	}
	return data
}

// NewEvent creates a new event with the current timestamp
func NewEvent(eventType EventType, tickNum uint64, entity EntityID, payload interface{}) Event {
	return Event{
		Version:   EventVersion,
		Type:      eventType,
		Timestamp: time.Now().UnixNano(),
		TickNum:   tickNum,
		EntityID:  entity,
		Payload:   EncodePayload(payload),
	}
}
