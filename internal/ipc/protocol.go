// Package ipc ships snapshots from the simulation server to companion
// processes (the frame recorder) over a Unix domain socket.
//
// Every message is an 8-byte header followed by a msgpack body.
package ipc

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"time"

	"crash-ball/internal/game"
	"crash-ball/internal/geom"

	"github.com/vmihailenco/msgpack/v5"
)

const (
	// DefaultSocketPath is the Unix socket path for IPC
	DefaultSocketPath = "/tmp/crash-ball.sock"

	// DefaultTCPPort is used where Unix sockets are unavailable
	DefaultTCPPort = "127.0.0.1:7070"

	// Message types
	MsgTypeSnapshot byte = 0x01
	MsgTypePing     byte = 0x02
	MsgTypePong     byte = 0x03
	MsgTypeConfig   byte = 0x04

	// ProtocolVersion is bumped whenever the body encoding changes
	ProtocolVersion uint16 = 2

	// Connection settings
	MaxMessageSize = 1024 * 1024 // 1MB max message
	WriteTimeout   = 50 * time.Millisecond
	ReconnectDelay = 500 * time.Millisecond
)

// ConfigMessage describes the simulation a subscriber is attached to
type ConfigMessage struct {
	TickRate int            `msgpack:"tickRate"`
	Seed     int64          `msgpack:"seed"`
	Arena    geom.Rectangle `msgpack:"arena"`
	Viewport geom.Vec2      `msgpack:"viewport"`
}

// HeaderSize is the fixed frame header length: version(2) type(1) reserved(1) length(4)
const HeaderSize = 8

// Encode marshals a message body
func Encode(data interface{}) ([]byte, error) {
	if data == nil {
		return nil, nil
	}
	buf, err := msgpack.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("msgpack encode: %w", err)
	}
	if len(buf) > MaxMessageSize {
		return nil, fmt.Errorf("message too large: %d > %d", len(buf), MaxMessageSize)
	}
	return buf, nil
}

// WriteFrame writes a header and an already encoded body
func WriteFrame(w io.Writer, msgType byte, body []byte) error {
	header := make([]byte, HeaderSize, HeaderSize+len(body))
	binary.LittleEndian.PutUint16(header[0:2], ProtocolVersion)
	header[2] = msgType
	binary.LittleEndian.PutUint32(header[4:8], uint32(len(body)))

	// One write per frame so concurrent readers never see a torn header
	if _, err := w.Write(append(header, body...)); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

// WriteMessage encodes data and writes it as one frame
func WriteMessage(w io.Writer, msgType byte, data interface{}) error {
	body, err := Encode(data)
	if err != nil {
		return err
	}
	return WriteFrame(w, msgType, body)
}

// ReadMessage reads one framed message
func ReadMessage(r io.Reader) (byte, []byte, error) {
	header := make([]byte, HeaderSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return 0, nil, err
	}

	version := binary.LittleEndian.Uint16(header[0:2])
	if version != ProtocolVersion {
		return 0, nil, fmt.Errorf("version mismatch: got %d, want %d", version, ProtocolVersion)
	}

	length := binary.LittleEndian.Uint32(header[4:8])
	if length > MaxMessageSize {
		return 0, nil, fmt.Errorf("message too large: %d > %d", length, MaxMessageSize)
	}

	var body []byte
	if length > 0 {
		body = make([]byte, length)
		if _, err := io.ReadFull(r, body); err != nil {
			return 0, nil, fmt.Errorf("read body: %w", err)
		}
	}

	return header[2], body, nil
}

// DecodeSnapshot decodes a snapshot body
func DecodeSnapshot(data []byte) (*game.GameSnapshot, error) {
	var snap game.GameSnapshot
	if err := msgpack.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("msgpack decode snapshot: %w", err)
	}
	return &snap, nil
}

// DecodeConfig decodes a config body
func DecodeConfig(data []byte) (*ConfigMessage, error) {
	var msg ConfigMessage
	if err := msgpack.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("msgpack decode config: %w", err)
	}
	return &msg, nil
}

// CleanupSocket removes the socket file if it exists
func CleanupSocket(path string) error {
	if _, err := os.Stat(path); err == nil {
		return os.Remove(path)
	}
	return nil
}
