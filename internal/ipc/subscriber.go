package ipc

import (
	"errors"
	"io"
	"log"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"crash-ball/internal/game"
)

// Subscriber receives snapshots from the server and reconnects on loss
type Subscriber struct {
	socketPath string
	conn       net.Conn
	connMu     sync.Mutex

	// Latest snapshot (lock-free access)
	latestSnapshot atomic.Pointer[game.GameSnapshot]

	// Config received from server
	config   ConfigMessage
	configMu sync.RWMutex
	configCh chan ConfigMessage

	snapshotsReceived atomic.Int64
	reconnects        atomic.Int64
	errors            atomic.Int64

	running atomic.Bool
	stopCh  chan struct{}
	wg      sync.WaitGroup

	// Callbacks run on the read goroutine; set them before Start
	onSnapshot   func(*game.GameSnapshot)
	onConfig     func(*ConfigMessage)
	onConnect    func()
	onDisconnect func()
}

// NewSubscriber creates a new IPC subscriber
func NewSubscriber(socketPath string) *Subscriber {
	if socketPath == "" {
		socketPath = DefaultSocketPath
	}

	return &Subscriber{
		socketPath: socketPath,
		configCh:   make(chan ConfigMessage, 1),
		stopCh:     make(chan struct{}),
	}
}

// OnSnapshot sets a callback for when a snapshot is received
func (s *Subscriber) OnSnapshot(fn func(*game.GameSnapshot)) {
	s.onSnapshot = fn
}

// OnConfig sets a callback for when config is received
func (s *Subscriber) OnConfig(fn func(*ConfigMessage)) {
	s.onConfig = fn
}

// OnConnect sets a callback for when connection is established
func (s *Subscriber) OnConnect(fn func()) {
	s.onConnect = fn
}

// OnDisconnect sets a callback for when connection is lost
func (s *Subscriber) OnDisconnect(fn func()) {
	s.onDisconnect = fn
}

// Start starts the subscriber, connecting to the server
func (s *Subscriber) Start() error {
	if !s.running.CompareAndSwap(false, true) {
		return nil // Already running
	}

	s.wg.Add(1)
	go s.connectionLoop()

	log.Printf("📡 IPC Subscriber started, connecting to %s", GetPlatformAddress(s.socketPath))
	return nil
}

// Stop stops the subscriber
func (s *Subscriber) Stop() {
	if !s.running.CompareAndSwap(true, false) {
		return // Not running
	}

	close(s.stopCh)

	s.connMu.Lock()
	if s.conn != nil {
		s.conn.Close()
	}
	s.connMu.Unlock()

	s.wg.Wait()
	log.Println("📡 IPC Subscriber stopped")
}

// GetSnapshot returns the most recent snapshot, nil before the first one
func (s *Subscriber) GetSnapshot() *game.GameSnapshot {
	return s.latestSnapshot.Load()
}

// GetConfig returns the last handshake received
func (s *Subscriber) GetConfig() ConfigMessage {
	s.configMu.RLock()
	defer s.configMu.RUnlock()
	return s.config
}

// WaitForConfig blocks until config is received or timeout
func (s *Subscriber) WaitForConfig(timeout time.Duration) *ConfigMessage {
	select {
	case cfg := <-s.configCh:
		return &cfg
	case <-time.After(timeout):
		return nil
	case <-s.stopCh:
		return nil
	}
}

// GetStats returns subscriber statistics
func (s *Subscriber) GetStats() (received int64, reconnects int64, errors int64) {
	return s.snapshotsReceived.Load(), s.reconnects.Load(), s.errors.Load()
}

// IsConnected returns whether the subscriber is connected
func (s *Subscriber) IsConnected() bool {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	return s.conn != nil
}

func (s *Subscriber) connectionLoop() {
	defer s.wg.Done()

	for s.running.Load() {
		conn, err := ConnectPlatform(s.socketPath)
		if err != nil {
			select {
			case <-s.stopCh:
				return
			case <-time.After(ReconnectDelay):
				continue
			}
		}
		log.Printf("✅ Connected to server at %s", GetPlatformAddress(s.socketPath))

		s.connMu.Lock()
		s.conn = conn
		s.connMu.Unlock()

		if s.onConnect != nil {
			s.onConnect()
		}

		s.readLoop(conn)

		s.connMu.Lock()
		s.conn = nil
		s.connMu.Unlock()
		conn.Close()

		if s.onDisconnect != nil {
			s.onDisconnect()
		}

		select {
		case <-s.stopCh:
			return
		case <-time.After(ReconnectDelay):
			s.reconnects.Add(1)
		}
	}
}

func (s *Subscriber) readLoop(conn net.Conn) {
	// Reads block without a deadline; Stop unblocks them by closing conn
	for s.running.Load() {
		msgType, data, err := ReadMessage(conn)
		if err != nil {
			if errors.Is(err, io.EOF) {
				log.Println("🔌 Server closed connection")
				return
			}
			if s.running.Load() {
				log.Printf("⚠️ IPC read error: %v", err)
				s.errors.Add(1)
			}
			return
		}

		switch msgType {
		case MsgTypeSnapshot:
			s.handleSnapshot(data)

		case MsgTypeConfig:
			s.handleConfig(data)

		case MsgTypePing:
			conn.SetWriteDeadline(time.Now().Add(WriteTimeout))
			WriteMessage(conn, MsgTypePong, nil)
		}
	}
}

func (s *Subscriber) handleSnapshot(data []byte) {
	snapshot, err := DecodeSnapshot(data)
	if err != nil {
		log.Printf("⚠️ Failed to decode snapshot: %v", err)
		s.errors.Add(1)
		return
	}

	s.latestSnapshot.Store(snapshot)
	s.snapshotsReceived.Add(1)

	if s.onSnapshot != nil {
		s.onSnapshot(snapshot)
	}
}

func (s *Subscriber) handleConfig(data []byte) {
	config, err := DecodeConfig(data)
	if err != nil {
		log.Printf("⚠️ Failed to decode config: %v", err)
		s.errors.Add(1)
		return
	}

	s.configMu.Lock()
	s.config = *config
	s.configMu.Unlock()

	log.Printf("📺 Attached to simulation: %d TPS, seed %d, arena %.0fx%.0f",
		config.TickRate, config.Seed, config.Arena.W, config.Arena.H)

	select {
	case s.configCh <- *config:
	default:
	}

	if s.onConfig != nil {
		s.onConfig(config)
	}
}
