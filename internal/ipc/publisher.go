package ipc

import (
	"log"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"crash-ball/internal/game"
)

// SnapshotSource is anything that hands out the latest published snapshot
type SnapshotSource interface {
	GetSnapshot() *game.GameSnapshot
}

// Publisher pushes snapshots from a source to every connected subscriber
type Publisher struct {
	socketPath string
	listener   net.Listener
	source     SnapshotSource
	interval   time.Duration

	clients   map[net.Conn]struct{}
	clientsMu sync.RWMutex

	// Config to send to new clients
	config   ConfigMessage
	configMu sync.RWMutex

	clientCount   atomic.Int32
	snapshotsSent atomic.Int64
	writeErrors   atomic.Int64

	running atomic.Bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewPublisher creates a publisher that polls source every interval
func NewPublisher(socketPath string, source SnapshotSource, interval time.Duration) *Publisher {
	if socketPath == "" {
		socketPath = DefaultSocketPath
	}
	if interval <= 0 {
		interval = time.Second / game.DefaultTickRate
	}

	return &Publisher{
		socketPath: socketPath,
		source:     source,
		interval:   interval,
		clients:    make(map[net.Conn]struct{}),
		stopCh:     make(chan struct{}),
	}
}

// SetConfig sets the handshake message sent to new clients
func (p *Publisher) SetConfig(cfg ConfigMessage) {
	p.configMu.Lock()
	p.config = cfg
	p.configMu.Unlock()
}

// Start opens the socket and starts the accept and publish loops
func (p *Publisher) Start() error {
	if !p.running.CompareAndSwap(false, true) {
		return nil // Already running
	}

	listener, err := CreatePlatformListener(p.socketPath)
	if err != nil {
		p.running.Store(false)
		return err
	}
	p.listener = listener

	p.wg.Add(2)
	go p.acceptLoop()
	go p.publishLoop()

	log.Printf("📡 IPC Publisher started on %s", GetPlatformAddress(p.socketPath))
	return nil
}

// Stop closes every client and removes the socket
func (p *Publisher) Stop() {
	if !p.running.CompareAndSwap(true, false) {
		return // Not running
	}

	close(p.stopCh)
	p.listener.Close()

	p.clientsMu.Lock()
	for conn := range p.clients {
		conn.Close()
	}
	p.clients = make(map[net.Conn]struct{})
	p.clientsMu.Unlock()
	p.clientCount.Store(0)

	p.wg.Wait()

	CleanupSocket(p.socketPath)
	log.Println("📡 IPC Publisher stopped")
}

// GetStats returns publisher statistics
func (p *Publisher) GetStats() (clients int, sent int64, errors int64) {
	return int(p.clientCount.Load()), p.snapshotsSent.Load(), p.writeErrors.Load()
}

func (p *Publisher) acceptLoop() {
	defer p.wg.Done()

	for p.running.Load() {
		conn, err := p.listener.Accept()
		if err != nil {
			if !p.running.Load() {
				return // Expected during shutdown
			}
			log.Printf("⚠️ IPC accept error: %v", err)
			continue
		}

		p.addClient(conn)
	}
}

func (p *Publisher) addClient(conn net.Conn) {
	p.configMu.RLock()
	config := p.config
	p.configMu.RUnlock()

	// The handshake goes out before the client joins the broadcast set,
	// so it is always the first frame a subscriber reads
	conn.SetWriteDeadline(time.Now().Add(time.Second))
	if err := WriteMessage(conn, MsgTypeConfig, config); err != nil {
		log.Printf("⚠️ Failed to send config to subscriber: %v", err)
		conn.Close()
		return
	}

	p.clientsMu.Lock()
	p.clients[conn] = struct{}{}
	p.clientsMu.Unlock()

	log.Printf("✅ Subscriber connected (total: %d)", p.clientCount.Add(1))
}

func (p *Publisher) removeClient(conn net.Conn) {
	p.clientsMu.Lock()
	_, ok := p.clients[conn]
	if ok {
		delete(p.clients, conn)
		conn.Close()
	}
	p.clientsMu.Unlock()

	if ok {
		log.Printf("🔌 Subscriber disconnected (remaining: %d)", p.clientCount.Add(-1))
	}
}

// publishLoop encodes each new snapshot once and fans it out
func (p *Publisher) publishLoop() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	var lastSeq uint64
	for {
		select {
		case <-p.stopCh:
			return
		case <-ticker.C:
		}

		if p.clientCount.Load() == 0 {
			continue
		}
		snap := p.source.GetSnapshot()
		if snap == nil || snap.Sequence == lastSeq {
			continue
		}
		lastSeq = snap.Sequence

		// Encode right away; the pool reuses this slot a few ticks later
		body, err := Encode(snap)
		if err != nil {
			log.Printf("⚠️ IPC encode failed: %v", err)
			continue
		}
		p.broadcast(body)
	}
}

func (p *Publisher) broadcast(body []byte) {
	p.clientsMu.RLock()
	clients := make([]net.Conn, 0, len(p.clients))
	for conn := range p.clients {
		clients = append(clients, conn)
	}
	p.clientsMu.RUnlock()

	var failed []net.Conn
	for _, conn := range clients {
		conn.SetWriteDeadline(time.Now().Add(WriteTimeout))
		if err := WriteFrame(conn, MsgTypeSnapshot, body); err != nil {
			failed = append(failed, conn)
		}
	}

	for _, conn := range failed {
		p.writeErrors.Add(1)
		p.removeClient(conn)
	}

	if len(failed) < len(clients) {
		p.snapshotsSent.Add(1)
	}
}
