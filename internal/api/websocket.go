package api

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"crash-ball/internal/game"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	// MaxWSConnectionsPerIP is the maximum WebSocket connections per IP
	MaxWSConnectionsPerIP = 10

	// writeWait bounds a single frame write to one client
	writeWait = 2 * time.Second

	// maxInputMessage bounds frames read from clients
	maxInputMessage = 4 << 10
)

// Frame formats a client can ask for with ?format=
const (
	FormatJSON    = "json"
	FormatMsgpack = "msgpack"
)

// Message is the envelope every broadcast frame uses
type Message struct {
	Event string      `json:"event" msgpack:"event"`
	Data  interface{} `json:"data" msgpack:"data"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if IsAllowedOrigin(origin) {
			return true
		}

		log.Printf("⚠️ WebSocket connection rejected from origin: %s", origin)
		RecordConnectionRejected("origin")
		return false
	},
}

// wsClient tracks a WebSocket connection with its source IP and wire format
type wsClient struct {
	conn   *websocket.Conn
	ip     string
	format string
	input  bool // allowed to drive the player
}

// encodedFrame carries one broadcast in every format
type encodedFrame struct {
	json    []byte
	msgpack []byte
}

// HubConfig configures connection limits and the broadcast cadence
type HubConfig struct {
	MaxConnections    int
	MaxPerIP          int
	BroadcastInterval time.Duration
}

// WebSocketHub fans snapshots out to clients and feeds their input back
type WebSocketHub struct {
	clients    map[*websocket.Conn]*wsClient
	broadcast  chan encodedFrame
	register   chan *wsClient
	unregister chan *websocket.Conn
	stop       chan struct{}
	stopOnce   sync.Once
	mu         sync.RWMutex

	cfg       HubConfig
	connLimit *ConnLimiter

	engine EngineInterface
	auth   *InputAuth
}

// NewWebSocketHub creates a hub. Nothing runs until Run is called.
func NewWebSocketHub(engine EngineInterface, auth *InputAuth, cfg HubConfig) *WebSocketHub {
	if cfg.MaxConnections <= 0 {
		cfg.MaxConnections = 100
	}
	if cfg.MaxPerIP <= 0 {
		cfg.MaxPerIP = MaxWSConnectionsPerIP
	}
	if cfg.BroadcastInterval <= 0 {
		cfg.BroadcastInterval = 50 * time.Millisecond
	}
	return &WebSocketHub{
		clients:    make(map[*websocket.Conn]*wsClient),
		broadcast:  make(chan encodedFrame, 16),
		register:   make(chan *wsClient),
		unregister: make(chan *websocket.Conn),
		stop:       make(chan struct{}),
		cfg:        cfg,
		connLimit:  NewConnLimiter(cfg.MaxPerIP),
		engine:     engine,
		auth:       auth,
	}
}

// Run owns client registration and is the only writer to connections
func (h *WebSocketHub) Run() {
	for {
		select {
		case <-h.stop:
			h.closeAll()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.conn] = client
			count := len(h.clients)
			h.mu.Unlock()

			log.Printf("📱 Client connected from %s as %s (%d total)", client.ip, client.format, count)
			UpdateWSConnections(count)

		case conn := <-h.unregister:
			h.remove(conn)

		case frame := <-h.broadcast:
			h.mu.RLock()
			var failed []*websocket.Conn
			for conn, client := range h.clients {
				msgType, payload := websocket.TextMessage, frame.json
				if client.format == FormatMsgpack {
					msgType, payload = websocket.BinaryMessage, frame.msgpack
				}
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteMessage(msgType, payload); err != nil {
					failed = append(failed, conn)
					continue
				}
				IncrementWSMessages(client.format)
			}
			h.mu.RUnlock()

			for _, conn := range failed {
				h.remove(conn)
			}
		}
	}
}

func (h *WebSocketHub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	client, ok := h.clients[conn]
	if ok {
		h.connLimit.Release(client.ip)
		delete(h.clients, conn)
		conn.Close()
	}
	count := len(h.clients)
	h.mu.Unlock()

	if ok {
		log.Printf("📱 Client disconnected (%d remaining)", count)
		UpdateWSConnections(count)
	}
}

func (h *WebSocketHub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn, client := range h.clients {
		h.connLimit.Release(client.ip)
		conn.Close()
		delete(h.clients, conn)
	}
	UpdateWSConnections(0)
}

// Stop ends Run and the broadcast loop and closes every connection
func (h *WebSocketHub) Stop() {
	h.stopOnce.Do(func() {
		close(h.stop)
	})
}

// Broadcast encodes a message once per format and queues it
func (h *WebSocketHub) Broadcast(event string, data interface{}) {
	frame, err := encodeFrame(Message{Event: event, Data: data})
	if err != nil {
		log.Printf("⚠️ Broadcast encode failed: %v", err)
		return
	}

	select {
	case h.broadcast <- frame:
	default:
		// Channel full, skip (backpressure)
	}
}

func encodeFrame(msg Message) (encodedFrame, error) {
	js, err := json.Marshal(msg)
	if err != nil {
		return encodedFrame{}, err
	}
	mp, err := msgpack.Marshal(msg)
	if err != nil {
		return encodedFrame{}, err
	}
	return encodedFrame{json: js, msgpack: mp}, nil
}

// ClientCount returns the number of connected clients
func (h *WebSocketHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// StartBroadcastLoop pushes each new snapshot to clients at the configured interval
func (h *WebSocketHub) StartBroadcastLoop() {
	ticker := time.NewTicker(h.cfg.BroadcastInterval)

	go func() {
		defer ticker.Stop()
		var lastSeq uint64
		for {
			select {
			case <-h.stop:
				return
			case <-ticker.C:
			}

			if h.ClientCount() == 0 {
				continue
			}
			snap := h.engine.GetSnapshot()
			if snap.Sequence == lastSeq {
				continue
			}
			lastSeq = snap.Sequence
			h.Broadcast("game:state", snap)
		}
	}()
}

// HandleWebSocket upgrades a connection. Clients pick the frame format with
// ?format=json|msgpack and may send RawInput frames in the same format.
func (h *WebSocketHub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	ip := GetClientIP(r)

	format := r.URL.Query().Get("format")
	switch format {
	case "":
		format = FormatJSON
	case FormatJSON, FormatMsgpack:
	default:
		writeError(w, "format must be json or msgpack", http.StatusBadRequest)
		return
	}

	if total := h.ClientCount(); total >= h.cfg.MaxConnections {
		log.Printf("⚠️ WebSocket connection rejected: total limit reached (%d)", total)
		RecordConnectionRejected("ws_total_limit")
		http.Error(w, "Too many connections", http.StatusServiceUnavailable)
		return
	}

	if !h.connLimit.Acquire(ip) {
		log.Printf("⚠️ WebSocket connection rejected from %s: per-IP limit reached", ip)
		RecordConnectionRejected("ws_ip_limit")
		http.Error(w, "Too many connections from your IP", http.StatusTooManyRequests)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		h.connLimit.Release(ip)
		return
	}
	conn.SetReadLimit(maxInputMessage)

	client := &wsClient{conn: conn, ip: ip, format: format, input: h.auth.Authorized(r)}
	select {
	case h.register <- client:
	case <-h.stop:
		h.connLimit.Release(ip)
		conn.Close()
		return
	}

	go h.readLoop(client)
}

// readLoop applies input frames until the connection fails
func (h *WebSocketHub) readLoop(client *wsClient) {
	defer func() {
		select {
		case h.unregister <- client.conn:
		case <-h.stop:
		}
	}()

	for {
		msgType, message, err := client.conn.ReadMessage()
		if err != nil {
			return
		}
		if !client.input {
			continue
		}

		raw, err := decodeInput(msgType, message)
		if err != nil {
			log.Printf("📨 Bad input frame from %s: %v", client.ip, err)
			continue
		}
		h.engine.SetInput(raw)
	}
}

func decodeInput(msgType int, message []byte) (game.RawInput, error) {
	var raw game.RawInput
	var err error
	if msgType == websocket.BinaryMessage {
		err = msgpack.Unmarshal(message, &raw)
	} else {
		err = json.Unmarshal(message, &raw)
	}
	if err != nil {
		return game.RawInput{}, err
	}
	return raw, validateInput(raw)
}
