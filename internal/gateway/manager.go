// Package gateway streams bus traffic to WebSocket clients. Each connection
// carries a subject filter; every envelope observed on the bus is forwarded
// to the connections whose filter matches its subject.
package gateway

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/wraiths/core/internal/event"
	"github.com/wraiths/core/internal/routing"
)

// Config holds WebSocket connection settings.
type Config struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	CheckOrigin     func(r *http.Request) bool
}

// DefaultConfig returns the default WebSocket configuration.
func DefaultConfig() Config {
	return Config{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  1024,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
}

// matchAll is the filter used when a client does not supply one.
var matchAll = routing.Pattern{Kind: routing.Wildcard, Domain: routing.Wildcard, Tool: routing.Wildcard}

// Manager owns the WebSocket connections and fans bus envelopes out to them.
type Manager struct {
	mu          sync.RWMutex
	connections map[*Connection]bool

	upgrader    websocket.Upgrader
	config      Config
	codec       event.Codec
	broadcastCh chan *event.Envelope
}

func NewManager(config Config) *Manager {
	return &Manager{
		connections: make(map[*Connection]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config:      config,
		broadcastCh: make(chan *event.Envelope, 1000),
	}
}

// Start processes broadcasts until the context is cancelled.
func (m *Manager) Start(ctx context.Context) {
	log.Info().Msg("event-stream gateway started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("event-stream gateway shutting down")
			m.closeAll()
			return
		case env := <-m.broadcastCh:
			m.fanOut(env)
		}
	}
}

// Broadcast queues an envelope for delivery to matching connections. It
// never blocks; envelopes are dropped when the queue is full.
func (m *Manager) Broadcast(env *event.Envelope) {
	select {
	case m.broadcastCh <- env:
	default:
		log.Warn().Str("subject", env.Subject.String()).Msg("broadcast queue full, dropping event")
	}
}

// HandleStream upgrades GET /events/stream requests. The optional filter
// query parameter is a subject pattern; wildcards are allowed in the kind,
// domain and tool segments. Without a filter the connection sees everything.
func (m *Manager) HandleStream(w http.ResponseWriter, r *http.Request) {
	filter := matchAll
	if raw := r.URL.Query().Get("filter"); raw != "" {
		parsed, err := routing.ParsePattern(raw)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		filter = parsed
	}

	conn, err := m.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("failed to upgrade WebSocket connection")
		return
	}

	connection := &Connection{
		ID:          uuid.NewString(),
		Filter:      filter,
		conn:        conn,
		send:        make(chan []byte, 256),
		manager:     m,
		connectedAt: time.Now(),
	}
	m.register(connection)

	go connection.writePump()
	go connection.readPump()

	log.Info().
		Str("connection_id", connection.ID).
		Str("filter", filter.String()).
		Msg("event-stream connection established")
}

func (m *Manager) fanOut(env *event.Envelope) {
	data, err := m.codec.Encode(env)
	if err != nil {
		log.Error().Err(err).Msg("encode envelope for broadcast")
		return
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	for conn := range m.connections {
		if !conn.Filter.Match(env.Subject) {
			continue
		}
		select {
		case conn.send <- data:
		default:
			// Slow consumer; drop the event rather than block the fan-out.
			log.Warn().Str("connection_id", conn.ID).Msg("connection send buffer full")
		}
	}
}

func (m *Manager) register(conn *Connection) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connections[conn] = true
}

func (m *Manager) unregister(conn *Connection) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.connections[conn] {
		delete(m.connections, conn)
		close(conn.send)
	}
}

func (m *Manager) closeAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for conn := range m.connections {
		delete(m.connections, conn)
		close(conn.send)
	}
}

// ConnectionCount returns the number of active connections.
func (m *Manager) ConnectionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.connections)
}
