// ABOUTME: WebSocket clock server
// ABOUTME: Publishes the persisted clock config to panels and applies their commands
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/globesync/globesync-go/internal/protocol"
	"github.com/globesync/globesync-go/internal/version"
	"github.com/globesync/globesync-go/pkg/clockconfig"
	"github.com/globesync/globesync-go/pkg/timefmt"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// ProtocolVersion is the clock protocol version
	ProtocolVersion = 1

	// Path is the websocket endpoint
	Path = "/clock"

	// MaxMultiplier is one year of clock time per second
	MaxMultiplier = 31536000
)

var (
	// ErrInvalidCommand is returned for malformed clock commands
	ErrInvalidCommand = errors.New("invalid clock command")

	// ErrSendBufferFull is returned when a client cannot keep up
	ErrSendBufferFull = errors.New("client send buffer full")
)

// Config holds server configuration
type Config struct {
	Port  int
	Name  string
	Debug bool

	// OnClientsChanged is called with the current client count
	OnClientsChanged func(count int)
}

// Server publishes a clock config store over WebSocket
type Server struct {
	config   Config
	serverID string
	store    *clockconfig.Store

	upgrader websocket.Upgrader
	mux      *http.ServeMux

	clients   map[string]*Client
	clientsMu sync.RWMutex

	unsubscribe func()

	shutdownMu sync.RWMutex
	isShutdown bool
	wg         sync.WaitGroup
}

// Client represents a connected panel
type Client struct {
	ID   string
	Name string
	Conn *websocket.Conn

	sendChan chan interface{}
}

// New creates a server over store
func New(config Config, store *clockconfig.Store) *Server {
	s := &Server{
		config:   config,
		serverID: uuid.New().String(),
		store:    store,
		mux:      http.NewServeMux(),
		upgrader: websocket.Upgrader{
			// Panels are served from arbitrary local origins
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[string]*Client),
	}
	s.mux.HandleFunc(Path, s.handleWebSocket)
	s.unsubscribe = store.Subscribe(s.onConfigChange)
	return s
}

// ID returns the server ID
func (s *Server) ID() string {
	return s.serverID
}

// Handler returns the HTTP handler serving the websocket endpoint
func (s *Server) Handler() http.Handler {
	return s.mux
}

// ClientCount returns the number of connected panels
func (s *Server) ClientCount() int {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	return len(s.clients)
}

// Run listens on the configured port until ctx is cancelled
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.config.Port))
	if err != nil {
		return fmt.Errorf("failed to listen on port %d: %w", s.config.Port, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	httpServer := &http.Server{Handler: s.mux}

	log.Printf("Clock server %s listening on %s%s", s.config.Name, ln.Addr(), Path)

	errChan := make(chan error, 1)
	go func() {
		if err := httpServer.Serve(ln); err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	var serverErr error
	select {
	case <-ctx.Done():
		log.Printf("Clock server shutting down...")
	case err := <-errChan:
		log.Printf("HTTP server error: %v", err)
		serverErr = err
	}

	s.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	s.wg.Wait()
	log.Printf("Clock server stopped cleanly")

	if serverErr != nil {
		return fmt.Errorf("HTTP server failed: %w", serverErr)
	}
	return nil
}

// Close stops publishing and disconnects every client
func (s *Server) Close() {
	s.shutdownMu.Lock()
	if s.isShutdown {
		s.shutdownMu.Unlock()
		return
	}
	s.isShutdown = true
	s.shutdownMu.Unlock()

	s.unsubscribe()

	s.clientsMu.RLock()
	for _, client := range s.clients {
		client.Conn.Close()
	}
	s.clientsMu.RUnlock()
}

// handleWebSocket upgrades and serves one panel connection
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	if s.config.Debug {
		log.Printf("[DEBUG] New WebSocket connection from %s", r.RemoteAddr)
	}

	s.wg.Add(1)
	defer s.wg.Done()
	s.handleConnection(conn)
}

// handleConnection performs the handshake and reads commands
func (s *Server) handleConnection(conn *websocket.Conn) {
	defer conn.Close()

	s.shutdownMu.RLock()
	if s.isShutdown {
		s.shutdownMu.RUnlock()
		log.Printf("Rejecting connection during shutdown")
		return
	}
	s.shutdownMu.RUnlock()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var msg protocol.Message
	if err := conn.ReadJSON(&msg); err != nil {
		log.Printf("Error reading hello: %v", err)
		return
	}
	conn.SetReadDeadline(time.Time{})

	if msg.Type != protocol.TypeClientHello {
		log.Printf("Expected %s, got %s", protocol.TypeClientHello, msg.Type)
		return
	}

	var hello protocol.ClientHello
	if err := protocol.DecodePayload(msg.Payload, &hello); err != nil {
		log.Printf("Error decoding client hello: %v", err)
		return
	}
	if hello.Name == "" {
		log.Printf("Client hello missing Name")
		return
	}
	if hello.ClientID == "" {
		hello.ClientID = uuid.New().String()
	}

	client := &Client{
		ID:       hello.ClientID,
		Name:     hello.Name,
		Conn:     conn,
		sendChan: make(chan interface{}, 64),
	}

	// The greeting and initial state are queued before the client becomes
	// visible to broadcasts, so server/hello is always the first frame
	s.clientsMu.Lock()
	if existing, exists := s.clients[client.ID]; exists {
		s.clientsMu.Unlock()
		log.Printf("Client ID %s already connected (name: %s), rejecting duplicate", client.ID, existing.Name)
		s.writeDirect(conn, protocol.TypeClockError, protocol.ClockError{
			Error:   "duplicate_client_id",
			Message: "Client ID already connected",
		})
		return
	}
	s.sendMessage(client, protocol.TypeServerHello, s.helloMessage(client.ID))
	s.sendMessage(client, protocol.TypeClockState, s.stateMessage(s.store.Get()))
	s.clients[client.ID] = client
	count := len(s.clients)
	s.clientsMu.Unlock()

	log.Printf("Panel connected: %s (ID: %s)", client.Name, client.ID)

	writerDone := make(chan struct{})
	defer func() {
		s.clientsMu.Lock()
		delete(s.clients, client.ID)
		count := len(s.clients)
		close(client.sendChan)
		s.clientsMu.Unlock()
		<-writerDone

		log.Printf("Panel disconnected: %s", client.Name)
		s.notifyClients(count)
	}()

	go func() {
		defer close(writerDone)
		s.clientWriter(client)
	}()

	s.notifyClients(count)

	for {
		var msg protocol.Message
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			return
		}
		s.handleClientMessage(client, msg)
	}
}

// clientWriter sends queued messages to the client
func (s *Server) clientWriter(client *Client) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	const writeDeadline = 10 * time.Second

	for {
		select {
		case msg, ok := <-client.sendChan:
			if !ok {
				return
			}
			client.Conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := client.Conn.WriteJSON(msg); err != nil {
				log.Printf("Error writing message to %s: %v", client.Name, err)
				client.Conn.Close()
				drain(client.sendChan)
				return
			}

		case <-ticker.C:
			if err := client.Conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(writeDeadline)); err != nil {
				client.Conn.Close()
				drain(client.sendChan)
				return
			}
		}
	}
}

// drain discards queued messages until the channel is closed
func drain(ch <-chan interface{}) {
	for range ch {
	}
}

// handleClientMessage processes messages from panels
func (s *Server) handleClientMessage(client *Client, msg protocol.Message) {
	switch msg.Type {
	case protocol.TypeClockCommand:
		var cmd protocol.ClockCommand
		if err := protocol.DecodePayload(msg.Payload, &cmd); err != nil {
			s.sendError(client, "invalid_payload", err)
			return
		}
		if err := s.ApplyCommand(cmd); err != nil {
			s.sendError(client, "invalid_command", err)
			return
		}
		if s.config.Debug {
			log.Printf("[DEBUG] %s: %s", client.Name, cmd.Command)
		}
	default:
		log.Printf("Unknown message type: %s", msg.Type)
	}
}

// ApplyCommand validates cmd and writes it to the store
func (s *Server) ApplyCommand(cmd protocol.ClockCommand) error {
	update, err := commandUpdate(cmd)
	if err != nil {
		return err
	}
	s.store.Update(update)
	return nil
}

// commandUpdate turns a command into a store mutation
func commandUpdate(cmd protocol.ClockCommand) (func(*clockconfig.ClockConfig), error) {
	switch cmd.Command {
	case protocol.CommandPlay:
		return func(c *clockconfig.ClockConfig) { c.ShouldAnimate = true }, nil

	case protocol.CommandPause:
		return func(c *clockconfig.ClockConfig) { c.ShouldAnimate = false }, nil

	case protocol.CommandMultiplier:
		if cmd.Multiplier == nil {
			return nil, fmt.Errorf("%w: multiplier missing", ErrInvalidCommand)
		}
		m := *cmd.Multiplier
		if err := ValidateMultiplier(m); err != nil {
			return nil, err
		}
		return func(c *clockconfig.ClockConfig) { c.Multiplier = m }, nil

	case protocol.CommandRange:
		r, err := clockconfig.ParseClockRange(cmd.ClockRange)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidCommand, err)
		}
		return func(c *clockconfig.ClockConfig) { c.ClockRange = r }, nil

	case protocol.CommandBounds:
		if cmd.StartTime == nil || cmd.StopTime == nil {
			return nil, fmt.Errorf("%w: bounds need start_time and stop_time", ErrInvalidCommand)
		}
		start, err := normalizeTimestamp(*cmd.StartTime)
		if err != nil {
			return nil, err
		}
		stop, err := normalizeTimestamp(*cmd.StopTime)
		if err != nil {
			return nil, err
		}
		return func(c *clockconfig.ClockConfig) {
			c.StartTime = clockconfig.String(start)
			c.StopTime = clockconfig.String(stop)
		}, nil

	case protocol.CommandSeek:
		if cmd.CurrentTime == nil {
			return nil, fmt.Errorf("%w: seek needs current_time", ErrInvalidCommand)
		}
		current, err := normalizeTimestamp(*cmd.CurrentTime)
		if err != nil {
			return nil, err
		}
		return func(c *clockconfig.ClockConfig) { c.CurrentTime = clockconfig.String(current) }, nil

	default:
		return nil, fmt.Errorf("%w: unknown command %q", ErrInvalidCommand, cmd.Command)
	}
}

// ValidateMultiplier accepts finite, non-zero multipliers up to one year per second
func ValidateMultiplier(m float64) error {
	if math.IsNaN(m) || math.IsInf(m, 0) || m == 0 || math.Abs(m) > MaxMultiplier {
		return fmt.Errorf("%w: multiplier %v out of range", ErrInvalidCommand, m)
	}
	return nil
}

// normalizeTimestamp checks that s parses and returns its normalized text
func normalizeTimestamp(s string) (string, error) {
	if _, err := timefmt.Parse(s); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidCommand, err)
	}
	return timefmt.Normalize(s), nil
}

// onConfigChange broadcasts every store change to all panels
func (s *Server) onConfigChange(_, next clockconfig.ClockConfig) {
	state := s.stateMessage(next)

	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()

	for _, client := range s.clients {
		if err := s.sendMessage(client, protocol.TypeClockState, state); err != nil && s.config.Debug {
			log.Printf("[DEBUG] Dropping clock state for %s: %v", client.Name, err)
		}
	}
}

func (s *Server) helloMessage(clientID string) protocol.ServerHello {
	return protocol.ServerHello{
		ServerID:        s.serverID,
		ClientID:        clientID,
		Name:            s.config.Name,
		Version:         ProtocolVersion,
		Product:         version.Product,
		SoftwareVersion: version.Version,
	}
}

func (s *Server) stateMessage(cfg clockconfig.ClockConfig) protocol.ClockState {
	return protocol.ClockState{
		Config:     cfg,
		ServerTime: timefmt.Format(time.Now()),
	}
}

func (s *Server) sendError(client *Client, code string, err error) {
	log.Printf("Rejected message from %s: %v", client.Name, err)
	s.sendMessage(client, protocol.TypeClockError, protocol.ClockError{
		Error:   code,
		Message: err.Error(),
	})
}

// sendMessage queues a JSON message for a client without blocking
func (s *Server) sendMessage(client *Client, msgType string, payload interface{}) error {
	msg := protocol.Message{
		Type:    msgType,
		Payload: payload,
	}

	select {
	case client.sendChan <- msg:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// writeDirect writes a message on a connection that has no writer goroutine
func (s *Server) writeDirect(conn *websocket.Conn, msgType string, payload interface{}) {
	data, err := json.Marshal(protocol.Message{Type: msgType, Payload: payload})
	if err != nil {
		return
	}
	conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	conn.WriteMessage(websocket.TextMessage, data)
}

func (s *Server) notifyClients(count int) {
	if s.config.OnClientsChanged != nil {
		s.config.OnClientsChanged(count)
	}
}
