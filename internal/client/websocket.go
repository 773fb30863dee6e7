// ABOUTME: WebSocket client for clock panels
// ABOUTME: Handles connection, handshake, clock state routing, and commands
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"sync"
	"time"

	"github.com/globesync/globesync-go/internal/protocol"
	"github.com/gorilla/websocket"
)

// Config holds client configuration
type Config struct {
	ServerAddr string
	ClientID   string
	Name       string
	Version    int

	// Path is the websocket endpoint (default: /clock)
	Path string
}

// Client is a connected clock panel
type Client struct {
	config Config
	conn   *websocket.Conn
	mu     sync.RWMutex
	wmu    sync.Mutex

	// Message channels
	States chan protocol.ClockState
	Errors chan protocol.ClockError

	hello protocol.ServerHello

	// State
	connected bool
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewClient creates a new WebSocket client
func NewClient(config Config) *Client {
	if config.Path == "" {
		config.Path = "/clock"
	}
	if config.Version == 0 {
		config.Version = 1
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Client{
		config: config,
		States: make(chan protocol.ClockState, 16),
		Errors: make(chan protocol.ClockError, 4),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// Connect establishes WebSocket connection and performs handshake.
// A client connects at most once.
func (c *Client) Connect() error {
	u := url.URL{Scheme: "ws", Host: c.config.ServerAddr, Path: c.config.Path}
	log.Printf("Connecting to %s", u.String())

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		close(c.done)
		return fmt.Errorf("dial failed: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()

	if err := c.handshake(); err != nil {
		c.Close()
		close(c.done)
		return fmt.Errorf("handshake failed: %w", err)
	}

	go c.readMessages()

	return nil
}

// handshake sends client/hello and waits for server/hello
func (c *Client) handshake() error {
	hello := protocol.ClientHello{
		ClientID: c.config.ClientID,
		Name:     c.config.Name,
		Version:  c.config.Version,
	}

	if err := c.send(protocol.TypeClientHello, hello); err != nil {
		return fmt.Errorf("failed to send client/hello: %w", err)
	}

	c.conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return fmt.Errorf("failed to read server/hello: %w", err)
	}
	c.conn.SetReadDeadline(time.Time{})

	var msg protocol.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return fmt.Errorf("failed to parse server/hello: %w", err)
	}

	switch msg.Type {
	case protocol.TypeServerHello:
	case protocol.TypeClockError:
		var e protocol.ClockError
		protocol.DecodePayload(msg.Payload, &e)
		return fmt.Errorf("server rejected hello: %s", e.Message)
	default:
		return fmt.Errorf("expected server/hello, got %s", msg.Type)
	}

	var serverHello protocol.ServerHello
	if err := protocol.DecodePayload(msg.Payload, &serverHello); err != nil {
		return fmt.Errorf("failed to decode server/hello: %w", err)
	}

	c.mu.Lock()
	c.hello = serverHello
	c.mu.Unlock()

	log.Printf("Handshake complete with %s", serverHello.Name)
	return nil
}

// ServerHello returns the server's greeting
func (c *Client) ServerHello() protocol.ServerHello {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hello
}

// send writes a JSON message; gorilla connections allow one writer at a time
func (c *Client) send(msgType string, payload interface{}) error {
	c.mu.RLock()
	conn, connected := c.conn, c.connected
	c.mu.RUnlock()

	if !connected {
		return fmt.Errorf("not connected")
	}

	c.wmu.Lock()
	defer c.wmu.Unlock()
	return conn.WriteJSON(protocol.Message{Type: msgType, Payload: payload})
}

// readMessages reads and routes incoming messages
func (c *Client) readMessages() {
	defer close(c.done)
	defer c.Close()

	for {
		var msg protocol.Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			select {
			case <-c.ctx.Done():
			default:
				log.Printf("Read error: %v", err)
			}
			return
		}
		c.handleMessage(msg)
	}
}

// handleMessage routes JSON messages
func (c *Client) handleMessage(msg protocol.Message) {
	switch msg.Type {
	case protocol.TypeClockState:
		var state protocol.ClockState
		if err := protocol.DecodePayload(msg.Payload, &state); err != nil {
			log.Printf("Failed to decode clock state: %v", err)
			return
		}
		select {
		case c.States <- state:
		case <-c.ctx.Done():
		}

	case protocol.TypeClockError:
		var e protocol.ClockError
		if err := protocol.DecodePayload(msg.Payload, &e); err != nil {
			log.Printf("Failed to decode clock error: %v", err)
			return
		}
		select {
		case c.Errors <- e:
		default:
			log.Printf("Dropping clock error: %s", e.Message)
		}

	default:
		log.Printf("Unknown message type: %s", msg.Type)
	}
}

// SendCommand sends a clock/command message
func (c *Client) SendCommand(cmd protocol.ClockCommand) error {
	return c.send(protocol.TypeClockCommand, cmd)
}

// Done is closed once the read loop has exited or Connect has failed
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Close closes the connection
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.connected {
		c.connected = false
		c.cancel()
		c.conn.Close()
		log.Printf("Connection closed")
	}
}

// IsConnected returns connection status
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}
