// ABOUTME: Tests for the WebSocket clock server
// ABOUTME: Covers handshake, state broadcast, command validation, and duplicates
package server

import (
	"errors"
	"math"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/globesync/globesync-go/internal/protocol"
	"github.com/globesync/globesync-go/internal/version"
	"github.com/globesync/globesync-go/pkg/clockconfig"
	"github.com/gorilla/websocket"
)

func startTestServer(t *testing.T) (*Server, *clockconfig.Store, string) {
	t.Helper()

	store := clockconfig.NewStore(clockconfig.Default())
	srv := New(Config{Name: "test-server"}, store)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		srv.Close()
		ts.Close()
	})

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + Path
	return srv, store, url
}

func dial(t *testing.T, url, name, id string) *websocket.Conn {
	t.Helper()

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	hello := protocol.Message{
		Type:    protocol.TypeClientHello,
		Payload: protocol.ClientHello{ClientID: id, Name: name, Version: ProtocolVersion},
	}
	if err := conn.WriteJSON(hello); err != nil {
		t.Fatalf("failed to send hello: %v", err)
	}
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) protocol.Message {
	t.Helper()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg protocol.Message
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read failed: %v", err)
	}
	return msg
}

// readUntil reads messages until one of type msgType arrives
func readUntil(t *testing.T, conn *websocket.Conn, msgType string) protocol.Message {
	t.Helper()
	for i := 0; i < 10; i++ {
		msg := readMessage(t, conn)
		if msg.Type == msgType {
			return msg
		}
	}
	t.Fatalf("no %s message received", msgType)
	return protocol.Message{}
}

func TestHandshakeSendsHelloAndState(t *testing.T) {
	srv, _, url := startTestServer(t)
	conn := dial(t, url, "panel", "")

	msg := readMessage(t, conn)
	if msg.Type != protocol.TypeServerHello {
		t.Fatalf("expected server/hello, got %s", msg.Type)
	}

	var hello protocol.ServerHello
	if err := protocol.DecodePayload(msg.Payload, &hello); err != nil {
		t.Fatal(err)
	}
	if hello.ServerID != srv.ID() {
		t.Errorf("unexpected server id %s", hello.ServerID)
	}
	if hello.ClientID == "" {
		t.Error("expected a generated client id")
	}
	if hello.Product != version.Product || hello.SoftwareVersion != version.Version {
		t.Errorf("expected %s %s in hello, got %s %s",
			version.Product, version.Version, hello.Product, hello.SoftwareVersion)
	}

	msg = readMessage(t, conn)
	if msg.Type != protocol.TypeClockState {
		t.Fatalf("expected clock/state, got %s", msg.Type)
	}

	var state protocol.ClockState
	if err := protocol.DecodePayload(msg.Payload, &state); err != nil {
		t.Fatal(err)
	}
	if state.Config.Multiplier != 1 || state.Config.ClockRange != clockconfig.RangeUnbounded {
		t.Errorf("unexpected initial state: %+v", state.Config)
	}
}

func TestHelloPrecedesConcurrentStateChange(t *testing.T) {
	store := clockconfig.NewStore(clockconfig.Default())
	srv := New(Config{
		Name: "test-server",
		OnClientsChanged: func(int) {
			// A store write racing the handshake, as an engine tick would
			store.SetCurrentTime("2024-01-01T00:00:00Z")
		},
	}, store)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		srv.Close()
		ts.Close()
	})

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + Path
	conn := dial(t, url, "panel", "")

	if msg := readMessage(t, conn); msg.Type != protocol.TypeServerHello {
		t.Fatalf("expected server/hello first, got %s", msg.Type)
	}

	// The change made while connecting still reaches the panel
	for i := 0; i < 3; i++ {
		msg := readMessage(t, conn)
		if msg.Type != protocol.TypeClockState {
			t.Fatalf("expected clock/state, got %s", msg.Type)
		}
		var state protocol.ClockState
		if err := protocol.DecodePayload(msg.Payload, &state); err != nil {
			t.Fatal(err)
		}
		if c := state.Config.CurrentTime; c != nil && *c == "2024-01-01T00:00:00Z" {
			return
		}
	}
	t.Error("expected the concurrent store change to be broadcast")
}

func TestStoreChangesAreBroadcast(t *testing.T) {
	_, store, url := startTestServer(t)
	conn := dial(t, url, "panel", "")
	readUntil(t, conn, protocol.TypeClockState)

	store.SetCurrentTime("1967-01-15T08:23:00Z")

	msg := readUntil(t, conn, protocol.TypeClockState)
	var state protocol.ClockState
	if err := protocol.DecodePayload(msg.Payload, &state); err != nil {
		t.Fatal(err)
	}
	if state.Config.CurrentTime == nil || *state.Config.CurrentTime != "1967-01-15T08:23:00Z" {
		t.Errorf("unexpected broadcast current time: %v", state.Config.CurrentTime)
	}
}

func TestCommandUpdatesStore(t *testing.T) {
	_, store, url := startTestServer(t)
	conn := dial(t, url, "panel", "")
	readUntil(t, conn, protocol.TypeClockState)

	m := 3600.0
	cmd := protocol.Message{
		Type:    protocol.TypeClockCommand,
		Payload: protocol.ClockCommand{Command: protocol.CommandMultiplier, Multiplier: &m},
	}
	if err := conn.WriteJSON(cmd); err != nil {
		t.Fatal(err)
	}

	readUntil(t, conn, protocol.TypeClockState)
	if store.Get().Multiplier != 3600 {
		t.Errorf("expected multiplier 3600, got %v", store.Get().Multiplier)
	}
}

func TestInvalidCommandReturnsError(t *testing.T) {
	_, store, url := startTestServer(t)
	conn := dial(t, url, "panel", "")
	readUntil(t, conn, protocol.TypeClockState)

	cmd := protocol.Message{
		Type:    protocol.TypeClockCommand,
		Payload: protocol.ClockCommand{Command: protocol.CommandRange, ClockRange: "SIDEWAYS"},
	}
	if err := conn.WriteJSON(cmd); err != nil {
		t.Fatal(err)
	}

	msg := readUntil(t, conn, protocol.TypeClockError)
	var clockErr protocol.ClockError
	if err := protocol.DecodePayload(msg.Payload, &clockErr); err != nil {
		t.Fatal(err)
	}
	if clockErr.Error != "invalid_command" {
		t.Errorf("unexpected error code %s", clockErr.Error)
	}
	if store.Get().ClockRange != clockconfig.RangeUnbounded {
		t.Error("invalid command modified the store")
	}
}

func TestDuplicateClientRejected(t *testing.T) {
	srv, _, url := startTestServer(t)

	first := dial(t, url, "panel", "same-id")
	readUntil(t, first, protocol.TypeClockState)

	second := dial(t, url, "panel-2", "same-id")
	msg := readMessage(t, second)
	if msg.Type != protocol.TypeClockError {
		t.Errorf("expected clock/error for duplicate id, got %s", msg.Type)
	}

	if srv.ClientCount() != 1 {
		t.Errorf("expected 1 client, got %d", srv.ClientCount())
	}
}

func TestApplyCommands(t *testing.T) {
	store := clockconfig.NewStore(clockconfig.Default())
	srv := New(Config{Name: "direct"}, store)
	defer srv.Close()

	start := "2024-01-01 00:00:00"
	stop := "2024-01-02T00:00:00Z"
	seek := "2024-01-01 06:00:00"

	cmds := []protocol.ClockCommand{
		{Command: protocol.CommandPlay},
		{Command: protocol.CommandRange, ClockRange: "LOOP_STOP"},
		{Command: protocol.CommandBounds, StartTime: &start, StopTime: &stop},
		{Command: protocol.CommandSeek, CurrentTime: &seek},
	}
	for _, cmd := range cmds {
		if err := srv.ApplyCommand(cmd); err != nil {
			t.Fatalf("%s failed: %v", cmd.Command, err)
		}
	}

	cfg := store.Get()
	if !cfg.ShouldAnimate || cfg.ClockRange != clockconfig.RangeLoopStop {
		t.Errorf("unexpected config %+v", cfg)
	}
	if *cfg.StartTime != "2024-01-01T00:00:00Z" || *cfg.StopTime != stop {
		t.Errorf("bounds not normalized: %s %s", *cfg.StartTime, *cfg.StopTime)
	}
	if *cfg.CurrentTime != "2024-01-01T06:00:00Z" {
		t.Errorf("seek not normalized: %s", *cfg.CurrentTime)
	}

	if err := srv.ApplyCommand(protocol.ClockCommand{Command: protocol.CommandPause}); err != nil {
		t.Fatal(err)
	}
	if store.Get().ShouldAnimate {
		t.Error("pause did not stop animation")
	}
}

func TestApplyCommandRejects(t *testing.T) {
	store := clockconfig.NewStore(clockconfig.Default())
	srv := New(Config{Name: "direct"}, store)
	defer srv.Close()

	bad := "whenever"
	cmds := []protocol.ClockCommand{
		{Command: "rewind"},
		{Command: protocol.CommandMultiplier},
		{Command: protocol.CommandBounds, StartTime: &bad},
		{Command: protocol.CommandBounds, StartTime: &bad, StopTime: &bad},
		{Command: protocol.CommandSeek},
		{Command: protocol.CommandSeek, CurrentTime: &bad},
	}
	for _, cmd := range cmds {
		if err := srv.ApplyCommand(cmd); !errors.Is(err, ErrInvalidCommand) {
			t.Errorf("%+v: expected ErrInvalidCommand, got %v", cmd, err)
		}
	}
}

func TestValidateMultiplier(t *testing.T) {
	valid := []float64{1, 0.1, -1, 100, MaxMultiplier, -MaxMultiplier}
	for _, m := range valid {
		if err := ValidateMultiplier(m); err != nil {
			t.Errorf("expected %v to be valid: %v", m, err)
		}
	}

	invalid := []float64{0, MaxMultiplier + 1, math.NaN(), math.Inf(1), math.Inf(-1)}
	for _, m := range invalid {
		if err := ValidateMultiplier(m); !errors.Is(err, ErrInvalidCommand) {
			t.Errorf("expected %v to be rejected", m)
		}
	}
}
