// ABOUTME: Tests for clock daemon orchestration
// ABOUTME: Tests daemon creation, lifecycle, UI commands, and state persistence
package app

import (
	"errors"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/globesync/globesync-go/internal/protocol"
	"github.com/globesync/globesync-go/pkg/clockconfig"
)

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to find free port: %v", err)
	}
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestNewDefaults(t *testing.T) {
	a, err := New(Config{})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if a.config.Name != "globesync" {
		t.Errorf("expected default name globesync, got %s", a.config.Name)
	}
	if a.config.Port != 8927 {
		t.Errorf("expected default port 8927, got %d", a.config.Port)
	}
	if a.config.FrameRate != 60 {
		t.Errorf("expected default frame rate 60, got %d", a.config.FrameRate)
	}
	if a.config.Throttle != 500*time.Millisecond {
		t.Errorf("expected default throttle 500ms, got %v", a.config.Throttle)
	}
	if !a.Store().Get().Equal(clockconfig.Default()) {
		t.Errorf("expected default clock config without a state file")
	}
}

func TestNewLoadsStateFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clock.yaml")

	cfg := clockconfig.Default()
	cfg.Multiplier = 3600
	cfg.ClockRange = clockconfig.RangeClamped
	cfg.StartTime = clockconfig.String("2024-01-01T00:00:00Z")
	cfg.StopTime = clockconfig.String("2024-01-02T00:00:00Z")
	if err := clockconfig.SaveFile(path, cfg); err != nil {
		t.Fatalf("SaveFile failed: %v", err)
	}

	a, err := New(Config{StateFile: path})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if !a.Store().Get().Equal(cfg) {
		t.Errorf("expected store to hold loaded config, got %+v", a.Store().Get())
	}
}

func TestNewRejectsBadStateFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clock.yaml")
	if err := os.WriteFile(path, []byte("clockRange: SIDEWAYS\n"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	if _, err := New(Config{StateFile: path}); !errors.Is(err, clockconfig.ErrInvalidClockRange) {
		t.Errorf("expected ErrInvalidClockRange, got %v", err)
	}
}

func TestStartWritesEngineTimeAndSaves(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clock.yaml")

	a, err := New(Config{
		Port:      freePort(t),
		StateFile: path,
		Throttle:  20 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if err := a.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	if !a.Bridge().Attached() {
		t.Error("expected bridge to be attached after Start")
	}

	waitFor(t, "engine time in store", func() bool {
		return a.Store().Get().CurrentTime != nil
	})

	if err := a.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	if a.Bridge().Attached() {
		t.Error("expected bridge to be detached after Stop")
	}
	if !a.Viewer().IsDestroyed() {
		t.Error("expected viewer to be destroyed after Stop")
	}

	saved, err := clockconfig.LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if saved.CurrentTime == nil {
		t.Error("expected saved state to carry the engine time")
	}

	// Stop is idempotent
	if err := a.Stop(); err != nil {
		t.Errorf("second Stop failed: %v", err)
	}
}

func TestControlCommandsReachStore(t *testing.T) {
	a, err := New(Config{Port: freePort(t)})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := a.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer a.Stop()

	a.Control().Commands <- protocol.ClockCommand{Command: protocol.CommandPlay}

	waitFor(t, "play command", func() bool {
		return a.Store().Get().ShouldAnimate
	})

	waitFor(t, "engine to animate", func() bool {
		return a.Viewer().Clock().ShouldAnimate()
	})
}

func TestRemountReattaches(t *testing.T) {
	a, err := New(Config{Port: freePort(t)})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := a.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer a.Stop()

	first := a.Viewer()
	a.Remount()
	second := a.Viewer()

	if first == second {
		t.Fatal("expected a new viewer after remount")
	}
	if !first.IsDestroyed() {
		t.Error("expected old viewer to be destroyed")
	}
	if !a.Bridge().Attached() {
		t.Error("expected bridge to be attached to the new viewer")
	}

	a.Store().Update(func(c *clockconfig.ClockConfig) { c.Multiplier = 42 })

	if got := second.Clock().Multiplier(); got != 42 {
		t.Errorf("expected new viewer to receive multiplier 42, got %v", got)
	}
	if got := first.Clock().Multiplier(); got == 42 {
		t.Error("expected old viewer to stay detached")
	}
}
