// ABOUTME: Probe that measures how often engine time reaches the clock store
// ABOUTME: Runs a local 60Hz engine, or watches a remote clock server's state feed
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/globesync/globesync-go/internal/client"
	"github.com/globesync/globesync-go/internal/discovery"
	"github.com/globesync/globesync-go/internal/protocol"
	"github.com/globesync/globesync-go/internal/server"
	"github.com/globesync/globesync-go/pkg/clockbridge"
	"github.com/globesync/globesync-go/pkg/clockconfig"
	"github.com/globesync/globesync-go/pkg/engine"
)

var (
	serverAddr = flag.String("server", "", "Watch a clock server at host:port instead of running locally")
	browse     = flag.Bool("browse", false, "Find a clock server via mDNS")
	name       = flag.String("name", "tick-probe", "Panel name used with -server")
	fps        = flag.Int("fps", 60, "Local engine frame rate")
	throttleMs = flag.Int("throttle-ms", 500, "Local bridge throttle window")
	multiplier = flag.Float64("multiplier", 60, "Clock multiplier")
	duration   = flag.Duration("duration", 5*time.Second, "How long to probe")
)

func main() {
	flag.Parse()

	log.SetFlags(log.Ltime | log.Lmicroseconds)

	fmt.Println("=== Tick Probe ===")

	addr, path := *serverAddr, server.Path
	if *browse && addr == "" {
		info, err := discover()
		if err != nil {
			log.Fatalf("Discovery failed: %v", err)
		}
		addr, path = info.Addr(), info.Path
	}

	if addr != "" {
		if err := probeServer(addr, path); err != nil {
			log.Fatalf("Probe failed: %v", err)
		}
		return
	}

	probeLocal()
}

// probeLocal drives a headless engine and counts the bridge's store writes
func probeLocal() {
	window := time.Duration(*throttleMs) * time.Millisecond
	if window <= 0 {
		window = clockbridge.DefaultThrottleWindow
	}

	cfg := clockconfig.Default()
	cfg.ShouldAnimate = true
	cfg.Multiplier = *multiplier
	store := clockconfig.NewStore(cfg)

	var writes atomic.Int64
	store.Subscribe(func(prev, next clockconfig.ClockConfig) {
		if !next.Equal(prev) && next.CurrentTime != nil {
			writes.Add(1)
		}
	})

	viewer := engine.NewViewer(engine.ViewerOptions{FrameRate: *fps})
	bridge := clockbridge.New(store, clockbridge.Config{Throttle: window})
	bridge.Attach(viewer)

	fmt.Printf("Running engine at %d fps for %v (throttle %v)...\n", *fps, *duration, window)

	ctx, cancel := signalContext(*duration)
	defer cancel()
	viewer.Run(ctx)

	bridge.Detach()
	viewer.Destroy()

	stats := bridge.Stats()
	expected := int64(*duration/window) + 1

	fmt.Println()
	fmt.Printf("Frames rendered:  %d\n", viewer.Frames())
	fmt.Printf("Ticks seen:       %d\n", stats.TicksSeen)
	fmt.Printf("Store writes:     %d (expected at most %d)\n", writes.Load(), expected)
	fmt.Printf("Configs applied:  %d\n", stats.ConfigsApplied)
	if c := store.Get().CurrentTime; c != nil {
		fmt.Printf("Stored time:      %s\n", *c)
	}
	fmt.Printf("Engine time:      %s\n", viewer.Clock().CurrentTime())

	if writes.Load() > expected {
		fmt.Println("FAIL: store written more often than the throttle allows")
		os.Exit(1)
	}
	fmt.Println("OK")
}

// probeServer connects as a panel and counts clock/state updates
func probeServer(addr, path string) error {
	fmt.Printf("Connecting to %s%s as '%s'...\n", addr, path, *name)

	c := client.NewClient(client.Config{
		ServerAddr: addr,
		Name:       *name,
		Version:    server.ProtocolVersion,
		Path:       path,
	})
	if err := c.Connect(); err != nil {
		return err
	}
	defer c.Close()

	hello := c.ServerHello()
	log.Printf("Connected to %s (server %s)", hello.Name, hello.ServerID)

	m := *multiplier
	for _, cmd := range []protocol.ClockCommand{
		{Command: protocol.CommandMultiplier, Multiplier: &m},
		{Command: protocol.CommandPlay},
	} {
		if err := c.SendCommand(cmd); err != nil {
			return fmt.Errorf("failed to send %s: %w", cmd.Command, err)
		}
	}

	ctx, cancel := signalContext(*duration)
	defer cancel()

	var states, timeChanges int
	var last string
loop:
	for {
		select {
		case state := <-c.States:
			states++
			if cur := state.Config.CurrentTime; cur != nil && *cur != last {
				timeChanges++
				last = *cur
			}
		case e := <-c.Errors:
			log.Printf("Server rejected command: %s", e.Message)
		case <-c.Done():
			return fmt.Errorf("server closed the connection")
		case <-ctx.Done():
			break loop
		}
	}

	rate := float64(timeChanges) / duration.Seconds()
	fmt.Println()
	fmt.Printf("State messages:   %d\n", states)
	fmt.Printf("Time updates:     %d (%.2f/s)\n", timeChanges, rate)
	fmt.Printf("Last stored time: %s\n", last)
	return nil
}

// discover browses mDNS for the first advertised clock server
func discover() (*discovery.ServerInfo, error) {
	fmt.Println("Browsing for clock servers...")
	disc := discovery.NewManager(discovery.Config{ServiceName: *name})
	disc.Browse()
	defer disc.Stop()

	return waitForServer(disc.Servers(), 10*time.Second)
}

// waitForServer returns the first server received within timeout
func waitForServer(servers <-chan *discovery.ServerInfo, timeout time.Duration) (*discovery.ServerInfo, error) {
	select {
	case info := <-servers:
		fmt.Printf("Found %s at %s%s\n", info.Name, info.Addr(), info.Path)
		return info, nil
	case <-time.After(timeout):
		return nil, fmt.Errorf("no clock server found after %v", timeout)
	}
}

// signalContext is cancelled after d or on SIGINT/SIGTERM
func signalContext(d time.Duration) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), d)
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	return ctx, func() {
		stop()
		cancel()
	}
}
