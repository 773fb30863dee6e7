// ABOUTME: Entry point for the globesync clock daemon
// ABOUTME: Parses CLI flags and runs the engine, bridge, and clock server
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/globesync/globesync-go/internal/app"
	"github.com/globesync/globesync-go/internal/version"
)

var (
	port       = flag.Int("port", 8927, "WebSocket port for clock panels")
	name       = flag.String("name", "", "Server friendly name (default: hostname-globesync)")
	stateFile  = flag.String("state-file", "globesync-clock.yaml", "Clock state snapshot (empty disables persistence)")
	fps        = flag.Int("fps", 60, "Engine frame rate")
	throttleMs = flag.Int("throttle-ms", 500, "Minimum interval between engine time writes to the store")
	logFile    = flag.String("log-file", "globesync.log", "Log file path")
	noTUI      = flag.Bool("no-tui", false, "Disable TUI, use streaming logs instead")
	noMDNS     = flag.Bool("no-mdns", false, "Disable mDNS advertisement")
	debug      = flag.Bool("debug", false, "Log skipped fields and swallowed engine errors")
)

func main() {
	flag.Parse()

	useTUI := !*noTUI

	// Set up logging
	f, err := os.OpenFile(*logFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("error opening log file: %v", err)
	}
	defer func() { _ = f.Close() }()

	if useTUI {
		// TUI mode: log only to file
		log.SetOutput(f)
	} else {
		// Streaming logs mode: log to both stdout and file
		log.SetOutput(io.MultiWriter(os.Stdout, f))
	}

	serverName := *name
	if serverName == "" {
		hostname, err := os.Hostname()
		if err != nil {
			hostname = "unknown"
		}
		serverName = fmt.Sprintf("%s-globesync", hostname)
	}

	log.Printf("Starting %s %s: %s", version.Product, version.Version, serverName)

	daemon, err := app.New(app.Config{
		Name:       serverName,
		Port:       *port,
		StateFile:  *stateFile,
		FrameRate:  *fps,
		Throttle:   time.Duration(*throttleMs) * time.Millisecond,
		Debug:      *debug,
		UseTUI:     useTUI,
		EnableMDNS: !*noMDNS,
		OnError: func(err error) {
			log.Printf("Clock error: %v", err)
		},
	})
	if err != nil {
		log.Fatalf("Failed to create daemon: %v", err)
	}

	if err := daemon.Start(); err != nil {
		log.Fatalf("Failed to start daemon: %v", err)
	}

	// Handle shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Wait for quit signal from TUI or OS
	select {
	case <-daemon.Quit():
		log.Printf("Received quit signal from TUI")
	case <-sigChan:
		log.Printf("Shutdown signal received")
	}

	if err := daemon.Stop(); err != nil {
		log.Printf("Error stopping daemon: %v", err)
	}

	log.Printf("Daemon stopped")
}
