// ABOUTME: Main clock daemon orchestration
// ABOUTME: Coordinates the store, engine viewer, bridge, server, discovery, and UI
package app

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/globesync/globesync-go/internal/discovery"
	"github.com/globesync/globesync-go/internal/server"
	"github.com/globesync/globesync-go/internal/ui"
	"github.com/globesync/globesync-go/pkg/clockbridge"
	"github.com/globesync/globesync-go/pkg/clockconfig"
	"github.com/globesync/globesync-go/pkg/engine"
	tea "github.com/charmbracelet/bubbletea"
)

// Config holds daemon configuration
type Config struct {
	// Name is the server name shown to panels and advertised via mDNS
	Name string

	// Port is the websocket listen port (default: 8927)
	Port int

	// StateFile is the YAML clock snapshot; empty disables persistence
	StateFile string

	// FrameRate is the engine tick rate (default: 60)
	FrameRate int

	// Throttle is the engine to store write window (default: 500ms)
	Throttle time.Duration

	Debug      bool
	UseTUI     bool
	EnableMDNS bool

	// OnError is called for background failures (default: log)
	OnError func(error)
}

// App is the running clock daemon
type App struct {
	config Config

	store     *clockconfig.Store
	viewerMu  sync.Mutex
	viewer    *engine.Viewer
	bridge    *clockbridge.Bridge
	server    *server.Server
	discovery *discovery.Manager
	control   *ui.ClockControl

	tuiMu   sync.Mutex
	tuiProg *tea.Program

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	stopOnce sync.Once
}

// New creates the daemon and loads the clock snapshot
func New(config Config) (*App, error) {
	if config.Name == "" {
		config.Name = "globesync"
	}
	if config.Port == 0 {
		config.Port = 8927
	}
	if config.FrameRate <= 0 {
		config.FrameRate = engine.DefaultFrameRate
	}
	if config.Throttle <= 0 {
		config.Throttle = clockbridge.DefaultThrottleWindow
	}
	if config.OnError == nil {
		config.OnError = func(err error) {
			log.Printf("Error: %v", err)
		}
	}

	initial := clockconfig.Default()
	if config.StateFile != "" {
		cfg, err := clockconfig.LoadFile(config.StateFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load clock state: %w", err)
		}
		initial = cfg
	}

	ctx, cancel := context.WithCancel(context.Background())

	a := &App{
		config:  config,
		store:   clockconfig.NewStore(initial),
		control: ui.NewClockControl(),
		ctx:     ctx,
		cancel:  cancel,
	}

	a.bridge = clockbridge.New(a.store, clockbridge.Config{
		Throttle: config.Throttle,
		Debug:    config.Debug,
	})

	a.server = server.New(server.Config{
		Port:  config.Port,
		Name:  config.Name,
		Debug: config.Debug,
		OnClientsChanged: func(count int) {
			a.updateTUI(ui.StatusMsg{Panels: &count})
		},
	}, a.store)

	return a, nil
}

// Store returns the persisted clock store
func (a *App) Store() *clockconfig.Store {
	return a.store
}

// Bridge returns the engine to store bridge
func (a *App) Bridge() *clockbridge.Bridge {
	return a.bridge
}

// Viewer returns the currently mounted engine viewer
func (a *App) Viewer() *engine.Viewer {
	a.viewerMu.Lock()
	defer a.viewerMu.Unlock()
	return a.viewer
}

// Control returns the channel pair that drives the clock from the UI
func (a *App) Control() *ui.ClockControl {
	return a.control
}

// Start mounts the engine and starts every background component
func (a *App) Start() error {
	a.mount()

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := a.server.Run(a.ctx); err != nil {
			a.config.OnError(fmt.Errorf("clock server: %w", err))
		}
	}()

	if a.config.EnableMDNS {
		a.discovery = discovery.NewManager(discovery.Config{
			ServiceName: a.config.Name,
			Port:        a.config.Port,
			Path:        server.Path,
		})
		if err := a.discovery.Advertise(); err != nil {
			a.config.OnError(fmt.Errorf("mDNS advertisement: %w", err))
		}
	}

	if a.config.UseTUI {
		tuiProg, err := ui.Run(a.control)
		if err != nil {
			return fmt.Errorf("failed to start TUI: %w", err)
		}
		a.tuiMu.Lock()
		a.tuiProg = tuiProg
		a.tuiMu.Unlock()
		go tuiProg.Run()

		a.updateTUI(ui.StatusMsg{ServerName: a.config.Name, Port: a.config.Port})

		a.wg.Add(1)
		go a.statusLoop()
	}

	a.wg.Add(1)
	go a.handleControls()

	return nil
}

// mount creates a fresh viewer and attaches the bridge to it
func (a *App) mount() {
	viewer := engine.NewViewer(engine.ViewerOptions{FrameRate: a.config.FrameRate})
	a.viewerMu.Lock()
	a.viewer = viewer
	a.viewerMu.Unlock()

	a.bridge.Attach(viewer)

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		viewer.Run(a.ctx)
	}()
}

// Remount tears the engine down and mounts a new one, as a host page
// does when its globe view is recreated
func (a *App) Remount() {
	a.bridge.Detach()
	a.Viewer().Destroy()
	a.mount()
	log.Printf("Engine remounted")
}

// Quit returns a channel signalled when the user asks to quit from the UI
func (a *App) Quit() <-chan struct{} {
	return a.control.Quit
}

// handleControls applies clock commands issued from the UI
func (a *App) handleControls() {
	defer a.wg.Done()

	for {
		select {
		case cmd := <-a.control.Commands:
			if err := a.server.ApplyCommand(cmd); err != nil {
				a.config.OnError(fmt.Errorf("clock command %s: %w", cmd.Command, err))
			}

		case <-a.ctx.Done():
			return
		}
	}
}

// statusLoop periodically refreshes the TUI
func (a *App) statusLoop() {
	defer a.wg.Done()

	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.updateTUI(a.status())
		case <-a.ctx.Done():
			return
		}
	}
}

// status snapshots the current daemon state
func (a *App) status() ui.StatusMsg {
	cfg := a.store.Get()
	stats := a.bridge.Stats()
	attached := a.bridge.Attached()
	panels := a.server.ClientCount()
	viewer := a.Viewer()

	return ui.StatusMsg{
		Panels:     &panels,
		Config:     &cfg,
		EngineTime: viewer.Clock().CurrentTime().String(),
		Frames:     viewer.Frames(),
		Attached:   &attached,
		Stats:      &stats,
	}
}

func (a *App) updateTUI(msg ui.StatusMsg) {
	a.tuiMu.Lock()
	prog := a.tuiProg
	a.tuiMu.Unlock()

	if prog != nil {
		prog.Send(msg)
	}
}

// Stop tears the engine down, stops background work, and saves the clock
func (a *App) Stop() error {
	var err error
	a.stopOnce.Do(func() {
		// Detach before destroying so the tick listener is removed cleanly
		a.bridge.Detach()
		if viewer := a.Viewer(); viewer != nil {
			viewer.Destroy()
		}

		a.cancel()

		if a.discovery != nil {
			a.discovery.Stop()
		}

		a.tuiMu.Lock()
		if a.tuiProg != nil {
			a.tuiProg.Quit()
		}
		a.tuiMu.Unlock()

		a.wg.Wait()

		if a.config.StateFile != "" {
			if saveErr := clockconfig.SaveFile(a.config.StateFile, a.store.Get()); saveErr != nil {
				err = fmt.Errorf("failed to save clock state: %w", saveErr)
				return
			}
			log.Printf("Saved clock state to %s", a.config.StateFile)
		}
	})
	return err
}
