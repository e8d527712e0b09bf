package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/Versifine/critter/internal/config"
	"github.com/Versifine/critter/internal/crash"
	"github.com/Versifine/critter/internal/event"
	"github.com/Versifine/critter/internal/host/terminal"
	"github.com/Versifine/critter/internal/host/window"
	"github.com/Versifine/critter/internal/input"
	"github.com/Versifine/critter/internal/logger"
	"github.com/Versifine/critter/internal/render"
	"github.com/Versifine/critter/internal/sim"
	"github.com/Versifine/critter/internal/stage"
	"github.com/Versifine/critter/internal/web"
	"github.com/getsentry/sentry-go"
	"github.com/go-echarts/statsview"
	"github.com/go-echarts/statsview/viewer"
	"golang.org/x/sync/errgroup"
)

func main() {

	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	// The terminal host draws on stdout, so logs only go to the file there.
	var logOut io.Writer = os.Stdout
	if cfg.Host == config.HostTerminal {
		logOut = io.Discard
	}
	if err := logger.Init(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: logOut,
		File:   cfg.Logging.File,
	}); err != nil {
		slog.Warn("Logging to stdout only", "error", err)
	}

	err = run(cfg)
	_ = logger.Close()
	if err != nil {
		slog.Error("critter stopped with error", "error", err)
		fmt.Fprintln(os.Stderr, "critter:", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	reporting, err := crash.Init(crash.Config{DSN: cfg.Sentry.DSN, Environment: cfg.Sentry.Environment})
	if err != nil {
		return err
	}
	if reporting {
		defer sentry.Flush(2 * time.Second)
	}

	if addr := cfg.Metrics.StatsviewAddr; addr != "" {
		viewer.SetConfiguration(viewer.WithTheme(viewer.ThemeWesteros), viewer.WithAddr(addr))
		mgr := statsview.New()
		go mgr.Start()
		defer mgr.Stop()
		slog.Info("Runtime dashboard started", "addr", addr)
	}

	bus := event.NewBus()
	subscribeLogging(bus)

	st, err := stage.Build(cfg.StageConfig(aspect(cfg)), bus)
	if err != nil {
		return fmt.Errorf("build stage: %w", err)
	}
	keys, err := cfg.KeyMap()
	if err != nil {
		return err
	}

	var loop *sim.Loop
	status := func() render.Status {
		return render.Status{
			Playing: loop.Clock().Playing(),
			Held:    loop.Tracker().HeldActions(),
			Frame:   loop.Stats().Frames,
		}
	}

	opts := cfg.LoopOptions()
	opts.OnPauseChange = func(playing bool) {
		bus.Publish(event.EventPauseToggled, event.PauseEvent{Playing: playing, Frame: loop.Stats().Frames})
	}
	if reporting {
		opts.OnPanic = crash.NewReporter(nil, map[string]string{"host": cfg.Host}).Report
	}

	var renderers render.Multi
	loop, err = sim.NewLoop(st.World(), &renderers, st.Registry(), keys, opts)
	if err != nil {
		return err
	}
	loop.Tracker().SetUnmappedHandler(func(code input.Code) {
		bus.Publish(event.EventInputUnmapped, event.UnmappedKeyEvent{Code: int(code)})
	})
	st.BindKeys(loop.Tracker())

	g, gctx := errgroup.WithContext(ctx)

	if cfg.Host == config.HostWeb || cfg.Web.Enabled {
		hub := web.NewHub(st.Scene(), status, loop.Events(), true)
		bus.Subscribe(event.EventPauseToggled, func(raw any) {
			if ev, ok := raw.(event.PauseEvent); ok {
				hub.OnPause(ev.Playing)
			}
		})
		renderers = append(renderers, hub)
		server := web.NewServer(cfg.Web.Listen, hub)
		g.Go(func() error {
			return server.Start(gctx)
		})
	}

	switch cfg.Host {
	case config.HostTerminal:
		fmt.Print("\x1b[2J")
		renderers = append(renderers, render.NewASCII(os.Stdout, st.Scene(), status, render.ASCIIOptions{
			Width:      cfg.Terminal.Width,
			Height:     cfg.Terminal.Height,
			Scale:      cfg.Terminal.Scale,
			Projection: render.Projection(cfg.Terminal.Projection),
			Home:       true,
			LineEnd:    "\r\n",
		}))
		host := terminal.New(os.Stdin, loop.Events(), terminal.Options{PulseDuration: cfg.Terminal.PulseDuration})
		g.Go(func() error {
			defer cancel()
			return host.Run(gctx, cancel)
		})
		g.Go(func() error {
			return loop.Run(gctx)
		})

	case config.HostWeb:
		g.Go(func() error {
			return loop.Run(gctx)
		})

	case config.HostWindow:
		// ebiten has to own the main goroutine.
		game := window.NewGame(gctx, loop, st.Scene(), status, window.Options{
			Width:     cfg.Window.Width,
			Height:    cfg.Window.Height,
			Title:     cfg.Window.Title,
			Scale:     cfg.Window.Scale,
			FrameRate: cfg.Simulation.FrameRate,
		})
		werr := window.Run(gctx, game)
		cancel()
		return errors.Join(werr, g.Wait())
	}

	return g.Wait()
}

func aspect(cfg *config.Config) float64 {
	switch cfg.Host {
	case config.HostTerminal:
		// Terminal cells are about twice as tall as wide.
		return float64(cfg.Terminal.Width) / float64(2*cfg.Terminal.Height)
	case config.HostWindow:
		return float64(cfg.Window.Width) / float64(cfg.Window.Height)
	}
	return 16.0 / 9.0
}

func subscribeLogging(bus *event.Bus) {
	bus.Subscribe(event.EventEntitySpawned, func(raw any) {
		if ev, ok := raw.(event.EntityEvent); ok {
			slog.Debug("Entity spawned", "id", ev.EntityID, "kind", ev.Kind, "controlled", ev.Controlled)
		}
	})
	bus.Subscribe(event.EventEntityKilled, func(raw any) {
		if ev, ok := raw.(event.EntityEvent); ok {
			slog.Info("Entity killed", "id", ev.EntityID, "kind", ev.Kind)
		}
	})
	var hinted sync.Map
	bus.Subscribe(event.EventInputUnmapped, func(raw any) {
		ev, ok := raw.(event.UnmappedKeyEvent)
		if !ok {
			return
		}
		if _, seen := hinted.LoadOrStore(ev.Code, struct{}{}); !seen {
			slog.Info("Key has no action; map it under keys in the config", "code", ev.Code)
		}
	})
}
