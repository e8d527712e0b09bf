package sim

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Versifine/critter/internal/input"
)

const (
	DefaultTimestep      = 1.0 / 60.0
	DefaultFrameInterval = time.Second / 60
	defaultEventQueue    = 64
	defaultStatsEvery    = 600
)

// Options tune the loop. Zero values fall back to defaults.
type Options struct {
	// Timestep is the fixed physics step in seconds.
	Timestep float64
	// FrameInterval is the display refresh period used by Run.
	FrameInterval time.Duration
	// RenderWhilePaused keeps drawing frames while the clock is paused.
	RenderWhilePaused bool
	// OnPauseChange is called on the loop goroutine after every toggle.
	OnPauseChange func(playing bool)
	// OnPanic sees a frame panic before it is re-raised.
	OnPanic func(recovered any)
	// StatsEvery logs loop stats every N frames.
	StatsEvery int
}

// KeyEvent is a raw key transition from a host.
type KeyEvent struct {
	Code input.Code
	Down bool
}

type Stats struct {
	Frames       uint64
	PausedFrames uint64
	Ticks        uint64
	Steps        uint64
	Renders      uint64
}

// Loop runs tick -> step -> sync -> render once per displayed frame.
type Loop struct {
	world    Stepper
	renderer Renderer
	registry *Registry
	tracker  *input.Tracker
	clock    *Clock
	ctx      *Context
	opts     Options
	events   chan KeyEvent
	stats    Stats
}

func NewLoop(world Stepper, renderer Renderer, registry *Registry, keys input.KeyMap, opts Options) (*Loop, error) {
	if world == nil {
		return nil, fmt.Errorf("physics world is nil")
	}
	if renderer == nil {
		return nil, fmt.Errorf("renderer is nil")
	}
	if registry == nil {
		registry = NewRegistry()
	}
	if opts.Timestep <= 0 {
		opts.Timestep = DefaultTimestep
	}
	if opts.FrameInterval <= 0 {
		opts.FrameInterval = DefaultFrameInterval
	}
	if opts.StatsEvery <= 0 {
		opts.StatsEvery = defaultStatsEvery
	}

	l := &Loop{
		world:    world,
		renderer: renderer,
		registry: registry,
		clock:    NewClock(),
		opts:     opts,
		events:   make(chan KeyEvent, defaultEventQueue),
	}
	l.tracker = input.NewTracker(keys, l.togglePause)
	l.ctx = &Context{Input: l.tracker, Clock: l.clock}
	return l, nil
}

func (l *Loop) Registry() *Registry { return l.registry }

func (l *Loop) Tracker() *input.Tracker { return l.tracker }

func (l *Loop) Clock() *Clock { return l.clock }

func (l *Loop) Stats() Stats { return l.stats }

// Events returns the channel hosts feed key events into while Run is
// active.
func (l *Loop) Events() chan<- KeyEvent { return l.events }

// Dispatch applies a key event immediately. Only call it from the
// goroutine that calls Frame.
func (l *Loop) Dispatch(ev KeyEvent) {
	if ev.Down {
		l.tracker.OnKeyDown(ev.Code)
	} else {
		l.tracker.OnKeyUp(ev.Code)
	}
}

// Drain applies every queued key event without blocking and returns how
// many it applied. Hosts that call Frame themselves use it instead of Run.
func (l *Loop) Drain() int {
	n := 0
	for {
		select {
		case ev := <-l.events:
			l.Dispatch(ev)
			n++
		default:
			return n
		}
	}
}

// Frame runs one displayed frame at timestamp now.
func (l *Loop) Frame(now time.Duration) error {
	if l.opts.OnPanic != nil {
		defer func() {
			if r := recover(); r != nil {
				l.opts.OnPanic(r)
				panic(r)
			}
		}()
	}

	delta := l.clock.Advance(now)
	l.stats.Frames++
	l.maybeLogStats()

	if !l.clock.Playing() {
		l.stats.PausedFrames++
		if l.opts.RenderWhilePaused {
			return l.render()
		}
		return nil
	}

	dt := delta.Seconds()
	l.registry.Each(func(e Entity) {
		if !e.IsAlive() {
			return
		}
		e.Tick(l.ctx, dt)
		l.stats.Ticks++
	})

	l.world.Step(l.opts.Timestep)
	l.stats.Steps++

	l.registry.Each(func(e Entity) {
		e.UpdateView()
	})

	return l.render()
}

// Run schedules frames at FrameInterval and applies queued key events
// between them until ctx is cancelled or a frame fails.
func (l *Loop) Run(ctx context.Context) error {
	ticker := time.NewTicker(l.opts.FrameInterval)
	defer ticker.Stop()
	start := time.Now()

	slog.Info("Simulation loop started", "timestep", l.opts.Timestep, "frame_interval", l.opts.FrameInterval, "entities", l.registry.Len())
	for {
		select {
		case <-ctx.Done():
			slog.Info("Simulation loop stopped", "frames", l.stats.Frames)
			return nil
		case ev := <-l.events:
			l.Dispatch(ev)
		case <-ticker.C:
			if err := l.Frame(time.Since(start)); err != nil {
				return fmt.Errorf("frame %d: %w", l.stats.Frames, err)
			}
		}
	}
}

func (l *Loop) render() error {
	if err := l.renderer.Render(); err != nil {
		return fmt.Errorf("render: %w", err)
	}
	l.stats.Renders++
	return nil
}

func (l *Loop) togglePause() {
	playing := l.clock.TogglePause()
	slog.Info("Pause toggled", "playing", playing)
	if l.opts.OnPauseChange != nil {
		l.opts.OnPauseChange(playing)
	}
}

func (l *Loop) maybeLogStats() {
	if l.stats.Frames%uint64(l.opts.StatsEvery) != 0 {
		return
	}
	slog.Debug("loop stats",
		"frames", l.stats.Frames,
		"paused_frames", l.stats.PausedFrames,
		"ticks", l.stats.Ticks,
		"steps", l.stats.Steps,
		"renders", l.stats.Renders,
	)
}
