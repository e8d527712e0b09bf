package sim

import "github.com/Versifine/critter/internal/input"

// InputReader is the slice of the input tracker entities may touch.
type InputReader interface {
	Held(a input.Action) bool
	ConsumePress(a input.Action) bool
}

// Context is the per-loop simulation state handed to every Tick. The
// loop owns it; nothing else keeps a reference between frames.
type Context struct {
	Input InputReader
	Clock *Clock
}

// Tickable advances its own state by one simulation tick.
type Tickable interface {
	Tick(ctx *Context, dt float64)
}

// Viewable copies authoritative state into its visual representation.
type Viewable interface {
	UpdateView()
}

// Entity is anything the loop ticks and syncs.
type Entity interface {
	Tickable
	Viewable
	ID() string
	IsAlive() bool
}

// Stepper advances the physics world by a fixed timestep in seconds.
type Stepper interface {
	Step(dt float64)
}

// Renderer draws the current scene.
type Renderer interface {
	Render() error
}

//go:generate go tool mockgen -destination=./mocks/sim_mock.go -package=mocks . Stepper,Renderer
