package entity

import (
	"fmt"
	"math"

	"github.com/Versifine/critter/internal/input"
	"github.com/Versifine/critter/internal/sim"
	"github.com/go-gl/mathgl/mgl64"
)

// Body is the command surface of a physics body. The physics engine's
// representation stays behind it.
type Body interface {
	Position() mgl64.Vec3
	Orientation() mgl64.Quat
	Velocity() mgl64.Vec3
	SetVelocity(v mgl64.Vec3)
	SetOrientation(q mgl64.Quat)
}

// View is the visual mesh driven by a body.
type View interface {
	SetPose(pos mgl64.Vec3, q mgl64.Quat)
}

// Driver steers a critter in place of the keyboard. Drive runs at the
// start of every tick, before the critter reads the driver's input.
type Driver interface {
	sim.InputReader
	Drive(ctx *sim.Context, pos mgl64.Vec3, dt float64)
}

// VelocityMode selects how input combines with the retained velocity.
type VelocityMode string

const (
	// VelocityAdditive adds the input contribution to the damped velocity.
	VelocityAdditive VelocityMode = "additive"
	// VelocityOverwrite replaces the damped velocity on axes with input.
	VelocityOverwrite VelocityMode = "overwrite"
)

// Facing angles about +z for each direction.
const (
	FacingRight = 0.0
	FacingUp    = 0.5 * math.Pi
	FacingLeft  = math.Pi
	FacingDown  = 1.5 * math.Pi
)

var upAxis = mgl64.Vec3{0, 0, 1}

// Params are the critter's tunables.
type Params struct {
	MaxSpeed     float64
	Retention    float64
	JumpSpeed    float64
	ZapSpeed     float64
	VelocityMode VelocityMode
}

func DefaultParams() Params {
	return Params{
		MaxSpeed:     6,
		Retention:    0.5,
		JumpSpeed:    5,
		ZapSpeed:     90,
		VelocityMode: VelocityAdditive,
	}
}

func (p Params) Validate() error {
	if p.MaxSpeed < 0 || p.JumpSpeed < 0 || p.ZapSpeed < 0 {
		return fmt.Errorf("critter speeds must be non-negative")
	}
	if p.Retention < 0 || p.Retention > 1 {
		return fmt.Errorf("critter retention %.3f outside [0,1]", p.Retention)
	}
	switch p.VelocityMode {
	case VelocityAdditive, VelocityOverwrite:
	default:
		return fmt.Errorf("unknown velocity mode %q", p.VelocityMode)
	}
	return nil
}

// move is one directional action and the horizontal axis it drives.
type move struct {
	action input.Action
	axis   int
	sign   float64
	facing float64
}

// Check order is fixed: later held directions overwrite facing, and in
// zap mode the first held one wins.
var moves = [...]move{
	{input.ActionUp, 1, +1, FacingUp},
	{input.ActionDown, 1, -1, FacingDown},
	{input.ActionLeft, 0, -1, FacingLeft},
	{input.ActionRight, 0, +1, FacingRight},
}

// Critter pairs one physics body with one mesh.
type Critter struct {
	id     string
	body   Body
	view   View
	params Params

	alive              bool
	facing             float64
	zap                bool
	controlledByInputs bool
	driver             Driver
}

func NewCritter(id string, body Body, view View, params Params) *Critter {
	return &Critter{
		id:     id,
		body:   body,
		view:   view,
		params: params,
		alive:  true,
	}
}

func (c *Critter) ID() string { return c.id }

func (c *Critter) IsAlive() bool { return c.alive }

// Kill disables ticking. The critter stays registered and keeps syncing
// its view.
func (c *Critter) Kill() { c.alive = false }

func (c *Critter) Facing() float64 { return c.facing }

func (c *Critter) Zapping() bool { return c.zap }

func (c *Critter) SetControlledByInputs(v bool) { c.controlledByInputs = v }

func (c *Critter) ControlledByInputs() bool { return c.controlledByInputs }

// SetDriver hands the critter to d. A driven critter ignores the
// keyboard even when controlled by inputs. nil removes the driver.
func (c *Critter) SetDriver(d Driver) { c.driver = d }

func (c *Critter) Driver() Driver { return c.driver }

func (c *Critter) Params() Params { return c.params }

func (c *Critter) Body() Body { return c.body }

// Tick turns held input into a commanded velocity and facing.
func (c *Critter) Tick(ctx *sim.Context, dt float64) {
	if !c.alive {
		return
	}

	current := c.body.Velocity()
	retained := mgl64.Vec3{
		current.X() * c.params.Retention,
		current.Y() * c.params.Retention,
		current.Z(),
	}
	v := retained

	var in sim.InputReader
	switch {
	case c.driver != nil:
		c.driver.Drive(ctx, c.body.Position(), dt)
		in = c.driver
	case c.controlledByInputs && ctx != nil && ctx.Input != nil:
		in = ctx.Input
	}
	if in != nil {
		if in.ConsumePress(input.ActionZap) {
			c.zap = !c.zap
		}
		if c.zap {
			v = c.dash(in, v)
		} else {
			v = c.walk(in, v)
		}
	}

	c.body.SetVelocity(v)
	c.body.SetOrientation(mgl64.QuatRotate(c.facing, upAxis))
}

func (c *Critter) walk(in sim.InputReader, v mgl64.Vec3) mgl64.Vec3 {
	for _, m := range moves {
		if !in.Held(m.action) {
			continue
		}
		switch c.params.VelocityMode {
		case VelocityOverwrite:
			v[m.axis] = m.sign * c.params.MaxSpeed
		default:
			v[m.axis] += m.sign * c.params.MaxSpeed
		}
		c.facing = m.facing
	}
	if in.Held(input.ActionJump) {
		v[2] = c.params.JumpSpeed
	}
	return v
}

// dash gives the first held action the zap magnitude and leaves zap mode.
func (c *Critter) dash(in sim.InputReader, v mgl64.Vec3) mgl64.Vec3 {
	for _, m := range moves {
		if in.Held(m.action) {
			v[m.axis] = m.sign * c.params.ZapSpeed
			c.zap = false
			return v
		}
	}
	if in.Held(input.ActionJump) {
		v[2] = c.params.ZapSpeed
		c.zap = false
	}
	return v
}

// UpdateView copies the body pose into the mesh as-is.
func (c *Critter) UpdateView() {
	c.view.SetPose(c.body.Position(), c.body.Orientation())
}
