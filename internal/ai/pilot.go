// Package ai steers critters with behavior trees. A Pilot stands in for
// the keyboard: tree actions hold and press the same actions a player
// would, and the critter moves with its usual rules.
package ai

import (
	"math"

	"github.com/Versifine/critter/internal/bt"
	"github.com/Versifine/critter/internal/input"
	"github.com/Versifine/critter/internal/sim"
	"github.com/go-gl/mathgl/mgl64"
)

// DefaultArrival is how close to a waypoint counts as arrived.
const DefaultArrival = 0.5

// Pilot runs one tree for one critter. It satisfies sim.InputReader.
type Pilot struct {
	tree *bt.Tree
	bb   *bt.Blackboard

	elapsed  float64
	position mgl64.Vec3
	status   bt.Status

	held    map[input.Action]bool
	pressed map[input.Action]bool
}

func NewPilot(tree *bt.Tree) *Pilot {
	return &Pilot{
		tree:    tree,
		bb:      bt.NewBlackboard(),
		held:    make(map[input.Action]bool),
		pressed: make(map[input.Action]bool),
	}
}

// Drive runs the tree once with the critter at pos. Held actions are
// cleared first, so only what the tree asks for this tick is held.
func (p *Pilot) Drive(_ *sim.Context, pos mgl64.Vec3, dt float64) {
	clear(p.held)
	p.elapsed += dt
	p.position = pos
	p.status = p.tree.Tick(p, p.bb, p.elapsed)
}

func (p *Pilot) Held(a input.Action) bool { return p.held[a] }

func (p *Pilot) ConsumePress(a input.Action) bool {
	if !p.pressed[a] {
		return false
	}
	delete(p.pressed, a)
	return true
}

// Hold keeps a held for the current tick.
func (p *Pilot) Hold(a input.Action) { p.held[a] = true }

// Press queues one press of a.
func (p *Pilot) Press(a input.Action) { p.pressed[a] = true }

func (p *Pilot) Position() mgl64.Vec3 { return p.position }

// Elapsed is the pilot's clock in seconds.
func (p *Pilot) Elapsed() float64 { return p.elapsed }

// Status is the tree's result from the last Drive.
func (p *Pilot) Status() bt.Status { return p.status }

func (p *Pilot) Blackboard() *bt.Blackboard { return p.bb }

// Walk holds the directions toward Dest on the ground plane until the
// critter is within Arrival on both axes.
type Walk struct {
	Dest    mgl64.Vec2
	Arrival float64
}

func (w *Walk) Tick(c *bt.Context) bt.Status {
	p, ok := c.Target.(*Pilot)
	if !ok {
		return bt.Error
	}
	arrival := w.Arrival
	if arrival <= 0 {
		arrival = DefaultArrival
	}

	dx := w.Dest.X() - p.position.X()
	dy := w.Dest.Y() - p.position.Y()
	if math.Abs(dx) <= arrival && math.Abs(dy) <= arrival {
		return bt.Success
	}
	switch {
	case dx > arrival:
		p.Hold(input.ActionRight)
	case dx < -arrival:
		p.Hold(input.ActionLeft)
	}
	switch {
	case dy > arrival:
		p.Hold(input.ActionUp)
	case dy < -arrival:
		p.Hold(input.ActionDown)
	}
	return bt.Running
}

// Patrol waits pause seconds, then walks the waypoints in order. The tree
// starts over once the last waypoint is reached.
func Patrol(name string, pause float64, waypoints ...mgl64.Vec2) *bt.Tree {
	walks := make([]bt.Node, 0, len(waypoints))
	for _, wp := range waypoints {
		walks = append(walks, &Walk{Dest: wp, Arrival: DefaultArrival})
	}
	return bt.New(name, bt.NewMemSequence(name,
		&bt.Wait{Seconds: pause},
		bt.NewMemSequence("walk around", walks...),
	))
}
