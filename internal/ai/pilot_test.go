package ai

import (
	"math"
	"testing"

	"github.com/Versifine/critter/internal/bt"
	"github.com/Versifine/critter/internal/entity"
	"github.com/Versifine/critter/internal/input"
	"github.com/Versifine/critter/internal/sim"
	"github.com/go-gl/mathgl/mgl64"
)

// kinematicBody moves by its velocity when stepped; no gravity, no
// contacts.
type kinematicBody struct {
	pos, vel mgl64.Vec3
	q        mgl64.Quat
}

func (b *kinematicBody) Position() mgl64.Vec3        { return b.pos }
func (b *kinematicBody) Orientation() mgl64.Quat     { return b.q }
func (b *kinematicBody) Velocity() mgl64.Vec3        { return b.vel }
func (b *kinematicBody) SetVelocity(v mgl64.Vec3)    { b.vel = v }
func (b *kinematicBody) SetOrientation(q mgl64.Quat) { b.q = q }
func (b *kinematicBody) step(dt float64)             { b.pos = b.pos.Add(b.vel.Mul(dt)) }

type nopView struct{}

func (nopView) SetPose(mgl64.Vec3, mgl64.Quat) {}

func TestWalkHoldsDirectionsTowardDest(t *testing.T) {
	tests := []struct {
		name string
		pos  mgl64.Vec3
		want []input.Action
		done bool
	}{
		{"up right", mgl64.Vec3{0, 0, 1}, []input.Action{input.ActionRight, input.ActionUp}, false},
		{"down left", mgl64.Vec3{5, 5, 1}, []input.Action{input.ActionLeft, input.ActionDown}, false},
		{"x aligned", mgl64.Vec3{2.3, 0, 1}, []input.Action{input.ActionUp}, false},
		{"arrived", mgl64.Vec3{2.4, 2.4, 1}, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPilot(bt.New("walk", &Walk{Dest: mgl64.Vec2{2, 2}}))
			p.Drive(nil, tt.pos, 1.0/60)

			wantStatus := bt.Running
			if tt.done {
				wantStatus = bt.Success
			}
			if p.Status() != wantStatus {
				t.Fatalf("Status() = %v, want %v", p.Status(), wantStatus)
			}
			held := 0
			for _, a := range []input.Action{input.ActionUp, input.ActionDown, input.ActionLeft, input.ActionRight} {
				if p.Held(a) {
					held++
				}
			}
			if held != len(tt.want) {
				t.Fatalf("held %d actions, want %v", held, tt.want)
			}
			for _, a := range tt.want {
				if !p.Held(a) {
					t.Fatalf("Held(%s) = false", a)
				}
			}
		})
	}
}

// TestPilotResetsHeldEachDrive 测试每次驱动前清空按住状态，按压只消费一次
func TestPilotResetsHeldEachDrive(t *testing.T) {
	ticks := 0
	p := NewPilot(bt.New("once", &bt.Action{Name: "first tick only", Fn: func(c *bt.Context) bt.Status {
		pilot := c.Target.(*Pilot)
		if ticks == 0 {
			pilot.Hold(input.ActionJump)
			pilot.Press(input.ActionZap)
		}
		ticks++
		return bt.Success
	}}))

	p.Drive(nil, mgl64.Vec3{}, 0.5)
	if !p.Held(input.ActionJump) {
		t.Fatalf("jump not held on first drive")
	}
	p.Drive(nil, mgl64.Vec3{}, 0.5)
	if p.Held(input.ActionJump) {
		t.Fatalf("jump still held after a drive that did not ask for it")
	}
	if !p.ConsumePress(input.ActionZap) || p.ConsumePress(input.ActionZap) {
		t.Fatalf("zap press should be consumed exactly once")
	}
	if p.Elapsed() != 1 {
		t.Fatalf("Elapsed() = %v, want 1", p.Elapsed())
	}
}

func TestWalkNeedsPilotTarget(t *testing.T) {
	tree := bt.New("bad", &Walk{Dest: mgl64.Vec2{1, 1}})
	if got := tree.Tick("not a pilot", bt.NewBlackboard(), 0); got != bt.Error {
		t.Fatalf("Tick() = %v, want error", got)
	}
}

// TestPatrolDrivesCritterThroughWaypoints 测试巡逻树驱动小盒子依次到达各航点
func TestPatrolDrivesCritterThroughWaypoints(t *testing.T) {
	waypoints := []mgl64.Vec2{{2, 0}, {2, 2}, {0, 2}, {0, 0}}
	pilot := NewPilot(Patrol("patrol", 0.5, waypoints...))
	body := &kinematicBody{pos: mgl64.Vec3{0, 0, 1}, q: mgl64.QuatIdent()}
	c := entity.NewCritter("npc", body, nopView{}, entity.DefaultParams())
	c.SetDriver(pilot)

	var _ entity.Driver = pilot
	ctx := &sim.Context{Clock: sim.NewClock()}
	const dt = 1.0 / 60

	// Still during the initial wait.
	for i := 0; i < 20; i++ {
		c.Tick(ctx, dt)
		body.step(dt)
	}
	if body.pos != (mgl64.Vec3{0, 0, 1}) {
		t.Fatalf("moved during the wait: %v", body.pos)
	}

	next := 0
	for i := 0; i < 60*20 && next < len(waypoints); i++ {
		c.Tick(ctx, dt)
		body.step(dt)
		wp := waypoints[next]
		if math.Abs(body.pos.X()-wp.X()) <= DefaultArrival && math.Abs(body.pos.Y()-wp.Y()) <= DefaultArrival {
			next++
		}
	}
	if next != len(waypoints) {
		t.Fatalf("reached %d of %d waypoints, stuck at %v", next, len(waypoints), body.pos)
	}
	if body.pos.Z() != 1 {
		t.Fatalf("patrol changed height: %v", body.pos.Z())
	}
}

// TestDriverOverridesKeyboard 测试有驾驶者时忽略键盘输入
func TestDriverOverridesKeyboard(t *testing.T) {
	tracker := input.NewTracker(input.DefaultKeyMap(), nil)
	tracker.OnKeyDown(input.CodeA)
	body := &kinematicBody{q: mgl64.QuatIdent()}
	c := entity.NewCritter("npc", body, nopView{}, entity.DefaultParams())
	c.SetControlledByInputs(true)
	c.SetDriver(NewPilot(bt.New("east", &Walk{Dest: mgl64.Vec2{10, 0}})))

	c.Tick(&sim.Context{Input: tracker, Clock: sim.NewClock()}, 1.0/60)
	if body.vel.X() != 6 {
		t.Fatalf("vx = %v, want 6 from the driver, not -6 from the keyboard", body.vel.X())
	}
}
