package physics

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func approxEqual(t *testing.T, got, want, tol float64, field string) {
	t.Helper()
	if math.Abs(got-want) > tol {
		t.Fatalf("%s = %.8f, want %.8f (tol=%.8f)", field, got, want, tol)
	}
}

const step = 1.0 / 60.0

func TestStep_FreeFallOneStep(t *testing.T) {
	w := NewWorld(DefaultConfig())
	b := w.AddBody(BodyDef{Mass: 1, Position: mgl64.Vec3{0, 0, 10}})

	w.Step(step)

	approxEqual(t, b.Velocity().Z(), DefaultGravityZ*step, 1e-9, "velocity.z")
	approxEqual(t, b.Position().Z(), 10+DefaultGravityZ*step*step, 1e-9, "position.z")
}

func TestStep_StaticBodyDoesNotMove(t *testing.T) {
	w := NewWorld(DefaultConfig())
	b := w.AddBody(BodyDef{Mass: 0, Position: mgl64.Vec3{1, 2, 3}})
	for i := 0; i < 10; i++ {
		w.Step(step)
	}
	if b.Position() != (mgl64.Vec3{1, 2, 3}) {
		t.Fatalf("static body moved to %v", b.Position())
	}
}

func TestStep_GroundStopsFall(t *testing.T) {
	w := NewWorld(DefaultConfig())
	w.AddGround(nil)
	b := w.AddBody(BodyDef{Mass: 100, Position: mgl64.Vec3{0, 0, 3}, HalfExtents: mgl64.Vec3{1, 1, 1}})

	for i := 0; i < 240; i++ {
		w.Step(step)
	}

	approxEqual(t, b.Position().Z(), 1, 1e-6, "position.z")
	approxEqual(t, b.Velocity().Z(), 0, 1e-6, "velocity.z")
}

func TestStep_LinearFactorLocksAxis(t *testing.T) {
	w := NewWorld(DefaultConfig())
	b := w.AddBody(BodyDef{
		Mass:         1,
		Position:     mgl64.Vec3{0, 0, 5},
		LinearFactor: mgl64.Vec3{1, 1, 0},
	})
	b.SetVelocity(mgl64.Vec3{6, 0, 0})
	w.Step(step)

	approxEqual(t, b.Position().Z(), 5, 1e-12, "position.z")
	approxEqual(t, b.Position().X(), 6*step, 1e-9, "position.x")
}

func TestStep_LinearDampingSlowsBody(t *testing.T) {
	w := NewWorld(Config{Iterations: 1})
	b := w.AddBody(BodyDef{Mass: 1, LinearDamping: 0.5})
	b.SetVelocity(mgl64.Vec3{1, 0, 0})
	w.Step(1)
	approxEqual(t, b.Velocity().X(), 0.5, 1e-9, "velocity.x")
}

func TestStep_AngularVelocityRotatesAboutZ(t *testing.T) {
	w := NewWorld(Config{Iterations: 1})
	b := w.AddBody(BodyDef{Mass: 1})
	b.SetAngularVelocity(mgl64.Vec3{0, 0, math.Pi / 2})
	for i := 0; i < 60; i++ {
		w.Step(step)
	}
	got := b.Orientation().Rotate(mgl64.Vec3{1, 0, 0})
	approxEqual(t, got.X(), 0, 1e-2, "rotated.x")
	approxEqual(t, got.Y(), 1, 1e-2, "rotated.y")
}

func TestStep_BoxesArePushedApart(t *testing.T) {
	w := NewWorld(Config{Iterations: 10})
	a := w.AddBody(BodyDef{Mass: 1, Position: mgl64.Vec3{0, 0, 0}, HalfExtents: mgl64.Vec3{1, 1, 1}})
	b := w.AddBody(BodyDef{Mass: 1, Position: mgl64.Vec3{1.5, 0, 0}, HalfExtents: mgl64.Vec3{1, 1, 1}})

	w.Step(step)

	if gap := b.Position().X() - a.Position().X(); gap < 2-1e-9 {
		t.Fatalf("boxes still overlap, centre gap = %.6f", gap)
	}
	approxEqual(t, a.Position().X()+b.Position().X(), 1.5, 1e-9, "centre of mass")
	if w.Contacts() != 1 {
		t.Fatalf("Contacts() = %d, want 1", w.Contacts())
	}
}

func TestStep_RestitutionFromContactMaterial(t *testing.T) {
	concrete := &Material{Name: "concrete"}
	critter := &Material{Name: "boxcritter"}
	w := NewWorld(Config{Iterations: 1})
	w.AddContactMaterial(ContactMaterial{A: concrete, B: critter, Friction: 0, Restitution: 0.5})
	a := w.AddBody(BodyDef{Mass: 1, Position: mgl64.Vec3{0, 0, 0}, Material: critter})
	wall := w.AddBody(BodyDef{Mass: 0, Position: mgl64.Vec3{0.9, 0, 0}, Material: concrete})
	a.SetVelocity(mgl64.Vec3{4, 0, 0})

	w.Step(0.01)

	approxEqual(t, a.Velocity().X(), -2, 1e-9, "velocity.x")
	if wall.Position() != (mgl64.Vec3{0.9, 0, 0}) {
		t.Fatalf("static wall moved to %v", wall.Position())
	}
}

func TestStep_GroundFriction(t *testing.T) {
	ground := &Material{Name: "concrete"}
	w := NewWorld(Config{Gravity: mgl64.Vec3{0, 0, -10}, Iterations: 1})
	w.AddGround(ground)
	b := w.AddBody(BodyDef{Mass: 1, Position: mgl64.Vec3{0, 0, 0.5}, Material: ground})
	w.AddContactMaterial(ContactMaterial{A: ground, B: ground, Friction: 0.5})
	b.SetVelocity(mgl64.Vec3{3, 0, 0})

	w.Step(0.1)

	approxEqual(t, b.Velocity().X(), 2.5, 1e-9, "velocity.x")
}

func TestRemoveBody(t *testing.T) {
	w := NewWorld(DefaultConfig())
	a := w.AddBody(BodyDef{Mass: 1})
	b := w.AddBody(BodyDef{Mass: 1})
	if !w.RemoveBody(a) {
		t.Fatalf("RemoveBody(a) = false")
	}
	if w.RemoveBody(a) {
		t.Fatalf("RemoveBody(a) twice = true")
	}
	bodies := w.Bodies()
	if len(bodies) != 1 || bodies[0] != b {
		t.Fatalf("Bodies() = %v", bodies)
	}
}

func TestSetOrientationNormalizes(t *testing.T) {
	w := NewWorld(DefaultConfig())
	b := w.AddBody(BodyDef{Mass: 1})
	b.SetOrientation(mgl64.Quat{W: 2})
	if !b.Orientation().ApproxEqual(mgl64.QuatIdent()) {
		t.Fatalf("Orientation() = %v, want identity", b.Orientation())
	}
}
