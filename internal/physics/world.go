package physics

import (
	"log/slog"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

type Config struct {
	Gravity mgl64.Vec3
	// Iterations is the number of contact resolution passes per step.
	Iterations         int
	DefaultFriction    float64
	DefaultRestitution float64
}

func DefaultConfig() Config {
	return Config{
		Gravity:            mgl64.Vec3{0, 0, DefaultGravityZ},
		Iterations:         DefaultIterations,
		DefaultFriction:    DefaultFriction,
		DefaultRestitution: DefaultRestitution,
	}
}

// ContactMaterial sets friction and restitution for a pair of materials.
type ContactMaterial struct {
	A           *Material
	B           *Material
	Friction    float64
	Restitution float64
}

type materialPair struct {
	a, b *Material
}

// World is a small box/plane rigid-body integrator with a ground plane
// at z = 0.
type World struct {
	cfg       Config
	bodies    []*Body
	nextID    int
	materials map[materialPair]ContactMaterial

	hasGround      bool
	groundMaterial *Material
	contacts       int
}

func NewWorld(cfg Config) *World {
	if cfg.Iterations <= 0 {
		cfg.Iterations = DefaultIterations
	}
	return &World{
		cfg:       cfg,
		materials: make(map[materialPair]ContactMaterial),
	}
}

func (w *World) Gravity() mgl64.Vec3 { return w.cfg.Gravity }

// AddGround installs the static plane z = 0.
func (w *World) AddGround(material *Material) {
	w.hasGround = true
	w.groundMaterial = material
}

func (w *World) AddBody(def BodyDef) *Body {
	w.nextID++
	b := newBody(w.nextID, def)
	w.bodies = append(w.bodies, b)
	return b
}

func (w *World) RemoveBody(b *Body) bool {
	for i, other := range w.bodies {
		if other == b {
			w.bodies = append(w.bodies[:i], w.bodies[i+1:]...)
			return true
		}
	}
	return false
}

func (w *World) Bodies() []*Body {
	out := make([]*Body, len(w.bodies))
	copy(out, w.bodies)
	return out
}

func (w *World) AddContactMaterial(cm ContactMaterial) {
	w.materials[materialPair{cm.A, cm.B}] = cm
	w.materials[materialPair{cm.B, cm.A}] = cm
}

// Contacts returns the number of contacts resolved by the last Step.
func (w *World) Contacts() int { return w.contacts }

// Step integrates every dynamic body by dt seconds and resolves contacts.
func (w *World) Step(dt float64) {
	if dt <= 0 {
		return
	}
	w.contacts = 0

	for _, b := range w.bodies {
		if b.IsStatic() {
			continue
		}
		integrate(b, w.cfg.Gravity, dt)
	}

	for i := 0; i < w.cfg.Iterations; i++ {
		resolved := 0
		if w.hasGround {
			resolved += w.resolveGround(dt, i == 0)
		}
		resolved += w.resolvePairs(i == 0)
		if resolved == 0 {
			break
		}
	}

	for _, b := range w.bodies {
		zeroResidualVelocity(&b.velocity)
	}

	if w.contacts > 0 {
		slog.Debug("physics contacts", "count", w.contacts)
	}
}

func integrate(b *Body, gravity mgl64.Vec3, dt float64) {
	lf := b.linearFactor
	v := b.velocity
	v = v.Add(mgl64.Vec3{gravity.X() * lf.X(), gravity.Y() * lf.Y(), gravity.Z() * lf.Z()}.Mul(dt))
	v = v.Mul(math.Pow(1-b.linearDamping, dt))
	b.velocity = v
	b.position = b.position.Add(mgl64.Vec3{v.X() * lf.X(), v.Y() * lf.Y(), v.Z() * lf.Z()}.Mul(dt))

	wv := b.angularVelocity.Mul(math.Pow(1-b.angularDamping, dt))
	b.angularVelocity = wv
	if wv.Len() > 0 {
		spin := mgl64.Quat{W: 0, V: wv}.Mul(b.orientation).Scale(0.5 * dt)
		b.orientation = b.orientation.Add(spin).Normalize()
	}
}

func (w *World) resolveGround(dt float64, count bool) int {
	resolved := 0
	for _, b := range w.bodies {
		if b.IsStatic() {
			continue
		}
		bottom := b.position.Z() - b.halfExtents.Z()
		if bottom >= 0 {
			continue
		}
		friction, restitution := w.contactProps(b.material, w.groundMaterial)

		b.position[2] -= bottom
		if vz := b.velocity.Z(); vz < 0 {
			// Resting contact: don't bounce off the speed gravity added this step.
			if -vz <= 2*math.Abs(w.cfg.Gravity.Z())*dt {
				b.velocity[2] = 0
			} else {
				b.velocity[2] = -vz * restitution
			}
		}
		if count {
			applyFriction(b, friction*math.Abs(w.cfg.Gravity.Z())*dt)
			w.contacts++
		}
		resolved++
	}
	return resolved
}

// resolvePairs separates overlapping boxes along the axis of least
// penetration, split by inverse mass, and exchanges a restitution impulse.
func (w *World) resolvePairs(count bool) int {
	resolved := 0
	for i := 0; i < len(w.bodies); i++ {
		a := w.bodies[i]
		for j := i + 1; j < len(w.bodies); j++ {
			b := w.bodies[j]
			if a.IsStatic() && b.IsStatic() {
				continue
			}
			boxA, boxB := a.AABB(), b.AABB()
			if !intersects(boxA, boxB) {
				continue
			}
			depth, axis, sign := penetration(boxA, boxB)
			if nearlyZero(depth) {
				continue
			}
			if depth > contactPushMaxPerPair {
				depth = contactPushMaxPerPair
			}

			total := a.invMass + b.invMass
			a.position[axis] += sign * depth * a.invMass / total
			b.position[axis] -= sign * depth * b.invMass / total

			_, restitution := w.contactProps(a.material, b.material)
			rel := (a.velocity[axis] - b.velocity[axis]) * sign
			if rel < 0 {
				impulse := -(1 + restitution) * rel / total
				a.velocity[axis] += sign * impulse * a.invMass
				b.velocity[axis] -= sign * impulse * b.invMass
			}
			if count {
				w.contacts++
			}
			resolved++
		}
	}
	return resolved
}

func (w *World) contactProps(a, b *Material) (friction, restitution float64) {
	if cm, ok := w.materials[materialPair{a, b}]; ok {
		return cm.Friction, cm.Restitution
	}
	return w.cfg.DefaultFriction, w.cfg.DefaultRestitution
}

// applyFriction removes up to limit of horizontal speed.
func applyFriction(b *Body, limit float64) {
	if limit <= 0 {
		return
	}
	vx, vy := b.velocity.X(), b.velocity.Y()
	speed := math.Hypot(vx, vy)
	if speed <= limit {
		b.velocity[0], b.velocity[1] = 0, 0
		return
	}
	scale := (speed - limit) / speed
	b.velocity[0] = vx * scale
	b.velocity[1] = vy * scale
}

func zeroResidualVelocity(v *mgl64.Vec3) {
	if math.Abs(v.X()) < MinimumResidualHorizontalSpeed {
		v[0] = 0
	}
	if math.Abs(v.Y()) < MinimumResidualHorizontalSpeed {
		v[1] = 0
	}
	if math.Abs(v.Z()) < MinimumResidualVerticalSpeed {
		v[2] = 0
	}
}
