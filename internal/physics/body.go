package physics

import "github.com/go-gl/mathgl/mgl64"

// Material tags a body for contact material lookup.
type Material struct {
	Name string
}

// BodyDef describes a body to create. A zero Mass makes it static.
type BodyDef struct {
	Mass           float64
	Position       mgl64.Vec3
	HalfExtents    mgl64.Vec3
	LinearFactor   mgl64.Vec3
	LinearDamping  float64
	AngularDamping float64
	Material       *Material
}

// Body is a box-shaped rigid body owned by a World. Callers command it
// through setters; the world integrates it in Step.
type Body struct {
	id              int
	invMass         float64
	position        mgl64.Vec3
	velocity        mgl64.Vec3
	angularVelocity mgl64.Vec3
	orientation     mgl64.Quat
	halfExtents     mgl64.Vec3
	linearFactor    mgl64.Vec3
	linearDamping   float64
	angularDamping  float64
	material        *Material
}

func newBody(id int, def BodyDef) *Body {
	b := &Body{
		id:             id,
		position:       def.Position,
		orientation:    mgl64.QuatIdent(),
		halfExtents:    def.HalfExtents,
		linearFactor:   def.LinearFactor,
		linearDamping:  clamp01(def.LinearDamping),
		angularDamping: clamp01(def.AngularDamping),
		material:       def.Material,
	}
	if def.Mass > 0 {
		b.invMass = 1 / def.Mass
	}
	if b.linearFactor == (mgl64.Vec3{}) {
		b.linearFactor = mgl64.Vec3{1, 1, 1}
	}
	if b.halfExtents == (mgl64.Vec3{}) {
		b.halfExtents = mgl64.Vec3{0.5, 0.5, 0.5}
	}
	return b
}

func (b *Body) ID() int { return b.id }

func (b *Body) IsStatic() bool { return b.invMass == 0 }

func (b *Body) Position() mgl64.Vec3 { return b.position }

func (b *Body) SetPosition(p mgl64.Vec3) { b.position = p }

func (b *Body) Velocity() mgl64.Vec3 { return b.velocity }

func (b *Body) SetVelocity(v mgl64.Vec3) { b.velocity = v }

func (b *Body) AngularVelocity() mgl64.Vec3 { return b.angularVelocity }

func (b *Body) SetAngularVelocity(w mgl64.Vec3) { b.angularVelocity = w }

func (b *Body) Orientation() mgl64.Quat { return b.orientation }

func (b *Body) SetOrientation(q mgl64.Quat) { b.orientation = q.Normalize() }

func (b *Body) HalfExtents() mgl64.Vec3 { return b.halfExtents }

func (b *Body) Material() *Material { return b.material }

func (b *Body) AABB() AABB { return BoxAABB(b.position, b.halfExtents) }

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
