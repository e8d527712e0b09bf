// Package scene holds the visual side of the simulation: meshes, camera
// and lights. Renderers read it through Snapshot.
package scene

import (
	"fmt"
	"image/color"
	"math"
	"sync"

	"github.com/elliotchance/orderedmap/v2"
	"github.com/go-gl/mathgl/mgl64"
)

type GeometryKind string

const (
	GeometryBox   GeometryKind = "box"
	GeometryPlane GeometryKind = "plane"
)

type Geometry struct {
	Kind GeometryKind
	// Size is the full extent along x, y and z. Planes ignore z.
	Size mgl64.Vec3
}

type Mesh struct {
	id          string
	geometry    Geometry
	color       color.RGBA
	position    mgl64.Vec3
	orientation mgl64.Quat
}

func NewMesh(id string, geometry Geometry, c color.RGBA) *Mesh {
	return &Mesh{
		id:          id,
		geometry:    geometry,
		color:       c,
		orientation: mgl64.QuatIdent(),
	}
}

func (m *Mesh) ID() string { return m.id }

// SetPose overwrites position and orientation.
func (m *Mesh) SetPose(pos mgl64.Vec3, q mgl64.Quat) {
	m.position = pos
	m.orientation = q
}

func (m *Mesh) Position() mgl64.Vec3 { return m.position }

func (m *Mesh) Orientation() mgl64.Quat { return m.orientation }

type Camera struct {
	FOV      float64
	Aspect   float64
	Near     float64
	Far      float64
	Position mgl64.Vec3
	// Rotation is Euler XYZ in radians.
	Rotation mgl64.Vec3
}

// NewPerspectiveCamera mirrors the usual fov/aspect/near/far constructor.
func NewPerspectiveCamera(fov, aspect, near, far float64) *Camera {
	return &Camera{FOV: fov, Aspect: aspect, Near: near, Far: far}
}

// Projection returns the perspective matrix for the camera.
func (c Camera) Projection() mgl64.Mat4 {
	return mgl64.Perspective(mgl64.DegToRad(c.FOV), c.Aspect, c.Near, c.Far)
}

// View returns the world-to-camera matrix.
func (c Camera) View() mgl64.Mat4 {
	model := mgl64.Translate3D(c.Position.X(), c.Position.Y(), c.Position.Z()).
		Mul4(mgl64.HomogRotate3DX(c.Rotation.X())).
		Mul4(mgl64.HomogRotate3DY(c.Rotation.Y())).
		Mul4(mgl64.HomogRotate3DZ(c.Rotation.Z()))
	return model.Inv()
}

// Project maps a world point to normalized device coordinates. ok is
// false for points behind the camera.
func (c Camera) Project(p mgl64.Vec3) (x, y float64, ok bool) {
	clip := c.Projection().Mul4(c.View()).Mul4x1(p.Vec4(1))
	if clip.W() <= 0 {
		return 0, 0, false
	}
	return clip.X() / clip.W(), clip.Y() / clip.W(), true
}

type LightKind string

const (
	LightAmbient     LightKind = "ambient"
	LightDirectional LightKind = "directional"
	LightSpot        LightKind = "spot"
	LightPoint       LightKind = "point"
)

type Light struct {
	Kind       LightKind
	Color      color.RGBA
	Intensity  float64
	Position   mgl64.Vec3
	CastShadow bool
}

// Scene is the scene graph. Mesh poses are only written on the loop
// goroutine; the lock covers membership, lights and camera.
type Scene struct {
	mu     sync.Mutex
	meshes *orderedmap.OrderedMap[string, *Mesh]
	lights []Light
	camera *Camera
}

func New() *Scene {
	return &Scene{meshes: orderedmap.NewOrderedMap[string, *Mesh]()}
}

func (s *Scene) Add(m *Mesh) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.meshes.Get(m.id); ok {
		return fmt.Errorf("mesh %s already in scene", m.id)
	}
	s.meshes.Set(m.id, m)
	return nil
}

func (s *Scene) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.meshes.Delete(id)
}

func (s *Scene) AddLight(l Light) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lights = append(s.lights, l)
}

func (s *Scene) SetCamera(c *Camera) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.camera = c
}

func (s *Scene) Camera() *Camera {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.camera
}

// MeshState is a value copy of a mesh at snapshot time.
type MeshState struct {
	ID          string
	Geometry    Geometry
	Color       color.RGBA
	Position    mgl64.Vec3
	Orientation mgl64.Quat
}

// Yaw returns the rotation about the z axis in radians.
func (m MeshState) Yaw() float64 {
	forward := m.Orientation.Rotate(mgl64.Vec3{1, 0, 0})
	return math.Atan2(forward.Y(), forward.X())
}

type Snapshot struct {
	Meshes []MeshState
	Lights []Light
	Camera Camera
}

func (s *Scene) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		Meshes: make([]MeshState, 0, s.meshes.Len()),
		Lights: append([]Light(nil), s.lights...),
	}
	if s.camera != nil {
		snap.Camera = *s.camera
	}
	for el := s.meshes.Front(); el != nil; el = el.Next() {
		m := el.Value
		snap.Meshes = append(snap.Meshes, MeshState{
			ID:          m.id,
			Geometry:    m.geometry,
			Color:       m.color,
			Position:    m.position,
			Orientation: m.orientation,
		})
	}
	return snap
}
