// Package stage assembles the physics world, the scene and the entity
// registry for the box critter playground.
package stage

import (
	"fmt"
	"image/color"
	"log/slog"

	"github.com/Versifine/critter/internal/ai"
	"github.com/Versifine/critter/internal/entity"
	"github.com/Versifine/critter/internal/event"
	"github.com/Versifine/critter/internal/input"
	"github.com/Versifine/critter/internal/physics"
	"github.com/Versifine/critter/internal/scene"
	"github.com/Versifine/critter/internal/sim"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
)

const (
	GroundMeshID = "ground"
	kindCritter  = "critter"
)

type CritterSpec struct {
	Position   mgl64.Vec3
	Controlled bool
	// Patrol, when set on an uncontrolled critter, hands it to a behavior
	// tree that waits PatrolPause seconds and then walks the waypoints.
	Patrol      []mgl64.Vec2
	PatrolPause float64
}

type Config struct {
	Physics physics.Config
	Params  entity.Params

	Mass           float64
	Size           float64
	LinearFactor   mgl64.Vec3
	AngularDamping float64
	Color          color.RGBA

	// Friction and Restitution apply between critters and the ground.
	Friction    float64
	Restitution float64

	GroundSize  float64
	GroundColor color.RGBA

	Camera   scene.Camera
	Lights   []scene.Light
	Critters []CritterSpec
	// SpawnPoint is where the spawn key drops new critters.
	SpawnPoint mgl64.Vec3
}

// DefaultConfig is scene1: a 10x10 ground, two critters, a spot light
// and an ambient light.
func DefaultConfig() Config {
	return Config{
		Physics:        physics.DefaultConfig(),
		Params:         entity.DefaultParams(),
		Mass:           100,
		Size:           2,
		LinearFactor:   mgl64.Vec3{0.99, 0.99, 1},
		AngularDamping: 0.1,
		Color:          color.RGBA{R: 0x99, G: 0xee, B: 0xff, A: 0xff},
		Friction:       0,
		Restitution:    0.2,
		GroundSize:     10,
		GroundColor:    color.RGBA{G: 0x55, A: 0xff},
		Camera: scene.Camera{
			FOV:      75,
			Aspect:   16.0 / 9.0,
			Near:     1,
			Far:      100,
			Position: mgl64.Vec3{0, -5, 15},
			Rotation: mgl64.Vec3{0.2, 0, 0},
		},
		Lights: []scene.Light{
			{Kind: scene.LightAmbient, Color: color.RGBA{0x40, 0x40, 0x40, 0xff}, Intensity: 1},
			{Kind: scene.LightSpot, Color: color.RGBA{0xff, 0xff, 0xff, 0xff}, Intensity: 1, Position: mgl64.Vec3{100, 100, 100}, CastShadow: true},
		},
		Critters: []CritterSpec{
			{Position: mgl64.Vec3{0, 0, 1}, Controlled: true},
			{
				Position:    mgl64.Vec3{3, 3, 3},
				Patrol:      []mgl64.Vec2{{3, -3}, {-3, -3}, {-3, 3}, {3, 3}},
				PatrolPause: 1,
			},
		},
		SpawnPoint: mgl64.Vec3{-3, 3, 3},
	}
}

// Stage owns everything a loop needs besides the renderer.
type Stage struct {
	cfg      Config
	bus      *event.Bus
	world    *physics.World
	scene    *scene.Scene
	registry *sim.Registry
	material *physics.Material
	bodies   map[string]*physics.Body
	critters []*entity.Critter
	player   *entity.Critter
}

// Build creates the world and scene and spawns cfg.Critters in order.
// bus may be nil.
func Build(cfg Config, bus *event.Bus) (*Stage, error) {
	if err := cfg.Params.Validate(); err != nil {
		return nil, fmt.Errorf("critter params: %w", err)
	}
	if cfg.Mass <= 0 || cfg.Size <= 0 {
		return nil, fmt.Errorf("critter mass and size must be positive")
	}

	s := &Stage{
		cfg:      cfg,
		bus:      bus,
		world:    physics.NewWorld(cfg.Physics),
		scene:    scene.New(),
		registry: sim.NewRegistry(),
		material: &physics.Material{Name: "boxcritter"},
		bodies:   make(map[string]*physics.Body),
	}

	concrete := &physics.Material{Name: "concrete"}
	s.world.AddGround(concrete)
	s.world.AddContactMaterial(physics.ContactMaterial{
		A:           concrete,
		B:           s.material,
		Friction:    cfg.Friction,
		Restitution: cfg.Restitution,
	})

	if cfg.GroundSize > 0 {
		ground := scene.NewMesh(GroundMeshID, scene.Geometry{
			Kind: scene.GeometryPlane,
			Size: mgl64.Vec3{cfg.GroundSize, cfg.GroundSize, 0},
		}, cfg.GroundColor)
		if err := s.scene.Add(ground); err != nil {
			return nil, err
		}
	}
	for _, l := range cfg.Lights {
		s.scene.AddLight(l)
	}
	cam := cfg.Camera
	s.scene.SetCamera(&cam)

	for i, spec := range cfg.Critters {
		if _, err := s.Spawn(spec); err != nil {
			return nil, fmt.Errorf("spawn critter %d: %w", i, err)
		}
	}
	slog.Info("Stage built", "critters", len(s.critters), "ground", cfg.GroundSize)
	return s, nil
}

// Spawn adds a critter body, mesh and entity. The first controlled
// critter becomes the player.
func (s *Stage) Spawn(spec CritterSpec) (*entity.Critter, error) {
	id := uuid.NewString()
	half := s.cfg.Size / 2
	body := s.world.AddBody(physics.BodyDef{
		Mass:           s.cfg.Mass,
		Position:       spec.Position,
		HalfExtents:    mgl64.Vec3{half, half, half},
		LinearFactor:   s.cfg.LinearFactor,
		AngularDamping: s.cfg.AngularDamping,
		Material:       s.material,
	})
	mesh := scene.NewMesh(id, scene.Geometry{
		Kind: scene.GeometryBox,
		Size: mgl64.Vec3{s.cfg.Size, s.cfg.Size, s.cfg.Size},
	}, s.cfg.Color)

	c := entity.NewCritter(id, body, mesh, s.cfg.Params)
	c.SetControlledByInputs(spec.Controlled)
	if len(spec.Patrol) > 0 && !spec.Controlled {
		c.SetDriver(ai.NewPilot(ai.Patrol("patrol", spec.PatrolPause, spec.Patrol...)))
	}
	c.UpdateView()

	if err := s.scene.Add(mesh); err != nil {
		s.world.RemoveBody(body)
		return nil, err
	}
	if err := s.registry.Add(c); err != nil {
		s.world.RemoveBody(body)
		s.scene.Remove(id)
		return nil, err
	}

	s.bodies[id] = body
	s.critters = append(s.critters, c)
	if spec.Controlled && s.player == nil {
		s.player = c
	}
	slog.Debug("Critter spawned", "id", id, "position", spec.Position, "controlled", spec.Controlled, "patrol", len(spec.Patrol))
	s.bus.Publish(event.EventEntitySpawned, event.EntityEvent{EntityID: id, Kind: kindCritter, Controlled: spec.Controlled})
	return c, nil
}

// Kill soft-deletes a critter. It stays in the world and the scene.
func (s *Stage) Kill(id string) bool {
	e, ok := s.registry.Get(id)
	if !ok {
		return false
	}
	c, ok := e.(*entity.Critter)
	if !ok || !c.IsAlive() {
		return false
	}
	c.Kill()
	slog.Info("Critter killed", "id", id)
	s.bus.Publish(event.EventEntityKilled, event.EntityEvent{EntityID: id, Kind: kindCritter, Controlled: c.ControlledByInputs()})
	return true
}

// KillNewest kills the most recently spawned live critter other than the
// player.
func (s *Stage) KillNewest() (string, bool) {
	for i := len(s.critters) - 1; i >= 0; i-- {
		c := s.critters[i]
		if c == s.player || !c.IsAlive() {
			continue
		}
		return c.ID(), s.Kill(c.ID())
	}
	return "", false
}

// BindKeys routes the spawn and kill commands of t to the stage. The
// tracker runs commands on the loop goroutine, between frames.
func (s *Stage) BindKeys(t *input.Tracker) {
	t.SetCommand(input.ActionSpawn, func() {
		if _, err := s.Spawn(CritterSpec{Position: s.cfg.SpawnPoint}); err != nil {
			slog.Warn("Failed to spawn critter", "error", err)
		}
	})
	t.SetCommand(input.ActionKill, func() {
		if _, ok := s.KillNewest(); !ok {
			slog.Debug("Nothing to kill")
		}
	})
}

func (s *Stage) World() *physics.World { return s.world }

func (s *Stage) Scene() *scene.Scene { return s.scene }

func (s *Stage) Registry() *sim.Registry { return s.registry }

// Player returns the controlled critter, or nil when none was spawned.
func (s *Stage) Player() *entity.Critter { return s.player }

func (s *Stage) Critters() []*entity.Critter {
	out := make([]*entity.Critter, len(s.critters))
	copy(out, s.critters)
	return out
}

// Body returns the physics body behind a critter id.
func (s *Stage) Body(id string) (*physics.Body, bool) {
	b, ok := s.bodies[id]
	return b, ok
}
