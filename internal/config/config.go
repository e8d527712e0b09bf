package config

import (
	"fmt"
	"image/color"
	"os"
	"time"

	"github.com/Versifine/critter/internal/entity"
	"github.com/Versifine/critter/internal/input"
	"github.com/Versifine/critter/internal/physics"
	"github.com/Versifine/critter/internal/render"
	"github.com/Versifine/critter/internal/scene"
	"github.com/Versifine/critter/internal/sim"
	"github.com/Versifine/critter/internal/stage"
	"github.com/go-gl/mathgl/mgl64"
	"gopkg.in/yaml.v3"
)

const (
	HostTerminal = "terminal"
	HostWindow   = "window"
	HostWeb      = "web"
)

type Config struct {
	Host       string           `yaml:"host"`
	Logging    LoggingConfig    `yaml:"logging"`
	Simulation SimulationConfig `yaml:"simulation"`
	Critter    CritterConfig    `yaml:"critter"`
	Physics    PhysicsConfig    `yaml:"physics"`
	Scene      SceneConfig      `yaml:"scene"`
	// Keys overrides the default key map entirely when non-empty.
	Keys     map[int]string `yaml:"keys"`
	Terminal TerminalConfig `yaml:"terminal"`
	Window   WindowConfig   `yaml:"window"`
	Web      WebConfig      `yaml:"web"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Sentry   SentryConfig   `yaml:"sentry"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

type SimulationConfig struct {
	// Timestep is the fixed physics step in seconds.
	Timestep          float64 `yaml:"timestep"`
	FrameRate         int     `yaml:"frame_rate"`
	RenderWhilePaused bool    `yaml:"render_while_paused"`
	StatsEvery        int     `yaml:"stats_every"`
}

type CritterConfig struct {
	MaxSpeed       float64    `yaml:"max_speed"`
	Retention      float64    `yaml:"retention"`
	JumpSpeed      float64    `yaml:"jump_speed"`
	ZapSpeed       float64    `yaml:"zap_speed"`
	VelocityMode   string     `yaml:"velocity_mode"`
	Mass           float64    `yaml:"mass"`
	Size           float64    `yaml:"size"`
	LinearFactor   [3]float64 `yaml:"linear_factor"`
	AngularDamping float64    `yaml:"angular_damping"`
	Color          uint32     `yaml:"color"`
}

type PhysicsConfig struct {
	Gravity     [3]float64 `yaml:"gravity"`
	Iterations  int        `yaml:"iterations"`
	Friction    float64    `yaml:"friction"`
	Restitution float64    `yaml:"restitution"`
}

type SpawnConfig struct {
	Position    [3]float64   `yaml:"position"`
	Controlled  bool         `yaml:"controlled"`
	Patrol      [][2]float64 `yaml:"patrol"`
	PatrolPause float64      `yaml:"patrol_pause"`
}

type SceneConfig struct {
	GroundSize     float64       `yaml:"ground_size"`
	GroundColor    uint32        `yaml:"ground_color"`
	CameraFOV      float64       `yaml:"camera_fov"`
	CameraPosition [3]float64    `yaml:"camera_position"`
	CameraRotation [3]float64    `yaml:"camera_rotation"`
	Critters       []SpawnConfig `yaml:"critters"`
	SpawnPoint     [3]float64    `yaml:"spawn_point"`
}

type TerminalConfig struct {
	Width         int           `yaml:"width"`
	Height        int           `yaml:"height"`
	Scale         float64       `yaml:"scale"`
	Projection    string        `yaml:"projection"`
	PulseDuration time.Duration `yaml:"pulse_duration"`
}

type WindowConfig struct {
	Width  int     `yaml:"width"`
	Height int     `yaml:"height"`
	Title  string  `yaml:"title"`
	Scale  float64 `yaml:"scale"`
}

type WebConfig struct {
	Listen string `yaml:"listen"`
	// Enabled serves the browser viewer alongside the terminal or window host.
	Enabled bool `yaml:"enabled"`
}

type MetricsConfig struct {
	StatsviewAddr string `yaml:"statsview_addr"`
}

type SentryConfig struct {
	DSN         string `yaml:"dsn"`
	Environment string `yaml:"environment"`
}

// Default mirrors scene1 of the original playground.
func Default() Config {
	return Config{
		Host: HostTerminal,
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Simulation: SimulationConfig{
			Timestep:   sim.DefaultTimestep,
			FrameRate:  60,
			StatsEvery: 600,
		},
		Critter: CritterConfig{
			MaxSpeed:       6,
			Retention:      0.5,
			JumpSpeed:      5,
			ZapSpeed:       90,
			VelocityMode:   string(entity.VelocityAdditive),
			Mass:           100,
			Size:           2,
			LinearFactor:   [3]float64{0.99, 0.99, 1},
			AngularDamping: 0.1,
			Color:          0x99eeff,
		},
		Physics: PhysicsConfig{
			Gravity:     [3]float64{0, 0, physics.DefaultGravityZ},
			Iterations:  physics.DefaultIterations,
			Friction:    0,
			Restitution: 0.2,
		},
		Scene: SceneConfig{
			GroundSize:     10,
			GroundColor:    0x005500,
			CameraFOV:      75,
			CameraPosition: [3]float64{0, -5, 15},
			CameraRotation: [3]float64{0.2, 0, 0},
			Critters: []SpawnConfig{
				{Position: [3]float64{0, 0, 1}, Controlled: true},
				{
					Position:    [3]float64{3, 3, 3},
					Patrol:      [][2]float64{{3, -3}, {-3, -3}, {-3, 3}, {3, 3}},
					PatrolPause: 1,
				},
			},
			SpawnPoint: [3]float64{-3, 3, 3},
		},
		Terminal: TerminalConfig{
			Width:         60,
			Height:        20,
			Scale:         1,
			Projection:    string(render.ProjectionTop),
			PulseDuration: 180 * time.Millisecond,
		},
		Window: WindowConfig{
			Width:  960,
			Height: 540,
			Title:  "critter",
			Scale:  40,
		},
		Web: WebConfig{
			Listen: "127.0.0.1:8081",
		},
	}
}

// Load reads path over Default(), so keys missing from the file keep their
// default values.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	err = yaml.Unmarshal(data, &cfg)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Host {
	case HostTerminal, HostWindow, HostWeb:
	default:
		return fmt.Errorf("unknown host %q", c.Host)
	}
	if c.Simulation.Timestep <= 0 {
		return fmt.Errorf("simulation.timestep must be positive")
	}
	if c.Simulation.FrameRate <= 0 {
		return fmt.Errorf("simulation.frame_rate must be positive")
	}
	if err := c.CritterParams().Validate(); err != nil {
		return fmt.Errorf("critter: %w", err)
	}
	if c.Critter.Mass <= 0 || c.Critter.Size <= 0 {
		return fmt.Errorf("critter.mass and critter.size must be positive")
	}
	for i, sc := range c.Scene.Critters {
		if sc.PatrolPause < 0 {
			return fmt.Errorf("scene.critters[%d].patrol_pause must not be negative", i)
		}
		if sc.Controlled && len(sc.Patrol) > 0 {
			return fmt.Errorf("scene.critters[%d]: a controlled critter cannot patrol", i)
		}
	}
	if c.Physics.Iterations <= 0 {
		return fmt.Errorf("physics.iterations must be positive")
	}
	switch render.Projection(c.Terminal.Projection) {
	case render.ProjectionTop, render.ProjectionCamera:
	default:
		return fmt.Errorf("unknown terminal.projection %q", c.Terminal.Projection)
	}
	if _, err := c.KeyMap(); err != nil {
		return err
	}
	return nil
}

func (c *Config) CritterParams() entity.Params {
	return entity.Params{
		MaxSpeed:     c.Critter.MaxSpeed,
		Retention:    c.Critter.Retention,
		JumpSpeed:    c.Critter.JumpSpeed,
		ZapSpeed:     c.Critter.ZapSpeed,
		VelocityMode: entity.VelocityMode(c.Critter.VelocityMode),
	}
}

// KeyMap returns the configured key table, or the default one when the
// keys section is empty.
func (c *Config) KeyMap() (input.KeyMap, error) {
	if len(c.Keys) == 0 {
		return input.DefaultKeyMap(), nil
	}
	keys := make(input.KeyMap, len(c.Keys))
	for code, action := range c.Keys {
		keys[input.Code(code)] = input.Action(action)
	}
	if err := keys.Validate(); err != nil {
		return nil, fmt.Errorf("keys: %w", err)
	}
	return keys, nil
}

func (c *Config) LoopOptions() sim.Options {
	return sim.Options{
		Timestep:          c.Simulation.Timestep,
		FrameInterval:     time.Second / time.Duration(c.Simulation.FrameRate),
		RenderWhilePaused: c.Simulation.RenderWhilePaused,
		StatsEvery:        c.Simulation.StatsEvery,
	}
}

func (c *Config) StageConfig(aspect float64) stage.Config {
	spawns := make([]stage.CritterSpec, 0, len(c.Scene.Critters))
	for _, s := range c.Scene.Critters {
		spec := stage.CritterSpec{
			Position:    mgl64.Vec3(s.Position),
			Controlled:  s.Controlled,
			PatrolPause: s.PatrolPause,
		}
		for _, wp := range s.Patrol {
			spec.Patrol = append(spec.Patrol, mgl64.Vec2(wp))
		}
		spawns = append(spawns, spec)
	}

	sc := stage.DefaultConfig()
	sc.Physics = physics.Config{
		Gravity:            mgl64.Vec3(c.Physics.Gravity),
		Iterations:         c.Physics.Iterations,
		DefaultFriction:    physics.DefaultFriction,
		DefaultRestitution: physics.DefaultRestitution,
	}
	sc.Params = c.CritterParams()
	sc.Mass = c.Critter.Mass
	sc.Size = c.Critter.Size
	sc.LinearFactor = mgl64.Vec3(c.Critter.LinearFactor)
	sc.AngularDamping = c.Critter.AngularDamping
	sc.Color = rgb(c.Critter.Color)
	sc.Friction = c.Physics.Friction
	sc.Restitution = c.Physics.Restitution
	sc.GroundSize = c.Scene.GroundSize
	sc.GroundColor = rgb(c.Scene.GroundColor)
	sc.Camera = scene.Camera{
		FOV:      c.Scene.CameraFOV,
		Aspect:   aspect,
		Near:     sc.Camera.Near,
		Far:      sc.Camera.Far,
		Position: mgl64.Vec3(c.Scene.CameraPosition),
		Rotation: mgl64.Vec3(c.Scene.CameraRotation),
	}
	sc.Critters = spawns
	sc.SpawnPoint = mgl64.Vec3(c.Scene.SpawnPoint)
	return sc
}

func rgb(v uint32) color.RGBA {
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}
}
