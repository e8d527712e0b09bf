// Package window runs the simulation inside an ebiten desktop window.
// ebiten owns the frame clock: every Update applies the key transitions
// seen since the last one and then runs exactly one loop frame.
package window

import (
	"context"
	"fmt"
	"image/color"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/Versifine/critter/internal/input"
	"github.com/Versifine/critter/internal/render"
	"github.com/Versifine/critter/internal/scene"
	"github.com/Versifine/critter/internal/sim"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/vector"
)

var background = color.RGBA{0x10, 0x10, 0x18, 0xff}

// Loop is the part of sim.Loop the window drives.
type Loop interface {
	Dispatch(ev sim.KeyEvent)
	Drain() int
	Frame(now time.Duration) error
}

// KeySource reports key transitions since the previous Update.
type KeySource interface {
	JustPressed(dst []ebiten.Key) []ebiten.Key
	JustReleased(dst []ebiten.Key) []ebiten.Key
}

type inputKeys struct{}

func (inputKeys) JustPressed(dst []ebiten.Key) []ebiten.Key {
	return inpututil.AppendJustPressedKeys(dst)
}

func (inputKeys) JustReleased(dst []ebiten.Key) []ebiten.Key {
	return inpututil.AppendJustReleasedKeys(dst)
}

type Options struct {
	Width  int
	Height int
	Title  string
	// Scale is screen pixels per world unit.
	Scale     float64
	FrameRate int
}

type Game struct {
	ctx    context.Context
	loop   Loop
	src    render.SceneSource
	status render.StatusFunc
	keys   KeySource
	opts   Options
	start  time.Time

	buf  []ebiten.Key
	snap scene.Snapshot
}

func NewGame(ctx context.Context, loop Loop, src render.SceneSource, status render.StatusFunc, opts Options) *Game {
	if opts.Width <= 0 {
		opts.Width = 960
	}
	if opts.Height <= 0 {
		opts.Height = 540
	}
	if opts.Scale <= 0 {
		opts.Scale = 40
	}
	if opts.FrameRate <= 0 {
		opts.FrameRate = 60
	}
	return &Game{
		ctx:    ctx,
		loop:   loop,
		src:    src,
		status: status,
		keys:   inputKeys{},
		opts:   opts,
		start:  time.Now(),
	}
}

// SetKeySource replaces the ebiten key reader.
func (g *Game) SetKeySource(k KeySource) { g.keys = k }

func (g *Game) Update() error {
	if g.ctx.Err() != nil {
		return ebiten.Termination
	}

	g.buf = g.keys.JustPressed(g.buf[:0])
	for _, k := range g.buf {
		if code, ok := KeyCode(k); ok {
			g.loop.Dispatch(sim.KeyEvent{Code: code, Down: true})
		}
	}
	g.buf = g.keys.JustReleased(g.buf[:0])
	for _, k := range g.buf {
		if code, ok := KeyCode(k); ok {
			g.loop.Dispatch(sim.KeyEvent{Code: code, Down: false})
		}
	}

	g.loop.Drain()
	if err := g.loop.Frame(time.Since(g.start)); err != nil {
		return fmt.Errorf("frame: %w", err)
	}
	g.snap = g.src.Snapshot()
	return nil
}

func (g *Game) Draw(screen *ebiten.Image) {
	screen.Fill(background)
	for _, m := range g.snap.Meshes {
		if m.Geometry.Kind == scene.GeometryPlane {
			x, y, w, h := g.rect(m.Position, m.Geometry.Size)
			vector.DrawFilledRect(screen, x, y, w, h, m.Color, false)
		}
	}
	for _, m := range g.snap.Meshes {
		if m.Geometry.Kind == scene.GeometryPlane {
			continue
		}
		x, y, w, h := g.rect(m.Position, m.Geometry.Size)
		vector.DrawFilledRect(screen, x, y, w, h, m.Color, true)
		cx, cy := x+w/2, y+h/2
		yaw := m.Yaw()
		vector.StrokeLine(screen, cx, cy, cx+float32(math.Cos(yaw))*w/2, cy-float32(math.Sin(yaw))*h/2, 2, color.Black, true)
	}
	if g.status != nil {
		ebitenutil.DebugPrint(screen, HUD(g.status()))
	}
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return g.opts.Width, g.opts.Height
}

// ScreenPoint maps a world position to screen pixels, looking down z with
// the origin at the centre of the window.
func (g *Game) ScreenPoint(p mgl64.Vec3) (float32, float32) {
	x := float64(g.opts.Width)/2 + p.X()*g.opts.Scale
	y := float64(g.opts.Height)/2 - p.Y()*g.opts.Scale
	return float32(x), float32(y)
}

func (g *Game) rect(center, size mgl64.Vec3) (x, y, w, h float32) {
	cx, cy := g.ScreenPoint(center)
	w = float32(size.X() * g.opts.Scale)
	h = float32(size.Y() * g.opts.Scale)
	return cx - w/2, cy - h/2, w, h
}

// Run blocks in ebiten's game loop until the window closes or ctx is done.
func Run(ctx context.Context, g *Game) error {
	ebiten.SetWindowSize(g.opts.Width, g.opts.Height)
	ebiten.SetWindowTitle(g.opts.Title)
	ebiten.SetTPS(g.opts.FrameRate)
	slog.Info("Window host started", "width", g.opts.Width, "height", g.opts.Height, "tps", g.opts.FrameRate)

	err := ebiten.RunGame(g)
	slog.Info("Window host stopped")
	if err != nil && err != ebiten.Termination {
		return fmt.Errorf("run game: %w", err)
	}
	return nil
}

// KeyCode translates an ebiten key into browser keyCode numbering.
func KeyCode(k ebiten.Key) (input.Code, bool) {
	switch k {
	case ebiten.KeySpace:
		return input.CodeSpace, true
	case ebiten.KeyEscape:
		return input.CodeEscape, true
	case ebiten.KeyEnter:
		return 13, true
	case ebiten.KeyArrowUp:
		return input.CodeArrowUp, true
	case ebiten.KeyArrowDown:
		return input.CodeArrowDown, true
	case ebiten.KeyArrowLeft:
		return input.CodeArrowLeft, true
	case ebiten.KeyArrowRight:
		return input.CodeArrowRight, true
	}
	name := k.String()
	if len(name) == 1 && name[0] >= 'A' && name[0] <= 'Z' {
		return input.Code(name[0]), true
	}
	if len(name) == 6 && strings.HasPrefix(name, "Digit") {
		return input.Code(name[5]), true
	}
	return 0, false
}

func HUD(st render.Status) string {
	state := "PLAYING"
	if !st.Playing {
		state = "PAUSED (Esc)"
	}
	held := make([]string, 0, len(st.Held))
	for _, a := range st.Held {
		held = append(held, string(a))
	}
	return fmt.Sprintf("%s  frame %d\nheld: %s", state, st.Frame, strings.Join(held, " "))
}
