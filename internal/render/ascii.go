package render

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/Versifine/critter/internal/input"
	"github.com/Versifine/critter/internal/scene"
	"github.com/go-gl/mathgl/mgl64"
)

const (
	defaultWidth  = 60
	defaultHeight = 20
	defaultScale  = 1.0
	planeSample   = 0.25

	glyphEmpty = ' '
	glyphPlane = '.'
)

// Projection selects how world points land on the character grid.
type Projection string

const (
	// ProjectionTop looks straight down the z axis, origin at the centre.
	ProjectionTop Projection = "top"
	// ProjectionCamera uses the scene camera's perspective transform.
	ProjectionCamera Projection = "camera"
)

// SceneSource is where renderers read the frame from.
type SceneSource interface {
	Snapshot() scene.Snapshot
}

// Status is the HUD content for one frame.
type Status struct {
	Playing bool
	Held    []input.Action
	Frame   uint64
}

type StatusFunc func() Status

type ASCIIOptions struct {
	Width  int
	Height int
	// Scale is grid rows per world unit. Columns use twice that since
	// terminal cells are about twice as tall as they are wide.
	Scale      float64
	Projection Projection
	// Home moves the cursor to the top-left before each frame.
	Home bool
	// LineEnd defaults to "\n". Raw-mode terminals need "\r\n".
	LineEnd string
}

// ASCII draws the scene onto a character grid followed by a HUD line.
type ASCII struct {
	out    io.Writer
	src    SceneSource
	status StatusFunc
	opts   ASCIIOptions
	grid   [][]byte
	buf    bytes.Buffer
}

func NewASCII(out io.Writer, src SceneSource, status StatusFunc, opts ASCIIOptions) *ASCII {
	if opts.Width <= 0 {
		opts.Width = defaultWidth
	}
	if opts.Height <= 0 {
		opts.Height = defaultHeight
	}
	if opts.Scale <= 0 {
		opts.Scale = defaultScale
	}
	if opts.Projection == "" {
		opts.Projection = ProjectionTop
	}
	if opts.LineEnd == "" {
		opts.LineEnd = "\n"
	}
	grid := make([][]byte, opts.Height)
	for i := range grid {
		grid[i] = make([]byte, opts.Width)
	}
	return &ASCII{out: out, src: src, status: status, opts: opts, grid: grid}
}

func (a *ASCII) Render() error {
	snap := a.src.Snapshot()
	a.clear()

	for _, m := range snap.Meshes {
		if m.Geometry.Kind == scene.GeometryPlane {
			a.drawPlane(snap.Camera, m)
		}
	}
	for _, m := range snap.Meshes {
		if m.Geometry.Kind != scene.GeometryPlane {
			a.plot(snap.Camera, m.Position, facingGlyph(m.Yaw()))
		}
	}

	a.buf.Reset()
	if a.opts.Home {
		a.buf.WriteString("\x1b[H")
	}
	for _, row := range a.grid {
		a.buf.Write(row)
		a.buf.WriteString(a.opts.LineEnd)
	}
	a.buf.WriteString(a.hud(len(snap.Meshes)))
	a.buf.WriteString(a.opts.LineEnd)

	if _, err := a.out.Write(a.buf.Bytes()); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

func (a *ASCII) clear() {
	for _, row := range a.grid {
		for i := range row {
			row[i] = glyphEmpty
		}
	}
}

func (a *ASCII) drawPlane(cam scene.Camera, m scene.MeshState) {
	hx, hy := m.Geometry.Size.X()/2, m.Geometry.Size.Y()/2
	for x := -hx; x <= hx; x += planeSample {
		for y := -hy; y <= hy; y += planeSample {
			p := m.Position.Add(m.Orientation.Rotate(mgl64.Vec3{x, y, 0}))
			a.plot(cam, p, glyphPlane)
		}
	}
}

func (a *ASCII) plot(cam scene.Camera, p mgl64.Vec3, glyph byte) {
	col, row, ok := a.cell(cam, p)
	if !ok {
		return
	}
	a.grid[row][col] = glyph
}

// cell maps a world point to a grid cell. ok is false when the point falls
// off the grid.
func (a *ASCII) cell(cam scene.Camera, p mgl64.Vec3) (col, row int, ok bool) {
	w, h := a.opts.Width, a.opts.Height
	switch a.opts.Projection {
	case ProjectionCamera:
		x, y, visible := cam.Project(p)
		if !visible || x < -1 || x > 1 || y < -1 || y > 1 {
			return 0, 0, false
		}
		col = int(math.Floor((x + 1) / 2 * float64(w)))
		row = int(math.Floor((1 - y) / 2 * float64(h)))
	default:
		col = w/2 + int(math.Round(p.X()*a.opts.Scale*2))
		row = h/2 - int(math.Round(p.Y()*a.opts.Scale))
	}
	if col < 0 || col >= w || row < 0 || row >= h {
		return 0, 0, false
	}
	return col, row, true
}

func (a *ASCII) hud(meshes int) string {
	if a.status == nil {
		return fmt.Sprintf("meshes:%d", meshes)
	}
	st := a.status()
	state := "PLAYING"
	if !st.Playing {
		state = "PAUSED"
	}
	held := make([]string, 0, len(st.Held))
	for _, act := range st.Held {
		held = append(held, string(act))
	}
	heldLabel := "-"
	if len(held) > 0 {
		heldLabel = strings.Join(held, ",")
	}
	return fmt.Sprintf("[%s] held:%s frame:%d meshes:%d", state, heldLabel, st.Frame, meshes)
}

// facingGlyph picks an arrow for the nearest of the four facings.
func facingGlyph(yaw float64) byte {
	quarter := int(math.Round(yaw/(math.Pi/2))) % 4
	if quarter < 0 {
		quarter += 4
	}
	return ">^<v"[quarter]
}
