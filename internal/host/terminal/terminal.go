// Package terminal feeds keyboard input from a raw-mode terminal into the
// simulation loop.
//
// Terminals report key presses but never releases. A pressed key is held
// for PulseDuration and extended by auto-repeat, then released.
package terminal

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/Versifine/critter/internal/input"
	"github.com/Versifine/critter/internal/sim"
	"golang.org/x/term"
)

const (
	defaultPulseDuration = 180 * time.Millisecond
	defaultEscapeTimeout = 25 * time.Millisecond

	byteCtrlC  = 3
	byteEscape = 27
)

type Options struct {
	PulseDuration time.Duration
	// EscapeTimeout is how long to wait after ESC for the rest of an arrow
	// sequence before treating it as a lone Escape.
	EscapeTimeout time.Duration
	// Out receives the "\r\n" printed when raw mode is restored.
	Out io.Writer
}

type Host struct {
	in     io.Reader
	events chan<- sim.KeyEvent
	opts   Options

	mu        sync.Mutex
	deadlines map[input.Code]time.Time
}

func New(in io.Reader, events chan<- sim.KeyEvent, opts Options) *Host {
	if opts.PulseDuration <= 0 {
		opts.PulseDuration = defaultPulseDuration
	}
	if opts.EscapeTimeout <= 0 {
		opts.EscapeTimeout = defaultEscapeTimeout
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	return &Host{
		in:        in,
		events:    events,
		opts:      opts,
		deadlines: make(map[input.Code]time.Time),
	}
}

// Run reads keys until ctx is done or input ends. q or Ctrl-C calls
// cancel and returns.
func (h *Host) Run(ctx context.Context, cancel context.CancelFunc) error {
	if f, ok := h.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fd := int(f.Fd())
		oldState, err := term.MakeRaw(fd)
		if err != nil {
			return fmt.Errorf("set terminal raw mode: %w", err)
		}
		defer func() {
			_ = term.Restore(fd, oldState)
			fmt.Fprint(h.opts.Out, "\r\n")
		}()
	}
	slog.Info("Terminal host started", "pulse", h.opts.PulseDuration)

	runCtx, stop := context.WithCancel(ctx)
	defer stop()
	go h.releaseLoop(runCtx)

	bytes := make(chan byte, 16)
	readErr := make(chan error, 1)
	go h.readLoop(bytes, readErr)

	for {
		select {
		case <-ctx.Done():
			return nil
		case b, ok := <-bytes:
			if !ok {
				h.releaseExpired(ctx, time.Now().Add(h.opts.PulseDuration))
				if err := <-readErr; err != io.EOF {
					return fmt.Errorf("read terminal input: %w", err)
				}
				slog.Info("Terminal input closed")
				return nil
			}
			if h.handleByte(ctx, b, bytes) {
				slog.Info("Terminal host quit requested")
				cancel()
				return nil
			}
		}
	}
}

func (h *Host) readLoop(out chan<- byte, errc chan<- error) {
	defer close(out)
	buf := make([]byte, 1)
	for {
		n, err := h.in.Read(buf)
		if n == 1 {
			out <- buf[0]
		}
		if err != nil {
			errc <- err
			return
		}
	}
}

func (h *Host) releaseLoop(ctx context.Context) {
	ticker := time.NewTicker(h.opts.PulseDuration / 4)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			h.releaseExpired(ctx, now)
		}
	}
}

// handleByte reports true when the byte asks to quit.
func (h *Host) handleByte(ctx context.Context, b byte, rest <-chan byte) bool {
	switch {
	case b == byteCtrlC || b == 'q' || b == 'Q':
		return true
	case b == byteEscape:
		next, ok := h.next(rest)
		if !ok {
			h.tap(ctx, input.CodeEscape)
			return false
		}
		var final byte
		switch next {
		case '[':
			final, ok = h.csiFinal(rest)
		case 'O':
			final, ok = h.next(rest)
		default:
			h.tap(ctx, input.CodeEscape)
			return h.handleByte(ctx, next, rest)
		}
		if !ok {
			return false
		}
		if code, ok := arrowCode(final); ok {
			h.press(ctx, code)
		} else {
			slog.Debug("Ignored escape sequence", "final", final)
		}
	case b == ' ':
		h.press(ctx, input.CodeSpace)
	case b >= 'a' && b <= 'z':
		h.press(ctx, input.Code(b-'a'+'A'))
	case b >= 'A' && b <= 'Z', b >= '0' && b <= '9':
		h.press(ctx, input.Code(b))
	default:
		slog.Debug("Ignored terminal byte", "byte", b)
	}
	return false
}

func (h *Host) next(rest <-chan byte) (byte, bool) {
	select {
	case b, ok := <-rest:
		return b, ok
	case <-time.After(h.opts.EscapeTimeout):
		return 0, false
	}
}

// csiFinal skips the parameter and intermediate bytes of a CSI sequence
// and returns its final byte, so modified arrows like ESC[1;5C still
// decode as arrows.
func (h *Host) csiFinal(rest <-chan byte) (byte, bool) {
	for {
		b, ok := h.next(rest)
		if !ok {
			return 0, false
		}
		if b >= 0x40 && b <= 0x7e {
			return b, true
		}
		if b < 0x20 || b > 0x3f {
			// Not part of a CSI sequence; drop what was read so far.
			return 0, false
		}
	}
}

func arrowCode(b byte) (input.Code, bool) {
	switch b {
	case 'A':
		return input.CodeArrowUp, true
	case 'B':
		return input.CodeArrowDown, true
	case 'C':
		return input.CodeArrowRight, true
	case 'D':
		return input.CodeArrowLeft, true
	}
	return 0, false
}

// press sends a key-down and pushes the code's release deadline out.
// Auto-repeat sends further key-downs, as browsers do.
func (h *Host) press(ctx context.Context, code input.Code) {
	h.mu.Lock()
	h.deadlines[code] = time.Now().Add(h.opts.PulseDuration)
	h.mu.Unlock()
	h.send(ctx, sim.KeyEvent{Code: code, Down: true})
}

// tap sends a down and an immediate up.
func (h *Host) tap(ctx context.Context, code input.Code) {
	h.send(ctx, sim.KeyEvent{Code: code, Down: true})
	h.send(ctx, sim.KeyEvent{Code: code, Down: false})
}

func (h *Host) releaseExpired(ctx context.Context, now time.Time) {
	h.mu.Lock()
	var expired []int
	for code, deadline := range h.deadlines {
		if !now.Before(deadline) {
			expired = append(expired, int(code))
			delete(h.deadlines, code)
		}
	}
	h.mu.Unlock()

	sort.Ints(expired)
	for _, code := range expired {
		h.send(ctx, sim.KeyEvent{Code: input.Code(code), Down: false})
	}
}

// Held returns the codes currently inside their pulse window.
func (h *Host) Held() []input.Code {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]input.Code, 0, len(h.deadlines))
	for code := range h.deadlines {
		out = append(out, code)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (h *Host) send(ctx context.Context, ev sim.KeyEvent) {
	select {
	case h.events <- ev:
	case <-ctx.Done():
	}
}
