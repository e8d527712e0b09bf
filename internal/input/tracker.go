package input

import (
	"log/slog"
	"sort"
)

// Tracker turns raw key transitions into held-action state and
// edge-triggered presses. It is not safe for concurrent use; the
// simulation loop owns it and applies key events between frames.
type Tracker struct {
	keys    KeyMap
	onPause func()

	// held keeps the codes currently down per action, so an action stays
	// held until the last of its keys is released.
	held    map[Action]map[Code]struct{}
	pressed map[Action]bool

	commands   map[Action]func()
	onUnmapped func(Code)
}

func NewTracker(keys KeyMap, onPause func()) *Tracker {
	if keys == nil {
		keys = DefaultKeyMap()
	}
	return &Tracker{
		keys:     keys.Clone(),
		onPause:  onPause,
		held:     make(map[Action]map[Code]struct{}),
		pressed:  make(map[Action]bool),
		commands: make(map[Action]func()),
	}
}

// SetUnmappedHandler installs a callback for key codes missing from the
// key map. The tracker still logs and drops them.
func (t *Tracker) SetUnmappedHandler(fn func(Code)) {
	t.onUnmapped = fn
}

func (t *Tracker) Lookup(code Code) (Action, bool) {
	a, ok := t.keys[code]
	return a, ok
}

// SetCommand binds a to fn. Command actions are never held or pressed;
// fn runs once per physical press, on the first of the action's keys to
// go down.
func (t *Tracker) SetCommand(a Action, fn func()) {
	if fn == nil {
		delete(t.commands, a)
		return
	}
	t.commands[a] = fn
}

func (t *Tracker) OnKeyDown(code Code) {
	action, ok := t.keys[code]
	if !ok {
		slog.Debug("unmapped key", "code", int(code))
		if t.onUnmapped != nil {
			t.onUnmapped(code)
		}
		return
	}
	if action == ActionPause {
		if t.onPause != nil {
			t.onPause()
		}
		return
	}

	codes := t.held[action]
	if codes == nil {
		codes = make(map[Code]struct{})
		t.held[action] = codes
	}
	first := len(codes) == 0
	codes[code] = struct{}{}
	if !first {
		return
	}
	if fn, ok := t.commands[action]; ok {
		fn()
		return
	}
	t.pressed[action] = true
}

func (t *Tracker) OnKeyUp(code Code) {
	action, ok := t.keys[code]
	if !ok || action == ActionPause {
		return
	}
	codes := t.held[action]
	delete(codes, code)
	if len(codes) == 0 {
		delete(t.held, action)
	}
}

// ConsumePress reports whether a was pressed since the last call and
// clears the press.
func (t *Tracker) ConsumePress(a Action) bool {
	if !t.pressed[a] {
		return false
	}
	delete(t.pressed, a)
	return true
}

func (t *Tracker) Held(a Action) bool {
	if _, cmd := t.commands[a]; cmd {
		return false
	}
	return len(t.held[a]) > 0
}

// Pending reports an unconsumed press without clearing it.
func (t *Tracker) Pending(a Action) bool {
	return t.pressed[a]
}

// HeldActions returns the held actions in lexical order.
func (t *Tracker) HeldActions() []Action {
	out := make([]Action, 0, len(t.held))
	for a := range t.held {
		if t.Held(a) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
