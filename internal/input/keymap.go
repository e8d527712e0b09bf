package input

import (
	"fmt"
	"sort"
)

// Code is a platform key code. Hosts translate their native key
// identifiers into browser keyCode numbering.
type Code int

const (
	CodeEscape     Code = 27
	CodeSpace      Code = 32
	CodeArrowLeft  Code = 37
	CodeArrowUp    Code = 38
	CodeArrowRight Code = 39
	CodeArrowDown  Code = 40
	CodeA          Code = 65
	CodeD          Code = 68
	CodeJ          Code = 74
	CodeK          Code = 75
	CodeN          Code = 78
	CodeS          Code = 83
	CodeW          Code = 87
)

// Action is a logical action name.
type Action string

const (
	ActionUp    Action = "up"
	ActionDown  Action = "down"
	ActionLeft  Action = "left"
	ActionRight Action = "right"
	ActionJump  Action = "jump"
	ActionZap   Action = "zap"
	// ActionPause toggles the simulation clock and is never held or pressed.
	ActionPause Action = "pause"
	// ActionSpawn and ActionKill are stage commands bound with SetCommand.
	ActionSpawn Action = "spawn"
	ActionKill  Action = "kill"
)

var knownActions = map[Action]struct{}{
	ActionUp:    {},
	ActionDown:  {},
	ActionLeft:  {},
	ActionRight: {},
	ActionJump:  {},
	ActionZap:   {},
	ActionPause: {},
	ActionSpawn: {},
	ActionKill:  {},
}

// KnownAction reports whether a is one of the built-in actions.
func KnownAction(a Action) bool {
	_, ok := knownActions[a]
	return ok
}

// KeyMap maps key codes to actions. Several codes may share an action.
type KeyMap map[Code]Action

// DefaultKeyMap returns WASD + arrows movement, Space jump, J zap,
// Escape pause, N spawn and K kill.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		CodeW:          ActionUp,
		CodeS:          ActionDown,
		CodeA:          ActionLeft,
		CodeD:          ActionRight,
		CodeArrowUp:    ActionUp,
		CodeArrowDown:  ActionDown,
		CodeArrowLeft:  ActionLeft,
		CodeArrowRight: ActionRight,
		CodeSpace:      ActionJump,
		CodeJ:          ActionZap,
		CodeEscape:     ActionPause,
		CodeN:          ActionSpawn,
		CodeK:          ActionKill,
	}
}

// Validate rejects maps naming actions nothing consumes.
func (m KeyMap) Validate() error {
	codes := make([]int, 0, len(m))
	for code := range m {
		codes = append(codes, int(code))
	}
	sort.Ints(codes)
	for _, c := range codes {
		if a := m[Code(c)]; !KnownAction(a) {
			return fmt.Errorf("key %d: unknown action %q", c, a)
		}
	}
	return nil
}

// Clone returns an independent copy of m.
func (m KeyMap) Clone() KeyMap {
	out := make(KeyMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
