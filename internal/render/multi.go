package render

import (
	"fmt"

	"github.com/Versifine/critter/internal/sim"
)

// Multi fans a frame out to several renderers. Every renderer runs; the
// first error is returned.
type Multi []sim.Renderer

func (m Multi) Render() error {
	var first error
	for i, r := range m {
		if r == nil {
			continue
		}
		if err := r.Render(); err != nil && first == nil {
			first = fmt.Errorf("renderer %d: %w", i, err)
		}
	}
	return first
}
