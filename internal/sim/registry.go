package sim

import (
	"fmt"

	"github.com/elliotchance/orderedmap/v2"
)

// Registry keeps entities in registration order.
type Registry struct {
	entities *orderedmap.OrderedMap[string, Entity]
}

func NewRegistry() *Registry {
	return &Registry{entities: orderedmap.NewOrderedMap[string, Entity]()}
}

func (r *Registry) Add(e Entity) error {
	if e == nil {
		return fmt.Errorf("entity is nil")
	}
	if _, ok := r.entities.Get(e.ID()); ok {
		return fmt.Errorf("entity %s already registered", e.ID())
	}
	r.entities.Set(e.ID(), e)
	return nil
}

// Remove drops the entity from the loop entirely. Soft deletion is the
// entity's own business (see IsAlive).
func (r *Registry) Remove(id string) bool {
	return r.entities.Delete(id)
}

func (r *Registry) Get(id string) (Entity, bool) {
	return r.entities.Get(id)
}

func (r *Registry) Len() int {
	return r.entities.Len()
}

// Each visits entities in registration order.
func (r *Registry) Each(fn func(Entity)) {
	for el := r.entities.Front(); el != nil; el = el.Next() {
		fn(el.Value)
	}
}
