package scene

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNameRequired indicates an entity registration without a name.
	ErrNameRequired = errors.New("entity name is required")
	// ErrDuplicateName matches every DuplicateNameError.
	ErrDuplicateName = errors.New("entity name already registered")
	// ErrNotFound indicates an entity name that is not registered.
	ErrNotFound = errors.New("entity not found")
	// ErrActorNotReady indicates actor-driven work before the avatar loaded.
	ErrActorNotReady = errors.New("actor is not ready")
)

// DuplicateNameError reports a second registration under an existing name.
type DuplicateNameError struct {
	Name string
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("entity name already registered: %s", e.Name)
}

// Is matches ErrDuplicateName.
func (e *DuplicateNameError) Is(target error) bool {
	return target == ErrDuplicateName
}

// Registry stores entities by unique name in insertion order.
type Registry struct {
	byName map[string]*Entity
	order  []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]*Entity)}
}

// Register adds entity under name. The entity's Name field is set to name.
func (r *Registry) Register(name string, entity *Entity) error {
	if r == nil {
		return errors.New("registry is required")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrNameRequired
	}
	if entity == nil {
		entity = &Entity{}
	}
	if r.byName == nil {
		r.byName = make(map[string]*Entity)
	}
	if _, exists := r.byName[name]; exists {
		return &DuplicateNameError{Name: name}
	}
	entity.Name = name
	r.byName[name] = entity
	r.order = append(r.order, name)
	return nil
}

// Get returns the entity registered under name.
func (r *Registry) Get(name string) (*Entity, error) {
	if r == nil {
		return nil, ErrNotFound
	}
	entity, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return entity, nil
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	if r == nil {
		return false
	}
	_, ok := r.byName[name]
	return ok
}

// SetVisible sets the visibility flag of name. Unknown names are ignored:
// visibility commands may arrive before the owning scene finished loading.
func (r *Registry) SetVisible(name string, visible bool) {
	if r == nil {
		return
	}
	if entity, ok := r.byName[name]; ok {
		entity.Visible = visible
	}
}

// AllNames returns every registered name in insertion order.
func (r *Registry) AllNames() []string {
	if r == nil || len(r.order) == 0 {
		return nil
	}
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// VisibleNames returns the visible names in insertion order.
func (r *Registry) VisibleNames() []string {
	if r == nil {
		return nil
	}
	var names []string
	for _, name := range r.order {
		if r.byName[name].Visible {
			names = append(names, name)
		}
	}
	return names
}

// Each calls fn for every entity in insertion order.
func (r *Registry) Each(fn func(*Entity)) {
	if r == nil || fn == nil {
		return
	}
	for _, name := range r.order {
		fn(r.byName[name])
	}
}

// Len returns the number of registered entities.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.order)
}

// Remove deletes name and reports whether it was registered.
func (r *Registry) Remove(name string) bool {
	if r == nil {
		return false
	}
	if _, ok := r.byName[name]; !ok {
		return false
	}
	delete(r.byName, name)
	for i, existing := range r.order {
		if existing == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

// Reset removes every entity.
func (r *Registry) Reset() {
	if r == nil {
		return
	}
	r.byName = make(map[string]*Entity)
	r.order = nil
}
