package walkthrough

import (
	"log"
	"slices"

	"github.com/Shopify/go-lua"

	"github.com/louisbranch/campuswalk/internal/services/viewer/domain/timeline"
)

// scriptRule evaluates the timeline_script function for each entity. The
// function returns the entity's years as a number or a list of numbers.
type scriptRule struct {
	state  *lua.State
	domain []int
	logger *log.Logger
}

func (r scriptRule) Domain() []int {
	return r.domain
}

// Keys returns nil when the script raises an error; the entity is then hidden
// in every year. Years outside the domain are dropped.
func (r scriptRule) Keys(entity timeline.EntityInfo) []int {
	state := r.state
	top := state.Top()
	defer state.SetTop(top)

	state.Field(lua.RegistryIndex, scriptRegistryKey)
	if state.TypeOf(-1) != lua.TypeFunction {
		return nil
	}
	pushEntity(state, entity)
	if err := state.ProtectedCall(1, 1, 0); err != nil {
		if r.logger != nil {
			r.logger.Printf("timeline script %s: %v", entity.Name, err)
		}
		return nil
	}

	var years []int
	switch value := luaToGo(state, -1).(type) {
	case int:
		years = []int{value}
	case []any:
		years = toInts(value)
	}
	return slices.DeleteFunc(years, func(year int) bool {
		return !slices.Contains(r.domain, year)
	})
}

func pushEntity(state *lua.State, entity timeline.EntityInfo) {
	state.NewTable()
	state.PushString(entity.Name)
	state.SetField(-2, "name")
	state.PushBoolean(entity.HasGeometry)
	state.SetField(-2, "has_geometry")

	state.NewTable()
	for key, value := range entity.Metadata {
		state.PushString(value)
		state.SetField(-2, key)
	}
	state.SetField(-2, "meta")
}

var (
	_ timeline.Rule[int]     = scriptRule{}
	_ timeline.Domained[int] = scriptRule{}
)
