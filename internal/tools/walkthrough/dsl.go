package walkthrough

import (
	"fmt"
	"math"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Shopify/go-lua"
	"github.com/go-gl/mathgl/mgl64"

	"github.com/louisbranch/campuswalk/internal/services/viewer/storage"
)

const (
	walkthroughTypeName = "walkthrough"
	scriptRegistryKey   = "campuswalk.timeline_script"

	defaultScenePath = "campus.glb"
	defaultActorPath = "avatar.glb"
)

// Walkthrough is a scripted viewer session: the scene it loads, the timeline
// it installs and the input steps it replays.
type Walkthrough struct {
	Name     string
	Scene    string
	Entities []EntitySpec
	Actor    *ActorSpec
	Timeline TimelineSpec
	Steps    []Step

	state *lua.State
}

// Step is one scripted action or expectation.
type Step struct {
	Kind string
	Args map[string]any
}

// EntitySpec declares one scene entity.
type EntitySpec struct {
	Name     string
	Geometry bool
	Position mgl64.Vec3
	Label    string
	Top      float64
	Meta     map[string]string
	// Years lists the years the entity is shown in; empty means every year.
	Years []int
}

// ActorSpec declares the avatar.
type ActorSpec struct {
	Name     string
	Position mgl64.Vec3
	Label    string
	Top      float64
	// Clips is false for an avatar shipped without animations.
	Clips        bool
	IdleDuration float64
	WalkDuration float64
}

// TimelineSpec holds the timeline declarations. At most one of the stored
// timeline (exclusions, ranges, filter), Store and Script is used.
type TimelineSpec struct {
	Exclusions map[int][]string
	Ranges     map[string]storage.YearRange
	Filter     string
	Store      string
	Script     bool
}

func (t TimelineSpec) stored() bool {
	return len(t.Exclusions) > 0 || len(t.Ranges) > 0 || t.Filter != ""
}

func (t TimelineSpec) kind() string {
	switch {
	case t.Script:
		return "script"
	case t.Store != "":
		return "store"
	case t.stored():
		return "stored"
	default:
		return ""
	}
}

// LoadFromFile runs a walkthrough script and returns the walkthrough it
// builds. The script must return the value created by Walkthrough.new.
func LoadFromFile(path string) (*Walkthrough, error) {
	state := lua.NewState()
	lua.OpenLibraries(state)

	registerLuaTypes(state)

	if err := lua.LoadFile(state, path, ""); err != nil {
		return nil, fmt.Errorf("load lua: %w", err)
	}
	if err := state.ProtectedCall(0, 1, 0); err != nil {
		return nil, fmt.Errorf("run lua: %w", err)
	}

	if state.TypeOf(-1) != lua.TypeUserData {
		state.Pop(1)
		return nil, fmt.Errorf("walkthrough script must return Walkthrough")
	}
	ud := state.ToUserData(-1)
	state.Pop(1)
	walkthrough, ok := ud.(*Walkthrough)
	if !ok || walkthrough == nil {
		return nil, fmt.Errorf("walkthrough script returned invalid Walkthrough")
	}
	if strings.TrimSpace(walkthrough.Name) == "" {
		walkthrough.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if walkthrough.Scene == "" {
		walkthrough.Scene = defaultScenePath
	}
	walkthrough.state = state
	return walkthrough, nil
}

func registerLuaTypes(state *lua.State) {
	lua.NewMetaTable(state, walkthroughTypeName)
	state.NewTable()
	lua.SetFunctions(state, walkthroughMethods, 0)
	state.SetField(-2, "__index")
	state.Pop(1)

	state.NewTable()
	lua.SetFunctions(state, walkthroughConstructor, 0)
	state.SetGlobal("Walkthrough")
}

var walkthroughConstructor = []lua.RegistryFunction{
	{Name: "new", Function: walkthroughNew},
}

func walkthroughNew(state *lua.State) int {
	name := lua.OptString(state, 1, "")
	walkthrough := &Walkthrough{Name: name}
	state.PushUserData(walkthrough)
	lua.SetMetaTableNamed(state, walkthroughTypeName)
	return 1
}

var walkthroughMethods = []lua.RegistryFunction{
	{Name: "scene", Function: walkthroughScene},
	{Name: "entity", Function: walkthroughEntity},
	{Name: "actor", Function: walkthroughActor},
	{Name: "timeline_exclusions", Function: walkthroughTimelineExclusions},
	{Name: "timeline_ranges", Function: walkthroughTimelineRanges},
	{Name: "timeline_filter", Function: walkthroughTimelineFilter},
	{Name: "timeline_store", Function: walkthroughTimelineStore},
	{Name: "timeline_script", Function: walkthroughTimelineScript},

	{Name: "press", Function: keyStep("press")},
	{Name: "release", Function: keyStep("release")},
	{Name: "tick", Function: walkthroughTick},
	{Name: "wait_loaded", Function: tableStep("wait_loaded")},
	{Name: "year", Function: walkthroughYear},
	{Name: "resize", Function: walkthroughResize},
	{Name: "toggle_camera", Function: tableStep("toggle_camera")},
	{Name: "rig", Function: stringStep("rig", "name")},
	{Name: "orbit", Function: walkthroughOrbit},
	{Name: "zoom", Function: walkthroughZoom},
	{Name: "reload", Function: tableStep("reload")},
	{Name: "reset_view", Function: tableStep("reset_view")},
	{Name: "remove", Function: stringStep("remove", "name")},

	{Name: "expect_visible", Function: namesStep("expect_visible")},
	{Name: "expect_hidden", Function: namesStep("expect_hidden")},
	{Name: "expect_position", Function: vectorStep("expect_position")},
	{Name: "expect_camera", Function: vectorStep("expect_camera")},
	{Name: "expect_heading", Function: walkthroughExpectHeading},
	{Name: "expect_animation", Function: stringStep("expect_animation", "state")},
	{Name: "expect_rig", Function: stringStep("expect_rig", "name")},
	{Name: "expect_warnings", Function: walkthroughExpectWarnings},
	{Name: "expect_hud", Function: stringStep("expect_hud", "contains")},
	{Name: "expect_years", Function: walkthroughExpectYears},
	{Name: "expect_bucket", Function: walkthroughExpectBucket},
}

func walkthroughScene(state *lua.State) int {
	walkthrough := checkWalkthrough(state)
	walkthrough.Scene = lua.CheckString(state, 2)
	return 0
}

func walkthroughEntity(state *lua.State) int {
	walkthrough := checkWalkthrough(state)
	name := lua.CheckString(state, 2)
	args := optionalTable(state, 3)

	spec := EntitySpec{
		Name:     name,
		Geometry: optionalBool(args, "geometry", true),
		Position: optionalVector(args, "position"),
		Label:    optionalString(args, "label", ""),
		Top:      optionalFloat(args, "top", 0),
		Meta:     optionalStringMap(args, "meta"),
		Years:    optionalInts(args, "years"),
	}
	walkthrough.Entities = append(walkthrough.Entities, spec)
	return 0
}

func walkthroughActor(state *lua.State) int {
	walkthrough := checkWalkthrough(state)
	args := optionalTable(state, 2)

	walkthrough.Actor = &ActorSpec{
		Name:         optionalString(args, "name", ""),
		Position:     optionalVector(args, "position"),
		Label:        optionalString(args, "label", ""),
		Top:          optionalFloat(args, "top", 0),
		Clips:        optionalBool(args, "clips", true),
		IdleDuration: optionalFloat(args, "idle", 2),
		WalkDuration: optionalFloat(args, "walk", 1),
	}
	return 0
}

// walkthroughTimelineExclusions takes { [year] = { names... } }.
func walkthroughTimelineExclusions(state *lua.State) int {
	walkthrough := checkWalkthrough(state)
	lua.CheckType(state, 2, lua.TypeTable)
	claimTimeline(state, walkthrough, "stored")

	if walkthrough.Timeline.Exclusions == nil {
		walkthrough.Timeline.Exclusions = map[int][]string{}
	}
	state.PushNil()
	for state.Next(2) {
		if state.TypeOf(-2) != lua.TypeNumber {
			lua.Errorf(state, "timeline_exclusions keys must be years")
		}
		year, _ := state.ToInteger(-2)
		walkthrough.Timeline.Exclusions[year] = toStrings(luaToGo(state, -1))
		state.Pop(1)
	}
	return 0
}

// walkthroughTimelineRanges takes { name = { from, to } }.
func walkthroughTimelineRanges(state *lua.State) int {
	walkthrough := checkWalkthrough(state)
	lua.CheckType(state, 2, lua.TypeTable)
	claimTimeline(state, walkthrough, "stored")

	if walkthrough.Timeline.Ranges == nil {
		walkthrough.Timeline.Ranges = map[string]storage.YearRange{}
	}
	for name, value := range tableToMap(state, 2) {
		span := toInts(value)
		if len(span) != 2 {
			lua.Errorf(state, "timeline_ranges %s must be {from, to}", name)
		}
		walkthrough.Timeline.Ranges[name] = storage.YearRange{From: span[0], To: span[1]}
	}
	return 0
}

func walkthroughTimelineFilter(state *lua.State) int {
	walkthrough := checkWalkthrough(state)
	expr := lua.CheckString(state, 2)
	claimTimeline(state, walkthrough, "stored")
	walkthrough.Timeline.Filter = expr
	return 0
}

func walkthroughTimelineStore(state *lua.State) int {
	walkthrough := checkWalkthrough(state)
	name := lua.CheckString(state, 2)
	claimTimeline(state, walkthrough, "store")
	walkthrough.Timeline.Store = name
	return 0
}

// walkthroughTimelineScript keeps fn in the registry; it is called per entity
// with {name, has_geometry, meta} and returns the entity's years.
func walkthroughTimelineScript(state *lua.State) int {
	walkthrough := checkWalkthrough(state)
	lua.CheckType(state, 2, lua.TypeFunction)
	claimTimeline(state, walkthrough, "script")

	state.PushValue(2)
	state.SetField(lua.RegistryIndex, scriptRegistryKey)
	walkthrough.Timeline.Script = true
	return 0
}

func claimTimeline(state *lua.State, walkthrough *Walkthrough, kind string) {
	if current := walkthrough.Timeline.kind(); current != "" && current != kind {
		lua.Errorf(state, "timeline already declared as %s", current)
	}
}

func walkthroughTick(state *lua.State) int {
	walkthrough := checkWalkthrough(state)
	dt := lua.OptNumber(state, 2, defaultTickDelta)
	count := lua.OptInteger(state, 3, 1)
	if dt < 0 || math.IsNaN(dt) || math.IsInf(dt, 0) {
		lua.ArgumentError(state, 2, "dt must be finite and not negative")
	}
	if count < 1 {
		lua.ArgumentError(state, 3, "count must be positive")
	}
	appendStep(walkthrough, "tick", map[string]any{"dt": dt, "count": count})
	return 0
}

func walkthroughYear(state *lua.State) int {
	walkthrough := checkWalkthrough(state)
	year := lua.CheckInteger(state, 2)
	appendStep(walkthrough, "year", map[string]any{"year": year})
	return 0
}

func walkthroughResize(state *lua.State) int {
	walkthrough := checkWalkthrough(state)
	width := lua.CheckInteger(state, 2)
	height := lua.CheckInteger(state, 3)
	appendStep(walkthrough, "resize", map[string]any{"width": width, "height": height})
	return 0
}

func walkthroughOrbit(state *lua.State) int {
	walkthrough := checkWalkthrough(state)
	azimuth := lua.CheckNumber(state, 2)
	polar := lua.OptNumber(state, 3, 0)
	appendStep(walkthrough, "orbit", map[string]any{"azimuth": azimuth, "polar": polar})
	return 0
}

func walkthroughZoom(state *lua.State) int {
	walkthrough := checkWalkthrough(state)
	scale := lua.CheckNumber(state, 2)
	if scale <= 0 {
		lua.ArgumentError(state, 2, "scale must be positive")
	}
	appendStep(walkthrough, "zoom", map[string]any{"scale": scale})
	return 0
}

func walkthroughExpectHeading(state *lua.State) int {
	walkthrough := checkWalkthrough(state)
	heading := lua.CheckNumber(state, 2)
	tolerance := lua.OptNumber(state, 3, defaultTolerance)
	appendStep(walkthrough, "expect_heading", map[string]any{"heading": heading, "tolerance": tolerance})
	return 0
}

func walkthroughExpectWarnings(state *lua.State) int {
	walkthrough := checkWalkthrough(state)
	count := lua.CheckInteger(state, 2)
	appendStep(walkthrough, "expect_warnings", map[string]any{"count": count})
	return 0
}

func walkthroughExpectYears(state *lua.State) int {
	walkthrough := checkWalkthrough(state)
	lua.CheckType(state, 2, lua.TypeTable)
	appendStep(walkthrough, "expect_years", map[string]any{"years": toInts(tableToGo(state, 2))})
	return 0
}

// walkthroughExpectBucket takes a year and the names its bucket must hold.
func walkthroughExpectBucket(state *lua.State) int {
	walkthrough := checkWalkthrough(state)
	year := lua.CheckInteger(state, 2)
	lua.CheckType(state, 3, lua.TypeTable)
	appendStep(walkthrough, "expect_bucket", map[string]any{
		"year":  year,
		"names": toStrings(tableToGo(state, 3)),
	})
	return 0
}

func keyStep(kind string) lua.Function {
	return func(state *lua.State) int {
		walkthrough := checkWalkthrough(state)
		key := lua.CheckString(state, 2)
		appendStep(walkthrough, kind, map[string]any{"key": key})
		return 0
	}
}

func stringStep(kind, field string) lua.Function {
	return func(state *lua.State) int {
		walkthrough := checkWalkthrough(state)
		value := lua.CheckString(state, 2)
		appendStep(walkthrough, kind, map[string]any{field: value})
		return 0
	}
}

func tableStep(kind string) lua.Function {
	return func(state *lua.State) int {
		walkthrough := checkWalkthrough(state)
		appendStep(walkthrough, kind, optionalTable(state, 2))
		return 0
	}
}

// namesStep accepts a list of entity names; an empty list is allowed.
func namesStep(kind string) lua.Function {
	return func(state *lua.State) int {
		walkthrough := checkWalkthrough(state)
		lua.CheckType(state, 2, lua.TypeTable)
		names := toStrings(tableToGo(state, 2))
		appendStep(walkthrough, kind, map[string]any{"names": names})
		return 0
	}
}

// vectorStep accepts {x, y, z} with an optional tolerance argument.
func vectorStep(kind string) lua.Function {
	return func(state *lua.State) int {
		walkthrough := checkWalkthrough(state)
		lua.CheckType(state, 2, lua.TypeTable)
		values := toFloats(tableToGo(state, 2))
		if len(values) != 3 {
			lua.ArgumentError(state, 2, "expected {x, y, z}")
		}
		tolerance := lua.OptNumber(state, 3, defaultTolerance)
		appendStep(walkthrough, kind, map[string]any{
			"x": values[0], "y": values[1], "z": values[2],
			"tolerance": tolerance,
		})
		return 0
	}
}

func checkWalkthrough(state *lua.State) *Walkthrough {
	ud := lua.CheckUserData(state, 1, walkthroughTypeName)
	if walkthrough, ok := ud.(*Walkthrough); ok && walkthrough != nil {
		return walkthrough
	}
	lua.ArgumentError(state, 1, "walkthrough expected")
	return nil
}

func appendStep(walkthrough *Walkthrough, kind string, data map[string]any) int {
	if walkthrough == nil {
		return -1
	}
	if data == nil {
		data = map[string]any{}
	}
	walkthrough.Steps = append(walkthrough.Steps, Step{Kind: kind, Args: data})
	return len(walkthrough.Steps) - 1
}

func optionalTable(state *lua.State, index int) map[string]any {
	if state.IsNoneOrNil(index) || state.TypeOf(index) != lua.TypeTable {
		return map[string]any{}
	}
	return tableToMap(state, index)
}

func tableToMap(state *lua.State, index int) map[string]any {
	output := map[string]any{}
	if state.TypeOf(index) != lua.TypeTable {
		return output
	}

	index = state.AbsIndex(index)
	state.PushNil()
	for state.Next(index) {
		if state.TypeOf(-2) == lua.TypeString {
			key, _ := state.ToString(-2)
			output[key] = luaToGo(state, -1)
		}
		state.Pop(1)
	}
	return output
}

func luaToGo(state *lua.State, index int) any {
	switch state.TypeOf(index) {
	case lua.TypeString:
		value, _ := state.ToString(index)
		return value
	case lua.TypeNumber:
		value, _ := state.ToNumber(index)
		return normalizeNumber(value)
	case lua.TypeBoolean:
		return state.ToBoolean(index)
	case lua.TypeTable:
		return tableToGo(state, index)
	default:
		return nil
	}
}

func tableToGo(state *lua.State, index int) any {
	if state.TypeOf(index) != lua.TypeTable {
		return nil
	}

	index = state.AbsIndex(index)
	isArray := true
	maxIndex := 0
	count := 0
	state.PushNil()
	for state.Next(index) {
		if isArray {
			if state.TypeOf(-2) != lua.TypeNumber {
				isArray = false
			} else if idx, ok := state.ToInteger(-2); ok && idx > 0 {
				count++
				if idx > maxIndex {
					maxIndex = idx
				}
			} else {
				isArray = false
			}
		}
		state.Pop(1)
	}

	if isArray && count > 0 && maxIndex == count {
		result := make([]any, 0, maxIndex)
		for i := 1; i <= maxIndex; i++ {
			state.RawGetInt(index, i)
			result = append(result, luaToGo(state, -1))
			state.Pop(1)
		}
		return result
	}

	return tableToMap(state, index)
}

func normalizeNumber(value float64) any {
	if math.Mod(value, 1) == 0 {
		return int(value)
	}
	return value
}

func toStrings(value any) []string {
	items, _ := value.([]any)
	names := make([]string, 0, len(items))
	for _, item := range items {
		if name, ok := item.(string); ok {
			names = append(names, name)
		}
	}
	return names
}

func toInts(value any) []int {
	items, _ := value.([]any)
	ints := make([]int, 0, len(items))
	for _, item := range items {
		if n, ok := item.(int); ok {
			ints = append(ints, n)
		}
	}
	return ints
}

func toFloats(value any) []float64 {
	items, _ := value.([]any)
	floats := make([]float64, 0, len(items))
	for _, item := range items {
		switch n := item.(type) {
		case int:
			floats = append(floats, float64(n))
		case float64:
			floats = append(floats, n)
		}
	}
	return floats
}

func optionalVector(args map[string]any, key string) mgl64.Vec3 {
	values := toFloats(args[key])
	if len(values) != 3 {
		return mgl64.Vec3{}
	}
	return mgl64.Vec3{values[0], values[1], values[2]}
}

func optionalInts(args map[string]any, key string) []int {
	switch value := args[key].(type) {
	case int:
		return []int{value}
	case []any:
		return toInts(value)
	default:
		return nil
	}
}

func optionalStringMap(args map[string]any, key string) map[string]string {
	table, ok := args[key].(map[string]any)
	if !ok || len(table) == 0 {
		return nil
	}
	output := make(map[string]string, len(table))
	for name, value := range table {
		output[name] = fmt.Sprint(value)
	}
	return output
}

// metaKeys lists every metadata key declared on the walkthrough's entities.
func (w *Walkthrough) metaKeys() []string {
	seen := map[string]struct{}{}
	for _, entity := range w.Entities {
		for key := range entity.Meta {
			seen[key] = struct{}{}
		}
	}
	keys := make([]string, 0, len(seen))
	for key := range seen {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
