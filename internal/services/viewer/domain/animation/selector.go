// Package animation selects the avatar clip that matches its locomotion.
package animation

import (
	"errors"
	"fmt"
	"math"

	"github.com/louisbranch/campuswalk/internal/services/viewer/domain/locomotion"
)

// ErrClipMissing indicates an install without both the idle and walk clips.
var ErrClipMissing = errors.New("idle and walk clips are required")

// State names an avatar clip.
type State int

const (
	Idle State = iota
	Walk
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Walk:
		return "walk"
	default:
		return fmt.Sprintf("clip(%d)", int(s))
	}
}

// ParseState parses a clip name.
func ParseState(value string) (State, error) {
	switch value {
	case "idle":
		return Idle, nil
	case "walk":
		return Walk, nil
	default:
		return 0, fmt.Errorf("unknown animation state %q", value)
	}
}

// Clip is an opaque playable animation handle.
type Clip interface {
	Play()
	Stop()
	Playing() bool
	Advance(dt float64)
}

// Selector keeps exactly one of the idle and walk clips playing once clips
// are installed.
type Selector struct {
	clips   map[State]Clip
	desired State
}

// NewSelector creates a selector with no clips installed.
func NewSelector() *Selector {
	return &Selector{}
}

// Install sets the clips and starts the one matching the last reported
// locomotion state.
func (s *Selector) Install(clips map[State]Clip) error {
	if clips[Idle] == nil || clips[Walk] == nil {
		return ErrClipMissing
	}
	for _, clip := range s.clips {
		clip.Stop()
	}
	s.clips = map[State]Clip{Idle: clips[Idle], Walk: clips[Walk]}
	s.apply()
	return nil
}

// Uninstall stops and drops the clips.
func (s *Selector) Uninstall() {
	for _, clip := range s.clips {
		clip.Stop()
	}
	s.clips = nil
}

// Loaded reports whether clips are installed.
func (s *Selector) Loaded() bool {
	return s.clips != nil
}

// OnLocomotionChanged plays Walk for any non-idle state and Idle otherwise.
// Before clips are installed it only records the state.
func (s *Selector) OnLocomotionChanged(state locomotion.State) {
	s.desired = Idle
	if state != locomotion.Idle {
		s.desired = Walk
	}
	s.apply()
}

// Current returns the clip state the selector is driving toward.
func (s *Selector) Current() State {
	return s.desired
}

// Playing returns the playing clip, if any.
func (s *Selector) Playing() (State, bool) {
	for _, state := range []State{Idle, Walk} {
		if clip := s.clips[state]; clip != nil && clip.Playing() {
			return state, true
		}
	}
	return 0, false
}

// Advance moves the playing clip forward by dt.
func (s *Selector) Advance(dt float64) {
	if state, ok := s.Playing(); ok {
		s.clips[state].Advance(dt)
	}
}

func (s *Selector) apply() {
	if s.clips == nil {
		return
	}
	other := Idle
	if s.desired == Idle {
		other = Walk
	}
	s.clips[other].Stop()
	if !s.clips[s.desired].Playing() {
		s.clips[s.desired].Play()
	}
}

// Action is an in-memory clip handle with a local clock.
type Action struct {
	Name     string
	Duration float64

	playing bool
	time    float64
	starts  int
}

// NewAction creates a stopped action. A zero duration never loops.
func NewAction(name string, duration float64) *Action {
	return &Action{Name: name, Duration: duration}
}

// Play starts the action from the beginning.
func (a *Action) Play() {
	if a.playing {
		return
	}
	a.playing = true
	a.time = 0
	a.starts++
}

// Stop halts the action.
func (a *Action) Stop() {
	a.playing = false
}

// Playing reports whether the action runs.
func (a *Action) Playing() bool {
	return a.playing
}

// Advance moves the clock while playing, looping at Duration.
func (a *Action) Advance(dt float64) {
	if !a.playing || !(dt > 0) || math.IsInf(dt, 0) {
		return
	}
	a.time += dt
	if a.Duration > 0 && a.time >= a.Duration {
		a.time = math.Mod(a.time, a.Duration)
	}
}

// Time returns the local clip time.
func (a *Action) Time() float64 {
	return a.time
}

// Starts returns how many times the action was started.
func (a *Action) Starts() int {
	return a.starts
}
