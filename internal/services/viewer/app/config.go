package app

import (
	"fmt"

	"github.com/louisbranch/campuswalk/internal/platform/config"
	"github.com/louisbranch/campuswalk/internal/services/viewer/domain/camera"
	"github.com/louisbranch/campuswalk/internal/services/viewer/domain/locomotion"
)

// Config holds viewer session settings.
type Config struct {
	MoveSpeed      float64 `env:"CAMPUSWALK_MOVE_SPEED"      envDefault:"0.5"`
	LocomotionMode string  `env:"CAMPUSWALK_LOCOMOTION_MODE" envDefault:"turn"`
	TurnStep       float64 `env:"CAMPUSWALK_TURN_STEP"       envDefault:"0.1"`

	FollowDistance   float64 `env:"CAMPUSWALK_FOLLOW_DISTANCE"   envDefault:"5"`
	FollowHeight     float64 `env:"CAMPUSWALK_FOLLOW_HEIGHT"     envDefault:"2"`
	OverheadAltitude float64 `env:"CAMPUSWALK_OVERHEAD_ALTITUDE" envDefault:"50"`

	FollowFOV    float64 `env:"CAMPUSWALK_FOLLOW_FOV"    envDefault:"105"`
	OverheadFOV  float64 `env:"CAMPUSWALK_OVERHEAD_FOV"  envDefault:"90"`
	FreeFOV      float64 `env:"CAMPUSWALK_FREE_FOV"      envDefault:"75"`
	FollowNear   float64 `env:"CAMPUSWALK_FOLLOW_NEAR"   envDefault:"0.1"`
	OverheadNear float64 `env:"CAMPUSWALK_OVERHEAD_NEAR" envDefault:"0.01"`
	FreeNear     float64 `env:"CAMPUSWALK_FREE_NEAR"     envDefault:"0.1"`
	Far          float64 `env:"CAMPUSWALK_FAR"           envDefault:"1000"`

	RigOrder []string `env:"CAMPUSWALK_RIG_ORDER" envDefault:"follow,overhead,free" envSeparator:","`

	TimelineMin     int `env:"CAMPUSWALK_TIMELINE_MIN"     envDefault:"2023"`
	TimelineMax     int `env:"CAMPUSWALK_TIMELINE_MAX"     envDefault:"2025"`
	TimelineDefault int `env:"CAMPUSWALK_TIMELINE_DEFAULT" envDefault:"2025"`

	ViewportWidth  int `env:"CAMPUSWALK_VIEWPORT_WIDTH"  envDefault:"1280"`
	ViewportHeight int `env:"CAMPUSWALK_VIEWPORT_HEIGHT" envDefault:"720"`
}

// DefaultConfig returns the campus walk defaults.
func DefaultConfig() Config {
	return Config{
		MoveSpeed:        0.5,
		LocomotionMode:   string(locomotion.ModeTurn),
		TurnStep:         0.1,
		FollowDistance:   5,
		FollowHeight:     2,
		OverheadAltitude: 50,
		FollowFOV:        105,
		OverheadFOV:      90,
		FreeFOV:          75,
		FollowNear:       0.1,
		OverheadNear:     0.01,
		FreeNear:         0.1,
		Far:              1000,
		RigOrder:         []string{"follow", "overhead", "free"},
		TimelineMin:      2023,
		TimelineMax:      2025,
		TimelineDefault:  2025,
		ViewportWidth:    1280,
		ViewportHeight:   720,
	}
}

// LoadConfig reads Config from the environment.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := config.ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c Config) Validate() error {
	if c.TimelineMax < c.TimelineMin {
		return fmt.Errorf("timeline max %d precedes min %d", c.TimelineMax, c.TimelineMin)
	}
	if c.MoveSpeed < 0 {
		return fmt.Errorf("move speed must not be negative")
	}
	if _, err := locomotion.ParseMode(c.LocomotionMode); err != nil {
		return err
	}
	if _, err := c.RigConfigs(); err != nil {
		return err
	}
	return nil
}

// Aspect returns the viewport aspect ratio, or 1 for an empty viewport.
func (c Config) Aspect() float64 {
	if c.ViewportWidth <= 0 || c.ViewportHeight <= 0 {
		return 1
	}
	return float64(c.ViewportWidth) / float64(c.ViewportHeight)
}

// Locomotion returns the locomotion settings.
func (c Config) Locomotion() (locomotion.Config, error) {
	mode, err := locomotion.ParseMode(c.LocomotionMode)
	if err != nil {
		return locomotion.Config{}, err
	}
	return locomotion.Config{Mode: mode, MoveSpeed: c.MoveSpeed, TurnStep: c.TurnStep}, nil
}

// RigConfigs returns the camera rigs in RigOrder.
func (c Config) RigConfigs() ([]camera.RigConfig, error) {
	if len(c.RigOrder) == 0 {
		return nil, camera.ErrNoRigs
	}
	aspect := c.Aspect()
	byID := map[camera.RigID]camera.RigConfig{
		camera.Follow: {
			ID:         camera.Follow,
			Projection: camera.Projection{FOV: c.FollowFOV, Aspect: aspect, Near: c.FollowNear, Far: c.Far},
			Distance:   c.FollowDistance,
			Height:     c.FollowHeight,
		},
		camera.Overhead: {
			ID:         camera.Overhead,
			Projection: camera.Projection{FOV: c.OverheadFOV, Aspect: aspect, Near: c.OverheadNear, Far: c.Far},
			Altitude:   c.OverheadAltitude,
		},
		camera.Free: {
			ID:         camera.Free,
			Projection: camera.Projection{FOV: c.FreeFOV, Aspect: aspect, Near: c.FreeNear, Far: c.Far},
		},
	}
	rigs := make([]camera.RigConfig, 0, len(c.RigOrder))
	for _, name := range c.RigOrder {
		id, err := camera.ParseRigID(name)
		if err != nil {
			return nil, err
		}
		rigs = append(rigs, byID[id])
	}
	return rigs, nil
}
