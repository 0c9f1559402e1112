package walkthrough

import (
	"fmt"
	"math"
	"strings"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/louisbranch/campuswalk/internal/services/viewer/app"
)

func (r *Runner) failf(format string, args ...any) error {
	return r.assertions.Failf(format, args...)
}

func (r *Runner) assertf(format string, args ...any) error {
	return r.assertions.Assertf(format, args...)
}

func requiredString(args map[string]any, key string) (string, error) {
	value, ok := args[key].(string)
	if !ok || strings.TrimSpace(value) == "" {
		return "", fmt.Errorf("%s is required", key)
	}
	return value, nil
}

func readInt(args map[string]any, key string) (int, error) {
	switch value := args[key].(type) {
	case int:
		return value, nil
	case float64:
		if math.Mod(value, 1) != 0 {
			return 0, fmt.Errorf("%s must be an integer", key)
		}
		return int(value), nil
	default:
		return 0, fmt.Errorf("%s is required", key)
	}
}

func readFloat(args map[string]any, key string) (float64, error) {
	switch value := args[key].(type) {
	case int:
		return float64(value), nil
	case float64:
		return value, nil
	default:
		return 0, fmt.Errorf("%s is required", key)
	}
}

func optionalString(args map[string]any, key, fallback string) string {
	if value, ok := args[key].(string); ok && value != "" {
		return value
	}
	return fallback
}

func optionalInt(args map[string]any, key string, fallback int) int {
	if value, err := readInt(args, key); err == nil {
		return value
	}
	return fallback
}

func optionalFloat(args map[string]any, key string, fallback float64) float64 {
	if value, err := readFloat(args, key); err == nil {
		return value
	}
	return fallback
}

func optionalBool(args map[string]any, key string, fallback bool) bool {
	if value, ok := args[key].(bool); ok {
		return value
	}
	return fallback
}

func readVector(args map[string]any) (mgl64.Vec3, error) {
	var out mgl64.Vec3
	for i, key := range []string{"x", "y", "z"} {
		value, err := readFloat(args, key)
		if err != nil {
			return mgl64.Vec3{}, err
		}
		out[i] = value
	}
	return out, nil
}

func readNames(args map[string]any) []string {
	switch value := args["names"].(type) {
	case []string:
		return value
	case []any:
		return toStrings(value)
	default:
		return nil
	}
}

// keyName maps readable key names to session key values.
func keyName(value string) string {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "forward", "up":
		return app.KeyForward
	case "backward", "back", "down":
		return app.KeyBackward
	case "left":
		return app.KeyLeft
	case "right":
		return app.KeyRight
	case "space", "toggle":
		return app.KeyToggleCamera
	default:
		return value
	}
}
