package walkthrough

import (
	"fmt"
	"log"
	"strings"
)

// AssertionMode controls how failed expectations are reported.
type AssertionMode int

const (
	// AssertionStrict stops the walkthrough at the first failed expectation.
	AssertionStrict AssertionMode = iota
	// AssertionLogOnly logs failed expectations and keeps going.
	AssertionLogOnly
)

func (m AssertionMode) String() string {
	if m == AssertionLogOnly {
		return "log"
	}
	return "strict"
}

// ParseAssertionMode parses "strict" or "log".
func ParseAssertionMode(value string) (AssertionMode, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "strict":
		return AssertionStrict, nil
	case "log", "log-only", "logonly":
		return AssertionLogOnly, nil
	default:
		return AssertionStrict, fmt.Errorf("unknown assertion mode %q", value)
	}
}

// Assertions reports step failures according to Mode.
type Assertions struct {
	Mode   AssertionMode
	Logger *log.Logger

	failures int
}

// Failf reports a failure that no mode can skip, such as a malformed step.
func (a *Assertions) Failf(format string, args ...any) error {
	return fmt.Errorf(format, args...)
}

// Assertf reports a failed expectation. In log-only mode it is logged and
// counted instead of returned.
func (a *Assertions) Assertf(format string, args ...any) error {
	if a.Mode != AssertionLogOnly {
		return fmt.Errorf(format, args...)
	}
	a.failures++
	if a.Logger != nil {
		a.Logger.Printf("assertion failed: "+format, args...)
	}
	return nil
}

// Failures returns the expectations that failed in log-only mode.
func (a *Assertions) Failures() int {
	return a.failures
}
