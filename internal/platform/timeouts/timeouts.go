// Package timeouts defines timeout constants shared by the campuswalk
// commands.
package timeouts

import "time"

// WalkthroughStep caps one scripted walkthrough step.
const WalkthroughStep = 10 * time.Second

// TelemetryShutdown limits how long a command waits for spans to flush on exit.
const TelemetryShutdown = 5 * time.Second
