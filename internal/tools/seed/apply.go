package seed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/louisbranch/campuswalk/internal/services/viewer/storage"
)

// Options controls how a manifest is applied.
type Options struct {
	// Reset deletes the stored timeline first so stale rows do not survive.
	Reset   bool
	Verbose bool
	Out     io.Writer
}

// Summary counts what Apply wrote.
type Summary struct {
	Scene      string
	Years      int
	Exclusions int
	Ranges     int
	Filter     bool
}

// Apply validates manifest and writes it to store. Writing the same manifest
// twice leaves the store unchanged.
func Apply(ctx context.Context, store storage.TimelineStore, manifest Manifest, opts Options) (Summary, error) {
	if store == nil {
		return Summary{}, errors.New("timeline store is required")
	}
	if err := ValidateManifest(manifest); err != nil {
		return Summary{}, err
	}
	out := opts.Out
	if out == nil {
		out = io.Discard
	}
	logf := func(format string, args ...any) {
		if opts.Verbose {
			fmt.Fprintf(out, format+"\n", args...)
		}
	}

	scene := manifest.Scene
	summary := Summary{Scene: scene}

	if opts.Reset {
		if err := store.DeleteTimeline(ctx, scene); err != nil && !errors.Is(err, storage.ErrNotFound) {
			return summary, fmt.Errorf("reset %s: %w", scene, err)
		}
		logf("reset %s", scene)
	}

	domain := storage.YearRange{From: manifest.Domain.From, To: manifest.Domain.To}
	if err := store.PutDomain(ctx, scene, domain); err != nil {
		return summary, fmt.Errorf("put domain: %w", err)
	}
	logf("domain %s: %d-%d", scene, domain.From, domain.To)

	for _, year := range slices.Sorted(maps.Keys(manifest.Exclusions)) {
		names := manifest.Exclusions[year]
		if err := store.PutExclusions(ctx, scene, year, names); err != nil {
			return summary, fmt.Errorf("put exclusions %d: %w", year, err)
		}
		summary.Years++
		summary.Exclusions += len(names)
		logf("exclusions %s %d: %d entities", scene, year, len(names))
	}

	for _, name := range slices.Sorted(maps.Keys(manifest.Ranges)) {
		span := manifest.Ranges[name]
		if err := store.PutRange(ctx, scene, name, storage.YearRange{From: span.From, To: span.To}); err != nil {
			return summary, fmt.Errorf("put range %s: %w", name, err)
		}
		summary.Ranges++
		logf("range %s %s: %d-%d", scene, name, span.From, span.To)
	}

	if err := store.PutFilter(ctx, scene, manifest.Filter); err != nil {
		return summary, fmt.Errorf("put filter: %w", err)
	}
	summary.Filter = manifest.Filter != ""
	return summary, nil
}
