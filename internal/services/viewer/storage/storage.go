// Package storage defines persistence contracts for timeline visibility rules.
package storage

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound indicates a requested timeline record is missing.
	ErrNotFound = errors.New("record not found")
	// ErrInvalidRange indicates a year range whose end precedes its start.
	ErrInvalidRange = errors.New("year range end precedes start")
)

// YearRange is an inclusive span of years.
type YearRange struct {
	From int
	To   int
}

// Timeline stores the visibility rule inputs for one scene.
type Timeline struct {
	Scene  string
	Domain YearRange
	// Exclusions lists, per year, the entities hidden at that year.
	Exclusions map[int][]string
	// Ranges limits individual entities to a span of years.
	Ranges map[string]YearRange
	// Filter is an optional filter expression over entity fields and year.
	Filter    string
	UpdatedAt time.Time
}

// Years lists every year of the domain in order.
func (t Timeline) Years() []int {
	if t.Domain.To < t.Domain.From {
		return nil
	}
	years := make([]int, 0, t.Domain.To-t.Domain.From+1)
	for year := t.Domain.From; year <= t.Domain.To; year++ {
		years = append(years, year)
	}
	return years
}

// TimelineStore persists timeline rules keyed by scene.
type TimelineStore interface {
	// PutDomain creates the scene timeline or replaces its domain.
	PutDomain(ctx context.Context, scene string, domain YearRange) error
	// PutExclusions replaces the exclusion list of one year.
	PutExclusions(ctx context.Context, scene string, year int, names []string) error
	// PutRange sets the visible span of one entity.
	PutRange(ctx context.Context, scene, entity string, span YearRange) error
	// PutFilter sets the filter expression; an empty expression clears it.
	PutFilter(ctx context.Context, scene, expression string) error
	GetTimeline(ctx context.Context, scene string) (Timeline, error)
	DeleteTimeline(ctx context.Context, scene string) error
}
