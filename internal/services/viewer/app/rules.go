package app

import (
	"context"
	"fmt"
	"slices"

	"github.com/louisbranch/campuswalk/internal/services/viewer/core/filter"
	"github.com/louisbranch/campuswalk/internal/services/viewer/domain/timeline"
	"github.com/louisbranch/campuswalk/internal/services/viewer/storage"
)

// storedRule combines the parts of a stored timeline: a filter expression or
// per-entity ranges pick the candidate years, then exclusion lists remove
// entities from individual years.
type storedRule struct {
	domain  []int
	base    timeline.Rule[int]
	exclude map[int][]string
}

func (r storedRule) Domain() []int {
	return slices.Clone(r.domain)
}

func (r storedRule) Keys(entity timeline.EntityInfo) []int {
	var keys []int
	for _, year := range r.base.Keys(entity) {
		if slices.Contains(r.exclude[year], entity.Name) {
			continue
		}
		keys = append(keys, year)
	}
	return keys
}

// RuleFromTimeline converts a stored timeline into a visibility rule. metaKeys
// lists the metadata keys the filter expression may reference.
func RuleFromTimeline(stored storage.Timeline, metaKeys ...string) (timeline.Rule[int], error) {
	domain := stored.Years()
	if len(domain) == 0 {
		return nil, fmt.Errorf("timeline %q: %w", stored.Scene, storage.ErrInvalidRange)
	}

	var base timeline.Rule[int]
	if stored.Filter != "" {
		rule, err := filter.NewRule(stored.Filter, domain, metaKeys...)
		if err != nil {
			return nil, fmt.Errorf("timeline %q: %w", stored.Scene, err)
		}
		base = rule
	} else {
		ranges := make(map[string]timeline.Range[int], len(stored.Ranges))
		for name, span := range stored.Ranges {
			ranges[name] = timeline.Range[int]{From: span.From, To: span.To}
		}
		base = timeline.RangeRule[int]{
			KeyDomain: domain,
			Ranges:    ranges,
			Default:   &timeline.Range[int]{From: stored.Domain.From, To: stored.Domain.To},
		}
	}
	return storedRule{domain: domain, base: base, exclude: stored.Exclusions}, nil
}

// LoadRule reads the timeline of sceneName from store and converts it.
func LoadRule(ctx context.Context, store storage.TimelineStore, sceneName string, metaKeys ...string) (timeline.Rule[int], error) {
	stored, err := store.GetTimeline(ctx, sceneName)
	if err != nil {
		return nil, fmt.Errorf("get timeline %q: %w", sceneName, err)
	}
	return RuleFromTimeline(stored, metaKeys...)
}

var (
	_ timeline.Rule[int]     = storedRule{}
	_ timeline.Domained[int] = storedRule{}
)
