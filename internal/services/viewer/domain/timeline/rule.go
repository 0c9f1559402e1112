package timeline

import (
	"cmp"
	"slices"
)

// EntityInfo is the rule input for one scene entity.
type EntityInfo struct {
	Name        string
	HasGeometry bool
	Metadata    map[string]string
}

// Rule maps an entity to the timeline keys at which it is visible.
//
// Rules must be pure: the same entity always yields the same keys.
type Rule[K comparable] interface {
	Keys(entity EntityInfo) []K
}

// Domained is implemented by rules that declare their full key domain. Every
// domain key gets a bucket, even when no entity is visible at it.
type Domained[K comparable] interface {
	Domain() []K
}

// RuleFunc adapts a function to Rule.
type RuleFunc[K comparable] func(entity EntityInfo) []K

// Keys calls f.
func (f RuleFunc[K]) Keys(entity EntityInfo) []K {
	if f == nil {
		return nil
	}
	return f(entity)
}

// ExclusionRule shows every entity at every domain key except the keys whose
// exclusion list names it.
type ExclusionRule[K comparable] struct {
	KeyDomain []K
	Exclude   map[K][]string
}

// NewExclusionRule builds an ExclusionRule over domain.
func NewExclusionRule[K comparable](domain []K, exclude map[K][]string) ExclusionRule[K] {
	return ExclusionRule[K]{KeyDomain: slices.Clone(domain), Exclude: exclude}
}

// Domain returns the declared keys.
func (r ExclusionRule[K]) Domain() []K {
	return slices.Clone(r.KeyDomain)
}

// Keys returns the domain keys that do not exclude entity.
func (r ExclusionRule[K]) Keys(entity EntityInfo) []K {
	keys := make([]K, 0, len(r.KeyDomain))
	for _, key := range r.KeyDomain {
		if slices.Contains(r.Exclude[key], entity.Name) {
			continue
		}
		keys = append(keys, key)
	}
	return keys
}

// Range is an inclusive key interval.
type Range[K cmp.Ordered] struct {
	From K
	To   K
}

// Contains reports whether key lies within the range.
func (r Range[K]) Contains(key K) bool {
	return key >= r.From && key <= r.To
}

// RangeRule shows each entity over its own key range. Entities without a
// range use Default, or are never visible when Default is nil.
type RangeRule[K cmp.Ordered] struct {
	KeyDomain []K
	Ranges    map[string]Range[K]
	Default   *Range[K]
}

// Domain returns the declared keys.
func (r RangeRule[K]) Domain() []K {
	return slices.Clone(r.KeyDomain)
}

// Keys returns the domain keys inside the entity range.
func (r RangeRule[K]) Keys(entity EntityInfo) []K {
	span, ok := r.Ranges[entity.Name]
	if !ok {
		if r.Default == nil {
			return nil
		}
		span = *r.Default
	}
	var keys []K
	for _, key := range r.KeyDomain {
		if span.Contains(key) {
			keys = append(keys, key)
		}
	}
	return keys
}

// ExplicitRule lists the keys of each entity directly.
type ExplicitRule[K comparable] map[string][]K

// Keys returns the listed keys for entity.
func (r ExplicitRule[K]) Keys(entity EntityInfo) []K {
	return slices.Clone(r[entity.Name])
}

// DomainRange lists every integer key from min to max inclusive.
func DomainRange(min, max int) []int {
	if max < min {
		return nil
	}
	keys := make([]int, 0, max-min+1)
	for key := min; key <= max; key++ {
		keys = append(keys, key)
	}
	return keys
}
