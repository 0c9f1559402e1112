// Package timeline maps timeline keys (years) to the scene entities visible at
// each key and applies the active key to the entity registry.
package timeline

import (
	"fmt"

	"github.com/louisbranch/campuswalk/internal/services/viewer/domain/scene"
)

// UnknownKeyWarning reports a timeline key without a bucket. It is never
// fatal: the index hides every entity and keeps running.
type UnknownKeyWarning struct {
	Key any
}

func (w *UnknownKeyWarning) Error() string {
	return fmt.Sprintf("timeline key %v has no bucket; hiding all entities", w.Key)
}

// WarningFunc receives non-fatal index warnings.
type WarningFunc func(warning *UnknownKeyWarning)

// Target is the visibility surface the index drives.
type Target interface {
	AllNames() []string
	SetVisible(name string, visible bool)
}

// Bucket is the ordered set of names visible at one key.
type Bucket[K comparable] struct {
	Key   K
	Names []string
}

// BuildIndex groups entities into buckets keyed by rule output. Bucket names
// follow entity order. Rules that declare a domain get a bucket per domain
// key even when it stays empty.
func BuildIndex[K comparable](entities []EntityInfo, rule Rule[K]) map[K][]string {
	buckets := make(map[K][]string)
	if rule == nil {
		return buckets
	}
	if domained, ok := rule.(Domained[K]); ok {
		for _, key := range domained.Domain() {
			if _, exists := buckets[key]; !exists {
				buckets[key] = []string{}
			}
		}
	}
	for _, entity := range entities {
		seen := make(map[K]struct{})
		for _, key := range rule.Keys(entity) {
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			buckets[key] = append(buckets[key], entity.Name)
		}
	}
	return buckets
}

// Entities snapshots registry entities as rule input.
func Entities(registry *scene.Registry) []EntityInfo {
	var entities []EntityInfo
	registry.Each(func(entity *scene.Entity) {
		entities = append(entities, EntityInfo{
			Name:        entity.Name,
			HasGeometry: entity.HasGeometry,
			Metadata:    entity.Metadata,
		})
	})
	return entities
}

// Index applies timeline keys to a visibility target.
type Index[K comparable] struct {
	target  Target
	warn    WarningFunc
	buckets map[K]map[string]struct{}
	ordered map[K][]string
	keys    []K

	current    K
	hasCurrent bool
}

// NewIndex creates an empty index bound to target. warn may be nil.
func NewIndex[K comparable](target Target, warn WarningFunc) *Index[K] {
	return &Index[K]{
		target:  target,
		warn:    warn,
		buckets: make(map[K]map[string]struct{}),
		ordered: make(map[K][]string),
	}
}

// Rebuild replaces the buckets with the rule output for entities.
func (x *Index[K]) Rebuild(entities []EntityInfo, rule Rule[K]) {
	x.Load(BuildIndex(entities, rule), orderedDomain(entities, rule))
}

// Load replaces the buckets with a prebuilt mapping. order fixes Keys order;
// keys missing from order are appended in unspecified order.
func (x *Index[K]) Load(mapping map[K][]string, order []K) {
	x.buckets = make(map[K]map[string]struct{}, len(mapping))
	x.ordered = make(map[K][]string, len(mapping))
	x.keys = x.keys[:0]
	for _, key := range order {
		names, ok := mapping[key]
		if !ok {
			continue
		}
		if _, dup := x.buckets[key]; dup {
			continue
		}
		x.put(key, names)
	}
	for key, names := range mapping {
		if _, done := x.buckets[key]; done {
			continue
		}
		x.put(key, names)
	}
}

func (x *Index[K]) put(key K, names []string) {
	set := make(map[string]struct{}, len(names))
	ordered := make([]string, 0, len(names))
	for _, name := range names {
		if _, dup := set[name]; dup {
			continue
		}
		set[name] = struct{}{}
		ordered = append(ordered, name)
	}
	x.buckets[key] = set
	x.ordered[key] = ordered
	x.keys = append(x.keys, key)
}

// SetTimelineKey shows exactly the entities in the bucket for key and hides
// every other entity. A key without a bucket hides everything and reports one
// UnknownKeyWarning.
func (x *Index[K]) SetTimelineKey(key K) {
	x.current = key
	x.hasCurrent = true

	bucket, ok := x.buckets[key]
	if !ok && x.warn != nil {
		x.warn(&UnknownKeyWarning{Key: key})
	}
	if x.target == nil {
		return
	}
	for _, name := range x.target.AllNames() {
		_, visible := bucket[name]
		x.target.SetVisible(name, visible)
	}
}

// Reapply re-applies the current key, if any, without reporting warnings
// twice for the same unknown key.
func (x *Index[K]) Reapply() {
	if !x.hasCurrent {
		return
	}
	bucket := x.buckets[x.current]
	if x.target == nil {
		return
	}
	for _, name := range x.target.AllNames() {
		_, visible := bucket[name]
		x.target.SetVisible(name, visible)
	}
}

// Key returns the current key and whether one was set.
func (x *Index[K]) Key() (K, bool) {
	return x.current, x.hasCurrent
}

// HasKey reports whether key has a bucket.
func (x *Index[K]) HasKey(key K) bool {
	_, ok := x.buckets[key]
	return ok
}

// Keys returns the bucket keys in domain order.
func (x *Index[K]) Keys() []K {
	keys := make([]K, len(x.keys))
	copy(keys, x.keys)
	return keys
}

// Bucket returns the bucket for key.
func (x *Index[K]) Bucket(key K) (Bucket[K], bool) {
	names, ok := x.ordered[key]
	if !ok {
		return Bucket[K]{}, false
	}
	out := make([]string, len(names))
	copy(out, names)
	return Bucket[K]{Key: key, Names: out}, true
}

// orderedDomain returns the declared domain, or keys in first-seen entity order.
func orderedDomain[K comparable](entities []EntityInfo, rule Rule[K]) []K {
	if rule == nil {
		return nil
	}
	if domained, ok := rule.(Domained[K]); ok {
		return domained.Domain()
	}
	var order []K
	seen := make(map[K]struct{})
	for _, entity := range entities {
		for _, key := range rule.Keys(entity) {
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			order = append(order, key)
		}
	}
	return order
}
