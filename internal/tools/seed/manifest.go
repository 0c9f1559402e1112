// Package seed writes timeline manifests into a timeline store so the viewer
// can load them by scene name.
package seed

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"slices"
	"strings"

	"github.com/louisbranch/campuswalk/internal/services/viewer/core/filter"
	"github.com/louisbranch/campuswalk/internal/services/viewer/domain/timeline"
	"github.com/louisbranch/campuswalk/internal/tools/seed/manifests"
)

// Manifest declares one scene timeline.
type Manifest struct {
	Name   string        `json:"name"`
	Scene  string        `json:"scene"`
	Domain ManifestRange `json:"domain"`
	// Exclusions lists, per year, the entities hidden in that year.
	Exclusions map[int][]string `json:"exclusions,omitempty"`
	// Ranges limits entities to a span of years.
	Ranges map[string]ManifestRange `json:"ranges,omitempty"`
	Filter string                   `json:"filter,omitempty"`
	// MetaKeys lists the metadata keys the filter may reference.
	MetaKeys []string `json:"meta_keys,omitempty"`
}

// ManifestRange is an inclusive span of years.
type ManifestRange struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// LoadManifest reads a manifest file. Unknown fields are rejected.
func LoadManifest(filePath string) (Manifest, error) {
	raw, err := os.ReadFile(filePath)
	if err != nil {
		return Manifest{}, fmt.Errorf("read manifest: %w", err)
	}
	return decodeManifest(bytes.NewReader(raw))
}

// BundledManifest returns a manifest shipped with the binary by name.
func BundledManifest(name string) (Manifest, error) {
	raw, err := fs.ReadFile(manifests.FS, path.Clean(name)+".json")
	if err != nil {
		return Manifest{}, fmt.Errorf("bundled manifest %q: %w", name, err)
	}
	return decodeManifest(bytes.NewReader(raw))
}

// BundledNames lists the bundled manifest names.
func BundledNames() ([]string, error) {
	entries, err := fs.ReadDir(manifests.FS, ".")
	if err != nil {
		return nil, err
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() || path.Ext(entry.Name()) != ".json" {
			continue
		}
		names = append(names, strings.TrimSuffix(entry.Name(), ".json"))
	}
	slices.Sort(names)
	return names, nil
}

func decodeManifest(r io.Reader) (Manifest, error) {
	decoder := json.NewDecoder(r)
	decoder.DisallowUnknownFields()
	var manifest Manifest
	if err := decoder.Decode(&manifest); err != nil {
		return Manifest{}, fmt.Errorf("decode manifest: %w", err)
	}
	return manifest, nil
}

// ValidateManifest checks the manifest before anything is written.
func ValidateManifest(manifest Manifest) error {
	if strings.TrimSpace(manifest.Scene) == "" {
		return errors.New("manifest scene is required")
	}
	domain := manifest.Domain
	if domain.From == 0 || domain.To == 0 || domain.From > domain.To {
		return fmt.Errorf("manifest domain %d-%d is invalid", domain.From, domain.To)
	}

	for year, names := range manifest.Exclusions {
		if year < domain.From || year > domain.To {
			return fmt.Errorf("exclusions year %d outside %d-%d", year, domain.From, domain.To)
		}
		for _, name := range names {
			if strings.TrimSpace(name) == "" {
				return fmt.Errorf("exclusions year %d has an empty entity name", year)
			}
		}
	}
	for name, span := range manifest.Ranges {
		if strings.TrimSpace(name) == "" {
			return errors.New("ranges has an empty entity name")
		}
		if span.From > span.To {
			return fmt.Errorf("range %s %d-%d is invalid", name, span.From, span.To)
		}
	}
	if manifest.Filter != "" {
		years := timeline.DomainRange(domain.From, domain.To)
		if _, err := filter.NewRule(manifest.Filter, years, manifest.MetaKeys...); err != nil {
			return fmt.Errorf("manifest filter: %w", err)
		}
	}
	return nil
}
