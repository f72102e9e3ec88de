package preset

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Catalog is the on-disk shape of a preset override file.
type Catalog struct {
	Issues []Issue `yaml:"issues" toml:"issues"`
	Links  []Link  `yaml:"links" toml:"links"`
}

// LoadFile reads a catalog from a .yaml/.yml or .toml file. Links fall back to
// SeedLinks when the file lists none.
func LoadFile(path string) (*MemoryStore, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read preset file: %w", err)
	}

	var catalog Catalog
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &catalog); err != nil {
			return nil, fmt.Errorf("parse preset yaml: %w", err)
		}
	case ".toml":
		if err := toml.Unmarshal(data, &catalog); err != nil {
			return nil, fmt.Errorf("parse preset toml: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported preset file extension %q", ext)
	}

	if err := catalog.validate(); err != nil {
		return nil, err
	}

	links := catalog.Links
	if len(links) == 0 {
		links = SeedLinks()
	}
	return NewMemoryStore(catalog.Issues, links), nil
}

// Load returns the override catalog when path is set, otherwise the built-in one.
func Load(path string) (*MemoryStore, error) {
	if strings.TrimSpace(path) == "" {
		return NewMemoryStore(Seed(), SeedLinks()), nil
	}
	return LoadFile(path)
}

func (c Catalog) validate() error {
	if len(c.Issues) == 0 {
		return fmt.Errorf("preset file defines no issues")
	}
	seen := make(map[string]struct{}, len(c.Issues))
	for i, issue := range c.Issues {
		if strings.TrimSpace(issue.ID) == "" || strings.TrimSpace(issue.Label) == "" {
			return fmt.Errorf("preset #%d: id and label are required", i+1)
		}
		if _, dup := seen[issue.ID]; dup {
			return fmt.Errorf("duplicate preset id %q", issue.ID)
		}
		seen[issue.ID] = struct{}{}
	}
	return nil
}
