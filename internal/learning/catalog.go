package learning

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"flashtrade-sim/internal/models"
)

//go:embed modules.yaml
var builtin []byte

type catalog struct {
	Modules []models.LearningModule `yaml:"modules"`
}

// Load returns the built-in module list.
func Load() ([]models.LearningModule, error) {
	return Parse(builtin)
}

// LoadFile reads a catalog from path; an empty path means the built-in list.
func LoadFile(path string) ([]models.LearningModule, error) {
	if path == "" {
		return Load()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read modules file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a catalog document. All modules start incomplete.
func Parse(data []byte) ([]models.LearningModule, error) {
	var c catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse modules: %w", err)
	}

	seen := make(map[int]bool, len(c.Modules))
	for i, m := range c.Modules {
		if seen[m.ID] {
			return nil, fmt.Errorf("duplicate module id %d", m.ID)
		}
		seen[m.ID] = true
		if m.Title == "" {
			return nil, fmt.Errorf("module %d has no title", m.ID)
		}
		switch m.Kind {
		case models.ModuleText, models.ModuleVideo:
		case "":
			c.Modules[i].Kind = models.ModuleText
		default:
			return nil, fmt.Errorf("module %d has unknown kind %q", m.ID, m.Kind)
		}
		c.Modules[i].Completed = false
	}
	return c.Modules, nil
}
