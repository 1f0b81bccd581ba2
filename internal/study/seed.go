package study

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

type SeedSubject struct {
	Name    string       `yaml:"name"`
	Modules []SeedModule `yaml:"modules"`
}

type SeedModule struct {
	Title       string          `yaml:"title"`
	Description string          `yaml:"description"`
	Submodules  []SeedSubmodule `yaml:"submodules"`
}

type SeedSubmodule struct {
	Title string `yaml:"title"`
	Body  string `yaml:"body"`
}

// ParseCatalog decodes a YAML content catalogue.
func ParseCatalog(raw []byte) ([]SeedSubject, error) {
	var catalog struct {
		Subjects []SeedSubject `yaml:"subjects"`
	}
	if err := yaml.Unmarshal(raw, &catalog); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	for i, subject := range catalog.Subjects {
		if subject.Name == "" {
			return nil, fmt.Errorf("parse catalog: subject %d has no name", i+1)
		}
		for j, module := range subject.Modules {
			if module.Title == "" {
				return nil, fmt.Errorf("parse catalog: subject %q module %d has no title", subject.Name, j+1)
			}
		}
	}
	return catalog.Subjects, nil
}

func DefaultCatalog() ([]SeedSubject, error) {
	return ParseCatalog(defaultCatalog)
}
