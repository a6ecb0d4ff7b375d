package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"smart-home-bot/internal/domain"
)

//go:embed catalog.yaml
var defaultCatalog []byte

type catalogFile struct {
	Templates []struct {
		Name   string            `yaml:"name"`
		Params map[string]string `yaml:"params"`
	} `yaml:"templates"`
}

// LoadCatalog reads device templates for seeding the store, or the built-in
// catalog when path is empty. Returned templates have no ID yet.
func LoadCatalog(path string) ([]domain.Device, error) {
	data := defaultCatalog
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading catalog file: %w", err)
		}
	}

	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}

	templates := make([]domain.Device, 0, len(file.Templates))
	seen := make(map[string]bool, len(file.Templates))
	for i, t := range file.Templates {
		if t.Name == "" {
			return nil, fmt.Errorf("catalog template %d: name is required", i)
		}
		if seen[t.Name] {
			return nil, fmt.Errorf("catalog template %q: duplicate name", t.Name)
		}
		seen[t.Name] = true

		params := t.Params
		if params == nil {
			params = map[string]string{}
		}
		templates = append(templates, domain.Device{Name: t.Name, Params: params})
	}
	return templates, nil
}
