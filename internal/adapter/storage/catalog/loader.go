package catalog

import (
	"fmt"
	"os"

	"stacks-dao-reader/internal/domain/entity"

	"gopkg.in/yaml.v3"
)

// File is the on-disk catalog layout.
type File struct {
	Daos []entity.KnownDao `yaml:"daos"`
}

// LoadFile reads and validates a YAML catalog.
func LoadFile(path string) ([]entity.KnownDao, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	var f File
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if len(f.Daos) == 0 {
		return nil, fmt.Errorf("catalog %s: daos is empty", path)
	}

	for i := range f.Daos {
		if err := Validate(&f.Daos[i]); err != nil {
			return nil, fmt.Errorf("catalog %s: entry %d: %w", path, i, err)
		}
	}
	return f.Daos, nil
}

// Load returns the catalog named by path, or the built-in defaults when path is empty.
func Load(path string) ([]entity.KnownDao, error) {
	if path == "" {
		return DefaultDaos(), nil
	}
	return LoadFile(path)
}
