package mapping

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// File is the on-disk format of a mapping table.
//
//	mappings:
//	  - name: orders
//	    sourceEndpoint: /api/admin/orders
//	    destinationEndpoint: /api/v1/orders
//	    method: POST
//	    paginationStyle: cursor
type File struct {
	Mappings []EndpointMapping `yaml:"mappings"`
}

// LoadFile reads a YAML mapping table.
func LoadFile(path string) ([]EndpointMapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return file.Mappings, nil
}

// LoadRegistry returns the built-in registry, extended by the mappings in
// path when path is not empty.
func LoadRegistry(path string) (*Registry, error) {
	registry := DefaultRegistry()
	if path == "" {
		return registry, nil
	}
	overrides, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	return registry.Merge(overrides...)
}
