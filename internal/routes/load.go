package routes

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed default_routes.yaml
var defaultRoutes []byte

type fileSpec struct {
	Home           string             `yaml:"home"`
	DetailPrefixes []string           `yaml:"detail_prefixes"`
	Music          map[string][]Track `yaml:"music"`
	Ambience       map[string]string  `yaml:"ambience"`
}

// Parse decodes a YAML route table.
func Parse(data []byte) (*Table, error) {
	var raw fileSpec
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTable, err)
	}
	spec := Spec{
		Home:           raw.Home,
		DetailPrefixes: raw.DetailPrefixes,
		Music:          make(map[string]Music, len(raw.Music)),
		Ambience:       raw.Ambience,
	}
	for route, tracks := range raw.Music {
		spec.Music[route] = Music{Tracks: tracks}
	}
	return New(spec)
}

// LoadFile reads a YAML route table from path.
func LoadFile(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read route table: %w", err)
	}
	t, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// Default returns the table shipped with the binary.
func Default() *Table {
	t, err := Parse(defaultRoutes)
	if err != nil {
		panic(fmt.Sprintf("embedded route table: %v", err))
	}
	return t
}

// DefaultYAML returns the shipped table's source, for use as a starting file.
func DefaultYAML() []byte {
	return append([]byte(nil), defaultRoutes...)
}
