package world

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// MapFile is the on-disk YAML shape of a dungeon.
//
//	name: Small Labyrinth
//	goal: 2
//	rows:
//	  - "#######"
//	  - "#G.S.E#"
//	  - "#######"
type MapFile struct {
	Name string   `yaml:"name"`
	Goal int      `yaml:"goal"`
	Rows []string `yaml:"rows"`
}

// LoadMapFile reads and validates a YAML map.
func LoadMapFile(path string) (*Map, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read map %s: %w", path, err)
	}
	return ParseMap(data)
}

// ParseMap decodes a YAML map document.
func ParseMap(data []byte) (*Map, error) {
	var mf MapFile
	if err := yaml.Unmarshal(data, &mf); err != nil {
		return nil, fmt.Errorf("decode map: %w", err)
	}
	if mf.Goal < 0 {
		return nil, fmt.Errorf("map %q: negative goal %d", mf.Name, mf.Goal)
	}
	return ParseRows(mf.Name, mf.Rows, mf.Goal)
}
