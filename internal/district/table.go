package district

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Default returns the built-in district table used when no external
// definition file is supplied. Order matters: it is resolution precedence.
func Default() *Table {
	t, err := NewTable([]District{
		{ID: "DEFI", Name: "DeFi Quarter", Color: "#22d3ee", Rect: Rect{MinX: 0, MinZ: 0, MaxX: 160, MaxZ: 160}},
		{ID: "ARTS", Name: "Arts Enclave", Color: "#f472b6", Rect: Rect{MinX: 160, MinZ: 0, MaxX: 320, MaxZ: 160}},
		{ID: "BAZAAR", Name: "Grand Bazaar", Color: "#fbbf24", Rect: Rect{MinX: 0, MinZ: 160, MaxX: 160, MaxZ: 320}},
		{ID: "HUB", Name: "Transit Hub", Color: "#a78bfa", Rect: Rect{MinX: 256, MinZ: 256, MaxX: 416, MaxZ: 416}},
		{ID: "COMMONS", Name: "The Commons", Color: "#34d399", Rect: Rect{MinX: 480, MinZ: 480, MaxX: 640, MaxZ: 640}},
	})
	if err != nil {
		panic(err) // built-in table is static; a failure here is a programming error
	}
	return t
}

type tableFile struct {
	Districts []District `yaml:"districts"`
}

// LoadTable reads an ordered district list from a YAML file.
func LoadTable(path string) (*Table, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read district table: %w", err)
	}
	var f tableFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse district table: %w", err)
	}
	t, err := NewTable(f.Districts)
	if err != nil {
		return nil, fmt.Errorf("district table %s: %w", path, err)
	}
	return t, nil
}
