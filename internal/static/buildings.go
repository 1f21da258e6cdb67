// Package static holds read-only world-content reference data: the building
// index. Buildings are owned by content configuration; this subsystem never
// mutates them.
package static

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/virtualand/landgrid/internal/district"
	"github.com/virtualand/landgrid/internal/grid"
)

// Building is one static structure placed on exactly one parcel.
type Building struct {
	ID       string   `json:"id" yaml:"id"`
	ParcelID int      `json:"parcel_id" yaml:"parcel_id"`
	Width    float64  `json:"width" yaml:"width"`
	Depth    float64  `json:"depth" yaml:"depth"`
	Price    *float64 `json:"price,omitempty" yaml:"price,omitempty"`
	ForSale  bool     `json:"for_sale" yaml:"for_sale"`
}

// Index is the building set with per-parcel and per-district lookups.
type Index struct {
	buildings  []Building
	byParcel   map[int][]Building
	byDistrict map[string][]Building
}

// NewIndex validates buildings and precomputes lookups. District membership
// is resolved once at construction from each building's parcel.
func NewIndex(buildings []Building, table *district.Table) (*Index, error) {
	idx := &Index{
		buildings:  buildings,
		byParcel:   make(map[int][]Building),
		byDistrict: make(map[string][]Building),
	}
	for _, b := range buildings {
		c, err := grid.CoordOf(b.ParcelID)
		if err != nil {
			return nil, fmt.Errorf("building %q: %w", b.ID, err)
		}
		if b.Width <= 0 || b.Depth <= 0 {
			return nil, fmt.Errorf("building %q: non-positive footprint %vx%v", b.ID, b.Width, b.Depth)
		}
		idx.byParcel[b.ParcelID] = append(idx.byParcel[b.ParcelID], b)
		d := table.Resolve(c)
		idx.byDistrict[d.ID] = append(idx.byDistrict[d.ID], b)
	}
	return idx, nil
}

// All returns every building.
func (i *Index) All() []Building {
	out := make([]Building, len(i.buildings))
	copy(out, i.buildings)
	return out
}

// OnParcel returns the buildings placed on a parcel.
func (i *Index) OnParcel(parcelID int) []Building {
	return i.byParcel[parcelID]
}

// InDistrict returns the buildings whose parcel resolves to the district.
func (i *Index) InDistrict(districtID string) []Building {
	return i.byDistrict[districtID]
}

type indexFile struct {
	Buildings []Building `yaml:"buildings"`
}

// LoadIndex reads a building index from a YAML file.
func LoadIndex(path string, table *district.Table) (*Index, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read building index: %w", err)
	}
	var f indexFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse building index: %w", err)
	}
	idx, err := NewIndex(f.Buildings, table)
	if err != nil {
		return nil, fmt.Errorf("building index %s: %w", path, err)
	}
	return idx, nil
}
