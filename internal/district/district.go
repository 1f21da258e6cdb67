// Package district holds the static district table and resolves parcels to
// districts. Districts are a fixed set owned by world-content configuration;
// nothing here is created or destroyed at runtime.
package district

import (
	"fmt"

	"github.com/virtualand/landgrid/internal/grid"
)

// Rect is an axis-aligned bounding rectangle in world units.
// Min edges are inclusive, max edges exclusive, so adjacent rects tile
// cleanly without double-claiming a boundary point.
type Rect struct {
	MinX float64 `json:"min_x" yaml:"min_x"`
	MinZ float64 `json:"min_z" yaml:"min_z"`
	MaxX float64 `json:"max_x" yaml:"max_x"`
	MaxZ float64 `json:"max_z" yaml:"max_z"`
}

// Contains reports whether the world-space point (wx, wz) lies in the rect.
func (r Rect) Contains(wx, wz float64) bool {
	return wx >= r.MinX && wx < r.MaxX && wz >= r.MinZ && wz < r.MaxZ
}

// District is one named, colored world-space region.
type District struct {
	ID    string `json:"id" yaml:"id"`
	Name  string `json:"name" yaml:"name"`
	Color string `json:"color" yaml:"color"`
	Rect  Rect   `json:"rect" yaml:"rect"`
}

// Wilds is the neutral district assigned to parcels no rect claims.
var Wilds = District{
	ID:    "WILDS",
	Name:  "The Wilds",
	Color: "#6b7280",
}

// Table is the ordered district list. Resolution precedence follows
// definition order, which must be preserved exactly for reproducibility.
type Table struct {
	districts []District
	byID      map[string]District
}

// NewTable validates and indexes an ordered district list.
func NewTable(districts []District) (*Table, error) {
	byID := make(map[string]District, len(districts))
	for i, d := range districts {
		if d.ID == "" {
			return nil, fmt.Errorf("district %d: empty id", i)
		}
		if _, dup := byID[d.ID]; dup {
			return nil, fmt.Errorf("district %q: duplicate id", d.ID)
		}
		if d.Rect.MaxX <= d.Rect.MinX || d.Rect.MaxZ <= d.Rect.MinZ {
			return nil, fmt.Errorf("district %q: degenerate rect %+v", d.ID, d.Rect)
		}
		byID[d.ID] = d
	}
	return &Table{districts: districts, byID: byID}, nil
}

// All returns the districts in definition order.
func (t *Table) All() []District {
	out := make([]District, len(t.districts))
	copy(out, t.districts)
	return out
}

// Get returns the district with the given id, if defined.
// Wilds is always gettable even though it carries no rect.
func (t *Table) Get(id string) (District, bool) {
	if id == Wilds.ID {
		return Wilds, true
	}
	d, ok := t.byID[id]
	return d, ok
}

// Resolve returns the district owning a parcel: the first rect (in
// definition order) containing the parcel's world-space center, else Wilds.
func (t *Table) Resolve(c grid.Coord) District {
	wx, wz := grid.Center(c)
	for _, d := range t.districts {
		if d.Rect.Contains(wx, wz) {
			return d
		}
	}
	return Wilds
}

// Parcels returns every grid parcel whose cell bounds intersect the
// district's rect, by direct cell-range enumeration. Exact: no sampling,
// no boundary under-counting.
func Parcels(d District) []grid.Coord {
	r := d.Rect
	if r.MaxX <= r.MinX || r.MaxZ <= r.MinZ {
		return nil
	}
	const extent = grid.Size * grid.CellSize
	if r.MaxX <= 0 || r.MinX >= extent || r.MaxZ <= 0 || r.MinZ >= extent {
		return nil
	}
	x0 := clampCell(r.MinX, false)
	x1 := clampCell(r.MaxX, true)
	z0 := clampCell(r.MinZ, false)
	z1 := clampCell(r.MaxZ, true)

	var out []grid.Coord
	for x := x0; x <= x1; x++ {
		for z := z0; z <= z1; z++ {
			out = append(out, grid.Coord{X: x, Z: z})
		}
	}
	return out
}

// clampCell converts a world-axis bound to a cell index clamped to the grid.
// Exclusive upper bounds landing exactly on a cell edge do not include the
// cell beyond the edge.
func clampCell(w float64, upper bool) int {
	cell := int(w / grid.CellSize)
	if upper {
		if float64(cell)*grid.CellSize == w {
			cell--
		}
		if cell > grid.Size-1 {
			cell = grid.Size - 1
		}
	}
	if cell < 0 {
		cell = 0
	}
	if cell > grid.Size-1 {
		cell = grid.Size - 1
	}
	return cell
}

// sampleDensity is the points-per-axis-unit constant the sampled
// approximation was tuned with.
const sampleDensity = 0.25

// ParcelsSampled approximates the district's parcel set by sampling a fixed
// density point lattice across the rect and deduplicating the hit parcels.
// Known to under-count at boundaries and on small districts; kept for
// consumers tuned against its output. New code should use Parcels.
func ParcelsSampled(d District) []grid.Coord {
	r := d.Rect
	step := 1.0 / sampleDensity

	seen := make(map[grid.Coord]bool)
	var out []grid.Coord
	for wx := r.MinX; wx < r.MaxX; wx += step {
		for wz := r.MinZ; wz < r.MaxZ; wz += step {
			c, err := grid.FromWorld(wx, wz)
			if err != nil {
				continue
			}
			if !seen[c] {
				seen[c] = true
				out = append(out, c)
			}
		}
	}
	return out
}
