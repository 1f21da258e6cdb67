// Package pricing computes claim costs for unowned parcels: a per-district
// base cost modulated by a deterministic per-parcel noise field, so every
// process seeded the same way quotes identical costs.
package pricing

import (
	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/virtualand/landgrid/internal/grid"
)

const (
	// DefaultBase is the claim cost for parcels in districts without a
	// table entry (the Wilds).
	DefaultBase = 100

	// noiseFrequency spreads cost variation over a few parcels rather
	// than flipping per cell.
	noiseFrequency = 0.15

	// variation scales the noise contribution: costs stay within
	// ±30% of the district base.
	variation = 0.3
)

// Table quotes claim costs. Construct with New; zero value is not usable.
type Table struct {
	base  map[string]float64
	noise opensimplex.Noise
}

// New builds a pricing table with the default district bases and a noise
// field derived from seed.
func New(seed int64) *Table {
	return NewWithBases(seed, map[string]float64{
		"DEFI":    400,
		"ARTS":    250,
		"BAZAAR":  300,
		"HUB":     350,
		"COMMONS": 150,
	})
}

// NewWithBases builds a pricing table with explicit per-district base costs.
func NewWithBases(seed int64, bases map[string]float64) *Table {
	base := make(map[string]float64, len(bases))
	for id, b := range bases {
		base[id] = b
	}
	return &Table{
		base:  base,
		noise: opensimplex.NewNormalized(seed),
	}
}

// CostOf returns the claim cost for a parcel in a district. Pure and
// deterministic for a given seed.
func (t *Table) CostOf(c grid.Coord, districtID string) float64 {
	base, ok := t.base[districtID]
	if !ok {
		base = DefaultBase
	}
	// Normalized noise is in [0, 1]; recenter to [-1, 1].
	n := t.noise.Eval2(float64(c.X)*noiseFrequency, float64(c.Z)*noiseFrequency)*2 - 1
	cost := base * (1 + variation*n)
	if cost < 1 {
		cost = 1
	}
	return cost
}
