// Package economy derives per-district, per-parcel, and per-building
// economic stats from the registry and static world content. Everything
// here is a pure computation: no mutation, no caching.
package economy

import (
	"github.com/virtualand/landgrid/internal/district"
	"github.com/virtualand/landgrid/internal/grid"
	"github.com/virtualand/landgrid/internal/registry"
	"github.com/virtualand/landgrid/internal/static"
)

// Weights carries the tunable heuristic constants. These are product
// configuration, not derived economics; defaults match the live tuning.
type Weights struct {
	TopParcelFactor float64 `yaml:"top_parcel_factor"`

	AirdropPerBuilding float64 `yaml:"airdrop_per_building"`
	AirdropPerExplored float64 `yaml:"airdrop_per_explored"`
	AirdropPerAvgPrice float64 `yaml:"airdrop_per_avg_price"`

	RatingPerBuilding float64 `yaml:"rating_per_building"`
	RatingPerExplored float64 `yaml:"rating_per_explored"`
	RatingPerForSale  float64 `yaml:"rating_per_for_sale"`

	ParcelValueFactor  float64 `yaml:"parcel_value_factor"`
	XPPerInteraction   float64 `yaml:"xp_per_interaction"`
	XPExplorationBonus float64 `yaml:"xp_exploration_bonus"`
	ScorePerBuilding   float64 `yaml:"score_per_building"`
	ScorePerVisit      float64 `yaml:"score_per_visit"`
}

// DefaultWeights returns the live heuristic tuning.
func DefaultWeights() Weights {
	return Weights{
		TopParcelFactor:    1.5,
		AirdropPerBuilding: 0.1,
		AirdropPerExplored: 0.5,
		AirdropPerAvgPrice: 0.0001,
		RatingPerBuilding:  2,
		RatingPerExplored:  0.3,
		RatingPerForSale:   5,
		ParcelValueFactor:  1.2,
		XPPerInteraction:   10,
		XPExplorationBonus: 50,
		ScorePerBuilding:   10,
		ScorePerVisit:      2,
	}
}

// DefaultXPMultipliers is the static per-district XP lookup. Districts
// absent from the table earn the neutral 1.0.
var DefaultXPMultipliers = map[string]float64{
	"DEFI":    1.5,
	"ARTS":    1.2,
	"BAZAAR":  1.3,
	"HUB":     1.1,
	"COMMONS": 1.0,
}

// Engine evaluates economy stats against one district table and building
// index. Share one instance; it holds no mutable state.
type Engine struct {
	Table         *district.Table
	Buildings     *static.Index
	Weights       Weights
	XPMultipliers map[string]float64
}

// NewEngine builds an engine with default weights and XP multipliers.
func NewEngine(table *district.Table, buildings *static.Index) *Engine {
	return &Engine{
		Table:         table,
		Buildings:     buildings,
		Weights:       DefaultWeights(),
		XPMultipliers: DefaultXPMultipliers,
	}
}

// DistrictStats is the composite per-district economy summary.
type DistrictStats struct {
	DistrictID    string   `json:"district_id"`
	ParcelCount   int      `json:"parcel_count"`
	VisitedCount  int      `json:"visited_count"`
	ExploredPct   float64  `json:"explored_pct"`
	BuildingCount int      `json:"building_count"`
	ForSaleCount  int      `json:"for_sale_count"`
	FloorPrice    *float64 `json:"floor_price,omitempty"`
	AvgPrice      *float64 `json:"avg_price,omitempty"`

	// TopParcelValue is a placeholder heuristic (avg price scaled), not
	// the value of an actual top parcel.
	TopParcelValue *float64 `json:"top_parcel_value,omitempty"`

	XPMultiplier  float64 `json:"xp_multiplier"`
	AirdropWeight float64 `json:"airdrop_weight"`
	EconomyRating float64 `json:"economy_rating"`
}

// DistrictStats aggregates the district's parcels, the player's visited set,
// and the building index into one composite score.
func (e *Engine) DistrictStats(d district.District, visited map[int]bool) DistrictStats {
	w := e.Weights
	s := DistrictStats{DistrictID: d.ID, XPMultiplier: 1.0}

	parcels := district.Parcels(d)
	s.ParcelCount = len(parcels)
	for _, c := range parcels {
		id, err := grid.ParcelID(c)
		if err != nil {
			continue
		}
		if visited[id] {
			s.VisitedCount++
		}
	}
	if s.ParcelCount > 0 {
		s.ExploredPct = float64(s.VisitedCount) / float64(s.ParcelCount) * 100
	}

	var priceSum float64
	var priced int
	for _, b := range e.Buildings.InDistrict(d.ID) {
		s.BuildingCount++
		if b.ForSale {
			s.ForSaleCount++
			if b.Price != nil {
				priceSum += *b.Price
				priced++
				if s.FloorPrice == nil || *b.Price < *s.FloorPrice {
					p := *b.Price
					s.FloorPrice = &p
				}
			}
		}
	}
	if priced > 0 {
		avg := priceSum / float64(priced)
		s.AvgPrice = &avg
		top := avg * w.TopParcelFactor
		s.TopParcelValue = &top
	}

	if m, ok := e.XPMultipliers[d.ID]; ok {
		s.XPMultiplier = m
	}

	avg := 0.0
	if s.AvgPrice != nil {
		avg = *s.AvgPrice
	}
	s.AirdropWeight = float64(s.BuildingCount)*w.AirdropPerBuilding +
		s.ExploredPct*w.AirdropPerExplored +
		avg*w.AirdropPerAvgPrice

	rating := float64(s.BuildingCount)*w.RatingPerBuilding +
		s.ExploredPct*w.RatingPerExplored +
		float64(s.ForSaleCount)*w.RatingPerForSale
	if rating > 100 {
		rating = 100
	}
	s.EconomyRating = rating

	return s
}

// ParcelStats is the per-parcel derived value and activity summary.
type ParcelStats struct {
	ParcelID     int      `json:"parcel_id"`
	CurrentValue *float64 `json:"current_value,omitempty"`

	// Appreciation is the percent change from acquisition cost to current
	// value; present only when both sides are known.
	Appreciation *float64 `json:"appreciation,omitempty"`

	InteractionsXP       float64 `json:"interactions_xp"`
	ExplorationXP        float64 `json:"exploration_xp"`
	DistrictEconomyScore float64 `json:"district_economy_score"`
	TotalValue           float64 `json:"total_value"`
}

// ParcelStats derives a parcel's stats from its buildings, the player's
// visit count, and its ownership record (nil when unowned).
func (e *Engine) ParcelStats(parcelID int, visitCount int, own *registry.Ownership) ParcelStats {
	w := e.Weights
	s := ParcelStats{ParcelID: parcelID}

	buildings := e.Buildings.OnParcel(parcelID)
	var valueSum float64
	for _, b := range buildings {
		if b.Price != nil {
			valueSum += *b.Price
		}
	}
	if len(buildings) > 0 {
		v := valueSum * w.ParcelValueFactor
		s.CurrentValue = &v
	}

	if own != nil && own.AcquisitionCost > 0 && s.CurrentValue != nil {
		a := (*s.CurrentValue - own.AcquisitionCost) / own.AcquisitionCost * 100
		s.Appreciation = &a
	}

	s.InteractionsXP = float64(visitCount) * w.XPPerInteraction
	if visitCount > 0 {
		s.ExplorationXP = w.XPExplorationBonus
	}

	score := float64(len(buildings))*w.ScorePerBuilding + float64(visitCount)*w.ScorePerVisit
	if score > 100 {
		score = 100
	}
	s.DistrictEconomyScore = score

	if s.CurrentValue != nil {
		s.TotalValue = *s.CurrentValue
	}
	s.TotalValue += valueSum

	return s
}

// BuildingStats is the per-building derived summary.
type BuildingStats struct {
	BuildingID   string   `json:"building_id"`
	PricePerSqFt *float64 `json:"price_per_sq_ft,omitempty"`
}

// BuildingStats derives per-unit-area pricing for one building; nil when
// the building carries no price.
func (e *Engine) BuildingStats(b static.Building) BuildingStats {
	s := BuildingStats{BuildingID: b.ID}
	area := b.Width * b.Depth
	if b.Price != nil && area > 0 {
		p := *b.Price / area
		s.PricePerSqFt = &p
	}
	return s
}
