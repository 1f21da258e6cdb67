package static

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/virtualand/landgrid/internal/district"
)

func fixtureTable(t *testing.T) *district.Table {
	t.Helper()
	tbl, err := district.NewTable([]district.District{
		{ID: "WEST", Name: "West", Color: "#111111", Rect: district.Rect{MinX: 0, MinZ: 0, MaxX: 320, MaxZ: 640}},
		{ID: "EAST", Name: "East", Color: "#222222", Rect: district.Rect{MinX: 320, MinZ: 0, MaxX: 640, MaxZ: 640}},
	})
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	return tbl
}

func price(v float64) *float64 { return &v }

func TestIndexLookups(t *testing.T) {
	tbl := fixtureTable(t)
	idx, err := NewIndex([]Building{
		{ID: "b1", ParcelID: 0, Width: 10, Depth: 10, Price: price(1000), ForSale: true},
		{ID: "b2", ParcelID: 0, Width: 5, Depth: 5},
		{ID: "b3", ParcelID: 900, Width: 8, Depth: 8, Price: price(500), ForSale: true},
	}, tbl)
	if err != nil {
		t.Fatalf("NewIndex: %v", err)
	}

	if got := idx.OnParcel(0); len(got) != 2 {
		t.Fatalf("OnParcel(0): got %d buildings, want 2", len(got))
	}
	if got := idx.OnParcel(5); len(got) != 0 {
		t.Fatalf("OnParcel(5): got %d buildings, want 0", len(got))
	}

	// Parcel 0 is column 0 (WEST); parcel 900 is column 22 (EAST).
	if got := idx.InDistrict("WEST"); len(got) != 2 {
		t.Fatalf("InDistrict(WEST): got %d, want 2", len(got))
	}
	if got := idx.InDistrict("EAST"); len(got) != 1 || got[0].ID != "b3" {
		t.Fatalf("InDistrict(EAST): got %+v", got)
	}
}

func TestIndexValidation(t *testing.T) {
	tbl := fixtureTable(t)
	if _, err := NewIndex([]Building{{ID: "bad", ParcelID: -3, Width: 1, Depth: 1}}, tbl); err == nil {
		t.Fatalf("out-of-range parcel accepted")
	}
	if _, err := NewIndex([]Building{{ID: "flat", ParcelID: 0, Width: 0, Depth: 4}}, tbl); err == nil {
		t.Fatalf("zero-width building accepted")
	}
}

func TestLoadIndex(t *testing.T) {
	tbl := fixtureTable(t)
	path := filepath.Join(t.TempDir(), "buildings.yaml")
	yaml := `buildings:
  - id: tower
    parcel_id: 41
    width: 12
    depth: 12
    price: 2500
    for_sale: true
  - id: shed
    parcel_id: 41
    width: 3
    depth: 3
`
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	idx, err := LoadIndex(path, tbl)
	if err != nil {
		t.Fatalf("LoadIndex: %v", err)
	}
	got := idx.OnParcel(41)
	if len(got) != 2 {
		t.Fatalf("loaded buildings on parcel 41: got %d, want 2", len(got))
	}
	if got[0].Price == nil || *got[0].Price != 2500 {
		t.Fatalf("tower price: %+v", got[0].Price)
	}
	if got[1].Price != nil {
		t.Fatalf("shed should have no price: %+v", got[1].Price)
	}
}
