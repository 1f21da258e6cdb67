// Package grid maps between world-space positions, grid coordinates, and
// parcel ids on the fixed square ownership grid.
package grid

import (
	"errors"
	"fmt"
	"math"
)

const (
	// Size is the number of parcels along each axis of the grid.
	Size = 40

	// CellSize is the width of one parcel in world units.
	CellSize = 16.0

	// ParcelCount is the total number of parcels on the grid.
	ParcelCount = Size * Size
)

// ErrOutOfRange is returned for coordinates or parcel ids outside the grid.
var ErrOutOfRange = errors.New("grid: out of range")

// Coord is a discrete parcel position on the grid.
type Coord struct {
	X int `json:"x"`
	Z int `json:"z"`
}

// InBounds reports whether c lies on the grid.
func InBounds(c Coord) bool {
	return c.X >= 0 && c.X < Size && c.Z >= 0 && c.Z < Size
}

// ParcelID returns the parcel id for a grid coordinate.
// The mapping is a bijection over [0, ParcelCount).
func ParcelID(c Coord) (int, error) {
	if !InBounds(c) {
		return 0, fmt.Errorf("%w: coord (%d, %d)", ErrOutOfRange, c.X, c.Z)
	}
	return c.X*Size + c.Z, nil
}

// CoordOf returns the grid coordinate for a parcel id.
func CoordOf(id int) (Coord, error) {
	if id < 0 || id >= ParcelCount {
		return Coord{}, fmt.Errorf("%w: parcel id %d", ErrOutOfRange, id)
	}
	return Coord{X: id / Size, Z: id % Size}, nil
}

// FromWorld returns the parcel containing the world-space position (wx, wz).
func FromWorld(wx, wz float64) (Coord, error) {
	c := Coord{
		X: int(math.Floor(wx / CellSize)),
		Z: int(math.Floor(wz / CellSize)),
	}
	if !InBounds(c) {
		return Coord{}, fmt.Errorf("%w: world position (%.1f, %.1f)", ErrOutOfRange, wx, wz)
	}
	return c, nil
}

// Center returns the world-space center of a parcel.
func Center(c Coord) (wx, wz float64) {
	return (float64(c.X) + 0.5) * CellSize, (float64(c.Z) + 0.5) * CellSize
}
