// Package geo turns precise coordinates into coarse, human-readable area
// labels. Coordinates are only ever inputs; nothing here stores them.
package geo

import (
	"context"
	"errors"
	"math"
)

var ErrInvalidCoordinates = errors.New("invalid coordinates")

// Point is a WGS84 coordinate supplied by a client.
type Point struct {
	Lat float64
	Lon float64
}

func (p Point) Valid() bool {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lon) {
		return false
	}
	return p.Lat >= -90 && p.Lat <= 90 && p.Lon >= -180 && p.Lon <= 180
}

// Locator resolves a point to a general area label. An empty label means
// the point is not inside any known area.
type Locator interface {
	Generalize(ctx context.Context, p Point) (string, error)
}

// Region is a named bounding box. The first matching region wins.
type Region struct {
	Label  string  `json:"label"`
	MinLat float64 `json:"min_lat"`
	MaxLat float64 `json:"max_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLon float64 `json:"max_lon"`
}

func (r Region) contains(p Point) bool {
	return p.Lat >= r.MinLat && p.Lat <= r.MaxLat && p.Lon >= r.MinLon && p.Lon <= r.MaxLon
}

// Regions is a static Locator over a list of bounding boxes.
type Regions []Region

func (rs Regions) Generalize(_ context.Context, p Point) (string, error) {
	if !p.Valid() {
		return "", ErrInvalidCoordinates
	}
	for _, r := range rs {
		if r.contains(p) {
			return r.Label, nil
		}
	}
	return "", nil
}
