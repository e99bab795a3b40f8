package feeds

import (
	"encoding/json"
	"errors"
)

// Shared GeoJSON shapes. Properties stay raw because every feed defines its
// own property set; each fetcher decodes them into its own struct.

type featureCollection struct {
	Features []feature `json:"features"`
}

type feature struct {
	Geometry   *geometry       `json:"geometry"`
	Properties json.RawMessage `json:"properties"`
}

type geometry struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

var errNoPoint = errors.New("geometry has no usable point")

// point reduces a geometry to a single lat/lon. Points are taken as-is;
// polygons collapse to the centroid of their outer ring, which is what a
// map marker for an alert area needs.
func (g *geometry) point() (lat, lon float64, err error) {
	if g == nil {
		return 0, 0, errNoPoint
	}
	switch g.Type {
	case "Point":
		var coords []float64 // [lon, lat, (elevation)]
		if err := json.Unmarshal(g.Coordinates, &coords); err != nil || len(coords) < 2 {
			return 0, 0, errNoPoint
		}
		return coords[1], coords[0], nil
	case "Polygon":
		var rings [][][]float64
		if err := json.Unmarshal(g.Coordinates, &rings); err != nil || len(rings) == 0 || len(rings[0]) == 0 {
			return 0, 0, errNoPoint
		}
		var sumLat, sumLon float64
		for _, c := range rings[0] {
			if len(c) < 2 {
				return 0, 0, errNoPoint
			}
			sumLon += c[0]
			sumLat += c[1]
		}
		n := float64(len(rings[0]))
		return sumLat / n, sumLon / n, nil
	default:
		return 0, 0, errNoPoint
	}
}
