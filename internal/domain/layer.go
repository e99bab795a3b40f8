package domain

// Point is one renderable map marker.
type Point struct {
	Lat   float64 `json:"lat"`
	Lon   float64 `json:"lon"`
	Style string  `json:"style"`
	Popup string  `json:"popup"`
}

// Layer groups points that share a visual style, e.g. one report category or
// one hazard source.
type Layer struct {
	Name   string  `json:"name"`
	Points []Point `json:"points"`
}

// LayerSet is the renderer-agnostic output of map composition. Notes carry
// non-fatal annotations the caller should display alongside the map, such as
// hazard sources that were unavailable this cycle.
type LayerSet struct {
	Layers []Layer  `json:"layers"`
	Notes  []string `json:"notes,omitempty"`
}

// SearchMarker pins a searched location on the composed map.
type SearchMarker struct {
	Lat   float64
	Lon   float64
	Label string
}
