package model

import "github.com/sgtransit/stops-cli/pkg/svy21"

// SearchResult is a single OneMap search hit. X and Y are SVY21 easting and
// northing in metres.
type SearchResult struct {
	SearchVal  string  `json:"SEARCHVAL"`
	X          float64 `json:"X"`
	Y          float64 `json:"Y"`
	Category   string  `json:"CATEGORY,omitempty"`
	PostalCode string  `json:"POSTALCODE,omitempty"`
}

// Point is one row of a bus stop, station, or combined table.
type Point struct {
	Latitude  float64 `csv:"Latitude" json:"latitude"`
	Longitude float64 `csv:"Longitude" json:"longitude"`
	Name      string  `csv:"Name" json:"name"`
	X         float64 `csv:"X" json:"x"`
	Y         float64 `csv:"Y" json:"y"`
}

// NewPoint builds a Point from SVY21 coordinates, deriving latitude and
// longitude by inverse projection.
func NewPoint(name string, x, y float64) Point {
	lon, lat := svy21.Inverse(x, y)
	return Point{
		Latitude:  lat,
		Longitude: lon,
		Name:      name,
		X:         x,
		Y:         y,
	}
}

// PointFromSearch inverse-projects a search result into a Point named name.
func PointFromSearch(name string, r SearchResult) Point {
	return NewPoint(name, r.X, r.Y)
}
