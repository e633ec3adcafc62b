package model

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sgtransit/stops-cli/pkg/svy21"
)

func TestNewPoint_DerivesLatLon(t *testing.T) {
	x, y := svy21.Project(103.8318, 1.3043)

	p := NewPoint("ORCHARD MRT STATION", x, y)
	assert.Equal(t, "ORCHARD MRT STATION", p.Name)
	assert.Equal(t, x, p.X)
	assert.Equal(t, y, p.Y)
	assert.InDelta(t, 1.3043, p.Latitude, 1e-7)
	assert.InDelta(t, 103.8318, p.Longitude, 1e-7)
}

func TestPointFromSearch(t *testing.T) {
	r := SearchResult{SearchVal: "01012 (BUS STOP)", X: svy21.FalseEasting, Y: svy21.FalseNorthing}

	p := PointFromSearch("01012", r)
	assert.Equal(t, "01012", p.Name)
	assert.InDelta(t, 1.366667, p.Latitude, 1e-6)
	assert.InDelta(t, 103.833333, p.Longitude, 1e-6)
}
