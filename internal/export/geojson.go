package export

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/sgtransit/stops-cli/internal/model"
)

// FeatureCollection builds WGS84 point features. Feature IDs are the row
// index; the SVY21 coordinates are carried as properties.
func FeatureCollection(points []model.Point) *geojson.FeatureCollection {
	fc := &geojson.FeatureCollection{
		Features: make([]*geojson.Feature, 0, len(points)),
	}
	for i, p := range points {
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:       strconv.Itoa(i),
			Geometry: geom.NewPointFlat(geom.XY, []float64{p.Longitude, p.Latitude}),
			Properties: map[string]interface{}{
				"name": p.Name,
				"x":    p.X,
				"y":    p.Y,
			},
		})
	}
	return fc
}

// WriteGeoJSON writes points as a GeoJSON FeatureCollection.
func WriteGeoJSON(path string, points []model.Point) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "export: create dir for %s", path)
	}
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "export: create %s", path)
	}
	if err := json.NewEncoder(f).Encode(FeatureCollection(points)); err != nil {
		f.Close() //nolint:errcheck
		return eris.Wrapf(err, "export: encode geojson %s", path)
	}
	return eris.Wrapf(f.Close(), "export: close %s", path)
}
