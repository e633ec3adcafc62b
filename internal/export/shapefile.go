package export

import (
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"

	"github.com/sgtransit/stops-cli/internal/model"
)

const nameFieldSize = 80

// ShapefileFields is the attribute layout of exported shapefiles.
var ShapefileFields = []shp.Field{
	shp.NumberField("ID", 10),
	shp.StringField("NAME", nameFieldSize),
	shp.FloatField("LAT", 16, 8),
	shp.FloatField("LON", 16, 8),
}

// WriteShapefile writes points as an SVY21 point shapefile. path must end
// in .shp; the .shx and .dbf siblings are written next to it.
func WriteShapefile(path string, points []model.Point) error {
	if !strings.EqualFold(filepath.Ext(path), ".shp") {
		return eris.Errorf("export: shapefile path %s must end in .shp", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "export: create dir for %s", path)
	}

	w, err := shp.Create(path, shp.POINT)
	if err != nil {
		return eris.Wrapf(err, "export: create shapefile %s", path)
	}
	if err := w.SetFields(ShapefileFields); err != nil {
		w.Close()
		return eris.Wrap(err, "export: set shapefile fields")
	}

	for i, p := range points {
		row := int(w.Write(&shp.Point{X: p.X, Y: p.Y}))
		for field, value := range []interface{}{i, truncateName(p.Name, nameFieldSize), p.Latitude, p.Longitude} {
			if err := w.WriteAttribute(row, field, value); err != nil {
				w.Close()
				return eris.Wrapf(err, "export: write attribute row %d", row)
			}
		}
	}
	w.Close()

	// go-shp writes the dbf as "<base>dbf"; its reader expects "<base>.dbf".
	base := strings.TrimSuffix(path, filepath.Ext(path))
	if err := os.Rename(base+"dbf", base+".dbf"); err != nil {
		return eris.Wrapf(err, "export: rename dbf for %s", path)
	}
	return nil
}

// truncateName cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncateName(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
