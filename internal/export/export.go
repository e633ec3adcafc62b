// Package export writes combined point tables to GIS and spreadsheet formats.
package export

import (
	"path/filepath"
	"slices"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sgtransit/stops-cli/internal/model"
)

// Supported format names.
const (
	FormatGeoJSON   = "geojson"
	FormatShapefile = "shp"
	FormatXLSX      = "xlsx"
)

// Formats lists every supported export format.
var Formats = []string{FormatGeoJSON, FormatShapefile, FormatXLSX}

// IsFormat reports whether name is a supported export format.
func IsFormat(name string) bool {
	return slices.Contains(Formats, strings.ToLower(name))
}

// Write exports points as <dir>/<base>.<ext> for each requested format and
// returns the paths written.
func Write(dir, base string, points []model.Point, formats []string) ([]string, error) {
	var paths []string
	for _, f := range formats {
		var (
			path string
			err  error
		)
		switch strings.ToLower(f) {
		case FormatGeoJSON:
			path = filepath.Join(dir, base+".geojson")
			err = WriteGeoJSON(path, points)
		case FormatShapefile:
			path = filepath.Join(dir, base+".shp")
			err = WriteShapefile(path, points)
		case FormatXLSX:
			path = filepath.Join(dir, base+".xlsx")
			err = WriteXLSX(path, points)
		default:
			return paths, eris.Errorf("export: unknown format %q", f)
		}
		if err != nil {
			return paths, err
		}
		zap.L().Info("export: wrote file",
			zap.String("format", f),
			zap.String("path", path),
			zap.Int("rows", len(points)),
		)
		paths = append(paths, path)
	}
	return paths, nil
}
