// Package table reads and writes point tables as CSV. The layout has a
// leading unnamed index column followed by Latitude, Longitude, Name, X, Y.
package table

import (
	"encoding/csv"
	"errors"
	"io"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"
	"github.com/rotisserie/eris"

	"github.com/sgtransit/stops-cli/internal/model"
)

// Header is the first row of every table.
var Header = []string{"", "Latitude", "Longitude", "Name", "X", "Y"}

type indexedRow struct {
	Index int `csv:"index"`
	model.Point
}

// Write writes points with a 0-based contiguous index.
func Write(w io.Writer, points []model.Point) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return eris.Wrap(err, "table: write header")
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return eris.Wrap(err, "table: write header")
	}

	if len(points) == 0 {
		return nil
	}
	rows := make([]indexedRow, len(points))
	for i, p := range points {
		rows[i] = indexedRow{Index: i, Point: p}
	}
	if err := gocsv.MarshalWithoutHeaders(&rows, w); err != nil {
		return eris.Wrap(err, "table: write rows")
	}
	return nil
}

// Read parses a table. The index column is ignored.
func Read(r io.Reader) ([]model.Point, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	var points []model.Point
	if err := gocsv.UnmarshalCSV(cr, &points); err != nil {
		if errors.Is(err, gocsv.ErrEmptyCSVFile) {
			return nil, eris.Wrap(err, "table: missing header")
		}
		return nil, eris.Wrap(err, "table: read rows")
	}
	return points, nil
}

// WriteFile writes points to path, creating parent directories.
func WriteFile(path string, points []model.Point) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "table: create dir for %s", path)
	}
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "table: create %s", path)
	}
	if err := Write(f, points); err != nil {
		f.Close() //nolint:errcheck
		return eris.Wrapf(err, "table: %s", path)
	}
	return eris.Wrapf(f.Close(), "table: close %s", path)
}

// ReadFile reads the table at path.
func ReadFile(path string) ([]model.Point, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "table: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	points, err := Read(f)
	if err != nil {
		return nil, eris.Wrapf(err, "table: %s", path)
	}
	return points, nil
}
