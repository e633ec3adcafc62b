package export

import (
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sgtransit/stops-cli/internal/model"
	"github.com/sgtransit/stops-cli/internal/table"
)

// SheetName is the worksheet written by WriteXLSX.
const SheetName = "combined"

// WriteXLSX writes points to a single-sheet workbook with the same columns as
// the CSV table.
func WriteXLSX(path string, points []model.Point) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "export: create dir for %s", path)
	}

	f := xlsx.NewFile()
	sheet, err := f.AddSheet(SheetName)
	if err != nil {
		return eris.Wrap(err, "export: add sheet")
	}

	header := sheet.AddRow()
	for _, h := range table.Header {
		header.AddCell().SetString(h)
	}
	for i, p := range points {
		row := sheet.AddRow()
		row.AddCell().SetInt(i)
		row.AddCell().SetFloat(p.Latitude)
		row.AddCell().SetFloat(p.Longitude)
		row.AddCell().SetString(p.Name)
		row.AddCell().SetFloat(p.X)
		row.AddCell().SetFloat(p.Y)
	}

	return eris.Wrapf(f.Save(path), "export: save %s", path)
}
