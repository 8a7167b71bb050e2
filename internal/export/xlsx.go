// Package export writes provider rosters to spreadsheet files.
package export

import (
	"io"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/dds-finder/internal/model"
)

// SheetName is the worksheet providers are written to.
const SheetName = "Providers"

var header = []string{"Name", "Link", "Town"}

func providersFile(providers []model.Provider) (*xlsx.File, error) {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(SheetName)
	if err != nil {
		return nil, eris.Wrap(err, "export: add sheet")
	}

	addRow(sheet, header...)
	for _, p := range providers {
		addRow(sheet, p.Name, p.Link, p.Town)
	}
	return f, nil
}

func addRow(sheet *xlsx.Sheet, values ...string) {
	row := sheet.AddRow()
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}

// WriteProvidersXLSX saves providers to path as a single-sheet workbook
// with a Name/Link/Town header row.
func WriteProvidersXLSX(path string, providers []model.Provider) error {
	f, err := providersFile(providers)
	if err != nil {
		return err
	}
	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "export: save %s", path)
	}
	return nil
}

// WriteProviders streams the workbook to w.
func WriteProviders(w io.Writer, providers []model.Provider) error {
	f, err := providersFile(providers)
	if err != nil {
		return err
	}
	return eris.Wrap(f.Write(w), "export: write workbook")
}
