package export

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/dds-finder/internal/model"
)

func sheetRows(t *testing.T, f *xlsx.File) [][]string {
	t.Helper()
	sheet, ok := f.Sheet[SheetName]
	require.True(t, ok)

	var rows [][]string
	for _, row := range sheet.Rows {
		var cells []string
		for _, c := range row.Cells {
			cells = append(cells, c.String())
		}
		rows = append(rows, cells)
	}
	return rows
}

func TestWriteProvidersXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "providers.xlsx")
	providers := []model.Provider{
		{Name: "Acme Community Services, Inc.", Link: "https://portal.ct.gov/a.pdf", Town: "Hartford"},
		{Name: "Beacon Services LLC", Link: "https://portal.ct.gov/b.pdf", Town: "Bristol"},
	}
	require.NoError(t, WriteProvidersXLSX(path, providers))

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	rows := sheetRows(t, f)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Name", "Link", "Town"}, rows[0])
	assert.Equal(t, []string{"Acme Community Services, Inc.", "https://portal.ct.gov/a.pdf", "Hartford"}, rows[1])
	assert.Equal(t, "Bristol", rows[2][2])
}

func TestWriteProviders_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteProviders(&buf, nil))

	f, err := xlsx.OpenBinary(buf.Bytes())
	require.NoError(t, err)
	rows := sheetRows(t, f)
	require.Len(t, rows, 1)
	assert.Equal(t, header, rows[0])
}

func TestWriteProvidersXLSX_BadPath(t *testing.T) {
	err := WriteProvidersXLSX(filepath.Join(t.TempDir(), "missing", "dir", "x.xlsx"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "export: save")
}
