package fetcher

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
)

func writeTestXLSX(t *testing.T, sheetName string, rows [][]string) string {
	t.Helper()
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(sheetName)
	require.NoError(t, err)
	for _, r := range rows {
		row := sheet.AddRow()
		for _, v := range r {
			row.AddCell().SetString(v)
		}
	}
	p := filepath.Join(t.TempDir(), "fatalities.xlsx")
	require.NoError(t, f.Save(p))
	return p
}

func TestReadXLSX(t *testing.T) {
	p := writeTestXLSX(t, "Fatalities", [][]string{
		{"person_id", "victim"},
		{"P1", "PEDESTRIAN"},
	})

	rows, err := ReadXLSX(p, XLSXOptions{})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"person_id", "victim"}, {"P1", "PEDESTRIAN"}}, rows)

	rows, err = ReadXLSX(p, XLSXOptions{SheetName: "Fatalities"})
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestReadXLSX_BadSheet(t *testing.T) {
	p := writeTestXLSX(t, "Sheet1", [][]string{{"a"}})

	_, err := ReadXLSX(p, XLSXOptions{SheetName: "Other"})
	assert.Error(t, err)
	_, err = ReadXLSX(p, XLSXOptions{SheetIndex: 3})
	assert.Error(t, err)
}
