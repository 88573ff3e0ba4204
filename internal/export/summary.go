// Package export writes analysis results as CSV, XLSX and GeoJSON files.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/crash-cli/internal/model"
	"github.com/sells-group/crash-cli/internal/summary"
)

// SummaryHeader is the key column followed by the statistic columns.
func SummaryHeader(by summary.GroupBy) []string {
	return append([]string{by.KeyColumn()}, model.SummaryColumns...)
}

// WriteSummaryCSV writes one line per summary row.
func WriteSummaryCSV(w io.Writer, by summary.GroupBy, rows []model.DistrictSummary) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(SummaryHeader(by)); err != nil {
		return eris.Wrap(err, "export: write CSV header")
	}
	for _, r := range rows {
		line := []string{r.Key}
		for _, v := range r.Values() {
			line = append(line, formatValue(v))
		}
		if err := cw.Write(line); err != nil {
			return eris.Wrap(err, "export: write CSV row")
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "export: flush CSV")
}

// WriteSummaryXLSX writes the rows to a single-sheet workbook.
func WriteSummaryXLSX(w io.Writer, sheetName string, by summary.GroupBy, rows []model.DistrictSummary) error {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet(sheetTitle(sheetName))
	if err != nil {
		return eris.Wrap(err, "export: add sheet")
	}

	header := sheet.AddRow()
	for _, h := range SummaryHeader(by) {
		header.AddCell().SetString(h)
	}
	for _, r := range rows {
		row := sheet.AddRow()
		row.AddCell().SetString(r.Key)
		for _, v := range r.Values() {
			cell := row.AddCell()
			switch t := v.(type) {
			case int:
				cell.SetInt(t)
			case float64:
				cell.SetFloat(t)
			default:
				cell.SetString(fmt.Sprint(t))
			}
		}
	}

	if err := file.Write(w); err != nil {
		return eris.Wrap(err, "export: write XLSX")
	}
	return nil
}

func formatValue(v any) string {
	switch t := v.(type) {
	case int:
		return strconv.Itoa(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	}
	return fmt.Sprint(v)
}

// sheetNameReplacer swaps the characters Excel forbids in sheet names.
var sheetNameReplacer = strings.NewReplacer(
	":", "-", "\\", "-", "/", "-", "?", "-", "*", "-", "[", "(", "]", ")",
)

// sheetTitle makes name a valid sheet name: no restricted characters, no
// surrounding apostrophes, at most 31 characters.
func sheetTitle(name string) string {
	r := []rune(sheetNameReplacer.Replace(name))
	if len(r) > 31 {
		r = r[:31]
	}
	name = strings.Trim(string(r), "'")
	if strings.TrimSpace(name) == "" {
		return "summary"
	}
	return name
}
