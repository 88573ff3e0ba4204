package ingest

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/crash-cli/internal/fetcher"
)

// eachRow calls fn with every data row of the file at path, keyed by
// normalized header name. The format follows the extension: .xlsx, .json,
// anything else is read as CSV.
func eachRow(ctx context.Context, path string, fn func(row map[string]string)) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return eachXLSXRow(path, fn)
	case ".json":
		return eachJSONRow(ctx, path, fn)
	default:
		return eachCSVRow(ctx, path, fn)
	}
}

func eachCSVRow(ctx context.Context, path string, fn func(map[string]string)) error {
	f, err := os.Open(path)
	if err != nil {
		return eris.Wrapf(err, "ingest: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	headerCh := make(chan []string, 1)
	rows, errs := fetcher.StreamCSV(ctx, f, fetcher.CSVOptions{
		HasHeader: true,
		HeaderCh:  headerCh,
		TrimSpace: true,
	})

	var header []string
	for row := range rows {
		if header == nil {
			header = normalizeHeader(<-headerCh)
		}
		fn(zipRow(header, row))
	}
	if err := <-errs; err != nil {
		return eris.Wrapf(err, "ingest: read %s", path)
	}
	return nil
}

func eachXLSXRow(path string, fn func(map[string]string)) error {
	rows, err := fetcher.ReadXLSX(path, fetcher.XLSXOptions{})
	if err != nil {
		return eris.Wrapf(err, "ingest: read %s", path)
	}
	if len(rows) == 0 {
		return nil
	}
	header := normalizeHeader(rows[0])
	for _, row := range rows[1:] {
		fn(zipRow(header, row))
	}
	return nil
}

func eachJSONRow(ctx context.Context, path string, fn func(map[string]string)) error {
	f, err := os.Open(path)
	if err != nil {
		return eris.Wrapf(err, "ingest: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	items, errs := fetcher.DecodeJSONArray[map[string]any](ctx, f)
	for item := range items {
		row := make(map[string]string, len(item))
		for k, v := range item {
			row[normalize(k)] = stringify(v)
		}
		fn(row)
	}
	if err := <-errs; err != nil {
		return eris.Wrapf(err, "ingest: read %s", path)
	}
	return nil
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		b, _ := json.Marshal(t)
		return string(b)
	}
}

func normalizeHeader(h []string) []string {
	out := make([]string, len(h))
	for i, c := range h {
		out[i] = normalize(c)
	}
	return out
}

func zipRow(header, row []string) map[string]string {
	m := make(map[string]string, len(header))
	for i, col := range header {
		if i < len(row) {
			m[col] = strings.TrimSpace(row[i])
		}
	}
	return m
}
