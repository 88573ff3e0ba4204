package export

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"

	"github.com/sells-group/crash-cli/internal/analysis"
	"github.com/sells-group/crash-cli/internal/boundary"
)

// WriteResult writes the summary (CSV and XLSX), the member records and,
// for corridor and zone analyses, the buffer outline into dir. It returns
// the written paths.
func WriteResult(dir string, res *analysis.Result) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "export: create %s", dir)
	}
	base := filepath.Join(dir, Slug(res.Spec.Name))
	var written []string

	write := func(path string, fn func(w io.Writer) error) error {
		f, err := os.Create(path)
		if err != nil {
			return eris.Wrapf(err, "export: create %s", path)
		}
		if err := fn(f); err != nil {
			_ = f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return eris.Wrapf(err, "export: close %s", path)
		}
		written = append(written, path)
		return nil
	}

	by := res.Spec.GroupBy
	if err := write(base+"_summary.csv", func(w io.Writer) error {
		return WriteSummaryCSV(w, by, res.Summaries)
	}); err != nil {
		return written, err
	}
	if err := write(base+"_summary.xlsx", func(w io.Writer) error {
		return WriteSummaryXLSX(w, res.Spec.Name, by, res.Summaries)
	}); err != nil {
		return written, err
	}
	if err := write(base+"_records.geojson", func(w io.Writer) error {
		return WriteGeoJSON(w, RecordFeatures(res.Members))
	}); err != nil {
		return written, err
	}
	if res.Buffer != nil {
		feat, err := BufferFeature(res.Spec.Name, res.Buffer)
		if err != nil {
			return written, err
		}
		if err := write(base+"_buffer.geojson", func(w io.Writer) error {
			return WriteGeoJSON(w, &geojson.FeatureCollection{Features: []*geojson.Feature{feat}})
		}); err != nil {
			return written, err
		}
	}

	zap.L().Info("export: wrote result", zap.String("analysis", res.Spec.Name), zap.Strings("files", written))
	return written, nil
}

// WriteDistricts writes a district set as GeoJSON to path.
func WriteDistricts(path string, set *boundary.Set) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "export: create %s", path)
	}
	if err := WriteGeoJSON(f, DistrictFeatures(set)); err != nil {
		_ = f.Close()
		return err
	}
	return eris.Wrapf(f.Close(), "export: close %s", path)
}

// Slug turns an analysis name into a file name stem.
func Slug(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	s := strings.TrimSuffix(b.String(), "-")
	if s == "" {
		return "analysis"
	}
	return s
}
