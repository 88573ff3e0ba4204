package boundary

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/crash-cli/internal/fetcher"
	"github.com/sells-group/crash-cli/internal/geo"
	"github.com/sells-group/crash-cli/internal/model"
)

// Source names where a district layer lives and which attribute is its id.
type Source struct {
	Kind     model.DistrictKind
	Location string // local path or http(s)/ftp URL; .shp, .zip, .geojson or .json
	IDField  string
}

// Resolver turns a Source into a Set.
type Resolver struct {
	localizer *fetcher.Localizer
}

// NewResolver creates a Resolver. A nil localizer limits it to local files.
func NewResolver(l *fetcher.Localizer) *Resolver {
	return &Resolver{localizer: l}
}

// Resolve loads, validates and indexes a district layer.
func (r *Resolver) Resolve(ctx context.Context, src Source) (*Set, error) {
	if src.Location == "" {
		return nil, eris.Errorf("boundary: no source configured for %s districts", src.Kind)
	}
	if src.IDField == "" {
		return nil, eris.Errorf("boundary: no id field configured for %s districts", src.Kind)
	}

	path := src.Location
	if fetcher.IsRemote(path) {
		if r.localizer == nil {
			return nil, eris.Errorf("boundary: remote source %s needs a fetcher", path)
		}
		local, cleanup, err := r.localizer.Localize(ctx, path)
		if err != nil {
			return nil, eris.Wrapf(err, "boundary: fetch %s districts", src.Kind)
		}
		defer cleanup()
		path = local
	}

	districts, err := readLayer(path, src.Kind, src.IDField)
	if err != nil {
		return nil, err
	}
	if err := checkGeographic(districts); err != nil {
		return nil, eris.Wrapf(err, "boundary: %s", src.Location)
	}

	set, err := NewSet(src.Kind, districts)
	if err != nil {
		return nil, eris.Wrapf(err, "boundary: %s", src.Location)
	}

	zap.L().Info("boundary: districts loaded",
		zap.String("kind", string(src.Kind)),
		zap.String("source", src.Location),
		zap.Int("polygons", len(districts)),
		zap.Int("districts", len(set.IDs())),
	)
	return set, nil
}

func readLayer(path string, kind model.DistrictKind, idField string) ([]District, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".shp":
		return readShapefile(path, kind, idField)
	case ".geojson", ".json":
		return readGeoJSON(path, kind, idField)
	case ".zip":
		return readZip(path, kind, idField)
	default:
		return nil, eris.Errorf("boundary: unsupported boundary format %q", filepath.Ext(path))
	}
}

func readZip(path string, kind model.DistrictKind, idField string) ([]District, error) {
	dir, err := os.MkdirTemp("", "boundary-")
	if err != nil {
		return nil, eris.Wrap(err, "boundary: temp dir")
	}
	defer func() { _ = os.RemoveAll(dir) }()

	files, err := fetcher.ExtractZIP(path, dir)
	if err != nil {
		return nil, eris.Wrapf(err, "boundary: extract %s", path)
	}
	if shp, ok := fetcher.FindByExt(files, ".shp"); ok {
		return readShapefile(shp, kind, idField)
	}
	if gj, ok := fetcher.FindByExt(files, ".geojson"); ok {
		return readGeoJSON(gj, kind, idField)
	}
	return nil, eris.Errorf("boundary: %s holds no .shp or .geojson", path)
}

// checkGeographic catches projected coordinates that slipped past a missing
// or unreadable .prj.
func checkGeographic(districts []District) error {
	for _, d := range districts {
		b := geo.BoundsOf(d.Geom)
		if b.MinX < -180 || b.MaxX > 180 || b.MinY < -90 || b.MaxY > 90 {
			return eris.Errorf("district %s has coordinates outside lon/lat range; source appears projected", d.ID)
		}
	}
	return nil
}

// normalizeID strips leading zeros from numeric ids so "006" and "6" agree.
func normalizeID(id string) string {
	id = strings.TrimSpace(id)
	if id == "" {
		return ""
	}
	for _, r := range id {
		if r < '0' || r > '9' {
			return id
		}
	}
	trimmed := strings.TrimLeft(id, "0")
	if trimmed == "" {
		return "0"
	}
	return trimmed
}
