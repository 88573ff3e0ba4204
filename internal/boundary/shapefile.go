package boundary

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/sells-group/crash-cli/internal/geo"
	"github.com/sells-group/crash-cli/internal/model"
)

// readShapefile loads polygon records from a .shp, keeping only the id
// attribute and the geometry reprojected to longitude/latitude.
func readShapefile(path string, kind model.DistrictKind, idField string) ([]District, error) {
	crs, err := readPrj(path)
	if err != nil {
		return nil, err
	}

	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "boundary: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	idIdx := -1
	for i, f := range reader.Fields() {
		name := strings.TrimRight(f.String(), "\x00")
		if strings.EqualFold(name, idField) {
			idIdx = i
			break
		}
	}
	if idIdx < 0 {
		return nil, eris.Errorf("boundary: field %q not in %s", idField, path)
	}

	var out []District
	var skipped int
	for reader.Next() {
		_, shape := reader.Shape()
		poly, ok := shape.(*shp.Polygon)
		if !ok {
			skipped++
			continue
		}
		mp := polygonToMultiPolygon(poly)
		if mp == nil {
			skipped++
			continue
		}
		if mp, err = toGeographic(mp, crs); err != nil {
			return nil, eris.Wrapf(err, "boundary: %s", path)
		}
		id := normalizeID(strings.TrimSpace(strings.TrimRight(reader.Attribute(idIdx), "\x00")))
		if id == "" {
			skipped++
			continue
		}
		out = append(out, District{Kind: kind, ID: id, Geom: mp})
	}
	if skipped > 0 {
		zap.L().Debug("boundary: skipped shapefile records",
			zap.String("path", path),
			zap.Int("skipped", skipped),
		)
	}
	return out, nil
}

// readPrj returns the CRS declared by the sidecar .prj. A missing .prj is
// read as WGS84; coordinates are range-checked later.
func readPrj(shpPath string) (geo.CRS, error) {
	base := strings.TrimSuffix(shpPath, filepath.Ext(shpPath))
	for _, ext := range []string{".prj", ".PRJ"} {
		data, err := os.ReadFile(base + ext)
		if err != nil {
			continue
		}
		crs, err := geo.ParsePrj(string(data))
		if err != nil {
			return geo.CRS{}, eris.Wrapf(err, "boundary: %s", shpPath)
		}
		return crs, nil
	}
	return geo.WGS84, nil
}

func toGeographic(mp *geom.MultiPolygon, crs geo.CRS) (*geom.MultiPolygon, error) {
	g, err := crs.ToGeographic(mp)
	if err != nil {
		return nil, err
	}
	return g.(*geom.MultiPolygon), nil
}

// polygonToMultiPolygon assembles shapefile rings into polygons. Shells are
// clockwise; each counter-clockwise ring is a hole of the shell before it.
func polygonToMultiPolygon(p *shp.Polygon) *geom.MultiPolygon {
	if p == nil || p.NumParts == 0 || len(p.Points) == 0 {
		return nil
	}

	mp := geom.NewMultiPolygon(geom.XY).SetSRID(geo.SRIDWGS84)
	var current *geom.Polygon
	flush := func() {
		if current == nil {
			return
		}
		if err := mp.Push(current); err != nil {
			zap.L().Debug("boundary: skipping malformed polygon", zap.Error(err))
		}
		current = nil
	}

	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		end := int32(len(p.Points))
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		}
		if end-start < 4 {
			continue
		}

		flat := make([]float64, 0, 2*(end-start))
		for j := start; j < end; j++ {
			flat = append(flat, p.Points[j].X, p.Points[j].Y)
		}
		ring := geom.NewLinearRingFlat(geom.XY, flat)

		if geo.RingArea(flat) < 0 || current == nil {
			flush()
			current = geom.NewPolygon(geom.XY)
		}
		if err := current.Push(ring); err != nil {
			zap.L().Debug("boundary: skipping malformed ring", zap.Int32("part", i), zap.Error(err))
		}
	}
	flush()

	if mp.NumPolygons() == 0 {
		return nil
	}
	return mp
}
