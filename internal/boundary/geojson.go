package boundary

import (
	"encoding/json"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"

	"github.com/sells-group/crash-cli/internal/geo"
	"github.com/sells-group/crash-cli/internal/model"
)

// namedCRS is the legacy GeoJSON crs member, still written by ArcGIS and
// city open-data exports.
type namedCRS struct {
	CRS *struct {
		Type       string `json:"type"`
		Properties struct {
			Name string `json:"name"`
		} `json:"properties"`
	} `json:"crs"`
}

// readGeoJSON loads Polygon and MultiPolygon features from a
// FeatureCollection, reprojecting them when the collection names a projected
// crs. Other geometry types are skipped.
func readGeoJSON(path string, kind model.DistrictKind, idField string) ([]District, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "boundary: read %s", path)
	}

	var fc geojson.FeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, eris.Wrapf(err, "boundary: decode geojson %s", path)
	}

	crs := geo.WGS84
	var head namedCRS
	if err := json.Unmarshal(data, &head); err == nil && head.CRS != nil && head.CRS.Properties.Name != "" {
		if crs, err = geo.ParseCRSName(head.CRS.Properties.Name); err != nil {
			return nil, eris.Wrapf(err, "boundary: %s", path)
		}
	}

	var out []District
	var skipped int
	for _, f := range fc.Features {
		id := normalizeID(propertyString(f.Properties, idField))
		mp := toMultiPolygon(f.Geometry)
		if id == "" || mp == nil {
			skipped++
			continue
		}
		if mp, err = toGeographic(mp, crs); err != nil {
			return nil, eris.Wrapf(err, "boundary: %s", path)
		}
		out = append(out, District{Kind: kind, ID: id, Geom: mp})
	}

	if skipped > 0 {
		zap.L().Debug("boundary: skipped geojson features",
			zap.String("path", path),
			zap.Int("skipped", skipped),
		)
	}
	return out, nil
}

// propertyString finds a property by case-insensitive name.
func propertyString(props map[string]interface{}, name string) string {
	v, ok := props[name]
	if !ok {
		for k, pv := range props {
			if strings.EqualFold(k, name) {
				v, ok = pv, true
				break
			}
		}
	}
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		b, _ := json.Marshal(t)
		return string(b)
	}
}

func toMultiPolygon(g geom.T) *geom.MultiPolygon {
	switch t := g.(type) {
	case *geom.Polygon:
		p := to2DPolygon(t)
		if p == nil {
			return nil
		}
		mp := geom.NewMultiPolygon(geom.XY).SetSRID(geo.SRIDWGS84)
		if err := mp.Push(p); err != nil {
			return nil
		}
		return mp
	case *geom.MultiPolygon:
		mp := geom.NewMultiPolygon(geom.XY).SetSRID(geo.SRIDWGS84)
		for i := 0; i < t.NumPolygons(); i++ {
			if p := to2DPolygon(t.Polygon(i)); p != nil {
				_ = mp.Push(p)
			}
		}
		if mp.NumPolygons() == 0 {
			return nil
		}
		return mp
	default:
		return nil
	}
}

// to2DPolygon drops any Z or M ordinates.
func to2DPolygon(p *geom.Polygon) *geom.Polygon {
	if p == nil || p.NumLinearRings() == 0 {
		return nil
	}
	stride := p.Stride()
	src := p.FlatCoords()
	flat := make([]float64, 0, len(src)/stride*2)
	for i := 0; i+1 < len(src); i += stride {
		flat = append(flat, src[i], src[i+1])
	}
	ends := make([]int, len(p.Ends()))
	for i, e := range p.Ends() {
		ends[i] = e / stride * 2
	}
	return geom.NewPolygonFlat(geom.XY, flat, ends)
}
