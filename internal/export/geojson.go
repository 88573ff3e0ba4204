package export

import (
	"encoding/json"
	"io"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/sells-group/crash-cli/internal/boundary"
	"github.com/sells-group/crash-cli/internal/geo"
	"github.com/sells-group/crash-cli/internal/model"
)

// outlineSteps is the vertex count per buffer end cap.
const outlineSteps = 8

// RecordFeatures renders records as points with the presentation fields.
func RecordFeatures(records []model.Record) *geojson.FeatureCollection {
	fc := &geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, len(records))}
	for i, r := range records {
		id := r.Key()
		if id == "" {
			id = strconv.Itoa(i)
		}
		props := map[string]interface{}{
			"source":                     string(r.Source),
			"crash_date":                 r.Time.Format("2006-01-02T15:04:05"),
			"crash_count":                r.CrashCount(),
			"fatality_count":             r.FatalityCount(),
			"estimated_economic_damages": r.Damages,
			"is_in_corridor_buffer":      r.InBuffer,
		}
		if r.FirstCrashType != "" {
			props["first_crash_type"] = r.FirstCrashType
		}
		if r.Victim != "" {
			props["victim"] = r.Victim
		}
		if r.Districts.Senate != "" {
			props["senate_district"] = r.Districts.Senate
		}
		if r.Districts.House != "" {
			props["house_district"] = r.Districts.House
		}
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:         id,
			Geometry:   geom.NewPointFlat(geom.XY, []float64{r.Lon, r.Lat}).SetSRID(geo.SRIDWGS84),
			Properties: props,
		})
	}
	return fc
}

// BufferFeature unprojects a buffer's display outline into lon/lat. The
// feature's own frame is geographic; buffer_frame names the planar frame the
// distance was measured in.
func BufferFeature(label string, buf *geo.Buffer) (*geojson.Feature, error) {
	g, err := buf.GeographicOutline(outlineSteps)
	if err != nil {
		return nil, eris.Wrap(err, "export: buffer outline")
	}
	return &geojson.Feature{
		ID:       label,
		Geometry: g,
		Properties: map[string]interface{}{
			"label":           label,
			"buffer_meters":   buf.Distance,
			"reference_frame": geo.Geographic.String(),
			"buffer_frame":    buf.Frame.String(),
		},
	}, nil
}

// DistrictFeatures renders a district set.
func DistrictFeatures(set *boundary.Set) *geojson.FeatureCollection {
	fc := &geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, len(set.Districts))}
	for _, d := range set.Districts {
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:       string(d.Kind) + "-" + d.ID,
			Geometry: d.Geom,
			Properties: map[string]interface{}{
				"label":    d.ID,
				"kind":     string(d.Kind),
				"area_km2": d.AreaSqKm(),
			},
		})
	}
	return fc
}

// WriteGeoJSON encodes fc.
func WriteGeoJSON(w io.Writer, fc *geojson.FeatureCollection) error {
	data, err := json.Marshal(fc)
	if err != nil {
		return eris.Wrap(err, "export: encode GeoJSON")
	}
	if _, err := w.Write(data); err != nil {
		return eris.Wrap(err, "export: write GeoJSON")
	}
	return nil
}
