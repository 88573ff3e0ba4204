package boundary

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/require"
	"github.com/wroge/wgs84"

	"github.com/sells-group/crash-cli/internal/geo"
)

// square returns a closed ring; cw selects clockwise winding.
func square(minX, minY, maxX, maxY float64, cw bool) []shp.Point {
	if cw {
		return []shp.Point{{X: minX, Y: minY}, {X: minX, Y: maxY}, {X: maxX, Y: maxY}, {X: maxX, Y: minY}, {X: minX, Y: minY}}
	}
	return []shp.Point{{X: minX, Y: minY}, {X: maxX, Y: minY}, {X: maxX, Y: maxY}, {X: minX, Y: maxY}, {X: minX, Y: minY}}
}

// writeDistrictShapefile writes two adjoining districts. District 006 has
// a hole; the two share the edge at longitude -87.60.
func writeDistrictShapefile(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "sldu.shp")
	w, err := shp.Create(path, shp.POLYGON)
	require.NoError(t, err)
	require.NoError(t, w.SetFields([]shp.Field{shp.StringField("SLDUST", 3)}))

	shapes := []struct {
		id    string
		parts [][]shp.Point
	}{
		{"006", [][]shp.Point{
			square(-87.70, 41.80, -87.60, 41.90, true),
			square(-87.66, 41.84, -87.64, 41.86, false),
		}},
		{"007", [][]shp.Point{square(-87.60, 41.80, -87.50, 41.90, true)}},
	}
	for _, s := range shapes {
		poly := shp.Polygon(*shp.NewPolyLine(s.parts))
		n := w.Write(&poly)
		require.NoError(t, w.WriteAttribute(int(n), 0, s.id))
	}
	w.Close()
	return path
}

// statePlaneEast projects lon/lat to Illinois East (EPSG:3435) US survey feet.
func statePlaneEast(lon, lat float64) (float64, float64) {
	tm := wgs84.NAD83().TransverseMercator(-88.33333333333333, 36.666666666666664, 0.999975, 300000, 0)
	e, n, _ := wgs84.Transform(wgs84.LonLat(), tm)(lon, lat, 0)
	return e / geo.USFootToMeters, n / geo.USFootToMeters
}

// statePlaneRing returns the lon/lat corners of a box, projected to EPSG:3435.
func statePlaneRing(minLon, minLat, maxLon, maxLat float64) []shp.Point {
	corners := [][2]float64{{minLon, minLat}, {minLon, maxLat}, {maxLon, maxLat}, {maxLon, minLat}, {minLon, minLat}}
	ring := make([]shp.Point, len(corners))
	for i, c := range corners {
		ring[i].X, ring[i].Y = statePlaneEast(c[0], c[1])
	}
	return ring
}

// writeStatePlaneShapefile writes district 006 in Illinois East feet with a
// .prj declaring it.
func writeStatePlaneShapefile(t *testing.T, dir, prj string) string {
	t.Helper()
	path := filepath.Join(dir, "sldu.shp")
	w, err := shp.Create(path, shp.POLYGON)
	require.NoError(t, err)
	require.NoError(t, w.SetFields([]shp.Field{shp.StringField("SLDUST", 3)}))

	poly := shp.Polygon(*shp.NewPolyLine([][]shp.Point{statePlaneRing(-87.70, 41.80, -87.60, 41.90)}))
	n := w.Write(&poly)
	require.NoError(t, w.WriteAttribute(int(n), 0, "006"))
	w.Close()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "sldu.prj"), []byte(prj), 0o644))
	return path
}

func zipDir(t *testing.T, dir, dest string) {
	t.Helper()
	f, err := os.Create(dest)
	require.NoError(t, err)
	zw := zip.NewWriter(f)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		src, err := os.Open(filepath.Join(dir, e.Name()))
		require.NoError(t, err)
		dst, err := zw.Create(e.Name())
		require.NoError(t, err)
		_, err = io.Copy(dst, src)
		require.NoError(t, err)
		_ = src.Close()
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
}
