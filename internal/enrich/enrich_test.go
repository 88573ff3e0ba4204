package enrich

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/crash-cli/internal/boundary"
	"github.com/sells-group/crash-cli/internal/geo"
	"github.com/sells-group/crash-cli/internal/model"
)

func squareDistrict(kind model.DistrictKind, id string, minX, minY, maxX, maxY float64) boundary.District {
	flat := []float64{minX, minY, maxX, minY, maxX, maxY, minX, maxY, minX, minY}
	mp := geom.NewMultiPolygonFlat(geom.XY, flat, [][]int{{len(flat)}}).SetSRID(geo.SRIDWGS84)
	return boundary.District{Kind: kind, ID: id, Geom: mp}
}

// Senate 6 and 7 share the edge at lon -87.60. House 20 covers the south
// half of both.
func testSets(t *testing.T) (*boundary.Set, *boundary.Set) {
	t.Helper()
	senate, err := boundary.NewSet(model.KindSenate, []boundary.District{
		squareDistrict(model.KindSenate, "6", -87.70, 41.80, -87.60, 41.90),
		squareDistrict(model.KindSenate, "7", -87.60, 41.80, -87.50, 41.90),
	})
	require.NoError(t, err)
	house, err := boundary.NewSet(model.KindHouse, []boundary.District{
		squareDistrict(model.KindHouse, "20", -87.70, 41.80, -87.50, 41.85),
	})
	require.NoError(t, err)
	return senate, house
}

func rec(id string, lon, lat float64) model.Record {
	return model.Record{Source: model.SourceCrash, CrashID: id, Lon: lon, Lat: lat}
}

func testRecords() []model.Record {
	return []model.Record{
		rec("a", -87.65, 41.82),    // senate 6, house 20
		rec("b", -87.55, 41.88),    // senate 7, no house
		rec("edge", -87.60, 41.83), // senate 6 and 7, house 20
		rec("out", -87.40, 41.82),  // nowhere
	}
}

func ids(records []model.Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.CrashID + ":" + r.Districts.Senate + ":" + r.Districts.House
	}
	return out
}

func TestJoinDistricts(t *testing.T) {
	senate, _ := testSets(t)
	for _, size := range []int{0, 1, 3} {
		out, stats, err := JoinDistricts(context.Background(), testRecords(), senate, size)
		require.NoError(t, err)
		assert.Equal(t, []string{"a:6:", "b:7:", "edge:6:", "edge:7:"}, ids(out), "partition size %d", size)
		assert.Equal(t, JoinStats{In: 4, Out: 4, Unmatched: 1, FannedOut: 1}, stats)
	}
}

func TestJoinDistrictsIdempotent(t *testing.T) {
	senate, _ := testSets(t)
	once, _, err := JoinDistricts(context.Background(), testRecords(), senate, 2)
	require.NoError(t, err)
	twice, stats, err := JoinDistricts(context.Background(), once, senate, 2)
	require.NoError(t, err)
	assert.Equal(t, once, twice)
	assert.Zero(t, stats.FannedOut)
	assert.Zero(t, stats.Unmatched)
}

func TestJoinDistrictsRevalidatesExistingID(t *testing.T) {
	senate, _ := testSets(t)
	r := rec("a", -87.65, 41.82)
	r.Districts.Senate = "7"
	out, stats, err := JoinDistricts(context.Background(), []model.Record{r}, senate, 0)
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Equal(t, 1, stats.Unmatched)
}

func TestJoinDistrictsCompose(t *testing.T) {
	senate, house := testSets(t)
	out, _, err := JoinDistricts(context.Background(), testRecords(), senate, 0)
	require.NoError(t, err)
	out, _, err = JoinDistricts(context.Background(), out, house, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"a:6:20", "edge:6:20", "edge:7:20"}, ids(out))
}

func TestJoinDistrictsEmpty(t *testing.T) {
	senate, _ := testSets(t)
	out, stats, err := JoinDistricts(context.Background(), nil, senate, 0)
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Equal(t, JoinStats{}, stats)
}

func TestJoinDistrictsCanceled(t *testing.T) {
	senate, _ := testSets(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := JoinDistricts(ctx, testRecords(), senate, 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClassifyMembership(t *testing.T) {
	frame := geo.PlanarFor(geo.ChicagoBBox)
	center, err := geo.LonLat(-87.65, 41.82).To(frame)
	require.NoError(t, err)
	buf, err := geo.NewRadiusBuffer(center, 1700*geo.FeetToMeters)
	require.NoError(t, err)

	in := testRecords()
	out, err := ClassifyMembership(context.Background(), in, buf, 1)
	require.NoError(t, err)
	require.Len(t, out, len(in))

	assert.True(t, out[0].InBuffer)
	assert.False(t, out[1].InBuffer)
	assert.False(t, out[3].InBuffer)
	for i := range in {
		assert.False(t, in[i].InBuffer, "input untouched")
		assert.Equal(t, in[i].Lon, out[i].Lon)
		assert.Equal(t, in[i].Lat, out[i].Lat)
	}

	members := Members(out)
	require.Len(t, members, 1)
	assert.Equal(t, "a", members[0].CrashID)
}

func TestClassifyMembershipEmptyBuffer(t *testing.T) {
	buf, err := geo.NewLineBuffer(geo.PlanarFor(geo.ChicagoBBox), nil, 30)
	require.NoError(t, err)
	out, err := ClassifyMembership(context.Background(), testRecords(), buf, 0)
	require.NoError(t, err)
	assert.Empty(t, Members(out))
}

func TestClassifyMembershipNilBuffer(t *testing.T) {
	_, err := ClassifyMembership(context.Background(), testRecords(), nil, 0)
	assert.Error(t, err)
}

func TestClassifyMembershipMatchesPlanarTest(t *testing.T) {
	frame := geo.PlanarFor(geo.ChicagoBBox)
	line := geom.NewLineStringFlat(geom.XY, []float64{-5000, 1000, 7000, 1000})
	const r = 100 * geo.FeetToMeters
	buf, err := geo.NewLineBuffer(frame, []*geom.LineString{line}, r)
	require.NoError(t, err)

	// Points a millimeter either side of the north edge and the east cap.
	var planar []geo.Point
	for _, off := range []float64{-1e-3, 1e-3} {
		planar = append(planar,
			geo.Point{X: 2500, Y: 1000 + r + off, Frame: frame},
			geo.Point{X: 7000 + r + off, Y: 1000, Frame: frame},
		)
	}

	records := make([]model.Record, len(planar))
	for i, p := range planar {
		ll, err := p.To(geo.Geographic)
		require.NoError(t, err)
		records[i] = rec(fmt.Sprintf("p%d", i), ll.X, ll.Y)
	}

	out, err := ClassifyMembership(context.Background(), records, buf, 2)
	require.NoError(t, err)
	for i, p := range planar {
		direct, err := buf.Contains(p)
		require.NoError(t, err)
		assert.Equal(t, direct, out[i].InBuffer, "point %d", i)
	}
	assert.Len(t, Members(out), 2)
}
