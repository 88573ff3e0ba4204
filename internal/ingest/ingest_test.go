package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/crash-cli/internal/config"
	"github.com/sells-group/crash-cli/internal/model"
)

var crashCols = config.CrashColumns{
	ID:             "crash_record_id",
	Date:           "crash_date",
	Longitude:      "longitude",
	Latitude:       "latitude",
	InjuriesTotal:  "injuries_total",
	Incapacitating: "injuries_incapacitating",
	FirstCrashType: "first_crash_type",
	HitAndRun:      "hit_and_run_i",
}

var fatalityCols = config.FatalityColumns{
	PersonID:  "person_id",
	Date:      "crash_date",
	Location:  "crash_location",
	Victim:    "victim",
	Longitude: "longitude",
	Latitude:  "latitude",
}

var layouts = []string{"01/02/2006 03:04:05 PM", "2006-01-02T15:04:05.000"}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

const crashCSV = "\ufeffCRASH_RECORD_ID,CRASH_DATE,INJURIES_TOTAL,INJURIES_INCAPACITATING,FIRST_CRASH_TYPE,HIT_AND_RUN_I,LATITUDE,LONGITUDE\n" +
	"a1,03/14/2023 05:30:00 PM,2,1,PEDESTRIAN,Y,41.8781,-87.6298\n" +
	"a2,03/15/2023 08:00:00 AM,,,REAR END,,41.90,-87.70\n" +
	"a3,03/16/2023 08:00:00 AM,0,0,ANGLE,N,,\n" +
	"a4,03/16/2023 08:00:00 AM,0,0,ANGLE,N,abc,-87.7\n" +
	"a5,not a date,0,0,ANGLE,N,41.9,-87.7\n" +
	"a6,01/01/2019 12:00:00 AM,1,0,PEDALCYCLIST,N,41.9,-87.7\n" +
	"a7,03/17/2023 08:00:00 AM,1,0,pedalcyclist,N,95,-87.7\n"

func TestLoadCrashes(t *testing.T) {
	p := writeFile(t, "crashes.csv", crashCSV)
	opts := Options{
		Layouts: layouts,
		Start:   time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		End:     time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC),
	}

	recs, rep, err := LoadCrashes(context.Background(), p, crashCols, opts)
	require.NoError(t, err)

	assert.Equal(t, 7, rep.Read)
	assert.Equal(t, 2, rep.Kept)
	assert.Equal(t, 1, rep.MissingCoords)
	assert.Equal(t, 2, rep.MalformedCoords)
	assert.Equal(t, 1, rep.BadTimestamp)
	assert.Equal(t, 1, rep.OutOfRange)
	assert.Equal(t, 5, rep.Dropped())

	require.Len(t, recs, 2)
	a1 := recs[0]
	assert.Equal(t, "a1", a1.CrashID)
	assert.Equal(t, model.SourceCrash, a1.Source)
	assert.InDelta(t, -87.6298, a1.Lon, 1e-9)
	assert.InDelta(t, 41.8781, a1.Lat, 1e-9)
	require.NotNil(t, a1.InjuriesTotal)
	assert.Equal(t, 2, *a1.InjuriesTotal)
	assert.Equal(t, 1, *a1.InjuriesIncapacitating)
	assert.Equal(t, "PEDESTRIAN", a1.FirstCrashType)
	require.NotNil(t, a1.HitAndRun)
	assert.True(t, *a1.HitAndRun)
	assert.Equal(t, 17, a1.Time.Hour())
	assert.Equal(t, 1, a1.CrashCount())

	a2 := recs[1]
	assert.Nil(t, a2.InjuriesTotal)
	assert.Nil(t, a2.InjuriesIncapacitating)
	assert.Nil(t, a2.HitAndRun)
}

func TestLoadFatalities_JSON(t *testing.T) {
	p := writeFile(t, "fatalities.json", `[
		{"person_id":"O1","crash_date":"2023-06-01T10:00:00.000","crash_location":"1200 W MADISON ST","victim":"Pedestrian","longitude":"-87.6597","latitude":"41.8815"},
		{"person_id":"O2","crash_date":"2023-06-02T10:00:00.000","victim":"DRIVER","longitude":-87.7,"latitude":41.9,"location":{"type":"Point"}},
		{"person_id":"O3","crash_date":"2023-06-02T10:00:00.000","victim":"DRIVER","longitude":null,"latitude":null}
	]`)

	recs, rep, err := LoadFatalities(context.Background(), p, fatalityCols, Options{Layouts: layouts})
	require.NoError(t, err)
	assert.Equal(t, 3, rep.Read)
	assert.Equal(t, 1, rep.MissingCoords)

	require.Len(t, recs, 2)
	assert.Equal(t, "PEDESTRIAN", recs[0].Victim)
	assert.Equal(t, "1200 W MADISON ST", recs[0].Location)
	assert.Equal(t, 1, recs[0].FatalityCount())
	assert.Equal(t, 0, recs[0].CrashCount())
	assert.InDelta(t, -87.7, recs[1].Lon, 1e-9)
}

func TestLoadFatalities_XLSX(t *testing.T) {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Sheet1")
	require.NoError(t, err)
	for _, r := range [][]string{
		{"Person_ID", "Crash_Date", "Crash_Location", "Victim", "Longitude", "Latitude"},
		{"X1", "07/04/2023 11:15:00 PM", "STATE ST", "CYCLIST", "-87.6277", "41.8819"},
	} {
		row := sheet.AddRow()
		for _, v := range r {
			row.AddCell().SetString(v)
		}
	}
	p := filepath.Join(t.TempDir(), "fatalities.xlsx")
	require.NoError(t, f.Save(p))

	recs, rep, err := LoadFatalities(context.Background(), p, fatalityCols, Options{Layouts: layouts})
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Kept)
	require.Len(t, recs, 1)
	assert.Equal(t, "X1", recs[0].PersonID)
	assert.Equal(t, model.VictimCyclist, recs[0].Victim)
}

func TestLoadCrashes_MissingFile(t *testing.T) {
	_, _, err := LoadCrashes(context.Background(), filepath.Join(t.TempDir(), "nope.csv"), crashCols, Options{Layouts: layouts})
	assert.Error(t, err)
}

func TestLoad_NoRowReachesSpatialStagesWithoutCoordinates(t *testing.T) {
	p := writeFile(t, "crashes.csv", crashCSV)
	recs, _, err := LoadCrashes(context.Background(), p, crashCols, Options{Layouts: layouts})
	require.NoError(t, err)
	for _, r := range recs {
		assert.True(t, r.Lon >= -180 && r.Lon <= 180 && r.Lat >= -90 && r.Lat <= 90)
		assert.False(t, r.Lon == 0 && r.Lat == 0)
	}
}

func TestUnion(t *testing.T) {
	out := Union([]model.Record{{CrashID: "a"}}, []model.Record{{PersonID: "p", Victim: "DRIVER"}})
	require.Len(t, out, 2)
	assert.Equal(t, 1, out[0].CrashCount())
	assert.Equal(t, 1, out[1].FatalityCount())
}
