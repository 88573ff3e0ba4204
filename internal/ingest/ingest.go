// Package ingest reads crash and fatality exports, geocodes each row into a
// WGS84 point, and drops rows that cannot be placed or dated.
package ingest

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/crash-cli/internal/config"
	"github.com/sells-group/crash-cli/internal/model"
)

// Options apply to both inputs.
type Options struct {
	// Layouts are tried in order to parse the date column.
	Layouts []string
	// Start and End bound the inclusive date window; zero values are open.
	Start, End time.Time
}

// Report counts what happened to the rows of one input.
type Report struct {
	Source          model.Source `json:"source"`
	Read            int          `json:"read"`
	Kept            int          `json:"kept"`
	MissingCoords   int          `json:"missing_coordinates"`
	MalformedCoords int          `json:"malformed_coordinates"`
	BadTimestamp    int          `json:"bad_timestamp"`
	OutOfRange      int          `json:"out_of_range"`
}

// Dropped is the number of rows excluded for any reason.
func (r Report) Dropped() int { return r.Read - r.Kept }

func (r *Report) reject(err error) {
	switch {
	case eris.Is(err, ErrMissingCoordinates):
		r.MissingCoords++
	case eris.Is(err, ErrMalformedCoordinates):
		r.MalformedCoords++
	case eris.Is(err, ErrBadTimestamp):
		r.BadTimestamp++
	}
}

func (r Report) log() {
	zap.L().Info("ingest: loaded records",
		zap.String("source", string(r.Source)),
		zap.Int("read", r.Read),
		zap.Int("kept", r.Kept),
		zap.Int("missing_coordinates", r.MissingCoords),
		zap.Int("malformed_coordinates", r.MalformedCoords),
		zap.Int("bad_timestamp", r.BadTimestamp),
		zap.Int("out_of_range", r.OutOfRange),
	)
}

// LoadCrashes reads the crash file at path.
func LoadCrashes(ctx context.Context, path string, cols config.CrashColumns, opts Options) ([]model.Record, Report, error) {
	rep := Report{Source: model.SourceCrash}
	var out []model.Record

	err := eachRow(ctx, path, func(row map[string]string) {
		rep.Read++
		pt, err := Geocode(row, cols.Longitude, cols.Latitude)
		if err != nil {
			rep.reject(err)
			return
		}
		ts, err := ParseTime(row[normalize(cols.Date)], opts.Layouts)
		if err != nil {
			rep.reject(err)
			return
		}
		r := model.Record{
			Source:                 model.SourceCrash,
			CrashID:                row[normalize(cols.ID)],
			Time:                   ts,
			Lon:                    pt.X,
			Lat:                    pt.Y,
			InjuriesTotal:          parseCount(row[normalize(cols.InjuriesTotal)]),
			InjuriesIncapacitating: parseCount(row[normalize(cols.Incapacitating)]),
			FirstCrashType:         strings.ToUpper(row[normalize(cols.FirstCrashType)]),
			HitAndRun:              parseFlag(row[normalize(cols.HitAndRun)]),
		}
		if !r.InRange(opts.Start, opts.End) {
			rep.OutOfRange++
			return
		}
		rep.Kept++
		out = append(out, r)
	})
	if err != nil {
		return nil, rep, err
	}
	rep.log()
	return out, rep, nil
}

// LoadFatalities reads the fatality file at path. Fatalities are geocoded
// from their own coordinates and never matched to crash rows.
func LoadFatalities(ctx context.Context, path string, cols config.FatalityColumns, opts Options) ([]model.Record, Report, error) {
	rep := Report{Source: model.SourceFatality}
	var out []model.Record

	err := eachRow(ctx, path, func(row map[string]string) {
		rep.Read++
		pt, err := Geocode(row, cols.Longitude, cols.Latitude)
		if err != nil {
			rep.reject(err)
			return
		}
		ts, err := ParseTime(row[normalize(cols.Date)], opts.Layouts)
		if err != nil {
			rep.reject(err)
			return
		}
		r := model.Record{
			Source:   model.SourceFatality,
			PersonID: row[normalize(cols.PersonID)],
			Time:     ts,
			Location: row[normalize(cols.Location)],
			Victim:   strings.ToUpper(row[normalize(cols.Victim)]),
			Lon:      pt.X,
			Lat:      pt.Y,
		}
		if !r.InRange(opts.Start, opts.End) {
			rep.OutOfRange++
			return
		}
		rep.Kept++
		out = append(out, r)
	})
	if err != nil {
		return nil, rep, err
	}
	rep.log()
	return out, rep, nil
}

// Union concatenates crashes and fatalities into one collection.
func Union(crashes, fatalities []model.Record) []model.Record {
	out := make([]model.Record, 0, len(crashes)+len(fatalities))
	out = append(out, crashes...)
	return append(out, fatalities...)
}
