package enrich

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/sells-group/crash-cli/internal/boundary"
	"github.com/sells-group/crash-cli/internal/geo"
	"github.com/sells-group/crash-cli/internal/model"
)

// JoinStats counts the outcome of a district join.
type JoinStats struct {
	In        int
	Out       int
	Unmatched int // dropped: no containing district
	FannedOut int // extra rows from overlapping districts
}

// JoinDistricts inner-joins records to the districts in set. A record inside
// k overlapping districts yields k rows; a record in none is dropped. A row
// that already carries an id for set.Kind is kept only if that district
// still contains it, so repeating the join is a no-op.
func JoinDistricts(ctx context.Context, records []model.Record, set *boundary.Set, partitionSize int) ([]model.Record, JoinStats, error) {
	var unmatched, fanned atomic.Int64

	out, err := mapPartitions(ctx, records, partitionSize, func(_ context.Context, part []model.Record) ([]model.Record, error) {
		res := make([]model.Record, 0, len(part))
		for _, r := range part {
			p := geo.LonLat(r.Lon, r.Lat)

			if id := r.Districts.Get(set.Kind); id != "" {
				ok, err := set.Contains(id, p)
				if err != nil {
					return nil, err
				}
				if ok {
					res = append(res, r)
				} else {
					unmatched.Add(1)
				}
				continue
			}

			ids, err := set.Locate(p)
			if err != nil {
				return nil, err
			}
			if len(ids) == 0 {
				unmatched.Add(1)
				continue
			}
			fanned.Add(int64(len(ids) - 1))
			for _, id := range ids {
				joined := r
				joined.Districts = r.Districts.With(set.Kind, id)
				res = append(res, joined)
			}
		}
		return res, nil
	})
	if err != nil {
		return nil, JoinStats{}, err
	}

	stats := JoinStats{In: len(records), Out: len(out), Unmatched: int(unmatched.Load()), FannedOut: int(fanned.Load())}
	zap.L().Info("enrich: district join",
		zap.String("kind", string(set.Kind)),
		zap.Int("in", stats.In),
		zap.Int("out", stats.Out),
		zap.Int("unmatched", stats.Unmatched),
		zap.Int("fanned_out", stats.FannedOut),
	)
	return out, stats, nil
}
