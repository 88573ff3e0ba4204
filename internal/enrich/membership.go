package enrich

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/crash-cli/internal/geo"
	"github.com/sells-group/crash-cli/internal/model"
)

// ClassifyMembership returns a copy of records with InBuffer set. Points are
// projected into the buffer's frame for the test; record coordinates are
// left untouched.
func ClassifyMembership(ctx context.Context, records []model.Record, buf *geo.Buffer, partitionSize int) ([]model.Record, error) {
	if buf == nil {
		return nil, eris.New("enrich: nil buffer")
	}
	return mapPartitions(ctx, records, partitionSize, func(_ context.Context, part []model.Record) ([]model.Record, error) {
		res := make([]model.Record, len(part))
		for i, r := range part {
			p, err := geo.LonLat(r.Lon, r.Lat).To(buf.Frame)
			if err != nil {
				return nil, eris.Wrap(err, "enrich: project record")
			}
			in, err := buf.Contains(p)
			if err != nil {
				return nil, err
			}
			r.InBuffer = in
			res[i] = r
		}
		return res, nil
	})
}

// Members returns the records flagged as inside the buffer.
func Members(records []model.Record) []model.Record {
	var out []model.Record
	for _, r := range records {
		if r.InBuffer {
			out = append(out, r)
		}
	}
	return out
}
