// Package enrich attaches spatial attributes to geocoded records: the
// districts that contain them and whether they fall inside a buffer.
package enrich

import (
	"context"
	"runtime"

	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/crash-cli/internal/model"
)

// DefaultPartitionSize is used when the caller passes a non-positive size.
const DefaultPartitionSize = 5000

// mapPartitions runs fn over consecutive chunks of records in parallel and
// concatenates the results in input order.
func mapPartitions(ctx context.Context, records []model.Record, size int, fn func(ctx context.Context, part []model.Record) ([]model.Record, error)) ([]model.Record, error) {
	if size <= 0 {
		size = DefaultPartitionSize
	}
	n := (len(records) + size - 1) / size
	results := make([][]model.Record, n)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for i := 0; i < n; i++ {
		lo, hi := i*size, min((i+1)*size, len(records))
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out, err := fn(gctx, records[lo:hi])
			if err != nil {
				return err
			}
			results[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "enrich: partition")
	}

	total := 0
	for _, r := range results {
		total += len(r)
	}
	out := make([]model.Record, 0, total)
	for _, r := range results {
		out = append(out, r...)
	}
	return out, nil
}
