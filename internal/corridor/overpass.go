package corridor

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/crash-cli/internal/geo"
	"github.com/sells-group/crash-cli/pkg/overpass"
)

// OverpassResolver resolves corridors against OpenStreetMap highway ways.
type OverpassResolver struct {
	client overpass.Client
}

// NewOverpassResolver wraps an Overpass client.
func NewOverpassResolver(c overpass.Client) *OverpassResolver {
	return &OverpassResolver{client: c}
}

// Resolve implements Resolver.
func (r *OverpassResolver) Resolve(ctx context.Context, region geo.BBox, filter string) ([]Segment, error) {
	ways, err := r.client.Ways(ctx, overpass.Query{
		Name:   NormalizeName(filter),
		MinLat: region.MinLat,
		MinLng: region.MinLng,
		MaxLat: region.MaxLat,
		MaxLng: region.MaxLng,
	})
	if err != nil {
		return nil, err
	}

	frame := geo.PlanarFor(region)
	segs := make([]Segment, 0, len(ways))
	for _, w := range ways {
		flat := make([]float64, 0, 2*len(w.Geometry))
		for _, p := range w.Geometry {
			flat = append(flat, p.Lon, p.Lat)
		}
		line, err := project(frame, flat)
		if err != nil {
			return nil, eris.Wrapf(err, "corridor: project way %d", w.ID)
		}
		segs = append(segs, Segment{WayID: w.ID, StreetName: NormalizeName(w.Name), Line: line})
	}
	return segs, nil
}
