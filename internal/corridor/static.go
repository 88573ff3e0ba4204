package corridor

import (
	"context"

	"github.com/sells-group/crash-cli/internal/geo"
)

// StaticWay is a road polyline in lon/lat degrees.
type StaticWay struct {
	ID     int64
	Name   string
	LonLat []float64 // flat lon,lat pairs
}

// Static is an in-memory Resolver over a fixed set of ways. It applies the
// same case-insensitive substring match as the live service.
type Static struct {
	Ways []StaticWay
}

// Resolve implements Resolver.
func (s *Static) Resolve(_ context.Context, region geo.BBox, filter string) ([]Segment, error) {
	frame := geo.PlanarFor(region)
	var segs []Segment
	for _, w := range s.Ways {
		if len(w.LonLat) < 4 || !matches(w.Name, filter) || !touches(region, w.LonLat) {
			continue
		}
		line, err := project(frame, w.LonLat)
		if err != nil {
			return nil, err
		}
		segs = append(segs, Segment{WayID: w.ID, StreetName: NormalizeName(w.Name), Line: line})
	}
	return segs, nil
}

// touches reports whether any vertex falls inside region.
func touches(region geo.BBox, flat []float64) bool {
	for i := 0; i+1 < len(flat); i += 2 {
		if flat[i] >= region.MinLng && flat[i] <= region.MaxLng && flat[i+1] >= region.MinLat && flat[i+1] <= region.MaxLat {
			return true
		}
	}
	return false
}
