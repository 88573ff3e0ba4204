// Package boundary loads legislative district polygons and answers which
// district contains a point.
package boundary

import (
	"math"
	"sort"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/crash-cli/internal/geo"
	"github.com/sells-group/crash-cli/internal/model"
)

// ErrNoDistricts is returned when a source yields no usable polygons.
var ErrNoDistricts = eris.New("boundary: source has no districts")

// District is one district polygon in the geographic frame.
type District struct {
	Kind model.DistrictKind
	ID   string
	Geom *geom.MultiPolygon
}

// AreaSqKm is the district area measured in a local planar frame.
func (d District) AreaSqKm() float64 {
	if d.Geom == nil || d.Geom.NumPolygons() == 0 {
		return 0
	}
	b := geo.BoundsOf(d.Geom)
	frame := geo.PlanarFor(geo.BBox{MinLng: b.MinX, MinLat: b.MinY, MaxLng: b.MaxX, MaxLat: b.MaxY})
	g, err := geo.Transform(d.Geom, geo.Geographic, frame)
	if err != nil {
		return 0
	}
	mp := g.(*geom.MultiPolygon)

	var area float64
	for i := 0; i < mp.NumPolygons(); i++ {
		p := mp.Polygon(i)
		for j := 0; j < p.NumLinearRings(); j++ {
			a := math.Abs(geo.RingArea(p.LinearRing(j).FlatCoords()))
			if j == 0 {
				area += a
			} else {
				area -= a
			}
		}
	}
	return area / 1e6
}

// Set is a read-only, indexed collection of districts of one kind. It is
// safe for concurrent use.
type Set struct {
	Kind      model.DistrictKind
	Districts []District

	byID  map[string][]int
	index *geo.Index
}

// NewSet indexes districts. An empty slice is an error, never an empty set.
func NewSet(kind model.DistrictKind, districts []District) (*Set, error) {
	if len(districts) == 0 {
		return nil, eris.Wrapf(ErrNoDistricts, "%s", kind)
	}
	boxes := make([]geo.Box, len(districts))
	byID := make(map[string][]int, len(districts))
	for i, d := range districts {
		if d.Geom == nil {
			return nil, eris.Errorf("boundary: %s district %q has no geometry", kind, d.ID)
		}
		boxes[i] = geo.BoundsOf(d.Geom)
		byID[d.ID] = append(byID[d.ID], i)
	}
	ix, err := geo.NewIndex(boxes)
	if err != nil {
		return nil, eris.Wrap(err, "boundary: index districts")
	}
	return &Set{Kind: kind, Districts: districts, byID: byID, index: ix}, nil
}

// Locate returns the ids of every district containing p, in ascending id
// order. p must be geographic.
func (s *Set) Locate(p geo.Point) ([]string, error) {
	if p.Frame != geo.Geographic {
		return nil, eris.Wrapf(geo.ErrFrameMismatch, "point in %s, districts in %s", p.Frame, geo.Geographic)
	}
	seen := make(map[string]bool)
	var ids []string
	c := p.Coord()
	s.index.SearchPoint(p.X, p.Y, func(ref int) bool {
		d := s.Districts[ref]
		if !seen[d.ID] && geo.MultiPolygonContains(d.Geom, c) {
			seen[d.ID] = true
			ids = append(ids, d.ID)
		}
		return true
	})
	sort.Strings(ids)
	return ids, nil
}

// Contains reports whether district id contains p.
func (s *Set) Contains(id string, p geo.Point) (bool, error) {
	if p.Frame != geo.Geographic {
		return false, eris.Wrapf(geo.ErrFrameMismatch, "point in %s, districts in %s", p.Frame, geo.Geographic)
	}
	for _, i := range s.byID[id] {
		if geo.MultiPolygonContains(s.Districts[i].Geom, p.Coord()) {
			return true, nil
		}
	}
	return false, nil
}

// IDs lists the distinct district ids.
func (s *Set) IDs() []string {
	ids := make([]string, 0, len(s.byID))
	for id := range s.byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
