// Package corridor resolves named road corridors into planar line geometry
// ready for buffering.
package corridor

import (
	"context"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/sells-group/crash-cli/internal/geo"
)

// Segment is one matched road line in the corridor's planar frame.
type Segment struct {
	WayID      int64
	StreetName string
	Line       *geom.LineString
}

// LengthMeters is the planar length of the segment.
func (s Segment) LengthMeters() float64 {
	if s.Line == nil {
		return 0
	}
	return s.Line.Length()
}

// Resolver finds road segments whose street name contains filter,
// case-insensitively, inside region. Implementations return segments in
// geo.PlanarFor(region).
type Resolver interface {
	Resolve(ctx context.Context, region geo.BBox, filter string) ([]Segment, error)
}

// Corridor is the resolved geometry for one named corridor.
type Corridor struct {
	Name     string
	Filter   string
	Region   geo.BBox
	Frame    geo.Frame
	Segments []Segment
}

// Load resolves a corridor. No matching roads is not an error; the corridor
// is empty and its buffer contains nothing.
func Load(ctx context.Context, r Resolver, name string, region geo.BBox, filter string) (*Corridor, error) {
	if err := region.Validate(); err != nil {
		return nil, eris.Wrapf(err, "corridor: %s", name)
	}
	if strings.TrimSpace(filter) == "" {
		return nil, eris.Errorf("corridor: %s has no street filter", name)
	}

	segs, err := r.Resolve(ctx, region, filter)
	if err != nil {
		return nil, eris.Wrapf(err, "corridor: resolve %s", name)
	}

	c := &Corridor{Name: name, Filter: filter, Region: region, Frame: geo.PlanarFor(region), Segments: segs}
	log := zap.L().With(zap.String("component", "corridor"), zap.String("corridor", name))
	if len(segs) == 0 {
		log.Warn("corridor: no roads matched filter", zap.String("filter", filter))
	} else {
		log.Info("corridor: resolved",
			zap.Int("segments", len(segs)),
			zap.Strings("streets", c.StreetNames()),
			zap.Float64("length_m", c.LengthMeters()),
		)
	}
	return c, nil
}

// Lines returns the segment geometries.
func (c *Corridor) Lines() []*geom.LineString {
	out := make([]*geom.LineString, 0, len(c.Segments))
	for _, s := range c.Segments {
		if s.Line != nil {
			out = append(out, s.Line)
		}
	}
	return out
}

// StreetNames lists the distinct matched street names.
func (c *Corridor) StreetNames() []string {
	seen := make(map[string]bool)
	var names []string
	for _, s := range c.Segments {
		if s.StreetName != "" && !seen[s.StreetName] {
			seen[s.StreetName] = true
			names = append(names, s.StreetName)
		}
	}
	sort.Strings(names)
	return names
}

// LengthMeters sums the segment lengths.
func (c *Corridor) LengthMeters() float64 {
	var total float64
	for _, s := range c.Segments {
		total += s.LengthMeters()
	}
	return total
}

// Buffer builds the union of buffers of width feet around every segment.
func (c *Corridor) Buffer(feet float64) (*geo.Buffer, error) {
	if feet < 0 {
		return nil, eris.Errorf("corridor: negative buffer distance %g ft", feet)
	}
	return geo.NewLineBuffer(c.Frame, c.Lines(), feet*geo.FeetToMeters)
}

// NormalizeName canonicalizes a street name for display: NFC, trimmed, inner
// whitespace collapsed.
func NormalizeName(s string) string {
	return strings.Join(strings.Fields(norm.NFC.String(s)), " ")
}

// matches reports whether name contains filter under Unicode case folding.
func matches(name, filter string) bool {
	fold := cases.Fold()
	return strings.Contains(fold.String(NormalizeName(name)), fold.String(NormalizeName(filter)))
}

// project converts a lon/lat polyline into frame.
func project(frame geo.Frame, lonlat []float64) (*geom.LineString, error) {
	ls := geom.NewLineStringFlat(geom.XY, lonlat).SetSRID(geo.SRIDWGS84)
	g, err := geo.Transform(ls, geo.Geographic, frame)
	if err != nil {
		return nil, err
	}
	return g.(*geom.LineString), nil
}
