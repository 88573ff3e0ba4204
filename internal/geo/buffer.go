package geo

import (
	"math"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
)

// touchTolerance absorbs floating point noise so points exactly on the
// buffer edge stay members.
const touchTolerance = 1e-9

// Buffer is the union of round-capped buffers of a set of line strings,
// held in a planar frame. A point is inside when its distance to the nearest
// line is at most Distance. A Buffer with no lines is empty and contains
// nothing.
type Buffer struct {
	Frame    Frame
	Distance float64 // meters

	segments [][4]float64
	index    *Index
}

// NewLineBuffer buffers lines, given in the planar frame, by distance meters.
func NewLineBuffer(frame Frame, lines []*geom.LineString, distance float64) (*Buffer, error) {
	if frame.Kind != KindPlanar {
		return nil, eris.Wrapf(ErrFrameMismatch, "buffer needs a planar frame, got %s", frame)
	}
	if distance < 0 || math.IsNaN(distance) {
		return nil, eris.Errorf("geo: buffer distance %v must be non-negative", distance)
	}

	var segs [][4]float64
	for _, ls := range lines {
		if ls == nil || ls.NumCoords() == 0 {
			continue
		}
		if ls.NumCoords() == 1 {
			c := ls.Coord(0)
			segs = append(segs, [4]float64{c[0], c[1], c[0], c[1]})
			continue
		}
		for i := 0; i+1 < ls.NumCoords(); i++ {
			a, b := ls.Coord(i), ls.Coord(i+1)
			segs = append(segs, [4]float64{a[0], a[1], b[0], b[1]})
		}
	}
	return newBuffer(frame, segs, distance)
}

// NewRadiusBuffer is the disc of radius meters around center. center must be
// in a planar frame.
func NewRadiusBuffer(center Point, radius float64) (*Buffer, error) {
	if center.Frame.Kind != KindPlanar {
		return nil, eris.Wrapf(ErrFrameMismatch, "zone center must be planar, got %s", center.Frame)
	}
	if radius < 0 || math.IsNaN(radius) {
		return nil, eris.Errorf("geo: zone radius %v must be non-negative", radius)
	}
	return newBuffer(center.Frame, [][4]float64{{center.X, center.Y, center.X, center.Y}}, radius)
}

func newBuffer(frame Frame, segs [][4]float64, distance float64) (*Buffer, error) {
	boxes := make([]Box, len(segs))
	for i, s := range segs {
		boxes[i] = Box{
			MinX: math.Min(s[0], s[2]),
			MinY: math.Min(s[1], s[3]),
			MaxX: math.Max(s[0], s[2]),
			MaxY: math.Max(s[1], s[3]),
		}.Expand(distance + touchTolerance)
	}
	ix, err := NewIndex(boxes)
	if err != nil {
		return nil, err
	}
	return &Buffer{Frame: frame, Distance: distance, segments: segs, index: ix}, nil
}

// Empty reports whether the buffer has no area at all.
func (b *Buffer) Empty() bool { return len(b.segments) == 0 }

// Contains reports whether p is inside the buffer. p must already be in the
// buffer's frame.
func (b *Buffer) Contains(p Point) (bool, error) {
	if p.Frame != b.Frame {
		return false, eris.Wrapf(ErrFrameMismatch, "point in %s, buffer in %s", p.Frame, b.Frame)
	}
	inside := false
	c := geom.Coord{p.X, p.Y}
	b.index.SearchPoint(p.X, p.Y, func(ref int) bool {
		if segmentDistance(c, b.segments[ref]) <= b.Distance+touchTolerance {
			inside = true
			return false
		}
		return true
	})
	return inside, nil
}

func segmentDistance(c geom.Coord, s [4]float64) float64 {
	if s[0] == s[2] && s[1] == s[3] {
		return math.Hypot(c[0]-s[0], c[1]-s[1])
	}
	return xy.DistanceFromPointToLineString(geom.XY, c, s[:])
}

// Outline approximates the buffer as polygons in its own frame: one capsule
// per segment, each cap drawn with arcSteps vertices per half circle.
// Capsules overlap and are not dissolved; the result is for display.
func (b *Buffer) Outline(arcSteps int) *geom.MultiPolygon {
	if arcSteps < 4 {
		arcSteps = 4
	}
	mp := geom.NewMultiPolygon(geom.XY).SetSRID(b.Frame.SRID())
	for _, s := range b.segments {
		ring := capsule(s, b.Distance, arcSteps)
		poly := geom.NewPolygonFlat(geom.XY, ring, []int{len(ring)})
		if err := mp.Push(poly); err != nil {
			continue
		}
	}
	return mp
}

// GeographicOutline is Outline converted to longitude/latitude.
func (b *Buffer) GeographicOutline(arcSteps int) (*geom.MultiPolygon, error) {
	g, err := Transform(b.Outline(arcSteps), b.Frame, Geographic)
	if err != nil {
		return nil, eris.Wrap(err, "geo: unproject outline")
	}
	return g.(*geom.MultiPolygon), nil
}

// capsule traces a counter-clockwise closed ring around segment s.
func capsule(s [4]float64, r float64, steps int) []float64 {
	heading := math.Atan2(s[3]-s[1], s[2]-s[0])
	ring := make([]float64, 0, 4*(steps+1)+2)
	// Cap around the end point sweeps from the right side to the left side.
	for i := 0; i <= steps; i++ {
		a := heading - math.Pi/2 + math.Pi*float64(i)/float64(steps)
		ring = append(ring, s[2]+r*math.Cos(a), s[3]+r*math.Sin(a))
	}
	for i := 0; i <= steps; i++ {
		a := heading + math.Pi/2 + math.Pi*float64(i)/float64(steps)
		ring = append(ring, s[0]+r*math.Cos(a), s[1]+r*math.Sin(a))
	}
	return append(ring, ring[0], ring[1])
}
