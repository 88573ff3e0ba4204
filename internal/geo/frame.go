// Package geo holds the geometry primitives of the enrichment pipeline:
// explicit reference frames, a local distance-preserving projection,
// polygon containment, linear and radial buffers, and a packed R-tree.
package geo

import (
	"fmt"
	"math"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
)

// SRIDWGS84 is the SRID of geographic longitude/latitude coordinates.
const SRIDWGS84 = 4326

// FeetToMeters converts survey distances given in feet.
const FeetToMeters = 0.3048

// ErrFrameMismatch is returned when geometries in different frames are
// compared without an explicit projection.
var ErrFrameMismatch = eris.New("geo: reference frame mismatch")

// FrameKind distinguishes geographic from planar frames.
type FrameKind uint8

const (
	// KindUnknown is the zero value. Nothing compares equal to it.
	KindUnknown FrameKind = iota
	// KindGeographic is WGS84 longitude/latitude in degrees.
	KindGeographic
	// KindPlanar is a local conformal projection in meters.
	KindPlanar
)

// Frame is a coordinate reference frame. Frames are comparable with ==;
// two planar frames are the same frame only if their parameters match.
type Frame struct {
	Kind FrameKind
	// Lon0 and Lat0 locate the projection origin of a planar frame. Lat0 is
	// also the true-scale parallel.
	Lon0 float64
	Lat0 float64
}

// Geographic is the WGS84 longitude/latitude frame.
var Geographic = Frame{Kind: KindGeographic}

// NewPlanar returns a planar frame that is true to scale along lat0 and has
// its origin at (lon0, lat0).
func NewPlanar(lon0, lat0 float64) Frame {
	return Frame{Kind: KindPlanar, Lon0: lon0, Lat0: lat0}
}

// PlanarFor returns the planar frame centered on b.
func PlanarFor(b BBox) Frame {
	return NewPlanar((b.MinLng+b.MaxLng)/2, (b.MinLat+b.MaxLat)/2)
}

func (f Frame) String() string {
	switch f.Kind {
	case KindGeographic:
		return "EPSG:4326"
	case KindPlanar:
		return fmt.Sprintf("local-mercator(lon0=%.6f,lat0=%.6f)", f.Lon0, f.Lat0)
	}
	return "unknown"
}

// SRID is the SRID stamped on geometries in this frame. Planar frames are
// local and carry 0.
func (f Frame) SRID() int {
	if f.Kind == KindGeographic {
		return SRIDWGS84
	}
	return 0
}

// WGS84 ellipsoid.
const (
	semiMajor     = 6378137.0
	flattening    = 1 / 298.257223563
	eccentricity2 = flattening * (2 - flattening)
)

// radius is the Gaussian mean radius of curvature at lat0, the sphere that
// best fits the ellipsoid around the frame origin.
func (f Frame) radius() float64 {
	s := math.Sin(f.Lat0 * math.Pi / 180)
	w := 1 - eccentricity2*s*s
	m := semiMajor * (1 - eccentricity2) / math.Pow(w, 1.5)
	n := semiMajor / math.Sqrt(w)
	return math.Sqrt(m * n)
}

func mercY(latRad float64) float64 {
	return math.Log(math.Tan(math.Pi/4 + latRad/2))
}

// Forward projects a longitude/latitude into f. f must be planar.
func (f Frame) Forward(lon, lat float64) (x, y float64) {
	k := f.radius() * math.Cos(f.Lat0*math.Pi/180)
	x = k * (lon - f.Lon0) * math.Pi / 180
	y = k * (mercY(lat*math.Pi/180) - mercY(f.Lat0*math.Pi/180))
	return x, y
}

// Inverse unprojects planar meters in f back to longitude/latitude.
func (f Frame) Inverse(x, y float64) (lon, lat float64) {
	k := f.radius() * math.Cos(f.Lat0*math.Pi/180)
	lon = f.Lon0 + x/k*180/math.Pi
	lat = (2*math.Atan(math.Exp(y/k+mercY(f.Lat0*math.Pi/180))) - math.Pi/2) * 180 / math.Pi
	return lon, lat
}

// Point is a coordinate tagged with its frame.
type Point struct {
	X, Y  float64
	Frame Frame
}

// LonLat returns a geographic point.
func LonLat(lon, lat float64) Point {
	return Point{X: lon, Y: lat, Frame: Geographic}
}

// Coord returns the point as a go-geom coordinate.
func (p Point) Coord() geom.Coord {
	return geom.Coord{p.X, p.Y}
}

// To converts p into frame f.
func (p Point) To(f Frame) (Point, error) {
	if p.Frame == f {
		return p, nil
	}
	x, y, err := convert(p.X, p.Y, p.Frame, f)
	if err != nil {
		return Point{}, err
	}
	return Point{X: x, Y: y, Frame: f}, nil
}

func convert(x, y float64, from, to Frame) (float64, float64, error) {
	if from.Kind == KindUnknown || to.Kind == KindUnknown {
		return 0, 0, eris.Wrapf(ErrFrameMismatch, "convert %s to %s", from, to)
	}
	if from == to {
		return x, y, nil
	}
	lon, lat := x, y
	if from.Kind == KindPlanar {
		lon, lat = from.Inverse(x, y)
	}
	if to.Kind == KindPlanar {
		px, py := to.Forward(lon, lat)
		return px, py, nil
	}
	return lon, lat, nil
}

// Transform returns a copy of g with every coordinate converted from one
// frame to another. Only XY layouts are supported.
func Transform(g geom.T, from, to Frame) (geom.T, error) {
	return mapXY(g, to.SRID(), func(x, y float64) (float64, float64, error) {
		return convert(x, y, from, to)
	})
}

// mapXY returns a copy of g with fn applied to every coordinate and srid
// stamped on the result.
func mapXY(g geom.T, srid int, fn func(x, y float64) (float64, float64, error)) (geom.T, error) {
	if g == nil {
		return nil, nil
	}
	if g.Layout() != geom.XY {
		return nil, eris.Errorf("geo: transform: unsupported layout %v", g.Layout())
	}

	var out geom.T
	switch t := g.(type) {
	case *geom.Point:
		out = t.Clone()
	case *geom.LineString:
		out = t.Clone()
	case *geom.MultiLineString:
		out = t.Clone()
	case *geom.Polygon:
		out = t.Clone()
	case *geom.MultiPolygon:
		out = t.Clone()
	default:
		return nil, eris.Errorf("geo: transform: unsupported geometry %T", g)
	}

	flat := out.FlatCoords()
	for i := 0; i+1 < len(flat); i += 2 {
		x, y, err := fn(flat[i], flat[i+1])
		if err != nil {
			return nil, err
		}
		flat[i], flat[i+1] = x, y
	}

	switch t := out.(type) {
	case *geom.Point:
		t.SetSRID(srid)
	case *geom.LineString:
		t.SetSRID(srid)
	case *geom.MultiLineString:
		t.SetSRID(srid)
	case *geom.Polygon:
		t.SetSRID(srid)
	case *geom.MultiPolygon:
		t.SetSRID(srid)
	}
	return out, nil
}
