package geo

import (
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
)

// BBox is a geographic bounding region in degrees.
type BBox struct {
	MinLng float64 `yaml:"min_lng" mapstructure:"min_lng" json:"min_lng"`
	MinLat float64 `yaml:"min_lat" mapstructure:"min_lat" json:"min_lat"`
	MaxLng float64 `yaml:"max_lng" mapstructure:"max_lng" json:"max_lng"`
	MaxLat float64 `yaml:"max_lat" mapstructure:"max_lat" json:"max_lat"`
}

// ChicagoBBox covers the City of Chicago.
var ChicagoBBox = BBox{MinLng: -87.94, MinLat: 41.64, MaxLng: -87.52, MaxLat: 42.02}

// Validate checks that b is a non-degenerate region on the globe.
func (b BBox) Validate() error {
	if b.MinLng < -180 || b.MaxLng > 180 || b.MinLat < -90 || b.MaxLat > 90 {
		return eris.Errorf("geo: bbox %+v out of range", b)
	}
	if b.MinLng >= b.MaxLng || b.MinLat >= b.MaxLat {
		return eris.Errorf("geo: bbox %+v is empty", b)
	}
	return nil
}

// IsZero reports whether b is unset.
func (b BBox) IsZero() bool {
	return b == BBox{}
}

// Contains reports whether (lon, lat) lies in b, edges included.
func (b BBox) Contains(lon, lat float64) bool {
	return lon >= b.MinLng && lon <= b.MaxLng && lat >= b.MinLat && lat <= b.MaxLat
}

// Box is an axis-aligned rectangle in any frame.
type Box struct {
	MinX, MinY, MaxX, MaxY float64
}

// BoundsOf returns the bounding box of g.
func BoundsOf(g geom.T) Box {
	b := g.Bounds()
	return Box{MinX: b.Min(0), MinY: b.Min(1), MaxX: b.Max(0), MaxY: b.Max(1)}
}

// Expand grows the box by d on every side.
func (b Box) Expand(d float64) Box {
	return Box{MinX: b.MinX - d, MinY: b.MinY - d, MaxX: b.MaxX + d, MaxY: b.MaxY + d}
}
