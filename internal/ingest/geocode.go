package ingest

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/crash-cli/internal/geo"
)

// Reasons a row is excluded before it reaches any spatial stage.
var (
	ErrMissingCoordinates   = eris.New("ingest: missing coordinates")
	ErrMalformedCoordinates = eris.New("ingest: malformed coordinates")
	ErrBadTimestamp         = eris.New("ingest: unparseable timestamp")
)

// Geocode builds a geographic point from the named longitude and latitude
// columns of row. Empty values yield ErrMissingCoordinates; non-numeric or
// out-of-range values yield ErrMalformedCoordinates.
func Geocode(row map[string]string, lonCol, latCol string) (geo.Point, error) {
	lonS := strings.TrimSpace(row[normalize(lonCol)])
	latS := strings.TrimSpace(row[normalize(latCol)])
	if lonS == "" || latS == "" {
		return geo.Point{}, ErrMissingCoordinates
	}

	lon, err := strconv.ParseFloat(lonS, 64)
	if err != nil {
		return geo.Point{}, eris.Wrapf(ErrMalformedCoordinates, "longitude %q", lonS)
	}
	lat, err := strconv.ParseFloat(latS, 64)
	if err != nil {
		return geo.Point{}, eris.Wrapf(ErrMalformedCoordinates, "latitude %q", latS)
	}
	if math.IsNaN(lon) || math.IsNaN(lat) || lon < -180 || lon > 180 || lat < -90 || lat > 90 {
		return geo.Point{}, eris.Wrapf(ErrMalformedCoordinates, "(%v, %v) outside WGS84 range", lon, lat)
	}
	return geo.LonLat(lon, lat), nil
}

// ParseTime tries each layout in order.
func ParseTime(s string, layouts []string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrBadTimestamp
	}
	for _, l := range layouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, eris.Wrapf(ErrBadTimestamp, "%q", s)
}

// parseCount reads a non-negative count. Blank, non-numeric and negative
// values are unknown.
func parseCount(s string) *int {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	n := int(f)
	return &n
}

// parseFlag reads Y/N style flags. Anything else is unknown.
func parseFlag(s string) *bool {
	var v bool
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "Y", "YES", "TRUE", "T", "1":
		v = true
	case "N", "NO", "FALSE", "F", "0":
		v = false
	default:
		return nil
	}
	return &v
}

func normalize(col string) string {
	return strings.ToLower(strings.TrimSpace(strings.TrimPrefix(col, "\ufeff")))
}
