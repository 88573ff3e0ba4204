package geo

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/wroge/wgs84"
)

// USFootToMeters converts US survey feet, the unit of the Illinois State
// Plane layers published by Chicago and Cook County.
const USFootToMeters = 1200.0 / 3937.0

// Illinois State Plane zones on NAD83, in meters.
var (
	illinoisEast = wgs84.NAD83().TransverseMercator(-88.33333333333333, 36.666666666666664, 0.999975, 300000, 0)
	illinoisWest = wgs84.NAD83().TransverseMercator(-90.16666666666667, 36.666666666666664, 0.999941177, 700000, 0)
)

// crsRegistry extends the wgs84 EPSG repository with the projected systems
// regional boundary layers arrive in.
var crsRegistry = func() *wgs84.Repository {
	r := wgs84.EPSG()
	r.Add(26971, illinoisEast)
	r.Add(26972, illinoisWest)
	r.Add(3435, usFeet{illinoisEast})
	r.Add(3436, usFeet{illinoisWest})
	// ESRI codes for the same ftUS zones.
	r.Add(102671, usFeet{illinoisEast})
	r.Add(102672, usFeet{illinoisWest})
	for zone := 1; zone <= 23; zone++ {
		r.Add(26900+zone, wgs84.NAD83().TransverseMercator(float64(6*zone-183), 0, 0.9996, 500000, 0))
	}
	return r
}()

// esriProjected maps ESRI .prj names, which carry no authority code, to EPSG.
var esriProjected = map[string]int{
	"NAD_1983_STATEPLANE_ILLINOIS_EAST_FIPS_1201_FEET": 3435,
	"NAD_1983_STATEPLANE_ILLINOIS_WEST_FIPS_1202_FEET": 3436,
	"NAD_1983_STATEPLANE_ILLINOIS_EAST_FIPS_1201":      26971,
	"NAD_1983_STATEPLANE_ILLINOIS_WEST_FIPS_1202":      26972,
	"NAD_1983_UTM_ZONE_15N":                            26915,
	"NAD_1983_UTM_ZONE_16N":                            26916,
	"WGS_1984_UTM_ZONE_15N":                            32615,
	"WGS_1984_UTM_ZONE_16N":                            32616,
	"WGS_1984_WEB_MERCATOR_AUXILIARY_SPHERE":           3857,
	"WGS_1984_WEB_MERCATOR":                            3857,
}

// usFeet adapts a meter-based projection to coordinates in US survey feet.
type usFeet struct {
	wgs84.ProjectedReferenceSystem
}

func (u usFeet) ToWGS84(east, north, h float64) (x0, y0, z0 float64) {
	return u.ProjectedReferenceSystem.ToWGS84(east*USFootToMeters, north*USFootToMeters, h)
}

func (u usFeet) FromWGS84(x0, y0, z0 float64) (east, north, h float64) {
	east, north, h = u.ProjectedReferenceSystem.FromWGS84(x0, y0, z0)
	return east / USFootToMeters, north / USFootToMeters, h
}

// CRS is the coordinate reference system a source layer is stored in.
type CRS struct {
	Code int
	sys  wgs84.CoordinateReferenceSystem
}

// WGS84 is geographic longitude/latitude, the system every layer is read into.
var WGS84 = CRS{Code: SRIDWGS84, sys: wgs84.LonLat()}

func (c CRS) String() string {
	return "EPSG:" + strconv.Itoa(c.Code)
}

// IsGeographic reports whether c stores longitude/latitude degrees.
func (c CRS) IsGeographic() bool {
	_, ok := c.sys.(wgs84.GeographicReferenceSystem)
	return ok
}

// CRSFromEPSG looks up a geographic or projected system by EPSG code.
func CRSFromEPSG(code int) (CRS, error) {
	sys := crsRegistry.Code(code)
	if sys == nil {
		return CRS{}, eris.Errorf("geo: unsupported CRS EPSG:%d", code)
	}
	if _, ok := sys.(wgs84.GeocentricReferenceSystem); ok {
		return CRS{}, eris.Errorf("geo: geocentric CRS EPSG:%d is not a map projection", code)
	}
	return CRS{Code: code, sys: sys}, nil
}

var (
	crsNameCode  = regexp.MustCompile(`(?i)EPSG:(?:[\d.]*:)?(\d+)$`)
	wktAuthority = regexp.MustCompile(`(?i)(?:AUTHORITY|ID)\[\s*"EPSG"\s*,\s*"?(\d+)"?\s*\]`)
	wktName      = regexp.MustCompile(`(?i)^PROJ(?:CS|CRS)\[\s*"([^"]+)"`)
)

// ParseCRSName resolves a GeoJSON crs member such as "EPSG:3435",
// "urn:ogc:def:crs:EPSG::3435" or "urn:ogc:def:crs:OGC:1.3:CRS84".
func ParseCRSName(name string) (CRS, error) {
	name = strings.TrimSpace(name)
	if strings.HasSuffix(strings.ToUpper(name), "CRS84") {
		return WGS84, nil
	}
	m := crsNameCode.FindStringSubmatch(name)
	if m == nil {
		return CRS{}, eris.Errorf("geo: unrecognized CRS name %q", name)
	}
	code, _ := strconv.Atoi(m[1])
	return CRSFromEPSG(code)
}

// ParsePrj resolves the system a shapefile .prj declares. Geographic WKT is
// read as WGS84; projected WKT resolves through its outermost EPSG authority,
// falling back to the ESRI projection name.
func ParsePrj(wkt string) (CRS, error) {
	wkt = strings.TrimSpace(wkt)
	upper := strings.ToUpper(wkt)
	if strings.HasPrefix(upper, "GEOGCS") || strings.HasPrefix(upper, "GEOGCRS") {
		return WGS84, nil
	}
	if !strings.HasPrefix(upper, "PROJCS") && !strings.HasPrefix(upper, "PROJCRS") {
		return CRS{}, eris.Errorf("geo: unrecognized .prj %.40q", wkt)
	}

	// WKT closes the outermost element last.
	if all := wktAuthority.FindAllStringSubmatch(wkt, -1); len(all) > 0 {
		code, _ := strconv.Atoi(all[len(all)-1][1])
		return CRSFromEPSG(code)
	}
	if m := wktName.FindStringSubmatch(wkt); m != nil {
		if code, ok := esriProjected[strings.ToUpper(m[1])]; ok {
			return CRSFromEPSG(code)
		}
		return CRS{}, eris.Errorf("geo: unsupported projected CRS %q", m[1])
	}
	return CRS{}, eris.New("geo: projected .prj without a name or authority")
}

// ToLonLat converts one coordinate of c to WGS84 longitude/latitude.
func (c CRS) ToLonLat(x, y float64) (lon, lat float64, err error) {
	if c.sys == nil {
		return 0, 0, eris.New("geo: CRS not set")
	}
	if c.Code == SRIDWGS84 {
		return x, y, nil
	}
	lon, lat, _ = wgs84.Transform(c.sys, wgs84.LonLat())(x, y, 0)
	if math.IsNaN(lon) || math.IsNaN(lat) {
		return 0, 0, eris.Errorf("geo: (%g, %g) does not convert from %s", x, y, c)
	}
	return lon, lat, nil
}

// ToGeographic returns a copy of g reprojected from c to WGS84
// longitude/latitude. Geometries already in WGS84 are returned as is.
func (c CRS) ToGeographic(g geom.T) (geom.T, error) {
	if c.Code == SRIDWGS84 {
		return g, nil
	}
	return mapXY(g, SRIDWGS84, func(x, y float64) (float64, float64, error) {
		return c.ToLonLat(x, y)
	})
}
