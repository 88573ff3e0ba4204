package overpass

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// Query selects highway ways by a case-insensitive name pattern inside a
// bounding box given in degrees.
type Query struct {
	// Name is matched literally; regex metacharacters are escaped.
	Name   string
	MinLat float64
	MinLng float64
	MaxLat float64
	MaxLng float64
}

// Build renders the Overpass QL for q.
func (q Query) Build(timeout time.Duration) (string, error) {
	name := strings.TrimSpace(q.Name)
	if name == "" {
		return "", eris.New("overpass: empty name filter")
	}
	if q.MinLat >= q.MaxLat || q.MinLng >= q.MaxLng {
		return "", eris.Errorf("overpass: empty bounding box (%g,%g,%g,%g)", q.MinLat, q.MinLng, q.MaxLat, q.MaxLng)
	}
	secs := int(timeout / time.Second)
	if secs <= 0 {
		secs = 90
	}
	return fmt.Sprintf(
		"[out:json][timeout:%d];\nway[\"highway\"][\"name\"~\"%s\",i](%s,%s,%s,%s);\nout geom;",
		secs, escapeQL(regexp.QuoteMeta(name)),
		coord(q.MinLat), coord(q.MinLng), coord(q.MaxLat), coord(q.MaxLng),
	), nil
}

// escapeQL escapes a value for a double-quoted Overpass QL string.
func escapeQL(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)
	return r.Replace(s)
}

func coord(v float64) string {
	return fmt.Sprintf("%.6f", v)
}
