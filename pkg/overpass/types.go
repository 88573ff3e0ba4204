package overpass

// LatLon is one vertex of a way, in degrees.
type LatLon struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Way is a road polyline returned by Overpass.
type Way struct {
	ID       int64
	Name     string
	Highway  string
	Tags     map[string]string
	Geometry []LatLon
}

type response struct {
	Remark   string    `json:"remark"`
	Elements []element `json:"elements"`
}

type element struct {
	Type     string            `json:"type"`
	ID       int64             `json:"id"`
	Tags     map[string]string `json:"tags"`
	Geometry []LatLon          `json:"geometry"`
}

// ways keeps way elements with at least two vertices.
func (r *response) ways() []Way {
	out := make([]Way, 0, len(r.Elements))
	for _, e := range r.Elements {
		if e.Type != "way" || len(e.Geometry) < 2 {
			continue
		}
		out = append(out, Way{
			ID:       e.ID,
			Name:     e.Tags["name"],
			Highway:  e.Tags["highway"],
			Tags:     e.Tags,
			Geometry: e.Geometry,
		})
	}
	return out
}
