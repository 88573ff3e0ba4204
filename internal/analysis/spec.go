package analysis

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/crash-cli/internal/config"
	"github.com/sells-group/crash-cli/internal/geo"
	"github.com/sells-group/crash-cli/internal/model"
	"github.com/sells-group/crash-cli/internal/summary"
)

// Spec describes one analysis. Corridor fields apply to corridor analyses
// and zone fields to zone analyses.
type Spec struct {
	Name    string             `json:"name"`
	Kind    model.AnalysisKind `json:"kind"`
	GroupBy summary.GroupBy    `json:"group_by"`

	Filter     string   `json:"filter,omitempty"`
	BufferFeet float64  `json:"buffer_feet,omitempty"`
	Region     geo.BBox `json:"region,omitempty"`

	Longitude  float64 `json:"longitude,omitempty"`
	Latitude   float64 `json:"latitude,omitempty"`
	RadiusFeet float64 `json:"radius_feet,omitempty"`
}

// Districts is the plain district analysis over every record.
func Districts(opts Options) Spec {
	return Spec{Name: "districts", Kind: model.AnalysisDistricts, GroupBy: opts.GroupBy}
}

// Corridor builds a corridor spec, filling unset values from opts.
func Corridor(opts Options, cc config.CorridorConfig) (Spec, error) {
	s := Spec{
		Name:       cc.Name,
		Kind:       model.AnalysisCorridor,
		Filter:     strings.TrimSpace(cc.Filter),
		BufferFeet: cc.BufferFeet,
		Region:     cc.Region,
	}
	if s.Name == "" {
		s.Name = s.Filter
	}
	if s.BufferFeet == 0 {
		s.BufferFeet = opts.BufferFeet
	}
	if s.Region.IsZero() {
		s.Region = opts.Region
	}
	g, err := groupOrDefault(cc.GroupBy, opts)
	if err != nil {
		return Spec{}, err
	}
	s.GroupBy = g
	return s, s.Validate()
}

// Zone builds a fixed-radius zone spec, filling unset values from opts.
func Zone(opts Options, zc config.ZoneConfig) (Spec, error) {
	s := Spec{
		Name:       zc.Name,
		Kind:       model.AnalysisZone,
		Longitude:  zc.Longitude,
		Latitude:   zc.Latitude,
		RadiusFeet: zc.RadiusFeet,
		Region:     opts.Region,
	}
	if s.RadiusFeet == 0 {
		s.RadiusFeet = opts.ZoneRadiusFeet
	}
	g, err := groupOrDefault(zc.GroupBy, opts)
	if err != nil {
		return Spec{}, err
	}
	s.GroupBy = g
	return s, s.Validate()
}

func groupOrDefault(s string, opts Options) (summary.GroupBy, error) {
	if strings.TrimSpace(s) == "" {
		return opts.GroupBy, nil
	}
	return summary.ParseGroupBy(s)
}

// Validate checks the fields the spec's kind needs.
func (s Spec) Validate() error {
	switch s.Kind {
	case model.AnalysisDistricts:
	case model.AnalysisCorridor:
		if s.Filter == "" {
			return eris.Errorf("analysis: corridor %q has no filter", s.Name)
		}
		if s.BufferFeet < 0 {
			return eris.Errorf("analysis: corridor %q buffer %g ft is negative", s.Name, s.BufferFeet)
		}
		if err := s.Region.Validate(); err != nil {
			return eris.Wrapf(err, "analysis: corridor %q", s.Name)
		}
	case model.AnalysisZone:
		// A zero ordinate is an omitted one.
		if s.Longitude == 0 || s.Latitude == 0 {
			return eris.Errorf("analysis: zone %q needs both longitude and latitude", s.Name)
		}
		if s.Longitude < -180 || s.Longitude > 180 || s.Latitude < -90 || s.Latitude > 90 {
			return eris.Errorf("analysis: zone %q center (%g, %g) out of range", s.Name, s.Longitude, s.Latitude)
		}
		if !s.Region.IsZero() && !s.Region.Contains(s.Longitude, s.Latitude) {
			return eris.Errorf("analysis: zone %q center (%g, %g) is outside the analysis region", s.Name, s.Longitude, s.Latitude)
		}
		if s.RadiusFeet < 0 {
			return eris.Errorf("analysis: zone %q radius %g ft is negative", s.Name, s.RadiusFeet)
		}
	default:
		return eris.Errorf("analysis: unknown kind %q", s.Kind)
	}
	return nil
}

// Catalog is a YAML file of corridor and zone definitions.
type Catalog struct {
	Corridors []config.CorridorConfig `yaml:"corridors"`
	Zones     []config.ZoneConfig     `yaml:"zones"`
}

// LoadCatalog reads a catalog file.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "analysis: read catalog %s", path)
	}
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, eris.Wrapf(err, "analysis: parse catalog %s", path)
	}
	return &c, nil
}

// Specs expands corridors and zones into analysis specs.
func Specs(opts Options, corridors []config.CorridorConfig, zones []config.ZoneConfig) ([]Spec, error) {
	specs := make([]Spec, 0, len(corridors)+len(zones))
	for i, cc := range corridors {
		s, err := Corridor(opts, cc)
		if err != nil {
			return nil, eris.Wrapf(err, "analysis: corridors[%d]", i)
		}
		specs = append(specs, s)
	}
	for i, zc := range zones {
		s, err := Zone(opts, zc)
		if err != nil {
			return nil, eris.Wrapf(err, "analysis: zones[%d]", i)
		}
		specs = append(specs, s)
	}
	return specs, nil
}
