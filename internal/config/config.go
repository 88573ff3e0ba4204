// Package config loads crash-cli configuration from config.yaml and CRASH_*
// environment variables.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/crash-cli/internal/geo"
)

// DateLayout is the layout of analysis.start_date and analysis.end_date.
const DateLayout = "2006-01-02"

// Config holds the full application configuration.
type Config struct {
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
	Analysis   AnalysisConfig   `yaml:"analysis" mapstructure:"analysis"`
	Damage     DamageConfig     `yaml:"damage" mapstructure:"damage"`
	Inputs     InputsConfig     `yaml:"inputs" mapstructure:"inputs"`
	Boundaries BoundariesConfig `yaml:"boundaries" mapstructure:"boundaries"`
	Overpass   OverpassConfig   `yaml:"overpass" mapstructure:"overpass"`
	Corridors  []CorridorConfig `yaml:"corridors" mapstructure:"corridors"`
	Zones      []ZoneConfig     `yaml:"zones" mapstructure:"zones"`
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// AnalysisConfig holds parameters shared by every analysis.
type AnalysisConfig struct {
	StartDate     string   `yaml:"start_date" mapstructure:"start_date"`
	EndDate       string   `yaml:"end_date" mapstructure:"end_date"`
	BufferFeet    float64  `yaml:"buffer_feet" mapstructure:"buffer_feet"`
	ZoneRadiusFt  float64  `yaml:"zone_radius_feet" mapstructure:"zone_radius_feet"`
	GroupBy       string   `yaml:"group_by" mapstructure:"group_by"`
	Concurrency   int      `yaml:"concurrency" mapstructure:"concurrency"`
	PartitionSize int      `yaml:"partition_size" mapstructure:"partition_size"`
	OutDir        string   `yaml:"out_dir" mapstructure:"out_dir"`
	Region        geo.BBox `yaml:"region" mapstructure:"region"`
}

// DamageConfig holds the cost model and its USD constants.
type DamageConfig struct {
	Model                string  `yaml:"model" mapstructure:"model"`
	Fatality             float64 `yaml:"fatality" mapstructure:"fatality"`
	IncapacitatingInjury float64 `yaml:"incapacitating_injury" mapstructure:"incapacitating_injury"`
	Injury               float64 `yaml:"injury" mapstructure:"injury"`
	BaseCrash            float64 `yaml:"base_crash" mapstructure:"base_crash"`
}

// InputsConfig locates the crash and fatality files and names their columns.
type InputsConfig struct {
	Crashes          string          `yaml:"crashes" mapstructure:"crashes"`
	Fatalities       string          `yaml:"fatalities" mapstructure:"fatalities"`
	TimestampLayouts []string        `yaml:"timestamp_layouts" mapstructure:"timestamp_layouts"`
	CrashColumns     CrashColumns    `yaml:"crash_columns" mapstructure:"crash_columns"`
	FatalityColumns  FatalityColumns `yaml:"fatality_columns" mapstructure:"fatality_columns"`
}

// CrashColumns names the crash file columns.
type CrashColumns struct {
	ID             string `yaml:"id" mapstructure:"id"`
	Date           string `yaml:"date" mapstructure:"date"`
	Longitude      string `yaml:"longitude" mapstructure:"longitude"`
	Latitude       string `yaml:"latitude" mapstructure:"latitude"`
	InjuriesTotal  string `yaml:"injuries_total" mapstructure:"injuries_total"`
	Incapacitating string `yaml:"injuries_incapacitating" mapstructure:"injuries_incapacitating"`
	FirstCrashType string `yaml:"first_crash_type" mapstructure:"first_crash_type"`
	HitAndRun      string `yaml:"hit_and_run" mapstructure:"hit_and_run"`
}

// FatalityColumns names the fatality file columns.
type FatalityColumns struct {
	PersonID  string `yaml:"person_id" mapstructure:"person_id"`
	Date      string `yaml:"date" mapstructure:"date"`
	Location  string `yaml:"location" mapstructure:"location"`
	Victim    string `yaml:"victim" mapstructure:"victim"`
	Longitude string `yaml:"longitude" mapstructure:"longitude"`
	Latitude  string `yaml:"latitude" mapstructure:"latitude"`
}

// BoundariesConfig locates the district polygon sources.
type BoundariesConfig struct {
	TempDir string         `yaml:"temp_dir" mapstructure:"temp_dir"`
	Senate  BoundaryConfig `yaml:"senate" mapstructure:"senate"`
	House   BoundaryConfig `yaml:"house" mapstructure:"house"`
}

// BoundaryConfig is one district polygon source and its id attribute.
type BoundaryConfig struct {
	Source  string `yaml:"source" mapstructure:"source"`
	IDField string `yaml:"id_field" mapstructure:"id_field"`
}

// OverpassConfig configures the map-data service client.
type OverpassConfig struct {
	URL              string  `yaml:"url" mapstructure:"url"`
	UserAgent        string  `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs      int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RatePerSec       float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	MaxAttempts      int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int     `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs     int     `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
	BreakerThreshold int     `yaml:"breaker_threshold" mapstructure:"breaker_threshold"`
	BreakerResetSecs int     `yaml:"breaker_reset_secs" mapstructure:"breaker_reset_secs"`
}

// CorridorConfig is one configured road corridor analysis.
type CorridorConfig struct {
	Name       string   `yaml:"name" mapstructure:"name"`
	Filter     string   `yaml:"filter" mapstructure:"filter"`
	BufferFeet float64  `yaml:"buffer_feet" mapstructure:"buffer_feet"`
	GroupBy    string   `yaml:"group_by" mapstructure:"group_by"`
	Region     geo.BBox `yaml:"region" mapstructure:"region"`
}

// ZoneConfig is one configured fixed-radius zone analysis.
type ZoneConfig struct {
	Name       string  `yaml:"name" mapstructure:"name"`
	Longitude  float64 `yaml:"longitude" mapstructure:"longitude"`
	Latitude   float64 `yaml:"latitude" mapstructure:"latitude"`
	RadiusFeet float64 `yaml:"radius_feet" mapstructure:"radius_feet"`
	GroupBy    string  `yaml:"group_by" mapstructure:"group_by"`
}

// StoreConfig configures the run store backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ServerConfig configures the read-only HTTP API.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// Load reads configuration from ./config.yaml (optional) and environment.
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile is Load with an explicit config file, which must exist. An empty
// path falls back to ./config.yaml.
func LoadFile(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, eris.Wrapf(err, "config: %s", path)
		}
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
	}
	v.SetConfigType("yaml")

	v.SetEnvPrefix("CRASH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("analysis.start_date", "")
	v.SetDefault("analysis.end_date", "")
	v.SetDefault("analysis.buffer_feet", 100)
	v.SetDefault("analysis.zone_radius_feet", 1700)
	v.SetDefault("analysis.group_by", "senate")
	v.SetDefault("analysis.concurrency", 4)
	v.SetDefault("analysis.partition_size", 5000)
	v.SetDefault("analysis.out_dir", "out")
	v.SetDefault("analysis.region.min_lng", geo.ChicagoBBox.MinLng)
	v.SetDefault("analysis.region.min_lat", geo.ChicagoBBox.MinLat)
	v.SetDefault("analysis.region.max_lng", geo.ChicagoBBox.MaxLng)
	v.SetDefault("analysis.region.max_lat", geo.ChicagoBBox.MaxLat)

	v.SetDefault("damage.model", "tiered")
	v.SetDefault("damage.fatality", 1778000)
	v.SetDefault("damage.incapacitating_injury", 155000)
	v.SetDefault("damage.injury", 24000)
	v.SetDefault("damage.base_crash", 11400)

	v.SetDefault("inputs.crashes", "data/traffic_crashes.csv")
	v.SetDefault("inputs.fatalities", "data/traffic_fatalities.csv")
	v.SetDefault("inputs.timestamp_layouts", []string{
		"01/02/2006 03:04:05 PM",
		"2006-01-02T15:04:05.000",
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02",
	})
	v.SetDefault("inputs.crash_columns.id", "crash_record_id")
	v.SetDefault("inputs.crash_columns.date", "crash_date")
	v.SetDefault("inputs.crash_columns.longitude", "longitude")
	v.SetDefault("inputs.crash_columns.latitude", "latitude")
	v.SetDefault("inputs.crash_columns.injuries_total", "injuries_total")
	v.SetDefault("inputs.crash_columns.injuries_incapacitating", "injuries_incapacitating")
	v.SetDefault("inputs.crash_columns.first_crash_type", "first_crash_type")
	v.SetDefault("inputs.crash_columns.hit_and_run", "hit_and_run_i")
	v.SetDefault("inputs.fatality_columns.person_id", "person_id")
	v.SetDefault("inputs.fatality_columns.date", "crash_date")
	v.SetDefault("inputs.fatality_columns.location", "crash_location")
	v.SetDefault("inputs.fatality_columns.victim", "victim")
	v.SetDefault("inputs.fatality_columns.longitude", "longitude")
	v.SetDefault("inputs.fatality_columns.latitude", "latitude")

	v.SetDefault("boundaries.temp_dir", "/tmp/crash-cli")
	v.SetDefault("boundaries.senate.source", "ftp://ftp2.census.gov/geo/tiger/TIGER2023/SLDU/tl_2023_17_sldu.zip")
	v.SetDefault("boundaries.senate.id_field", "SLDUST")
	v.SetDefault("boundaries.house.source", "ftp://ftp2.census.gov/geo/tiger/TIGER2023/SLDL/tl_2023_17_sldl.zip")
	v.SetDefault("boundaries.house.id_field", "SLDLST")

	v.SetDefault("overpass.url", "https://overpass-api.de/api/interpreter")
	v.SetDefault("overpass.user_agent", "crash-cli/1.0")
	v.SetDefault("overpass.timeout_secs", 90)
	v.SetDefault("overpass.rate_per_sec", 1)
	v.SetDefault("overpass.max_attempts", 3)
	v.SetDefault("overpass.initial_backoff_ms", 1000)
	v.SetDefault("overpass.max_backoff_ms", 30000)
	v.SetDefault("overpass.breaker_threshold", 3)
	v.SetDefault("overpass.breaker_reset_secs", 60)

	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "crash-cli.db")
	v.SetDefault("server.port", 8080)
}

// DateRange parses the inclusive analysis window. Unset bounds are zero.
func (c AnalysisConfig) DateRange() (start, end time.Time, err error) {
	if c.StartDate != "" {
		if start, err = time.Parse(DateLayout, c.StartDate); err != nil {
			return start, end, eris.Wrapf(err, "config: analysis.start_date %q", c.StartDate)
		}
	}
	if c.EndDate != "" {
		if end, err = time.Parse(DateLayout, c.EndDate); err != nil {
			return start, end, eris.Wrapf(err, "config: analysis.end_date %q", c.EndDate)
		}
	}
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		return start, end, eris.Errorf("config: analysis.end_date %s before start_date %s", c.EndDate, c.StartDate)
	}
	return start, end, nil
}

// Validate checks settings that would otherwise fail deep inside a run.
func (c *Config) Validate() error {
	if _, _, err := c.Analysis.DateRange(); err != nil {
		return err
	}
	if c.Analysis.BufferFeet < 0 {
		return eris.Errorf("config: analysis.buffer_feet must be non-negative, got %v", c.Analysis.BufferFeet)
	}
	if c.Analysis.ZoneRadiusFt < 0 {
		return eris.Errorf("config: analysis.zone_radius_feet must be non-negative, got %v", c.Analysis.ZoneRadiusFt)
	}
	switch c.Analysis.GroupBy {
	case "senate", "house", "none":
	default:
		return eris.Errorf("config: analysis.group_by must be senate, house or none, got %q", c.Analysis.GroupBy)
	}
	if err := c.Analysis.Region.Validate(); err != nil {
		return eris.Wrap(err, "config: analysis.region")
	}
	for name, v := range map[string]float64{
		"fatality":              c.Damage.Fatality,
		"incapacitating_injury": c.Damage.IncapacitatingInjury,
		"injury":                c.Damage.Injury,
		"base_crash":            c.Damage.BaseCrash,
	} {
		if v < 0 {
			return eris.Errorf("config: damage.%s must be non-negative, got %v", name, v)
		}
	}
	switch c.Damage.Model {
	case "tiered", "additive":
	default:
		return eris.Errorf("config: damage.model must be tiered or additive, got %q", c.Damage.Model)
	}
	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		return eris.Errorf("config: store.driver must be sqlite or postgres, got %q", c.Store.Driver)
	}
	for i, cc := range c.Corridors {
		if strings.TrimSpace(cc.Filter) == "" {
			return eris.Errorf("config: corridors[%d] has no filter", i)
		}
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)
	return nil
}
