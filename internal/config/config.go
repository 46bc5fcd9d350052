package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// NOTE: This file provides the configuration model and full YAML/TOML-based
// load/save behavior, including first-run config creation and 0600
// permissions.

// StorageConfig selects where locations, conductors, territories and events
// are persisted.
type StorageConfig struct {
	// Driver is one of "memory", "file" (default) or "mongo".
	Driver string `yaml:"driver" toml:"driver" json:"driver"`
	// Path is the JSON snapshot used by the file driver.
	Path string `yaml:"path" toml:"path" json:"path"`
	// MongoURI and Database configure the mongo driver.
	MongoURI string `yaml:"mongo_uri" toml:"mongo_uri" json:"mongo_uri"`
	Database string `yaml:"database" toml:"database" json:"database"`
}

// CacheConfig controls the rendered-document cache.
type CacheConfig struct {
	// Driver is one of "none", "memory" (default) or "redis".
	Driver   string `yaml:"driver" toml:"driver" json:"driver"`
	Addr     string `yaml:"addr" toml:"addr" json:"addr"`
	Password string `yaml:"password" toml:"password" json:"password"`
	DB       int    `yaml:"db" toml:"db" json:"db"`
	// TTLMinutes bounds how long a rendered PDF stays cached.
	TTLMinutes int `yaml:"ttl_minutes" toml:"ttl_minutes" json:"ttl_minutes"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the Web UI/API.
type BasicAuthConfig struct {
	Username string `yaml:"username" toml:"username" json:"username"`
	Password string `yaml:"password" toml:"password" json:"password"`
}

// ICSConfig tunes the ICS exports and the subscription feed.
type ICSConfig struct {
	ProductID       string `yaml:"product_id" toml:"product_id" json:"product_id"`
	SummaryPrefix   string `yaml:"summary_prefix" toml:"summary_prefix" json:"summary_prefix"`
	DurationMinutes int    `yaml:"duration_minutes" toml:"duration_minutes" json:"duration_minutes"`
	CalendarName    string `yaml:"calendar_name" toml:"calendar_name" json:"calendar_name"`
}

// LegendEntry maps a title substring to a highlight colour ("#RRGGBB").
type LegendEntry struct {
	Tag   string `yaml:"tag" toml:"tag" json:"tag"`
	Color string `yaml:"color" toml:"color" json:"color"`
}

// StyleConfig describes the PDF month page. All lengths are PDF points.
type StyleConfig struct {
	// Locale selects month/weekday names and labels: "es" (default) or "en".
	Locale string `yaml:"locale" toml:"locale" json:"locale"`

	CellWidth    float64 `yaml:"cell_width" toml:"cell_width" json:"cell_width"`
	CellHeight   float64 `yaml:"cell_height" toml:"cell_height" json:"cell_height"`
	HeaderHeight float64 `yaml:"header_height" toml:"header_height" json:"header_height"`
	MarginTop    float64 `yaml:"margin_top" toml:"margin_top" json:"margin_top"`
	MarginBottom float64 `yaml:"margin_bottom" toml:"margin_bottom" json:"margin_bottom"`
	MarginSide   float64 `yaml:"margin_side" toml:"margin_side" json:"margin_side"`
	LineHeight   float64 `yaml:"line_height" toml:"line_height" json:"line_height"`
	EventGap     float64 `yaml:"event_gap" toml:"event_gap" json:"event_gap"`

	Color1 string        `yaml:"color1" toml:"color1" json:"color1"`
	Color2 string        `yaml:"color2" toml:"color2" json:"color2"`
	Legend []LegendEntry `yaml:"legend" toml:"legend" json:"legend"`

	// MeasureAtDrawSize centres text using the size it is drawn at. When
	// false, lines are measured at 13pt regardless of the drawn size.
	MeasureAtDrawSize *bool `yaml:"measure_at_draw_size,omitempty" toml:"measure_at_draw_size,omitempty" json:"measure_at_draw_size,omitempty"`

	// FlowStacking lets an event start below the previous one instead of
	// at its band anchor when the two would overlap.
	FlowStacking bool `yaml:"flow_stacking" toml:"flow_stacking" json:"flow_stacking"`
}

// PreviewConfig controls the headless Chromium PNG preview.
type PreviewConfig struct {
	Width          int `yaml:"width" toml:"width" json:"width"`
	Height         int `yaml:"height" toml:"height" json:"height"`
	TimeoutSeconds int `yaml:"timeout_seconds" toml:"timeout_seconds" json:"timeout_seconds"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the Web UI and API.
	Listen string `yaml:"listen" toml:"listen" json:"listen"`

	// Timezone is the IANA timezone event start times are interpreted in
	// when exported to ICS (e.g. "America/La_Paz").
	Timezone string `yaml:"timezone" toml:"timezone" json:"timezone"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" toml:"log_level" json:"log_level"`

	// RefreshCron is a cron-style schedule string (e.g. "*/15 * * * *")
	// used to pre-render the current and next month into the cache.
	// An empty string after normalization never happens; use "off" to disable.
	RefreshCron string `yaml:"refresh" toml:"refresh" json:"refresh"`

	Storage StorageConfig `yaml:"storage" toml:"storage" json:"storage"`
	Cache   CacheConfig   `yaml:"cache" toml:"cache" json:"cache"`
	ICS     ICSConfig     `yaml:"ics" toml:"ics" json:"ics"`
	Style   StyleConfig   `yaml:"style" toml:"style" json:"style"`
	Preview PreviewConfig `yaml:"preview" toml:"preview" json:"preview"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" toml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

const inch = 72.0

// DefaultStyle returns the stock printed page style.
func DefaultStyle() StyleConfig {
	return StyleConfig{
		Locale:       "es",
		CellWidth:    270,
		CellHeight:   210,
		HeaderHeight: 25,
		MarginTop:    0.7 * inch,
		MarginBottom: 0.5 * inch,
		MarginSide:   0.5 * inch,
		LineHeight:   15,
		EventGap:     8,
		Color1:       "#B9DBFF",
		Color2:       "#CCE5FF",
		Legend: []LegendEntry{
			{Tag: "Viloma Cala Cala", Color: "#FFDFAF"},
		},
	}
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:      "127.0.0.1:8080",
		Timezone:    "America/La_Paz",
		LogLevel:    "info",
		RefreshCron: "*/15 * * * *",
		Storage: StorageConfig{
			Driver:   "file",
			Path:     "./data/predicacal.json",
			Database: "predicacal",
		},
		Cache: CacheConfig{
			Driver:     "memory",
			TTLMinutes: 60,
		},
		ICS: ICSConfig{
			ProductID:       "-//predicacal//Calendario//ES",
			SummaryPrefix:   "Predicación - ",
			DurationMinutes: 120,
			CalendarName:    "Predicación",
		},
		Style: DefaultStyle(),
		Preview: PreviewConfig{
			Width:          1920,
			Height:         1080,
			TimeoutSeconds: 30,
		},
		BasicAuth: nil,
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs (e.g., older versions) still behave correctly.
func (c *Config) Normalize() {
	def := DefaultConfig()

	if c.Listen == "" {
		c.Listen = def.Listen
	}
	if c.Timezone == "" {
		c.Timezone = def.Timezone
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
	if c.RefreshCron == "" {
		c.RefreshCron = def.RefreshCron
	}

	switch c.Storage.Driver {
	case "memory", "file", "mongo":
		// ok
	default:
		// Unknown value; fall back to file so data survives restarts.
		c.Storage.Driver = def.Storage.Driver
	}
	if c.Storage.Path == "" {
		c.Storage.Path = def.Storage.Path
	}
	if c.Storage.Database == "" {
		c.Storage.Database = def.Storage.Database
	}

	switch c.Cache.Driver {
	case "none", "memory", "redis":
	default:
		c.Cache.Driver = def.Cache.Driver
	}
	if c.Cache.TTLMinutes <= 0 {
		c.Cache.TTLMinutes = def.Cache.TTLMinutes
	}

	if c.ICS.ProductID == "" {
		c.ICS.ProductID = def.ICS.ProductID
	}
	// SummaryPrefix may legitimately be empty; only the duration needs a floor.
	if c.ICS.DurationMinutes <= 0 {
		c.ICS.DurationMinutes = def.ICS.DurationMinutes
	}
	if c.ICS.CalendarName == "" {
		c.ICS.CalendarName = def.ICS.CalendarName
	}

	c.Style.normalize()

	if c.Preview.Width <= 0 {
		c.Preview.Width = def.Preview.Width
	}
	if c.Preview.Height <= 0 {
		c.Preview.Height = def.Preview.Height
	}
	if c.Preview.TimeoutSeconds <= 0 {
		c.Preview.TimeoutSeconds = def.Preview.TimeoutSeconds
	}
}

func (s *StyleConfig) normalize() {
	def := DefaultStyle()

	switch s.Locale {
	case "es", "en":
	default:
		s.Locale = def.Locale
	}
	floor := func(v *float64, d float64) {
		if *v <= 0 {
			*v = d
		}
	}
	floor(&s.CellWidth, def.CellWidth)
	floor(&s.CellHeight, def.CellHeight)
	floor(&s.HeaderHeight, def.HeaderHeight)
	floor(&s.MarginTop, def.MarginTop)
	floor(&s.MarginBottom, def.MarginBottom)
	floor(&s.MarginSide, def.MarginSide)
	floor(&s.LineHeight, def.LineHeight)
	floor(&s.EventGap, def.EventGap)

	if s.Color1 == "" {
		s.Color1 = def.Color1
	}
	if s.Color2 == "" {
		s.Color2 = def.Color2
	}
	// A nil legend means "not configured"; an explicit empty list disables it.
	if s.Legend == nil {
		s.Legend = def.Legend
	}
	if s.MeasureAtDrawSize == nil {
		v := true
		s.MeasureAtDrawSize = &v
	}
}

// Load loads configuration from the given YAML or TOML path.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - decode TOML for *.toml, YAML otherwise
//   - normalize defaults
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if isTOML(path) {
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, err
		}
	} else {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, err
		}
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Marshals cfg to YAML (or TOML for *.toml paths).
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := marshal(path, cfg)
	if err != nil {
		return err
	}

	// Atomic write: write to temp file in same directory then rename.
	tmp, err := os.CreateTemp(dir, ".predicacal-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	// Ensure we clean up temp file on error.
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}

	// Flush and close before chmod/rename.
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}

// Save is a convenience method on Config that delegates to the package-level
// Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

func marshal(path string, cfg *Config) ([]byte, error) {
	if isTOML(path) {
		var b strings.Builder
		if err := toml.NewEncoder(&b).Encode(cfg); err != nil {
			return nil, err
		}
		return []byte(b.String()), nil
	}
	return yaml.Marshal(cfg)
}
