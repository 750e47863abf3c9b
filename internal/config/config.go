// Package config loads the TOML configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the application configuration
type Config struct {
	Server  ServerConfig  `toml:"server"`
	Logging LoggingConfig `toml:"logging"`
	Map     MapConfig     `toml:"map"`
	Storage StorageConfig `toml:"storage"`
	Data    DataConfig    `toml:"data"`
	Routes  RoutesConfig  `toml:"routes"`
}

// ServerConfig configures the HTTP server
type ServerConfig struct {
	Host               string   `toml:"host"`
	Port               int      `toml:"port"`
	CORSAllowedOrigins []string `toml:"cors_allowed_origins"`
	StaticFilesDir     string   `toml:"static_files_dir"`
	ReadTimeoutSecs    int      `toml:"read_timeout_secs"`
	WriteTimeoutSecs   int      `toml:"write_timeout_secs"`
	MaxConnections     int      `toml:"max_connections"` // 0 means unlimited
}

// Addr is the listen address
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// ReadTimeout returns the read timeout as a duration
func (s ServerConfig) ReadTimeout() time.Duration {
	return time.Duration(s.ReadTimeoutSecs) * time.Second
}

// WriteTimeout returns the write timeout as a duration
func (s ServerConfig) WriteTimeout() time.Duration {
	return time.Duration(s.WriteTimeoutSecs) * time.Second
}

// LoggingConfig configures the logger
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // json or console
}

// MapConfig configures the map view
type MapConfig struct {
	Basemap           string  `toml:"basemap"`
	NextBasemap       string  `toml:"next_basemap"`
	Zoom              int     `toml:"zoom"`
	Container         string  `toml:"container"`
	LabelColor        string  `toml:"label_color"`
	RunwayMinScale    float64 `toml:"runway_min_scale"`
	DensifyMaxSegment float64 `toml:"densify_max_segment"` // meters
	ModuleLoadDelayMs int     `toml:"module_load_delay_ms"`
	PublishIntervalMs int     `toml:"publish_interval_ms"`
}

// ModuleLoadDelay returns the simulated module load latency
func (m MapConfig) ModuleLoadDelay() time.Duration {
	return time.Duration(m.ModuleLoadDelayMs) * time.Millisecond
}

// PublishInterval returns the minimum time between scene broadcasts
func (m MapConfig) PublishInterval() time.Duration {
	return time.Duration(m.PublishIntervalMs) * time.Millisecond
}

// StorageConfig configures the airport database
type StorageConfig struct {
	SQLitePath      string `toml:"sqlite_path"`
	CacheSize       int    `toml:"cache_size"`
	CacheTTLMinutes int    `toml:"cache_ttl_minutes"`
}

// CacheTTL returns the lookup cache TTL
func (s StorageConfig) CacheTTL() time.Duration {
	return time.Duration(s.CacheTTLMinutes) * time.Minute
}

// DataConfig configures the OurAirports import
type DataConfig struct {
	OurAirportsDir      string `toml:"ourairports_dir"`
	ImportOnStart       bool   `toml:"import_on_start"` // import even when the database already has airports
	AutoUpdate          bool   `toml:"auto_update"`     // download a fresh data set when the local one is stale
	DownloadURL         string `toml:"download_url"`
	DownloadTimeoutSecs int    `toml:"download_timeout_secs"`
}

// DownloadTimeout returns the per-request download timeout
func (d DataConfig) DownloadTimeout() time.Duration {
	return time.Duration(d.DownloadTimeoutSecs) * time.Second
}

// RoutesConfig configures route computation
type RoutesConfig struct {
	DefaultSpeedKnots float64 `toml:"default_speed_knots"`
}

// Default returns the configuration used when no file is present
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:               "0.0.0.0",
			Port:               8080,
			CORSAllowedOrigins: []string{"*"},
			StaticFilesDir:     "web",
			ReadTimeoutSecs:    15,
			WriteTimeoutSecs:   15,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Map: MapConfig{
			Basemap:           "gray-vector",
			NextBasemap:       "hybrid",
			Zoom:              2,
			Container:         "route-map-container",
			LabelColor:        "black",
			RunwayMinScale:    200_000,
			DensifyMaxSegment: 10_000,
			ModuleLoadDelayMs: 0,
			PublishIntervalMs: 100,
		},
		Storage: StorageConfig{
			SQLitePath:      "data/airports.db",
			CacheSize:       512,
			CacheTTLMinutes: 60,
		},
		Data: DataConfig{
			OurAirportsDir:      "data/ourairports",
			DownloadURL:         "https://ourairports.com/data",
			DownloadTimeoutSecs: 60,
		},
		Routes: RoutesConfig{
			DefaultSpeedKnots: 450,
		},
	}
}

// Load reads path on top of the defaults. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}

	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("unknown config keys in %s: %s", path, strings.Join(keys, ", "))
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.Server.ReadTimeoutSecs < 0 || c.Server.WriteTimeoutSecs < 0 {
		errs = append(errs, errors.New("server timeouts must not be negative"))
	}
	if c.Server.MaxConnections < 0 {
		errs = append(errs, errors.New("server.max_connections must not be negative"))
	}

	switch c.Logging.Format {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("logging.format %q must be json or console", c.Logging.Format))
	}
	switch strings.ToLower(c.Logging.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("logging.level %q is not a known level", c.Logging.Level))
	}

	if c.Map.Container == "" {
		errs = append(errs, errors.New("map.container must be set"))
	}
	if c.Map.Zoom < 0 {
		errs = append(errs, errors.New("map.zoom must not be negative"))
	}
	if c.Map.RunwayMinScale <= 0 {
		errs = append(errs, errors.New("map.runway_min_scale must be positive"))
	}
	if c.Map.DensifyMaxSegment <= 0 {
		errs = append(errs, errors.New("map.densify_max_segment must be positive"))
	}
	if c.Map.ModuleLoadDelayMs < 0 || c.Map.PublishIntervalMs < 0 {
		errs = append(errs, errors.New("map delays must not be negative"))
	}

	if c.Storage.SQLitePath == "" {
		errs = append(errs, errors.New("storage.sqlite_path must be set"))
	}
	if c.Storage.CacheSize < 0 || c.Storage.CacheTTLMinutes < 0 {
		errs = append(errs, errors.New("storage cache settings must not be negative"))
	}

	if c.Data.AutoUpdate && c.Data.DownloadURL == "" {
		errs = append(errs, errors.New("data.download_url must be set when data.auto_update is on"))
	}
	if c.Data.DownloadTimeoutSecs < 0 {
		errs = append(errs, errors.New("data.download_timeout_secs must not be negative"))
	}

	if c.Routes.DefaultSpeedKnots <= 0 {
		errs = append(errs, errors.New("routes.default_speed_knots must be positive"))
	}

	return errors.Join(errs...)
}
