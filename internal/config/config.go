package config

import (
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sgtransit/stops-cli/internal/export"
)

// Config holds the full application configuration.
type Config struct {
	OneMap   OneMapConfig   `yaml:"onemap" mapstructure:"onemap"`
	DataMall DataMallConfig `yaml:"datamall" mapstructure:"datamall"`
	Fetch    FetchConfig    `yaml:"fetch" mapstructure:"fetch"`
	Stations StationsConfig `yaml:"stations" mapstructure:"stations"`
	Output   OutputConfig   `yaml:"output" mapstructure:"output"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// OneMapConfig configures the OneMap search client.
type OneMapConfig struct {
	BaseURL      string  `yaml:"base_url" mapstructure:"base_url"`
	Token        string  `yaml:"token" mapstructure:"token"`
	OutputFields string  `yaml:"output_fields" mapstructure:"output_fields"`
	MaxPages     int     `yaml:"max_pages" mapstructure:"max_pages"`
	RateLimit    float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// DataMallConfig holds LTA DataMall credentials and paging.
type DataMallConfig struct {
	BaseURL      string  `yaml:"base_url" mapstructure:"base_url"`
	AccountKey   string  `yaml:"account_key" mapstructure:"account_key"`
	UniqueUserID string  `yaml:"unique_user_id" mapstructure:"unique_user_id"`
	PageSize     int     `yaml:"page_size" mapstructure:"page_size"`
	RateLimit    float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// FetchConfig configures HTTP behaviour and the response cache.
type FetchConfig struct {
	UserAgent     string `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs   int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries    int    `yaml:"max_retries" mapstructure:"max_retries"`
	Concurrency   int    `yaml:"concurrency" mapstructure:"concurrency"`
	CacheDir      string `yaml:"cache_dir" mapstructure:"cache_dir"`
	CacheTTLHours int    `yaml:"cache_ttl_hours" mapstructure:"cache_ttl_hours"`
	NoCache       bool   `yaml:"no_cache" mapstructure:"no_cache"`
}

// Timeout returns TimeoutSecs as a duration.
func (f FetchConfig) Timeout() time.Duration {
	return time.Duration(f.TimeoutSecs) * time.Second
}

// CacheTTL returns CacheTTLHours as a duration. Zero means entries never expire.
func (f FetchConfig) CacheTTL() time.Duration {
	return time.Duration(f.CacheTTLHours) * time.Hour
}

// CachePath is the response cache database.
func (f FetchConfig) CachePath() string {
	return filepath.Join(f.CacheDir, "responses.db")
}

// StationsConfig configures the station fetcher.
type StationsConfig struct {
	Patterns      []string `yaml:"patterns" mapstructure:"patterns"`
	BankNamesFile string   `yaml:"bank_names_file" mapstructure:"bank_names_file"`
}

// OutputConfig names the files the pipelines produce.
type OutputConfig struct {
	Dir              string   `yaml:"dir" mapstructure:"dir"`
	BusStops         string   `yaml:"bus_stops" mapstructure:"bus_stops"`
	Stations         string   `yaml:"stations" mapstructure:"stations"`
	Combined         string   `yaml:"combined" mapstructure:"combined"`
	BusStopsSnapshot string   `yaml:"bus_stops_snapshot" mapstructure:"bus_stops_snapshot"`
	StationsSnapshot string   `yaml:"stations_snapshot" mapstructure:"stations_snapshot"`
	Formats          []string `yaml:"formats" mapstructure:"formats"`
}

// Path joins name onto the output directory.
func (o OutputConfig) Path(name string) string {
	return filepath.Join(o.Dir, name)
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("STOPS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("onemap.base_url", "https://www.onemap.gov.sg/API/services.svc/basicSearch")
	v.SetDefault("onemap.token", "")
	v.SetDefault("onemap.output_fields", "POSTALCODE,CATEGORY")
	v.SetDefault("onemap.max_pages", 1000)
	v.SetDefault("onemap.rate_limit", 4.0)
	v.SetDefault("datamall.base_url", "https://datamall2.mytransport.sg/ltaodataservice/BusStops")
	v.SetDefault("datamall.account_key", "")
	v.SetDefault("datamall.unique_user_id", "")
	v.SetDefault("datamall.page_size", 500)
	v.SetDefault("datamall.rate_limit", 5.0)
	v.SetDefault("fetch.user_agent", "stops-cli/1.0")
	v.SetDefault("fetch.timeout_secs", 30)
	v.SetDefault("fetch.max_retries", 3)
	v.SetDefault("fetch.concurrency", 1)
	v.SetDefault("fetch.cache_dir", ".cache")
	v.SetDefault("fetch.cache_ttl_hours", 0)
	v.SetDefault("fetch.no_cache", false)
	v.SetDefault("stations.patterns", []string{"MRT STATION", "LRT STATION"})
	v.SetDefault("stations.bank_names_file", "bank_names.txt")
	v.SetDefault("output.dir", ".")
	v.SetDefault("output.bus_stops", "bus_stops.csv")
	v.SetDefault("output.stations", "mrt_lrt.csv")
	v.SetDefault("output.combined", "combined.csv")
	v.SetDefault("output.bus_stops_snapshot", "busstops2.json.gz")
	v.SetDefault("output.stations_snapshot", "mrt_lrt.json.gz")
	v.SetDefault("output.formats", []string{})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
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

// Validate checks values that would otherwise fail deep inside a run.
func (c *Config) Validate() error {
	if c.Fetch.Concurrency < 1 {
		return eris.Errorf("config: fetch.concurrency must be >= 1, got %d", c.Fetch.Concurrency)
	}
	if c.Fetch.MaxRetries < 1 {
		return eris.Errorf("config: fetch.max_retries must be >= 1, got %d", c.Fetch.MaxRetries)
	}
	if c.Fetch.CacheTTLHours < 0 {
		return eris.Errorf("config: fetch.cache_ttl_hours must be >= 0, got %d", c.Fetch.CacheTTLHours)
	}
	if c.DataMall.PageSize <= 0 {
		return eris.Errorf("config: datamall.page_size must be > 0, got %d", c.DataMall.PageSize)
	}
	if c.OneMap.MaxPages <= 0 {
		return eris.Errorf("config: onemap.max_pages must be > 0, got %d", c.OneMap.MaxPages)
	}
	if c.OneMap.RateLimit <= 0 || c.DataMall.RateLimit <= 0 {
		return eris.New("config: rate_limit must be > 0")
	}
	if len(c.Stations.Patterns) == 0 {
		return eris.New("config: stations.patterns must not be empty")
	}
	for _, p := range c.Stations.Patterns {
		if strings.TrimSpace(p) == "" {
			return eris.New("config: stations.patterns contains an empty pattern")
		}
	}
	for _, f := range c.Output.Formats {
		if !export.IsFormat(f) {
			return eris.Errorf("config: unknown output format %q (want one of %s)", f, strings.Join(export.Formats, ", "))
		}
	}
	return nil
}

// Redacted returns a copy with credentials masked.
func (c *Config) Redacted() *Config {
	out := *c
	out.OneMap.Token = mask(c.OneMap.Token)
	out.DataMall.AccountKey = mask(c.DataMall.AccountKey)
	out.DataMall.UniqueUserID = mask(c.DataMall.UniqueUserID)
	out.Stations.Patterns = slices.Clone(c.Stations.Patterns)
	out.Output.Formats = slices.Clone(c.Output.Formats)
	return &out
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 4 {
		return "****"
	}
	return s[:2] + strings.Repeat("*", len(s)-4) + s[len(s)-2:]
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
