package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Auth schemes understood by the request client.
const (
	AuthNone         = "none"
	AuthAPIKeyQuery  = "api_key_query"
	AuthAPIKeyHeader = "api_key_header"
	AuthOAuth2       = "oauth2"
)

type Config struct {
	Environment string `yaml:"environment" default:"development" validate:"required"`
	Server      struct {
		Port            int           `yaml:"port" default:"8080" validate:"gte=1,lte=65535"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		ClientRPS       float64       `yaml:"client_rps" default:"5"`
		ClientBurst     int           `yaml:"client_burst" default:"10"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
		Format string `yaml:"format" default:"console" validate:"oneof=json console"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"log"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Cache struct {
		Backend string        `yaml:"backend" default:"memory" validate:"oneof=memory redis"`
		MaxTTL  time.Duration `yaml:"max_ttl" default:"24h"`
		Shards  int           `yaml:"shards" default:"32" validate:"gte=1"`
		TTL     TTLConfig     `yaml:"ttl"`
		L1      struct {
			MaxSize int           `yaml:"max_size" default:"1000" validate:"gte=1"`
			TTL     time.Duration `yaml:"ttl" default:"1m"`
		} `yaml:"l1"`
		Redis struct {
			Addr         string        `yaml:"addr" default:"localhost:6379"`
			Password     string        `yaml:"password"`
			DB           int           `yaml:"db"`
			Prefix       string        `yaml:"prefix" default:"aeropulse"`
			PoolSize     int           `yaml:"pool_size" default:"10" validate:"gte=1"`
			MinIdleConns int           `yaml:"min_idle_conns" default:"2" validate:"gte=0"`
			PoolTimeout  time.Duration `yaml:"pool_timeout" default:"30s"`
		} `yaml:"redis"`
	} `yaml:"cache"`
	Sources struct {
		Traffic     SourceConfig `yaml:"traffic"`
		Punctuality SourceConfig `yaml:"punctuality"`
		Weather     SourceConfig `yaml:"weather"`
		Aircraft    SourceConfig `yaml:"aircraft"`
	} `yaml:"sources"`
	Engine EngineConfig `yaml:"engine"`
	Kafka  struct {
		Enabled      bool          `yaml:"enabled"`
		Brokers      []string      `yaml:"brokers"`
		Topic        string        `yaml:"topic" default:"aeropulse.dashboards"`
		RequiredAcks int           `yaml:"required_acks" default:"-1"`
		Compression  string        `yaml:"compression" default:"gzip" validate:"oneof=gzip snappy lz4 zstd"`
		MaxAttempts  int           `yaml:"max_attempts" default:"3"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
		AutoCreate   bool          `yaml:"auto_create_topic"`
	} `yaml:"kafka"`
}

// TTLConfig holds cache ttl seconds per data category.
type TTLConfig struct {
	FlightData   int `yaml:"flight_data" default:"300"`
	Pricing      int `yaml:"pricing" default:"1800"`
	EconomicData int `yaml:"economic_data" default:"3600"`
	Predictions  int `yaml:"predictions" default:"86400"`
	Weather      int `yaml:"weather" default:"600"`
	Statistics   int `yaml:"statistics" default:"86400"`
}

// For returns the ttl for a category, 0 when unknown.
func (t TTLConfig) For(category string) time.Duration {
	var secs int
	switch category {
	case "flight_data":
		secs = t.FlightData
	case "pricing":
		secs = t.Pricing
	case "economic_data":
		secs = t.EconomicData
	case "predictions":
		secs = t.Predictions
	case "weather":
		secs = t.Weather
	case "statistics":
		secs = t.Statistics
	}
	return time.Duration(secs) * time.Second
}

// SourceConfig describes one external provider.
type SourceConfig struct {
	BaseURL       string        `yaml:"base_url"`
	Auth          string        `yaml:"auth" validate:"omitempty,oneof=none api_key_query api_key_header oauth2"`
	APIKey        string        `yaml:"api_key"`
	KeyParam      string        `yaml:"key_param"`
	KeyHeader     string        `yaml:"key_header"`
	ClientID      string        `yaml:"client_id"`
	ClientSecret  string        `yaml:"client_secret"`
	TokenURL      string        `yaml:"token_url"`
	RateLimit     int           `yaml:"rate_limit" validate:"gte=0"`
	Window        time.Duration `yaml:"window" default:"60s"`
	Timeout       time.Duration `yaml:"timeout" default:"10s"`
	CacheCategory string        `yaml:"cache_category"`
	Breaker       struct {
		MaxFailures uint32        `yaml:"max_failures" default:"5"`
		OpenTimeout time.Duration `yaml:"open_timeout" default:"30s"`
	} `yaml:"breaker"`
}

// EngineConfig tunes the aggregation cycle.
type EngineConfig struct {
	Station struct {
		IATA string  `yaml:"iata" default:"NLU" validate:"required"`
		ICAO string  `yaml:"icao" default:"MMSM"`
		Lat  float64 `yaml:"lat" default:"19.7425"`
		Lon  float64 `yaml:"lon" default:"-99.0157"`
	} `yaml:"station"`
	Area struct {
		LatMin float64 `yaml:"lat_min" default:"19.0"`
		LonMin float64 `yaml:"lon_min" default:"-99.5"`
		LatMax float64 `yaml:"lat_max" default:"20.5"`
		LonMax float64 `yaml:"lon_max" default:"-98.5"`
	} `yaml:"area"`
	CycleTimeout         time.Duration `yaml:"cycle_timeout" default:"20s"`
	RefreshInterval      time.Duration `yaml:"refresh_interval" default:"5m"`
	AlertGapPct          float64       `yaml:"alert_gap_pct" default:"20" validate:"gt=0"`
	DegradedSourcesAlert int           `yaml:"degraded_sources_alert" default:"3" validate:"gte=1"`
	Weights              struct {
		Strategic   float64 `yaml:"strategic" default:"1" validate:"gte=0"`
		Operational float64 `yaml:"operational" default:"1" validate:"gte=0"`
		Economic    float64 `yaml:"economic" default:"1" validate:"gte=0"`
	} `yaml:"weights"`
}

var validate = validator.New()

// Default returns a config with every default applied and known providers prefilled.
func Default() (*Config, error) {
	var c Config
	if err := c.applyDefaults(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := c.applyDefaults(); err != nil {
		return nil, err
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads .env (if present), the YAML file, and overrides with environment variables.
// A missing YAML file falls back to defaults.
func LoadWithEnv(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	c, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		c, err = Default()
	}
	if err != nil {
		return nil, err
	}

	c.applyEnv()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("AVIATIONSTACK_API_KEY"); v != "" {
		c.Sources.Traffic.APIKey = v
	}
	if v := os.Getenv("FLIGHTAWARE_API_KEY"); v != "" {
		c.Sources.Punctuality.APIKey = v
	}
	if v := os.Getenv("OPENWEATHER_API_KEY"); v != "" {
		c.Sources.Weather.APIKey = v
	}
	if v := os.Getenv("OPENSKY_CLIENT_ID"); v != "" {
		c.Sources.Aircraft.ClientID = v
	}
	if v := os.Getenv("OPENSKY_CLIENT_SECRET"); v != "" {
		c.Sources.Aircraft.ClientSecret = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Cache.Backend = "redis"
		c.Cache.Redis.Addr = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Enabled = true
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Server.Port = p
		}
	}
}

func (c *Config) applyDefaults() error {
	if err := defaults.Set(c); err != nil {
		return fmt.Errorf("apply defaults: %w", err)
	}
	fillSource(&c.Sources.Traffic, SourceConfig{
		BaseURL: "http://api.aviationstack.com/v1", Auth: AuthAPIKeyQuery,
		KeyParam: "access_key", RateLimit: 1000, CacheCategory: "flight_data",
	})
	fillSource(&c.Sources.Punctuality, SourceConfig{
		BaseURL: "https://aeroapi.flightaware.com/aeroapi", Auth: AuthAPIKeyHeader,
		KeyHeader: "x-apikey", RateLimit: 100, CacheCategory: "flight_data",
	})
	fillSource(&c.Sources.Weather, SourceConfig{
		BaseURL: "https://api.openweathermap.org/data", Auth: AuthAPIKeyQuery,
		KeyParam: "appid", RateLimit: 1000, CacheCategory: "weather",
	})
	fillSource(&c.Sources.Aircraft, SourceConfig{
		BaseURL:  "https://opensky-network.org/api",
		Auth:     AuthOAuth2,
		TokenURL: "https://auth.opensky-network.org/auth/realms/opensky-network/protocol/openid-connect/token",
		// OpenSky authenticated clients get 4000 credits/day; keep well under per minute.
		RateLimit: 60, CacheCategory: "flight_data",
	})
	return nil
}

// fillSource copies provider defaults into unset fields.
func fillSource(dst *SourceConfig, def SourceConfig) {
	if dst.BaseURL == "" {
		dst.BaseURL = def.BaseURL
	}
	if dst.Auth == "" {
		dst.Auth = def.Auth
	}
	if dst.KeyParam == "" {
		dst.KeyParam = def.KeyParam
	}
	if dst.KeyHeader == "" {
		dst.KeyHeader = def.KeyHeader
	}
	if dst.TokenURL == "" {
		dst.TokenURL = def.TokenURL
	}
	if dst.RateLimit == 0 {
		dst.RateLimit = def.RateLimit
	}
	if dst.CacheCategory == "" {
		dst.CacheCategory = def.CacheCategory
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	w := c.Engine.Weights
	if w.Strategic+w.Operational+w.Economic <= 0 {
		return fmt.Errorf("engine.weights must not all be zero")
	}
	if c.Cache.Backend == "redis" && c.Cache.Redis.Addr == "" {
		return fmt.Errorf("cache.redis.addr is required when backend is redis")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.Sources.Aircraft.Auth == AuthOAuth2 && c.Sources.Aircraft.TokenURL == "" {
		return fmt.Errorf("sources.aircraft.token_url is required for oauth2")
	}
	return nil
}
