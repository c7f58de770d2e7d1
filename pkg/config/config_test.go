package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefault(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)
	require.NoError(t, c.Validate())

	assert.Equal(t, "NLU", c.Engine.Station.IATA)
	assert.Equal(t, 20*time.Second, c.Engine.CycleTimeout)
	assert.Equal(t, 1.0, c.Engine.Weights.Strategic)
	assert.Equal(t, "memory", c.Cache.Backend)
	assert.Equal(t, 1000, c.Cache.L1.MaxSize)
	assert.Equal(t, time.Minute, c.Cache.L1.TTL)
	assert.Equal(t, 10, c.Cache.Redis.PoolSize)
	assert.Equal(t, 30*time.Second, c.Cache.Redis.PoolTimeout)
	assert.False(t, c.Kafka.AutoCreate)

	assert.Equal(t, AuthAPIKeyQuery, c.Sources.Traffic.Auth)
	assert.Equal(t, "access_key", c.Sources.Traffic.KeyParam)
	assert.Equal(t, AuthAPIKeyHeader, c.Sources.Punctuality.Auth)
	assert.Equal(t, "x-apikey", c.Sources.Punctuality.KeyHeader)
	assert.Equal(t, AuthOAuth2, c.Sources.Aircraft.Auth)
	assert.NotEmpty(t, c.Sources.Aircraft.TokenURL)
	assert.Equal(t, 60*time.Second, c.Sources.Weather.Window)
	assert.Equal(t, uint32(5), c.Sources.Weather.Breaker.MaxFailures)
}

func TestTTLFor(t *testing.T) {
	ttl := TTLConfig{FlightData: 300, Weather: 600, Statistics: 86400}
	assert.Equal(t, 5*time.Minute, ttl.For("flight_data"))
	assert.Equal(t, 10*time.Minute, ttl.For("weather"))
	assert.Equal(t, 24*time.Hour, ttl.For("statistics"))
	assert.Zero(t, ttl.For("unknown"))
}

func TestLoad_ExplicitValuesWin(t *testing.T) {
	path := writeConfig(t, `
engine:
  station:
    iata: MEX
  weights:
    strategic: 2
    operational: 1
    economic: 1
sources:
  punctuality:
    auth: api_key_query
    key_param: key
    rate_limit: 10
`)
	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "MEX", c.Engine.Station.IATA)
	assert.Equal(t, 2.0, c.Engine.Weights.Strategic)
	assert.Equal(t, AuthAPIKeyQuery, c.Sources.Punctuality.Auth)
	assert.Equal(t, "key", c.Sources.Punctuality.KeyParam)
	assert.Equal(t, 10, c.Sources.Punctuality.RateLimit)
	assert.Equal(t, "https://aeroapi.flightaware.com/aeroapi", c.Sources.Punctuality.BaseURL)
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string]string{
		"bad log level":         "log:\n  level: chatty\n",
		"kafka without brokers": "kafka:\n  enabled: true\n",
		"unknown auth":          "sources:\n  weather:\n    auth: basic\n",
		"unknown cache backend": "cache:\n  backend: memcached\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
}

func TestValidate_AllWeightsZero(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)
	c.Engine.Weights.Strategic = 0
	c.Engine.Weights.Operational = 0
	c.Engine.Weights.Economic = 0
	assert.Error(t, c.Validate())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadWithEnv_Overrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("AVIATIONSTACK_API_KEY", "av-key")
	t.Setenv("OPENSKY_CLIENT_ID", "sky-id")
	t.Setenv("OPENSKY_CLIENT_SECRET", "sky-secret")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("PORT", "9090")

	c, err := LoadWithEnv(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "av-key", c.Sources.Traffic.APIKey)
	assert.Equal(t, "sky-id", c.Sources.Aircraft.ClientID)
	assert.Equal(t, "sky-secret", c.Sources.Aircraft.ClientSecret)
	assert.True(t, c.Kafka.Enabled)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, c.Kafka.Brokers)
	assert.Equal(t, 9090, c.Server.Port)
}
