package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsAreValid(t *testing.T) {
	c := Defaults()
	require.NoError(t, c.Validate())
	assert.Equal(t, 1000.0, c.MaxRadiusKm)
	assert.Equal(t, "file", c.Source)
	assert.Equal(t, "area_imovel_1", c.Table)
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"ADDR":               ":9090",
		"PARCEL_SOURCE":      "postgres",
		"MAX_RADIUS_KM":      "250.5",
		"REDIS_ENABLE":       "true",
		"POINT_CACHE_SIZE":   "16",
		"RATE_LIMIT_ENABLED": "1",
		"RATE_LIMIT_QPS":     "not-a-number",
		"TLS_ENABLE":         "false",
	}
	c := Defaults()
	c.applyEnv(func(k string) string { return env[k] })
	assert.Equal(t, ":9090", c.Addr)
	assert.Equal(t, "postgres", c.Source)
	assert.Equal(t, 250.5, c.MaxRadiusKm)
	assert.True(t, c.RedisEnable)
	assert.Equal(t, 16, c.PointCacheSize)
	assert.True(t, c.RateLimitEnabled)
	assert.Equal(t, 200, c.RateLimitQPS, "unparsable value keeps default")
	assert.False(t, c.TLSEnable)
	assert.Equal(t, "/api", c.APIBase)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown source", func(c *Config) { c.Source = "s3" }},
		{"zero radius", func(c *Config) { c.MaxRadiusKm = 0 }},
		{"empty table", func(c *Config) { c.Table = "" }},
		{"relative base", func(c *Config) { c.APIBase = "api" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Defaults()
			tt.mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestLoadYAMLThenEnv(t *testing.T) {
	p := filepath.Join(t.TempDir(), "parcel.yaml")
	require.NoError(t, os.WriteFile(p, []byte("api_base: /v1\ntable: parcels\nmax_radius_km: 50\npoint_cache_size: 8\n"), 0o644))
	t.Setenv("CONFIG_FILE", p)
	t.Setenv("PARCEL_TABLE", "override")
	t.Setenv("MAX_RADIUS_KM", "")

	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/v1", c.APIBase)
	assert.Equal(t, "override", c.Table)
	assert.Equal(t, 50.0, c.MaxRadiusKm)
	assert.Equal(t, 8, c.PointCacheSize)
	assert.Equal(t, ":8080", c.Addr, "untouched keys keep defaults")
}

func TestLoadBadYAML(t *testing.T) {
	p := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(p, []byte("api_base: [unclosed\n"), 0o644))
	t.Setenv("CONFIG_FILE", p)
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	_, err = Load()
	assert.Error(t, err)
}
