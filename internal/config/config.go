// 包 config：集中读取服务配置（.env → 可选 YAML 文件 → 环境变量覆盖），主入口与各 CLI 共用
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

// 文档注释：服务配置
// 背景：原先分散在入口处的 os.Getenv 读取收敛到此处，便于测试与 YAML 部署。
// 约束：优先级为 环境变量 > YAML 文件 > 默认值；.env 仅补充未设置的环境变量。
type Config struct {
	Addr       string `yaml:"addr"`
	APIBase    string `yaml:"api_base"`
	LogLevel   string `yaml:"log_level"`
	LogFormat  string `yaml:"log_format"`
	AdminToken string `yaml:"admin_token"`

	// file | postgres
	Source    string `yaml:"source"`
	SeedsPath string `yaml:"seeds_path"`
	Table     string `yaml:"table"`

	MaxRadiusKm float64 `yaml:"max_radius_km"`

	RedisEnable     bool `yaml:"redis_enable"`
	RadiusCacheTTLS int  `yaml:"radius_cache_ttl_s"`
	PointCacheSize  int  `yaml:"point_cache_size"`
	PointCacheTTLS  int  `yaml:"point_cache_ttl_s"`

	RateLimitEnabled bool `yaml:"rate_limit_enabled"`
	RateLimitQPS     int  `yaml:"rate_limit_qps"`

	TLSEnable   bool   `yaml:"tls_enable"`
	TLSCertPath string `yaml:"tls_cert_path"`
	TLSKeyPath  string `yaml:"tls_key_path"`
}

// Defaults 默认配置
func Defaults() Config {
	return Config{
		Addr:            ":8080",
		APIBase:         "/api",
		LogLevel:        "info",
		LogFormat:       "text",
		Source:          "file",
		SeedsPath:       filepath.Join("data", "seeds.json"),
		Table:           "area_imovel_1",
		MaxRadiusKm:     1000,
		RadiusCacheTTLS: 3600,
		PointCacheSize:  4096,
		PointCacheTTLS:  3600,
		RateLimitQPS:    200,
		TLSCertPath:     filepath.Join("data", "certs", "server.crt"),
		TLSKeyPath:      filepath.Join("data", "certs", "server.key"),
	}
}

// Load 读取 .env 与 CONFIG_FILE 指向的 YAML，再以环境变量覆盖
func Load() (Config, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join("data", "env", ".env"))
	c := Defaults()
	if p := os.Getenv("CONFIG_FILE"); p != "" {
		b, err := os.ReadFile(p)
		if err != nil {
			return c, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return c, fmt.Errorf("parse config file %s: %w", p, err)
		}
	}
	c.applyEnv(os.Getenv)
	if err := c.Validate(); err != nil {
		return c, err
	}
	return c, nil
}

func (c *Config) applyEnv(get func(string) string) {
	str := func(key string, dst *string) {
		if v := get(key); v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if v := get(key); v != "" {
			if n, e := strconv.Atoi(v); e == nil {
				*dst = n
			}
		}
	}
	flag := func(key string, dst *bool) {
		if v := get(key); v != "" {
			*dst = strings.EqualFold(v, "true") || v == "1"
		}
	}
	str("ADDR", &c.Addr)
	str("API_BASE", &c.APIBase)
	str("LOG_LEVEL", &c.LogLevel)
	str("LOG_FORMAT", &c.LogFormat)
	str("ADMIN_TOKEN", &c.AdminToken)
	str("PARCEL_SOURCE", &c.Source)
	str("PARCEL_SEEDS_PATH", &c.SeedsPath)
	str("PARCEL_TABLE", &c.Table)
	if v := get("MAX_RADIUS_KM"); v != "" {
		if f, e := strconv.ParseFloat(v, 64); e == nil && f > 0 {
			c.MaxRadiusKm = f
		}
	}
	flag("REDIS_ENABLE", &c.RedisEnable)
	num("RADIUS_CACHE_TTL_S", &c.RadiusCacheTTLS)
	num("POINT_CACHE_SIZE", &c.PointCacheSize)
	num("POINT_CACHE_TTL_S", &c.PointCacheTTLS)
	flag("RATE_LIMIT_ENABLED", &c.RateLimitEnabled)
	num("RATE_LIMIT_QPS", &c.RateLimitQPS)
	flag("TLS_ENABLE", &c.TLSEnable)
	str("TLS_CERT_PATH", &c.TLSCertPath)
	str("TLS_KEY_PATH", &c.TLSKeyPath)
}

// Validate 校验枚举与取值范围
func (c Config) Validate() error {
	switch c.Source {
	case "file", "postgres":
	default:
		return fmt.Errorf("unknown parcel source %q (want file or postgres)", c.Source)
	}
	if c.MaxRadiusKm <= 0 {
		return fmt.Errorf("max_radius_km must be positive, got %v", c.MaxRadiusKm)
	}
	if c.Table == "" {
		return fmt.Errorf("table must not be empty")
	}
	if !strings.HasPrefix(c.APIBase, "/") {
		return fmt.Errorf("api_base must start with /, got %q", c.APIBase)
	}
	return nil
}
