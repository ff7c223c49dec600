package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const (
	maxConfigFileSize = 1024 * 1024 // 1MB
	maxGraceDays      = 7
)

// AppConfig 汇总运行服务所需的基础配置。
type AppConfig struct {
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Log       LogConfig       `koanf:"log"`
	Analytics AnalyticsConfig `koanf:"analytics"`
	Auth      AuthConfig      `koanf:"auth"`
}

// ServerConfig HTTP 服务配置
type ServerConfig struct {
	Port       string `koanf:"port"`
	ListenAddr string `koanf:"listen_addr"`
	GinMode    string `koanf:"gin_mode"`
}

// DatabaseConfig sqlite 配置
type DatabaseConfig struct {
	Path string `koanf:"path"`
}

// LogConfig 日志级别与输出格式（json/console）
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// AnalyticsConfig 决定 "今天" 所在的时区与默认宽限天数
type AnalyticsConfig struct {
	Timezone  string `koanf:"timezone"`
	GraceDays int    `koanf:"grace_days"`
}

// AuthConfig 校验外部签发的 HS256 token；TrustHeader 开启时改为信任网关写入的 X-User-ID
type AuthConfig struct {
	JWTSecret   string `koanf:"jwt_secret"`
	JWTIssuer   string `koanf:"jwt_issuer"`
	TrustHeader bool   `koanf:"trust_header"`
}

// envKeys 是环境变量到配置键的映射，未列出的变量会被忽略
var envKeys = map[string]string{
	"PORT":              "server.port",
	"LISTEN_ADDR":       "server.listen_addr",
	"GIN_MODE":          "server.gin_mode",
	"DATABASE_PATH":     "database.path",
	"LOG_LEVEL":         "log.level",
	"LOG_FORMAT":        "log.format",
	"TIMEZONE":          "analytics.timezone",
	"STREAK_GRACE_DAYS": "analytics.grace_days",
	"JWT_SECRET":        "auth.jwt_secret",
	"JWT_ISSUER":        "auth.jwt_issuer",
	"AUTH_TRUST_HEADER": "auth.trust_header",
}

var defaults = map[string]any{
	"server.port":          "8080",
	"server.gin_mode":      "release",
	"database.path":        "lifetrack.db",
	"log.level":            "info",
	"log.format":           "json",
	"analytics.timezone":   "UTC",
	"analytics.grace_days": 1,
	"auth.trust_header":    false,
}

// Load 读取配置，优先级从高到低：环境变量、CONFIG_FILE 指向的 YAML 文件、默认值。
func Load() (*AppConfig, error) {
	return LoadFile(strings.TrimSpace(os.Getenv("CONFIG_FILE")))
}

// LoadFile 与 Load 相同，但显式指定 YAML 文件路径，path 为空时跳过文件
func LoadFile(path string) (*AppConfig, error) {
	k := koanf.New(".")

	for key, value := range defaults {
		if err := k.Set(key, value); err != nil {
			return nil, fmt.Errorf("set default %s: %w", key, err)
		}
	}

	if path != "" {
		content, err := readConfigFile(path)
		if err != nil {
			return nil, err
		}
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", func(s string) string {
		return envKeys[s]
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg AppConfig
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// Validate 检查配置是否可用
func (c *AppConfig) Validate() error {
	if c.Analytics.GraceDays < 0 || c.Analytics.GraceDays > maxGraceDays {
		return fmt.Errorf("analytics.grace_days must be between 0 and %d, got %d", maxGraceDays, c.Analytics.GraceDays)
	}

	if _, err := time.LoadLocation(c.Analytics.Timezone); err != nil {
		return fmt.Errorf("invalid analytics.timezone %q: %w", c.Analytics.Timezone, err)
	}

	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("log.format must be json or console, got %q", c.Log.Format)
	}

	if !c.Auth.TrustHeader && c.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret is required unless auth.trust_header is enabled")
	}

	return nil
}

// Location 返回配置的时区，校验通过后不会失败
func (c *AppConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Analytics.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c *AppConfig) normalize() {
	c.Server.Port = strings.TrimSpace(c.Server.Port)
	c.Server.ListenAddr = strings.TrimSpace(c.Server.ListenAddr)
	if c.Server.ListenAddr == "" {
		c.Server.ListenAddr = fmt.Sprintf(":%s", c.Server.Port)
	}
	c.Database.Path = strings.TrimSpace(c.Database.Path)
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	c.Log.Format = strings.ToLower(strings.TrimSpace(c.Log.Format))
	c.Analytics.Timezone = strings.TrimSpace(c.Analytics.Timezone)
	c.Auth.JWTSecret = strings.TrimSpace(c.Auth.JWTSecret)
	c.Auth.JWTIssuer = strings.TrimSpace(c.Auth.JWTIssuer)
}

func readConfigFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("config path %s is a directory", path)
	}
	if info.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("config file %s exceeds %d bytes", path, maxConfigFileSize)
	}

	content, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return content, nil
}
