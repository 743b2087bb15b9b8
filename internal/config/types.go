package config

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Duration 提供更灵活的反序列化能力，同时兼容纯秒整数与 Go Duration 字符串。
type Duration time.Duration

// UnmarshalText 使 Viper 可以识别诸如 "30s"、"5m" 或纯数字秒值等配置写法。
func (d *Duration) UnmarshalText(text []byte) error {
	raw := strings.TrimSpace(string(text))
	if raw == "" {
		*d = Duration(0)
		return nil
	}

	if parsed, err := time.ParseDuration(raw); err == nil {
		*d = Duration(parsed)
		return nil
	}

	if intVal, err := parseInt(raw); err == nil {
		*d = Duration(time.Duration(intVal) * time.Second)
		return nil
	}

	return fmt.Errorf("invalid duration value: %s", raw)
}

// DurationValue 返回真实的 time.Duration，便于调用方计算。
func (d Duration) DurationValue() time.Duration {
	return time.Duration(d)
}

// parseInt 支持十进制或 0x 前缀的十六进制字符串解析。
func parseInt(value string) (int64, error) {
	if strings.HasPrefix(value, "0x") || strings.HasPrefix(value, "0X") {
		return strconv.ParseInt(value, 0, 64)
	}
	return strconv.ParseInt(value, 10, 64)
}

// ServerConfig 描述被服务的根目录、监听地址以及压缩规则。
type ServerConfig struct {
	Root            string `mapstructure:"Root"`
	Host            string `mapstructure:"Host"`
	Port            int    `mapstructure:"Port"`
	Compress        string `mapstructure:"Compress"`
	CompressMinSize int64  `mapstructure:"CompressMinSize"`

	compressPattern *regexp.Regexp
}

// CompressPattern 返回 Validate 编译后的压缩匹配规则；未校验时返回 nil。
func (s ServerConfig) CompressPattern() *regexp.Regexp {
	return s.compressPattern
}

// Addr 拼接 Fiber Listen 使用的监听地址。
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// CacheConfig 控制新鲜度校验相关的响应头。
type CacheConfig struct {
	MaxAge       Duration `mapstructure:"CacheMaxAge"`
	CacheControl bool     `mapstructure:"CacheControl"`
	Expires      bool     `mapstructure:"Expires"`
	LastModified bool     `mapstructure:"LastModified"`
	ETag         bool     `mapstructure:"ETag"`
}

// LogConfig 描述 logrus + lumberjack 的输出方式。
type LogConfig struct {
	LogLevel      string `mapstructure:"LogLevel"`
	LogFilePath   string `mapstructure:"LogFilePath"`
	LogMaxSize    int    `mapstructure:"LogMaxSize"`
	LogMaxBackups int    `mapstructure:"LogMaxBackups"`
	LogCompress   bool   `mapstructure:"LogCompress"`
}

// Config 是 TOML 文件映射的整体结构，加载完成后在进程内只读共享。
type Config struct {
	Server ServerConfig `mapstructure:",squash"`
	Cache  CacheConfig  `mapstructure:",squash"`
	Log    LogConfig    `mapstructure:",squash"`
}

// Summary 输出诊断接口与启动日志使用的配置摘要。
func (c *Config) Summary() map[string]any {
	return map[string]any{
		"root":              c.Server.Root,
		"addr":              c.Server.Addr(),
		"compress":          c.Server.Compress,
		"compress_min_size": c.Server.CompressMinSize,
		"cache": map[string]any{
			"max_age_seconds": int64(c.Cache.MaxAge.DurationValue() / time.Second),
			"cache_control":   c.Cache.CacheControl,
			"expires":         c.Cache.Expires,
			"last_modified":   c.Cache.LastModified,
			"etag":            c.Cache.ETag,
		},
	}
}
