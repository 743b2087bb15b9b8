package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// DefaultCompressPattern 匹配默认需要压缩的文本类静态资源。
const DefaultCompressPattern = `\.(html|js|css|md)$`

// EnvPrefix 是所有环境变量覆盖项的前缀，例如 ANYDOOR_PORT。
const EnvPrefix = "ANYDOOR"

// Load 读取 TOML 配置文件（path 为空时仅使用默认值与环境变量），并完成校验。
func Load(path string) (*Config, error) {
	return LoadWithOverrides(path, nil)
}

// LoadWithOverrides 在 Load 的基础上叠加 CLI 覆盖项，key 与 TOML 字段同名。
func LoadWithOverrides(path string, overrides map[string]any) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("读取配置失败: %w", err)
		}
	}

	for key, value := range overrides {
		v.Set(key, value)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(durationDecodeHook())); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	_, rootOverridden := overrides["Root"]
	if path != "" && !rootOverridden && v.InConfig("root") {
		cfg.Server.Root = relativeToFile(path, cfg.Server.Root)
	}

	if err := applyServerDefaults(&cfg.Server); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	absRoot, err := filepath.Abs(cfg.Server.Root)
	if err != nil {
		return nil, fmt.Errorf("无法解析根目录: %w", err)
	}
	cfg.Server.Root = absRoot

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("Root", "")
	v.SetDefault("Host", "127.0.0.1")
	v.SetDefault("Port", 9527)
	v.SetDefault("Compress", DefaultCompressPattern)
	v.SetDefault("CompressMinSize", 0)
	v.SetDefault("CacheMaxAge", 600)
	v.SetDefault("CacheControl", true)
	v.SetDefault("Expires", true)
	v.SetDefault("LastModified", true)
	v.SetDefault("ETag", true)
	v.SetDefault("LogLevel", "info")
	v.SetDefault("LogFilePath", "")
	v.SetDefault("LogMaxSize", 100)
	v.SetDefault("LogMaxBackups", 10)
	v.SetDefault("LogCompress", true)
}

func applyServerDefaults(s *ServerConfig) error {
	if strings.TrimSpace(s.Root) == "" {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("无法获取当前目录: %w", err)
		}
		s.Root = wd
	}
	if s.Host == "" {
		s.Host = "127.0.0.1"
	}
	if s.Compress == "" {
		s.Compress = DefaultCompressPattern
	}
	return nil
}

// relativeToFile 让配置文件中的相对 Root 以配置文件所在目录为基准。
func relativeToFile(configPath, root string) string {
	if root == "" || filepath.IsAbs(root) {
		return root
	}
	return filepath.Join(filepath.Dir(configPath), root)
}

func durationDecodeHook() mapstructure.DecodeHookFunc {
	targetType := reflect.TypeOf(Duration(0))

	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != targetType {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			if v == "" {
				return Duration(0), nil
			}
			if parsed, err := time.ParseDuration(v); err == nil {
				return Duration(parsed), nil
			}
			if seconds, err := strconv.ParseFloat(v, 64); err == nil {
				return Duration(time.Duration(seconds * float64(time.Second))), nil
			}
			return nil, fmt.Errorf("无法解析 Duration 字段: %s", v)
		case int:
			return Duration(time.Duration(v) * time.Second), nil
		case int64:
			return Duration(time.Duration(v) * time.Second), nil
		case float64:
			return Duration(time.Duration(v * float64(time.Second))), nil
		case time.Duration:
			return Duration(v), nil
		case Duration:
			return v, nil
		default:
			return nil, fmt.Errorf("不支持的 Duration 类型: %T", v)
		}
	}
}
