package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/rprusd/thumbhub/internal/assetkind"
)

const defaultCacheDirName = "rprusd-thumbnails"

// Load 读取并解析 TOML 配置文件，同时注入默认值与校验逻辑。
func Load(path string) (*Config, error) {
	if path == "" {
		path = "config.toml"
	}

	v := viper.New()
	v.SetConfigFile(path)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取配置失败: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(durationDecodeHook())); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	applyGlobalDefaults(&cfg.Global)
	for i := range cfg.Catalogs {
		applyCatalogDefaults(&cfg.Catalogs[i])
	}

	root, err := resolveCacheRoot(cfg.Global)
	if err != nil {
		return nil, err
	}
	cfg.Global.CacheRoot = root

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ListenPort", 5080)
	v.SetDefault("LogLevel", "info")
	v.SetDefault("LogFilePath", "")
	v.SetDefault("LogMaxSize", 100)
	v.SetDefault("LogMaxBackups", 10)
	v.SetDefault("LogCompress", true)
	v.SetDefault("CacheRoot", "")
	v.SetDefault("CacheRootEnv", "USERPROFILE")
	v.SetDefault("CacheDirName", defaultCacheDirName)
	v.SetDefault("ChunkSize", DefaultChunkSize)
	v.SetDefault("MaxConcurrentFetches", 0)
	v.SetDefault("FetchTimeout", "60s")
	v.SetDefault("FetchRateLimit", 0)
	v.SetDefault("UpstreamTimeout", "30s")
	v.SetDefault("WriteManifest", true)
}

func applyGlobalDefaults(g *GlobalConfig) {
	if g.ListenPort == 0 {
		g.ListenPort = 5080
	}
	if g.LogLevel == "" {
		g.LogLevel = "info"
	}
	if strings.TrimSpace(g.CacheDirName) == "" {
		g.CacheDirName = defaultCacheDirName
	}
	if g.ChunkSize == 0 {
		g.ChunkSize = DefaultChunkSize
	}
	if g.FetchTimeout.DurationValue() == 0 {
		g.FetchTimeout = Duration(60 * time.Second)
	}
	if g.UpstreamTimeout.DurationValue() == 0 {
		g.UpstreamTimeout = Duration(30 * time.Second)
	}
}

func applyCatalogDefaults(c *CatalogConfig) {
	c.Name = strings.TrimSpace(c.Name)
	c.Kind = strings.ToLower(strings.TrimSpace(c.Kind))
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if c.Limit == 0 {
		c.Limit = 50
	}
	if strings.TrimSpace(c.Type) == "" {
		if meta, ok := assetkind.Resolve(c.Kind); ok {
			c.Type = meta.ListingType
		}
	}
}

// resolveCacheRoot 按 CacheRoot > $CacheRootEnv > 系统用户缓存目录 的顺序确定缓存根目录。
func resolveCacheRoot(g GlobalConfig) (string, error) {
	root := strings.TrimSpace(g.CacheRoot)
	if root == "" {
		base := ""
		if env := strings.TrimSpace(g.CacheRootEnv); env != "" {
			base = os.Getenv(env)
		}
		if base == "" {
			dir, err := os.UserCacheDir()
			if err != nil {
				return "", errors.New("无法推导缓存目录: 请设置 CacheRoot 或 " + g.CacheRootEnv)
			}
			base = dir
		}
		root = filepath.Join(base, g.CacheDirName)
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("无法解析缓存目录: %w", err)
	}
	return abs, nil
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
