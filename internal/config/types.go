package config

import (
	"fmt"
	"path/filepath"
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

// DefaultChunkSize 是响应缺少 Content-Length 时的流式写入块大小（8 MiB）。
const DefaultChunkSize int64 = 8 * 1024 * 1024

// GlobalConfig 描述全局运行时行为，所有 Catalog 共享同一份参数。
type GlobalConfig struct {
	ListenPort    int    `mapstructure:"ListenPort"`
	LogLevel      string `mapstructure:"LogLevel"`
	LogFilePath   string `mapstructure:"LogFilePath"`
	LogMaxSize    int    `mapstructure:"LogMaxSize"`
	LogMaxBackups int    `mapstructure:"LogMaxBackups"`
	LogCompress   bool   `mapstructure:"LogCompress"`
	// CacheRoot 为空时由 CacheRootEnv 指向的用户目录推导。
	CacheRoot            string   `mapstructure:"CacheRoot"`
	CacheRootEnv         string   `mapstructure:"CacheRootEnv"`
	CacheDirName         string   `mapstructure:"CacheDirName"`
	ChunkSize            int64    `mapstructure:"ChunkSize"`
	MaxConcurrentFetches int      `mapstructure:"MaxConcurrentFetches"`
	FetchTimeout         Duration `mapstructure:"FetchTimeout"`
	FetchRateLimit       float64  `mapstructure:"FetchRateLimit"`
	UpstreamTimeout      Duration `mapstructure:"UpstreamTimeout"`
	WriteManifest        bool     `mapstructure:"WriteManifest"`
}

// CatalogConfig 决定单个远端目录如何被列出与缓存。
type CatalogConfig struct {
	Name     string `mapstructure:"Name"`
	Kind     string `mapstructure:"Kind"`
	BaseURL  string `mapstructure:"BaseURL"`
	Type     string `mapstructure:"Type"`
	Limit    int    `mapstructure:"Limit"`
	Proxy    string `mapstructure:"Proxy"`
	Username string `mapstructure:"Username"`
	Password string `mapstructure:"Password"`
	// MaxConcurrentFetches 覆盖全局并发上限，0 表示沿用全局值。
	MaxConcurrentFetches int `mapstructure:"MaxConcurrentFetches"`
}

// Config 是 TOML 文件映射的整体结构。
type Config struct {
	Global   GlobalConfig    `mapstructure:",squash"`
	Catalogs []CatalogConfig `mapstructure:"Catalog"`
}

// HasCredentials 表示当前 Catalog 是否配置了完整的上游凭证。
func (c CatalogConfig) HasCredentials() bool {
	return c.Username != "" && c.Password != ""
}

// AuthMode 输出 `credentialed` 或 `anonymous`，供日志字段使用。
func (c CatalogConfig) AuthMode() string {
	if c.HasCredentials() {
		return "credentialed"
	}
	return "anonymous"
}

// CredentialModes 返回所有 Catalog 的鉴权模式摘要，例如 lights:anonymous。
func CredentialModes(catalogs []CatalogConfig) []string {
	if len(catalogs) == 0 {
		return nil
	}
	result := make([]string, len(catalogs))
	for i, catalog := range catalogs {
		result[i] = fmt.Sprintf("%s:%s", catalog.Name, catalog.AuthMode())
	}
	return result
}

// CatalogNames 按配置顺序返回 Catalog 名称。
func CatalogNames(catalogs []CatalogConfig) []string {
	names := make([]string, len(catalogs))
	for i, catalog := range catalogs {
		names[i] = catalog.Name
	}
	return names
}

// EffectiveConcurrency 返回 Catalog 生效的下载并发上限：
// Catalog 覆盖 > 全局值 > 页大小（Limit）。
func (c *Config) EffectiveConcurrency(catalog CatalogConfig) int {
	if catalog.MaxConcurrentFetches > 0 {
		return catalog.MaxConcurrentFetches
	}
	if c.Global.MaxConcurrentFetches > 0 {
		return c.Global.MaxConcurrentFetches
	}
	return catalog.Limit
}

// CacheDir 返回 Catalog 独占的缓存目录 <CacheRoot>/<Name>。
func (c *Config) CacheDir(catalog CatalogConfig) string {
	return filepath.Join(c.Global.CacheRoot, catalog.Name)
}
