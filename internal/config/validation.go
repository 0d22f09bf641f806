package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/rprusd/thumbhub/internal/assetkind"
)

// Validate 针对语义级别做进一步校验，防止非法配置启动服务。
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("配置为空")
	}

	g := c.Global
	if g.ListenPort <= 0 || g.ListenPort > 65535 {
		return newFieldError("Global.ListenPort", "必须在 1-65535")
	}
	if g.CacheRoot == "" {
		return newFieldError("Global.CacheRoot", "不能为空")
	}
	if g.ChunkSize <= 0 {
		return newFieldError("Global.ChunkSize", "必须大于 0")
	}
	if g.MaxConcurrentFetches < 0 {
		return newFieldError("Global.MaxConcurrentFetches", "不能为负数")
	}
	if g.FetchTimeout.DurationValue() <= 0 {
		return newFieldError("Global.FetchTimeout", "必须大于 0")
	}
	if g.FetchRateLimit < 0 {
		return newFieldError("Global.FetchRateLimit", "不能为负数")
	}
	if g.UpstreamTimeout.DurationValue() <= 0 {
		return newFieldError("Global.UpstreamTimeout", "必须大于 0")
	}

	if len(c.Catalogs) == 0 {
		return errors.New("至少需要配置一个 Catalog")
	}

	seenNames := map[string]struct{}{}
	for i := range c.Catalogs {
		catalog := &c.Catalogs[i]
		if catalog.Name == "" {
			return newFieldError("Catalog[].Name", "不能为空")
		}
		if err := validateName(catalog.Name); err != nil {
			return fmt.Errorf("%s: %w", catalogField(catalog.Name, "Name"), err)
		}
		if _, exists := seenNames[catalog.Name]; exists {
			return newFieldError(catalogField(catalog.Name, "Name"), "重复")
		}
		seenNames[catalog.Name] = struct{}{}

		kind := strings.ToLower(strings.TrimSpace(catalog.Kind))
		if kind == "" {
			return newFieldError(catalogField(catalog.Name, "Kind"), "不能为空")
		}
		if _, ok := assetkind.Resolve(kind); !ok {
			return newFieldError(catalogField(catalog.Name, "Kind"), "仅支持 "+strings.Join(assetkind.Keys(), "|"))
		}
		catalog.Kind = kind

		if catalog.Limit <= 0 {
			return newFieldError(catalogField(catalog.Name, "Limit"), "必须大于 0")
		}
		if catalog.MaxConcurrentFetches < 0 {
			return newFieldError(catalogField(catalog.Name, "MaxConcurrentFetches"), "不能为负数")
		}
		if (catalog.Username == "") != (catalog.Password == "") {
			return newFieldError(catalogField(catalog.Name, "Username/Password"), "必须同时提供或同时留空")
		}
		if err := validateUpstream(catalog.BaseURL); err != nil {
			return fmt.Errorf("%s: %w", catalogField(catalog.Name, "BaseURL"), err)
		}
		if catalog.Proxy != "" {
			if err := validateUpstream(catalog.Proxy); err != nil {
				return fmt.Errorf("%s: %w", catalogField(catalog.Name, "Proxy"), err)
			}
		}
	}

	return nil
}

// validateName 保证名称可以直接作为缓存子目录与 URL 路径段使用。
func validateName(name string) error {
	if strings.ContainsAny(name, `/\ `) {
		return errors.New("不允许包含路径分隔符或空格")
	}
	if name == "." || name == ".." || strings.HasPrefix(name, "-") {
		return errors.New("名称非法")
	}
	return nil
}

func validateUpstream(raw string) error {
	if raw == "" {
		return errors.New("缺少上游地址")
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("仅支持 http/https，上游: %s", raw)
	}
	if parsed.Host == "" {
		return fmt.Errorf("上游缺少 Host: %s", raw)
	}
	return nil
}
