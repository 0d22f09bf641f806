package server

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/rprusd/thumbhub/internal/assetkind"
	"github.com/rprusd/thumbhub/internal/config"
)

// CatalogRoute 将 Catalog 配置与派生属性（解析后的 BaseURL/Proxy、类型、缓存目录）
// 聚合在一起，供 HTTP 层与 CLI 同步流程直接复用，避免重复解析配置。
type CatalogRoute struct {
	// Config 是用户在 config.toml 中声明的 Catalog 字段副本。
	Config config.CatalogConfig
	// Kind 是该目录的资产类型元数据。
	Kind assetkind.Metadata
	// BaseURL/ProxyURL 在构造 Registry 时提前解析完成。
	BaseURL  *url.URL
	ProxyURL *url.URL
	// CacheDir 为 <CacheRoot>/<Name>。
	CacheDir string
	// Concurrency 是生效的下载并发上限。
	Concurrency int
	ListenPort  int
}

// CatalogRegistry 提供名称到 CatalogRoute 的查询能力。
type CatalogRegistry struct {
	routes  map[string]*CatalogRoute
	ordered []*CatalogRoute
}

// NewCatalogRegistry 根据配置构建目录表。调用方应在启动阶段创建一次并复用。
func NewCatalogRegistry(cfg *config.Config) (*CatalogRegistry, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}

	registry := &CatalogRegistry{
		routes: make(map[string]*CatalogRoute, len(cfg.Catalogs)),
	}

	for _, catalog := range cfg.Catalogs {
		if catalog.Name == "" {
			return nil, errors.New("catalog name is required")
		}
		if _, exists := registry.routes[catalog.Name]; exists {
			return nil, fmt.Errorf("duplicate catalog %s", catalog.Name)
		}

		route, err := buildCatalogRoute(cfg, catalog)
		if err != nil {
			return nil, err
		}

		registry.routes[catalog.Name] = route
		registry.ordered = append(registry.ordered, route)
	}

	return registry, nil
}

// Lookup 根据名称查找 CatalogRoute。
func (r *CatalogRegistry) Lookup(name string) (*CatalogRoute, bool) {
	if r == nil || name == "" {
		return nil, false
	}
	route, ok := r.routes[name]
	return route, ok
}

// List 返回按配置顺序排列的 CatalogRoute 副本，用于诊断输出。
func (r *CatalogRegistry) List() []CatalogRoute {
	if r == nil || len(r.ordered) == 0 {
		return nil
	}

	result := make([]CatalogRoute, len(r.ordered))
	for i, route := range r.ordered {
		result[i] = *route
	}
	return result
}

func buildCatalogRoute(cfg *config.Config, catalog config.CatalogConfig) (*CatalogRoute, error) {
	runtime, err := config.BuildCatalogRuntime(cfg, catalog)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", catalog.Name, err)
	}

	baseURL, err := url.Parse(catalog.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url for catalog %s: %w", catalog.Name, err)
	}

	var proxyURL *url.URL
	if catalog.Proxy != "" {
		proxyURL, err = url.Parse(catalog.Proxy)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy for catalog %s: %w", catalog.Name, err)
		}
	}

	return &CatalogRoute{
		Config:      runtime.Config,
		Kind:        runtime.Kind,
		BaseURL:     baseURL,
		ProxyURL:    proxyURL,
		CacheDir:    runtime.CacheDir,
		Concurrency: runtime.Concurrency,
		ListenPort:  cfg.Global.ListenPort,
	}, nil
}
