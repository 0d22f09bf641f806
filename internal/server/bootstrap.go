package server

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/rprusd/thumbhub/internal/browser"
	"github.com/rprusd/thumbhub/internal/cache"
	"github.com/rprusd/thumbhub/internal/catalog"
	"github.com/rprusd/thumbhub/internal/config"
	"github.com/rprusd/thumbhub/internal/thumbnail"
)

// NewCatalogBrowser 按 CatalogRoute 组装 上游客户端 → 目录客户端 → 缓存 → Fetcher → Browser。
func NewCatalogBrowser(cfg *config.Config, route *CatalogRoute, logger *logrus.Logger) (*browser.Browser, error) {
	httpClient := NewUpstreamClient(cfg, route.ProxyURL)

	catalogOpts := []catalog.Option{catalog.WithTimeout(cfg.Global.UpstreamTimeout.DurationValue())}
	if route.Config.HasCredentials() {
		catalogOpts = append(catalogOpts, catalog.WithBasicAuth(route.Config.Username, route.Config.Password))
	}
	client, err := catalog.NewClient(httpClient, route.BaseURL, logger, catalogOpts...)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", route.Config.Name, err)
	}

	store, err := cache.NewStore(route.CacheDir, route.Kind.FileExt)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", route.Config.Name, err)
	}

	fetcher, err := thumbnail.NewFetcher(httpClient, store, logger, thumbnail.Options{
		Catalog:       route.Config.Name,
		BaseURL:       route.BaseURL,
		Kind:          route.Kind,
		ChunkSize:     cfg.Global.ChunkSize,
		Timeout:       cfg.Global.FetchTimeout.DurationValue(),
		MaxConcurrent: route.Concurrency,
		RateLimit:     cfg.Global.FetchRateLimit,
		WriteManifest: cfg.Global.WriteManifest,
		Username:      route.Config.Username,
		Password:      route.Config.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", route.Config.Name, err)
	}

	return browser.New(client, fetcher, logger, browser.Options{
		Name:        route.Config.Name,
		Kind:        route.Kind,
		Limit:       route.Config.Limit,
		ListingType: route.Config.Type,
	})
}

// BuildBrowsers 为注册表中的每个目录创建 Browser，按名称索引。
func BuildBrowsers(cfg *config.Config, registry *CatalogRegistry, logger *logrus.Logger) (map[string]*browser.Browser, error) {
	browsers := make(map[string]*browser.Browser)
	for _, route := range registry.List() {
		b, err := NewCatalogBrowser(cfg, &route, logger)
		if err != nil {
			return nil, err
		}
		browsers[route.Config.Name] = b
	}
	return browsers, nil
}
