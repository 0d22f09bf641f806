package config

import (
	"fmt"

	"github.com/rprusd/thumbhub/internal/assetkind"
)

// CatalogRuntime 将 Catalog 配置与资产类型元数据合并，方便运行时快速取用。
type CatalogRuntime struct {
	Config      CatalogConfig
	Kind        assetkind.Metadata
	CacheDir    string
	Concurrency int
}

// BuildCatalogRuntime 解析 Catalog 的类型并计算缓存目录与并发上限。
func BuildCatalogRuntime(cfg *Config, catalog CatalogConfig) (CatalogRuntime, error) {
	meta, ok := assetkind.Resolve(catalog.Kind)
	if !ok {
		return CatalogRuntime{}, fmt.Errorf("asset kind %s is not registered", catalog.Kind)
	}
	return CatalogRuntime{
		Config:      catalog,
		Kind:        meta,
		CacheDir:    cfg.CacheDir(catalog),
		Concurrency: cfg.EffectiveConcurrency(catalog),
	}, nil
}
