package routes

import (
	"strings"

	"github.com/gofiber/fiber/v3"

	"github.com/rprusd/thumbhub/internal/assetkind"
	"github.com/rprusd/thumbhub/internal/browser"
	"github.com/rprusd/thumbhub/internal/cache"
	"github.com/rprusd/thumbhub/internal/server"
)

// RegisterCatalogRoutes 暴露 /-/catalogs 诊断接口，供排查目录配置与下载状态。
// browsers 用于列出各目录已缓存的缩略图。
func RegisterCatalogRoutes(app *fiber.App, registry *server.CatalogRegistry, browsers map[string]*browser.Browser) {
	if app == nil || registry == nil {
		return
	}

	app.Get("/-/catalogs", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"catalogs": encodeCatalogs(registry.List()),
			"kinds":    encodeKinds(assetkind.List()),
		})
	})

	app.Get("/-/catalogs/:name/manifest", func(c fiber.Ctx) error {
		name := strings.TrimSpace(c.Params("name"))
		route, ok := registry.Lookup(name)
		if !ok {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "catalog_unmapped"})
		}
		manifest, err := cache.LoadManifest(route.CacheDir, name)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "manifest_unreadable"})
		}
		var cached []cache.Entry
		if b := browsers[name]; b != nil {
			if cached, err = b.CachedEntries(); err != nil {
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "cache_unreadable"})
			}
		}
		return c.JSON(fiber.Map{
			"catalog":    name,
			"updated_at": manifest.UpdatedAt,
			"records":    manifest.Records,
			"failed":     manifest.Failed(),
			"cached":     len(cached),
		})
	})
}

type catalogPayload struct {
	Name        string `json:"name"`
	Kind        string `json:"kind"`
	BaseURL     string `json:"base_url"`
	Limit       int    `json:"limit"`
	CacheDir    string `json:"cache_dir"`
	Concurrency int    `json:"max_concurrent_fetches"`
	AuthMode    string `json:"auth_mode"`
	Proxied     bool   `json:"proxied"`
}

type kindPayload struct {
	Key              string `json:"key"`
	Description      string `json:"description"`
	ListingType      string `json:"listing_type"`
	ThumbnailSegment string `json:"thumbnail_segment"`
}

func encodeCatalogs(routes []server.CatalogRoute) []catalogPayload {
	result := make([]catalogPayload, 0, len(routes))
	for _, route := range routes {
		result = append(result, catalogPayload{
			Name:        route.Config.Name,
			Kind:        route.Kind.Key,
			BaseURL:     route.BaseURL.String(),
			Limit:       route.Config.Limit,
			CacheDir:    route.CacheDir,
			Concurrency: route.Concurrency,
			AuthMode:    route.Config.AuthMode(),
			Proxied:     route.ProxyURL != nil,
		})
	}
	return result
}

func encodeKinds(kinds []assetkind.Metadata) []kindPayload {
	result := make([]kindPayload, 0, len(kinds))
	for _, meta := range kinds {
		result = append(result, kindPayload{
			Key:              meta.Key,
			Description:      meta.Description,
			ListingType:      meta.ListingType,
			ThumbnailSegment: meta.ThumbnailSegment,
		})
	}
	return result
}
