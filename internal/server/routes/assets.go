package routes

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/rprusd/thumbhub/internal/browser"
	"github.com/rprusd/thumbhub/internal/cache"
	"github.com/rprusd/thumbhub/internal/catalog"
	"github.com/rprusd/thumbhub/internal/server"
	"github.com/rprusd/thumbhub/internal/thumbnail"
)

// RegisterAssetRoutes 注册 /:catalog/assets 下的列表、缩略图、图标与选择接口。
// browsers 以目录名为键，缺失的目录会返回 catalog_unmapped。
func RegisterAssetRoutes(app *fiber.App, registry *server.CatalogRegistry, browsers map[string]*browser.Browser, logger *logrus.Logger) {
	if app == nil || registry == nil {
		return
	}
	h := &assetHandlers{browsers: browsers, logger: logger}
	mw := server.CatalogMiddleware(registry, logger)

	app.Get("/:catalog/assets", mw, h.list)
	app.Get("/:catalog/assets/:id/thumbnail", mw, h.thumbnail)
	app.Get("/:catalog/assets/:id/icon", mw, h.icon)
	app.Post("/:catalog/assets/:id/select", mw, h.selectAsset)
}

type assetHandlers struct {
	browsers map[string]*browser.Browser
	logger   *logrus.Logger
}

func (h *assetHandlers) list(c fiber.Ctx) error {
	b, ok := h.browserFor(c)
	if !ok {
		return renderUnmapped(c)
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		var err error
		limit, err = strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_limit"})
		}
	}

	view, err := b.Load(requestContext(c), limit)
	if err != nil {
		return h.renderError(c, b, "", err)
	}
	return c.JSON(view)
}

func (h *assetHandlers) thumbnail(c fiber.Ctx) error {
	b, ok := h.browserFor(c)
	if !ok {
		return renderUnmapped(c)
	}
	id := c.Params("id")

	result, err := b.OpenThumbnail(requestContext(c), id)
	if err != nil {
		return h.renderError(c, b, id, err)
	}
	defer result.Reader.Close()

	c.Set(fiber.HeaderContentType, "image/png")
	if result.Entry.SizeBytes > 0 {
		c.Response().Header.SetContentLength(int(result.Entry.SizeBytes))
	}
	c.Status(fiber.StatusOK)

	if _, err := io.Copy(c.Response().BodyWriter(), result.Reader); err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, fmt.Sprintf("read cache failed: %v", err))
	}
	return nil
}

func (h *assetHandlers) icon(c fiber.Ctx) error {
	b, ok := h.browserFor(c)
	if !ok {
		return renderUnmapped(c)
	}
	id := c.Params("id")

	size := uint(browser.DefaultLayout().IconSize)
	if raw := c.Query("size"); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 32)
		if err != nil || parsed == 0 || parsed > browser.MaxIconSize {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_size"})
		}
		size = uint(parsed)
	}

	data, err := b.Icon(requestContext(c), id, size)
	if err != nil {
		return h.renderError(c, b, id, err)
	}
	c.Set(fiber.HeaderContentType, "image/png")
	return c.Send(data)
}

func (h *assetHandlers) selectAsset(c fiber.Ctx) error {
	b, ok := h.browserFor(c)
	if !ok {
		return renderUnmapped(c)
	}
	id := c.Params("id")

	sel, err := b.Select(requestContext(c), id)
	if err != nil {
		return h.renderError(c, b, id, err)
	}
	return c.JSON(sel)
}

func (h *assetHandlers) browserFor(c fiber.Ctx) (*browser.Browser, bool) {
	route, ok := server.RouteFromContext(c)
	if !ok {
		return nil, false
	}
	b := h.browsers[route.Config.Name]
	return b, b != nil
}

func renderUnmapped(c fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "catalog_unmapped"})
}

// renderError 将领域错误映射为 HTTP 状态码，上游故障统一视为 502。
func (h *assetHandlers) renderError(c fiber.Ctx, b *browser.Browser, id string, err error) error {
	status, code := classifyError(err)
	if h.logger != nil {
		h.logger.WithFields(logrus.Fields{
			"action":     "asset_request",
			"catalog":    b.Name(),
			"asset_id":   id,
			"status":     status,
			"request_id": server.RequestID(c),
		}).WithError(err).Warn("asset request failed")
	}
	return c.Status(status).JSON(fiber.Map{"error": code})
}

func classifyError(err error) (int, string) {
	var thumbStatus *thumbnail.StatusError
	var listStatus *catalog.StatusError

	switch {
	case errors.Is(err, cache.ErrInvalidID):
		return fiber.StatusBadRequest, "invalid_id"
	case errors.Is(err, browser.ErrSelectHandler):
		return fiber.StatusInternalServerError, "select_failed"
	case errors.Is(err, browser.ErrUnknownRecord):
		return fiber.StatusNotFound, "asset_not_found"
	case errors.As(err, &thumbStatus) && thumbStatus.StatusCode == fiber.StatusNotFound:
		return fiber.StatusNotFound, "thumbnail_not_found"
	case errors.Is(err, context.DeadlineExceeded):
		return fiber.StatusGatewayTimeout, "upstream_timeout"
	case errors.Is(err, cache.ErrTruncated):
		return fiber.StatusBadGateway, "thumbnail_truncated"
	case errors.As(err, &listStatus):
		return fiber.StatusBadGateway, "catalog_unavailable"
	default:
		return fiber.StatusBadGateway, "upstream_failed"
	}
}

func requestContext(c fiber.Ctx) context.Context {
	ctx := c.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return ctx
}
