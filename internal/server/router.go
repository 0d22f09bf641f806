package server

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// AppOptions controls how the Fiber application should behave on a specific port.
type AppOptions struct {
	Logger     *logrus.Logger
	Registry   *CatalogRegistry
	ListenPort int
}

const (
	contextKeyRoute     = "_thumbhub_route"
	contextKeyRequestID = "_thumbhub_request_id"
)

// NewApp builds a Fiber application with request IDs and panic recovery.
// Catalog-scoped routes attach CatalogMiddleware themselves because route
// parameters are only available once a route has matched.
func NewApp(opts AppOptions) (*fiber.App, error) {
	if opts.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if opts.Registry == nil {
		return nil, errors.New("catalog registry is required")
	}
	if opts.ListenPort <= 0 {
		return nil, fmt.Errorf("invalid listen port: %d", opts.ListenPort)
	}

	app := fiber.New(fiber.Config{
		CaseSensitive: true,
	})

	app.Use(recover.New())
	app.Use(requestIDMiddleware())

	return app, nil
}

// requestIDMiddleware 为每个请求生成请求 ID，并通过 X-Request-ID 返回给调用方。
func requestIDMiddleware() fiber.Handler {
	return func(c fiber.Ctx) error {
		reqID := uuid.NewString()
		c.Locals(contextKeyRequestID, reqID)
		c.Set("X-Request-ID", reqID)
		return c.Next()
	}
}

// CatalogMiddleware 根据 :catalog 路径参数查找 CatalogRoute，未配置时返回 404。
func CatalogMiddleware(registry *CatalogRegistry, logger *logrus.Logger) fiber.Handler {
	return func(c fiber.Ctx) error {
		name := strings.TrimSpace(c.Params("catalog"))
		route, ok := registry.Lookup(name)
		if !ok {
			return renderCatalogUnmapped(c, logger, name)
		}
		c.Locals(contextKeyRoute, route)
		return c.Next()
	}
}

func renderCatalogUnmapped(c fiber.Ctx, logger *logrus.Logger, name string) error {
	if logger != nil {
		logger.WithFields(logrus.Fields{
			"action":     "catalog_lookup",
			"catalog":    name,
			"request_id": RequestID(c),
		}).Warn("catalog unmapped")
	}

	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
		"error": "catalog_unmapped",
	})
}

// RouteFromContext returns the CatalogRoute stored by CatalogMiddleware.
func RouteFromContext(c fiber.Ctx) (*CatalogRoute, bool) {
	if value := c.Locals(contextKeyRoute); value != nil {
		if route, ok := value.(*CatalogRoute); ok {
			return route, true
		}
	}
	return nil, false
}

// RequestID returns the request identifier stored by the router middleware.
func RequestID(c fiber.Ctx) string {
	if value := c.Locals(contextKeyRequestID); value != nil {
		if reqID, ok := value.(string); ok {
			return reqID
		}
	}
	return ""
}
