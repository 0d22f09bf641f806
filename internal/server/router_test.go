package server

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v3"

	"github.com/rprusd/thumbhub/internal/logging"
)

func TestNewAppRequiresDependencies(t *testing.T) {
	registry, err := NewCatalogRegistry(testConfig(t))
	if err != nil {
		t.Fatalf("registry error: %v", err)
	}

	if _, err := NewApp(AppOptions{Registry: registry, ListenPort: 5080}); err == nil {
		t.Fatalf("missing logger should fail")
	}
	if _, err := NewApp(AppOptions{Logger: logging.Discard(), ListenPort: 5080}); err == nil {
		t.Fatalf("missing registry should fail")
	}
	if _, err := NewApp(AppOptions{Logger: logging.Discard(), Registry: registry}); err == nil {
		t.Fatalf("missing port should fail")
	}
}

func TestCatalogMiddlewareResolvesRoute(t *testing.T) {
	app := newTestApp(t)

	req := httptest.NewRequest("GET", "/lights/probe", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request error: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Fatalf("request id header missing")
	}

	body, _ := io.ReadAll(resp.Body)
	var payload map[string]string
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload["catalog"] != "lights" || payload["kind"] != "light" {
		t.Fatalf("unexpected payload: %v", payload)
	}
	if payload["request_id"] != resp.Header.Get("X-Request-ID") {
		t.Fatalf("request id mismatch: %v vs %s", payload, resp.Header.Get("X-Request-ID"))
	}
}

func TestCatalogMiddlewareRejectsUnknownCatalog(t *testing.T) {
	app := newTestApp(t)

	req := httptest.NewRequest("GET", "/textures/probe", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request error: %v", err)
	}
	if resp.StatusCode != fiber.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != `{"error":"catalog_unmapped"}` {
		t.Fatalf("unexpected body: %s", body)
	}
}

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	registry, err := NewCatalogRegistry(testConfig(t))
	if err != nil {
		t.Fatalf("registry error: %v", err)
	}
	logger := logging.Discard()
	app, err := NewApp(AppOptions{Logger: logger, Registry: registry, ListenPort: 5080})
	if err != nil {
		t.Fatalf("app error: %v", err)
	}
	app.Get("/:catalog/probe", CatalogMiddleware(registry, logger), func(c fiber.Ctx) error {
		route, ok := RouteFromContext(c)
		if !ok {
			return c.SendStatus(fiber.StatusInternalServerError)
		}
		return c.JSON(fiber.Map{
			"catalog":    route.Config.Name,
			"kind":       route.Kind.Key,
			"request_id": RequestID(c),
		})
	})
	return app
}
