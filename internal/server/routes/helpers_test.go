package routes

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/rprusd/thumbhub/internal/browser"
	"github.com/rprusd/thumbhub/internal/config"
	"github.com/rprusd/thumbhub/internal/logging"
	"github.com/rprusd/thumbhub/internal/server"
)

// upstream 模拟灯光与材质两个目录接口。
type upstream struct {
	server     *httptest.Server
	thumbHits  atomic.Int32
	pngPayload []byte
}

func newUpstream(t *testing.T) *upstream {
	t.Helper()
	u := &upstream{pngPayload: samplePNG(t, 200, 100)}

	u.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var rest string
		switch {
		case strings.HasPrefix(r.URL.Path, "/api/lights"):
			rest = strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/lights"), "/")
		case strings.HasPrefix(r.URL.Path, "/api/materials"):
			rest = strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/materials"), "/")
		default:
			http.NotFound(w, r)
			return
		}

		switch {
		case rest == "":
			if r.URL.Query().Get("type") == "material" {
				_, _ = w.Write([]byte(`{"results":[{"id":"gold","name":"Gold"},{"id":"oak","name":"Oak"}]}`))
				return
			}
			_, _ = w.Write([]byte(`{"results":[{"id":"studio","name":"Studio"},{"id":"sunset","name":"Sunset"},{"id":"broken","name":"Broken"}]}`))
		case strings.HasSuffix(rest, "/thumbnail"):
			id := strings.TrimSuffix(rest, "/thumbnail")
			if id == "broken" || id == "ghost" {
				http.Error(w, "missing", http.StatusNotFound)
				return
			}
			u.thumbHits.Add(1)
			w.Header().Set("Content-Length", strconv.Itoa(len(u.pngPayload)))
			_, _ = w.Write(u.pngPayload)
		case rest == "gold" || rest == "oak":
			_, _ = w.Write([]byte(`{"id":"` + rest + `","name":"` + rest + `","mtlx_material_name":"M_` + rest + `"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(u.server.Close)
	return u
}

func samplePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

type testEnv struct {
	app      *fiber.App
	cfg      *config.Config
	registry *server.CatalogRegistry
	browsers map[string]*browser.Browser
}

func newTestEnv(t *testing.T, u *upstream) *testEnv {
	t.Helper()
	cfg := &config.Config{
		Global: config.GlobalConfig{
			ListenPort:      5080,
			CacheRoot:       t.TempDir(),
			ChunkSize:       config.DefaultChunkSize,
			FetchTimeout:    config.Duration(5 * time.Second),
			UpstreamTimeout: config.Duration(5 * time.Second),
			WriteManifest:   true,
		},
		Catalogs: []config.CatalogConfig{
			{Name: "lights", Kind: "light", BaseURL: u.server.URL + "/api/lights", Type: "light", Limit: 9},
			{Name: "materials", Kind: "material", BaseURL: u.server.URL + "/api/materials", Type: "material", Limit: 30},
		},
	}

	logger := logging.Discard()
	registry, err := server.NewCatalogRegistry(cfg)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	browsers, err := server.BuildBrowsers(cfg, registry, logger)
	if err != nil {
		t.Fatalf("browsers: %v", err)
	}
	app, err := server.NewApp(server.AppOptions{Logger: logger, Registry: registry, ListenPort: cfg.Global.ListenPort})
	if err != nil {
		t.Fatalf("app: %v", err)
	}
	RegisterCatalogRoutes(app, registry, browsers)
	RegisterAssetRoutes(app, registry, browsers, logger)

	return &testEnv{app: app, cfg: cfg, registry: registry, browsers: browsers}
}
