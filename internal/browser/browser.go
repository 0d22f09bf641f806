// Package browser is the data side of the asset browser windows: it turns a
// catalog listing plus the thumbnail cache into tiles with resolved local
// paths, and forwards the user's selection to a callback. Rendering the
// window itself belongs to the host application.
package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/rprusd/thumbhub/internal/assetkind"
	"github.com/rprusd/thumbhub/internal/cache"
	"github.com/rprusd/thumbhub/internal/catalog"
	"github.com/rprusd/thumbhub/internal/logging"
	"github.com/rprusd/thumbhub/internal/thumbnail"
)

// ErrUnknownRecord 表示选中的 id 既不在最近一次列表中，也无法从目录查询到。
var ErrUnknownRecord = errors.New("unknown record")

// ErrSelectHandler 包装选择回调返回的错误。
var ErrSelectHandler = errors.New("select handler failed")

// Selection 是传递给选择回调的内容。
type Selection struct {
	Catalog string `json:"catalog"`
	ID      string `json:"id"`
	Name    string `json:"name"`
	// MaterialXName 仅材质类型填充。
	MaterialXName string `json:"mtlx_material_name,omitempty"`
}

// SelectFunc 在用户选中某个图标后被调用。
type SelectFunc func(ctx context.Context, sel Selection) error

// Tile 是网格中的一个图标。Placeholder 为 true 时缩略图不可用，UI 应绘制占位图。
type Tile struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Path        string `json:"path,omitempty"`
	Placeholder bool   `json:"placeholder"`
	CacheHit    bool   `json:"cache_hit"`
	Row         int    `json:"row"`
	Col         int    `json:"col"`
	Error       string `json:"error,omitempty"`
}

// Summary 汇总一次加载的下载情况。
type Summary struct {
	Total   int `json:"total"`
	Hits    int `json:"hits"`
	Fetched int `json:"fetched"`
	Failed  int `json:"failed"`
}

// View 是一次加载的完整结果。
type View struct {
	Catalog string  `json:"catalog"`
	Kind    string  `json:"kind"`
	Layout  Layout  `json:"layout"`
	Tiles   []Tile  `json:"tiles"`
	Summary Summary `json:"summary"`
}

// Options 配置一个 Browser。
type Options struct {
	Name        string
	Kind        assetkind.Metadata
	Limit       int
	ListingType string
	Layout      Layout
	OnSelect    SelectFunc
}

// Browser 绑定一个目录、它的缩略图缓存以及选择回调。
type Browser struct {
	catalog *catalog.Client
	fetcher *thumbnail.Fetcher
	logger  *logrus.Logger
	opts    Options

	mu   sync.RWMutex
	last map[string]catalog.Record
}

// New 构建 Browser。
func New(client *catalog.Client, fetcher *thumbnail.Fetcher, logger *logrus.Logger, opts Options) (*Browser, error) {
	if client == nil || fetcher == nil {
		return nil, errors.New("catalog client and fetcher are required")
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}
	if opts.Layout.IconSize <= 0 {
		opts.Layout = DefaultLayout()
	}
	return &Browser{
		catalog: client,
		fetcher: fetcher,
		logger:  logger,
		opts:    opts,
		last:    make(map[string]catalog.Record),
	}, nil
}

// Name 返回目录名称。
func (b *Browser) Name() string {
	return b.opts.Name
}

// Kind 返回资产类型元数据。
func (b *Browser) Kind() assetkind.Metadata {
	return b.opts.Kind
}

// CacheDir 返回缩略图缓存目录。
func (b *Browser) CacheDir() string {
	return b.fetcher.Store().Dir()
}

// SetSelectHandler 替换选择回调，nil 表示只记录日志。
func (b *Browser) SetSelectHandler(fn SelectFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.opts.OnSelect = fn
}

// Load 拉取目录列表（每次都重新请求）、补齐缺失的缩略图，并按网格顺序返回图标。
// limit <= 0 时使用配置的页大小。
func (b *Browser) Load(ctx context.Context, limit int) (*View, error) {
	if limit <= 0 {
		limit = b.opts.Limit
	}

	records, err := b.catalog.List(ctx, catalog.ListOptions{Limit: limit, Type: b.opts.ListingType})
	if err != nil {
		return nil, fmt.Errorf("list catalog %s: %w", b.opts.Name, err)
	}
	records = catalog.Unique(records)
	b.remember(records)

	view := &View{
		Catalog: b.opts.Name,
		Kind:    b.opts.Kind.Key,
		Layout:  b.opts.Layout,
		Tiles:   make([]Tile, 0, len(records)),
	}
	if len(records) == 0 {
		return view, nil
	}

	report, err := b.fetcher.Ensure(ctx, records)
	if err != nil {
		return nil, err
	}

	for i, res := range report.Results {
		row, col := b.opts.Layout.Position(i)
		tile := Tile{
			ID:       res.Record.ID,
			Name:     res.Record.Name,
			CacheHit: res.CacheHit,
			Row:      row,
			Col:      col,
		}
		if res.OK() {
			tile.Path = res.Path
		} else {
			tile.Placeholder = true
			if res.Err != nil {
				tile.Error = res.Err.Error()
			}
		}
		view.Tiles = append(view.Tiles, tile)
	}
	view.Summary = Summary{
		Total:   len(report.Results),
		Hits:    report.Hits(),
		Fetched: report.Fetched(),
		Failed:  len(report.Failed()),
	}

	fields := logging.CatalogFields(b.opts.Name, b.opts.Kind.Key, b.CacheDir())
	fields["action"] = "browser_load"
	fields["total"] = view.Summary.Total
	fields["hits"] = view.Summary.Hits
	fields["fetched"] = view.Summary.Fetched
	fields["failed"] = view.Summary.Failed
	b.logger.WithFields(fields).Info("browser loaded")
	return view, nil
}

// Thumbnail 返回 id 的本地缩略图路径，未缓存时单独下载一次。
func (b *Browser) Thumbnail(ctx context.Context, id string) (string, error) {
	res, err := b.ensureOne(ctx, id)
	if err != nil {
		return "", err
	}
	return res.Path, nil
}

// OpenThumbnail 保证缩略图已缓存，并返回可流式读取的缓存条目，调用方负责关闭 Reader。
func (b *Browser) OpenThumbnail(ctx context.Context, id string) (*cache.ReadResult, error) {
	if _, err := b.ensureOne(ctx, id); err != nil {
		return nil, err
	}
	return b.fetcher.Store().Open(id)
}

// CachedEntries 列出缓存目录中已有的缩略图。
func (b *Browser) CachedEntries() ([]cache.Entry, error) {
	return b.fetcher.Store().List()
}

// ensureOne 下载单个 id。只有最近一次列表中出现过的 id 会写入清单，
// 其它 id 只落盘缩略图，避免任意请求撑大清单。
func (b *Browser) ensureOne(ctx context.Context, id string) (thumbnail.Result, error) {
	rec, known := b.lookupKnown(id)
	ensure := b.fetcher.Ensure
	if !known {
		rec = catalog.Record{ID: id}
		ensure = b.fetcher.EnsureTransient
	}
	report, err := ensure(ctx, []catalog.Record{rec})
	if err != nil {
		return thumbnail.Result{}, err
	}
	res := report.Results[0]
	if !res.OK() {
		return res, res.Err
	}
	return res, nil
}

// Icon 返回缩放到 size 的 PNG 图标。
func (b *Browser) Icon(ctx context.Context, id string, size uint) ([]byte, error) {
	path, err := b.Thumbnail(ctx, id)
	if err != nil {
		return nil, err
	}
	return RenderIcon(path, size)
}

// Select 解析选中的记录并调用选择回调。记录优先取自最近一次列表，
// 否则回源查询；材质类型会额外解析 mtlx_material_name。
func (b *Browser) Select(ctx context.Context, id string) (Selection, error) {
	rec, ok := b.lookupKnown(id)
	if !ok || (b.opts.Kind.ResolvesMaterialX && rec.MtlxMaterialName == "") {
		fetched, err := b.catalog.Lookup(ctx, id)
		if err != nil {
			if errors.Is(err, catalog.ErrNotFound) {
				return Selection{}, fmt.Errorf("%w: %s", ErrUnknownRecord, id)
			}
			return Selection{}, err
		}
		if rec.Name == "" {
			rec.Name = fetched.Name
		}
		rec.ID = id
		rec.MtlxMaterialName = fetched.MtlxMaterialName
	}

	sel := Selection{Catalog: b.opts.Name, ID: rec.ID, Name: rec.Name}
	if b.opts.Kind.ResolvesMaterialX {
		sel.MaterialXName = rec.MtlxMaterialName
	}

	b.mu.RLock()
	handler := b.opts.OnSelect
	b.mu.RUnlock()

	b.logger.WithFields(logrus.Fields{
		"action":   "browser_select",
		"catalog":  sel.Catalog,
		"asset_id": sel.ID,
		"name":     sel.Name,
		"handled":  handler != nil,
	}).Info("asset selected")

	if handler != nil {
		if err := handler(ctx, sel); err != nil {
			return sel, fmt.Errorf("%w: %w", ErrSelectHandler, err)
		}
	}
	return sel, nil
}

func (b *Browser) remember(records []catalog.Record) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.last = make(map[string]catalog.Record, len(records))
	for _, rec := range records {
		b.last[rec.ID] = rec
	}
}

func (b *Browser) lookupKnown(id string) (catalog.Record, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	rec, ok := b.last[id]
	return rec, ok
}
