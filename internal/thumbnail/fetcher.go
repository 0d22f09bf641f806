package thumbnail

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/rprusd/thumbhub/internal/assetkind"
	"github.com/rprusd/thumbhub/internal/cache"
	"github.com/rprusd/thumbhub/internal/catalog"
	"github.com/rprusd/thumbhub/internal/config"
	"github.com/rprusd/thumbhub/internal/logging"
)

const maxDrainBytes = 4 * 1024

// Options 控制 Fetcher 的下载行为。
type Options struct {
	// Catalog 仅用于日志与清单。
	Catalog string
	BaseURL *url.URL
	Kind    assetkind.Metadata
	// ChunkSize 为流式写入块大小，0 时使用 8 MiB。
	ChunkSize int64
	// Timeout 限制单条下载（含排队后的请求与写盘），0 表示不限制。
	Timeout time.Duration
	// MaxConcurrent 为同时进行的下载数上限，<= 0 时等于待下载数量。
	MaxConcurrent int
	// RateLimit 为每秒发起的请求数上限，0 表示不限速。
	RateLimit float64
	// WriteManifest 为 true 时每次调用结束后更新缓存目录下的清单。
	WriteManifest bool
	Username      string
	Password      string
}

// Fetcher 负责把一组目录记录对应的缩略图落到缓存目录。
type Fetcher struct {
	client  *http.Client
	store   cache.Store
	logger  *logrus.Logger
	opts    Options
	limiter *rate.Limiter

	manifestMu sync.Mutex
}

// NewFetcher 校验依赖并构建 Fetcher。
func NewFetcher(client *http.Client, store cache.Store, logger *logrus.Logger, opts Options) (*Fetcher, error) {
	if client == nil {
		return nil, errors.New("http client is required")
	}
	if store == nil {
		return nil, errors.New("cache store is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}
	if opts.BaseURL == nil || opts.BaseURL.Host == "" {
		return nil, errors.New("thumbnail base url is required")
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = config.DefaultChunkSize
	}

	f := &Fetcher{
		client: client,
		store:  store,
		logger: logger,
		opts:   opts,
	}
	if opts.RateLimit > 0 {
		burst := int(opts.RateLimit)
		if burst < 1 {
			burst = 1
		}
		f.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}
	return f, nil
}

// Store 返回底层缓存。
func (f *Fetcher) Store() cache.Store {
	return f.store
}

// Ensure 保证 records 中每条记录在缓存目录下都有缩略图，只下载缺失的部分。
// 返回的 Report 与 records 顺序一致；单条失败记录在 Report 中，不会作为返回错误。
// 只有前置条件不满足（空列表、重复 id）或缓存目录无法创建时才返回 error。
func (f *Fetcher) Ensure(ctx context.Context, records []catalog.Record) (*Report, error) {
	return f.ensure(ctx, records, f.opts.WriteManifest)
}

// EnsureTransient 与 Ensure 相同，但不写清单，用于目录列表之外的零散 id。
func (f *Fetcher) EnsureTransient(ctx context.Context, records []catalog.Record) (*Report, error) {
	return f.ensure(ctx, records, false)
}

func (f *Fetcher) ensure(ctx context.Context, records []catalog.Record, writeManifest bool) (*Report, error) {
	if len(records) == 0 {
		return nil, ErrNoRecords
	}
	seen := make(map[string]struct{}, len(records))
	for _, rec := range records {
		if _, ok := seen[rec.ID]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateID, rec.ID)
		}
		seen[rec.ID] = struct{}{}
	}

	if err := f.store.Prepare(); err != nil {
		return nil, err
	}

	report := &Report{Catalog: f.opts.Catalog, Results: make([]Result, len(records))}
	var missing []int
	for i, rec := range records {
		res := Result{Record: rec, State: StateNotRequested}
		path, err := f.store.Path(rec.ID)
		if err != nil {
			report.Results[i] = fail(res, err)
			continue
		}
		res.Path = path

		entry, err := f.store.Stat(rec.ID)
		switch {
		case err == nil:
			res.State = StateCached
			res.CacheHit = true
			res.Bytes = entry.SizeBytes
		case errors.Is(err, cache.ErrNotFound):
			missing = append(missing, i)
		default:
			res = fail(res, err)
		}
		report.Results[i] = res
	}

	limit := f.opts.MaxConcurrent
	if limit <= 0 || limit > len(missing) {
		limit = len(missing)
	}

	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}
	for _, idx := range missing {
		report.Results[idx].State = StateInFlight
		res := report.Results[idx]
		g.Go(func() error {
			// 每条记录写入自己的槽位，错误留在 Result 中，不让 errgroup 短路其它下载。
			report.Results[idx] = f.fetch(ctx, res)
			return nil
		})
	}
	_ = g.Wait()

	for _, res := range report.Results {
		f.logResult(res)
	}
	if writeManifest {
		f.saveManifest(report)
	}
	return report, nil
}

func (f *Fetcher) fetch(ctx context.Context, res Result) Result {
	if f.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.opts.Timeout)
		defer cancel()
	}
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return fail(res, err)
		}
	}

	target := f.opts.Kind.ThumbnailURL(f.opts.BaseURL, res.Record.ID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return fail(res, err)
	}
	if f.opts.Username != "" {
		req.SetBasicAuth(f.opts.Username, f.opts.Password)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return fail(res, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrainBytes))
		return fail(res, &StatusError{URL: target.String(), StatusCode: resp.StatusCode})
	}

	// ContentLength 为 -1 时表示上游未声明长度，Store 不做校验并按 ChunkSize 流式写入。
	entry, err := f.store.Put(ctx, res.Record.ID, resp.Body, cache.PutOptions{
		ExpectedSize: resp.ContentLength,
		ChunkSize:    f.opts.ChunkSize,
		ModTime:      extractModTime(resp.Header),
	})
	if err != nil {
		return fail(res, err)
	}

	res.State = StateCached
	res.Path = entry.FilePath
	res.Bytes = entry.SizeBytes
	res.Verified = entry.Verified
	return res
}

func fail(res Result, err error) Result {
	res.State = StateFailed
	res.Err = &RecordError{ID: res.Record.ID, Err: err}
	return res
}

func extractModTime(header http.Header) time.Time {
	raw := header.Get("Last-Modified")
	if raw == "" {
		return time.Time{}
	}
	parsed, err := http.ParseTime(raw)
	if err != nil {
		return time.Time{}
	}
	return parsed.UTC()
}

func (f *Fetcher) logResult(res Result) {
	entry := f.logger.WithFields(logging.FetchFields(f.opts.Catalog, res.Record.ID, string(res.State), res.Bytes, res.Verified))
	entry = entry.WithField("cache_hit", res.CacheHit)
	switch {
	case res.State == StateFailed:
		entry.WithError(res.Err).Warn("thumbnail_fetch_failed")
	case res.CacheHit:
		entry.Debug("thumbnail_cache_hit")
	default:
		entry.Info("thumbnail_fetched")
	}
}

func (f *Fetcher) saveManifest(report *Report) {
	f.manifestMu.Lock()
	defer f.manifestMu.Unlock()

	dir := f.store.Dir()
	manifest, err := cache.LoadManifest(dir, f.opts.Catalog)
	if err != nil {
		f.logger.WithError(err).WithField("cache_dir", dir).Warn("manifest_load_failed")
		manifest = cache.NewManifest(f.opts.Catalog)
	}

	now := time.Now().UTC()
	for _, res := range report.Results {
		if res.Record.ID == "" {
			continue
		}
		rec := cache.ManifestRecord{
			ID:        res.Record.ID,
			Name:      res.Record.Name,
			Status:    cache.StatusCached,
			SizeBytes: res.Bytes,
			Verified:  res.Verified,
			CacheHit:  res.CacheHit,
			UpdatedAt: now,
		}
		if res.State == StateFailed {
			rec.Status = cache.StatusFailed
			rec.Error = res.Err.Error()
		}
		manifest.Record(rec)
	}

	if err := manifest.Save(dir); err != nil {
		f.logger.WithError(err).WithField("cache_dir", dir).Warn("manifest_save_failed")
	}
}
