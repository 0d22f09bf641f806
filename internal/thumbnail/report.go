package thumbnail

import (
	"go.uber.org/multierr"

	"github.com/rprusd/thumbhub/internal/catalog"
)

// State 是单条记录在一次调用内的状态。
type State string

const (
	StateNotRequested State = "not_requested"
	StateInFlight     State = "in_flight"
	StateCached       State = "cached"
	StateFailed       State = "failed"
)

// Result 描述单条记录的最终结果。
type Result struct {
	Record catalog.Record
	State  State
	// Path 为 <cache_dir>/<id><ext>；失败的记录也会给出期望路径（id 非法时为空）。
	Path     string
	CacheHit bool
	Bytes    int64
	// Verified 表示本次下载按 Content-Length 校验过长度。
	Verified bool
	Err      error
}

// OK reports whether the record ended up cached.
func (r Result) OK() bool {
	return r.State == StateCached
}

// Report 按输入顺序汇总一次 Ensure 调用的结果。
type Report struct {
	Catalog string
	Results []Result
}

// Hits 返回命中缓存、无需下载的记录数。
func (r *Report) Hits() int {
	n := 0
	for _, res := range r.Results {
		if res.OK() && res.CacheHit {
			n++
		}
	}
	return n
}

// Fetched 返回本次成功下载的记录数。
func (r *Report) Fetched() int {
	n := 0
	for _, res := range r.Results {
		if res.OK() && !res.CacheHit {
			n++
		}
	}
	return n
}

// Failed 返回失败的记录。
func (r *Report) Failed() []Result {
	var failed []Result
	for _, res := range r.Results {
		if res.State == StateFailed {
			failed = append(failed, res)
		}
	}
	return failed
}

// Paths 返回已缓存记录的 id -> 本地路径映射。
func (r *Report) Paths() map[string]string {
	paths := make(map[string]string, len(r.Results))
	for _, res := range r.Results {
		if res.OK() {
			paths[res.Record.ID] = res.Path
		}
	}
	return paths
}

// Err 合并所有失败记录的错误；全部成功时返回 nil。
func (r *Report) Err() error {
	var err error
	for _, res := range r.Failed() {
		err = multierr.Append(err, res.Err)
	}
	return err
}
