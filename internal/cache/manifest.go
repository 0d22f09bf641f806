package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// ManifestName 是缓存目录下的状态清单文件名。
const ManifestName = ".manifest.json"

// RecordStatus 描述某条记录最近一次处理后的终态。
type RecordStatus string

const (
	StatusCached RecordStatus = "cached"
	StatusFailed RecordStatus = "failed"
)

// ManifestRecord 记录单个 id 的最近一次下载结果。
type ManifestRecord struct {
	ID        string       `json:"id"`
	Name      string       `json:"name,omitempty"`
	Status    RecordStatus `json:"status"`
	SizeBytes int64        `json:"size_bytes,omitempty"`
	Verified  bool         `json:"verified,omitempty"`
	CacheHit  bool         `json:"cache_hit,omitempty"`
	Error     string       `json:"error,omitempty"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// Manifest 持久化目录内每条记录的下载状态，便于按失败列表重新抓取，
// 而不必重新扫描整个目录。清单只是辅助信息，命中判断仍以文件存在为准。
type Manifest struct {
	mu        sync.Mutex
	Catalog   string                    `json:"catalog"`
	UpdatedAt time.Time                 `json:"updated_at"`
	Records   map[string]ManifestRecord `json:"records"`
}

// NewManifest 返回空清单。
func NewManifest(catalog string) *Manifest {
	return &Manifest{
		Catalog: catalog,
		Records: make(map[string]ManifestRecord),
	}
}

// LoadManifest 读取 dir 下的清单，不存在时返回空清单。
func LoadManifest(dir, catalog string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestName))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return NewManifest(catalog), nil
		}
		return nil, err
	}

	m := NewManifest(catalog)
	if err := json.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	if m.Records == nil {
		m.Records = make(map[string]ManifestRecord)
	}
	return m, nil
}

// Record 写入或覆盖一条记录。
func (m *Manifest) Record(rec ManifestRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now().UTC()
	}
	m.Records[rec.ID] = rec
	if rec.UpdatedAt.After(m.UpdatedAt) {
		m.UpdatedAt = rec.UpdatedAt
	}
}

// Lookup 返回 id 的记录。
func (m *Manifest) Lookup(id string) (ManifestRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.Records[id]
	return rec, ok
}

// Failed 返回状态为 failed 的 id 列表（已排序）。
func (m *Manifest) Failed() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []string
	for id, rec := range m.Records {
		if rec.Status == StatusFailed {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// Save 以临时文件 + rename 的方式写入 dir/.manifest.json。
func (m *Manifest) Save(dir string) error {
	m.mu.Lock()
	data, err := json.MarshalIndent(m, "", "  ")
	m.mu.Unlock()
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".manifest-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	_, err = tmp.Write(data)
	closeErr := tmp.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, filepath.Join(dir, ManifestName)); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
