package assetkind

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

var globalRegistry = newRegistry()

type registry struct {
	mu    sync.RWMutex
	kinds map[string]Metadata
}

func newRegistry() *registry {
	return &registry{kinds: make(map[string]Metadata)}
}

// Register 将类型元数据加入全局注册表，重复键会返回错误。
func Register(meta Metadata) error {
	return globalRegistry.register(meta)
}

// MustRegister 在注册失败时 panic，适合在 init() 中调用。
func MustRegister(meta Metadata) {
	if err := Register(meta); err != nil {
		panic(err)
	}
}

// Resolve 返回指定键的类型元数据，大小写不敏感。
func Resolve(key string) (Metadata, bool) {
	return globalRegistry.resolve(key)
}

// List 返回按键排序的类型元数据列表。
func List() []Metadata {
	return globalRegistry.list()
}

// Keys 返回所有已注册类型的键，供校验提示与诊断使用。
func Keys() []string {
	items := List()
	result := make([]string, len(items))
	for i, meta := range items {
		result[i] = meta.Key
	}
	return result
}

func (r *registry) normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

func (r *registry) register(meta Metadata) error {
	meta = normalize(meta)
	if meta.Key == "" {
		return fmt.Errorf("asset kind key is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.kinds[meta.Key]; exists {
		return fmt.Errorf("asset kind %s already registered", meta.Key)
	}
	r.kinds[meta.Key] = meta
	return nil
}

func (r *registry) resolve(key string) (Metadata, bool) {
	normalized := r.normalizeKey(key)
	if normalized == "" {
		return Metadata{}, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	meta, ok := r.kinds[normalized]
	return meta, ok
}

func (r *registry) list() []Metadata {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.kinds) == 0 {
		return nil
	}

	keys := make([]string, 0, len(r.kinds))
	for key := range r.kinds {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	result := make([]Metadata, 0, len(keys))
	for _, key := range keys {
		result = append(result, r.kinds[key])
	}
	return result
}
