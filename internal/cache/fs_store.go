package cache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// chtimes 可在测试中替换。
var chtimes = os.Chtimes

const (
	defaultChunkSize = 32 * 1024
	partialPattern   = ".partial-*"
)

// NewStore 以 dir 为缓存目录构建磁盘缓存，ext 为条目扩展名（如 ".png"）。
// 目录不存在时会被创建，创建失败直接返回错误。
func NewStore(dir, ext string) (Store, error) {
	if dir == "" {
		return nil, errors.New("cache dir required")
	}
	if ext == "" {
		ext = ".png"
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve cache dir: %w", err)
	}

	store := &fileStore{
		dir:   abs,
		ext:   ext,
		locks: make(map[string]*entryLock),
	}
	if err := store.Prepare(); err != nil {
		return nil, err
	}
	return store, nil
}

// fileStore 通过 entryLock 避免同一 id 并发写入。不同 id 写不同文件，互不阻塞。
type fileStore struct {
	dir string
	ext string

	mu    sync.Mutex
	locks map[string]*entryLock
}

type entryLock struct {
	mu   sync.Mutex
	refs int
}

func (s *fileStore) Dir() string {
	return s.dir
}

func (s *fileStore) Prepare() error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	return nil
}

func (s *fileStore) Path(id string) (string, error) {
	if err := validateID(id); err != nil {
		return "", err
	}
	return filepath.Join(s.dir, id+s.ext), nil
}

func (s *fileStore) Stat(id string) (*Entry, error) {
	filePath, err := s.Path(id)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(filePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if info.IsDir() {
		return nil, ErrNotFound
	}

	return &Entry{
		ID:        id,
		FilePath:  filePath,
		SizeBytes: info.Size(),
		ModTime:   info.ModTime(),
	}, nil
}

func (s *fileStore) Open(id string) (*ReadResult, error) {
	entry, err := s.Stat(id)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(entry.FilePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return &ReadResult{
		Entry:  *entry,
		Reader: f,
	}, nil
}

func (s *fileStore) Put(ctx context.Context, id string, body io.Reader, opts PutOptions) (*Entry, error) {
	filePath, err := s.Path(id)
	if err != nil {
		return nil, err
	}

	unlock := s.lockEntry(id)
	defer unlock()

	if err := s.Prepare(); err != nil {
		return nil, err
	}

	tempFile, err := os.CreateTemp(s.dir, partialPattern)
	if err != nil {
		return nil, err
	}
	tempName := tempFile.Name()

	written, err := copyWithContext(ctx, tempFile, body, chunkSize(opts))
	closeErr := tempFile.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tempName)
		if opts.ExpectedSize > 0 && errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, &SizeMismatchError{ID: id, Expected: opts.ExpectedSize, Written: written, Err: err}
		}
		return nil, err
	}

	if opts.ExpectedSize > 0 && written != opts.ExpectedSize {
		os.Remove(tempName)
		return nil, &SizeMismatchError{ID: id, Expected: opts.ExpectedSize, Written: written, Err: io.ErrUnexpectedEOF}
	}

	if err := os.Rename(tempName, filePath); err != nil {
		os.Remove(tempName)
		return nil, err
	}

	entry := Entry{
		ID:        id,
		FilePath:  filePath,
		SizeBytes: written,
		Verified:  opts.ExpectedSize > 0,
	}
	// 正文已落盘，修改时间只是附加信息，设置失败时沿用文件当前时间。
	if !opts.ModTime.IsZero() && chtimes(filePath, opts.ModTime, opts.ModTime) == nil {
		entry.ModTime = opts.ModTime
	} else if info, err := os.Stat(filePath); err == nil {
		entry.ModTime = info.ModTime()
	}
	return &entry, nil
}

func (s *fileStore) List() ([]Entry, error) {
	items, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var entries []Entry
	for _, item := range items {
		name := item.Name()
		if item.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, s.ext) {
			continue
		}
		info, err := item.Info()
		if err != nil {
			continue
		}
		entries = append(entries, Entry{
			ID:        strings.TrimSuffix(name, s.ext),
			FilePath:  filepath.Join(s.dir, name),
			SizeBytes: info.Size(),
			ModTime:   info.ModTime(),
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })
	return entries, nil
}

func (s *fileStore) lockEntry(id string) func() {
	s.mu.Lock()
	lock := s.locks[id]
	if lock == nil {
		lock = &entryLock{}
		s.locks[id] = lock
	}
	lock.refs++
	s.mu.Unlock()

	lock.mu.Lock()
	return func() {
		lock.mu.Unlock()
		s.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(s.locks, id)
		}
		s.mu.Unlock()
	}
}

// validateID 拒绝无法安全映射为单个文件名的 id，隐藏文件前缀留给临时文件与清单。
func validateID(id string) error {
	if id == "" || strings.HasPrefix(id, ".") || strings.ContainsAny(id, `/\`) || strings.ContainsRune(id, 0) {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return nil
}

func chunkSize(opts PutOptions) int64 {
	size := opts.ChunkSize
	if size <= 0 {
		size = defaultChunkSize
	}
	if opts.ExpectedSize > 0 && opts.ExpectedSize < size {
		size = opts.ExpectedSize
	}
	return size
}

func copyWithContext(ctx context.Context, dst io.Writer, src io.Reader, size int64) (int64, error) {
	var copied int64
	buf := make([]byte, size)
	for {
		if err := ctx.Err(); err != nil {
			return copied, err
		}
		n, err := src.Read(buf)
		if n > 0 {
			w, wErr := dst.Write(buf[:n])
			copied += int64(w)
			if wErr != nil {
				return copied, wErr
			}
			if w < n {
				return copied, io.ErrShortWrite
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return copied, nil
			}
			return copied, err
		}
	}
}
