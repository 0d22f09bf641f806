package cache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"
)

// Store 负责管理单个缓存目录的读写。磁盘布局遵循：
//
//	<dir>/<id><ext>        # 缩略图正文
//	<dir>/.partial-*       # 写入中的临时文件，成功后 rename
//	<dir>/.manifest.json   # 可选的下载状态清单
type Store interface {
	// Dir 返回缓存目录的绝对路径。
	Dir() string

	// Prepare 确保缓存目录存在（幂等）。任何下载开始前都应调用。
	Prepare() error

	// Path 返回 id 对应的条目路径，id 非法时返回 ErrInvalidID。
	Path(id string) (string, error)

	// Stat 返回条目信息；不存在时返回 ErrNotFound。
	Stat(id string) (*Entry, error)

	// Open 返回一个可流式读取的缓存条目。若不存在则返回 ErrNotFound。
	Open(id string) (*ReadResult, error)

	// Put 将 body 写入缓存。opts.ExpectedSize 大于 0 时校验写入字节数，
	// 不一致会删除临时文件并返回 *SizeMismatchError。
	Put(ctx context.Context, id string, body io.Reader, opts PutOptions) (*Entry, error)

	// List 返回目录中所有条目，按 id 排序。
	List() ([]Entry, error)
}

// PutOptions 控制写入过程中的可选属性。
type PutOptions struct {
	// ExpectedSize 为响应声明的长度，<= 0 表示未知，此时不做长度校验。
	ExpectedSize int64
	// ChunkSize 是单次读写的块大小，为 0 时使用 32 KiB。
	ChunkSize int64
	ModTime   time.Time
}

// Entry 表示一个缓存条目，包含绝对文件路径及文件信息。
type Entry struct {
	ID        string    `json:"id"`
	FilePath  string    `json:"file_path"`
	SizeBytes int64     `json:"size_bytes"`
	ModTime   time.Time `json:"mod_time"`
	// Verified 仅在本次写入校验过长度时为 true。
	Verified bool `json:"verified"`
}

// ReadResult 组合 Entry 与正文 Reader，便于 HTTP 层直接流式返回。
type ReadResult struct {
	Entry  Entry
	Reader io.ReadSeekCloser
}

var (
	// ErrNotFound 表示缓存不存在。
	ErrNotFound = errors.New("cache entry not found")
	// ErrInvalidID 表示 id 不能安全地映射为文件名。
	ErrInvalidID = errors.New("invalid asset id")
	// ErrTruncated 表示传输字节数与声明长度不一致。
	ErrTruncated = errors.New("truncated transfer")
)

// SizeMismatchError reports a transfer whose byte count differs from the
// advertised Content-Length. It matches both ErrTruncated and
// io.ErrUnexpectedEOF under errors.Is.
type SizeMismatchError struct {
	ID       string
	Expected int64
	Written  int64
	Err      error
}

func (e *SizeMismatchError) Error() string {
	return fmt.Sprintf("%s: %s: expected %d bytes, wrote %d", ErrTruncated, e.ID, e.Expected, e.Written)
}

func (e *SizeMismatchError) Unwrap() error {
	return e.Err
}

func (e *SizeMismatchError) Is(target error) bool {
	return target == ErrTruncated || target == io.ErrUnexpectedEOF
}
