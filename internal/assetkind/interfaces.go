package assetkind

import (
	"net/url"
	"strings"
)

// Metadata 记录一种资产类型的静态信息，供配置校验、下载与诊断端使用。
type Metadata struct {
	Key         string
	Description string
	// ListingType 是目录列表接口的 type 查询参数，为空时不附带该参数。
	ListingType string
	// ThumbnailSegment 是缩略图接口在 <base_url>/<id>/ 之后的路径段。
	ThumbnailSegment string
	// FileExt 决定缓存文件名 <id><FileExt>。
	FileExt string
	// ResolvesMaterialX 表示选中后需要额外查询 mtlx_material_name。
	ResolvesMaterialX bool
}

const (
	defaultThumbnailSegment = "thumbnail"
	defaultFileExt          = ".png"
)

// ThumbnailURL 拼接 <base>/<id>/<segment>，id 会按路径段转义。
func (m Metadata) ThumbnailURL(base *url.URL, id string) *url.URL {
	segment := m.ThumbnailSegment
	if segment == "" {
		segment = defaultThumbnailSegment
	}
	return base.JoinPath(url.PathEscape(id), segment)
}

func normalize(meta Metadata) Metadata {
	meta.Key = strings.ToLower(strings.TrimSpace(meta.Key))
	if meta.ThumbnailSegment == "" {
		meta.ThumbnailSegment = defaultThumbnailSegment
	}
	if meta.FileExt == "" {
		meta.FileExt = defaultFileExt
	}
	if !strings.HasPrefix(meta.FileExt, ".") {
		meta.FileExt = "." + meta.FileExt
	}
	return meta
}
