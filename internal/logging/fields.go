package logging

import "github.com/sirupsen/logrus"

// BaseFields 构建 action + 配置路径等基础字段，便于不同入口复用。
func BaseFields(action, configPath string) logrus.Fields {
	return logrus.Fields{
		"action":     action,
		"configPath": configPath,
	}
}

// CatalogFields 提供 catalog/kind/缓存目录字段，供列表与同步日志复用。
func CatalogFields(catalog, kind, cacheDir string) logrus.Fields {
	return logrus.Fields{
		"catalog":   catalog,
		"kind":      kind,
		"cache_dir": cacheDir,
	}
}

// FetchFields 描述单条缩略图下载的结果字段。
func FetchFields(catalog, assetID, state string, bytes int64, verified bool) logrus.Fields {
	return logrus.Fields{
		"action":   "fetch_thumbnail",
		"catalog":  catalog,
		"asset_id": assetID,
		"state":    state,
		"bytes":    bytes,
		"verified": verified,
	}
}
