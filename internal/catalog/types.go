package catalog

// Record 是远端目录列表中的一项，以 ID 为唯一标识。
type Record struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	// MtlxMaterialName 仅材质详情接口返回，列表中通常为空。
	MtlxMaterialName string `json:"mtlx_material_name,omitempty"`
}

// listing 对应 GET <base_url>?limit=N&type=T 的响应体。
type listing struct {
	Count   int      `json:"count"`
	Next    string   `json:"next"`
	Results []Record `json:"results"`
}

// ListOptions 控制一次列表请求。
type ListOptions struct {
	Limit int
	Type  string
}

// Unique 按首次出现顺序去重，并丢弃空 ID 的记录。
func Unique(records []Record) []Record {
	seen := make(map[string]struct{}, len(records))
	result := make([]Record, 0, len(records))
	for _, rec := range records {
		if rec.ID == "" {
			continue
		}
		if _, ok := seen[rec.ID]; ok {
			continue
		}
		seen[rec.ID] = struct{}{}
		result = append(result, rec)
	}
	return result
}
