package browser

import "encoding/json"

// Layout 描述浏览窗口的图标网格：图标边长、列数，单元格在图标基础上留出文字与间距。
type Layout struct {
	IconSize int `json:"icon_size"`
	Columns  int `json:"columns"`
}

// DefaultLayout 返回 128px 图标、每行 3 个的网格。
func DefaultLayout() Layout {
	return Layout{IconSize: 128, Columns: 3}
}

// CellWidth 为图标宽度加 10px 间距。
func (l Layout) CellWidth() int {
	return l.IconSize + 10
}

// CellHeight 为图标高度加 30px 标签区域。
func (l Layout) CellHeight() int {
	return l.IconSize + 30
}

// Width 返回整行宽度。
func (l Layout) Width() int {
	return l.columns() * l.CellWidth()
}

// Position 返回第 i 个图标所在的行列（从 0 开始）。
func (l Layout) Position(i int) (row, col int) {
	cols := l.columns()
	return i / cols, i % cols
}

func (l Layout) columns() int {
	if l.Columns <= 0 {
		return 1
	}
	return l.Columns
}

// MarshalJSON 在图标边长与列数之外附带单元格尺寸，UI 无需自行推算网格。
func (l Layout) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		IconSize   int `json:"icon_size"`
		Columns    int `json:"columns"`
		CellWidth  int `json:"cell_width"`
		CellHeight int `json:"cell_height"`
		Width      int `json:"width"`
	}{
		IconSize:   l.IconSize,
		Columns:    l.columns(),
		CellWidth:  l.CellWidth(),
		CellHeight: l.CellHeight(),
		Width:      l.Width(),
	})
}
