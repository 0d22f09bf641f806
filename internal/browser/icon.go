package browser

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"os"

	"github.com/nfnt/resize"
)

// MaxIconSize 限制按需缩放的最大边长。
const MaxIconSize = 1024

// RenderIcon 读取缓存中的缩略图并等比缩放到 size x size 以内，输出 PNG。
func RenderIcon(path string, size uint) ([]byte, error) {
	if size == 0 || size > MaxIconSize {
		return nil, fmt.Errorf("icon size must be within 1-%d", MaxIconSize)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("decode thumbnail: %w", err)
	}

	icon := resize.Thumbnail(size, size, img, resize.Lanczos3)

	var buf bytes.Buffer
	if err := png.Encode(&buf, icon); err != nil {
		return nil, fmt.Errorf("encode icon: %w", err)
	}
	return buf.Bytes(), nil
}
