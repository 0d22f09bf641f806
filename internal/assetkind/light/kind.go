// Package light 注册灯光（HDRI/IES 等）资产类型。
package light

import "github.com/rprusd/thumbhub/internal/assetkind"

// Key 是灯光类型在配置中的取值。
const Key = "light"

func init() {
	assetkind.MustRegister(assetkind.Metadata{
		Key:         Key,
		Description: "Light presets browsed by the light browser window",
		ListingType: "light",
	})
}
