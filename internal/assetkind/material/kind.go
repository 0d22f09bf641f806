// Package material 注册 MaterialX 材质资产类型，选中时需要解析 mtlx_material_name。
package material

import "github.com/rprusd/thumbhub/internal/assetkind"

// Key 是材质类型在配置中的取值。
const Key = "material"

func init() {
	assetkind.MustRegister(assetkind.Metadata{
		Key:               Key,
		Description:       "MaterialX materials from the material library",
		ListingType:       "material",
		ResolvesMaterialX: true,
	})
}
