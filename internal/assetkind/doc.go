// Package assetkind 聚合远端目录中可浏览的资产类型（灯光、材质等），并提供统一的注册入口。
//
// 新增类型时需要：
//   1. 在 internal/assetkind/<kind>/ 目录下声明该类型的元数据；
//   2. 在 init() 中通过 MustRegister 注册；
//   3. 在 internal/config/modules.go 中匿名导入该包，使配置校验可以识别。
//
// 该包同时为诊断端提供类型列表查询能力。
package assetkind
