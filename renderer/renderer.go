package renderer

import "github.com/ByLCY/chartlabel/layout"

// Renderer 将布局结果输出为最终文件，例如 PDF、PNG 或终端预览文本。
// Render 返回生成的二进制数据以及可能的错误。
type Renderer interface {
	Render(result *layout.Result) ([]byte, error)
}

// Backend 同时负责测量与绘制：Build 阶段用它测量文本，输出阶段用它绘制同一份布局。
type Backend interface {
	layout.Measurer
	Renderer
}
