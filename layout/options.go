package layout

// BuildOptions 配置布局阶段所需的依赖，例如测量后端与默认折行策略。
type BuildOptions struct {
	Measurer Measurer
	Wrap     WrapOptions
	Debug    DebugOptions
}

// DebugOptions 控制调试相关输出。
type DebugOptions struct {
	RawUnits bool // 在调试 JSON 中输出 debug.rawUnits 影子字段
}

// Measurer 返回文本在给定字体与字号（px）下的像素宽度。
// 实现方可以缓存字体，但必须保证并发调用安全。
type Measurer interface {
	Measure(text string, font FontSpec, fontSize float64) (float64, error)
}

// MeasureFunc 让普通函数满足 Measurer。
type MeasureFunc func(text string, font FontSpec, fontSize float64) (float64, error)

// Measure implements Measurer.
func (f MeasureFunc) Measure(text string, font FontSpec, fontSize float64) (float64, error) {
	return f(text, font, fontSize)
}

// FontRegistrar 由需要字体数据的测量后端实现，Build 在测量前注册文档中声明的字体。
type FontRegistrar interface {
	RegisterFonts(fonts map[string]FontResource)
}
