package layout

import (
	"strconv"
	"strings"
)

// 该文件定义布局结果与资源描述，供布局计算、渲染与调试 JSON 共用。所有坐标单位均为 px。

// Result 保存布局后的画布与资源信息。
type Result struct {
	Canvas    Canvas       `json:"canvas"`
	Resources ResourceSet  `json:"resources"`
	Meta      DocumentMeta `json:"meta"`
}

// ResourceSet 记录解析出的字体、颜色与样式定义。
type ResourceSet struct {
	Fonts  map[string]FontResource `json:"fonts"`
	Colors map[string]Color        `json:"colors"`
	Styles map[string]Style        `json:"styles"`
}

// FontSpec 描述测量与绘制文本所用的字体，调用方构造，布局过程从不修改。
type FontSpec struct {
	Family  string `json:"family"`
	Style   string `json:"style,omitempty"`   // normal / italic / oblique
	Variant string `json:"variant,omitempty"` // normal / small-caps
	Weight  string `json:"weight,omitempty"`  // normal / bold / 100..900
}

// IsBold 判断字重是否按粗体处理（bold、bolder 或数值 >= 600）。
func (f FontSpec) IsBold() bool {
	w := strings.ToLower(strings.TrimSpace(f.Weight))
	switch w {
	case "bold", "bolder":
		return true
	case "", "normal", "lighter":
		return false
	}
	n, err := strconv.Atoi(w)
	return err == nil && n >= 600
}

// IsItalic 判断是否为斜体。
func (f FontSpec) IsItalic() bool {
	s := strings.ToLower(f.Style)
	return s == "italic" || s == "oblique"
}

// IsSmallCaps 判断是否使用小型大写字母变体。
func (f FontSpec) IsSmallCaps() bool {
	return strings.EqualFold(strings.TrimSpace(f.Variant), "small-caps")
}

// FontResource 描述一个字体族的资源，src 可以是文件路径或 builtin:* 形式。
// Bold/Italic/BoldItalic 为空时回退到 Src。
type FontResource struct {
	Name       string `json:"name"`
	Src        string `json:"src"`
	Bold       string `json:"bold,omitempty"`
	Italic     string `json:"italic,omitempty"`
	BoldItalic string `json:"boldItalic,omitempty"`
	Fallback   string `json:"fallback,omitempty"`
}

// SourceFor 返回与 spec 的字重、字形最匹配的字体源。
func (r FontResource) SourceFor(spec FontSpec) string {
	bold, italic := spec.IsBold(), spec.IsItalic()
	switch {
	case bold && italic && r.BoldItalic != "":
		return r.BoldItalic
	case bold && r.Bold != "":
		return r.Bold
	case italic && r.Italic != "":
		return r.Italic
	}
	return r.Src
}

// Color 采用 0-255 的 RGBA 数值，A 为 0 时按不透明处理。
type Color struct {
	R int `json:"r"`
	G int `json:"g"`
	B int `json:"b"`
	A int `json:"a,omitempty"`
}

// Alpha 返回 0-1 的透明度。
func (c Color) Alpha() float64 {
	if c.A <= 0 {
		return 1
	}
	return float64(c.A) / 255.0
}

// Canvas 记录画布尺寸与最终可以直接绘制的图元。
type Canvas struct {
	Width      float64   `json:"width"`
	Height     float64   `json:"height"`
	Background *Color    `json:"background,omitempty"`
	Texts      []TextBox `json:"texts"`
	Lines      []Line    `json:"lines,omitempty"`
	Rects      []Rect    `json:"rects,omitempty"`
	Arcs       []Arc     `json:"arcs,omitempty"`
	Paths      []Path    `json:"paths,omitempty"`
}

// TextBox 表示一个已经折好行的文本块，第 i 行绘制在 Y + i*LineHeight。
type TextBox struct {
	Content    string        `json:"content"`
	X          float64       `json:"x"`
	Y          float64       `json:"y"`
	Width      float64       `json:"width"`     // 约束宽度，0 表示不折行
	MaxHeight  float64       `json:"maxHeight"` // 高度预算，0 表示不限制
	Height     float64       `json:"height"`    // 实际占用高度
	LineHeight float64       `json:"lineHeight"`
	Font       string        `json:"font"`
	FontSpec   FontSpec      `json:"fontSpec"`
	FontSize   float64       `json:"fontSize"`
	Color      Color         `json:"color"`
	Lines      []TextLine    `json:"lines"`
	Measured   float64       `json:"measured"`        // 最宽一行
	Align      string        `json:"align,omitempty"` // left/center/right（默认 left）
	Wrap       string        `json:"wrap,omitempty"`  // word(默认)/anywhere/none
	Ellipsis   bool          `json:"ellipsis,omitempty"`
	Truncated  bool          `json:"truncated,omitempty"`
	Debug      *TextBoxDebug `json:"debug,omitempty"`
}

// TextLine 表示排版后的一行文本内容及其宽度。
type TextLine struct {
	Content string  `json:"content"`
	Width   float64 `json:"width"`
}

// TextBoxDebug holds optional debug info displayed only when enabled by BuildOptions.
type TextBoxDebug struct {
	RawUnits *RawUnits `json:"rawUnits,omitempty"`
}

// RawUnits describes original author-specified units for key fields.
type RawUnits struct {
	FontSize   *RawLengthJSON     `json:"fontSize,omitempty"`
	LineHeight *RawLineHeightJSON `json:"lineHeight,omitempty"`
}

// RawLengthJSON is a JSON-friendly representation of Length.
type RawLengthJSON struct {
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
}

// RawLineHeightJSON is a JSON-friendly representation of LineHeightSpec.
type RawLineHeightJSON struct {
	Kind   string  `json:"kind"` // "factor" | "absolute"
	Factor float64 `json:"factor,omitempty"`
	Value  float64 `json:"value,omitempty"`
	Unit   string  `json:"unit,omitempty"`
}

// 基本图形：直线、矩形、圆弧、折线（单位均为 px）。

// Line 表示一条线段。
type Line struct {
	X1    float64   `json:"x1"`
	Y1    float64   `json:"y1"`
	X2    float64   `json:"x2"`
	Y2    float64   `json:"y2"`
	Color Color     `json:"color"`
	Width float64   `json:"width"` // 线宽，<=0 时由渲染器给默认值
	Dash  []float64 `json:"dash,omitempty"`
}

// Rect 表示一个矩形（不包含圆角）。
type Rect struct {
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Width       float64 `json:"width"`
	Height      float64 `json:"height"`
	StrokeColor *Color  `json:"strokeColor,omitempty"` // 为空表示不描边
	StrokeWidth float64 `json:"strokeWidth"`
	FillColor   *Color  `json:"fillColor,omitempty"` // 为空表示不填充
}

// Arc 表示圆弧，角度单位为度，Start==End 或跨度 >= 360 时为整圆。
type Arc struct {
	CX          float64 `json:"cx"`
	CY          float64 `json:"cy"`
	R           float64 `json:"r"`
	Start       float64 `json:"start"`
	End         float64 `json:"end"`
	StrokeColor *Color  `json:"strokeColor,omitempty"`
	StrokeWidth float64 `json:"strokeWidth"`
	FillColor   *Color  `json:"fillColor,omitempty"`
}

// FullCircle 判断圆弧是否覆盖整圆。
func (a Arc) FullCircle() bool {
	span := a.End - a.Start
	return span == 0 || span >= 360 || span <= -360
}

// Path 表示一条可能含缺口的折线或面积图路径。
type Path struct {
	Points      []Point     `json:"points"`
	Segments    [][]Point   `json:"segments"`
	Clips       []ClipRange `json:"clips,omitempty"`
	StrokeColor Color       `json:"strokeColor"`
	StrokeWidth float64     `json:"strokeWidth"`
	FillColor   *Color      `json:"fillColor,omitempty"` // 非空时按面积图填充到 Baseline
	Baseline    float64     `json:"baseline"`
	FitGaps     bool        `json:"fitGaps,omitempty"` // 用虚线连接缺口两侧
}

// Style 用于描述可继承的文本样式。
type Style struct {
	Name    string            `json:"name"`
	Extends string            `json:"extends,omitempty"`
	Props   map[string]string `json:"props"`
}

// DocumentMeta 保存输出文件的元信息。
type DocumentMeta struct {
	Title    string   `json:"title"`
	Author   string   `json:"author"`
	Subject  string   `json:"subject"`
	Creator  string   `json:"creator"`
	Keywords []string `json:"keywords"`
}
