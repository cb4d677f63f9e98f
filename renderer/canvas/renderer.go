package canvasrenderer

import (
	"bytes"
	"fmt"
	"image/color"
	"image/png"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/pdf"
	"github.com/tdewolff/canvas/renderers/rasterizer"
	"github.com/tdewolff/canvas/renderers/svg"

	"github.com/ByLCY/chartlabel/fonts"
	"github.com/ByLCY/chartlabel/layout"
	"github.com/ByLCY/chartlabel/renderer"
)

// 支持的输出格式。
const (
	FormatPDF = "pdf"
	FormatSVG = "svg"
	FormatPNG = "png"
)

// Renderer draws layout results via github.com/tdewolff/canvas and doubles as the
// text measurer used during layout, so wrapping and painting share the same font metrics.
type Renderer struct {
	renderer.FontSet

	baseDir string
	format  string
	scale   float64

	fontMu       sync.Mutex
	fontFamilies map[string]*fontFamilyEntry
}

var (
	_ renderer.Backend     = (*Renderer)(nil)
	_ layout.FontRegistrar = (*Renderer)(nil)
)

type fontFamilyEntry struct {
	family *canvas.FontFamily
	style  canvas.FontStyle
}

// Options configures the canvas renderer.
type Options struct {
	BaseDir string  // 相对字体路径的解析目录
	Format  string  // pdf（默认）| svg | png
	Scale   float64 // png 输出时每 px 对应的像素数，<=0 时为 1
}

// NewRenderer creates a PDF renderer rooted at baseDir for resolving font files.
func NewRenderer(baseDir string) *Renderer { return NewRendererWithOptions(Options{BaseDir: baseDir}) }

// NewRendererWithOptions creates a renderer with the given output format.
func NewRendererWithOptions(opts Options) *Renderer {
	format := strings.ToLower(strings.TrimPrefix(opts.Format, "."))
	if format == "" {
		format = FormatPDF
	}
	scale := opts.Scale
	if scale <= 0 {
		scale = 1
	}
	return &Renderer{
		baseDir:      opts.BaseDir,
		format:       format,
		scale:        scale,
		fontFamilies: map[string]*fontFamilyEntry{},
	}
}

// Measure 实现 layout.Measurer：fontSize 与返回宽度均为 px。
// 字体系统使用 pt 建立字体面、以 mm 返回宽度，换算只在这里发生。
func (r *Renderer) Measure(text string, font layout.FontSpec, fontSize float64) (float64, error) {
	face, err := r.fontFace(font, fontSize, layout.Color{})
	if err != nil {
		return 0, err
	}
	return face.TextWidth(text) * layout.MmToPx, nil
}

// Render renders the result into PDF, SVG or PNG bytes depending on the configured format.
func (r *Renderer) Render(result *layout.Result) ([]byte, error) {
	if result == nil {
		return nil, fmt.Errorf("渲染结果为空")
	}
	scene := result.Canvas
	if scene.Width <= 0 || scene.Height <= 0 {
		return nil, fmt.Errorf("画布尺寸无效: %gx%g", scene.Width, scene.Height)
	}

	width, height := mm(scene.Width), mm(scene.Height)
	c := canvas.New(width, height)
	ctx := canvas.NewContext(c)
	ctx.SetCoordSystem(canvas.CartesianIV) // 使坐标与布局保持左上角为原点
	if err := r.drawCanvas(ctx, scene); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	switch r.format {
	case FormatPDF:
		writer := pdf.New(&buf, width, height, nil)
		applyMeta(writer, result.Meta)
		c.RenderTo(writer)
		if err := writer.Close(); err != nil {
			return nil, fmt.Errorf("写入 PDF 失败: %w", err)
		}
	case FormatSVG:
		writer := svg.New(&buf, width, height, nil)
		c.RenderTo(writer)
		if err := writer.Close(); err != nil {
			return nil, fmt.Errorf("写入 SVG 失败: %w", err)
		}
	case FormatPNG:
		img := rasterizer.Draw(c, canvas.DPMM(r.scale*layout.MmToPx), canvas.DefaultColorSpace)
		if err := png.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("写入 PNG 失败: %w", err)
		}
	default:
		return nil, fmt.Errorf("canvas 后端不支持输出格式 %s", r.format)
	}
	return buf.Bytes(), nil
}

func applyMeta(writer *pdf.PDF, meta layout.DocumentMeta) {
	keywords := strings.Join(meta.Keywords, ", ")
	writer.SetInfo(meta.Title, meta.Subject, keywords, meta.Author, meta.Creator)
}

func (r *Renderer) drawCanvas(ctx *canvas.Context, scene layout.Canvas) error {
	if scene.Background != nil {
		ctx.Push()
		ctx.SetFillColor(colorFromLayout(*scene.Background))
		ctx.SetStrokeColor(transparent)
		ctx.DrawPath(0, 0, canvas.Rectangle(mm(scene.Width), mm(scene.Height)))
		ctx.Pop()
	}
	// 图元先于文本绘制，文本始终位于最上层
	for _, rc := range scene.Rects {
		drawRect(ctx, rc)
	}
	for _, a := range scene.Arcs {
		drawArc(ctx, a)
	}
	for _, p := range scene.Paths {
		drawPath(ctx, p, scene.Height)
	}
	for _, ln := range scene.Lines {
		drawLine(ctx, ln)
	}
	for _, tb := range scene.Texts {
		if err := r.drawTextBox(ctx, tb); err != nil {
			return err
		}
	}
	return nil
}

// drawTextBox 逐行绘制已折好的文本：第 i 行顶部位于 Y + i*LineHeight，不做任何折行决策。
func (r *Renderer) drawTextBox(ctx *canvas.Context, tb layout.TextBox) error {
	if len(tb.Lines) == 0 {
		return nil
	}
	face, err := r.fontFace(tb.FontSpec, tb.FontSize, tb.Color)
	if err != nil {
		return fmt.Errorf("绘制文本失败（字体 %s）: %w", tb.Font, err)
	}
	ascent := face.Metrics().Ascent

	boxWidth := tb.Width
	if boxWidth <= 0 {
		boxWidth = tb.Measured
	}
	textAlign := canvas.Left
	anchorX := tb.X
	switch tb.Align {
	case "center":
		textAlign = canvas.Center
		anchorX = tb.X + boxWidth/2
	case "right":
		textAlign = canvas.Right
		anchorX = tb.X + boxWidth
	}

	ctx.Push()
	defer ctx.Pop()
	for i, line := range tb.Lines {
		if line.Content == "" {
			continue
		}
		top := tb.Y + float64(i)*tb.LineHeight
		ctx.DrawText(mm(anchorX), mm(top)+ascent, canvas.NewTextLine(face, line.Content, textAlign))
	}
	return nil
}

func drawLine(ctx *canvas.Context, ln layout.Line) {
	ctx.Push()
	defer ctx.Pop()
	ctx.SetStrokeColor(colorFromLayout(ln.Color))
	ctx.SetStrokeWidth(mm(ln.Width))
	if len(ln.Dash) > 0 {
		ctx.SetDashes(0, mmSlice(ln.Dash)...)
	}
	p := &canvas.Path{}
	p.MoveTo(0, 0)
	p.LineTo(mm(ln.X2-ln.X1), mm(ln.Y2-ln.Y1))
	ctx.DrawPath(mm(ln.X1), mm(ln.Y1), p)
}

func drawRect(ctx *canvas.Context, rc layout.Rect) {
	ctx.Push()
	defer ctx.Pop()
	applyFillStroke(ctx, rc.FillColor, rc.StrokeColor, rc.StrokeWidth)
	ctx.DrawPath(mm(rc.X), mm(rc.Y), canvas.Rectangle(mm(rc.Width), mm(rc.Height)))
}

// drawArc 绘制圆弧；有填充色时按扇形闭合到圆心。
func drawArc(ctx *canvas.Context, a layout.Arc) {
	ctx.Push()
	defer ctx.Pop()
	applyFillStroke(ctx, a.FillColor, a.StrokeColor, a.StrokeWidth)
	r := mm(a.R)
	if a.FullCircle() {
		ctx.DrawPath(mm(a.CX), mm(a.CY), canvas.Circle(r))
		return
	}
	theta := a.Start * math.Pi / 180
	p := &canvas.Path{}
	p.MoveTo(r*math.Cos(theta), r*math.Sin(theta))
	p.Arc(r, r, 0, a.Start, a.End)
	if a.FillColor != nil {
		p.LineTo(0, 0)
		p.Close()
	}
	ctx.DrawPath(mm(a.CX), mm(a.CY), p)
}

// drawPath 绘制含缺口的折线：每段连续数据单独描边，FitGaps 时以虚线连接缺口两侧。
func drawPath(ctx *canvas.Context, lp layout.Path, canvasHeight float64) {
	baseline := lp.Baseline
	if baseline <= 0 {
		baseline = canvasHeight
	}
	if lp.FillColor != nil {
		ctx.Push()
		ctx.SetFillColor(colorFromLayout(*lp.FillColor))
		ctx.SetStrokeColor(transparent)
		for _, seg := range lp.Segments {
			area := &canvas.Path{}
			area.MoveTo(mm(seg[0].X), mm(baseline))
			for _, pt := range seg {
				area.LineTo(mm(pt.X), mm(pt.Y))
			}
			area.LineTo(mm(seg[len(seg)-1].X), mm(baseline))
			area.Close()
			ctx.DrawPath(0, 0, area)
		}
		ctx.Pop()
	}

	ctx.Push()
	defer ctx.Pop()
	ctx.SetFillColor(transparent)
	ctx.SetStrokeColor(colorFromLayout(lp.StrokeColor))
	ctx.SetStrokeWidth(mm(lp.StrokeWidth))
	ctx.SetStrokeJoiner(canvas.RoundJoin)
	for _, seg := range lp.Segments {
		if len(seg) < 2 {
			ctx.DrawPath(mm(seg[0].X), mm(seg[0].Y), canvas.Circle(mm(lp.StrokeWidth)))
			continue
		}
		ctx.DrawPath(0, 0, polyline(seg))
	}
	if lp.FitGaps {
		dash := mm(lp.StrokeWidth * 3)
		ctx.SetDashes(0, dash, dash)
		for _, b := range layout.GapBridges(lp.Segments) {
			ctx.DrawPath(0, 0, polyline(b[:]))
		}
	}
}

func polyline(points []layout.Point) *canvas.Path {
	p := &canvas.Path{}
	for i, pt := range points {
		if i == 0 {
			p.MoveTo(mm(pt.X), mm(pt.Y))
			continue
		}
		p.LineTo(mm(pt.X), mm(pt.Y))
	}
	return p
}

func applyFillStroke(ctx *canvas.Context, fill, stroke *layout.Color, strokeWidth float64) {
	if fill != nil {
		ctx.SetFillColor(colorFromLayout(*fill))
	} else {
		ctx.SetFillColor(transparent)
	}
	if stroke != nil {
		ctx.SetStrokeColor(colorFromLayout(*stroke))
		ctx.SetStrokeWidth(mm(strokeWidth))
	} else {
		ctx.SetStrokeColor(transparent)
		ctx.SetStrokeWidth(0)
	}
}

func (r *Renderer) fontFace(spec layout.FontSpec, sizePx float64, col layout.Color) (*canvas.FontFace, error) {
	family, style, err := r.ensureFontFamily(r.Resolve(spec.Family), spec)
	if err != nil {
		return nil, err
	}
	variant := canvas.FontNormal
	if spec.IsSmallCaps() {
		variant = canvas.FontSmallcaps
	}
	size := layout.Length{Value: sizePx, Unit: layout.UnitPX}.To(layout.UnitPT)
	return family.Face(size, colorFromLayout(col), style, variant), nil
}

// ensureFontFamily 按 名称|字体源|字形 缓存字体族；主字体源加载失败时改用备用字体。
func (r *Renderer) ensureFontFamily(font layout.FontResource, spec layout.FontSpec) (*canvas.FontFamily, canvas.FontStyle, error) {
	style := fontStyle(spec)
	src := font.SourceFor(spec)
	key := fmt.Sprintf("%s|%s|%d", font.Name, src, style)

	r.fontMu.Lock()
	defer r.fontMu.Unlock()
	if entry, ok := r.fontFamilies[key]; ok {
		return entry.family, entry.style, nil
	}

	family, err := r.loadFamily(font.Name, src, style)
	if err != nil {
		fallback, fbErr := r.loadFamily(font.Name, renderer.FallbackSrc(font), style)
		if fbErr != nil {
			return nil, canvas.FontRegular, fmt.Errorf("加载字体 %s 失败: %w", font.Name, err)
		}
		family = fallback
	}
	r.fontFamilies[key] = &fontFamilyEntry{family: family, style: style}
	return family, style, nil
}

func (r *Renderer) loadFamily(name, src string, style canvas.FontStyle) (*canvas.FontFamily, error) {
	data, err := fonts.Read(src, r.baseDir)
	if err != nil {
		return nil, err
	}
	family := canvas.NewFontFamily(name)
	if err := family.LoadFont(data, 0, style); err != nil {
		return nil, fmt.Errorf("解析字体 %s 失败: %w", src, err)
	}
	return family, nil
}

// fontStyle 将 FontSpec 的字重与字形映射为 canvas.FontStyle。
func fontStyle(spec layout.FontSpec) canvas.FontStyle {
	result := canvas.FontRegular
	w := strings.ToLower(strings.TrimSpace(spec.Weight))
	n, err := strconv.Atoi(w)
	switch {
	case err == nil && n >= 900:
		result = canvas.FontBlack
	case err == nil && n >= 800:
		result = canvas.FontExtraBold
	case w == "bold" || w == "bolder" || (err == nil && n >= 700):
		result = canvas.FontBold
	case err == nil && n >= 600:
		result = canvas.FontSemiBold
	case err == nil && n >= 500:
		result = canvas.FontMedium
	case w == "lighter" || (err == nil && n > 0 && n <= 300):
		result = canvas.FontLight
	}
	if spec.IsItalic() {
		result |= canvas.FontItalic
	}
	return result
}

var transparent = color.RGBA{}

func colorFromLayout(c layout.Color) color.Color {
	return canvas.RGBA(float64(c.R)/255.0, float64(c.G)/255.0, float64(c.B)/255.0, c.Alpha())
}

// mm 将 px 转换为 canvas 使用的毫米。
func mm(px float64) float64 { return layout.Length{Value: px, Unit: layout.UnitPX}.To(layout.UnitMM) }

func mmSlice(px []float64) []float64 {
	out := make([]float64, len(px))
	for i, v := range px {
		out[i] = mm(v)
	}
	return out
}
