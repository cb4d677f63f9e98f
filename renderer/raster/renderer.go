// Package raster paints layout results into PNG images with fogleman/gg, measuring text with
// the same truetype faces so wrapped lines match the pixels that are drawn.
package raster

import (
	"bytes"
	"fmt"
	"image/color"
	"math"
	"sync"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"

	"github.com/ByLCY/chartlabel/fonts"
	"github.com/ByLCY/chartlabel/layout"
	"github.com/ByLCY/chartlabel/renderer"
)

// Renderer measures and paints with gg. Faces are not safe for concurrent use, so every
// access goes through mu.
type Renderer struct {
	renderer.FontSet

	baseDir string
	scale   float64

	mu      sync.Mutex
	parsed  map[string]*truetype.Font // by src
	faces   map[faceKey]font.Face
	measure *gg.Context
}

type faceKey struct {
	src  string
	size float64
}

var (
	_ renderer.Backend     = (*Renderer)(nil)
	_ layout.FontRegistrar = (*Renderer)(nil)
)

// New returns a raster renderer. scale is the number of output pixels per scene px.
func New(baseDir string, scale float64) *Renderer {
	if scale <= 0 {
		scale = 1
	}
	return &Renderer{
		baseDir: baseDir,
		scale:   scale,
		parsed:  map[string]*truetype.Font{},
		faces:   map[faceKey]font.Face{},
		measure: gg.NewContext(1, 1),
	}
}

// Measure 实现 layout.Measurer，返回 px 宽度。
func (r *Renderer) Measure(text string, spec layout.FontSpec, fontSize float64) (float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	face, err := r.faceLocked(spec, fontSize)
	if err != nil {
		return 0, err
	}
	r.measure.SetFontFace(face)
	w, _ := r.measure.MeasureString(text)
	return w, nil
}

// Render 输出 PNG 字节。
func (r *Renderer) Render(result *layout.Result) ([]byte, error) {
	if result == nil {
		return nil, fmt.Errorf("渲染结果为空")
	}
	scene := result.Canvas
	if scene.Width <= 0 || scene.Height <= 0 {
		return nil, fmt.Errorf("画布尺寸无效: %gx%g", scene.Width, scene.Height)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	dc := gg.NewContext(int(math.Ceil(scene.Width*r.scale)), int(math.Ceil(scene.Height*r.scale)))
	dc.Scale(r.scale, r.scale)
	if scene.Background != nil {
		dc.SetColor(toColor(*scene.Background))
		dc.Clear()
	}
	for _, rc := range scene.Rects {
		dc.DrawRectangle(rc.X, rc.Y, rc.Width, rc.Height)
		fillStroke(dc, rc.FillColor, rc.StrokeColor, rc.StrokeWidth)
	}
	for _, a := range scene.Arcs {
		drawArc(dc, a)
	}
	for _, p := range scene.Paths {
		drawPath(dc, p, scene.Height)
	}
	for _, ln := range scene.Lines {
		dc.Push()
		dc.SetColor(toColor(ln.Color))
		dc.SetLineWidth(ln.Width)
		dc.SetDash(ln.Dash...)
		dc.DrawLine(ln.X1, ln.Y1, ln.X2, ln.Y2)
		dc.Stroke()
		dc.Pop()
	}
	for _, tb := range scene.Texts {
		if err := r.drawTextBox(dc, tb); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("写入 PNG 失败: %w", err)
	}
	return buf.Bytes(), nil
}

// drawTextBox 第 i 行顶部位于 Y + i*LineHeight，基线再下移字体上升部。
func (r *Renderer) drawTextBox(dc *gg.Context, tb layout.TextBox) error {
	if len(tb.Lines) == 0 {
		return nil
	}
	face, err := r.faceLocked(tb.FontSpec, tb.FontSize)
	if err != nil {
		return fmt.Errorf("绘制文本失败（字体 %s）: %w", tb.Font, err)
	}
	ascent := float64(face.Metrics().Ascent) / 64

	boxWidth := tb.Width
	if boxWidth <= 0 {
		boxWidth = tb.Measured
	}
	x, ax := tb.X, 0.0
	switch tb.Align {
	case "center":
		x, ax = tb.X+boxWidth/2, 0.5
	case "right":
		x, ax = tb.X+boxWidth, 1
	}

	dc.Push()
	defer dc.Pop()
	dc.SetFontFace(face)
	dc.SetColor(toColor(tb.Color))
	for i, line := range tb.Lines {
		top := tb.Y + float64(i)*tb.LineHeight
		dc.DrawStringAnchored(line.Content, x, top+ascent, ax, 0)
	}
	return nil
}

func drawArc(dc *gg.Context, a layout.Arc) {
	dc.Push()
	defer dc.Pop()
	dc.NewSubPath()
	switch {
	case a.FullCircle():
		dc.DrawCircle(a.CX, a.CY, a.R)
	case a.FillColor != nil:
		dc.MoveTo(a.CX, a.CY)
		dc.DrawArc(a.CX, a.CY, a.R, gg.Radians(a.Start), gg.Radians(a.End))
		dc.ClosePath()
	default:
		dc.DrawArc(a.CX, a.CY, a.R, gg.Radians(a.Start), gg.Radians(a.End))
	}
	fillStroke(dc, a.FillColor, a.StrokeColor, a.StrokeWidth)
}

func drawPath(dc *gg.Context, p layout.Path, canvasHeight float64) {
	baseline := p.Baseline
	if baseline <= 0 {
		baseline = canvasHeight
	}
	dc.Push()
	defer dc.Pop()
	if p.FillColor != nil {
		dc.SetColor(toColor(*p.FillColor))
		for _, seg := range p.Segments {
			dc.MoveTo(seg[0].X, baseline)
			for _, pt := range seg {
				dc.LineTo(pt.X, pt.Y)
			}
			dc.LineTo(seg[len(seg)-1].X, baseline)
			dc.ClosePath()
			dc.Fill()
		}
	}

	dc.SetColor(toColor(p.StrokeColor))
	dc.SetLineWidth(p.StrokeWidth)
	dc.SetLineJoin(gg.LineJoinRound)
	for _, seg := range p.Segments {
		if len(seg) == 1 {
			dc.DrawPoint(seg[0].X, seg[0].Y, p.StrokeWidth)
			dc.Fill()
			continue
		}
		dc.MoveTo(seg[0].X, seg[0].Y)
		for _, pt := range seg[1:] {
			dc.LineTo(pt.X, pt.Y)
		}
		dc.Stroke()
	}
	if p.FitGaps {
		dc.SetDash(p.StrokeWidth*3, p.StrokeWidth*3)
		for _, b := range layout.GapBridges(p.Segments) {
			dc.DrawLine(b[0].X, b[0].Y, b[1].X, b[1].Y)
			dc.Stroke()
		}
	}
}

func fillStroke(dc *gg.Context, fill, stroke *layout.Color, width float64) {
	if fill != nil {
		dc.SetColor(toColor(*fill))
		if stroke != nil {
			dc.FillPreserve()
		} else {
			dc.Fill()
		}
	}
	if stroke != nil {
		dc.SetColor(toColor(*stroke))
		dc.SetLineWidth(width)
		dc.Stroke()
	}
	dc.ClearPath()
}

// faceLocked 返回 spec 对应字号（px）的字体面，调用方必须持有 mu。
func (r *Renderer) faceLocked(spec layout.FontSpec, sizePx float64) (font.Face, error) {
	res := r.Resolve(spec.Family)
	src := res.SourceFor(spec)
	f, err := r.parseLocked(src)
	if err != nil {
		fb := renderer.FallbackSrc(res)
		var fbErr error
		if f, fbErr = r.parseLocked(fb); fbErr != nil {
			return nil, fmt.Errorf("加载字体 %s 失败: %w", res.Name, err)
		}
		src = fb
	}
	key := faceKey{src: src, size: sizePx}
	if face, ok := r.faces[key]; ok {
		return face, nil
	}
	// 72 DPI 下 1pt 即 1 像素，字号直接使用 px。
	face := truetype.NewFace(f, &truetype.Options{Size: sizePx, DPI: 72, Hinting: font.HintingNone})
	r.faces[key] = face
	return face, nil
}

func (r *Renderer) parseLocked(src string) (*truetype.Font, error) {
	if f, ok := r.parsed[src]; ok {
		return f, nil
	}
	data, err := fonts.Read(src, r.baseDir)
	if err != nil {
		return nil, err
	}
	f, err := truetype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("解析字体 %s 失败: %w", src, err)
	}
	r.parsed[src] = f
	return f, nil
}

func toColor(c layout.Color) color.Color {
	return color.NRGBA{R: uint8(c.R), G: uint8(c.G), B: uint8(c.B), A: uint8(math.Round(c.Alpha() * 255))}
}
