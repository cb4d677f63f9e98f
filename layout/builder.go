package layout

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/ByLCY/chartlabel/binding"
	"github.com/ByLCY/chartlabel/dsl"
)

const (
	defaultFontSize    = 12.0 // px
	defaultStrokeWidth = 1.0  // px
)

// Build 根据 DSL AST 生成画布上的文本与图元布局结果。文本在这里完成折行，渲染器只负责绘制。
func Build(doc *dsl.Document, data any, opts BuildOptions) (*Result, error) {
	if doc == nil {
		return nil, fmt.Errorf("文档为空")
	}
	if opts.Measurer == nil {
		return nil, fmt.Errorf("layout: 缺少测量后端 Measurer")
	}
	if opts.Wrap == (WrapOptions{}) {
		opts.Wrap = DefaultWrapOptions()
	}

	res, err := collectResources(doc)
	if err != nil {
		return nil, err
	}
	if reg, ok := opts.Measurer.(FontRegistrar); ok {
		reg.RegisterFonts(res.Fonts)
	}

	section := doc.Canvas()
	if section == nil {
		return nil, fmt.Errorf("文档中缺少 canvas 段落")
	}
	canvas, err := buildCanvas(section, res, data, opts)
	if err != nil {
		return nil, err
	}

	return &Result{
		Canvas:    canvas,
		Resources: res,
		Meta:      collectMeta(doc),
	}, nil
}

func buildCanvas(section *dsl.CanvasSection, res ResourceSet, data any, opts BuildOptions) (Canvas, error) {
	width, height, err := section.Spec.Size()
	if err != nil {
		return Canvas{}, err
	}
	canvas := Canvas{Width: width, Height: height}
	params := paramsToMap(section.Spec.Params)
	if v := params["background"]; v != "" {
		c := resolveColor(v, res)
		canvas.Background = &c
	}
	if section.Block == nil {
		return canvas, nil
	}

	for _, stmt := range section.Block.Statements {
		if stmt.Command == nil {
			continue
		}
		if err := processCommand(stmt.Command, &canvas, res, data, opts); err != nil {
			return Canvas{}, err
		}
	}
	return canvas, nil
}

// processCommand 处理 canvas 内的一条绘制命令，未知命令忽略。
func processCommand(cmd *dsl.Command, canvas *Canvas, res ResourceSet, data any, opts BuildOptions) error {
	name := strings.ToLower(cmd.Name)
	switch name {
	case "text":
		tb, err := composeTextBox(cmd, res, data, opts)
		if err != nil {
			return err
		}
		canvas.Texts = append(canvas.Texts, tb)
	case "group":
		// group 仅用于套用样式与组织结构，子命令继承 group 的属性
		if cmd.Block == nil {
			return fmt.Errorf("group 语句缺少子内容")
		}
		styleName, attrs := parseArgs(cmd.Args, true)
		attrs = mergeStyleAttributes(styleName, attrs, res.Styles)
		for _, stmt := range cmd.Block.Statements {
			if stmt.Command == nil {
				continue
			}
			child := inheritArgs(stmt.Command, attrs)
			if err := processCommand(child, canvas, res, data, opts); err != nil {
				return err
			}
		}
	case "line", "rect", "arc", "circle", "path":
		styleName, attrs := parseArgs(cmd.Args, true)
		attrs = mergeStyleAttributes(styleName, attrs, res.Styles)
		switch name {
		case "line":
			if ln, ok := parseLineShape(attrs, res); ok {
				canvas.Lines = append(canvas.Lines, ln)
			}
		case "rect":
			if rc, ok := parseRectShape(attrs, res); ok {
				canvas.Rects = append(canvas.Rects, rc)
			}
		case "arc", "circle":
			if a, ok := parseArcShape(attrs, res); ok {
				canvas.Arcs = append(canvas.Arcs, a)
			}
		case "path":
			p, err := parsePathShape(cmd, attrs, res)
			if err != nil {
				return err
			}
			canvas.Paths = append(canvas.Paths, p)
		}
	}
	return nil
}

// inheritArgs 返回 cmd 的副本，补上父级属性；子命令自身的同名属性覆盖父级。
func inheritArgs(cmd *dsl.Command, parent map[string]string) *dsl.Command {
	if len(parent) == 0 {
		return cmd
	}
	style, own := parseArgs(cmd.Args, true)
	for k, v := range parent {
		if _, ok := own[k]; !ok {
			own[k] = v
		}
	}
	clone := *cmd
	clone.Args = nil
	if style != "" {
		clone.Args = append(clone.Args, cmd.Args[0])
	}
	keys := make([]string, 0, len(own))
	for k := range own {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		clone.Args = append(clone.Args,
			&dsl.Lexeme{Type: "Ident", Value: k, Raw: k},
			&dsl.Lexeme{Type: "String", Value: own[k], Raw: strconv.Quote(own[k])},
		)
	}
	return &clone
}

func composeTextBox(cmd *dsl.Command, res ResourceSet, data any, opts BuildOptions) (TextBox, error) {
	if cmd.Block == nil {
		return TextBox{}, fmt.Errorf("text 语句缺少文本块")
	}
	styleName, attrs := parseArgs(cmd.Args, true)
	attrs = mergeStyleAttributes(styleName, attrs, res.Styles)
	content := extractText(cmd.Block)
	if data != nil {
		content = binding.Interpolate(content, data)
	}

	fontName := attrs["font"]
	if fontName == "" {
		if _, ok := res.Fonts[styleName]; ok {
			fontName = styleName
		}
	}
	if fontName == "" {
		fontName = "Body"
	}
	fontRes, err := resolveFontResource(fontName, res)
	if err != nil {
		return TextBox{}, err
	}
	spec := FontSpec{
		Family:  fontRes.Name,
		Style:   attrs["font-style"],
		Variant: attrs["variant"],
		Weight:  attrs["weight"],
	}

	sizeLen := ParseRawLengthStr(attrs["size"])
	fontSize := sizeLen.ToPX()
	if fontSize <= 0 {
		fontSize = defaultFontSize
	}

	wrapOpts := opts.Wrap
	lhSpec, hasLH := ParseLineHeight(attrs["line-height"])
	if hasLH {
		wrapOpts.LineHeight = lhSpec.Resolve(fontSize) / fontSize
	}
	if v, ok := attrs["ellipsis"]; ok {
		wrapOpts.ShouldAddEllipsis = parseBool(v)
	}

	maxWidth := parseLength(attrs["width"])
	maxHeight := parseLength(attrs["height"])
	wrap := normalizeWrap(attrs["wrap"], wrapOpts.WrapAtWord)
	switch wrap {
	case "word":
		wrapOpts.WrapAtWord = true
	case "anywhere":
		wrapOpts.WrapAtWord = false
	case "none":
		maxWidth = 0
	}

	wrapped, err := WrapText(opts.Measurer, content, spec, fontSize, maxWidth, maxHeight, wrapOpts)
	if err != nil {
		return TextBox{}, fmt.Errorf("text 折行失败（字体 %s）: %w", fontName, err)
	}

	lines := make([]TextLine, len(wrapped.Lines))
	for i, l := range wrapped.Lines {
		lines[i] = TextLine{Content: l, Width: wrapped.LineWidths[i]}
	}
	tb := TextBox{
		Content:    content,
		X:          parseLength(attrs["x"]),
		Y:          parseLength(attrs["y"]),
		Width:      parseLength(attrs["width"]),
		MaxHeight:  maxHeight,
		Height:     wrapped.Height,
		LineHeight: wrapped.LineHeight,
		Font:       fontName,
		FontSpec:   spec,
		FontSize:   fontSize,
		Color:      resolveColor(attrs["color"], res),
		Lines:      lines,
		Measured:   wrapped.Width,
		Wrap:       wrap,
		Ellipsis:   wrapOpts.ShouldAddEllipsis,
		Truncated:  wrapped.Truncated,
	}
	// 应用对齐属性（支持 start/end 别名），默认 left（省略时不写入 JSON）
	switch strings.ToLower(strings.TrimSpace(attrs["align"])) {
	case "left", "start":
		tb.Align = "left"
	case "center", "middle":
		tb.Align = "center"
	case "right", "end":
		tb.Align = "right"
	}
	if opts.Debug.RawUnits {
		tb.Debug = rawUnitsDebug(sizeLen, lhSpec, hasLH, opts.Wrap.LineHeight)
	}
	return tb, nil
}

func rawUnitsDebug(size Length, lh LineHeightSpec, hasLH bool, defaultFactor float64) *TextBoxDebug {
	sizeRaw := RawLengthJSON{Value: defaultFontSize, Unit: "px"}
	if size.Value > 0 {
		unit := UnitToString(size.Unit)
		if unit == "" {
			unit = "px"
		}
		sizeRaw = RawLengthJSON{Value: size.Value, Unit: unit}
	}
	lhRaw := RawLineHeightJSON{Kind: "factor", Factor: defaultFactor}
	if hasLH {
		if lh.Kind == LineHeightFactor {
			lhRaw = RawLineHeightJSON{Kind: "factor", Factor: lh.Factor}
		} else {
			lhRaw = RawLineHeightJSON{Kind: "absolute", Value: lh.Len.Value, Unit: UnitToString(lh.Len.Unit)}
		}
	}
	return &TextBoxDebug{RawUnits: &RawUnits{FontSize: &sizeRaw, LineHeight: &lhRaw}}
}

// normalizeWrap 归一化折行策略：word / anywhere / none。
func normalizeWrap(v string, wordDefault bool) string {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "word", "break-word", "normal":
		return "word"
	case "anywhere", "char", "break-all":
		return "anywhere"
	case "none", "nowrap", "no-wrap":
		return "none"
	default:
		if wordDefault {
			return "word"
		}
		return "anywhere"
	}
}

func resolveFontResource(name string, res ResourceSet) (FontResource, error) {
	if font, ok := res.Fonts[name]; ok {
		return font, nil
	}
	if font, ok := res.Fonts["Body"]; ok {
		return font, nil
	}
	// 按名称排序后取第一个，保证每次构建选择同一字体
	names := make([]string, 0, len(res.Fonts))
	for n := range res.Fonts {
		names = append(names, n)
	}
	if len(names) > 0 {
		sort.Strings(names)
		return res.Fonts[names[0]], nil
	}
	return FontResource{}, fmt.Errorf("字体 %s 未定义，且没有可用的默认字体", name)
}

func parseArgs(args []*dsl.Lexeme, allowStyle bool) (string, map[string]string) {
	result := map[string]string{}
	if len(args) == 0 {
		return "", result
	}

	cursor := 0
	var style string
	// 奇数个参数时首个 Ident 为样式名，例如 text Label x 10 y 20
	if allowStyle && args[0].Type == "Ident" && len(args)%2 == 1 {
		style = args[0].Value
		cursor = 1
	}

	for cursor < len(args)-1 {
		result[args[cursor].Value] = args[cursor+1].Value
		cursor += 2
	}
	return style, result
}

func paramsToMap(params []*dsl.Lexeme) map[string]string {
	_, attrs := parseArgs(params, false)
	return attrs
}

func mergeStyleAttributes(style string, inline map[string]string, styles map[string]Style) map[string]string {
	out := make(map[string]string)
	if style != "" {
		if s, ok := styles[style]; ok {
			for k, v := range s.Props {
				out[k] = v
			}
		}
	}
	for k, v := range inline {
		out[k] = v
	}
	return out
}

func extractText(block *dsl.Block) string {
	if block == nil {
		return ""
	}
	var builder strings.Builder
	for _, stmt := range block.Statements {
		if stmt.Text != nil {
			builder.WriteString(string(stmt.Text.Value))
		}
	}
	return builder.String()
}

// parseLength 解析长度并换算为 px，无单位时按 px 处理。
func parseLength(value string) float64 {
	return ParseRawLengthStr(value).ToPX()
}

func parseBool(value string) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(value))
	return err == nil && b
}

func valueToStringSlice(val *dsl.Value) []string {
	var out []string
	for _, item := range val.Values() {
		if s := item.Text(); s != "" {
			out = append(out, s)
		}
	}
	return out
}
