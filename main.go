package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/ByLCY/chartlabel/config"
	"github.com/ByLCY/chartlabel/dsl"
	"github.com/ByLCY/chartlabel/layout"
	"github.com/ByLCY/chartlabel/renderer"
	canvasrenderer "github.com/ByLCY/chartlabel/renderer/canvas"
	"github.com/ByLCY/chartlabel/renderer/raster"
	"github.com/ByLCY/chartlabel/renderer/terminal"
)

func main() {
	input := flag.String("in", "examples/demo.chart", "DSL 文件路径")
	output := flag.String("out", "", "输出路径，- 表示标准输出；默认 output/demo.<格式>")
	debug := flag.String("debug", "", "布局调试 JSON 输出路径")
	debugRawUnits := flag.Bool("debug-raw-units", false, "在调试 JSON 中输出 debug.rawUnits 影子字段")
	dataJSON := flag.String("data", "", "绑定到 DSL 的 JSON 数据")
	configPath := flag.String("config", "", "TOML 配置文件路径")
	backend := flag.String("backend", "", "渲染后端：canvas | raster | terminal")
	format := flag.String("format", "", "输出格式：pdf | svg | png | txt，默认按 -out 扩展名或后端推断")
	text := flag.String("text", "", "只折行这一段文本并打印结果，不读取 DSL")
	width := flag.Float64("width", 200, "-text 模式下的最大宽度（px），0 表示不折行")
	height := flag.Float64("height", 0, "-text 模式下的最大高度（px），0 表示不限制")
	size := flag.Float64("size", 12, "-text 模式下的字号（px）")
	flag.Parse()

	cfg, err := config.ConfigFromFile(*configPath)
	if err != nil {
		log.Fatalf("读取配置失败: %v", err)
	}
	// 命令行参数优先于配置文件
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "backend":
			cfg.Backend = strings.ToLower(*backend)
		case "format":
			cfg.Format = strings.ToLower(strings.TrimPrefix(*format, "."))
		}
	})
	baseDir := cfg.BaseDir
	if baseDir == "" {
		baseDir = filepath.Dir(*input)
	}

	// -text 只打印折行结果，不产生输出文件
	if *text != "" {
		cfg.Format = ""
		r, err := newBackend(cfg, baseDir)
		if err != nil {
			log.Fatalf("创建渲染后端失败: %v", err)
		}
		if err := wrapOne(os.Stdout, r, cfg, *text, *size, *width, *height); err != nil {
			log.Fatalf("折行失败: %v", err)
		}
		return
	}

	*output = resolveOutput(cfg, *output)
	r, err := newBackend(cfg, baseDir)
	if err != nil {
		log.Fatalf("创建渲染后端失败: %v", err)
	}

	var inputData any
	if *dataJSON != "" {
		if err := json.Unmarshal([]byte(*dataJSON), &inputData); err != nil {
			log.Fatalf("解析 data JSON 失败: %v", err)
		}
	}

	if err := run(*input, *output, *debug, *debugRawUnits, inputData, wrapOptions(cfg), r); err != nil {
		log.Fatalf("生成 %s 失败: %v", cfg.Format, err)
	}
	if *output != "-" {
		fmt.Printf("已生成 %s：%s\n", cfg.Backend, *output)
	}
}

// defaultFormats 是各后端未指定格式时的输出格式。
var defaultFormats = map[string]string{
	"canvas":   canvasrenderer.FormatPDF,
	"raster":   "png",
	"terminal": "txt",
}

// resolveOutput 确定输出格式并返回输出路径。格式依次取自 -format 或配置文件、显式 -out 的扩展名、
// 后端默认格式；未指定 -out 时写入 output/demo.<格式>。
func resolveOutput(cfg *config.Config, out string) string {
	if cfg.Format == "" && out != "" && out != "-" {
		cfg.Format = strings.TrimPrefix(strings.ToLower(filepath.Ext(out)), ".")
	}
	if cfg.Format == "" {
		cfg.Format = defaultFormats[cfg.Backend]
	}
	if out == "" {
		out = filepath.Join("output", "demo."+cfg.Format)
	}
	return out
}

// newBackend 按配置创建渲染后端；cfg.Format 为空表示只用于测量。
func newBackend(cfg *config.Config, baseDir string) (renderer.Backend, error) {
	switch cfg.Backend {
	case "canvas":
		return canvasrenderer.NewRendererWithOptions(canvasrenderer.Options{
			BaseDir: baseDir,
			Format:  cfg.Format,
			Scale:   cfg.Raster.Scale,
		}), nil
	case "raster":
		if cfg.Format != "" && cfg.Format != "png" {
			return nil, fmt.Errorf("raster 后端只支持 png，收到 %s", cfg.Format)
		}
		return raster.New(baseDir, cfg.Raster.Scale), nil
	case "terminal":
		if cfg.Format != "" && cfg.Format != "txt" {
			return nil, fmt.Errorf("terminal 后端只输出文本预览（txt），收到 %s", cfg.Format)
		}
		return terminal.New(), nil
	default:
		return nil, fmt.Errorf("未知的渲染后端：%s", cfg.Backend)
	}
}

func wrapOptions(cfg *config.Config) layout.WrapOptions {
	return layout.WrapOptions{
		WrapAtWord:        cfg.WordWrap(),
		ShouldAddEllipsis: cfg.Wrap.Ellipsis,
		LineHeight:        cfg.Wrap.LineHeight,
	}
}

// wrapOne 用配置中的字体折行单段文本，每行输出 "宽度<TAB>内容"。
func wrapOne(w io.Writer, m layout.Measurer, cfg *config.Config, text string, size, maxWidth, maxHeight float64) error {
	if reg, ok := m.(layout.FontRegistrar); ok {
		reg.RegisterFonts(map[string]layout.FontResource{"Body": {Name: "Body", Src: cfg.Font}})
	}
	res, err := layout.WrapText(m, text, layout.FontSpec{Family: "Body"}, size, maxWidth, maxHeight, wrapOptions(cfg))
	if err != nil {
		return err
	}
	for i, line := range res.Lines {
		fmt.Fprintf(w, "%8.2f\t%s\n", res.LineWidths[i], line)
	}
	if res.Truncated {
		fmt.Fprintf(w, "(超出高度 %g，剩余文本已截断)\n", maxHeight)
	}
	return nil
}

// run 串联解析、布局与渲染。
func run(inputPath, outputPath, debugPath string, debugRawUnits bool, data any, wrap layout.WrapOptions, r renderer.Backend) error {
	if r == nil {
		return fmt.Errorf("renderer 不能为空")
	}
	file, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("无法打开 DSL 文件 %s: %w", inputPath, err)
	}
	defer file.Close()

	doc, err := dsl.Parse(file)
	if err != nil {
		return fmt.Errorf("解析 DSL 失败: %w", err)
	}

	result, err := layout.Build(doc, data, layout.BuildOptions{
		Measurer: r,
		Wrap:     wrap,
		Debug:    layout.DebugOptions{RawUnits: debugRawUnits},
	})
	if err != nil {
		return fmt.Errorf("布局计算失败: %w", err)
	}

	if debugPath != "" {
		if err := writeDebug(result, debugPath); err != nil {
			return err
		}
	}

	out, err := r.Render(result)
	if err != nil {
		return fmt.Errorf("渲染失败: %w", err)
	}
	if outputPath == "-" {
		_, err := os.Stdout.Write(out)
		return err
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return fmt.Errorf("创建输出目录失败: %w", err)
	}
	if err := os.WriteFile(outputPath, out, 0o644); err != nil {
		return fmt.Errorf("写入输出文件失败: %w", err)
	}
	return nil
}

func writeDebug(result *layout.Result, debugPath string) error {
	if err := os.MkdirAll(filepath.Dir(debugPath), 0o755); err != nil {
		return fmt.Errorf("创建调试目录失败: %w", err)
	}
	if err := layout.WriteDebugJSON(result, debugPath); err != nil {
		return fmt.Errorf("输出调试 JSON 失败: %w", err)
	}
	return nil
}
