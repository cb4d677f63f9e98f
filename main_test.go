package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ByLCY/chartlabel/config"
	"github.com/ByLCY/chartlabel/layout"
	"github.com/ByLCY/chartlabel/renderer/terminal"
)

const sampleDSL = `doc Sample v1 {
  meta { title: "Sample" }
  canvas 40 10 {
    text width 8 size 1 { "${name} label" }
  }
}`

func TestRunWritesOutputAndDebug(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "sample.chart")
	if err := os.WriteFile(in, []byte(sampleDSL), 0o644); err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(dir, "out", "preview.txt")
	debug := filepath.Join(dir, "debug", "layout.json")

	cfg := config.Default()
	data := map[string]any{"name": "chart"}
	if err := run(in, out, debug, false, data, wrapOptions(cfg), terminal.New()); err != nil {
		t.Fatalf("run 失败: %v", err)
	}
	raw, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("读取输出失败: %v", err)
	}
	if !strings.Contains(string(raw), "chart") || !strings.Contains(string(raw), "label") {
		t.Fatalf("输出缺少折行后的文本: %s", raw)
	}
	if _, err := os.Stat(debug); err != nil {
		t.Fatalf("未生成调试 JSON: %v", err)
	}
}

func TestDemoScene(t *testing.T) {
	out := filepath.Join(t.TempDir(), "demo.txt")
	data := map[string]any{"service": "api"}
	if err := run(filepath.Join("examples", "demo.chart"), out, "", false, data, wrapOptions(config.Default()), terminal.New()); err != nil {
		t.Fatalf("示例场景渲染失败: %v", err)
	}
	raw, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("读取输出失败: %v", err)
	}
	if !strings.Contains(string(raw), "Weekly requests") || !strings.Contains(string(raw), "api") {
		t.Fatalf("示例输出缺少标题或绑定数据: %s", raw)
	}
}

func TestRunErrors(t *testing.T) {
	cfg := config.Default()
	if err := run("missing.chart", "-", "", false, nil, wrapOptions(cfg), nil); err == nil {
		t.Fatalf("renderer 为空时应报错")
	}
	if err := run(filepath.Join(t.TempDir(), "missing.chart"), "-", "", false, nil, wrapOptions(cfg), terminal.New()); err == nil {
		t.Fatalf("DSL 文件不存在时应报错")
	}
}

func TestWrapOne(t *testing.T) {
	cfg := config.Default()
	var buf bytes.Buffer
	if err := wrapOne(&buf, terminal.New(), cfg, "one two three four", 1, 5, 2); err != nil {
		t.Fatalf("wrapOne 失败: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("期望两行加一条截断提示，实际: %q", lines)
	}
	if !strings.HasSuffix(lines[0], "\tone") || !strings.HasSuffix(lines[1], "\ttwo") {
		t.Fatalf("折行结果错误: %q", lines)
	}
	if !strings.Contains(lines[2], "截断") {
		t.Fatalf("缺少截断提示: %q", lines[2])
	}
}

func TestNewBackend(t *testing.T) {
	for name, format := range defaultFormats {
		cfg := config.Default()
		cfg.Backend = name
		cfg.Format = format
		if _, err := newBackend(cfg, "."); err != nil {
			t.Fatalf("%s 后端创建失败: %v", name, err)
		}
	}
	cfg := config.Default()
	cfg.Backend = "raster"
	cfg.Format = "pdf"
	if _, err := newBackend(cfg, "."); err == nil {
		t.Fatalf("raster 后端不应接受 pdf")
	}
	cfg.Backend = "terminal"
	if _, err := newBackend(cfg, "."); err == nil {
		t.Fatalf("terminal 后端不应写入 pdf")
	}
	cfg.Backend = "plotter"
	if _, err := newBackend(cfg, "."); err == nil {
		t.Fatalf("未知后端应报错")
	}
}

func TestResolveOutput(t *testing.T) {
	cases := []struct {
		backend, format, out string
		wantFormat, wantOut  string
	}{
		{"canvas", "", "", "pdf", filepath.Join("output", "demo.pdf")},
		{"raster", "", "", "png", filepath.Join("output", "demo.png")},
		{"terminal", "", "", "txt", filepath.Join("output", "demo.txt")},
		{"terminal", "", "-", "txt", "-"},
		{"canvas", "", "chart.SVG", "svg", "chart.SVG"},
		{"canvas", "png", "chart.pdf", "png", "chart.pdf"},
	}
	for _, c := range cases {
		cfg := config.Default()
		cfg.Backend = c.backend
		cfg.Format = c.format
		out := resolveOutput(cfg, c.out)
		if cfg.Format != c.wantFormat || out != c.wantOut {
			t.Fatalf("%s %q %q: 期望 %s %s，实际 %s %s", c.backend, c.format, c.out, c.wantFormat, c.wantOut, cfg.Format, out)
		}
		if _, err := newBackend(cfg, "."); err != nil {
			t.Fatalf("%s 后端无法使用推断出的格式 %s: %v", c.backend, cfg.Format, err)
		}
	}
}

// TestWrapOneWithRaster -text 模式不产生输出文件，raster 后端不应受输出格式限制。
func TestWrapOneWithRaster(t *testing.T) {
	cfg := config.Default()
	cfg.Backend = "raster"
	r, err := newBackend(cfg, ".")
	if err != nil {
		t.Fatalf("raster 后端创建失败: %v", err)
	}
	// 宽度只够放下较长的一个单词
	maxWidth := 0.0
	for _, word := range []string{"hello", "world"} {
		w, err := r.Measure(word, layout.FontSpec{Family: "Body"}, 12)
		if err != nil {
			t.Fatalf("测量失败: %v", err)
		}
		maxWidth = max(maxWidth, w+1)
	}
	var buf bytes.Buffer
	if err := wrapOne(&buf, r, cfg, "hello world", 12, maxWidth, 0); err != nil {
		t.Fatalf("wrapOne 失败: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 || !strings.HasSuffix(lines[0], "\thello") || !strings.HasSuffix(lines[1], "\tworld") {
		t.Fatalf("折行结果错误: %q", lines)
	}
}
