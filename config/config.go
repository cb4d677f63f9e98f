package config

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config 是命令行的可选配置文件内容，命令行参数优先于文件。
type Config struct {
	Backend string `toml:"backend"` // canvas | raster | terminal
	Format  string `toml:"format"`  // pdf | svg | png | txt，为空时按输出扩展名或后端推断
	BaseDir string `toml:"base_dir"`
	Font    string `toml:"font"` // -text 模式下使用的字体源
	Wrap    Wrap   `toml:"wrap"`
	Raster  Raster `toml:"raster"`
}

// Wrap 对应 layout.WrapOptions 的默认值。
type Wrap struct {
	Word       *bool   `toml:"word"`
	Ellipsis   bool    `toml:"ellipsis"`
	LineHeight float64 `toml:"line_height"`
}

// Raster 控制位图输出。
type Raster struct {
	Scale float64 `toml:"scale"` // 每 px 对应的输出像素数
}

// Default 返回内置默认配置。
func Default() *Config {
	word := true
	return &Config{
		Backend: "canvas",
		Font:    "builtin:goregular",
		Wrap:    Wrap{Word: &word, LineHeight: 1},
		Raster:  Raster{Scale: 1},
	}
}

// ConfigFromFile 读取 TOML 配置，并用默认值补齐未设置的字段。
func ConfigFromFile(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件 %s 失败: %w", path, err)
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// WordWrap 返回是否按词折行（未配置时为 true）。
func (c *Config) WordWrap() bool {
	return c.Wrap.Word == nil || *c.Wrap.Word
}

func (c *Config) normalize() error {
	c.Backend = strings.ToLower(strings.TrimSpace(c.Backend))
	switch c.Backend {
	case "":
		c.Backend = "canvas"
	case "canvas", "raster", "terminal":
	default:
		return fmt.Errorf("未知的渲染后端：%s", c.Backend)
	}
	c.Format = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(c.Format), "."))
	if c.Wrap.LineHeight <= 0 {
		c.Wrap.LineHeight = 1
	}
	if c.Raster.Scale <= 0 {
		c.Raster.Scale = 1
	}
	if c.Font == "" {
		c.Font = "builtin:goregular"
	}
	return nil
}
