package fonts

import (
	"fmt"
	"os"
	"path/filepath"
)

// Read 返回 src 指向的字体字节：内置字体直接返回，其它按文件路径读取（相对路径基于 baseDir）。
func Read(src, baseDir string) ([]byte, error) {
	if src == "" {
		return nil, fmt.Errorf("字体 src 为空")
	}
	if IsBuiltin(src) {
		return Load(src)
	}
	if _, ok := builtin[src]; ok {
		return Load(src)
	}
	path := src
	if baseDir == "" && !filepath.IsAbs(path) {
		return nil, fmt.Errorf("未指定资源目录时不允许直接使用字体路径：%s（请改用 builtin:）", src)
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(baseDir, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取字体 %s 失败: %w", src, err)
	}
	return data, nil
}
