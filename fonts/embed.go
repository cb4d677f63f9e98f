package fonts

import (
	"fmt"
	"sort"
	"strings"

	"github.com/go-fonts/latin-modern/lmmono10regular"
	"github.com/go-fonts/latin-modern/lmroman10bold"
	"github.com/go-fonts/latin-modern/lmroman10italic"
	"github.com/go-fonts/latin-modern/lmroman10regular"
	"github.com/go-fonts/latin-modern/lmsans10bold"
	"github.com/go-fonts/latin-modern/lmsans10regular"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"
)

// Default 是未声明字体时使用的内置字体。
const Default = "goregular"

var builtin = map[string][]byte{
	"goregular":      goregular.TTF,
	"gobold":         gobold.TTF,
	"goitalic":       goitalic.TTF,
	"gobolditalic":   gobolditalic.TTF,
	"gomono":         gomono.TTF,
	"lmroman":        lmroman10regular.TTF,
	"lmroman-bold":   lmroman10bold.TTF,
	"lmroman-italic": lmroman10italic.TTF,
	"lmsans":         lmsans10regular.TTF,
	"lmsans-bold":    lmsans10bold.TTF,
	"lmmono":         lmmono10regular.TTF,
}

// IsBuiltin 判断 src 是否指向内置字体（builtin:/built-in:/embed: 前缀）。
func IsBuiltin(src string) bool {
	return strings.HasPrefix(src, "builtin:") || strings.HasPrefix(src, "built-in:") || strings.HasPrefix(src, "embed:")
}

// Load 返回内置字体的字节数据，src 可写为 "builtin:goregular"、"embed:lmroman" 或直接 "gobold"。
func Load(src string) ([]byte, error) {
	name := src
	for _, prefix := range []string{"builtin:", "built-in:", "embed:"} {
		name = strings.TrimPrefix(name, prefix)
	}
	data, ok := builtin[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("读取内置字体 %s 失败: 未知字体", src)
	}
	return data, nil
}

// Names 返回所有内置字体名称（已排序）。
func Names() []string {
	out := make([]string, 0, len(builtin))
	for name := range builtin {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
