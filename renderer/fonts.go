package renderer

import (
	"sort"
	"sync"

	"github.com/ByLCY/chartlabel/fonts"
	"github.com/ByLCY/chartlabel/layout"
)

// FontSet 保存 Build 阶段注册的字体资源，各后端据此把 FontSpec.Family 解析为字体源。
// 零值可用，并发安全。
type FontSet struct {
	mu    sync.RWMutex
	fonts map[string]layout.FontResource
}

// RegisterFonts 实现 layout.FontRegistrar，重复注册时同名资源被覆盖。
func (s *FontSet) RegisterFonts(resources map[string]layout.FontResource) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fonts == nil {
		s.fonts = map[string]layout.FontResource{}
	}
	for name, res := range resources {
		s.fonts[name] = res
	}
}

// Resolve 按名称查找字体，找不到时依次回退到 Body、按名称排序的第一个字体、内置默认字体。
func (s *FontSet) Resolve(family string) layout.FontResource {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if font, ok := s.fonts[family]; ok {
		return font
	}
	if font, ok := s.fonts["Body"]; ok {
		return font
	}
	if len(s.fonts) > 0 {
		names := make([]string, 0, len(s.fonts))
		for name := range s.fonts {
			names = append(names, name)
		}
		sort.Strings(names)
		return s.fonts[names[0]]
	}
	name := family
	if name == "" {
		name = "Body"
	}
	return layout.FontResource{Name: name, Src: "builtin:" + fonts.Default}
}

// FallbackSrc 返回字体资源声明的备用字体源，未声明时为内置默认字体。
func FallbackSrc(font layout.FontResource) string {
	if font.Fallback != "" {
		return font.Fallback
	}
	return "builtin:" + fonts.Default
}
