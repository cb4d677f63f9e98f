package layout

import (
	"sort"
	"strings"
	"unicode"

	"github.com/rivo/uniseg"
)

// Ellipsis 是宽度截断时追加在行尾的省略号。
const Ellipsis = "…"

// heightEpsilon 吸收行高乘法的舍入误差。
const heightEpsilon = 1e-9

// 折行断点字符。
const (
	spaceSeparator = " "
	dashSeparator  = "-"
)

// WrapOptions 控制 WrapText 的折行策略。零值表示按字符精确折行、不加省略号、行高 1 倍字号；
// 需要默认行为时使用 DefaultWrapOptions。
type WrapOptions struct {
	WrapAtWord        bool    // 在空格或连字符处折行，避免拆开单词
	ShouldAddEllipsis bool    // 因宽度截断的行追加省略号
	LineHeight        float64 // 行高倍数（相对字号），<=0 时按 1 处理
}

// DefaultWrapOptions 返回默认选项：按词折行、不加省略号、行高 1 倍字号。
func DefaultWrapOptions() WrapOptions {
	return WrapOptions{WrapAtWord: true, LineHeight: 1}
}

// WrapResult 是一次折行的结果，行序即阅读顺序。
type WrapResult struct {
	Lines      []string  `json:"lines"`
	LineWidths []float64 `json:"lineWidths"`
	Width      float64   `json:"width"`      // 最宽一行的测量宽度（px，含省略号）
	Height     float64   `json:"height"`     // len(Lines) * LineHeight
	LineHeight float64   `json:"lineHeight"` // 每行占用的高度（px）
	Truncated  bool      `json:"truncated"`  // 高度预算耗尽，剩余文本被丢弃
}

// WrapText 将 text 按宽度与高度约束拆成多行。
//
// 每个以换行符分隔的段落独立处理：整段放得下时原样输出；否则对前缀长度（以字素簇计）做二分查找，
// 找到测量宽度（加上省略号宽度）不超过 maxWidth 的最长前缀，再按 opts 回退到词边界。
// maxWidth<=0 时不折行，maxHeight<=0 时不限制高度。测量失败的错误原样返回。
func WrapText(m Measurer, text string, font FontSpec, fontSize, maxWidth, maxHeight float64, opts WrapOptions) (WrapResult, error) {
	w := &wrapper{
		m:         m,
		font:      font,
		fontSize:  fontSize,
		maxWidth:  maxWidth,
		maxHeight: maxHeight,
		opts:      opts,
	}
	factor := opts.LineHeight
	if factor <= 0 {
		factor = 1
	}
	w.res.LineHeight = fontSize * factor
	w.res.Lines = []string{}
	w.res.LineWidths = []float64{}

	if opts.ShouldAddEllipsis && maxWidth > 0 {
		ew, err := w.measure(Ellipsis)
		if err != nil {
			return WrapResult{}, err
		}
		w.ellipsisWidth = ew
	}

	for _, segment := range strings.Split(text, "\n") {
		more, err := w.wrapSegment(strings.TrimSuffix(segment, "\r"))
		if err != nil {
			return WrapResult{}, err
		}
		if !more {
			break
		}
	}
	return w.res, nil
}

type wrapper struct {
	m             Measurer
	font          FontSpec
	fontSize      float64
	maxWidth      float64
	maxHeight     float64
	opts          WrapOptions
	ellipsisWidth float64
	res           WrapResult
}

func (w *wrapper) measure(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	return w.m.Measure(s, w.font, w.fontSize)
}

// push 追加一行；高度预算不足时返回 false，此后不再输出任何行。
func (w *wrapper) push(line string, width float64) bool {
	n := len(w.res.Lines) + 1
	// 按行数相乘而不是逐行累加，避免预算恰为整数行时的浮点误差
	if w.maxHeight > 0 && float64(n)*w.res.LineHeight > w.maxHeight+heightEpsilon {
		w.res.Truncated = true
		return false
	}
	w.res.Lines = append(w.res.Lines, line)
	w.res.LineWidths = append(w.res.LineWidths, width)
	w.res.Height = float64(n) * w.res.LineHeight
	if width > w.res.Width {
		w.res.Width = width
	}
	return true
}

// wrapSegment 处理一个不含换行的段落，返回 false 表示高度预算已耗尽。
func (w *wrapper) wrapSegment(segment string) (bool, error) {
	width, err := w.measure(segment)
	if err != nil {
		return false, err
	}
	if w.maxWidth <= 0 || width <= w.maxWidth {
		return w.push(segment, width), nil
	}

	line := strings.TrimLeftFunc(segment, unicode.IsSpace)
	if line == "" {
		return w.push("", 0), nil
	}
	for line != "" {
		bounds := clusterBounds(line)
		n := len(bounds) - 1

		var searchErr error
		limit := w.maxWidth - w.ellipsisWidth
		fit := sort.Search(n, func(i int) bool {
			if searchErr != nil {
				return true
			}
			pw, err := w.measure(line[:bounds[i+1]])
			if err != nil {
				searchErr = err
				return true
			}
			return pw > limit
		})
		if searchErr != nil {
			return false, searchErr
		}

		if fit == n {
			// 剩余部分整体放得下（理论上只在首轮之后出现）
			trimmed := strings.TrimRightFunc(line, unicode.IsSpace)
			lw, err := w.measure(trimmed)
			if err != nil {
				return false, err
			}
			return w.push(trimmed, lw), nil
		}

		ellipsis := w.opts.ShouldAddEllipsis
		cut := fit
		if fit == 0 {
			// 一个字素簇都放不下：强制输出一个，保证前进且不丢内容
			cut = 1
			ellipsis = false
		} else if w.opts.WrapAtWord {
			cut = wordBoundary(line, bounds, fit)
		}

		head := strings.TrimSpace(line[:bounds[cut]])
		if head == "" {
			cut = max(fit, 1)
			head = strings.TrimSpace(line[:bounds[cut]])
		}
		if ellipsis {
			head += Ellipsis
		}
		hw, err := w.measure(head)
		if err != nil {
			return false, err
		}
		if !w.push(head, hw) {
			return false, nil
		}

		line = strings.TrimLeftFunc(line[bounds[cut]:], unicode.IsSpace)
		if line == "" {
			break
		}
		rw, err := w.measure(line)
		if err != nil {
			return false, err
		}
		if rw <= w.maxWidth {
			trimmed := strings.TrimRightFunc(line, unicode.IsSpace)
			if trimmed != line {
				if rw, err = w.measure(trimmed); err != nil {
					return false, err
				}
			}
			return w.push(trimmed, rw), nil
		}
	}
	return true, nil
}

// wordBoundary 在前 fit 个字素簇内寻找折行位置（以字素簇计）。
// 紧随其后的字符是空格或连字符时直接在 fit 处断开；否则回退到前缀内最后一个空格或连字符之后；
// 找不到断点（单个长词）时保持字符精确的 fit。
func wordBoundary(line string, bounds []int, fit int) int {
	if fit < len(bounds)-1 {
		if next := line[bounds[fit]:bounds[fit+1]]; isBreak(next) {
			return fit
		}
	}
	for i := fit - 1; i > 0; i-- {
		if isBreak(line[bounds[i]:bounds[i+1]]) {
			return i + 1
		}
	}
	return fit
}

func isBreak(cluster string) bool {
	return cluster == spaceSeparator || cluster == dashSeparator
}

// clusterBounds 返回每个字素簇的起始字节偏移，末尾追加 len(s)。
func clusterBounds(s string) []int {
	bounds := make([]int, 0, len(s)+1)
	g := uniseg.NewGraphemes(s)
	for g.Next() {
		from, _ := g.Positions()
		bounds = append(bounds, from)
	}
	return append(bounds, len(s))
}
