package layout

import (
	"errors"
	"math"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/rivo/uniseg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedMeasurer 按字素簇计宽：每簇 perCluster px，与字号无关，并统计调用次数。
type fixedMeasurer struct {
	perCluster float64
	calls      atomic.Int64
	fail       error
}

func (m *fixedMeasurer) Measure(text string, _ FontSpec, _ float64) (float64, error) {
	m.calls.Add(1)
	if m.fail != nil {
		return 0, m.fail
	}
	return float64(uniseg.GraphemeClusterCount(text)) * m.perCluster, nil
}

func newFixed() *fixedMeasurer { return &fixedMeasurer{perCluster: 10} }

var testFont = FontSpec{Family: "Body"}

func wordOpts() WrapOptions { return DefaultWrapOptions() }

func TestWrapTextFitsWhole(t *testing.T) {
	res, err := WrapText(newFixed(), "Hello", testFont, 12, 100, 0, wordOpts())
	require.NoError(t, err)
	assert.Equal(t, []string{"Hello"}, res.Lines)
	assert.Equal(t, 50.0, res.Width)
	assert.Equal(t, 12.0, res.LineHeight)
	assert.Equal(t, 12.0, res.Height)
	assert.False(t, res.Truncated)
}

func TestWrapTextWordBoundary(t *testing.T) {
	res, err := WrapText(newFixed(), "Hello World", testFont, 12, 55, 0, wordOpts())
	require.NoError(t, err)
	assert.Equal(t, []string{"Hello", "World"}, res.Lines)
	assert.Equal(t, []float64{50, 50}, res.LineWidths)
	assert.Equal(t, 50.0, res.Width)
	assert.Equal(t, 24.0, res.Height)
}

func TestWrapTextBacktracksToLastSpace(t *testing.T) {
	// 前 7 个字符 "the qui" 放得下，但 "quick" 不能被拆开
	res, err := WrapText(newFixed(), "the quick fox", testFont, 10, 70, 0, wordOpts())
	require.NoError(t, err)
	assert.Equal(t, []string{"the", "quick", "fox"}, res.Lines)
}

func TestWrapTextDashBoundary(t *testing.T) {
	res, err := WrapText(newFixed(), "well-known", testFont, 10, 70, 0, wordOpts())
	require.NoError(t, err)
	assert.Equal(t, []string{"well-", "known"}, res.Lines)
}

func TestWrapTextCharacterMode(t *testing.T) {
	res, err := WrapText(newFixed(), "Hello World", testFont, 10, 30, 0, WrapOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Hel", "lo", "Wor", "ld"}, res.Lines)
}

func TestWrapTextLongWordKeepsEveryCharacter(t *testing.T) {
	text := "Supercalifragilistic"
	res, err := WrapText(newFixed(), text, testFont, 10, 45, 0, wordOpts())
	require.NoError(t, err)
	assert.Equal(t, []string{"Supe", "rcal", "ifra", "gili", "stic"}, res.Lines)
	assert.Equal(t, text, strings.Join(res.Lines, ""))
	for _, w := range res.LineWidths {
		assert.LessOrEqual(t, w, 45.0)
	}
}

func TestWrapTextTinyWidthEmitsOneClusterPerLine(t *testing.T) {
	res, err := WrapText(newFixed(), "abc", testFont, 10, 5, 0, wordOpts())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, res.Lines)
}

func TestWrapTextNoFitNeverAddsEllipsis(t *testing.T) {
	opts := wordOpts()
	opts.ShouldAddEllipsis = true
	res, err := WrapText(newFixed(), "ab", testFont, 10, 5, 0, opts)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, res.Lines)
}

func TestWrapTextPreservesNewlines(t *testing.T) {
	res, err := WrapText(newFixed(), "a\nb", testFont, 10, 100, 0, wordOpts())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, res.Lines)

	res, err = WrapText(newFixed(), "a\n\nb", testFont, 10, 100, 0, wordOpts())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "", "b"}, res.Lines)
}

func TestWrapTextEmptyInput(t *testing.T) {
	m := newFixed()
	res, err := WrapText(m, "", testFont, 10, 100, 0, wordOpts())
	require.NoError(t, err)
	assert.Equal(t, []string{""}, res.Lines)
	assert.Equal(t, 0.0, res.Width)
	assert.Equal(t, int64(0), m.calls.Load(), "empty strings must not reach the measurer")
}

func TestWrapTextZeroWidthDisablesWrapping(t *testing.T) {
	text := "a line far wider than any reasonable box"
	res, err := WrapText(newFixed(), text, testFont, 10, 0, 0, wordOpts())
	require.NoError(t, err)
	assert.Equal(t, []string{text}, res.Lines)
}

func TestWrapTextHeightBudget(t *testing.T) {
	res, err := WrapText(newFixed(), "one two three four", testFont, 10, 50, 25, wordOpts())
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two"}, res.Lines)
	assert.True(t, res.Truncated)
	assert.LessOrEqual(t, res.Height, 25.0)

	res, err = WrapText(newFixed(), "a\nb\nc", testFont, 10, 0, 20, wordOpts())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, res.Lines)
	assert.True(t, res.Truncated)
}

func TestWrapTextHeightBudgetOfWholeLines(t *testing.T) {
	for size := 10.0; size <= 16; size++ {
		for _, factor := range []float64{1.1, 1.2, 1.3, 1.4, 1.5} {
			opts := wordOpts()
			opts.LineHeight = factor
			lineHeight := size * factor
			for n := 1; n <= 12; n++ {
				text := strings.Repeat("x\n", n+1) + "x"
				maxHeight := float64(n) * lineHeight
				res, err := WrapText(newFixed(), text, testFont, size, 0, maxHeight, opts)
				require.NoError(t, err)
				assert.Len(t, res.Lines, n, "size=%g factor=%g maxHeight=%g", size, factor, maxHeight)
				assert.True(t, res.Truncated)
				assert.Equal(t, float64(n)*lineHeight, res.Height)
			}
		}
	}
}

func TestWrapTextHeightSmallerThanOneLine(t *testing.T) {
	res, err := WrapText(newFixed(), "abc", testFont, 10, 100, 5, wordOpts())
	require.NoError(t, err)
	assert.Empty(t, res.Lines)
	assert.Equal(t, 0.0, res.Height)
	assert.True(t, res.Truncated)
}

func TestWrapTextLineHeightFactor(t *testing.T) {
	opts := wordOpts()
	opts.LineHeight = 1.5
	res, err := WrapText(newFixed(), "a\nb", testFont, 10, 0, 0, opts)
	require.NoError(t, err)
	assert.Equal(t, 15.0, res.LineHeight)
	assert.Equal(t, 30.0, res.Height)
}

func TestWrapTextEllipsisOnWidthCutsOnly(t *testing.T) {
	opts := wordOpts()
	opts.ShouldAddEllipsis = true
	res, err := WrapText(newFixed(), "aaa bbb ccc", testFont, 10, 50, 0, opts)
	require.NoError(t, err)
	assert.Equal(t, []string{"aaa…", "bbb…", "ccc"}, res.Lines)
	for _, w := range res.LineWidths {
		assert.LessOrEqual(t, w, 50.0)
	}

	res, err = WrapText(newFixed(), "short\nlines", testFont, 10, 100, 0, opts)
	require.NoError(t, err)
	for _, l := range res.Lines {
		assert.False(t, strings.HasSuffix(l, Ellipsis), "line %q was not cut by width", l)
	}
}

func TestWrapTextTrimsWrappedLines(t *testing.T) {
	res, err := WrapText(newFixed(), "   lead   and   trail   ", testFont, 10, 60, 0, wordOpts())
	require.NoError(t, err)
	for _, l := range res.Lines {
		assert.Equal(t, strings.TrimSpace(l), l)
	}
	assert.Equal(t, "lead and trail", strings.Join(res.Lines, " "))
}

func TestWrapTextWhitespaceOnlyOverflow(t *testing.T) {
	res, err := WrapText(newFixed(), "          ", testFont, 10, 30, 0, wordOpts())
	require.NoError(t, err)
	assert.Equal(t, []string{""}, res.Lines)
}

func TestWrapTextGraphemeClusters(t *testing.T) {
	// 每个 "é"（e + 组合重音）是一个字素簇，不能被拆开
	text := "e\u0301e\u0301e\u0301e\u0301"
	res, err := WrapText(newFixed(), text, testFont, 10, 20, 0, WrapOptions{})
	require.NoError(t, err)
	require.Len(t, res.Lines, 2)
	assert.Equal(t, "e\u0301e\u0301", res.Lines[0])
	assert.Equal(t, text, strings.Join(res.Lines, ""))
}

func TestWrapTextIdempotent(t *testing.T) {
	text := "The quick brown fox jumps over the lazy dog\nand keeps running"
	a, err := WrapText(newFixed(), text, testFont, 10, 80, 60, wordOpts())
	require.NoError(t, err)
	b, err := WrapText(newFixed(), text, testFont, 10, 80, 60, wordOpts())
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestWrapTextInvariants(t *testing.T) {
	text := "Lorem ipsum dolor sit amet, consectetur-adipiscing elit.\nSed do eiusmod tempor incididunt"
	for _, maxWidth := range []float64{15, 40, 75, 120, 300} {
		for _, opts := range []WrapOptions{{}, DefaultWrapOptions(), {WrapAtWord: true, ShouldAddEllipsis: true}} {
			res, err := WrapText(newFixed(), text, testFont, 10, maxWidth, 0, opts)
			require.NoError(t, err)
			widest := 0.0
			for i, l := range res.Lines {
				assert.LessOrEqual(t, res.LineWidths[i], maxWidth, "line %q exceeds %g", l, maxWidth)
				widest = math.Max(widest, res.LineWidths[i])
			}
			assert.Equal(t, widest, res.Width)
			assert.Equal(t, float64(len(res.Lines))*res.LineHeight, res.Height)
			if !opts.ShouldAddEllipsis {
				// 去掉空白后内容不丢失
				squash := func(s string) string { return strings.Join(strings.Fields(s), "") }
				assert.Equal(t, squash(text), squash(strings.Join(res.Lines, " ")))
			}
		}
	}
}

func TestWrapTextLogarithmicMeasurements(t *testing.T) {
	// 单个长词：每行的测量次数应为 O(log n)，而不是 O(n)
	text := strings.Repeat("x", 1024)
	m := newFixed()
	res, err := WrapText(m, text, testFont, 10, 5120, 0, WrapOptions{})
	require.NoError(t, err)
	require.Len(t, res.Lines, 2)
	// 整段 1 次 + 二分约 11 次 + 首行 1 次 + 余下 1 次
	assert.LessOrEqual(t, m.calls.Load(), int64(20))
}

func TestWrapTextPropagatesMeasureError(t *testing.T) {
	boom := errors.New("font not loaded")
	m := &fixedMeasurer{perCluster: 10, fail: boom}
	_, err := WrapText(m, "Hello World", testFont, 12, 55, 0, wordOpts())
	require.ErrorIs(t, err, boom)

	opts := wordOpts()
	opts.ShouldAddEllipsis = true
	_, err = WrapText(m, "x", testFont, 12, 55, 0, opts)
	require.ErrorIs(t, err, boom)
}

func TestMeasureFuncAdapter(t *testing.T) {
	var got FontSpec
	m := MeasureFunc(func(text string, font FontSpec, size float64) (float64, error) {
		got = font
		return float64(len(text)) * size / 2, nil
	})
	res, err := WrapText(m, "abcd", FontSpec{Family: "Mono", Weight: "bold"}, 10, 100, 0, wordOpts())
	require.NoError(t, err)
	assert.Equal(t, 20.0, res.Width)
	assert.True(t, got.IsBold())
}
