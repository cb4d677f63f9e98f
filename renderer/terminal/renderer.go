// Package terminal previews wrapped text boxes in a terminal. Widths are measured in
// terminal cells, so a text box width of 30 means 30 columns.
package terminal

import (
	"fmt"
	"math"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/ByLCY/chartlabel/layout"
	"github.com/ByLCY/chartlabel/renderer"
)

var (
	titleStyle     = lipgloss.NewStyle().Bold(true)
	boxStyle       = lipgloss.NewStyle().Border(lipgloss.RoundedBorder())
	truncatedColor = lipgloss.Color("#FF5F5F")
)

// Renderer measures text in cells and renders each text box inside a rounded border.
type Renderer struct {
	cond *runewidth.Condition
}

var _ renderer.Backend = (*Renderer)(nil)

// New returns a terminal renderer. East Asian ambiguous-width runes count as one cell.
func New() *Renderer {
	cond := runewidth.NewCondition()
	cond.EastAsianWidth = false
	return &Renderer{cond: cond}
}

// Measure 返回文本占用的终端列数，字体与字号不参与计算。
func (r *Renderer) Measure(text string, _ layout.FontSpec, _ float64) (float64, error) {
	return float64(r.cond.StringWidth(text)), nil
}

// Render 按文本框顺序纵向排列预览，超出高度预算的文本框边框标红。
func (r *Renderer) Render(result *layout.Result) ([]byte, error) {
	if result == nil {
		return nil, fmt.Errorf("渲染结果为空")
	}
	blocks := make([]string, 0, len(result.Canvas.Texts)+1)
	if result.Meta.Title != "" {
		blocks = append(blocks, titleStyle.Render(result.Meta.Title))
	}
	for _, tb := range result.Canvas.Texts {
		blocks = append(blocks, r.renderBox(tb))
	}
	if len(blocks) == 0 {
		return nil, nil
	}
	return []byte(lipgloss.JoinVertical(lipgloss.Left, blocks...) + "\n"), nil
}

func (r *Renderer) renderBox(tb layout.TextBox) string {
	width := int(math.Ceil(math.Max(tb.Width, tb.Measured)))
	lines := make([]string, len(tb.Lines))
	for i, ln := range tb.Lines {
		lines[i] = ln.Content
	}

	style := boxStyle.Width(width).Align(position(tb.Align))
	style = style.Foreground(lipgloss.Color(fmt.Sprintf("#%02X%02X%02X", tb.Color.R, tb.Color.G, tb.Color.B)))
	if tb.Truncated {
		style = style.BorderForeground(truncatedColor)
	}
	return style.Render(lipgloss.JoinVertical(position(tb.Align), lines...))
}

func position(align string) lipgloss.Position {
	switch align {
	case "center":
		return lipgloss.Center
	case "right":
		return lipgloss.Right
	default:
		return lipgloss.Left
	}
}
