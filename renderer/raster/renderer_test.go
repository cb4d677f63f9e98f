package raster

import (
	"bytes"
	"image/png"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ByLCY/chartlabel/dsl"
	"github.com/ByLCY/chartlabel/layout"
)

const chart = `doc Bars v1 {
  resources {
    font Body {
      src: "builtin:goregular"
      bold: "builtin:gobold"
    }
  }
  canvas 200 120 background #ffffff {
    rect x 10 y 60 width 30 height 50 fill #ff0000
    arc cx 150 cy 40 r 20 start 0 end 270 fill #00aa00 stroke #000000
    path stroke #0000ff fit-gaps true {
      points: [(10, 50), (40, 30), (70, null), (100, 20)]
    }
    text Body x 60 y 60 width 80 size 12px weight bold align right { "Revenue grew steadily this quarter" }
  }
}`

func build(t *testing.T, r *Renderer) *layout.Result {
	t.Helper()
	doc, err := dsl.ParseString(chart)
	require.NoError(t, err)
	res, err := layout.Build(doc, nil, layout.BuildOptions{Measurer: r})
	require.NoError(t, err)
	return res
}

func TestMeasure(t *testing.T) {
	r := New("", 1)
	body := layout.FontSpec{Family: "Body"}

	empty, err := r.Measure("", body, 12)
	require.NoError(t, err)
	assert.Zero(t, empty)

	w12, err := r.Measure("chart label", body, 12)
	require.NoError(t, err)
	w24, err := r.Measure("chart label", body, 24)
	require.NoError(t, err)
	assert.Greater(t, w12, 0.0)
	assert.InDelta(t, 2*w12, w24, 0.05*w24)
}

func TestMeasureMatchesCanvasScale(t *testing.T) {
	// Go Mono 的每个字形宽度为 0.6em
	r := New("", 1)
	r.RegisterFonts(map[string]layout.FontResource{"Mono": {Name: "Mono", Src: "builtin:gomono"}})
	w, err := r.Measure("0123456789", layout.FontSpec{Family: "Mono"}, 10)
	require.NoError(t, err)
	assert.InDelta(t, 60, w, 1)
}

func TestMeasureConcurrent(t *testing.T) {
	r := New("", 1)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(size float64) {
			defer wg.Done()
			_, err := r.Measure("concurrent", layout.FontSpec{Family: "Body"}, size)
			assert.NoError(t, err)
		}(float64(10 + i))
	}
	wg.Wait()
}

func TestMeasureFallback(t *testing.T) {
	r := New(t.TempDir(), 1)
	r.RegisterFonts(map[string]layout.FontResource{"Brand": {Name: "Brand", Src: "missing.ttf"}})
	w, err := r.Measure("fallback", layout.FontSpec{Family: "Brand"}, 12)
	require.NoError(t, err)
	assert.Greater(t, w, 0.0)
}

func TestRenderPNG(t *testing.T) {
	r := New("", 2)
	res := build(t, r)
	require.NotEmpty(t, res.Canvas.Texts)
	for _, ln := range res.Canvas.Texts[0].Lines {
		assert.LessOrEqual(t, ln.Width, 80.0, "line %q", ln.Content)
	}

	out, err := r.Render(res)
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 400, img.Bounds().Dx())
	assert.Equal(t, 240, img.Bounds().Dy())

	// 背景为白色，矩形内部为红色
	cr, cg, cb, _ := img.At(1, 1).RGBA()
	assert.Equal(t, [3]uint32{0xffff, 0xffff, 0xffff}, [3]uint32{cr, cg, cb})
	rr, rg, rb, _ := img.At(50, 170).RGBA()
	assert.Equal(t, uint32(0xffff), rr)
	assert.Zero(t, rg)
	assert.Zero(t, rb)
}

func TestRenderErrors(t *testing.T) {
	r := New("", 1)
	_, err := r.Render(nil)
	assert.Error(t, err)
	_, err = r.Render(&layout.Result{})
	assert.Error(t, err)
}
