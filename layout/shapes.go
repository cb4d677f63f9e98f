package layout

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/ByLCY/chartlabel/dsl"
)

// parseLineShape supports both full form (x1/y1/x2/y2) and simplified form:
//
//	line x <len> y <len> length <len> [dir h|v] [stroke <color>] [stroke-width <len>] [dash "4 2"]
func parseLineShape(attrs map[string]string, res ResourceSet) (Line, bool) {
	ln := Line{
		Color: resolveColor(firstNonEmpty(attrs["stroke"], attrs["color"]), res),
		Width: parseLength(firstNonEmpty(attrs["stroke-width"], attrs["width"])),
		Dash:  parseDash(attrs["dash"]),
	}
	if ln.Width <= 0 {
		ln.Width = defaultStrokeWidth
	}
	if _, ok := attrs["x1"]; ok {
		ln.X1 = parseLength(attrs["x1"])
		ln.Y1 = parseLength(attrs["y1"])
		ln.X2 = parseLength(attrs["x2"])
		ln.Y2 = parseLength(attrs["y2"])
		return ln, true
	}
	length := parseLength(attrs["length"])
	if length <= 0 {
		return Line{}, false
	}
	ln.X1, ln.Y1 = parseLength(attrs["x"]), parseLength(attrs["y"])
	switch strings.ToLower(strings.TrimSpace(attrs["dir"])) {
	case "", "h", "hor", "horizontal":
		ln.X2, ln.Y2 = ln.X1+length, ln.Y1
	case "v", "ver", "vertical":
		ln.X2, ln.Y2 = ln.X1, ln.Y1+length
	default:
		return Line{}, false
	}
	return ln, true
}

func parseRectShape(attrs map[string]string, res ResourceSet) (Rect, bool) {
	rc := Rect{
		X:      parseLength(attrs["x"]),
		Y:      parseLength(attrs["y"]),
		Width:  parseLength(attrs["width"]),
		Height: parseLength(attrs["height"]),
	}
	if rc.Width <= 0 || rc.Height <= 0 {
		return Rect{}, false
	}
	rc.FillColor = resolveOptionalColor(attrs["fill"], res)
	rc.StrokeColor = resolveOptionalColor(attrs["stroke"], res)
	rc.StrokeWidth = parseLength(attrs["stroke-width"])
	if rc.StrokeColor != nil && rc.StrokeWidth <= 0 {
		rc.StrokeWidth = defaultStrokeWidth
	}
	return rc, true
}

// parseArcShape 解析 arc/circle：arc cx 50 cy 50 r 20 start 0 end 90。未给出 start/end 时为整圆。
func parseArcShape(attrs map[string]string, res ResourceSet) (Arc, bool) {
	a := Arc{
		CX: parseLength(attrs["cx"]),
		CY: parseLength(attrs["cy"]),
		R:  parseLength(attrs["r"]),
	}
	if a.R <= 0 {
		return Arc{}, false
	}
	a.Start = parseNumber(attrs["start"])
	a.End = parseNumber(attrs["end"])
	a.FillColor = resolveOptionalColor(attrs["fill"], res)
	a.StrokeColor = resolveOptionalColor(attrs["stroke"], res)
	a.StrokeWidth = parseLength(attrs["stroke-width"])
	if a.StrokeColor != nil && a.StrokeWidth <= 0 {
		a.StrokeWidth = defaultStrokeWidth
	}
	if a.FillColor == nil && a.StrokeColor == nil {
		c := defaultTextColor
		a.StrokeColor = &c
		a.StrokeWidth = defaultStrokeWidth
	}
	return a, true
}

// parsePathShape 解析折线/面积图路径。数据点来自块内的 points 或 values 赋值：
//
//	path stroke Accent fill #cce fit-gaps true { points: [(0, 10), (10, 20), (20, null), (30, 15)] }
//	path x 0 y 100 step 10 { values: [10, 20, null, 15] }
//
// values 形式下第 i 个点位于 (x + i*step, y - value)。
func parsePathShape(cmd *dsl.Command, attrs map[string]string, res ResourceSet) (Path, error) {
	var points []Point
	var err error
	if cmd.Block != nil {
		for _, stmt := range cmd.Block.Statements {
			if stmt.Assignment == nil {
				continue
			}
			switch stmt.Assignment.Key {
			case "points":
				points, err = pointsFromValue(stmt.Assignment.Value)
			case "values":
				points, err = valuesToPoints(stmt.Assignment.Value, attrs)
			}
			if err != nil {
				return Path{}, err
			}
		}
	}
	if len(points) == 0 {
		return Path{}, fmt.Errorf("path 语句缺少数据点")
	}

	p := Path{
		Points:      points,
		Segments:    Segments(points),
		Clips:       ClipRanges(points),
		StrokeColor: resolveColor(firstNonEmpty(attrs["stroke"], attrs["color"]), res),
		StrokeWidth: parseLength(attrs["stroke-width"]),
		FillColor:   resolveOptionalColor(attrs["fill"], res),
		Baseline:    parseLength(attrs["baseline"]),
		FitGaps:     parseBool(attrs["fit-gaps"]),
	}
	if p.StrokeWidth <= 0 {
		p.StrokeWidth = defaultStrokeWidth
	}
	return p, nil
}

// pointsFromValue 读取 [(x, y), ...]；y 为 null 时该点缺失。
func pointsFromValue(val *dsl.Value) ([]Point, error) {
	items := val.Values()
	points := make([]Point, 0, len(items))
	for i, item := range items {
		if item.Point == nil {
			return nil, fmt.Errorf("第 %d 个数据点格式错误，应为 (x, y)", i)
		}
		x, err := strconv.ParseFloat(item.Point.X, 64)
		if err != nil {
			return nil, fmt.Errorf("第 %d 个数据点的 x 无法解析: %w", i, err)
		}
		pt := Point{X: x}
		if item.Point.Y != nil {
			if pt.Y, pt.Defined, err = parseDatum(*item.Point.Y); err != nil {
				return nil, fmt.Errorf("第 %d 个数据点的 y 无法解析: %w", i, err)
			}
		}
		points = append(points, pt)
	}
	return points, nil
}

func valuesToPoints(val *dsl.Value, attrs map[string]string) ([]Point, error) {
	x0 := parseLength(attrs["x"])
	y0 := parseLength(attrs["y"])
	step := parseLength(attrs["step"])
	if step <= 0 {
		step = 1
	}
	items := val.Values()
	points := make([]Point, 0, len(items))
	for i, item := range items {
		y, defined, err := parseDatum(item.Text())
		if err != nil {
			return nil, fmt.Errorf("第 %d 个数据值无法解析: %w", i, err)
		}
		points = append(points, Point{X: x0 + float64(i)*step, Y: y0 - y, Defined: defined})
	}
	return points, nil
}

// parseDatum 解析单个数据值；空值与 NaN 视为缺失。
func parseDatum(s string) (float64, bool, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "null", "-", "nan", "none", "":
		return 0, false, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false, nil
	}
	return v, true, nil
}

func parseDash(value string) []float64 {
	var out []float64
	for _, f := range strings.FieldsFunc(value, func(r rune) bool { return r == ' ' || r == ',' }) {
		if v := parseLength(f); v > 0 {
			out = append(out, v)
		}
	}
	return out
}

func parseNumber(value string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0
	}
	return f
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
