package layout

// Point 是折线上的一个数据点，Defined 为 false 表示该处数据缺失。
type Point struct {
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Defined bool    `json:"defined"`
}

// ClipRange 是缺口在 x 轴上的区间 [From, To]，两端为缺口两侧最近的有效点。
// From 或 To 处没有有效点时（序列以缺失开头或结尾），Open 为 true。
type ClipRange struct {
	From float64 `json:"from"`
	To   float64 `json:"to"`
	Open bool    `json:"open,omitempty"`
}

// Width 返回区间宽度。
func (c ClipRange) Width() float64 { return c.To - c.From }

// Segments 返回连续有效点组成的子序列，缺失点处断开。
func Segments(points []Point) [][]Point {
	var out [][]Point
	var cur []Point
	for _, p := range points {
		if !p.Defined {
			if len(cur) > 0 {
				out = append(out, cur)
				cur = nil
			}
			continue
		}
		cur = append(cur, p)
	}
	if len(cur) > 0 {
		out = append(out, cur)
	}
	return out
}

// ClipRanges 计算需要从路径中裁掉的区间，即每段缺失数据两侧有效点之间的 x 区间。
func ClipRanges(points []Point) []ClipRange {
	var ranges []ClipRange
	var last *Point
	inGap := false
	gapStart := 0.0
	for i := range points {
		p := points[i]
		if !p.Defined {
			if !inGap {
				inGap = true
				if last != nil {
					gapStart = last.X
				} else {
					gapStart = p.X
				}
			}
			continue
		}
		if inGap {
			ranges = append(ranges, ClipRange{From: gapStart, To: p.X, Open: last == nil})
			inGap = false
		}
		last = &points[i]
	}
	if inGap {
		end := points[len(points)-1].X
		ranges = append(ranges, ClipRange{From: gapStart, To: end, Open: true})
	}
	return ranges
}

// GapBridges 返回连接相邻两段的线段（前一段末点 → 后一段首点），用于以虚线补齐缺口。
func GapBridges(segments [][]Point) [][2]Point {
	if len(segments) < 2 {
		return nil
	}
	bridges := make([][2]Point, 0, len(segments)-1)
	for i := 1; i < len(segments); i++ {
		prev := segments[i-1]
		bridges = append(bridges, [2]Point{prev[len(prev)-1], segments[i][0]})
	}
	return bridges
}
