package geo

import "math"

// 文档注释：环的面积加权质心
// 背景：地块代表点取外环质心（忽略洞），与原先从几何推导代表点的行为一致。
// 返回：ok=false 表示环退化为零面积，调用方应回退到 VertexMean。
func Centroid(r Ring) (Point, bool) {
	n := len(r)
	if n < 4 {
		return Point{}, false
	}
	// 以首点为局部原点，减小大经度值下的相消误差
	ox, oy := r[0].Lon, r[0].Lat
	var a2, cx, cy float64
	for i := 0; i < n-1; i++ {
		x0, y0 := r[i].Lon-ox, r[i].Lat-oy
		x1, y1 := r[i+1].Lon-ox, r[i+1].Lat-oy
		cross := x0*y1 - x1*y0
		a2 += cross
		cx += (x0 + x1) * cross
		cy += (y0 + y1) * cross
	}
	if a2 == 0 || math.IsNaN(a2) {
		return Point{}, false
	}
	return Point{Lon: ox + cx/(3*a2), Lat: oy + cy/(3*a2)}, true
}

// VertexMean 顶点算术平均（不重复计入闭合点）
func VertexMean(r Ring) Point {
	n := len(r)
	if n > 1 && r[0] == r[n-1] {
		n--
	}
	if n == 0 {
		return Point{}
	}
	var sx, sy float64
	for _, pt := range r[:n] {
		sx += pt.Lon
		sy += pt.Lat
	}
	return Point{Lon: sx / float64(n), Lat: sy / float64(n)}
}

// RepresentativePoint 质心，零面积时回退为顶点平均
func RepresentativePoint(r Ring) Point {
	if c, ok := Centroid(r); ok {
		return c
	}
	return VertexMean(r)
}
