package geo

// 文档注释：点入多边形判定（Even-Odd）
// 背景：对索引候选执行精确命中判定；外环命中且不在任何洞内视为命中。
// 约束：边按 [y_min, y_max) 半开区间处理，扫描线恰好穿过顶点时不重复计数；结果确定且无副作用。
func PointInPolygon(pt Point, poly Polygon) bool {
	if !pointInRing(pt, poly.Outer) {
		return false
	}
	for _, h := range poly.Holes {
		if pointInRing(pt, h) {
			return false
		}
	}
	return true
}

// 射线法判定点是否在环内
func pointInRing(pt Point, ring Ring) bool {
	n := len(ring)
	if n < 3 {
		return false
	}
	inside := false
	x := pt.Lon
	y := pt.Lat
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		xi, yi := ring[i].Lon, ring[i].Lat
		xj, yj := ring[j].Lon, ring[j].Lat
		// (yi > y) != (yj > y) 即半开区间规则，同时保证 yi != yj
		if (yi > y) != (yj > y) && x < (xj-xi)*(y-yi)/(yj-yi)+xi {
			inside = !inside
		}
	}
	return inside
}
