package geo

import "math"

// BoundingBox 计算多边形包围盒，遍历外环与全部洞的顶点
func BoundingBox(p Polygon) BBox {
	b := BBox{MinLon: math.Inf(1), MinLat: math.Inf(1), MaxLon: math.Inf(-1), MaxLat: math.Inf(-1)}
	extend := func(r Ring) {
		for _, pt := range r {
			b.MinLon = math.Min(b.MinLon, pt.Lon)
			b.MinLat = math.Min(b.MinLat, pt.Lat)
			b.MaxLon = math.Max(b.MaxLon, pt.Lon)
			b.MaxLat = math.Max(b.MaxLat, pt.Lat)
		}
	}
	extend(p.Outer)
	for _, h := range p.Holes {
		extend(h)
	}
	return b
}

// 文档注释：圆盘的经纬度包围窗口
// 背景：把“距中心 radiusMeters 以内”的球冠转换为一个或两个经纬度矩形，供索引粗筛。
// 约束：纬度方向按角半径换算；经度方向用 asin(sin θ / cos φ) 的精确边界（Bounding Coordinates），
// 球冠越过极点时经度取全范围；跨越 ±180° 时拆为两个窗口。结果只会偏大，不会漏掉。
func DiscWindows(center Point, radiusMeters float64) []BBox {
	theta := radiusMeters / EarthRadiusMeters
	if theta >= math.Pi {
		return []BBox{{MinLon: -180, MinLat: -90, MaxLon: 180, MaxLat: 90}}
	}
	dLat := deg(theta)
	minLat := center.Lat - dLat
	maxLat := center.Lat + dLat
	if minLat <= -90 || maxLat >= 90 {
		return []BBox{{MinLon: -180, MinLat: math.Max(minLat, -90), MaxLon: 180, MaxLat: math.Min(maxLat, 90)}}
	}
	s := math.Sin(theta) / math.Cos(rad(center.Lat))
	if s >= 1 {
		return []BBox{{MinLon: -180, MinLat: minLat, MaxLon: 180, MaxLat: maxLat}}
	}
	dLon := deg(math.Asin(s))
	minLon := center.Lon - dLon
	maxLon := center.Lon + dLon
	switch {
	case minLon < -180:
		return []BBox{
			{MinLon: -180, MinLat: minLat, MaxLon: maxLon, MaxLat: maxLat},
			{MinLon: minLon + 360, MinLat: minLat, MaxLon: 180, MaxLat: maxLat},
		}
	case maxLon > 180:
		return []BBox{
			{MinLon: minLon, MinLat: minLat, MaxLon: 180, MaxLat: maxLat},
			{MinLon: -180, MinLat: minLat, MaxLon: maxLon - 360, MaxLat: maxLat},
		}
	}
	return []BBox{{MinLon: minLon, MinLat: minLat, MaxLon: maxLon, MaxLat: maxLat}}
}

// discSlack：窗口外扩的角度余量，吸收三角函数舍入误差
const discSlack = 1e-9

// 文档注释：包围盒与圆盘的保守相交判定
// 背景：用于索引候选剪枝，随后再以 GreatCircleDistanceMeters 精确判定。
// 约束：允许多判，不允许漏判。
func BBoxIntersectsDisc(b BBox, center Point, radiusMeters float64) bool {
	for _, w := range DiscWindows(center, radiusMeters) {
		if b.Intersects(w.Expand(discSlack)) {
			return true
		}
	}
	return false
}
