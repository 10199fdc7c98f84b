package geo

import (
	"fmt"
	"math"
)

// 文档注释：环与多边形的合法性校验
// 背景：入库前拒绝退化几何，保证点面判定与质心计算的前提成立。
// 约束：仅校验单环的简单性（不自交、无零长边、闭合、非零面积），不做环间拓扑修复。
// 返回：nil 表示合法，否则返回描述原因的 error。
func ValidatePolygon(p Polygon) error {
	if err := ValidateRing(p.Outer); err != nil {
		return fmt.Errorf("outer ring: %w", err)
	}
	for i, h := range p.Holes {
		if err := ValidateRing(h); err != nil {
			return fmt.Errorf("hole %d: %w", i, err)
		}
	}
	return nil
}

func ValidateRing(r Ring) error {
	if len(r) < 4 {
		return fmt.Errorf("ring has %d points, need at least 4", len(r))
	}
	for i, pt := range r {
		if math.IsInf(pt.Lat, 0) || math.IsInf(pt.Lon, 0) || math.IsNaN(pt.Lat) || math.IsNaN(pt.Lon) {
			return fmt.Errorf("non-finite coordinate at vertex %d", i)
		}
		if !ValidCoord(pt) {
			return fmt.Errorf("coordinate out of range at vertex %d: lon=%v lat=%v", i, pt.Lon, pt.Lat)
		}
	}
	if r[0] != r[len(r)-1] {
		return fmt.Errorf("ring is not closed")
	}
	for i := 0; i < len(r)-1; i++ {
		if r[i] == r[i+1] {
			return fmt.Errorf("zero-length edge at vertex %d", i)
		}
	}
	if _, ok := Centroid(r); !ok {
		return fmt.Errorf("ring has zero area")
	}
	if i, j, ok := selfIntersection(r); ok {
		return fmt.Errorf("ring self-intersects between edges %d and %d", i, j)
	}
	return nil
}

// selfIntersection 返回第一对相交的边；相邻边只在共享顶点之外重叠时才算相交
func selfIntersection(r Ring) (int, int, bool) {
	m := len(r) - 1
	for i := 0; i < m; i++ {
		a, b := r[i], r[i+1]
		for j := i + 1; j < m; j++ {
			c, d := r[j], r[j+1]
			adjacent := j == i+1 || (i == 0 && j == m-1)
			if adjacent {
				// 共享顶点之外的端点落在对方边上即为折返尖刺
				p, q := d, a
				if j != i+1 {
					p, q = c, b
				}
				if collinearOn(a, b, p) || collinearOn(c, d, q) {
					return i, j, true
				}
				continue
			}
			if segmentsIntersect(a, b, c, d) {
				return i, j, true
			}
		}
	}
	return 0, 0, false
}

func orient(a, b, c Point) int {
	v := (b.Lon-a.Lon)*(c.Lat-a.Lat) - (b.Lat-a.Lat)*(c.Lon-a.Lon)
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

// onSegment 假定 c 与 ab 共线，判断 c 是否在 ab 的范围内
func onSegment(a, b, c Point) bool {
	return math.Min(a.Lon, b.Lon) <= c.Lon && c.Lon <= math.Max(a.Lon, b.Lon) &&
		math.Min(a.Lat, b.Lat) <= c.Lat && c.Lat <= math.Max(a.Lat, b.Lat)
}

func collinearOn(a, b, c Point) bool {
	return orient(a, b, c) == 0 && onSegment(a, b, c)
}

func segmentsIntersect(a, b, c, d Point) bool {
	o1 := orient(a, b, c)
	o2 := orient(a, b, d)
	o3 := orient(c, d, a)
	o4 := orient(c, d, b)
	if o1 != o2 && o3 != o4 {
		return true
	}
	if o1 == 0 && onSegment(a, b, c) {
		return true
	}
	if o2 == 0 && onSegment(a, b, d) {
		return true
	}
	if o3 == 0 && onSegment(c, d, a) {
		return true
	}
	if o4 == 0 && onSegment(c, d, b) {
		return true
	}
	return false
}
