// 包 geo：地块几何内核（点、环、带洞多边形、包围盒、质心、点面判定、球面距离），无状态纯函数
package geo

// 点坐标（WGS84，单位度）
type Point struct {
	Lat float64
	Lon float64
}

// Ring：闭合环，首点与末点相同
type Ring []Point

// 文档注释：带洞多边形
// 背景：按 GeoJSON 约定，Outer 为外环，Holes 为洞；构建后只读。
// 约束：所有环须闭合（≥4 点）且无零长边；绕向不做强制。
type Polygon struct {
	Outer Ring
	Holes []Ring
}

// BBox：经纬度轴对齐包围盒
type BBox struct {
	MinLon float64
	MinLat float64
	MaxLon float64
	MaxLat float64
}

// Contains 判断点是否落在包围盒内（含边界）
func (b BBox) Contains(pt Point) bool {
	return pt.Lon >= b.MinLon && pt.Lon <= b.MaxLon && pt.Lat >= b.MinLat && pt.Lat <= b.MaxLat
}

// Intersects 判断两个包围盒是否相交（含边界接触）
func (b BBox) Intersects(o BBox) bool {
	return !(o.MaxLon < b.MinLon || o.MinLon > b.MaxLon || o.MaxLat < b.MinLat || o.MinLat > b.MaxLat)
}

// Expand 向四周扩展 margin 度
func (b BBox) Expand(margin float64) BBox {
	return BBox{MinLon: b.MinLon - margin, MinLat: b.MinLat - margin, MaxLon: b.MaxLon + margin, MaxLat: b.MaxLat + margin}
}

// ValidCoord 判断经纬度是否为有限值且在 WGS84 取值范围内
func ValidCoord(pt Point) bool {
	if pt.Lat != pt.Lat || pt.Lon != pt.Lon {
		return false
	}
	return pt.Lat >= -90 && pt.Lat <= 90 && pt.Lon >= -180 && pt.Lon <= 180
}
