// 包 parcel：地块存储（id → 只读记录），一次性由外部行数据构建，构建后不再修改
package parcel

import (
	"sort"

	"parcel-api/internal/geo"
)

// 文档注释：外部原始行
// 背景：由种子文件或数据库表解析而来；几何为外环 + 洞（经纬度度数），属性为开放字符串映射。
// 约束：Attributes 值为 nil 表示 NULL；引擎不解释属性含义，原样携带。
type Row struct {
	ID         int64
	Rings      [][]geo.Point
	Attributes map[string]*string
	// 解析阶段已发现的几何问题；非 nil 时该行按 GeometryError 跳过
	GeomErr error
}

// 文档注释：地块记录（只读）
// 背景：入库时一次性计算包围盒与代表点（外环面积加权质心），查询期直接复用。
// 约束：构建后不可修改；Attributes 为入库时的独立副本，调用方不得写入。
type Record struct {
	ID         int64
	Attributes map[string]*string
	Polygon    geo.Polygon
	BBox       geo.BBox
	Centroid   geo.Point
}

// Attr 读取属性；第二个返回值为 false 表示键不存在或值为 NULL
func (r *Record) Attr(key string) (string, bool) {
	v, ok := r.Attributes[key]
	if !ok || v == nil {
		return "", false
	}
	return *v, true
}

// AttrKeys 按字典序返回属性键
func (r *Record) AttrKeys() []string {
	keys := make([]string, 0, len(r.Attributes))
	for k := range r.Attributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func newRecord(row Row) (*Record, error) {
	if row.GeomErr != nil {
		return nil, &GeometryError{ID: row.ID, Reason: row.GeomErr.Error()}
	}
	if len(row.Rings) == 0 || len(row.Rings[0]) == 0 {
		return nil, &GeometryError{ID: row.ID, Reason: "empty geometry"}
	}
	poly := geo.Polygon{Outer: cloneRing(row.Rings[0])}
	for _, h := range row.Rings[1:] {
		poly.Holes = append(poly.Holes, cloneRing(h))
	}
	if err := geo.ValidatePolygon(poly); err != nil {
		return nil, &GeometryError{ID: row.ID, Reason: err.Error()}
	}
	attrs := make(map[string]*string, len(row.Attributes))
	for k, v := range row.Attributes {
		if v == nil {
			attrs[k] = nil
			continue
		}
		s := *v
		attrs[k] = &s
	}
	return &Record{
		ID:         row.ID,
		Attributes: attrs,
		Polygon:    poly,
		BBox:       geo.BoundingBox(poly),
		Centroid:   geo.RepresentativePoint(poly.Outer),
	}, nil
}

func cloneRing(r []geo.Point) geo.Ring {
	out := make(geo.Ring, len(r))
	copy(out, r)
	return out
}
