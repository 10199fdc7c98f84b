// 包 spatial：地块外包框 R 树，在精确几何判定前裁剪候选集
// 约束：一次性批量构建，构建后只读，多协程并发查询无需加锁；更新只能整体重建
package spatial

import (
	"sort"

	"github.com/dhconnelly/rtreego"

	"parcel-api/internal/geo"
)

const (
	// 节点扇出
	minChildren = 25
	maxChildren = 50

	// rtreego.NewRect 要求各维长度 > 0；外扩后边界接触也计为命中
	pad = 1e-9
)

// Entry：索引条目（地块 id + 外包框）
type Entry struct {
	ID   int64
	BBox geo.BBox
}

// Bounds 实现 rtreego.Spatial
func (e Entry) Bounds() rtreego.Rect {
	return toRect(e.BBox)
}

// 文档注释：只读空间索引
// 背景：替代数据库空间算子，按外包框返回候选 id；精确判定由查询引擎完成。
type Index struct {
	rtree *rtreego.Rtree
	size  int
}

// Build 由全量条目批量装载（STR）
func Build(entries []Entry) *Index {
	objs := make([]rtreego.Spatial, len(entries))
	for i, e := range entries {
		objs[i] = e
	}
	return &Index{
		rtree: rtreego.NewTree(2, minChildren, maxChildren, objs...),
		size:  len(entries),
	}
}

// Len 条目数
func (idx *Index) Len() int { return idx.size }

// Query：外包框包含 pt 的全部 id（升序）
func (idx *Index) Query(pt geo.Point) []int64 {
	window := geo.BBox{MinLon: pt.Lon, MinLat: pt.Lat, MaxLon: pt.Lon, MaxLat: pt.Lat}
	return idx.search([]geo.BBox{window}, func(e Entry) bool { return e.BBox.Contains(pt) })
}

// 文档注释：圆盘候选查询
// 背景：按圆盘外接窗口检索（跨 180° 经线时拆分），再以 BBoxIntersectsDisc 过滤。
// 约束：结果只会多不会少；id 升序。
func (idx *Index) QueryDisc(center geo.Point, radiusMeters float64) []int64 {
	return idx.search(geo.DiscWindows(center, radiusMeters), func(e Entry) bool {
		return geo.BBoxIntersectsDisc(e.BBox, center, radiusMeters)
	})
}

// Entries 全部条目，按 id 升序
func (idx *Index) Entries() []Entry {
	out := make([]Entry, 0, idx.size)
	if idx.size == 0 {
		return out
	}
	all := idx.rtree.SearchIntersect(toRect(geo.BBox{MinLon: -180, MinLat: -90, MaxLon: 180, MaxLat: 90}))
	for _, s := range all {
		out = append(out, s.(Entry))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (idx *Index) search(windows []geo.BBox, keep func(Entry) bool) []int64 {
	if idx.size == 0 {
		return nil
	}
	seen := make(map[int64]struct{})
	var ids []int64
	for _, w := range windows {
		for _, s := range idx.rtree.SearchIntersect(toRect(w)) {
			e := s.(Entry)
			if _, dup := seen[e.ID]; dup {
				continue
			}
			seen[e.ID] = struct{}{}
			if keep(e) {
				ids = append(ids, e.ID)
			}
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// toRect 外包框转 R 树矩形，四周外扩 pad
func toRect(b geo.BBox) rtreego.Rect {
	point := rtreego.Point{b.MinLon - pad, b.MinLat - pad}
	lengths := []float64{
		b.MaxLon - b.MinLon + 2*pad,
		b.MaxLat - b.MinLat + 2*pad,
	}
	rect, _ := rtreego.NewRect(point, lengths)
	return rect
}
