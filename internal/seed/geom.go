// 包 seed：外部地块数据源（种子 JSON / GeoJSON / PostGIS 表）到 parcel.Row 的解析与回写
package seed

import (
	"fmt"

	"github.com/twpayne/go-geom"

	"parcel-api/internal/geo"
)

// SRID 固定为 WGS84
const SRID = 4326

// 文档注释：go-geom 几何转换为外环 + 洞
// 背景：原始数据列为 MULTIPOLYGON；单部件多面直接展开为多边形。
// 约束：多部件多面不在支持范围内，返回错误由加载流程按几何错误跳过。
func ringsFromGeom(g geom.T) ([][]geo.Point, error) {
	var coords [][]geom.Coord
	switch t := g.(type) {
	case *geom.Polygon:
		coords = t.Coords()
	case *geom.MultiPolygon:
		if n := t.NumPolygons(); n != 1 {
			return nil, fmt.Errorf("multipolygon with %d parts is not supported", n)
		}
		coords = t.Coords()[0]
	case nil:
		return nil, fmt.Errorf("missing geometry")
	default:
		return nil, fmt.Errorf("unsupported geometry type %T", g)
	}
	if srid := g.SRID(); srid != 0 && srid != SRID {
		return nil, fmt.Errorf("unsupported srid %d", srid)
	}
	rings := make([][]geo.Point, 0, len(coords))
	for _, rc := range coords {
		ring := make([]geo.Point, 0, len(rc))
		for _, c := range rc {
			ring = append(ring, geo.Point{Lon: c.X(), Lat: c.Y()})
		}
		rings = append(rings, ring)
	}
	return rings, nil
}

// geomFromRings 组装为 SRID 4326 的单部件 MULTIPOLYGON，用于写回 PostGIS
func geomFromRings(rings [][]geo.Point) (*geom.MultiPolygon, error) {
	poly := make([][]geom.Coord, 0, len(rings))
	for _, r := range rings {
		rc := make([]geom.Coord, 0, len(r))
		for _, pt := range r {
			rc = append(rc, geom.Coord{pt.Lon, pt.Lat})
		}
		poly = append(poly, rc)
	}
	mp, err := geom.NewMultiPolygon(geom.XY).SetCoords([][][]geom.Coord{poly})
	if err != nil {
		return nil, err
	}
	return mp.SetSRID(SRID), nil
}
