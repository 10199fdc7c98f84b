// 包 search：查询引擎，组合空间索引 + 地块存储 + 几何内核，提供按 id、点包含、半径三类只读查询
package search

import (
	"fmt"
	"math"

	"parcel-api/internal/geo"
	"parcel-api/internal/logger"
	"parcel-api/internal/metrics"
	"parcel-api/internal/parcel"
	"parcel-api/internal/spatial"
)

// DefaultMaxRadiusMeters 半径上限（1000 km），超出直接拒绝而非截断
const DefaultMaxRadiusMeters = 1000 * 1000.0

type Options struct {
	MaxRadiusMeters float64
}

// 文档注释：查询引擎
// 背景：索引独占 Entry，存储独占 Record，引擎仅按 id 持有二者的非拥有引用；构建完成后全部只读。
// 约束：三类查询均为纯读，可被任意数量的 goroutine 并发调用，无锁。
type Engine struct {
	store     *parcel.Store
	index     *spatial.Index
	maxRadius float64
}

// RadiusPage：半径查询的一页结果与总数
type RadiusPage struct {
	Records    []*parcel.Record
	Total      int
	Page       int
	PageSize   int
	TotalPages int
}

// 文档注释：由存储构建索引并创建引擎
// 异常：索引与存储的 id 集合不一致时返回 *InvariantError，此时不产生可用引擎。
func New(store *parcel.Store, opts Options) (*Engine, error) {
	if opts.MaxRadiusMeters <= 0 {
		opts.MaxRadiusMeters = DefaultMaxRadiusMeters
	}
	idx := spatial.Build(store.Entries())
	if err := checkBijection(store, idx); err != nil {
		logger.L().Error("engine_invariant_error", "err", err)
		return nil, err
	}
	logger.L().Info("engine_ready", "records", store.Len(), "max_radius_m", opts.MaxRadiusMeters)
	return &Engine{store: store, index: idx, maxRadius: opts.MaxRadiusMeters}, nil
}

func checkBijection(store *parcel.Store, idx *spatial.Index) error {
	if idx.Len() != store.Len() {
		return &InvariantError{Msg: fmt.Sprintf("index has %d entries, store has %d records", idx.Len(), store.Len())}
	}
	for _, e := range idx.Entries() {
		r, ok := store.Get(e.ID)
		if !ok {
			return &InvariantError{Msg: fmt.Sprintf("index entry %d has no record", e.ID)}
		}
		if r.BBox != e.BBox {
			return &InvariantError{Msg: fmt.Sprintf("index entry %d bbox differs from record", e.ID)}
		}
	}
	return nil
}

// Store 返回底层存储（只读）
func (e *Engine) Store() *parcel.Store { return e.store }

// MaxRadiusMeters 当前半径上限
func (e *Engine) MaxRadiusMeters() float64 { return e.maxRadius }

// FindByID 按 id 查询；不存在时返回 false，不视为错误
func (e *Engine) FindByID(id int64) (*parcel.Record, bool) {
	return e.store.Get(id)
}

// 文档注释：点包含查询
// 背景：索引给出包围盒候选，再逐个做点面精确判定。
// 返回：按 id 升序的命中记录；无命中时为空切片而非错误。
func (e *Engine) FindContainingPoint(pt geo.Point) ([]*parcel.Record, error) {
	if err := validatePoint(pt); err != nil {
		return nil, err
	}
	cand := e.index.Query(pt)
	metrics.Candidates.WithLabelValues("point").Observe(float64(len(cand)))
	out := make([]*parcel.Record, 0, len(cand))
	for _, id := range cand {
		r := e.mustGet(id)
		if geo.PointInPolygon(pt, r.Polygon) {
			out = append(out, r)
		}
	}
	return out, nil
}

// 文档注释：半径查询（分页）
// 背景：索引按圆盘粗筛，再以中心到地块质心的球面距离精确判定；全量命中集按 id 升序后切页，保证分页稳定可复现。
// 约束：radiusMeters 须 > 0 且不超过上限；page ≥ 1，1 ≤ pageSize ≤ MaxPageSize；偏移越界返回空页。
func (e *Engine) FindWithinRadius(center geo.Point, radiusMeters float64, page, pageSize int) (RadiusPage, error) {
	if err := validatePoint(center); err != nil {
		return RadiusPage{}, err
	}
	if math.IsNaN(radiusMeters) || radiusMeters <= 0 || radiusMeters > e.maxRadius {
		return RadiusPage{}, &ValidationError{Field: "radius", Value: radiusMeters, Err: ErrInvalidRadius}
	}
	if err := validatePage(page, pageSize); err != nil {
		return RadiusPage{}, err
	}
	cand := e.index.QueryDisc(center, radiusMeters)
	metrics.Candidates.WithLabelValues("radius").Observe(float64(len(cand)))
	// cand 已按 id 升序，过滤后顺序保持
	matched := make([]*parcel.Record, 0, len(cand))
	for _, id := range cand {
		r := e.mustGet(id)
		if geo.GreatCircleDistanceMeters(center, r.Centroid) <= radiusMeters {
			matched = append(matched, r)
		}
	}
	offset, totalPages := Pagination(len(matched), page, pageSize)
	res := RadiusPage{Total: len(matched), Page: page, PageSize: pageSize, TotalPages: totalPages, Records: []*parcel.Record{}}
	if offset < len(matched) {
		end := len(matched)
		if pageSize < end-offset {
			end = offset + pageSize
		}
		res.Records = matched[offset:end]
	}
	return res, nil
}

// mustGet 索引中的 id 必然存在于存储；否则为不可恢复的同步错误
func (e *Engine) mustGet(id int64) *parcel.Record {
	r, ok := e.store.Get(id)
	if !ok {
		err := &InvariantError{Msg: fmt.Sprintf("index returned id %d missing from store", id)}
		logger.L().Error("engine_invariant_error", "err", err)
		panic(err)
	}
	return r
}

func validatePoint(pt geo.Point) error {
	if math.IsNaN(pt.Lat) || pt.Lat < -90 || pt.Lat > 90 {
		return &ValidationError{Field: "latitude", Value: pt.Lat, Err: ErrInvalidCoordinate}
	}
	if math.IsNaN(pt.Lon) || pt.Lon < -180 || pt.Lon > 180 {
		return &ValidationError{Field: "longitude", Value: pt.Lon, Err: ErrInvalidCoordinate}
	}
	return nil
}
