package api

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"parcel-api/internal/logger"
	"parcel-api/internal/metrics"
	"parcel-api/internal/parcel"
	"parcel-api/internal/search"
)

// Loader 从数据源读取全部原始行（种子文件或 PostGIS 表）
type Loader func(ctx context.Context) ([]parcel.Row, error)

// Snapshot：某一代只读引擎
type Snapshot struct {
	Engine     *search.Engine
	Generation int64
}

// 文档注释：引擎持有器
// 背景：通过 atomic.Pointer 提供无锁读写切换，重建期间读路径始终拿到完整的旧快照，构建成功后才替换。
// 约束：Reload 串行执行；构建失败时保留旧快照不变。
type Holder struct {
	cur  atomic.Pointer[Snapshot]
	mu   sync.Mutex
	load Loader
	opts search.Options
}

// NewHolder 创建持有器；尚未加载前 Current 返回 nil
func NewHolder(load Loader, opts search.Options) *Holder {
	return &Holder{load: load, opts: opts}
}

// Current 当前快照（读路径）
func (h *Holder) Current() *Snapshot { return h.cur.Load() }

func (h *Holder) install(e *search.Engine) int64 {
	var gen int64 = 1
	if old := h.cur.Load(); old != nil {
		gen = old.Generation + 1
	}
	h.cur.Store(&Snapshot{Engine: e, Generation: gen})
	metrics.StoreGeneration.Set(float64(gen))
	metrics.StoreRecords.Set(float64(e.Store().Len()))
	logger.L().Info("engine_swapped", "generation", gen, "records", e.Store().Len())
	return gen
}

// 文档注释：重新读取数据源并构建引擎
// 背景：对应管理端热重载；读取、入库、建索引全部成功后再原子替换。
// 异常：数据源错误、重复 id、不变量失败均原样返回，旧快照继续服务。
func (h *Holder) Reload(ctx context.Context) (*Snapshot, error) {
	if h.load == nil {
		return nil, errors.New("no loader configured")
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	rows, err := h.load(ctx)
	if err != nil {
		logger.L().Error("reload_source_error", "err", err)
		return nil, err
	}
	e, err := BuildEngine(rows, h.opts)
	if err != nil {
		return nil, err
	}
	h.install(e)
	return h.cur.Load(), nil
}

// 文档注释：由原始行构建存储与引擎，并记录入库计数
// 异常：*parcel.DuplicateIDError 或 *search.InvariantError。
func BuildEngine(rows []parcel.Row, opts search.Options) (*search.Engine, error) {
	st, err := parcel.Load(rows)
	if err != nil {
		metrics.LoadRowsTotal.WithLabelValues("aborted").Add(float64(len(rows)))
		return nil, err
	}
	metrics.LoadRowsTotal.WithLabelValues("accepted").Add(float64(st.Len()))
	metrics.LoadRowsTotal.WithLabelValues("skipped").Add(float64(len(st.Warnings())))
	return search.New(st, opts)
}
