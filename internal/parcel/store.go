package parcel

import (
	"errors"
	"fmt"
	"iter"
	"sort"
	"time"

	"parcel-api/internal/logger"
	"parcel-api/internal/spatial"
)

// LoadWarning：被跳过的行及原因
type LoadWarning struct {
	ID  int64
	Err error
}

// 文档注释：地块存储
// 背景：独占持有全部 Record；一次性构建后只读，查询期无锁并发读取。
// 约束：仅通过 Load 构建；重建即整体替换，不支持增量更新或删除。
type Store struct {
	byID     map[int64]*Record
	ids      []int64
	warnings []LoadWarning
	builtAt  time.Time
}

// 文档注释：从原始行构建存储
// 背景：逐行校验几何并计算包围盒/质心；非法行跳过并记录告警（部分容错）。
// 异常：出现重复 id 时返回 *DuplicateIDError 且不返回任何存储，保证失败是原子的。
func Load(rows []Row) (*Store, error) {
	l := logger.L()
	s := &Store{byID: make(map[int64]*Record, len(rows))}
	seen := make(map[int64]struct{}, len(rows))
	for _, row := range rows {
		if _, dup := seen[row.ID]; dup {
			l.Error("store_duplicate_id", "id", row.ID)
			return nil, &DuplicateIDError{ID: row.ID}
		}
		seen[row.ID] = struct{}{}
		if row.ID <= 0 {
			s.warn(row.ID, fmt.Errorf("parcel %d: id must be positive", row.ID))
			continue
		}
		rec, err := newRecord(row)
		if err != nil {
			s.warn(row.ID, err)
			continue
		}
		s.byID[rec.ID] = rec
		s.ids = append(s.ids, rec.ID)
	}
	sort.Slice(s.ids, func(i, j int) bool { return s.ids[i] < s.ids[j] })
	s.builtAt = time.Now()
	l.Info("store_load_done", "rows", len(rows), "records", len(s.ids), "skipped", len(s.warnings))
	return s, nil
}

func (s *Store) warn(id int64, err error) {
	s.warnings = append(s.warnings, LoadWarning{ID: id, Err: err})
	var ge *GeometryError
	if errors.As(err, &ge) {
		logger.L().Warn("parcel_row_skipped", "id", id, "reason", ge.Reason)
		return
	}
	logger.L().Warn("parcel_row_skipped", "id", id, "err", err)
}

// Get 按 id 查询；第二个返回值为 false 表示不存在
func (s *Store) Get(id int64) (*Record, bool) {
	r, ok := s.byID[id]
	return r, ok
}

// Len 记录数
func (s *Store) Len() int { return len(s.ids) }

// All 按 id 升序遍历全部记录；可重复调用，每次从头开始
func (s *Store) All() iter.Seq[*Record] {
	return func(yield func(*Record) bool) {
		for _, id := range s.ids {
			if !yield(s.byID[id]) {
				return
			}
		}
	}
}

// Entries 生成交给空间索引构建的 (包围盒, id) 列表
func (s *Store) Entries() []spatial.Entry {
	out := make([]spatial.Entry, 0, len(s.ids))
	for r := range s.All() {
		out = append(out, spatial.Entry{ID: r.ID, BBox: r.BBox})
	}
	return out
}

// Warnings 返回加载期被跳过的行
func (s *Store) Warnings() []LoadWarning { return s.warnings }

// BuiltAt 构建完成时间
func (s *Store) BuiltAt() time.Time { return s.builtAt }
