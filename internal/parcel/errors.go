package parcel

import "fmt"

// GeometryError：单行几何不合法；入库时跳过该行并记录告警，不中止整体加载
type GeometryError struct {
	ID     int64
	Reason string
}

func (e *GeometryError) Error() string {
	return fmt.Sprintf("parcel %d: invalid geometry: %s", e.ID, e.Reason)
}

// DuplicateIDError：id 重复；标识唯一性是全库约束，整体加载失败
type DuplicateIDError struct {
	ID int64
}

func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("parcel %d: duplicate id", e.ID)
}
