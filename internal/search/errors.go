package search

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidCoordinate = errors.New("invalid coordinate")
	ErrInvalidRadius     = errors.New("invalid radius")
	ErrInvalidPage       = errors.New("invalid page parameters")
)

// ValidationError：调用方输入不合法；总是返回给调用方，不在内部重试
type ValidationError struct {
	Field string
	Value float64
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s=%v", e.Err, e.Field, e.Value)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// 文档注释：索引与存储失去同步
// 背景：构建后二者只读，正常情况下不会出现；一旦出现属于编程错误，记录后终止。
type InvariantError struct {
	Msg string
}

func (e *InvariantError) Error() string { return "internal invariant violated: " + e.Msg }
