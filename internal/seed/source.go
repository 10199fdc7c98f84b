package seed

import (
	"context"
	"database/sql"
	"fmt"

	"parcel-api/internal/parcel"
)

// 文档注释：按数据源类型返回行读取函数
// 背景：file 读取种子文件（每次调用重新读盘，供热重载使用）；postgres 读取地块表。
// 异常：未知类型或 postgres 缺少连接时返回 error。
func NewLoader(source, path string, db *sql.DB, table string) (func(context.Context) ([]parcel.Row, error), error) {
	switch source {
	case "file":
		return func(context.Context) ([]parcel.Row, error) { return ReadFile(path) }, nil
	case "postgres":
		if db == nil {
			return nil, fmt.Errorf("postgres source requires a database connection")
		}
		return func(ctx context.Context) ([]parcel.Row, error) { return LoadFromPostgres(ctx, db, table) }, nil
	}
	return nil, fmt.Errorf("unknown parcel source %q", source)
}
