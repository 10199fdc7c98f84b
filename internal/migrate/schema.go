package migrate

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"parcel-api/internal/logger"
)

// 背景：首次运行自动创建地块表与索引（GiST 空间索引 + 常用过滤列索引），保障种子写入与查询
// 约束：使用 IF NOT EXISTS 避免与既有结构冲突；仅创建最小必需结构；需要 PostGIS 扩展
func EnsureSchema(ctx context.Context, db *sql.DB, table string) error {
	t := pq.QuoteIdentifier(table)
	idx := func(suffix string) string { return pq.QuoteIdentifier("idx_" + table + "_" + suffix) }
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS postgis`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
            gid INTEGER PRIMARY KEY,
            cod_tema VARCHAR(254),
            nom_tema VARCHAR(254),
            cod_imovel VARCHAR(254),
            mod_fiscal VARCHAR(254),
            num_area VARCHAR(254),
            ind_status VARCHAR(254),
            ind_tipo VARCHAR(254),
            des_condic VARCHAR(254),
            municipio VARCHAR(254),
            cod_estado VARCHAR(254),
            dat_criaca VARCHAR(254),
            dat_atuali VARCHAR(254),
            geom geometry(MULTIPOLYGON, 4326)
        )`, t),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s USING gist (geom)`, idx("geom"), t),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (cod_imovel)`, idx("cod_imovel"), t),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (ind_status)`, idx("ind_status"), t),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (municipio, cod_estado)`, idx("municipio_estado"), t),
	}
	for i, s := range stmts {
		logger.L().Debug("schema_exec", "idx", i)
		if _, err := db.ExecContext(ctx, s); err != nil {
			return err
		}
	}
	logger.L().Debug("schema_done", "table", table)
	return nil
}
