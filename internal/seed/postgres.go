package seed

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/twpayne/go-geom/encoding/ewkb"
	"github.com/twpayne/go-geom/encoding/wkb"

	"parcel-api/internal/logger"
	"parcel-api/internal/parcel"
)

// Columns 地块表的属性列（gid 与 geom 之外）
var Columns = []string{
	"cod_tema", "nom_tema", "cod_imovel", "mod_fiscal", "num_area", "ind_status",
	"ind_tipo", "des_condic", "municipio", "cod_estado", "dat_criaca", "dat_atuali",
}

func quotedColumns() string {
	qs := make([]string, len(Columns))
	for i, c := range Columns {
		qs[i] = pq.QuoteIdentifier(c)
	}
	return strings.Join(qs, ", ")
}

// 文档注释：从 PostGIS 表读取全部地块行
// 背景：几何以 ST_AsBinary 取出 WKB，在进程内解码；按 gid 排序保证每次构建输入一致。
// 异常：查询/扫描错误直接返回；单行几何解码失败挂到 Row.GeomErr。
func LoadFromPostgres(ctx context.Context, db *sql.DB, table string) ([]parcel.Row, error) {
	q := fmt.Sprintf("SELECT gid, %s, ST_AsBinary(geom) FROM %s ORDER BY gid", quotedColumns(), pq.QuoteIdentifier(table))
	logger.L().Debug("seed_pg_query", "table", table)
	rs, err := db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rs.Close()
	var rows []parcel.Row
	for rs.Next() {
		var gid int64
		attrs := make([]sql.NullString, len(Columns))
		var g []byte
		dst := make([]any, 0, len(Columns)+2)
		dst = append(dst, &gid)
		for i := range attrs {
			dst = append(dst, &attrs[i])
		}
		dst = append(dst, &g)
		if err := rs.Scan(dst...); err != nil {
			return nil, err
		}
		rows = append(rows, rowFromColumns(gid, attrs, g))
	}
	if err := rs.Err(); err != nil {
		return nil, err
	}
	logger.L().Info("seed_pg_done", "table", table, "rows", len(rows))
	return rows, nil
}

func rowFromColumns(gid int64, attrs []sql.NullString, wkbBytes []byte) parcel.Row {
	row := parcel.Row{ID: gid, Attributes: make(map[string]*string, len(Columns))}
	for i, c := range Columns {
		if i < len(attrs) && attrs[i].Valid {
			s := attrs[i].String
			row.Attributes[c] = &s
		} else {
			row.Attributes[c] = nil
		}
	}
	if len(wkbBytes) == 0 {
		row.GeomErr = fmt.Errorf("missing geometry")
		return row
	}
	g, err := wkb.Unmarshal(wkbBytes)
	if err != nil {
		row.GeomErr = fmt.Errorf("decode wkb: %w", err)
		return row
	}
	row.Rings, row.GeomErr = ringsFromGeom(g)
	return row
}

// CountRows 表内已有行数
func CountRows(ctx context.Context, db *sql.DB, table string) (int64, error) {
	var n int64
	err := db.QueryRowContext(ctx, "SELECT COUNT(1) FROM "+pq.QuoteIdentifier(table)).Scan(&n)
	return n, err
}

// 文档注释：批量写入地块到 PostGIS
// 背景：一次事务写入全部合法行，失败整体回滚；几何以 EWKB（SRID 4326）传入 ST_GeomFromEWKB。
// 约束：已带几何错误的行跳过；属性只写入 Columns 中的列。
func WriteToPostgres(ctx context.Context, db *sql.DB, table string, rows []parcel.Row) (int, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()
	ph := make([]string, 0, len(Columns)+2)
	for i := 1; i <= len(Columns)+1; i++ {
		ph = append(ph, fmt.Sprintf("$%d", i))
	}
	ph = append(ph, fmt.Sprintf("ST_GeomFromEWKB($%d)", len(Columns)+2))
	q := fmt.Sprintf("INSERT INTO %s (gid, %s, geom) VALUES (%s)", pq.QuoteIdentifier(table), quotedColumns(), strings.Join(ph, ", "))
	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()
	n := 0
	for _, row := range rows {
		if row.GeomErr != nil {
			logger.L().Warn("seed_pg_row_skipped", "id", row.ID, "err", row.GeomErr)
			continue
		}
		args, err := insertArgs(row)
		if err != nil {
			logger.L().Warn("seed_pg_row_skipped", "id", row.ID, "err", err)
			continue
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return 0, fmt.Errorf("insert gid %d: %w", row.ID, err)
		}
		n++
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return n, nil
}

func insertArgs(row parcel.Row) ([]any, error) {
	mp, err := geomFromRings(row.Rings)
	if err != nil {
		return nil, err
	}
	b, err := ewkb.Marshal(mp, binary.LittleEndian)
	if err != nil {
		return nil, err
	}
	args := make([]any, 0, len(Columns)+2)
	args = append(args, row.ID)
	for _, c := range Columns {
		if v := row.Attributes[c]; v != nil {
			args = append(args, *v)
		} else {
			args = append(args, nil)
		}
	}
	return append(args, b), nil
}
