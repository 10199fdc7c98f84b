// parcel-seed：把种子文件写入 PostGIS 地块表；表已有数据时跳过
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"time"

	"github.com/joho/godotenv"

	"parcel-api/internal/config"
	"parcel-api/internal/logger"
	"parcel-api/internal/migrate"
	"parcel-api/internal/parcel"
	"parcel-api/internal/seed"
	"parcel-api/internal/utils"
)

func main() {
	envFile := flag.String("env", "", "extra .env file to load before reading configuration")
	seedsPath := flag.String("seeds", "", "seed file (defaults to PARCEL_SEEDS_PATH)")
	table := flag.String("table", "", "target table (defaults to PARCEL_TABLE)")
	force := flag.Bool("force", false, "insert even when the table already has rows")
	flag.Parse()
	if *envFile != "" {
		_ = godotenv.Load(*envFile)
	}
	cfg, err := config.Load()
	l := logger.SetupWith(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		l.Error("config_error", "err", err)
		os.Exit(1)
	}
	if *seedsPath != "" {
		cfg.SeedsPath = *seedsPath
	}
	if *table != "" {
		cfg.Table = *table
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()
	db, err := utils.OpenPostgresFromEnv()
	if err != nil {
		l.Error("db_open_error", "err", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := migrate.EnsureSchema(ctx, db, cfg.Table); err != nil {
		l.Error("schema_error", "err", err)
		os.Exit(1)
	}
	n, err := seed.CountRows(ctx, db, cfg.Table)
	if err != nil {
		l.Error("count_error", "err", err)
		os.Exit(1)
	}
	if n > 0 && !*force {
		l.Info("seed_skipped", "table", cfg.Table, "existing_rows", n)
		return
	}

	rows, err := seed.ReadFile(cfg.SeedsPath)
	if err != nil {
		l.Error("seed_read_error", "path", cfg.SeedsPath, "err", err)
		os.Exit(1)
	}
	// 入库前先按存储规则校验一遍：重复 gid 直接中止，避免写入半截数据
	st, err := parcel.Load(rows)
	if err != nil {
		var de *parcel.DuplicateIDError
		if errors.As(err, &de) {
			l.Error("seed_duplicate_gid", "gid", de.ID)
		} else {
			l.Error("seed_validate_error", "err", err)
		}
		os.Exit(1)
	}
	if w := len(st.Warnings()); w > 0 {
		l.Warn("seed_invalid_rows", "count", w)
	}
	written, err := seed.WriteToPostgres(ctx, db, cfg.Table, rows)
	if err != nil {
		l.Error("seed_write_error", "err", err)
		os.Exit(1)
	}
	l.Info("seed_done", "table", cfg.Table, "rows", len(rows), "written", written)
}
