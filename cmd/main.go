// 程序入口：仅负责读取配置、初始化依赖并启动服务；API 注册在 internal/api 以便扩展
package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"parcel-api/internal/api"
	"parcel-api/internal/config"
	"parcel-api/internal/logger"
	"parcel-api/internal/middleware"
	"parcel-api/internal/migrate"
	"parcel-api/internal/search"
	"parcel-api/internal/seed"
	"parcel-api/internal/utils"
)

func main() {
	cfg, err := config.Load()
	// 日志初始化：即便配置有误也先按已读到的级别输出
	l := logger.SetupWith(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		l.Error("config_error", "err", err)
		os.Exit(1)
	}
	l.Debug("log_init_ok")
	l.Debug("config_api_base", "base", cfg.APIBase)

	var db *sql.DB
	// fatal 退出前释放连接池；os.Exit 不会执行 defer
	fatal := func(msg string, args ...any) {
		l.Error(msg, args...)
		if db != nil {
			_ = db.Close()
		}
		os.Exit(1)
	}
	if cfg.Source == "postgres" {
		db, err = utils.OpenPostgresFromEnv()
		if err != nil {
			fatal("db_open_error", "err", err)
		}
		if err := db.Ping(); err != nil {
			fatal("db_ping_error", "err", err)
		}
		l.Info("db_ping_ok")
		if err := migrate.EnsureSchema(context.Background(), db, cfg.Table); err != nil {
			fatal("schema_error", "err", err)
		}
	}

	var rc *redis.Client
	if cfg.RedisEnable {
		rc = utils.OpenRedisFromEnv()
		if err := rc.Ping(context.Background()).Err(); err != nil {
			// 背景：缓存不可用不影响查询正确性，降级为不缓存
			l.Error("redis_ping_error", "err", err)
			rc = nil
		} else {
			l.Info("redis_ping_ok")
		}
	} else {
		l.Info("redis_disabled")
	}

	load, err := seed.NewLoader(cfg.Source, cfg.SeedsPath, db, cfg.Table)
	if err != nil {
		fatal("source_error", "err", err)
	}
	holder := api.NewHolder(load, search.Options{MaxRadiusMeters: cfg.MaxRadiusKm * 1000})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	snap, err := holder.Reload(ctx)
	cancel()
	if err != nil {
		fatal("initial_load_error", "source", cfg.Source, "err", err)
	}
	l.Info("initial_load_ok", "source", cfg.Source, "records", snap.Engine.Store().Len(), "skipped", len(snap.Engine.Store().Warnings()))

	srv := api.NewServer(holder, api.Options{
		Redis:          rc,
		PointCache:     api.NewLRU(cfg.PointCacheSize, cfg.PointCacheTTLS),
		RadiusCacheTTL: time.Duration(cfg.RadiusCacheTTLS) * time.Second,
		AdminToken:     cfg.AdminToken,
	})
	var handler http.Handler = srv.Routes(cfg.APIBase)
	handler = logger.AccessMiddleware(l)(handler)
	handler = middleware.Wrap(handler, cfg.RateLimitEnabled, cfg.RateLimitQPS)
	s := &http.Server{Addr: cfg.Addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	listen := func() error {
		l.Info("listening", "addr", cfg.Addr)
		return s.ListenAndServe()
	}
	if cfg.TLSEnable {
		if err := utils.EnsureSelfSignedCert(cfg.TLSCertPath, cfg.TLSKeyPath, "parcel-api.local"); err != nil {
			fatal("tls_cert_error", "err", err)
		}
		listen = func() error {
			l.Info("listening_tls", "addr", cfg.Addr, "cert", cfg.TLSCertPath)
			return s.ListenAndServeTLS(cfg.TLSCertPath, cfg.TLSKeyPath)
		}
	}
	if err := serve(s, listen, sig, 10*time.Second); err != nil {
		fatal("server_error", "err", err)
	}
	if db != nil {
		_ = db.Close()
	}
	l.Info("shutdown_done")
}

// 文档注释：运行服务直到收到停止信号
// 背景：Shutdown 一开始 listen 就返回 http.ErrServerClosed，此时在途请求仍在处理。
// 约束：必须等 Shutdown 返回（请求排空或超时）后才返回，否则进程退出会截断响应。
func serve(s *http.Server, listen func() error, stop <-chan os.Signal, timeout time.Duration) error {
	done := make(chan error, 1)
	go func() {
		<-stop
		logger.L().Info("shutdown_begin")
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		done <- s.Shutdown(ctx)
	}()
	if err := listen(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return <-done
}
