package utils

import (
	"os"
	"strconv"

	"github.com/redis/go-redis/v9"

	"parcel-api/internal/logger"
)

// 文档注释：从环境变量打开 Redis 客户端
// 背景：仅用于半径查询分页结果缓存（键形如 parcel:radius:<代数>:...），缓存不可用时服务降级为直查引擎。
// 约束：REDIS_HOST/REDIS_PORT 缺省为 127.0.0.1:6379；REDIS_DB 解析失败或为负时回退到 0
func OpenRedisFromEnv() *redis.Client {
	host := os.Getenv("REDIS_HOST")
	if host == "" {
		host = "127.0.0.1"
	}
	port := os.Getenv("REDIS_PORT")
	if port == "" {
		port = "6379"
	}
	addr := host + ":" + port
	db := 0
	if v := os.Getenv("REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			db = n
		}
	}
	logger.L().Debug("redis_env", "addr", addr, "db", db)
	return redis.NewClient(&redis.Options{Addr: addr, Password: os.Getenv("REDIS_PASS"), DB: db})
}
