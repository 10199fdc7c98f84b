// 包 api：集中注册 HTTP API 路由以解耦主入口；请求在此解码、校验后交给查询引擎，结果按统一结构输出
package api

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"

	"parcel-api/internal/geo"
	"parcel-api/internal/logger"
	"parcel-api/internal/metrics"
	"parcel-api/internal/search"
)

const (
	defaultPage     = 1
	defaultPageSize = 10
)

// Options 路由依赖；Redis 与 PointCache 均可为 nil（不缓存）
type Options struct {
	Redis          *redis.Client
	PointCache     *LRU
	RadiusCacheTTL time.Duration
	AdminToken     string
}

// Server：HTTP 层状态，仅持有引擎快照的引用与缓存
type Server struct {
	holder *Holder
	opts   Options
}

func NewServer(h *Holder, opts Options) *Server {
	if opts.RadiusCacheTTL <= 0 {
		opts.RadiusCacheTTL = time.Hour
	}
	return &Server{holder: h, opts: opts}
}

// 文档注释：构建路由
// 背景：/healthz 挂在根路径供探活；查询、管理与指标端点挂在 base 前缀下。
func (s *Server) Routes(base string) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.health).Methods("GET")
	sub := r.PathPrefix(base).Subrouter()
	sub.HandleFunc("/parcels/point", s.guard("point", s.findPoint)).Methods("POST")
	sub.HandleFunc("/parcels/radius", s.guard("radius", s.findRadius)).Methods("POST")
	sub.HandleFunc("/parcels/{id}", s.guard("id", s.getParcel)).Methods("GET")
	sub.HandleFunc("/admin/reload", s.reload).Methods("POST")
	sub.Handle("/metrics", metrics.Handler()).Methods("GET")
	return r
}

// guard 统计耗时与请求数，并把查询期的不变量 panic 转为 500
func (s *Server) guard(op string, fn func(http.ResponseWriter, *http.Request, *Snapshot)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		metrics.RequestsTotal.WithLabelValues(op).Inc()
		defer func() {
			metrics.RequestDurationMs.WithLabelValues(op).Observe(float64(time.Since(start).Milliseconds()))
		}()
		defer func() {
			if v := recover(); v != nil {
				var ie *search.InvariantError
				if err, ok := v.(error); ok && errors.As(err, &ie) {
					s.writeError(w, op, ie)
					return
				}
				panic(v)
			}
		}()
		snap := s.holder.Current()
		if snap == nil {
			metrics.RequestErrorsTotal.WithLabelValues(op, "unavailable").Inc()
			writeJSON(w, http.StatusServiceUnavailable, errorBody{Detail: "parcel store not loaded", Type: "unavailable"})
			return
		}
		fn(w, r, snap)
	}
}

func (s *Server) getParcel(w http.ResponseWriter, r *http.Request, snap *Snapshot) {
	raw := mux.Vars(r)["id"]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		s.badRequest(w, "id", fmt.Sprintf("invalid parcel id %q", raw))
		return
	}
	rec, ok := snap.Engine.FindByID(id)
	if !ok {
		logger.L().Debug("parcel_not_found", "id", id)
		metrics.EmptyResultsTotal.WithLabelValues("id").Inc()
		writeJSON(w, http.StatusNotFound, errorBody{Detail: fmt.Sprintf("parcel %d not found", id), Type: "not_found"})
		return
	}
	writeJSON(w, http.StatusOK, parcelJSON{rec: rec})
}

func (s *Server) findPoint(w http.ResponseWriter, r *http.Request, snap *Snapshot) {
	var req pointRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.badRequest(w, "point", "invalid JSON body")
		return
	}
	if req.Latitude == nil || req.Longitude == nil {
		s.badRequest(w, "point", "latitude and longitude are required")
		return
	}
	pt := geo.Point{Lat: *req.Latitude, Lon: *req.Longitude}
	key := pointKey(snap.Generation, pt.Lat, pt.Lon)
	if c := s.opts.PointCache; c != nil {
		if recs, ok := c.Get(key); ok {
			metrics.CacheHitsTotal.WithLabelValues("point").Inc()
			writeJSON(w, http.StatusOK, toJSON(recs))
			return
		}
		metrics.CacheMissesTotal.WithLabelValues("point").Inc()
	}
	recs, err := snap.Engine.FindContainingPoint(pt)
	if err != nil {
		s.writeError(w, "point", err)
		return
	}
	if len(recs) == 0 {
		metrics.EmptyResultsTotal.WithLabelValues("point").Inc()
	}
	if c := s.opts.PointCache; c != nil {
		c.Set(key, recs)
	}
	logger.L().Debug("point_query", "lat", pt.Lat, "lon", pt.Lon, "hits", len(recs))
	writeJSON(w, http.StatusOK, toJSON(recs))
}

func radiusKey(gen int64, lat, lon, km float64, page, size int) string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
	return fmt.Sprintf("parcel:radius:%d:%s:%s:%s:%d:%d", gen, f(lat), f(lon), f(km), page, size)
}

func (s *Server) findRadius(w http.ResponseWriter, r *http.Request, snap *Snapshot) {
	ctx := r.Context()
	var req radiusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.badRequest(w, "radius", "invalid JSON body")
		return
	}
	if req.Latitude == nil || req.Longitude == nil || req.RadiusKm == nil {
		s.badRequest(w, "radius", "latitude, longitude and radius_km are required")
		return
	}
	page, size := defaultPage, defaultPageSize
	if req.Page != nil {
		page = *req.Page
	}
	if req.PageSize != nil {
		size = *req.PageSize
	}
	km := *req.RadiusKm
	center := geo.Point{Lat: *req.Latitude, Lon: *req.Longitude}
	key := radiusKey(snap.Generation, center.Lat, center.Lon, km, page, size)
	if rc := s.opts.Redis; rc != nil {
		if b, err := rc.Get(ctx, key).Bytes(); err == nil && len(b) > 0 {
			metrics.CacheHitsTotal.WithLabelValues("radius").Inc()
			writeRaw(w, http.StatusOK, b)
			return
		}
		metrics.CacheMissesTotal.WithLabelValues("radius").Inc()
	}
	res, err := snap.Engine.FindWithinRadius(center, km*1000, page, size)
	if err != nil {
		s.writeError(w, "radius", err)
		return
	}
	if res.Total == 0 {
		metrics.EmptyResultsTotal.WithLabelValues("radius").Inc()
	}
	out := radiusResponse{
		Count:      res.Total,
		Page:       res.Page,
		PageSize:   res.PageSize,
		TotalPages: res.TotalPages,
		RadiusKm:   km,
		Results:    make([]json.RawMessage, 0, len(res.Records)),
	}
	for _, rec := range res.Records {
		b, err := json.Marshal(parcelJSON{rec: rec})
		if err != nil {
			s.writeError(w, "radius", err)
			return
		}
		out.Results = append(out.Results, b)
	}
	b, err := json.Marshal(out)
	if err != nil {
		s.writeError(w, "radius", err)
		return
	}
	if rc := s.opts.Redis; rc != nil {
		if err := rc.Set(ctx, key, b, s.opts.RadiusCacheTTL).Err(); err != nil {
			logger.L().Warn("radius_cache_set_error", "err", err)
		}
	}
	logger.L().Debug("radius_query", "lat", center.Lat, "lon", center.Lon, "km", km, "total", res.Total, "page", page)
	writeRaw(w, http.StatusOK, b)
}

// 文档注释：管理端热重载
// 背景：重新读取数据源并原子替换引擎；需携带 x-admin-token，未配置令牌时一律拒绝。
func (s *Server) reload(w http.ResponseWriter, r *http.Request) {
	t := r.Header.Get("x-admin-token")
	if t == "" || subtle.ConstantTimeCompare([]byte(t), []byte(s.opts.AdminToken)) != 1 {
		w.WriteHeader(http.StatusForbidden)
		return
	}
	snap, err := s.holder.Reload(r.Context())
	if err != nil {
		logger.L().Error("reload_error", "err", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Detail: err.Error(), Type: "reload_error"})
		return
	}
	st := snap.Engine.Store()
	writeJSON(w, http.StatusOK, reloadBody{Generation: snap.Generation, Records: st.Len(), Skipped: len(st.Warnings())})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	snap := s.holder.Current()
	if snap == nil {
		writeJSON(w, http.StatusServiceUnavailable, healthBody{Status: "loading"})
		return
	}
	st := snap.Engine.Store()
	writeJSON(w, http.StatusOK, healthBody{
		Status:     "ok",
		Generation: snap.Generation,
		Records:    st.Len(),
		Skipped:    len(st.Warnings()),
		BuiltAt:    st.BuiltAt().UTC().Format(time.RFC3339),
	})
}

func (s *Server) badRequest(w http.ResponseWriter, op, detail string) {
	metrics.RequestErrorsTotal.WithLabelValues(op, "validation").Inc()
	logger.L().Warn("request_invalid", "op", op, "detail", detail)
	writeJSON(w, http.StatusBadRequest, errorBody{Detail: detail, Type: "validation_error"})
}

// writeError ValidationError → 400，其余 → 500
func (s *Server) writeError(w http.ResponseWriter, op string, err error) {
	var ve *search.ValidationError
	if errors.As(err, &ve) {
		s.badRequest(w, op, ve.Error())
		return
	}
	metrics.RequestErrorsTotal.WithLabelValues(op, "internal").Inc()
	logger.L().Error("request_failed", "op", op, "err", err)
	writeJSON(w, http.StatusInternalServerError, errorBody{Detail: "internal server error", Type: "internal_error"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		logger.L().Error("response_encode_error", "err", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	writeRaw(w, status, b)
}

func writeRaw(w http.ResponseWriter, status int, b []byte) {
	w.Header().Set("content-type", "application/json; charset=utf-8")
	w.Header().Set("cache-control", "no-store")
	w.WriteHeader(status)
	_, _ = w.Write(b)
}
