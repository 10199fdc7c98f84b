package api

import (
	"encoding/json"

	"parcel-api/internal/parcel"
)

// 文档注释：查询返回结构（对外）
// 背景：属性原样平铺到顶层，latitude/longitude 为地块代表点；id 与坐标键不会被同名属性覆盖。
// 约束：NULL 属性序列化为 null；字段顺序不作保证。
type parcelJSON struct {
	rec *parcel.Record
}

func (p parcelJSON) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(p.rec.Attributes)+3)
	for k, v := range p.rec.Attributes {
		if v == nil {
			m[k] = nil
			continue
		}
		m[k] = *v
	}
	m["id"] = p.rec.ID
	m["latitude"] = p.rec.Centroid.Lat
	m["longitude"] = p.rec.Centroid.Lon
	return json.Marshal(m)
}

func toJSON(recs []*parcel.Record) []parcelJSON {
	out := make([]parcelJSON, len(recs))
	for i, r := range recs {
		out[i] = parcelJSON{rec: r}
	}
	return out
}

type pointRequest struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

type radiusRequest struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	RadiusKm  *float64 `json:"radius_km"`
	Page      *int     `json:"page"`
	PageSize  *int     `json:"page_size"`
}

// radiusResponse 同时用作 Redis 缓存的序列化形态
type radiusResponse struct {
	Count      int               `json:"count"`
	Page       int               `json:"page"`
	PageSize   int               `json:"page_size"`
	TotalPages int               `json:"total_pages"`
	RadiusKm   float64           `json:"radius_km"`
	Results    []json.RawMessage `json:"results"`
}

type errorBody struct {
	Detail string `json:"detail"`
	Type   string `json:"type"`
}

type healthBody struct {
	Status     string `json:"status"`
	Generation int64  `json:"generation"`
	Records    int    `json:"records"`
	Skipped    int    `json:"skipped"`
	BuiltAt    string `json:"built_at"`
}

type reloadBody struct {
	Generation int64 `json:"generation"`
	Records    int   `json:"records"`
	Skipped    int   `json:"skipped"`
}
