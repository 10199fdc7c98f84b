package seed

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkbhex"
	"github.com/twpayne/go-geom/encoding/geojson"

	"parcel-api/internal/geo"
	"parcel-api/internal/logger"
	"parcel-api/internal/parcel"
)

// 导出数据中常见的 `, }` / `, ]` 尾逗号
var trailingComma = regexp.MustCompile(`,(\s*[}\]])`)

// RepairJSON 去除对象与数组结尾的多余逗号
func RepairJSON(b []byte) []byte {
	return trailingComma.ReplaceAll(b, []byte("$1"))
}

// ReadFile 读取种子文件，见 Read
func ReadFile(path string) ([]parcel.Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	rows, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rows, nil
}

// 文档注释：解析种子数据
// 背景：支持两种格式：①对象数组，gid 为 id，geom 为十六进制 (E)WKB，其余键为属性；
// ②GeoJSON FeatureCollection/Feature，properties.gid（或 id、feature.id）为 id。
// 约束：单行几何解析失败不会中止整体解析，错误挂到 Row.GeomErr 交由加载流程跳过；
// 整体 JSON 结构错误直接返回。
func Read(r io.Reader) ([]parcel.Row, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	raw = bytes.TrimSpace(RepairJSON(raw))
	if len(raw) == 0 {
		return nil, fmt.Errorf("empty seed document")
	}
	var rows []parcel.Row
	switch raw[0] {
	case '[':
		rows, err = readSeedArray(raw)
	case '{':
		rows, err = readGeoJSON(raw)
	default:
		return nil, fmt.Errorf("unrecognised seed document")
	}
	if err != nil {
		return nil, err
	}
	logger.L().Debug("seed_read_done", "rows", len(rows))
	return rows, nil
}

func readSeedArray(raw []byte) ([]parcel.Row, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var items []map[string]any
	if err := dec.Decode(&items); err != nil {
		return nil, fmt.Errorf("parse seed array: %w", err)
	}
	rows := make([]parcel.Row, 0, len(items))
	for i, it := range items {
		id, err := toID(it["gid"])
		if err != nil {
			return nil, fmt.Errorf("seed %d: gid: %w", i, err)
		}
		row := parcel.Row{ID: id, Attributes: map[string]*string{}}
		switch {
		case it["geom"] != nil:
			row.Rings, row.GeomErr = decodeHexGeom(it["geom"])
		case it["geometry"] != nil:
			row.Rings, row.GeomErr = decodeGeoJSONGeom(it["geometry"])
		default:
			row.GeomErr = fmt.Errorf("missing geometry")
		}
		for k, v := range it {
			if k == "gid" || k == "geom" || k == "geometry" {
				continue
			}
			row.Attributes[k] = toAttr(v)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func decodeHexGeom(v any) ([][]geo.Point, error) {
	s, ok := v.(string)
	if !ok {
		return nil, fmt.Errorf("geom is %T, want hex string", v)
	}
	g, err := ewkbhex.Decode(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("decode ewkb: %w", err)
	}
	return ringsFromGeom(g)
}

func decodeGeoJSONGeom(v any) ([][]geo.Point, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var g geom.T
	if err := geojson.Unmarshal(b, &g); err != nil {
		return nil, fmt.Errorf("decode geojson: %w", err)
	}
	return ringsFromGeom(g)
}

func readGeoJSON(raw []byte) ([]parcel.Row, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, fmt.Errorf("parse geojson: %w", err)
	}
	var feats []*geojson.Feature
	switch strings.ToLower(head.Type) {
	case "featurecollection":
		var fc geojson.FeatureCollection
		if err := json.Unmarshal(raw, &fc); err != nil {
			return nil, fmt.Errorf("parse feature collection: %w", err)
		}
		feats = fc.Features
	case "feature":
		var f geojson.Feature
		if err := json.Unmarshal(raw, &f); err != nil {
			return nil, fmt.Errorf("parse feature: %w", err)
		}
		feats = []*geojson.Feature{&f}
	default:
		return nil, fmt.Errorf("unsupported geojson type %q", head.Type)
	}
	rows := make([]parcel.Row, 0, len(feats))
	for i, f := range feats {
		id, err := featureID(f)
		if err != nil {
			return nil, fmt.Errorf("feature %d: %w", i, err)
		}
		row := parcel.Row{ID: id, Attributes: map[string]*string{}}
		row.Rings, row.GeomErr = ringsFromGeom(f.Geometry)
		for k, v := range f.Properties {
			if k == "gid" || k == "id" {
				continue
			}
			row.Attributes[k] = toAttr(v)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func featureID(f *geojson.Feature) (int64, error) {
	for _, k := range []string{"gid", "id"} {
		if v, ok := f.Properties[k]; ok && v != nil {
			return toID(v)
		}
	}
	if s := fmt.Sprint(f.ID); s != "" && s != "<nil>" {
		return toID(s)
	}
	return 0, fmt.Errorf("missing id")
}

func toID(v any) (int64, error) {
	switch x := v.(type) {
	case json.Number:
		return strconv.ParseInt(x.String(), 10, 64)
	case float64:
		if x != math.Trunc(x) || math.Abs(x) > 1<<53 {
			return 0, fmt.Errorf("non-integer id %v", x)
		}
		return int64(x), nil
	case string:
		return strconv.ParseInt(strings.TrimSpace(x), 10, 64)
	case nil:
		return 0, fmt.Errorf("missing id")
	}
	return 0, fmt.Errorf("unsupported id type %T", v)
}

// toAttr 属性统一为字符串；null 保留为 nil，复合值按 JSON 文本保存
func toAttr(v any) *string {
	var s string
	switch x := v.(type) {
	case nil:
		return nil
	case string:
		s = x
	case json.Number:
		s = x.String()
	case float64:
		s = strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		s = strconv.FormatBool(x)
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return nil
		}
		s = string(b)
	}
	return &s
}
