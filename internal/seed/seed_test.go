package seed

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkbhex"
	"github.com/twpayne/go-geom/encoding/wkb"

	"parcel-api/internal/geo"
	"parcel-api/internal/parcel"
)

var unitSquare = [][]geom.Coord{{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}, {-1, -1}}}

func hexMultiPolygon(t *testing.T, parts ...[][]geom.Coord) string {
	t.Helper()
	mp := geom.NewMultiPolygon(geom.XY).MustSetCoords(parts).SetSRID(SRID)
	s, err := ewkbhex.Encode(mp, binary.LittleEndian)
	require.NoError(t, err)
	return s
}

func TestRepairJSON(t *testing.T) {
	in := `[{"a": 1, "b": [1, 2, ],
	},
]`
	assert.Equal(t, "[{\"a\": 1, \"b\": [1, 2 ]\n\t}\n]", string(RepairJSON([]byte(in))))
}

func TestReadSeedArray(t *testing.T) {
	hex := hexMultiPolygon(t, unitSquare)
	doc := fmt.Sprintf(`[
  {"gid": 9999, "cod_imovel": "CODE123", "num_area": 12.5, "ind_status": null, "municipio": "Sorriso", "geom": "%s",},
  {"gid": "10", "cod_imovel": "B", "geom": "%s"},
]`, hex, hex)
	rows, err := Read(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, rows, 2)

	r := rows[0]
	assert.Equal(t, int64(9999), r.ID)
	require.NoError(t, r.GeomErr)
	require.Len(t, r.Rings, 1)
	assert.Equal(t, geo.Point{Lon: -1, Lat: -1}, r.Rings[0][0])
	assert.Equal(t, geo.Point{Lon: 1, Lat: -1}, r.Rings[0][1])
	assert.Equal(t, "CODE123", *r.Attributes["cod_imovel"])
	assert.Equal(t, "12.5", *r.Attributes["num_area"])
	v, ok := r.Attributes["ind_status"]
	assert.True(t, ok)
	assert.Nil(t, v)
	assert.NotContains(t, r.Attributes, "gid")
	assert.NotContains(t, r.Attributes, "geom")

	assert.Equal(t, int64(10), rows[1].ID)
}

func TestReadSeedArrayGeometryErrorsStayPerRow(t *testing.T) {
	two := hexMultiPolygon(t, unitSquare, [][]geom.Coord{{{5, 5}, {6, 5}, {6, 6}, {5, 5}}})
	doc := fmt.Sprintf(`[
  {"gid": 1, "geom": "%s"},
  {"gid": 2, "geom": "zz-not-hex"},
  {"gid": 3},
  {"gid": 4, "geom": "%s"}
]`, two, hexMultiPolygon(t, unitSquare))
	rows, err := Read(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.ErrorContains(t, rows[0].GeomErr, "2 parts")
	assert.ErrorContains(t, rows[1].GeomErr, "decode ewkb")
	assert.ErrorContains(t, rows[2].GeomErr, "missing geometry")
	assert.NoError(t, rows[3].GeomErr)

	st, err := parcel.Load(rows)
	require.NoError(t, err)
	assert.Equal(t, 1, st.Len())
	assert.Len(t, st.Warnings(), 3)
}

func TestReadSeedArrayBadID(t *testing.T) {
	_, err := Read(strings.NewReader(`[{"gid": 1.5, "geom": ""}]`))
	assert.Error(t, err)
	_, err = Read(strings.NewReader(`[{"cod_imovel": "x"}]`))
	assert.ErrorContains(t, err, "missing id")
}

func TestReadSeedArrayInlineGeoJSON(t *testing.T) {
	doc := `[{"gid": 5, "geometry": {"type": "Polygon", "coordinates": [[[0,0],[2,0],[2,2],[0,2],[0,0]]]}}]`
	rows, err := Read(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.NoError(t, rows[0].GeomErr)
	assert.Len(t, rows[0].Rings[0], 5)
}

func TestReadGeoJSONFeatureCollection(t *testing.T) {
	doc := `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature",
     "geometry": {"type": "Polygon", "coordinates": [[[0,0],[4,0],[4,4],[0,4],[0,0]],[[1,1],[1,2],[2,2],[2,1],[1,1]]]},
     "properties": {"gid": 7, "municipio": "Lucas", "area": 3, "flag": true, "tags": ["a"]}},
    {"type": "Feature",
     "geometry": {"type": "MultiPolygon", "coordinates": [[[[10,10],[11,10],[11,11],[10,11],[10,10]]]]},
     "properties": {"id": "8"}},
  ]
}`
	rows, err := Read(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, int64(7), rows[0].ID)
	require.NoError(t, rows[0].GeomErr)
	assert.Len(t, rows[0].Rings, 2, "outer ring and one hole")
	assert.Equal(t, "Lucas", *rows[0].Attributes["municipio"])
	assert.Equal(t, "3", *rows[0].Attributes["area"])
	assert.Equal(t, "true", *rows[0].Attributes["flag"])
	assert.Equal(t, `["a"]`, *rows[0].Attributes["tags"])
	assert.NotContains(t, rows[0].Attributes, "gid")

	assert.Equal(t, int64(8), rows[1].ID)
	require.NoError(t, rows[1].GeomErr)
	assert.Equal(t, geo.Point{Lon: 10, Lat: 10}, rows[1].Rings[0][0])
}

func TestReadRejectsUnknownDocuments(t *testing.T) {
	_, err := Read(strings.NewReader(""))
	assert.Error(t, err)
	_, err = Read(strings.NewReader(`"hello"`))
	assert.Error(t, err)
	_, err = Read(strings.NewReader(`{"type": "Point", "coordinates": [0, 0]}`))
	assert.ErrorContains(t, err, "unsupported geojson type")
	_, err = Read(strings.NewReader(`[{"gid": 1,`))
	assert.Error(t, err)
}

func TestReadFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "seeds.json")
	require.NoError(t, os.WriteFile(p, []byte(fmt.Sprintf(`[{"gid": 1, "geom": "%s"},]`, hexMultiPolygon(t, unitSquare))), 0o644))
	rows, err := ReadFile(p)
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	_, err = ReadFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestRingsFromGeom(t *testing.T) {
	poly := geom.NewPolygon(geom.XY).MustSetCoords(unitSquare)
	rings, err := ringsFromGeom(poly)
	require.NoError(t, err)
	assert.Len(t, rings[0], 5)

	_, err = ringsFromGeom(geom.NewPoint(geom.XY).MustSetCoords(geom.Coord{1, 2}))
	assert.ErrorContains(t, err, "unsupported geometry type")

	_, err = ringsFromGeom(geom.NewPolygon(geom.XY).MustSetCoords(unitSquare).SetSRID(3857))
	assert.ErrorContains(t, err, "unsupported srid")

	_, err = ringsFromGeom(nil)
	assert.Error(t, err)
}

func TestGeomFromRingsRoundTrip(t *testing.T) {
	rings := [][]geo.Point{
		{{Lon: 0, Lat: 0}, {Lon: 3, Lat: 0}, {Lon: 3, Lat: 3}, {Lon: 0, Lat: 3}, {Lon: 0, Lat: 0}},
		{{Lon: 1, Lat: 1}, {Lon: 1, Lat: 2}, {Lon: 2, Lat: 2}, {Lon: 1, Lat: 1}},
	}
	mp, err := geomFromRings(rings)
	require.NoError(t, err)
	assert.Equal(t, SRID, mp.SRID())
	assert.Equal(t, 1, mp.NumPolygons())
	back, err := ringsFromGeom(mp)
	require.NoError(t, err)
	assert.Equal(t, rings, back)
}

func TestRowFromColumns(t *testing.T) {
	b, err := wkb.Marshal(geom.NewMultiPolygon(geom.XY).MustSetCoords([][][]geom.Coord{unitSquare}), binary.LittleEndian)
	require.NoError(t, err)
	attrs := make([]sql.NullString, len(Columns))
	attrs[2] = sql.NullString{String: "CODE123", Valid: true}

	row := rowFromColumns(9999, attrs, b)
	assert.Equal(t, int64(9999), row.ID)
	require.NoError(t, row.GeomErr)
	assert.Len(t, row.Attributes, len(Columns))
	assert.Equal(t, "CODE123", *row.Attributes["cod_imovel"])
	assert.Nil(t, row.Attributes["municipio"])

	assert.ErrorContains(t, rowFromColumns(1, attrs, nil).GeomErr, "missing geometry")
	assert.ErrorContains(t, rowFromColumns(1, attrs, []byte{1, 2, 3}).GeomErr, "decode wkb")
}

func TestInsertArgs(t *testing.T) {
	code := "X"
	row := parcel.Row{
		ID:         3,
		Rings:      [][]geo.Point{{{Lon: 0, Lat: 0}, {Lon: 1, Lat: 0}, {Lon: 1, Lat: 1}, {Lon: 0, Lat: 0}}},
		Attributes: map[string]*string{"cod_imovel": &code, "unknown": &code},
	}
	args, err := insertArgs(row)
	require.NoError(t, err)
	require.Len(t, args, len(Columns)+2)
	assert.Equal(t, int64(3), args[0])
	assert.Equal(t, "X", args[3])
	assert.Nil(t, args[1])
	_, ok := args[len(args)-1].([]byte)
	assert.True(t, ok)
}

func TestNewLoader(t *testing.T) {
	_, err := NewLoader("postgres", "", nil, "t")
	assert.Error(t, err)
	_, err = NewLoader("s3", "", nil, "t")
	assert.Error(t, err)

	p := filepath.Join(t.TempDir(), "seeds.json")
	require.NoError(t, os.WriteFile(p, []byte(fmt.Sprintf(`[{"gid": 1, "geom": "%s"}]`, hexMultiPolygon(t, unitSquare))), 0o644))
	load, err := NewLoader("file", p, nil, "")
	require.NoError(t, err)
	rows, err := load(context.Background())
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
