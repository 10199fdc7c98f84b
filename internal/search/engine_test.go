package search

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parcel-api/internal/geo"
	"parcel-api/internal/parcel"
	"parcel-api/internal/spatial"
)

func squareRow(id int64, cx, cy, half float64) parcel.Row {
	code := "CODE123"
	return parcel.Row{
		ID: id,
		Rings: [][]geo.Point{{
			{Lon: cx - half, Lat: cy - half},
			{Lon: cx + half, Lat: cy - half},
			{Lon: cx + half, Lat: cy + half},
			{Lon: cx - half, Lat: cy + half},
			{Lon: cx - half, Lat: cy - half},
		}},
		Attributes: map[string]*string{"cod_imovel": &code},
	}
}

func newEngine(t *testing.T, rows ...parcel.Row) *Engine {
	t.Helper()
	st, err := parcel.Load(rows)
	require.NoError(t, err)
	e, err := New(st, Options{})
	require.NoError(t, err)
	return e
}

// gridEngine 5×5 个小方块，中心间距 0.01°，id 1..25
func gridEngine(t *testing.T) *Engine {
	var rows []parcel.Row
	id := int64(1)
	for i := 0; i < 5; i++ {
		for j := 0; j < 5; j++ {
			rows = append(rows, squareRow(id, float64(j)*0.01, float64(i)*0.01, 0.002))
			id++
		}
	}
	return newEngine(t, rows...)
}

func ids(recs []*parcel.Record) []int64 {
	out := make([]int64, len(recs))
	for i, r := range recs {
		out[i] = r.ID
	}
	return out
}

func TestFindContainingPoint(t *testing.T) {
	e := newEngine(t, squareRow(9999, 0, 0, 1))
	got, err := e.FindContainingPoint(geo.Point{Lat: 0, Lon: 0})
	require.NoError(t, err)
	assert.Equal(t, []int64{9999}, ids(got))

	got, err = e.FindContainingPoint(geo.Point{Lat: 2, Lon: 2})
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestFindContainingPointOverlapAndHole(t *testing.T) {
	holed := squareRow(1, 0, 0, 2)
	holed.Rings = append(holed.Rings, squareRow(0, 0, 0, 0.5).Rings[0])
	e := newEngine(t, holed, squareRow(2, 1, 1, 0.5), squareRow(3, 0, 0, 0.25))

	got, err := e.FindContainingPoint(geo.Point{Lat: 0, Lon: 0})
	require.NoError(t, err)
	assert.Equal(t, []int64{3}, ids(got), "inside hole of 1, inside 3")

	got, err = e.FindContainingPoint(geo.Point{Lat: 1, Lon: 1})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, ids(got))
}

func TestFindByIDRoundTrip(t *testing.T) {
	e := gridEngine(t)
	for r := range e.Store().All() {
		got, ok := e.FindByID(r.ID)
		require.True(t, ok)
		assert.Same(t, r, got)
	}
	_, ok := e.FindByID(8888)
	assert.False(t, ok)
}

func TestFindWithinRadius(t *testing.T) {
	e := newEngine(t, squareRow(9999, 0, 0, 1))
	page, err := e.FindWithinRadius(geo.Point{Lat: 0.0001, Lon: 0.0001}, 1000, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)
	assert.Equal(t, 1, page.TotalPages)
	assert.Equal(t, []int64{9999}, ids(page.Records))

	// 多边形边界在 111 km 处，质心在 222 km 处：按质心距离判定，不命中
	page, err = e.FindWithinRadius(geo.Point{Lat: 0, Lon: 2}, 150_000, 1, 10)
	require.NoError(t, err)
	assert.Zero(t, page.Total)
	assert.Zero(t, page.TotalPages)
	assert.NotNil(t, page.Records)
}

func TestFindWithinRadiusPagination(t *testing.T) {
	e := gridEngine(t)
	center := geo.Point{Lat: 0.02, Lon: 0.02}
	var all []int64
	var totalPages int
	for p := 1; ; p++ {
		page, err := e.FindWithinRadius(center, 50_000, p, 10)
		require.NoError(t, err)
		require.Equal(t, 25, page.Total)
		totalPages = page.TotalPages
		if len(page.Records) == 0 {
			break
		}
		assert.LessOrEqual(t, len(page.Records), 10)
		all = append(all, ids(page.Records)...)
	}
	assert.Equal(t, 3, totalPages)
	require.Len(t, all, 25)
	for i, id := range all {
		assert.Equal(t, int64(i+1), id)
	}

	last, err := e.FindWithinRadius(center, 50_000, 3, 10)
	require.NoError(t, err)
	assert.Len(t, last.Records, 5)

	beyond, err := e.FindWithinRadius(center, 50_000, 99, 10)
	require.NoError(t, err)
	assert.Empty(t, beyond.Records)
	assert.NotNil(t, beyond.Records)
	assert.Equal(t, 25, beyond.Total)
}

func TestFindWithinRadiusMonotonic(t *testing.T) {
	e := gridEngine(t)
	center := geo.Point{Lat: 0, Lon: 0}
	var prev map[int64]bool
	for _, r := range []float64{100, 1_000, 2_000, 3_000, 5_000, 10_000} {
		page, err := e.FindWithinRadius(center, r, 1, MaxPageSize)
		require.NoError(t, err)
		cur := map[int64]bool{}
		for _, id := range ids(page.Records) {
			cur[id] = true
		}
		for id := range prev {
			assert.True(t, cur[id], "radius %v lost id %d", r, id)
		}
		prev = cur
	}
	assert.Len(t, prev, 25)
}

func TestFindWithinRadiusDeterministic(t *testing.T) {
	e := gridEngine(t)
	center := geo.Point{Lat: 0.013, Lon: 0.027}
	first, err := e.FindWithinRadius(center, 2_500, 1, 7)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := e.FindWithinRadius(center, 2_500, 1, 7)
		require.NoError(t, err)
		assert.Equal(t, ids(first.Records), ids(again.Records))
		assert.Equal(t, first.Total, again.Total)
	}
	assert.IsIncreasing(t, ids(first.Records))
}

func TestValidationBoundaries(t *testing.T) {
	e := newEngine(t, squareRow(1, 0, 0, 1))

	_, err := e.FindContainingPoint(geo.Point{Lat: 91, Lon: 0})
	assert.ErrorIs(t, err, ErrInvalidCoordinate)
	_, err = e.FindContainingPoint(geo.Point{Lat: 0, Lon: -180.5})
	assert.ErrorIs(t, err, ErrInvalidCoordinate)
	_, err = e.FindContainingPoint(geo.Point{Lat: 90, Lon: 180})
	assert.NoError(t, err)

	tests := []struct {
		name     string
		center   geo.Point
		radius   float64
		page     int
		pageSize int
		want     error
	}{
		{"lat 91", geo.Point{Lat: 91}, 1000, 1, 10, ErrInvalidCoordinate},
		{"radius zero", geo.Point{}, 0, 1, 10, ErrInvalidRadius},
		{"radius negative", geo.Point{}, -5, 1, 10, ErrInvalidRadius},
		{"radius 1001 km", geo.Point{}, 1_001_000, 1, 10, ErrInvalidRadius},
		{"radius 1000 km", geo.Point{}, 1_000_000, 1, 10, nil},
		{"page zero", geo.Point{}, 1000, 0, 10, ErrInvalidPage},
		{"page size zero", geo.Point{}, 1000, 1, 0, ErrInvalidPage},
		{"page size 101", geo.Point{}, 1000, 1, MaxPageSize + 1, ErrInvalidPage},
		{"page size 100", geo.Point{}, 1000, 1, MaxPageSize, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.FindWithinRadius(tt.center, tt.radius, tt.page, tt.pageSize)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			var ve *ValidationError
			assert.True(t, errors.As(err, &ve))
		})
	}
}

func TestConfiguredMaxRadius(t *testing.T) {
	st, err := parcel.Load([]parcel.Row{squareRow(1, 0, 0, 1)})
	require.NoError(t, err)
	e, err := New(st, Options{MaxRadiusMeters: 5_000})
	require.NoError(t, err)
	assert.Equal(t, 5_000.0, e.MaxRadiusMeters())
	_, err = e.FindWithinRadius(geo.Point{}, 5_001, 1, 10)
	assert.ErrorIs(t, err, ErrInvalidRadius)
}

func TestPagination(t *testing.T) {
	off, pages := Pagination(25, 3, 10)
	assert.Equal(t, 20, off)
	assert.Equal(t, 3, pages)
	off, pages = Pagination(0, 1, 10)
	assert.Equal(t, 0, off)
	assert.Equal(t, 0, pages)
	_, pages = Pagination(100, 1, 100)
	assert.Equal(t, 1, pages)
}

func TestPaginationPastEnd(t *testing.T) {
	cases := []struct {
		name                 string
		total, page, size    int
		wantOffset, wantPage int
	}{
		{"next page", 25, 4, 10, 25, 3},
		{"empty set", 0, 2, 10, 0, 0},
		{"huge page", 25, 184467440737095517, 100, 25, 1},
		{"max int page", 25, math.MaxInt, 10, 25, 3},
		{"max int page size 1", 3, math.MaxInt, 1, 3, 3},
		{"last page", 25, 3, 10, 20, 3},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			off, pages := Pagination(c.total, c.page, c.size)
			assert.Equal(t, c.wantOffset, off)
			assert.Equal(t, c.wantPage, pages)
		})
	}
}

func TestFindWithinRadiusHugePage(t *testing.T) {
	e := gridEngine(t)
	for _, page := range []int{184467440737095517, math.MaxInt} {
		res, err := e.FindWithinRadius(geo.Point{}, 10_000, page, MaxPageSize)
		require.NoError(t, err)
		assert.Equal(t, 25, res.Total)
		assert.Equal(t, 1, res.TotalPages)
		assert.Equal(t, page, res.Page)
		assert.NotNil(t, res.Records)
		assert.Empty(t, res.Records)
	}
}

func TestCheckBijection(t *testing.T) {
	st, err := parcel.Load([]parcel.Row{squareRow(1, 0, 0, 1), squareRow(2, 5, 5, 1)})
	require.NoError(t, err)

	assert.NoError(t, checkBijection(st, spatial.Build(st.Entries())))

	partial := spatial.Build(st.Entries()[:1])
	var ie *InvariantError
	require.ErrorAs(t, checkBijection(st, partial), &ie)

	moved := st.Entries()
	moved[1].BBox = moved[1].BBox.Expand(1)
	require.ErrorAs(t, checkBijection(st, spatial.Build(moved)), &ie)

	stranger := append(st.Entries()[:1], spatial.Entry{ID: 77, BBox: geo.BBox{MaxLon: 1, MaxLat: 1}})
	require.ErrorAs(t, checkBijection(st, spatial.Build(stranger)), &ie)
	assert.Contains(t, ie.Error(), "77")
}

func TestMustGetPanicsOnDesync(t *testing.T) {
	e := newEngine(t, squareRow(1, 0, 0, 1))
	assert.PanicsWithError(t, (&InvariantError{Msg: "index returned id 5 missing from store"}).Error(), func() {
		e.mustGet(5)
	})
}
