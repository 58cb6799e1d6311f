package pagination

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func paramsFromQuery(t *testing.T, query string) Params {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/?"+query, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	return FromContext(c)
}

func TestFromContextDefaults(t *testing.T) {
	p := paramsFromQuery(t, "")

	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 10, p.Limit)
	assert.Equal(t, "createdAt", p.SortBy)
	assert.Equal(t, "desc", p.SortOrder)
	assert.Empty(t, p.Search)
}

func TestFromContextClamps(t *testing.T) {
	p := paramsFromQuery(t, "page=0&limit=500")
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, MaxLimit, p.Limit)

	p = paramsFromQuery(t, "page=-3&limit=0")
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, DefaultLimit, p.Limit)

	p = paramsFromQuery(t, "sortOrder=ASC&sortBy=email&search=bob")
	assert.Equal(t, "asc", p.SortOrder)
	assert.Equal(t, "email", p.SortBy)
	assert.Equal(t, "bob", p.Search)

	p = paramsFromQuery(t, "sortOrder=sideways")
	assert.Equal(t, "desc", p.SortOrder)
}

func TestNewMeta(t *testing.T) {
	// 25 records, limit 10, page 3: last page of 5 records
	meta := NewMeta(25, Params{Page: 3, Limit: 10})

	assert.Equal(t, int64(25), meta.Total)
	assert.Equal(t, 3, meta.TotalPages)
	assert.False(t, meta.HasNext)
	assert.True(t, meta.HasPrev)
}

func TestNewMetaFirstPage(t *testing.T) {
	meta := NewMeta(25, Params{Page: 1, Limit: 10})

	assert.Equal(t, 3, meta.TotalPages)
	assert.True(t, meta.HasNext)
	assert.False(t, meta.HasPrev)
}

func TestNewMetaEmpty(t *testing.T) {
	meta := NewMeta(0, Params{Page: 1, Limit: 10})

	assert.Equal(t, 0, meta.TotalPages)
	assert.False(t, meta.HasNext)
	assert.False(t, meta.HasPrev)
}

func TestNewMetaExactBoundary(t *testing.T) {
	meta := NewMeta(20, Params{Page: 2, Limit: 10})

	assert.Equal(t, 2, meta.TotalPages)
	assert.False(t, meta.HasNext)
	assert.True(t, meta.HasPrev)
}

func TestOffset(t *testing.T) {
	assert.Equal(t, 0, Params{Page: 1, Limit: 10}.Offset())
	assert.Equal(t, 20, Params{Page: 3, Limit: 10}.Offset())
}

func TestColumnFor(t *testing.T) {
	assert.Equal(t, "created_at", ColumnFor("createdAt"))
	assert.Equal(t, "email", ColumnFor("email"))
	assert.Equal(t, "schema_name", ColumnFor("schemaName"))
	assert.Equal(t, "role_id", ColumnFor("role_id"))

	// Anything that is not a plain identifier is rejected
	assert.Empty(t, ColumnFor("created_at; DROP TABLE users"))
	assert.Empty(t, ColumnFor("name,id"))
	assert.Empty(t, ColumnFor("1name"))
}
