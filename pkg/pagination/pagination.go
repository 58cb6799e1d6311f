package pagination

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

// Params holds the parsed list query parameters.
type Params struct {
	Page      int
	Limit     int
	SortBy    string
	SortOrder string
	Search    string
}

// Meta describes one page of a list response.
type Meta struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"totalPages"`
	HasNext    bool  `json:"hasNext"`
	HasPrev    bool  `json:"hasPrev"`
}

// Envelope is the standard paginated list response body.
type Envelope struct {
	Data interface{} `json:"data"`
	Meta Meta        `json:"meta"`
}

// FromContext parses pagination parameters from the request query,
// clamping page to >= 1 and limit to the 1..100 range.
func FromContext(c echo.Context) Params {
	p := Params{
		Page:      DefaultPage,
		Limit:     DefaultLimit,
		SortBy:    "createdAt",
		SortOrder: "desc",
		Search:    c.QueryParam("search"),
	}

	if v, err := strconv.Atoi(c.QueryParam("page")); err == nil && v >= 1 {
		p.Page = v
	}
	if v, err := strconv.Atoi(c.QueryParam("limit")); err == nil && v >= 1 {
		p.Limit = v
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}

	if v := c.QueryParam("sortBy"); v != "" {
		p.SortBy = v
	}
	if v := strings.ToLower(c.QueryParam("sortOrder")); v == "asc" || v == "desc" {
		p.SortOrder = v
	}

	return p
}

// NewMeta computes pagination metadata for a total record count.
func NewMeta(total int64, p Params) Meta {
	totalPages := int((total + int64(p.Limit) - 1) / int64(p.Limit))
	return Meta{
		Total:      total,
		Page:       p.Page,
		Limit:      p.Limit,
		TotalPages: totalPages,
		HasNext:    p.Page < totalPages,
		HasPrev:    p.Page > 1,
	}
}

// Offset returns the row offset for the current page.
func (p Params) Offset() int {
	return (p.Page - 1) * p.Limit
}

// Search adds the free-text filter, matched case-insensitively against
// the given columns. Applied before counting so meta.Total reflects the
// filtered set.
func Search(query *gorm.DB, p Params, searchColumns ...string) *gorm.DB {
	if p.Search == "" || len(searchColumns) == 0 {
		return query
	}
	pattern := "%" + p.Search + "%"
	clause := make([]string, 0, len(searchColumns))
	args := make([]interface{}, 0, len(searchColumns))
	for _, col := range searchColumns {
		clause = append(clause, col+" ILIKE ?")
		args = append(args, pattern)
	}
	return query.Where(strings.Join(clause, " OR "), args...)
}

// Apply adds ordering and paging clauses to a query. The sort column is
// derived from SortBy and rejected if it is not a plain identifier.
func Apply(query *gorm.DB, p Params) *gorm.DB {
	column := ColumnFor(p.SortBy)
	if column == "" {
		column = "created_at"
	}
	query = query.Order(fmt.Sprintf("%s %s", column, strings.ToUpper(p.SortOrder)))

	return query.Offset(p.Offset()).Limit(p.Limit)
}

// ColumnFor maps an API sort field (camelCase) to a database column
// (snake_case). Returns "" for anything that is not a plain identifier,
// which keeps user input out of the ORDER BY clause.
func ColumnFor(field string) string {
	var b strings.Builder
	for i, r := range field {
		switch {
		case unicode.IsUpper(r):
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
		case unicode.IsLower(r) || r == '_' || (i > 0 && unicode.IsDigit(r)):
			b.WriteRune(r)
		default:
			return ""
		}
	}
	return b.String()
}
