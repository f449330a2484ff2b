package shared

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWhereBuilder(t *testing.T) {
	var w Where
	assert.Empty(t, w.SQL())
	w.Add("search_key LIKE ?", "%pollo%")
	w.AddRaw("is_active")
	w.Add("(category_id = ? OR ? = 0)", int64(3))
	assert.Equal(t, " WHERE search_key LIKE $1 AND is_active AND (category_id = $2 OR $2 = 0)", w.SQL())

	limit, args := w.Page(PageFor(2, 10))
	assert.Equal(t, " LIMIT $3 OFFSET $4", limit)
	assert.Equal(t, []any{"%pollo%", int64(3), 10, 10}, args)
	assert.Len(t, w.Args, 2)
}

func TestFiltersFromRequest(t *testing.T) {
	req := httptest.NewRequest("GET", "/?q=%20ala%20&activo=true&categoria_id=4&stock_bajo=1&per_page=5", nil)
	f := FiltersFromRequest(req)
	assert.Equal(t, "ala", f.Search)
	assert.True(t, *f.IsActive)
	assert.Equal(t, int64(4), f.CategoryID)
	assert.True(t, f.LowStock)
	assert.Equal(t, 5, f.Page.Limit())
}

func TestValidUnit(t *testing.T) {
	assert.True(t, ValidUnit("kg"))
	assert.False(t, ValidUnit("litro"))
}
