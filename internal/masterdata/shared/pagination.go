package shared

import (
	"net/http"
	"strconv"
	"strings"

	core "github.com/naguara/naguara-pos/internal/shared"
)

// ListFilters represents standard list page filters
type ListFilters struct {
	Page    core.PageRequest
	Search  string
	SortBy  string
	SortDir string

	IsActive   *bool
	CategoryID int64
	LowStock   bool
}

// FiltersFromRequest reads the common listing query parameters.
func FiltersFromRequest(r *http.Request) ListFilters {
	q := r.URL.Query()
	f := ListFilters{
		Page:    core.PageFromQuery(q),
		Search:  strings.TrimSpace(q.Get("q")),
		SortBy:  q.Get("sort"),
		SortDir: q.Get("dir"),
	}
	if v, err := strconv.ParseBool(q.Get("activo")); err == nil {
		f.IsActive = &v
	}
	if id, err := strconv.ParseInt(q.Get("categoria_id"), 10, 64); err == nil && id > 0 {
		f.CategoryID = id
	}
	f.LowStock, _ = strconv.ParseBool(q.Get("stock_bajo"))
	return f
}

// Where accumulates SQL conditions with numbered placeholders.
type Where struct {
	conds []string
	Args  []any
}

// Add appends cond, replacing each "?" with the next placeholder bound to arg.
func (w *Where) Add(cond string, arg any) {
	w.Args = append(w.Args, arg)
	w.conds = append(w.conds, strings.ReplaceAll(cond, "?", "$"+strconv.Itoa(len(w.Args))))
}

// AddRaw appends a condition without arguments.
func (w *Where) AddRaw(cond string) {
	w.conds = append(w.conds, cond)
}

// SQL renders the WHERE clause, or an empty string.
func (w *Where) SQL() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

// Page renders LIMIT/OFFSET for p and returns the args including them.
func (w *Where) Page(p core.PageRequest) (string, []any) {
	args := append(append([]any{}, w.Args...), p.Limit(), p.Offset())
	n := len(args)
	return " LIMIT $" + strconv.Itoa(n-1) + " OFFSET $" + strconv.Itoa(n), args
}

// SortDirection returns ASC or DESC.
func SortDirection(dir string) string {
	if strings.EqualFold(dir, SortDesc) {
		return "DESC"
	}
	return "ASC"
}

// PageFor builds a page request.
func PageFor(page, perPage int) core.PageRequest {
	return core.PageRequest{Page: page, PerPage: perPage}
}
