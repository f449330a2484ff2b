package shared

import (
	"math"
	"net/url"
	"strconv"
)

// Pagination contains metadata for paginated listings.
type Pagination struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// NewPagination computes pagination metadata.
func NewPagination(page, perPage, total int) Pagination {
	if perPage <= 0 {
		perPage = 20
	}
	if page <= 0 {
		page = 1
	}
	totalPages := int(math.Ceil(float64(total) / float64(perPage)))
	return Pagination{Page: page, PerPage: perPage, Total: total, TotalPages: totalPages}
}

// PageRequest is the page window requested by a listing endpoint.
type PageRequest struct {
	Page    int
	PerPage int
}

// PageFromQuery reads page and per_page, clamping per_page to 200.
func PageFromQuery(q url.Values) PageRequest {
	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}
	perPage, _ := strconv.Atoi(q.Get("per_page"))
	if perPage < 1 {
		perPage = 20
	}
	if perPage > 200 {
		perPage = 200
	}
	return PageRequest{Page: page, PerPage: perPage}
}

// Offset returns the SQL offset for the page.
func (p PageRequest) Offset() int {
	if p.Page < 1 {
		return 0
	}
	return (p.Page - 1) * p.Limit()
}

// Limit returns the SQL limit for the page.
func (p PageRequest) Limit() int {
	if p.PerPage < 1 {
		return 20
	}
	return p.PerPage
}

// Paged wraps a listing with its pagination metadata.
type Paged[T any] struct {
	Items      []T        `json:"items"`
	Pagination Pagination `json:"pagination"`
}

// NewPaged builds a Paged response, never returning a nil slice.
func NewPaged[T any](items []T, req PageRequest, total int) Paged[T] {
	if items == nil {
		items = []T{}
	}
	return Paged[T]{Items: items, Pagination: NewPagination(req.Page, req.Limit(), total)}
}
