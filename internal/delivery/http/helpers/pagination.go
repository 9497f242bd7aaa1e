package helpers

import (
	"net/http"
	"strconv"

	"liondance/internal/domain"
)

// Pagination query parameter defaults and limits.
const (
	DefaultPage     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// ParsePagination reads page and page_size (or pageSize) from the request query string,
// clamps them to valid ranges, and returns domain.PaginationParams.
// Invalid or missing values fall back to DefaultPage and defaultSize.
func ParsePagination(r *http.Request, defaultSize int) domain.PaginationParams {
	q := r.URL.Query()
	page := DefaultPage
	if v, ok := positiveInt(q.Get("page")); ok {
		page = v
	}
	if defaultSize <= 0 {
		defaultSize = DefaultPageSize
	}
	pageSize := defaultSize
	raw := q.Get("page_size")
	if raw == "" {
		raw = q.Get("pageSize")
	}
	if v, ok := positiveInt(raw); ok {
		pageSize = min(v, MaxPageSize)
	}
	return domain.PaginationParams{Page: page, PageSize: pageSize}
}

func positiveInt(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 1 {
		return 0, false
	}
	return v, true
}

// PaginationMeta is the pagination metadata included in paginated list responses.
// swagger:model PaginationMeta
type PaginationMeta struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// NewPaginationMeta builds PaginationMeta from the request params and total count.
func NewPaginationMeta(params domain.PaginationParams, total int) PaginationMeta {
	return PaginationMeta{
		Page:       params.Page,
		PageSize:   params.PageSize,
		Total:      total,
		TotalPages: params.TotalPages(total),
	}
}
