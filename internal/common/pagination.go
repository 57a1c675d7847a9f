// File: internal/common/pagination.go
package common

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	DefaultPage     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Pagination describes one page of an in-memory list.
type Pagination struct {
	TotalItems  int64 `json:"total_items"`
	TotalPages  int   `json:"total_pages"`
	CurrentPage int   `json:"current_page"`
	PageSize    int   `json:"page_size"`
	HasNext     bool  `json:"has_next"`
	HasPrev     bool  `json:"has_prev"`
}

// NewPagination creates a pagination object.
func NewPagination(totalItems int64, page, pageSize int) *Pagination {
	if page <= 0 {
		page = DefaultPage
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	totalPages := int((totalItems + int64(pageSize) - 1) / int64(pageSize))

	return &Pagination{
		TotalItems:  totalItems,
		TotalPages:  totalPages,
		CurrentPage: page,
		PageSize:    pageSize,
		HasNext:     page < totalPages,
		HasPrev:     page > 1,
	}
}

// Bounds returns the [start, end) slice indexes of the current page.
func (p *Pagination) Bounds() (start, end int) {
	start = (p.CurrentPage - 1) * p.PageSize
	if int64(start) > p.TotalItems {
		start = int(p.TotalItems)
	}
	end = start + p.PageSize
	if int64(end) > p.TotalItems {
		end = int(p.TotalItems)
	}
	return start, end
}

// GetPaginationParams extracts pagination parameters from the query.
// ok is false when the caller asked for no pagination at all.
func GetPaginationParams(c *gin.Context) (page, pageSize int, ok bool) {
	rawPage, hasPage := c.GetQuery("page")
	rawSize, hasSize := c.GetQuery("page_size")
	if !hasPage && !hasSize {
		return 0, 0, false
	}

	page, err := strconv.Atoi(rawPage)
	if err != nil || page <= 0 {
		page = DefaultPage
	}
	pageSize, err = strconv.Atoi(rawSize)
	if err != nil || pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return page, pageSize, true
}
