// Package common provides foundational types shared across every layer of
// moldex: domain entities, DTOs, and pagination primitives. No business
// logic lives here.
package common

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ID is the platform-wide primary-key type, represented as a UUID string.
// A named type prevents accidental mixing of different ID domains at
// compile time (a MoleculeID is not interchangeable with a JobID by value).
type ID string

// NewID generates a fresh random UUID v4 and returns it as an ID.
func NewID() ID {
	return ID(uuid.New().String())
}

// Empty reports whether id is the zero value.
func (id ID) Empty() bool {
	return id == ""
}

func (id ID) String() string {
	return string(id)
}

// Timestamp is a named alias for time.Time.
type Timestamp = time.Time

// ─────────────────────────────────────────────────────────────────────────────
// Pagination primitives
// ─────────────────────────────────────────────────────────────────────────────

const (
	defaultPageSize = 20
	maxPageSize     = 1000
)

// PageRequest carries pagination and sorting parameters for list/search
// operations. Page is 1-indexed.
type PageRequest struct {
	Page      int    `json:"page"`
	PageSize  int    `json:"page_size"`
	SortBy    string `json:"sort_by,omitempty"`
	SortOrder string `json:"sort_order,omitempty"`
}

// Validate checks pagination bounds: Page ≥ 1, 1 ≤ PageSize ≤ maxPageSize,
// SortOrder ∈ {"", "asc", "desc"}.
func (r *PageRequest) Validate() error {
	if r.Page < 1 {
		return fmt.Errorf("page must be >= 1, got %d", r.Page)
	}
	if r.PageSize < 1 {
		return fmt.Errorf("page_size must be >= 1, got %d", r.PageSize)
	}
	if r.PageSize > maxPageSize {
		return fmt.Errorf("page_size must be <= %d, got %d", maxPageSize, r.PageSize)
	}
	if r.SortOrder != "" && r.SortOrder != "asc" && r.SortOrder != "desc" {
		return fmt.Errorf("sort_order must be \"asc\" or \"desc\", got %q", r.SortOrder)
	}
	return nil
}

// Normalize fills in defaults for a zero-value PageRequest: page 1, the
// package default page size.
func (r *PageRequest) Normalize() {
	if r.Page < 1 {
		r.Page = 1
	}
	if r.PageSize < 1 {
		r.PageSize = defaultPageSize
	}
	if r.PageSize > maxPageSize {
		r.PageSize = maxPageSize
	}
}

// Offset returns the zero-based record offset for SQL OFFSET clauses.
func (r *PageRequest) Offset() int {
	if r.Page < 1 {
		return 0
	}
	return (r.Page - 1) * r.PageSize
}

// PageResponse is the generic paginated response wrapper used by every
// list/search operation in the store (filter, similarity search,
// substructure search, library membership listing).
type PageResponse[T any] struct {
	Items      []T   `json:"items"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalPages int   `json:"total_pages"`
}

// NewPageResponse constructs a PageResponse from a full result page,
// computing TotalPages automatically.
func NewPageResponse[T any](items []T, total int64, req PageRequest) PageResponse[T] {
	ps := req.PageSize
	if ps <= 0 {
		ps = defaultPageSize
	}
	totalPages := 0
	if total > 0 {
		totalPages = int((total + int64(ps) - 1) / int64(ps))
	}
	page := req.Page
	if page < 1 {
		page = 1
	}
	return PageResponse[T]{Items: items, Total: total, Page: page, PageSize: ps, TotalPages: totalPages}
}
