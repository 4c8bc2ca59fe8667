package domain

import "github.com/google/uuid"

// ID is used across domain entities.
type ID = uuid.UUID

// Status represents a lightweight state value.
type Status string

const (
	RoleUser   = "user"
	RoleAdmin  = "admin"
	RoleSystem = "system"
)

// Pagination carries paging params and totals.
type Pagination struct {
	Page     int `json:"page"`
	PageSize int `json:"pageSize"`
	Total    int `json:"total,omitempty"`
}

// NewPagination applies defaults (page 1, 20 per page) and caps the page size at 100.
func NewPagination(page, pageSize int) Pagination {
	p := Pagination{Page: 1, PageSize: 20}
	if page >= 1 {
		p.Page = page
	}
	if pageSize >= 1 {
		p.PageSize = min(pageSize, 100)
	}
	return p
}

// Offset returns the zero-based row offset for a SQL OFFSET clause.
func (p Pagination) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// RequestContext carries the authenticated caller. Identity is issued
// elsewhere; the core only compares ids and checks the role.
type RequestContext struct {
	UserID ID     `json:"userId"`
	Role   string `json:"role"`
}

// Privileged reports whether the caller may act on any user's records.
func (rc RequestContext) Privileged() bool {
	return rc.Role == RoleAdmin || rc.Role == RoleSystem
}

// SystemContext is used by schedulers and webhooks that run without a user.
func SystemContext() RequestContext {
	return RequestContext{Role: RoleSystem}
}
