package models

import "time"

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleSuperAdmin UserRole = "SUPERADMIN"
	RoleAdmin      UserRole = "ADMIN"
	RoleEditor     UserRole = "EDITOR"
)

// Valid returns true when the role is supported.
func (r UserRole) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleAdmin, RoleEditor:
		return true
	default:
		return false
	}
}

// IsAdmin reports whether the role may perform administrative actions.
func (r UserRole) IsAdmin() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

// User represents a back-office account stored in the users table.
type User struct {
	ID           string     `db:"id" json:"id"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	FullName     string     `db:"full_name" json:"fullName"`
	Role         UserRole   `db:"role" json:"role"`
	Active       bool       `db:"active" json:"active"`
	LastLogin    *time.Time `db:"last_login" json:"lastLogin,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updatedAt"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"pageSize"`
	TotalCount int `json:"totalCount"`
	TotalPages int `json:"totalPages"`
}

// NewPagination computes page metadata from the requested page and total row count.
func NewPagination(page, size, total int) *Pagination {
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = 10
	}
	pages := (total + size - 1) / size
	return &Pagination{Page: page, PageSize: size, TotalCount: total, TotalPages: pages}
}

const maxPageSize = 100

// PageBounds clamps a page/size pair and returns the SQL offset.
func PageBounds(page, size, defaultSize int) (int, int, int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = defaultSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	return page, size, (page - 1) * size
}
