package models

import (
	"time"

	"github.com/lib/pq"
)

// UserRole is the top-level role of an operator.
type UserRole string

const (
	RoleSuperAdmin   UserRole = "SUPER_ADMIN"
	RoleCompanyAdmin UserRole = "COMPANY_ADMIN"
	RoleStaff        UserRole = "STAFF"
)

// IsAdmin reports whether the role is tenant-admin or platform-admin.
func (r UserRole) IsAdmin() bool {
	return r == RoleSuperAdmin || r == RoleCompanyAdmin
}

// User represents an operator account stored in the users table.
type User struct {
	ID                   string         `db:"id" json:"id"`
	TenantID             *string        `db:"tenant_id" json:"tenantId,omitempty"`
	Email                string         `db:"email" json:"email"`
	PasswordHash         string         `db:"password_hash" json:"-"`
	FullName             string         `db:"full_name" json:"fullName"`
	Role                 UserRole       `db:"role" json:"role"`
	Profiles             pq.StringArray `db:"profiles" json:"profiles"`
	Permissions          pq.StringArray `db:"permissions" json:"permissions"`
	RemoteAuthorizations pq.StringArray `db:"remote_authorizations" json:"remoteAuthorizations"`
	Active               bool           `db:"active" json:"active"`
	CreatedAt            time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt            time.Time      `db:"updated_at" json:"updatedAt"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
