package models

// Operator is an authenticated identity with its resolved grants.
type Operator struct {
	ID                   string   `json:"id"`
	TenantID             *string  `json:"tenantId,omitempty"`
	Name                 string   `json:"name"`
	Email                string   `json:"email"`
	Role                 UserRole `json:"role"`
	Profiles             []string `json:"profiles"`
	Permissions          []string `json:"permissions"`
	RemoteAuthorizations []string `json:"remoteAuthorizations"`
	// SuperUser marks the reserved platform identity configured outside the users table.
	SuperUser bool `json:"superUser,omitempty"`
}

// Tenant returns the tenant id or the empty string.
func (o *Operator) Tenant() string {
	if o == nil || o.TenantID == nil {
		return ""
	}
	return *o.TenantID
}

// IsPlatformAdmin reports whether the operator may act across tenants.
func (o *Operator) IsPlatformAdmin() bool {
	return o != nil && (o.Role == RoleSuperAdmin || o.SuperUser)
}

// HasPermission reports whether p is in the resolved permission set.
func (o *Operator) HasPermission(p string) bool {
	return o != nil && contains(o.Permissions, p)
}

// HasRemoteAuthorization reports whether the operator may request a gated action.
func (o *Operator) HasRemoteAuthorization(a string) bool {
	return o != nil && contains(o.RemoteAuthorizations, a)
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
