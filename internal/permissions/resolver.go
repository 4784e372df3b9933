package permissions

import (
	"sort"

	"github.com/noah-isme/backoffice-authz/internal/models"
)

// Resolution is the union of grants across a set of profiles.
type Resolution struct {
	Permissions          []string `json:"permissions"`
	RemoteAuthorizations []string `json:"remoteAuthorizations"`
}

// Resolve unions the grants of every profile. Unknown profiles contribute
// nothing. Output is sorted and free of duplicates.
func Resolve(profiles ...string) Resolution {
	perms := make(map[string]struct{})
	remote := make(map[string]struct{})
	for _, profile := range profiles {
		g, ok := profileGrants[profile]
		if !ok {
			continue
		}
		for _, p := range g.permissions {
			perms[p] = struct{}{}
		}
		for _, a := range g.remoteAuthorizations {
			remote[a] = struct{}{}
		}
	}
	return Resolution{
		Permissions:          sortedKeys(perms),
		RemoteAuthorizations: sortedKeys(remote),
	}
}

// ResolveOperator builds an operator from a stored user. Grants stored on
// the record are added to the profile-derived ones, never subtracted.
func ResolveOperator(user *models.User) *models.Operator {
	if user == nil {
		return nil
	}
	res := Resolve(user.Profiles...)
	return &models.Operator{
		ID:                   user.ID,
		TenantID:             user.TenantID,
		Name:                 user.FullName,
		Email:                user.Email,
		Role:                 user.Role,
		Profiles:             append([]string(nil), user.Profiles...),
		Permissions:          union(res.Permissions, user.Permissions),
		RemoteAuthorizations: union(res.RemoteAuthorizations, user.RemoteAuthorizations),
	}
}

func union(a []string, b []string) []string {
	set := make(map[string]struct{}, len(a)+len(b))
	for _, v := range a {
		set[v] = struct{}{}
	}
	for _, v := range b {
		if v != "" {
			set[v] = struct{}{}
		}
	}
	return sortedKeys(set)
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
