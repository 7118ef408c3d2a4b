package rbac

import (
	"sort"
	"strings"

	"github.com/procureflow/procureflow/internal/shared"
)

// Service resolves the permissions granted to a role. Roles are carried in
// the session so a stale user id never blocks authorization.
type Service struct {
	grants map[string][]string
}

// NewService constructs a Service. A nil grants map uses the built-in roles.
func NewService(grants map[string][]string) *Service {
	if grants == nil {
		grants = shared.RolePermissions()
	}
	normalized := make(map[string][]string, len(grants))
	for role, perms := range grants {
		normalized[strings.ToLower(strings.TrimSpace(role))] = normalizePermissions(perms)
	}
	return &Service{grants: normalized}
}

// EffectivePermissions returns the permissions granted to role.
func (s *Service) EffectivePermissions(role string) []string {
	if s == nil {
		return nil
	}
	return s.grants[strings.ToLower(strings.TrimSpace(role))]
}

// ListRoles returns every role with its permissions, ordered by name.
func (s *Service) ListRoles() []Role {
	if s == nil {
		return nil
	}
	roles := make([]Role, 0, len(s.grants))
	for name, perms := range s.grants {
		sorted := append([]string(nil), perms...)
		sort.Strings(sorted)
		roles = append(roles, Role{Name: name, Permissions: sorted})
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i].Name < roles[j].Name })
	return roles
}
