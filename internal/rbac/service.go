package rbac

import (
	"context"
	"strings"

	"github.com/naguara/naguara-pos/internal/shared"
)

// Service resolves permissions from a user's role.
type Service struct {
	roles map[string]Role
}

// NewService constructs a Service over the given roles.
func NewService(roles []Role) *Service {
	index := make(map[string]Role, len(roles))
	for _, role := range roles {
		role.Permissions = normalizePermissions(role.Permissions)
		index[strings.ToLower(role.Name)] = role
	}
	return &Service{roles: index}
}

// ListRoles returns the configured roles.
func (s *Service) ListRoles() []Role {
	out := make([]Role, 0, len(s.roles))
	for _, name := range shared.Roles() {
		if role, ok := s.roles[name]; ok {
			out = append(out, role)
		}
	}
	return out
}

// EffectivePermissions returns the permissions of the authenticated user in ctx.
func (s *Service) EffectivePermissions(ctx context.Context) ([]string, error) {
	user, ok := shared.UserFromContext(ctx)
	if !ok {
		return nil, shared.ErrUnauthorized
	}
	role, ok := s.roles[strings.ToLower(user.Role)]
	if !ok {
		return []string{}, nil
	}
	return role.Permissions, nil
}

// Can reports whether role grants perm.
func (s *Service) Can(role, perm string) bool {
	r, ok := s.roles[strings.ToLower(role)]
	if !ok {
		return false
	}
	return hasAnyPermission(r.Permissions, []string{strings.ToLower(perm)})
}
