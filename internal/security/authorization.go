// Package security decides what an authenticated caller may do.
package security

import (
	"log/slog"
	"slices"

	"github.com/aryan0dhankhar/deliveryhub/internal/domain"
)

// Permission represents an action permission
type Permission string

const (
	PermReadEndpoints  Permission = "read_endpoints"
	PermWriteEndpoints Permission = "write_endpoints"
	PermInviteUsers    Permission = "invite_users"
)

// RolePermissions maps roles to their permissions
var RolePermissions = map[domain.AccessRole][]Permission{
	domain.AccessAdmin: {
		PermReadEndpoints,
		PermWriteEndpoints,
		PermInviteUsers,
	},
	domain.AccessDeveloper: {
		PermReadEndpoints,
		PermWriteEndpoints,
		PermInviteUsers,
	},
	domain.AccessViewer: {
		PermReadEndpoints,
	},
}

// AuthorizationService handles authorization checks
type AuthorizationService struct {
	logger *slog.Logger
}

// NewAuthorizationService creates a new authorization service
func NewAuthorizationService(logger *slog.Logger) *AuthorizationService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthorizationService{logger: logger}
}

// HasPermission checks if a role has a specific permission
func (as *AuthorizationService) HasPermission(role domain.AccessRole, permission Permission) bool {
	return slices.Contains(RolePermissions[role], permission)
}

// Require returns Unauthenticated without a caller and Forbidden when the caller's role lacks permission
func (as *AuthorizationService) Require(id *domain.Identity, permission Permission) error {
	if id == nil {
		return domain.Unauthenticated("authentication required")
	}
	if !as.HasPermission(id.Access, permission) {
		as.logger.Warn("permission denied",
			slog.String("user_id", id.UserID),
			slog.String("role", string(id.Access)),
			slog.String("permission", string(permission)),
		)
		return domain.Forbidden("%s role cannot %s", id.Access, permission)
	}
	return nil
}

// RequireOrganization checks that the caller belongs to organizationID
func (as *AuthorizationService) RequireOrganization(id *domain.Identity, organizationID string) error {
	if id == nil {
		return domain.Unauthenticated("authentication required")
	}
	if id.OrganizationID != organizationID {
		as.logger.Warn("organization access denied",
			slog.String("user_id", id.UserID),
			slog.String("user_organization", id.OrganizationID),
			slog.String("requested_organization", organizationID),
		)
		return domain.Forbidden("access denied for organization")
	}
	return nil
}
