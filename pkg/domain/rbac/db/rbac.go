package db

import (
	"context"

	"github.com/cozyartz/etchNFT/pkg/domain"
)

type RBACInterface interface {
	// Permissions lists every known permission.
	Permissions(ctx context.Context) ([]domain.Permission, error)

	// Roles lists roles with their permissions.
	Roles(ctx context.Context) ([]domain.Role, error)

	// Role returns the role. ErrMissing if not found.
	Role(ctx context.Context, id string) (domain.Role, error)

	// CreateRole creates a role whose id is derived from name by domain.RoleId.
	//
	// ErrConflict is returned when the id or name is taken.
	// ErrMissing is returned when any of permissions is unknown.
	CreateRole(ctx context.Context, name string, description string, permissions []domain.Permission) (domain.Role, error)

	// UpdateRole changes the role. System roles cannot be changed (ErrSystemRole).
	UpdateRole(ctx context.Context, id string, change domain.RoleChange) (domain.Role, error)

	// DeleteRole removes the role.
	//
	// ErrSystemRole is returned for system roles,
	// and ErrRoleInUse when the role is granted to users.
	DeleteRole(ctx context.Context, id string) error

	// Users lists users with their roles.
	Users(ctx context.Context) ([]domain.User, error)

	// User returns the user with roles. ErrMissing if not found.
	User(ctx context.Context, id string) (domain.User, error)

	// CreateUser registers an admin user, who can sign in with GitHub
	// with the same email address.
	CreateUser(ctx context.Context, email string, name string) (domain.User, error)

	// SetUserStatus changes status of the user.
	SetUserStatus(ctx context.Context, id string, status domain.UserStatus) (domain.User, error)

	// Login finds the user signed in with GitHub, then records the sign in.
	//
	// A user is found by GitHub id, or by email when the GitHub id is not linked yet.
	// Unknown users are not created: ErrMissing is returned.
	Login(ctx context.Context, profile domain.GithubProfile) (domain.User, error)

	// Grant the role to the user. Granting a granted role is not an error.
	Grant(ctx context.Context, userId string, roleId string, grantedBy string) error

	// Revoke the role from the user.
	Revoke(ctx context.Context, userId string, roleId string) error

	// PermissionsOf returns permissions granted to the user through roles.
	//
	// Users not active have no permissions.
	PermissionsOf(ctx context.Context, userId string) (domain.PermissionSet, error)
}

type AuditInterface interface {
	// Record an audit entry.
	Record(ctx context.Context, entry domain.AuditEntry) error

	// Find entries, newest first.
	//
	// # Returns
	//
	// - []domain.AuditEntry
	//
	// - int: total number of entries matching the query, regardless limit and offset.
	//
	// - error
	Find(ctx context.Context, query domain.AuditFindQuery) ([]domain.AuditEntry, int, error)
}
