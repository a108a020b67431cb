package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

type UserStatus string

const (
	UserActive    UserStatus = "active"
	UserInactive  UserStatus = "inactive"
	UserSuspended UserStatus = "suspended"
)

func AsUserStatus(s string) (UserStatus, error) {
	switch st := UserStatus(s); st {
	case UserActive, UserInactive, UserSuspended:
		return st, nil
	}
	return "", fmt.Errorf("unknown user status: %s", s)
}

type User struct {
	Id        string
	Email     string
	Name      string
	GithubId  string
	AvatarURL string
	Status    UserStatus
	LastLogin *time.Time
	CreatedAt time.Time

	Roles []Role
}

// Permission is a pair of resource and action, like "orders.refund".
type Permission struct {
	Resource    string
	Action      string
	Description string
}

func (p Permission) String() string {
	return p.Resource + "." + p.Action
}

func ParsePermission(s string) (Permission, error) {
	res, act, ok := strings.Cut(s, ".")
	if !ok || res == "" || act == "" {
		return Permission{}, fmt.Errorf("permission should be RESOURCE.ACTION: %s", s)
	}
	return Permission{Resource: res, Action: act}, nil
}

type Role struct {
	Id          string
	Name        string
	Description string
	System      bool
	Permissions []Permission
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

var nonWord = regexp.MustCompile(`[^a-z0-9]+`)

// RoleId derives the id of a role from its name, as "role_{snake_case_name}".
func RoleId(name string) string {
	snake := nonWord.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "_")
	return "role_" + strings.Trim(snake, "_")
}

// PermissionSet is a set of permissions granted to a user.
type PermissionSet map[string]struct{}

func NewPermissionSet(ps ...Permission) PermissionSet {
	s := PermissionSet{}
	for _, p := range ps {
		s[p.String()] = struct{}{}
	}
	return s
}

func (s PermissionSet) Has(resource, action string) bool {
	_, ok := s[resource+"."+action]
	return ok
}

type AuditEntry struct {
	Id         int64
	UserId     string
	Action     string
	Resource   string
	ResourceId string
	Details    map[string]any
	IPAddress  string
	UserAgent  string
	CreatedAt  time.Time
}

type AuditFindQuery struct {
	UserId   string
	Action   string
	Resource string
	Limit    int
	Offset   int
}

// GithubProfile is who signed in with GitHub.
type GithubProfile struct {
	Id        string
	Login     string
	Email     string
	Name      string
	AvatarURL string
}

// RoleChange is a partial update of a role. Nil fields are kept.
type RoleChange struct {
	Name        *string
	Description *string
	Permissions *[]Permission
}
