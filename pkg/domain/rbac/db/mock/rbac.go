package mocks

import (
	"context"

	"github.com/cozyartz/etchNFT/pkg/domain"
	dbmock "github.com/cozyartz/etchNFT/pkg/domain/internal/db/mock"
	kdb "github.com/cozyartz/etchNFT/pkg/domain/rbac/db"
)

type RBACInterface struct {
	Impl struct {
		Permissions   func(context.Context) ([]domain.Permission, error)
		Roles         func(context.Context) ([]domain.Role, error)
		Role          func(context.Context, string) (domain.Role, error)
		CreateRole    func(ctx context.Context, name string, description string, permissions []domain.Permission) (domain.Role, error)
		UpdateRole    func(context.Context, string, domain.RoleChange) (domain.Role, error)
		DeleteRole    func(context.Context, string) error
		Users         func(context.Context) ([]domain.User, error)
		User          func(context.Context, string) (domain.User, error)
		CreateUser    func(ctx context.Context, email string, name string) (domain.User, error)
		SetUserStatus func(context.Context, string, domain.UserStatus) (domain.User, error)
		Login         func(context.Context, domain.GithubProfile) (domain.User, error)
		Grant         func(ctx context.Context, userId string, roleId string, grantedBy string) error
		Revoke        func(ctx context.Context, userId string, roleId string) error
		PermissionsOf func(context.Context, string) (domain.PermissionSet, error)
	}
	Calls struct {
		CreateRole dbmock.CallLog[struct {
			Name        string
			Description string
			Permissions []domain.Permission
		}]
		UpdateRole dbmock.CallLog[struct {
			Id     string
			Change domain.RoleChange
		}]
		DeleteRole    dbmock.CallLog[string]
		CreateUser    dbmock.CallLog[struct{ Email, Name string }]
		SetUserStatus dbmock.CallLog[struct {
			Id     string
			Status domain.UserStatus
		}]
		Login dbmock.CallLog[domain.GithubProfile]
		Grant dbmock.CallLog[struct {
			UserId, RoleId, GrantedBy string
		}]
		Revoke        dbmock.CallLog[struct{ UserId, RoleId string }]
		PermissionsOf dbmock.CallLog[string]
	}
}

var _ kdb.RBACInterface = &RBACInterface{}

func NewRBACInterface() *RBACInterface {
	return &RBACInterface{}
}

func (m *RBACInterface) Permissions(ctx context.Context) ([]domain.Permission, error) {
	if m.Impl.Permissions == nil {
		panic("it should not be called")
	}
	return m.Impl.Permissions(ctx)
}

func (m *RBACInterface) Roles(ctx context.Context) ([]domain.Role, error) {
	if m.Impl.Roles == nil {
		panic("it should not be called")
	}
	return m.Impl.Roles(ctx)
}

func (m *RBACInterface) Role(ctx context.Context, id string) (domain.Role, error) {
	if m.Impl.Role == nil {
		panic("it should not be called")
	}
	return m.Impl.Role(ctx, id)
}

func (m *RBACInterface) CreateRole(ctx context.Context, name string, description string, permissions []domain.Permission) (domain.Role, error) {
	m.Calls.CreateRole = append(m.Calls.CreateRole, struct {
		Name        string
		Description string
		Permissions []domain.Permission
	}{Name: name, Description: description, Permissions: permissions})
	if m.Impl.CreateRole == nil {
		panic("it should not be called")
	}
	return m.Impl.CreateRole(ctx, name, description, permissions)
}

func (m *RBACInterface) UpdateRole(ctx context.Context, id string, change domain.RoleChange) (domain.Role, error) {
	m.Calls.UpdateRole = append(m.Calls.UpdateRole, struct {
		Id     string
		Change domain.RoleChange
	}{Id: id, Change: change})
	if m.Impl.UpdateRole == nil {
		panic("it should not be called")
	}
	return m.Impl.UpdateRole(ctx, id, change)
}

func (m *RBACInterface) DeleteRole(ctx context.Context, id string) error {
	m.Calls.DeleteRole = append(m.Calls.DeleteRole, id)
	if m.Impl.DeleteRole == nil {
		panic("it should not be called")
	}
	return m.Impl.DeleteRole(ctx, id)
}

func (m *RBACInterface) Users(ctx context.Context) ([]domain.User, error) {
	if m.Impl.Users == nil {
		panic("it should not be called")
	}
	return m.Impl.Users(ctx)
}

func (m *RBACInterface) User(ctx context.Context, id string) (domain.User, error) {
	if m.Impl.User == nil {
		panic("it should not be called")
	}
	return m.Impl.User(ctx, id)
}

func (m *RBACInterface) CreateUser(ctx context.Context, email string, name string) (domain.User, error) {
	m.Calls.CreateUser = append(m.Calls.CreateUser, struct{ Email, Name string }{Email: email, Name: name})
	if m.Impl.CreateUser == nil {
		panic("it should not be called")
	}
	return m.Impl.CreateUser(ctx, email, name)
}

func (m *RBACInterface) SetUserStatus(ctx context.Context, id string, status domain.UserStatus) (domain.User, error) {
	m.Calls.SetUserStatus = append(m.Calls.SetUserStatus, struct {
		Id     string
		Status domain.UserStatus
	}{Id: id, Status: status})
	if m.Impl.SetUserStatus == nil {
		panic("it should not be called")
	}
	return m.Impl.SetUserStatus(ctx, id, status)
}

func (m *RBACInterface) Login(ctx context.Context, profile domain.GithubProfile) (domain.User, error) {
	m.Calls.Login = append(m.Calls.Login, profile)
	if m.Impl.Login == nil {
		panic("it should not be called")
	}
	return m.Impl.Login(ctx, profile)
}

func (m *RBACInterface) Grant(ctx context.Context, userId string, roleId string, grantedBy string) error {
	m.Calls.Grant = append(m.Calls.Grant, struct{ UserId, RoleId, GrantedBy string }{
		UserId: userId, RoleId: roleId, GrantedBy: grantedBy,
	})
	if m.Impl.Grant == nil {
		panic("it should not be called")
	}
	return m.Impl.Grant(ctx, userId, roleId, grantedBy)
}

func (m *RBACInterface) Revoke(ctx context.Context, userId string, roleId string) error {
	m.Calls.Revoke = append(m.Calls.Revoke, struct{ UserId, RoleId string }{UserId: userId, RoleId: roleId})
	if m.Impl.Revoke == nil {
		panic("it should not be called")
	}
	return m.Impl.Revoke(ctx, userId, roleId)
}

func (m *RBACInterface) PermissionsOf(ctx context.Context, userId string) (domain.PermissionSet, error) {
	m.Calls.PermissionsOf = append(m.Calls.PermissionsOf, userId)
	if m.Impl.PermissionsOf == nil {
		panic("it should not be called")
	}
	return m.Impl.PermissionsOf(ctx, userId)
}

type AuditInterface struct {
	Impl struct {
		Record func(context.Context, domain.AuditEntry) error
		Find   func(context.Context, domain.AuditFindQuery) ([]domain.AuditEntry, int, error)
	}
	Calls struct {
		Record dbmock.CallLog[domain.AuditEntry]
		Find   dbmock.CallLog[domain.AuditFindQuery]
	}
}

var _ kdb.AuditInterface = &AuditInterface{}

func NewAuditInterface() *AuditInterface {
	return &AuditInterface{}
}

func (m *AuditInterface) Record(ctx context.Context, entry domain.AuditEntry) error {
	m.Calls.Record = append(m.Calls.Record, entry)
	if m.Impl.Record == nil {
		panic("it should not be called")
	}
	return m.Impl.Record(ctx, entry)
}

func (m *AuditInterface) Find(ctx context.Context, query domain.AuditFindQuery) ([]domain.AuditEntry, int, error) {
	m.Calls.Find = append(m.Calls.Find, query)
	if m.Impl.Find == nil {
		panic("it should not be called")
	}
	return m.Impl.Find(ctx, query)
}
