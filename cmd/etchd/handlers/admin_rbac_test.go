package handlers_test

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/cozyartz/etchNFT/cmd/etchd/handlers"
	httptestutil "github.com/cozyartz/etchNFT/internal/testutils/http"
	apiadmin "github.com/cozyartz/etchNFT/pkg/api/types/admin"
	"github.com/cozyartz/etchNFT/pkg/auth"
	"github.com/cozyartz/etchNFT/pkg/domain"
	kerr "github.com/cozyartz/etchNFT/pkg/domain/errors"
	rbacmock "github.com/cozyartz/etchNFT/pkg/domain/rbac/db/mock"
)

func TestCreateRoleHandler(t *testing.T) {
	t.Run("it creates a role and records audit", func(t *testing.T) {
		rbac := rbacmock.NewRBACInterface()
		rbac.Impl.CreateRole = func(_ context.Context, name string, desc string, perms []domain.Permission) (domain.Role, error) {
			return domain.Role{Id: domain.RoleId(name), Name: name, Description: desc, Permissions: perms}, nil
		}
		audit := auditLog()

		e := echo.New()
		c, resp := httptestutil.Post(
			e, "/api/admin/roles",
			strings.NewReader(`{"name": "Fulfilment Staff", "description": "etches", "permissions": ["orders.read", "orders.update"]}`),
			httptestutil.ContentType(echo.MIMEApplicationJSON),
		)
		if err := asAdmin(t, c, admin, nil, handlers.CreateRoleHandler(rbac, auth.NewAuditor(audit))); err != nil {
			t.Fatal(err)
		}
		assertStatus(t, resp, http.StatusCreated)

		call := rbac.Calls.CreateRole.Last()
		if call.Name != "Fulfilment Staff" || call.Description != "etches" {
			t.Errorf("unexpected call: %+v", call)
		}
		if len(call.Permissions) != 2 || call.Permissions[1] != (domain.Permission{Resource: "orders", Action: "update"}) {
			t.Errorf("permissions = %+v", call.Permissions)
		}
		got := decode[apiadmin.Role](t, resp)
		if got.Id != "role_fulfilment_staff" || len(got.Permissions) != 2 {
			t.Errorf("unexpected response: %+v", got)
		}

		entry := audit.Calls.Record.Last()
		if entry.UserId != admin.Id || entry.Action != "create" || entry.Resource != "roles" || entry.ResourceId != "role_fulfilment_staff" {
			t.Errorf("unexpected audit: %+v", entry)
		}
	})

	for name, body := range map[string]string{
		"no name":            `{"permissions": ["orders.read"]}`,
		"broken permissions": `{"name": "x", "permissions": ["orders"]}`,
	} {
		t.Run(name+" is 400", func(t *testing.T) {
			rbac := rbacmock.NewRBACInterface()
			audit := auditLog()
			e := echo.New()
			c, _ := httptestutil.Post(
				e, "/api/admin/roles", strings.NewReader(body),
				httptestutil.ContentType(echo.MIMEApplicationJSON),
			)
			err := handlers.CreateRoleHandler(rbac, auth.NewAuditor(audit))(c)
			if got := codeOf(t, err); got != http.StatusBadRequest {
				t.Errorf("status code = %d", got)
			}
			if rbac.Calls.CreateRole.Times() != 0 || audit.Calls.Record.Times() != 0 {
				t.Error("nothing should be done")
			}
		})
	}
}

func TestDeleteRoleHandler(t *testing.T) {
	for name, testcase := range map[string]struct {
		err     error
		code    int
		audited bool
	}{
		"custom role":       {code: http.StatusNoContent, audited: true},
		"system role":       {err: fmt.Errorf("%w: role_admin", kerr.ErrSystemRole), code: http.StatusForbidden},
		"role in use":       {err: fmt.Errorf("%w: role_packer", kerr.ErrRoleInUse), code: http.StatusConflict},
		"role not existing": {err: kerr.ErrMissing, code: http.StatusNotFound},
	} {
		t.Run(name, func(t *testing.T) {
			rbac := rbacmock.NewRBACInterface()
			rbac.Impl.DeleteRole = func(context.Context, string) error { return testcase.err }
			audit := auditLog()

			e := echo.New()
			c, resp := httptestutil.Delete(e, "/api/admin/roles/role_packer")
			err := handlers.DeleteRoleHandler(rbac, auth.NewAuditor(audit), "roleId")(withParam(c, "roleId", "role_packer"))

			if got := rbac.Calls.DeleteRole.Last(); got != "role_packer" {
				t.Errorf("deleted %s", got)
			}
			if testcase.err == nil {
				if err != nil {
					t.Fatal(err)
				}
				assertStatus(t, resp, testcase.code)
			} else if got := codeOf(t, err); got != testcase.code {
				t.Errorf("status code = %d, want %d", got, testcase.code)
			}
			if got := audit.Calls.Record.Times() == 1; got != testcase.audited {
				t.Errorf("audited: %v", got)
			}
		})
	}
}

func TestUpdateRoleHandler(t *testing.T) {
	rbac := rbacmock.NewRBACInterface()
	rbac.Impl.UpdateRole = func(_ context.Context, id string, ch domain.RoleChange) (domain.Role, error) {
		return domain.Role{Id: id, Name: "Packer", Permissions: *ch.Permissions}, nil
	}
	audit := auditLog()

	e := echo.New()
	c, resp := httptestutil.Put(
		e, "/api/admin/roles/role_packer", strings.NewReader(`{"permissions": ["orders.read"]}`),
		httptestutil.ContentType(echo.MIMEApplicationJSON),
	)
	err := handlers.UpdateRoleHandler(rbac, auth.NewAuditor(audit), "roleId")(withParam(c, "roleId", "role_packer"))
	if err != nil {
		t.Fatal(err)
	}
	assertStatus(t, resp, http.StatusOK)

	call := rbac.Calls.UpdateRole.Last()
	if call.Id != "role_packer" || call.Change.Name != nil || call.Change.Permissions == nil || len(*call.Change.Permissions) != 1 {
		t.Errorf("unexpected call: %+v", call)
	}
	if entry := audit.Calls.Record.Last(); entry.Action != "update" || entry.ResourceId != "role_packer" {
		t.Errorf("unexpected audit: %+v", entry)
	}
}

func TestCreateUserHandler(t *testing.T) {
	t.Run("it registers the e-mail", func(t *testing.T) {
		rbac := rbacmock.NewRBACInterface()
		rbac.Impl.CreateUser = func(_ context.Context, email, name string) (domain.User, error) {
			return domain.User{Id: "user_2", Email: email, Name: name, Status: domain.UserActive}, nil
		}
		audit := auditLog()
		e := echo.New()
		c, resp := httptestutil.Post(
			e, "/api/admin/users", strings.NewReader(`{"email": "bob@example.com", "name": "Bob"}`),
			httptestutil.ContentType(echo.MIMEApplicationJSON),
		)
		if err := handlers.CreateUserHandler(rbac, auth.NewAuditor(audit))(c); err != nil {
			t.Fatal(err)
		}
		assertStatus(t, resp, http.StatusCreated)
		if got := decode[apiadmin.User](t, resp); got.Id != "user_2" || got.Status != "active" {
			t.Errorf("unexpected response: %+v", got)
		}
		if entry := audit.Calls.Record.Last(); entry.Resource != "users" || entry.ResourceId != "user_2" {
			t.Errorf("unexpected audit: %+v", entry)
		}
	})

	t.Run("broken e-mail is 400", func(t *testing.T) {
		rbac := rbacmock.NewRBACInterface()
		e := echo.New()
		c, _ := httptestutil.Post(
			e, "/api/admin/users", strings.NewReader(`{"email": "bob"}`),
			httptestutil.ContentType(echo.MIMEApplicationJSON),
		)
		err := handlers.CreateUserHandler(rbac, auth.NewAuditor(auditLog()))(c)
		if got := codeOf(t, err); got != http.StatusBadRequest {
			t.Errorf("status code = %d", got)
		}
	})
}

func TestSetUserStatusHandler(t *testing.T) {
	run := func(t *testing.T, target string, body string) (*rbacmock.RBACInterface, error) {
		rbac := rbacmock.NewRBACInterface()
		rbac.Impl.SetUserStatus = func(_ context.Context, id string, st domain.UserStatus) (domain.User, error) {
			return domain.User{Id: id, Status: st}, nil
		}
		e := echo.New()
		c, _ := httptestutil.Put(
			e, "/api/admin/users/"+target+"/status", strings.NewReader(body),
			httptestutil.ContentType(echo.MIMEApplicationJSON),
		)
		err := asAdmin(
			t, withParam(c, "userId", target), admin, nil,
			handlers.SetUserStatusHandler(rbac, auth.NewAuditor(auditLog()), "userId"),
		)
		return rbac, err
	}

	t.Run("it suspends another user", func(t *testing.T) {
		rbac, err := run(t, "user_2", `{"status": "suspended"}`)
		if err != nil {
			t.Fatal(err)
		}
		if call := rbac.Calls.SetUserStatus.Last(); call.Id != "user_2" || call.Status != domain.UserSuspended {
			t.Errorf("unexpected call: %+v", call)
		}
	})
	t.Run("admins cannot deactivate themselves", func(t *testing.T) {
		rbac, err := run(t, admin.Id, `{"status": "inactive"}`)
		if got := codeOf(t, err); got != http.StatusBadRequest {
			t.Errorf("status code = %d", got)
		}
		if rbac.Calls.SetUserStatus.Times() != 0 {
			t.Error("status should not be changed")
		}
	})
	t.Run("unknown status is 400", func(t *testing.T) {
		_, err := run(t, "user_2", `{"status": "banned"}`)
		if got := codeOf(t, err); got != http.StatusBadRequest {
			t.Errorf("status code = %d", got)
		}
	})
}

func TestGrantRoleHandler(t *testing.T) {
	rbac := rbacmock.NewRBACInterface()
	rbac.Impl.Grant = func(context.Context, string, string, string) error { return nil }
	rbac.Impl.User = func(_ context.Context, id string) (domain.User, error) {
		return domain.User{Id: id, Status: domain.UserActive, Roles: []domain.Role{{Id: "role_support", Name: "Support", System: true}}}, nil
	}
	audit := auditLog()

	e := echo.New()
	c, resp := httptestutil.Post(
		e, "/api/admin/users/user_2/roles", strings.NewReader(`{"roleId": "role_support"}`),
		httptestutil.ContentType(echo.MIMEApplicationJSON),
	)
	err := asAdmin(
		t, withParam(c, "userId", "user_2"), admin, nil,
		handlers.GrantRoleHandler(rbac, auth.NewAuditor(audit), "userId"),
	)
	if err != nil {
		t.Fatal(err)
	}
	assertStatus(t, resp, http.StatusOK)

	call := rbac.Calls.Grant.Last()
	if call.UserId != "user_2" || call.RoleId != "role_support" || call.GrantedBy != admin.Id {
		t.Errorf("unexpected call: %+v", call)
	}
	if got := decode[apiadmin.User](t, resp); len(got.Roles) != 1 || got.Roles[0].Id != "role_support" {
		t.Errorf("unexpected response: %+v", got)
	}
	if entry := audit.Calls.Record.Last(); entry.Action != "grant" || entry.UserId != admin.Id {
		t.Errorf("unexpected audit: %+v", entry)
	}
}

func TestRevokeRoleHandler(t *testing.T) {
	rbac := rbacmock.NewRBACInterface()
	rbac.Impl.Revoke = func(context.Context, string, string) error { return nil }
	audit := auditLog()

	e := echo.New()
	c, resp := httptestutil.Delete(e, "/api/admin/users/user_2/roles/role_support")
	c.SetParamNames("userId", "roleId")
	c.SetParamValues("user_2", "role_support")
	if err := handlers.RevokeRoleHandler(rbac, auth.NewAuditor(audit), "userId", "roleId")(c); err != nil {
		t.Fatal(err)
	}
	assertStatus(t, resp, http.StatusNoContent)
	if call := rbac.Calls.Revoke.Last(); call.UserId != "user_2" || call.RoleId != "role_support" {
		t.Errorf("unexpected call: %+v", call)
	}
	if entry := audit.Calls.Record.Last(); entry.Action != "revoke" {
		t.Errorf("unexpected audit: %+v", entry)
	}
}

func TestFindAuditHandler(t *testing.T) {
	for name, testcase := range map[string]struct {
		target  string
		found   int
		total   int
		query   domain.AuditFindQuery
		hasMore bool
	}{
		"first page": {
			target: "/api/admin/audit?limit=2&action=refund",
			found:  2, total: 5,
			query:   domain.AuditFindQuery{Action: "refund", Limit: 2},
			hasMore: true,
		},
		"last page": {
			target: "/api/admin/audit?limit=2&offset=4&userId=user_1&resource=orders",
			found:  1, total: 5,
			query:   domain.AuditFindQuery{UserId: "user_1", Resource: "orders", Limit: 2, Offset: 4},
			hasMore: false,
		},
	} {
		t.Run(name, func(t *testing.T) {
			audit := rbacmock.NewAuditInterface()
			audit.Impl.Find = func(context.Context, domain.AuditFindQuery) ([]domain.AuditEntry, int, error) {
				entries := []domain.AuditEntry{}
				for i := range testcase.found {
					entries = append(entries, domain.AuditEntry{Id: int64(i + 1), Action: "refund", Resource: "orders"})
				}
				return entries, testcase.total, nil
			}

			e := echo.New()
			c, resp := httptestutil.Get(e, testcase.target)
			if err := handlers.FindAuditHandler(audit)(c); err != nil {
				t.Fatal(err)
			}
			assertStatus(t, resp, http.StatusOK)
			if got := audit.Calls.Find.Last(); got != testcase.query {
				t.Errorf("query = %+v, want %+v", got, testcase.query)
			}
			got := decode[apiadmin.AuditPage](t, resp)
			if len(got.Entries) != testcase.found || got.Total != testcase.total || got.HasMore != testcase.hasMore {
				t.Errorf("unexpected page: %+v", got)
			}
		})
	}
}
