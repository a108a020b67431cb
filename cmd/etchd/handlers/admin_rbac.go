package handlers

import (
	"net/http"
	"net/mail"

	"github.com/labstack/echo/v4"

	apiadmin "github.com/cozyartz/etchNFT/pkg/api/types/admin"
	apierr "github.com/cozyartz/etchNFT/pkg/api/types/errors"
	"github.com/cozyartz/etchNFT/pkg/auth"
	"github.com/cozyartz/etchNFT/pkg/domain"
	krbac "github.com/cozyartz/etchNFT/pkg/domain/rbac/db"
	"github.com/cozyartz/etchNFT/pkg/utils"
)

// audited records what the admin did. Failures are logged, not returned:
// the change is already made.
func audited(c echo.Context, auditor *auth.Auditor, action string, resource string, id string, details map[string]any) {
	if err := auditor.Record(c, action, resource, id, details); err != nil {
		c.Logger().Warnf("failed to record audit (%s %s %s): %+v", action, resource, id, err)
	}
}

func ListPermissionsHandler(rbac krbac.RBACInterface) echo.HandlerFunc {
	return func(c echo.Context) error {
		ps, err := rbac.Permissions(c.Request().Context())
		if err != nil {
			return apierr.InternalServerError(err)
		}
		return c.JSON(http.StatusOK, utils.Map(ps, apiadmin.ComposePermission))
	}
}

func ListRolesHandler(rbac krbac.RBACInterface) echo.HandlerFunc {
	return func(c echo.Context) error {
		roles, err := rbac.Roles(c.Request().Context())
		if err != nil {
			return apierr.InternalServerError(err)
		}
		return c.JSON(http.StatusOK, utils.Map(roles, apiadmin.ComposeRole))
	}
}

func GetRoleHandler(rbac krbac.RBACInterface, param string) echo.HandlerFunc {
	return func(c echo.Context) error {
		r, err := rbac.Role(c.Request().Context(), c.Param(param))
		if err != nil {
			return asHTTPError(err)
		}
		return c.JSON(http.StatusOK, apiadmin.ComposeRole(r))
	}
}

// CreateRoleHandler creates a role named by the body. The id is "role_{snake_case_name}".
func CreateRoleHandler(rbac krbac.RBACInterface, auditor *auth.Auditor) echo.HandlerFunc {
	return func(c echo.Context) error {
		spec, err := bind[apiadmin.RoleSpec](c)
		if err != nil {
			return err
		}
		if spec.Name == nil || *spec.Name == "" {
			return apierr.BadRequest(`"name" is required`, nil)
		}
		change, err := spec.Change()
		if err != nil {
			return apierr.BadRequest(`"permissions" should be a list of "RESOURCE.ACTION"`, err)
		}
		perms := []domain.Permission{}
		if change.Permissions != nil {
			perms = *change.Permissions
		}
		desc := ""
		if spec.Description != nil {
			desc = *spec.Description
		}

		role, err := rbac.CreateRole(c.Request().Context(), *spec.Name, desc, perms)
		if err != nil {
			return asHTTPError(err)
		}
		audited(c, auditor, "create", "roles", role.Id, map[string]any{
			"name":        role.Name,
			"permissions": utils.Map(perms, domain.Permission.String),
		})
		return c.JSON(http.StatusCreated, apiadmin.ComposeRole(role))
	}
}

func UpdateRoleHandler(rbac krbac.RBACInterface, auditor *auth.Auditor, param string) echo.HandlerFunc {
	return func(c echo.Context) error {
		spec, err := bind[apiadmin.RoleSpec](c)
		if err != nil {
			return err
		}
		change, err := spec.Change()
		if err != nil {
			return apierr.BadRequest(`"permissions" should be a list of "RESOURCE.ACTION"`, err)
		}

		id := c.Param(param)
		role, err := rbac.UpdateRole(c.Request().Context(), id, change)
		if err != nil {
			return asHTTPError(err)
		}
		details := map[string]any{}
		if spec.Name != nil {
			details["name"] = *spec.Name
		}
		if spec.Description != nil {
			details["description"] = *spec.Description
		}
		if spec.Permissions != nil {
			details["permissions"] = *spec.Permissions
		}
		audited(c, auditor, "update", "roles", id, details)
		return c.JSON(http.StatusOK, apiadmin.ComposeRole(role))
	}
}

func DeleteRoleHandler(rbac krbac.RBACInterface, auditor *auth.Auditor, param string) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := c.Param(param)
		if err := rbac.DeleteRole(c.Request().Context(), id); err != nil {
			return asHTTPError(err)
		}
		audited(c, auditor, "delete", "roles", id, nil)
		return c.NoContent(http.StatusNoContent)
	}
}

func ListUsersHandler(rbac krbac.RBACInterface) echo.HandlerFunc {
	return func(c echo.Context) error {
		users, err := rbac.Users(c.Request().Context())
		if err != nil {
			return apierr.InternalServerError(err)
		}
		return c.JSON(http.StatusOK, utils.Map(users, apiadmin.ComposeUser))
	}
}

// CreateUserHandler registers a user who can sign in with GitHub by the e-mail address.
func CreateUserHandler(rbac krbac.RBACInterface, auditor *auth.Auditor) echo.HandlerFunc {
	return func(c echo.Context) error {
		req, err := bind[apiadmin.NewUser](c)
		if err != nil {
			return err
		}
		if _, err := mail.ParseAddress(req.Email); req.Email == "" || err != nil {
			return apierr.BadRequest(`"email" should be an e-mail address`, err)
		}

		user, err := rbac.CreateUser(c.Request().Context(), req.Email, req.Name)
		if err != nil {
			return asHTTPError(err)
		}
		audited(c, auditor, "create", "users", user.Id, map[string]any{"email": user.Email})
		return c.JSON(http.StatusCreated, apiadmin.ComposeUser(user))
	}
}

func SetUserStatusHandler(rbac krbac.RBACInterface, auditor *auth.Auditor, param string) echo.HandlerFunc {
	return func(c echo.Context) error {
		req, err := bind[apiadmin.UserStatus](c)
		if err != nil {
			return err
		}
		status, err := domain.AsUserStatus(req.Status)
		if err != nil {
			return apierr.BadRequest(`"status" should be one of "active", "inactive" or "suspended"`, err)
		}

		id := c.Param(param)
		if p, ok := auth.PrincipalOf(c); ok && p.User.Id == id && status != domain.UserActive {
			return apierr.BadRequest("you cannot deactivate yourself", nil)
		}
		user, err := rbac.SetUserStatus(c.Request().Context(), id, status)
		if err != nil {
			return asHTTPError(err)
		}
		audited(c, auditor, "update_status", "users", id, map[string]any{"status": string(status)})
		return c.JSON(http.StatusOK, apiadmin.ComposeUser(user))
	}
}

// GrantRoleHandler grants the role in the body to the user, and answers the user.
func GrantRoleHandler(rbac krbac.RBACInterface, auditor *auth.Auditor, param string) echo.HandlerFunc {
	return func(c echo.Context) error {
		req, err := bind[apiadmin.Grant](c)
		if err != nil {
			return err
		}
		if req.RoleId == "" {
			return apierr.BadRequest(`"roleId" is required`, nil)
		}

		grantedBy := ""
		if p, ok := auth.PrincipalOf(c); ok {
			grantedBy = p.User.Id
		}
		ctx := c.Request().Context()
		userId := c.Param(param)
		if err := rbac.Grant(ctx, userId, req.RoleId, grantedBy); err != nil {
			return asHTTPError(err)
		}
		audited(c, auditor, "grant", "users", userId, map[string]any{"roleId": req.RoleId})

		user, err := rbac.User(ctx, userId)
		if err != nil {
			return asHTTPError(err)
		}
		return c.JSON(http.StatusOK, apiadmin.ComposeUser(user))
	}
}

func RevokeRoleHandler(rbac krbac.RBACInterface, auditor *auth.Auditor, userParam string, roleParam string) echo.HandlerFunc {
	return func(c echo.Context) error {
		userId, roleId := c.Param(userParam), c.Param(roleParam)
		if err := rbac.Revoke(c.Request().Context(), userId, roleId); err != nil {
			return asHTTPError(err)
		}
		audited(c, auditor, "revoke", "users", userId, map[string]any{"roleId": roleId})
		return c.NoContent(http.StatusNoContent)
	}
}

// FindAuditHandler lists audit entries, newest first.
//
// Query: userId, action, resource, limit (up to 100, 50 by default) and offset.
func FindAuditHandler(audit krbac.AuditInterface) echo.HandlerFunc {
	return func(c echo.Context) error {
		limit, offset, err := page(c)
		if err != nil {
			return err
		}
		entries, total, err := audit.Find(c.Request().Context(), domain.AuditFindQuery{
			UserId:   c.QueryParam("userId"),
			Action:   c.QueryParam("action"),
			Resource: c.QueryParam("resource"),
			Limit:    limit,
			Offset:   offset,
		})
		if err != nil {
			return apierr.InternalServerError(err)
		}
		return c.JSON(http.StatusOK, apiadmin.AuditPage{
			Entries: utils.Map(entries, apiadmin.ComposeAuditEntry),
			Total:   total,
			Limit:   limit,
			Offset:  offset,
			HasMore: offset+len(entries) < total,
		})
	}
}
