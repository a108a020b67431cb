package auth

import (
	"errors"
	"fmt"

	"github.com/labstack/echo/v4"

	apierr "github.com/cozyartz/etchNFT/pkg/api/types/errors"
	"github.com/cozyartz/etchNFT/pkg/domain"
	kerr "github.com/cozyartz/etchNFT/pkg/domain/errors"
	krbac "github.com/cozyartz/etchNFT/pkg/domain/rbac/db"
)

const principalKey = "etchnft/principal"

// Principal is the admin calling a route.
type Principal struct {
	User        domain.User
	Permissions domain.PermissionSet
}

// PrincipalOf returns the principal set by Authenticate.
func PrincipalOf(c echo.Context) (Principal, bool) {
	p, ok := c.Get(principalKey).(Principal)
	return p, ok
}

// Authenticate reads the session cookie and loads the user with permissions.
//
// Requests without valid session are answered 401, and inactive users 403.
func Authenticate(sessions *Sessions, rbac krbac.RBACInterface) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cookie, err := c.Cookie(SessionCookie)
			if err != nil || cookie.Value == "" {
				return apierr.Unauthorized("sign in with GitHub", nil)
			}
			sess, err := sessions.Parse(cookie.Value)
			if err != nil {
				return apierr.Unauthorized("sign in again", err)
			}

			ctx := c.Request().Context()
			user, err := rbac.User(ctx, sess.UserId)
			if errors.Is(err, kerr.ErrMissing) {
				return apierr.Unauthorized("sign in again", err)
			} else if err != nil {
				return apierr.InternalServerError(err)
			}
			if user.Status != domain.UserActive {
				return apierr.Forbidden(
					"ask an administrator to activate your account",
					fmt.Errorf("user %s is %s", user.Id, user.Status),
				)
			}
			perms, err := rbac.PermissionsOf(ctx, user.Id)
			if err != nil {
				return apierr.InternalServerError(err)
			}

			c.Set(principalKey, Principal{User: user, Permissions: perms})
			return next(c)
		}
	}
}

// RequirePermission answers 403 unless the principal has resource.action.
//
// It should be placed after Authenticate.
func RequirePermission(resource string, action string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, ok := PrincipalOf(c)
			if !ok {
				return apierr.Unauthorized("sign in with GitHub", nil)
			}
			if !p.Permissions.Has(resource, action) {
				return apierr.Forbidden(
					"",
					fmt.Errorf("permission %s.%s is required", resource, action),
				)
			}
			return next(c)
		}
	}
}
