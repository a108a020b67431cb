package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	apiadmin "github.com/cozyartz/etchNFT/pkg/api/types/admin"
	apierr "github.com/cozyartz/etchNFT/pkg/api/types/errors"
	"github.com/cozyartz/etchNFT/pkg/auth"
	"github.com/cozyartz/etchNFT/pkg/domain"
	kerr "github.com/cozyartz/etchNFT/pkg/domain/errors"
	krbac "github.com/cozyartz/etchNFT/pkg/domain/rbac/db"
	"github.com/cozyartz/etchNFT/pkg/utils"
)

// OAuth is satisfied by *auth.GitHub.
type OAuth interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (domain.GithubProfile, error)
}

var _ OAuth = &auth.GitHub{}

// LoginHandler sends the admin to GitHub.
func LoginHandler(oauth OAuth, secure bool) echo.HandlerFunc {
	return func(c echo.Context) error {
		state := auth.NewState()
		c.SetCookie(auth.StateCookieOf(state, secure))
		return c.Redirect(http.StatusFound, oauth.AuthCodeURL(state))
	}
}

// CallbackHandler signs in the admin coming back from GitHub, then redirects to landing.
//
// Only users registered beforehand can sign in.
func CallbackHandler(
	oauth OAuth, rbac krbac.RBACInterface, sessions *auth.Sessions, auditor *auth.Auditor,
	secure bool, landing string,
) echo.HandlerFunc {
	return func(c echo.Context) error {
		if e := c.QueryParam("error"); e != "" {
			return apierr.Unauthorized("sign in with GitHub again", fmt.Errorf("github: %s", e))
		}

		state, err := c.Cookie(auth.StateCookie)
		if err != nil || state.Value == "" || state.Value != c.QueryParam("state") {
			return apierr.BadRequest("state mismatch. sign in again", err)
		}
		c.SetCookie(auth.ClearState(secure))

		code := c.QueryParam("code")
		if code == "" {
			return apierr.BadRequest(`"code" is required`, nil)
		}

		ctx := c.Request().Context()
		profile, err := oauth.Exchange(ctx, code)
		if err != nil {
			return apierr.Unauthorized("sign in with GitHub again", err)
		}

		user, err := rbac.Login(ctx, profile)
		if errors.Is(err, kerr.ErrMissing) {
			return apierr.Forbidden("ask an administrator to register your e-mail address", err)
		} else if err != nil {
			return apierr.InternalServerError(err)
		}
		if user.Status != domain.UserActive {
			return apierr.Forbidden(
				"ask an administrator to activate your account",
				fmt.Errorf("user %s is %s", user.Id, user.Status),
			)
		}

		token, expires, err := sessions.Issue(user)
		if err != nil {
			return apierr.InternalServerError(err)
		}
		c.SetCookie(sessions.Cookie(token, expires))

		if err := auditor.RecordFor(c, user.Id, "login", "users", user.Id, map[string]any{
			"github": profile.Login,
		}); err != nil {
			c.Logger().Warnf("failed to record audit: %+v", err)
		}
		return c.Redirect(http.StatusFound, landing)
	}
}

func LogoutHandler(sessions *auth.Sessions) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.SetCookie(sessions.Clear())
		return c.NoContent(http.StatusNoContent)
	}
}

// MeHandler answers who is signed in, with permissions.
func MeHandler() echo.HandlerFunc {
	return func(c echo.Context) error {
		p, ok := auth.PrincipalOf(c)
		if !ok {
			return apierr.Unauthorized("sign in with GitHub", nil)
		}
		perms := utils.KeysOf(p.Permissions)
		return c.JSON(http.StatusOK, apiadmin.Me{
			User:        apiadmin.ComposeUser(p.User),
			Permissions: utils.Sorted(perms, func(a, b string) bool { return a < b }),
		})
	}
}
