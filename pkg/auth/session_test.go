package auth_test

import (
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/cozyartz/etchNFT/pkg/auth"
	"github.com/cozyartz/etchNFT/pkg/domain"
	"github.com/cozyartz/etchNFT/pkg/utils/try"
)

var secret = []byte("0123456789abcdef0123456789abcdef")

func clockAt(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestSessions(t *testing.T) {
	issuedAt := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	user := domain.User{Id: "user_1", Email: "admin@example.com", Status: domain.UserActive}

	t.Run("a token issued can be parsed back until it expires", func(t *testing.T) {
		issuer := auth.NewSessions(secret, time.Hour, true, auth.WithSessionClock(clockAt(issuedAt)))
		token, exp, err := issuer.Issue(user)
		if err != nil {
			t.Fatal(err)
		}
		if want := issuedAt.Add(time.Hour); !exp.Equal(want) {
			t.Errorf("expires at %s, want %s", exp, want)
		}

		reader := auth.NewSessions(secret, time.Hour, true, auth.WithSessionClock(clockAt(issuedAt.Add(59*time.Minute))))
		sess := try.To(reader.Parse(token)).OrFatal(t)
		if sess.UserId != user.Id || sess.Email != user.Email || !sess.ExpiresAt.Equal(exp) {
			t.Errorf("unexpected session: %+v", sess)
		}
	})

	t.Run("an expired token is rejected", func(t *testing.T) {
		issuer := auth.NewSessions(secret, time.Hour, true, auth.WithSessionClock(clockAt(issuedAt)))
		token, _, err := issuer.Issue(user)
		if err != nil {
			t.Fatal(err)
		}
		reader := auth.NewSessions(secret, time.Hour, true, auth.WithSessionClock(clockAt(issuedAt.Add(61*time.Minute))))
		if _, err := reader.Parse(token); !errors.Is(err, auth.ErrInvalidSession) {
			t.Errorf("expected ErrInvalidSession, got %v", err)
		}
	})

	t.Run("a token signed with another key is rejected", func(t *testing.T) {
		issuer := auth.NewSessions([]byte(strings.Repeat("x", 32)), time.Hour, true, auth.WithSessionClock(clockAt(issuedAt)))
		token, _, err := issuer.Issue(user)
		if err != nil {
			t.Fatal(err)
		}
		reader := auth.NewSessions(secret, time.Hour, true, auth.WithSessionClock(clockAt(issuedAt)))
		if _, err := reader.Parse(token); !errors.Is(err, auth.ErrInvalidSession) {
			t.Errorf("expected ErrInvalidSession, got %v", err)
		}
	})

	t.Run("a token signed with unexpected algorithm is rejected", func(t *testing.T) {
		claim := auth.SessionClaim{
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    "etchnft",
				Subject:   user.Id,
				ExpiresAt: jwt.NewNumericDate(issuedAt.Add(time.Hour)),
			},
		}
		token := try.To(
			jwt.NewWithClaims(jwt.SigningMethodHS512, claim).SignedString(secret),
		).OrFatal(t)
		reader := auth.NewSessions(secret, time.Hour, true, auth.WithSessionClock(clockAt(issuedAt)))
		if _, err := reader.Parse(token); !errors.Is(err, auth.ErrInvalidSession) {
			t.Errorf("expected ErrInvalidSession, got %v", err)
		}
	})

	t.Run("a token without expiration is rejected", func(t *testing.T) {
		claim := auth.SessionClaim{
			RegisteredClaims: jwt.RegisteredClaims{Issuer: "etchnft", Subject: user.Id},
		}
		token := try.To(
			jwt.NewWithClaims(jwt.SigningMethodHS256, claim).SignedString(secret),
		).OrFatal(t)
		reader := auth.NewSessions(secret, time.Hour, true, auth.WithSessionClock(clockAt(issuedAt)))
		if _, err := reader.Parse(token); !errors.Is(err, auth.ErrInvalidSession) {
			t.Errorf("expected ErrInvalidSession, got %v", err)
		}
	})

	t.Run("garbage is rejected", func(t *testing.T) {
		reader := auth.NewSessions(secret, time.Hour, true)
		if _, err := reader.Parse("not-a-token"); !errors.Is(err, auth.ErrInvalidSession) {
			t.Errorf("expected ErrInvalidSession, got %v", err)
		}
	})

	t.Run("cookies", func(t *testing.T) {
		s := auth.NewSessions(secret, time.Hour, false, auth.WithSessionClock(clockAt(issuedAt)))
		c := s.Cookie("token", issuedAt.Add(time.Hour))
		if c.Name != auth.SessionCookie || c.Value != "token" || c.MaxAge != 3600 {
			t.Errorf("unexpected cookie: %+v", c)
		}
		if !c.HttpOnly || c.Secure || c.SameSite != http.SameSiteLaxMode {
			t.Errorf("unexpected cookie attributes: %+v", c)
		}
		if cl := s.Clear(); cl.Name != auth.SessionCookie || cl.MaxAge != -1 {
			t.Errorf("unexpected clearing cookie: %+v", cl)
		}
	})
}
