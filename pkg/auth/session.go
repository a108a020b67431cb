// Package auth signs admins in with GitHub and guards admin routes.
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/cozyartz/etchNFT/pkg/domain"
)

const (
	// SessionCookie holds the session token of an admin.
	SessionCookie = "etchnft_session"

	issuer = "etchnft"
)

var ErrInvalidSession = errors.New("invalid session")

// SessionClaim is the payload of session tokens.
type SessionClaim struct {
	jwt.RegisteredClaims

	// private claims
	Email string `json:"etchnft/email"`
}

// Session is who is signed in, read from a session token.
type Session struct {
	UserId    string
	Email     string
	ExpiresAt time.Time
}

type Sessions struct {
	secret []byte
	ttl    time.Duration
	secure bool
	clock  func() time.Time
}

type SessionsOption func(*Sessions)

func WithSessionClock(clock func() time.Time) SessionsOption {
	return func(s *Sessions) { s.clock = clock }
}

// NewSessions returns session tokens signed with HS256.
//
// # Args
//
// - secret: key to sign tokens.
//
// - ttl: lifetime of tokens.
//
// - secure: whether cookies are sent only over https.
func NewSessions(secret []byte, ttl time.Duration, secure bool, options ...SessionsOption) *Sessions {
	s := &Sessions{secret: secret, ttl: ttl, secure: secure, clock: time.Now}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// Issue signs a session token for the user.
func (s *Sessions) Issue(user domain.User) (string, time.Time, error) {
	now := s.clock()
	exp := now.Add(s.ttl)
	token, err := jwt.NewWithClaims(
		jwt.SigningMethodHS256,
		SessionClaim{
			RegisteredClaims: jwt.RegisteredClaims{
				// jti
				ID: uuid.NewString(),

				Issuer:    issuer,
				Subject:   user.Id,
				IssuedAt:  jwt.NewNumericDate(now),
				ExpiresAt: jwt.NewNumericDate(exp),
			},
			Email: user.Email,
		},
	).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, exp, nil
}

// Parse verifies the token and reads the session in it.
//
// # Returns
//
// - error: ErrInvalidSession when the token is malformed, forged or expired.
func (s *Sessions) Parse(token string) (Session, error) {
	claim := SessionClaim{}
	_, err := jwt.ParseWithClaims(
		token, &claim,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.clock),
	)
	if err != nil {
		return Session{}, fmt.Errorf("%w: %w", ErrInvalidSession, err)
	}
	if claim.Subject == "" {
		return Session{}, fmt.Errorf("%w: no subject", ErrInvalidSession)
	}
	return Session{
		UserId:    claim.Subject,
		Email:     claim.Email,
		ExpiresAt: claim.ExpiresAt.Time,
	}, nil
}

// Cookie carries token until expires.
func (s *Sessions) Cookie(token string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		MaxAge:   int(expires.Sub(s.clock()).Seconds()),
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// Clear removes the session cookie.
func (s *Sessions) Clear() *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	}
}
