package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"

	"github.com/cozyartz/etchNFT/pkg/domain"
	xe "github.com/cozyartz/etchNFT/pkg/errors"
)

const (
	// StateCookie holds the OAuth state between login and callback.
	StateCookie = "etchnft_oauth_state"

	stateTTL = 10 * time.Minute

	githubAPI = "https://api.github.com"
)

type GitHub struct {
	conf    *oauth2.Config
	apiBase string
}

type GitHubOption func(*GitHub)

// WithEndpoint replaces GitHub endpoints. For tests.
func WithEndpoint(endpoint oauth2.Endpoint, apiBase string) GitHubOption {
	return func(g *GitHub) {
		g.conf.Endpoint = endpoint
		g.apiBase = apiBase
	}
}

func NewGitHub(clientId string, clientSecret string, redirectURL string, options ...GitHubOption) *GitHub {
	g := &GitHub{
		conf: &oauth2.Config{
			ClientID:     clientId,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Endpoint:     github.Endpoint,
			Scopes:       []string{"user:email"},
		},
		apiBase: githubAPI,
	}
	for _, opt := range options {
		opt(g)
	}
	return g
}

// NewState returns a random OAuth state.
func NewState() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// StateCookieOf carries state to the callback.
func StateCookieOf(state string, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     StateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   int(stateTTL.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}

func ClearState(secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     StateCookie,
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// AuthCodeURL is where admins are sent to sign in.
func (g *GitHub) AuthCodeURL(state string) string {
	return g.conf.AuthCodeURL(state)
}

type githubUser struct {
	Id        int64  `json:"id"`
	Login     string `json:"login"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`
}

type githubEmail struct {
	Email    string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

// Exchange trades the code for a token and reads who signed in.
//
// When the profile has no public email, the primary verified email is used.
func (g *GitHub) Exchange(ctx context.Context, code string) (domain.GithubProfile, error) {
	tok, err := g.conf.Exchange(ctx, code)
	if err != nil {
		return domain.GithubProfile{}, xe.Wrap(err)
	}
	client := g.conf.Client(ctx, tok)

	u := githubUser{}
	if err := g.get(ctx, client, "/user", &u); err != nil {
		return domain.GithubProfile{}, err
	}

	email := u.Email
	if email == "" {
		emails := []githubEmail{}
		if err := g.get(ctx, client, "/user/emails", &emails); err != nil {
			return domain.GithubProfile{}, err
		}
		for _, e := range emails {
			if e.Primary && e.Verified {
				email = e.Email
				break
			}
		}
	}
	if email == "" {
		return domain.GithubProfile{}, fmt.Errorf("github user %s has no verified email", u.Login)
	}

	name := u.Name
	if name == "" {
		name = u.Login
	}
	return domain.GithubProfile{
		Id:        strconv.FormatInt(u.Id, 10),
		Login:     u.Login,
		Email:     email,
		Name:      name,
		AvatarURL: u.AvatarURL,
	}, nil
}

func (g *GitHub) get(ctx context.Context, client *http.Client, path string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.apiBase+path, nil)
	if err != nil {
		return xe.Wrap(err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	resp, err := client.Do(req)
	if err != nil {
		return xe.Wrap(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("github %s: %s: %s", path, resp.Status, body)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return xe.Wrap(err)
	}
	return nil
}
