package server

import (
	"time"

	"github.com/cozyartz/etchNFT/pkg/checkout"
	"github.com/cozyartz/etchNFT/pkg/domain"
	"github.com/cozyartz/etchNFT/pkg/payments/coinbase"
	"github.com/cozyartz/etchNFT/pkg/payments/paypal"
	"github.com/cozyartz/etchNFT/pkg/payments/square"
)

// Config of the storefront, shared by etchd and loops.
//
// To get Config instance, use `TrySeal(*ConfigMarshall)` or `Unmarshal`.
type Config struct {
	port             int32
	database         string
	schemaRepository string
	publicURL        string
	redis            string

	orders    *OrdersConfig
	pricing   checkout.Pricing
	events    domain.RetryPolicy
	square    *square.Config
	paypal    *paypal.Config
	coinbase  *CoinbaseConfig
	auth      *AuthConfig
	rateLimit *RateLimitConfig
	nft       *NFTConfig
}

// Port etchd listens.
func (c *Config) Port() int32 {
	return c.port
}

// Connection string for database.
func (c *Config) Database() string {
	return c.database
}

// Directory of versioned schema (`N/*.sql`).
func (c *Config) SchemaRepository() string {
	return c.schemaRepository
}

// URL the storefront is served at. Redirects of providers come back under it.
func (c *Config) PublicURL() string {
	return c.publicURL
}

// Redis URL. Empty when redis is not used.
func (c *Config) Redis() string {
	return c.redis
}

func (c *Config) Orders() *OrdersConfig {
	return c.orders
}

func (c *Config) Pricing() checkout.Pricing {
	return c.pricing
}

// Retry policy of deferred payment events.
func (c *Config) Events() domain.RetryPolicy {
	return c.events
}

// nil when card payments are disabled.
func (c *Config) Square() *square.Config {
	return c.square
}

// nil when PayPal is disabled.
func (c *Config) PayPal() *paypal.Config {
	return c.paypal
}

// nil when crypto charges are disabled.
func (c *Config) Coinbase() *CoinbaseConfig {
	return c.coinbase
}

func (c *Config) Auth() *AuthConfig {
	return c.auth
}

func (c *Config) RateLimit() *RateLimitConfig {
	return c.rateLimit
}

// nil when NFT lookup is disabled.
func (c *Config) NFT() *NFTConfig {
	return c.nft
}

type OrdersConfig struct {
	pendingTTL time.Duration
}

// Pending orders older than this are failed by the expire loop.
func (o *OrdersConfig) PendingTTL() time.Duration {
	return o.pendingTTL
}

type CoinbaseConfig struct {
	client      coinbase.Config
	redirectURL string
	cancelURL   string
}

func (c *CoinbaseConfig) Client() coinbase.Config {
	return c.client
}

func (c *CoinbaseConfig) RedirectURL() string {
	return c.redirectURL
}

func (c *CoinbaseConfig) CancelURL() string {
	return c.cancelURL
}

type AuthConfig struct {
	sessionSecret []byte
	sessionTTL    time.Duration
	secureCookie  bool
	github        *GitHubConfig
}

// Key to sign session tokens.
func (a *AuthConfig) SessionSecret() []byte {
	return a.sessionSecret
}

func (a *AuthConfig) SessionTTL() time.Duration {
	return a.sessionTTL
}

func (a *AuthConfig) SecureCookie() bool {
	return a.secureCookie
}

// nil when GitHub login is disabled.
func (a *AuthConfig) GitHub() *GitHubConfig {
	return a.github
}

type GitHubConfig struct {
	clientId     string
	clientSecret string
	redirectURL  string
}

func (g *GitHubConfig) ClientId() string {
	return g.clientId
}

func (g *GitHubConfig) ClientSecret() string {
	return g.clientSecret
}

func (g *GitHubConfig) RedirectURL() string {
	return g.redirectURL
}

type RateLimitConfig struct {
	window time.Duration
	limit  int
}

func (r *RateLimitConfig) Window() time.Duration {
	return r.window
}

// Requests allowed per window.
func (r *RateLimitConfig) Limit() int {
	return r.limit
}

type NFTConfig struct {
	apiKey   string
	baseURL  string
	cacheTTL time.Duration
}

// SimpleHash API key.
func (n *NFTConfig) APIKey() string {
	return n.apiKey
}

func (n *NFTConfig) BaseURL() string {
	return n.baseURL
}

func (n *NFTConfig) CacheTTL() time.Duration {
	return n.cacheTTL
}
