package server

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cozyartz/etchNFT/pkg/checkout"
	"github.com/cozyartz/etchNFT/pkg/domain"
	"github.com/cozyartz/etchNFT/pkg/payments/coinbase"
	"github.com/cozyartz/etchNFT/pkg/payments/paypal"
	"github.com/cozyartz/etchNFT/pkg/payments/square"
)

type Marshalled[S any] interface {
	trySeal(string) S
}

// seal marshalled object.
//
// this function CAN CAUSE PANIC if misconfiguration is found.
//
// All types named `pkg/configs/server.XxxMarshall` are `Marshalled[*Xxx]` .
func TrySeal[S any](conf Marshalled[S]) S {
	return conf.trySeal("(root)")
}

// Configuration of the storefront.
//
// This type is marshalling value and mutable.
// Consider to use immutable version, `Config`.
type ConfigMarshall struct {
	Port             int32                    `yaml:"port"`
	Database         string                   `yaml:"database"`
	SchemaRepository string                   `yaml:"schemaRepository,omitempty"`
	PublicURL        string                   `yaml:"publicURL"`
	Redis            string                   `yaml:"redis,omitempty"`
	Orders           *OrdersConfigMarshall    `yaml:"orders,omitempty"`
	Pricing          *PricingConfigMarshall   `yaml:"pricing,omitempty"`
	Events           *EventsConfigMarshall    `yaml:"events,omitempty"`
	Square           *SquareConfigMarshall    `yaml:"square,omitempty"`
	PayPal           *PayPalConfigMarshall    `yaml:"paypal,omitempty"`
	Coinbase         *CoinbaseConfigMarshall  `yaml:"coinbase,omitempty"`
	Auth             *AuthConfigMarshall      `yaml:"auth"`
	RateLimit        *RateLimitConfigMarshall `yaml:"rateLimit,omitempty"`
	NFT              *NFTConfigMarshall       `yaml:"nft,omitempty"`
}

var _ Marshalled[*Config] = &ConfigMarshall{}

func (cm *ConfigMarshall) trySeal(path string) *Config {
	schema := cm.SchemaRepository
	if schema == "" {
		schema = "/etc/etchnft/schema"
	}
	var sq *square.Config
	if cm.Square != nil {
		sq = cm.Square.trySeal(path + ".square")
	}
	var pp *paypal.Config
	if cm.PayPal != nil {
		pp = cm.PayPal.trySeal(path + ".paypal")
	}
	var cb *CoinbaseConfig
	if cm.Coinbase != nil {
		cb = cm.Coinbase.trySeal(path + ".coinbase")
	}
	var nft *NFTConfig
	if cm.NFT != nil {
		nft = cm.NFT.trySeal(path + ".nft")
	}

	return &Config{
		port:             required(cm.Port, path+".port"),
		database:         required(cm.Database, path+".database"),
		schemaRepository: schema,
		publicURL:        required(cm.PublicURL, path+".publicURL"),
		redis:            cm.Redis,

		orders:    orDefault(cm.Orders).trySeal(path + ".orders"),
		pricing:   orDefault(cm.Pricing).trySeal(path + ".pricing"),
		events:    orDefault(cm.Events).trySeal(path + ".events"),
		square:    sq,
		paypal:    pp,
		coinbase:  cb,
		auth:      nonnil(cm.Auth, path+".auth").trySeal(path + ".auth"),
		rateLimit: orDefault(cm.RateLimit).trySeal(path + ".rateLimit"),
		nft:       nft,
	}
}

type OrdersConfigMarshall struct {
	PendingTTL time.Duration `yaml:"pendingTTL,omitempty"`
}

func (om *OrdersConfigMarshall) trySeal(path string) *OrdersConfig {
	ttl := om.PendingTTL
	if ttl == 0 {
		ttl = 24 * time.Hour
	}
	return &OrdersConfig{pendingTTL: positive(ttl, path+".pendingTTL")}
}

// Prices are strings to keep them exact.
type PricingConfigMarshall struct {
	Card   string `yaml:"card,omitempty"`
	PayPal string `yaml:"paypal,omitempty"`
	Crypto string `yaml:"crypto,omitempty"`
	EthUSD string `yaml:"ethUsd,omitempty"`
}

func (pm *PricingConfigMarshall) trySeal(path string) checkout.Pricing {
	def := checkout.DefaultPricing()
	return checkout.Pricing{
		Card:   money(pm.Card, def.Card, path+".card"),
		PayPal: money(pm.PayPal, def.PayPal, path+".paypal"),
		Crypto: money(pm.Crypto, def.Crypto, path+".crypto"),
		EthUSD: money(pm.EthUSD, def.EthUSD, path+".ethUsd"),
	}
}

type EventsConfigMarshall struct {
	MaxAttempts    int           `yaml:"maxAttempts,omitempty"`
	InitialBackoff time.Duration `yaml:"initialBackoff,omitempty"`
	Factor         float64       `yaml:"factor,omitempty"`
}

func (em *EventsConfigMarshall) trySeal(path string) domain.RetryPolicy {
	p := domain.DefaultRetryPolicy()
	if em.MaxAttempts != 0 {
		p.MaxAttempts = positive(em.MaxAttempts, path+".maxAttempts")
	}
	if em.InitialBackoff != 0 {
		p.InitialBackoff = positive(em.InitialBackoff, path+".initialBackoff")
	}
	if em.Factor != 0 {
		if em.Factor < 1 {
			panic(fmt.Sprintf("%s.factor should be 1 or more", path))
		}
		p.Factor = em.Factor
	}
	return p
}

type SquareConfigMarshall struct {
	Sandbox         bool   `yaml:"sandbox,omitempty"`
	AccessToken     string `yaml:"accessToken"`
	LocationId      string `yaml:"locationId"`
	SignatureKey    string `yaml:"signatureKey,omitempty"`
	NotificationURL string `yaml:"notificationURL,omitempty"`
}

func (sm *SquareConfigMarshall) trySeal(path string) *square.Config {
	base := square.ProductionBaseURL
	if sm.Sandbox {
		base = square.SandboxBaseURL
	}
	return &square.Config{
		BaseURL:         base,
		AccessToken:     required(sm.AccessToken, path+".accessToken"),
		LocationId:      required(sm.LocationId, path+".locationId"),
		SignatureKey:    sm.SignatureKey,
		NotificationURL: sm.NotificationURL,
	}
}

type PayPalConfigMarshall struct {
	Live      bool   `yaml:"live,omitempty"`
	ClientId  string `yaml:"clientId"`
	Secret    string `yaml:"secret"`
	WebhookId string `yaml:"webhookId,omitempty"`
	BrandName string `yaml:"brandName,omitempty"`
	ReturnURL string `yaml:"returnURL,omitempty"`
	CancelURL string `yaml:"cancelURL,omitempty"`
}

func (pm *PayPalConfigMarshall) trySeal(path string) *paypal.Config {
	base := paypal.SandboxBaseURL
	if pm.Live {
		base = paypal.LiveBaseURL
	}
	return &paypal.Config{
		ClientId:  required(pm.ClientId, path+".clientId"),
		Secret:    required(pm.Secret, path+".secret"),
		BaseURL:   base,
		WebhookId: pm.WebhookId,
		BrandName: pm.BrandName,
		ReturnURL: pm.ReturnURL,
		CancelURL: pm.CancelURL,
	}
}

type CoinbaseConfigMarshall struct {
	APIKey        string `yaml:"apiKey"`
	WebhookSecret string `yaml:"webhookSecret,omitempty"`
	RedirectURL   string `yaml:"redirectURL,omitempty"`
	CancelURL     string `yaml:"cancelURL,omitempty"`
}

func (cm *CoinbaseConfigMarshall) trySeal(path string) *CoinbaseConfig {
	return &CoinbaseConfig{
		client: coinbase.Config{
			APIKey:        required(cm.APIKey, path+".apiKey"),
			WebhookSecret: cm.WebhookSecret,
		},
		redirectURL: cm.RedirectURL,
		cancelURL:   cm.CancelURL,
	}
}

type AuthConfigMarshall struct {
	SessionSecret string                `yaml:"sessionSecret"`
	SessionTTL    time.Duration         `yaml:"sessionTTL,omitempty"`
	SecureCookie  *bool                 `yaml:"secureCookie,omitempty"`
	GitHub        *GitHubConfigMarshall `yaml:"github,omitempty"`
}

func (am *AuthConfigMarshall) trySeal(path string) *AuthConfig {
	secret := required(am.SessionSecret, path+".sessionSecret")
	if len(secret) < 32 {
		panic(fmt.Sprintf("%s.sessionSecret should be 32 bytes or longer", path))
	}
	ttl := am.SessionTTL
	if ttl == 0 {
		ttl = 24 * time.Hour
	}
	secure := true
	if am.SecureCookie != nil {
		secure = *am.SecureCookie
	}
	var github *GitHubConfig
	if am.GitHub != nil {
		github = am.GitHub.trySeal(path + ".github")
	}
	return &AuthConfig{
		sessionSecret: []byte(secret),
		sessionTTL:    positive(ttl, path+".sessionTTL"),
		secureCookie:  secure,
		github:        github,
	}
}

type GitHubConfigMarshall struct {
	ClientId     string `yaml:"clientId"`
	ClientSecret string `yaml:"clientSecret"`
	RedirectURL  string `yaml:"redirectURL"`
}

func (gm *GitHubConfigMarshall) trySeal(path string) *GitHubConfig {
	return &GitHubConfig{
		clientId:     required(gm.ClientId, path+".clientId"),
		clientSecret: required(gm.ClientSecret, path+".clientSecret"),
		redirectURL:  required(gm.RedirectURL, path+".redirectURL"),
	}
}

type RateLimitConfigMarshall struct {
	Window time.Duration `yaml:"window,omitempty"`
	Limit  int           `yaml:"limit,omitempty"`
}

func (rm *RateLimitConfigMarshall) trySeal(path string) *RateLimitConfig {
	window := rm.Window
	if window == 0 {
		window = time.Minute
	}
	limit := rm.Limit
	if limit == 0 {
		limit = 100
	}
	return &RateLimitConfig{
		window: positive(window, path+".window"),
		limit:  positive(limit, path+".limit"),
	}
}

type NFTConfigMarshall struct {
	APIKey   string        `yaml:"apiKey"`
	BaseURL  string        `yaml:"baseURL,omitempty"`
	CacheTTL time.Duration `yaml:"cacheTTL,omitempty"`
}

func (nm *NFTConfigMarshall) trySeal(path string) *NFTConfig {
	base := nm.BaseURL
	if base == "" {
		base = "https://api.simplehash.com"
	}
	ttl := nm.CacheTTL
	if ttl == 0 {
		ttl = 5 * time.Minute
	}
	return &NFTConfig{
		apiKey:   required(nm.APIKey, path+".apiKey"),
		baseURL:  base,
		cacheTTL: positive(ttl, path+".cacheTTL"),
	}
}

func nonnil[T any](v *T, path string) *T {
	if v == nil {
		panic(path + " is required")
	}
	return v
}

func required[T comparable](v T, path string) T {
	if v == *new(T) {
		panic(path + " is required")
	}
	return v
}

func positive[T int | int32 | time.Duration](v T, path string) T {
	if v <= 0 {
		panic(path + " should be positive")
	}
	return v
}

// orDefault returns v, or zero value of the section when it is omitted.
func orDefault[T any](v *T) *T {
	if v == nil {
		return new(T)
	}
	return v
}

func money(v string, def decimal.Decimal, path string) decimal.Decimal {
	if v == "" {
		return def
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		panic(fmt.Errorf("%s can not be parsed: %w", path, err))
	}
	if d.IsNegative() {
		panic(path + " should not be negative")
	}
	return d
}
