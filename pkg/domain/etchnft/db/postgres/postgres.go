package postgres

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"

	kpool "github.com/cozyartz/etchNFT/pkg/conn/db/postgres/pool"
	"github.com/cozyartz/etchNFT/pkg/domain"
	kdrop "github.com/cozyartz/etchNFT/pkg/domain/drop/db"
	kpgdrop "github.com/cozyartz/etchNFT/pkg/domain/drop/db/postgres"
	kdb "github.com/cozyartz/etchNFT/pkg/domain/etchnft/db"
	korder "github.com/cozyartz/etchNFT/pkg/domain/order/db"
	kpgorder "github.com/cozyartz/etchNFT/pkg/domain/order/db/postgres"
	kpayment "github.com/cozyartz/etchNFT/pkg/domain/payment/db"
	kpgpayment "github.com/cozyartz/etchNFT/pkg/domain/payment/db/postgres"
	krbac "github.com/cozyartz/etchNFT/pkg/domain/rbac/db"
	kpgrbac "github.com/cozyartz/etchNFT/pkg/domain/rbac/db/postgres"
	kschema "github.com/cozyartz/etchNFT/pkg/domain/schema/db"
	kpgschema "github.com/cozyartz/etchNFT/pkg/domain/schema/db/postgres"
	kupload "github.com/cozyartz/etchNFT/pkg/domain/upload/db"
	kpgupload "github.com/cozyartz/etchNFT/pkg/domain/upload/db/postgres"
	xe "github.com/cozyartz/etchNFT/pkg/errors"
)

type etchDBPostgres struct {
	pool     kpool.Pool
	orders   korder.OrderInterface
	payments kpayment.PaymentEventInterface
	drops    kdrop.DropInterface
	uploads  kupload.UploadInterface
	rbac     krbac.RBACInterface
	audit    krbac.AuditInterface
	schema   kschema.SchemaInterface
}

type Config struct {
	RetryPolicy      domain.RetryPolicy
	SchemaRepository string
}

func DefaultConfig() Config {
	return Config{RetryPolicy: domain.DefaultRetryPolicy()}
}

type Option func(*Config) *Config

// WithRetryPolicy sets how deferred payment events are retried.
func WithRetryPolicy(policy domain.RetryPolicy) Option {
	return func(c *Config) *Config {
		c.RetryPolicy = policy
		return c
	}
}

// WithSchemaRepository enables Schema().Upgrade with the repository directory.
func WithSchemaRepository(repository string) Option {
	return func(c *Config) *Config {
		c.SchemaRepository = repository
		return c
	}
}

func New(ctx context.Context, url string, options ...Option) (kdb.Database, error) {
	pool, err := pgxpool.Connect(ctx, url)
	if err != nil {
		return nil, xe.Wrap(err)
	}
	return Wrap(kpool.Wrap(pool), options...), nil
}

// Wrap builds Database upon an established pool.
func Wrap(p kpool.Pool, options ...Option) kdb.Database {
	c := DefaultConfig()
	for _, option := range options {
		c = *option(&c)
	}

	var schema kschema.SchemaInterface = kpgschema.Null()
	if c.SchemaRepository != "" {
		schema = kpgschema.New(p, c.SchemaRepository)
	}

	return &etchDBPostgres{
		pool:     p,
		orders:   kpgorder.New(p),
		payments: kpgpayment.New(p, kpgpayment.WithRetryPolicy(c.RetryPolicy)),
		drops:    kpgdrop.New(p),
		uploads:  kpgupload.New(p),
		rbac:     kpgrbac.New(p),
		audit:    kpgrbac.NewAudit(p),
		schema:   schema,
	}
}

func (e *etchDBPostgres) Orders() korder.OrderInterface {
	return e.orders
}

func (e *etchDBPostgres) PaymentEvents() kpayment.PaymentEventInterface {
	return e.payments
}

func (e *etchDBPostgres) Drops() kdrop.DropInterface {
	return e.drops
}

func (e *etchDBPostgres) Uploads() kupload.UploadInterface {
	return e.uploads
}

func (e *etchDBPostgres) RBAC() krbac.RBACInterface {
	return e.rbac
}

func (e *etchDBPostgres) Audit() krbac.AuditInterface {
	return e.audit
}

func (e *etchDBPostgres) Schema() kschema.SchemaInterface {
	return e.schema
}

func (e *etchDBPostgres) Ping(ctx context.Context) error {
	return e.pool.Ping(ctx)
}

func (e *etchDBPostgres) Close() error {
	e.pool.Close()
	return nil
}
