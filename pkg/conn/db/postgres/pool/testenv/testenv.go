package testenv

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	kpool "github.com/cozyartz/etchNFT/pkg/conn/db/postgres/pool"
	kpgschema "github.com/cozyartz/etchNFT/pkg/domain/schema/db/postgres"
)

// ENV_DATABASE is the environment variable holding the connection string of
// the database for tests. Tests using PoolBroaker are skipped when it is empty.
const ENV_DATABASE = "ETCHNFT_TEST_DATABASE"

type pg struct {
	pool *pgxpool.Pool
}

func (p *pg) GetPool(ctx context.Context, t *testing.T) kpool.Pool {
	t.Helper()
	t.Cleanup(func() {
		ClearTables(context.Background(), p.pool, t)
	})

	ClearTables(ctx, p.pool, t)
	return kpool.Wrap(p.pool)
}

// PoolBroaker is a interface to get a pool.
type PoolBroaker interface {
	// GetPool returns a pool.
	//
	// Tables are cleaned up before returning and after t.
	GetPool(ctx context.Context, t *testing.T) kpool.Pool
}

var schemaOnce sync.Once
var schemaErr error

// NewPoolBroaker returns a PoolBroaker connected to $ETCHNFT_TEST_DATABASE.
//
// The database is reset and upgraded with `schema/postgres` once per test binary.
// When the variable is not set, t is skipped.
func NewPoolBroaker(ctx context.Context, t *testing.T) PoolBroaker {
	t.Helper()

	url := os.Getenv(ENV_DATABASE)
	if url == "" {
		t.Skipf("%s is not set", ENV_DATABASE)
	}

	pool, err := pgxpool.Connect(ctx, url)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(pool.Close)

	schemaOnce.Do(func() {
		schemaErr = applySchema(ctx, pool)
	})
	if schemaErr != nil {
		t.Fatal(schemaErr)
	}

	return &pg{pool: pool}
}

// SchemaRepository returns the path to `schema/postgres` in this repository.
func SchemaRepository() string {
	_, file, _, _ := runtime.Caller(0)
	// file = REPO/pkg/conn/db/postgres/pool/testenv/testenv.go
	root := filepath.Join(filepath.Dir(file), "..", "..", "..", "..", "..", "..")
	return filepath.Join(root, "schema", "postgres")
}

func applySchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, `drop schema if exists "public" cascade; create schema "public"`); err != nil {
		return err
	}
	return kpgschema.New(kpool.Wrap(pool), SchemaRepository()).Upgrade(ctx)
}

func ClearTables(ctx context.Context, p *pgxpool.Pool, t *testing.T) {
	t.Helper()

	conn, err := p.Acquire(ctx)
	if err != nil {
		t.Errorf("fail to clean-up tables.: %v", err)
		return
	}
	defer conn.Release()

	for _, command := range []string{
		`truncate "payment_event" RESTART IDENTITY cascade`,
		`truncate "orders" cascade`,
		`truncate "drops" cascade`,
		`truncate "custom_uploads" cascade`,
		`truncate "design_template" cascade`,
		`truncate "audit_log" RESTART IDENTITY cascade`,
		`truncate "users" cascade`,
		`delete from "role" where not "is_system"`,
	} {
		if _, err := conn.Exec(ctx, command); err != nil {
			t.Errorf("fail to clean-up tables.: %v", err)
		}
	}
}

// NewIsolatedPool returns a pool whose search_path is a new, empty postgres schema.
//
// The schema is dropped after t. Tables of the application do not exist there.
func NewIsolatedPool(ctx context.Context, t *testing.T, name string) kpool.Pool {
	t.Helper()

	url := os.Getenv(ENV_DATABASE)
	if url == "" {
		t.Skipf("%s is not set", ENV_DATABASE)
	}

	admin, err := pgxpool.Connect(ctx, url)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(admin.Close)

	ident := pgx.Identifier{name}.Sanitize()
	if _, err := admin.Exec(ctx, `drop schema if exists `+ident+` cascade; create schema `+ident); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		admin.Exec(context.Background(), `drop schema if exists `+ident+` cascade`)
	})

	conf, err := pgxpool.ParseConfig(url)
	if err != nil {
		t.Fatal(err)
	}
	conf.ConnConfig.RuntimeParams["search_path"] = name
	pool, err := pgxpool.ConnectConfig(ctx, conf)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(pool.Close)
	return kpool.Wrap(pool)
}
