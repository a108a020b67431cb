package db

import "context"

// SchemaInterface tracks the version of the storefront schema.
//
// Versions are the directory names under the schema repository, counted from 1.
type SchemaInterface interface {
	// Upgrade applies every version newer than the current one, in order.
	Upgrade(ctx context.Context) error

	// Version is the version applied to the database, or 0 when none is.
	Version(ctx context.Context) (int, error)

	// Context derives a context which is cancelled once the database is
	// found behind the version this binary expects.
	//
	// Background loops run under it so they stop rather than write to an
	// outdated schema.
	Context(ctx context.Context) (context.Context, context.CancelFunc)
}
