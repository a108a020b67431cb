package mocks

import (
	"context"

	kdb "github.com/cozyartz/etchNFT/pkg/domain/schema/db"
)

type SchemaInterface struct {
	Impl struct {
		Upgrade func(context.Context) error
		Version func(context.Context) (int, error)
		Context func(context.Context) (context.Context, context.CancelFunc)
	}
}

var _ kdb.SchemaInterface = &SchemaInterface{}

func NewSchemaInterface() *SchemaInterface {
	return &SchemaInterface{}
}

func (m *SchemaInterface) Upgrade(ctx context.Context) error {
	if m.Impl.Upgrade == nil {
		panic("it should not be called")
	}
	return m.Impl.Upgrade(ctx)
}

func (m *SchemaInterface) Version(ctx context.Context) (int, error) {
	if m.Impl.Version == nil {
		panic("it should not be called")
	}
	return m.Impl.Version(ctx)
}

// Context returns ctx as is, unless Impl.Context is given.
func (m *SchemaInterface) Context(ctx context.Context) (context.Context, context.CancelFunc) {
	if m.Impl.Context == nil {
		return context.WithCancel(ctx)
	}
	return m.Impl.Context(ctx)
}
