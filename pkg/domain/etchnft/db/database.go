package db

import (
	"context"

	kdrop "github.com/cozyartz/etchNFT/pkg/domain/drop/db"
	korder "github.com/cozyartz/etchNFT/pkg/domain/order/db"
	kpayment "github.com/cozyartz/etchNFT/pkg/domain/payment/db"
	krbac "github.com/cozyartz/etchNFT/pkg/domain/rbac/db"
	kschema "github.com/cozyartz/etchNFT/pkg/domain/schema/db"
	kupload "github.com/cozyartz/etchNFT/pkg/domain/upload/db"
)

// Database is the storage of the storefront.
type Database interface {
	Orders() korder.OrderInterface
	PaymentEvents() kpayment.PaymentEventInterface
	Drops() kdrop.DropInterface
	Uploads() kupload.UploadInterface
	RBAC() krbac.RBACInterface
	Audit() krbac.AuditInterface
	Schema() kschema.SchemaInterface

	// Ping checks the database is reachable.
	Ping(ctx context.Context) error

	Close() error
}
