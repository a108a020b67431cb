package mocks

import (
	"context"

	kdrop "github.com/cozyartz/etchNFT/pkg/domain/drop/db"
	dropmock "github.com/cozyartz/etchNFT/pkg/domain/drop/db/mock"
	kdb "github.com/cozyartz/etchNFT/pkg/domain/etchnft/db"
	korder "github.com/cozyartz/etchNFT/pkg/domain/order/db"
	ordermock "github.com/cozyartz/etchNFT/pkg/domain/order/db/mock"
	kpayment "github.com/cozyartz/etchNFT/pkg/domain/payment/db"
	paymentmock "github.com/cozyartz/etchNFT/pkg/domain/payment/db/mock"
	krbac "github.com/cozyartz/etchNFT/pkg/domain/rbac/db"
	rbacmock "github.com/cozyartz/etchNFT/pkg/domain/rbac/db/mock"
	kschema "github.com/cozyartz/etchNFT/pkg/domain/schema/db"
	schemamock "github.com/cozyartz/etchNFT/pkg/domain/schema/db/mock"
	kupload "github.com/cozyartz/etchNFT/pkg/domain/upload/db"
	uploadmock "github.com/cozyartz/etchNFT/pkg/domain/upload/db/mock"
)

// Database bundles mocks of every interface.
type Database struct {
	MockOrders        *ordermock.OrderInterface
	MockPaymentEvents *paymentmock.PaymentEventInterface
	MockDrops         *dropmock.DropInterface
	MockUploads       *uploadmock.UploadInterface
	MockRBAC          *rbacmock.RBACInterface
	MockAudit         *rbacmock.AuditInterface
	MockSchema        *schemamock.SchemaInterface

	PingErr error
}

var _ kdb.Database = &Database{}

func New() *Database {
	return &Database{
		MockOrders:        ordermock.NewOrderInterface(),
		MockPaymentEvents: paymentmock.NewPaymentEventInterface(),
		MockDrops:         dropmock.NewDropInterface(),
		MockUploads:       uploadmock.NewUploadInterface(),
		MockRBAC:          rbacmock.NewRBACInterface(),
		MockAudit:         rbacmock.NewAuditInterface(),
		MockSchema:        schemamock.NewSchemaInterface(),
	}
}

func (d *Database) Orders() korder.OrderInterface                 { return d.MockOrders }
func (d *Database) PaymentEvents() kpayment.PaymentEventInterface { return d.MockPaymentEvents }
func (d *Database) Drops() kdrop.DropInterface                    { return d.MockDrops }
func (d *Database) Uploads() kupload.UploadInterface              { return d.MockUploads }
func (d *Database) RBAC() krbac.RBACInterface                     { return d.MockRBAC }
func (d *Database) Audit() krbac.AuditInterface                   { return d.MockAudit }
func (d *Database) Schema() kschema.SchemaInterface               { return d.MockSchema }
func (d *Database) Ping(context.Context) error                    { return d.PingErr }
func (d *Database) Close() error                                  { return nil }
