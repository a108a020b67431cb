package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/cozyartz/etchNFT/cmd/etchd/handlers"
	"github.com/cozyartz/etchNFT/pkg/auth"
	"github.com/cozyartz/etchNFT/pkg/domain"
	kdb "github.com/cozyartz/etchNFT/pkg/domain/etchnft/db"
	"github.com/cozyartz/etchNFT/pkg/nft"
	"github.com/cozyartz/etchNFT/pkg/payments"
	"github.com/cozyartz/etchNFT/pkg/ratelimit"
	"github.com/cozyartz/etchNFT/pkg/utils/echoutil"
)

var API_ROOT = "/api"

func api(subpath string) string {
	if !strings.HasSuffix(subpath, "/") {
		subpath += "/"
	}
	return fmt.Sprintf("%s/%s", API_ROOT, subpath)
}

// Refunds is satisfied by *refund.Service.
type Refunds interface {
	handlers.Canceller
	handlers.Refunder
}

// Processor is satisfied by *imaging.Processor.
type Processor interface {
	handlers.ItemProcessor
	handlers.DropProcessor
}

// Services are what routes are served with.
//
// Nil NFTs, OAuth or webhooks turn their routes off.
type Services struct {
	DB        kdb.Database
	Checkout  handlers.Checkouter
	Refunds   Refunds
	Inbox     handlers.Inbox
	Requeuer  handlers.Requeuer
	Processor Processor
	NFTs      nft.Indexer
	Webhooks  []payments.Webhook

	Sessions *auth.Sessions
	OAuth    handlers.OAuth

	Limiter   ratelimit.Limiter
	RateLimit int

	// whether cookies are sent only over https.
	SecureCookie bool

	// where admins land after signing in.
	AdminLanding string

	Clock func() time.Time
}

func BuildServer(s Services, loglevel string) *echo.Echo {
	e := echo.New()
	e.Pre(middleware.AddTrailingSlash())

	echoutil.SetLevel(e, loglevel)
	e.HTTPErrorHandler = func(err error, ctx echo.Context) {
		e.DefaultHTTPErrorHandler(err, ctx)
		e.Logger.Error(err)
	}
	e.Use(echoutil.LogHandlerFunc)

	if s.Clock == nil {
		s.Clock = time.Now
	}
	limited := ratelimit.Middleware(s.Limiter, s.RateLimit)
	auditor := auth.NewAuditor(s.DB.Audit())

	e.GET("/healthz/", handlers.HealthHandler(s.DB))
	e.GET("/metrics/", handlers.MetricsHandler(s.DB.Orders(), s.DB.PaymentEvents()))
	e.GET("/cert/:orderId/", handlers.CertHandler(s.DB.Orders(), "orderId"))

	{
		e.POST(api("checkout/card"), handlers.CheckoutHandler(s.Checkout, domain.Card), limited)
		e.POST(api("checkout/paypal"), handlers.CheckoutHandler(s.Checkout, domain.PayPal), limited)
		e.POST(api("checkout/paypal/capture"), handlers.CaptureHandler(s.Checkout), limited)
		e.POST(api("checkout/crypto"), handlers.CheckoutHandler(s.Checkout, domain.Crypto), limited)
		e.POST(api("checkout/web3"), handlers.CheckoutHandler(s.Checkout, domain.Web3), limited)
	}

	for _, hook := range s.Webhooks {
		e.POST(api("webhooks/"+hook.Provider().String()), handlers.WebhookHandler(hook, s.Inbox))
	}

	{
		e.GET(api("orders"), handlers.FindOrdersHandler(s.DB.Orders()))
		e.GET(api("orders/:orderId"), handlers.GetOrderHandler(s.DB.Orders(), "orderId"))
		e.POST(api("orders/:orderId/cancel"), handlers.CancelOrderHandler(s.Refunds, "orderId"), limited)
	}

	{
		uploads := s.DB.Uploads()
		e.POST(api("uploads"), handlers.UploadHandler(uploads), limited)
		e.GET(api("uploads"), handlers.FindUploadsHandler(uploads))
		e.GET(api("uploads/:uploadId/image"), handlers.UploadImageHandler(uploads, "uploadId"))
	}

	{
		e.GET(api("drops"), handlers.FindDropsHandler(s.DB.Drops(), s.Clock))
		e.GET(api("drops/:slug"), handlers.GetDropHandler(s.DB.Drops(), "slug"))
	}

	if s.NFTs != nil {
		e.GET(api("nfts/:address"), handlers.NFTsHandler(s.NFTs, "address"))
	}

	if s.OAuth != nil {
		e.GET("/auth/github/login/", handlers.LoginHandler(s.OAuth, s.SecureCookie))
		e.GET("/auth/github/callback/", handlers.CallbackHandler(
			s.OAuth, s.DB.RBAC(), s.Sessions, auditor, s.SecureCookie, s.AdminLanding,
		))
	}
	e.POST("/auth/logout/", handlers.LogoutHandler(s.Sessions))

	admin := e.Group(API_ROOT+"/admin", limited, auth.Authenticate(s.Sessions, s.DB.RBAC()))
	can := auth.RequirePermission
	{
		rbac := s.DB.RBAC()
		admin.GET("/me/", handlers.MeHandler())

		admin.GET("/permissions/", handlers.ListPermissionsHandler(rbac), can("roles", "read"))
		admin.GET("/roles/", handlers.ListRolesHandler(rbac), can("roles", "read"))
		admin.POST("/roles/", handlers.CreateRoleHandler(rbac, auditor), can("roles", "create"))
		admin.GET("/roles/:roleId/", handlers.GetRoleHandler(rbac, "roleId"), can("roles", "read"))
		admin.PUT("/roles/:roleId/", handlers.UpdateRoleHandler(rbac, auditor, "roleId"), can("roles", "update"))
		admin.DELETE("/roles/:roleId/", handlers.DeleteRoleHandler(rbac, auditor, "roleId"), can("roles", "delete"))

		admin.GET("/users/", handlers.ListUsersHandler(rbac), can("users", "read"))
		admin.POST("/users/", handlers.CreateUserHandler(rbac, auditor), can("users", "create"))
		admin.PUT("/users/:userId/status/", handlers.SetUserStatusHandler(rbac, auditor, "userId"), can("users", "update"))
		admin.POST("/users/:userId/roles/", handlers.GrantRoleHandler(rbac, auditor, "userId"), can("users", "update"))
		admin.DELETE("/users/:userId/roles/:roleId/", handlers.RevokeRoleHandler(rbac, auditor, "userId", "roleId"), can("users", "update"))

		admin.GET("/audit/", handlers.FindAuditHandler(s.DB.Audit()), can("system", "audit"))
	}

	{
		orders := s.DB.Orders()
		admin.GET("/orders/", handlers.AdminFindOrdersHandler(orders), can("orders", "read"))
		admin.GET("/orders/:orderId/", handlers.GetOrderHandler(orders, "orderId"), can("orders", "read"))
		admin.GET("/orders/:orderId/refund/", handlers.EligibilityHandler(s.Refunds, "orderId"), can("orders", "read"))
		admin.POST("/orders/:orderId/refund/", handlers.RefundHandler(s.Refunds, auditor, "orderId"), can("orders", "refund"))
		admin.PUT("/orders/:orderId/status/", handlers.StatusHandler(orders, auditor, "orderId"), can("orders", "update"))
		admin.POST("/orders/:orderId/etched/", handlers.MarkEtchedHandler(orders, auditor, "orderId"), can("orders", "update"))

		admin.GET("/events/", handlers.FindEventsHandler(s.DB.PaymentEvents()), can("payments", "read"))
		admin.POST("/events/:eventId/requeue/", handlers.RequeueEventHandler(s.Requeuer, auditor, "eventId"), can("payments", "replay"))
	}

	{
		drops := s.DB.Drops()
		admin.GET("/drops/", handlers.AdminFindDropsHandler(drops), can("drops", "read"))
		admin.POST("/drops/", handlers.CreateDropHandler(drops, auditor), can("drops", "create"))
		admin.PUT("/drops/:dropId/", handlers.UpdateDropHandler(drops, auditor, "dropId"), can("drops", "update"))
		admin.DELETE("/drops/:dropId/", handlers.DeleteDropHandler(drops, auditor, "dropId"), can("drops", "delete"))
		admin.POST("/drops/:dropId/items/", handlers.CreateDropItemHandler(drops, auditor, "dropId"), can("drops", "create"))
		admin.POST("/drops/:dropId/process/", handlers.BatchProcessHandler(drops, s.Processor, auditor, "dropId"), can("images", "process"))
		admin.POST("/drops/items/:itemId/process/", handlers.ProcessItemHandler(drops, s.Processor, auditor, "itemId"), can("images", "process"))
		admin.GET("/templates/", handlers.ListTemplatesHandler(drops), can("drops", "read"))
		admin.POST("/templates/", handlers.CreateTemplateHandler(drops, auditor), can("drops", "create"))
	}

	return e
}
