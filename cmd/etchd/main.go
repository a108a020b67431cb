package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/cozyartz/etchNFT/pkg/auth"
	"github.com/cozyartz/etchNFT/pkg/checkout"
	"github.com/cozyartz/etchNFT/pkg/configs/server"
	kpg "github.com/cozyartz/etchNFT/pkg/domain/etchnft/db/postgres"
	"github.com/cozyartz/etchNFT/pkg/imaging"
	"github.com/cozyartz/etchNFT/pkg/nft"
	"github.com/cozyartz/etchNFT/pkg/payments"
	"github.com/cozyartz/etchNFT/pkg/payments/coinbase"
	"github.com/cozyartz/etchNFT/pkg/payments/paypal"
	"github.com/cozyartz/etchNFT/pkg/payments/square"
	"github.com/cozyartz/etchNFT/pkg/ratelimit"
	"github.com/cozyartz/etchNFT/pkg/reconcile"
	"github.com/cozyartz/etchNFT/pkg/refund"
	"github.com/cozyartz/etchNFT/pkg/utils/filewatch"
	"github.com/cozyartz/etchNFT/pkg/utils/try"
)

func main() {
	pconfig := flag.String("config", os.Getenv("ETCHNFT_CONFIG"), "path to config file")
	loglevel := flag.String("loglevel", "info", "log level. debug|info|warn|error|off")
	pSchemaRepo := flag.String(
		"schema-repo", os.Getenv("ETCHNFT_SCHEMA"),
		"schema repository path. overrides schemaRepository in config.",
	)
	pcert := flag.String("cert", "", "certification file for TLS")
	pkey := flag.String("certkey", "", "key of certification file for TLS")
	flag.Parse()

	logger := log.Default()
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	conf := try.To(server.LoadConfig(*pconfig)).OrFatal(logger)

	schemaRepo := *pSchemaRepo
	if schemaRepo == "" {
		schemaRepo = conf.SchemaRepository()
	}
	db := try.To(kpg.New(
		ctx, conf.Database(),
		kpg.WithSchemaRepository(schemaRepo),
		kpg.WithRetryPolicy(conf.Events()),
	)).OrFatal(logger)
	defer db.Close()

	var rdb *redis.Client
	if u := conf.Redis(); u != "" {
		opts := try.To(redis.ParseURL(u)).OrFatal(logger)
		rdb = redis.NewClient(opts)
		defer rdb.Close()
	}

	inbox := reconcile.New(db.PaymentEvents())

	gateways := checkout.Gateways{}
	var cardRefunder refund.CardRefunder
	var paypalRefunder refund.PayPalRefunder
	webhooks := []payments.Webhook{}
	checkoutOpts := []checkout.Option{
		checkout.WithPricing(conf.Pricing()),
		checkout.WithUploads(db.Uploads()),
	}

	if sq := conf.Square(); sq != nil {
		client := square.New(*sq)
		gateways.Card = client
		cardRefunder = client
		webhooks = append(webhooks, client.Webhook())
	}
	if pp := conf.PayPal(); pp != nil {
		client := try.To(paypal.New(*pp)).OrFatal(logger)
		gateways.PayPal = client
		paypalRefunder = client
		webhooks = append(webhooks, client.Webhook())
	}
	if cb := conf.Coinbase(); cb != nil {
		client := coinbase.New(cb.Client())
		gateways.Crypto = client
		webhooks = append(webhooks, client.Webhook())
		checkoutOpts = append(checkoutOpts, checkout.WithRedirects(cb.RedirectURL(), cb.CancelURL()))
	}

	var indexer nft.Indexer
	if n := conf.NFT(); n != nil {
		indexer = nft.NewSimpleHash(n.APIKey(), n.BaseURL())
		if rdb != nil {
			indexer = nft.NewCached(indexer, rdb, n.CacheTTL())
		}
	}

	var limiter ratelimit.Limiter
	if rdb != nil {
		limiter = ratelimit.NewRedis(rdb, conf.RateLimit().Window())
	} else {
		mem := ratelimit.NewInMemory(conf.RateLimit().Window())
		go func() {
			tick := time.NewTicker(conf.RateLimit().Window())
			defer tick.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-tick.C:
					mem.Sweep()
				}
			}
		}()
		limiter = mem
	}

	a := conf.Auth()
	services := Services{
		DB:        db,
		Checkout:  checkout.New(db.Orders(), db.Drops(), inbox, gateways, checkoutOpts...),
		Refunds:   refund.New(db.Orders(), cardRefunder, paypalRefunder),
		Inbox:     inbox,
		Requeuer:  inbox,
		Processor: imaging.NewProcessor(),
		NFTs:      indexer,
		Webhooks:  webhooks,

		Sessions:     auth.NewSessions(a.SessionSecret(), a.SessionTTL(), a.SecureCookie()),
		Limiter:      limiter,
		RateLimit:    conf.RateLimit().Limit(),
		SecureCookie: a.SecureCookie(),
		AdminLanding: strings.TrimSuffix(conf.PublicURL(), "/") + "/admin",
	}
	if gh := a.GitHub(); gh != nil {
		services.OAuth = auth.NewGitHub(gh.ClientId(), gh.ClientSecret(), gh.RedirectURL())
	}

	e := BuildServer(services, *loglevel)

	logger.Println("registred routes:")
	for _, r := range e.Routes() {
		logger.Println(r.Method, r.Path)
	}

	{
		wctx, wcancel, err := filewatch.UntilModifyContext(ctx, *pconfig)
		if err != nil {
			logger.Fatalf("can not watch configration: %s", err)
		}
		defer wcancel()
		context.AfterFunc(wctx, func() {
			logger.Println("config file is updated or signaled. quit to restart server.")
			graceful, gcancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer gcancel()
			if err := e.Shutdown(graceful); err != nil {
				logger.Printf("error on shutdown: %s", err)
			}
		})
	}

	if err := start(e, conf.Port(), *pcert, *pkey); err != nil && !errors.Is(err, http.ErrServerClosed) {
		e.Logger.Fatal(err)
	}
}

func start(e *echo.Echo, port int32, cert string, key string) error {
	addr := fmt.Sprintf(":%d", port)
	if cert != "" && key != "" {
		return e.StartTLS(addr, cert, key)
	}
	return e.Start(addr)
}
