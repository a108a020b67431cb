package handlers

import (
	"bytes"
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	apidrops "github.com/cozyartz/etchNFT/pkg/api/types/drops"
	apierr "github.com/cozyartz/etchNFT/pkg/api/types/errors"
	"github.com/cozyartz/etchNFT/pkg/domain"
	kdrop "github.com/cozyartz/etchNFT/pkg/domain/drop/db"
	korder "github.com/cozyartz/etchNFT/pkg/domain/order/db"
	kpayment "github.com/cozyartz/etchNFT/pkg/domain/payment/db"
	"github.com/cozyartz/etchNFT/pkg/metrics"
	"github.com/cozyartz/etchNFT/pkg/nft"
	"github.com/cozyartz/etchNFT/pkg/utils"
)

// NFTsHandler lists NFTs owned by the wallet.
func NFTsHandler(indexer nft.Indexer, param string) echo.HandlerFunc {
	return func(c echo.Context) error {
		owned, err := indexer.Owned(c.Request().Context(), c.Param(param))
		if err != nil {
			return asHTTPError(err)
		}
		c.Response().Header().Set("Cache-Control", "public, max-age=300")
		return c.JSON(http.StatusOK, owned)
	}
}

// FindDropsHandler lists drops live now. With ?featured=true, only featured ones.
func FindDropsHandler(drops kdrop.DropInterface, clock func() time.Time) echo.HandlerFunc {
	return func(c echo.Context) error {
		limit, offset, err := page(c)
		if err != nil {
			return err
		}
		now := clock()
		found, err := drops.Find(c.Request().Context(), domain.DropFindQuery{
			LiveAt:   &now,
			Featured: c.QueryParam("featured") == "true",
			Limit:    limit,
			Offset:   offset,
		})
		if err != nil {
			return apierr.InternalServerError(err)
		}
		return c.JSON(http.StatusOK, utils.Map(found, apidrops.ComposeSummary))
	}
}

// GetDropHandler returns the drop with its items.
func GetDropHandler(drops kdrop.DropInterface, param string) echo.HandlerFunc {
	return func(c echo.Context) error {
		d, items, err := drops.GetBySlug(c.Request().Context(), c.Param(param))
		if err != nil {
			return asHTTPError(err)
		}
		return c.JSON(http.StatusOK, apidrops.Detail{
			Summary: apidrops.ComposeSummary(d),
			Items:   utils.Map(items, apidrops.ComposeItem),
		})
	}
}

// MetricsHandler exposes order and payment event gauges in the Prometheus text format.
func MetricsHandler(orders korder.OrderInterface, events kpayment.PaymentEventInterface) echo.HandlerFunc {
	return func(c echo.Context) error {
		families, err := metrics.Gather(c.Request().Context(), orders, events)
		if err != nil {
			return apierr.InternalServerError(err)
		}
		buf := new(bytes.Buffer)
		if err := metrics.Write(buf, families); err != nil {
			return apierr.InternalServerError(err)
		}
		return c.Blob(http.StatusOK, metrics.ContentType, buf.Bytes())
	}
}

// Pinger is satisfied by the database.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler answers 200 when the database is reachable.
func HealthHandler(db Pinger) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := db.Ping(c.Request().Context()); err != nil {
			return apierr.ServiceUnavailable("database is unreachable", err)
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	}
}
