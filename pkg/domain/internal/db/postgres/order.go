package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgtype"
	"github.com/shopspring/decimal"

	kpool "github.com/cozyartz/etchNFT/pkg/conn/db/postgres/pool"
	"github.com/cozyartz/etchNFT/pkg/domain"
	domerr "github.com/cozyartz/etchNFT/pkg/domain/errors"
)

// columns of "orders", in the order ScanOrder reads them.
const OrderColumns = `
	"id", "checkout_id",
	"customer_email", "customer_name", "wallet_address",
	"item_kind", "item_name", "token_id", "contract_address", "chain", "image_url", "drop_item_id", "upload_id",
	"shipping_name", "shipping_line1", "shipping_line2", "shipping_city",
	"shipping_state", "shipping_postal_code", "shipping_country",
	"payment_method", "price_usd"::text, "price_eth"::text,
	"status", "payment_ref", "hosted_url", "web3_signature", "chain_id", "cert_url",
	"notified_at", "created_at", "updated_at"
`

type RowScanner interface {
	Scan(dest ...any) error
}

// ScanOrder reads a row selected with OrderColumns.
func ScanOrder(row RowScanner) (domain.Order, error) {
	var o domain.Order
	var kind, method, status, price string
	var dropItemId, uploadId, priceEth pgtype.Text
	var notifiedAt pgtype.Timestamptz

	if err := row.Scan(
		&o.Id, &o.CheckoutId,
		&o.Customer.Email, &o.Customer.Name, &o.Customer.Wallet,
		&kind, &o.Item.Name, &o.Item.TokenId, &o.Item.Contract, &o.Item.Chain, &o.Item.ImageURL, &dropItemId, &uploadId,
		&o.Shipping.Name, &o.Shipping.Line1, &o.Shipping.Line2, &o.Shipping.City,
		&o.Shipping.State, &o.Shipping.PostalCode, &o.Shipping.Country,
		&method, &price, &priceEth,
		&status, &o.PaymentRef, &o.HostedURL, &o.Web3Signature, &o.ChainId, &o.CertURL,
		&notifiedAt, &o.CreatedAt, &o.UpdatedAt,
	); err != nil {
		return domain.Order{}, err
	}

	var err error
	if o.Item.Kind, err = domain.AsItemKind(kind); err != nil {
		return domain.Order{}, err
	}
	if o.Method, err = domain.AsPaymentMethod(method); err != nil {
		return domain.Order{}, err
	}
	if o.Status, err = domain.AsOrderStatus(status); err != nil {
		return domain.Order{}, err
	}
	if o.Price, err = decimal.NewFromString(price); err != nil {
		return domain.Order{}, err
	}
	if priceEth.Status == pgtype.Present {
		eth, err := decimal.NewFromString(priceEth.String)
		if err != nil {
			return domain.Order{}, err
		}
		o.PriceEth = &eth
	}
	if dropItemId.Status == pgtype.Present {
		o.Item.DropItemId = dropItemId.String
	}
	if uploadId.Status == pgtype.Present {
		o.Item.UploadId = uploadId.String
	}
	if notifiedAt.Status == pgtype.Present {
		t := notifiedAt.Time
		o.NotifiedAt = &t
	}
	return o, nil
}

func NullableText(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{Status: pgtype.Null}
	}
	return pgtype.Text{String: s, Status: pgtype.Present}
}

func NullableDecimal(d *decimal.Decimal) pgtype.Text {
	if d == nil {
		return pgtype.Text{Status: pgtype.Null}
	}
	return pgtype.Text{String: d.String(), Status: pgtype.Present}
}

// LockOrders locks orders for update and returns their current statuses.
func LockOrders(ctx context.Context, tx kpool.Queryer, ids []string) (map[string]domain.OrderStatus, error) {
	rows, err := tx.Query(
		ctx,
		`select "id", "status" from "orders" where "id" = any($1) order by "id" for no key update`,
		ids,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	found := map[string]domain.OrderStatus{}
	for rows.Next() {
		var id, status string
		if err := rows.Scan(&id, &status); err != nil {
			return nil, err
		}
		st, err := domain.AsOrderStatus(status)
		if err != nil {
			return nil, err
		}
		found[id] = st
	}
	return found, rows.Err()
}

// SetStatusTx changes status of orders in the transaction, guarded by domain.CanTransit.
//
// The caller must lock the orders beforehand.
func SetStatusTx(ctx context.Context, tx kpool.Queryer, id string, from, to domain.OrderStatus) error {
	if !domain.CanTransit(from, to) {
		return fmt.Errorf("%w: %s -> %s (order %s)", domerr.ErrInvalidOrderStateChanging, from, to, id)
	}
	ctag, err := tx.Exec(
		ctx,
		`update "orders" set "status" = $3, "updated_at" = now() where "id" = $1 and "status" = $2`,
		id, string(from), string(to),
	)
	if err != nil {
		return err
	}
	if ctag.RowsAffected() == 0 {
		return fmt.Errorf("%w: order %s is not %s", domerr.ErrInvalidOrderStateChanging, id, from)
	}
	return nil
}
