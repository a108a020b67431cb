package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgtype"
	"github.com/jackc/pgx/v4"
	"github.com/shopspring/decimal"

	kpool "github.com/cozyartz/etchNFT/pkg/conn/db/postgres/pool"
	"github.com/cozyartz/etchNFT/pkg/domain"
	pgerrors "github.com/cozyartz/etchNFT/pkg/domain/errors/dberrors/postgres"
	pgshared "github.com/cozyartz/etchNFT/pkg/domain/internal/db/postgres"
	kdb "github.com/cozyartz/etchNFT/pkg/domain/order/db"
	xe "github.com/cozyartz/etchNFT/pkg/errors"
)

type pgOrder struct {
	pool kpool.Pool
}

var _ kdb.OrderInterface = &pgOrder{}

func New(pool kpool.Pool) *pgOrder {
	return &pgOrder{pool: pool}
}

func (m *pgOrder) Create(ctx context.Context, bodies []domain.OrderBody) ([]domain.Order, error) {
	if len(bodies) == 0 {
		return []domain.Order{}, nil
	}

	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return nil, xe.Wrap(err)
	}
	defer tx.Rollback(ctx)

	created := make([]domain.Order, 0, len(bodies))
	for _, b := range bodies {
		o, err := pgshared.ScanOrder(tx.QueryRow(
			ctx,
			`
			insert into "orders" (
				"id", "checkout_id",
				"customer_email", "customer_name", "wallet_address",
				"item_kind", "item_name", "token_id", "contract_address", "chain", "image_url", "drop_item_id",
				"shipping_name", "shipping_line1", "shipping_line2", "shipping_city",
				"shipping_state", "shipping_postal_code", "shipping_country",
				"payment_method", "price_usd", "price_eth",
				"web3_signature", "chain_id", "cert_url", "upload_id"
			)
			values (
				$1, $2,
				$3, $4, $5,
				$6, $7, $8, $9, $10, $11, $12,
				$13, $14, $15, $16,
				$17, $18, $19,
				$20, $21::numeric, $22::numeric,
				$23, $24, $25, $26
			)
			returning `+pgshared.OrderColumns,
			b.Id, b.CheckoutId,
			b.Customer.Email, b.Customer.Name, b.Customer.Wallet,
			string(b.Item.Kind), b.Item.Name, b.Item.TokenId, b.Item.Contract, b.Item.Chain, b.Item.ImageURL, pgshared.NullableText(b.Item.DropItemId),
			b.Shipping.Name, b.Shipping.Line1, b.Shipping.Line2, b.Shipping.City,
			b.Shipping.State, b.Shipping.PostalCode, b.Shipping.Country,
			string(b.Method), b.Price.String(), pgshared.NullableDecimal(b.PriceEth),
			b.Web3Signature, b.ChainId, b.CertURL, pgshared.NullableText(b.Item.UploadId),
		))
		if err != nil {
			if pgerrors.IsUniqueViolation(err) {
				return nil, xe.Wrap(pgerrors.NewConflict("orders", b.Id, err))
			}
			return nil, xe.Wrap(err)
		}
		created = append(created, o)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, xe.Wrap(err)
	}
	return created, nil
}

func (m *pgOrder) Get(ctx context.Context, ids []string) (map[string]domain.Order, error) {
	rows, err := m.pool.Query(
		ctx,
		`select `+pgshared.OrderColumns+` from "orders" where "id" = any($1)`,
		ids,
	)
	if err != nil {
		return nil, xe.Wrap(err)
	}
	defer rows.Close()

	result := map[string]domain.Order{}
	for rows.Next() {
		o, err := pgshared.ScanOrder(rows)
		if err != nil {
			return nil, xe.Wrap(err)
		}
		result[o.Id] = o
	}
	if err := rows.Err(); err != nil {
		return nil, xe.Wrap(err)
	}
	return result, nil
}

func (m *pgOrder) Find(ctx context.Context, query domain.OrderFindQuery) ([]domain.Order, error) {
	status := make([]string, 0, len(query.Status))
	for _, s := range query.Status {
		status = append(status, string(s))
	}
	limit := pgtype.Int4{Status: pgtype.Null}
	if 0 < query.Limit {
		limit = pgtype.Int4{Int: int32(query.Limit), Status: pgtype.Present}
	}

	rows, err := m.pool.Query(
		ctx,
		`
		select `+pgshared.OrderColumns+` from "orders"
		where
			($1::varchar = '' or lower("customer_email") = lower($1::varchar))
			and ($2::varchar = '' or "checkout_id" = $2::varchar)
			and (cardinality($3::varchar[]) = 0 or "status" = any($3::varchar[]))
		order by "created_at" desc, "id"
		limit $4 offset $5
		`,
		query.Email, query.CheckoutId, status, limit, query.Offset,
	)
	if err != nil {
		return nil, xe.Wrap(err)
	}
	defer rows.Close()

	result := []domain.Order{}
	for rows.Next() {
		o, err := pgshared.ScanOrder(rows)
		if err != nil {
			return nil, xe.Wrap(err)
		}
		result = append(result, o)
	}
	if err := rows.Err(); err != nil {
		return nil, xe.Wrap(err)
	}
	return result, nil
}

func (m *pgOrder) AttachPayment(ctx context.Context, checkoutId string, paymentRef string, hostedURL string) error {
	ctag, err := m.pool.Exec(
		ctx,
		`
		update "orders"
		set
			"payment_ref" = $2,
			"hosted_url" = case when $3::varchar = '' then "hosted_url" else $3::varchar end,
			"updated_at" = now()
		where "checkout_id" = $1
		`,
		checkoutId, paymentRef, hostedURL,
	)
	if err != nil {
		return xe.Wrap(err)
	}
	if ctag.RowsAffected() == 0 {
		return xe.Wrap(pgerrors.NewMissing("orders", "checkout_id="+checkoutId))
	}
	return nil
}

func (m *pgOrder) SetStatus(ctx context.Context, ids []string, newStatus domain.OrderStatus) error {
	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return xe.Wrap(err)
	}
	defer tx.Rollback(ctx)

	current, err := pgshared.LockOrders(ctx, tx, ids)
	if err != nil {
		return xe.Wrap(err)
	}
	for _, id := range ids {
		from, ok := current[id]
		if !ok {
			return xe.Wrap(pgerrors.NewMissing("orders", id))
		}
		if err := pgshared.SetStatusTx(ctx, tx, id, from, newStatus); err != nil {
			return xe.Wrap(err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return xe.Wrap(err)
	}
	return nil
}

func (m *pgOrder) DeleteProvisional(ctx context.Context, checkoutId string) error {
	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return xe.Wrap(err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(
		ctx,
		`
		with "deleted" as (
			delete from "orders"
			where "checkout_id" = $1 and "status" = 'pending'
			returning "drop_item_id"
		)
		update "drop_item"
		set "reserved_until" = null, "reserved_by" = '', "updated_at" = now()
		where "id" in (select "drop_item_id" from "deleted" where "drop_item_id" is not null)
		`,
		checkoutId,
	); err != nil {
		return xe.Wrap(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return xe.Wrap(err)
	}
	return nil
}

func cursorStatus(cursor domain.OrderCursor) []string {
	status := make([]string, 0, len(cursor.Status))
	for _, s := range cursor.Status {
		status = append(status, string(s))
	}
	return status
}

// pickOrder locks an order matching the cursor.
//
// Orders after the head of the cursor are picked first, then the rest.
func pickOrder(ctx context.Context, tx kpool.Tx, cursor domain.OrderCursor) (domain.Order, bool, error) {
	o, err := pgshared.ScanOrder(tx.QueryRow(
		ctx,
		`
		select `+pgshared.OrderColumns+` from "orders"
		where
			(cardinality($2::varchar[]) = 0 or "status" = any($2::varchar[]))
			and "created_at" <= now() - $3::interval
			and (not $4::boolean or "notified_at" is null)
		order by "id" <= $1::varchar, "id"
		limit 1
		for no key update skip locked
		`,
		cursor.Head, cursorStatus(cursor), cursor.OlderThan, cursor.Unnotified,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Order{}, false, nil
	} else if err != nil {
		return domain.Order{}, false, err
	}
	return o, true, nil
}

func (m *pgOrder) PickAndSetStatus(
	ctx context.Context, cursor domain.OrderCursor,
	task func(domain.Order) (domain.OrderStatus, error),
) (domain.OrderCursor, bool, error) {
	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return cursor, false, xe.Wrap(err)
	}
	defer tx.Rollback(ctx)

	o, ok, err := pickOrder(ctx, tx, cursor)
	if err != nil {
		return cursor, false, xe.Wrap(err)
	}
	if !ok {
		return cursor, false, nil
	}

	next := cursor
	next.Head = o.Id

	newStatus, err := task(o)
	if err != nil {
		return next, true, err
	}
	if newStatus == o.Status {
		return next, true, nil
	}

	if err := pgshared.SetStatusTx(ctx, tx, o.Id, o.Status, newStatus); err != nil {
		return next, true, xe.Wrap(err)
	}
	if newStatus == domain.Failed && o.Item.DropItemId != "" {
		if _, err := tx.Exec(
			ctx,
			`
			update "drop_item"
			set "reserved_until" = null, "reserved_by" = '', "updated_at" = now()
			where "id" = $1 and not "is_sold"
			`,
			o.Item.DropItemId,
		); err != nil {
			return next, true, xe.Wrap(err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return next, true, xe.Wrap(err)
	}
	return next, true, nil
}

func (m *pgOrder) PickAndNotify(
	ctx context.Context, cursor domain.OrderCursor,
	task func(domain.Order) error,
) (domain.OrderCursor, bool, error) {
	cursor.Unnotified = true

	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return cursor, false, xe.Wrap(err)
	}
	defer tx.Rollback(ctx)

	o, ok, err := pickOrder(ctx, tx, cursor)
	if err != nil {
		return cursor, false, xe.Wrap(err)
	}
	if !ok {
		return cursor, false, nil
	}

	next := cursor
	next.Head = o.Id

	if err := task(o); err != nil {
		return next, true, err
	}

	if _, err := tx.Exec(
		ctx,
		`update "orders" set "notified_at" = now() where "id" = $1`,
		o.Id,
	); err != nil {
		return next, true, xe.Wrap(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return next, true, xe.Wrap(err)
	}
	return next, true, nil
}

func (m *pgOrder) Cancel(ctx context.Context, c domain.Cancellation) error {
	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return xe.Wrap(err)
	}
	defer tx.Rollback(ctx)

	current, err := pgshared.LockOrders(ctx, tx, []string{c.OrderId})
	if err != nil {
		return xe.Wrap(err)
	}
	from, ok := current[c.OrderId]
	if !ok {
		return xe.Wrap(pgerrors.NewMissing("orders", c.OrderId))
	}
	if err := pgshared.SetStatusTx(ctx, tx, c.OrderId, from, domain.Cancelled); err != nil {
		return xe.Wrap(err)
	}

	if _, err := tx.Exec(
		ctx,
		`
		insert into "order_cancellation"
			("order_id", "kind", "reason", "refund_method", "refund_ref", "refund_state", "amount")
		values ($1, $2, $3, $4, $5, $6, $7::numeric)
		`,
		c.OrderId, string(c.Kind), c.Reason,
		string(c.RefundMethod), c.RefundRef, string(c.RefundState), c.Amount.String(),
	); err != nil {
		return xe.Wrap(err)
	}

	// a cancelled drop item goes back on sale.
	if _, err := tx.Exec(
		ctx,
		`
		update "drop_item"
		set "reserved_until" = null, "reserved_by" = '', "updated_at" = now()
		where "id" = (select "drop_item_id" from "orders" where "id" = $1) and not "is_sold"
		`,
		c.OrderId,
	); err != nil {
		return xe.Wrap(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return xe.Wrap(err)
	}
	return nil
}

func (m *pgOrder) Refund(ctx context.Context, r domain.AdminRefund, newStatus domain.OrderStatus) error {
	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return xe.Wrap(err)
	}
	defer tx.Rollback(ctx)

	current, err := pgshared.LockOrders(ctx, tx, []string{r.OrderId})
	if err != nil {
		return xe.Wrap(err)
	}
	from, ok := current[r.OrderId]
	if !ok {
		return xe.Wrap(pgerrors.NewMissing("orders", r.OrderId))
	}
	if err := pgshared.SetStatusTx(ctx, tx, r.OrderId, from, newStatus); err != nil {
		return xe.Wrap(err)
	}

	if _, err := tx.Exec(
		ctx,
		`
		insert into "admin_refund"
			("order_id", "admin_id", "amount", "reason", "refund_method", "refund_ref", "refund_state")
		values ($1, $2, $3::numeric, $4, $5, $6, $7)
		`,
		r.OrderId, r.AdminId, r.Amount.String(), r.Reason,
		string(r.RefundMethod), r.RefundRef, string(r.RefundState),
	); err != nil {
		return xe.Wrap(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return xe.Wrap(err)
	}
	return nil
}

func (m *pgOrder) Refunds(ctx context.Context, orderId string) ([]domain.AdminRefund, error) {
	rows, err := m.pool.Query(
		ctx,
		`
		select
			"order_id", "admin_id", "amount"::text, "reason",
			"refund_method", "refund_ref", "refund_state", "created_at"
		from "admin_refund"
		where "order_id" = $1
		order by "created_at", "id"
		`,
		orderId,
	)
	if err != nil {
		return nil, xe.Wrap(err)
	}
	defer rows.Close()

	result := []domain.AdminRefund{}
	for rows.Next() {
		var r domain.AdminRefund
		var amount, method, state string
		var createdAt time.Time
		if err := rows.Scan(
			&r.OrderId, &r.AdminId, &amount, &r.Reason,
			&method, &r.RefundRef, &state, &createdAt,
		); err != nil {
			return nil, xe.Wrap(err)
		}
		if r.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, xe.Wrap(err)
		}
		r.RefundMethod = domain.RefundMethod(method)
		r.RefundState = domain.RefundState(state)
		r.CreatedAt = createdAt
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, xe.Wrap(err)
	}
	return result, nil
}

func (m *pgOrder) CountByStatus(ctx context.Context) (map[domain.OrderStatus]int, error) {
	rows, err := m.pool.Query(ctx, `select "status", count(*) from "orders" group by "status"`)
	if err != nil {
		return nil, xe.Wrap(err)
	}
	defer rows.Close()

	result := map[domain.OrderStatus]int{}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, xe.Wrap(err)
		}
		result[domain.OrderStatus(status)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, xe.Wrap(err)
	}
	return result, nil
}
