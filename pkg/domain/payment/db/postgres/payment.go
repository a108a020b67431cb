package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgtype"
	"github.com/jackc/pgx/v4"
	"github.com/shopspring/decimal"

	kpool "github.com/cozyartz/etchNFT/pkg/conn/db/postgres/pool"
	"github.com/cozyartz/etchNFT/pkg/domain"
	pgerrors "github.com/cozyartz/etchNFT/pkg/domain/errors/dberrors/postgres"
	pgshared "github.com/cozyartz/etchNFT/pkg/domain/internal/db/postgres"
	kdb "github.com/cozyartz/etchNFT/pkg/domain/payment/db"
	xe "github.com/cozyartz/etchNFT/pkg/errors"
)

type pgPaymentEvent struct {
	pool   kpool.Pool
	policy domain.RetryPolicy
}

var _ kdb.PaymentEventInterface = &pgPaymentEvent{}

type Option func(*pgPaymentEvent) *pgPaymentEvent

// WithRetryPolicy sets the policy for deferred events.
func WithRetryPolicy(policy domain.RetryPolicy) Option {
	return func(p *pgPaymentEvent) *pgPaymentEvent {
		p.policy = policy
		return p
	}
}

func New(pool kpool.Pool, options ...Option) *pgPaymentEvent {
	p := &pgPaymentEvent{pool: pool, policy: domain.DefaultRetryPolicy()}
	for _, o := range options {
		p = o(p)
	}
	return p
}

const eventColumns = `
	"id", "provider", "event_id", "event_type", "signal", "order_ref", "payment_ref",
	"amount"::text, "occurred_at", "payload",
	"state", "attempts", "next_attempt_at", "last_error", "received_at", "processed_at"
`

func scanEvent(row pgshared.RowScanner) (domain.PaymentEvent, error) {
	var ev domain.PaymentEvent
	var provider, signal, state string
	var amount pgtype.Text
	var payload []byte
	var processedAt pgtype.Timestamptz

	if err := row.Scan(
		&ev.Id, &provider, &ev.EventId, &ev.EventType, &signal, &ev.OrderRef, &ev.PaymentRef,
		&amount, &ev.OccurredAt, &payload,
		&state, &ev.Attempts, &ev.NextAttemptAt, &ev.LastError, &ev.ReceivedAt, &processedAt,
	); err != nil {
		return domain.PaymentEvent{}, err
	}

	var err error
	if ev.Provider, err = domain.AsProvider(provider); err != nil {
		return domain.PaymentEvent{}, err
	}
	if ev.Signal, err = domain.AsSignal(signal); err != nil {
		return domain.PaymentEvent{}, err
	}
	if ev.State, err = domain.AsEventState(state); err != nil {
		return domain.PaymentEvent{}, err
	}
	if amount.Status == pgtype.Present {
		a, err := decimal.NewFromString(amount.String)
		if err != nil {
			return domain.PaymentEvent{}, err
		}
		ev.Amount = &a
	}
	ev.Payload = json.RawMessage(payload)
	if processedAt.Status == pgtype.Present {
		t := processedAt.Time
		ev.ProcessedAt = &t
	}
	return ev, nil
}

func (p *pgPaymentEvent) Record(ctx context.Context, ev domain.NewPaymentEvent) (domain.PaymentEvent, bool, error) {
	payload := ev.Payload
	if len(payload) == 0 {
		payload = json.RawMessage(`{}`)
	}
	occurredAt := ev.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now()
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return domain.PaymentEvent{}, false, xe.Wrap(err)
	}
	defer tx.Rollback(ctx)

	stored, err := scanEvent(tx.QueryRow(
		ctx,
		`
		insert into "payment_event" (
			"provider", "event_id", "event_type", "signal", "order_ref", "payment_ref",
			"amount", "occurred_at", "payload"
		)
		values ($1, $2, $3, $4, $5, $6, $7::numeric, $8, $9::jsonb)
		on conflict ("provider", "event_id") do nothing
		returning `+eventColumns,
		string(ev.Provider), ev.EventId, ev.EventType, string(ev.Signal), ev.OrderRef, ev.PaymentRef,
		pgshared.NullableDecimal(ev.Amount), occurredAt, string(payload),
	))
	isNew := true
	if errors.Is(err, pgx.ErrNoRows) {
		isNew = false
		stored, err = scanEvent(tx.QueryRow(
			ctx,
			`select `+eventColumns+` from "payment_event" where "provider" = $1 and "event_id" = $2`,
			string(ev.Provider), ev.EventId,
		))
	}
	if err != nil {
		return domain.PaymentEvent{}, false, xe.Wrap(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.PaymentEvent{}, false, xe.Wrap(err)
	}
	return stored, isNew, nil
}

func (p *pgPaymentEvent) Get(ctx context.Context, id int64) (domain.PaymentEvent, error) {
	ev, err := scanEvent(p.pool.QueryRow(
		ctx, `select `+eventColumns+` from "payment_event" where "id" = $1`, id,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.PaymentEvent{}, xe.Wrap(pgerrors.NewMissing("payment_event", fmt.Sprintf("id=%d", id)))
	} else if err != nil {
		return domain.PaymentEvent{}, xe.Wrap(err)
	}
	return ev, nil
}

func (p *pgPaymentEvent) Find(ctx context.Context, query domain.EventFindQuery) ([]domain.PaymentEvent, error) {
	providers := make([]string, 0, len(query.Provider))
	for _, pr := range query.Provider {
		providers = append(providers, string(pr))
	}
	states := make([]string, 0, len(query.State))
	for _, s := range query.State {
		states = append(states, string(s))
	}
	limit := pgtype.Int4{Status: pgtype.Null}
	if 0 < query.Limit {
		limit = pgtype.Int4{Int: int32(query.Limit), Status: pgtype.Present}
	}

	rows, err := p.pool.Query(
		ctx,
		`
		select `+eventColumns+` from "payment_event"
		where
			(cardinality($1::varchar[]) = 0 or "provider" = any($1::varchar[]))
			and (cardinality($2::varchar[]) = 0 or "state" = any($2::varchar[]))
			and ($3::varchar = '' or "order_ref" = $3::varchar)
		order by "id" desc
		limit $4 offset $5
		`,
		providers, states, query.OrderRef, limit, query.Offset,
	)
	if err != nil {
		return nil, xe.Wrap(err)
	}
	defer rows.Close()

	result := []domain.PaymentEvent{}
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, xe.Wrap(err)
		}
		result = append(result, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, xe.Wrap(err)
	}
	return result, nil
}

// lockEvent locks a "received" event. It returns false when the event is not
// "received" or locked by others.
func lockEvent(ctx context.Context, tx kpool.Tx, id int64) (domain.PaymentEvent, bool, error) {
	ev, err := scanEvent(tx.QueryRow(
		ctx,
		`
		select `+eventColumns+` from "payment_event"
		where "id" = $1 and "state" = 'received'
		for no key update skip locked
		`,
		id,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.PaymentEvent{}, false, nil
	} else if err != nil {
		return domain.PaymentEvent{}, false, err
	}
	return ev, true, nil
}

// ordersOf locks orders which the event refers to.
//
// The order reference (checkout id or order id) is preferred. Orders whose payment
// reference matches are included too.
func ordersOf(ctx context.Context, tx kpool.Tx, ev domain.PaymentEvent) ([]domain.Order, error) {
	rows, err := tx.Query(
		ctx,
		`
		select `+pgshared.OrderColumns+` from "orders"
		where
			($1::varchar <> '' and ("checkout_id" = $1::varchar or "id" = $1::varchar))
			or ($2::varchar <> '' and "payment_ref" = $2::varchar)
		order by "id"
		for no key update
		`,
		ev.OrderRef, ev.PaymentRef,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := []domain.Order{}
	for rows.Next() {
		o, err := pgshared.ScanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// resolve writes the verdict on the locked event and orders.
func (p *pgPaymentEvent) resolve(
	ctx context.Context, tx kpool.Tx, ev domain.PaymentEvent, decide kdb.Decider,
) (domain.PaymentEvent, error) {
	orders, err := ordersOf(ctx, tx, ev)
	if err != nil {
		return ev, xe.Wrap(err)
	}

	verdict, err := decide(ev, orders)
	if err != nil {
		return ev, err
	}

	switch verdict.Kind {
	case domain.Apply:
		applied, err := applyVerdict(ctx, tx, ev, orders, verdict)
		if err != nil {
			return ev, xe.Wrap(err)
		}
		if applied == 0 {
			return finishEvent(ctx, tx, ev.Id, domain.EventIgnored, "no orders can move to "+string(verdict.Status))
		}
		return finishEvent(ctx, tx, ev.Id, domain.EventApplied, verdict.Reason)
	case domain.Ignore:
		return finishEvent(ctx, tx, ev.Id, domain.EventIgnored, verdict.Reason)
	case domain.Defer:
		attempts := ev.Attempts + 1
		if p.policy.Exhausted(attempts) {
			return scanEvent(tx.QueryRow(
				ctx,
				`
				update "payment_event"
				set "state" = 'dead', "attempts" = $2, "last_error" = $3, "processed_at" = now()
				where "id" = $1
				returning `+eventColumns,
				ev.Id, attempts, verdict.Reason,
			))
		}
		return scanEvent(tx.QueryRow(
			ctx,
			`
			update "payment_event"
			set "attempts" = $2, "last_error" = $3, "next_attempt_at" = now() + $4::interval
			where "id" = $1
			returning `+eventColumns,
			ev.Id, attempts, verdict.Reason, p.policy.Backoff(attempts),
		))
	}
	return ev, xe.Wrap(fmt.Errorf("unknown verdict: %s", verdict.Kind))
}

func finishEvent(
	ctx context.Context, tx kpool.Tx, id int64, state domain.EventState, note string,
) (domain.PaymentEvent, error) {
	return scanEvent(tx.QueryRow(
		ctx,
		`
		update "payment_event"
		set "state" = $2, "last_error" = $3, "processed_at" = now()
		where "id" = $1
		returning `+eventColumns,
		id, string(state), note,
	))
}

// applyVerdict moves targeted orders, skipping those which cannot transit.
//
// It returns the number of moved orders.
func applyVerdict(
	ctx context.Context, tx kpool.Tx,
	ev domain.PaymentEvent, orders []domain.Order, verdict domain.Verdict,
) (int, error) {
	targets := map[string]struct{}{}
	for _, id := range verdict.Targets {
		targets[id] = struct{}{}
	}

	moved := 0
	soldItems := []string{}
	releasedItems := []string{}
	for _, o := range orders {
		if _, ok := targets[o.Id]; !ok {
			continue
		}
		if !domain.CanTransit(o.Status, verdict.Status) {
			continue
		}
		if err := pgshared.SetStatusTx(ctx, tx, o.Id, o.Status, verdict.Status); err != nil {
			return 0, err
		}
		moved += 1

		if ev.PaymentRef != "" {
			// a captured reference replaces the one given at checkout,
			// since refunds are issued against it.
			if _, err := tx.Exec(
				ctx,
				`
				update "orders" set "payment_ref" = $2
				where "id" = $1 and ("payment_ref" = '' or $3::boolean)
				`,
				o.Id, ev.PaymentRef, verdict.Status == domain.Paid,
			); err != nil {
				return 0, err
			}
		}

		if o.Item.DropItemId == "" {
			continue
		}
		switch verdict.Status {
		case domain.Paid:
			soldItems = append(soldItems, o.Item.DropItemId)
		case domain.Failed:
			releasedItems = append(releasedItems, o.Item.DropItemId)
		}
	}

	if len(releasedItems) != 0 {
		if _, err := tx.Exec(
			ctx,
			`
			update "drop_item"
			set "reserved_until" = null, "reserved_by" = '', "updated_at" = now()
			where "id" = any($1) and not "is_sold"
			`,
			releasedItems,
		); err != nil {
			return 0, err
		}
	}

	if len(soldItems) == 0 {
		return moved, nil
	}

	if _, err := tx.Exec(
		ctx,
		`
		with "sold" as (
			update "drop_item"
			set "is_sold" = true, "reserved_until" = null, "updated_at" = now()
			where "id" = any($1) and not "is_sold"
			returning "drop_id"
		),
		"counts" as (
			select "drop_id", count(*) as "n" from "sold" group by "drop_id"
		)
		update "drops"
		set "minted_supply" = "drops"."minted_supply" + "counts"."n", "updated_at" = now()
		from "counts"
		where "drops"."id" = "counts"."drop_id"
		`,
		soldItems,
	); err != nil {
		return 0, err
	}
	return moved, nil
}

func (p *pgPaymentEvent) Resolve(ctx context.Context, id int64, decide kdb.Decider) (domain.PaymentEvent, error) {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return domain.PaymentEvent{}, xe.Wrap(err)
	}
	defer tx.Rollback(ctx)

	ev, ok, err := lockEvent(ctx, tx, id)
	if err != nil {
		return domain.PaymentEvent{}, xe.Wrap(err)
	}
	if !ok {
		tx.Rollback(ctx)
		return p.Get(ctx, id)
	}

	resolved, err := p.resolve(ctx, tx, ev, decide)
	if err != nil {
		return ev, err
	}
	if err := tx.Commit(ctx); err != nil {
		return ev, xe.Wrap(err)
	}
	return resolved, nil
}

func (p *pgPaymentEvent) PickAndResolve(
	ctx context.Context, cursor domain.EventCursor, decide kdb.Decider,
) (domain.EventCursor, bool, error) {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return cursor, false, xe.Wrap(err)
	}
	defer tx.Rollback(ctx)

	ev, err := scanEvent(tx.QueryRow(
		ctx,
		`
		select `+eventColumns+` from "payment_event"
		where "state" = 'received' and "next_attempt_at" <= now()
		order by "id" <= $1, "id"
		limit 1
		for no key update skip locked
		`,
		cursor.Head,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return cursor, false, nil
	} else if err != nil {
		return cursor, false, xe.Wrap(err)
	}

	next := domain.EventCursor{Head: ev.Id}
	if _, err := p.resolve(ctx, tx, ev, decide); err != nil {
		return next, true, err
	}
	if err := tx.Commit(ctx); err != nil {
		return next, true, xe.Wrap(err)
	}
	return next, true, nil
}

func (p *pgPaymentEvent) Requeue(ctx context.Context, id int64) (domain.PaymentEvent, error) {
	ev, err := scanEvent(p.pool.QueryRow(
		ctx,
		`
		update "payment_event"
		set
			"state" = 'received', "attempts" = 0, "last_error" = '',
			"next_attempt_at" = now(), "processed_at" = null
		where "id" = $1 and "state" in ('dead', 'ignored')
		returning `+eventColumns,
		id,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.PaymentEvent{}, xe.Wrap(pgerrors.NewMissing("payment_event", fmt.Sprintf("id=%d (dead or ignored)", id)))
	} else if err != nil {
		return domain.PaymentEvent{}, xe.Wrap(err)
	}
	return ev, nil
}

func (p *pgPaymentEvent) CountByState(ctx context.Context) (map[domain.EventState]int, error) {
	rows, err := p.pool.Query(ctx, `select "state", count(*) from "payment_event" group by "state"`)
	if err != nil {
		return nil, xe.Wrap(err)
	}
	defer rows.Close()

	result := map[domain.EventState]int{}
	for rows.Next() {
		var state string
		var n int
		if err := rows.Scan(&state, &n); err != nil {
			return nil, xe.Wrap(err)
		}
		result[domain.EventState(state)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, xe.Wrap(err)
	}
	return result, nil
}
