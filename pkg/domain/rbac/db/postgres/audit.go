package postgres

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgtype"

	kpool "github.com/cozyartz/etchNFT/pkg/conn/db/postgres/pool"
	"github.com/cozyartz/etchNFT/pkg/domain"
	kdb "github.com/cozyartz/etchNFT/pkg/domain/rbac/db"
	xe "github.com/cozyartz/etchNFT/pkg/errors"
)

type pgAudit struct {
	pool kpool.Pool
}

var _ kdb.AuditInterface = &pgAudit{}

func NewAudit(pool kpool.Pool) *pgAudit {
	return &pgAudit{pool: pool}
}

func (a *pgAudit) Record(ctx context.Context, entry domain.AuditEntry) error {
	details := entry.Details
	if details == nil {
		details = map[string]any{}
	}
	payload, err := json.Marshal(details)
	if err != nil {
		return xe.Wrap(err)
	}

	if _, err := a.pool.Exec(
		ctx,
		`
		insert into "audit_log"
			("user_id", "action", "resource", "resource_id", "details", "ip_address", "user_agent")
		values ($1, $2, $3, $4, $5::jsonb, $6, $7)
		`,
		entry.UserId, entry.Action, entry.Resource, entry.ResourceId,
		string(payload), entry.IPAddress, entry.UserAgent,
	); err != nil {
		return xe.Wrap(err)
	}
	return nil
}

func (a *pgAudit) Find(ctx context.Context, query domain.AuditFindQuery) ([]domain.AuditEntry, int, error) {
	limit := pgtype.Int4{Status: pgtype.Null}
	if 0 < query.Limit {
		limit = pgtype.Int4{Int: int32(query.Limit), Status: pgtype.Present}
	}

	rows, err := a.pool.Query(
		ctx,
		`
		select
			"id", "user_id", "action", "resource", "resource_id", "details",
			"ip_address", "user_agent", "created_at",
			count(*) over () as "total"
		from "audit_log"
		where
			($1::varchar = '' or "user_id" = $1::varchar)
			and ($2::varchar = '' or "action" = $2::varchar)
			and ($3::varchar = '' or "resource" = $3::varchar)
		order by "created_at" desc, "id" desc
		limit $4 offset $5
		`,
		query.UserId, query.Action, query.Resource, limit, query.Offset,
	)
	if err != nil {
		return nil, 0, xe.Wrap(err)
	}
	defer rows.Close()

	total := 0
	entries := []domain.AuditEntry{}
	for rows.Next() {
		var e domain.AuditEntry
		var details []byte
		if err := rows.Scan(
			&e.Id, &e.UserId, &e.Action, &e.Resource, &e.ResourceId, &details,
			&e.IPAddress, &e.UserAgent, &e.CreatedAt, &total,
		); err != nil {
			return nil, 0, xe.Wrap(err)
		}
		if err := json.Unmarshal(details, &e.Details); err != nil {
			return nil, 0, xe.Wrap(err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, xe.Wrap(err)
	}

	if len(entries) == 0 && 0 < query.Offset {
		// window counts nothing past the last page.
		if err := a.pool.QueryRow(
			ctx,
			`
			select count(*) from "audit_log"
			where
				($1::varchar = '' or "user_id" = $1::varchar)
				and ($2::varchar = '' or "action" = $2::varchar)
				and ($3::varchar = '' or "resource" = $3::varchar)
			`,
			query.UserId, query.Action, query.Resource,
		).Scan(&total); err != nil {
			return nil, 0, xe.Wrap(err)
		}
	}
	return entries, total, nil
}
