package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgtype"
	"github.com/jackc/pgx/v4"
	"github.com/shopspring/decimal"

	kpool "github.com/cozyartz/etchNFT/pkg/conn/db/postgres/pool"
	"github.com/cozyartz/etchNFT/pkg/domain"
	kdb "github.com/cozyartz/etchNFT/pkg/domain/drop/db"
	domerr "github.com/cozyartz/etchNFT/pkg/domain/errors"
	pgerrors "github.com/cozyartz/etchNFT/pkg/domain/errors/dberrors/postgres"
	pgshared "github.com/cozyartz/etchNFT/pkg/domain/internal/db/postgres"
	xe "github.com/cozyartz/etchNFT/pkg/errors"
)

type pgDrop struct {
	pool kpool.Pool
}

var _ kdb.DropInterface = &pgDrop{}

func New(pool kpool.Pool) *pgDrop {
	return &pgDrop{pool: pool}
}

const dropColumns = `
	"id", "slug", "name", "description", "image_url", "banner_url", "price_usd"::text,
	"launch_at", "end_at", "is_active", "is_featured",
	"total_supply", "minted_supply", "max_per_user",
	"product_type", "material", "dimensions", "created_at", "updated_at"
`

func scanDrop(row pgshared.RowScanner) (domain.Drop, error) {
	var d domain.Drop
	var price string
	var launchAt, endAt pgtype.Timestamptz
	if err := row.Scan(
		&d.Id, &d.Slug, &d.Name, &d.Description, &d.ImageURL, &d.BannerURL, &price,
		&launchAt, &endAt, &d.Active, &d.Featured,
		&d.TotalSupply, &d.MintedSupply, &d.MaxPerUser,
		&d.ProductType, &d.Material, &d.Dimensions, &d.CreatedAt, &d.UpdatedAt,
	); err != nil {
		return domain.Drop{}, err
	}
	var err error
	if d.Price, err = decimal.NewFromString(price); err != nil {
		return domain.Drop{}, err
	}
	d.LaunchAt = timeOrNil(launchAt)
	d.EndAt = timeOrNil(endAt)
	return d, nil
}

const itemColumns = `
	"id", "drop_id", "name", "description", "token_id",
	"original_image_url", "thumbnail_url",
	"laser_file_url", "laser_file_status", "processing_notes",
	"is_available", "is_sold", "reserved_until", "reserved_by",
	"created_at", "updated_at"
`

func scanItem(row pgshared.RowScanner) (domain.DropItem, error) {
	var i domain.DropItem
	var laserStatus string
	var reservedUntil pgtype.Timestamptz
	if err := row.Scan(
		&i.Id, &i.DropId, &i.Name, &i.Description, &i.TokenId,
		&i.OriginalImageURL, &i.ThumbnailURL,
		&i.LaserFileURL, &laserStatus, &i.ProcessingNotes,
		&i.Available, &i.Sold, &reservedUntil, &i.ReservedBy,
		&i.CreatedAt, &i.UpdatedAt,
	); err != nil {
		return domain.DropItem{}, err
	}
	var err error
	if i.LaserFileStatus, err = domain.AsLaserFileStatus(laserStatus); err != nil {
		return domain.DropItem{}, err
	}
	i.ReservedUntil = timeOrNil(reservedUntil)
	return i, nil
}

func timeOrNil(t pgtype.Timestamptz) *time.Time {
	if t.Status != pgtype.Present {
		return nil
	}
	v := t.Time
	return &v
}

func nullableTime(t *time.Time) pgtype.Timestamptz {
	if t == nil {
		return pgtype.Timestamptz{Status: pgtype.Null}
	}
	return pgtype.Timestamptz{Time: *t, Status: pgtype.Present}
}

func (m *pgDrop) Create(ctx context.Context, d domain.Drop) (domain.Drop, error) {
	if d.Id == "" {
		d.Id = "drop_" + uuid.NewString()
	}
	created, err := scanDrop(m.pool.QueryRow(
		ctx,
		`
		insert into "drops" (
			"id", "slug", "name", "description", "image_url", "banner_url", "price_usd",
			"launch_at", "end_at", "is_active", "is_featured",
			"total_supply", "max_per_user", "product_type", "material", "dimensions"
		)
		values ($1, $2, $3, $4, $5, $6, $7::numeric, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		returning `+dropColumns,
		d.Id, d.Slug, d.Name, d.Description, d.ImageURL, d.BannerURL, d.Price.String(),
		nullableTime(d.LaunchAt), nullableTime(d.EndAt), d.Active, d.Featured,
		d.TotalSupply, d.MaxPerUser, d.ProductType, d.Material, d.Dimensions,
	))
	if err != nil {
		if pgerrors.IsUniqueViolation(err) {
			return domain.Drop{}, xe.Wrap(pgerrors.NewConflict("drops", "slug="+d.Slug, err))
		}
		return domain.Drop{}, xe.Wrap(err)
	}
	return created, nil
}

func (m *pgDrop) Update(ctx context.Context, d domain.Drop) (domain.Drop, error) {
	updated, err := scanDrop(m.pool.QueryRow(
		ctx,
		`
		update "drops"
		set
			"slug" = $2, "name" = $3, "description" = $4, "image_url" = $5, "banner_url" = $6,
			"price_usd" = $7::numeric, "launch_at" = $8, "end_at" = $9,
			"is_active" = $10, "is_featured" = $11,
			"total_supply" = $12, "max_per_user" = $13,
			"product_type" = $14, "material" = $15, "dimensions" = $16,
			"updated_at" = now()
		where "id" = $1
		returning `+dropColumns,
		d.Id, d.Slug, d.Name, d.Description, d.ImageURL, d.BannerURL,
		d.Price.String(), nullableTime(d.LaunchAt), nullableTime(d.EndAt),
		d.Active, d.Featured, d.TotalSupply, d.MaxPerUser,
		d.ProductType, d.Material, d.Dimensions,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Drop{}, xe.Wrap(pgerrors.NewMissing("drops", d.Id))
	} else if err != nil {
		if pgerrors.IsUniqueViolation(err) {
			return domain.Drop{}, xe.Wrap(pgerrors.NewConflict("drops", "slug="+d.Slug, err))
		}
		return domain.Drop{}, xe.Wrap(err)
	}
	return updated, nil
}

func (m *pgDrop) Delete(ctx context.Context, id string) error {
	ctag, err := m.pool.Exec(ctx, `delete from "drops" where "id" = $1`, id)
	if err != nil {
		return xe.Wrap(err)
	}
	if ctag.RowsAffected() == 0 {
		return xe.Wrap(pgerrors.NewMissing("drops", id))
	}
	return nil
}

func (m *pgDrop) Get(ctx context.Context, id string) (domain.Drop, error) {
	d, err := scanDrop(m.pool.QueryRow(ctx, `select `+dropColumns+` from "drops" where "id" = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Drop{}, xe.Wrap(pgerrors.NewMissing("drops", id))
	} else if err != nil {
		return domain.Drop{}, xe.Wrap(err)
	}
	return d, nil
}

func (m *pgDrop) GetBySlug(ctx context.Context, slug string) (domain.Drop, []domain.DropItem, error) {
	d, err := scanDrop(m.pool.QueryRow(ctx, `select `+dropColumns+` from "drops" where "slug" = $1`, slug))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Drop{}, nil, xe.Wrap(pgerrors.NewMissing("drops", "slug="+slug))
	} else if err != nil {
		return domain.Drop{}, nil, xe.Wrap(err)
	}

	items, err := m.items(ctx, d.Id, "")
	if err != nil {
		return domain.Drop{}, nil, err
	}
	return d, items, nil
}

func (m *pgDrop) Items(ctx context.Context, dropId string, status domain.LaserFileStatus) ([]domain.DropItem, error) {
	var found bool
	if err := m.pool.QueryRow(
		ctx, `select exists (select 1 from "drops" where "id" = $1)`, dropId,
	).Scan(&found); err != nil {
		return nil, xe.Wrap(err)
	}
	if !found {
		return nil, xe.Wrap(pgerrors.NewMissing("drops", dropId))
	}
	return m.items(ctx, dropId, status)
}

func (m *pgDrop) items(ctx context.Context, dropId string, status domain.LaserFileStatus) ([]domain.DropItem, error) {
	rows, err := m.pool.Query(
		ctx,
		`
		select `+itemColumns+` from "drop_item"
		where "drop_id" = $1 and ($2::varchar = '' or "laser_file_status" = $2::varchar)
		order by "created_at", "id"
		`,
		dropId, string(status),
	)
	if err != nil {
		return nil, xe.Wrap(err)
	}
	defer rows.Close()

	items := []domain.DropItem{}
	for rows.Next() {
		i, err := scanItem(rows)
		if err != nil {
			return nil, xe.Wrap(err)
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, xe.Wrap(err)
	}
	return items, nil
}

func (m *pgDrop) Find(ctx context.Context, query domain.DropFindQuery) ([]domain.Drop, error) {
	limit := pgtype.Int4{Status: pgtype.Null}
	if 0 < query.Limit {
		limit = pgtype.Int4{Int: int32(query.Limit), Status: pgtype.Present}
	}

	rows, err := m.pool.Query(
		ctx,
		`
		select `+dropColumns+` from "drops"
		where
			($1::timestamptz is null or (
				"is_active"
				and ("launch_at" is null or "launch_at" <= $1::timestamptz)
				and ("end_at" is null or $1::timestamptz < "end_at")
				and ("total_supply" = 0 or "minted_supply" < "total_supply")
			))
			and (not $2::boolean or "is_featured")
		order by "is_featured" desc, "created_at" desc, "id"
		limit $3 offset $4
		`,
		nullableTime(query.LiveAt), query.Featured, limit, query.Offset,
	)
	if err != nil {
		return nil, xe.Wrap(err)
	}
	defer rows.Close()

	drops := []domain.Drop{}
	for rows.Next() {
		d, err := scanDrop(rows)
		if err != nil {
			return nil, xe.Wrap(err)
		}
		drops = append(drops, d)
	}
	if err := rows.Err(); err != nil {
		return nil, xe.Wrap(err)
	}
	return drops, nil
}

func (m *pgDrop) CreateItem(ctx context.Context, item domain.DropItem) (domain.DropItem, error) {
	if item.Id == "" {
		item.Id = "item_" + uuid.NewString()
	}
	if item.LaserFileStatus == "" {
		item.LaserFileStatus = domain.LaserFilePending
	}
	created, err := scanItem(m.pool.QueryRow(
		ctx,
		`
		insert into "drop_item" (
			"id", "drop_id", "name", "description", "token_id",
			"original_image_url", "thumbnail_url",
			"laser_file_url", "laser_file_status", "processing_notes", "is_available"
		)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		returning `+itemColumns,
		item.Id, item.DropId, item.Name, item.Description, item.TokenId,
		item.OriginalImageURL, item.ThumbnailURL,
		item.LaserFileURL, string(item.LaserFileStatus), item.ProcessingNotes, item.Available,
	))
	if err != nil {
		if pgerrors.IsForeignKeyViolation(err) {
			return domain.DropItem{}, xe.Wrap(pgerrors.NewMissing("drops", item.DropId))
		}
		if pgerrors.IsUniqueViolation(err) {
			return domain.DropItem{}, xe.Wrap(pgerrors.NewConflict("drop_item", item.Id, err))
		}
		return domain.DropItem{}, xe.Wrap(err)
	}
	return created, nil
}

func (m *pgDrop) GetItem(ctx context.Context, id string) (domain.DropItem, error) {
	i, err := scanItem(m.pool.QueryRow(ctx, `select `+itemColumns+` from "drop_item" where "id" = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.DropItem{}, xe.Wrap(pgerrors.NewMissing("drop_item", id))
	} else if err != nil {
		return domain.DropItem{}, xe.Wrap(err)
	}
	return i, nil
}

func (m *pgDrop) Reserve(
	ctx context.Context, itemId string, email string, now time.Time, ttl time.Duration,
) (domain.Drop, domain.DropItem, error) {
	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return domain.Drop{}, domain.DropItem{}, xe.Wrap(err)
	}
	defer tx.Rollback(ctx)

	item, err := scanItem(tx.QueryRow(
		ctx, `select `+itemColumns+` from "drop_item" where "id" = $1 for no key update`, itemId,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Drop{}, domain.DropItem{}, xe.Wrap(pgerrors.NewMissing("drop_item", itemId))
	} else if err != nil {
		return domain.Drop{}, domain.DropItem{}, xe.Wrap(err)
	}

	drop, err := scanDrop(tx.QueryRow(
		ctx, `select `+dropColumns+` from "drops" where "id" = $1 for no key update`, item.DropId,
	))
	if err != nil {
		return domain.Drop{}, domain.DropItem{}, xe.Wrap(err)
	}

	if !drop.Live(now) {
		return drop, item, xe.Wrap(fmt.Errorf("%w: drop %s is not live", domerr.ErrNotPurchasable, drop.Slug))
	}
	if !item.Purchasable(now, email) {
		return drop, item, xe.Wrap(fmt.Errorf("%w: item %s", domerr.ErrNotPurchasable, item.Id))
	}

	if 0 < drop.MaxPerUser {
		var held int
		if err := tx.QueryRow(
			ctx,
			`
			select count(*) from (
				select "o"."drop_item_id" as "id"
				from "orders" as "o"
				inner join "drop_item" as "i" on "i"."id" = "o"."drop_item_id"
				where
					"i"."drop_id" = $1
					and lower("o"."customer_email") = lower($2)
					and "o"."status" not in ('failed', 'cancelled', 'refunded')
				union
				select "id" from "drop_item"
				where "drop_id" = $1 and "reserved_by" = $2 and $3 < "reserved_until"
			) as "held"
			where "id" <> $4
			`,
			drop.Id, email, now, item.Id,
		).Scan(&held); err != nil {
			return drop, item, xe.Wrap(err)
		}
		if drop.MaxPerUser <= held {
			return drop, item, xe.Wrap(fmt.Errorf(
				"%w: %s reaches the limit per user (%d)", domerr.ErrNotPurchasable, email, drop.MaxPerUser,
			))
		}
	}

	reserved, err := scanItem(tx.QueryRow(
		ctx,
		`
		update "drop_item"
		set "reserved_until" = $2, "reserved_by" = $3, "updated_at" = now()
		where "id" = $1
		returning `+itemColumns,
		item.Id, now.Add(ttl), email,
	))
	if err != nil {
		return drop, item, xe.Wrap(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return drop, item, xe.Wrap(err)
	}
	return drop, reserved, nil
}

func (m *pgDrop) Release(ctx context.Context, itemIds []string) error {
	if _, err := m.pool.Exec(
		ctx,
		`
		update "drop_item"
		set "reserved_until" = null, "reserved_by" = '', "updated_at" = now()
		where "id" = any($1) and not "is_sold"
		`,
		itemIds,
	); err != nil {
		return xe.Wrap(err)
	}
	return nil
}

func (m *pgDrop) ReleaseExpired(ctx context.Context, now time.Time) (int, error) {
	ctag, err := m.pool.Exec(
		ctx,
		`
		update "drop_item"
		set "reserved_until" = null, "reserved_by" = '', "updated_at" = now()
		where "reserved_until" <= $1 and not "is_sold"
		`,
		now,
	)
	if err != nil {
		return 0, xe.Wrap(err)
	}
	return int(ctag.RowsAffected()), nil
}

func (m *pgDrop) SetLaserFile(
	ctx context.Context, itemId string, status domain.LaserFileStatus, url string, notes string,
) (domain.DropItem, error) {
	item, err := scanItem(m.pool.QueryRow(
		ctx,
		`
		update "drop_item"
		set
			"laser_file_status" = $2,
			"laser_file_url" = case when $3::varchar = '' then "laser_file_url" else $3::varchar end,
			"processing_notes" = $4,
			"updated_at" = now()
		where "id" = $1
		returning `+itemColumns,
		itemId, string(status), url, notes,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.DropItem{}, xe.Wrap(pgerrors.NewMissing("drop_item", itemId))
	} else if err != nil {
		return domain.DropItem{}, xe.Wrap(err)
	}
	return item, nil
}

const templateColumns = `
	"id", "name", "material", "dimensions", "template_svg", "image_max_width", "image_max_height"
`

func scanTemplate(row pgshared.RowScanner) (domain.DesignTemplate, error) {
	var t domain.DesignTemplate
	err := row.Scan(
		&t.Id, &t.Name, &t.Material, &t.Dimensions, &t.TemplateSVG, &t.ImageMaxWidth, &t.ImageMaxHeight,
	)
	return t, err
}

func (m *pgDrop) CreateTemplate(ctx context.Context, t domain.DesignTemplate) (domain.DesignTemplate, error) {
	if t.Id == "" {
		t.Id = "template_" + uuid.NewString()
	}
	created, err := scanTemplate(m.pool.QueryRow(
		ctx,
		`
		insert into "design_template"
			("id", "name", "material", "dimensions", "template_svg", "image_max_width", "image_max_height")
		values ($1, $2, $3, $4, $5, $6, $7)
		returning `+templateColumns,
		t.Id, t.Name, t.Material, t.Dimensions, t.TemplateSVG, t.ImageMaxWidth, t.ImageMaxHeight,
	))
	if err != nil {
		if pgerrors.IsUniqueViolation(err) {
			return domain.DesignTemplate{}, xe.Wrap(pgerrors.NewConflict("design_template", t.Id, err))
		}
		return domain.DesignTemplate{}, xe.Wrap(err)
	}
	return created, nil
}

func (m *pgDrop) GetTemplate(ctx context.Context, id string) (domain.DesignTemplate, error) {
	t, err := scanTemplate(m.pool.QueryRow(
		ctx, `select `+templateColumns+` from "design_template" where "id" = $1`, id,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.DesignTemplate{}, xe.Wrap(pgerrors.NewMissing("design_template", id))
	} else if err != nil {
		return domain.DesignTemplate{}, xe.Wrap(err)
	}
	return t, nil
}

func (m *pgDrop) Templates(ctx context.Context, material string) ([]domain.DesignTemplate, error) {
	rows, err := m.pool.Query(
		ctx,
		`
		select `+templateColumns+` from "design_template"
		where $1::varchar = '' or "material" = $1::varchar
		order by "name", "id"
		`,
		material,
	)
	if err != nil {
		return nil, xe.Wrap(err)
	}
	defer rows.Close()

	result := []domain.DesignTemplate{}
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, xe.Wrap(err)
		}
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		return nil, xe.Wrap(err)
	}
	return result, nil
}
