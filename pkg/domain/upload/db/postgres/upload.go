package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"

	kpool "github.com/cozyartz/etchNFT/pkg/conn/db/postgres/pool"
	"github.com/cozyartz/etchNFT/pkg/domain"
	pgerrors "github.com/cozyartz/etchNFT/pkg/domain/errors/dberrors/postgres"
	pgshared "github.com/cozyartz/etchNFT/pkg/domain/internal/db/postgres"
	kdb "github.com/cozyartz/etchNFT/pkg/domain/upload/db"
	xe "github.com/cozyartz/etchNFT/pkg/errors"
)

type pgUpload struct {
	pool kpool.Pool
}

var _ kdb.UploadInterface = &pgUpload{}

func New(pool kpool.Pool) *pgUpload {
	return &pgUpload{pool: pool}
}

const uploadColumns = `
	"id", "user_email", "name", "description",
	"original_filename", "file_type", "file_size", "status",
	"mint_tx_hash", "mint_signature", "wallet_address",
	"created_at", "updated_at"
`

func scanUpload(row pgshared.RowScanner, extra ...any) (domain.Upload, error) {
	var u domain.Upload
	var status string
	dest := []any{
		&u.Id, &u.Email, &u.Name, &u.Description,
		&u.Filename, &u.FileType, &u.FileSize, &status,
		&u.MintTxHash, &u.MintSignature, &u.Wallet,
		&u.CreatedAt, &u.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return domain.Upload{}, err
	}
	var err error
	if u.Status, err = domain.AsUploadStatus(status); err != nil {
		return domain.Upload{}, err
	}
	return u, nil
}

func (m *pgUpload) Create(ctx context.Context, u domain.Upload) (domain.Upload, error) {
	if u.Id == "" {
		u.Id = uuid.NewString()
	}
	if u.Status == "" {
		u.Status = domain.Uploaded
	}
	created, err := scanUpload(m.pool.QueryRow(
		ctx,
		`
		insert into "custom_uploads" (
			"id", "user_email", "name", "description",
			"original_filename", "file_type", "file_size", "image_data", "status",
			"mint_tx_hash", "mint_signature", "wallet_address"
		)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		returning `+uploadColumns,
		u.Id, u.Email, u.Name, u.Description,
		u.Filename, u.FileType, len(u.Data), u.Data, string(u.Status),
		u.MintTxHash, u.MintSignature, u.Wallet,
	))
	if err != nil {
		if pgerrors.IsUniqueViolation(err) {
			return domain.Upload{}, xe.Wrap(pgerrors.NewConflict("custom_uploads", u.Id, err))
		}
		return domain.Upload{}, xe.Wrap(err)
	}
	created.Data = u.Data
	return created, nil
}

func (m *pgUpload) Get(ctx context.Context, id string) (domain.Upload, error) {
	var data []byte
	u, err := scanUpload(m.pool.QueryRow(
		ctx,
		`select `+uploadColumns+`, "image_data" from "custom_uploads" where "id" = $1`,
		id,
	), &data)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Upload{}, xe.Wrap(pgerrors.NewMissing("custom_uploads", id))
	} else if err != nil {
		return domain.Upload{}, xe.Wrap(err)
	}
	u.Data = data
	return u, nil
}

func (m *pgUpload) Find(ctx context.Context, email string) ([]domain.Upload, error) {
	rows, err := m.pool.Query(
		ctx,
		`
		select `+uploadColumns+` from "custom_uploads"
		where lower("user_email") = lower($1)
		order by "created_at" desc, "id"
		`,
		email,
	)
	if err != nil {
		return nil, xe.Wrap(err)
	}
	defer rows.Close()

	uploads := []domain.Upload{}
	for rows.Next() {
		u, err := scanUpload(rows)
		if err != nil {
			return nil, xe.Wrap(err)
		}
		uploads = append(uploads, u)
	}
	if err := rows.Err(); err != nil {
		return nil, xe.Wrap(err)
	}
	return uploads, nil
}

func (m *pgUpload) SetStatus(ctx context.Context, id string, status domain.UploadStatus) error {
	ctag, err := m.pool.Exec(
		ctx,
		`update "custom_uploads" set "status" = $2, "updated_at" = now() where "id" = $1`,
		id, string(status),
	)
	if err != nil {
		return xe.Wrap(err)
	}
	if ctag.RowsAffected() == 0 {
		return xe.Wrap(pgerrors.NewMissing("custom_uploads", id))
	}
	return nil
}
