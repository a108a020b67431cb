package db

import (
	"context"

	"github.com/cozyartz/etchNFT/pkg/domain"
)

type UploadInterface interface {
	// Create stores the upload. Id is generated when empty.
	Create(ctx context.Context, u domain.Upload) (domain.Upload, error)

	// Get returns the upload with its image.
	//
	// ErrMissing is returned when not found.
	Get(ctx context.Context, id string) (domain.Upload, error)

	// Find uploads of the email, newest first. Images are not loaded.
	Find(ctx context.Context, email string) ([]domain.Upload, error)

	// SetStatus changes the status of the upload.
	//
	// ErrMissing is returned when not found.
	SetStatus(ctx context.Context, id string, status domain.UploadStatus) error
}
