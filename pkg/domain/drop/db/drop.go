package db

import (
	"context"
	"time"

	"github.com/cozyartz/etchNFT/pkg/domain"
)

type DropInterface interface {
	// Create a drop. Id is generated when empty.
	//
	// ErrConflict is returned when the slug is taken.
	Create(ctx context.Context, d domain.Drop) (domain.Drop, error)

	// Update the drop with the same id. Supply counters are not changed.
	Update(ctx context.Context, d domain.Drop) (domain.Drop, error)

	// Delete the drop and its items.
	Delete(ctx context.Context, id string) error

	Get(ctx context.Context, id string) (domain.Drop, error)

	// GetBySlug returns the drop and its items.
	GetBySlug(ctx context.Context, slug string) (domain.Drop, []domain.DropItem, error)

	// Find drops, featured first then newest first.
	Find(ctx context.Context, query domain.DropFindQuery) ([]domain.Drop, error)

	// CreateItem adds an item to the drop. Id is generated when empty.
	CreateItem(ctx context.Context, item domain.DropItem) (domain.DropItem, error)

	GetItem(ctx context.Context, id string) (domain.DropItem, error)

	// Items of the drop, oldest first. When status is not empty, only items in the status.
	//
	// ErrMissing is returned when the drop is not found.
	Items(ctx context.Context, dropId string, status domain.LaserFileStatus) ([]domain.DropItem, error)

	// Reserve holds the item for email until now + ttl.
	//
	// The item and its drop are locked, then checked:
	// the drop is live, the item is purchasable by email,
	// and email does not exceed max per user of the drop.
	//
	// # Returns
	//
	// - domain.Drop, domain.DropItem: the drop and the reserved item.
	//
	// - error: ErrNotPurchasable when the checks fail. ErrMissing when not found.
	Reserve(ctx context.Context, itemId string, email string, now time.Time, ttl time.Duration) (domain.Drop, domain.DropItem, error)

	// Release drops reservations of unsold items.
	Release(ctx context.Context, itemIds []string) error

	// ReleaseExpired drops expired reservations and returns how many are released.
	ReleaseExpired(ctx context.Context, now time.Time) (int, error)

	// SetLaserFile records the result of laser file processing.
	SetLaserFile(ctx context.Context, itemId string, status domain.LaserFileStatus, url string, notes string) (domain.DropItem, error)

	CreateTemplate(ctx context.Context, t domain.DesignTemplate) (domain.DesignTemplate, error)

	GetTemplate(ctx context.Context, id string) (domain.DesignTemplate, error)

	// Templates lists templates for the material. All templates if material is empty.
	Templates(ctx context.Context, material string) ([]domain.DesignTemplate, error)
}
