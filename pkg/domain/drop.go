package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Drop is a limited release of etched items.
type Drop struct {
	Id          string
	Slug        string
	Name        string
	Description string
	ImageURL    string
	BannerURL   string

	Price decimal.Decimal

	LaunchAt *time.Time
	EndAt    *time.Time
	Active   bool
	Featured bool

	TotalSupply  int
	MintedSupply int
	MaxPerUser   int

	ProductType string
	Material    string
	Dimensions  string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Live reports whether the drop accepts purchases at `now`.
func (d Drop) Live(now time.Time) bool {
	if !d.Active {
		return false
	}
	if d.LaunchAt != nil && now.Before(*d.LaunchAt) {
		return false
	}
	if d.EndAt != nil && !now.Before(*d.EndAt) {
		return false
	}
	if 0 < d.TotalSupply && d.TotalSupply <= d.MintedSupply {
		return false
	}
	return true
}

type LaserFileStatus string

const (
	LaserFilePending    LaserFileStatus = "pending"
	LaserFileProcessing LaserFileStatus = "processing"
	LaserFileReady      LaserFileStatus = "ready"
	LaserFileFailed     LaserFileStatus = "failed"
)

func AsLaserFileStatus(s string) (LaserFileStatus, error) {
	switch st := LaserFileStatus(s); st {
	case LaserFilePending, LaserFileProcessing, LaserFileReady, LaserFileFailed:
		return st, nil
	}
	return "", fmt.Errorf("unknown laser file status: %s", s)
}

type DropItem struct {
	Id     string
	DropId string

	Name        string
	Description string
	TokenId     string

	OriginalImageURL string
	ThumbnailURL     string

	LaserFileURL    string
	LaserFileStatus LaserFileStatus
	ProcessingNotes string

	Available     bool
	Sold          bool
	ReservedUntil *time.Time
	ReservedBy    string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Purchasable reports whether the item can be reserved by `email` at `now`.
func (i DropItem) Purchasable(now time.Time, email string) bool {
	if !i.Available || i.Sold || i.LaserFileStatus != LaserFileReady {
		return false
	}
	if i.ReservedUntil != nil && now.Before(*i.ReservedUntil) && i.ReservedBy != email {
		return false
	}
	return true
}

// DesignTemplate is an SVG layout for laser files.
type DesignTemplate struct {
	Id             string
	Name           string
	Material       string
	Dimensions     string
	TemplateSVG    string
	ImageMaxWidth  int
	ImageMaxHeight int
}

type DropFindQuery struct {
	// only drops live at this time.
	LiveAt *time.Time

	Featured bool
	Limit    int
	Offset   int
}

// ReservationTTL is how long a drop item is held for a checkout.
const ReservationTTL = 15 * time.Minute
