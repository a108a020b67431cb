package drops

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/cozyartz/etchNFT/pkg/domain"
	"github.com/cozyartz/etchNFT/pkg/imaging"
	"github.com/cozyartz/etchNFT/pkg/utils/rfctime"
)

type Summary struct {
	Id           string           `json:"id"`
	Slug         string           `json:"slug"`
	Name         string           `json:"name"`
	Description  string           `json:"description,omitempty"`
	ImageURL     string           `json:"imageUrl,omitempty"`
	BannerURL    string           `json:"bannerUrl,omitempty"`
	Price        decimal.Decimal  `json:"price"`
	LaunchAt     *rfctime.RFC3339 `json:"launchAt,omitempty"`
	EndAt        *rfctime.RFC3339 `json:"endAt,omitempty"`
	Active       bool             `json:"active"`
	Featured     bool             `json:"featured"`
	TotalSupply  int              `json:"totalSupply"`
	MintedSupply int              `json:"mintedSupply"`
	MaxPerUser   int              `json:"maxPerUser"`
	ProductType  string           `json:"productType,omitempty"`
	Material     string           `json:"material,omitempty"`
	Dimensions   string           `json:"dimensions,omitempty"`
}

func ComposeSummary(d domain.Drop) Summary {
	var launch, end *rfctime.RFC3339
	if d.LaunchAt != nil {
		t := rfctime.RFC3339(*d.LaunchAt)
		launch = &t
	}
	if d.EndAt != nil {
		t := rfctime.RFC3339(*d.EndAt)
		end = &t
	}
	return Summary{
		Id:           d.Id,
		Slug:         d.Slug,
		Name:         d.Name,
		Description:  d.Description,
		ImageURL:     d.ImageURL,
		BannerURL:    d.BannerURL,
		Price:        d.Price,
		LaunchAt:     launch,
		EndAt:        end,
		Active:       d.Active,
		Featured:     d.Featured,
		TotalSupply:  d.TotalSupply,
		MintedSupply: d.MintedSupply,
		MaxPerUser:   d.MaxPerUser,
		ProductType:  d.ProductType,
		Material:     d.Material,
		Dimensions:   d.Dimensions,
	}
}

type Item struct {
	Id               string           `json:"id"`
	DropId           string           `json:"dropId"`
	Name             string           `json:"name"`
	Description      string           `json:"description,omitempty"`
	TokenId          string           `json:"tokenId,omitempty"`
	OriginalImageURL string           `json:"originalImageUrl"`
	ThumbnailURL     string           `json:"thumbnailUrl,omitempty"`
	LaserFileURL     string           `json:"laserFileUrl,omitempty"`
	LaserFileStatus  string           `json:"laserFileStatus"`
	ProcessingNotes  string           `json:"processingNotes,omitempty"`
	Available        bool             `json:"available"`
	Sold             bool             `json:"sold"`
	ReservedUntil    *rfctime.RFC3339 `json:"reservedUntil,omitempty"`
}

func ComposeItem(i domain.DropItem) Item {
	var reserved *rfctime.RFC3339
	if i.ReservedUntil != nil {
		t := rfctime.RFC3339(*i.ReservedUntil)
		reserved = &t
	}
	return Item{
		Id:               i.Id,
		DropId:           i.DropId,
		Name:             i.Name,
		Description:      i.Description,
		TokenId:          i.TokenId,
		OriginalImageURL: i.OriginalImageURL,
		ThumbnailURL:     i.ThumbnailURL,
		LaserFileURL:     i.LaserFileURL,
		LaserFileStatus:  string(i.LaserFileStatus),
		ProcessingNotes:  i.ProcessingNotes,
		Available:        i.Available,
		Sold:             i.Sold,
		ReservedUntil:    reserved,
	}
}

// Detail is a drop with its items.
type Detail struct {
	Summary
	Items []Item `json:"items"`
}

// Spec is the body to create or update a drop.
type Spec struct {
	Slug        string           `json:"slug"`
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	ImageURL    string           `json:"imageUrl,omitempty"`
	BannerURL   string           `json:"bannerUrl,omitempty"`
	Price       decimal.Decimal  `json:"price"`
	LaunchAt    *rfctime.RFC3339 `json:"launchAt,omitempty"`
	EndAt       *rfctime.RFC3339 `json:"endAt,omitempty"`
	Active      bool             `json:"active"`
	Featured    bool             `json:"featured"`
	TotalSupply int              `json:"totalSupply"`
	MaxPerUser  int              `json:"maxPerUser"`
	ProductType string           `json:"productType,omitempty"`
	Material    string           `json:"material,omitempty"`
	Dimensions  string           `json:"dimensions,omitempty"`
}

// Domain converts the spec into a drop with the id.
func (s Spec) Domain(id string) domain.Drop {
	d := domain.Drop{
		Id:          id,
		Slug:        s.Slug,
		Name:        s.Name,
		Description: s.Description,
		ImageURL:    s.ImageURL,
		BannerURL:   s.BannerURL,
		Price:       s.Price,
		Active:      s.Active,
		Featured:    s.Featured,
		TotalSupply: s.TotalSupply,
		MaxPerUser:  s.MaxPerUser,
		ProductType: s.ProductType,
		Material:    s.Material,
		Dimensions:  s.Dimensions,
	}
	if s.LaunchAt != nil {
		t := s.LaunchAt.Time()
		d.LaunchAt = &t
	}
	if s.EndAt != nil {
		t := s.EndAt.Time()
		d.EndAt = &t
	}
	return d
}

// ItemSpec is the body to add an item to a drop.
type ItemSpec struct {
	Name             string `json:"name"`
	Description      string `json:"description,omitempty"`
	TokenId          string `json:"tokenId,omitempty"`
	OriginalImageURL string `json:"originalImageUrl"`
	ThumbnailURL     string `json:"thumbnailUrl,omitempty"`
}

func (s ItemSpec) Domain(dropId string) domain.DropItem {
	return domain.DropItem{
		DropId:           dropId,
		Name:             s.Name,
		Description:      s.Description,
		TokenId:          s.TokenId,
		OriginalImageURL: s.OriginalImageURL,
		ThumbnailURL:     s.ThumbnailURL,
		LaserFileStatus:  domain.LaserFilePending,
		Available:        true,
	}
}

// ProcessRequest is the body of POST /api/admin/drops/items/:itemId/process.
type ProcessRequest struct {
	TemplateId string          `json:"templateId"`
	Options    imaging.Options `json:"options"`
}

type ProcessResponse struct {
	Item           Item             `json:"item"`
	LaserFileURL   string           `json:"laserFileUrl"`
	SVG            string           `json:"svg"`
	Metrics        imaging.Metrics  `json:"metrics"`
	Settings       imaging.Settings `json:"recommendedSettings"`
	ProcessingTime string           `json:"processingTime"`
}

func ComposeProcess(item domain.DropItem, r imaging.Result) ProcessResponse {
	return ProcessResponse{
		Item:           ComposeItem(item),
		LaserFileURL:   r.LaserFileURL,
		SVG:            r.SVG,
		Metrics:        r.Metrics,
		Settings:       r.Settings,
		ProcessingTime: r.Took.String(),
	}
}

type BatchItem struct {
	ItemId       string `json:"itemId"`
	Status       string `json:"status"`
	LaserFileURL string `json:"laserFileUrl,omitempty"`
	Error        string `json:"error,omitempty"`
}

type BatchSummary struct {
	Total      int `json:"total"`
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
}

// BatchResponse is the body answered by POST /api/admin/drops/:dropId/process.
type BatchResponse struct {
	Message string       `json:"message"`
	Results []BatchItem  `json:"results"`
	Summary BatchSummary `json:"summary"`
}

func ComposeBatch(b imaging.Batch) BatchResponse {
	results := make([]BatchItem, 0, len(b.Outcomes))
	for _, o := range b.Outcomes {
		item := BatchItem{
			ItemId:       o.Item.Id,
			Status:       string(o.Item.LaserFileStatus),
			LaserFileURL: o.Item.LaserFileURL,
		}
		if o.Err != nil {
			item.Error = o.Err.Error()
		}
		results = append(results, item)
	}

	message := fmt.Sprintf("processed %d items", len(results))
	if len(results) == 0 {
		message = "no pending items to process"
	}
	return BatchResponse{
		Message: message,
		Results: results,
		Summary: BatchSummary{Total: len(results), Successful: b.Successful, Failed: b.Failed},
	}
}

type Template struct {
	Id             string `json:"id"`
	Name           string `json:"name"`
	Material       string `json:"material"`
	Dimensions     string `json:"dimensions,omitempty"`
	TemplateSVG    string `json:"templateSvg"`
	ImageMaxWidth  int    `json:"imageMaxWidth,omitempty"`
	ImageMaxHeight int    `json:"imageMaxHeight,omitempty"`
}

func ComposeTemplate(t domain.DesignTemplate) Template {
	return Template(t)
}

func (t Template) Domain() domain.DesignTemplate {
	return domain.DesignTemplate(t)
}
