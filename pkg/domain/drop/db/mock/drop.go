package mocks

import (
	"context"
	"time"

	"github.com/cozyartz/etchNFT/pkg/domain"
	kdb "github.com/cozyartz/etchNFT/pkg/domain/drop/db"
	dbmock "github.com/cozyartz/etchNFT/pkg/domain/internal/db/mock"
)

type DropInterface struct {
	Impl struct {
		Create         func(context.Context, domain.Drop) (domain.Drop, error)
		Update         func(context.Context, domain.Drop) (domain.Drop, error)
		Delete         func(context.Context, string) error
		Get            func(context.Context, string) (domain.Drop, error)
		GetBySlug      func(context.Context, string) (domain.Drop, []domain.DropItem, error)
		Find           func(context.Context, domain.DropFindQuery) ([]domain.Drop, error)
		CreateItem     func(context.Context, domain.DropItem) (domain.DropItem, error)
		GetItem        func(context.Context, string) (domain.DropItem, error)
		Items          func(ctx context.Context, dropId string, status domain.LaserFileStatus) ([]domain.DropItem, error)
		Reserve        func(ctx context.Context, itemId string, email string, now time.Time, ttl time.Duration) (domain.Drop, domain.DropItem, error)
		Release        func(context.Context, []string) error
		ReleaseExpired func(context.Context, time.Time) (int, error)
		SetLaserFile   func(ctx context.Context, itemId string, status domain.LaserFileStatus, url string, notes string) (domain.DropItem, error)
		CreateTemplate func(context.Context, domain.DesignTemplate) (domain.DesignTemplate, error)
		GetTemplate    func(context.Context, string) (domain.DesignTemplate, error)
		Templates      func(context.Context, string) ([]domain.DesignTemplate, error)
	}
	Calls struct {
		Create     dbmock.CallLog[domain.Drop]
		Update     dbmock.CallLog[domain.Drop]
		Delete     dbmock.CallLog[string]
		Get        dbmock.CallLog[string]
		GetBySlug  dbmock.CallLog[string]
		Find       dbmock.CallLog[domain.DropFindQuery]
		CreateItem dbmock.CallLog[domain.DropItem]
		GetItem    dbmock.CallLog[string]
		Items      dbmock.CallLog[struct {
			DropId string
			Status domain.LaserFileStatus
		}]
		Reserve dbmock.CallLog[struct {
			ItemId string
			Email  string
			Now    time.Time
			TTL    time.Duration
		}]
		Release        dbmock.CallLog[[]string]
		ReleaseExpired dbmock.CallLog[time.Time]
		SetLaserFile   dbmock.CallLog[struct {
			ItemId string
			Status domain.LaserFileStatus
			URL    string
			Notes  string
		}]
		CreateTemplate dbmock.CallLog[domain.DesignTemplate]
		GetTemplate    dbmock.CallLog[string]
		Templates      dbmock.CallLog[string]
	}
}

var _ kdb.DropInterface = &DropInterface{}

func NewDropInterface() *DropInterface {
	return &DropInterface{}
}

func (m *DropInterface) Create(ctx context.Context, d domain.Drop) (domain.Drop, error) {
	m.Calls.Create = append(m.Calls.Create, d)
	if m.Impl.Create == nil {
		panic("it should not be called")
	}
	return m.Impl.Create(ctx, d)
}

func (m *DropInterface) Update(ctx context.Context, d domain.Drop) (domain.Drop, error) {
	m.Calls.Update = append(m.Calls.Update, d)
	if m.Impl.Update == nil {
		panic("it should not be called")
	}
	return m.Impl.Update(ctx, d)
}

func (m *DropInterface) Delete(ctx context.Context, id string) error {
	m.Calls.Delete = append(m.Calls.Delete, id)
	if m.Impl.Delete == nil {
		panic("it should not be called")
	}
	return m.Impl.Delete(ctx, id)
}

func (m *DropInterface) Get(ctx context.Context, id string) (domain.Drop, error) {
	m.Calls.Get = append(m.Calls.Get, id)
	if m.Impl.Get == nil {
		panic("it should not be called")
	}
	return m.Impl.Get(ctx, id)
}

func (m *DropInterface) GetBySlug(ctx context.Context, slug string) (domain.Drop, []domain.DropItem, error) {
	m.Calls.GetBySlug = append(m.Calls.GetBySlug, slug)
	if m.Impl.GetBySlug == nil {
		panic("it should not be called")
	}
	return m.Impl.GetBySlug(ctx, slug)
}

func (m *DropInterface) Find(ctx context.Context, query domain.DropFindQuery) ([]domain.Drop, error) {
	m.Calls.Find = append(m.Calls.Find, query)
	if m.Impl.Find == nil {
		panic("it should not be called")
	}
	return m.Impl.Find(ctx, query)
}

func (m *DropInterface) CreateItem(ctx context.Context, item domain.DropItem) (domain.DropItem, error) {
	m.Calls.CreateItem = append(m.Calls.CreateItem, item)
	if m.Impl.CreateItem == nil {
		panic("it should not be called")
	}
	return m.Impl.CreateItem(ctx, item)
}

func (m *DropInterface) GetItem(ctx context.Context, id string) (domain.DropItem, error) {
	m.Calls.GetItem = append(m.Calls.GetItem, id)
	if m.Impl.GetItem == nil {
		panic("it should not be called")
	}
	return m.Impl.GetItem(ctx, id)
}

func (m *DropInterface) Items(ctx context.Context, dropId string, status domain.LaserFileStatus) ([]domain.DropItem, error) {
	m.Calls.Items = append(m.Calls.Items, struct {
		DropId string
		Status domain.LaserFileStatus
	}{DropId: dropId, Status: status})
	if m.Impl.Items == nil {
		panic("it should not be called")
	}
	return m.Impl.Items(ctx, dropId, status)
}

func (m *DropInterface) Reserve(ctx context.Context, itemId string, email string, now time.Time, ttl time.Duration) (domain.Drop, domain.DropItem, error) {
	m.Calls.Reserve = append(m.Calls.Reserve, struct {
		ItemId string
		Email  string
		Now    time.Time
		TTL    time.Duration
	}{ItemId: itemId, Email: email, Now: now, TTL: ttl})
	if m.Impl.Reserve == nil {
		panic("it should not be called")
	}
	return m.Impl.Reserve(ctx, itemId, email, now, ttl)
}

func (m *DropInterface) Release(ctx context.Context, itemIds []string) error {
	m.Calls.Release = append(m.Calls.Release, itemIds)
	if m.Impl.Release == nil {
		panic("it should not be called")
	}
	return m.Impl.Release(ctx, itemIds)
}

func (m *DropInterface) ReleaseExpired(ctx context.Context, now time.Time) (int, error) {
	m.Calls.ReleaseExpired = append(m.Calls.ReleaseExpired, now)
	if m.Impl.ReleaseExpired == nil {
		panic("it should not be called")
	}
	return m.Impl.ReleaseExpired(ctx, now)
}

func (m *DropInterface) SetLaserFile(ctx context.Context, itemId string, status domain.LaserFileStatus, url string, notes string) (domain.DropItem, error) {
	m.Calls.SetLaserFile = append(m.Calls.SetLaserFile, struct {
		ItemId string
		Status domain.LaserFileStatus
		URL    string
		Notes  string
	}{ItemId: itemId, Status: status, URL: url, Notes: notes})
	if m.Impl.SetLaserFile == nil {
		panic("it should not be called")
	}
	return m.Impl.SetLaserFile(ctx, itemId, status, url, notes)
}

func (m *DropInterface) CreateTemplate(ctx context.Context, t domain.DesignTemplate) (domain.DesignTemplate, error) {
	m.Calls.CreateTemplate = append(m.Calls.CreateTemplate, t)
	if m.Impl.CreateTemplate == nil {
		panic("it should not be called")
	}
	return m.Impl.CreateTemplate(ctx, t)
}

func (m *DropInterface) GetTemplate(ctx context.Context, id string) (domain.DesignTemplate, error) {
	m.Calls.GetTemplate = append(m.Calls.GetTemplate, id)
	if m.Impl.GetTemplate == nil {
		panic("it should not be called")
	}
	return m.Impl.GetTemplate(ctx, id)
}

func (m *DropInterface) Templates(ctx context.Context, material string) ([]domain.DesignTemplate, error) {
	m.Calls.Templates = append(m.Calls.Templates, material)
	if m.Impl.Templates == nil {
		panic("it should not be called")
	}
	return m.Impl.Templates(ctx, material)
}
