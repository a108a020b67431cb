package mocks

import (
	"context"

	"github.com/cozyartz/etchNFT/pkg/domain"
	dbmock "github.com/cozyartz/etchNFT/pkg/domain/internal/db/mock"
	kdb "github.com/cozyartz/etchNFT/pkg/domain/upload/db"
)

type UploadInterface struct {
	Impl struct {
		Create    func(context.Context, domain.Upload) (domain.Upload, error)
		Get       func(context.Context, string) (domain.Upload, error)
		Find      func(context.Context, string) ([]domain.Upload, error)
		SetStatus func(ctx context.Context, id string, status domain.UploadStatus) error
	}
	Calls struct {
		Create    dbmock.CallLog[domain.Upload]
		Get       dbmock.CallLog[string]
		Find      dbmock.CallLog[string]
		SetStatus dbmock.CallLog[struct {
			Id     string
			Status domain.UploadStatus
		}]
	}
}

var _ kdb.UploadInterface = &UploadInterface{}

func NewUploadInterface() *UploadInterface {
	return &UploadInterface{}
}

func (m *UploadInterface) Create(ctx context.Context, u domain.Upload) (domain.Upload, error) {
	m.Calls.Create = append(m.Calls.Create, u)
	if m.Impl.Create == nil {
		panic("it should not be called")
	}
	return m.Impl.Create(ctx, u)
}

func (m *UploadInterface) Get(ctx context.Context, id string) (domain.Upload, error) {
	m.Calls.Get = append(m.Calls.Get, id)
	if m.Impl.Get == nil {
		panic("it should not be called")
	}
	return m.Impl.Get(ctx, id)
}

func (m *UploadInterface) Find(ctx context.Context, email string) ([]domain.Upload, error) {
	m.Calls.Find = append(m.Calls.Find, email)
	if m.Impl.Find == nil {
		panic("it should not be called")
	}
	return m.Impl.Find(ctx, email)
}

func (m *UploadInterface) SetStatus(ctx context.Context, id string, status domain.UploadStatus) error {
	m.Calls.SetStatus = append(m.Calls.SetStatus, struct {
		Id     string
		Status domain.UploadStatus
	}{Id: id, Status: status})
	if m.Impl.SetStatus == nil {
		panic("it should not be called")
	}
	return m.Impl.SetStatus(ctx, id, status)
}
