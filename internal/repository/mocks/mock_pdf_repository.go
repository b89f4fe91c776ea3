package mocks

import (
	"context"

	"pdfstore/internal/model"

	"github.com/stretchr/testify/mock"
)

type MockPdfRepository struct {
	mock.Mock
}

func (m *MockPdfRepository) Create(ctx context.Context, rec *model.PdfRecord) (*model.PdfRecord, error) {
	args := m.Called(ctx, rec)
	if f, ok := args.Get(0).(func(context.Context, *model.PdfRecord) *model.PdfRecord); ok {
		return f(ctx, rec), args.Error(1)
	}
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PdfRecord), args.Error(1)
}
