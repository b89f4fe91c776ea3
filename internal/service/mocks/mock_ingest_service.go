package mocks

import (
	"context"

	"pdfstore/internal/model"
	"pdfstore/internal/service"

	"github.com/stretchr/testify/mock"
)

type MockIngestService struct {
	mock.Mock
}

func (m *MockIngestService) Ingest(ctx context.Context, files []service.UploadFile, meta *model.Metadata) ([]service.Outcome, error) {
	args := m.Called(ctx, files, meta)
	if f, ok := args.Get(0).(func(context.Context, []service.UploadFile, *model.Metadata) []service.Outcome); ok {
		return f(ctx, files, meta), args.Error(1)
	}
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]service.Outcome), args.Error(1)
}
