package service

import (
	"context"

	"github.com/warebill/warebill/internal/api/dto"
	"github.com/warebill/warebill/internal/domain/performance"
	"github.com/warebill/warebill/internal/types"
)

type PerformanceService interface {
	IngestRecords(ctx context.Context, req dto.IngestPerformanceRequest) (*dto.IngestPerformanceResponse, error)
	ListRecords(ctx context.Context, filter *types.PerformanceFilter) (*dto.ListPerformanceRecordsResponse, error)

	// ListUnbilledRecords returns the project's records in the window that are
	// not yet attributed to a line of a non-cancelled invoice
	ListUnbilledRecords(ctx context.Context, filter *types.PerformanceFilter) ([]*performance.Record, error)
}

type performanceService struct {
	ServiceParams
}

func NewPerformanceService(params ServiceParams) PerformanceService {
	return &performanceService{
		ServiceParams: params,
	}
}

func (s *performanceService) IngestRecords(ctx context.Context, req dto.IngestPerformanceRequest) (*dto.IngestPerformanceResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.ProjectRepo.Get(ctx, req.ProjectID); err != nil {
		return nil, err
	}

	records := req.ToRecords()
	if err := s.PerformanceRepo.Insert(ctx, records); err != nil {
		return nil, err
	}

	s.Logger.Infow("ingested performance records",
		"project_id", req.ProjectID,
		"count", len(records))

	return &dto.IngestPerformanceResponse{Ingested: len(records)}, nil
}

func (s *performanceService) ListRecords(ctx context.Context, filter *types.PerformanceFilter) (*dto.ListPerformanceRecordsResponse, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	records, err := s.PerformanceRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	items := make([]*dto.PerformanceRecordResponse, 0, len(records))
	for _, r := range records {
		items = append(items, &dto.PerformanceRecordResponse{Record: r})
	}

	return &dto.ListPerformanceRecordsResponse{
		Items:      items,
		Pagination: newFullListPagination(len(items)),
	}, nil
}

func (s *performanceService) ListUnbilledRecords(ctx context.Context, filter *types.PerformanceFilter) ([]*performance.Record, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	records, err := s.PerformanceRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	billed, err := s.InvoiceRepo.ListBilledRecordIDs(ctx, filter.ProjectID)
	if err != nil {
		return nil, err
	}

	unbilled := make([]*performance.Record, 0, len(records))
	for _, r := range records {
		if _, ok := billed[r.ID]; ok {
			continue
		}
		unbilled = append(unbilled, r)
	}
	return unbilled, nil
}
