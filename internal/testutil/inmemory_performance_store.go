package testutil

import (
	"context"

	"github.com/samber/lo"
	"github.com/warebill/warebill/internal/domain/performance"
	ierr "github.com/warebill/warebill/internal/errors"
	"github.com/warebill/warebill/internal/types"
)

// InMemoryPerformanceStore implements performance.Repository
type InMemoryPerformanceStore struct {
	*InMemoryStore[*performance.Record]
}

func NewInMemoryPerformanceStore() *InMemoryPerformanceStore {
	return &InMemoryPerformanceStore{
		InMemoryStore: NewInMemoryStore[*performance.Record](),
	}
}

func performanceFilterFn(ctx context.Context, r *performance.Record, filter interface{}) bool {
	if r == nil {
		return false
	}

	f, ok := filter.(*types.PerformanceFilter)
	if !ok || f == nil {
		return true
	}

	if f.ProjectID != "" && r.ProjectID != f.ProjectID {
		return false
	}
	// the window is closed on both ends
	if !f.PeriodStart.IsZero() && r.Date.Before(f.PeriodStart) {
		return false
	}
	if !f.PeriodEnd.IsZero() && r.Date.After(f.PeriodEnd) {
		return false
	}
	if len(f.Kinds) > 0 && !lo.Contains(f.Kinds, r.Kind) {
		return false
	}
	return true
}

func performanceSortFn(i, j *performance.Record) bool {
	if !i.Date.Equal(j.Date) {
		return i.Date.Before(j.Date)
	}
	return i.ID < j.ID
}

func (s *InMemoryPerformanceStore) List(ctx context.Context, filter *types.PerformanceFilter) ([]*performance.Record, error) {
	return s.InMemoryStore.List(ctx, filter, performanceFilterFn, performanceSortFn)
}

func (s *InMemoryPerformanceStore) Insert(ctx context.Context, records []*performance.Record) error {
	for _, r := range records {
		if r == nil {
			return ierr.NewError("record cannot be nil").
				Mark(ierr.ErrValidation)
		}
		if err := s.InMemoryStore.Create(ctx, r.ID, r); err != nil {
			return err
		}
	}
	return nil
}
