package testutil

import (
	"context"

	"github.com/warebill/warebill/internal/domain/pricelist"
	ierr "github.com/warebill/warebill/internal/errors"
	"github.com/warebill/warebill/internal/types"
)

// InMemoryPriceListStore implements pricelist.Repository
type InMemoryPriceListStore struct {
	*InMemoryStore[*pricelist.Entry]
}

func NewInMemoryPriceListStore() *InMemoryPriceListStore {
	return &InMemoryPriceListStore{
		InMemoryStore: NewInMemoryStore[*pricelist.Entry](),
	}
}

func (s *InMemoryPriceListStore) Create(ctx context.Context, entry *pricelist.Entry) error {
	if entry == nil {
		return ierr.NewError("entry cannot be nil").
			Mark(ierr.ErrValidation)
	}
	existing, err := s.ListByProject(ctx, entry.ProjectID)
	if err != nil {
		return err
	}
	for _, e := range existing {
		if e.Code == entry.Code {
			return ierr.NewError("price list code already exists").
				WithHintf("A price list with code %s already exists", entry.Code).
				Mark(ierr.ErrAlreadyExists)
		}
	}
	return s.InMemoryStore.Create(ctx, entry.ID, entry)
}

func (s *InMemoryPriceListStore) GetByCode(ctx context.Context, projectID, code string) (*pricelist.Entry, error) {
	entries, err := s.ListByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if e.Code == code {
			return e, nil
		}
	}
	return nil, ierr.NewError("price list not found").
		WithHintf("Price list with code %s was not found", code).
		Mark(ierr.ErrNotFound)
}

func (s *InMemoryPriceListStore) ListByProject(ctx context.Context, projectID string) ([]*pricelist.Entry, error) {
	return s.InMemoryStore.List(ctx, nil, func(ctx context.Context, e *pricelist.Entry, _ interface{}) bool {
		return e != nil && e.Status == types.StatusPublished && e.ProjectID == projectID
	}, func(i, j *pricelist.Entry) bool {
		return i.Code < j.Code
	})
}
