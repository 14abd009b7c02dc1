package testutil

import (
	"context"

	"github.com/warebill/warebill/internal/domain/masterrule"
	ierr "github.com/warebill/warebill/internal/errors"
	"github.com/warebill/warebill/internal/types"
)

// InMemoryMasterRuleStore implements masterrule.Repository
type InMemoryMasterRuleStore struct {
	*InMemoryStore[*masterrule.MasterBillingRule]
}

func NewInMemoryMasterRuleStore() *InMemoryMasterRuleStore {
	return &InMemoryMasterRuleStore{
		InMemoryStore: NewInMemoryStore[*masterrule.MasterBillingRule](),
	}
}

func (s *InMemoryMasterRuleStore) Create(ctx context.Context, rule *masterrule.MasterBillingRule) error {
	if rule == nil {
		return ierr.NewError("master rule cannot be nil").
			Mark(ierr.ErrValidation)
	}
	if rule.IsActive {
		if err := s.deactivateOthers(ctx, rule.ProjectID, rule.ID); err != nil {
			return err
		}
	}
	return s.InMemoryStore.Create(ctx, rule.ID, rule)
}

func (s *InMemoryMasterRuleStore) Get(ctx context.Context, id string) (*masterrule.MasterBillingRule, error) {
	rule, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if rule.Status == types.StatusDeleted {
		return nil, ierr.NewError("master billing rule not found").
			WithHintf("Master billing rule with ID %s was not found", id).
			Mark(ierr.ErrNotFound)
	}
	return rule, nil
}

func (s *InMemoryMasterRuleStore) GetActiveByProject(ctx context.Context, projectID string) (*masterrule.MasterBillingRule, error) {
	rules, err := s.ListByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	for _, rule := range rules {
		if rule.IsActive {
			return rule, nil
		}
	}
	return nil, ierr.NewError("no active master billing rule").
		WithHintf("Project %s has no active master billing rule", projectID).
		Mark(ierr.ErrNotFound)
}

func (s *InMemoryMasterRuleStore) Update(ctx context.Context, rule *masterrule.MasterBillingRule) error {
	if rule == nil {
		return ierr.NewError("master rule cannot be nil").
			Mark(ierr.ErrValidation)
	}
	if rule.IsActive {
		if err := s.deactivateOthers(ctx, rule.ProjectID, rule.ID); err != nil {
			return err
		}
	}
	return s.InMemoryStore.Update(ctx, rule.ID, rule)
}

func (s *InMemoryMasterRuleStore) Delete(ctx context.Context, id string) error {
	rule, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	rule.Status = types.StatusDeleted
	return s.InMemoryStore.Update(ctx, id, rule)
}

func (s *InMemoryMasterRuleStore) ListByProject(ctx context.Context, projectID string) ([]*masterrule.MasterBillingRule, error) {
	return s.InMemoryStore.List(ctx, nil, func(ctx context.Context, r *masterrule.MasterBillingRule, _ interface{}) bool {
		return r != nil && r.Status == types.StatusPublished && r.ProjectID == projectID
	}, func(i, j *masterrule.MasterBillingRule) bool {
		return i.CreatedAt.After(j.CreatedAt)
	})
}

func (s *InMemoryMasterRuleStore) deactivateOthers(ctx context.Context, projectID, exceptID string) error {
	rules, err := s.ListByProject(ctx, projectID)
	if err != nil {
		return err
	}
	for _, other := range rules {
		if other.ID == exceptID || !other.IsActive {
			continue
		}
		other.IsActive = false
		if err := s.InMemoryStore.Update(ctx, other.ID, other); err != nil {
			return err
		}
	}
	return nil
}
