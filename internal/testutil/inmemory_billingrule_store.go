package testutil

import (
	"context"
	"sort"
	"sync/atomic"
	"time"

	"github.com/samber/lo"
	"github.com/warebill/warebill/internal/domain/billingrule"
	ierr "github.com/warebill/warebill/internal/errors"
	"github.com/warebill/warebill/internal/types"
)

// InMemoryBillingRuleStore implements billingrule.Repository
type InMemoryBillingRuleStore struct {
	*InMemoryStore[*billingrule.BillingRule]
	seq atomic.Int64
}

func NewInMemoryBillingRuleStore() *InMemoryBillingRuleStore {
	return &InMemoryBillingRuleStore{
		InMemoryStore: NewInMemoryStore[*billingrule.BillingRule](),
	}
}

func billingRuleFilterFn(ctx context.Context, r *billingrule.BillingRule, filter interface{}) bool {
	if r == nil || r.Status == types.StatusDeleted {
		return false
	}

	f, ok := filter.(*types.BillingRuleFilter)
	if !ok || f == nil {
		return true
	}

	if f.ProjectID != "" && r.ProjectID != f.ProjectID {
		return false
	}
	if len(f.RuleTypes) > 0 && !lo.Contains(f.RuleTypes, r.RuleType) {
		return false
	}
	if f.IsActive != nil && r.IsActive != *f.IsActive {
		return false
	}
	return true
}

func billingRuleSortFn(i, j *billingrule.BillingRule) bool {
	if i.Priority != j.Priority {
		return i.Priority > j.Priority
	}
	return i.Sequence < j.Sequence
}

func (s *InMemoryBillingRuleStore) Create(ctx context.Context, rule *billingrule.BillingRule) error {
	if rule == nil {
		return ierr.NewError("rule cannot be nil").
			Mark(ierr.ErrValidation)
	}
	rule.Sequence = s.seq.Add(1)
	return s.InMemoryStore.Create(ctx, rule.ID, rule)
}

func (s *InMemoryBillingRuleStore) Get(ctx context.Context, id string) (*billingrule.BillingRule, error) {
	rule, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if rule.Status == types.StatusDeleted {
		return nil, ierr.NewError("billing rule not found").
			WithHintf("Billing rule with ID %s was not found", id).
			Mark(ierr.ErrNotFound)
	}
	return rule, nil
}

func (s *InMemoryBillingRuleStore) Update(ctx context.Context, rule *billingrule.BillingRule) error {
	if rule == nil {
		return ierr.NewError("rule cannot be nil").
			Mark(ierr.ErrValidation)
	}
	return s.InMemoryStore.Update(ctx, rule.ID, rule)
}

func (s *InMemoryBillingRuleStore) Delete(ctx context.Context, id string) error {
	rule, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	rule.Status = types.StatusDeleted
	return s.InMemoryStore.Update(ctx, id, rule)
}

func (s *InMemoryBillingRuleStore) List(ctx context.Context, filter *types.BillingRuleFilter) ([]*billingrule.BillingRule, error) {
	return s.InMemoryStore.List(ctx, filter, billingRuleFilterFn, billingRuleSortFn)
}

func (s *InMemoryBillingRuleStore) Count(ctx context.Context, filter *types.BillingRuleFilter) (int, error) {
	return s.InMemoryStore.Count(ctx, filter, billingRuleFilterFn)
}

func (s *InMemoryBillingRuleStore) ListEffective(ctx context.Context, projectID string, asOf time.Time) ([]*billingrule.BillingRule, error) {
	rules, err := s.InMemoryStore.List(ctx, nil, func(ctx context.Context, r *billingrule.BillingRule, _ interface{}) bool {
		if r == nil || r.Status == types.StatusDeleted || r.ProjectID != projectID {
			return false
		}
		return r.MatchesAsOf(asOf)
	}, nil)
	if err != nil {
		return nil, err
	}
	sort.Slice(rules, func(i, j int) bool {
		return billingRuleSortFn(rules[i], rules[j])
	})
	return rules, nil
}
