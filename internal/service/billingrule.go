package service

import (
	"context"
	"time"

	"github.com/warebill/warebill/internal/api/dto"
	"github.com/warebill/warebill/internal/domain/billingrule"
	"github.com/warebill/warebill/internal/types"
)

type BillingRuleService interface {
	CreateBillingRule(ctx context.Context, req dto.CreateBillingRuleRequest) (*dto.BillingRuleResponse, error)
	GetBillingRule(ctx context.Context, id string) (*dto.BillingRuleResponse, error)
	ListBillingRules(ctx context.Context, filter *types.BillingRuleFilter) (*dto.ListBillingRulesResponse, error)
	UpdateBillingRule(ctx context.Context, id string, req dto.UpdateBillingRuleRequest) (*dto.BillingRuleResponse, error)
	DeleteBillingRule(ctx context.Context, id string) error

	// ListEffectiveRules returns the project's active rules whose effective
	// window contains asOf, ordered by priority descending then creation
	// sequence ascending. This ordering is the record-claiming order.
	ListEffectiveRules(ctx context.Context, projectID string, asOf time.Time) ([]*billingrule.BillingRule, error)
}

type billingRuleService struct {
	ServiceParams
}

func NewBillingRuleService(params ServiceParams) BillingRuleService {
	return &billingRuleService{
		ServiceParams: params,
	}
}

func (s *billingRuleService) CreateBillingRule(ctx context.Context, req dto.CreateBillingRuleRequest) (*dto.BillingRuleResponse, error) {
	// rules must belong to an existing project
	if _, err := s.ProjectRepo.Get(ctx, req.ProjectID); err != nil {
		return nil, err
	}

	rule := req.ToBillingRule(ctx)
	if err := rule.Validate(); err != nil {
		return nil, err
	}

	if err := s.BillingRuleRepo.Create(ctx, rule); err != nil {
		return nil, err
	}

	s.Logger.Infow("created billing rule",
		"rule_id", rule.ID,
		"project_id", rule.ProjectID,
		"rule_type", rule.RuleType,
		"priority", rule.Priority)

	return &dto.BillingRuleResponse{BillingRule: rule}, nil
}

func (s *billingRuleService) GetBillingRule(ctx context.Context, id string) (*dto.BillingRuleResponse, error) {
	rule, err := s.BillingRuleRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &dto.BillingRuleResponse{BillingRule: rule}, nil
}

func (s *billingRuleService) ListBillingRules(ctx context.Context, filter *types.BillingRuleFilter) (*dto.ListBillingRulesResponse, error) {
	if filter == nil {
		filter = types.NewBillingRuleFilter()
	}
	if filter.QueryFilter == nil {
		filter.QueryFilter = types.NewDefaultQueryFilter()
	}
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	rules, err := s.BillingRuleRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	total, err := s.BillingRuleRepo.Count(ctx, filter)
	if err != nil {
		return nil, err
	}

	items := make([]*dto.BillingRuleResponse, 0, len(rules))
	for _, r := range rules {
		items = append(items, &dto.BillingRuleResponse{BillingRule: r})
	}

	return &dto.ListBillingRulesResponse{
		Items:      items,
		Pagination: types.NewPaginationResponse(total, filter.GetLimit(), filter.GetOffset()),
	}, nil
}

func (s *billingRuleService) UpdateBillingRule(ctx context.Context, id string, req dto.UpdateBillingRuleRequest) (*dto.BillingRuleResponse, error) {
	rule, err := s.BillingRuleRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		rule.Name = *req.Name
	}
	if req.GroupingKey != nil {
		rule.GroupingKey = *req.GroupingKey
	}
	if req.Priority != nil {
		rule.Priority = *req.Priority
	}
	if req.IsActive != nil {
		rule.IsActive = *req.IsActive
	}
	if req.EffectiveFrom != nil {
		rule.EffectiveFrom = req.EffectiveFrom
	}
	if req.EffectiveTo != nil {
		rule.EffectiveTo = req.EffectiveTo
	}
	if len(req.Config) > 0 {
		rule.ConfigPayload = req.Config
	}

	// re-validates the payload against the immutable rule type
	if err := rule.Validate(); err != nil {
		return nil, err
	}

	rule.Touch(ctx)
	if err := s.BillingRuleRepo.Update(ctx, rule); err != nil {
		return nil, err
	}

	return &dto.BillingRuleResponse{BillingRule: rule}, nil
}

func (s *billingRuleService) DeleteBillingRule(ctx context.Context, id string) error {
	if _, err := s.BillingRuleRepo.Get(ctx, id); err != nil {
		return err
	}
	return s.BillingRuleRepo.Delete(ctx, id)
}

func (s *billingRuleService) ListEffectiveRules(ctx context.Context, projectID string, asOf time.Time) ([]*billingrule.BillingRule, error) {
	return s.BillingRuleRepo.ListEffective(ctx, projectID, asOf)
}
