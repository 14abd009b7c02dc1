package service

import (
	"context"

	"github.com/warebill/warebill/internal/api/dto"
)

type MasterRuleService interface {
	CreateMasterRule(ctx context.Context, req dto.CreateMasterRuleRequest) (*dto.MasterRuleResponse, error)
	GetMasterRule(ctx context.Context, id string) (*dto.MasterRuleResponse, error)
	ListMasterRules(ctx context.Context, projectID string) (*dto.ListMasterRulesResponse, error)
	UpdateMasterRule(ctx context.Context, id string, req dto.UpdateMasterRuleRequest) (*dto.MasterRuleResponse, error)
	DeleteMasterRule(ctx context.Context, id string) error
}

type masterRuleService struct {
	ServiceParams
}

func NewMasterRuleService(params ServiceParams) MasterRuleService {
	return &masterRuleService{
		ServiceParams: params,
	}
}

func (s *masterRuleService) CreateMasterRule(ctx context.Context, req dto.CreateMasterRuleRequest) (*dto.MasterRuleResponse, error) {
	if _, err := s.ProjectRepo.Get(ctx, req.ProjectID); err != nil {
		return nil, err
	}

	rule := req.ToMasterRule(ctx)
	if err := rule.Validate(); err != nil {
		return nil, err
	}

	// activating this rule deactivates any other active instance; the
	// repository enforces the single-active invariant atomically
	if err := s.MasterRuleRepo.Create(ctx, rule); err != nil {
		return nil, err
	}

	s.Logger.Infow("created master billing rule",
		"master_rule_id", rule.ID,
		"project_id", rule.ProjectID,
		"items", len(rule.Items),
		"is_active", rule.IsActive)

	return &dto.MasterRuleResponse{MasterBillingRule: rule}, nil
}

func (s *masterRuleService) GetMasterRule(ctx context.Context, id string) (*dto.MasterRuleResponse, error) {
	rule, err := s.MasterRuleRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &dto.MasterRuleResponse{MasterBillingRule: rule}, nil
}

func (s *masterRuleService) ListMasterRules(ctx context.Context, projectID string) (*dto.ListMasterRulesResponse, error) {
	rules, err := s.MasterRuleRepo.ListByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	items := make([]*dto.MasterRuleResponse, 0, len(rules))
	for _, r := range rules {
		items = append(items, &dto.MasterRuleResponse{MasterBillingRule: r})
	}

	return &dto.ListMasterRulesResponse{
		Items:      items,
		Pagination: newFullListPagination(len(items)),
	}, nil
}

func (s *masterRuleService) UpdateMasterRule(ctx context.Context, id string, req dto.UpdateMasterRuleRequest) (*dto.MasterRuleResponse, error) {
	rule, err := s.MasterRuleRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		rule.Name = *req.Name
	}
	if req.IsActive != nil {
		rule.IsActive = *req.IsActive
	}
	if len(req.Items) > 0 {
		rule.Items = req.Items
	}

	if err := rule.Validate(); err != nil {
		return nil, err
	}

	rule.Touch(ctx)
	if err := s.MasterRuleRepo.Update(ctx, rule); err != nil {
		return nil, err
	}

	return &dto.MasterRuleResponse{MasterBillingRule: rule}, nil
}

func (s *masterRuleService) DeleteMasterRule(ctx context.Context, id string) error {
	if _, err := s.MasterRuleRepo.Get(ctx, id); err != nil {
		return err
	}
	return s.MasterRuleRepo.Delete(ctx, id)
}
