package dto

import (
	"context"

	"github.com/warebill/warebill/internal/domain/masterrule"
	"github.com/warebill/warebill/internal/types"
)

type CreateMasterRuleRequest struct {
	ProjectID string                    `json:"project_id" binding:"required"`
	Name      string                    `json:"name" binding:"required"`
	IsActive  *bool                     `json:"is_active,omitempty"`
	Items     []masterrule.LineTemplate `json:"items" binding:"required"`
}

func (r *CreateMasterRuleRequest) ToMasterRule(ctx context.Context) *masterrule.MasterBillingRule {
	isActive := true
	if r.IsActive != nil {
		isActive = *r.IsActive
	}
	return &masterrule.MasterBillingRule{
		ID:        types.GenerateUUIDWithPrefix(types.UUID_PREFIX_MASTER_RULE),
		ProjectID: r.ProjectID,
		Name:      r.Name,
		IsActive:  isActive,
		Items:     r.Items,
		BaseModel: types.GetDefaultBaseModel(ctx),
	}
}

type UpdateMasterRuleRequest struct {
	Name     *string                   `json:"name,omitempty"`
	IsActive *bool                     `json:"is_active,omitempty"`
	Items    []masterrule.LineTemplate `json:"items,omitempty"`
}

type MasterRuleResponse struct {
	*masterrule.MasterBillingRule
}

type ListMasterRulesResponse = types.ListResponse[*MasterRuleResponse]
