package dto

import (
	"context"
	"encoding/json"
	"time"

	"github.com/warebill/warebill/internal/domain/billingrule"
	"github.com/warebill/warebill/internal/types"
)

type CreateBillingRuleRequest struct {
	ProjectID     string            `json:"project_id" binding:"required"`
	Name          string            `json:"name" binding:"required"`
	RuleType      types.RuleType    `json:"rule_type" binding:"required"`
	PriceSource   types.PriceSource `json:"price_source" binding:"required"`
	GroupingKey   types.GroupingKey `json:"grouping_key"`
	Priority      int               `json:"priority"`
	IsActive      *bool             `json:"is_active,omitempty"`
	EffectiveFrom *time.Time        `json:"effective_from,omitempty"`
	EffectiveTo   *time.Time        `json:"effective_to,omitempty"`
	Config        json.RawMessage   `json:"config,omitempty"`
}

func (r *CreateBillingRuleRequest) ToBillingRule(ctx context.Context) *billingrule.BillingRule {
	groupingKey := r.GroupingKey
	if groupingKey == "" {
		groupingKey = types.GroupingKeyNone
	}
	isActive := true
	if r.IsActive != nil {
		isActive = *r.IsActive
	}
	return &billingrule.BillingRule{
		ID:            types.GenerateUUIDWithPrefix(types.UUID_PREFIX_BILLING_RULE),
		ProjectID:     r.ProjectID,
		Name:          r.Name,
		RuleType:      r.RuleType,
		PriceSource:   r.PriceSource,
		GroupingKey:   groupingKey,
		Priority:      r.Priority,
		IsActive:      isActive,
		EffectiveFrom: r.EffectiveFrom,
		EffectiveTo:   r.EffectiveTo,
		ConfigPayload: r.Config,
		BaseModel:     types.GetDefaultBaseModel(ctx),
	}
}

// UpdateBillingRuleRequest updates mutable rule fields. The rule type, price
// source and creation sequence are immutable.
type UpdateBillingRuleRequest struct {
	Name          *string            `json:"name,omitempty"`
	GroupingKey   *types.GroupingKey `json:"grouping_key,omitempty"`
	Priority      *int               `json:"priority,omitempty"`
	IsActive      *bool              `json:"is_active,omitempty"`
	EffectiveFrom *time.Time         `json:"effective_from,omitempty"`
	EffectiveTo   *time.Time         `json:"effective_to,omitempty"`
	Config        json.RawMessage    `json:"config,omitempty"`
}

type BillingRuleResponse struct {
	*billingrule.BillingRule
}

type ListBillingRulesResponse = types.ListResponse[*BillingRuleResponse]
