package types

import (
	"github.com/samber/lo"
	ierr "github.com/warebill/warebill/internal/errors"
)

// RuleType is the billing strategy of a rule. Each type maps to exactly one
// config payload shape, decoded exhaustively in the billingrule domain.
type RuleType string

const (
	// RuleTypeEA bills per delivered piece (each)
	RuleTypeEA RuleType = "EA"
	// RuleTypePallet bills per distinct pallet handled
	RuleTypePallet RuleType = "PALLET"
	// RuleTypeLabor bills labor hours
	RuleTypeLabor RuleType = "LABOR"
	// RuleTypeFixed emits flat-fee lines from the project's master billing rule
	RuleTypeFixed RuleType = "FIXED"
	// RuleTypeMixed combines master fixed lines with embedded variable components
	RuleTypeMixed RuleType = "MIXED"
	// RuleTypeVolume bills by shipped volume
	RuleTypeVolume RuleType = "VOLUME"
	// RuleTypeContainer bills per distinct container handled
	RuleTypeContainer RuleType = "CONTAINER"
)

func (t RuleType) String() string {
	return string(t)
}

// IsVariable reports whether the rule type computes lines from activity data
func (t RuleType) IsVariable() bool {
	switch t {
	case RuleTypeEA, RuleTypePallet, RuleTypeLabor, RuleTypeVolume, RuleTypeContainer:
		return true
	}
	return false
}

func (t RuleType) Validate() error {
	allowed := []RuleType{
		RuleTypeEA,
		RuleTypePallet,
		RuleTypeLabor,
		RuleTypeFixed,
		RuleTypeMixed,
		RuleTypeVolume,
		RuleTypeContainer,
	}
	if !lo.Contains(allowed, t) {
		return ierr.NewError("invalid rule type").
			WithHint("Please provide a valid rule type").
			WithReportableDetails(map[string]any{
				"allowed": allowed,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// PriceSource is the origin of a rule's unit price
type PriceSource string

const (
	PriceSourceFixedPrice    PriceSource = "fixed_price"
	PriceSourcePriceList     PriceSource = "price_list"
	PriceSourceLaborRate     PriceSource = "labor_rate"
	PriceSourcePalletRate    PriceSource = "pallet_rate"
	PriceSourceContractRate  PriceSource = "contract_rate"
	PriceSourceCompositeRate PriceSource = "composite_rate"
)

func (s PriceSource) String() string {
	return string(s)
}

// IsConstant reports whether the source resolves to the rule's configured constant
func (s PriceSource) IsConstant() bool {
	switch s {
	case PriceSourceFixedPrice, PriceSourcePalletRate, PriceSourceContractRate:
		return true
	}
	return false
}

func (s PriceSource) Validate() error {
	allowed := []PriceSource{
		PriceSourceFixedPrice,
		PriceSourcePriceList,
		PriceSourceLaborRate,
		PriceSourcePalletRate,
		PriceSourceContractRate,
		PriceSourceCompositeRate,
	}
	if !lo.Contains(allowed, s) {
		return ierr.NewError("invalid price source").
			WithHint("Please provide a valid price source").
			WithReportableDetails(map[string]any{
				"allowed": allowed,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// GroupingKey is the field used to partition matched records into buckets,
// each bucket becoming one invoice line
type GroupingKey string

const (
	GroupingKeyPartNo   GroupingKey = "part_no"
	GroupingKeyPalletNo GroupingKey = "pallet_no"
	GroupingKeyDate     GroupingKey = "date"
	GroupingKeyWorkType GroupingKey = "work_type"
	// GroupingKeyNone collapses everything into a single line
	GroupingKeyNone GroupingKey = "none"
	// GroupingKeyMixed delegates line-splitting to the rule's configured group-by fields
	GroupingKeyMixed GroupingKey = "mixed"
)

func (k GroupingKey) String() string {
	return string(k)
}

func (k GroupingKey) Validate() error {
	allowed := []GroupingKey{
		GroupingKeyPartNo,
		GroupingKeyPalletNo,
		GroupingKeyDate,
		GroupingKeyWorkType,
		GroupingKeyNone,
		GroupingKeyMixed,
	}
	if !lo.Contains(allowed, k) {
		return ierr.NewError("invalid grouping key").
			WithHint("Please provide a valid grouping key").
			WithReportableDetails(map[string]any{
				"allowed": allowed,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// FilterOperator is a comparison operator of a rule filter predicate
type FilterOperator string

const (
	FilterOpEqual          FilterOperator = "eq"
	FilterOpGreaterThan    FilterOperator = "gt"
	FilterOpGreaterOrEqual FilterOperator = "gte"
	FilterOpLessThan       FilterOperator = "lt"
	FilterOpLessOrEqual    FilterOperator = "lte"
	FilterOpIn             FilterOperator = "in"
	FilterOpContains       FilterOperator = "contains"
)

func (o FilterOperator) Validate() error {
	allowed := []FilterOperator{
		FilterOpEqual,
		FilterOpGreaterThan,
		FilterOpGreaterOrEqual,
		FilterOpLessThan,
		FilterOpLessOrEqual,
		FilterOpIn,
		FilterOpContains,
	}
	if !lo.Contains(allowed, o) {
		return ierr.NewError("invalid filter operator").
			WithHint("Please provide a valid filter operator").
			WithReportableDetails(map[string]any{
				"allowed": allowed,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// FilterCondition is one predicate of a rule's filter list, evaluated against
// named record fields. A field absent on a record excludes that record.
type FilterCondition struct {
	Field    string         `json:"field" validate:"required"`
	Operator FilterOperator `json:"operator" validate:"required"`
	Value    any            `json:"value,omitempty"`
	Values   []string       `json:"values,omitempty"`
}

func (c FilterCondition) Validate() error {
	if c.Field == "" {
		return ierr.NewError("filter field is required").
			WithHint("Each filter condition must name a record field").
			Mark(ierr.ErrValidation)
	}
	if err := c.Operator.Validate(); err != nil {
		return err
	}
	if c.Operator == FilterOpIn && len(c.Values) == 0 {
		return ierr.NewError("filter values are required for in operator").
			WithHint("Provide at least one value for the in operator").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// BillingRuleFilter narrows rule listings
type BillingRuleFilter struct {
	*QueryFilter
	ProjectID string    `json:"project_id,omitempty" form:"project_id"`
	RuleTypes []RuleType `json:"rule_types,omitempty" form:"rule_types"`
	IsActive  *bool     `json:"is_active,omitempty" form:"is_active"`
}

// NewBillingRuleFilter creates a filter with default pagination
func NewBillingRuleFilter() *BillingRuleFilter {
	return &BillingRuleFilter{
		QueryFilter: NewDefaultQueryFilter(),
	}
}

// NewNoLimitBillingRuleFilter creates a filter without pagination limits
func NewNoLimitBillingRuleFilter() *BillingRuleFilter {
	return &BillingRuleFilter{
		QueryFilter: NewNoLimitQueryFilter(),
	}
}

func (f *BillingRuleFilter) Validate() error {
	if f.QueryFilter != nil {
		if err := f.QueryFilter.Validate(); err != nil {
			return err
		}
	}
	for _, t := range f.RuleTypes {
		if err := t.Validate(); err != nil {
			return err
		}
	}
	return nil
}
