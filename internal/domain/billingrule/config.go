package billingrule

import (
	"encoding/json"

	"github.com/shopspring/decimal"
	ierr "github.com/warebill/warebill/internal/errors"
	"github.com/warebill/warebill/internal/types"
)

// Config is the ruleType-tagged payload of a billing rule. Each of the seven
// rule types decodes to exactly one concrete config shape, so a type switch
// over Config covers every strategy.
type Config interface {
	RuleType() types.RuleType
	Validate() error
}

// UnitConfig configures the unit-measure rule types: EA, PALLET, VOLUME and
// CONTAINER. Exactly one price input is read depending on the rule's price
// source: the constant, the price-list reference, or the formula.
type UnitConfig struct {
	ruleType types.RuleType

	// UnitPrice is the configured constant for constant price sources
	UnitPrice *decimal.Decimal `json:"unit_price,omitempty"`
	// PriceListCode keys the price-list entry; PriceField names the value
	// looked up on it
	PriceListCode string `json:"price_list_code,omitempty"`
	PriceField    string `json:"price_field,omitempty"`
	// Formula is the composite_rate source
	Formula string `json:"formula,omitempty"`

	Filters  []types.FilterCondition `json:"filters,omitempty"`
	GroupBy  []string                `json:"group_by,omitempty"`
	Metadata types.Metadata          `json:"metadata,omitempty"`
}

func (c *UnitConfig) RuleType() types.RuleType {
	return c.ruleType
}

func (c *UnitConfig) GroupByFields() []string {
	return c.GroupBy
}

func (c *UnitConfig) Validate() error {
	for _, f := range c.Filters {
		if err := f.Validate(); err != nil {
			return err
		}
	}
	if c.UnitPrice != nil && c.UnitPrice.IsNegative() {
		return ierr.NewError("unit price must be non negative").
			WithHint("Please provide a valid unit price").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// LaborConfig configures LABOR rules. The unit price may come from the labor
// record's own rate, a constant, a price list or a formula.
type LaborConfig struct {
	UnitPrice     *decimal.Decimal `json:"unit_price,omitempty"`
	PriceListCode string           `json:"price_list_code,omitempty"`
	PriceField    string           `json:"price_field,omitempty"`
	Formula       string           `json:"formula,omitempty"`

	Filters  []types.FilterCondition `json:"filters,omitempty"`
	GroupBy  []string                `json:"group_by,omitempty"`
	Metadata types.Metadata          `json:"metadata,omitempty"`
}

func (c *LaborConfig) RuleType() types.RuleType {
	return types.RuleTypeLabor
}

func (c *LaborConfig) GroupByFields() []string {
	return c.GroupBy
}

func (c *LaborConfig) Validate() error {
	for _, f := range c.Filters {
		if err := f.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// FixedConfig configures FIXED rules; line content comes from the project's
// active master billing rule
type FixedConfig struct {
	Metadata types.Metadata `json:"metadata,omitempty"`
}

func (c *FixedConfig) RuleType() types.RuleType {
	return types.RuleTypeFixed
}

func (c *FixedConfig) Validate() error {
	return nil
}

// VariableComponent is one embedded variable computation of a MIXED rule
type VariableComponent struct {
	RuleType types.RuleType    `json:"rule_type"`
	Source   types.PriceSource `json:"price_source"`
	Config   UnitConfig        `json:"config"`
}

// MixedConfig configures MIXED rules: the master fixed lines combined with the
// embedded variable components, merged fixed-first under the rule's identity
type MixedConfig struct {
	Components []VariableComponent `json:"components,omitempty"`
	Formula    string              `json:"formula,omitempty"`
	Metadata   types.Metadata      `json:"metadata,omitempty"`
}

func (c *MixedConfig) RuleType() types.RuleType {
	return types.RuleTypeMixed
}

func (c *MixedConfig) Validate() error {
	for _, comp := range c.Components {
		if !comp.RuleType.IsVariable() {
			return ierr.NewError("mixed components must be variable rule types").
				WithHintf("Component rule type %s does not compute from activity data", comp.RuleType).
				Mark(ierr.ErrValidation)
		}
		if err := comp.Source.Validate(); err != nil {
			return err
		}
		if err := comp.Config.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// DecodeConfig decodes a raw payload into the config shape of the given rule
// type. The switch is exhaustive over all seven rule types.
func DecodeConfig(ruleType types.RuleType, payload json.RawMessage) (Config, error) {
	if len(payload) == 0 {
		payload = json.RawMessage("{}")
	}

	decode := func(target any) error {
		if err := json.Unmarshal(payload, target); err != nil {
			return ierr.WithError(err).
				WithHintf("Config payload does not match rule type %s", ruleType).
				Mark(ierr.ErrValidation)
		}
		return nil
	}

	switch ruleType {
	case types.RuleTypeEA, types.RuleTypePallet, types.RuleTypeVolume, types.RuleTypeContainer:
		cfg := &UnitConfig{ruleType: ruleType}
		if err := decode(cfg); err != nil {
			return nil, err
		}
		return cfg, nil
	case types.RuleTypeLabor:
		cfg := &LaborConfig{}
		if err := decode(cfg); err != nil {
			return nil, err
		}
		return cfg, nil
	case types.RuleTypeFixed:
		cfg := &FixedConfig{}
		if err := decode(cfg); err != nil {
			return nil, err
		}
		return cfg, nil
	case types.RuleTypeMixed:
		cfg := &MixedConfig{}
		if err := decode(cfg); err != nil {
			return nil, err
		}
		return cfg, nil
	}

	return nil, ierr.NewError("invalid rule type").
		WithHintf("Rule type %s has no config shape", ruleType).
		Mark(ierr.ErrValidation)
}

// EncodeConfig marshals a config back into a raw payload
func EncodeConfig(cfg Config) (json.RawMessage, error) {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Rule config could not be encoded").
			Mark(ierr.ErrSystem)
	}
	return raw, nil
}
