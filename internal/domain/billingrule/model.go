package billingrule

import (
	"encoding/json"
	"time"

	ierr "github.com/warebill/warebill/internal/errors"
	"github.com/warebill/warebill/internal/types"
)

// BillingRule is a configured policy mapping operational activity to priceable
// invoice lines. Among rules matching the same record and window, at most one
// non-MIXED rule claims it: the highest priority, ties broken by the lower
// creation sequence.
type BillingRule struct {
	ID          string            `db:"id" json:"id"`
	ProjectID   string            `db:"project_id" json:"project_id"`
	Name        string            `db:"name" json:"name"`
	RuleType    types.RuleType    `db:"rule_type" json:"rule_type"`
	PriceSource types.PriceSource `db:"price_source" json:"price_source"`
	GroupingKey types.GroupingKey `db:"grouping_key" json:"grouping_key"`
	Priority    int               `db:"priority" json:"priority"`
	// Sequence is an immutable creation-sequence number assigned by the
	// repository; it is the priority tie-breaker, never storage order.
	Sequence      int64           `db:"sequence" json:"sequence"`
	IsActive      bool            `db:"is_active" json:"is_active"`
	EffectiveFrom *time.Time      `db:"effective_from" json:"effective_from,omitempty"`
	EffectiveTo   *time.Time      `db:"effective_to" json:"effective_to,omitempty"`
	ConfigPayload json.RawMessage `db:"config" json:"config,omitempty"`
	types.BaseModel

	// decoded lazily from ConfigPayload
	config Config
}

// Config returns the decoded ruleType-tagged config payload
func (r *BillingRule) Config() (Config, error) {
	if r.config == nil {
		cfg, err := DecodeConfig(r.RuleType, r.ConfigPayload)
		if err != nil {
			return nil, err
		}
		r.config = cfg
	}
	return r.config, nil
}

// MatchesAsOf reports whether the rule is active with an effective window
// containing asOf; nil bounds are open
func (r *BillingRule) MatchesAsOf(asOf time.Time) bool {
	if !r.IsActive {
		return false
	}
	if r.EffectiveFrom != nil && asOf.Before(*r.EffectiveFrom) {
		return false
	}
	if r.EffectiveTo != nil && asOf.After(*r.EffectiveTo) {
		return false
	}
	return true
}

func (r *BillingRule) Validate() error {
	if r.ProjectID == "" {
		return ierr.NewError("project_id is required").
			WithHint("Billing rules must belong to a project").
			Mark(ierr.ErrValidation)
	}
	if r.Name == "" {
		return ierr.NewError("rule name is required").
			WithHint("Please provide a rule name").
			Mark(ierr.ErrValidation)
	}
	if err := r.RuleType.Validate(); err != nil {
		return err
	}
	if err := r.PriceSource.Validate(); err != nil {
		return err
	}
	if err := r.GroupingKey.Validate(); err != nil {
		return err
	}
	if r.EffectiveFrom != nil && r.EffectiveTo != nil && r.EffectiveTo.Before(*r.EffectiveFrom) {
		return ierr.NewError("effective_to must not be before effective_from").
			WithHint("Please provide a valid effective window").
			Mark(ierr.ErrValidation)
	}

	cfg, err := r.Config()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	// grouping by the rule's own group-by fields only makes sense when
	// such fields exist
	if r.GroupingKey == types.GroupingKeyMixed {
		if g, ok := cfg.(groupable); !ok || len(g.GroupByFields()) == 0 {
			return ierr.NewError("grouping key mixed requires group_by fields").
				WithHint("Configure group_by fields for the mixed grouping key").
				Mark(ierr.ErrValidation)
		}
	}
	return nil
}

type groupable interface {
	GroupByFields() []string
}
