package masterrule

import (
	"github.com/shopspring/decimal"
	ierr "github.com/warebill/warebill/internal/errors"
	"github.com/warebill/warebill/internal/types"
)

// LineTemplate is one ordered flat-fee line of a master billing rule. Fixed
// items bill quantity 1 with amount = unit price verbatim; non-fixed templates
// bill quantity x unit price.
type LineTemplate struct {
	IsFixed   bool            `json:"is_fixed"`
	ItemName  string          `json:"item_name"`
	Quantity  decimal.Decimal `json:"quantity"`
	Unit      string          `json:"unit"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Amount    decimal.Decimal `json:"amount"`
}

func (t LineTemplate) Validate() error {
	if t.ItemName == "" {
		return ierr.NewError("item name is required").
			WithHint("Each master rule item must be named").
			Mark(ierr.ErrValidation)
	}
	if t.UnitPrice.IsNegative() {
		return ierr.NewError("unit price must be non negative").
			WithHint("Please provide a valid unit price").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// MasterBillingRule is a project's template of flat/fixed line items used as
// the fixed-billing seed. At most one instance is active per project at a time.
type MasterBillingRule struct {
	ID        string         `db:"id" json:"id"`
	ProjectID string         `db:"project_id" json:"project_id"`
	Name      string         `db:"name" json:"name"`
	IsActive  bool           `db:"is_active" json:"is_active"`
	Items     []LineTemplate `db:"items" json:"items"`
	types.BaseModel
}

func (m *MasterBillingRule) Validate() error {
	if m.ProjectID == "" {
		return ierr.NewError("project_id is required").
			WithHint("Master billing rules must belong to a project").
			Mark(ierr.ErrValidation)
	}
	if len(m.Items) == 0 {
		return ierr.NewError("at least one line template is required").
			WithHint("Please provide master rule items").
			Mark(ierr.ErrValidation)
	}
	for _, item := range m.Items {
		if err := item.Validate(); err != nil {
			return err
		}
	}
	return nil
}
