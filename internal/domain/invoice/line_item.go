package invoice

import (
	"github.com/shopspring/decimal"
	ierr "github.com/warebill/warebill/internal/errors"
	"github.com/warebill/warebill/internal/types"
)

// LineItem is one computed invoice line. RuleID is nil for lines seeded from
// the master rule template. SourceRecordIDs ties the line back to the
// operational records it consumed; records on a line of a non-cancelled
// invoice are never billed again.
type LineItem struct {
	ID              string          `db:"id" json:"id"`
	InvoiceID       string          `db:"invoice_id" json:"invoice_id"`
	RuleID          *string         `db:"rule_id" json:"rule_id,omitempty"`
	RuleType        types.RuleType  `db:"rule_type" json:"rule_type"`
	DisplayName     string          `db:"display_name" json:"display_name"`
	Quantity        decimal.Decimal `db:"quantity" json:"quantity"`
	Unit            string          `db:"unit" json:"unit,omitempty"`
	UnitPrice       decimal.Decimal `db:"unit_price" json:"unit_price"`
	Amount          decimal.Decimal `db:"amount" json:"amount"`
	Sequence        int             `db:"sequence" json:"sequence"`
	SourceRecordIDs []string        `db:"source_record_ids" json:"source_record_ids,omitempty"`

	// PriceMissing marks a previewed line whose unit price could not be
	// resolved. Never set on a persisted line; generation aborts instead.
	PriceMissing bool `db:"-" json:"price_missing,omitempty"`

	types.BaseModel
}

func (i *LineItem) Validate() error {
	if i.DisplayName == "" {
		return ierr.NewError("line display name is required").
			WithHint("Each invoice line must be named").
			Mark(ierr.ErrValidation)
	}
	if i.Quantity.IsNegative() {
		return ierr.NewError("line quantity must be non negative").
			WithHint("Invoice lines cannot carry negative quantities").
			Mark(ierr.ErrValidation)
	}
	if i.Amount.IsNegative() {
		return ierr.NewError("line amount must be non negative").
			WithHint("Invoice lines cannot carry negative amounts").
			Mark(ierr.ErrValidation)
	}
	return nil
}
