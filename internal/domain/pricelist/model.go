package pricelist

import (
	"github.com/shopspring/decimal"
	ierr "github.com/warebill/warebill/internal/errors"
	"github.com/warebill/warebill/internal/types"
)

// Entry is one price-list row, keyed by (project, code). A rule configured
// with price source price_list names the entry code and the value field it
// reads, e.g. "unit_price".
type Entry struct {
	ID        string                     `db:"id" json:"id"`
	ProjectID string                     `db:"project_id" json:"project_id"`
	Code      string                     `db:"code" json:"code"`
	Name      string                     `db:"name" json:"name"`
	Currency  string                     `db:"currency" json:"currency"`
	Values    map[string]decimal.Decimal `db:"values" json:"values"`
	types.BaseModel
}

// Value looks up a named price field on the entry
func (e *Entry) Value(field string) (decimal.Decimal, bool) {
	v, ok := e.Values[field]
	return v, ok
}

func (e *Entry) Validate() error {
	if e.ProjectID == "" {
		return ierr.NewError("project_id is required").
			WithHint("Price list entries must belong to a project").
			Mark(ierr.ErrValidation)
	}
	if e.Code == "" {
		return ierr.NewError("entry code is required").
			WithHint("Please provide a price list entry code").
			Mark(ierr.ErrValidation)
	}
	if len(e.Values) == 0 {
		return ierr.NewError("at least one price value is required").
			WithHint("Please provide price values").
			Mark(ierr.ErrValidation)
	}
	return nil
}
