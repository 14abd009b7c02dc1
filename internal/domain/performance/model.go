package performance

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warebill/warebill/internal/types"
)

// Record is an immutable operational event eligible for billing: a delivery
// event or a labor time entry. The engine never mutates records; it only reads
// them and marks consumption through invoice lines.
type Record struct {
	ID     string                `db:"id" json:"id"`
	Kind   types.PerformanceKind `db:"kind" json:"kind"`
	Number string                `db:"number" json:"number"`
	Date   time.Time             `db:"date" json:"date"`

	// delivery fields
	PartNo      string          `db:"part_no" json:"part_no,omitempty"`
	PartName    string          `db:"part_name" json:"part_name,omitempty"`
	Quantity    decimal.Decimal `db:"quantity" json:"quantity"`
	Unit        string          `db:"unit" json:"unit,omitempty"`
	PalletNo    string          `db:"pallet_no" json:"pallet_no,omitempty"`
	ContainerNo string          `db:"container_no" json:"container_no,omitempty"`
	Volume      decimal.Decimal `db:"volume" json:"volume"`

	// labor fields
	WorkType  string          `db:"work_type" json:"work_type,omitempty"`
	Hours     decimal.Decimal `db:"hours" json:"hours"`
	LaborRate decimal.Decimal `db:"labor_rate" json:"labor_rate"`

	ProjectID string `db:"project_id" json:"project_id"`
}

// FieldValue resolves a named field for filter and grouping evaluation.
// Dates resolve to their ISO day string so grouping keys stay stable and
// comparisons order correctly. A false return means the field does not exist
// on this record shape; callers exclude the record rather than erroring.
func (r *Record) FieldValue(name string) (any, bool) {
	switch name {
	case "number":
		return r.Number, true
	case "date":
		return r.Date.Format("2006-01-02"), true
	case "kind":
		return r.Kind.String(), true
	}

	switch r.Kind {
	case types.PerformanceKindDelivery:
		switch name {
		case "part_no":
			return r.PartNo, true
		case "part_name":
			return r.PartName, true
		case "quantity":
			return r.Quantity, true
		case "unit":
			return r.Unit, true
		case "pallet_no":
			if r.PalletNo == "" {
				return nil, false
			}
			return r.PalletNo, true
		case "container_no":
			if r.ContainerNo == "" {
				return nil, false
			}
			return r.ContainerNo, true
		case "volume":
			return r.Volume, true
		}
	case types.PerformanceKindLabor:
		switch name {
		case "work_type":
			return r.WorkType, true
		case "hours":
			return r.Hours, true
		case "labor_rate":
			return r.LaborRate, true
		}
	}

	return nil, false
}
