package dto

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warebill/warebill/internal/domain/performance"
	ierr "github.com/warebill/warebill/internal/errors"
	"github.com/warebill/warebill/internal/types"
	"github.com/warebill/warebill/internal/validator"
)

// PerformanceRecordRequest is one imported operational record. Dates are ISO
// day strings; the record's kind decides which field group applies.
type PerformanceRecordRequest struct {
	Kind   types.PerformanceKind `json:"kind" binding:"required"`
	Number string                `json:"number" binding:"required"`
	Date   string                `json:"date" binding:"required"`

	PartNo      string          `json:"part_no,omitempty"`
	PartName    string          `json:"part_name,omitempty"`
	Quantity    decimal.Decimal `json:"quantity"`
	Unit        string          `json:"unit,omitempty"`
	PalletNo    string          `json:"pallet_no,omitempty"`
	ContainerNo string          `json:"container_no,omitempty"`
	Volume      decimal.Decimal `json:"volume"`

	WorkType  string          `json:"work_type,omitempty"`
	Hours     decimal.Decimal `json:"hours"`
	LaborRate decimal.Decimal `json:"labor_rate"`
}

func (r *PerformanceRecordRequest) Validate() error {
	if err := r.Kind.Validate(); err != nil {
		return err
	}
	if _, err := time.Parse("2006-01-02", r.Date); err != nil {
		return ierr.WithError(err).
			WithHint("Record dates must be formatted as YYYY-MM-DD").
			Mark(ierr.ErrValidation)
	}
	switch r.Kind {
	case types.PerformanceKindDelivery:
		if r.Quantity.IsNegative() || r.Volume.IsNegative() {
			return ierr.NewError("delivery quantities must be non negative").
				WithHint("Please provide valid delivery quantities").
				Mark(ierr.ErrValidation)
		}
	case types.PerformanceKindLabor:
		if r.Hours.IsNegative() || r.LaborRate.IsNegative() {
			return ierr.NewError("labor hours and rate must be non negative").
				WithHint("Please provide valid labor values").
				Mark(ierr.ErrValidation)
		}
	}
	return nil
}

func (r *PerformanceRecordRequest) toRecord(projectID string) *performance.Record {
	date, _ := time.Parse("2006-01-02", r.Date)
	prefix := types.UUID_PREFIX_DELIVERY
	if r.Kind == types.PerformanceKindLabor {
		prefix = types.UUID_PREFIX_LABOR_ENTRY
	}
	return &performance.Record{
		ID:          types.GenerateUUIDWithPrefix(prefix),
		Kind:        r.Kind,
		Number:      r.Number,
		Date:        date,
		PartNo:      r.PartNo,
		PartName:    r.PartName,
		Quantity:    r.Quantity,
		Unit:        r.Unit,
		PalletNo:    r.PalletNo,
		ContainerNo: r.ContainerNo,
		Volume:      r.Volume,
		WorkType:    r.WorkType,
		Hours:       r.Hours,
		LaborRate:   r.LaborRate,
		ProjectID:   projectID,
	}
}

type IngestPerformanceRequest struct {
	ProjectID string                     `json:"project_id" binding:"required"`
	Records   []PerformanceRecordRequest `json:"records" binding:"required"`
}

func (r *IngestPerformanceRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	if len(r.Records) == 0 {
		return ierr.NewError("at least one record is required").
			WithHint("Please provide records to import").
			Mark(ierr.ErrValidation)
	}
	for _, rec := range r.Records {
		if err := rec.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func (r *IngestPerformanceRequest) ToRecords() []*performance.Record {
	records := make([]*performance.Record, 0, len(r.Records))
	for _, rec := range r.Records {
		records = append(records, rec.toRecord(r.ProjectID))
	}
	return records
}

type IngestPerformanceResponse struct {
	Ingested int `json:"ingested"`
}

type PerformanceRecordResponse struct {
	*performance.Record
}

type ListPerformanceRecordsResponse = types.ListResponse[*PerformanceRecordResponse]
