package types

import (
	"time"

	"github.com/samber/lo"
	ierr "github.com/warebill/warebill/internal/errors"
)

// PerformanceKind distinguishes the two operational record shapes
type PerformanceKind string

const (
	// PerformanceKindDelivery is a shipment/delivery event
	PerformanceKindDelivery PerformanceKind = "delivery"
	// PerformanceKindLabor is a labor time entry
	PerformanceKindLabor PerformanceKind = "labor"
)

func (k PerformanceKind) String() string {
	return string(k)
}

func (k PerformanceKind) Validate() error {
	allowed := []PerformanceKind{PerformanceKindDelivery, PerformanceKindLabor}
	if !lo.Contains(allowed, k) {
		return ierr.NewError("invalid performance record kind").
			WithHint("Please provide a valid record kind").
			WithReportableDetails(map[string]any{
				"allowed": allowed,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// PerformanceFilter selects operational records for a project and date window.
// The window is closed on both ends: a record dated exactly at PeriodEnd is
// included, one day later is excluded.
type PerformanceFilter struct {
	ProjectID   string
	PeriodStart time.Time
	PeriodEnd   time.Time
	Kinds       []PerformanceKind
}

func (f *PerformanceFilter) Validate() error {
	if f.ProjectID == "" {
		return ierr.NewError("project_id is required").
			WithHint("Please provide a project").
			Mark(ierr.ErrValidation)
	}
	if f.PeriodStart.IsZero() || f.PeriodEnd.IsZero() {
		return ierr.NewError("billing period is required").
			WithHint("Please provide period_start and period_end").
			Mark(ierr.ErrValidation)
	}
	if f.PeriodEnd.Before(f.PeriodStart) {
		return ierr.NewError("period_end must not be before period_start").
			WithHint("Please provide a valid billing period").
			Mark(ierr.ErrValidation)
	}
	return nil
}
