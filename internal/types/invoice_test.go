package types

import (
	"testing"
)

func TestInvoiceStatusTransitions(t *testing.T) {
	tests := []struct {
		from InvoiceStatus
		to   InvoiceStatus
		want bool
	}{
		{InvoiceStatusDraft, InvoiceStatusApproved, true},
		{InvoiceStatusDraft, InvoiceStatusCancelled, true},
		{InvoiceStatusDraft, InvoiceStatusSent, false},
		{InvoiceStatusDraft, InvoiceStatusPaid, false},

		{InvoiceStatusApproved, InvoiceStatusSent, true},
		{InvoiceStatusApproved, InvoiceStatusCancelled, true},
		{InvoiceStatusApproved, InvoiceStatusDraft, false},
		{InvoiceStatusApproved, InvoiceStatusPaid, false},

		{InvoiceStatusSent, InvoiceStatusPaid, true},
		{InvoiceStatusSent, InvoiceStatusCancelled, true},
		{InvoiceStatusSent, InvoiceStatusApproved, false},

		{InvoiceStatusPaid, InvoiceStatusCancelled, false},
		{InvoiceStatusPaid, InvoiceStatusDraft, false},
		{InvoiceStatusCancelled, InvoiceStatusDraft, false},
		{InvoiceStatusCancelled, InvoiceStatusApproved, false},

		// overdue is derived, never a stored transition target
		{InvoiceStatusSent, InvoiceStatusOverdue, false},
		{InvoiceStatusOverdue, InvoiceStatusPaid, false},
	}

	for _, tt := range tests {
		got := tt.from.CanTransitionTo(tt.to)
		if got != tt.want {
			t.Errorf("CanTransitionTo(%s -> %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestInvoiceStatusValidate(t *testing.T) {
	for _, s := range []InvoiceStatus{
		InvoiceStatusDraft,
		InvoiceStatusApproved,
		InvoiceStatusSent,
		InvoiceStatusPaid,
		InvoiceStatusCancelled,
	} {
		if err := s.Validate(); err != nil {
			t.Errorf("Validate(%s) returned error: %v", s, err)
		}
	}

	// derived-only and garbage values are not storable
	if err := InvoiceStatusOverdue.Validate(); err == nil {
		t.Error("Validate(overdue) should fail, overdue is never stored")
	}
	if err := InvoiceStatus("unknown").Validate(); err == nil {
		t.Error("Validate(unknown) should fail")
	}
}

func TestCurrencyPrecision(t *testing.T) {
	tests := []struct {
		code string
		want int32
	}{
		{"jpy", 0},
		{"krw", 0},
		{"vnd", 0},
		{"usd", 2},
		{"eur", 2},
		{"xyz", 2},
	}

	for _, tt := range tests {
		if got := CurrencyPrecision(tt.code); got != tt.want {
			t.Errorf("CurrencyPrecision(%s) = %d, want %d", tt.code, got, tt.want)
		}
	}
}
