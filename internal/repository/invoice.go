package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warebill/warebill/internal/domain/invoice"
	ierr "github.com/warebill/warebill/internal/errors"
	"github.com/warebill/warebill/internal/logger"
	"github.com/warebill/warebill/internal/postgres"
	"github.com/warebill/warebill/internal/types"
)

type invoiceRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewInvoiceRepository(db *postgres.DB, logger *logger.Logger) invoice.Repository {
	return &invoiceRepository{db: db, logger: logger}
}

const invoiceColumns = `
	id, invoice_number, project_id, customer_id, customer_name, currency,
	period_start, period_end, subtotal, tax_rate, tax_amount, total,
	invoice_status, due_date, approved_at, sent_at, paid_at, cancelled_at,
	version, status, created_at, updated_at, created_by, updated_by`

// lineItemRow maps the source_record_ids JSONB column
type lineItemRow struct {
	ID              string          `db:"id"`
	InvoiceID       string          `db:"invoice_id"`
	RuleID          *string         `db:"rule_id"`
	RuleType        types.RuleType  `db:"rule_type"`
	DisplayName     string          `db:"display_name"`
	Quantity        decimal.Decimal `db:"quantity"`
	Unit            string          `db:"unit"`
	UnitPrice       decimal.Decimal `db:"unit_price"`
	Amount          decimal.Decimal `db:"amount"`
	Sequence        int             `db:"sequence"`
	SourceRecordIDs []byte          `db:"source_record_ids"`
	types.BaseModel
}

func (row *lineItemRow) toDomain() (*invoice.LineItem, error) {
	var sourceIDs []string
	if len(row.SourceRecordIDs) > 0 {
		if err := json.Unmarshal(row.SourceRecordIDs, &sourceIDs); err != nil {
			return nil, ierr.WithError(err).
				WithHint("Line item source records could not be decoded").
				Mark(ierr.ErrSystem)
		}
	}
	return &invoice.LineItem{
		ID:              row.ID,
		InvoiceID:       row.InvoiceID,
		RuleID:          row.RuleID,
		RuleType:        row.RuleType,
		DisplayName:     row.DisplayName,
		Quantity:        row.Quantity,
		Unit:            row.Unit,
		UnitPrice:       row.UnitPrice,
		Amount:          row.Amount,
		Sequence:        row.Sequence,
		SourceRecordIDs: sourceIDs,
		BaseModel:       row.BaseModel,
	}, nil
}

func (r *invoiceRepository) CreateWithLineItems(ctx context.Context, inv *invoice.Invoice) error {
	return r.db.WithTx(ctx, func(ctx context.Context) error {
		q := r.db.GetQuerier(ctx)

		_, err := q.ExecContext(ctx, `
			INSERT INTO invoices (
				id, invoice_number, project_id, customer_id, customer_name,
				currency, period_start, period_end, subtotal, tax_rate,
				tax_amount, total, invoice_status, due_date, version,
				status, created_at, updated_at, created_by, updated_by
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
			          $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`,
			inv.ID, inv.InvoiceNumber, inv.ProjectID, inv.CustomerID, inv.CustomerName,
			inv.Currency, inv.PeriodStart, inv.PeriodEnd, inv.Subtotal, inv.TaxRate,
			inv.TaxAmount, inv.Total, inv.InvoiceStatus, inv.DueDate, inv.Version,
			inv.Status, inv.CreatedAt, inv.UpdatedAt, inv.CreatedBy, inv.UpdatedBy,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return ierr.WithError(err).
					WithHint("An invoice already exists for this period").
					Mark(ierr.ErrDuplicatePeriod)
			}
			return ierr.WithError(err).
				WithHint("Failed to create invoice").
				Mark(ierr.ErrDatabase)
		}

		for _, line := range inv.LineItems {
			sourceIDs, err := json.Marshal(line.SourceRecordIDs)
			if err != nil {
				return ierr.WithError(err).
					WithHint("Line item source records could not be encoded").
					Mark(ierr.ErrSystem)
			}
			_, err = q.ExecContext(ctx, `
				INSERT INTO invoice_line_items (
					id, invoice_id, rule_id, rule_type, display_name,
					quantity, unit, unit_price, amount, sequence,
					source_record_ids, status, created_at, updated_at,
					created_by, updated_by
				) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
				          $11, $12, $13, $14, $15, $16)`,
				line.ID, line.InvoiceID, line.RuleID, line.RuleType, line.DisplayName,
				line.Quantity, line.Unit, line.UnitPrice, line.Amount, line.Sequence,
				sourceIDs, line.Status, line.CreatedAt, line.UpdatedAt,
				line.CreatedBy, line.UpdatedBy,
			)
			if err != nil {
				return ierr.WithError(err).
					WithHint("Failed to create invoice line items").
					Mark(ierr.ErrDatabase)
			}
		}
		return nil
	})
}

func (r *invoiceRepository) Get(ctx context.Context, id string) (*invoice.Invoice, error) {
	q := r.db.GetQuerier(ctx)
	var inv invoice.Invoice
	err := q.GetContext(ctx, &inv, `
		SELECT `+invoiceColumns+`
		FROM invoices
		WHERE id = $1 AND status = $2`,
		id, types.StatusPublished,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, ierr.NewError("invoice not found").
				WithHintf("No invoice exists with ID %s", id).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get invoice").
			Mark(ierr.ErrDatabase)
	}

	lines, err := r.listLineItems(ctx, inv.ID)
	if err != nil {
		return nil, err
	}
	inv.LineItems = lines
	return &inv, nil
}

func (r *invoiceRepository) listLineItems(ctx context.Context, invoiceID string) ([]*invoice.LineItem, error) {
	q := r.db.GetQuerier(ctx)
	var rows []lineItemRow
	err := q.SelectContext(ctx, &rows, `
		SELECT id, invoice_id, rule_id, rule_type, display_name, quantity,
		       unit, unit_price, amount, sequence, source_record_ids,
		       status, created_at, updated_at, created_by, updated_by
		FROM invoice_line_items
		WHERE invoice_id = $1 AND status = $2
		ORDER BY sequence ASC`,
		invoiceID, types.StatusPublished,
	)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list invoice line items").
			Mark(ierr.ErrDatabase)
	}

	lines := make([]*invoice.LineItem, 0, len(rows))
	for i := range rows {
		line, err := rows[i].toDomain()
		if err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, nil
}

func (r *invoiceRepository) Update(ctx context.Context, inv *invoice.Invoice) error {
	q := r.db.GetQuerier(ctx)
	// optimistic: header fields only, lines are immutable after create
	res, err := q.ExecContext(ctx, `
		UPDATE invoices
		SET invoice_status = $2, due_date = $3, approved_at = $4, sent_at = $5,
		    paid_at = $6, cancelled_at = $7, version = $8,
		    updated_at = NOW(), updated_by = $9
		WHERE id = $1 AND version = $8 - 1 AND status = $10`,
		inv.ID, inv.InvoiceStatus, inv.DueDate, inv.ApprovedAt, inv.SentAt,
		inv.PaidAt, inv.CancelledAt, inv.Version,
		inv.UpdatedBy, types.StatusPublished,
	)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to update invoice").
			Mark(ierr.ErrDatabase)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to update invoice").
			Mark(ierr.ErrDatabase)
	}
	if n == 0 {
		return ierr.NewError("invoice was modified concurrently").
			WithHintf("Invoice %s changed since it was read, retry the operation", inv.ID).
			Mark(ierr.ErrInvalidOperation)
	}
	return nil
}

func (r *invoiceRepository) List(ctx context.Context, filter *types.InvoiceFilter) ([]*invoice.Invoice, error) {
	query, args := buildInvoiceQuery(`SELECT `+invoiceColumns+` FROM invoices`, filter, true)

	q := r.db.GetQuerier(ctx)
	var invoices []*invoice.Invoice
	if err := q.SelectContext(ctx, &invoices, query, args...); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list invoices").
			Mark(ierr.ErrDatabase)
	}
	return invoices, nil
}

func (r *invoiceRepository) Count(ctx context.Context, filter *types.InvoiceFilter) (int, error) {
	query, args := buildInvoiceQuery(`SELECT COUNT(*) FROM invoices`, filter, false)

	q := r.db.GetQuerier(ctx)
	var count int
	if err := q.GetContext(ctx, &count, query, args...); err != nil {
		return 0, ierr.WithError(err).
			WithHint("Failed to count invoices").
			Mark(ierr.ErrDatabase)
	}
	return count, nil
}

func (r *invoiceRepository) ExistsForPeriod(ctx context.Context, projectID string, periodStart, periodEnd time.Time) (bool, error) {
	q := r.db.GetQuerier(ctx)
	var exists bool
	err := q.GetContext(ctx, &exists, `
		SELECT EXISTS (
			SELECT 1 FROM invoices
			WHERE project_id = $1
			  AND status = $2
			  AND invoice_status != $3
			  AND period_start <= $5
			  AND period_end >= $4
		)`,
		projectID, types.StatusPublished, types.InvoiceStatusCancelled,
		periodStart, periodEnd,
	)
	if err != nil {
		return false, ierr.WithError(err).
			WithHint("Failed to check for existing invoices").
			Mark(ierr.ErrDatabase)
	}
	return exists, nil
}

func (r *invoiceRepository) ListBilledRecordIDs(ctx context.Context, projectID string) (map[string]struct{}, error) {
	q := r.db.GetQuerier(ctx)
	var payloads [][]byte
	err := q.SelectContext(ctx, &payloads, `
		SELECT li.source_record_ids
		FROM invoice_line_items li
		JOIN invoices i ON i.id = li.invoice_id
		WHERE i.project_id = $1
		  AND i.status = $2
		  AND li.status = $2
		  AND i.invoice_status != $3`,
		projectID, types.StatusPublished, types.InvoiceStatusCancelled,
	)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list billed records").
			Mark(ierr.ErrDatabase)
	}

	billed := make(map[string]struct{})
	for _, payload := range payloads {
		if len(payload) == 0 {
			continue
		}
		var ids []string
		if err := json.Unmarshal(payload, &ids); err != nil {
			return nil, ierr.WithError(err).
				WithHint("Line item source records could not be decoded").
				Mark(ierr.ErrSystem)
		}
		for _, id := range ids {
			billed[id] = struct{}{}
		}
	}
	return billed, nil
}

func (r *invoiceRepository) GetNextInvoiceNumber(ctx context.Context, projectID string) (string, error) {
	q := r.db.GetQuerier(ctx)
	var next int64
	// the upsert serializes concurrent reservations on the project row
	err := q.QueryRowContext(ctx, `
		INSERT INTO invoice_sequences (project_id, last_value)
		VALUES ($1, 1)
		ON CONFLICT (project_id)
		DO UPDATE SET last_value = invoice_sequences.last_value + 1
		RETURNING last_value`,
		projectID,
	).Scan(&next)
	if err != nil {
		return "", ierr.WithError(err).
			WithHint("Failed to reserve the next invoice number").
			Mark(ierr.ErrDatabase)
	}
	return fmt.Sprintf("INV-%05d", next), nil
}

func buildInvoiceQuery(base string, filter *types.InvoiceFilter, paginate bool) (string, []any) {
	query := base + ` WHERE status = $1`
	args := []any{types.StatusPublished}

	if filter.ProjectID != "" {
		args = append(args, filter.ProjectID)
		query += fmt.Sprintf(" AND project_id = $%d", len(args))
	}
	if filter.CustomerID != "" {
		args = append(args, filter.CustomerID)
		query += fmt.Sprintf(" AND customer_id = $%d", len(args))
	}
	if len(filter.InvoiceStatus) > 0 {
		placeholders := ""
		for i, s := range filter.InvoiceStatus {
			args = append(args, s)
			if i > 0 {
				placeholders += ", "
			}
			placeholders += fmt.Sprintf("$%d", len(args))
		}
		query += " AND invoice_status IN (" + placeholders + ")"
	}
	if filter.PeriodStart != nil {
		args = append(args, *filter.PeriodStart)
		query += fmt.Sprintf(" AND period_end >= $%d", len(args))
	}
	if filter.PeriodEnd != nil {
		args = append(args, *filter.PeriodEnd)
		query += fmt.Sprintf(" AND period_start <= $%d", len(args))
	}

	if paginate {
		query += " ORDER BY created_at DESC"
		if !filter.IsUnlimited() {
			args = append(args, filter.GetLimit())
			query += fmt.Sprintf(" LIMIT $%d", len(args))
		}
		args = append(args, filter.GetOffset())
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}
	return query, args
}
