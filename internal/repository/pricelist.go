package repository

import (
	"context"
	"encoding/json"

	"github.com/shopspring/decimal"
	"github.com/warebill/warebill/internal/domain/pricelist"
	ierr "github.com/warebill/warebill/internal/errors"
	"github.com/warebill/warebill/internal/logger"
	"github.com/warebill/warebill/internal/postgres"
	"github.com/warebill/warebill/internal/types"
)

type priceListRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewPriceListRepository(db *postgres.DB, logger *logger.Logger) pricelist.Repository {
	return &priceListRepository{db: db, logger: logger}
}

type priceListRow struct {
	ID        string `db:"id"`
	ProjectID string `db:"project_id"`
	Code      string `db:"code"`
	Name      string `db:"name"`
	Currency  string `db:"currency"`
	Values    []byte `db:"values"`
	types.BaseModel
}

func (row *priceListRow) toDomain() (*pricelist.Entry, error) {
	values := make(map[string]decimal.Decimal)
	if len(row.Values) > 0 {
		if err := json.Unmarshal(row.Values, &values); err != nil {
			return nil, ierr.WithError(err).
				WithHint("Price list values could not be decoded").
				Mark(ierr.ErrSystem)
		}
	}
	return &pricelist.Entry{
		ID:        row.ID,
		ProjectID: row.ProjectID,
		Code:      row.Code,
		Name:      row.Name,
		Currency:  row.Currency,
		Values:    values,
		BaseModel: row.BaseModel,
	}, nil
}

func (r *priceListRepository) Create(ctx context.Context, entry *pricelist.Entry) error {
	values, err := json.Marshal(entry.Values)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Price list values could not be encoded").
			Mark(ierr.ErrSystem)
	}

	q := r.db.GetQuerier(ctx)
	_, err = q.ExecContext(ctx, `
		INSERT INTO price_list_entries (
			id, project_id, code, name, currency, "values",
			status, created_at, updated_at, created_by, updated_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		entry.ID, entry.ProjectID, entry.Code, entry.Name, entry.Currency, values,
		entry.Status, entry.CreatedAt, entry.UpdatedAt, entry.CreatedBy, entry.UpdatedBy,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ierr.WithError(err).
				WithHintf("Price list entry %q already exists for this project", entry.Code).
				Mark(ierr.ErrAlreadyExists)
		}
		return ierr.WithError(err).
			WithHint("Failed to create price list entry").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *priceListRepository) GetByCode(ctx context.Context, projectID, code string) (*pricelist.Entry, error) {
	q := r.db.GetQuerier(ctx)
	var row priceListRow
	err := q.GetContext(ctx, &row, `
		SELECT id, project_id, code, name, currency, "values",
		       status, created_at, updated_at, created_by, updated_by
		FROM price_list_entries
		WHERE project_id = $1 AND code = $2 AND status = $3`,
		projectID, code, types.StatusPublished,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, ierr.NewError("price list entry not found").
				WithHintf("No price list entry %q exists for this project", code).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get price list entry").
			Mark(ierr.ErrDatabase)
	}
	return row.toDomain()
}

func (r *priceListRepository) ListByProject(ctx context.Context, projectID string) ([]*pricelist.Entry, error) {
	q := r.db.GetQuerier(ctx)
	var rows []priceListRow
	err := q.SelectContext(ctx, &rows, `
		SELECT id, project_id, code, name, currency, "values",
		       status, created_at, updated_at, created_by, updated_by
		FROM price_list_entries
		WHERE project_id = $1 AND status = $2
		ORDER BY code ASC`,
		projectID, types.StatusPublished,
	)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list price list entries").
			Mark(ierr.ErrDatabase)
	}

	entries := make([]*pricelist.Entry, 0, len(rows))
	for i := range rows {
		entry, err := rows[i].toDomain()
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
