package repository

import (
	"context"
	"encoding/json"

	"github.com/warebill/warebill/internal/domain/masterrule"
	ierr "github.com/warebill/warebill/internal/errors"
	"github.com/warebill/warebill/internal/logger"
	"github.com/warebill/warebill/internal/postgres"
	"github.com/warebill/warebill/internal/types"
)

type masterRuleRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewMasterRuleRepository(db *postgres.DB, logger *logger.Logger) masterrule.Repository {
	return &masterRuleRepository{db: db, logger: logger}
}

// masterRuleRow maps the items JSONB column; the domain model carries the
// decoded slice
type masterRuleRow struct {
	ID        string `db:"id"`
	ProjectID string `db:"project_id"`
	Name      string `db:"name"`
	IsActive  bool   `db:"is_active"`
	Items     []byte `db:"items"`
	types.BaseModel
}

func (row *masterRuleRow) toDomain() (*masterrule.MasterBillingRule, error) {
	var items []masterrule.LineTemplate
	if len(row.Items) > 0 {
		if err := json.Unmarshal(row.Items, &items); err != nil {
			return nil, ierr.WithError(err).
				WithHint("Master rule items could not be decoded").
				Mark(ierr.ErrSystem)
		}
	}
	return &masterrule.MasterBillingRule{
		ID:        row.ID,
		ProjectID: row.ProjectID,
		Name:      row.Name,
		IsActive:  row.IsActive,
		Items:     items,
		BaseModel: row.BaseModel,
	}, nil
}

func (r *masterRuleRepository) Create(ctx context.Context, rule *masterrule.MasterBillingRule) error {
	items, err := json.Marshal(rule.Items)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Master rule items could not be encoded").
			Mark(ierr.ErrSystem)
	}

	return r.db.WithTx(ctx, func(ctx context.Context) error {
		q := r.db.GetQuerier(ctx)

		if rule.IsActive {
			if err := r.deactivateOthers(ctx, rule.ProjectID, rule.ID); err != nil {
				return err
			}
		}

		_, err := q.ExecContext(ctx, `
			INSERT INTO master_billing_rules (
				id, project_id, name, is_active, items,
				status, created_at, updated_at, created_by, updated_by
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			rule.ID, rule.ProjectID, rule.Name, rule.IsActive, items,
			rule.Status, rule.CreatedAt, rule.UpdatedAt, rule.CreatedBy, rule.UpdatedBy,
		)
		if err != nil {
			return ierr.WithError(err).
				WithHint("Failed to create master rule").
				Mark(ierr.ErrDatabase)
		}
		return nil
	})
}

func (r *masterRuleRepository) Get(ctx context.Context, id string) (*masterrule.MasterBillingRule, error) {
	q := r.db.GetQuerier(ctx)
	var row masterRuleRow
	err := q.GetContext(ctx, &row, `
		SELECT id, project_id, name, is_active, items,
		       status, created_at, updated_at, created_by, updated_by
		FROM master_billing_rules
		WHERE id = $1 AND status = $2`,
		id, types.StatusPublished,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, ierr.NewError("master rule not found").
				WithHintf("No master rule exists with ID %s", id).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get master rule").
			Mark(ierr.ErrDatabase)
	}
	return row.toDomain()
}

func (r *masterRuleRepository) GetActiveByProject(ctx context.Context, projectID string) (*masterrule.MasterBillingRule, error) {
	q := r.db.GetQuerier(ctx)
	var row masterRuleRow
	err := q.GetContext(ctx, &row, `
		SELECT id, project_id, name, is_active, items,
		       status, created_at, updated_at, created_by, updated_by
		FROM master_billing_rules
		WHERE project_id = $1 AND is_active = true AND status = $2`,
		projectID, types.StatusPublished,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, ierr.NewError("active master rule not found").
				WithHintf("Project %s has no active master rule", projectID).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get active master rule").
			Mark(ierr.ErrDatabase)
	}
	return row.toDomain()
}

func (r *masterRuleRepository) Update(ctx context.Context, rule *masterrule.MasterBillingRule) error {
	items, err := json.Marshal(rule.Items)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Master rule items could not be encoded").
			Mark(ierr.ErrSystem)
	}

	return r.db.WithTx(ctx, func(ctx context.Context) error {
		q := r.db.GetQuerier(ctx)

		if rule.IsActive {
			if err := r.deactivateOthers(ctx, rule.ProjectID, rule.ID); err != nil {
				return err
			}
		}

		res, err := q.ExecContext(ctx, `
			UPDATE master_billing_rules
			SET name = $2, is_active = $3, items = $4,
			    updated_at = NOW(), updated_by = $5
			WHERE id = $1 AND status = $6`,
			rule.ID, rule.Name, rule.IsActive, items,
			rule.UpdatedBy, types.StatusPublished,
		)
		if err != nil {
			return ierr.WithError(err).
				WithHint("Failed to update master rule").
				Mark(ierr.ErrDatabase)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return ierr.WithError(err).
				WithHint("Failed to update master rule").
				Mark(ierr.ErrDatabase)
		}
		if n == 0 {
			return ierr.NewError("master rule not found").
				WithHintf("No master rule exists with ID %s", rule.ID).
				Mark(ierr.ErrNotFound)
		}
		return nil
	})
}

func (r *masterRuleRepository) Delete(ctx context.Context, id string) error {
	q := r.db.GetQuerier(ctx)
	res, err := q.ExecContext(ctx, `
		UPDATE master_billing_rules
		SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status = $3`,
		id, types.StatusArchived, types.StatusPublished,
	)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to delete master rule").
			Mark(ierr.ErrDatabase)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to delete master rule").
			Mark(ierr.ErrDatabase)
	}
	if n == 0 {
		return ierr.NewError("master rule not found").
			WithHintf("No master rule exists with ID %s", id).
			Mark(ierr.ErrNotFound)
	}
	return nil
}

func (r *masterRuleRepository) ListByProject(ctx context.Context, projectID string) ([]*masterrule.MasterBillingRule, error) {
	q := r.db.GetQuerier(ctx)
	var rows []masterRuleRow
	err := q.SelectContext(ctx, &rows, `
		SELECT id, project_id, name, is_active, items,
		       status, created_at, updated_at, created_by, updated_by
		FROM master_billing_rules
		WHERE project_id = $1 AND status = $2
		ORDER BY created_at DESC`,
		projectID, types.StatusPublished,
	)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list master rules").
			Mark(ierr.ErrDatabase)
	}

	rules := make([]*masterrule.MasterBillingRule, 0, len(rows))
	for i := range rows {
		rule, err := rows[i].toDomain()
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

func (r *masterRuleRepository) deactivateOthers(ctx context.Context, projectID, keepID string) error {
	q := r.db.GetQuerier(ctx)
	_, err := q.ExecContext(ctx, `
		UPDATE master_billing_rules
		SET is_active = false, updated_at = NOW()
		WHERE project_id = $1 AND id != $2 AND is_active = true AND status = $3`,
		projectID, keepID, types.StatusPublished,
	)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to deactivate previous master rules").
			Mark(ierr.ErrDatabase)
	}
	return nil
}
