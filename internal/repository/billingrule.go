package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/warebill/warebill/internal/domain/billingrule"
	ierr "github.com/warebill/warebill/internal/errors"
	"github.com/warebill/warebill/internal/logger"
	"github.com/warebill/warebill/internal/postgres"
	"github.com/warebill/warebill/internal/types"
)

type billingRuleRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewBillingRuleRepository(db *postgres.DB, logger *logger.Logger) billingrule.Repository {
	return &billingRuleRepository{db: db, logger: logger}
}

const billingRuleColumns = `
	id, project_id, name, rule_type, price_source, grouping_key, priority,
	sequence, is_active, effective_from, effective_to, config,
	status, created_at, updated_at, created_by, updated_by`

func (r *billingRuleRepository) Create(ctx context.Context, rule *billingrule.BillingRule) error {
	q := r.db.GetQuerier(ctx)
	// sequence comes from the table's sequence generator and never changes
	err := q.QueryRowContext(ctx, `
		INSERT INTO billing_rules (
			id, project_id, name, rule_type, price_source, grouping_key,
			priority, is_active, effective_from, effective_to, config,
			status, created_at, updated_at, created_by, updated_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING sequence`,
		rule.ID, rule.ProjectID, rule.Name, rule.RuleType, rule.PriceSource,
		rule.GroupingKey, rule.Priority, rule.IsActive,
		rule.EffectiveFrom, rule.EffectiveTo, []byte(rule.ConfigPayload),
		rule.Status, rule.CreatedAt, rule.UpdatedAt, rule.CreatedBy, rule.UpdatedBy,
	).Scan(&rule.Sequence)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to create billing rule").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *billingRuleRepository) Get(ctx context.Context, id string) (*billingrule.BillingRule, error) {
	q := r.db.GetQuerier(ctx)
	var rule billingrule.BillingRule
	err := q.GetContext(ctx, &rule, `
		SELECT `+billingRuleColumns+`
		FROM billing_rules
		WHERE id = $1 AND status = $2`,
		id, types.StatusPublished,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, ierr.NewError("billing rule not found").
				WithHintf("No billing rule exists with ID %s", id).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get billing rule").
			Mark(ierr.ErrDatabase)
	}
	return &rule, nil
}

func (r *billingRuleRepository) Update(ctx context.Context, rule *billingrule.BillingRule) error {
	q := r.db.GetQuerier(ctx)
	res, err := q.ExecContext(ctx, `
		UPDATE billing_rules
		SET name = $2, grouping_key = $3, priority = $4, is_active = $5,
		    effective_from = $6, effective_to = $7, config = $8,
		    updated_at = NOW(), updated_by = $9
		WHERE id = $1 AND status = $10`,
		rule.ID, rule.Name, rule.GroupingKey, rule.Priority, rule.IsActive,
		rule.EffectiveFrom, rule.EffectiveTo, []byte(rule.ConfigPayload),
		rule.UpdatedBy, types.StatusPublished,
	)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to update billing rule").
			Mark(ierr.ErrDatabase)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to update billing rule").
			Mark(ierr.ErrDatabase)
	}
	if n == 0 {
		return ierr.NewError("billing rule not found").
			WithHintf("No billing rule exists with ID %s", rule.ID).
			Mark(ierr.ErrNotFound)
	}
	return nil
}

func (r *billingRuleRepository) Delete(ctx context.Context, id string) error {
	q := r.db.GetQuerier(ctx)
	res, err := q.ExecContext(ctx, `
		UPDATE billing_rules
		SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status = $3`,
		id, types.StatusArchived, types.StatusPublished,
	)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to delete billing rule").
			Mark(ierr.ErrDatabase)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to delete billing rule").
			Mark(ierr.ErrDatabase)
	}
	if n == 0 {
		return ierr.NewError("billing rule not found").
			WithHintf("No billing rule exists with ID %s", id).
			Mark(ierr.ErrNotFound)
	}
	return nil
}

func (r *billingRuleRepository) List(ctx context.Context, filter *types.BillingRuleFilter) ([]*billingrule.BillingRule, error) {
	query, args := buildBillingRuleQuery(`SELECT `+billingRuleColumns+` FROM billing_rules`, filter, true)

	q := r.db.GetQuerier(ctx)
	var rules []*billingrule.BillingRule
	if err := q.SelectContext(ctx, &rules, query, args...); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list billing rules").
			Mark(ierr.ErrDatabase)
	}
	return rules, nil
}

func (r *billingRuleRepository) Count(ctx context.Context, filter *types.BillingRuleFilter) (int, error) {
	query, args := buildBillingRuleQuery(`SELECT COUNT(*) FROM billing_rules`, filter, false)

	q := r.db.GetQuerier(ctx)
	var count int
	if err := q.GetContext(ctx, &count, query, args...); err != nil {
		return 0, ierr.WithError(err).
			WithHint("Failed to count billing rules").
			Mark(ierr.ErrDatabase)
	}
	return count, nil
}

func (r *billingRuleRepository) ListEffective(ctx context.Context, projectID string, asOf time.Time) ([]*billingrule.BillingRule, error) {
	q := r.db.GetQuerier(ctx)
	var rules []*billingrule.BillingRule
	err := q.SelectContext(ctx, &rules, `
		SELECT `+billingRuleColumns+`
		FROM billing_rules
		WHERE project_id = $1
		  AND status = $2
		  AND is_active = true
		  AND (effective_from IS NULL OR effective_from <= $3)
		  AND (effective_to IS NULL OR effective_to >= $3)
		ORDER BY priority DESC, sequence ASC`,
		projectID, types.StatusPublished, asOf,
	)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list effective billing rules").
			Mark(ierr.ErrDatabase)
	}
	return rules, nil
}

func buildBillingRuleQuery(base string, filter *types.BillingRuleFilter, paginate bool) (string, []any) {
	query := base + ` WHERE status = $1`
	args := []any{types.StatusPublished}

	if filter.ProjectID != "" {
		args = append(args, filter.ProjectID)
		query += fmt.Sprintf(" AND project_id = $%d", len(args))
	}
	if len(filter.RuleTypes) > 0 {
		placeholders := ""
		for i, t := range filter.RuleTypes {
			args = append(args, t)
			if i > 0 {
				placeholders += ", "
			}
			placeholders += fmt.Sprintf("$%d", len(args))
		}
		query += " AND rule_type IN (" + placeholders + ")"
	}
	if filter.IsActive != nil {
		args = append(args, *filter.IsActive)
		query += fmt.Sprintf(" AND is_active = $%d", len(args))
	}

	if paginate {
		query += " ORDER BY priority DESC, sequence ASC"
		if !filter.IsUnlimited() {
			args = append(args, filter.GetLimit())
			query += fmt.Sprintf(" LIMIT $%d", len(args))
		}
		args = append(args, filter.GetOffset())
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}
	return query, args
}
