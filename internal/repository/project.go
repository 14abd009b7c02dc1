package repository

import (
	"context"

	"github.com/warebill/warebill/internal/domain/project"
	ierr "github.com/warebill/warebill/internal/errors"
	"github.com/warebill/warebill/internal/logger"
	"github.com/warebill/warebill/internal/postgres"
	"github.com/warebill/warebill/internal/types"
)

type projectRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewProjectRepository(db *postgres.DB, logger *logger.Logger) project.Repository {
	return &projectRepository{db: db, logger: logger}
}

func (r *projectRepository) Create(ctx context.Context, proj *project.Project) error {
	q := r.db.GetQuerier(ctx)
	_, err := q.ExecContext(ctx, `
		INSERT INTO projects (
			id, code, name, customer_id, customer_name, currency, tax_rate,
			status, created_at, updated_at, created_by, updated_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		proj.ID, proj.Code, proj.Name, proj.CustomerID, proj.CustomerName,
		proj.Currency, proj.TaxRate,
		proj.Status, proj.CreatedAt, proj.UpdatedAt, proj.CreatedBy, proj.UpdatedBy,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ierr.WithError(err).
				WithHint("A project with this code already exists").
				Mark(ierr.ErrAlreadyExists)
		}
		return ierr.WithError(err).
			WithHint("Failed to create project").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *projectRepository) Get(ctx context.Context, id string) (*project.Project, error) {
	q := r.db.GetQuerier(ctx)
	var proj project.Project
	err := q.GetContext(ctx, &proj, `
		SELECT id, code, name, customer_id, customer_name, currency, tax_rate,
		       status, created_at, updated_at, created_by, updated_by
		FROM projects
		WHERE id = $1 AND status = $2`,
		id, types.StatusPublished,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, ierr.NewError("project not found").
				WithHintf("No project exists with ID %s", id).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get project").
			Mark(ierr.ErrDatabase)
	}
	return &proj, nil
}

func (r *projectRepository) Update(ctx context.Context, proj *project.Project) error {
	q := r.db.GetQuerier(ctx)
	res, err := q.ExecContext(ctx, `
		UPDATE projects
		SET name = $2, customer_name = $3, tax_rate = $4,
		    updated_at = NOW(), updated_by = $5
		WHERE id = $1 AND status = $6`,
		proj.ID, proj.Name, proj.CustomerName, proj.TaxRate,
		proj.UpdatedBy, types.StatusPublished,
	)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to update project").
			Mark(ierr.ErrDatabase)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to update project").
			Mark(ierr.ErrDatabase)
	}
	if n == 0 {
		return ierr.NewError("project not found").
			WithHintf("No project exists with ID %s", proj.ID).
			Mark(ierr.ErrNotFound)
	}
	return nil
}

func (r *projectRepository) List(ctx context.Context) ([]*project.Project, error) {
	q := r.db.GetQuerier(ctx)
	var projects []*project.Project
	err := q.SelectContext(ctx, &projects, `
		SELECT id, code, name, customer_id, customer_name, currency, tax_rate,
		       status, created_at, updated_at, created_by, updated_by
		FROM projects
		WHERE status = $1
		ORDER BY created_at DESC`,
		types.StatusPublished,
	)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list projects").
			Mark(ierr.ErrDatabase)
	}
	return projects, nil
}
