package repository

import (
	"context"
	"fmt"

	"github.com/warebill/warebill/internal/domain/performance"
	ierr "github.com/warebill/warebill/internal/errors"
	"github.com/warebill/warebill/internal/logger"
	"github.com/warebill/warebill/internal/postgres"
	"github.com/warebill/warebill/internal/types"
)

type performanceRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewPerformanceRepository(db *postgres.DB, logger *logger.Logger) performance.Repository {
	return &performanceRepository{db: db, logger: logger}
}

func (r *performanceRepository) List(ctx context.Context, filter *types.PerformanceFilter) ([]*performance.Record, error) {
	// both window bounds are inclusive
	query := `
		SELECT id, kind, number, date, part_no, part_name, quantity, unit,
		       pallet_no, container_no, volume, work_type, hours, labor_rate,
		       project_id
		FROM performance_records
		WHERE project_id = $1 AND date >= $2 AND date <= $3`
	args := []any{filter.ProjectID, filter.PeriodStart, filter.PeriodEnd}

	if len(filter.Kinds) > 0 {
		placeholders := ""
		for i, k := range filter.Kinds {
			args = append(args, k)
			if i > 0 {
				placeholders += ", "
			}
			placeholders += fmt.Sprintf("$%d", len(args))
		}
		query += " AND kind IN (" + placeholders + ")"
	}
	query += " ORDER BY date ASC, id ASC"

	q := r.db.GetQuerier(ctx)
	var records []*performance.Record
	if err := q.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list performance records").
			Mark(ierr.ErrDatabase)
	}
	return records, nil
}

func (r *performanceRepository) Insert(ctx context.Context, records []*performance.Record) error {
	if len(records) == 0 {
		return nil
	}

	return r.db.WithTx(ctx, func(ctx context.Context) error {
		q := r.db.GetQuerier(ctx)
		for _, rec := range records {
			_, err := q.ExecContext(ctx, `
				INSERT INTO performance_records (
					id, kind, number, date, part_no, part_name, quantity,
					unit, pallet_no, container_no, volume, work_type, hours,
					labor_rate, project_id
				) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
				rec.ID, rec.Kind, rec.Number, rec.Date, rec.PartNo, rec.PartName,
				rec.Quantity, rec.Unit, rec.PalletNo, rec.ContainerNo, rec.Volume,
				rec.WorkType, rec.Hours, rec.LaborRate, rec.ProjectID,
			)
			if err != nil {
				return ierr.WithError(err).
					WithHint("Failed to insert performance records").
					Mark(ierr.ErrDatabase)
			}
		}
		return nil
	})
}
