package postgres

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"taller/internal/core/apperror"
	"taller/internal/core/entity"
	"taller/internal/core/id"
	"taller/internal/domain/maintenance"
)

const maintenanceTable = "doc_maintenance_records"

var maintenanceColumns = []string{
	"id", "machine_ref", "description", "status",
	"opened_at", "closed_at", "version",
}

// MaintenanceRepo implements maintenance.Repository.
type MaintenanceRepo struct {
	builder   squirrel.StatementBuilderType
	txManager *TxManager
}

// NewMaintenanceRepo creates a new maintenance record repository.
func NewMaintenanceRepo(txManager *TxManager) *MaintenanceRepo {
	return &MaintenanceRepo{
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		txManager: txManager,
	}
}

var _ maintenance.Repository = (*MaintenanceRepo)(nil)

// Create inserts a new record.
func (r *MaintenanceRepo) Create(ctx context.Context, rec *entity.MaintenanceRecord) error {
	q := r.builder.Insert(maintenanceTable).
		Columns(maintenanceColumns...).
		Values(rec.ID, rec.MachineRef, rec.Description, rec.Status,
			rec.OpenedAt, rec.ClosedAt, rec.Version)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return apperror.NewDatabase(fmt.Errorf("insert maintenance record: %w", err))
	}

	return nil
}

// GetByID returns the record or NOT_FOUND.
func (r *MaintenanceRepo) GetByID(ctx context.Context, recordID id.ID) (*entity.MaintenanceRecord, error) {
	q := r.builder.Select(maintenanceColumns...).
		From(maintenanceTable).
		Where(squirrel.Eq{"id": recordID}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rec entity.MaintenanceRecord
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &rec, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("maintenance record", recordID.String())
		}
		return nil, apperror.NewDatabase(fmt.Errorf("get maintenance record: %w", err))
	}

	return &rec, nil
}

// Update rewrites a record with a version check.
func (r *MaintenanceRepo) Update(ctx context.Context, rec *entity.MaintenanceRecord) error {
	q := r.builder.Update(maintenanceTable).
		Set("machine_ref", rec.MachineRef).
		Set("description", rec.Description).
		Set("status", rec.Status).
		Set("closed_at", rec.ClosedAt).
		Set("version", rec.Version).
		Where(squirrel.Eq{"id": rec.ID}).
		Where(squirrel.Eq{"version": rec.Version - 1})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	tag, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return apperror.NewDatabase(fmt.Errorf("update maintenance record: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewConcurrentModification("maintenance record", rec.ID.String())
	}

	return nil
}

// List returns records, newest first.
func (r *MaintenanceRepo) List(ctx context.Context, limit, offset int) ([]entity.MaintenanceRecord, error) {
	q := r.builder.Select(maintenanceColumns...).
		From(maintenanceTable).
		OrderBy("opened_at DESC").
		Limit(uint64(limit)).
		Offset(uint64(offset))

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var recs []entity.MaintenanceRecord
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &recs, sql, args...); err != nil {
		return nil, apperror.NewDatabase(fmt.Errorf("select maintenance records: %w", err))
	}

	return recs, nil
}
