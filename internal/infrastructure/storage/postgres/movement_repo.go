package postgres

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"taller/internal/core/apperror"
	"taller/internal/core/entity"
	"taller/internal/core/id"
	"taller/internal/domain/movements"
)

const (
	movementsTable     = "doc_movements"
	movementLinesTable = "doc_movement_lines"
)

var movementColumns = []string{
	"id", "number", "kind", "reference", "maintenance_record_id",
	"version", "created_at", "updated_at",
}

var movementLineColumns = []string{
	"line_id", "movement_id", "line_no", "item_id", "quantity", "unit_price",
}

// movementLineRow is the scan target for the lines table.
type movementLineRow struct {
	entity.MovementLine
	MovementID id.ID `db:"movement_id"`
}

// MovementRepo implements movements.Store.
type MovementRepo struct {
	builder   squirrel.StatementBuilderType
	txManager *TxManager
}

// NewMovementRepo creates a new movement repository.
func NewMovementRepo(txManager *TxManager) *MovementRepo {
	return &MovementRepo{
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		txManager: txManager,
	}
}

var _ movements.Store = (*MovementRepo)(nil)

// Save inserts a movement with its lines.
func (r *MovementRepo) Save(ctx context.Context, m *entity.Movement) error {
	q := r.builder.Insert(movementsTable).
		Columns(movementColumns...).
		Values(m.ID, m.Number, m.Kind, m.Reference, m.MaintenanceRecordID,
			m.Version, m.CreatedAt, m.UpdatedAt)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return apperror.NewDatabase(fmt.Errorf("insert movement: %w", err))
	}

	return r.insertLines(ctx, m)
}

// insertLines writes the table part. COPY when inside a transaction, which
// is the normal case: the coordinator always saves within one.
func (r *MovementRepo) insertLines(ctx context.Context, m *entity.Movement) error {
	if len(m.Lines) == 0 {
		return nil
	}

	if tx := r.txManager.GetTx(ctx); tx != nil {
		inserter := NewBatchInserter(r.txManager)
		rows := make([][]any, 0, len(m.Lines))
		for _, l := range m.Lines {
			rows = append(rows, []any{
				l.LineID, m.ID, l.LineNo, l.ItemID, l.Quantity, l.UnitPrice,
			})
		}
		if _, err := inserter.CopyFromSlice(ctx, movementLinesTable, movementLineColumns, rows); err != nil {
			return apperror.NewDatabase(fmt.Errorf("copy movement lines: %w", err))
		}
		return nil
	}

	q := r.builder.Insert(movementLinesTable).Columns(movementLineColumns...)
	for _, l := range m.Lines {
		q = q.Values(l.LineID, m.ID, l.LineNo, l.ItemID, l.Quantity, l.UnitPrice)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return apperror.NewDatabase(fmt.Errorf("insert movement lines: %w", err))
	}

	return nil
}

// GetByID returns a movement with lines or NOT_FOUND.
func (r *MovementRepo) GetByID(ctx context.Context, movementID id.ID) (*entity.Movement, error) {
	q := r.builder.Select(movementColumns...).
		From(movementsTable).
		Where(squirrel.Eq{"id": movementID}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var m entity.Movement
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &m, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("movement", movementID.String())
		}
		return nil, apperror.NewDatabase(fmt.Errorf("get movement: %w", err))
	}

	lines, err := r.getLines(ctx, []id.ID{movementID})
	if err != nil {
		return nil, err
	}
	m.Lines = lines[movementID]

	return &m, nil
}

// Update rewrites a movement and its lines with a version check.
func (r *MovementRepo) Update(ctx context.Context, m *entity.Movement) error {
	q := r.builder.Update(movementsTable).
		Set("reference", m.Reference).
		Set("version", m.Version).
		Set("updated_at", m.UpdatedAt).
		Where(squirrel.Eq{"id": m.ID}).
		// Touch() already incremented the in-memory version.
		Where(squirrel.Eq{"version": m.Version - 1})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	tag, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return apperror.NewDatabase(fmt.Errorf("update movement: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewConcurrentModification("movement", m.ID.String())
	}

	if err := r.deleteLines(ctx, m.ID); err != nil {
		return err
	}
	return r.insertLines(ctx, m)
}

// Delete removes a movement and its lines.
func (r *MovementRepo) Delete(ctx context.Context, movementID id.ID) error {
	if err := r.deleteLines(ctx, movementID); err != nil {
		return err
	}

	q := r.builder.Delete(movementsTable).
		Where(squirrel.Eq{"id": movementID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return apperror.NewDatabase(fmt.Errorf("delete movement: %w", err))
	}

	return nil
}

func (r *MovementRepo) deleteLines(ctx context.Context, movementID id.ID) error {
	q := r.builder.Delete(movementLinesTable).
		Where(squirrel.Eq{"movement_id": movementID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return apperror.NewDatabase(fmt.Errorf("delete movement lines: %w", err))
	}

	return nil
}

// ListByItem returns movements referencing the item, newest first.
func (r *MovementRepo) ListByItem(ctx context.Context, itemID id.ID) ([]entity.Movement, error) {
	sql := `
		SELECT DISTINCT m.id, m.number, m.kind, m.reference, m.maintenance_record_id,
		       m.version, m.created_at, m.updated_at
		FROM doc_movements m
		JOIN doc_movement_lines l ON l.movement_id = m.id
		WHERE l.item_id = $1
		ORDER BY m.created_at DESC
	`

	var ms []entity.Movement
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &ms, sql, itemID); err != nil {
		return nil, apperror.NewDatabase(fmt.Errorf("select movements: %w", err))
	}

	if len(ms) == 0 {
		return ms, nil
	}

	ids := make([]id.ID, len(ms))
	for i := range ms {
		ids[i] = ms[i].ID
	}
	lines, err := r.getLines(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range ms {
		ms[i].Lines = lines[ms[i].ID]
	}

	return ms, nil
}

// getLines loads lines for the given movements, grouped by movement.
func (r *MovementRepo) getLines(ctx context.Context, movementIDs []id.ID) (map[id.ID][]entity.MovementLine, error) {
	q := r.builder.Select(movementLineColumns...).
		From(movementLinesTable).
		Where(squirrel.Eq{"movement_id": movementIDs}).
		OrderBy("line_no")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rows []movementLineRow
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &rows, sql, args...); err != nil {
		return nil, apperror.NewDatabase(fmt.Errorf("select movement lines: %w", err))
	}

	grouped := make(map[id.ID][]entity.MovementLine, len(movementIDs))
	for _, row := range rows {
		grouped[row.MovementID] = append(grouped[row.MovementID], row.MovementLine)
	}

	return grouped, nil
}
