package postgres

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"taller/internal/core/apperror"
	"taller/internal/core/entity"
	"taller/internal/core/id"
	"taller/internal/core/types"
	"taller/internal/domain/catalogs/item"
)

const itemsTable = "cat_items"

var itemColumns = []string{
	"id", "code", "name", "kind", "stock", "unit_price",
	"version", "created_at", "updated_at",
}

// ItemRepo implements item.Repository (and thereby ledger.ItemStore).
type ItemRepo struct {
	builder   squirrel.StatementBuilderType
	txManager *TxManager
}

// NewItemRepo creates a new item repository.
func NewItemRepo(txManager *TxManager) *ItemRepo {
	return &ItemRepo{
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		txManager: txManager,
	}
}

var _ item.Repository = (*ItemRepo)(nil)

// Create inserts a new item with its initial stock.
func (r *ItemRepo) Create(ctx context.Context, i *entity.Item) error {
	q := r.builder.Insert(itemsTable).
		Columns(itemColumns...).
		Values(i.ID, i.Code, i.Name, i.Kind, i.Stock, i.UnitPrice,
			i.Version, i.CreatedAt, i.UpdatedAt)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return apperror.NewDatabase(fmt.Errorf("insert item: %w", err))
	}

	return nil
}

// GetByID returns the item or NOT_FOUND.
func (r *ItemRepo) GetByID(ctx context.Context, itemID id.ID) (*entity.Item, error) {
	q := r.builder.Select(itemColumns...).
		From(itemsTable).
		Where(squirrel.Eq{"id": itemID}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var i entity.Item
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &i, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("item", itemID.String())
		}
		return nil, apperror.NewDatabase(fmt.Errorf("get item: %w", err))
	}

	return &i, nil
}

// GetForUpdate returns the item with a row lock held for the rest of the
// ambient transaction. This is what serializes concurrent mutations of the
// same item.
func (r *ItemRepo) GetForUpdate(ctx context.Context, itemID id.ID) (*entity.Item, error) {
	sql := `
		SELECT id, code, name, kind, stock, unit_price, version, created_at, updated_at
		FROM cat_items
		WHERE id = $1
		FOR UPDATE
	`

	var i entity.Item
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &i, sql, itemID); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("item", itemID.String())
		}
		return nil, apperror.NewDatabase(fmt.Errorf("get item for update: %w", err))
	}

	return &i, nil
}

// SetStock persists a new stock value with a version check. Called only by
// the ledger; nothing else writes the stock column.
func (r *ItemRepo) SetStock(ctx context.Context, itemID id.ID, stock types.Quantity, expectedVersion int) error {
	sql := `
		UPDATE cat_items
		SET stock = $1, version = version + 1, updated_at = now()
		WHERE id = $2 AND version = $3
	`

	querier := r.txManager.GetQuerier(ctx)
	tag, err := querier.Exec(ctx, sql, stock, itemID, expectedVersion)
	if err != nil {
		return apperror.NewDatabase(fmt.Errorf("set stock: %w", err))
	}

	if tag.RowsAffected() == 0 {
		// Row lock in GetForUpdate makes this rare, but a concurrent
		// catalog update can still bump the version.
		if _, err := r.GetByID(ctx, itemID); err != nil {
			return err
		}
		return apperror.NewConcurrentModification("item", itemID.String())
	}

	return nil
}

// Update rewrites descriptive fields. The stock column is deliberately
// absent from the SET list.
func (r *ItemRepo) Update(ctx context.Context, i *entity.Item) error {
	q := r.builder.Update(itemsTable).
		Set("code", i.Code).
		Set("name", i.Name).
		Set("unit_price", i.UnitPrice).
		Set("version", i.Version).
		Set("updated_at", i.UpdatedAt).
		Where(squirrel.Eq{"id": i.ID}).
		// Touch() already incremented the in-memory version.
		Where(squirrel.Eq{"version": i.Version - 1})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	tag, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return apperror.NewDatabase(fmt.Errorf("update item: %w", err))
	}

	if tag.RowsAffected() == 0 {
		if _, err := r.GetByID(ctx, i.ID); err != nil {
			return err
		}
		return apperror.NewConcurrentModification("item", i.ID.String())
	}

	return nil
}

// GetByCode returns the item with the given code or NOT_FOUND.
func (r *ItemRepo) GetByCode(ctx context.Context, code string) (*entity.Item, error) {
	q := r.builder.Select(itemColumns...).
		From(itemsTable).
		Where(squirrel.Eq{"code": code}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var i entity.Item
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &i, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("item", code)
		}
		return nil, apperror.NewDatabase(fmt.Errorf("get item by code: %w", err))
	}

	return &i, nil
}

// listQuery builds the filtered select for List.
func (r *ItemRepo) listQuery(filter item.ListFilter) squirrel.SelectBuilder {
	q := r.builder.Select(itemColumns...).
		From(itemsTable)

	if filter.Kind != nil {
		q = q.Where(squirrel.Eq{"kind": *filter.Kind})
	}
	if filter.Search != "" {
		q = q.Where(squirrel.ILike{"name": "%" + filter.Search + "%"})
	}

	return q.OrderBy("code").
		Limit(uint64(filter.Limit)).
		Offset(uint64(filter.Offset))
}

// List returns items matching the filter, ordered by code.
func (r *ItemRepo) List(ctx context.Context, filter item.ListFilter) ([]entity.Item, error) {
	sql, args, err := r.listQuery(filter).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var items []entity.Item
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &items, sql, args...); err != nil {
		return nil, apperror.NewDatabase(fmt.Errorf("select items: %w", err))
	}

	return items, nil
}
