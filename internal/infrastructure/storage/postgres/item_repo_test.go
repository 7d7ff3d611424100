package postgres

import (
	"testing"

	"taller/internal/core/entity"
	"taller/internal/domain/catalogs/item"
)

func TestItemListQuery(t *testing.T) {
	repo := NewItemRepo(nil)
	sparePart := entity.ItemKindSparePart

	const selectPrefix = "SELECT id, code, name, kind, stock, unit_price, version, created_at, updated_at FROM cat_items"

	tests := []struct {
		name     string
		filter   item.ListFilter
		wantSQL  string
		wantArgs []any
	}{
		{
			name:     "NoFilter",
			filter:   item.ListFilter{Limit: 50},
			wantSQL:  selectPrefix + " ORDER BY code LIMIT 50 OFFSET 0",
			wantArgs: nil,
		},
		{
			name:     "ByKind",
			filter:   item.ListFilter{Kind: &sparePart, Limit: 50},
			wantSQL:  selectPrefix + " WHERE kind = $1 ORDER BY code LIMIT 50 OFFSET 0",
			wantArgs: []any{sparePart},
		},
		{
			name:     "KindAndSearch",
			filter:   item.ListFilter{Kind: &sparePart, Search: "filtro", Limit: 20, Offset: 40},
			wantSQL:  selectPrefix + " WHERE kind = $1 AND name ILIKE $2 ORDER BY code LIMIT 20 OFFSET 40",
			wantArgs: []any{sparePart, "%filtro%"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args, err := repo.listQuery(tt.filter).ToSql()
			if err != nil {
				t.Fatalf("ToSql failed: %v", err)
			}

			if sql != tt.wantSQL {
				t.Errorf("SQL mismatch\nwant: %s\ngot:  %s", tt.wantSQL, sql)
			}
			if len(args) != len(tt.wantArgs) {
				t.Fatalf("Args count mismatch\nwant: %d\ngot:  %d", len(tt.wantArgs), len(args))
			}
			for i := range args {
				if args[i] != tt.wantArgs[i] {
					t.Errorf("Arg %d mismatch\nwant: %v\ngot:  %v", i, tt.wantArgs[i], args[i])
				}
			}
		})
	}
}
