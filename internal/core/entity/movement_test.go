package entity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taller/internal/core/id"
	"taller/internal/core/types"
)

func TestMovementKindSign(t *testing.T) {
	assert.Equal(t, types.Quantity(1), MovementKindEntry.Sign())
	assert.Equal(t, types.Quantity(-1), MovementKindExit.Sign())
	assert.Equal(t, types.Quantity(-1), MovementKindSparePartUsage.Sign())
}

func TestMovementDeltas(t *testing.T) {
	a, b := id.New(), id.New()

	m := NewMovement(MovementKindExit, "Obras Paco")
	m.AddLine(a, 3, types.ZeroMoney())
	m.AddLine(b, 5, types.ZeroMoney())
	m.AddLine(a, 2, types.ZeroMoney()) // same item twice accumulates

	deltas := m.Deltas()
	assert.Equal(t, types.Quantity(-5), deltas[a])
	assert.Equal(t, types.Quantity(-5), deltas[b])
}

func TestMovementValidate(t *testing.T) {
	ctx := context.Background()
	recordID := id.New()

	tests := []struct {
		name    string
		build   func() *Movement
		wantErr bool
	}{
		{
			name: "valid entry",
			build: func() *Movement {
				m := NewMovement(MovementKindEntry, "Aridos SL")
				m.AddLine(id.New(), 10, types.MustMoney("12.50"))
				return m
			},
		},
		{
			name: "no lines",
			build: func() *Movement {
				return NewMovement(MovementKindEntry, "Aridos SL")
			},
			wantErr: true,
		},
		{
			name: "zero quantity",
			build: func() *Movement {
				m := NewMovement(MovementKindExit, "Obras Paco")
				m.AddLine(id.New(), 0, types.ZeroMoney())
				return m
			},
			wantErr: true,
		},
		{
			name: "negative quantity",
			build: func() *Movement {
				m := NewMovement(MovementKindExit, "Obras Paco")
				m.AddLine(id.New(), -3, types.ZeroMoney())
				return m
			},
			wantErr: true,
		},
		{
			name: "nil item",
			build: func() *Movement {
				m := NewMovement(MovementKindEntry, "Aridos SL")
				m.AddLine(id.Nil, 1, types.ZeroMoney())
				return m
			},
			wantErr: true,
		},
		{
			name: "unknown kind",
			build: func() *Movement {
				m := NewMovement(MovementKind("transfer"), "")
				m.AddLine(id.New(), 1, types.ZeroMoney())
				return m
			},
			wantErr: true,
		},
		{
			name: "valid usage",
			build: func() *Movement {
				m := NewMovement(MovementKindSparePartUsage, "")
				m.MaintenanceRecordID = &recordID
				m.AddLine(id.New(), 2, types.ZeroMoney())
				return m
			},
		},
		{
			name: "usage without record",
			build: func() *Movement {
				m := NewMovement(MovementKindSparePartUsage, "")
				m.AddLine(id.New(), 2, types.ZeroMoney())
				return m
			},
			wantErr: true,
		},
		{
			name: "usage with two lines",
			build: func() *Movement {
				m := NewMovement(MovementKindSparePartUsage, "")
				m.MaintenanceRecordID = &recordID
				m.AddLine(id.New(), 2, types.ZeroMoney())
				m.AddLine(id.New(), 1, types.ZeroMoney())
				return m
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.build().Validate(ctx)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestMovementTouch(t *testing.T) {
	m := NewMovement(MovementKindEntry, "Aridos SL")
	require.Equal(t, 1, m.Version)

	m.Touch()
	assert.Equal(t, 2, m.Version)
}
