package movements

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"taller/internal/core/id"
	"taller/internal/core/types"
)

func TestDeltaForUpdate(t *testing.T) {
	tests := []struct {
		name     string
		oldDelta types.Quantity
		newDelta types.Quantity
		want     types.Quantity
	}{
		{name: "usage 3 to 5 consumes 2 more", oldDelta: -3, newDelta: -5, want: -2},
		{name: "usage 5 to 2 returns 3", oldDelta: -5, newDelta: -2, want: 3},
		{name: "entry 10 to 4 removes 6", oldDelta: 10, newDelta: 4, want: -6},
		{name: "entry 4 to 10 adds 6", oldDelta: 4, newDelta: 10, want: 6},
		{name: "unchanged", oldDelta: -7, newDelta: -7, want: 0},
		{name: "no prior effect", oldDelta: 0, newDelta: -3, want: -3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeltaForUpdate(tt.oldDelta, tt.newDelta))
		})
	}
}

func TestDeltaForDeletion(t *testing.T) {
	assert.Equal(t, types.Quantity(-50), DeltaForDeletion(50))
	assert.Equal(t, types.Quantity(30), DeltaForDeletion(-30))
	assert.Equal(t, types.Quantity(0), DeltaForDeletion(0))
}

func TestDeltaDiff(t *testing.T) {
	a, b, c := id.New(), id.New(), id.New()

	old := map[id.ID]types.Quantity{a: -3, b: -5}
	new := map[id.ID]types.Quantity{a: -4, c: -2}

	diff := DeltaDiff(old, new)

	// a amended, b removed, c added
	assert.Equal(t, types.Quantity(-1), diff[a])
	assert.Equal(t, types.Quantity(5), diff[b])
	assert.Equal(t, types.Quantity(-2), diff[c])
	assert.Len(t, diff, 3)
}

func TestDeltaDiff_DropsZeroAdjustments(t *testing.T) {
	a, b := id.New(), id.New()

	old := map[id.ID]types.Quantity{a: -3, b: 7}
	new := map[id.ID]types.Quantity{a: -3, b: 9}

	diff := DeltaDiff(old, new)

	assert.Len(t, diff, 1)
	assert.Equal(t, types.Quantity(2), diff[b])
}
