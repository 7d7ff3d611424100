package movements

import (
	"taller/internal/core/id"
	"taller/internal/core/types"
)

// Reversal arithmetic for amending and deleting committed movements.
//
// All deltas here are SIGNED ledger effects (an exit line of quantity 3 has
// stored delta -3). Centralizing the arithmetic keeps sign handling out of
// the coordinator.

// DeltaForUpdate returns the ledger adjustment needed to move an item's
// stock from the effect of oldDelta to the effect of newDelta.
// Example: a usage amended from 3 to 5 has oldDelta -3, newDelta -5,
// and the ledger must apply -2.
func DeltaForUpdate(oldDelta, newDelta types.Quantity) types.Quantity {
	return newDelta - oldDelta
}

// DeltaForDeletion returns the full inverse of a stored delta.
func DeltaForDeletion(storedDelta types.Quantity) types.Quantity {
	return storedDelta.Neg()
}

// DeltaDiff returns the per-item ledger adjustment that turns the old
// movement effect into the new one. Items present only in old get their
// effect reversed; items present only in new get their full effect.
func DeltaDiff(old, new map[id.ID]types.Quantity) map[id.ID]types.Quantity {
	diff := make(map[id.ID]types.Quantity, len(new))

	for itemID, newDelta := range new {
		diff[itemID] = DeltaForUpdate(old[itemID], newDelta)
	}
	for itemID, oldDelta := range old {
		if _, stillReferenced := new[itemID]; !stillReferenced {
			diff[itemID] = DeltaForDeletion(oldDelta)
		}
	}

	for itemID, d := range diff {
		if d.IsZero() {
			delete(diff, itemID)
		}
	}

	return diff
}
