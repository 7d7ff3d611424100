package movements

import (
	"bytes"
	"context"
	"fmt"
	"slices"

	"taller/internal/core/apperror"
	"taller/internal/core/entity"
	"taller/internal/core/id"
	"taller/internal/core/tx"
	"taller/internal/core/types"
	"taller/internal/domain/ledger"
	"taller/internal/domain/maintenance"
	"taller/pkg/logger"
	"taller/pkg/numerator"
)

// Number series per movement kind.
const (
	numberPrefixEntry = "ENT"
	numberPrefixExit  = "EXT"
	numberPrefixUsage = "USO"
)

// maxConflictRetries bounds retries after a concurrent modification.
const maxConflictRetries = 3

// EntryLine is one purchased item line.
type EntryLine struct {
	ItemID    id.ID
	Quantity  types.Quantity
	UnitPrice types.Money
}

// ExitLine is one sold item line.
type ExitLine struct {
	ItemID   id.ID
	Quantity types.Quantity
}

// LineInput is a replacement line for a movement amendment.
type LineInput struct {
	ItemID    id.ID
	Quantity  types.Quantity
	UnitPrice types.Money
}

// Service orchestrates movement creation, amendment, and deletion. Each
// operation runs as one transaction: every ledger application plus the
// movement row write commit or roll back together, so a failing line never
// leaves a partial stock change behind.
type Service struct {
	store       Store
	ledger      *ledger.Service
	items       ledger.ItemStore
	maintenance maintenance.Repository
	txManager   tx.Manager
	numbers     numerator.Generator
	auditor     Auditor // optional
}

// NewService creates a movement coordinator.
func NewService(
	store Store,
	ledgerSvc *ledger.Service,
	items ledger.ItemStore,
	maintenanceRepo maintenance.Repository,
	txManager tx.Manager,
	numbers numerator.Generator,
	auditor Auditor,
) *Service {
	return &Service{
		store:       store,
		ledger:      ledgerSvc,
		items:       items,
		maintenance: maintenanceRepo,
		txManager:   txManager,
		numbers:     numbers,
		auditor:     auditor,
	}
}

// CreateEntry records a purchase: every line applies +quantity to its item.
func (s *Service) CreateEntry(ctx context.Context, supplierRef string, lines []EntryLine) (*entity.Movement, error) {
	m := entity.NewMovement(entity.MovementKindEntry, supplierRef)
	for _, l := range lines {
		m.AddLine(l.ItemID, l.Quantity, l.UnitPrice)
	}

	return s.create(ctx, m, numberPrefixEntry)
}

// CreateExit records a sale: every line applies -quantity to its item.
// Any line short on stock aborts the whole movement.
func (s *Service) CreateExit(ctx context.Context, customerRef string, lines []ExitLine) (*entity.Movement, error) {
	m := entity.NewMovement(entity.MovementKindExit, customerRef)
	for _, l := range lines {
		m.AddLine(l.ItemID, l.Quantity, types.ZeroMoney())
	}

	return s.create(ctx, m, numberPrefixExit)
}

// CreateSparePartUsage records maintenance consumption of a spare part,
// applying -quantity and linking the usage to an open work order.
func (s *Service) CreateSparePartUsage(ctx context.Context, sparePartID, maintenanceRecordID id.ID, quantity types.Quantity) (*entity.Movement, error) {
	m := entity.NewMovement(entity.MovementKindSparePartUsage, "")
	m.MaintenanceRecordID = &maintenanceRecordID
	m.AddLine(sparePartID, quantity, types.ZeroMoney())

	return s.create(ctx, m, numberPrefixUsage)
}

func (s *Service) create(ctx context.Context, m *entity.Movement, numberPrefix string) (*entity.Movement, error) {
	if err := m.Validate(ctx); err != nil {
		return nil, err
	}

	number, err := s.numbers.NextNumber(ctx, numerator.DefaultConfig(numberPrefix), m.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("generate number: %w", err)
	}
	m.Number = number

	err = s.withRetry(ctx, func(ctx context.Context) error {
		if m.Kind == entity.MovementKindSparePartUsage {
			if err := s.checkUsageReferences(ctx, m); err != nil {
				return err
			}
		} else if err := s.resolveLines(ctx, m); err != nil {
			return err
		}

		if err := s.applyDeltas(ctx, m.Deltas()); err != nil {
			return err
		}

		if err := s.store.Save(ctx, m); err != nil {
			return err
		}

		return s.audit(ctx, AuditActionCreate, m)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "movement created",
		"id", m.ID,
		"number", m.Number,
		"kind", m.Kind,
		"lines", len(m.Lines),
	)

	return m, nil
}

// UpdateSparePartUsage amends the consumed quantity of a usage. The ledger
// receives only the difference between the old and new effect.
func (s *Service) UpdateSparePartUsage(ctx context.Context, movementID id.ID, newQuantity types.Quantity) (*entity.Movement, error) {
	if !newQuantity.IsPositive() {
		return nil, apperror.NewInvalidQuantity(newQuantity.Int64())
	}

	var updated *entity.Movement
	err := s.withRetry(ctx, func(ctx context.Context) error {
		m, err := s.store.GetByID(ctx, movementID)
		if err != nil {
			return err
		}

		if m.Kind != entity.MovementKindSparePartUsage {
			return apperror.NewValidation("movement is not a spare part usage").
				WithDetail("movement_id", movementID.String()).
				WithDetail("kind", string(m.Kind))
		}

		if err := s.checkMaintenanceOpen(ctx, *m.MaintenanceRecordID); err != nil {
			return err
		}

		line := &m.Lines[0]
		oldDelta := line.SignedDelta(m.Kind)
		newDelta := newQuantity * m.Kind.Sign()

		if _, err := s.ledger.Apply(ctx, line.ItemID, DeltaForUpdate(oldDelta, newDelta)); err != nil {
			return err
		}

		line.Quantity = newQuantity
		m.Touch()
		if err := s.store.Update(ctx, m); err != nil {
			return err
		}

		if err := s.audit(ctx, AuditActionUpdate, m); err != nil {
			return err
		}

		updated = m
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "spare part usage amended",
		"id", updated.ID,
		"quantity", newQuantity.Int64(),
	)

	return updated, nil
}

// UpdateMovement replaces the lines of an entry or exit. The ledger receives
// the per-item difference between the old and new effect; lines may be
// added, removed, or requantified. Spare part usages go through
// UpdateSparePartUsage instead.
func (s *Service) UpdateMovement(ctx context.Context, movementID id.ID, lines []LineInput) (*entity.Movement, error) {
	var updated *entity.Movement
	err := s.withRetry(ctx, func(ctx context.Context) error {
		m, err := s.store.GetByID(ctx, movementID)
		if err != nil {
			return err
		}

		if m.Kind == entity.MovementKindSparePartUsage {
			return apperror.NewValidation("spare part usages are amended by quantity only").
				WithDetail("movement_id", movementID.String())
		}

		replacement := *m
		replacement.Lines = nil
		for _, l := range lines {
			replacement.AddLine(l.ItemID, l.Quantity, l.UnitPrice)
		}
		if err := replacement.Validate(ctx); err != nil {
			return err
		}
		if err := s.resolveLines(ctx, &replacement); err != nil {
			return err
		}

		diff := DeltaDiff(m.Deltas(), replacement.Deltas())
		if err := s.applyDeltas(ctx, diff); err != nil {
			return err
		}

		m.Lines = replacement.Lines
		m.Touch()
		if err := s.store.Update(ctx, m); err != nil {
			return err
		}

		if err := s.audit(ctx, AuditActionUpdate, m); err != nil {
			return err
		}

		updated = m
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "movement amended",
		"id", updated.ID,
		"lines", len(updated.Lines),
	)

	return updated, nil
}

// DeleteMovement voids a movement, applying the full inverse of its original
// effect. Reversing an entry decreases stock and is rejected with
// INSUFFICIENT_STOCK when that stock was already spent elsewhere; silently
// letting stock go negative is never an option.
func (s *Service) DeleteMovement(ctx context.Context, movementID id.ID) (*entity.Movement, error) {
	var deleted *entity.Movement
	err := s.withRetry(ctx, func(ctx context.Context) error {
		m, err := s.store.GetByID(ctx, movementID)
		if err != nil {
			return err
		}

		inverse := make(map[id.ID]types.Quantity, len(m.Lines))
		for itemID, delta := range m.Deltas() {
			inverse[itemID] = DeltaForDeletion(delta)
		}
		if err := s.applyDeltas(ctx, inverse); err != nil {
			return err
		}

		if err := s.store.Delete(ctx, m.ID); err != nil {
			return err
		}

		if err := s.audit(ctx, AuditActionDelete, m); err != nil {
			return err
		}

		deleted = m
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "movement deleted",
		"id", deleted.ID,
		"number", deleted.Number,
		"kind", deleted.Kind,
	)

	return deleted, nil
}

// GetByID retrieves a movement with lines.
func (s *Service) GetByID(ctx context.Context, movementID id.ID) (*entity.Movement, error) {
	return s.store.GetByID(ctx, movementID)
}

// ListByItem returns the movement history of an item, newest first.
func (s *Service) ListByItem(ctx context.Context, itemID id.ID) ([]entity.Movement, error) {
	return s.store.ListByItem(ctx, itemID)
}

// CurrentStock returns the item's on-hand quantity.
func (s *Service) CurrentStock(ctx context.Context, itemID id.ID) (types.Quantity, error) {
	return s.ledger.CurrentStock(ctx, itemID)
}

// resolveLines verifies every referenced item exists, pinpointing the
// offending line before any ledger change is attempted.
func (s *Service) resolveLines(ctx context.Context, m *entity.Movement) error {
	for i, line := range m.Lines {
		if _, err := s.items.GetByID(ctx, line.ItemID); err != nil {
			if appErr, ok := apperror.AsAppError(err); ok && appErr.Code == apperror.CodeNotFound {
				return appErr.WithDetail("lineNo", i+1)
			}
			return err
		}
	}
	return nil
}

// checkUsageReferences validates the spare part and the maintenance record
// of a usage movement.
func (s *Service) checkUsageReferences(ctx context.Context, m *entity.Movement) error {
	item, err := s.items.GetByID(ctx, m.Lines[0].ItemID)
	if err != nil {
		return err
	}
	if item.Kind != entity.ItemKindSparePart {
		return apperror.NewValidation("item is not a spare part").
			WithDetail("item_id", item.ID.String()).
			WithDetail("kind", string(item.Kind))
	}

	return s.checkMaintenanceOpen(ctx, *m.MaintenanceRecordID)
}

func (s *Service) checkMaintenanceOpen(ctx context.Context, recordID id.ID) error {
	record, err := s.maintenance.GetByID(ctx, recordID)
	if err != nil {
		return err
	}
	if record.IsClosed() {
		return apperror.NewMaintenanceClosed(recordID.String())
	}
	return nil
}

// applyDeltas applies per-item deltas in a deterministic item order, so two
// movements touching the same pair of items lock their rows in the same
// sequence and cannot deadlock.
func (s *Service) applyDeltas(ctx context.Context, deltas map[id.ID]types.Quantity) error {
	itemIDs := make([]id.ID, 0, len(deltas))
	for itemID := range deltas {
		itemIDs = append(itemIDs, itemID)
	}
	slices.SortFunc(itemIDs, func(a, b id.ID) int {
		return bytes.Compare(a[:], b[:])
	})

	for _, itemID := range itemIDs {
		if _, err := s.ledger.Apply(ctx, itemID, deltas[itemID]); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) audit(ctx context.Context, action AuditAction, m *entity.Movement) error {
	if s.auditor == nil {
		return nil
	}
	return s.auditor.Log(ctx, action, m)
}

// withRetry wraps fn in a transaction, retrying a bounded number of times
// when another operation won the race on the same rows.
func (s *Service) withRetry(ctx context.Context, fn func(ctx context.Context) error) error {
	var err error
	for attempt := 1; attempt <= maxConflictRetries; attempt++ {
		err = s.txManager.RunInTransaction(ctx, fn)
		if err == nil || !apperror.IsConcurrentModification(err) {
			return err
		}
		logger.Warn(ctx, "retrying after concurrent modification",
			"attempt", attempt,
		)
	}
	return err
}
