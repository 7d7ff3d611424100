package movements

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taller/internal/core/apperror"
	"taller/internal/core/entity"
	"taller/internal/core/id"
	"taller/internal/core/types"
	"taller/internal/domain/ledger"
	"taller/pkg/numerator"
)

// --- In-memory fixture ---
//
// memDB plus memTxManager model the database contract the coordinator
// relies on: operations run one at a time and roll back wholly on error.

type memDB struct {
	mu        sync.Mutex
	items     map[id.ID]*entity.Item
	movements map[id.ID]*entity.Movement
	records   map[id.ID]*entity.MaintenanceRecord
}

func newMemDB() *memDB {
	return &memDB{
		items:     make(map[id.ID]*entity.Item),
		movements: make(map[id.ID]*entity.Movement),
		records:   make(map[id.ID]*entity.MaintenanceRecord),
	}
}

func (db *memDB) addItem(i *entity.Item) {
	copied := *i
	db.items[i.ID] = &copied
}

func (db *memDB) addRecord(r *entity.MaintenanceRecord) {
	copied := *r
	db.records[r.ID] = &copied
}

func copyMovement(m *entity.Movement) *entity.Movement {
	copied := *m
	copied.Lines = make([]entity.MovementLine, len(m.Lines))
	copy(copied.Lines, m.Lines)
	return &copied
}

// memTxManager serializes transactions with a mutex and restores a snapshot
// when the function fails, giving the same all-or-nothing behavior the
// coordinator gets from a real database transaction.
type memTxManager struct {
	db *memDB
}

func (t *memTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	t.db.mu.Lock()
	defer t.db.mu.Unlock()

	snapItems := make(map[id.ID]*entity.Item, len(t.db.items))
	for k, v := range t.db.items {
		copied := *v
		snapItems[k] = &copied
	}
	snapMovements := make(map[id.ID]*entity.Movement, len(t.db.movements))
	for k, v := range t.db.movements {
		snapMovements[k] = copyMovement(v)
	}

	if err := fn(ctx); err != nil {
		t.db.items = snapItems
		t.db.movements = snapMovements
		return err
	}
	return nil
}

type memItemStore struct {
	db *memDB
}

func (s *memItemStore) GetByID(_ context.Context, itemID id.ID) (*entity.Item, error) {
	item, ok := s.db.items[itemID]
	if !ok {
		return nil, apperror.NewNotFound("Item", itemID.String())
	}
	copied := *item
	return &copied, nil
}

func (s *memItemStore) GetForUpdate(ctx context.Context, itemID id.ID) (*entity.Item, error) {
	return s.GetByID(ctx, itemID)
}

func (s *memItemStore) SetStock(_ context.Context, itemID id.ID, stock types.Quantity, expectedVersion int) error {
	item, ok := s.db.items[itemID]
	if !ok {
		return apperror.NewNotFound("Item", itemID.String())
	}
	if item.Version != expectedVersion {
		return apperror.NewConcurrentModification("Item", itemID.String())
	}
	item.Stock = stock
	item.Version++
	return nil
}

type memMovementStore struct {
	db *memDB
}

func (s *memMovementStore) Save(_ context.Context, m *entity.Movement) error {
	s.db.movements[m.ID] = copyMovement(m)
	return nil
}

func (s *memMovementStore) GetByID(_ context.Context, movementID id.ID) (*entity.Movement, error) {
	m, ok := s.db.movements[movementID]
	if !ok {
		return nil, apperror.NewNotFound("Movement", movementID.String())
	}
	return copyMovement(m), nil
}

func (s *memMovementStore) Update(_ context.Context, m *entity.Movement) error {
	stored, ok := s.db.movements[m.ID]
	if !ok {
		return apperror.NewNotFound("Movement", m.ID.String())
	}
	if stored.Version != m.Version-1 {
		return apperror.NewConcurrentModification("Movement", m.ID.String())
	}
	s.db.movements[m.ID] = copyMovement(m)
	return nil
}

func (s *memMovementStore) Delete(_ context.Context, movementID id.ID) error {
	if _, ok := s.db.movements[movementID]; !ok {
		return apperror.NewNotFound("Movement", movementID.String())
	}
	delete(s.db.movements, movementID)
	return nil
}

func (s *memMovementStore) ListByItem(_ context.Context, itemID id.ID) ([]entity.Movement, error) {
	var result []entity.Movement
	for _, m := range s.db.movements {
		for _, line := range m.Lines {
			if line.ItemID == itemID {
				result = append(result, *copyMovement(m))
				break
			}
		}
	}
	return result, nil
}

type memMaintenanceRepo struct {
	db *memDB
}

func (r *memMaintenanceRepo) Create(_ context.Context, rec *entity.MaintenanceRecord) error {
	copied := *rec
	r.db.records[rec.ID] = &copied
	return nil
}

func (r *memMaintenanceRepo) GetByID(_ context.Context, recordID id.ID) (*entity.MaintenanceRecord, error) {
	rec, ok := r.db.records[recordID]
	if !ok {
		return nil, apperror.NewNotFound("MaintenanceRecord", recordID.String())
	}
	copied := *rec
	return &copied, nil
}

func (r *memMaintenanceRepo) Update(_ context.Context, rec *entity.MaintenanceRecord) error {
	if _, ok := r.db.records[rec.ID]; !ok {
		return apperror.NewNotFound("MaintenanceRecord", rec.ID.String())
	}
	copied := *rec
	r.db.records[rec.ID] = &copied
	return nil
}

func (r *memMaintenanceRepo) List(_ context.Context, _, _ int) ([]entity.MaintenanceRecord, error) {
	var result []entity.MaintenanceRecord
	for _, rec := range r.db.records {
		result = append(result, *rec)
	}
	return result, nil
}

type fixture struct {
	db      *memDB
	service *Service
	ledger  *ledger.Service
}

func newFixture() *fixture {
	db := newMemDB()
	items := &memItemStore{db: db}
	ledgerSvc := ledger.NewService(items)
	svc := NewService(
		&memMovementStore{db: db},
		ledgerSvc,
		items,
		&memMaintenanceRepo{db: db},
		&memTxManager{db: db},
		numerator.NewMock(),
		nil,
	)
	return &fixture{db: db, service: svc, ledger: ledgerSvc}
}

func (f *fixture) stock(t *testing.T, itemID id.ID) int64 {
	t.Helper()
	stock, err := f.ledger.CurrentStock(context.Background(), itemID)
	require.NoError(t, err)
	return stock.Int64()
}

// --- Creation ---

func TestCreateEntry_IncreasesStock(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	item := entity.NewItem("GRV-001", "Gravilla", entity.ItemKindProduct, 100)
	f.db.addItem(item)

	m, err := f.service.CreateEntry(ctx, "Aridos SL", []EntryLine{
		{ItemID: item.ID, Quantity: 50, UnitPrice: types.MustMoney("12.50")},
	})
	require.NoError(t, err)

	assert.Equal(t, entity.MovementKindEntry, m.Kind)
	assert.Equal(t, "ENT", m.Number[:3])
	assert.Equal(t, int64(150), f.stock(t, item.ID))
}

func TestCreateExit_DecreasesStock(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	item := entity.NewItem("GRV-001", "Gravilla", entity.ItemKindProduct, 100)
	f.db.addItem(item)

	m, err := f.service.CreateExit(ctx, "Obras Paco", []ExitLine{
		{ItemID: item.ID, Quantity: 30},
	})
	require.NoError(t, err)

	assert.Equal(t, "EXT", m.Number[:3])
	assert.Equal(t, int64(70), f.stock(t, item.ID))
}

func TestCreateExit_InsufficientStock(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	item := entity.NewItem("GRV-001", "Gravilla", entity.ItemKindProduct, 10)
	f.db.addItem(item)

	_, err := f.service.CreateExit(ctx, "Obras Paco", []ExitLine{
		{ItemID: item.ID, Quantity: 11},
	})
	require.Error(t, err)
	assert.True(t, apperror.IsInsufficientStock(err))
	assert.Equal(t, int64(10), f.stock(t, item.ID))
}

func TestCreateExit_TwoLines_SecondShortLeavesFirstUnchanged(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	plenty := entity.NewItem("GRV-001", "Gravilla", entity.ItemKindProduct, 100)
	short := entity.NewItem("ARN-001", "Arena fina", entity.ItemKindProduct, 2)
	f.db.addItem(plenty)
	f.db.addItem(short)

	_, err := f.service.CreateExit(ctx, "Obras Paco", []ExitLine{
		{ItemID: plenty.ID, Quantity: 10},
		{ItemID: short.ID, Quantity: 5},
	})
	require.Error(t, err)
	assert.True(t, apperror.IsInsufficientStock(err))

	// no partial application
	assert.Equal(t, int64(100), f.stock(t, plenty.ID))
	assert.Equal(t, int64(2), f.stock(t, short.ID))

	// the failed movement was not persisted either
	movements, err := f.service.ListByItem(ctx, plenty.ID)
	require.NoError(t, err)
	assert.Empty(t, movements)
}

func TestCreateExit_UnknownItemReportsLine(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	item := entity.NewItem("GRV-001", "Gravilla", entity.ItemKindProduct, 100)
	f.db.addItem(item)

	_, err := f.service.CreateExit(ctx, "Obras Paco", []ExitLine{
		{ItemID: item.ID, Quantity: 1},
		{ItemID: id.New(), Quantity: 1},
	})
	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err))

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, 2, appErr.Details["lineNo"])
	assert.Equal(t, int64(100), f.stock(t, item.ID))
}

func TestCreateEntry_RejectsNonPositiveQuantity(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	item := entity.NewItem("GRV-001", "Gravilla", entity.ItemKindProduct, 100)
	f.db.addItem(item)

	_, err := f.service.CreateEntry(ctx, "Aridos SL", []EntryLine{
		{ItemID: item.ID, Quantity: 0, UnitPrice: types.ZeroMoney()},
	})
	require.Error(t, err)
	assert.Equal(t, int64(100), f.stock(t, item.ID))
}

// --- Spare part usage ---

func TestCreateSparePartUsage(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	part := entity.NewItem("FLT-001", "Filtro de aceite", entity.ItemKindSparePart, 10)
	f.db.addItem(part)
	record := entity.NewMaintenanceRecord("EXC-07", "cambio de aceite")
	f.db.addRecord(record)

	m, err := f.service.CreateSparePartUsage(ctx, part.ID, record.ID, 3)
	require.NoError(t, err)

	assert.Equal(t, "USO", m.Number[:3])
	require.NotNil(t, m.MaintenanceRecordID)
	assert.Equal(t, record.ID, *m.MaintenanceRecordID)
	assert.Equal(t, int64(7), f.stock(t, part.ID))
}

func TestCreateSparePartUsage_InsufficientStock(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	part := entity.NewItem("FLT-001", "Filtro de aceite", entity.ItemKindSparePart, 4)
	f.db.addItem(part)
	record := entity.NewMaintenanceRecord("EXC-07", "cambio de aceite")
	f.db.addRecord(record)

	_, err := f.service.CreateSparePartUsage(ctx, part.ID, record.ID, 5)
	require.Error(t, err)
	assert.True(t, apperror.IsInsufficientStock(err))
	assert.Equal(t, int64(4), f.stock(t, part.ID))
}

func TestCreateSparePartUsage_ClosedRecordRejected(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	part := entity.NewItem("FLT-001", "Filtro de aceite", entity.ItemKindSparePart, 10)
	f.db.addItem(part)
	record := entity.NewMaintenanceRecord("EXC-07", "cambio de aceite")
	record.Close()
	f.db.addRecord(record)

	_, err := f.service.CreateSparePartUsage(ctx, part.ID, record.ID, 1)
	require.Error(t, err)

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeMaintenanceClosed, appErr.Code)
	assert.Equal(t, int64(10), f.stock(t, part.ID))
}

func TestCreateSparePartUsage_ProductRejected(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	product := entity.NewItem("GRV-001", "Gravilla", entity.ItemKindProduct, 100)
	f.db.addItem(product)
	record := entity.NewMaintenanceRecord("EXC-07", "cambio de aceite")
	f.db.addRecord(record)

	_, err := f.service.CreateSparePartUsage(ctx, product.ID, record.ID, 1)
	require.Error(t, err)
	assert.Equal(t, int64(100), f.stock(t, product.ID))
}

// --- Amendment ---

func TestUpdateSparePartUsage_IncreaseConsumesDifference(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	part := entity.NewItem("FLT-001", "Filtro de aceite", entity.ItemKindSparePart, 10)
	f.db.addItem(part)
	record := entity.NewMaintenanceRecord("EXC-07", "cambio de aceite")
	f.db.addRecord(record)

	m, err := f.service.CreateSparePartUsage(ctx, part.ID, record.ID, 3)
	require.NoError(t, err)
	require.Equal(t, int64(7), f.stock(t, part.ID))

	updated, err := f.service.UpdateSparePartUsage(ctx, m.ID, 5)
	require.NoError(t, err)

	// 3 -> 5 consumes exactly 2 more
	assert.Equal(t, int64(5), f.stock(t, part.ID))
	assert.Equal(t, types.Quantity(5), updated.Lines[0].Quantity)
	assert.Equal(t, m.Version+1, updated.Version)
}

func TestUpdateSparePartUsage_DecreaseReturnsDifference(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	part := entity.NewItem("FLT-001", "Filtro de aceite", entity.ItemKindSparePart, 10)
	f.db.addItem(part)
	record := entity.NewMaintenanceRecord("EXC-07", "cambio de aceite")
	f.db.addRecord(record)

	m, err := f.service.CreateSparePartUsage(ctx, part.ID, record.ID, 5)
	require.NoError(t, err)
	require.Equal(t, int64(5), f.stock(t, part.ID))

	_, err = f.service.UpdateSparePartUsage(ctx, m.ID, 2)
	require.NoError(t, err)

	// 5 -> 2 returns exactly 3
	assert.Equal(t, int64(8), f.stock(t, part.ID))
}

func TestUpdateSparePartUsage_ClosedRecordRejected(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	part := entity.NewItem("FLT-001", "Filtro de aceite", entity.ItemKindSparePart, 10)
	f.db.addItem(part)
	record := entity.NewMaintenanceRecord("EXC-07", "cambio de aceite")
	f.db.addRecord(record)

	m, err := f.service.CreateSparePartUsage(ctx, part.ID, record.ID, 3)
	require.NoError(t, err)

	record.Close()
	require.NoError(t, (&memMaintenanceRepo{db: f.db}).Update(ctx, record))

	_, err = f.service.UpdateSparePartUsage(ctx, m.ID, 5)
	require.Error(t, err)

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeMaintenanceClosed, appErr.Code)
	assert.Equal(t, int64(7), f.stock(t, part.ID))
}

func TestUpdateSparePartUsage_RejectsNonPositive(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	_, err := f.service.UpdateSparePartUsage(ctx, id.New(), 0)
	require.Error(t, err)

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)
}

func TestUpdateMovement_RequantifiesLines(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	item := entity.NewItem("GRV-001", "Gravilla", entity.ItemKindProduct, 100)
	f.db.addItem(item)

	m, err := f.service.CreateEntry(ctx, "Aridos SL", []EntryLine{
		{ItemID: item.ID, Quantity: 50, UnitPrice: types.MustMoney("12.50")},
	})
	require.NoError(t, err)
	require.Equal(t, int64(150), f.stock(t, item.ID))

	_, err = f.service.UpdateMovement(ctx, m.ID, []LineInput{
		{ItemID: item.ID, Quantity: 20, UnitPrice: types.MustMoney("12.50")},
	})
	require.NoError(t, err)

	// entry effect moved from +50 to +20
	assert.Equal(t, int64(120), f.stock(t, item.ID))
}

func TestUpdateMovement_SwapsItems(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	gravilla := entity.NewItem("GRV-001", "Gravilla", entity.ItemKindProduct, 100)
	arena := entity.NewItem("ARN-001", "Arena fina", entity.ItemKindProduct, 100)
	f.db.addItem(gravilla)
	f.db.addItem(arena)

	m, err := f.service.CreateExit(ctx, "Obras Paco", []ExitLine{
		{ItemID: gravilla.ID, Quantity: 10},
	})
	require.NoError(t, err)
	require.Equal(t, int64(90), f.stock(t, gravilla.ID))

	_, err = f.service.UpdateMovement(ctx, m.ID, []LineInput{
		{ItemID: arena.ID, Quantity: 10},
	})
	require.NoError(t, err)

	// gravilla's effect reversed, arena's applied
	assert.Equal(t, int64(100), f.stock(t, gravilla.ID))
	assert.Equal(t, int64(90), f.stock(t, arena.ID))
}

func TestUpdateMovement_UsageRejected(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	part := entity.NewItem("FLT-001", "Filtro de aceite", entity.ItemKindSparePart, 10)
	f.db.addItem(part)
	record := entity.NewMaintenanceRecord("EXC-07", "cambio de aceite")
	f.db.addRecord(record)

	m, err := f.service.CreateSparePartUsage(ctx, part.ID, record.ID, 3)
	require.NoError(t, err)

	_, err = f.service.UpdateMovement(ctx, m.ID, []LineInput{
		{ItemID: part.ID, Quantity: 5},
	})
	require.Error(t, err)
	assert.Equal(t, int64(7), f.stock(t, part.ID))
}

func TestUpdateMovement_ShortfallRollsBack(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	item := entity.NewItem("GRV-001", "Gravilla", entity.ItemKindProduct, 100)
	f.db.addItem(item)

	m, err := f.service.CreateEntry(ctx, "Aridos SL", []EntryLine{
		{ItemID: item.ID, Quantity: 50, UnitPrice: types.ZeroMoney()},
	})
	require.NoError(t, err)

	_, err = f.service.CreateExit(ctx, "Obras Paco", []ExitLine{
		{ItemID: item.ID, Quantity: 140},
	})
	require.NoError(t, err)
	require.Equal(t, int64(10), f.stock(t, item.ID))

	// shrinking the entry to 20 would need -30, but only 10 on hand
	_, err = f.service.UpdateMovement(ctx, m.ID, []LineInput{
		{ItemID: item.ID, Quantity: 20, UnitPrice: types.ZeroMoney()},
	})
	require.Error(t, err)
	assert.True(t, apperror.IsInsufficientStock(err))
	assert.Equal(t, int64(10), f.stock(t, item.ID))

	// movement unchanged
	stored, err := f.service.GetByID(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, types.Quantity(50), stored.Lines[0].Quantity)
}

// --- Deletion ---

func TestDeleteMovement_ReversesEffect(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	item := entity.NewItem("GRV-001", "Gravilla", entity.ItemKindProduct, 100)
	f.db.addItem(item)

	m, err := f.service.CreateExit(ctx, "Obras Paco", []ExitLine{
		{ItemID: item.ID, Quantity: 30},
	})
	require.NoError(t, err)
	require.Equal(t, int64(70), f.stock(t, item.ID))

	_, err = f.service.DeleteMovement(ctx, m.ID)
	require.NoError(t, err)

	assert.Equal(t, int64(100), f.stock(t, item.ID))

	_, err = f.service.GetByID(ctx, m.ID)
	assert.True(t, apperror.IsNotFound(err))
}

func TestDeleteEntry_SpentStockRejected(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	item := entity.NewItem("GRV-001", "Gravilla", entity.ItemKindProduct, 0)
	f.db.addItem(item)

	entry, err := f.service.CreateEntry(ctx, "Aridos SL", []EntryLine{
		{ItemID: item.ID, Quantity: 10, UnitPrice: types.ZeroMoney()},
	})
	require.NoError(t, err)

	_, err = f.service.CreateExit(ctx, "Obras Paco", []ExitLine{
		{ItemID: item.ID, Quantity: 8},
	})
	require.NoError(t, err)
	require.Equal(t, int64(2), f.stock(t, item.ID))

	// reversing the entry needs -10 but only 2 remain
	_, err = f.service.DeleteMovement(ctx, entry.ID)
	require.Error(t, err)
	assert.True(t, apperror.IsInsufficientStock(err))

	// entry still present, stock unchanged
	assert.Equal(t, int64(2), f.stock(t, item.ID))
	_, err = f.service.GetByID(ctx, entry.ID)
	require.NoError(t, err)
}

// --- Scenarios ---

func TestGravillaLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	item := entity.NewItem("GRV-001", "Gravilla", entity.ItemKindProduct, 100)
	f.db.addItem(item)

	entry, err := f.service.CreateEntry(ctx, "Aridos SL", []EntryLine{
		{ItemID: item.ID, Quantity: 50, UnitPrice: types.MustMoney("12.50")},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(150), f.stock(t, item.ID))

	exit, err := f.service.CreateExit(ctx, "Obras Paco", []ExitLine{
		{ItemID: item.ID, Quantity: 30},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(120), f.stock(t, item.ID))

	// reversing both movements restores the opening stock exactly
	_, err = f.service.DeleteMovement(ctx, exit.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(150), f.stock(t, item.ID))

	_, err = f.service.DeleteMovement(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(100), f.stock(t, item.ID))
}

func TestConcurrentExits_DrainToZero(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	const n = 50
	item := entity.NewItem("GRV-001", "Gravilla", entity.ItemKindProduct, n)
	f.db.addItem(item)

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.service.CreateExit(ctx, "Obras Paco", []ExitLine{
				{ItemID: item.ID, Quantity: 1},
			})
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err, "exit %d", i)
	}
	assert.Equal(t, int64(0), f.stock(t, item.ID))

	// the well is dry
	_, err := f.service.CreateExit(ctx, "Obras Paco", []ExitLine{
		{ItemID: item.ID, Quantity: 1},
	})
	require.Error(t, err)
	assert.True(t, apperror.IsInsufficientStock(err))
}

// conflictTxManager fails the first n transactions with a serialization
// conflict before delegating, the way a loaded database intermittently does.
type conflictTxManager struct {
	inner    *memTxManager
	failures int
	attempts int
}

func (t *conflictTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	t.attempts++
	if t.attempts <= t.failures {
		return apperror.NewConcurrentModification("transaction", "40001")
	}
	return t.inner.RunInTransaction(ctx, fn)
}

func newConflictFixture(failures int) (*fixture, *conflictTxManager) {
	db := newMemDB()
	items := &memItemStore{db: db}
	ledgerSvc := ledger.NewService(items)
	txm := &conflictTxManager{inner: &memTxManager{db: db}, failures: failures}
	svc := NewService(
		&memMovementStore{db: db},
		ledgerSvc,
		items,
		&memMaintenanceRepo{db: db},
		txm,
		numerator.NewMock(),
		nil,
	)
	return &fixture{db: db, service: svc, ledger: ledgerSvc}, txm
}

func TestCreateExit_RecoversFromTransientConflicts(t *testing.T) {
	ctx := context.Background()
	f, txm := newConflictFixture(2)
	item := entity.NewItem("GRV-001", "Gravilla", entity.ItemKindProduct, 100)
	f.db.addItem(item)

	_, err := f.service.CreateExit(ctx, "Obras Paco", []ExitLine{
		{ItemID: item.ID, Quantity: 30},
	})
	require.NoError(t, err)

	assert.Equal(t, 3, txm.attempts)
	assert.Equal(t, int64(70), f.stock(t, item.ID))
}

func TestCreateExit_GivesUpAfterBoundedConflictRetries(t *testing.T) {
	ctx := context.Background()
	f, txm := newConflictFixture(10)
	item := entity.NewItem("GRV-001", "Gravilla", entity.ItemKindProduct, 100)
	f.db.addItem(item)

	_, err := f.service.CreateExit(ctx, "Obras Paco", []ExitLine{
		{ItemID: item.ID, Quantity: 30},
	})
	require.Error(t, err)
	assert.True(t, apperror.IsConcurrentModification(err))

	assert.Equal(t, 3, txm.attempts)
	assert.Equal(t, int64(100), f.stock(t, item.ID))
}

func TestNumberSeriesPerKind(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	item := entity.NewItem("GRV-001", "Gravilla", entity.ItemKindProduct, 100)
	f.db.addItem(item)

	first, err := f.service.CreateEntry(ctx, "Aridos SL", []EntryLine{
		{ItemID: item.ID, Quantity: 1, UnitPrice: types.ZeroMoney()},
	})
	require.NoError(t, err)
	second, err := f.service.CreateEntry(ctx, "Aridos SL", []EntryLine{
		{ItemID: item.ID, Quantity: 1, UnitPrice: types.ZeroMoney()},
	})
	require.NoError(t, err)
	exit, err := f.service.CreateExit(ctx, "Obras Paco", []ExitLine{
		{ItemID: item.ID, Quantity: 1},
	})
	require.NoError(t, err)

	assert.NotEqual(t, first.Number, second.Number)
	assert.Equal(t, "ENT", first.Number[:3])
	assert.Equal(t, "EXT", exit.Number[:3])
}
