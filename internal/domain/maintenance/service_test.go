package maintenance

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taller/internal/core/apperror"
	"taller/internal/core/entity"
	"taller/internal/core/id"
)

type fakeRepo struct {
	records map[id.ID]*entity.MaintenanceRecord
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{records: make(map[id.ID]*entity.MaintenanceRecord)}
}

func (r *fakeRepo) Create(_ context.Context, rec *entity.MaintenanceRecord) error {
	copied := *rec
	r.records[rec.ID] = &copied
	return nil
}

func (r *fakeRepo) GetByID(_ context.Context, recordID id.ID) (*entity.MaintenanceRecord, error) {
	rec, ok := r.records[recordID]
	if !ok {
		return nil, apperror.NewNotFound("MaintenanceRecord", recordID.String())
	}
	copied := *rec
	return &copied, nil
}

func (r *fakeRepo) Update(_ context.Context, rec *entity.MaintenanceRecord) error {
	if _, ok := r.records[rec.ID]; !ok {
		return apperror.NewNotFound("MaintenanceRecord", rec.ID.String())
	}
	copied := *rec
	r.records[rec.ID] = &copied
	return nil
}

func (r *fakeRepo) List(_ context.Context, _, _ int) ([]entity.MaintenanceRecord, error) {
	var result []entity.MaintenanceRecord
	for _, rec := range r.records {
		result = append(result, *rec)
	}
	return result, nil
}

func TestOpenAndClose(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newFakeRepo())

	record, err := svc.Open(ctx, "EXC-07", "cambio de aceite")
	require.NoError(t, err)
	assert.Equal(t, entity.MaintenanceStatusOpen, record.Status)
	assert.Nil(t, record.ClosedAt)

	closed, err := svc.Close(ctx, record.ID)
	require.NoError(t, err)
	assert.True(t, closed.IsClosed())
	require.NotNil(t, closed.ClosedAt)
}

func TestOpen_RequiresMachineRef(t *testing.T) {
	svc := NewService(newFakeRepo())

	_, err := svc.Open(context.Background(), "", "cambio de aceite")
	require.Error(t, err)

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)
}

func TestClose_AlreadyClosed(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newFakeRepo())

	record, err := svc.Open(ctx, "EXC-07", "")
	require.NoError(t, err)

	_, err = svc.Close(ctx, record.ID)
	require.NoError(t, err)

	_, err = svc.Close(ctx, record.ID)
	require.Error(t, err)

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeMaintenanceClosed, appErr.Code)
}

func TestClose_Unknown(t *testing.T) {
	svc := NewService(newFakeRepo())

	_, err := svc.Close(context.Background(), id.New())
	assert.True(t, apperror.IsNotFound(err))
}
