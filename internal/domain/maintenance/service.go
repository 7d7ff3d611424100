package maintenance

import (
	"context"

	"taller/internal/core/apperror"
	"taller/internal/core/entity"
	"taller/internal/core/id"
	"taller/pkg/logger"
)

// Service provides business operations for maintenance records.
type Service struct {
	repo Repository
}

// NewService creates a new maintenance service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Open creates a new open work order.
func (s *Service) Open(ctx context.Context, machineRef, description string) (*entity.MaintenanceRecord, error) {
	record := entity.NewMaintenanceRecord(machineRef, description)
	if err := record.Validate(ctx); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, record); err != nil {
		return nil, err
	}

	logger.Info(ctx, "maintenance record opened",
		"id", record.ID,
		"machine_ref", record.MachineRef,
	)

	return record, nil
}

// GetByID retrieves a record.
func (s *Service) GetByID(ctx context.Context, recordID id.ID) (*entity.MaintenanceRecord, error) {
	return s.repo.GetByID(ctx, recordID)
}

// Close finalizes a record. Closed records reject further spare part usages.
func (s *Service) Close(ctx context.Context, recordID id.ID) (*entity.MaintenanceRecord, error) {
	record, err := s.repo.GetByID(ctx, recordID)
	if err != nil {
		return nil, err
	}

	if record.IsClosed() {
		return nil, apperror.NewMaintenanceClosed(recordID.String())
	}

	record.Close()
	if err := s.repo.Update(ctx, record); err != nil {
		return nil, err
	}

	logger.Info(ctx, "maintenance record closed", "id", record.ID)

	return record, nil
}

// List returns records, newest first.
func (s *Service) List(ctx context.Context, limit, offset int) ([]entity.MaintenanceRecord, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.repo.List(ctx, limit, offset)
}
