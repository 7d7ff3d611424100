package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/klauspost/compress/zstd"

	"taller/internal/core/apperror"
	"taller/internal/core/entity"
	"taller/internal/core/id"
	"taller/internal/domain/movements"
)

// CompressionAlgo specifies the compression algorithm used for a payload.
type CompressionAlgo string

const (
	CompressionNone CompressionAlgo = "none"
	CompressionZstd CompressionAlgo = "zstd"
)

// AuditService records movement lifecycle changes in sys_audit. It writes
// through GetQuerier, so inside the coordinator's transaction the trail
// commits and rolls back with the movement itself.
type AuditService struct {
	txManager         *TxManager
	encoder           *zstd.Encoder
	decoder           *zstd.Decoder
	compressThreshold int // bytes
}

// NewAuditService creates a new audit service.
func NewAuditService(txManager *TxManager) (*AuditService, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}

	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}

	return &AuditService{
		txManager:         txManager,
		encoder:           encoder,
		decoder:           decoder,
		compressThreshold: 10 * 1024,
	}, nil
}

var _ movements.Auditor = (*AuditService)(nil)
var _ movements.AuditReader = (*AuditService)(nil)

// Log implements movements.Auditor. The movement snapshot is stored as
// JSON; payloads above the threshold are zstd-compressed.
func (s *AuditService) Log(ctx context.Context, action movements.AuditAction, m *entity.Movement) error {
	changes, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal movement: %w", err)
	}

	var compressed []byte
	algo := CompressionNone
	if len(changes) > s.compressThreshold {
		compressed = s.encoder.EncodeAll(changes, nil)
		changes = nil
		algo = CompressionZstd
	}

	sql := `
		INSERT INTO sys_audit (
			id, entity_type, entity_id, action,
			changes, changes_compressed, compression_algo, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	querier := s.txManager.GetQuerier(ctx)
	_, err = querier.Exec(ctx, sql,
		id.New(), "Movement", m.ID, string(action),
		changes, compressed, algo, time.Now().UTC(),
	)
	if err != nil {
		return apperror.NewDatabase(fmt.Errorf("insert audit entry: %w", err))
	}

	return nil
}

// Changes returns the decoded snapshot of an audit payload.
func (s *AuditService) Changes(raw []byte, compressed []byte, algo CompressionAlgo) (json.RawMessage, error) {
	if algo != CompressionZstd {
		return raw, nil
	}
	decoded, err := s.decoder.DecodeAll(compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("decompress audit payload: %w", err)
	}
	return decoded, nil
}

// History implements movements.AuditReader: the recorded trail of one
// movement, oldest first, payloads decoded.
func (s *AuditService) History(ctx context.Context, movementID id.ID) ([]movements.AuditEntry, error) {
	sql := `
		SELECT id, action, changes, changes_compressed, compression_algo, created_at
		FROM sys_audit
		WHERE entity_type = 'Movement' AND entity_id = $1
		ORDER BY created_at
	`

	querier := s.txManager.GetQuerier(ctx)
	rows, err := querier.Query(ctx, sql, movementID)
	if err != nil {
		return nil, apperror.NewDatabase(fmt.Errorf("select audit entries: %w", err))
	}
	defer rows.Close()

	var entries []movements.AuditEntry
	for rows.Next() {
		var (
			entry      movements.AuditEntry
			raw        []byte
			compressed []byte
			algo       CompressionAlgo
		)
		if err := rows.Scan(&entry.ID, &entry.Action, &raw, &compressed, &algo, &entry.CreatedAt); err != nil {
			return nil, apperror.NewDatabase(fmt.Errorf("scan audit entry: %w", err))
		}

		entry.Changes, err = s.Changes(raw, compressed, algo)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.NewDatabase(fmt.Errorf("iterate audit entries: %w", err))
	}

	return entries, nil
}
