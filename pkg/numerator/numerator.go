// Package numerator provides movement auto-numbering.
package numerator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
)

// Generator produces the next document number for a prefix.
type Generator interface {
	// NextNumber returns the next number in PREFIX-YEAR-XXXXX form.
	// The counter resets each year.
	NextNumber(ctx context.Context, cfg Config, period time.Time) (string, error)
}

// Config controls number formatting.
type Config struct {
	// Prefix identifies the document series (ENT, EXT, USO).
	Prefix string
	// PadWidth is the zero-padded width of the sequence part.
	PadWidth int
}

// DefaultConfig returns the standard yearly series for a prefix.
func DefaultConfig(prefix string) Config {
	return Config{
		Prefix:   prefix,
		PadWidth: 5,
	}
}

// Querier interface for database operations.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Service generates numbers from a sys_sequences table using
// UPSERT + RETURNING. Allocation is atomic and strictly increasing;
// a number allocated for an operation that later fails is not reused,
// so series can have gaps.
type Service struct {
	querier Querier
}

// New creates a numerator service over the given querier.
func New(querier Querier) *Service {
	return &Service{querier: querier}
}

var _ Generator = (*Service)(nil)

// NextNumber implements Generator.
func (s *Service) NextNumber(ctx context.Context, cfg Config, period time.Time) (string, error) {
	var num int64
	err := s.querier.QueryRow(ctx, `
        INSERT INTO sys_sequences (sequence_type, year, current_val)
        VALUES ($1, $2, 1)
        ON CONFLICT (sequence_type, year) DO UPDATE SET current_val = sys_sequences.current_val + 1
        RETURNING current_val
	`, cfg.Prefix, period.Year()).Scan(&num)
	if err != nil {
		return "", fmt.Errorf("next number: %w", err)
	}

	return formatNumber(cfg, period, num), nil
}

func formatNumber(cfg Config, period time.Time, num int64) string {
	pad := cfg.PadWidth
	if pad <= 0 {
		pad = 5
	}
	return fmt.Sprintf("%s-%d-%0*d", cfg.Prefix, period.Year(), pad, num)
}

// Mock is an in-memory Generator for tests. Safe for concurrent use.
type Mock struct {
	mu       sync.Mutex
	counters map[string]int64
}

// NewMock creates a mock numerator.
func NewMock() *Mock {
	return &Mock{counters: make(map[string]int64)}
}

var _ Generator = (*Mock)(nil)

// NextNumber implements Generator without touching a database.
func (m *Mock) NextNumber(_ context.Context, cfg Config, period time.Time) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := fmt.Sprintf("%s_%d", cfg.Prefix, period.Year())
	m.counters[key]++
	return formatNumber(cfg, period, m.counters[key]), nil
}
