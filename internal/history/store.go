// Package history stores validation run summaries in PostgreSQL.
//
// The validator itself is stateless; the HTTP service records each report
// here when DATABASE_URL is configured so results can be fetched later by id.
package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/JonMunkholm/subcheck/internal/core"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrRunNotFound is returned by Get for an unknown id.
	ErrRunNotFound = errors.New("run not found")
	// ErrInvalidRunID is returned by Get when id is not a UUID.
	ErrInvalidRunID = errors.New("invalid run ID")
)

// DBTX is the interface for database operations.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	QueryRow(context.Context, string, ...any) pgx.Row
}

// Run is one stored validation.
type Run struct {
	ID        string      `json:"id"`
	Source    string      `json:"source"`
	Status    core.Status `json:"status"`
	Passed    bool        `json:"passed"`
	Report    core.Report `json:"report"`
	CreatedAt time.Time   `json:"createdAt"`
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS validation_runs (
	id         UUID PRIMARY KEY,
	source     TEXT NOT NULL,
	status     TEXT NOT NULL,
	passed     BOOLEAN NOT NULL,
	report     JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

const insertRunSQL = `
INSERT INTO validation_runs (id, source, status, passed, report, created_at)
VALUES ($1, $2, $3, $4, $5, $6)`

const getRunSQL = `
SELECT id, source, status, passed, report, created_at
FROM validation_runs
WHERE id = $1`

// Store reads and writes validation runs.
type Store struct {
	db  DBTX
	now func() time.Time
}

// NewStore creates a Store backed by db.
func NewStore(db DBTX) *Store {
	return &Store{db: db, now: time.Now}
}

// EnsureSchema creates the runs table if it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create validation_runs: %w", err)
	}
	return nil
}

// Record stores report and returns the new run.
func (s *Store) Record(ctx context.Context, report core.Report) (*Run, error) {
	id := uuid.New()

	payload, err := json.Marshal(report)
	if err != nil {
		return nil, fmt.Errorf("marshal report: %w", err)
	}

	run := &Run{
		ID:        id.String(),
		Source:    report.Source,
		Status:    report.Status,
		Passed:    report.Passed(),
		Report:    report,
		CreatedAt: s.now().UTC(),
	}

	if _, err := s.db.Exec(ctx, insertRunSQL,
		id, run.Source, string(run.Status), run.Passed, payload, run.CreatedAt,
	); err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	return run, nil
}

// Get returns the run with the given id.
func (s *Store) Get(ctx context.Context, id string) (*Run, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRunID, err)
	}

	var (
		run     Run
		rowID   uuid.UUID
		status  string
		payload []byte
	)
	err = s.db.QueryRow(ctx, getRunSQL, uid).Scan(&rowID, &run.Source, &status, &run.Passed, &payload, &run.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}

	if err := json.Unmarshal(payload, &run.Report); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	run.ID = rowID.String()
	run.Status = core.Status(status)
	return &run, nil
}
