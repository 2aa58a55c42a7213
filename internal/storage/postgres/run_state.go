package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"bizintel/internal/domain"
)

type RunStateStore struct {
	db *sqlx.DB
}

func NewRunStateStore(db *sqlx.DB) *RunStateStore {
	return &RunStateStore{db: db}
}

// Get returns the run state of persona, or a zero state for a persona that
// has never run.
func (s *RunStateStore) Get(ctx context.Context, persona string) (*domain.RunState, error) {
	var state domain.RunState
	query := `
		SELECT persona, last_run_at, last_report_id, total_runs
		FROM run_state
		WHERE persona = $1`

	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &state, query, persona)
	if errors.Is(err, sql.ErrNoRows) {
		return &domain.RunState{Persona: persona}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select run state: %w", err)
	}
	return &state, nil
}

func (s *RunStateStore) Update(ctx context.Context, state *domain.RunState) error {
	query := `
		INSERT INTO run_state (persona, last_run_at, last_report_id, total_runs)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (persona) DO UPDATE SET
			last_run_at = EXCLUDED.last_run_at,
			last_report_id = EXCLUDED.last_report_id,
			total_runs = EXCLUDED.total_runs`

	_, err := GetExecutor(ctx, s.db).ExecContext(ctx, query,
		state.Persona,
		state.LastRunAt,
		state.LastReportID,
		state.TotalRuns,
	)
	if err != nil {
		return fmt.Errorf("upsert run state: %w", err)
	}
	return nil
}
