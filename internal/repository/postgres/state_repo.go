package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/NordCoder/Feedwatch/internal/domain/state"
)

var _ state.Store = (*StateRepoImpl)(nil)

type StateRepoImpl struct {
	db *DB
}

func NewStateRepo(db *DB) *StateRepoImpl { return &StateRepoImpl{db: db} }

const (
	qLoadState = `
SELECT last_event_id, validator, poll_interval_ms
FROM poller_state
WHERE fingerprint = $1;
`

	qSaveState = `
INSERT INTO poller_state (fingerprint, last_event_id, validator, poll_interval_ms, updated_at)
VALUES ($1, $2, $3, $4, NOW())
ON CONFLICT (fingerprint) DO UPDATE
SET last_event_id    = EXCLUDED.last_event_id,
    validator        = EXCLUDED.validator,
    poll_interval_ms = EXCLUDED.poll_interval_ms,
    updated_at       = NOW();
`
)

func (r *StateRepoImpl) Load(ctx context.Context, fp state.Fingerprint) (state.State, bool, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var (
		last, interval int64
		st             state.State
	)
	err := r.db.Pool.QueryRow(ctx, qLoadState, string(fp)).Scan(&last, &st.Validator, &interval)
	if errors.Is(err, pgx.ErrNoRows) {
		return state.State{}, false, nil
	}
	if err != nil {
		return state.State{}, false, fmt.Errorf("%w: load %s: %w", state.ErrPersistence, fp, err)
	}
	st.LastEventID = uint64(last)
	st.PollIntervalMillis = uint64(interval)
	return st, true, nil
}

func (r *StateRepoImpl) Save(ctx context.Context, fp state.Fingerprint, st state.State) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	last, poll, err := st.SQLColumns()
	if err != nil {
		return fmt.Errorf("%w: save %s: %w", state.ErrPersistence, fp, err)
	}
	_, err = r.db.Pool.Exec(ctx, qSaveState, string(fp), last, st.Validator, poll)
	if err != nil {
		// 23514 check_violation
		if pgCode(err) == "23514" {
			return fmt.Errorf("%w: save %s: %w", state.ErrPersistence, fp, ErrConstraint)
		}
		return fmt.Errorf("%w: save %s: %w", state.ErrPersistence, fp, err)
	}
	return nil
}
