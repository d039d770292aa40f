package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"net/url"

	"github.com/pressly/goose/v3"
	// SQLite driver.
	_ "modernc.org/sqlite"

	"github.com/NordCoder/Feedwatch/internal/domain/state"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const driver = "sqlite"

const (
	qLoad = `
SELECT last_event_id, validator, poll_interval_ms
FROM poller_state
WHERE fingerprint = ?;`

	qSave = `
INSERT INTO poller_state (fingerprint, last_event_id, validator, poll_interval_ms, updated_at)
VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
ON CONFLICT (fingerprint) DO UPDATE
SET last_event_id    = excluded.last_event_id,
    validator        = excluded.validator,
    poll_interval_ms = excluded.poll_interval_ms,
    updated_at       = CURRENT_TIMESTAMP;`
)

// Store persists poller state in a local SQLite database.
type Store struct {
	db *sql.DB
}

var _ state.Store = (*Store)(nil)

// Open opens (creating if needed) the database at path and applies migrations.
func Open(path string) (*Store, error) {
	if path == "" {
		path = "feedwatch.sqlite"
	}
	db, err := sql.Open(driver, dsn(path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect(driver); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate sqlite: %w", err)
	}

	return &Store{db: db}, nil
}

func dsn(path string) string {
	values := url.Values{}
	values.Add("_pragma", "journal_mode(WAL)")
	values.Add("_pragma", "synchronous(NORMAL)")
	values.Add("_pragma", "busy_timeout(5000)")
	return fmt.Sprintf("file:%s?%s", path, values.Encode())
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Load(ctx context.Context, fp state.Fingerprint) (state.State, bool, error) {
	var (
		last, interval int64
		st             state.State
	)
	err := s.db.QueryRowContext(ctx, qLoad, string(fp)).Scan(&last, &st.Validator, &interval)
	if errors.Is(err, sql.ErrNoRows) {
		return state.State{}, false, nil
	}
	if err != nil {
		return state.State{}, false, fmt.Errorf("%w: load %s: %w", state.ErrPersistence, fp, err)
	}
	st.LastEventID = uint64(last)
	st.PollIntervalMillis = uint64(interval)
	return st, true, nil
}

func (s *Store) Save(ctx context.Context, fp state.Fingerprint, st state.State) error {
	last, poll, err := st.SQLColumns()
	if err != nil {
		return fmt.Errorf("%w: save %s: %w", state.ErrPersistence, fp, err)
	}
	_, err = s.db.ExecContext(ctx, qSave, string(fp), last, st.Validator, poll)
	if err != nil {
		return fmt.Errorf("%w: save %s: %w", state.ErrPersistence, fp, err)
	}
	return nil
}
