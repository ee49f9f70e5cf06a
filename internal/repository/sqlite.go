package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/leanflow/agentengine/internal/domain"
)

const runColumns = `run_id, session_id, agent_type, input_hash, inputs, outputs, error, model, provider, created_by, status, created_at, started_at, completed_at`

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// For in-memory SQLite, multiple connections create separate databases.
	// Keep a single connection to avoid schema/data disappearing across goroutines.
	if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// migrate runs database migrations.
func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			agent_type TEXT NOT NULL,
			input_hash TEXT NOT NULL,
			inputs TEXT NOT NULL,
			outputs TEXT,
			error TEXT,
			model TEXT,
			provider TEXT,
			created_by TEXT,
			status TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			started_at DATETIME,
			completed_at DATETIME
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_session ON runs(session_id, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_cache ON runs(session_id, agent_type, input_hash, status, completed_at)`,
		`CREATE TABLE IF NOT EXISTS events (
			event_id TEXT PRIMARY KEY,
			run_id TEXT NOT NULL,
			ts INTEGER NOT NULL,
			type TEXT NOT NULL,
			payload TEXT,
			FOREIGN KEY (run_id) REFERENCES runs(run_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_run ON events(run_id, ts)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\n%s", err, m)
		}
	}

	// Databases created before created_by existed.
	return s.ensureColumn("runs", "created_by", "ALTER TABLE runs ADD COLUMN created_by TEXT")
}

func (s *SQLiteStore) ensureColumn(tableName, columnName, ddl string) error {
	rows, err := s.db.Query(fmt.Sprintf("PRAGMA table_info(%s)", tableName))
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull int
		var dfltValue sql.NullString
		var pk int
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dfltValue, &pk); err != nil {
			return err
		}
		if name == columnName {
			return nil
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	_, err = s.db.Exec(ddl)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateRun inserts a new run row.
func (s *SQLiteStore) CreateRun(ctx context.Context, run *domain.Run) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (`+runColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.RunID, run.SessionID, run.AgentType, run.InputHash, string(run.Inputs),
		nullStringBytes(run.Outputs), nullString(run.Error), nullString(run.Model), nullString(run.Provider),
		nullString(run.CreatedBy), run.Status, run.CreatedAt, nullTime(run.StartedAt), nullTime(run.CompletedAt))
	return err
}

// GetRun retrieves a run by ID. A missing run is (nil, nil).
func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*domain.Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE run_id = ?`, runID)
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

// MarkRunRunning moves a queued run to running.
func (s *SQLiteStore) MarkRunRunning(ctx context.Context, runID string, startedAt time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, started_at = ? WHERE run_id = ? AND status = ?`,
		domain.RunStatusRunning, startedAt, runID, domain.RunStatusQueued)
	if err != nil {
		return false, err
	}
	return affected(res)
}

// CompleteRun moves a running run to succeeded and stores its outputs.
func (s *SQLiteStore) CompleteRun(ctx context.Context, runID string, outputs []byte, model, provider string, completedAt time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, outputs = ?, model = ?, provider = ?, completed_at = ?
		 WHERE run_id = ? AND status = ?`,
		domain.RunStatusSucceeded, string(outputs), nullString(model), nullString(provider), completedAt,
		runID, domain.RunStatusRunning)
	if err != nil {
		return false, err
	}
	return affected(res)
}

// FailRun moves a non-terminal run to failed.
func (s *SQLiteStore) FailRun(ctx context.Context, runID string, message, model, provider string, completedAt time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, error = ?, model = COALESCE(?, model), provider = COALESCE(?, provider), completed_at = ?
		 WHERE run_id = ? AND status IN (?, ?)`,
		domain.RunStatusFailed, message, nullString(model), nullString(provider), completedAt,
		runID, domain.RunStatusQueued, domain.RunStatusRunning)
	if err != nil {
		return false, err
	}
	return affected(res)
}

// FindLatestSucceededRun returns the most recently completed succeeded run
// for the idempotency key, or (nil, nil).
func (s *SQLiteStore) FindLatestSucceededRun(ctx context.Context, sessionID string, agentType domain.AgentType, inputHash string) (*domain.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+runColumns+` FROM runs
		 WHERE session_id = ? AND agent_type = ? AND input_hash = ? AND status = ?
		 ORDER BY completed_at DESC, created_at DESC LIMIT 1`,
		sessionID, agentType, inputHash, domain.RunStatusSucceeded)
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

// ListRuns lists runs newest first.
func (s *SQLiteStore) ListRuns(ctx context.Context, filter domain.RunFilter) ([]domain.Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE 1 = 1`
	var args []interface{}

	if filter.SessionID != "" {
		query += ` AND session_id = ?`
		args = append(args, filter.SessionID)
	}
	if filter.AgentType != "" {
		query += ` AND agent_type = ?`
		args = append(args, filter.AgentType)
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, filter.Status)
	}

	query += ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []domain.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// ListStaleRuns lists non-terminal runs created before the cutoff, oldest first.
func (s *SQLiteStore) ListStaleRuns(ctx context.Context, createdBefore time.Time, limit int) ([]domain.Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs
		WHERE status IN (?, ?) AND created_at < ?
		ORDER BY created_at ASC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, query, domain.RunStatusQueued, domain.RunStatusRunning, createdBefore)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []domain.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// CreateEvent creates a new event.
func (s *SQLiteStore) CreateEvent(ctx context.Context, event *domain.Event) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO events (event_id, run_id, ts, type, payload) VALUES (?, ?, ?, ?, ?)`,
		event.EventID, event.RunID, event.Ts, event.Type, nullStringBytes(event.Payload))
	return err
}

// GetEvents retrieves events for a run.
func (s *SQLiteStore) GetEvents(ctx context.Context, runID string, afterTs int64, types []string, limit int) ([]domain.Event, error) {
	query := `SELECT event_id, run_id, ts, type, payload FROM events WHERE run_id = ?`
	args := []interface{}{runID}

	if afterTs > 0 {
		query += ` AND ts > ?`
		args = append(args, afterTs)
	}

	if len(types) > 0 {
		placeholders := make([]string, len(types))
		for i, t := range types {
			placeholders[i] = "?"
			args = append(args, t)
		}
		query += fmt.Sprintf(" AND type IN (%s)", strings.Join(placeholders, ","))
	}

	query += ` ORDER BY ts ASC, rowid ASC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		var event domain.Event
		var payload sql.NullString
		if err := rows.Scan(&event.EventID, &event.RunID, &event.Ts, &event.Type, &payload); err != nil {
			return nil, err
		}
		if payload.Valid && payload.String != "" {
			event.Payload = json.RawMessage(payload.String)
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row rowScanner) (*domain.Run, error) {
	var run domain.Run
	var inputs string
	var outputs, errMsg, model, provider, createdBy sql.NullString
	var startedAt, completedAt sql.NullTime
	err := row.Scan(&run.RunID, &run.SessionID, &run.AgentType, &run.InputHash, &inputs,
		&outputs, &errMsg, &model, &provider, &createdBy, &run.Status, &run.CreatedAt, &startedAt, &completedAt)
	if err != nil {
		return nil, err
	}
	run.Inputs = json.RawMessage(inputs)
	if outputs.Valid {
		run.Outputs = json.RawMessage(outputs.String)
	}
	run.Error = errMsg.String
	run.Model = model.String
	run.Provider = provider.String
	run.CreatedBy = createdBy.String
	if startedAt.Valid {
		run.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		run.CompletedAt = &completedAt.Time
	}
	return &run, nil
}

func affected(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullStringBytes(b []byte) sql.NullString {
	if len(b) == 0 {
		return sql.NullString{}
	}
	return sql.NullString{String: string(b), Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
