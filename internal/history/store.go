// Package history records training runs in a SQLite database. Only summary
// statistics and periodic snapshots are stored; value tables live in their
// own files.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/coder/quartz"
	"github.com/google/uuid"
	"github.com/lox/blackjack-rl/internal/agent"
	_ "modernc.org/sqlite"
)

var (
	// ErrNotFound is returned when no run matches an id
	ErrNotFound = errors.New("run not found")
	// ErrAmbiguous is returned when an id prefix matches several runs
	ErrAmbiguous = errors.New("run id prefix is ambiguous")
)

// Run is one recorded training run
type Run struct {
	ID          string
	Session     string
	Agent       string
	Seed        int64
	Episodes    int
	Wins        int
	Losses      int
	Draws       int
	Hits        int
	Stands      int
	TotalReward float64
	Epsilon     float64
	TableSize   int
	ModelPath   string
	Interrupted bool
	CreatedAt   time.Time

	Snapshots []agent.Snapshot
}

// WinRate returns wins over episodes
func (r *Run) WinRate() float64 {
	if r.Episodes == 0 {
		return 0
	}
	return float64(r.Wins) / float64(r.Episodes)
}

// NewRun fills a Run from a training result
func NewRun(session, agentName string, seed int64, res *agent.Result) *Run {
	return &Run{
		Session:     session,
		Agent:       agentName,
		Seed:        seed,
		Episodes:    res.Episodes(),
		Wins:        res.Wins,
		Losses:      res.Losses,
		Draws:       res.Draws,
		Hits:        res.Hits,
		Stands:      res.Stands,
		TotalReward: res.TotalReward(),
		Snapshots:   res.Snapshots,
	}
}

// NewSessionID returns a sortable, unique id for a training session
func NewSessionID(clock quartz.Clock) string {
	return clock.Now().UTC().Format("20060102T150405") + "-" + uuid.NewString()[:8]
}

// Store is the SQLite backed run history
type Store struct {
	db    *sql.DB
	clock quartz.Clock
}

// Open opens (creating if needed) the database at path and migrates it
func Open(path string, clock quartz.Clock) (*Store, error) {
	if clock == nil {
		clock = quartz.NewReal()
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// a single writer keeps sqlite from returning SQLITE_BUSY
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s := &Store{db: db, clock: clock}
	if err := s.Migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate creates the schema if it does not exist
func (s *Store) Migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			session TEXT NOT NULL,
			agent TEXT NOT NULL,
			seed INTEGER NOT NULL,
			episodes INTEGER NOT NULL,
			wins INTEGER NOT NULL,
			losses INTEGER NOT NULL,
			draws INTEGER NOT NULL,
			hits INTEGER NOT NULL,
			stands INTEGER NOT NULL,
			total_reward REAL NOT NULL,
			epsilon REAL NOT NULL,
			table_size INTEGER NOT NULL,
			model_path TEXT NOT NULL DEFAULT '',
			interrupted INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS snapshots (
			run_id TEXT NOT NULL,
			episode INTEGER NOT NULL,
			win_rate REAL NOT NULL,
			epsilon REAL NOT NULL,
			alpha REAL NOT NULL,
			total_reward REAL NOT NULL,
			table_size INTEGER NOT NULL,
			PRIMARY KEY (run_id, episode),
			FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_agent ON runs(agent)`,
	}
	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// SaveRun inserts a run and its snapshots. An empty ID is assigned a new
// UUID and a zero CreatedAt is set from the store's clock.
func (s *Store) SaveRun(ctx context.Context, run *Run) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = s.clock.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `INSERT INTO runs (
		id, session, agent, seed, episodes, wins, losses, draws, hits, stands,
		total_reward, epsilon, table_size, model_path, interrupted, created_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Session, run.Agent, run.Seed, run.Episodes, run.Wins, run.Losses, run.Draws,
		run.Hits, run.Stands, run.TotalReward, run.Epsilon, run.TableSize, run.ModelPath,
		boolToInt(run.Interrupted), run.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO snapshots (
		run_id, episode, win_rate, epsilon, alpha, total_reward, table_size
	) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, snap := range run.Snapshots {
		if _, err := stmt.ExecContext(ctx, run.ID, snap.Episode, snap.WinRate, snap.Epsilon,
			snap.Alpha, snap.TotalReward, snap.TableSize); err != nil {
			return fmt.Errorf("insert snapshot: %w", err)
		}
	}
	return tx.Commit()
}

const runColumns = `id, session, agent, seed, episodes, wins, losses, draws, hits, stands,
	total_reward, epsilon, table_size, model_path, interrupted, created_at`

// timeLayout is fixed width so that created_at sorts as text
const timeLayout = "2006-01-02T15:04:05.000000000Z"

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	var (
		run         Run
		interrupted int
		createdAt   string
	)
	err := row.Scan(&run.ID, &run.Session, &run.Agent, &run.Seed, &run.Episodes, &run.Wins,
		&run.Losses, &run.Draws, &run.Hits, &run.Stands, &run.TotalReward, &run.Epsilon,
		&run.TableSize, &run.ModelPath, &interrupted, &createdAt)
	if err != nil {
		return nil, err
	}
	run.Interrupted = interrupted != 0
	run.CreatedAt, err = time.Parse(timeLayout, createdAt)
	if err != nil {
		return nil, fmt.Errorf("run %s has invalid created_at %q: %w", run.ID, createdAt, err)
	}
	return &run, nil
}

// ListRuns returns the most recent runs first, without snapshots. A
// non-empty agentName filters by agent.
func (s *Store) ListRuns(ctx context.Context, agentName string, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `SELECT ` + runColumns + ` FROM runs`
	args := []any{}
	if agentName != "" {
		query += ` WHERE agent = ?`
		args = append(args, agentName)
	}
	query += ` ORDER BY created_at DESC, id LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetRun returns a run and its snapshots. id may be a unique prefix.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	if id == "" {
		return nil, ErrNotFound
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs WHERE id = ? OR substr(id, 1, ?) = ? ORDER BY id = ? DESC LIMIT 2`,
		id, len(id), id, id)
	if err != nil {
		return nil, err
	}
	var matches []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		matches = append(matches, run)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	switch {
	case len(matches) == 0:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	case len(matches) > 1 && matches[0].ID != id:
		return nil, fmt.Errorf("%w: %s", ErrAmbiguous, id)
	}
	run := matches[0]

	snaps, err := s.snapshots(ctx, run.ID)
	if err != nil {
		return nil, err
	}
	run.Snapshots = snaps
	return run, nil
}

func (s *Store) snapshots(ctx context.Context, runID string) ([]agent.Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT episode, win_rate, epsilon, alpha, total_reward, table_size
		FROM snapshots WHERE run_id = ? ORDER BY episode`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snaps []agent.Snapshot
	for rows.Next() {
		var snap agent.Snapshot
		if err := rows.Scan(&snap.Episode, &snap.WinRate, &snap.Epsilon, &snap.Alpha,
			&snap.TotalReward, &snap.TableSize); err != nil {
			return nil, err
		}
		snaps = append(snaps, snap)
	}
	return snaps, rows.Err()
}

// DeleteRun removes a run and its snapshots
func (s *Store) DeleteRun(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM snapshots WHERE run_id = ?`, id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return tx.Commit()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
