package history

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3" // Registers the sqlite3 driver.

	"github.com/oshokin/server-launcher/internal/domain/launch"
)

// Repository defines persistence operations for the run history.
type Repository interface {
	Start(ctx context.Context, run *launch.Run) error
	Finish(ctx context.Context, run *launch.Run) error
	Recent(ctx context.Context, limit int) ([]*launch.Run, error)
	Close() error
}

// DefaultRecentLimit is used when Recent is called with a non-positive limit.
const DefaultRecentLimit = 20

var (
	errRunIsNotSet = errors.New("run is not set")
	errRunIDEmpty  = errors.New("run id is empty")
	errRunUnknown  = errors.New("run not found")
)

const runSchema = `
CREATE TABLE IF NOT EXISTS run_v1 (
	id TEXT PRIMARY KEY NOT NULL,
	started_at INTEGER NOT NULL,
	finished_at INTEGER NOT NULL DEFAULT 0,
	hostname TEXT NOT NULL DEFAULT '',
	username TEXT NOT NULL DEFAULT '',
	runtime_installed INTEGER NOT NULL DEFAULT 0,
	artifact_fetched INTEGER NOT NULL DEFAULT 0,
	download_url TEXT NOT NULL DEFAULT '',
	outcome TEXT NOT NULL,
	exit_code INTEGER NOT NULL DEFAULT 0,
	message TEXT NOT NULL DEFAULT ''
);
`

const insertRunV1Sql = `
INSERT INTO run_v1 (id, started_at, hostname, username, outcome)
VALUES (?, ?, ?, ?, ?);
`

const finishRunV1Sql = `
UPDATE run_v1
SET finished_at = ?, runtime_installed = ?, artifact_fetched = ?, download_url = ?,
	outcome = ?, exit_code = ?, message = ?
WHERE id = ?;
`

const recentRunsV1Sql = `
SELECT id, started_at, finished_at, hostname, username, runtime_installed, artifact_fetched,
	download_url, outcome, exit_code, message
FROM run_v1 ORDER BY started_at DESC, rowid DESC LIMIT ?;
`

// runRow is the database representation of a run.
type runRow struct {
	ID               string `db:"id"`
	StartedAt        int64  `db:"started_at"`
	FinishedAt       int64  `db:"finished_at"`
	Hostname         string `db:"hostname"`
	Username         string `db:"username"`
	RuntimeInstalled bool   `db:"runtime_installed"`
	ArtifactFetched  bool   `db:"artifact_fetched"`
	DownloadURL      string `db:"download_url"`
	Outcome          string `db:"outcome"`
	ExitCode         int    `db:"exit_code"`
	Message          string `db:"message"`
}

// SQLRepository persists runs in a SQLite database.
type SQLRepository struct {
	// db is the open database handle.
	db *sqlx.DB
	// mu serialises writes; SQLite allows a single writer.
	mu sync.Mutex
}

// Open opens or creates the database at path and ensures the schema exists.
func Open(path string) (*SQLRepository, error) {
	path = filepath.Clean(path)

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil { //nolint:mnd // Regular directory permissions.
			return nil, fmt.Errorf("create history directory: %w", err)
		}
	}

	db, err := sqlx.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}

	db.SetMaxOpenConns(1)

	if _, err = db.Exec(runSchema); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("init history schema: %w", err)
	}

	return &SQLRepository{db: db}, nil
}

// Close releases the database handle.
func (r *SQLRepository) Close() error {
	return r.db.Close()
}

// Start records a run that has just begun. A run without an ID is assigned one.
func (r *SQLRepository) Start(ctx context.Context, run *launch.Run) error {
	if run == nil {
		return errRunIsNotSet
	}

	if run.ID == "" {
		run.ID = uuid.NewString()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var hostname, username string
	if run.Actor != nil {
		hostname, username = run.Actor.Hostname, run.Actor.Username
	}

	outcome := run.Outcome
	if outcome == "" {
		outcome = launch.OutcomeRunning
	}

	if _, err := r.db.ExecContext(ctx, insertRunV1Sql,
		run.ID, toUnix(run.StartedAt), hostname, username, outcome); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	return nil
}

// Finish stores the final state of a run previously passed to Start.
func (r *SQLRepository) Finish(ctx context.Context, run *launch.Run) error {
	if err := checkRun(run); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	result, err := r.db.ExecContext(ctx, finishRunV1Sql,
		toUnix(run.FinishedAt), run.RuntimeInstalled, run.ArtifactFetched, run.DownloadURL,
		run.Outcome, run.ExitCode, run.Message, run.ID)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}

	if affected == 0 {
		return fmt.Errorf("%w: %s", errRunUnknown, run.ID)
	}

	return nil
}

// Recent returns up to limit runs, newest first.
func (r *SQLRepository) Recent(ctx context.Context, limit int) ([]*launch.Run, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}

	var rows []runRow
	if err := r.db.SelectContext(ctx, &rows, recentRunsV1Sql, limit); err != nil {
		return nil, fmt.Errorf("select runs: %w", err)
	}

	runs := make([]*launch.Run, 0, len(rows))
	for i := range rows {
		runs = append(runs, fromRow(&rows[i]))
	}

	return runs, nil
}

func checkRun(run *launch.Run) error {
	if run == nil {
		return errRunIsNotSet
	}

	if run.ID == "" {
		return errRunIDEmpty
	}

	return nil
}

// fromRow converts a database row into the domain Run model.
func fromRow(row *runRow) *launch.Run {
	var actor *launch.Actor
	if row.Hostname != "" || row.Username != "" {
		actor = &launch.Actor{
			Hostname: row.Hostname,
			Username: row.Username,
		}
	}

	return &launch.Run{
		ID:               row.ID,
		StartedAt:        fromUnix(row.StartedAt),
		FinishedAt:       fromUnix(row.FinishedAt),
		Actor:            actor,
		RuntimeInstalled: row.RuntimeInstalled,
		ArtifactFetched:  row.ArtifactFetched,
		DownloadURL:      row.DownloadURL,
		Outcome:          row.Outcome,
		ExitCode:         row.ExitCode,
		Message:          row.Message,
	}
}

// toUnix stores times as Unix milliseconds; the zero time maps to 0.
func toUnix(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}

	return t.UnixMilli()
}

func fromUnix(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}

	return time.UnixMilli(ms).UTC()
}
