package repo

import (
    "context"
    "errors"
    "time"

    "github.com/google/uuid"
    "github.com/jackc/pgx/v5"
    "github.com/jackc/pgx/v5/pgxpool"
    "github.com/rs/zerolog"

    "github.com/HamedShams/sprint-pulse/internal/config"
)

type DB struct {
    Pool *pgxpool.Pool
    log  zerolog.Logger
}

func MustOpen(ctx context.Context, cfg config.Config, log zerolog.Logger) *DB {
    pool, err := pgxpool.New(ctx, cfg.DBDSN)
    if err != nil { log.Fatal().Err(err).Msg("db connect failed") }
    ctx2, cancel := context.WithTimeout(ctx, 10*time.Second); defer cancel()
    if err := pool.Ping(ctx2); err != nil { log.Fatal().Err(err).Msg("db ping failed") }
    return &DB{Pool: pool, log: log}
}

func (d *DB) Close() { d.Pool.Close() }

type Repository struct {
    db  *DB
    log zerolog.Logger
}

func NewRepository(d *DB, log zerolog.Logger) *Repository { return &Repository{db: d, log: log} }

func (r *Repository) TryAdvisoryLock(ctx context.Context, key int64) (bool, error) {
    var ok bool
    err := r.db.Pool.QueryRow(ctx, "SELECT pg_try_advisory_lock($1)", key).Scan(&ok)
    return ok, err
}

func (r *Repository) AdvisoryUnlock(ctx context.Context, key int64) error {
    var ok bool
    err := r.db.Pool.QueryRow(ctx, "SELECT pg_advisory_unlock($1)", key).Scan(&ok)
    if !ok && err == nil { return errors.New("advisory unlock returned false") }
    return err
}

// EnsureSchema creates the tables on startup; idempotent.
func (r *Repository) EnsureSchema(ctx context.Context) error {
    const ddl = `
CREATE TABLE IF NOT EXISTS report_snapshots (
    id         uuid PRIMARY KEY,
    board_id   bigint NOT NULL,
    sprint_id  bigint NOT NULL,
    payload    jsonb NOT NULL,
    built_at   timestamptz NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_snapshots_board_built ON report_snapshots(board_id, built_at DESC);
CREATE INDEX IF NOT EXISTS idx_snapshots_sprint ON report_snapshots(sprint_id, built_at DESC);
CREATE TABLE IF NOT EXISTS job_runs (
    id             bigserial PRIMARY KEY,
    started_at     timestamptz NOT NULL DEFAULT now(),
    finished_at    timestamptz,
    board_id       bigint,
    sprint_id      bigint,
    issues_scanned int,
    success        boolean NOT NULL DEFAULT false,
    error          text
);`
    _, err := r.db.Pool.Exec(ctx, ddl)
    return err
}

// SaveSnapshot stores one built report as jsonb and returns its id.
func (r *Repository) SaveSnapshot(ctx context.Context, boardID, sprintID int64, payload []byte) (uuid.UUID, error) {
    id := uuid.New()
    const q = `INSERT INTO report_snapshots(id, board_id, sprint_id, payload) VALUES($1, $2, $3, $4)`
    if _, err := r.db.Pool.Exec(ctx, q, id, boardID, sprintID, payload); err != nil {
        return uuid.Nil, err
    }
    return id, nil
}

// GetLatestSnapshot returns the newest payload for a board, or nil when
// nothing has been built yet.
func (r *Repository) GetLatestSnapshot(ctx context.Context, boardID int64) ([]byte, *time.Time, error) {
    const q = `SELECT payload, built_at FROM report_snapshots WHERE board_id=$1 ORDER BY built_at DESC LIMIT 1`
    var payload []byte
    var builtAt time.Time
    err := r.db.Pool.QueryRow(ctx, q, boardID).Scan(&payload, &builtAt)
    if errors.Is(err, pgx.ErrNoRows) { return nil, nil, nil }
    if err != nil { return nil, nil, err }
    return payload, &builtAt, nil
}

// PruneSnapshots keeps the newest n snapshots per board.
func (r *Repository) PruneSnapshots(ctx context.Context, boardID int64, keep int) error {
    if keep <= 0 { keep = 20 }
    const q = `DELETE FROM report_snapshots WHERE board_id=$1 AND id NOT IN (
        SELECT id FROM report_snapshots WHERE board_id=$1 ORDER BY built_at DESC LIMIT $2)`
    _, err := r.db.Pool.Exec(ctx, q, boardID, keep)
    return err
}

type LastRun struct {
    StartedAt     time.Time  `json:"started_at"`
    FinishedAt    *time.Time `json:"finished_at"`
    BoardID       int64      `json:"board_id"`
    SprintID      int64      `json:"sprint_id"`
    IssuesScanned int        `json:"issues_scanned"`
    Success       bool       `json:"success"`
    Error         string     `json:"error"`
}

func (r *Repository) StartJobRun(ctx context.Context, boardID int64) (int64, error) {
    const q = `INSERT INTO job_runs(started_at, board_id, success) VALUES(now(), $1, false) RETURNING id`
    var id int64
    if err := r.db.Pool.QueryRow(ctx, q, boardID).Scan(&id); err != nil { return 0, err }
    return id, nil
}

func (r *Repository) FinishJobRun(ctx context.Context, id, sprintID int64, issuesScanned int, success bool, errStr string) error {
    const q = `UPDATE job_runs SET finished_at=now(), sprint_id=$2, issues_scanned=$3, success=$4, error=$5 WHERE id=$1`
    _, err := r.db.Pool.Exec(ctx, q, id, sprintID, issuesScanned, success, errStr)
    return err
}

func (r *Repository) GetLastRun(ctx context.Context) (*LastRun, error) {
    const q = `SELECT started_at, finished_at, coalesce(board_id,0), coalesce(sprint_id,0), coalesce(issues_scanned,0), coalesce(success,false), coalesce(error,'') FROM job_runs ORDER BY id DESC LIMIT 1`
    row := r.db.Pool.QueryRow(ctx, q)
    lr := &LastRun{}
    if err := row.Scan(&lr.StartedAt, &lr.FinishedAt, &lr.BoardID, &lr.SprintID, &lr.IssuesScanned, &lr.Success, &lr.Error); err != nil {
        if errors.Is(err, pgx.ErrNoRows) { return nil, nil }
        return nil, err
    }
    return lr, nil
}
