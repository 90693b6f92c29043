/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package repo

import (
    "context"
    "errors"
    "fmt"
    "time"

    "github.com/HamedShams/issue-sync/internal/domain"
    "github.com/jackc/pgx/v5"
    "github.com/jackc/pgx/v5/pgxpool"
    "github.com/rs/zerolog"
)

type DB struct {
    Pool *pgxpool.Pool
    log  zerolog.Logger
}

func Open(ctx context.Context, dsn string, log zerolog.Logger) (*DB, error) {
    pool, err := pgxpool.New(ctx, dsn)
    if err != nil { return nil, fmt.Errorf("db connect: %w", err) }
    ctx2, cancel := context.WithTimeout(ctx, 10*time.Second)
    defer cancel()
    if err := pool.Ping(ctx2); err != nil {
        pool.Close()
        return nil, fmt.Errorf("db ping: %w", err)
    }
    return &DB{Pool: pool, log: log}, nil
}

func (d *DB) Close() { d.Pool.Close() }

type Repository struct {
    db  *DB
    log zerolog.Logger
}

func NewRepository(d *DB, log zerolog.Logger) *Repository { return &Repository{db: d, log: log} }

const schema = `CREATE TABLE IF NOT EXISTS sync_runs(
    id uuid PRIMARY KEY,
    query text NOT NULL DEFAULT '',
    started_at timestamptz NOT NULL,
    finished_at timestamptz,
    issues integer NOT NULL DEFAULT 0,
    output_file text NOT NULL DEFAULT '',
    success boolean NOT NULL DEFAULT false,
    error text NOT NULL DEFAULT '',
    remote_ok boolean NOT NULL DEFAULT false,
    remote_error text NOT NULL DEFAULT '',
    archive_url text NOT NULL DEFAULT ''
)`

func (r *Repository) EnsureSchema(ctx context.Context) error {
    _, err := r.db.Pool.Exec(ctx, schema)
    return err
}

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

func (r *Repository) StartRun(ctx context.Context, run domain.Run) error {
    const q = `INSERT INTO sync_runs(id, query, started_at, output_file, success) VALUES($1,$2,$3,$4,false)`
    _, err := r.db.Pool.Exec(ctx, q, run.ID, run.Query, run.StartedAt, run.OutputFile)
    return err
}

func (r *Repository) FinishRun(ctx context.Context, run domain.Run) error {
    const q = `UPDATE sync_runs SET query=$2, finished_at=$3, issues=$4, success=$5, error=$6,
        remote_ok=$7, remote_error=$8, archive_url=$9 WHERE id=$1`
    _, err := r.db.Pool.Exec(ctx, q, run.ID, run.Query, run.FinishedAt, run.Issues, run.Success, run.Error,
        run.RemoteOK, run.RemoteErr, run.ArchiveURL)
    return err
}

// LastRun returns the most recent run, or nil when none was recorded.
func (r *Repository) LastRun(ctx context.Context) (*domain.Run, error) {
    const q = `SELECT id::text, query, started_at, finished_at, issues, output_file, success, error,
        remote_ok, remote_error, archive_url
        FROM sync_runs ORDER BY started_at DESC LIMIT 1`
    lr := &domain.Run{}
    err := r.db.Pool.QueryRow(ctx, q).Scan(&lr.ID, &lr.Query, &lr.StartedAt, &lr.FinishedAt, &lr.Issues, &lr.OutputFile,
        &lr.Success, &lr.Error, &lr.RemoteOK, &lr.RemoteErr, &lr.ArchiveURL)
    if errors.Is(err, pgx.ErrNoRows) { return nil, nil }
    if err != nil { return nil, err }
    return lr, nil
}
