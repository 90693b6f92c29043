/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package services

import (
    "context"
    "errors"
    "fmt"
    "strings"
    "sync"
    "time"

    "github.com/HamedShams/issue-sync/internal/config"
    "github.com/HamedShams/issue-sync/internal/domain"
    "github.com/HamedShams/issue-sync/internal/metrics"
    "github.com/google/uuid"
    "github.com/rs/zerolog"
)

// ErrRunInProgress is returned when Run is called while another run is active.
var ErrRunInProgress = errors.New("sync run already in progress")

type Tracker interface {
    FilterFinder
    Fetch(ctx context.Context, q domain.Query) ([]domain.RawIssue, error)
}

type FileSink interface {
    Write(t domain.Table) error
    Path() string
}

type RemoteSink interface {
    Publish(ctx context.Context, t domain.Table) error
}

type Archiver interface {
    Enabled() bool
    Upload(ctx context.Context, filePath string) (string, error)
}

type Notifier interface {
    Enabled() bool
    Broadcast(ctx context.Context, text string) error
}

type RunStore interface {
    StartRun(ctx context.Context, run domain.Run) error
    FinishRun(ctx context.Context, run domain.Run) error
    LastRun(ctx context.Context) (*domain.Run, error)
}

// RunResult summarizes one pipeline run.
type RunResult = domain.Run

type Service struct {
    cfg     config.Config
    log     zerolog.Logger
    tracker Tracker
    file    FileSink
    remote  RemoteSink
    archive Archiver
    notify  Notifier
    store   RunStore

    mu  sync.Mutex
    now func() time.Time
}

// New wires the pipeline. remote, archive and notify may be nil.
func New(cfg config.Config, log zerolog.Logger, store RunStore, tracker Tracker, file FileSink, remote RemoteSink, archive Archiver, notify Notifier) *Service {
    return &Service{cfg: cfg, log: log, store: store, tracker: tracker, file: file, remote: remote, archive: archive, notify: notify, now: time.Now}
}

func (s *Service) sourceOptions() SourceOptions {
    return SourceOptions{QueryString: s.cfg.JiraJQL, FilterID: s.cfg.JiraFilterID, FilterName: s.cfg.JiraFilterName}
}

// Run executes one full export: resolve the query, fetch, normalize, build the
// table, write the file, then the best-effort remote sheet, archive and notification.
// Only query resolution, fetch, normalization and the file write are fatal.
func (s *Service) Run(ctx context.Context) (RunResult, error) {
    if !s.mu.TryLock() { return RunResult{}, ErrRunInProgress }
    defer s.mu.Unlock()

    started := s.now()
    res := RunResult{ID: uuid.NewString(), StartedAt: started, OutputFile: s.file.Path()}
    log := s.log.With().Str("run", res.ID).Logger()
    if s.store != nil {
        if err := s.store.StartRun(ctx, res); err != nil { log.Error().Err(err).Msg("start run record failed") }
    }

    err := s.run(ctx, log, &res)

    finished := s.now()
    res.FinishedAt = &finished
    res.Success = err == nil
    if err != nil { res.Error = err.Error() }
    elapsed := finished.Sub(started)
    metrics.RunDuration.Observe(elapsed.Seconds())
    outcome := "success"
    if err != nil { outcome = "failure" }
    metrics.Runs.WithLabelValues(outcome).Inc()

    if s.store != nil {
        // the caller's context may already be cancelled on failure
        sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
        if ferr := s.store.FinishRun(sctx, res); ferr != nil { log.Error().Err(ferr).Msg("finish run record failed") }
        cancel()
    }
    if err != nil {
        log.Error().Err(err).Str("took", FormatDuration(elapsed)).Msg("sync failed")
    } else {
        log.Info().Int("issues", res.Issues).Str("took", FormatDuration(elapsed)).Msg("sync finished")
    }
    s.sendSummary(ctx, log, res, elapsed)
    return res, err
}

func (s *Service) run(ctx context.Context, log zerolog.Logger, res *RunResult) error {
    q, err := ResolveQuery(ctx, s.sourceOptions(), s.tracker, log)
    if err != nil { return err }
    res.Query = q.JQL
    log.Info().Str("jql", q.JQL).Str("origin", q.Origin).Msg("query resolved")

    raws, err := s.tracker.Fetch(ctx, q)
    if err != nil { return fmt.Errorf("fetch issues: %w", err) }
    metrics.IssuesFetched.Add(float64(len(raws)))
    log.Info().Int("count", len(raws)).Msg("issues fetched")

    rows, err := NormalizeAll(raws)
    if err != nil { return err }
    table := domain.BuildTable(rows)
    res.Issues = table.Len()

    if err := s.file.Write(table); err != nil {
        metrics.SinkFailures.WithLabelValues("file").Inc()
        return fmt.Errorf("write %s: %w", s.file.Path(), err)
    }
    log.Info().Int("rows", table.Len()).Str("file", s.file.Path()).Msg("spreadsheet written")

    if s.remote != nil {
        if err := s.remote.Publish(ctx, table); err != nil {
            metrics.SinkFailures.WithLabelValues("remote").Inc()
            res.RemoteErr = err.Error()
            log.Error().Err(err).Msg("remote sheet publish failed")
        } else {
            res.RemoteOK = true
        }
    }

    if s.archive != nil && s.archive.Enabled() {
        loc, err := s.archive.Upload(ctx, s.file.Path())
        if err != nil {
            metrics.SinkFailures.WithLabelValues("archive").Inc()
            log.Error().Err(err).Msg("archive upload failed")
        } else {
            res.ArchiveURL = loc
            log.Info().Str("location", loc).Msg("archive uploaded")
        }
    }
    return nil
}

func (s *Service) sendSummary(ctx context.Context, log zerolog.Logger, res RunResult, took time.Duration) {
    if s.notify == nil || !s.notify.Enabled() { return }
    if err := s.notify.Broadcast(ctx, Summary(res, took)); err != nil {
        metrics.SinkFailures.WithLabelValues("notify").Inc()
        log.Warn().Err(err).Msg("run summary not delivered")
    }
}

// Summary renders the plain-text run report sent to chat.
func Summary(res RunResult, took time.Duration) string {
    var b strings.Builder
    if res.Success {
        fmt.Fprintf(&b, "Issue sync finished: %d issues in %s\n", res.Issues, FormatDuration(took))
    } else {
        fmt.Fprintf(&b, "Issue sync FAILED after %s\n", FormatDuration(took))
    }
    if res.Query != "" { fmt.Fprintf(&b, "Query: %s\n", res.Query) }
    if res.Success { fmt.Fprintf(&b, "File: %s\n", res.OutputFile) }
    if res.RemoteErr != "" { fmt.Fprintf(&b, "Remote sheet: %s\n", res.RemoteErr) }
    if res.ArchiveURL != "" { fmt.Fprintf(&b, "Archive: %s\n", res.ArchiveURL) }
    if res.Error != "" { fmt.Fprintf(&b, "Error: %s\n", res.Error) }
    return strings.TrimRight(b.String(), "\n")
}

// GetLastRun returns the most recent recorded run, or nil.
func (s *Service) GetLastRun(ctx context.Context) (*RunResult, error) {
    if s.store == nil { return nil, nil }
    return s.store.LastRun(ctx)
}
