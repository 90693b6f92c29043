/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package sheets

import (
    "context"
    "fmt"
    "math"
    "strings"
    "time"

    "github.com/HamedShams/issue-sync/internal/config"
    "github.com/HamedShams/issue-sync/internal/domain"
    "github.com/rs/zerolog"
    "github.com/xuri/excelize/v2"
)

const (
    DateTimeLayout = "Jan 2, 2006, 3:04 PM"
    DateLayout     = "Jan 2, 2006"
)

// Service opens hosted spreadsheets.
type Service interface {
    Open(ctx context.Context, spreadsheetID string) (Worksheet, error)
}

// Worksheet is the first tab of an opened spreadsheet.
type Worksheet interface {
    Title() string
    Size() (rows, cols int)
    Clear(ctx context.Context) error
    Resize(ctx context.Context, rows, cols int) error
    Update(ctx context.Context, rng string, values [][]any) error
    FormatHeader(ctx context.Context, cols int) error
    FreezeRows(ctx context.Context, n int) error
}

// RemoteSinkError wraps any failure while publishing to the hosted sheet.
type RemoteSinkError struct {
    Step string
    Err  error
}

func (e *RemoteSinkError) Error() string { return fmt.Sprintf("remote sheet %s: %v", e.Step, e.Err) }
func (e *RemoteSinkError) Unwrap() error { return e.Err }

type Sink struct {
    spreadsheetID string
    chunkRows     int
    connect       func(ctx context.Context) (Service, error)
    log           zerolog.Logger
}

// NewSink builds the Google-backed sink. It is disabled when the spreadsheet id
// or the credentials file is not configured.
func NewSink(cfg config.Config, log zerolog.Logger) *Sink {
    s := &Sink{spreadsheetID: cfg.SheetID, chunkRows: cfg.SheetChunkRows, log: log}
    if cfg.RemoteSheetEnabled() {
        creds := cfg.GoogleCredentialsFile
        s.connect = func(ctx context.Context) (Service, error) { return NewGoogleService(ctx, creds) }
    }
    if s.chunkRows <= 0 { s.chunkRows = 1000 }
    return s
}

// NewSinkWithService uses an already authorized service.
func NewSinkWithService(svc Service, spreadsheetID string, chunkRows int, log zerolog.Logger) *Sink {
    if chunkRows <= 0 { chunkRows = 1000 }
    return &Sink{
        spreadsheetID: spreadsheetID,
        chunkRows:     chunkRows,
        connect:       func(context.Context) (Service, error) { return svc, nil },
        log:           log,
    }
}

func (s *Sink) Enabled() bool { return s.connect != nil && s.spreadsheetID != "" }

// Publish replaces the first worksheet's content with t. A disabled sink
// returns nil; every other failure is a *RemoteSinkError.
func (s *Sink) Publish(ctx context.Context, t domain.Table) error {
    if !s.Enabled() {
        s.log.Info().Msg("remote sheet not configured; skipping")
        return nil
    }
    start := time.Now()
    svc, err := s.connect(ctx)
    if err != nil { return &RemoteSinkError{Step: "auth", Err: err} }
    ws, err := svc.Open(ctx, s.spreadsheetID)
    if err != nil { return &RemoteSinkError{Step: "open", Err: err} }
    if err := s.publish(ctx, ws, t); err != nil { return err }
    s.log.Info().Str("sheet", ws.Title()).Int("rows", t.Len()).Dur("took", time.Since(start)).Msg("remote sheet updated")
    return nil
}

func (s *Sink) publish(ctx context.Context, ws Worksheet, t domain.Table) error {
    ncols := len(t.Columns)
    lastCol, err := excelize.ColumnNumberToName(ncols)
    if err != nil { return &RemoteSinkError{Step: "range", Err: err} }

    if err := ws.Clear(ctx); err != nil { return &RemoteSinkError{Step: "clear", Err: err} }

    curRows, curCols := ws.Size()
    rows, cols := maxInt(curRows, t.Len()+1), maxInt(curCols, ncols)
    if rows != curRows || cols != curCols {
        if err := ws.Resize(ctx, rows, cols); err != nil { return &RemoteSinkError{Step: "resize", Err: err} }
    }

    title := quoteTitle(ws.Title())
    header := make([]any, ncols)
    for i, c := range t.Columns { header[i] = c }
    if err := ws.Update(ctx, title+"!A1", [][]any{header}); err != nil { return &RemoteSinkError{Step: "header", Err: err} }

    values := Serialize(t)
    for start := 0; start < len(values); start += s.chunkRows {
        end := start + s.chunkRows
        if end > len(values) { end = len(values) }
        rng := fmt.Sprintf("%s!A%d:%s%d", title, start+2, lastCol, end+1)
        if err := ws.Update(ctx, rng, values[start:end]); err != nil { return &RemoteSinkError{Step: "update " + rng, Err: err} }
        s.log.Debug().Str("range", rng).Int("rows", end-start).Msg("remote sheet chunk written")
    }

    if err := ws.FormatHeader(ctx, ncols); err != nil { return &RemoteSinkError{Step: "format", Err: err} }
    if err := ws.FreezeRows(ctx, 1); err != nil { return &RemoteSinkError{Step: "freeze", Err: err} }
    return nil
}

// Serialize renders every data cell as display text.
func Serialize(t domain.Table) [][]any {
    out := make([][]any, 0, t.Len())
    for _, r := range t.Rows {
        vals := r.Values()
        line := make([]any, len(vals))
        for j, v := range vals { line[j] = CellString(t.Columns[j], v) }
        out = append(out, line)
    }
    return out
}

// CellString formats one cell for the hosted sheet.
func CellString(col string, v any) string {
    switch x := v.(type) {
    case nil:
        return ""
    case string:
        return x
    case time.Time:
        if col == domain.ColDueDate { return x.Format(DateLayout) }
        return x.Format(DateTimeLayout)
    case *time.Time:
        if x == nil { return "" }
        return CellString(col, *x)
    case float64:
        if math.IsNaN(x) { return "" }
    case float32:
        if math.IsNaN(float64(x)) { return "" }
    }
    return fmt.Sprint(v)
}

func quoteTitle(title string) string {
    return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}

func maxInt(a, b int) int { if a > b { return a }; return b }
