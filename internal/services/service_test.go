package services

import (
    "context"
    "errors"
    "fmt"
    "path/filepath"
    "strings"
    "sync"
    "testing"
    "time"

    "github.com/HamedShams/issue-sync/internal/adapters/jira"
    "github.com/HamedShams/issue-sync/internal/adapters/sheets"
    "github.com/HamedShams/issue-sync/internal/adapters/xlsx"
    "github.com/HamedShams/issue-sync/internal/config"
    "github.com/HamedShams/issue-sync/internal/domain"
    "github.com/HamedShams/issue-sync/internal/repo"
    "github.com/rs/zerolog"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
    "github.com/xuri/excelize/v2"
)

type fakeTracker struct {
    fakeFinder
    raws    []domain.RawIssue
    err     error
    queries []domain.Query
    entered chan struct{}
    block   chan struct{}
}

func (f *fakeTracker) Fetch(_ context.Context, q domain.Query) ([]domain.RawIssue, error) {
    f.queries = append(f.queries, q)
    if f.entered != nil { f.entered <- struct{}{} }
    if f.block != nil { <-f.block }
    return f.raws, f.err
}

type brokenSheets struct{}

func (brokenSheets) Open(context.Context, string) (sheets.Worksheet, error) {
    return nil, errors.New("spreadsheet not shared with service account")
}

type fakeArchiver struct{ uploaded []string }

func (a *fakeArchiver) Enabled() bool { return true }
func (a *fakeArchiver) Upload(_ context.Context, p string) (string, error) {
    a.uploaded = append(a.uploaded, p)
    return "s3://bucket/" + filepath.Base(p), nil
}

type fakeNotifier struct{ msgs []string }

func (n *fakeNotifier) Enabled() bool { return true }
func (n *fakeNotifier) Broadcast(_ context.Context, text string) error {
    n.msgs = append(n.msgs, text)
    return nil
}

func manyIssues(n int) []domain.RawIssue {
    base := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
    out := make([]domain.RawIssue, 0, n)
    for i := 0; i < n; i++ {
        created := base.Add(time.Duration(i) * time.Hour).Format("2006-01-02T15:04:05.000-0700")
        out = append(out, rawIssue(fmt.Sprintf("ABC-%d", i+1), map[string]any{
            "summary": fmt.Sprintf("issue %d", i+1),
            "status":  map[string]any{"name": "To Do"},
            "created": created,
        }))
    }
    return out
}

func testConfig() config.Config {
    cfg := config.Defaults()
    cfg.JiraJQL = "project = ABC"
    return cfg
}

func TestRun_RemoteFailureKeepsLocalFile(t *testing.T) {
    cfg := testConfig()
    out := filepath.Join(t.TempDir(), "excels", "export.xlsx")
    tr := &fakeTracker{raws: manyIssues(150)}
    remote := sheets.NewSinkWithService(brokenSheets{}, "sheet-id", 1000, zerolog.Nop())
    arch := &fakeArchiver{}
    note := &fakeNotifier{}
    store := repo.NewMemory(10)
    svc := New(cfg, zerolog.Nop(), store, tr, xlsx.NewWriter(out, zerolog.Nop()), remote, arch, note)

    res, err := svc.Run(context.Background())
    require.NoError(t, err)
    assert.True(t, res.Success)
    assert.Equal(t, 150, res.Issues)
    assert.Equal(t, "project = ABC", res.Query)
    assert.False(t, res.RemoteOK)
    assert.Contains(t, res.RemoteErr, "open")
    assert.Equal(t, []string{out}, arch.uploaded)
    assert.Equal(t, "s3://bucket/export.xlsx", res.ArchiveURL)
    require.Len(t, note.msgs, 1)
    assert.Contains(t, note.msgs[0], "150 issues")

    f, err := excelize.OpenFile(out)
    require.NoError(t, err)
    defer f.Close()
    rows, err := f.GetRows(xlsx.SheetName)
    require.NoError(t, err)
    require.Len(t, rows, 151)
    assert.Equal(t, domain.Columns, rows[0])
    // newest created first
    assert.Equal(t, "ABC-150", rows[1][0])
    assert.Equal(t, "ABC-1", rows[150][0])

    last, err := svc.GetLastRun(context.Background())
    require.NoError(t, err)
    require.NotNil(t, last)
    assert.Equal(t, res.ID, last.ID)
    assert.True(t, last.Success)
    assert.NotNil(t, last.FinishedAt)
}

func TestRun_ZeroIssuesWritesHeaderOnly(t *testing.T) {
    out := filepath.Join(t.TempDir(), "empty.xlsx")
    svc := New(testConfig(), zerolog.Nop(), nil, &fakeTracker{}, xlsx.NewWriter(out, zerolog.Nop()), nil, nil, nil)
    res, err := svc.Run(context.Background())
    require.NoError(t, err)
    assert.Equal(t, 0, res.Issues)

    f, err := excelize.OpenFile(out)
    require.NoError(t, err)
    defer f.Close()
    rows, err := f.GetRows(xlsx.SheetName)
    require.NoError(t, err)
    assert.Len(t, rows, 1)
}

func TestRun_FetchFailureIsFatal(t *testing.T) {
    out := filepath.Join(t.TempDir(), "never.xlsx")
    tr := &fakeTracker{err: &domain.FetchError{Op: "search", Status: 400, Body: "bad jql"}}
    store := repo.NewMemory(10)
    note := &fakeNotifier{}
    svc := New(testConfig(), zerolog.Nop(), store, tr, xlsx.NewWriter(out, zerolog.Nop()), nil, nil, note)

    res, err := svc.Run(context.Background())
    var fe *domain.FetchError
    require.ErrorAs(t, err, &fe)
    assert.False(t, res.Success)
    assert.Contains(t, res.Error, "status=400")
    assert.NoFileExists(t, out)
    require.Len(t, note.msgs, 1)
    assert.True(t, strings.HasPrefix(note.msgs[0], "Issue sync FAILED"))

    last, _ := store.LastRun(context.Background())
    require.NotNil(t, last)
    assert.False(t, last.Success)
}

func TestRun_ConfigurationErrorBeforeFetch(t *testing.T) {
    cfg := config.Defaults()
    tr := &fakeTracker{}
    svc := New(cfg, zerolog.Nop(), nil, tr, xlsx.NewWriter(filepath.Join(t.TempDir(), "x.xlsx"), zerolog.Nop()), nil, nil, nil)
    _, err := svc.Run(context.Background())
    var ce *domain.ConfigurationError
    require.ErrorAs(t, err, &ce)
    assert.Empty(t, tr.queries)
}

func TestRun_FilterNameResolvedThroughTracker(t *testing.T) {
    cfg := config.Defaults()
    cfg.JiraFilterName = "Sprint"
    tr := &fakeTracker{fakeFinder: fakeFinder{filters: []jira.Filter{{ID: "31", Name: "Sprint"}}}}
    svc := New(cfg, zerolog.Nop(), nil, tr, xlsx.NewWriter(filepath.Join(t.TempDir(), "x.xlsx"), zerolog.Nop()), nil, nil, nil)
    res, err := svc.Run(context.Background())
    require.NoError(t, err)
    assert.Equal(t, "filter=31", res.Query)
    require.Len(t, tr.queries, 1)
    assert.Equal(t, "filter_name", tr.queries[0].Origin)
}

func TestRun_RejectsConcurrentRun(t *testing.T) {
    tr := &fakeTracker{entered: make(chan struct{}), block: make(chan struct{})}
    svc := New(testConfig(), zerolog.Nop(), nil, tr, xlsx.NewWriter(filepath.Join(t.TempDir(), "x.xlsx"), zerolog.Nop()), nil, nil, nil)

    var wg sync.WaitGroup
    wg.Add(1)
    go func() {
        defer wg.Done()
        _, _ = svc.Run(context.Background())
    }()
    <-tr.entered

    _, err := svc.Run(context.Background())
    assert.ErrorIs(t, err, ErrRunInProgress)
    close(tr.block)
    wg.Wait()
}

func TestSummary(t *testing.T) {
    res := RunResult{Success: true, Issues: 3, Query: "filter=1", OutputFile: "out.xlsx", RemoteErr: "remote sheet open: denied"}
    s := Summary(res, 61*time.Second)
    assert.Equal(t, "Issue sync finished: 3 issues in 1 min 1 sec\nQuery: filter=1\nFile: out.xlsx\nRemote sheet: remote sheet open: denied", s)
}
