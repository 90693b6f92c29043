package sheets

import (
    "context"
    "errors"
    "fmt"
    "math"
    "testing"
    "time"

    "github.com/HamedShams/issue-sync/internal/config"
    "github.com/HamedShams/issue-sync/internal/domain"
    "github.com/rs/zerolog"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

type update struct {
    rng  string
    rows int
}

type fakeWorksheet struct {
    title      string
    rows, cols int
    calls      []string
    updates    []update
    values     map[string][][]any
    resized    bool
    failOn     string
}

func (f *fakeWorksheet) step(name string) error {
    f.calls = append(f.calls, name)
    if f.failOn == name { return errors.New(name + " failed") }
    return nil
}

func (f *fakeWorksheet) Title() string          { return f.title }
func (f *fakeWorksheet) Size() (rows, cols int) { return f.rows, f.cols }
func (f *fakeWorksheet) Clear(context.Context) error { return f.step("clear") }
func (f *fakeWorksheet) Resize(_ context.Context, rows, cols int) error {
    f.rows, f.cols, f.resized = rows, cols, true
    return f.step("resize")
}
func (f *fakeWorksheet) Update(_ context.Context, rng string, values [][]any) error {
    f.updates = append(f.updates, update{rng: rng, rows: len(values)})
    if f.values == nil { f.values = map[string][][]any{} }
    f.values[rng] = values
    return f.step("update")
}
func (f *fakeWorksheet) FormatHeader(context.Context, int) error { return f.step("format") }
func (f *fakeWorksheet) FreezeRows(context.Context, int) error   { return f.step("freeze") }

type fakeService struct {
    ws      *fakeWorksheet
    openErr error
    opened  []string
}

func (s *fakeService) Open(_ context.Context, id string) (Worksheet, error) {
    s.opened = append(s.opened, id)
    if s.openErr != nil { return nil, s.openErr }
    return s.ws, nil
}

func rowsN(n int) domain.Table {
    rows := make([]domain.Row, 0, n)
    base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
    for i := 0; i < n; i++ {
        c := base.Add(time.Duration(n-i) * time.Hour)
        rows = append(rows, domain.Row{Key: fmt.Sprintf("K-%d", i), Resolution: domain.UnresolvedResolution, Created: &c})
    }
    return domain.BuildTable(rows)
}

func TestPublish_ProtocolOrderAndChunks(t *testing.T) {
    ws := &fakeWorksheet{title: "Sheet1", rows: 100, cols: 26}
    svc := &fakeService{ws: ws}
    sink := NewSinkWithService(svc, "sheet-id", 1000, zerolog.Nop())

    require.NoError(t, sink.Publish(context.Background(), rowsN(2500)))

    assert.Equal(t, []string{"sheet-id"}, svc.opened)
    assert.Equal(t, "clear", ws.calls[0])
    assert.Equal(t, "resize", ws.calls[1])
    assert.Equal(t, []string{"format", "freeze"}, ws.calls[len(ws.calls)-2:])
    assert.Equal(t, 2501, ws.rows)
    assert.Equal(t, 26, ws.cols) // never shrinks

    require.Len(t, ws.updates, 4)
    assert.Equal(t, update{"'Sheet1'!A1", 1}, ws.updates[0])
    assert.Equal(t, update{"'Sheet1'!A2:J1001", 1000}, ws.updates[1])
    assert.Equal(t, update{"'Sheet1'!A1002:J2001", 1000}, ws.updates[2])
    assert.Equal(t, update{"'Sheet1'!A2002:J2501", 500}, ws.updates[3])
    assert.Equal(t, []any{"key", "work", "assignee", "reporter", "priority", "status", "resolution", "created", "updated", "due_date"}, ws.values["'Sheet1'!A1"][0])
}

func TestPublish_NoResizeWhenLargeEnough(t *testing.T) {
    ws := &fakeWorksheet{title: "It's", rows: 1000, cols: 26}
    sink := NewSinkWithService(&fakeService{ws: ws}, "id", 0, zerolog.Nop())
    require.NoError(t, sink.Publish(context.Background(), rowsN(3)))
    assert.False(t, ws.resized)
    assert.Equal(t, "'It''s'!A2:J4", ws.updates[1].rng)
}

func TestPublish_EmptyTableWritesHeaderOnly(t *testing.T) {
    ws := &fakeWorksheet{title: "Data", rows: 1, cols: 5}
    sink := NewSinkWithService(&fakeService{ws: ws}, "id", 1000, zerolog.Nop())
    require.NoError(t, sink.Publish(context.Background(), domain.BuildTable(nil)))
    require.Len(t, ws.updates, 1)
    assert.Equal(t, 10, ws.cols)
    assert.Equal(t, 1, ws.rows)
}

func TestPublish_OpenFailureIsRemoteSinkError(t *testing.T) {
    sink := NewSinkWithService(&fakeService{openErr: errors.New("403 forbidden")}, "id", 1000, zerolog.Nop())
    err := sink.Publish(context.Background(), rowsN(1))
    var rse *RemoteSinkError
    require.True(t, errors.As(err, &rse))
    assert.Equal(t, "open", rse.Step)
}

func TestPublish_StepFailureStops(t *testing.T) {
    ws := &fakeWorksheet{title: "S", rows: 10, cols: 10, failOn: "clear"}
    sink := NewSinkWithService(&fakeService{ws: ws}, "id", 1000, zerolog.Nop())
    err := sink.Publish(context.Background(), rowsN(1))
    var rse *RemoteSinkError
    require.True(t, errors.As(err, &rse))
    assert.Equal(t, "clear", rse.Step)
    assert.Equal(t, []string{"clear"}, ws.calls)
}

func TestPublish_DisabledIsNoop(t *testing.T) {
    cfg := config.Defaults()
    cfg.SheetID = "only-id"
    sink := NewSink(cfg, zerolog.Nop())
    assert.False(t, sink.Enabled())
    assert.NoError(t, sink.Publish(context.Background(), rowsN(1)))
}

func TestCellString(t *testing.T) {
    dt := time.Date(2025, 8, 15, 18, 42, 0, 0, time.UTC)
    assert.Equal(t, "Aug 15, 2025, 6:42 PM", CellString(domain.ColCreated, dt))
    assert.Equal(t, "Aug 15, 2025", CellString(domain.ColDueDate, dt))
    assert.Equal(t, "", CellString(domain.ColDueDate, nil))
    assert.Equal(t, "", CellString(domain.ColWork, math.NaN()))
    assert.Equal(t, "3", CellString(domain.ColWork, 3))
    assert.Equal(t, "Done", CellString(domain.ColStatus, "Done"))
}

func TestSerialize(t *testing.T) {
    c := time.Date(2025, 5, 27, 11, 56, 17, 0, time.UTC)
    tbl := domain.BuildTable([]domain.Row{{Key: "A-1", Resolution: "Done", Created: &c}})
    got := Serialize(tbl)
    require.Len(t, got, 1)
    assert.Equal(t, []any{"A-1", "", "", "", "", "", "Done", "May 27, 2025, 11:56 AM", "", ""}, got[0])
}
