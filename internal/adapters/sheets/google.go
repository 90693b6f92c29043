/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package sheets

import (
    "context"
    "errors"
    "fmt"

    "google.golang.org/api/option"
    gsheets "google.golang.org/api/sheets/v4"
)

var errNoWorksheet = errors.New("spreadsheet has no worksheets")

type googleService struct {
    api *gsheets.Service
}

// NewGoogleService authorizes with a service-account credentials file.
func NewGoogleService(ctx context.Context, credentialsFile string, opts ...option.ClientOption) (Service, error) {
    opts = append([]option.ClientOption{
        option.WithCredentialsFile(credentialsFile),
        option.WithScopes(gsheets.SpreadsheetsScope),
    }, opts...)
    api, err := gsheets.NewService(ctx, opts...)
    if err != nil { return nil, fmt.Errorf("sheets client: %w", err) }
    return &googleService{api: api}, nil
}

// NewGoogleServiceWithOptions skips credential files; used against fakes.
func NewGoogleServiceWithOptions(ctx context.Context, opts ...option.ClientOption) (Service, error) {
    api, err := gsheets.NewService(ctx, opts...)
    if err != nil { return nil, fmt.Errorf("sheets client: %w", err) }
    return &googleService{api: api}, nil
}

func (g *googleService) Open(ctx context.Context, spreadsheetID string) (Worksheet, error) {
    ss, err := g.api.Spreadsheets.Get(spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
    if err != nil { return nil, err }
    if len(ss.Sheets) == 0 || ss.Sheets[0].Properties == nil { return nil, errNoWorksheet }
    p := ss.Sheets[0].Properties
    ws := &googleWorksheet{api: g.api, spreadsheetID: spreadsheetID, sheetID: p.SheetId, title: p.Title}
    if p.GridProperties != nil {
        ws.rows, ws.cols = int(p.GridProperties.RowCount), int(p.GridProperties.ColumnCount)
    }
    return ws, nil
}

type googleWorksheet struct {
    api           *gsheets.Service
    spreadsheetID string
    sheetID       int64
    title         string
    rows, cols    int
}

func (w *googleWorksheet) Title() string          { return w.title }
func (w *googleWorksheet) Size() (rows, cols int) { return w.rows, w.cols }

func (w *googleWorksheet) Clear(ctx context.Context) error {
    _, err := w.api.Spreadsheets.Values.Clear(w.spreadsheetID, quoteTitle(w.title), &gsheets.ClearValuesRequest{}).Context(ctx).Do()
    return err
}

func (w *googleWorksheet) batch(ctx context.Context, reqs ...*gsheets.Request) error {
    _, err := w.api.Spreadsheets.BatchUpdate(w.spreadsheetID, &gsheets.BatchUpdateSpreadsheetRequest{Requests: reqs}).Context(ctx).Do()
    return err
}

func (w *googleWorksheet) Resize(ctx context.Context, rows, cols int) error {
    err := w.batch(ctx, &gsheets.Request{UpdateSheetProperties: &gsheets.UpdateSheetPropertiesRequest{
        Properties: &gsheets.SheetProperties{
            SheetId:        w.sheetID,
            GridProperties: &gsheets.GridProperties{RowCount: int64(rows), ColumnCount: int64(cols)},
        },
        Fields: "gridProperties(rowCount,columnCount)",
    }})
    if err == nil { w.rows, w.cols = rows, cols }
    return err
}

func (w *googleWorksheet) Update(ctx context.Context, rng string, values [][]any) error {
    vr := &gsheets.ValueRange{Range: rng, Values: values}
    _, err := w.api.Spreadsheets.Values.Update(w.spreadsheetID, rng, vr).ValueInputOption("RAW").Context(ctx).Do()
    return err
}

func (w *googleWorksheet) FormatHeader(ctx context.Context, cols int) error {
    return w.batch(ctx, &gsheets.Request{RepeatCell: &gsheets.RepeatCellRequest{
        Range: &gsheets.GridRange{SheetId: w.sheetID, StartRowIndex: 0, EndRowIndex: 1, StartColumnIndex: 0, EndColumnIndex: int64(cols)},
        Cell: &gsheets.CellData{UserEnteredFormat: &gsheets.CellFormat{
            BackgroundColor: &gsheets.Color{Red: 0.2, Green: 0.2, Blue: 0.2},
            TextFormat:      &gsheets.TextFormat{Bold: true, ForegroundColor: &gsheets.Color{Red: 1, Green: 1, Blue: 1}},
        }},
        Fields: "userEnteredFormat(backgroundColor,textFormat)",
    }})
}

func (w *googleWorksheet) FreezeRows(ctx context.Context, n int) error {
    return w.batch(ctx, &gsheets.Request{UpdateSheetProperties: &gsheets.UpdateSheetPropertiesRequest{
        Properties: &gsheets.SheetProperties{
            SheetId:        w.sheetID,
            GridProperties: &gsheets.GridProperties{FrozenRowCount: int64(n)},
        },
        Fields: "gridProperties.frozenRowCount",
    }})
}
