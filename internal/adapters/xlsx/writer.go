/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package xlsx

import (
    "fmt"
    "os"
    "path/filepath"
    "time"
    "unicode/utf8"

    "github.com/HamedShams/issue-sync/internal/domain"
    "github.com/rs/zerolog"
    "github.com/xuri/excelize/v2"
)

const (
    SheetName = "Issues"
    TableName = "IssuesTable"

    DateTimeFormat = "mmm d, yyyy, h:mm AM/PM"
    DateFormat     = "mmm d, yyyy"

    maxColWidth = 60
)

type Writer struct {
    path string
    log  zerolog.Logger
}

func NewWriter(path string, log zerolog.Logger) *Writer {
    return &Writer{path: path, log: log}
}

func (w *Writer) Path() string { return w.path }

// Write replaces the file at the writer's path with the table.
func (w *Writer) Write(t domain.Table) error {
    if dir := filepath.Dir(w.path); dir != "" {
        if err := os.MkdirAll(dir, 0o755); err != nil { return fmt.Errorf("xlsx: create dir: %w", err) }
    }
    f := excelize.NewFile()
    defer func() { _ = f.Close() }()

    if err := f.SetSheetName("Sheet1", SheetName); err != nil { return fmt.Errorf("xlsx: rename sheet: %w", err) }
    if err := fill(f, t); err != nil { return err }
    if err := layout(f, t); err != nil { return err }
    if err := f.SaveAs(w.path); err != nil { return fmt.Errorf("xlsx: save %s: %w", w.path, err) }
    w.log.Info().Str("path", w.path).Int("rows", t.Len()).Msg("xlsx written")
    return nil
}

func fill(f *excelize.File, t domain.Table) error {
    header := make([]any, len(t.Columns))
    for i, c := range t.Columns { header[i] = c }
    if err := f.SetSheetRow(SheetName, "A1", &header); err != nil { return fmt.Errorf("xlsx: header: %w", err) }
    for i, r := range t.Rows {
        vals := r.Values()
        for j, v := range vals {
            if v == nil { continue }
            cell, err := excelize.CoordinatesToCellName(j+1, i+2)
            if err != nil { return err }
            if err := f.SetCellValue(SheetName, cell, v); err != nil { return fmt.Errorf("xlsx: cell %s: %w", cell, err) }
        }
    }
    return nil
}

func layout(f *excelize.File, t domain.Table) error {
    ncols := len(t.Columns)
    lastCol, err := excelize.ColumnNumberToName(ncols)
    if err != nil { return err }
    lastRow := t.Len() + 1

    for j, w := range ColumnWidths(t) {
        col, _ := excelize.ColumnNumberToName(j + 1)
        if err := f.SetColWidth(SheetName, col, col, float64(w)); err != nil { return fmt.Errorf("xlsx: width %s: %w", col, err) }
    }

    if err := f.AddTable(SheetName, &excelize.Table{
        Range: fmt.Sprintf("A1:%s%d", lastCol, lastRow),
        Name:  TableName,
    }); err != nil {
        return fmt.Errorf("xlsx: table: %w", err)
    }

    if err := f.SetPanes(SheetName, &excelize.Panes{
        Freeze:      true,
        YSplit:      1,
        TopLeftCell: "A2",
        ActivePane:  "bottomLeft",
    }); err != nil {
        return fmt.Errorf("xlsx: freeze: %w", err)
    }

    if t.Len() == 0 { return nil }
    dtFmt, dFmt := DateTimeFormat, DateFormat
    dtStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: &dtFmt})
    if err != nil { return fmt.Errorf("xlsx: style: %w", err) }
    dStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: &dFmt})
    if err != nil { return fmt.Errorf("xlsx: style: %w", err) }
    for j, c := range t.Columns {
        style := 0
        switch c {
        case domain.ColCreated, domain.ColUpdated:
            style = dtStyle
        case domain.ColDueDate:
            style = dStyle
        default:
            continue
        }
        col, _ := excelize.ColumnNumberToName(j + 1)
        if err := f.SetCellStyle(SheetName, col+"2", fmt.Sprintf("%s%d", col, lastRow), style); err != nil {
            return fmt.Errorf("xlsx: format %s: %w", c, err)
        }
    }
    return nil
}

// ColumnWidths is min(longest rendered cell + 2, 60) per column, header included.
func ColumnWidths(t domain.Table) []int {
    widths := make([]int, len(t.Columns))
    for j, c := range t.Columns { widths[j] = utf8.RuneCountInString(c) }
    for _, r := range t.Rows {
        for j, v := range r.Values() {
            if n := utf8.RuneCountInString(cellText(t.Columns[j], v)); n > widths[j] { widths[j] = n }
        }
    }
    for j := range widths {
        widths[j] += 2
        if widths[j] > maxColWidth { widths[j] = maxColWidth }
    }
    return widths
}

// cellText is the plain rendering used for width measurement.
func cellText(col string, v any) string {
    switch t := v.(type) {
    case nil:
        return ""
    case string:
        return t
    case time.Time:
        if col == domain.ColDueDate { return t.Format("2006-01-02") }
        if t.Nanosecond() != 0 { return t.Format("2006-01-02 15:04:05.000000") }
        return t.Format("2006-01-02 15:04:05")
    }
    return fmt.Sprint(v)
}
