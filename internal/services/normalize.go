/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package services

import (
    "fmt"
    "time"

    "github.com/HamedShams/issue-sync/internal/domain"
)

const (
    jiraTimeLayout = "2006-01-02T15:04:05.999999999-0700"
    jiraDateLayout = "2006-01-02"
)

// lookup follows path through nested objects. It reports false as soon as a
// segment is missing, null or not an object.
func lookup(tree any, path ...string) (any, bool) {
    cur := tree
    for _, k := range path {
        m, ok := asMap(cur)
        if !ok { return nil, false }
        cur, ok = m[k]
        if !ok || cur == nil { return nil, false }
    }
    return cur, cur != nil
}

func asMap(v any) (map[string]any, bool) {
    switch t := v.(type) {
    case map[string]any:
        return t, true
    case domain.RawIssue:
        return t, true
    }
    return nil, false
}

func toStrAny(v any) string {
    if v == nil { return "" }
    if s, ok := v.(string); ok { return s }
    return fmt.Sprintf("%v", v)
}

func str(tree any, path ...string) string {
    v, ok := lookup(tree, path...)
    if !ok { return "" }
    return toStrAny(v)
}

// parseNaive keeps the wall clock of a tracker timestamp and drops its offset.
func parseNaive(s string) (*time.Time, error) {
    t, err := time.Parse(jiraTimeLayout, s)
    if err != nil { return nil, err }
    n := time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
    return &n, nil
}

func parseDate(s string) (*time.Time, error) {
    t, err := time.Parse(jiraDateLayout, s)
    if err != nil { return nil, err }
    return &t, nil
}

// Normalize flattens one raw issue. Missing values become empty; malformed
// dates are returned as *domain.ParseError.
func Normalize(raw domain.RawIssue) (domain.Row, error) {
    fields, _ := lookup(raw, "fields")
    row := domain.Row{
        Key:        str(raw, "key"),
        Work:       str(fields, "summary"),
        Assignee:   str(fields, "assignee", "displayName"),
        Reporter:   str(fields, "reporter", "displayName"),
        Priority:   str(fields, "priority", "name"),
        Status:     str(fields, "status", "name"),
        Resolution: str(fields, "resolution", "name"),
    }
    if row.Resolution == "" { row.Resolution = domain.UnresolvedResolution }

    timeField := func(name, col string, parse func(string) (*time.Time, error)) (*time.Time, error) {
        s := str(fields, name)
        if s == "" { return nil, nil }
        t, err := parse(s)
        if err != nil { return nil, &domain.ParseError{Issue: row.Key, Field: col, Value: s, Err: err} }
        return t, nil
    }
    var err error
    if row.Created, err = timeField("created", domain.ColCreated, parseNaive); err != nil { return row, err }
    if row.Updated, err = timeField("updated", domain.ColUpdated, parseNaive); err != nil { return row, err }
    if row.DueDate, err = timeField("duedate", domain.ColDueDate, parseDate); err != nil { return row, err }
    return row, nil
}

// NormalizeAll stops at the first malformed record.
func NormalizeAll(raws []domain.RawIssue) ([]domain.Row, error) {
    rows := make([]domain.Row, 0, len(raws))
    for _, r := range raws {
        row, err := Normalize(r)
        if err != nil { return nil, err }
        rows = append(rows, row)
    }
    return rows, nil
}

// FormatDuration renders a run time as "H h M min S sec" or "M min S sec".
func FormatDuration(d time.Duration) string {
    total := int(d.Round(time.Second) / time.Second)
    m, s := total/60, total%60
    if m >= 60 {
        return fmt.Sprintf("%d h %d min %d sec", m/60, m%60, s)
    }
    return fmt.Sprintf("%d min %d sec", m, s)
}
