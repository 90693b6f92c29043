/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package domain

import "time"

// Column names in table order.
const (
    ColKey        = "key"
    ColWork       = "work"
    ColAssignee   = "assignee"
    ColReporter   = "reporter"
    ColPriority   = "priority"
    ColStatus     = "status"
    ColResolution = "resolution"
    ColCreated    = "created"
    ColUpdated    = "updated"
    ColDueDate    = "due_date"
)

// Columns is the fixed column order of every exported table.
var Columns = []string{
    ColKey, ColWork, ColAssignee, ColReporter, ColPriority,
    ColStatus, ColResolution, ColCreated, ColUpdated, ColDueDate,
}

// UnresolvedResolution is written when an issue has no resolution.
const UnresolvedResolution = "Unresolved"

// Query is the resolved search expression sent to the tracker.
type Query struct {
    JQL    string
    Origin string // "jql", "filter_id" or "filter_name"
}

// RawIssue is one issue as decoded from the bulk-fetch response.
type RawIssue map[string]any

// Row is the flat form of an issue. Empty strings and nil times mean absent.
// Created and Updated carry the tracker's wall clock in time.UTC; the
// source offset is dropped, not converted.
type Row struct {
    Key        string
    Work       string
    Assignee   string
    Reporter   string
    Priority   string
    Status     string
    Resolution string
    Created    *time.Time
    Updated    *time.Time
    DueDate    *time.Time
}

// Values returns the row's cells in Columns order. Absent cells are nil.
func (r Row) Values() []any {
    out := make([]any, 0, len(Columns))
    for _, s := range []string{r.Key, r.Work, r.Assignee, r.Reporter, r.Priority, r.Status, r.Resolution} {
        if s == "" {
            out = append(out, nil)
            continue
        }
        out = append(out, s)
    }
    for _, t := range []*time.Time{r.Created, r.Updated, r.DueDate} {
        if t == nil {
            out = append(out, nil)
            continue
        }
        out = append(out, *t)
    }
    return out
}

// Run is the summary of one pipeline run.
type Run struct {
    ID         string     `json:"id"`
    Query      string     `json:"query"`
    StartedAt  time.Time  `json:"started_at"`
    FinishedAt *time.Time `json:"finished_at"`
    Issues     int        `json:"issues"`
    OutputFile string     `json:"output_file"`
    Success    bool       `json:"success"`
    Error      string     `json:"error"`
    RemoteOK   bool       `json:"remote_ok"`
    RemoteErr  string     `json:"remote_error,omitempty"`
    ArchiveURL string     `json:"archive_url,omitempty"`
}
