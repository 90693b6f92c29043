/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package services

import (
    "context"
    "fmt"
    "strconv"
    "strings"

    "github.com/HamedShams/issue-sync/internal/adapters/jira"
    "github.com/HamedShams/issue-sync/internal/domain"
    "github.com/rs/zerolog"
)

// SourceOptions are the three ways a run can name its issues.
type SourceOptions struct {
    QueryString string
    FilterID    string
    FilterName  string
}

// FilterFinder looks filters up by name.
type FilterFinder interface {
    SearchFilters(ctx context.Context, name string) ([]jira.Filter, error)
}

// ResolveQuery picks the first set option in the order query string, filter id,
// filter name. Name lookups prefer an exact, case-sensitive match and otherwise
// take the first candidate.
func ResolveQuery(ctx context.Context, opts SourceOptions, finder FilterFinder, log zerolog.Logger) (domain.Query, error) {
    qs := strings.TrimSpace(opts.QueryString)
    fid := strings.TrimSpace(opts.FilterID)
    fname := strings.TrimSpace(opts.FilterName)

    set := 0
    for _, v := range []string{qs, fid, fname} {
        if v != "" { set++ }
    }
    if set == 0 {
        return domain.Query{}, domain.Configf("provide JIRA_JQL, JIRA_FILTER_ID or JIRA_FILTER_NAME")
    }
    if set > 1 {
        log.Warn().Bool("jql", qs != "").Bool("filter_id", fid != "").Bool("filter_name", fname != "").
            Msg("several issue sources set; using the highest priority one")
    }

    switch {
    case qs != "":
        return domain.Query{JQL: qs, Origin: "jql"}, nil
    case fid != "":
        id, err := strconv.ParseInt(fid, 10, 64)
        if err != nil { return domain.Query{}, domain.Configf("JIRA_FILTER_ID must be a number, got %q", fid) }
        return domain.Query{JQL: fmt.Sprintf("filter=%d", id), Origin: "filter_id"}, nil
    }

    candidates, err := finder.SearchFilters(ctx, fname)
    if err != nil { return domain.Query{}, fmt.Errorf("find filter %q: %w", fname, err) }
    var picked *jira.Filter
    for i := range candidates {
        if candidates[i].Name == fname { picked = &candidates[i]; break }
    }
    if picked == nil && len(candidates) > 0 {
        picked = &candidates[0]
        log.Warn().Str("wanted", fname).Str("picked", picked.Name).Int("candidates", len(candidates)).Msg("no exact filter name match; using first candidate")
    }
    if picked == nil { return domain.Query{}, domain.Configf("filter %q not found", fname) }
    id, err := picked.ID.Int64()
    if err != nil { return domain.Query{}, domain.Configf("filter %q has non-numeric id %q", picked.Name, picked.ID) }
    return domain.Query{JQL: fmt.Sprintf("filter=%d", id), Origin: "filter_name"}, nil
}
