/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package jira

import (
    "bytes"
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "io"
    "net/http"
    "net/url"
    "strconv"
    "strings"
    "time"

    "github.com/HamedShams/issue-sync/internal/config"
    "github.com/HamedShams/issue-sync/internal/domain"
    "github.com/HamedShams/issue-sync/internal/metrics"
    "github.com/rs/zerolog"
)

// IssueFields are requested from the bulk-fetch endpoint; keep in sync with the normalizer.
var IssueFields = []string{
    "summary", "assignee", "reporter", "priority", "status", "resolution",
    "created", "updated", "duedate",
}

type Client struct {
    baseURL      string
    user         string
    token        string
    http         *http.Client
    log          zerolog.Logger
    pageSize     int
    bulkSize     int
    retryDefault time.Duration
    sleep        func(ctx context.Context, d time.Duration) error
}

func NewClient(cfg config.Config, log zerolog.Logger) *Client {
    c := &Client{
        baseURL:      strings.TrimRight(cfg.JiraBaseURL, "/"),
        user:         cfg.JiraEmail,
        token:        cfg.JiraAPIToken,
        http:         &http.Client{Timeout: cfg.HTTPTimeout},
        log:          log,
        pageSize:     cfg.JiraPageSize,
        bulkSize:     cfg.JiraBulkSize,
        retryDefault: cfg.Retry429Default,
        sleep:        sleepCtx,
    }
    if c.pageSize <= 0 { c.pageSize = 100 }
    if c.bulkSize <= 0 { c.bulkSize = 100 }
    if c.retryDefault <= 0 { c.retryDefault = 10 * time.Second }
    return c
}

func sleepCtx(ctx context.Context, d time.Duration) error {
    t := time.NewTimer(d)
    defer t.Stop()
    select {
    case <-ctx.Done():
        return ctx.Err()
    case <-t.C:
        return nil
    }
}

func (c *Client) apiURL(path string, q url.Values) string {
    if !strings.HasPrefix(path, "/") { path = "/" + path }
    u := c.baseURL + path
    if len(q) > 0 { u = u + "?" + q.Encode() }
    return u
}

// retryAfter reads Retry-After as whole seconds.
func retryAfter(h string, def time.Duration) time.Duration {
    h = strings.TrimSpace(h)
    if h == "" { return def }
    n, err := strconv.Atoi(h)
    if err != nil || n < 0 { return def }
    return time.Duration(n) * time.Second
}

// do sends one request and retries it for as long as the server answers 429.
// Transport errors, including per-request timeouts, are returned as is.
func (c *Client) do(ctx context.Context, op, method, u string, body any) ([]byte, error) {
    if c.baseURL == "" { return nil, errors.New("jira: empty baseURL") }
    var payload []byte
    if body != nil {
        b, err := json.Marshal(body)
        if err != nil { return nil, fmt.Errorf("jira %s: marshal: %w", op, err) }
        payload = b
    }
    for attempt := 1; ; attempt++ {
        var r io.Reader
        if payload != nil { r = bytes.NewReader(payload) }
        req, err := http.NewRequestWithContext(ctx, method, u, r)
        if err != nil { return nil, fmt.Errorf("jira %s: %w", op, err) }
        req.SetBasicAuth(c.user, c.token)
        req.Header.Set("Accept", "application/json")
        if payload != nil { req.Header.Set("Content-Type", "application/json") }

        resp, err := c.http.Do(req)
        if err != nil { return nil, fmt.Errorf("jira %s: %w", op, err) }
        b, readErr := io.ReadAll(resp.Body)
        _ = resp.Body.Close()

        if resp.StatusCode == http.StatusTooManyRequests {
            wait := retryAfter(resp.Header.Get("Retry-After"), c.retryDefault)
            metrics.RateLimitWaits.Inc()
            c.log.Warn().Str("op", op).Int("attempt", attempt).Dur("wait", wait).Msg("jira rate limited; backing off")
            if err := c.sleep(ctx, wait); err != nil { return nil, err }
            continue
        }
        if resp.StatusCode < 200 || resp.StatusCode >= 300 {
            return nil, &domain.FetchError{Op: op, Status: resp.StatusCode, Body: string(b)}
        }
        if readErr != nil { return nil, fmt.Errorf("jira %s: read body: %w", op, readErr) }
        return b, nil
    }
}

// Filter is a saved search as returned by filter/search.
type Filter struct {
    ID   json.Number `json:"id"`
    Name string      `json:"name"`
}

// SearchFilters lists filters whose name matches name (server-side fuzzy match).
func (c *Client) SearchFilters(ctx context.Context, name string) ([]Filter, error) {
    q := url.Values{}
    q.Set("filterName", name)
    b, err := c.do(ctx, "filter search", http.MethodGet, c.apiURL("/rest/api/3/filter/search", q), nil)
    if err != nil { return nil, err }
    var out struct {
        Values []Filter `json:"values"`
    }
    if err := json.Unmarshal(b, &out); err != nil { return nil, fmt.Errorf("jira filter search: decode: %w", err) }
    return out.Values, nil
}

type searchRequest struct {
    JQL           string   `json:"jql"`
    MaxResults    int      `json:"maxResults"`
    Fields        []string `json:"fields"`
    NextPageToken string   `json:"nextPageToken,omitempty"`
}

type searchResponse struct {
    Issues []struct {
        ID  string `json:"id"`
        Key string `json:"key"`
    } `json:"issues"`
    NextPageToken string `json:"nextPageToken"`
}

// Discover walks the cursor-paginated search and returns issue ids in response order.
func (c *Client) Discover(ctx context.Context, jql string) ([]string, error) {
    if strings.TrimSpace(jql) == "" { return nil, errors.New("jira: empty jql") }
    var ids []string
    token := ""
    for page := 1; ; page++ {
        body := searchRequest{JQL: jql, MaxResults: c.pageSize, Fields: []string{"id"}, NextPageToken: token}
        b, err := c.do(ctx, "search", http.MethodPost, c.apiURL("/rest/api/3/search/jql", nil), body)
        if err != nil { return nil, err }
        var res searchResponse
        if err := json.Unmarshal(b, &res); err != nil { return nil, fmt.Errorf("jira search: decode page %d: %w", page, err) }
        for _, is := range res.Issues {
            id := is.ID
            if id == "" { id = is.Key }
            ids = append(ids, id)
        }
        c.log.Debug().Int("page", page).Int("page_size", len(res.Issues)).Int("ids", len(ids)).Msg("jira discovery page")
        if res.NextPageToken == "" || len(res.Issues) == 0 { break }
        token = res.NextPageToken
    }
    return ids, nil
}

type bulkRequest struct {
    IssueIDsOrKeys []string `json:"issueIdsOrKeys"`
    Fields         []string `json:"fields"`
}

type bulkResponse struct {
    Issues      []map[string]any `json:"issues"`
    IssueErrors []struct {
        IssueIDsOrKeys []string `json:"issueIdsOrKeys"`
        Status         int      `json:"status"`
        ElementErrors  struct {
            ErrorMessages []string `json:"errorMessages"`
        } `json:"elementErrors"`
    } `json:"issueErrors"`
}

// BulkFetch retrieves full records for ids, chunk by chunk, preserving chunk order.
func (c *Client) BulkFetch(ctx context.Context, ids []string, fields []string) ([]domain.RawIssue, error) {
    out := make([]domain.RawIssue, 0, len(ids))
    for start := 0; start < len(ids); start += c.bulkSize {
        end := start + c.bulkSize
        if end > len(ids) { end = len(ids) }
        chunk := ids[start:end]
        b, err := c.do(ctx, "bulkfetch", http.MethodPost, c.apiURL("/rest/api/3/issue/bulkfetch", nil), bulkRequest{IssueIDsOrKeys: chunk, Fields: fields})
        if err != nil { return nil, err }
        var res bulkResponse
        if err := json.Unmarshal(b, &res); err != nil { return nil, fmt.Errorf("jira bulkfetch: decode chunk at %d: %w", start, err) }
        for _, e := range res.IssueErrors {
            c.log.Warn().Strs("ids", e.IssueIDsOrKeys).Int("status", e.Status).Strs("errors", e.ElementErrors.ErrorMessages).Msg("jira bulkfetch: partial batch")
        }
        for _, is := range res.Issues { out = append(out, domain.RawIssue(is)) }
        c.log.Debug().Int("chunk_start", start).Int("requested", len(chunk)).Int("returned", len(res.Issues)).Msg("jira bulkfetch chunk")
    }
    return out, nil
}

// Fetch runs discovery then bulk retrieval for q. No ids means no bulk calls.
func (c *Client) Fetch(ctx context.Context, q domain.Query) ([]domain.RawIssue, error) {
    ids, err := c.Discover(ctx, q.JQL)
    if err != nil { return nil, err }
    c.log.Info().Str("jql", q.JQL).Int("ids", len(ids)).Msg("jira discovery done")
    if len(ids) == 0 { return nil, nil }
    return c.BulkFetch(ctx, ids, IssueFields)
}
