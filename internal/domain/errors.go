/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package domain

import (
    "fmt"
    "strings"
)

// ConfigurationError reports missing or invalid setup detected before any fetch.
type ConfigurationError struct {
    Msg string
}

func (e *ConfigurationError) Error() string { return "configuration: " + e.Msg }

// Configf builds a ConfigurationError.
func Configf(format string, args ...any) error {
    return &ConfigurationError{Msg: fmt.Sprintf(format, args...)}
}

// FetchError is a non-success tracker response other than 429.
type FetchError struct {
    Op     string
    Status int
    Body   string
}

func (e *FetchError) Error() string {
    return fmt.Sprintf("jira %s: status=%d body=%s", e.Op, e.Status, strings.TrimSpace(e.Body))
}

// ParseError is a malformed date or timestamp in a fetched record.
type ParseError struct {
    Issue string
    Field string
    Value string
    Err   error
}

func (e *ParseError) Error() string {
    return fmt.Sprintf("parse %s of %s: %q: %v", e.Field, e.Issue, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
