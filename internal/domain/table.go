/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package domain

import "sort"

// Table is the ordered export unit shared by all sinks.
type Table struct {
    Columns []string
    Rows    []Row
}

// BuildTable sorts rows by Created descending. Rows without Created go last;
// equal keys keep their input order. Duplicates are kept.
func BuildTable(rows []Row) Table {
    out := make([]Row, len(rows))
    copy(out, rows)
    sort.SliceStable(out, func(i, j int) bool {
        a, b := out[i].Created, out[j].Created
        if a == nil { return false }
        if b == nil { return true }
        return a.After(*b)
    })
    return Table{Columns: Columns, Rows: out}
}

// Len is the number of data rows.
func (t Table) Len() int { return len(t.Rows) }
