/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package repo

import (
    "context"
    "sync"

    "github.com/HamedShams/issue-sync/internal/domain"
)

// Memory keeps run history in process when no database is configured.
type Memory struct {
    mu   sync.Mutex
    runs []domain.Run
    max  int
}

func NewMemory(max int) *Memory {
    if max <= 0 { max = 50 }
    return &Memory{max: max}
}

func (m *Memory) StartRun(_ context.Context, run domain.Run) error {
    m.mu.Lock()
    defer m.mu.Unlock()
    m.runs = append(m.runs, run)
    if len(m.runs) > m.max { m.runs = m.runs[len(m.runs)-m.max:] }
    return nil
}

func (m *Memory) FinishRun(_ context.Context, run domain.Run) error {
    m.mu.Lock()
    defer m.mu.Unlock()
    for i := len(m.runs) - 1; i >= 0; i-- {
        if m.runs[i].ID == run.ID { m.runs[i] = run; return nil }
    }
    m.runs = append(m.runs, run)
    return nil
}

func (m *Memory) LastRun(context.Context) (*domain.Run, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    if len(m.runs) == 0 { return nil, nil }
    r := m.runs[len(m.runs)-1]
    return &r, nil
}
