// Copyright (c) 2026 John Earle
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package store

import (
	"context"
	"sync"
)

var _ Store = (*Memory)(nil)

// Memory is an in-process Store for tests and dry runs.
type Memory struct {
	mu       sync.Mutex
	tickets  []TicketRow
	archives map[string][]TicketRow
	stats    []DailyStat
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{archives: make(map[string][]TicketRow)}
}

func (m *Memory) EnsureSchema(context.Context) error { return nil }

func (m *Memory) TicketIDs(context.Context) (map[string]struct{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make(map[string]struct{}, len(m.tickets))
	for _, r := range m.tickets {
		ids[r.TicketID] = struct{}{}
	}
	return ids, nil
}

func (m *Memory) AppendTickets(_ context.Context, rows []TicketRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tickets = append(m.tickets, rows...)
	return nil
}

func (m *Memory) UnprocessedTickets(context.Context) ([]TicketRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []TicketRow
	for _, r := range m.tickets {
		if !r.AIProcessed {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *Memory) SaveAnalysis(_ context.Context, updates []AnalysisUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	byID := make(map[string]AnalysisUpdate, len(updates))
	for _, u := range updates {
		byID[u.TicketID] = u
	}
	for i, r := range m.tickets {
		u, ok := byID[r.TicketID]
		if !ok {
			continue
		}
		r.AIProcessed = true
		r.IsCritical = u.IsCritical
		r.QAScore = u.QAScore
		r.QAData = u.QAData
		r.AlertReason = u.AlertReason
		m.tickets[i] = r
	}
	return nil
}

func (m *Memory) AllTickets(context.Context) ([]TicketRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]TicketRow(nil), m.tickets...), nil
}

func (m *Memory) ReplaceTickets(_ context.Context, rows []TicketRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tickets = append([]TicketRow(nil), rows...)
	return nil
}

func (m *Memory) ArchiveTickets(_ context.Context, month string, rows []TicketRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.archives[month] = append(m.archives[month], rows...)
	return nil
}

// Archive returns the rows archived under month.
func (m *Memory) Archive(month string) []TicketRow {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]TicketRow(nil), m.archives[month]...)
}

func (m *Memory) UpsertDailyStats(_ context.Context, stats []DailyStat) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats = MergeDailyStats(m.stats, stats)
	return nil
}

func (m *Memory) DailyStats(context.Context) ([]DailyStat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]DailyStat(nil), m.stats...), nil
}

func (m *Memory) Close() error { return nil }

// MergeDailyStats drops existing rows whose Date+Agent appears in updates
// and appends updates after the survivors.
func MergeDailyStats(existing, updates []DailyStat) []DailyStat {
	replace := make(map[[2]string]struct{}, len(updates))
	for _, s := range updates {
		replace[s.Key()] = struct{}{}
	}
	out := make([]DailyStat, 0, len(existing)+len(updates))
	for _, s := range existing {
		if _, ok := replace[s.Key()]; !ok {
			out = append(out, s)
		}
	}
	return append(out, updates...)
}
