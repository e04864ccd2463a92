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

// Package store defines the row store the QA pipeline reads and writes:
// ingested tickets with their transcripts and analysis results, monthly
// archives, and per-agent daily statistics. Backends live in subpackages.
package store

import (
	"context"
	"errors"
)

// ErrNotConnected is returned by a backend used before it is ready.
var ErrNotConnected = errors.New("store: not connected")

// TicketRow is one ingested ticket.
type TicketRow struct {
	TicketID    string
	Link        string
	Agent       string
	DateChanged string // local time, "2006-01-02 15:04:05"
	DateCreated string
	Transcript  string
	AIProcessed bool
	IsCritical  bool
	QAScore     float64
	QAData      string // JSON-encoded QA result
	AlertReason string
}

// AnalysisUpdate is the result of analysing one ticket.
type AnalysisUpdate struct {
	TicketID    string
	IsCritical  bool
	QAScore     float64
	QAData      string
	AlertReason string
}

// DailyStat is one agent's aggregate for one day.
type DailyStat struct {
	Date          string // "2006-01-02"
	Agent         string
	AvgScore      float64
	CriticalCount int
	AvgEmpathy    float64
	AvgExpertise  float64
	VerbalSummary string
}

// Key identifies the stat row an upsert replaces.
func (s DailyStat) Key() [2]string {
	return [2]string{s.Date, s.Agent}
}

// Store is implemented by the sheets and postgres backends.
type Store interface {
	// EnsureSchema creates the ticket and stats tables (or sheets) when
	// missing.
	EnsureSchema(ctx context.Context) error
	// TicketIDs returns the ids of all live (unarchived) tickets.
	TicketIDs(ctx context.Context) (map[string]struct{}, error)
	// AppendTickets adds new rows after the existing ones.
	AppendTickets(ctx context.Context, rows []TicketRow) error
	// UnprocessedTickets returns rows not yet analysed, in stored order.
	UnprocessedTickets(ctx context.Context) ([]TicketRow, error)
	// SaveAnalysis marks rows analysed and stores their results.
	SaveAnalysis(ctx context.Context, updates []AnalysisUpdate) error
	// AllTickets returns every live row in stored order.
	AllTickets(ctx context.Context) ([]TicketRow, error)
	// ReplaceTickets overwrites the live rows.
	ReplaceTickets(ctx context.Context, rows []TicketRow) error
	// ArchiveTickets appends rows to the archive for month ("2006-01").
	ArchiveTickets(ctx context.Context, month string, rows []TicketRow) error
	// UpsertDailyStats writes stats, replacing rows with the same Date and
	// Agent.
	UpsertDailyStats(ctx context.Context, stats []DailyStat) error
	// DailyStats returns all stored stats.
	DailyStats(ctx context.Context) ([]DailyStat, error)
	Close() error
}
