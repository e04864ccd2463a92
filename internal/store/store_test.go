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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestTicketRowCells verifies column order and the unprocessed score cell.
func TestTicketRowCells(t *testing.T) {
	row := TicketRow{TicketID: "t1", Link: "l", Agent: "Jana", DateChanged: "2024-01-02 10:00:00", Transcript: "x"}
	cells := row.Cells()
	require.Len(t, cells, len(TicketHeaders))
	assert.Equal(t, "FALSE", cells[AnalysisColumn])
	assert.Equal(t, "", cells[8])

	row.AIProcessed = true
	row.QAScore = 87.5
	assert.Equal(t, 87.5, row.Cells()[8])
}

// TestParseTicketRow verifies sheet cells decode, including short rows and
// the spreadsheet's own boolean spelling.
func TestParseTicketRow(t *testing.T) {
	got := ParseTicketRow([]any{"t1", "l", "Jana", "2024-01-02 10:00:00", "2024-01-01 09:00:00", "x", "true", "TRUE", "91", `{"overall_score":91}`})
	assert.Equal(t, TicketRow{
		TicketID:    "t1",
		Link:        "l",
		Agent:       "Jana",
		DateChanged: "2024-01-02 10:00:00",
		DateCreated: "2024-01-01 09:00:00",
		Transcript:  "x",
		AIProcessed: true,
		IsCritical:  true,
		QAScore:     91,
		QAData:      `{"overall_score":91}`,
	}, got)

	assert.Equal(t, TicketRow{TicketID: "t2"}, ParseTicketRow([]any{"t2"}))
}

// TestParseDailyStat verifies stats decode from formatted cells.
func TestParseDailyStat(t *testing.T) {
	got := ParseDailyStat([]any{"2024-01-02", "Jana", "81.5", "2", "70", "90.1", "ok"})
	assert.Equal(t, DailyStat{Date: "2024-01-02", Agent: "Jana", AvgScore: 81.5, CriticalCount: 2, AvgEmpathy: 70, AvgExpertise: 90.1, VerbalSummary: "ok"}, got)
}

// TestMergeDailyStats verifies Date+Agent replacement semantics.
func TestMergeDailyStats(t *testing.T) {
	existing := []DailyStat{
		{Date: "2024-01-01", Agent: "Jana", AvgScore: 50},
		{Date: "2024-01-02", Agent: "Jana", AvgScore: 60},
		{Date: "2024-01-02", Agent: "Peter", AvgScore: 70},
	}
	updates := []DailyStat{{Date: "2024-01-02", Agent: "Jana", AvgScore: 99}}

	got := MergeDailyStats(existing, updates)
	require.Len(t, got, 3)
	assert.Equal(t, 50.0, got[0].AvgScore)
	assert.Equal(t, "Peter", got[1].Agent)
	assert.Equal(t, 99.0, got[2].AvgScore)
}

// TestMemory verifies the in-memory store lifecycle.
func TestMemory(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.AppendTickets(ctx, []TicketRow{{TicketID: "a"}, {TicketID: "b"}}))
	ids, err := m.TicketIDs(ctx)
	require.NoError(t, err)
	assert.Len(t, ids, 2)

	require.NoError(t, m.SaveAnalysis(ctx, []AnalysisUpdate{{TicketID: "a", IsCritical: true, QAScore: 10, AlertReason: "rude"}}))
	pending, err := m.UnprocessedTickets(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "b", pending[0].TicketID)

	all, err := m.AllTickets(ctx)
	require.NoError(t, err)
	assert.True(t, all[0].AIProcessed)
	assert.Equal(t, "rude", all[0].AlertReason)

	require.NoError(t, m.ArchiveTickets(ctx, "2024-01", all[:1]))
	require.NoError(t, m.ReplaceTickets(ctx, all[1:]))
	assert.Len(t, m.Archive("2024-01"), 1)
	ids, _ = m.TicketIDs(ctx)
	assert.Equal(t, map[string]struct{}{"b": {}}, ids)
}
