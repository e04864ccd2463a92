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

package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deskqa/ingestion/internal/store"
	"github.com/deskqa/ingestion/internal/testutil"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := New(testutil.NewTestDB(t))
	require.NoError(t, s.EnsureSchema(context.Background()))
	// A second call must be a no-op.
	require.NoError(t, s.EnsureSchema(context.Background()))
	return s
}

// TestStore_TicketLifecycle verifies append, analysis and ordering.
func TestStore_TicketLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.AppendTickets(ctx, []store.TicketRow{
		{TicketID: "b", Agent: "Jana", Transcript: "t-b"},
		{TicketID: "a", Agent: "Eva", Transcript: "t-a"},
	}))
	// Duplicate ids are ignored.
	require.NoError(t, s.AppendTickets(ctx, []store.TicketRow{{TicketID: "a", Agent: "Other"}}))

	ids, err := s.TicketIDs(ctx)
	require.NoError(t, err)
	assert.Len(t, ids, 2)

	require.NoError(t, s.SaveAnalysis(ctx, []store.AnalysisUpdate{
		{TicketID: "b", IsCritical: true, QAScore: 42.5, QAData: `{"overall_score":42.5}`, AlertReason: "rude"},
	}))

	pending, err := s.UnprocessedTickets(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "a", pending[0].TicketID)
	assert.Equal(t, "Eva", pending[0].Agent)

	all, err := s.AllTickets(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "b", all[0].TicketID)
	assert.True(t, all[0].AIProcessed)
	assert.True(t, all[0].IsCritical)
	assert.Equal(t, 42.5, all[0].QAScore)
	assert.Equal(t, "rude", all[0].AlertReason)
}

// TestStore_ArchiveAndReplace verifies rows move to archives and the live
// table is rewritten in order.
func TestStore_ArchiveAndReplace(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.AppendTickets(ctx, []store.TicketRow{
		{TicketID: "1", DateChanged: "2024-01-05 10:00:00"},
		{TicketID: "2", DateChanged: "2024-02-05 10:00:00"},
		{TicketID: "3", DateChanged: "2024-02-09 10:00:00"},
	}))
	all, err := s.AllTickets(ctx)
	require.NoError(t, err)

	require.NoError(t, s.ArchiveTickets(ctx, "2024-01", all[:1]))
	require.NoError(t, s.ReplaceTickets(ctx, all[1:]))

	archived, err := s.ArchivedTickets(ctx, "2024-01")
	require.NoError(t, err)
	require.Len(t, archived, 1)
	assert.Equal(t, "1", archived[0].TicketID)

	live, err := s.AllTickets(ctx)
	require.NoError(t, err)
	require.Len(t, live, 2)
	assert.Equal(t, "2", live[0].TicketID)
	assert.Equal(t, "3", live[1].TicketID)

	// New rows still append after the rewritten ones.
	require.NoError(t, s.AppendTickets(ctx, []store.TicketRow{{TicketID: "4"}}))
	live, err = s.AllTickets(ctx)
	require.NoError(t, err)
	assert.Equal(t, "4", live[2].TicketID)
}

// TestStore_UpsertDailyStats verifies date+agent rows are replaced.
func TestStore_UpsertDailyStats(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.UpsertDailyStats(ctx, []store.DailyStat{
		{Date: "2024-01-01", Agent: "Jana", AvgScore: 70, CriticalCount: 1},
		{Date: "2024-01-01", Agent: "Eva", AvgScore: 90},
	}))
	require.NoError(t, s.UpsertDailyStats(ctx, []store.DailyStat{
		{Date: "2024-01-01", Agent: "Jana", AvgScore: 75.5, CriticalCount: 2, VerbalSummary: "better"},
	}))

	stats, err := s.DailyStats(ctx)
	require.NoError(t, err)
	require.Len(t, stats, 2)
	assert.Equal(t, "Eva", stats[0].Agent)
	assert.Equal(t, store.DailyStat{
		Date: "2024-01-01", Agent: "Jana", AvgScore: 75.5, CriticalCount: 2, VerbalSummary: "better",
	}, stats[1])
}

// TestStore_NotConnected verifies a store without a pool reports it.
func TestStore_NotConnected(t *testing.T) {
	assert.ErrorIs(t, New(nil).EnsureSchema(context.Background()), store.ErrNotConnected)
}
