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

package jobstatus

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deskqa/ingestion/internal/testutil"
)

func fixedClock() func() time.Time {
	t := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)
	return func() time.Time { return t }
}

// TestMemory_SetStatus verifies statuses, log lines and listeners.
func TestMemory_SetStatus(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	m.now = fixedClock()

	var got []Status
	unsubscribe := m.Subscribe(func(s Status) { got = append(got, s) })

	m.SetStatus(ctx, "etl", StateRunning, 20, "Fetching tickets")
	m.SetStatus(ctx, "etl", StateCompleted, 150, "done")

	statuses, err := m.Statuses(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, statuses["etl"].State)
	assert.Equal(t, 100, statuses["etl"].Progress)

	logs, err := m.Logs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"[09:30:00] [etl] COMPLETED: done",
		"[09:30:00] [etl] RUNNING: Fetching tickets",
	}, logs)
	require.Len(t, got, 2)

	unsubscribe()
	m.SetStatus(ctx, "etl", StateIdle, 0, "")
	assert.Len(t, got, 2)
}

// TestMemory_LogCap verifies the rolling log keeps the newest lines.
func TestMemory_LogCap(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	for i := 0; i < MaxLogLines+20; i++ {
		m.Log(ctx, fmt.Sprintf("line %d", i))
	}
	logs, err := m.Logs(ctx)
	require.NoError(t, err)
	require.Len(t, logs, MaxLogLines)
	assert.Contains(t, logs[0], fmt.Sprintf("line %d", MaxLogLines+19))
	assert.Contains(t, logs[MaxLogLines-1], "line 20")
}

// TestRedis verifies the Redis reporter against a real server.
func TestRedis(t *testing.T) {
	rdb := testutil.NewTestRedis(t)
	ctx := context.Background()

	r := NewRedis(rdb)
	r.now = fixedClock()

	var notified int
	r.Subscribe(func(Status) { notified++ })

	r.SetStatus(ctx, "analysis", StateRunning, 45, "Analyzing 3/6")
	for i := 0; i < MaxLogLines+5; i++ {
		r.Log(ctx, "tick")
	}

	statuses, err := r.Statuses(ctx)
	require.NoError(t, err)
	assert.Equal(t, 45, statuses["analysis"].Progress)
	assert.Equal(t, "Analyzing 3/6", statuses["analysis"].Message)
	assert.Equal(t, 1, notified)

	logs, err := r.Logs(ctx)
	require.NoError(t, err)
	assert.Len(t, logs, MaxLogLines)
	assert.Equal(t, "[09:30:00] tick", logs[0])

	require.NoError(t, r.ClearLogs(ctx))
	logs, err = r.Logs(ctx)
	require.NoError(t, err)
	assert.Empty(t, logs)
}
