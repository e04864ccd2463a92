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

package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deskqa/ingestion/internal/config"
	"github.com/deskqa/ingestion/internal/pipeline"
	"github.com/deskqa/ingestion/internal/scheduler"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Parse([]byte("liveagent:\n  api_key: k\n"))
	require.NoError(t, err)
	return cfg
}

// TestSchedules verifies the default cadence parses and archive stays manual.
func TestSchedules(t *testing.T) {
	cfg := testConfig(t)

	schedules, err := Schedules(cfg)
	require.NoError(t, err)

	assert.Contains(t, schedules, pipeline.JobETL)
	assert.Contains(t, schedules, pipeline.JobAnalysis)
	assert.Contains(t, schedules, pipeline.JobAggregate)
	assert.NotContains(t, schedules, pipeline.JobArchive)

	loc := cfg.Location()
	// Monday 2024-03-04 07:00 local.
	monday := time.Date(2024, 3, 4, 7, 0, 0, 0, loc)
	assert.Equal(t, time.Date(2024, 3, 4, 7, 30, 0, 0, loc), schedules[pipeline.JobETL].Next(monday))
	assert.Equal(t, time.Date(2024, 3, 4, 17, 0, 0, 0, loc), schedules[pipeline.JobAggregate].Next(monday))
}

// TestSchedules_Invalid verifies a bad schedule names the job.
func TestSchedules_Invalid(t *testing.T) {
	cfg := testConfig(t)
	cfg.Schedule[pipeline.JobArchive] = config.JobSchedule{Days: "someday", Hours: "6"}

	_, err := Schedules(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse schedule archive")
}

// TestRegister verifies every job is registered and only configured ones
// get a next run.
func TestRegister(t *testing.T) {
	a := &App{Config: testConfig(t)}
	s := scheduler.New(a.Config.Location())

	require.NoError(t, a.Register(s))

	jobs := s.Jobs()
	require.Len(t, jobs, 4)
	names := make([]string, 0, len(jobs))
	for _, j := range jobs {
		names = append(names, j.Name)
		if j.Name == pipeline.JobArchive {
			assert.True(t, j.NextRun.IsZero(), "archive should be manual")
		} else {
			assert.False(t, j.NextRun.IsZero(), "%s should be scheduled", j.Name)
		}
	}
	assert.Equal(t, []string{"aggregate", "analysis", "archive", "etl"}, names)
}

// TestOpenStore_UnknownBackend verifies unsupported backends are rejected
// before any connection is attempted.
func TestOpenStore_UnknownBackend(t *testing.T) {
	cfg := testConfig(t)
	cfg.Store.Backend = "excel"

	_, err := OpenStore(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "excel")
}
