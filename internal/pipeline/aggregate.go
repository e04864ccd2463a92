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

package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"

	"github.com/deskqa/ingestion/internal/analysis"
	"github.com/deskqa/ingestion/internal/jobstatus"
	"github.com/deskqa/ingestion/internal/store"
)

// Aggregator rolls analysed tickets up into per-agent daily statistics.
type Aggregator struct {
	store    store.Store
	reporter jobstatus.Reporter
}

// NewAggregator creates the aggregation job.
func NewAggregator(s store.Store, r jobstatus.Reporter) *Aggregator {
	return &Aggregator{store: s, reporter: r}
}

type statAcc struct {
	count, critical           int
	score, empathy, expertise float64
	summary                   string
}

// Aggregate groups analysed rows by the date part of DateChanged and the
// agent. Averages are rounded to one decimal; the last non-empty summary
// wins. Output is sorted by date, then agent.
func Aggregate(rows []store.TicketRow) []store.DailyStat {
	acc := make(map[[2]string]*statAcc)
	for _, r := range rows {
		if !r.AIProcessed {
			continue
		}
		date, _, _ := strings.Cut(strings.TrimSpace(r.DateChanged), " ")
		if date == "" {
			continue
		}
		agent := r.Agent
		if agent == "" {
			agent = "Unknown"
		}

		key := [2]string{date, agent}
		a, ok := acc[key]
		if !ok {
			a = &statAcc{}
			acc[key] = a
		}
		a.count++
		if r.IsCritical {
			a.critical++
		}

		qa, err := analysis.ParseQAData(r.QAData)
		if err != nil {
			slog.Debug("unreadable qa data, counting score only", "ticket_id", r.TicketID, "error", err)
			a.score += r.QAScore
			continue
		}
		a.score += qa.OverallScore
		a.empathy += qa.Criteria.Empathy
		a.expertise += qa.Criteria.Expertise
		if qa.VerbalSummary != "" {
			a.summary = qa.VerbalSummary
		}
	}

	out := make([]store.DailyStat, 0, len(acc))
	for key, a := range acc {
		n := float64(a.count)
		out = append(out, store.DailyStat{
			Date:          key[0],
			Agent:         key[1],
			AvgScore:      round1(a.score / n),
			CriticalCount: a.critical,
			AvgEmpathy:    round1(a.empathy / n),
			AvgExpertise:  round1(a.expertise / n),
			VerbalSummary: a.summary,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].Agent < out[j].Agent
	})
	return out
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// Run recomputes daily statistics from the live rows.
func (g *Aggregator) Run(ctx context.Context) ([]store.DailyStat, error) {
	g.reporter.SetStatus(ctx, JobAggregate, jobstatus.StateRunning, 0, "Starting...")

	rows, err := g.store.AllTickets(ctx)
	if err != nil {
		g.reporter.SetStatus(ctx, JobAggregate, jobstatus.StateError, 0, "Failed to connect")
		return nil, fmt.Errorf("read tickets: %w", err)
	}

	stats := Aggregate(rows)
	if len(stats) == 0 {
		g.reporter.SetStatus(ctx, JobAggregate, jobstatus.StateCompleted, 100, "No valid stats calculated.")
		return nil, nil
	}

	g.reporter.SetStatus(ctx, JobAggregate, jobstatus.StateRunning, 50, fmt.Sprintf("Updating %d daily stats records...", len(stats)))
	if err := g.store.UpsertDailyStats(ctx, stats); err != nil {
		g.reporter.SetStatus(ctx, JobAggregate, jobstatus.StateError, 0, err.Error())
		return nil, fmt.Errorf("upsert daily stats: %w", err)
	}

	g.reporter.SetStatus(ctx, JobAggregate, jobstatus.StateCompleted, 100, "Daily Stats Updated.")
	slog.Info("daily aggregation complete", "records", len(stats))
	return stats, nil
}
