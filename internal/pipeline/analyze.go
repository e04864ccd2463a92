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
	"strings"
	"time"

	"github.com/deskqa/ingestion/internal/jobstatus"
	"github.com/deskqa/ingestion/internal/queue"
	"github.com/deskqa/ingestion/internal/store"
)

// AnalysisConfig holds dependencies for the analysis job.
type AnalysisConfig struct {
	Store     store.Store
	Analyzer  TicketAnalyzer
	Publisher AlertPublisher // optional; nil disables alerts
	Reporter  jobstatus.Reporter
}

// AnalysisResult summarises one analysis cycle.
type AnalysisResult struct {
	Analyzed int
	Critical int
	Failed   int
	Alerts   int
	Elapsed  time.Duration
}

// Analysis scores unprocessed tickets and queues alerts for critical ones.
type Analysis struct {
	cfg AnalysisConfig
}

// NewAnalysis creates the analysis job.
func NewAnalysis(cfg AnalysisConfig) *Analysis {
	return &Analysis{cfg: cfg}
}

// Run analyses every unprocessed ticket with a transcript. Tickets the
// model fails on stay unprocessed and are retried next cycle.
func (a *Analysis) Run(ctx context.Context) (*AnalysisResult, error) {
	start := time.Now()
	rep := a.cfg.Reporter
	rep.SetStatus(ctx, JobAnalysis, jobstatus.StateRunning, 0, "Starting...")
	rep.Log(ctx, "Analysis: Starting AI Analysis cycle")

	rows, err := a.cfg.Store.UnprocessedTickets(ctx)
	if err != nil {
		rep.SetStatus(ctx, JobAnalysis, jobstatus.StateError, 0, "Failed to connect")
		return nil, fmt.Errorf("read unprocessed tickets: %w", err)
	}
	rep.Log(ctx, fmt.Sprintf("Analysis: Found %d unprocessed tickets", len(rows)))

	result := &AnalysisResult{}
	var (
		updates []store.AnalysisUpdate
		alerts  []queue.AlertEvent
	)
	total := max(len(rows), 1)

	for _, row := range rows {
		if ctx.Err() != nil {
			break
		}
		if strings.TrimSpace(row.Transcript) == "" {
			continue
		}

		progress := result.Analyzed*80/total + 10
		rep.SetStatus(ctx, JobAnalysis, jobstatus.StateRunning, progress, fmt.Sprintf("Analyzing %s...", row.TicketID))
		rep.Log(ctx, fmt.Sprintf("Analysis: Analyzing ticket %s", row.TicketID))

		res, err := a.cfg.Analyzer.Analyze(ctx, row.Transcript)
		if err != nil {
			slog.Warn("analysis failed", "ticket_id", row.TicketID, "error", err)
			rep.Log(ctx, fmt.Sprintf("Analysis: Ticket %s failed - %v", row.TicketID, err))
			result.Failed++
			continue
		}
		result.Analyzed++

		updates = append(updates, store.AnalysisUpdate{
			TicketID:    row.TicketID,
			IsCritical:  res.AlertData.IsCritical,
			QAScore:     res.QAData.OverallScore,
			QAData:      res.QAJSON(),
			AlertReason: res.AlertData.Reason,
		})
		rep.Log(ctx, fmt.Sprintf("Analysis: Ticket %s - Score: %g, Critical: %t",
			row.TicketID, res.QAData.OverallScore, res.AlertData.IsCritical))

		if res.AlertData.IsCritical {
			result.Critical++
			agent := row.Agent
			if agent == "" {
				agent = "Unknown"
			}
			alerts = append(alerts, queue.AlertEvent{
				TicketID:  row.TicketID,
				AgentName: agent,
				Reason:    res.AlertData.Reason,
				Link:      row.Link,
			})
		}
	}

	if len(updates) > 0 {
		rep.SetStatus(ctx, JobAnalysis, jobstatus.StateRunning, 90, fmt.Sprintf("Saving %d results...", len(updates)))
		if err := a.cfg.Store.SaveAnalysis(ctx, updates); err != nil {
			rep.SetStatus(ctx, JobAnalysis, jobstatus.StateError, 0, err.Error())
			return nil, fmt.Errorf("save analysis: %w", err)
		}
	}

	// Alerts go out only after results are stored so a crash cannot alert
	// twice for the same ticket.
	if a.cfg.Publisher != nil {
		for _, ev := range alerts {
			if err := a.cfg.Publisher.PublishAlert(ctx, ev); err != nil {
				slog.Warn("failed to queue alert", "ticket_id", ev.TicketID, "error", err)
				rep.Log(ctx, fmt.Sprintf("Analysis: Alert failed - %v", err))
				continue
			}
			result.Alerts++
			rep.Log(ctx, fmt.Sprintf("Analysis: Alert queued for %s", ev.TicketID))
		}
	}

	result.Elapsed = time.Since(start)
	msg := fmt.Sprintf("Done! %d tickets analyzed.", result.Analyzed)
	rep.SetStatus(ctx, JobAnalysis, jobstatus.StateCompleted, 100, msg)
	slog.Info("analysis cycle complete",
		"analyzed", result.Analyzed,
		"critical", result.Critical,
		"failed", result.Failed,
		"alerts", result.Alerts,
		"elapsed", result.Elapsed,
	)
	return result, nil
}
