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
	"time"

	"github.com/deskqa/ingestion/internal/jobstatus"
	"github.com/deskqa/ingestion/internal/models"
	"github.com/deskqa/ingestion/internal/store"
	"github.com/deskqa/ingestion/internal/transcript"
)

// ETLConfig holds dependencies for the ingestion job.
type ETLConfig struct {
	Source    TicketSource
	Store     store.Store
	Processor *transcript.Processor
	Dedup     SeenFilter // optional
	Reporter  jobstatus.Reporter
	Location  *time.Location

	Pages       int           // default 5
	PerPage     int           // default 20
	TicketDelay time.Duration // pause before each message fetch
	PageDelay   time.Duration // pause between pages
}

// ETLResult summarises one ingestion cycle.
type ETLResult struct {
	Added    int
	Known    int
	NonHuman int
	Errors   int
	Pages    int
	Elapsed  time.Duration
}

// ETL pulls recent tickets, filters out automated ones and stores the
// transcripts of the rest.
type ETL struct {
	cfg ETLConfig
}

// NewETL creates the ingestion job.
func NewETL(cfg ETLConfig) *ETL {
	if cfg.Pages <= 0 {
		cfg.Pages = 5
	}
	if cfg.PerPage <= 0 {
		cfg.PerPage = 20
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &ETL{cfg: cfg}
}

// Run executes one ingestion cycle. It fails only when the store is
// unreachable; per-ticket problems are counted and logged.
func (e *ETL) Run(ctx context.Context) (*ETLResult, error) {
	start := time.Now()
	rep := e.cfg.Reporter
	rep.SetStatus(ctx, JobETL, jobstatus.StateRunning, 0, "Starting...")

	if err := e.cfg.Store.EnsureSchema(ctx); err != nil {
		rep.SetStatus(ctx, JobETL, jobstatus.StateError, 0, "Failed to connect")
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	existing, err := e.cfg.Store.TicketIDs(ctx)
	if err != nil {
		rep.SetStatus(ctx, JobETL, jobstatus.StateError, 0, "Failed to read ticket ids")
		return nil, fmt.Errorf("read ticket ids: %w", err)
	}
	slog.Info("etl cycle starting", "existing_tickets", len(existing))

	dir := e.cfg.Source.Directory(ctx)

	result := &ETLResult{}
	var rows []store.TicketRow
	claimed := make(map[string]bool)

	rep.SetStatus(ctx, JobETL, jobstatus.StateRunning, 20, "Fetching tickets...")

	for page := 1; page <= e.cfg.Pages; page++ {
		if page > 1 && !sleep(ctx, e.cfg.PageDelay) {
			break
		}

		tickets, err := e.cfg.Source.ListTickets(ctx, page, e.cfg.PerPage)
		if err != nil {
			slog.Warn("etl: list tickets failed", "page", page, "error", err)
			result.Errors++
			break
		}
		if len(tickets) == 0 {
			break
		}
		result.Pages++

		rep.SetStatus(ctx, JobETL, jobstatus.StateRunning, 20+page*10, fmt.Sprintf("Page %d/%d...", page, e.cfg.Pages))
		rep.Log(ctx, fmt.Sprintf("ETL: Fetching page %d...", page))

		for _, t := range tickets {
			id := t.ID.String()
			if id == "" {
				continue
			}
			if _, ok := existing[id]; ok || claimed[id] {
				result.Known++
				continue
			}
			if !e.claim(ctx, id) {
				result.Known++
				continue
			}
			claimed[id] = true

			row, human, err := e.ingest(ctx, t, dir)
			if err != nil {
				slog.Warn("etl: fetch messages failed", "ticket_id", id, "error", err)
				e.release(ctx, id)
				result.Errors++
				continue
			}
			if !human {
				rep.Log(ctx, fmt.Sprintf("ETL: Skipped %s (no human)", id))
				e.release(ctx, id)
				result.NonHuman++
				continue
			}

			rows = append(rows, row)
			rep.Log(ctx, fmt.Sprintf("ETL: Added ticket %s (%s)", id, row.Agent))
		}
	}

	if len(rows) == 0 {
		rep.SetStatus(ctx, JobETL, jobstatus.StateCompleted, 100, "No new tickets found.")
		result.Elapsed = time.Since(start)
		return result, nil
	}

	rep.SetStatus(ctx, JobETL, jobstatus.StateRunning, 90, fmt.Sprintf("Saving %d tickets...", len(rows)))
	if err := e.cfg.Store.AppendTickets(ctx, rows); err != nil {
		for _, r := range rows {
			e.release(ctx, r.TicketID)
		}
		rep.SetStatus(ctx, JobETL, jobstatus.StateError, 0, err.Error())
		return nil, fmt.Errorf("append tickets: %w", err)
	}
	result.Added = len(rows)
	result.Elapsed = time.Since(start)

	rep.SetStatus(ctx, JobETL, jobstatus.StateCompleted, 100, fmt.Sprintf("Done! %d new tickets.", len(rows)))
	slog.Info("etl cycle complete",
		"added", result.Added,
		"known", result.Known,
		"non_human", result.NonHuman,
		"errors", result.Errors,
		"pages", result.Pages,
		"elapsed", result.Elapsed,
	)
	return result, nil
}

// ingest fetches one ticket's messages and builds its row.
func (e *ETL) ingest(ctx context.Context, t models.Ticket, dir transcript.Directory) (store.TicketRow, bool, error) {
	id := t.ID.String()
	if !sleep(ctx, e.cfg.TicketDelay) {
		return store.TicketRow{}, false, ctx.Err()
	}

	entries, err := e.cfg.Source.TicketMessages(ctx, id)
	if err != nil {
		return store.TicketRow{}, false, err
	}

	res := e.cfg.Processor.Process(entries, dir)
	if !res.Human {
		return store.TicketRow{}, false, nil
	}

	return store.TicketRow{
		TicketID:    id,
		Link:        e.cfg.Source.TicketLink(id),
		Agent:       agentName(t, dir),
		DateChanged: LocalTime(t.DateChanged.String(), e.cfg.Location),
		DateCreated: LocalTime(t.DateCreated.String(), e.cfg.Location),
		Transcript:  res.Transcript,
	}, true, nil
}

func (e *ETL) claim(ctx context.Context, id string) bool {
	if e.cfg.Dedup == nil {
		return true
	}
	isNew, err := e.cfg.Dedup.IsNew(ctx, id)
	if err != nil {
		slog.Warn("dedup check failed", "ticket_id", id, "error", err)
		return true
	}
	return isNew
}

func (e *ETL) release(ctx context.Context, id string) {
	if e.cfg.Dedup == nil {
		return
	}
	if err := e.cfg.Dedup.Forget(ctx, id); err != nil {
		slog.Warn("dedup release failed", "ticket_id", id, "error", err)
	}
}

// agentName prefers the name on the ticket, then the directory entry for
// the assigned agent.
func agentName(t models.Ticket, dir transcript.Directory) string {
	name := t.AgentName.String()
	if name != "" && name != transcript.UnknownAuthor {
		return name
	}
	if n, ok := dir.Agents[t.AssignedAgentID()]; ok && n != "" {
		return n
	}
	return transcript.UnknownAuthor
}

// sleep waits for d or until ctx is done, reporting whether the full
// duration elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
