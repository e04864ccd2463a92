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
	"sort"
	"time"

	"github.com/deskqa/ingestion/internal/jobstatus"
	"github.com/deskqa/ingestion/internal/store"
)

// ArchiveConfig holds dependencies for the archive job.
type ArchiveConfig struct {
	Store         store.Store
	Reporter      jobstatus.Reporter
	Location      *time.Location
	RetentionDays int // default 2
	Now           func() time.Time
}

// Archiver moves old tickets out of the live table into monthly archives.
type Archiver struct {
	cfg ArchiveConfig
}

// NewArchiver creates the archive job.
func NewArchiver(cfg ArchiveConfig) *Archiver {
	if cfg.RetentionDays <= 0 {
		cfg.RetentionDays = 2
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Archiver{cfg: cfg}
}

// Partition splits rows into those to keep and per-month archive batches.
// Rows whose DateChanged does not parse are kept.
func Partition(rows []store.TicketRow, cutoff time.Time, loc *time.Location) (keep []store.TicketRow, batches map[string][]store.TicketRow) {
	batches = make(map[string][]store.TicketRow)
	for _, r := range rows {
		t, err := time.ParseInLocation(DateLayout, r.DateChanged, loc)
		if err != nil || !t.Before(cutoff) {
			keep = append(keep, r)
			continue
		}
		month := t.Format("2006-01")
		batches[month] = append(batches[month], r)
	}
	return keep, batches
}

// Run archives rows older than the retention window. It returns the
// number of archived rows.
func (a *Archiver) Run(ctx context.Context) (int, error) {
	rep := a.cfg.Reporter
	rep.SetStatus(ctx, JobArchive, jobstatus.StateRunning, 0, "Starting...")

	rows, err := a.cfg.Store.AllTickets(ctx)
	if err != nil {
		rep.SetStatus(ctx, JobArchive, jobstatus.StateError, 0, "Failed to connect")
		return 0, fmt.Errorf("read tickets: %w", err)
	}

	cutoff := a.cfg.Now().In(a.cfg.Location).AddDate(0, 0, -a.cfg.RetentionDays)
	keep, batches := Partition(rows, cutoff, a.cfg.Location)
	if len(batches) == 0 {
		rep.SetStatus(ctx, JobArchive, jobstatus.StateCompleted, 100, "No tickets to archive.")
		return 0, nil
	}

	months := make([]string, 0, len(batches))
	for m := range batches {
		months = append(months, m)
	}
	sort.Strings(months)

	archived := 0
	for _, m := range months {
		if err := a.cfg.Store.ArchiveTickets(ctx, m, batches[m]); err != nil {
			rep.SetStatus(ctx, JobArchive, jobstatus.StateError, 0, err.Error())
			return 0, fmt.Errorf("archive %s: %w", m, err)
		}
		archived += len(batches[m])
		rep.Log(ctx, fmt.Sprintf("Archive: %d tickets to %s", len(batches[m]), m))
	}

	// Live rows are rewritten only once every batch is safely archived.
	if err := a.cfg.Store.ReplaceTickets(ctx, keep); err != nil {
		rep.SetStatus(ctx, JobArchive, jobstatus.StateError, 0, err.Error())
		return 0, fmt.Errorf("rewrite live tickets: %w", err)
	}

	rep.SetStatus(ctx, JobArchive, jobstatus.StateCompleted, 100, fmt.Sprintf("Archived %d tickets.", archived))
	slog.Info("archiving complete", "archived", archived, "kept", len(keep), "months", len(months))
	return archived, nil
}
