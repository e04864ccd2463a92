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

// Package pipeline contains the QA jobs: ticket ingestion, LLM analysis,
// daily aggregation and archiving. Each job reports progress through a
// jobstatus.Reporter and logs per-item failures without aborting the run.
package pipeline

import (
	"context"
	"time"

	"github.com/deskqa/ingestion/internal/analysis"
	"github.com/deskqa/ingestion/internal/models"
	"github.com/deskqa/ingestion/internal/queue"
	"github.com/deskqa/ingestion/internal/transcript"
)

// Job names as shown in status reports.
const (
	JobETL       = "etl"
	JobAnalysis  = "analysis"
	JobAggregate = "aggregate"
	JobArchive   = "archive"
)

// DateLayout is the timestamp format used by the helpdesk and the store.
const DateLayout = "2006-01-02 15:04:05"

// TicketSource is the helpdesk API as seen by the ETL job.
type TicketSource interface {
	ListTickets(ctx context.Context, page, perPage int) ([]models.Ticket, error)
	TicketMessages(ctx context.Context, ticketID string) ([]models.Entry, error)
	Directory(ctx context.Context) transcript.Directory
	TicketLink(ticketID string) string
}

// SeenFilter claims ticket ids across concurrent ETL runs.
type SeenFilter interface {
	IsNew(ctx context.Context, ticketID string) (bool, error)
	Forget(ctx context.Context, ticketID string) error
}

// TicketAnalyzer scores a transcript.
type TicketAnalyzer interface {
	Analyze(ctx context.Context, transcript string) (*analysis.Result, error)
}

// AlertPublisher hands critical tickets to the alert dispatcher.
type AlertPublisher interface {
	PublishAlert(ctx context.Context, event queue.AlertEvent) error
}

// LocalTime converts a UTC helpdesk timestamp to loc. Input that does not
// parse is returned unchanged.
func LocalTime(s string, loc *time.Location) string {
	if s == "" || loc == nil {
		return s
	}
	t, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return s
	}
	return t.In(loc).Format(DateLayout)
}
