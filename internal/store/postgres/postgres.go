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

// Package postgres is the Postgres-backed row store. Live tickets keep their
// insertion order through a serial position column, which stands in for the
// row order of the spreadsheet backend.
package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/deskqa/ingestion/internal/store"
)

// Store implements store.Store on a pgx pool.
type Store struct {
	pool  *pgxpool.Pool
	owned bool
}

var _ store.Store = (*Store)(nil)

// Connect opens a tuned pool for databaseURL and verifies it with a ping.
// The pool is closed by Close.
func Connect(ctx context.Context, databaseURL string) (*Store, error) {
	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	poolConfig.MaxConns = 10
	poolConfig.MinConns = 1
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{pool: pool, owned: true}, nil
}

// New wraps an existing pool. Close leaves the pool open.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// EnsureSchema creates the tables when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if s.pool == nil {
		return store.ErrNotConnected
	}
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS raw_tickets (
			position      BIGSERIAL PRIMARY KEY,
			ticket_id     TEXT NOT NULL UNIQUE,
			link          TEXT NOT NULL DEFAULT '',
			agent         TEXT NOT NULL DEFAULT '',
			date_changed  TEXT NOT NULL DEFAULT '',
			date_created  TEXT NOT NULL DEFAULT '',
			transcript    TEXT NOT NULL DEFAULT '',
			ai_processed  BOOLEAN NOT NULL DEFAULT FALSE,
			is_critical   BOOLEAN NOT NULL DEFAULT FALSE,
			qa_score      DOUBLE PRECISION NOT NULL DEFAULT 0,
			qa_data       TEXT NOT NULL DEFAULT '',
			alert_reason  TEXT NOT NULL DEFAULT '',
			inserted_at   TIMESTAMPTZ DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_raw_tickets_unprocessed ON raw_tickets(ai_processed) WHERE NOT ai_processed;

		CREATE TABLE IF NOT EXISTS archived_tickets (
			id            BIGSERIAL PRIMARY KEY,
			month         TEXT NOT NULL,
			ticket_id     TEXT NOT NULL,
			link          TEXT NOT NULL DEFAULT '',
			agent         TEXT NOT NULL DEFAULT '',
			date_changed  TEXT NOT NULL DEFAULT '',
			date_created  TEXT NOT NULL DEFAULT '',
			transcript    TEXT NOT NULL DEFAULT '',
			ai_processed  BOOLEAN NOT NULL DEFAULT FALSE,
			is_critical   BOOLEAN NOT NULL DEFAULT FALSE,
			qa_score      DOUBLE PRECISION NOT NULL DEFAULT 0,
			qa_data       TEXT NOT NULL DEFAULT '',
			alert_reason  TEXT NOT NULL DEFAULT '',
			archived_at   TIMESTAMPTZ DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_archived_tickets_month ON archived_tickets(month);

		CREATE TABLE IF NOT EXISTS daily_stats (
			date            TEXT NOT NULL,
			agent           TEXT NOT NULL,
			avg_score       DOUBLE PRECISION NOT NULL DEFAULT 0,
			critical_count  INTEGER NOT NULL DEFAULT 0,
			avg_empathy     DOUBLE PRECISION NOT NULL DEFAULT 0,
			avg_expertise   DOUBLE PRECISION NOT NULL DEFAULT 0,
			verbal_summary  TEXT NOT NULL DEFAULT '',
			updated_at      TIMESTAMPTZ DEFAULT NOW(),
			PRIMARY KEY (date, agent)
		);
	`)
	if err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	slog.Debug("postgres schema ensured")
	return nil
}

// TicketIDs returns the ids of all live tickets.
func (s *Store) TicketIDs(ctx context.Context) (map[string]struct{}, error) {
	rows, err := s.pool.Query(ctx, `SELECT ticket_id FROM raw_tickets`)
	if err != nil {
		return nil, fmt.Errorf("query ticket ids: %w", err)
	}
	defer rows.Close()

	ids := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids[id] = struct{}{}
	}
	return ids, rows.Err()
}

// AppendTickets inserts rows in order. Ids already present are ignored.
func (s *Store) AppendTickets(ctx context.Context, rows []store.TicketRow) error {
	if len(rows) == 0 {
		return nil
	}
	b := &pgx.Batch{}
	for _, r := range rows {
		b.Queue(`
			INSERT INTO raw_tickets
				(ticket_id, link, agent, date_changed, date_created, transcript,
				 ai_processed, is_critical, qa_score, qa_data, alert_reason)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			ON CONFLICT (ticket_id) DO NOTHING
		`, ticketArgs(r)...)
	}
	return s.inTx(ctx, func(tx pgx.Tx) error {
		if err := tx.SendBatch(ctx, b).Close(); err != nil {
			return fmt.Errorf("insert tickets: %w", err)
		}
		return nil
	})
}

// UnprocessedTickets returns rows not yet analysed, in insertion order.
func (s *Store) UnprocessedTickets(ctx context.Context) ([]store.TicketRow, error) {
	return s.queryTickets(ctx, `WHERE NOT ai_processed`)
}

// AllTickets returns every live row in insertion order.
func (s *Store) AllTickets(ctx context.Context) ([]store.TicketRow, error) {
	return s.queryTickets(ctx, ``)
}

func (s *Store) queryTickets(ctx context.Context, where string) ([]store.TicketRow, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT ticket_id, link, agent, date_changed, date_created, transcript,
		       ai_processed, is_critical, qa_score, qa_data, alert_reason
		FROM raw_tickets `+where+`
		ORDER BY position
	`)
	if err != nil {
		return nil, fmt.Errorf("query tickets: %w", err)
	}
	defer rows.Close()
	return collectTickets(rows)
}

// SaveAnalysis stores analysis results and marks the rows processed.
func (s *Store) SaveAnalysis(ctx context.Context, updates []store.AnalysisUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	b := &pgx.Batch{}
	for _, u := range updates {
		b.Queue(`
			UPDATE raw_tickets
			SET ai_processed = TRUE, is_critical = $2, qa_score = $3, qa_data = $4, alert_reason = $5
			WHERE ticket_id = $1
		`, u.TicketID, u.IsCritical, u.QAScore, u.QAData, u.AlertReason)
	}
	return s.inTx(ctx, func(tx pgx.Tx) error {
		if err := tx.SendBatch(ctx, b).Close(); err != nil {
			return fmt.Errorf("update analysis: %w", err)
		}
		return nil
	})
}

var ticketColumns = []string{
	"ticket_id", "link", "agent", "date_changed", "date_created", "transcript",
	"ai_processed", "is_critical", "qa_score", "qa_data", "alert_reason",
}

// ReplaceTickets overwrites the live rows, keeping the given order.
func (s *Store) ReplaceTickets(ctx context.Context, rows []store.TicketRow) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM raw_tickets`); err != nil {
			return fmt.Errorf("clear tickets: %w", err)
		}
		if _, err := tx.CopyFrom(ctx, pgx.Identifier{"raw_tickets"}, ticketColumns, copyRows(rows, nil)); err != nil {
			return fmt.Errorf("copy tickets: %w", err)
		}
		return nil
	})
}

// ArchiveTickets copies rows into the archive under month.
func (s *Store) ArchiveTickets(ctx context.Context, month string, rows []store.TicketRow) error {
	if len(rows) == 0 {
		return nil
	}
	cols := append([]string{"month"}, ticketColumns...)
	if _, err := s.pool.CopyFrom(ctx, pgx.Identifier{"archived_tickets"}, cols, copyRows(rows, []any{month})); err != nil {
		return fmt.Errorf("archive tickets for %s: %w", month, err)
	}
	return nil
}

// ArchivedTickets returns the rows archived under month.
func (s *Store) ArchivedTickets(ctx context.Context, month string) ([]store.TicketRow, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT ticket_id, link, agent, date_changed, date_created, transcript,
		       ai_processed, is_critical, qa_score, qa_data, alert_reason
		FROM archived_tickets
		WHERE month = $1
		ORDER BY id
	`, month)
	if err != nil {
		return nil, fmt.Errorf("query archive: %w", err)
	}
	defer rows.Close()
	return collectTickets(rows)
}

// UpsertDailyStats inserts stats, replacing rows with the same date and
// agent.
func (s *Store) UpsertDailyStats(ctx context.Context, stats []store.DailyStat) error {
	if len(stats) == 0 {
		return nil
	}
	b := &pgx.Batch{}
	for _, st := range stats {
		b.Queue(`
			INSERT INTO daily_stats
				(date, agent, avg_score, critical_count, avg_empathy, avg_expertise, verbal_summary)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (date, agent) DO UPDATE SET
				avg_score      = EXCLUDED.avg_score,
				critical_count = EXCLUDED.critical_count,
				avg_empathy    = EXCLUDED.avg_empathy,
				avg_expertise  = EXCLUDED.avg_expertise,
				verbal_summary = EXCLUDED.verbal_summary,
				updated_at     = NOW()
		`, st.Date, st.Agent, st.AvgScore, st.CriticalCount, st.AvgEmpathy, st.AvgExpertise, st.VerbalSummary)
	}
	if err := s.pool.SendBatch(ctx, b).Close(); err != nil {
		return fmt.Errorf("upsert daily stats: %w", err)
	}
	return nil
}

// DailyStats returns all stats ordered by date and agent.
func (s *Store) DailyStats(ctx context.Context) ([]store.DailyStat, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT date, agent, avg_score, critical_count, avg_empathy, avg_expertise, verbal_summary
		FROM daily_stats
		ORDER BY date, agent
	`)
	if err != nil {
		return nil, fmt.Errorf("query daily stats: %w", err)
	}
	defer rows.Close()

	var out []store.DailyStat
	for rows.Next() {
		var st store.DailyStat
		if err := rows.Scan(&st.Date, &st.Agent, &st.AvgScore, &st.CriticalCount,
			&st.AvgEmpathy, &st.AvgExpertise, &st.VerbalSummary); err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// Close releases the pool if this store opened it.
func (s *Store) Close() error {
	if s.owned && s.pool != nil {
		s.pool.Close()
	}
	return nil
}

func (s *Store) inTx(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func ticketArgs(r store.TicketRow) []any {
	return []any{
		r.TicketID, r.Link, r.Agent, r.DateChanged, r.DateCreated, r.Transcript,
		r.AIProcessed, r.IsCritical, r.QAScore, r.QAData, r.AlertReason,
	}
}

func copyRows(rows []store.TicketRow, prefix []any) pgx.CopyFromSource {
	values := make([][]any, len(rows))
	for i, r := range rows {
		values[i] = append(append([]any(nil), prefix...), ticketArgs(r)...)
	}
	return pgx.CopyFromRows(values)
}

func collectTickets(rows pgx.Rows) ([]store.TicketRow, error) {
	var out []store.TicketRow
	for rows.Next() {
		var r store.TicketRow
		if err := rows.Scan(
			&r.TicketID, &r.Link, &r.Agent, &r.DateChanged, &r.DateCreated, &r.Transcript,
			&r.AIProcessed, &r.IsCritical, &r.QAScore, &r.QAData, &r.AlertReason,
		); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
