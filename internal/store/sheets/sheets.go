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

// Package sheets stores ticket rows in a Google Sheets spreadsheet: live
// tickets in Raw_Tickets, per-agent aggregates in Daily_Stats and archived
// tickets in one sheet per month.
package sheets

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/deskqa/ingestion/internal/store"
)

const valueInput = "RAW"

var _ store.Store = (*Store)(nil)

// Config holds spreadsheet settings.
type Config struct {
	SpreadsheetID   string
	CredentialsFile string // service account JSON
	// Endpoint and HTTPClient override the API location and transport.
	// When HTTPClient is set, CredentialsFile is not read.
	Endpoint   string
	HTTPClient *http.Client
}

// Store is a store.Store backed by Google Sheets.
type Store struct {
	svc           *sheetsapi.Service
	spreadsheetID string
}

// New connects to the Sheets API.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.SpreadsheetID == "" {
		return nil, fmt.Errorf("spreadsheet id: %w", store.ErrNotConnected)
	}

	var opts []option.ClientOption
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	} else {
		data, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read credentials %s: %w", cfg.CredentialsFile, err)
		}
		jwt, err := google.JWTConfigFromJSON(data, sheetsapi.SpreadsheetsScope)
		if err != nil {
			return nil, fmt.Errorf("parse service account credentials: %w", err)
		}
		opts = append(opts, option.WithHTTPClient(jwt.Client(ctx)))
	}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}

	svc, err := sheetsapi.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	slog.Info("sheets store connected", "spreadsheet_id", cfg.SpreadsheetID)
	return &Store{svc: svc, spreadsheetID: cfg.SpreadsheetID}, nil
}

// Close is a no-op; the API client holds no connections of its own.
func (s *Store) Close() error { return nil }

// EnsureSchema creates Raw_Tickets and Daily_Stats with frozen header rows.
func (s *Store) EnsureSchema(ctx context.Context) error {
	titles, err := s.sheetTitles(ctx)
	if err != nil {
		return err
	}
	if err := s.ensureSheet(ctx, titles, store.TicketsSheet, store.TicketHeaders); err != nil {
		return err
	}
	return s.ensureSheet(ctx, titles, store.StatsSheet, store.StatsHeaders)
}

func (s *Store) TicketIDs(ctx context.Context) (map[string]struct{}, error) {
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, store.TicketsSheet+"!A:A").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read ticket ids: %w", err)
	}
	ids := make(map[string]struct{}, len(resp.Values))
	for i, row := range resp.Values {
		if i == 0 || len(row) == 0 {
			continue
		}
		if id := fmt.Sprint(row[0]); id != "" {
			ids[id] = struct{}{}
		}
	}
	return ids, nil
}

func (s *Store) AppendTickets(ctx context.Context, rows []store.TicketRow) error {
	if len(rows) == 0 {
		return nil
	}
	return s.appendRows(ctx, store.TicketsSheet, ticketCells(rows))
}

func (s *Store) UnprocessedTickets(ctx context.Context) ([]store.TicketRow, error) {
	all, err := s.AllTickets(ctx)
	if err != nil {
		return nil, err
	}
	var out []store.TicketRow
	for _, r := range all {
		if !r.AIProcessed {
			out = append(out, r)
		}
	}
	return out, nil
}

// SaveAnalysis writes each update into its row's analysis columns with one
// batch request.
func (s *Store) SaveAnalysis(ctx context.Context, updates []store.AnalysisUpdate) error {
	if len(updates) == 0 {
		return nil
	}

	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, store.TicketsSheet+"!A:A").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read ticket ids: %w", err)
	}
	rowOf := make(map[string]int, len(resp.Values))
	for i, row := range resp.Values {
		if i > 0 && len(row) > 0 {
			rowOf[fmt.Sprint(row[0])] = i + 1 // 1-based sheet row
		}
	}

	data := make([]*sheetsapi.ValueRange, 0, len(updates))
	for _, u := range updates {
		n, ok := rowOf[u.TicketID]
		if !ok {
			slog.Warn("analysed ticket no longer in sheet", "ticket_id", u.TicketID)
			continue
		}
		data = append(data, &sheetsapi.ValueRange{
			Range:  fmt.Sprintf("%s!%s%d:%s%d", store.TicketsSheet, column(store.AnalysisColumn), n, column(store.AnalysisColumn+4), n),
			Values: [][]any{u.AnalysisCells()},
		})
	}
	if len(data) == 0 {
		return nil
	}

	_, err = s.svc.Spreadsheets.Values.BatchUpdate(s.spreadsheetID, &sheetsapi.BatchUpdateValuesRequest{
		ValueInputOption: valueInput,
		Data:             data,
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("batch update analysis: %w", err)
	}
	return nil
}

func (s *Store) AllTickets(ctx context.Context) ([]store.TicketRow, error) {
	values, err := s.readAll(ctx, store.TicketsSheet)
	if err != nil {
		return nil, err
	}
	rows := make([]store.TicketRow, 0, len(values))
	for _, v := range values {
		rows = append(rows, store.ParseTicketRow(v))
	}
	return rows, nil
}

// ReplaceTickets clears Raw_Tickets and writes the header plus rows.
func (s *Store) ReplaceTickets(ctx context.Context, rows []store.TicketRow) error {
	return s.rewrite(ctx, store.TicketsSheet, store.TicketHeaders, ticketCells(rows))
}

// ArchiveTickets appends rows to the month's sheet, creating it on first use.
func (s *Store) ArchiveTickets(ctx context.Context, month string, rows []store.TicketRow) error {
	if len(rows) == 0 {
		return nil
	}
	titles, err := s.sheetTitles(ctx)
	if err != nil {
		return err
	}
	if err := s.ensureSheet(ctx, titles, month, store.TicketHeaders); err != nil {
		return err
	}
	return s.appendRows(ctx, month, ticketCells(rows))
}

// UpsertDailyStats rewrites Daily_Stats with rows for the updated Date+Agent
// keys replaced.
func (s *Store) UpsertDailyStats(ctx context.Context, stats []store.DailyStat) error {
	if len(stats) == 0 {
		return nil
	}
	existing, err := s.DailyStats(ctx)
	if err != nil {
		return err
	}
	merged := store.MergeDailyStats(existing, stats)

	cells := make([][]any, 0, len(merged))
	for _, st := range merged {
		cells = append(cells, st.Cells())
	}
	return s.rewrite(ctx, store.StatsSheet, store.StatsHeaders, cells)
}

func (s *Store) DailyStats(ctx context.Context) ([]store.DailyStat, error) {
	values, err := s.readAll(ctx, store.StatsSheet)
	if err != nil {
		return nil, err
	}
	out := make([]store.DailyStat, 0, len(values))
	for _, v := range values {
		if len(v) < 2 {
			continue
		}
		out = append(out, store.ParseDailyStat(v))
	}
	return out, nil
}

// readAll returns a sheet's data rows without the header.
func (s *Store) readAll(ctx context.Context, sheet string) ([][]any, error) {
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, sheet).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", sheet, err)
	}
	if len(resp.Values) < 2 {
		return nil, nil
	}
	return resp.Values[1:], nil
}

func (s *Store) appendRows(ctx context.Context, sheet string, cells [][]any) error {
	_, err := s.svc.Spreadsheets.Values.Append(s.spreadsheetID, sheet+"!A1", &sheetsapi.ValueRange{Values: cells}).
		ValueInputOption(valueInput).
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("append to %s: %w", sheet, err)
	}
	return nil
}

func (s *Store) rewrite(ctx context.Context, sheet string, headers []string, cells [][]any) error {
	if _, err := s.svc.Spreadsheets.Values.Clear(s.spreadsheetID, sheet, &sheetsapi.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear %s: %w", sheet, err)
	}
	values := append([][]any{headerCells(headers)}, cells...)
	_, err := s.svc.Spreadsheets.Values.Update(s.spreadsheetID, sheet+"!A1", &sheetsapi.ValueRange{Values: values}).
		ValueInputOption(valueInput).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("write %s: %w", sheet, err)
	}
	return nil
}

func (s *Store) sheetTitles(ctx context.Context) (map[string]bool, error) {
	ss, err := s.svc.Spreadsheets.Get(s.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("get spreadsheet: %w", err)
	}
	titles := make(map[string]bool, len(ss.Sheets))
	for _, sh := range ss.Sheets {
		if sh.Properties != nil {
			titles[sh.Properties.Title] = true
		}
	}
	return titles, nil
}

// ensureSheet adds a sheet with a frozen header row unless it exists. An
// existing but empty sheet gets its header row written.
func (s *Store) ensureSheet(ctx context.Context, titles map[string]bool, title string, headers []string) error {
	if !titles[title] {
		_, err := s.svc.Spreadsheets.BatchUpdate(s.spreadsheetID, &sheetsapi.BatchUpdateSpreadsheetRequest{
			Requests: []*sheetsapi.Request{{
				AddSheet: &sheetsapi.AddSheetRequest{
					Properties: &sheetsapi.SheetProperties{
						Title:          title,
						GridProperties: &sheetsapi.GridProperties{FrozenRowCount: 1},
					},
				},
			}},
		}).Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("add sheet %s: %w", title, err)
		}
		titles[title] = true
		slog.Info("created sheet", "sheet", title)
	}

	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, title+"!A1:A1").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read %s header: %w", title, err)
	}
	if len(resp.Values) > 0 {
		return nil
	}
	_, err = s.svc.Spreadsheets.Values.Update(s.spreadsheetID, title+"!A1", &sheetsapi.ValueRange{Values: [][]any{headerCells(headers)}}).
		ValueInputOption(valueInput).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("write %s header: %w", title, err)
	}
	return nil
}

func ticketCells(rows []store.TicketRow) [][]any {
	cells := make([][]any, 0, len(rows))
	for _, r := range rows {
		cells = append(cells, r.Cells())
	}
	return cells
}

func headerCells(headers []string) []any {
	out := make([]any, len(headers))
	for i, h := range headers {
		out[i] = h
	}
	return out
}

// column converts a 0-based index to a column letter (0 -> A).
func column(i int) string {
	name := ""
	for i >= 0 {
		name = string(rune('A'+i%26)) + name
		i = i/26 - 1
	}
	return name
}
