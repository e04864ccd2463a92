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

package store

import (
	"fmt"
	"strconv"
	"strings"
)

// Sheet and column layout shared by the spreadsheet backend and exports.
const (
	TicketsSheet = "Raw_Tickets"
	StatsSheet   = "Daily_Stats"
)

// TicketHeaders is the Raw_Tickets header row.
var TicketHeaders = []string{
	"Ticket_ID", "Link", "Agent", "Date_Changed", "Date_Created",
	"Transcript", "AI_Processed", "Is_Critical", "QA_Score",
	"QA_Data", "Alert_Reason",
}

// StatsHeaders is the Daily_Stats header row.
var StatsHeaders = []string{
	"Date", "Agent", "Avg_Score", "Critical_Count",
	"Avg_Empathy", "Avg_Expertise", "Verbal_Summary",
}

// AnalysisColumn is the 0-based column of AI_Processed; the analysis
// fields occupy it and the four columns after it.
const AnalysisColumn = 6

// Cells renders the row in TicketHeaders order.
func (r TicketRow) Cells() []any {
	score := any("")
	if r.AIProcessed {
		score = r.QAScore
	}
	return []any{
		r.TicketID, r.Link, r.Agent, r.DateChanged, r.DateCreated,
		r.Transcript, boolCell(r.AIProcessed), boolCell(r.IsCritical), score,
		r.QAData, r.AlertReason,
	}
}

// AnalysisCells renders an update as the five analysis columns.
func (u AnalysisUpdate) AnalysisCells() []any {
	return []any{boolCell(true), boolCell(u.IsCritical), u.QAScore, u.QAData, u.AlertReason}
}

// ParseTicketRow reads a row in TicketHeaders order. Short rows are padded
// with empty cells.
func ParseTicketRow(cells []any) TicketRow {
	c := func(i int) string {
		if i < len(cells) && cells[i] != nil {
			return fmt.Sprint(cells[i])
		}
		return ""
	}
	score, _ := strconv.ParseFloat(strings.TrimSpace(c(8)), 64)
	return TicketRow{
		TicketID:    c(0),
		Link:        c(1),
		Agent:       c(2),
		DateChanged: c(3),
		DateCreated: c(4),
		Transcript:  c(5),
		AIProcessed: parseBool(c(6)),
		IsCritical:  parseBool(c(7)),
		QAScore:     score,
		QAData:      c(9),
		AlertReason: c(10),
	}
}

// Cells renders the stat in StatsHeaders order.
func (s DailyStat) Cells() []any {
	return []any{s.Date, s.Agent, s.AvgScore, s.CriticalCount, s.AvgEmpathy, s.AvgExpertise, s.VerbalSummary}
}

// ParseDailyStat reads a row in StatsHeaders order.
func ParseDailyStat(cells []any) DailyStat {
	c := func(i int) string {
		if i < len(cells) && cells[i] != nil {
			return strings.TrimSpace(fmt.Sprint(cells[i]))
		}
		return ""
	}
	f := func(i int) float64 {
		v, _ := strconv.ParseFloat(c(i), 64)
		return v
	}
	n, _ := strconv.Atoi(c(3))
	return DailyStat{
		Date:          c(0),
		Agent:         c(1),
		AvgScore:      f(2),
		CriticalCount: n,
		AvgEmpathy:    f(4),
		AvgExpertise:  f(5),
		VerbalSummary: c(6),
	}
}

func boolCell(b bool) string {
	if b {
		return "TRUE"
	}
	return "FALSE"
}

func parseBool(s string) bool {
	return strings.EqualFold(strings.TrimSpace(s), "TRUE")
}
