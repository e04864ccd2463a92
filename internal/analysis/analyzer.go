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

package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Criteria holds the per-dimension QA scores, each 0-100.
type Criteria struct {
	Empathy        float64 `json:"empathy"`
	Expertise      float64 `json:"expertise"`
	ProblemSolving float64 `json:"problem_solving"`
	ErrorRate      float64 `json:"error_rate"`
}

// QAData is the quality assessment of a single ticket.
type QAData struct {
	VerbalSummary string   `json:"verbal_summary"`
	Criteria      Criteria `json:"criteria"`
	OverallScore  float64  `json:"overall_score"`
}

// AlertData says whether a ticket should raise an alert.
type AlertData struct {
	IsCritical bool   `json:"is_critical"`
	Reason     string `json:"reason"`
}

// Result is the decoded model verdict for one transcript.
type Result struct {
	AlertData AlertData `json:"alert_data"`
	QAData    QAData    `json:"qa_data"`
}

// Analyzer turns transcripts into Results using a Completer.
type Analyzer struct {
	completer   Completer
	qaPrompt    string
	alertPrompt string
}

// NewAnalyzer creates an Analyzer. The QA and alert prompts are the
// operator-editable instructions embedded into the master prompt.
func NewAnalyzer(completer Completer, qaPrompt, alertPrompt string) *Analyzer {
	return &Analyzer{
		completer:   completer,
		qaPrompt:    strings.TrimSpace(qaPrompt),
		alertPrompt: strings.TrimSpace(alertPrompt),
	}
}

// Model reports the underlying model name.
func (a *Analyzer) Model() string { return a.completer.Model() }

// Analyze scores a rendered transcript.
func (a *Analyzer) Analyze(ctx context.Context, transcript string) (*Result, error) {
	if strings.TrimSpace(transcript) == "" {
		return nil, errors.New("analyze: empty transcript")
	}

	text, err := a.completer.Complete(ctx, BuildPrompt(a.qaPrompt, a.alertPrompt, transcript))
	if err != nil {
		return nil, fmt.Errorf("analyze: %w", err)
	}
	res, err := ParseResult(text)
	if err != nil {
		return nil, fmt.Errorf("analyze: %w", err)
	}
	return res, nil
}

// BuildPrompt assembles the master prompt sent to the model. Free-text
// answers are requested in Slovak.
func BuildPrompt(qaPrompt, alertPrompt, transcript string) string {
	var sb strings.Builder
	sb.WriteString("Ste QA špecialista analyzujúci tiket zákazníckej podpory.\n")
	sb.WriteString("DÔLEŽITÉ: Všetky textové odpovede (verbal_summary, reason) MUSIA byť v SLOVENČINE.\n\n")
	sb.WriteString("TRANSCRIPT:\n")
	sb.WriteString(transcript)
	sb.WriteString("\n\nTASK 1: QUALITY ASSURANCE\n")
	sb.WriteString(qaPrompt)
	sb.WriteString("\n\nTASK 2: RISK ALERTING\n")
	sb.WriteString(alertPrompt)
	sb.WriteString(`

OUTPUT FORMAT:
Return ONLY a valid JSON object with this structure:
{
  "alert_data": {
    "is_critical": boolean,
    "reason": "String v slovenčine alebo null"
  },
  "qa_data": {
    "verbal_summary": "String v slovenčine (3 vety)",
    "criteria": {
      "empathy": int (0-100),
      "expertise": int (0-100),
      "problem_solving": int (0-100),
      "error_rate": int (0-100)
    },
    "overall_score": int (0-100)
  }
}
`)
	return sb.String()
}

// ParseResult decodes a model answer, tolerating markdown code fences and
// prose around the JSON object.
func ParseResult(text string) (*Result, error) {
	cleaned := stripFences(text)
	if cleaned == "" {
		return nil, ErrEmptyResponse
	}

	var res Result
	err := json.Unmarshal([]byte(cleaned), &res)
	if err != nil {
		start, end := strings.Index(cleaned, "{"), strings.LastIndex(cleaned, "}")
		if start < 0 || end <= start {
			return nil, fmt.Errorf("decode model response: %w", err)
		}
		res = Result{}
		if err2 := json.Unmarshal([]byte(cleaned[start:end+1]), &res); err2 != nil {
			return nil, fmt.Errorf("decode model response: %w", err2)
		}
	}
	res.AlertData.Reason = strings.TrimSpace(res.AlertData.Reason)
	return &res, nil
}

func stripFences(text string) string {
	s := strings.TrimSpace(text)
	switch {
	case strings.HasPrefix(s, "```json"):
		s = s[len("```json"):]
	case strings.HasPrefix(s, "```"):
		s = s[len("```"):]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// QAJSON encodes the QA part of a result for storage.
func (r *Result) QAJSON() string {
	b, err := json.Marshal(r.QAData)
	if err != nil {
		return ""
	}
	return string(b)
}

// ParseQAData decodes a stored QA blob. An empty string yields zero values.
func ParseQAData(s string) (QAData, error) {
	var qa QAData
	if strings.TrimSpace(s) == "" {
		return qa, nil
	}
	if err := json.Unmarshal([]byte(s), &qa); err != nil {
		return qa, fmt.Errorf("decode qa data: %w", err)
	}
	return qa, nil
}
