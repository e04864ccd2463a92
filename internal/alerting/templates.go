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

package alerting

import "strings"

// Default alert templates.
const (
	DefaultSubjectTemplate = "Alert: {ticket_id}"
	DefaultBodyTemplate    = "{alert_reason}"
)

// Alert is the data available to templates.
type Alert struct {
	TicketID  string
	AgentName string
	Reason    string
	Link      string
}

// Templates expands {placeholder} markers in subject and body. Unknown
// placeholders are left as written.
type Templates struct {
	Subject string
	Body    string
}

// Render returns the subject and body for a.
func (t Templates) Render(a Alert) (subject, body string) {
	subj, b := t.Subject, t.Body
	if strings.TrimSpace(subj) == "" {
		subj = DefaultSubjectTemplate
	}
	if strings.TrimSpace(b) == "" {
		b = DefaultBodyTemplate
	}

	r := strings.NewReplacer(
		"{ticket_id}", a.TicketID,
		"{agent_name}", a.AgentName,
		"{reason}", a.Reason,
		"{alert_reason}", a.Reason,
		"{link}", a.Link,
	)
	return r.Replace(subj), r.Replace(b)
}
