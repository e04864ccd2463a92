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

package transcript

import (
	"slices"
	"time"

	"github.com/deskqa/ingestion/internal/models"
)

// NormalizedMessage is one message lifted out of its group with the group
// metadata it needs copied in.
type NormalizedMessage struct {
	ID        string
	Type      string
	GroupType string // empty for flat entries
	UserID    string
	// UserFullName is the message's own full name, or the group's when the
	// message carries none.
	UserFullName string
	Name         string
	// BodyHTML is the renderable body. Notification (T) messages keep their
	// text in Notification and have no BodyHTML.
	BodyHTML     string
	Notification string
	CreatedAt    string
	// ExtractedFromAuthor is the name from the first "From:" header found in
	// the message's group, if any.
	ExtractedFromAuthor string
	// Author is filled in by Resolver.Attribute.
	Author string
}

// timestampLayouts are tried in order when ordering messages.
var timestampLayouts = []string{
	time.DateTime,
	time.RFC3339,
	"2006-01-02T15:04:05",
	time.DateOnly,
}

// Normalize flattens grouped and flat payload entries into one message
// sequence. Messages are ordered by creation time when every timestamp
// parses; otherwise payload order is kept.
func Normalize(entries []models.Entry) []NormalizedMessage {
	var out []NormalizedMessage
	for _, e := range entries {
		switch {
		case e.Group != nil:
			out = append(out, flattenGroup(e.Group)...)
		case e.Flat != nil:
			out = append(out, normalizeRaw(*e.Flat, ""))
		}
	}
	sortByCreated(out)
	return out
}

func flattenGroup(g *models.MessageGroup) []NormalizedMessage {
	var groupFrom string
	for _, msg := range g.Messages {
		if msg.Type.String() != models.MessageTypeHeader {
			continue
		}
		if name, ok := ExtractFromAuthor(string(msg.Body)); ok {
			groupFrom = name
			break
		}
	}

	out := make([]NormalizedMessage, 0, len(g.Messages))
	for _, msg := range g.Messages {
		nm := normalizeRaw(msg, g.Type.String())
		if nm.UserFullName == "" {
			nm.UserFullName = g.UserFullName.String()
		}
		nm.ExtractedFromAuthor = groupFrom
		out = append(out, nm)
	}
	return out
}

func normalizeRaw(msg models.RawMessage, groupType string) NormalizedMessage {
	nm := NormalizedMessage{
		ID:           msg.ID.String(),
		Type:         msg.Type.String(),
		GroupType:    groupType,
		UserID:       msg.UserID.String(),
		UserFullName: msg.UserFullName.String(),
		Name:         msg.Name.String(),
		CreatedAt:    msg.CreatedAt.String(),
	}
	if nm.Type == models.MessageTypeNotification {
		nm.Notification = string(msg.Body)
	} else {
		nm.BodyHTML = string(msg.Body)
	}
	return nm
}

func parseTimestamp(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func sortByCreated(msgs []NormalizedMessage) {
	if len(msgs) < 2 {
		return
	}
	type indexed struct {
		msg NormalizedMessage
		at  time.Time
	}
	items := make([]indexed, len(msgs))
	for i, m := range msgs {
		t, ok := parseTimestamp(m.CreatedAt)
		if !ok {
			return
		}
		items[i] = indexed{msg: m, at: t}
	}
	slices.SortStableFunc(items, func(a, b indexed) int {
		return a.at.Compare(b.at)
	})
	for i := range items {
		msgs[i] = items[i].msg
	}
}
