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

package models

import "testing"

// TestDecodeEntries_GroupsAndFlat verifies the grouped/flat split.
func TestDecodeEntries_GroupsAndFlat(t *testing.T) {
	data := []byte(`[
		{"type": 3, "user_full_name": "Jana", "messages": [
			{"type": "H", "message": "From: Jana <jana@example.com>"},
			{"type": "M", "userid": 42, "message": "<p>Hello</p>", "datecreated": "2025-01-01 10:00:00"}
		]},
		{"type": "M", "userid": "u1", "message": "flat body"},
		{"type": "I", "messages": "not-a-list"}
	]`)

	entries := DecodeEntries(data)
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}

	g := entries[0]
	if !g.IsGroup() {
		t.Fatal("first entry should be a group")
	}
	if g.Group.Type.String() != "3" {
		t.Errorf("group type = %q, want 3", g.Group.Type)
	}
	if len(g.Group.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(g.Group.Messages))
	}
	if g.Group.Messages[1].UserID.String() != "42" {
		t.Errorf("numeric userid = %q, want 42", g.Group.Messages[1].UserID)
	}

	if entries[1].IsGroup() || entries[1].Flat.Body.String() != "flat body" {
		t.Errorf("second entry should be flat with body, got %+v", entries[1])
	}

	// A non-list messages field means the object is treated as a flat message.
	if entries[2].IsGroup() {
		t.Error("entry with non-list messages should be flat")
	}
}

// TestDecodeEntries_Degrades verifies malformed payloads never fail.
func TestDecodeEntries_Degrades(t *testing.T) {
	tests := []struct {
		name string
		data string
		want int
	}{
		{name: "object top level", data: `{"messages": []}`, want: 0},
		{name: "string top level", data: `"nope"`, want: 0},
		{name: "invalid json", data: `[{`, want: 0},
		{name: "empty array", data: `[]`, want: 0},
		{name: "non-object elements", data: `[1, "x", null, {"type": "M"}]`, want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := len(DecodeEntries([]byte(tt.data))); got != tt.want {
				t.Errorf("len = %d, want %d", got, tt.want)
			}
		})
	}
}

// TestDecodeEntries_SkipsBadMessages verifies bad elements inside a group.
func TestDecodeEntries_SkipsBadMessages(t *testing.T) {
	entries := DecodeEntries([]byte(`[{"type": "4", "messages": [null, 7, {"type": {"x": 1}, "message": "ok"}]}]`))
	if len(entries) != 1 || !entries[0].IsGroup() {
		t.Fatalf("expected one group, got %+v", entries)
	}
	msgs := entries[0].Group.Messages
	if len(msgs) != 1 {
		t.Fatalf("expected 1 surviving message, got %d", len(msgs))
	}
	if msgs[0].Type != "" || msgs[0].Body != "ok" {
		t.Errorf("unexpected message %+v", msgs[0])
	}
}

// TestContactDisplayName verifies the contact name fallback chain.
func TestContactDisplayName(t *testing.T) {
	tests := []struct {
		name    string
		contact Contact
		want    string
	}{
		{name: "name", contact: Contact{ID: "1", Name: "Eva", FullName: "Eva Nová"}, want: "Eva"},
		{name: "full name", contact: Contact{ID: "1", FullName: "Eva Nová"}, want: "Eva Nová"},
		{name: "first last", contact: Contact{ID: "1", FirstName: "Eva", LastName: "Nová"}, want: "Eva Nová"},
		{name: "first only", contact: Contact{ID: "1", FirstName: "Eva"}, want: "Eva"},
		{name: "email", contact: Contact{ID: "1", Email: "eva@example.com"}, want: "eva@example.com"},
		{name: "placeholder", contact: Contact{ContactID: "c9"}, want: "User c9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.contact.DisplayName(); got != tt.want {
				t.Errorf("DisplayName() = %q, want %q", got, tt.want)
			}
		})
	}
}

// TestAgentDisplayName verifies the agent placeholder and key fallback.
func TestAgentDisplayName(t *testing.T) {
	a := Agent{UserID: "a7"}
	if a.Key() != "a7" {
		t.Errorf("Key() = %q, want a7", a.Key())
	}
	if got := a.DisplayName(); got != "Agent a7" {
		t.Errorf("DisplayName() = %q, want Agent a7", got)
	}
}

// TestTicketAssignedAgentID verifies both agent id field names are honoured.
func TestTicketAssignedAgentID(t *testing.T) {
	if got := (Ticket{AgentIDAlt: "x1"}).AssignedAgentID(); got != "x1" {
		t.Errorf("AssignedAgentID() = %q, want x1", got)
	}
	if got := (Ticket{AgentID: "a1", AgentIDAlt: "x1"}).AssignedAgentID(); got != "a1" {
		t.Errorf("AssignedAgentID() = %q, want a1", got)
	}
}
