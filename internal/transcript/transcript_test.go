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
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deskqa/ingestion/internal/models"
)

var plotbaseDomains = []string{"plotbase.sk", "plotbase.cz", "plotbase.at", "plotbase.de", "plotbase.hu"}

func decode(t *testing.T, payload string) []models.Entry {
	t.Helper()
	entries := models.DecodeEntries([]byte(payload))
	require.NotNil(t, entries, "payload should decode")
	return entries
}

func block(author, date, text string) string {
	return "\n" + strings.Repeat("-", 50) + "\n[AUTOR: " + author + " | ČAS: " + date + "]\n" + text
}

// TestPlainText verifies tag stripping, entity decoding and line cleanup.
func TestPlainText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"plain", "hello", "hello"},
		{"paragraphs", "<p>Hello</p><p>  world </p>", "Hello\nworld"},
		{"entities", "<div>Tom &amp; Jerry &lt;3</div>", "Tom & Jerry <3"},
		{"blank lines", "<p>a</p>\n\n<br>\n<p>b</p>", "a\nb"},
		{"script hidden", "<script>var x = 1;</script><p>shown</p>", "shown"},
		{"whitespace only", "<p>   </p><br/>", ""},
		{"invalid utf8", "ok\xff", "ok�"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PlainText(tt.in))
		})
	}
}

// TestExtractFromAuthor verifies name extraction from forwarded headers.
func TestExtractFromAuthor(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		want   string
		wantOK bool
	}{
		{"name and address", "From: Jane Doe &lt;jane@x.com&gt;\nTo: support", "Jane Doe", true},
		{"html wrapped", "<p>Subject: hi</p><p>From: Peter Novak &lt;p@n.sk&gt;</p>", "Peter Novak", true},
		{"address only", "From: &lt;jane@x.com&gt;", "<jane@x.com>", true},
		{"bare address", "From: jane@x.com", "jane@x.com", true},
		{"no header", "Hello there", "", false},
		{"label in own element", "<b>From:</b> Jane Doe &lt;jane@x.com&gt;", "Jane Doe", true},
		{"label and value in paragraphs", "<p>From:</p><p>Jane Doe</p>", "Jane Doe", true},
		{"value on next line", "From:\nJane Doe &lt;jane@x.com&gt;", "Jane Doe", true},
		{"empty value", "From:   ", "", false},
		{"empty body", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractFromAuthor(tt.body)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

// TestNormalize_GroupMetadataAndOrder verifies flattening, inheritance of the
// group's full name and timestamp ordering.
func TestNormalize_GroupMetadataAndOrder(t *testing.T) {
	entries := decode(t, `[
		{"type":"3","user_full_name":"Group Person","messages":[
			{"id":"m2","type":"M","userid":"u1","message":"second","datecreated":"2024-01-01 10:05:00"},
			{"id":"m1","type":"H","userid":"u1","message":"From: Jane Doe &lt;jane@x.com&gt;","datecreated":"2024-01-01 10:00:00"}
		]},
		{"id":"f1","type":"M","userid":"u2","user_full_name":"Flat One","message":"flat","datecreated":"2024-01-01 09:00:00"}
	]`)

	msgs := Normalize(entries)
	require.Len(t, msgs, 3)

	assert.Equal(t, []string{"f1", "m1", "m2"}, []string{msgs[0].ID, msgs[1].ID, msgs[2].ID})
	assert.Equal(t, "", msgs[0].GroupType)
	assert.Equal(t, "3", msgs[1].GroupType)
	assert.Equal(t, "Group Person", msgs[1].UserFullName)
	assert.Equal(t, "Jane Doe", msgs[2].ExtractedFromAuthor)
	assert.Equal(t, "Flat One", msgs[0].UserFullName)
	assert.Empty(t, msgs[0].ExtractedFromAuthor)
}

// TestNormalize_UnparseableTimestampKeepsPayloadOrder verifies the ordering
// fallback.
func TestNormalize_UnparseableTimestampKeepsPayloadOrder(t *testing.T) {
	entries := decode(t, `[
		{"id":"a","type":"M","message":"x","datecreated":"2024-01-02 00:00:00"},
		{"id":"b","type":"M","message":"y","datecreated":"yesterday"},
		{"id":"c","type":"M","message":"z","datecreated":"2024-01-01 00:00:00"}
	]`)
	msgs := Normalize(entries)
	require.Len(t, msgs, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{msgs[0].ID, msgs[1].ID, msgs[2].ID})
}

// TestNormalize_NotificationHasNoBody verifies T messages are kept out of
// the renderable body.
func TestNormalize_NotificationHasNoBody(t *testing.T) {
	msgs := Normalize(decode(t, `[{"type":"I","messages":[{"type":"T","message":"SLA changed"}]}]`))
	require.Len(t, msgs, 1)
	assert.Empty(t, msgs[0].BodyHTML)
	assert.Equal(t, "SLA changed", msgs[0].Notification)
}

// TestResolver verifies the author precedence chain and placeholder
// fallbacks.
func TestResolver(t *testing.T) {
	dir := Directory{
		Agents:   map[string]string{"a1": "Jana", "both": "Agent Wins"},
		Contacts: map[string]string{"u1": "Customer X", "both": "Contact Loses"},
	}
	r := NewResolver(dir)

	tests := []struct {
		name string
		msg  NormalizedMessage
		want string
	}{
		{"full name first", NormalizedMessage{UserID: "a1", UserFullName: "Explicit"}, "Explicit"},
		{"agent", NormalizedMessage{UserID: "a1"}, "Jana"},
		{"contact", NormalizedMessage{UserID: "u1"}, "Customer X"},
		{"agent over contact", NormalizedMessage{UserID: "both"}, "Agent Wins"},
		{"no user id", NormalizedMessage{BodyHTML: "From: Someone"}, UnknownAuthor},
		{"placeholder", NormalizedMessage{UserID: "zz9"}, "User zz9"},
		{"placeholder uses group header", NormalizedMessage{UserID: "zz9", ExtractedFromAuthor: "Jane Doe", BodyHTML: "From: Other"}, "Jane Doe"},
		{"placeholder uses own body", NormalizedMessage{UserID: "zz9", BodyHTML: "<p>From: Mark &lt;m@x.sk&gt;</p>"}, "Mark"},
		{"placeholder uses split header markup", NormalizedMessage{UserID: "zz", BodyHTML: "<b>From:</b> Jane Doe &lt;jane@x.com&gt;"}, "Jane Doe"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Resolve(tt.msg))
		})
	}
}

// TestNewDirectory verifies directory construction from fetched records.
func TestNewDirectory(t *testing.T) {
	dir := NewDirectory(
		[]models.Agent{{ID: "a1", FirstName: "Jana", LastName: "Kovac"}, {Name: "no id"}},
		[]models.Contact{{ID: "c1"}},
	)
	assert.Len(t, dir.Agents, 1)
	name, ok := dir.Lookup("a1")
	assert.True(t, ok)
	assert.Equal(t, "Jana Kovac", name)

	// A contact without any name resolves to a placeholder, which the
	// resolver then treats like an unknown sender.
	assert.Equal(t, "Real Name", NewResolver(dir).Resolve(NormalizedMessage{UserID: "c1", BodyHTML: "From: Real Name"}))
}

// TestClassifier verifies the human-interaction gate.
func TestClassifier(t *testing.T) {
	dir := Directory{Agents: map[string]string{"bot": "Robot plotbase.sk"}}
	c := NewClassifier(plotbaseDomains, nil)

	tests := []struct {
		name    string
		payload string
		want    bool
	}{
		{
			name:    "customer email",
			payload: `[{"type":"3","messages":[{"type":"H","message":"From: Jane &lt;jane@x.com&gt;"},{"type":"M","message":"<p>Hi, my order is late</p>"}]}]`,
			want:    true,
		},
		{
			name:    "ignored domain in header",
			payload: `[{"type":"3","messages":[{"type":"H","message":"<p>From: Shop &lt;noreply@plotbase.sk&gt;</p>"},{"type":"M","message":"<p>Your order shipped</p>"}]}]`,
			want:    false,
		},
		{
			name:    "ignored domain in unescaped header",
			payload: `[{"type":"3","messages":[{"type":"H","message":"From: Shop <noreply@PLOTBASE.cz>"},{"type":"M","message":"hello"}]}]`,
			want:    false,
		},
		{
			name:    "ignored domain in later header line",
			payload: `[{"type":"3","messages":[{"type":"H","message":"From: Plotbase Shop\nReply-To: noreply@plotbase.sk"},{"type":"M","message":"<p>Your order shipped</p>"}]}]`,
			want:    false,
		},
		{
			name:    "ignored domain in separate header element",
			payload: `[{"type":"3","messages":[{"type":"H","message":"<b>From:</b>\n<span>noreply@plotbase.sk</span>"},{"type":"M","message":"<p>Your order shipped</p>"}]}]`,
			want:    false,
		},
		{
			name:    "ignored sender id",
			payload: `[{"type":"4","messages":[{"type":"M","userid":"system@plotbase.de","message":"auto"}]}]`,
			want:    false,
		},
		{
			name:    "ignored full name",
			payload: `[{"type":"4","user_full_name":"Plotbase.hu Bot","messages":[{"type":"M","message":"auto"}]}]`,
			want:    false,
		},
		{
			name:    "ignored resolved name",
			payload: `[{"type":"5","messages":[{"type":"M","userid":"bot","message":"auto"}]}]`,
			want:    false,
		},
		{
			name:    "non communication type",
			payload: `[{"type":"I","messages":[{"type":"T","message":"SLA changed"}]}]`,
			want:    false,
		},
		{
			name:    "header only",
			payload: `[{"type":"3","messages":[{"type":"H","message":"From: Jane"}]}]`,
			want:    false,
		},
		{
			name:    "whitespace content",
			payload: `[{"type":"7","messages":[{"type":"M","message":"<p> &nbsp; </p>"}]}]`,
			want:    false,
		},
		{
			name:    "empty group",
			payload: `[{"type":"3","messages":[]}]`,
			want:    false,
		},
		{
			name:    "flat entries never count",
			payload: `[{"type":"M","message":"hello"}]`,
			want:    false,
		},
		{
			name:    "one good group is enough",
			payload: `[{"type":"3","messages":[{"type":"M","userid":"x@plotbase.at","message":"auto"}]},{"type":"5","messages":[{"type":"M","message":"call notes"}]}]`,
			want:    true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.IsHumanInteraction(decode(t, tt.payload), dir))
		})
	}
}

// TestClassifier_CustomTypes verifies configured communication types.
func TestClassifier_CustomTypes(t *testing.T) {
	entries := decode(t, `[{"type":"9","messages":[{"type":"M","message":"hello"}]}]`)
	assert.False(t, NewClassifier(nil, nil).IsHumanInteraction(entries, Directory{}))
	assert.True(t, NewClassifier([]string{"", "  "}, []string{"9"}).IsHumanInteraction(entries, Directory{}))
}

// TestRender_TwoBlocks verifies block format and ordering.
func TestRender_TwoBlocks(t *testing.T) {
	entries := decode(t, `[
		{"type":"4","messages":[{"type":"M","userid":"a1","message":"<p>Hi, how can I help?</p>","datecreated":"2024-01-01 10:05:00"}]},
		{"type":"3","messages":[{"type":"M","userid":"u1","message":"<p>Hello</p>","datecreated":"2024-01-01 10:00:00"}]}
	]`)
	dir := Directory{
		Agents:   map[string]string{"a1": "Jana"},
		Contacts: map[string]string{"u1": "Customer X"},
	}

	got := NewProcessor(Options{IgnoredDomains: plotbaseDomains}).Process(entries, dir)
	require.True(t, got.Human)
	want := block("Customer X", "2024-01-01 10:00:00", "Hello") + "\n" +
		block("Jana", "2024-01-01 10:05:00", "Hi, how can I help?")
	assert.Equal(t, want, got.Transcript)
	assert.Equal(t, 2, got.Messages)
}

// TestRender_SkipsEmptyAndDefaultsDate verifies body-less messages are
// dropped and a missing date is labelled.
func TestRender_SkipsEmptyAndDefaultsDate(t *testing.T) {
	msgs := []NormalizedMessage{
		{Author: "A", BodyHTML: ""},
		{Author: "B", BodyHTML: "<p>text</p>"},
		{Notification: "SLA changed"},
	}
	assert.Equal(t, block("B", UnknownDate, "text"), Renderer{}.Render(msgs))
	assert.Equal(t, "", Renderer{}.Render(nil))
}

// TestProcess_CountsRenderedBlocks verifies Messages matches the blocks in
// the transcript, not the messages in the payload.
func TestProcess_CountsRenderedBlocks(t *testing.T) {
	entries := decode(t, `[{"type":"3","messages":[
		{"type":"T","message":"Ticket assigned","datecreated":"2024-01-01 09:59:00"},
		{"type":"M","userid":"u1","message":"","datecreated":"2024-01-01 10:00:00"},
		{"type":"M","userid":"u1","message":"<p>Hello</p>","datecreated":"2024-01-01 10:01:00"}
	]}]`)

	got := NewProcessor(Options{}).Process(entries, Directory{Contacts: map[string]string{"u1": "Customer X"}})
	require.True(t, got.Human)
	assert.Equal(t, 1, got.Messages)
	assert.Equal(t, 1, strings.Count(got.Transcript, "[AUTOR:"))
}

// TestRender_NonHumanTicketIsEmpty verifies a system-only ticket renders
// nothing.
func TestRender_NonHumanTicketIsEmpty(t *testing.T) {
	entries := decode(t, `[{"type":"I","messages":[{"type":"T","message":"SLA changed"}]}]`)
	p := NewProcessor(Options{IgnoredDomains: plotbaseDomains})
	assert.Equal(t, Result{}, p.Process(entries, Directory{}))
	assert.Equal(t, "", p.Transcript(entries, Directory{}))
}

// TestRender_Truncation verifies the size cap and marker.
func TestRender_Truncation(t *testing.T) {
	body := strings.Repeat("ž", 500)
	msgs := []NormalizedMessage{{Author: "A", CreatedAt: "d", BodyHTML: body}}

	r := Renderer{MaxLength: 100}
	got := r.Render(msgs)
	require.True(t, strings.HasSuffix(got, TruncationMarker))
	assert.Equal(t, 100, utf8.RuneCountInString(strings.TrimSuffix(got, TruncationMarker)))
	assert.True(t, utf8.ValidString(got))

	full := Renderer{MaxLength: 10000}.Render(msgs)
	assert.False(t, strings.HasSuffix(full, TruncationMarker))
	assert.Equal(t, block("A", "d", body), full)
}

// TestRender_Deterministic verifies identical input gives identical output.
func TestRender_Deterministic(t *testing.T) {
	payload := `[{"type":"3","messages":[{"type":"M","userid":"u9","message":"<b>x</b> y","datecreated":"2024-01-01 10:00:00"},{"type":"H","message":"From: Z &lt;z@z.z&gt;"}]}]`
	p := NewProcessor(Options{})
	first := p.Process(decode(t, payload), Directory{})
	second := p.Process(decode(t, payload), Directory{})
	assert.Equal(t, first, second)
	assert.Contains(t, first.Transcript, "[AUTOR: Z | ČAS: 2024-01-01 10:00:00]\nx\ny")
}
