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

// Package models defines the helpdesk payload shapes shared across the
// ingestion service. Everything here decodes leniently: the helpdesk API is
// inconsistent about scalar types and optional fields, and a single odd
// value must never make a whole ticket undecodable.
package models

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// FlexString is a JSON scalar that may arrive as a string, a number, a
// boolean or null. It always decodes; unsupported shapes become "".
type FlexString string

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			*f = ""
			return nil
		}
		*f = FlexString(s)
	case 't', 'f':
		*f = FlexString(strconv.FormatBool(data[0] == 't'))
	case '{', '[':
		*f = ""
	default:
		// Numbers keep their literal form so "3" and 3 compare equal.
		*f = FlexString(data)
	}
	return nil
}

// String returns the trimmed value.
func (f FlexString) String() string {
	return strings.TrimSpace(string(f))
}

// Message type codes.
const (
	MessageTypeHeader       = "H"
	MessageTypeContent      = "M"
	MessageTypeNotification = "T"
)

// RawMessage is an atomic message within a group, as served by
// GET /tickets/{id}/messages.
type RawMessage struct {
	ID           FlexString `json:"id"`
	Type         FlexString `json:"type"`
	UserID       FlexString `json:"userid"`
	UserFullName FlexString `json:"user_full_name"`
	Name         FlexString `json:"name"`
	Body         FlexString `json:"message"`
	CreatedAt    FlexString `json:"datecreated"`
}

// MessageGroup is a logical exchange unit: one incoming mail, one agent
// reply, one system event.
type MessageGroup struct {
	ID           FlexString   `json:"id"`
	Type         FlexString   `json:"type"`
	UserID       FlexString   `json:"userid"`
	UserFullName FlexString   `json:"user_full_name"`
	Name         FlexString   `json:"name"`
	CreatedAt    FlexString   `json:"datecreated"`
	Messages     []RawMessage `json:"-"`
}

// Entry is one top-level element of a ticket's message payload. Exactly one
// of Group or Flat is set.
type Entry struct {
	Group *MessageGroup
	Flat  *RawMessage
}

// IsGroup reports whether the entry carried a messages array.
func (e Entry) IsGroup() bool {
	return e.Group != nil
}

// DecodeEntries decodes a message payload into entries. It never fails: a
// top level that is not an array yields nil, and elements that are not
// objects are dropped.
func DecodeEntries(data []byte) []Entry {
	var elems []json.RawMessage
	if err := json.Unmarshal(data, &elems); err != nil {
		return nil
	}

	entries := make([]Entry, 0, len(elems))
	for _, elem := range elems {
		if entry, ok := decodeEntry(elem); ok {
			entries = append(entries, entry)
		}
	}
	return entries
}

func decodeEntry(data json.RawMessage) (Entry, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil || fields == nil {
		return Entry{}, false
	}

	rawMessages, hasMessages := fields["messages"]
	rawMessages = bytes.TrimSpace(rawMessages)
	if !hasMessages || len(rawMessages) == 0 || rawMessages[0] != '[' {
		var msg RawMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return Entry{}, false
		}
		return Entry{Flat: &msg}, true
	}

	var group MessageGroup
	if err := json.Unmarshal(data, &group); err != nil {
		return Entry{}, false
	}
	group.Messages = decodeMessages(rawMessages)
	return Entry{Group: &group}, true
}

func decodeMessages(data json.RawMessage) []RawMessage {
	var elems []json.RawMessage
	if err := json.Unmarshal(data, &elems); err != nil {
		return nil
	}

	out := make([]RawMessage, 0, len(elems))
	for _, elem := range elems {
		elem = bytes.TrimSpace(elem)
		if len(elem) == 0 || elem[0] != '{' {
			continue
		}
		var msg RawMessage
		if err := json.Unmarshal(elem, &msg); err != nil {
			continue
		}
		out = append(out, msg)
	}
	return out
}
