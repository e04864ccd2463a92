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

	"github.com/deskqa/ingestion/internal/models"
)

const (
	// UnknownAuthor is used when a message carries no sender id at all.
	UnknownAuthor = "Unknown"
	// PlaceholderPrefix marks an author that could not be named from the
	// directory ("User <id>").
	PlaceholderPrefix = "User "
)

// Directory maps sender ids to display names. Agents take precedence over
// contacts.
type Directory struct {
	Agents   map[string]string
	Contacts map[string]string
}

// NewDirectory builds a Directory from fetched agent and contact records.
// Records without an id are skipped.
func NewDirectory(agents []models.Agent, contacts []models.Contact) Directory {
	d := Directory{
		Agents:   make(map[string]string, len(agents)),
		Contacts: make(map[string]string, len(contacts)),
	}
	for _, a := range agents {
		if key := a.Key(); key != "" {
			d.Agents[key] = a.DisplayName()
		}
	}
	for _, c := range contacts {
		if key := c.Key(); key != "" {
			d.Contacts[key] = c.DisplayName()
		}
	}
	return d
}

// Lookup returns the directory name for a sender id.
func (d Directory) Lookup(id string) (string, bool) {
	if id == "" {
		return "", false
	}
	if name, ok := d.Agents[id]; ok && name != "" {
		return name, true
	}
	if name, ok := d.Contacts[id]; ok && name != "" {
		return name, true
	}
	return "", false
}

// authorSource yields a candidate author for a message.
type authorSource func(m NormalizedMessage, d Directory) (string, bool)

// primarySources are consulted in order; the first hit wins.
var primarySources = []authorSource{
	func(m NormalizedMessage, _ Directory) (string, bool) {
		return m.UserFullName, m.UserFullName != ""
	},
	func(m NormalizedMessage, d Directory) (string, bool) {
		return d.Lookup(m.UserID)
	},
}

// placeholderSources replace a "User <id>" placeholder, in order.
var placeholderSources = []authorSource{
	func(m NormalizedMessage, _ Directory) (string, bool) {
		return m.ExtractedFromAuthor, m.ExtractedFromAuthor != ""
	},
	func(m NormalizedMessage, _ Directory) (string, bool) {
		return ExtractFromAuthor(m.BodyHTML)
	},
}

// Resolver assigns a display name to every message.
type Resolver struct {
	dir Directory
}

// NewResolver returns a Resolver backed by the given directory.
func NewResolver(dir Directory) *Resolver {
	return &Resolver{dir: dir}
}

// Resolve returns the best display name for a message. It never returns an
// empty string.
func (r *Resolver) Resolve(m NormalizedMessage) string {
	author := r.primary(m)
	if !strings.HasPrefix(author, PlaceholderPrefix) {
		return author
	}
	for _, src := range placeholderSources {
		if name, ok := src(m, r.dir); ok {
			return name
		}
	}
	return author
}

func (r *Resolver) primary(m NormalizedMessage) string {
	for _, src := range primarySources {
		if name, ok := src(m, r.dir); ok {
			return name
		}
	}
	if m.UserID == "" {
		return UnknownAuthor
	}
	return PlaceholderPrefix + m.UserID
}

// Attribute returns a copy of msgs with Author set on each message.
func (r *Resolver) Attribute(msgs []NormalizedMessage) []NormalizedMessage {
	out := make([]NormalizedMessage, len(msgs))
	for i, m := range msgs {
		m.Author = r.Resolve(m)
		out[i] = m
	}
	return out
}
