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

// DefaultCommunicationTypes are the group types that carry customer-facing
// communication (email, chat, call, contact form).
var DefaultCommunicationTypes = []string{"3", "4", "5", "7"}

// Classifier decides whether a ticket contains genuine human interaction:
// at least one communication group with real content whose participants
// are not internal or automated senders.
type Classifier struct {
	ignoredDomains     []string
	communicationTypes map[string]struct{}
}

// NewClassifier returns a Classifier that disqualifies groups mentioning any
// of ignoredDomains. Matching is a case-insensitive substring test; blank
// entries are dropped. A nil commTypes uses DefaultCommunicationTypes.
func NewClassifier(ignoredDomains, commTypes []string) *Classifier {
	if commTypes == nil {
		commTypes = DefaultCommunicationTypes
	}
	c := &Classifier{communicationTypes: make(map[string]struct{}, len(commTypes))}
	for _, d := range ignoredDomains {
		if d = strings.ToLower(strings.TrimSpace(d)); d != "" {
			c.ignoredDomains = append(c.ignoredDomains, d)
		}
	}
	for _, t := range commTypes {
		if t = strings.TrimSpace(t); t != "" {
			c.communicationTypes[t] = struct{}{}
		}
	}
	return c
}

// IsHumanInteraction reports whether any communication group in entries has
// a content message and no participant from an ignored domain. Flat entries
// and groups without messages never count.
func (c *Classifier) IsHumanInteraction(entries []models.Entry, dir Directory) bool {
	resolver := NewResolver(dir)
	for _, e := range entries {
		if e.Group == nil || len(e.Group.Messages) == 0 {
			continue
		}
		if _, ok := c.communicationTypes[e.Group.Type.String()]; !ok {
			continue
		}
		if c.groupQualifies(e.Group, resolver) {
			return true
		}
	}
	return false
}

func (c *Classifier) groupQualifies(g *models.MessageGroup, resolver *Resolver) bool {
	if c.matchesIgnored(g.UserID.String()) ||
		c.matchesIgnored(g.UserFullName.String()) ||
		c.matchesIgnored(g.Name.String()) {
		return false
	}

	hasContent := false
	for _, nm := range flattenGroup(g) {
		if nm.Type == models.MessageTypeHeader && c.headerIgnored(nm.BodyHTML) {
			return false
		}
		if c.matchesIgnored(nm.UserID) ||
			c.matchesIgnored(nm.UserFullName) ||
			c.matchesIgnored(nm.Name) ||
			c.matchesIgnored(resolver.Resolve(nm)) {
			return false
		}
		if nm.Type == models.MessageTypeContent && HasText(nm.BodyHTML) {
			hasContent = true
		}
	}
	return hasContent
}

// headerIgnored reports whether a header block that carries a "From:" label
// mentions an ignored domain anywhere, in its visible text or its raw
// markup. Automated mail often names the platform only in Reply-To or
// Sender, and an unescaped <addr> is swallowed as a tag by the tokenizer.
func (c *Classifier) headerIgnored(body string) bool {
	if !fromLabel.MatchString(body) {
		return false
	}
	return c.matchesIgnored(PlainText(body)) || c.matchesIgnored(body)
}

func (c *Classifier) matchesIgnored(value string) bool {
	if value == "" || len(c.ignoredDomains) == 0 {
		return false
	}
	value = strings.ToLower(value)
	for _, d := range c.ignoredDomains {
		if strings.Contains(value, d) {
			return true
		}
	}
	return false
}
