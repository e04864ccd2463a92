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
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	// DefaultMaxLength is the transcript size cap in characters.
	DefaultMaxLength = 49000
	// TruncationMarker is appended to a transcript cut at the size cap.
	TruncationMarker = "\n\n[WARNING: Transcript truncated due to size limit]"
	// UnknownDate stands in for a missing timestamp in a block header.
	UnknownDate = "Unknown Date"

	blockSeparator = "--------------------------------------------------"
)

// Renderer turns an attributed message sequence into a transcript.
type Renderer struct {
	// MaxLength caps the transcript body in characters. Zero or negative
	// means DefaultMaxLength.
	MaxLength int
}

// Render emits one block per message with visible body text. Messages
// without a body are skipped. Output longer than MaxLength is cut on a
// character boundary and suffixed with TruncationMarker.
func (r Renderer) Render(msgs []NormalizedMessage) string {
	text, _ := r.render(msgs)
	return text
}

// render returns the transcript and the number of blocks it holds.
func (r Renderer) render(msgs []NormalizedMessage) (string, int) {
	blocks := make([]string, 0, len(msgs))
	for _, m := range msgs {
		if m.BodyHTML == "" {
			continue
		}
		blocks = append(blocks, renderBlock(m))
	}
	return r.truncate(strings.Join(blocks, "\n")), len(blocks)
}

func renderBlock(m NormalizedMessage) string {
	author := m.Author
	if author == "" {
		author = UnknownAuthor
	}
	date := m.CreatedAt
	if date == "" {
		date = UnknownDate
	}
	return fmt.Sprintf("\n%s\n[AUTOR: %s | ČAS: %s]\n%s", blockSeparator, author, date, PlainText(m.BodyHTML))
}

func (r Renderer) truncate(s string) string {
	limit := r.MaxLength
	if limit <= 0 {
		limit = DefaultMaxLength
	}
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	n := 0
	for i := range s {
		if n == limit {
			return s[:i] + TruncationMarker
		}
		n++
	}
	return s
}
