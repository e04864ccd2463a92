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

	"golang.org/x/net/html"
)

// hiddenElements never contribute visible text.
var hiddenElements = map[string]bool{
	"script":   true,
	"style":    true,
	"head":     true,
	"title":    true,
	"noscript": true,
	"template": true,
}

// textNodes returns the entity-decoded text nodes of an HTML fragment in
// document order. Input that is not HTML at all comes back as one node.
func textNodes(body string) []string {
	body = strings.ToValidUTF8(body, "�")

	z := html.NewTokenizer(strings.NewReader(body))
	var nodes []string
	hidden := 0

	for {
		switch z.Next() {
		case html.ErrorToken:
			// io.EOF or a tokenizer error; either way we keep what we have.
			return nodes
		case html.StartTagToken:
			name, _ := z.TagName()
			if hiddenElements[string(name)] {
				hidden++
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			if hiddenElements[string(name)] && hidden > 0 {
				hidden--
			}
		case html.TextToken:
			if hidden == 0 {
				nodes = append(nodes, string(z.Text()))
			}
		}
	}
}

// PlainText strips tags and decodes entities, placing a line break between
// text nodes. Each line is trimmed and blank lines are dropped.
func PlainText(body string) string {
	if body == "" {
		return ""
	}
	return collapseLines(strings.Join(textNodes(body), "\n"))
}

// HasText reports whether an HTML fragment has any visible text.
func HasText(body string) bool {
	for _, node := range textNodes(body) {
		if strings.TrimSpace(node) != "" {
			return true
		}
	}
	return false
}

func collapseLines(text string) string {
	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}
