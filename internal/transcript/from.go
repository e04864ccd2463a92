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
	"regexp"
	"strings"
)

var (
	fromLine  = regexp.MustCompile(`(?i)From:\s*([^\n]+)`)
	fromLabel = regexp.MustCompile(`(?i)from:`)
	namePart  = regexp.MustCompile(`^([^<]+)`)
)

// fromHeader returns the raw value of the first "From:" label in the visible
// text of an HTML fragment. The value may start on the line after the label,
// which is how a label and value in separate elements come out of PlainText.
func fromHeader(body string) (string, bool) {
	if body == "" {
		return "", false
	}
	m := fromLine.FindStringSubmatch(PlainText(body))
	if m == nil {
		return "", false
	}
	value := strings.TrimSpace(m[1])
	return value, value != ""
}

// ExtractFromAuthor pulls a display name out of a forwarded-email header
// embedded in a message body. For `From: Jane Doe <jane@x.com>` it returns
// "Jane Doe". When the value has no name before the angle bracket the whole
// value is returned.
func ExtractFromAuthor(body string) (string, bool) {
	value, ok := fromHeader(body)
	if !ok {
		return "", false
	}
	if m := namePart.FindStringSubmatch(value); m != nil {
		if name := strings.TrimSpace(m[1]); name != "" {
			return name, true
		}
	}
	return value, true
}
