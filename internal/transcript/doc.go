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

// Package transcript reconstructs readable conversation transcripts from
// helpdesk message payloads and decides whether a ticket holds real human
// communication.
//
// The flow for one ticket is:
//
//	entries -> Normalize -> Resolver.Attribute -> Classifier (gate) -> Renderer
//
// Everything in this package is pure: no I/O, no logging, no shared mutable
// state. Malformed input degrades to a defined default instead of failing, so
// one bad message never costs the rest of the ticket. A Directory passed in
// is only read, which makes concurrent use across tickets safe.
package transcript
