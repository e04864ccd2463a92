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

import "github.com/deskqa/ingestion/internal/models"

// Options configures a Processor.
type Options struct {
	MaxLength          int
	IgnoredDomains     []string
	CommunicationTypes []string
}

// Result is the outcome of processing one ticket.
type Result struct {
	// Human is the classifier verdict. When false, Transcript is empty.
	Human      bool
	Transcript string
	// Messages counts the blocks in Transcript; notifications and other
	// body-less messages are not counted.
	Messages int
}

// Processor runs the full per-ticket flow.
type Processor struct {
	classifier *Classifier
	renderer   Renderer
}

// NewProcessor builds a Processor from options.
func NewProcessor(opts Options) *Processor {
	return &Processor{
		classifier: NewClassifier(opts.IgnoredDomains, opts.CommunicationTypes),
		renderer:   Renderer{MaxLength: opts.MaxLength},
	}
}

// Process classifies a ticket's entries and, for human interactions,
// renders its transcript.
func (p *Processor) Process(entries []models.Entry, dir Directory) Result {
	if !p.classifier.IsHumanInteraction(entries, dir) {
		return Result{}
	}
	text, blocks := p.renderer.render(NewResolver(dir).Attribute(Normalize(entries)))
	return Result{
		Human:      true,
		Transcript: text,
		Messages:   blocks,
	}
}

// Transcript renders entries without the classifier gate.
func (p *Processor) Transcript(entries []models.Entry, dir Directory) string {
	return p.renderer.Render(NewResolver(dir).Attribute(Normalize(entries)))
}
