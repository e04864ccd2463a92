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

// Package analysis scores ticket transcripts with a large language model:
// a QA rating of the agent and a decision on whether the ticket needs an
// alert.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrEmptyResponse is returned when a provider answers with no text.
var ErrEmptyResponse = errors.New("analysis: empty model response")

// Completer produces a text completion for a single prompt.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
	Model() string
}

// ProviderConfig selects and configures a Completer.
type ProviderConfig struct {
	Provider string // "gemini", "anthropic" or "ollama"
	Model    string
	APIKey   string
	BaseURL  string
	Timeout  time.Duration

	HTTPClient *http.Client
}

// NewCompleter builds the Completer named by cfg.Provider.
func NewCompleter(ctx context.Context, cfg ProviderConfig) (Completer, error) {
	switch cfg.Provider {
	case "gemini", "":
		return NewGeminiCompleter(ctx, GeminiConfig{
			APIKey:     cfg.APIKey,
			Model:      cfg.Model,
			Endpoint:   cfg.BaseURL,
			HTTPClient: cfg.HTTPClient,
		})
	case "anthropic":
		return NewAnthropicCompleter(AnthropicConfig{
			APIKey:     cfg.APIKey,
			Model:      cfg.Model,
			BaseURL:    cfg.BaseURL,
			Timeout:    cfg.Timeout,
			HTTPClient: cfg.HTTPClient,
		})
	case "ollama":
		return NewOllamaCompleter(OllamaConfig{
			Model:      cfg.Model,
			BaseURL:    cfg.BaseURL,
			Timeout:    cfg.Timeout,
			HTTPClient: cfg.HTTPClient,
		}), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}
