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

package analysis

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	gl "google.golang.org/api/generativelanguage/v1beta"
	"google.golang.org/api/option"
)

// DefaultGeminiModel is used when no model is configured.
const DefaultGeminiModel = "models/gemini-2.0-flash"

// GeminiConfig holds Gemini settings.
type GeminiConfig struct {
	APIKey     string
	Model      string
	Endpoint   string
	HTTPClient *http.Client
}

// GeminiCompleter calls the Generative Language API.
type GeminiCompleter struct {
	svc   *gl.Service
	model string
}

// NewGeminiCompleter creates a Gemini-backed Completer.
func NewGeminiCompleter(ctx context.Context, cfg GeminiConfig) (*GeminiCompleter, error) {
	if cfg.APIKey == "" && cfg.HTTPClient == nil {
		return nil, errors.New("gemini: API key is required")
	}

	opts := []option.ClientOption{}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	} else {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}

	svc, err := gl.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create gemini service: %w", err)
	}

	model := cfg.Model
	if model == "" {
		model = DefaultGeminiModel
	}
	if !strings.HasPrefix(model, "models/") {
		model = "models/" + model
	}
	return &GeminiCompleter{svc: svc, model: model}, nil
}

// Model returns the model resource name.
func (g *GeminiCompleter) Model() string { return g.model }

// Complete sends prompt as a single user turn and joins the text parts of
// the first candidate.
func (g *GeminiCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	req := &gl.GenerateContentRequest{
		Contents: []*gl.Content{{
			Role:  "user",
			Parts: []*gl.Part{{Text: prompt}},
		}},
		GenerationConfig: &gl.GenerationConfig{
			ResponseMimeType: "application/json",
		},
	}

	resp, err := g.svc.Models.GenerateContent(g.model, req).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("gemini generate content: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", ErrEmptyResponse
	}

	var sb strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if p != nil {
			sb.WriteString(p.Text)
		}
	}
	if strings.TrimSpace(sb.String()) == "" {
		return "", ErrEmptyResponse
	}
	return sb.String(), nil
}
