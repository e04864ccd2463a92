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

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const sampleYAML = `
liveagent:
  api_key: ${TEST_LA_KEY}
  base_url: https://example.ladesk.com/api/v3/
  pages: 3
  timeout: 10s
transcript:
  ignored_domains: [example.sk]
store:
  backend: postgres
  database_url: postgres://u:p@localhost/db
llm:
  provider: ollama
  model: llama3
alerts:
  recipients: ["a@x.sk, b@x.sk", " ", "c@x.sk"]
schedule:
  aggregate: {hours: "16"}
  archive: {days: mon-sun, hours: "6", minute: 0}
port: 9090
`

// TestParse verifies YAML decoding, env expansion and defaults.
func TestParse(t *testing.T) {
	t.Setenv("TEST_LA_KEY", "secret-key")

	cfg, err := Parse([]byte(sampleYAML))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}

	if cfg.LiveAgent.APIKey != "secret-key" {
		t.Errorf("expected expanded api key, got %q", cfg.LiveAgent.APIKey)
	}
	if cfg.LiveAgent.BaseURL != "https://example.ladesk.com/api/v3" {
		t.Errorf("expected trailing slash trimmed, got %q", cfg.LiveAgent.BaseURL)
	}
	if cfg.LiveAgent.Pages != 3 || cfg.LiveAgent.PerPage != 20 {
		t.Errorf("expected pages=3 per_page=20, got %d/%d", cfg.LiveAgent.Pages, cfg.LiveAgent.PerPage)
	}
	if cfg.LiveAgent.Timeout != 10*time.Second {
		t.Errorf("expected 10s timeout, got %v", cfg.LiveAgent.Timeout)
	}
	if cfg.Transcript.MaxLength != 49000 {
		t.Errorf("expected default max length, got %d", cfg.Transcript.MaxLength)
	}
	if cfg.Timezone != "Europe/Bratislava" {
		t.Errorf("expected default timezone, got %q", cfg.Timezone)
	}
	if got := strings.Join(cfg.Alerts.Recipients, "|"); got != "a@x.sk|b@x.sk|c@x.sk" {
		t.Errorf("unexpected recipients %q", got)
	}
	if cfg.SMTP.Port != 587 {
		t.Errorf("expected default SMTP port, got %d", cfg.SMTP.Port)
	}
	if cfg.ArchiveRetentionDays != 2 {
		t.Errorf("expected retention 2, got %d", cfg.ArchiveRetentionDays)
	}
	if cfg.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Port)
	}

	// Partial overrides keep the default minute and days.
	agg := cfg.Schedule[JobAggregate]
	if agg.Hours != "16" || agg.Days != "mon-fri" || agg.Minute != 0 {
		t.Errorf("unexpected aggregate schedule %+v", agg)
	}
	if cfg.Schedule[JobETL].Minute != 30 {
		t.Errorf("expected etl default minute 30, got %d", cfg.Schedule[JobETL].Minute)
	}
	if _, ok := cfg.Schedule[JobArchive]; !ok {
		t.Error("expected archive schedule from YAML")
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error: %v", err)
	}
}

// TestParse_InvalidYAML verifies decode errors are wrapped.
func TestParse_InvalidYAML(t *testing.T) {
	_, err := Parse([]byte("liveagent: [unclosed"))
	if err == nil || !strings.Contains(err.Error(), "parse config YAML") {
		t.Fatalf("expected parse error, got %v", err)
	}
}

// TestValidate verifies each rejected configuration.
func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			LiveAgent:  LiveAgentConfig{APIKey: "k"},
			Transcript: TranscriptConfig{MaxLength: 100},
			Timezone:   "UTC",
			Store:      StoreConfig{Backend: "sheets", SpreadsheetID: "sheet"},
			LLM:        LLMConfig{Provider: "gemini"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"missing api key", func(c *Config) { c.LiveAgent.APIKey = "" }, "api_key"},
		{"zero max length", func(c *Config) { c.Transcript.MaxLength = 0 }, "max_length"},
		{"unknown backend", func(c *Config) { c.Store.Backend = "excel" }, "unknown store backend"},
		{"postgres without url", func(c *Config) { c.Store.Backend = "postgres" }, "database_url"},
		{"unknown provider", func(c *Config) { c.LLM.Provider = "gpt" }, "unknown llm provider"},
		{"bad timezone", func(c *Config) { c.Timezone = "Mars/Olympus" }, "timezone"},
		{"bad minute", func(c *Config) { c.Schedule = map[string]JobSchedule{"etl": {Minute: 75}} }, "minute"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

// TestLoad verifies loading from CONFIG_PATH outside development.
func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(sampleYAML), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("APP_ENV", "production")
	t.Setenv("CONFIG_PATH", path)
	t.Setenv("TEST_LA_KEY", "from-env")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Environment != "production" {
		t.Errorf("expected production environment, got %q", cfg.Environment)
	}
	if cfg.Store.Backend != "postgres" {
		t.Errorf("expected postgres backend, got %q", cfg.Store.Backend)
	}
}

// TestLoad_MissingFile verifies a missing config file is reported.
func TestLoad_MissingFile(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "nope.yaml"))

	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing config file")
	}
}
