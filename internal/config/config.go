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

// Package config loads configuration from config.yaml and environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// LiveAgentConfig holds helpdesk API settings.
type LiveAgentConfig struct {
	BaseURL   string
	APIKey    string
	AgentURL  string // ticket deep link prefix; the ticket id is appended
	Pages     int
	PerPage   int
	Timeout   time.Duration
	RateLimit float64 // requests per second
	Burst     int
}

// TranscriptConfig controls transcript rendering and classification.
type TranscriptConfig struct {
	MaxLength          int
	IgnoredDomains     []string
	CommunicationTypes []string
}

// StoreConfig selects and configures the row store.
type StoreConfig struct {
	Backend         string // "sheets" or "postgres"
	SpreadsheetID   string
	CredentialsFile string
	DatabaseURL     string
}

// LLMConfig selects the completion provider used for QA analysis.
type LLMConfig struct {
	Provider string // "gemini", "anthropic" or "ollama"
	Model    string
	APIKey   string
	BaseURL  string
	Timeout  time.Duration
}

// SMTPConfig holds outgoing mail settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// AlertsConfig holds alert recipients and message templates.
type AlertsConfig struct {
	Recipients      []string
	SubjectTemplate string
	BodyTemplate    string
}

// JobSchedule is a weekday window in which a job fires once an hour.
type JobSchedule struct {
	Days   string // e.g. "mon-fri"
	Hours  string // e.g. "7-18" or "17"
	Minute int
}

// PromptsConfig holds operator-supplied analysis instructions.
type PromptsConfig struct {
	QA    string
	Alert string
}

// Config holds all configuration for the QA service.
type Config struct {
	Environment string

	LiveAgent  LiveAgentConfig
	Transcript TranscriptConfig
	Timezone   string
	Store      StoreConfig

	// Redis
	RedisURL    string
	AlertsQueue string

	LLM      LLMConfig
	SMTP     SMTPConfig
	Alerts   AlertsConfig
	Schedule map[string]JobSchedule
	Prompts  PromptsConfig

	ArchiveRetentionDays int

	// Server (health, status, manual triggers)
	Port int
}

// Job names used in the schedule section.
const (
	JobETL       = "etl"
	JobAnalysis  = "analysis"
	JobAggregate = "aggregate"
	JobArchive   = "archive"
)

// DefaultSchedule mirrors the office-hours cadence: ingest at :30 and
// analyse at :35 every working hour, aggregate at 17:00.
var DefaultSchedule = map[string]JobSchedule{
	JobETL:       {Days: "mon-fri", Hours: "7-18", Minute: 30},
	JobAnalysis:  {Days: "mon-fri", Hours: "7-18", Minute: 35},
	JobAggregate: {Days: "mon-fri", Hours: "17", Minute: 0},
}

// rawConfig mirrors the YAML structure for unmarshalling.
type rawConfig struct {
	LiveAgent struct {
		BaseURL   string  `yaml:"base_url"`
		APIKey    string  `yaml:"api_key"`
		AgentURL  string  `yaml:"agent_url"`
		Pages     int     `yaml:"pages"`
		PerPage   int     `yaml:"per_page"`
		Timeout   string  `yaml:"timeout"`
		RateLimit float64 `yaml:"rate_limit"`
		Burst     int     `yaml:"burst"`
	} `yaml:"liveagent"`
	Transcript struct {
		MaxLength          int      `yaml:"max_length"`
		IgnoredDomains     []string `yaml:"ignored_domains"`
		CommunicationTypes []string `yaml:"communication_types"`
	} `yaml:"transcript"`
	Timezone string `yaml:"timezone"`
	Store    struct {
		Backend         string `yaml:"backend"`
		SpreadsheetID   string `yaml:"spreadsheet_id"`
		CredentialsFile string `yaml:"credentials_file"`
		DatabaseURL     string `yaml:"database_url"`
	} `yaml:"store"`
	Redis struct {
		URL    string `yaml:"url"`
		Queues struct {
			Alerts string `yaml:"alerts"`
		} `yaml:"queues"`
	} `yaml:"redis"`
	LLM struct {
		Provider string `yaml:"provider"`
		Model    string `yaml:"model"`
		APIKey   string `yaml:"api_key"`
		BaseURL  string `yaml:"base_url"`
		Timeout  string `yaml:"timeout"`
	} `yaml:"llm"`
	SMTP struct {
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		Username string `yaml:"username"`
		Password string `yaml:"password"`
		From     string `yaml:"from"`
	} `yaml:"smtp"`
	Alerts struct {
		Recipients      []string `yaml:"recipients"`
		SubjectTemplate string   `yaml:"subject_template"`
		BodyTemplate    string   `yaml:"body_template"`
	} `yaml:"alerts"`
	Schedule map[string]struct {
		Days   string `yaml:"days"`
		Hours  string `yaml:"hours"`
		Minute *int   `yaml:"minute"`
	} `yaml:"schedule"`
	Prompts struct {
		QA    string `yaml:"qa"`
		Alert string `yaml:"alert"`
	} `yaml:"prompts"`
	Archive struct {
		RetentionDays int `yaml:"retention_days"`
	} `yaml:"archive"`
	Port int `yaml:"port"`
}

// Load reads configuration from config.yaml (with env var expansion) and
// environment variables for non-YAML settings. In development a .env file
// is loaded first when present.
func Load() (*Config, error) {
	env := envOrDefault("APP_ENV", "development")
	if env == "development" {
		if err := godotenv.Load(); err != nil {
			slog.Debug("no .env file loaded", "error", err)
		}
	}

	configPath := envOrDefault("CONFIG_PATH", "config/config.yaml")

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("read config file %s: %w", configPath, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}
	cfg.Environment = env

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse builds a Config from YAML bytes, expanding ${VAR} references and
// filling defaults. It does not validate.
func Parse(data []byte) (*Config, error) {
	// Expand ${VAR} references in the YAML
	expanded := os.ExpandEnv(string(data))

	var raw rawConfig
	if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
		return nil, fmt.Errorf("parse config YAML: %w", err)
	}

	liveAgentTimeout, err := parseDuration(raw.LiveAgent.Timeout, envOrDefaultDuration("LIVEAGENT_TIMEOUT", 30*time.Second))
	if err != nil {
		return nil, fmt.Errorf("parse liveagent.timeout: %w", err)
	}
	llmTimeout, err := parseDuration(raw.LLM.Timeout, 2*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("parse llm.timeout: %w", err)
	}

	cfg := &Config{
		LiveAgent: LiveAgentConfig{
			BaseURL:   strings.TrimRight(firstNonEmpty(raw.LiveAgent.BaseURL, envOrDefault("LIVEAGENT_API_URL", "https://plotbase.ladesk.com/api/v3")), "/"),
			APIKey:    firstNonEmpty(raw.LiveAgent.APIKey, os.Getenv("LIVEAGENT_API_KEY")),
			AgentURL:  firstNonEmpty(raw.LiveAgent.AgentURL, "https://plotbase.ladesk.com/agent/#/Ticket;"),
			Pages:     positiveOr(raw.LiveAgent.Pages, envOrDefaultInt("LIVEAGENT_PAGES", 5)),
			PerPage:   positiveOr(raw.LiveAgent.PerPage, 20),
			Timeout:   liveAgentTimeout,
			RateLimit: raw.LiveAgent.RateLimit,
			Burst:     positiveOr(raw.LiveAgent.Burst, 1),
		},
		Transcript: TranscriptConfig{
			MaxLength:          raw.Transcript.MaxLength,
			IgnoredDomains:     raw.Transcript.IgnoredDomains,
			CommunicationTypes: raw.Transcript.CommunicationTypes,
		},
		Timezone: firstNonEmpty(raw.Timezone, envOrDefault("TZ_NAME", "Europe/Bratislava")),
		Store: StoreConfig{
			Backend:         firstNonEmpty(raw.Store.Backend, envOrDefault("STORE_BACKEND", "sheets")),
			SpreadsheetID:   firstNonEmpty(raw.Store.SpreadsheetID, os.Getenv("SPREADSHEET_ID")),
			CredentialsFile: firstNonEmpty(raw.Store.CredentialsFile, envOrDefault("GOOGLE_APPLICATION_CREDENTIALS", "credentials.json")),
			DatabaseURL:     firstNonEmpty(raw.Store.DatabaseURL, os.Getenv("DATABASE_URL")),
		},
		RedisURL:    firstNonEmpty(raw.Redis.URL, envOrDefault("REDIS_URL", "redis://localhost:6379/0")),
		AlertsQueue: firstNonEmpty(raw.Redis.Queues.Alerts, envOrDefault("ALERTS_QUEUE", "alerts")),
		LLM: LLMConfig{
			Provider: firstNonEmpty(raw.LLM.Provider, envOrDefault("LLM_PROVIDER", "gemini")),
			Model:    raw.LLM.Model,
			APIKey:   firstNonEmpty(raw.LLM.APIKey, os.Getenv("GOOGLE_AI_API_KEY")),
			BaseURL:  raw.LLM.BaseURL,
			Timeout:  llmTimeout,
		},
		SMTP: SMTPConfig{
			Host:     firstNonEmpty(raw.SMTP.Host, envOrDefault("SMTP_HOST", "smtp.gmail.com")),
			Port:     positiveOr(raw.SMTP.Port, envOrDefaultInt("SMTP_PORT", 587)),
			Username: firstNonEmpty(raw.SMTP.Username, os.Getenv("GMAIL_USER")),
			Password: firstNonEmpty(raw.SMTP.Password, os.Getenv("GMAIL_APP_PASSWORD")),
		},
		Alerts: AlertsConfig{
			Recipients:      cleanList(raw.Alerts.Recipients),
			SubjectTemplate: raw.Alerts.SubjectTemplate,
			BodyTemplate:    raw.Alerts.BodyTemplate,
		},
		Schedule: make(map[string]JobSchedule, len(DefaultSchedule)),
		Prompts: PromptsConfig{
			QA:    raw.Prompts.QA,
			Alert: raw.Prompts.Alert,
		},
		ArchiveRetentionDays: positiveOr(raw.Archive.RetentionDays, 2),
		Port:                 positiveOr(raw.Port, envOrDefaultInt("PORT", 8080)),
	}
	cfg.SMTP.From = firstNonEmpty(raw.SMTP.From, cfg.SMTP.Username)
	if cfg.Transcript.MaxLength == 0 {
		cfg.Transcript.MaxLength = 49000
	}

	for job, s := range DefaultSchedule {
		cfg.Schedule[job] = s
	}
	for job, s := range raw.Schedule {
		js := cfg.Schedule[job]
		if s.Days != "" {
			js.Days = s.Days
		}
		if s.Hours != "" {
			js.Hours = s.Hours
		}
		if s.Minute != nil {
			js.Minute = *s.Minute
		}
		cfg.Schedule[job] = js
	}

	return cfg, nil
}

// Validate reports configuration that cannot work.
func (c *Config) Validate() error {
	var errs []error

	if c.LiveAgent.APIKey == "" {
		errs = append(errs, errors.New("liveagent.api_key (or LIVEAGENT_API_KEY) is required"))
	}
	if c.Transcript.MaxLength <= 0 {
		errs = append(errs, fmt.Errorf("transcript.max_length must be positive, got %d", c.Transcript.MaxLength))
	}

	switch c.Store.Backend {
	case "sheets":
		if c.Store.SpreadsheetID == "" {
			errs = append(errs, errors.New("store.spreadsheet_id is required for the sheets backend"))
		}
	case "postgres":
		if c.Store.DatabaseURL == "" {
			errs = append(errs, errors.New("store.database_url is required for the postgres backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store backend %q", c.Store.Backend))
	}

	switch c.LLM.Provider {
	case "gemini", "anthropic", "ollama":
	default:
		errs = append(errs, fmt.Errorf("unknown llm provider %q", c.LLM.Provider))
	}

	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("load timezone %q: %w", c.Timezone, err))
	}

	for job, s := range c.Schedule {
		if s.Minute < 0 || s.Minute > 59 {
			errs = append(errs, fmt.Errorf("schedule.%s.minute out of range: %d", job, s.Minute))
		}
	}

	return errors.Join(errs...)
}

// Location returns the configured time zone, or UTC when it cannot load.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func parseDuration(v string, fallback time.Duration) (time.Duration, error) {
	if strings.TrimSpace(v) == "" {
		return fallback, nil
	}
	return time.ParseDuration(v)
}

func cleanList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func positiveOr(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrDefaultInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envOrDefaultDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
