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

// Package app builds the service graph shared by the server and the CLI.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/deskqa/ingestion/internal/analysis"
	"github.com/deskqa/ingestion/internal/config"
	"github.com/deskqa/ingestion/internal/dedup"
	"github.com/deskqa/ingestion/internal/jobstatus"
	"github.com/deskqa/ingestion/internal/liveagent"
	"github.com/deskqa/ingestion/internal/pipeline"
	"github.com/deskqa/ingestion/internal/queue"
	"github.com/deskqa/ingestion/internal/scheduler"
	"github.com/deskqa/ingestion/internal/store"
	"github.com/deskqa/ingestion/internal/store/postgres"
	"github.com/deskqa/ingestion/internal/store/sheets"
	"github.com/deskqa/ingestion/internal/transcript"
)

// StatusBoard is a job status sink that can also be read and watched.
type StatusBoard interface {
	jobstatus.Reporter
	jobstatus.Reader
	Subscribe(l jobstatus.Listener) (unsubscribe func())
}

// App holds the connected collaborators and the four jobs.
type App struct {
	Config    *config.Config
	Redis     *redis.Client
	Store     store.Store
	Source    *liveagent.Client
	Processor *transcript.Processor
	Status    StatusBoard
	Publisher *queue.Publisher

	ETL        *pipeline.ETL
	Analysis   *pipeline.Analysis
	Aggregator *pipeline.Aggregator
	Archiver   *pipeline.Archiver
}

// NewSource creates the LiveAgent client described by cfg.
func NewSource(cfg *config.Config) *liveagent.Client {
	return liveagent.NewClient(liveagent.Config{
		BaseURL:   cfg.LiveAgent.BaseURL,
		APIKey:    cfg.LiveAgent.APIKey,
		AgentURL:  cfg.LiveAgent.AgentURL,
		Timeout:   cfg.LiveAgent.Timeout,
		RateLimit: cfg.LiveAgent.RateLimit,
		Burst:     cfg.LiveAgent.Burst,
	})
}

// NewProcessor creates the transcript processor described by cfg.
func NewProcessor(cfg *config.Config) *transcript.Processor {
	return transcript.NewProcessor(transcript.Options{
		MaxLength:          cfg.Transcript.MaxLength,
		IgnoredDomains:     cfg.Transcript.IgnoredDomains,
		CommunicationTypes: cfg.Transcript.CommunicationTypes,
	})
}

// OpenStore connects the row store selected by cfg.Store.Backend and makes
// sure its schema exists.
func OpenStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	var (
		s   store.Store
		err error
	)
	switch cfg.Store.Backend {
	case "postgres":
		s, err = postgres.Connect(ctx, cfg.Store.DatabaseURL)
	case "sheets":
		s, err = sheets.New(ctx, sheets.Config{
			SpreadsheetID:   cfg.Store.SpreadsheetID,
			CredentialsFile: cfg.Store.CredentialsFile,
		})
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Store.Backend, err)
	}
	if err := s.EnsureSchema(ctx); err != nil {
		s.Close()
		return nil, fmt.Errorf("ensure %s schema: %w", cfg.Store.Backend, err)
	}
	slog.Info("row store ready", "backend", cfg.Store.Backend)
	return s, nil
}

// Build connects Redis and the row store and assembles the jobs.
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opt)

	publisher := queue.NewPublisher(rdb, cfg.AlertsQueue)
	if err := publisher.Ping(ctx); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	slog.Info("connected to Redis")

	st, err := OpenStore(ctx, cfg)
	if err != nil {
		rdb.Close()
		return nil, err
	}

	completer, err := analysis.NewCompleter(ctx, analysis.ProviderConfig{
		Provider: cfg.LLM.Provider,
		Model:    cfg.LLM.Model,
		APIKey:   cfg.LLM.APIKey,
		BaseURL:  cfg.LLM.BaseURL,
		Timeout:  cfg.LLM.Timeout,
	})
	if err != nil {
		st.Close()
		rdb.Close()
		return nil, fmt.Errorf("create %s completer: %w", cfg.LLM.Provider, err)
	}
	analyzer := analysis.NewAnalyzer(completer, cfg.Prompts.QA, cfg.Prompts.Alert)
	slog.Info("analyzer ready", "provider", cfg.LLM.Provider, "model", analyzer.Model())

	a := &App{
		Config:    cfg,
		Redis:     rdb,
		Store:     st,
		Source:    NewSource(cfg),
		Processor: NewProcessor(cfg),
		Status:    jobstatus.NewRedis(rdb),
		Publisher: publisher,
	}
	loc := cfg.Location()

	a.ETL = pipeline.NewETL(pipeline.ETLConfig{
		Source:    a.Source,
		Store:     st,
		Processor: a.Processor,
		Dedup:     dedup.NewFilter(rdb, dedup.DefaultTTL),
		Reporter:  a.Status,
		Location:  loc,
		Pages:     cfg.LiveAgent.Pages,
		PerPage:   cfg.LiveAgent.PerPage,
	})
	a.Analysis = pipeline.NewAnalysis(pipeline.AnalysisConfig{
		Store:     st,
		Analyzer:  analyzer,
		Publisher: publisher,
		Reporter:  a.Status,
	})
	a.Aggregator = pipeline.NewAggregator(st, a.Status)
	a.Archiver = pipeline.NewArchiver(pipeline.ArchiveConfig{
		Store:         st,
		Reporter:      a.Status,
		Location:      loc,
		RetentionDays: cfg.ArchiveRetentionDays,
	})
	return a, nil
}

// Jobs returns the job bodies keyed by job name.
func (a *App) Jobs() map[string]scheduler.Func {
	return map[string]scheduler.Func{
		pipeline.JobETL: func(ctx context.Context) error {
			res, err := a.ETL.Run(ctx)
			if err != nil {
				return err
			}
			slog.Info("etl finished",
				"added", res.Added,
				"known", res.Known,
				"non_human", res.NonHuman,
				"errors", res.Errors,
				"elapsed", res.Elapsed,
			)
			return nil
		},
		pipeline.JobAnalysis: func(ctx context.Context) error {
			res, err := a.Analysis.Run(ctx)
			if err != nil {
				return err
			}
			slog.Info("analysis finished",
				"analyzed", res.Analyzed,
				"critical", res.Critical,
				"failed", res.Failed,
				"alerts", res.Alerts,
				"elapsed", res.Elapsed,
			)
			return nil
		},
		pipeline.JobAggregate: func(ctx context.Context) error {
			stats, err := a.Aggregator.Run(ctx)
			if err != nil {
				return err
			}
			slog.Info("aggregation finished", "stats", len(stats))
			return nil
		},
		pipeline.JobArchive: func(ctx context.Context) error {
			n, err := a.Archiver.Run(ctx)
			if err != nil {
				return err
			}
			slog.Info("archive finished", "archived", n)
			return nil
		},
	}
}

// Register adds every job to s, scheduled per the configuration. Jobs
// without a schedule can only be triggered manually.
func (a *App) Register(s *scheduler.Scheduler) error {
	schedules, err := Schedules(a.Config)
	if err != nil {
		return err
	}
	for name, run := range a.Jobs() {
		s.Add(scheduler.Job{Name: name, Schedule: schedules[name], Run: run})
	}
	return nil
}

// Schedules parses the configured job schedules.
func Schedules(cfg *config.Config) (map[string]*scheduler.Schedule, error) {
	out := make(map[string]*scheduler.Schedule, len(cfg.Schedule))
	var errs []error
	for name, js := range cfg.Schedule {
		s, err := scheduler.Parse(js.Days, js.Hours, js.Minute)
		if err != nil {
			errs = append(errs, fmt.Errorf("parse schedule %s: %w", name, err))
			continue
		}
		out[name] = &s
	}
	return out, errors.Join(errs...)
}

// Close releases the store and Redis.
func (a *App) Close() {
	if err := a.Store.Close(); err != nil {
		slog.Warn("store close failed", "error", err)
	}
	if err := a.Redis.Close(); err != nil {
		slog.Warn("redis close failed", "error", err)
	}
}
